package momo

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brave-intl/momo-go/libs/clients"
)

// Error is a classification of a failed call to the provider
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrAuth - the provider refused the credentials or the access token
	ErrAuth Error = "momo: authentication failed"
	// ErrTransport - the call timed out, never got a response or the provider failed server side
	ErrTransport Error = "momo: transport failure"
	// ErrRejected - the provider answered with a non success status
	ErrRejected Error = "momo: request rejected"
)

// IsRetryable reports whether the call may be attempted again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrTransport)
}

// IsUnauthorized reports whether the provider rejected the access token
func IsUnauthorized(err error) bool {
	if !errors.Is(err, ErrAuth) {
		return false
	}
	status, ok := clients.StatusCode(err)
	return ok && status == http.StatusUnauthorized
}

// classify attaches one of the Error kinds to an error returned by the http client,
// serverError is the kind used for 5xx answers. The http state stays reachable through the chain.
func classify(err error, serverError Error) error {
	if err == nil {
		return nil
	}

	status, ok := clients.StatusCode(err)
	if !ok {
		// nothing was received
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuth, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", serverError, err)
	default:
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
}
