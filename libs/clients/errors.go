package clients

import (
	"fmt"

	errorutils "github.com/brave-intl/momo-go/libs/errors"
)

const (
	// ErrUnableToDecode unable to decode body
	ErrUnableToDecode = "unable to decode response"
	// ErrProtocolError the error was within the data that went into the endpoint
	ErrProtocolError = "protocol error"
	// ErrUnableToEscapeURL the url could nto be escaped
	ErrUnableToEscapeURL = "unable to escape url"
	// ErrInvalidHost the host was invalid
	ErrInvalidHost = "invalid host"
	// ErrMalformedRequest the request was malformed
	ErrMalformedRequest = "malformed request"
	// ErrUnableToEncodeBody body could not be decoded
	ErrUnableToEncodeBody = "unable to encode body"
)

// HTTPState captures the state of the response to be read by lower fns in the stack
type HTTPState struct {
	Status int
	Path   string
	Body   interface{}
}

// NewHTTPError creates a new errors.ErrorBundle with an HTTPState wrapping the status, path and v.
func NewHTTPError(err error, path, message string, status int, v interface{}) error {
	return errorutils.New(err, message, HTTPState{
		Status: status,
		Path:   path,
		Body:   v,
	})
}

// UnwrapHTTPState finds the HTTPState carried anywhere in the chain of err.
func UnwrapHTTPState(err error) (*HTTPState, error) {
	data, ok := errorutils.DataFrom(err)
	if ok {
		if state, ok := data.(HTTPState); ok {
			return &state, nil
		}
	}

	return nil, fmt.Errorf("error unwrapping http state for error %w", err)
}

// StatusCode is the http status carried by err, false when err never got a response.
func StatusCode(err error) (int, bool) {
	state, serr := UnwrapHTTPState(err)
	if serr != nil {
		return 0, false
	}
	return state.Status, true
}
