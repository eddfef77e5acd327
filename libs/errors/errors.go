package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrFailedClientRequest - failed to perform client request
	ErrFailedClientRequest = errors.New("failed to perform api request")
	// ErrFailedBodyRead - failed to read body
	ErrFailedBodyRead = errors.New("failed to read the response body")
	// ErrFailedBodyUnmarshal - failed to decode body
	ErrFailedBodyUnmarshal = errors.New("failed to unmarshal the response body")
	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")
	// ErrInternalServerError internal server error
	ErrInternalServerError = errors.New("server encountered an internal error and was unable to complete the request")
	// ErrBadRequest bad request error
	ErrBadRequest = errors.New("error bad request")
	// ErrCertificateExpired - a client certificate is past its not after date
	ErrCertificateExpired = errors.New("certificate has expired")
)

// ErrorBundle creates a new response error
type ErrorBundle struct {
	cause   error
	message string
	data    interface{}
}

// New creates a new response error
func New(cause error, message string, data interface{}) error {
	return &ErrorBundle{
		cause,
		message,
		data,
	}
}

// Data from error origin
func (e ErrorBundle) Data() interface{} {
	return e.data
}

// Cause returns the associated cause
func (e ErrorBundle) Cause() error {
	return e.cause
}

// Unwrap returns the associated cause
func (e ErrorBundle) Unwrap() error {
	return e.cause
}

// Error turns into an error
func (e ErrorBundle) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

// DataToString returns string representation of data
func (e ErrorBundle) DataToString() string {
	if e.data == nil {
		return "no error bundle data"
	}
	b, err := json.Marshal(e.data)
	if err != nil {
		return fmt.Sprintf("error retrieving error bundle data %s", err.Error())
	}
	return string(b)
}

// Wrap wraps an error
func Wrap(cause error, message string) error {
	return &ErrorBundle{
		cause:   cause,
		message: message,
		data:    nil,
	}
}

// DataFrom walks the chain of err and returns the data of the first ErrorBundle carrying any.
func DataFrom(err error) (interface{}, bool) {
	for err != nil {
		var eb *ErrorBundle
		if !errors.As(err, &eb) {
			return nil, false
		}
		if eb.data != nil {
			return eb.data, true
		}
		err = eb.cause
	}
	return nil, false
}

// MultiError - allows for multiple errors, not necessarily chained
type MultiError struct {
	Errs []error
}

// Append - append new errors to this multierror
func (me *MultiError) Append(err ...error) {
	if me.Errs == nil {
		me.Errs = []error{}
	}
	me.Errs = append(me.Errs, err...)
}

// Count - get the number of errors contained herein
func (me *MultiError) Count() int {
	return len(me.Errs)
}

// Is reports whether any of the contained errors matches target.
func (me *MultiError) Is(target error) bool {
	for _, err := range me.Errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As finds the first contained error that matches target.
func (me *MultiError) As(target interface{}) bool {
	for _, err := range me.Errs {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// Error - implement Error interface
func (me *MultiError) Error() string {
	var errText string
	for _, err := range me.Errs {
		if errText == "" {
			errText = err.Error()
		} else {
			errText += "; " + err.Error()
		}
	}
	return errText
}
