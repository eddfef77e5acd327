package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/brave-intl/momo-go/libs/requestutils"
)

const contentTypeJSON = "application/json"

// AppError is the json body of every failed api call
type AppError struct {
	Cause     error       `json:"-"`
	Message   string      `json:"message"`             // description of failure
	ErrorCode string      `json:"errorCode,omitempty"` // short machine readable code
	Code      int         `json:"code"`                // http status
	Data      interface{} `json:"data,omitempty"`      // application specific data
}

func (e *AppError) Error() string {
	msg := "error: " + e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ServeHTTP writes e as json with e.Code as the status
func (e *AppError) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", contentTypeJSON)
	w.WriteHeader(e.Code)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode error response")
	}
}

// WrapError turns err into an AppError with msg prefixed. An AppError found in the
// chain of err keeps its status, code and data, passedCode is used otherwise.
func WrapError(err error, msg string, passedCode int) *AppError {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		code := passedCode
		if code == 0 {
			code = http.StatusBadRequest
		}
		return &AppError{
			Cause:   err,
			Message: msg,
			Code:    code,
		}
	}

	code := appErr.Code
	if code == 0 {
		code = passedCode
	}
	if msg != "" {
		msg += ": "
	}
	return &AppError{
		Cause:     appErr.Cause,
		Message:   msg + appErr.Message,
		ErrorCode: appErr.ErrorCode,
		Code:      code,
		Data:      appErr.Data,
	}
}

// CodedError attaches a short machine readable code to an AppError, such as "TRANSACTION_NOT_FOUND".
func CodedError(err error, msg, errorCode string, code int) *AppError {
	appErr := WrapError(err, msg, code)
	appErr.ErrorCode = errorCode
	return appErr
}

// RenderContent writes v as the json body of the response
func RenderContent(ctx context.Context, v interface{}, w http.ResponseWriter, status int) *AppError {
	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(v); err != nil {
		return WrapError(err, "Error encoding JSON", http.StatusInternalServerError)
	}

	w.Header().Set("content-type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write(b.Bytes()); err != nil {
		return WrapError(err, "Error writing a response", http.StatusInternalServerError)
	}
	return nil
}

// WrapValidationError from govalidator
func WrapValidationError(err error) *AppError {
	return ValidationError("request body", govalidator.ErrorsByField(err))
}

// ValidationError creates an error to communicate a bad request was formed
func ValidationError(message string, validationErrors interface{}) *AppError {
	return &AppError{
		Message: "Error validating " + message,
		Code:    http.StatusBadRequest,
		Data: map[string]interface{}{
			"validationErrors": validationErrors,
		},
	}
}

func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" ||
		strings.Contains(accept, contentTypeJSON) ||
		strings.Contains(accept, "*/*")
}

// AppHandler is an http.Handler with json responses
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// ServeHTTP runs fn and renders the AppError it returns, server errors are reported to sentry
func (fn AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		(&AppError{
			Message: "only " + contentTypeJSON + " responses are available",
			Code:    http.StatusNotAcceptable,
		}).ServeHTTP(w, r)
		return
	}

	e := fn(w, r)
	if e == nil {
		return
	}

	if e.Code >= 500 && e.Code <= 599 {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTags(map[string]string{
				"reqID": requestutils.GetRequestID(r.Context()),
			})
			sentry.CaptureException(e)
		})
	}

	zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Err(e)
	})

	if e.Cause != nil {
		e.Message = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	e.ServeHTTP(w, r)
}
