package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newBufferedLogger() (*bytes.Buffer, context.Context) {
	buffer := &bytes.Buffer{}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: buffer, NoColor: true}).
		With().
		Timestamp().
		Logger()

	return buffer, logger.WithContext(context.Background())
}

func TestRequestLogger_LogsPanic(t *testing.T) {
	buffer, ctx := newBufferedLogger()

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("panicky handler")
	})

	rw := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil).
		WithContext(ctx)

	router := chi.NewRouter()
	router.Handle("/", RequestLogger(nil)(panicHandler))
	router.ServeHTTP(rw, r)

	actual := buffer.String()

	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Contains(t, actual, "panic recovered")
	assert.Regexp(t, regexp.MustCompile("panic=.+panicky handler"), actual)
	assert.Regexp(t, regexp.MustCompile("stacktrace=.+"), actual)
}

func TestRequestLogger_LogsCompletion(t *testing.T) {
	buffer, ctx := newBufferedLogger()

	handler := RequestIDTransfer(RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	r := httptest.NewRequest(http.MethodGet, "/api/payment/status/abc", nil).WithContext(ctx)
	r.Header.Set("x-request-id", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	actual := buffer.String()

	assert.Contains(t, actual, "request started")
	assert.Contains(t, actual, "request complete")
	assert.Contains(t, actual, "status=404")
	assert.Contains(t, actual, "x_request_id=req-123")
	assert.Contains(t, actual, "uri=/api/payment/status/abc")
}

func TestRequestLogger_SkipsProbes(t *testing.T) {
	buffer, ctx := newBufferedLogger()

	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, path := range []string{"/metrics", "/health-check"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
	}

	assert.Empty(t, buffer.String())
}
