package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brave-intl/momo-go/libs/handlers"
)

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandlerFunc("TestInstrumentHandler", handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		return handlers.RenderContent(r.Context(), map[string]bool{"ok": true}, w, http.StatusOK)
	}))

	// instrumenting the same name twice reuses the registered collectors
	again := InstrumentHandler("TestInstrumentHandler", http.NotFoundHandler())

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	again.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rw.Code)

	rw = httptest.NewRecorder()
	Metrics().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	body := rw.Body.String()
	assert.True(t, strings.Contains(body, `api_requests_total{code="200",handler="TestInstrumentHandler",method="get"} 1`), body)
	assert.True(t, strings.Contains(body, `api_requests_total{code="404",handler="TestInstrumentHandler",method="get"} 1`), body)
}
