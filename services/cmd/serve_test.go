package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/handlers"
	"github.com/brave-intl/momo-go/libs/logging"
)

func testContext() context.Context {
	ctx := context.WithValue(context.Background(), appctx.LogWriterCTXKey, io.Discard)
	ctx = context.WithValue(ctx, appctx.VersionCTXKey, "v0.1.0")
	ctx = context.WithValue(ctx, appctx.CommitCTXKey, "abc123")
	ctx = context.WithValue(ctx, appctx.BuildTimeCTXKey, "now")
	ctx = context.WithValue(ctx, appctx.CORSAllowedOriginsCTXKey, []string{"https://shop.example"})
	ctx, _ = logging.SetupLogger(ctx)
	return ctx
}

func TestSetupRouterHealthCheck(t *testing.T) {
	r := SetupRouter(testContext(), map[string]handlers.StatusFunc{
		"store": func(ctx context.Context) interface{} { return map[string]string{"status": "ok"} },
	})

	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/health-check", nil))
	must.Equal(t, http.StatusOK, rw.Code)

	var hcr struct {
		Version       string                       `json:"version"`
		Commit        string                       `json:"commit"`
		ServiceStatus map[string]map[string]string `json:"serviceStatus"`
	}
	must.NoError(t, json.Unmarshal(rw.Body.Bytes(), &hcr))
	should.Equal(t, "v0.1.0", hcr.Version)
	should.Equal(t, "abc123", hcr.Commit)
	should.Equal(t, "ok", hcr.ServiceStatus["store"]["status"])
	should.NotEmpty(t, rw.Header().Get("x-request-id"))
}

func TestSetupRouterCORS(t *testing.T) {
	r := SetupRouter(testContext(), nil)
	r.Post("/api/payment/initiate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/payment/initiate", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type, Idempotency-Key")
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, req)
		return rw
	}

	allowed := preflight("https://shop.example")
	should.Equal(t, "https://shop.example", allowed.Header().Get("Access-Control-Allow-Origin"))
	should.Contains(t, allowed.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	denied := preflight("https://elsewhere.example")
	should.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}
