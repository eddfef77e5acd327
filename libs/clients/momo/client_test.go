package momo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/brave-intl/momo-go/libs/clients"
)

func newTestClient(t *testing.T, serverURL string) *HTTPClient {
	client, err := NewWithHTTPClient(Config{
		Server:            serverURL,
		SubscriptionKey:   "sub-key",
		APIUser:           "api-user",
		TargetEnvironment: SandboxEnvironment,
	}, &http.Client{Timeout: 2 * time.Second})
	must.NoError(t, err)
	return client
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Server: SandboxServer, SubscriptionKey: "k"})
	assert.Error(t, err)

	client, err := New(Config{Server: SandboxServer, SubscriptionKey: "k", APIUser: "u"})
	must.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRequestToken(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, SandboxServer+tokenPath,
		func(req *http.Request) (*http.Response, error) {
			expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("api-user:"))
			if req.Header.Get("Authorization") != expected || req.Header.Get(headerSubscriptionKey) != "sub-key" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error":"login_failed"}`), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"access_token": "token-1",
				"token_type":   "access_token",
				"expires_in":   3600,
			})
		})

	client, err := NewWithHTTPClient(Config{
		Server:          SandboxServer,
		SubscriptionKey: "sub-key",
		APIUser:         "api-user",
	}, hc)
	must.NoError(t, err)

	resp, err := client.RequestToken(context.Background())
	must.NoError(t, err)
	assert.Equal(t, "token-1", resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRequestToken_Unauthorized(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, SandboxServer+tokenPath,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"login_failed"}`))

	client, err := NewWithHTTPClient(Config{Server: SandboxServer, SubscriptionKey: "k", APIUser: "u"}, hc)
	must.NoError(t, err)

	_, err = client.RequestToken(context.Background())
	must.ErrorIs(t, err, ErrAuth)
	assert.True(t, IsUnauthorized(err))

	state, serr := clients.UnwrapHTTPState(err)
	must.NoError(t, serr)
	assert.Equal(t, http.StatusUnauthorized, state.Status)
}

func TestRequestToken_NoResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := newTestClient(t, ts.URL)

	_, err := client.RequestToken(context.Background())
	must.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsRetryable(err))
}

func TestRequestToPay(t *testing.T) {
	referenceID := uuid.New()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, requestToPayPath, r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "sub-key", r.Header.Get(headerSubscriptionKey))
		assert.Equal(t, SandboxEnvironment, r.Header.Get(headerTargetEnvironment))
		assert.Equal(t, referenceID.String(), r.Header.Get(headerReferenceID))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		b, err := io.ReadAll(r.Body)
		must.NoError(t, err)
		assert.JSONEq(t, `{
			"amount": "50",
			"currency": "EUR",
			"externalId": "1234test99",
			"payer": {"partyIdType": "MSISDN", "partyId": "2600961288156"},
			"payerMessage": "Payment for order 1234test99 by vwit",
			"payeeNote": "Payment for order 1234test99 by vwit"
		}`, string(b))

		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	msg := "Payment for order 1234test99 by vwit"
	payload := NewRequestToPayPayload(decimal.NewFromInt(50), "EUR", "1234test99", "2600961288156", msg, msg)

	result, err := client.RequestToPay(context.Background(), "token-1", referenceID, payload)
	must.NoError(t, err)
	assert.True(t, result.Accepted())
	assert.Equal(t, referenceID, result.ReferenceID)
}

func TestRequestToPay_StatusCodes(t *testing.T) {
	type tcGiven struct {
		status int
		body   string
	}

	type tcExpected struct {
		kind Error
	}

	type testCase struct {
		name  string
		given tcGiven
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "bad_request",
			given: tcGiven{status: http.StatusBadRequest, body: `{"code":"PAYER_NOT_FOUND"}`},
			exp:   tcExpected{kind: ErrRejected},
		},
		{
			name:  "ok_is_not_accepted",
			given: tcGiven{status: http.StatusOK},
			exp:   tcExpected{kind: ErrRejected},
		},
		{
			name:  "server_error",
			given: tcGiven{status: http.StatusInternalServerError, body: `oops`},
			exp:   tcExpected{kind: ErrRejected},
		},
		{
			name:  "unauthorized",
			given: tcGiven{status: http.StatusUnauthorized, body: `{"message":"expired"}`},
			exp:   tcExpected{kind: ErrAuth},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.given.status)
				_, _ = w.Write([]byte(tc.given.body))
			}))
			defer ts.Close()

			client := newTestClient(t, ts.URL)

			result, err := client.RequestToPay(context.Background(), "token-1", uuid.New(), RequestToPayPayload{})
			must.ErrorIs(t, err, tc.exp.kind)
			must.NotNil(t, result)
			assert.False(t, result.Accepted())
			assert.Equal(t, tc.given.status, result.StatusCode)
			assert.Equal(t, tc.given.body, result.Body)
		})
	}
}

func TestRequestToPay_NoResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := newTestClient(t, ts.URL)

	result, err := client.RequestToPay(context.Background(), "token-1", uuid.New(), RequestToPayPayload{})
	must.ErrorIs(t, err, ErrTransport)
	assert.Nil(t, result)
}

func TestGetRequestToPayStatus(t *testing.T) {
	referenceID := uuid.New()
	body := `{"amount":"50","currency":"EUR","externalId":"1234test99","status":"SUCCESSFUL","financialTransactionId":"363440463"}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, requestToPayPath+"/"+referenceID.String(), r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, SandboxEnvironment, r.Header.Get(headerTargetEnvironment))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	status, err := client.GetRequestToPayStatus(context.Background(), "token-1", referenceID)
	must.NoError(t, err)
	assert.Equal(t, "SUCCESSFUL", status.Status)
	assert.Equal(t, "363440463", status.FinancialTransactionID)
	assert.Equal(t, body, status.Raw)
}

func TestGetRequestToPayStatus_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   Error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, kind: ErrAuth},
		{name: "not_found", status: http.StatusNotFound, kind: ErrRejected},
		{name: "unavailable", status: http.StatusServiceUnavailable, kind: ErrTransport},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer ts.Close()

			client := newTestClient(t, ts.URL)

			_, err := client.GetRequestToPayStatus(context.Background(), "token-1", uuid.New())
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"SUCCESSFUL":  StatusSuccessful,
		"successful":  StatusSuccessful,
		" Failed ":    StatusFailed,
		"PENDING":     StatusPending,
		"RESERVED":    StatusUnknown,
		"":            StatusUnknown,
		"ONGOING_XYZ": StatusUnknown,
	}

	for given, expected := range tests {
		assert.Equal(t, expected, ParseStatus(given), given)
	}
}

func TestRequestToPayPayload_AmountIsString(t *testing.T) {
	b, err := json.Marshal(NewRequestToPayPayload(decimal.RequireFromString("12.50"), "EUR", "o", "46733123453", "m", "n"))
	must.NoError(t, err)

	var raw map[string]interface{}
	must.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "12.5", raw["amount"])
}
