package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	errorutils "github.com/brave-intl/momo-go/libs/errors"
	"github.com/brave-intl/momo-go/libs/requestutils"
	testutils "github.com/brave-intl/momo-go/libs/test"
)

type statusQuery struct {
	State string
}

func (q statusQuery) GenerateQueryString() (url.Values, error) {
	return url.Values{"state": []string{q.State}}, nil
}

func TestNewRequest(t *testing.T) {
	client, err := New("https://sandbox.momodeveloper.mtn.com", "secret")
	must.NoError(t, err)

	ctx := context.WithValue(context.Background(), requestutils.RequestID, "req-1")

	body := map[string]string{"amount": "50"}
	req, err := client.NewRequest(ctx, http.MethodPost, "/collection/v1_0/requesttopay", body, statusQuery{State: "pending"})
	must.NoError(t, err)

	assert.Equal(t, "https://sandbox.momodeveloper.mtn.com/collection/v1_0/requesttopay?state=pending", req.URL.String())
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "req-1", req.Header.Get(requestutils.RequestIDHeaderKey))

	b, err := io.ReadAll(req.Body)
	must.NoError(t, err)
	assert.JSONEq(t, `{"amount":"50"}`, string(b))
}

func TestNewRequest_GetHasNoBody(t *testing.T) {
	client, err := New("https://sandbox.momodeveloper.mtn.com", "")
	must.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/collection/v1_0/requesttopay/abc", map[string]string{"a": "b"}, nil)
	must.NoError(t, err)

	assert.Nil(t, req.Body)
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestDo_DecodesSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"SUCCESSFUL"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/status", nil, nil)
	must.NoError(t, err)

	var data struct {
		Status string `json:"status"`
	}
	resp, err := client.Do(context.Background(), req, &data)
	must.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SUCCESSFUL", data.Status)

	// the body stays readable for callers keeping the raw payload
	raw, err := io.ReadAll(resp.Body)
	must.NoError(t, err)
	assert.JSONEq(t, `{"status":"SUCCESSFUL"}`, string(raw))
}

func TestDo_ErrorWithResponse(t *testing.T) {
	errorMsg := testutils.RandomString()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(errorMsg))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	must.NoError(t, err)

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	var data map[string]string
	response, err := client.Do(context.Background(), req, &data)

	var actual *errorutils.ErrorBundle
	must.True(t, errors.As(err, &actual))
	assert.NotNil(t, response)

	assert.Contains(t, actual.Error(), ErrUnableToDecode)

	httpState, err := UnwrapHTTPState(err)
	must.NoError(t, err)
	assert.Equal(t, http.StatusOK, httpState.Status)
	assert.Equal(t, ts.URL, httpState.Path)
	assert.Equal(t, errorMsg, httpState.Body.(RespErrData).Body)
}

func TestDo_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, err := w.Write([]byte(`{"code":"PAYER_NOT_FOUND"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodPost, "/", map[string]string{}, nil)
	must.NoError(t, err)

	resp, err := client.Do(context.Background(), req, nil)
	must.Error(t, err)
	must.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	httpState, err := UnwrapHTTPState(err)
	must.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, httpState.Status)
	assert.Equal(t, `{"code":"PAYER_NOT_FOUND"}`, httpState.Body.(RespErrData).Body)
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	client, err := NewWithHTTPClient(ts.URL, "", &http.Client{})
	must.NoError(t, err)
	client.Timeout = 20 * time.Millisecond

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/", nil, nil)
	must.NoError(t, err)

	resp, err := client.Do(context.Background(), req, nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_OutlivesCallerCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	req, err := client.NewRequest(ctx, http.MethodPost, "/", map[string]string{}, nil)
	must.NoError(t, err)

	cancel()

	resp, err := client.Do(ctx, req, nil)
	must.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestRedactSensitiveHeaders(t *testing.T) {
	dump := []byte("POST /collection/token/ HTTP/1.1\r\nAuthorization: Basic dXNlcjo=\n" +
		"Ocp-Apim-Subscription-Key: abcdef\n\n{\"access_token\": \"eyJ0eXAi\"}")

	actual := string(RedactSensitiveHeaders(dump))

	assert.NotContains(t, actual, "dXNlcjo=")
	assert.NotContains(t, actual, "abcdef")
	assert.NotContains(t, actual, "eyJ0eXAi")
	assert.Contains(t, actual, "Authorization: Basic <token>")
}
