package momotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
)

// Provider is an in process stand in for the collection api. Requests to pay are accepted and
// their status is whatever SetStatus last said, PENDING by default.
type Provider struct {
	*httptest.Server

	Token     string
	ExpiresIn int64
	// SubmitStatus is answered to requests to pay, 202 when zero.
	SubmitStatus int

	mu       sync.Mutex
	status   map[string]momoclient.Status
	payloads map[string]momoclient.RequestToPayPayload

	tokenCalls  atomic.Int64
	statusCalls atomic.Int64
}

// NewProvider starts a Provider, close it with Close.
func NewProvider() *Provider {
	p := &Provider{
		Token:     "fake-access-token",
		ExpiresIn: 3600,
		status:    make(map[string]momoclient.Status),
		payloads:  make(map[string]momoclient.RequestToPayPayload),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/collection/token/", p.token)
	mux.HandleFunc("/collection/v1_0/requesttopay", p.requestToPay)
	mux.HandleFunc("/collection/v1_0/requesttopay/", p.requestToPayStatus)

	p.Server = httptest.NewServer(mux)
	return p
}

// Config returns a client config pointing at p.
func (p *Provider) Config() momoclient.Config {
	return momoclient.Config{
		Server:            p.URL,
		SubscriptionKey:   "subscription-key",
		APIUser:           "api-user",
		TargetEnvironment: momoclient.SandboxEnvironment,
	}
}

// SetStatus sets what status lookups of reference answer.
func (p *Provider) SetStatus(reference string, status momoclient.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status[reference] = status
}

// Payload returns the request to pay received for reference.
func (p *Provider) Payload(reference string) (momoclient.RequestToPayPayload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload, ok := p.payloads[reference]
	return payload, ok
}

// TokenCalls returns how many token exchanges were made.
func (p *Provider) TokenCalls() int {
	return int(p.tokenCalls.Load())
}

// StatusCalls returns how many status lookups were made.
func (p *Provider) StatusCalls() int {
	return int(p.statusCalls.Load())
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	p.tokenCalls.Add(1)

	if _, _, ok := r.BasicAuth(); !ok || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(momoclient.TokenResponse{
		AccessToken: p.Token,
		TokenType:   "access_token",
		ExpiresIn:   p.ExpiresIn,
	})
}

func (p *Provider) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+p.Token
}

func (p *Provider) requestToPay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload momoclient.RequestToPayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if p.SubmitStatus != 0 && p.SubmitStatus != http.StatusAccepted {
		w.WriteHeader(p.SubmitStatus)
		_, _ = w.Write([]byte(`{"code":"PAYER_NOT_FOUND","message":"Payee does not exist"}`))
		return
	}

	reference := r.Header.Get("X-Reference-Id")

	p.mu.Lock()
	p.payloads[reference] = payload
	if _, ok := p.status[reference]; !ok {
		p.status[reference] = momoclient.StatusPending
	}
	p.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func (p *Provider) requestToPayStatus(w http.ResponseWriter, r *http.Request) {
	p.statusCalls.Add(1)

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	reference := strings.TrimPrefix(r.URL.Path, "/collection/v1_0/requesttopay/")

	p.mu.Lock()
	status, ok := p.status[reference]
	payload := p.payloads[reference]
	p.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(momoclient.RequestToPayStatus{
		Amount:     payload.Amount.String(),
		Currency:   payload.Currency,
		ExternalID: payload.ExternalID,
		Payer:      &payload.Payer,
		Status:     string(status),
	})
}
