package momo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brave-intl/momo-go/libs/clients"
	appctx "github.com/brave-intl/momo-go/libs/context"
)

//go:generate mockgen -source=./client.go -destination=mock/mock.go -package=mockmomo

const (
	// SandboxServer is the base url of the public MoMo developer sandbox
	SandboxServer = "https://sandbox.momodeveloper.mtn.com"
	// SandboxEnvironment is the target environment of the sandbox
	SandboxEnvironment = "sandbox"

	tokenPath        = "/collection/token/"
	requestToPayPath = "/collection/v1_0/requesttopay"

	headerSubscriptionKey   = "Ocp-Apim-Subscription-Key"
	headerReferenceID       = "X-Reference-Id"
	headerTargetEnvironment = "X-Target-Environment"

	partyIDTypeMSISDN = "MSISDN"
)

// Status is the settlement status reported for a request to pay
type Status string

const (
	// StatusPending - the payer has not acted yet
	StatusPending Status = "PENDING"
	// StatusSuccessful - the payer approved and funds moved
	StatusSuccessful Status = "SUCCESSFUL"
	// StatusFailed - the payer declined or the provider failed the request
	StatusFailed Status = "FAILED"
	// StatusUnknown - anything the provider reports that is not recognized
	StatusUnknown Status = "UNKNOWN"
)

// Config holds what is needed to talk to a MoMo collection product
type Config struct {
	Server            string
	SubscriptionKey   string
	APIUser           string
	APIKey            string
	TargetEnvironment string
	Timeout           time.Duration
}

// TokenResponse is the body of a successful token exchange
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Payer identifies the wallet to be debited
type Payer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// RequestToPayPayload is the body of a request to pay, amount is encoded as a string
type RequestToPayPayload struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ExternalID   string          `json:"externalId"`
	Payer        Payer           `json:"payer"`
	PayerMessage string          `json:"payerMessage"`
	PayeeNote    string          `json:"payeeNote"`
}

// NewRequestToPayPayload builds the payload for an MSISDN payer
func NewRequestToPayPayload(amount decimal.Decimal, currency, externalID, msisdn, payerMessage, payeeNote string) RequestToPayPayload {
	return RequestToPayPayload{
		Amount:     amount,
		Currency:   currency,
		ExternalID: externalID,
		Payer: Payer{
			PartyIDType: partyIDTypeMSISDN,
			PartyID:     msisdn,
		},
		PayerMessage: payerMessage,
		PayeeNote:    payeeNote,
	}
}

// RequestToPayResult is what the provider answered to a request to pay
type RequestToPayResult struct {
	ReferenceID uuid.UUID
	StatusCode  int
	Body        string
}

// Accepted is true only when the provider took the request for asynchronous processing
func (r RequestToPayResult) Accepted() bool {
	return r.StatusCode == http.StatusAccepted
}

// RequestToPayStatus is the body of a status lookup
type RequestToPayStatus struct {
	Amount                 string          `json:"amount,omitempty"`
	Currency               string          `json:"currency,omitempty"`
	FinancialTransactionID string          `json:"financialTransactionId,omitempty"`
	ExternalID             string          `json:"externalId,omitempty"`
	Payer                  *Payer          `json:"payer,omitempty"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
	// Raw is the response body as received
	Raw string `json:"-"`
}

// Client abstracts over the MoMo collection api
type Client interface {
	// RequestToken exchanges the api user credentials for an access token
	RequestToken(ctx context.Context) (*TokenResponse, error)
	// RequestToPay submits a payment instruction correlated by referenceID, it is never retried
	RequestToPay(ctx context.Context, accessToken string, referenceID uuid.UUID, payload RequestToPayPayload) (*RequestToPayResult, error)
	// GetRequestToPayStatus looks up the settlement status of referenceID
	GetRequestToPayStatus(ctx context.Context, accessToken string, referenceID uuid.UUID) (*RequestToPayStatus, error)
}

// HTTPClient wraps http.Client for interacting with the MoMo api
type HTTPClient struct {
	client *clients.SimpleHTTPClient
	conf   Config
}

// New returns a new HTTPClient
func New(conf Config) (*HTTPClient, error) {
	if conf.Server == "" {
		return nil, errors.New("momo server was empty")
	}
	if conf.SubscriptionKey == "" {
		return nil, errors.New("momo subscription key was empty")
	}
	if conf.APIUser == "" {
		return nil, errors.New("momo api user was empty")
	}

	client, err := clients.NewInstrumented("momo", conf.Server, conf.Timeout)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{client: client, conf: conf}, nil
}

// NewWithHTTPClient returns a new HTTPClient that sends requests with hc
func NewWithHTTPClient(conf Config, hc *http.Client) (*HTTPClient, error) {
	client, err := clients.NewWithHTTPClient(conf.Server, "", hc)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{client: client, conf: conf}, nil
}

// NewFromContext builds an instrumented Client from the configuration on ctx
func NewFromContext(ctx context.Context) (Client, error) {
	conf := Config{
		Server:            SandboxServer,
		TargetEnvironment: SandboxEnvironment,
		Timeout:           clients.DefaultTimeout,
	}

	if v, err := appctx.GetStringFromContext(ctx, appctx.MomoServerCTXKey); err == nil && v != "" {
		conf.Server = v
	}
	if v, err := appctx.GetStringFromContext(ctx, appctx.MomoTargetEnvironmentCTXKey); err == nil && v != "" {
		conf.TargetEnvironment = v
	}
	if v, err := appctx.GetDurationFromContext(ctx, appctx.MomoClientTimeoutCTXKey); err == nil && v > 0 {
		conf.Timeout = v
	}
	conf.SubscriptionKey, _ = appctx.GetStringFromContext(ctx, appctx.MomoSubscriptionKeyCTXKey)
	conf.APIUser, _ = appctx.GetStringFromContext(ctx, appctx.MomoAPIUserCTXKey)
	conf.APIKey, _ = appctx.GetStringFromContext(ctx, appctx.MomoAPIKeyCTXKey)

	client, err := New(conf)
	if err != nil {
		return nil, err
	}
	return NewClientWithPrometheus(client, "momo_client"), nil
}

func (c *HTTPClient) setProductHeaders(req *http.Request, accessToken string) {
	req.Header.Set(headerSubscriptionKey, c.conf.SubscriptionKey)
	req.Header.Set(headerTargetEnvironment, c.conf.TargetEnvironment)
	req.Header.Set("Authorization", "Bearer "+accessToken)
}

// RequestToken exchanges the api user credentials for an access token
func (c *HTTPClient) RequestToken(ctx context.Context) (*TokenResponse, error) {
	req, err := c.client.NewRequest(ctx, http.MethodPost, tokenPath, nil, nil)
	if err != nil {
		return nil, err
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(c.conf.APIUser + ":" + c.conf.APIKey))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set(headerSubscriptionKey, c.conf.SubscriptionKey)

	var body TokenResponse
	if _, err := c.client.Do(ctx, req, &body); err != nil {
		if _, serr := clients.UnwrapHTTPState(err); serr != nil {
			return nil, fmt.Errorf("failed to request token: %w: %w", ErrTransport, err)
		}
		// any answer other than a token is a failed credential exchange
		return nil, fmt.Errorf("failed to request token: %w: %w", ErrAuth, err)
	}

	if body.AccessToken == "" {
		return nil, fmt.Errorf("failed to request token: %w: empty access token", ErrAuth)
	}

	return &body, nil
}

// RequestToPay submits a payment instruction correlated by referenceID
func (c *HTTPClient) RequestToPay(ctx context.Context, accessToken string, referenceID uuid.UUID, payload RequestToPayPayload) (*RequestToPayResult, error) {
	req, err := c.client.NewRequest(ctx, http.MethodPost, requestToPayPath, payload, nil)
	if err != nil {
		return nil, err
	}
	c.setProductHeaders(req, accessToken)
	req.Header.Set(headerReferenceID, referenceID.String())

	resp, err := c.client.Do(ctx, req, nil)
	if resp == nil {
		return nil, fmt.Errorf("failed to submit request to pay: %w", classify(err, ErrRejected))
	}

	result := &RequestToPayResult{
		ReferenceID: referenceID,
		StatusCode:  resp.StatusCode,
		Body:        readBody(resp),
	}

	if err != nil {
		return result, fmt.Errorf("failed to submit request to pay: %w", classify(err, ErrRejected))
	}
	if !result.Accepted() {
		return result, fmt.Errorf("failed to submit request to pay: %w",
			classify(clients.NewHTTPError(
				fmt.Errorf("unexpected status %d", resp.StatusCode),
				req.URL.String(), "response", resp.StatusCode, result.Body), ErrRejected))
	}

	return result, nil
}

// GetRequestToPayStatus looks up the settlement status of referenceID
func (c *HTTPClient) GetRequestToPayStatus(ctx context.Context, accessToken string, referenceID uuid.UUID) (*RequestToPayStatus, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, requestToPayPath+"/"+referenceID.String(), nil, nil)
	if err != nil {
		return nil, err
	}
	c.setProductHeaders(req, accessToken)

	var body RequestToPayStatus
	resp, err := c.client.Do(ctx, req, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to get request to pay status: %w", classify(err, ErrTransport))
	}
	body.Raw = readBody(resp)

	return &body, nil
}

// ParseStatus maps the provider vocabulary to a Status, case insensitively
func ParseStatus(s string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSuccessful:
		return StatusSuccessful
	case StatusFailed:
		return StatusFailed
	case StatusPending:
		return StatusPending
	default:
		return StatusUnknown
	}
}

func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(b)
}
