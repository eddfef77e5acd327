// Package model provides data that the momo service operates on.
package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brave-intl/momo-go/libs/clients/momo"
	"github.com/brave-intl/momo-go/libs/validators"
)

const (
	ErrTransactionNotFound    Error = "model: transaction not found"
	ErrTransactionExists      Error = "model: transaction already exists"
	ErrInvalidTransition      Error = "model: invalid state transition"
	ErrInvalidPaymentRequest  Error = "model: invalid payment request"
	ErrInvalidAmount          Error = "model: invalid amount: must be positive"
	ErrInvalidCurrency        Error = "model: invalid currency: must be an iso 4217 code"
	ErrInvalidPhoneNumber     Error = "model: invalid phone number"
	ErrInvalidOrderID         Error = "model: invalid order id"
	ErrInvalidCustomerName    Error = "model: invalid customer name"
	ErrPayerMessageTooLong    Error = "model: payer message is too long"
	ErrIdempotencyKeyInFlight Error = "model: a request with this idempotency key is in flight"
	ErrInvalidListFilter      Error = "model: invalid list filter"
)

const (
	// MaxPayerMessageLength is the longest payer message the provider accepts
	MaxPayerMessageLength = 160
	// MaxListLimit caps how many transactions a list returns
	MaxListLimit = 500
	// DefaultListLimit is used when a list does not ask for a limit
	DefaultListLimit = 100

	// FailureReasonExpired is set on transactions the reconciler gave up on
	FailureReasonExpired = "expired"
	// FailureReasonDeclined is set when the provider reports the request to pay failed
	FailureReasonDeclined = "declined"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// PaymentRequest is what a caller asks to be collected, it is immutable once submitted.
type PaymentRequest struct {
	Amount        decimal.Decimal
	Currency      string
	PayerPhone    string
	PayerMessage  string
	PayeeNote     string
	OrderID       string
	CustomerName  string
	CustomerEmail string
}

// Validate checks the request before anything is sent to the provider.
func (r PaymentRequest) Validate() error {
	switch {
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrInvalidAmount)
	case !validators.IsCurrencyCode(r.Currency):
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrInvalidCurrency)
	case !validators.IsMSISDN(r.PayerPhone):
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrInvalidPhoneNumber)
	case strings.TrimSpace(r.OrderID) == "":
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrInvalidOrderID)
	case strings.TrimSpace(r.CustomerName) == "":
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrInvalidCustomerName)
	case len(r.PayerMessage) > MaxPayerMessageLength || len(r.PayeeNote) > MaxPayerMessageLength:
		return fmt.Errorf("%w: %w", ErrInvalidPaymentRequest, ErrPayerMessageTooLong)
	default:
		return nil
	}
}

// Payload is the request to pay sent to the provider for r.
func (r PaymentRequest) Payload() momo.RequestToPayPayload {
	return momo.NewRequestToPayPayload(r.Amount, r.Currency, r.OrderID, r.PayerPhone, r.PayerMessage, r.PayeeNote)
}

// PayerMessageFor is the message shown to the payer for an order.
func PayerMessageFor(orderID, customerName string) string {
	return fmt.Sprintf("Payment for order %s by %s", orderID, customerName)
}

// Transaction is one attempt to collect a payment.
type Transaction struct {
	ID                   uuid.UUID       `db:"id" json:"transaction_id"`
	ProviderReference    uuid.UUID       `db:"provider_reference" json:"reference_id"`
	OrderID              string          `db:"order_id" json:"order_id"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	Currency             string          `db:"currency" json:"currency"`
	PayerPhone           string          `db:"payer_phone" json:"phone_number"`
	PayerMessage         string          `db:"payer_message" json:"payer_message"`
	CustomerName         string          `db:"customer_name" json:"customer_name"`
	CustomerEmail        string          `db:"customer_email" json:"customer_email,omitempty"`
	State                State           `db:"state" json:"status"`
	FailureReason        string          `db:"failure_reason" json:"failure_reason,omitempty"`
	Unconfirmed          bool            `db:"unconfirmed" json:"unconfirmed,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
	LastVerifiedAt       *time.Time      `db:"last_verified_at" json:"last_verified_at,omitempty"`
	LastProviderResponse string          `db:"last_provider_response" json:"last_provider_response,omitempty"`
}

// IsTerminal reports whether the transaction can no longer change state.
func (t *Transaction) IsTerminal() bool {
	return t.State.IsTerminal()
}

// Clone returns a copy of t that shares nothing with it.
func (t *Transaction) Clone() *Transaction {
	result := *t
	if t.LastVerifiedAt != nil {
		lv := *t.LastVerifiedAt
		result.LastVerifiedAt = &lv
	}
	return &result
}

// SubmissionResult is the outcome of sending a request to pay.
type SubmissionResult struct {
	Accepted          bool
	ProviderReference uuid.UUID
	StatusCode        int
	Body              string
	// Responded is false when nothing came back from the provider, the instruction may or may not have been taken.
	Responded bool
}

// VerificationOutcome is the settlement status reported by the provider.
type VerificationOutcome struct {
	ProviderStatus momo.Status `json:"provider_status"`
	Body           string      `json:"raw_response,omitempty"`
}

// NextState is the state a non terminal transaction moves to for this outcome,
// anything not recognized keeps it pending.
func (o VerificationOutcome) NextState() State {
	switch o.ProviderStatus {
	case momo.StatusSuccessful:
		return StateCompleted
	case momo.StatusFailed:
		return StateFailed
	default:
		return StatePending
	}
}

// ListFilter narrows a list of transactions, newest first.
type ListFilter struct {
	State   State  `url:"state,omitempty"`
	OrderID string `url:"order_id,omitempty"`
	Limit   int    `url:"limit,omitempty"`
}

// GenerateQueryString - implement the QueryStringBody interface
func (f ListFilter) GenerateQueryString() (url.Values, error) {
	return query.Values(f)
}

// ParseListFilter reads a ListFilter from a query string.
func ParseListFilter(v url.Values) (ListFilter, error) {
	f := ListFilter{
		State:   State(strings.ToLower(v.Get("state"))),
		OrderID: v.Get("order_id"),
	}

	if f.State != "" && !f.State.IsValid() {
		return ListFilter{}, fmt.Errorf("%w: unknown state %q", ErrInvalidListFilter, v.Get("state"))
	}

	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ListFilter{}, fmt.Errorf("%w: limit must be a positive number", ErrInvalidListFilter)
		}
		f.Limit = limit
	}

	return f.Normalize(), nil
}

// Normalize applies the default and maximum limit.
func (f ListFilter) Normalize() ListFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return f
}

// Matches reports whether t passes the state and order filters.
func (f ListFilter) Matches(t *Transaction) bool {
	if f.State != "" && t.State != f.State {
		return false
	}
	if f.OrderID != "" && t.OrderID != f.OrderID {
		return false
	}
	return true
}
