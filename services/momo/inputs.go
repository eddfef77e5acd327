package momo

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brave-intl/momo-go/libs/validators"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// IdempotencyKeyHeader lets a client retry an initiate without paying twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// InitiateRequest is the body of an initiate payment call.
type InitiateRequest struct {
	Amount        decimal.Decimal `json:"amount" valid:"-"`
	Currency      string          `json:"currency" valid:"iso4217,optional"`
	PhoneNumber   string          `json:"phone_number" valid:"msisdn,required"`
	OrderID       string          `json:"order_id" valid:"required"`
	CustomerName  string          `json:"customer_name" valid:"required"`
	CustomerEmail string          `json:"customer_email" valid:"email,optional"`
}

// Normalize tidies user input before validation.
func (r *InitiateRequest) Normalize() {
	r.PhoneNumber = validators.NormalizeMSISDN(r.PhoneNumber)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
}

// PaymentRequest is what gets submitted for r.
func (r *InitiateRequest) PaymentRequest() model.PaymentRequest {
	return model.PaymentRequest{
		Amount:        r.Amount,
		Currency:      r.Currency,
		PayerPhone:    r.PhoneNumber,
		OrderID:       r.OrderID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
	}
}

// InitiateResponse is returned for an accepted request to pay.
type InitiateResponse struct {
	Success       bool        `json:"success"`
	TransactionID string      `json:"transaction_id"`
	OrderID       string      `json:"order_id"`
	ReferenceID   string      `json:"reference_id"`
	Status        model.State `json:"status"`
	Message       string      `json:"message"`
}

// VerifyResponse is returned by verify, VerificationResult is absent for settled transactions.
type VerifyResponse struct {
	Success            bool                       `json:"success"`
	Status             model.State                `json:"status"`
	TransactionID      string                     `json:"transaction_id"`
	Message            string                     `json:"message"`
	VerificationResult *model.VerificationOutcome `json:"verification_result,omitempty"`
}

// StatusResponse is returned by status.
type StatusResponse struct {
	Success     bool               `json:"success"`
	Transaction *model.Transaction `json:"transaction"`
}

// ListResponse is returned by the list endpoints.
type ListResponse struct {
	Success      bool                `json:"success"`
	Transactions []model.Transaction `json:"transactions"`
	Total        int                 `json:"total"`
}

// HealthResponse describes the service and the provider it talks to.
type HealthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	APIURL      string    `json:"api_url"`
}

func stateMessage(s model.State) string {
	switch s {
	case model.StateCompleted:
		return "Payment completed successfully"
	case model.StateFailed:
		return "Payment failed"
	case model.StateInitiated:
		return "Payment request sent, waiting for the customer to approve it"
	default:
		return "Payment is still pending"
	}
}
