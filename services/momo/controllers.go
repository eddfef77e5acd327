package momo

import (
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi"

	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	"github.com/brave-intl/momo-go/libs/handlers"
	"github.com/brave-intl/momo-go/libs/inputs"
	"github.com/brave-intl/momo-go/libs/logging"
	"github.com/brave-intl/momo-go/libs/middleware"
	"github.com/brave-intl/momo-go/libs/requestutils"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// Router for payment endpoints
func Router(service *Service) chi.Router {
	r := chi.NewRouter()

	r.Method("GET", "/health", middleware.InstrumentHandler("Health", Health(service)))

	r.Route("/payment", func(pr chi.Router) {
		pr.Method("POST", "/initiate", middleware.InstrumentHandler("InitiatePayment", InitiatePayment(service)))
		pr.Method("GET", "/verify/{transactionID}", middleware.InstrumentHandler("VerifyPayment", VerifyPayment(service)))
		pr.Method("GET", "/status/{transactionID}", middleware.InstrumentHandler("PaymentStatus", PaymentStatus(service)))
		pr.Method("GET", "/order/{orderID}", middleware.InstrumentHandler("OrderPayments", OrderPayments(service)))
	})

	r.Method("GET", "/transactions", middleware.InstrumentHandler("ListTransactions", ListTransactions(service)))

	return r
}

// InitiatePayment is the handler for sending a request to pay
func InitiatePayment(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()
		logger := logging.Logger(ctx, "momo").With().Str("func", "InitiatePayment").Logger()

		var req InitiateRequest
		if err := requestutils.ReadJSON(ctx, r.Body, &req); err != nil {
			return handlers.WrapError(err, "Error in request body", http.StatusBadRequest)
		}
		req.Normalize()

		if _, err := govalidator.ValidateStruct(req); err != nil {
			return handlers.WrapValidationError(err)
		}
		if !req.Amount.IsPositive() {
			return handlers.ValidationError("request body", map[string]interface{}{
				"amount": model.ErrInvalidAmount.Error(),
			})
		}

		tx, err := service.Initiate(ctx, req.PaymentRequest(), r.Header.Get(IdempotencyKeyHeader))
		if err != nil {
			logger.Error().Err(err).Str("order_id", req.OrderID).Msg("failed to initiate payment")
			return errorResponse(err, "Error initiating payment", tx)
		}

		return handlers.RenderContent(ctx, InitiateResponse{
			Success:       tx.State != model.StateFailed,
			TransactionID: tx.ID.String(),
			OrderID:       tx.OrderID,
			ReferenceID:   tx.ProviderReference.String(),
			Status:        tx.State,
			Message:       stateMessage(tx.State),
		}, w, http.StatusOK)
	}
}

// VerifyPayment is the handler for polling the provider about a transaction
func VerifyPayment(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()

		id, appErr := transactionIDParam(r)
		if appErr != nil {
			return appErr
		}

		logging.AddTransactionIDToContext(ctx, id.String())

		tx, outcome, err := service.Verify(ctx, id.Value())
		if err != nil {
			return errorResponse(err, "Error verifying payment", nil)
		}

		return handlers.RenderContent(ctx, VerifyResponse{
			Success:            tx.State == model.StateCompleted,
			Status:             tx.State,
			TransactionID:      tx.ID.String(),
			Message:            stateMessage(tx.State),
			VerificationResult: outcome,
		}, w, http.StatusOK)
	}
}

// PaymentStatus is the handler for reading a stored transaction
func PaymentStatus(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()

		id, appErr := transactionIDParam(r)
		if appErr != nil {
			return appErr
		}

		logging.AddTransactionIDToContext(ctx, id.String())

		tx, err := service.Status(ctx, id.Value())
		if err != nil {
			return errorResponse(err, "Error retrieving payment", nil)
		}

		return handlers.RenderContent(ctx, StatusResponse{Success: true, Transaction: tx}, w, http.StatusOK)
	}
}

// OrderPayments is the handler for listing the transactions of an order
func OrderPayments(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()

		orderID := chi.URLParam(r, "orderID")
		if orderID == "" {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"orderID": model.ErrInvalidOrderID.Error(),
			})
		}

		txs, err := service.StatusByOrderID(ctx, orderID)
		if err != nil {
			return errorResponse(err, "Error retrieving payments", nil)
		}

		return handlers.RenderContent(ctx, ListResponse{Success: true, Transactions: txs, Total: len(txs)}, w, http.StatusOK)
	}
}

// ListTransactions is the handler for listing transactions, filtered by ?state=&order_id=&limit=
func ListTransactions(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()

		filter, err := model.ParseListFilter(r.URL.Query())
		if err != nil {
			return handlers.ValidationError("request query", map[string]interface{}{
				"query": err.Error(),
			})
		}

		txs, err := service.ListTransactions(ctx, filter)
		if err != nil {
			return errorResponse(err, "Error listing transactions", nil)
		}

		return handlers.RenderContent(ctx, ListResponse{Success: true, Transactions: txs, Total: len(txs)}, w, http.StatusOK)
	}
}

// Health is the handler reporting whether the service can reach its store
func Health(service *Service) handlers.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		ctx := r.Context()

		resp := HealthResponse{
			Status:      "healthy",
			Message:     "MoMo payment service is running",
			Timestamp:   service.now().UTC(),
			Environment: service.environment,
			APIURL:      service.apiURL,
		}

		status := http.StatusOK
		if err := service.Ping(ctx); err != nil {
			logging.Logger(ctx, "momo").Error().Err(err).Msg("transaction store is unreachable")
			resp.Status = "unhealthy"
			resp.Message = "transaction store is unreachable"
			status = http.StatusServiceUnavailable
		}

		return handlers.RenderContent(ctx, resp, w, status)
	}
}

func transactionIDParam(r *http.Request) (*inputs.UUID, *handlers.AppError) {
	id := new(inputs.UUID)
	if err := inputs.ParseString(r.Context(), id, chi.URLParam(r, "transactionID")); err != nil {
		return nil, handlers.ValidationError(
			"request url parameter",
			map[string]interface{}{
				"transactionID": err.Error(),
			},
		)
	}
	return id, nil
}

// errorResponse maps service errors to http statuses, tx is attached when one was recorded.
func errorResponse(err error, msg string, tx *model.Transaction) *handlers.AppError {
	var appErr *handlers.AppError
	switch {
	case errors.Is(err, model.ErrInvalidPaymentRequest):
		appErr = handlers.CodedError(err, msg, "INVALID_PAYMENT_REQUEST", http.StatusBadRequest)
	case errors.Is(err, model.ErrTransactionNotFound):
		appErr = handlers.CodedError(err, "Transaction not found", "TRANSACTION_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, model.ErrIdempotencyKeyInFlight):
		appErr = handlers.CodedError(err, msg, "IDEMPOTENCY_KEY_IN_FLIGHT", http.StatusConflict)
	case errors.Is(err, momoclient.ErrRejected):
		appErr = handlers.CodedError(err, msg, "PROVIDER_REJECTED", http.StatusBadRequest)
	case errors.Is(err, momoclient.ErrAuth):
		appErr = handlers.CodedError(err, msg, "PROVIDER_AUTH_FAILED", http.StatusBadGateway)
	case errors.Is(err, momoclient.ErrTransport):
		appErr = handlers.CodedError(err, msg, "PROVIDER_UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		appErr = handlers.WrapError(err, msg, http.StatusInternalServerError)
	}

	if tx != nil {
		appErr.Data = map[string]interface{}{
			"transaction_id": tx.ID.String(),
			"status":         tx.State,
			"unconfirmed":    tx.Unconfirmed,
		}
	}
	return appErr
}
