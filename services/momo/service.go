// Package momo orchestrates mobile money collections: it submits request to pay instructions
// and follows them until they settle.
package momo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	appctx "github.com/brave-intl/momo-go/libs/context"
	errorutils "github.com/brave-intl/momo-go/libs/errors"
	"github.com/brave-intl/momo-go/libs/logging"
	srv "github.com/brave-intl/momo-go/libs/service"
	"github.com/brave-intl/momo-go/services/momo/events"
	"github.com/brave-intl/momo-go/services/momo/model"
	"github.com/brave-intl/momo-go/services/momo/storage"
)

const (
	// DefaultCurrency is used for requests without a currency unless configured otherwise
	DefaultCurrency = "EUR"
	// DefaultIdempotencyTTL is how long an idempotency key maps to its transaction
	DefaultIdempotencyTTL = 10 * time.Minute
	// DefaultReconcileCadence is how often unsettled transactions are verified
	DefaultReconcileCadence = 30 * time.Second
	// DefaultReconcileMinAge leaves young transactions to the caller polling them
	DefaultReconcileMinAge = 3 * time.Second
	// DefaultReconcileMaxAge is how long a transaction may stay unsettled before it is expired
	DefaultReconcileMaxAge = 5 * time.Minute

	reconcileBatchSize = 100
)

// errSettled stops an update of a transaction that settled in the meantime.
var errSettled = errors.New("transaction already settled")

// Service is what the http layer and jobs drive.
type Service struct {
	store   storage.Store
	tokens  momoclient.TokenSource
	gateway PaymentGateway
	poller  VerificationPoller
	events  events.Publisher

	idempotency     *cache.Cache
	defaultCurrency string

	reconcileCadence time.Duration
	reconcileMinAge  time.Duration
	reconcileMaxAge  time.Duration

	environment string
	apiURL      string

	now  func() time.Time
	jobs []srv.Job
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where state changes are published.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithDefaultCurrency sets the currency of requests that do not carry one.
func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		s.defaultCurrency = currency
	}
}

// WithIdempotencyTTL sets how long an idempotency key is remembered.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.idempotency = cache.New(ttl, 2*ttl)
	}
}

// WithReconcile sets the cadence of the reconciliation job and the ages it acts on.
func WithReconcile(cadence, minAge, maxAge time.Duration) Option {
	return func(s *Service) {
		s.reconcileCadence = cadence
		s.reconcileMinAge = minAge
		s.reconcileMaxAge = maxAge
	}
}

// WithProviderInfo sets what the health endpoint reports about the provider.
func WithProviderInfo(environment, apiURL string) Option {
	return func(s *Service) {
		s.environment = environment
		s.apiURL = apiURL
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service from its collaborators.
func NewService(
	store storage.Store,
	tokens momoclient.TokenSource,
	gateway PaymentGateway,
	poller VerificationPoller,
	opts ...Option,
) *Service {
	s := &Service{
		store:            store,
		tokens:           tokens,
		gateway:          gateway,
		poller:           poller,
		events:           events.NoopPublisher{},
		idempotency:      cache.New(DefaultIdempotencyTTL, 2*DefaultIdempotencyTTL),
		defaultCurrency:  DefaultCurrency,
		reconcileCadence: DefaultReconcileCadence,
		reconcileMinAge:  DefaultReconcileMinAge,
		reconcileMaxAge:  DefaultReconcileMaxAge,
		environment:      momoclient.SandboxEnvironment,
		apiURL:           momoclient.SandboxServer,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.jobs = []srv.Job{
		{
			Func:    s.Reconcile,
			Cadence: s.reconcileCadence,
			Workers: 1,
		},
	}

	return s
}

// InitService creates a service with the store, provider client and publisher configured on ctx.
func InitService(ctx context.Context) (*Service, error) {
	logger := logging.Logger(ctx, "momo.InitService")

	store, err := storage.NewFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction store: %w", err)
	}

	client, err := momoclient.NewFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create momo client: %w", err)
	}

	margin := momoclient.DefaultTokenMargin
	if v, err := appctx.GetDurationFromContext(ctx, appctx.MomoTokenMarginCTXKey); err == nil && v > 0 {
		margin = v
	}

	publisher, err := events.NewFromContext(ctx)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithPublisher(publisher)}

	if v, err := appctx.GetStringFromContext(ctx, appctx.MomoDefaultCurrencyCTXKey); err == nil && v != "" {
		opts = append(opts, WithDefaultCurrency(v))
	}
	if v, err := appctx.GetDurationFromContext(ctx, appctx.MomoIdempotencyTTLCTXKey); err == nil && v > 0 {
		opts = append(opts, WithIdempotencyTTL(v))
	}

	cadence := durationFromContext(ctx, appctx.MomoReconcileCadenceCTXKey, DefaultReconcileCadence)
	minAge := durationFromContext(ctx, appctx.MomoReconcileMinAgeCTXKey, DefaultReconcileMinAge)
	maxAge := durationFromContext(ctx, appctx.MomoReconcileMaxAgeCTXKey, DefaultReconcileMaxAge)
	opts = append(opts, WithReconcile(cadence, minAge, maxAge))

	environment, _ := appctx.GetStringFromContext(ctx, appctx.MomoTargetEnvironmentCTXKey)
	apiURL, _ := appctx.GetStringFromContext(ctx, appctx.MomoServerCTXKey)
	if environment == "" {
		environment = momoclient.SandboxEnvironment
	}
	if apiURL == "" {
		apiURL = momoclient.SandboxServer
	}
	opts = append(opts, WithProviderInfo(environment, apiURL))

	s := NewService(
		store,
		momoclient.NewCredentialCache(client, margin),
		NewProviderGateway(client),
		NewProviderPoller(client, nil),
		opts...,
	)

	logger.Info().
		Str("environment", environment).
		Str("api_url", apiURL).
		Dur("reconcile_cadence", cadence).
		Msg("momo service initialized")

	return s, nil
}

func durationFromContext(ctx context.Context, key appctx.CTXKey, def time.Duration) time.Duration {
	if v, err := appctx.GetDurationFromContext(ctx, key); err == nil && v > 0 {
		return v
	}
	return def
}

// Jobs - Implement srv.JobService interface
func (s *Service) Jobs() []srv.Job {
	return s.jobs
}

// Close releases the event publisher.
func (s *Service) Close() error {
	return s.events.Close()
}

// Initiate submits req to the provider and records the attempt. The transaction is returned whenever
// one was recorded, including alongside the error of a failed submission.
//
// A non empty idempotencyKey seen before within the idempotency window returns the transaction
// recorded for it without submitting again.
func (s *Service) Initiate(ctx context.Context, req model.PaymentRequest, idempotencyKey string) (*model.Transaction, error) {
	logger := logging.Logger(ctx, "momo.Initiate")

	if req.Currency == "" {
		req.Currency = s.defaultCurrency
	}
	if req.PayerMessage == "" {
		req.PayerMessage = model.PayerMessageFor(req.OrderID, req.CustomerName)
	}
	if req.PayeeNote == "" {
		req.PayeeNote = req.PayerMessage
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	if idempotencyKey != "" {
		if err := s.idempotency.Add(idempotencyKey, id, cache.DefaultExpiration); err != nil {
			return s.replay(ctx, idempotencyKey)
		}
	}

	now := s.now().UTC()
	tx := &model.Transaction{
		ID:            id,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PayerPhone:    req.PayerPhone,
		PayerMessage:  req.PayerMessage,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		State:         model.StateInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		logger.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to get access token")
		tx.State = model.StateFailed
		tx.FailureReason = err.Error()
		return s.record(ctx, tx, idempotencyKey, err)
	}

	result, err := s.gateway.Submit(ctx, req, token)
	if result != nil {
		tx.ProviderReference = result.ProviderReference
		tx.LastProviderResponse = result.Body
	}
	if momoclient.IsUnauthorized(err) {
		s.tokens.Invalidate(token.Token)
	}

	switch {
	case err == nil && result != nil && result.Accepted:
	case err == nil:
		err = fmt.Errorf("%w: request to pay was not accepted", momoclient.ErrRejected)
		fallthrough
	default:
		tx.State = model.StateFailed
		tx.FailureReason = err.Error()
		tx.Unconfirmed = result == nil || !result.Responded

		logger.Error().Err(err).
			Str("transaction_id", id.String()).
			Str("reference_id", tx.ProviderReference.String()).
			Bool("unconfirmed", tx.Unconfirmed).
			Msg("request to pay failed")
	}

	return s.record(ctx, tx, idempotencyKey, err)
}

// replay returns the transaction an idempotency key was used for.
func (s *Service) replay(ctx context.Context, idempotencyKey string) (*model.Transaction, error) {
	v, ok := s.idempotency.Get(idempotencyKey)
	if !ok {
		return nil, model.ErrIdempotencyKeyInFlight
	}

	tx, err := s.store.Get(ctx, v.(uuid.UUID))
	if errors.Is(err, model.ErrTransactionNotFound) {
		return nil, model.ErrIdempotencyKeyInFlight
	}
	return tx, err
}

// record stores a new transaction, cause is the error of the submission if any.
// The idempotency key is released when nothing could be stored under it.
func (s *Service) record(ctx context.Context, tx *model.Transaction, idempotencyKey string, cause error) (*model.Transaction, error) {
	if err := s.store.Create(ctx, tx); err != nil {
		if idempotencyKey != "" {
			s.idempotency.Delete(idempotencyKey)
		}
		logging.Logger(ctx, "momo.Initiate").Error().Err(err).
			Str("transaction_id", tx.ID.String()).
			Str("reference_id", tx.ProviderReference.String()).
			Str("state", string(tx.State)).
			Msg("failed to record transaction")
		return nil, errorutils.Wrap(err, "failed to record transaction")
	}

	s.publish(ctx, "", tx)

	return tx, cause
}

// Verify polls the provider for a non terminal transaction and records the outcome. Terminal
// transactions are returned as stored with a nil outcome. A failed poll changes nothing.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*model.Transaction, *model.VerificationOutcome, error) {
	logger := logging.Logger(ctx, "momo.Verify")

	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if tx.IsTerminal() {
		return tx, nil, nil
	}

	outcome, err := s.poll(ctx, tx.ProviderReference)
	if err != nil {
		logger.Warn().Err(err).Str("transaction_id", id.String()).Msg("failed to poll request to pay status")
		return tx, nil, err
	}

	var (
		from       model.State
		verifiedAt = s.now().UTC()
	)
	updated, err := s.store.Update(ctx, id, func(t *model.Transaction) error {
		if t.IsTerminal() {
			return errSettled
		}
		from = t.State

		t.State = outcome.NextState()
		if t.State == model.StateFailed {
			t.FailureReason = model.FailureReasonDeclined
		}
		t.LastVerifiedAt = &verifiedAt
		t.LastProviderResponse = outcome.Body
		return nil
	})
	if errors.Is(err, errSettled) {
		tx, err = s.store.Get(ctx, id)
		return tx, outcome, err
	}
	if err != nil {
		return nil, outcome, err
	}

	if updated.State != from {
		logger.Info().
			Str("transaction_id", id.String()).
			Str("from", string(from)).
			Str("to", string(updated.State)).
			Msg("transaction state changed")
		s.publish(ctx, from, updated)
	}

	return updated, outcome, nil
}

// poll looks up the status of reference, once more with a fresh token if the provider refused the first.
func (s *Service) poll(ctx context.Context, reference uuid.UUID) (*model.VerificationOutcome, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	outcome, err := s.poller.Poll(ctx, reference, token)
	if momoclient.IsUnauthorized(err) {
		s.tokens.Invalidate(token.Token)

		if token, err = s.tokens.Token(ctx); err != nil {
			return nil, err
		}
		outcome, err = s.poller.Poll(ctx, reference, token)
	}

	return outcome, err
}

// Status returns the stored transaction without contacting the provider.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return s.store.Get(ctx, id)
}

// StatusByOrderID returns the transactions recorded for an order, newest first.
func (s *Service) StatusByOrderID(ctx context.Context, orderID string) ([]model.Transaction, error) {
	return s.store.List(ctx, model.ListFilter{OrderID: orderID, Limit: model.MaxListLimit})
}

// ListTransactions returns the transactions passing f, newest first.
func (s *Service) ListTransactions(ctx context.Context, f model.ListFilter) ([]model.Transaction, error) {
	return s.store.List(ctx, f.Normalize())
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Reconcile verifies unsettled transactions old enough that their caller likely stopped polling,
// the ones the provider still reports unsettled after the maximum age are expired.
func (s *Service) Reconcile(ctx context.Context) (bool, error) {
	logger := logging.Logger(ctx, "momo.Reconcile")

	now := s.now()
	txs, err := s.store.ListUnsettled(ctx, now.Add(-s.reconcileMinAge), reconcileBatchSize)
	if err != nil {
		return false, fmt.Errorf("failed to list unsettled transactions: %w", err)
	}
	if len(txs) == 0 {
		return false, nil
	}

	var (
		errs    = new(errorutils.MultiError)
		expired int
	)
	for _, t := range txs {
		if ctx.Err() != nil {
			errs.Append(ctx.Err())
			break
		}

		updated, _, err := s.Verify(ctx, t.ID)
		if err != nil {
			errs.Append(fmt.Errorf("failed to verify transaction %s: %w", t.ID, err))
			continue
		}

		if !updated.IsTerminal() && now.Sub(updated.CreatedAt) >= s.reconcileMaxAge {
			if err := s.expire(ctx, t.ID); err != nil {
				errs.Append(fmt.Errorf("failed to expire transaction %s: %w", t.ID, err))
				continue
			}
			expired++
		}
	}

	logger.Debug().Int("checked", len(txs)).Int("expired", expired).Int("errors", errs.Count()).Msg("reconciled")

	if errs.Count() > 0 {
		return true, errs
	}
	return true, nil
}

func (s *Service) expire(ctx context.Context, id uuid.UUID) error {
	var from model.State
	updated, err := s.store.Update(ctx, id, func(t *model.Transaction) error {
		if t.IsTerminal() {
			return errSettled
		}
		from = t.State

		t.State = model.StateFailed
		t.FailureReason = model.FailureReasonExpired
		return nil
	})
	if errors.Is(err, errSettled) {
		return nil
	}
	if err != nil {
		return err
	}

	s.publish(ctx, from, updated)
	return nil
}

// publish is best effort, the store stays the source of truth.
func (s *Service) publish(ctx context.Context, from model.State, t *model.Transaction) {
	if err := s.events.Publish(ctx, events.NewStateChanged(from, t)); err != nil {
		logging.Logger(ctx, "momo.publish").Warn().Err(err).
			Str("transaction_id", t.ID.String()).
			Msg("failed to publish transaction event")
	}
}
