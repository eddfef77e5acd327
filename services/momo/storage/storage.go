// Package storage provides the transaction stores of the momo service.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/datastore"
	"github.com/brave-intl/momo-go/libs/logging"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// UpdateFunc mutates a copy of a transaction, returning an error leaves the stored record unchanged.
type UpdateFunc func(t *model.Transaction) error

// Store is the authoritative table of transactions. Callers only ever see copies of what it holds.
type Store interface {
	// Create records a new transaction.
	Create(ctx context.Context, t *model.Transaction) error
	// Get returns the transaction for id or model.ErrTransactionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// Update applies fn to the transaction for id, serialised with any other update of the same id.
	// The state change fn makes is checked against model.Transitions.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error)
	// List returns the transactions passing f, newest first.
	List(ctx context.Context, f model.ListFilter) ([]model.Transaction, error)
	// ListUnsettled returns non terminal transactions created before createdBefore, oldest first.
	ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error)
	// Ping checks the store can be reached.
	Ping(ctx context.Context) error
}

// apply runs fn on a copy of current and validates the result.
func apply(current *model.Transaction, fn UpdateFunc, now time.Time) (*model.Transaction, error) {
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	if err := model.ValidateTransition(current.State, next.State); err != nil {
		return nil, err
	}

	// identity and the submitted request never change
	next.ID = current.ID
	next.ProviderReference = current.ProviderReference
	next.OrderID = current.OrderID
	next.Amount = current.Amount
	next.Currency = current.Currency
	next.PayerPhone = current.PayerPhone
	next.PayerMessage = current.PayerMessage
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now

	return next, nil
}

const (
	// BackendMemory keeps transactions in process
	BackendMemory = "memory"
	// BackendPostgres keeps transactions in postgres
	BackendPostgres = "postgres"
	// BackendRedis keeps transactions in redis
	BackendRedis = "redis"
)

// NewFromContext creates the instrumented Store named by the store backend on ctx, memory by default.
func NewFromContext(ctx context.Context) (Store, error) {
	backend, _ := appctx.GetStringFromContext(ctx, appctx.StoreBackendCTXKey)
	if backend == "" {
		backend = BackendMemory
	}

	logger := logging.Logger(ctx, "storage.NewFromContext")
	logger.Info().Str("backend", backend).Msg("creating transaction store")

	var store Store
	switch backend {
	case BackendMemory:
		store = NewMemory()
	case BackendPostgres:
		databaseURL, err := appctx.GetStringFromContext(ctx, appctx.DatabaseURLCTXKey)
		if err != nil {
			return nil, fmt.Errorf("failed to get database url: %w", err)
		}
		migrationsURL, _ := appctx.GetStringFromContext(ctx, appctx.DatabaseMigrationsURLCTXKey)

		pg, err := datastore.NewPostgres(ctx, databaseURL, migrationsURL, migrationsURL != "", "momo")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store = NewPostgres(pg)
	case BackendRedis:
		addr, err := appctx.GetStringFromContext(ctx, appctx.RedisAddrCTXKey)
		if err != nil {
			return nil, fmt.Errorf("failed to get redis address: %w", err)
		}

		rs, err := NewRedisFromURL(addr)
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	return NewPromStore(backend, store), nil
}
