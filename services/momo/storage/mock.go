package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brave-intl/momo-go/services/momo/model"
)

// MockStore is a Store whose methods can be replaced, unset methods behave as an empty store.
type MockStore struct {
	FnCreate        func(ctx context.Context, t *model.Transaction) error
	FnGet           func(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FnUpdate        func(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error)
	FnList          func(ctx context.Context, f model.ListFilter) ([]model.Transaction, error)
	FnListUnsettled func(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error)
	FnPing          func(ctx context.Context) error
}

func (s *MockStore) Create(ctx context.Context, t *model.Transaction) error {
	if s.FnCreate == nil {
		return nil
	}

	return s.FnCreate(ctx, t)
}

func (s *MockStore) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	if s.FnGet == nil {
		return nil, model.ErrTransactionNotFound
	}

	return s.FnGet(ctx, id)
}

func (s *MockStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error) {
	if s.FnUpdate == nil {
		return nil, model.ErrTransactionNotFound
	}

	return s.FnUpdate(ctx, id, fn)
}

func (s *MockStore) List(ctx context.Context, f model.ListFilter) ([]model.Transaction, error) {
	if s.FnList == nil {
		return []model.Transaction{}, nil
	}

	return s.FnList(ctx, f)
}

func (s *MockStore) ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error) {
	if s.FnListUnsettled == nil {
		return []model.Transaction{}, nil
	}

	return s.FnListUnsettled(ctx, createdBefore, limit)
}

func (s *MockStore) Ping(ctx context.Context) error {
	if s.FnPing == nil {
		return nil
	}

	return s.FnPing(ctx)
}
