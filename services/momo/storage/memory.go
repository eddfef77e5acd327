package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brave-intl/momo-go/libs/concurrent"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// Memory is an in process Store, records do not survive a restart.
type Memory struct {
	mu    sync.RWMutex
	txs   map[uuid.UUID]*model.Transaction
	locks *concurrent.KeyedMutex
	now   func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		txs:   make(map[uuid.UUID]*model.Transaction),
		locks: concurrent.NewKeyedMutex(),
		now:   time.Now,
	}
}

func (m *Memory) Create(ctx context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txs[t.ID]; ok {
		return model.ErrTransactionExists
	}

	m.txs[t.ID] = t.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.txs[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error) {
	unlock := m.locks.Lock(id.String())
	defer unlock()

	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := apply(current, fn, m.now().UTC())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.txs[id] = next
	m.mu.Unlock()

	return next.Clone(), nil
}

func (m *Memory) List(ctx context.Context, f model.ListFilter) ([]model.Transaction, error) {
	f = f.Normalize()

	m.mu.RLock()
	result := make([]model.Transaction, 0, len(m.txs))
	for _, t := range m.txs {
		if f.Matches(t) {
			result = append(result, *t.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *Memory) ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error) {
	m.mu.RLock()
	var result []model.Transaction
	for _, t := range m.txs {
		if !t.IsTerminal() && t.CreatedAt.Before(createdBefore) {
			result = append(result, *t.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}
