package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brave-intl/momo-go/services/momo/model"
)

var storeDurationSummaryVec = promauto.NewSummaryVec(
	prometheus.SummaryOpts{
		Name:       "momo_store_duration_seconds",
		Help:       "transaction store runtime duration and result",
		MaxAge:     time.Minute,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"instance_name", "method", "result"})

// PromStore wraps a Store with Prometheus metrics.
type PromStore struct {
	name string
	base Store
}

func NewPromStore(name string, base Store) *PromStore {
	return &PromStore{name: name, base: base}
}

func (s *PromStore) observe(method string, since time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	storeDurationSummaryVec.WithLabelValues(s.name, method, result).Observe(time.Since(since).Seconds())
}

func (s *PromStore) Create(ctx context.Context, t *model.Transaction) (err error) {
	defer func(now time.Time) { s.observe("Create", now, err) }(time.Now())

	return s.base.Create(ctx, t)
}

func (s *PromStore) Get(ctx context.Context, id uuid.UUID) (rt *model.Transaction, err error) {
	defer func(now time.Time) { s.observe("Get", now, err) }(time.Now())

	return s.base.Get(ctx, id)
}

func (s *PromStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (rt *model.Transaction, err error) {
	defer func(now time.Time) { s.observe("Update", now, err) }(time.Now())

	return s.base.Update(ctx, id, fn)
}

func (s *PromStore) List(ctx context.Context, f model.ListFilter) (rt []model.Transaction, err error) {
	defer func(now time.Time) { s.observe("List", now, err) }(time.Now())

	return s.base.List(ctx, f)
}

func (s *PromStore) ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) (rt []model.Transaction, err error) {
	defer func(now time.Time) { s.observe("ListUnsettled", now, err) }(time.Now())

	return s.base.ListUnsettled(ctx, createdBefore, limit)
}

func (s *PromStore) Ping(ctx context.Context) (err error) {
	defer func(now time.Time) { s.observe("Ping", now, err) }(time.Now())

	return s.base.Ping(ctx)
}
