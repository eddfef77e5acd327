package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brave-intl/momo-go/libs/datastore"
	"github.com/brave-intl/momo-go/services/momo/model"
)

const (
	pgUniqueViolation = "23505"

	txColumns = `id, provider_reference, order_id, amount, currency, payer_phone, payer_message,
		customer_name, customer_email, state, failure_reason, unconfirmed,
		created_at, updated_at, last_verified_at, last_provider_response`
)

// Postgres is a Store backed by the momo_transactions table.
type Postgres struct {
	db  *datastore.Postgres
	now func() time.Time
}

// NewPostgres creates a Postgres store on db.
func NewPostgres(db *datastore.Postgres) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (p *Postgres) Create(ctx context.Context, t *model.Transaction) error {
	const q = `INSERT INTO momo_transactions (` + txColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := p.db.ExecContext(
		ctx,
		q,
		t.ID,
		t.ProviderReference,
		t.OrderID,
		t.Amount,
		t.Currency,
		t.PayerPhone,
		t.PayerMessage,
		t.CustomerName,
		t.CustomerEmail,
		t.State,
		t.FailureReason,
		t.Unconfirmed,
		t.CreatedAt,
		t.UpdatedAt,
		t.LastVerifiedAt,
		t.LastProviderResponse,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return model.ErrTransactionExists
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return p.get(ctx, p.db, id, false)
}

func (p *Postgres) get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID, forUpdate bool) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM momo_transactions WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	result := &model.Transaction{}
	if err := sqlx.GetContext(ctx, dbi, result, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, err
	}

	return result, nil
}

func (p *Postgres) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error) {
	const q = `UPDATE momo_transactions SET
		state = $2, failure_reason = $3, unconfirmed = $4, customer_name = $5, customer_email = $6,
		updated_at = $7, last_verified_at = $8, last_provider_response = $9
	WHERE id = $1`

	var next *model.Transaction
	err := datastore.InTx(ctx, p.db, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := p.get(ctx, tx, id, true)
		if err != nil {
			return err
		}

		next, err = apply(current, fn, p.now().UTC())
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(
			ctx,
			q,
			next.ID,
			next.State,
			next.FailureReason,
			next.Unconfirmed,
			next.CustomerName,
			next.CustomerEmail,
			next.UpdatedAt,
			next.LastVerifiedAt,
			next.LastProviderResponse,
		); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (p *Postgres) List(ctx context.Context, f model.ListFilter) ([]model.Transaction, error) {
	f = f.Normalize()

	const q = `SELECT ` + txColumns + ` FROM momo_transactions
	WHERE ($1 = '' OR state = $1) AND ($2 = '' OR order_id = $2)
	ORDER BY created_at DESC
	LIMIT $3`

	result := make([]model.Transaction, 0)
	if err := sqlx.SelectContext(ctx, p.db, &result, q, string(f.State), f.OrderID, f.Limit); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Postgres) ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error) {
	const q = `SELECT ` + txColumns + ` FROM momo_transactions
	WHERE state IN ('initiated', 'pending') AND created_at < $1
	ORDER BY created_at ASC
	LIMIT $2`

	var lim interface{}
	if limit > 0 {
		lim = limit
	}

	result := make([]model.Transaction, 0)
	if err := sqlx.SelectContext(ctx, p.db, &result, q, createdBefore, lim); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
