package storage

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/brave-intl/momo-go/libs/datastore"
	"github.com/brave-intl/momo-go/services/momo/model"
)

var pgColumns = []string{
	"id", "provider_reference", "order_id", "amount", "currency", "payer_phone", "payer_message",
	"customer_name", "customer_email", "state", "failure_reason", "unconfirmed",
	"created_at", "updated_at", "last_verified_at", "last_provider_response",
}

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	must.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgres(&datastore.Postgres{DB: sqlx.NewDb(db, "postgres")})
	return store, mock
}

func rowFor(t *model.Transaction) []driver.Value {
	var lastVerified driver.Value
	if t.LastVerifiedAt != nil {
		lastVerified = *t.LastVerifiedAt
	}

	return []driver.Value{
		t.ID.String(), t.ProviderReference.String(), t.OrderID, t.Amount.String(), t.Currency, t.PayerPhone, t.PayerMessage,
		t.CustomerName, t.CustomerEmail, string(t.State), t.FailureReason, t.Unconfirmed,
		t.CreatedAt, t.UpdatedAt, lastVerified, t.LastProviderResponse,
	}
}

func newTransaction(state model.State, createdAt time.Time) *model.Transaction {
	return &model.Transaction{
		ID:                uuid.New(),
		ProviderReference: uuid.New(),
		OrderID:           "1234test99",
		Amount:            decimal.NewFromInt(50),
		Currency:          "EUR",
		PayerPhone:        "2600961288156",
		PayerMessage:      model.PayerMessageFor("1234test99", "vwit"),
		CustomerName:      "vwit",
		State:             state,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

func TestPostgres_Create(t *testing.T) {
	store, mock := newMockStore(t)
	tx := newTransaction(model.StateInitiated, time.Now().UTC())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO momo_transactions")).
		WithArgs(
			tx.ID, tx.ProviderReference, tx.OrderID, tx.Amount, tx.Currency, tx.PayerPhone, tx.PayerMessage,
			tx.CustomerName, tx.CustomerEmail, tx.State, tx.FailureReason, tx.Unconfirmed,
			tx.CreatedAt, tx.UpdatedAt, sqlmock.AnyArg(), tx.LastProviderResponse,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	must.NoError(t, store.Create(context.Background(), tx))
	must.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO momo_transactions")).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})

	err := store.Create(context.Background(), newTransaction(model.StateInitiated, time.Now()))
	should.ErrorIs(t, err, model.ErrTransactionExists)
}

func TestPostgres_Get(t *testing.T) {
	store, mock := newMockStore(t)
	tx := newTransaction(model.StatePending, time.Now().UTC().Truncate(time.Second))

	mock.ExpectQuery(regexp.QuoteMeta("FROM momo_transactions WHERE id = $1")).
		WithArgs(tx.ID).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowFor(tx)...))

	actual, err := store.Get(context.Background(), tx.ID)
	must.NoError(t, err)
	should.Equal(t, tx.ID, actual.ID)
	should.Equal(t, tx.ProviderReference, actual.ProviderReference)
	should.Equal(t, model.StatePending, actual.State)
	should.True(t, tx.Amount.Equal(actual.Amount))
	should.Nil(t, actual.LastVerifiedAt)
}

func TestPostgres_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM momo_transactions WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(pgColumns))

	_, err := store.Get(context.Background(), uuid.New())
	should.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestPostgres_Update(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	tx := newTransaction(model.StateInitiated, now.Add(-time.Minute))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs(tx.ID).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowFor(tx)...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE momo_transactions SET")).
		WithArgs(tx.ID, model.StateCompleted, "", false, "vwit", "", now, now, `{"status":"SUCCESSFUL"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	actual, err := store.Update(context.Background(), tx.ID, func(t *model.Transaction) error {
		t.State = model.StateCompleted
		t.LastVerifiedAt = &now
		t.LastProviderResponse = `{"status":"SUCCESSFUL"}`
		return nil
	})
	must.NoError(t, err)
	should.Equal(t, model.StateCompleted, actual.State)
	should.Equal(t, now, actual.UpdatedAt)
	must.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRejectsLeavingTerminal(t *testing.T) {
	store, mock := newMockStore(t)
	tx := newTransaction(model.StateCompleted, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowFor(tx)...))
	mock.ExpectRollback()

	_, err := store.Update(context.Background(), tx.ID, func(t *model.Transaction) error {
		t.State = model.StateFailed
		return nil
	})
	should.ErrorIs(t, err, model.ErrInvalidTransition)
	must.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	newer := newTransaction(model.StatePending, now)
	older := newTransaction(model.StatePending, now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs("pending", "1234test99", 10).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowFor(newer)...).AddRow(rowFor(older)...))

	actual, err := store.List(context.Background(), model.ListFilter{State: model.StatePending, OrderID: "1234test99", Limit: 10})
	must.NoError(t, err)
	must.Len(t, actual, 2)
	should.Equal(t, newer.ID, actual[0].ID)
	should.Equal(t, older.ID, actual[1].ID)
}

func TestPostgres_ListUnsettled(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Now().UTC()
	tx := newTransaction(model.StateInitiated, cutoff.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE state IN ('initiated', 'pending') AND created_at < $1")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowFor(tx)...))

	actual, err := store.ListUnsettled(context.Background(), cutoff, 50)
	must.NoError(t, err)
	must.Len(t, actual, 1)
	should.Equal(t, tx.ID, actual[0].ID)
}
