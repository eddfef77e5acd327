package datastore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/logging"
)

// TxAble - something that is capable of beginning and rolling back a sqlx.Tx
type TxAble interface {
	RollbackTx(*sqlx.Tx)
	BeginTx() (*sqlx.Tx, error)
}

// TxFromContext returns the transaction InTx put on ctx, if any.
func TxFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(appctx.DatabaseTransactionCTXKey).(*sqlx.Tx)
	return tx, ok && tx != nil
}

// InTx runs fn inside a database transaction. A transaction already on ctx is joined
// and left for its owner to finish, otherwise one is begun, committed when fn succeeds
// and rolled back when it fails.
func InTx(ctx context.Context, ta TxAble, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	tx, err := ta.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer ta.RollbackTx(tx)

	if err := fn(context.WithValue(ctx, appctx.DatabaseTransactionCTXKey, tx), tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logging.Logger(ctx, "datastore.InTx").Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
