package postgres

import (
	"context"
	"database/sql"

	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/jmoiron/sqlx"
)

// TxFromContext returns the transaction from context if it exists
func (db *DB) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// WithTx wraps the given function in a transaction. When the context already
// carries a transaction the function runs inside it and the outer caller
// remains responsible for commit or rollback.
func (db *DB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx := db.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start database transaction").
			Mark(ierr.ErrDatabase)
	}

	// Roll back on panic before re-raising
	defer func() {
		if v := recover(); v != nil {
			db.logger.Errorw("rolling back transaction due to panic", "panic", v)
			_ = tx.Rollback()
			panic(v)
		}
	}()

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	if err := fn(txCtx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			db.logger.Errorw("failed to roll back transaction",
				"rollback_error", rerr,
				"error", err,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit database transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}
