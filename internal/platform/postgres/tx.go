package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "idbcrm/pkg/domain-errors"
	txcontext "idbcrm/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxRunner runs units of work in a SQL transaction carried through context.
// Stores pick the transaction up with their execer(ctx) helper.
type TxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewTxRunner returns a runner that bounds transactions without a caller
// deadline by timeout (5s when zero).
func NewTxRunner(db *sql.DB, timeout time.Duration) *TxRunner {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &TxRunner{db: db, timeout: timeout}
}

// RunInTx commits when fn returns nil and rolls back otherwise. A call made
// while a transaction is already in ctx joins it.
func (t *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// Querier is the subset of *sql.DB and *sql.Tx stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction in ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}
