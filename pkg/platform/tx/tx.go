// Package tx carries a SQL transaction through context and defines the
// transaction runner services depend on.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}
type localKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes fn atomically. Stores called with the context passed to fn
// participate in the same unit of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Local serializes units of work for the in-memory stores. Nested calls join
// the outer unit instead of deadlocking.
type Local struct {
	mu sync.Mutex
}

// NewLocal returns a runner for in-memory wiring and tests.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(localKey{}) == l {
		return fn(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(context.WithValue(ctx, localKey{}, l))
}
