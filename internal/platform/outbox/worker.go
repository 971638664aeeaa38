package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idbcrm/pkg/platform/tx"
)

// EntryStore is the persistence the worker needs.
type EntryStore interface {
	Claim(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, ids []uuid.UUID, reason string) error
	Pending(ctx context.Context) (int, error)
}

// Publisher delivers a batch of entries to the broker. A nil error means every
// entry was acknowledged.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}

// Worker polls the outbox and publishes pending entries.
type Worker struct {
	store     EntryStore
	tx        tx.Runner
	publisher Publisher
	breaker   *CircuitBreaker
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type WorkerOption func(*Worker)

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithCircuitBreaker(cb *CircuitBreaker) WorkerOption {
	return func(w *Worker) { w.breaker = cb }
}

// NewWorker builds a worker polling every second in batches of 100 by default.
func NewWorker(store EntryStore, runner tx.Runner, publisher Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		tx:        runner,
		publisher: publisher,
		breaker:   NewCircuitBreaker(5, 30*time.Second),
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. A full batch triggers an immediate re-poll.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.InfoContext(ctx, "outbox worker started", "interval", w.interval, "batch_size", w.batchSize)

	for {
		for {
			n, err := w.ProcessBatch(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.WarnContext(ctx, "outbox batch failed", "error", err)
			}
			if err != nil || n < w.batchSize {
				break
			}
		}
		if pending, err := w.store.Pending(ctx); err == nil {
			w.metrics.setPending(pending)
		}

		select {
		case <-ctx.Done():
			w.logger.InfoContext(context.WithoutCancel(ctx), "outbox worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes one batch and returns how many entries were published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	if !w.breaker.Allow() {
		w.metrics.incSkipped()
		return 0, nil
	}

	var (
		published  int
		publishErr error
	)
	err := w.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := w.store.Claim(txCtx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}

		if err := w.publisher.Publish(txCtx, entries); err != nil {
			publishErr = err
			// commit the attempt counter; entries stay pending
			return w.store.MarkFailed(txCtx, ids, truncate(err.Error(), 500))
		}
		if err := w.store.MarkPublished(txCtx, ids, time.Now()); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("outbox transaction: %w", err)
	}
	if publishErr != nil {
		w.metrics.incFailure()
		if w.breaker.RecordFailure() {
			w.logger.ErrorContext(ctx, "outbox publish circuit opened", "error", publishErr)
		}
		return 0, fmt.Errorf("publish outbox batch: %w", publishErr)
	}
	if published > 0 {
		w.breaker.RecordSuccess()
		w.metrics.addPublished(published)
	}
	return published, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
