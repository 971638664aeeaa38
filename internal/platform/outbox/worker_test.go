package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"idbcrm/internal/platform/logger"
	"idbcrm/pkg/platform/tx"
)

type fakeStore struct {
	mu        sync.Mutex
	pending   []Entry
	published map[uuid.UUID]bool
	attempts  map[uuid.UUID]int
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{published: map[uuid.UUID]bool{}, attempts: map[uuid.UUID]int{}}
	for i := 0; i < n; i++ {
		s.pending = append(s.pending, Entry{ID: uuid.New(), EventType: "LEAD_CREATED", Payload: []byte(`{}`)})
	}
	return s
}

func (s *fakeStore) Claim(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.pending {
		if !s.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, ids []uuid.UUID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.attempts[id]++
	}
	return nil
}

func (s *fakeStore) Pending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) - len(s.published), nil
}

type fakePublisher struct {
	err     error
	batches [][]Entry
}

func (p *fakePublisher) Publish(_ context.Context, entries []Entry) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, entries)
	return nil
}

type WorkerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *WorkerSuite) TestPublishesInBatches() {
	store := newFakeStore(5)
	pub := &fakePublisher{}
	w := NewWorker(store, tx.NewLocal(), pub, WithBatchSize(2), WithLogger(logger.Discard()))

	n, err := w.ProcessBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	_, _ = w.ProcessBatch(s.ctx)
	n, err = w.ProcessBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	pending, _ := store.Pending(s.ctx)
	s.Equal(0, pending)
	s.Len(pub.batches, 3)
}

func (s *WorkerSuite) TestFailureKeepsEntriesPending() {
	store := newFakeStore(1)
	pub := &fakePublisher{err: errors.New("broker down")}
	w := NewWorker(store, tx.NewLocal(), pub, WithLogger(logger.Discard()))

	_, err := w.ProcessBatch(s.ctx)
	s.Require().Error(err)
	pending, _ := store.Pending(s.ctx)
	s.Equal(1, pending)
	s.Equal(1, store.attempts[store.pending[0].ID])
}

func (s *WorkerSuite) TestOpenCircuitSkipsPolling() {
	store := newFakeStore(1)
	pub := &fakePublisher{err: errors.New("broker down")}
	w := NewWorker(store, tx.NewLocal(), pub,
		WithLogger(logger.Discard()),
		WithCircuitBreaker(NewCircuitBreaker(1, time.Hour)),
	)

	_, err := w.ProcessBatch(s.ctx)
	s.Require().Error(err)

	pub.err = nil
	n, err := w.ProcessBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n, "open circuit must skip the batch")
	s.Empty(pub.batches)
}

func (s *WorkerSuite) TestRunStopsOnCancel() {
	store := newFakeStore(3)
	pub := &fakePublisher{}
	w := NewWorker(store, tx.NewLocal(), pub, WithInterval(10*time.Millisecond), WithLogger(logger.Discard()))

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
	pending, _ := store.Pending(s.ctx)
	s.Equal(0, pending)
}
