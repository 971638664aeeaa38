// Package outbox implements the transactional outbox: rows written in the same
// transaction as a domain change and published to Kafka by a background worker.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"idbcrm/internal/platform/postgres"
)

// Entry is one pending or published outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Attempts      int
}

// Store persists outbox entries in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates an outbox store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an entry using the transaction in ctx when present, so the
// entry commits or rolls back with the domain write that produced it.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return postgres.TranslateError("insert outbox entry", err)
	}
	return nil
}

// Claim locks up to limit unpublished entries, oldest first. It must run inside
// a transaction; concurrent workers skip each other's rows.
func (s *Store) Claim(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, attempts
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, postgres.TranslateError("claim outbox entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt, &e.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps published_at on the given entries.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE outbox SET published_at = $1, attempts = attempts + 1, last_error = ''
		WHERE id = ANY($2)
	`, at, pq.Array(uuidStrings(ids)))
	return postgres.TranslateError("mark outbox published", err)
}

// MarkFailed records a failed publish attempt.
func (s *Store) MarkFailed(ctx context.Context, ids []uuid.UUID, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE outbox SET attempts = attempts + 1, last_error = $1
		WHERE id = ANY($2)
	`, reason, pq.Array(uuidStrings(ids)))
	return postgres.TranslateError("mark outbox failed", err)
}

// Pending counts unpublished entries.
func (s *Store) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	return n, postgres.TranslateError("count pending outbox", err)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
