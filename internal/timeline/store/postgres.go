package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"idbcrm/internal/platform/outbox"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
)

// AggregateLead is the outbox aggregate type for timeline events.
const AggregateLead = "lead"

// OutboxAppender writes an outbox row in the caller's transaction.
type OutboxAppender interface {
	Append(ctx context.Context, e outbox.Entry) error
}

// Postgres stores events in timeline_events and mirrors each insert into the
// outbox within the same transaction.
type Postgres struct {
	db     *sql.DB
	outbox OutboxAppender
}

// NewPostgres creates a store. outbox may be nil to skip fan-out.
func NewPostgres(db *sql.DB, ob OutboxAppender) *Postgres {
	return &Postgres{db: db, outbox: ob}
}

func (s *Postgres) Append(ctx context.Context, e *models.Event) error {
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO timeline_events (id, lead_id, event_type, new_state, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`, e.ID.String(), e.LeadID.String(), string(e.Type), e.NewState, e.ActorID.String(), e.CreatedAt).Scan(&e.Seq)
	if err != nil {
		return postgres.TranslateError("insert timeline event", err)
	}
	if s.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal timeline event: %w", err)
	}
	return s.outbox.Append(ctx, outbox.Entry{
		ID:            uuid.UUID(e.ID),
		AggregateType: AggregateLead,
		AggregateID:   e.LeadID.String(),
		EventType:     string(e.Type),
		Payload:       payload,
		CreatedAt:     e.CreatedAt,
	})
}

func (s *Postgres) ListForLead(ctx context.Context, leadID domain.LeadID, after *models.Cursor, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, lead_id, seq, event_type, new_state, actor_id, created_at
		FROM timeline_events
		WHERE lead_id = $1`
	args := []any{leadID.String()}
	if after != nil {
		query += ` AND (created_at, seq) < ($2, $3)`
		args = append(args, after.CreatedAt, after.Seq)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, seq DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.TranslateError("list timeline events", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e := &models.Event{}
		var eventType string
		if err := rows.Scan(domain.Scanner(&e.ID), domain.Scanner(&e.LeadID), &e.Seq, &eventType,
			&e.NewState, domain.Scanner(&e.ActorID), &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		e.Type = models.EventType(eventType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}
	return out, nil
}
