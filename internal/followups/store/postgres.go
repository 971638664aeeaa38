package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"idbcrm/internal/followups/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists follow-ups in the followups table (alias "f").
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const followUpColumns = `f.id, f.lead_id, f.title, f.description, f.due_date, f.completed,
	f.completed_at, f.created_by, f.created_at, f.updated_at`

func (s *Postgres) Create(ctx context.Context, f *models.FollowUp) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO followups (id, lead_id, title, description, due_date, completed, completed_at,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, f.ID.String(), f.LeadID.String(), f.Title, f.Description, f.DueDate, f.Completed,
		f.CompletedAt, f.CreatedBy.String(), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert follow-up", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.FollowUpID) (*models.FollowUp, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+followUpColumns+` FROM followups f WHERE f.id = $1`, id.String())
	return scanFollowUp(row)
}

func (s *Postgres) ListForLead(ctx context.Context, leadID domain.LeadID) ([]*models.FollowUp, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+followUpColumns+` FROM followups f WHERE f.lead_id = $1 ORDER BY f.due_date`, leadID.String())
	if err != nil {
		return nil, postgres.TranslateError("list follow-ups", err)
	}
	defer rows.Close()
	out := []*models.FollowUp{}
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow-ups: %w", err)
	}
	return out, nil
}

// ListDue joins leads so the caller's scope applies to the parent lead.
func (s *Postgres) ListDue(ctx context.Context, sc scope.Scope, from, to time.Time) ([]*models.Due, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	w.Raw("NOT f.completed").
		Add("f.due_date >= ?", from).
		Add("f.due_date < ?", to)
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+followUpColumns+`, l.name
		FROM followups f JOIN leads l ON l.id = f.lead_id
		WHERE `+w.String()+`
		ORDER BY f.due_date`, w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("list due follow-ups", err)
	}
	defer rows.Close()
	out := []*models.Due{}
	for rows.Next() {
		d := &models.Due{FollowUp: &models.FollowUp{}}
		if err := scanInto(rows, d.FollowUp, &d.LeadName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due follow-ups: %w", err)
	}
	return out, nil
}

func (s *Postgres) Update(ctx context.Context, f *models.FollowUp) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE followups
		SET title = $2, description = $3, due_date = $4, completed = $5, completed_at = $6, updated_at = $7
		WHERE id = $1
	`, f.ID.String(), f.Title, f.Description, f.DueDate, f.Completed, f.CompletedAt, f.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update follow-up", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.FollowUpID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM followups WHERE id = $1`, id.String())
	if err != nil {
		return postgres.TranslateError("delete follow-up", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFollowUp(row rowScanner) (*models.FollowUp, error) {
	f := &models.FollowUp{}
	if err := scanInto(row, f); err != nil {
		return nil, err
	}
	return f, nil
}

func scanInto(row rowScanner, f *models.FollowUp, extra ...any) error {
	var completedAt sql.NullTime
	dest := []any{domain.Scanner(&f.ID), domain.Scanner(&f.LeadID), &f.Title, &f.Description,
		&f.DueDate, &f.Completed, &completedAt, domain.Scanner(&f.CreatedBy), &f.CreatedAt, &f.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return postgres.TranslateError("scan follow-up", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		f.CompletedAt = &t
	}
	return nil
}
