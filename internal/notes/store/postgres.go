package store

import (
	"context"
	"database/sql"
	"fmt"

	"idbcrm/internal/notes/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists notes in the notes table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const noteColumns = `id, lead_id, text, created_by, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, n *models.Note) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID.String(), n.LeadID.String(), n.Text, n.CreatedBy.String(), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert note", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.NoteID) (*models.Note, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id.String())
	return scanNote(row)
}

func (s *Postgres) ListForLead(ctx context.Context, leadID domain.LeadID) ([]*models.Note, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE lead_id = $1 ORDER BY created_at DESC`, leadID.String())
	if err != nil {
		return nil, postgres.TranslateError("list notes", err)
	}
	defer rows.Close()
	out := []*models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (s *Postgres) Update(ctx context.Context, n *models.Note) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE notes SET text = $2, updated_at = $3 WHERE id = $1`, n.ID.String(), n.Text, n.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update note", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.NoteID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id.String())
	if err != nil {
		return postgres.TranslateError("delete note", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	n := &models.Note{}
	err := row.Scan(domain.Scanner(&n.ID), domain.Scanner(&n.LeadID), &n.Text,
		domain.Scanner(&n.CreatedBy), &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("scan note", err)
	}
	return n, nil
}
