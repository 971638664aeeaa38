package store

import (
	"context"
	"database/sql"
	"fmt"

	"idbcrm/internal/branches/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists branches in the branches table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a branch store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const selectBranch = `
	SELECT b.id, b.name, b.code, b.type, b.address, b.phone, b.parent_id, COALESCE(p.name, ''), b.created_at, b.updated_at
	FROM branches b
	LEFT JOIN branches p ON p.id = b.parent_id`

func (s *Postgres) Create(ctx context.Context, b *models.Branch) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO branches (id, name, code, type, address, phone, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID.String(), b.Name, b.Code, string(b.Type), b.Address, b.Phone, parentValue(b.ParentID), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert branch", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.BranchID) (*models.Branch, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx, selectBranch+` WHERE b.id = $1`, id.String())
	return scanBranch(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Branch, error) {
	return s.query(ctx, "list branches", selectBranch+` ORDER BY b.created_at DESC`)
}

func (s *Postgres) Children(ctx context.Context, id domain.BranchID) ([]*models.Branch, error) {
	return s.query(ctx, "list child branches", selectBranch+` WHERE b.parent_id = $1 ORDER BY b.name`, id.String())
}

func (s *Postgres) Update(ctx context.Context, b *models.Branch) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE branches
		SET name = $2, code = $3, type = $4, address = $5, phone = $6, parent_id = $7, updated_at = $8
		WHERE id = $1
	`, b.ID.String(), b.Name, b.Code, string(b.Type), b.Address, b.Phone, parentValue(b.ParentID), b.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update branch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a branch. A branch still referenced by children, partners or
// leads fails with ErrConflict from the foreign keys.
func (s *Postgres) Delete(ctx context.Context, id domain.BranchID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, id.String())
	if err != nil {
		return postgres.TranslateError("delete branch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) query(ctx context.Context, op, q string, args ...any) ([]*models.Branch, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, postgres.TranslateError(op, err)
	}
	defer rows.Close()
	var out []*models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	b := &models.Branch{}
	var typ string
	var parent domain.NullableScan[domain.BranchID]
	if err := row.Scan(domain.Scanner(&b.ID), &b.Name, &b.Code, &typ, &b.Address, &b.Phone, &parent,
		&b.ParentName, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, postgres.TranslateError("scan branch", err)
	}
	b.Type = models.Type(typ)
	b.ParentID = parent.Ptr()
	return b, nil
}

func parentValue(id *domain.BranchID) any {
	if id == nil {
		return nil
	}
	return domain.Value(*id)
}
