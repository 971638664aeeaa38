package store

import (
	"context"
	"database/sql"
	"fmt"

	"idbcrm/internal/partners/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists partners in the partners table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a partner store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const partnerColumns = `id, name, email, mobile, password_hash, role, branch_id, active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, p *models.Partner) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO partners (`+partnerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID.String(), p.Name, p.Email, p.Mobile, p.PasswordHash, p.Role.String(),
		branchValue(p.BranchID), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert partner", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PartnerID) (*models.Partner, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id.String())
	return scanPartner(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Partner, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE lower(email) = lower($1)`, email)
	return scanPartner(row)
}

func (s *Postgres) List(ctx context.Context, f models.Filter) ([]*models.Partner, error) {
	w := scope.Plain()
	if f.ID != nil {
		w.Add("id = ?", f.ID.String())
	}
	if f.BranchID != nil {
		w.Add("branch_id = ?", f.BranchID.String())
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE `+w.String()+` ORDER BY created_at DESC`, w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("list partners", err)
	}
	defer rows.Close()

	var out []*models.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return out, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Partner) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE partners
		SET name = $2, mobile = $3, password_hash = $4, role = $5, branch_id = $6, active = $7, updated_at = $8
		WHERE id = $1
	`, p.ID.String(), p.Name, p.Mobile, p.PasswordHash, p.Role.String(), branchValue(p.BranchID), p.Active, p.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update partner", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) CountByBranch(ctx context.Context, branch domain.BranchID) (int, error) {
	var n int
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM partners WHERE branch_id = $1`, branch.String()).Scan(&n)
	if err != nil {
		return 0, postgres.TranslateError("count branch partners", err)
	}
	return n, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM partners`).Scan(&n); err != nil {
		return 0, postgres.TranslateError("count partners", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartner(row rowScanner) (*models.Partner, error) {
	p := &models.Partner{}
	var role string
	var branch domain.NullableScan[domain.BranchID]
	err := row.Scan(domain.Scanner(&p.ID), &p.Name, &p.Email, &p.Mobile, &p.PasswordHash, &role,
		&branch, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("scan partner", err)
	}
	p.Role = scope.Role(role)
	p.BranchID = branch.Ptr()
	return p, nil
}

func branchValue(id *domain.BranchID) any {
	if id == nil {
		return nil
	}
	return domain.Value(*id)
}
