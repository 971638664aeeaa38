package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"idbcrm/internal/leads/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists leads in the leads table (alias "l").
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a lead store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const leadColumns = `l.id, l.name, l.email, l.mobile, l.city, l.address, l.qualifications,
	l.preferred_country, l.type, l.purpose, l.utm_source, l.utm_medium, l.utm_campaign,
	l.status, l.branch_id, l.assigned_to, l.created_by, l.created_at, l.updated_at`

func (s *Postgres) Create(ctx context.Context, l *models.Lead) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO leads (id, name, email, mobile, city, address, qualifications,
			preferred_country, type, purpose, utm_source, utm_medium, utm_campaign,
			status, branch_id, assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, l.ID.String(), l.Name, l.Email, l.Mobile, l.City, l.Address, l.Qualifications,
		l.PreferredCountry, string(l.Type), l.Purpose, l.UTMSource, l.UTMMedium, l.UTMCampaign,
		string(l.Status), optional(l.BranchID), optional(l.AssignedTo), l.CreatedBy.String(),
		l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert lead", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, sc scope.Scope, id domain.LeadID) (*models.Lead, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	w.Add("l.id = ?", id.String())
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads l WHERE `+w.String(), w.Args()...)
	return scanLead(row)
}

// Exists is an unscoped probe used only for diagnostics.
func (s *Postgres) Exists(ctx context.Context, id domain.LeadID) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id.String()).Scan(&ok)
	if err != nil {
		return false, postgres.TranslateError("probe lead", err)
	}
	return ok, nil
}

func (s *Postgres) GetMany(ctx context.Context, sc scope.Scope, ids []domain.LeadID) ([]*models.Lead, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	w.Raw("l.id = ANY(" + w.Arg(pq.Array(raw)) + "::uuid[])")
	return s.query(ctx, "get leads", `SELECT `+leadColumns+` FROM leads l WHERE `+w.String(), w.Args()...)
}

func (s *Postgres) List(ctx context.Context, sc scope.Scope, f models.ListFilter) ([]*models.Lead, int, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, 0, err
	}
	if len(f.Statuses) > 0 {
		raw := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			raw[i] = string(st)
		}
		w.Raw("l.status = ANY(" + w.Arg(pq.Array(raw)) + "::text[])")
	}
	if f.AssignedTo != nil {
		w.Add("l.assigned_to = ?", f.AssignedTo.String())
	}
	if f.Type != "" {
		w.Add("l.type = ?", string(f.Type))
	}
	if f.Search != "" {
		p := w.Arg(postgres.LikePattern(f.Search))
		w.Raw(fmt.Sprintf("(l.name ILIKE %[1]s OR l.email ILIKE %[1]s OR l.mobile ILIKE %[1]s)", p))
	}

	var total int
	if err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM leads l WHERE `+w.String(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, postgres.TranslateError("count leads", err)
	}

	args := append(w.Args(), f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM leads l WHERE %s ORDER BY l.created_at DESC, l.id DESC LIMIT $%d OFFSET $%d`,
		leadColumns, w.String(), len(args)-1, len(args))
	items, err := s.query(ctx, "list leads", query, args...)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*models.Lead{}
	}
	return items, total, nil
}

func (s *Postgres) Update(ctx context.Context, l *models.Lead) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE leads
		SET name = $2, email = $3, mobile = $4, city = $5, address = $6, qualifications = $7,
			preferred_country = $8, type = $9, purpose = $10, status = $11, branch_id = $12,
			assigned_to = $13, updated_at = $14
		WHERE id = $1
	`, l.ID.String(), l.Name, l.Email, l.Mobile, l.City, l.Address, l.Qualifications,
		l.PreferredCountry, string(l.Type), l.Purpose, string(l.Status), optional(l.BranchID),
		optional(l.AssignedTo), l.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update lead", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context, sc scope.Scope, f models.CountFilter) (int, error) {
	w, err := countWhere(sc, f)
	if err != nil {
		return 0, err
	}
	var n int
	if err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM leads l WHERE `+w.String(), w.Args()...).Scan(&n); err != nil {
		return 0, postgres.TranslateError("count leads", err)
	}
	return n, nil
}

func (s *Postgres) CountByStatus(ctx context.Context, sc scope.Scope, f models.CountFilter) ([]models.GroupCount, error) {
	return s.group(ctx, sc, f, "l.status")
}

func (s *Postgres) CountBySource(ctx context.Context, sc scope.Scope, f models.CountFilter) ([]models.GroupCount, error) {
	return s.group(ctx, sc, f, "l.utm_source")
}

// CountByDay buckets leads created in [since, since+days) by calendar day in loc.
func (s *Postgres) CountByDay(ctx context.Context, sc scope.Scope, f models.CountFilter, since time.Time, days int, loc *time.Location) ([]int, error) {
	until := since.AddDate(0, 0, days)
	f.Since, f.Until = &since, &until
	w, err := countWhere(sc, f)
	if err != nil {
		return nil, err
	}
	tz := loc.String()
	if tz == "Local" || tz == "" {
		tz = "UTC"
	}
	tzArg := w.Arg(tz)
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, fmt.Sprintf(`
		SELECT (l.created_at AT TIME ZONE %[1]s)::date AS day, count(*)
		FROM leads l WHERE %[2]s
		GROUP BY 1`, tzArg, w.String()), w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("count leads by day", err)
	}
	defer rows.Close()

	out := make([]int, days)
	start := time.Date(since.In(loc).Year(), since.In(loc).Month(), since.In(loc).Day(), 0, 0, 0, 0, time.UTC)
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		i := int(day.Sub(start).Hours() / 24)
		if i >= 0 && i < days {
			out[i] += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day counts: %w", err)
	}
	return out, nil
}

func (s *Postgres) group(ctx context.Context, sc scope.Scope, f models.CountFilter, col string) ([]models.GroupCount, error) {
	w, err := countWhere(sc, f)
	if err != nil {
		return nil, err
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, count(*) FROM leads l WHERE %[2]s GROUP BY %[1]s ORDER BY %[1]s`, col, w.String()), w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("group leads", err)
	}
	defer rows.Close()
	out := []models.GroupCount{}
	for rows.Next() {
		var g models.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group counts: %w", err)
	}
	return out, nil
}

func countWhere(sc scope.Scope, f models.CountFilter) (*scope.Where, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	if f.Type != "" {
		w.Add("l.type = ?", string(f.Type))
	}
	if f.Status != "" {
		w.Add("l.status = ?", string(f.Status))
	}
	if f.Since != nil {
		w.Add("l.created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		w.Add("l.created_at < ?", *f.Until)
	}
	return w, nil
}

func (s *Postgres) query(ctx context.Context, op, query string, args ...any) ([]*models.Lead, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.TranslateError(op, err)
	}
	defer rows.Close()
	var out []*models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	l := &models.Lead{}
	var typ, status string
	var branch domain.NullableScan[domain.BranchID]
	var assigned domain.NullableScan[domain.PartnerID]
	err := row.Scan(domain.Scanner(&l.ID), &l.Name, &l.Email, &l.Mobile, &l.City, &l.Address,
		&l.Qualifications, &l.PreferredCountry, &typ, &l.Purpose, &l.UTMSource, &l.UTMMedium,
		&l.UTMCampaign, &status, &branch, &assigned, domain.Scanner(&l.CreatedBy), &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("scan lead", err)
	}
	l.Type = models.Type(typ)
	l.Status = models.Status(status)
	l.BranchID = branch.Ptr()
	l.AssignedTo = assigned.Ptr()
	return l, nil
}

func optional[T domain.ID](id *T) any {
	if id == nil {
		return nil
	}
	return domain.Value(*id)
}
