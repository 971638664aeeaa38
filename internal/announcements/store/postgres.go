package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"idbcrm/internal/announcements/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists announcements and announcement_reads.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const announcementColumns = `a.id, a.title, a.content, a.target_audience, a.users, a.branch_id,
	a.is_active, a.created_by, a.created_at, a.updated_at`

// visibleWhere mirrors models.Visibility.Permits. Parameters: $1 viewer,
// $2 viewer branch (nullable), $3 all, $4 include inactive.
const visibleWhere = `
	WHERE ($4 OR a.is_active)
	  AND ($3
	    OR (a.target_audience = 'user' AND $1::uuid = ANY(a.users))
	    OR (a.target_audience = 'branch' AND (a.branch_id IS NULL OR a.branch_id = $2::uuid)))`

func visibleArgs(v models.Visibility) []any {
	var branch any
	if v.BranchID != nil {
		branch = v.BranchID.String()
	}
	return []any{v.Viewer.String(), branch, v.All, v.IncludeInactive}
}

func (s *Postgres) Create(ctx context.Context, a *models.Announcement) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO announcements (id, title, content, target_audience, users, branch_id,
			is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID.String(), a.Title, a.Content, string(a.TargetAudience), usersArray(a.Users),
		branchValue(a.BranchID), a.IsActive, a.CreatedBy.String(), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert announcement", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.AnnouncementID) (*models.Announcement, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements a WHERE a.id = $1`, id.String())
	a, err := scanAnnouncement(row)
	if err != nil {
		return nil, postgres.TranslateError("find announcement", err)
	}
	return a, nil
}

func (s *Postgres) ListVisible(ctx context.Context, v models.Visibility) ([]*models.View, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+announcementColumns+`, r.read_at
		FROM announcements a
		LEFT JOIN announcement_reads r ON r.announcement_id = a.id AND r.partner_id = $1::uuid
	`+visibleWhere+`
		ORDER BY a.created_at DESC`, visibleArgs(v)...)
	if err != nil {
		return nil, postgres.TranslateError("list announcements", err)
	}
	defer rows.Close()
	out := []*models.View{}
	for rows.Next() {
		var readAt sql.NullTime
		a, err := scanAnnouncement(rows, &readAt)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		view := &models.View{Announcement: a}
		if readAt.Valid {
			view.IsRead = true
			view.ReadAt = &readAt.Time
		}
		out = append(out, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return out, nil
}

func (s *Postgres) UnreadCount(ctx context.Context, v models.Visibility) (int, error) {
	var n int
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT count(*)
		FROM announcements a
		LEFT JOIN announcement_reads r ON r.announcement_id = a.id AND r.partner_id = $1::uuid
	`+visibleWhere+` AND r.read_at IS NULL`, visibleArgs(v)...).Scan(&n)
	if err != nil {
		return 0, postgres.TranslateError("count unread announcements", err)
	}
	return n, nil
}

func (s *Postgres) ReadAt(ctx context.Context, id domain.AnnouncementID, partner domain.PartnerID) (*time.Time, error) {
	var at time.Time
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT read_at FROM announcement_reads WHERE announcement_id = $1 AND partner_id = $2
	`, id.String(), partner.String()).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.TranslateError("load read receipt", err)
	}
	return &at, nil
}

func (s *Postgres) MarkRead(ctx context.Context, id domain.AnnouncementID, partner domain.PartnerID, at time.Time) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO announcement_reads (announcement_id, partner_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT announcement_reads_pkey DO UPDATE SET read_at = EXCLUDED.read_at
	`, id.String(), partner.String(), at)
	if err != nil {
		return postgres.TranslateError("mark announcement read", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, a *models.Announcement) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE announcements
		SET title = $2, content = $3, target_audience = $4, users = $5, branch_id = $6,
			is_active = $7, updated_at = $8
		WHERE id = $1
	`, a.ID.String(), a.Title, a.Content, string(a.TargetAudience), usersArray(a.Users),
		branchValue(a.BranchID), a.IsActive, a.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update announcement", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.AnnouncementID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id.String())
	if err != nil {
		return postgres.TranslateError("delete announcement", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row scanner, extra ...any) (*models.Announcement, error) {
	a := &models.Announcement{}
	var audience string
	var users []string
	var branch domain.NullableScan[domain.BranchID]
	dest := append([]any{
		domain.Scanner(&a.ID), &a.Title, &a.Content, &audience, pq.Array(&users), &branch,
		&a.IsActive, domain.Scanner(&a.CreatedBy), &a.CreatedAt, &a.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.TargetAudience = models.Audience(audience)
	a.BranchID = branch.Ptr()
	a.Users = make([]domain.PartnerID, 0, len(users))
	for _, u := range users {
		id, err := uuid.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("announcement %s: bad recipient %q: %w", a.ID, u, err)
		}
		a.Users = append(a.Users, domain.PartnerID(id))
	}
	return a, nil
}

func usersArray(ids []domain.PartnerID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}

func branchValue(id *domain.BranchID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
