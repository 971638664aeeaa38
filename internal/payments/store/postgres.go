package store

import (
	"context"
	"database/sql"
	"fmt"

	"idbcrm/internal/payments/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists payments in the offline_payments table (alias "p").
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const paymentColumns = `p.id, p.lead_id, p.receiver_id, p.amount, p.currency, p.method, p.reference,
	p.status, p.receipt_url, p.notes, p.created_by, p.created_at, p.updated_at`

func (s *Postgres) Create(ctx context.Context, p *models.Payment) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO offline_payments (id, lead_id, receiver_id, amount, currency, method, reference,
			status, receipt_url, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID.String(), p.LeadID.String(), p.ReceiverID.String(), p.Amount, p.Currency, string(p.Method),
		p.Reference, string(p.Status), p.ReceiptURL, p.Notes, p.CreatedBy.String(), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("insert payment", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM offline_payments p WHERE p.id = $1`, id.String())
	return scanPayment(row)
}

// List joins leads so the caller's scope applies to the parent lead.
func (s *Postgres) List(ctx context.Context, sc scope.Scope, f models.Filter) ([]*models.Payment, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	if f.LeadID != nil {
		w.Add("p.lead_id = ?", f.LeadID.String())
	}
	if f.ReceiverID != nil {
		w.Add("p.receiver_id = ?", f.ReceiverID.String())
	}
	if f.Status != "" {
		w.Add("p.status = ?", string(f.Status))
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM offline_payments p JOIN leads l ON l.id = p.lead_id
		WHERE `+w.String()+`
		ORDER BY p.created_at DESC`, w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("list payments", err)
	}
	defer rows.Close()
	out := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// Summary groups visible payments by status and currency.
func (s *Postgres) Summary(ctx context.Context, sc scope.Scope) (*models.Totals, error) {
	w, err := scope.NewWhere(sc, scope.LeadColumns)
	if err != nil {
		return nil, err
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT p.status, p.currency, count(*), COALESCE(sum(p.amount), 0)
		FROM offline_payments p JOIN leads l ON l.id = p.lead_id
		WHERE `+w.String()+`
		GROUP BY p.status, p.currency`, w.Args()...)
	if err != nil {
		return nil, postgres.TranslateError("summarize payments", err)
	}
	defer rows.Close()
	t := &models.Totals{ByStatus: []models.StatusTotal{}}
	for rows.Next() {
		var st models.StatusTotal
		if err := rows.Scan(&st.Status, &st.Currency, &st.Count, &st.Amount); err != nil {
			return nil, postgres.TranslateError("scan payment totals", err)
		}
		t.Count += st.Count
		t.ByStatus = append(t.ByStatus, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment totals: %w", err)
	}
	t.Sort()
	return t, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Payment) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE offline_payments
		SET receiver_id = $2, amount = $3, currency = $4, method = $5, reference = $6, status = $7,
			notes = $8, updated_at = $9
		WHERE id = $1
	`, p.ID.String(), p.ReceiverID.String(), p.Amount, p.Currency, string(p.Method), p.Reference,
		string(p.Status), p.Notes, p.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update payment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.PaymentID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM offline_payments WHERE id = $1`, id.String())
	if err != nil {
		return postgres.TranslateError("delete payment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(domain.Scanner(&p.ID), domain.Scanner(&p.LeadID), domain.Scanner(&p.ReceiverID),
		&p.Amount, &p.Currency, &p.Method, &p.Reference, &p.Status, &p.ReceiptURL, &p.Notes,
		domain.Scanner(&p.CreatedBy), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("scan payment", err)
	}
	return p, nil
}
