package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"idbcrm/internal/applications/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists applications across the applications, application_* tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const applicationColumns = `id, lead_id, student_id, date_of_birth, gender, nationality,
	passport_number, marital_status, created_at, updated_at`

// FindOrCreate is race-safe: concurrent callers for one lead converge on the
// row that won the unique (lead_id) constraint. The conflict clause has no
// target so a student_id collision leaves the transaction usable; it surfaces
// as ErrConflict and the caller retries with a fresh student id.
func (s *Postgres) FindOrCreate(ctx context.Context, app *models.Application) (*models.Application, error) {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`, app.ID.String(), app.LeadID.String(), app.StudentID, app.DateOfBirth, app.Gender,
		app.Nationality, app.PassportNumber, app.MaritalStatus, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("insert application", err)
	}
	stored, err := s.FindByLead(ctx, app.LeadID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("student id %s: %w", app.StudentID, sentinel.ErrConflict)
	}
	return stored, err
}

func (s *Postgres) FindByLead(ctx context.Context, leadID domain.LeadID) (*models.Application, error) {
	a := &models.Application{}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE lead_id = $1`, leadID.String()).
		Scan(domain.Scanner(&a.ID), domain.Scanner(&a.LeadID), &a.StudentID, &a.DateOfBirth, &a.Gender,
			&a.Nationality, &a.PassportNumber, &a.MaritalStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, postgres.TranslateError("find application", err)
	}
	return a, nil
}

func (s *Postgres) UpdatePersonal(ctx context.Context, a *models.Application) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE applications
		SET date_of_birth = $2, gender = $3, nationality = $4, passport_number = $5,
			marital_status = $6, updated_at = $7
		WHERE id = $1
	`, a.ID.String(), a.DateOfBirth, a.Gender, a.Nationality, a.PassportNumber, a.MaritalStatus, a.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update application", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) UpsertFamily(ctx context.Context, id domain.ApplicationID, f *models.Family) error {
	return s.exec(ctx, "upsert family details", `
		INSERT INTO application_family (application_id, father_name, mother_name,
			emergency_contact_name, emergency_contact_phone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			father_name = EXCLUDED.father_name,
			mother_name = EXCLUDED.mother_name,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_phone = EXCLUDED.emergency_contact_phone,
			updated_at = EXCLUDED.updated_at
	`, id.String(), f.FatherName, f.MotherName, f.EmergencyContactName, f.EmergencyContactPhone, f.UpdatedAt)
}

func (s *Postgres) UpsertPreferences(ctx context.Context, id domain.ApplicationID, p *models.Preferences) error {
	return s.exec(ctx, "upsert preferences", `
		INSERT INTO application_preferences (application_id, preferred_country, course_name,
			course_type, intake, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			preferred_country = EXCLUDED.preferred_country,
			course_name = EXCLUDED.course_name,
			course_type = EXCLUDED.course_type,
			intake = EXCLUDED.intake,
			updated_at = EXCLUDED.updated_at
	`, id.String(), p.PreferredCountry, p.CourseName, p.CourseType, p.Intake, p.UpdatedAt)
}

func (s *Postgres) UpsertVisa(ctx context.Context, id domain.ApplicationID, v *models.Visa) error {
	return s.exec(ctx, "upsert visa details", `
		INSERT INTO application_visa (application_id, visa_country, visa_type, visa_status,
			refusal_history, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			visa_country = EXCLUDED.visa_country,
			visa_type = EXCLUDED.visa_type,
			visa_status = EXCLUDED.visa_status,
			refusal_history = EXCLUDED.refusal_history,
			updated_at = EXCLUDED.updated_at
	`, id.String(), v.VisaCountry, v.VisaType, v.VisaStatus, v.RefusalHistory, v.UpdatedAt)
}

func (s *Postgres) UpsertDocuments(ctx context.Context, id domain.ApplicationID, d *models.Documents) error {
	return s.exec(ctx, "upsert documents", `
		INSERT INTO application_documents (application_id, profile_photo, passport_copy,
			english_test_cert, sop, cv_resume, financial_documents, other_documents,
			academic_documents, recommendation_letters, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (application_id) DO UPDATE SET
			profile_photo = EXCLUDED.profile_photo,
			passport_copy = EXCLUDED.passport_copy,
			english_test_cert = EXCLUDED.english_test_cert,
			sop = EXCLUDED.sop,
			cv_resume = EXCLUDED.cv_resume,
			financial_documents = EXCLUDED.financial_documents,
			other_documents = EXCLUDED.other_documents,
			academic_documents = EXCLUDED.academic_documents,
			recommendation_letters = EXCLUDED.recommendation_letters,
			updated_at = EXCLUDED.updated_at
	`, id.String(), d.ProfilePhoto, d.PassportCopy, d.EnglishTestCert, d.SOP, d.CVResume,
		d.FinancialDocuments, d.OtherDocuments, pq.Array(nonNil(d.AcademicDocuments)),
		pq.Array(nonNil(d.RecommendationLetters)), d.UpdatedAt)
}

func (s *Postgres) Family(ctx context.Context, id domain.ApplicationID) (*models.Family, error) {
	f := &models.Family{}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT father_name, mother_name, emergency_contact_name, emergency_contact_phone, updated_at
		FROM application_family WHERE application_id = $1`, id.String()).
		Scan(&f.FatherName, &f.MotherName, &f.EmergencyContactName, &f.EmergencyContactPhone, &f.UpdatedAt)
	return optionalRow(f, err, "load family details")
}

func (s *Postgres) Preferences(ctx context.Context, id domain.ApplicationID) (*models.Preferences, error) {
	p := &models.Preferences{}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT preferred_country, course_name, course_type, intake, updated_at
		FROM application_preferences WHERE application_id = $1`, id.String()).
		Scan(&p.PreferredCountry, &p.CourseName, &p.CourseType, &p.Intake, &p.UpdatedAt)
	return optionalRow(p, err, "load preferences")
}

func (s *Postgres) Visa(ctx context.Context, id domain.ApplicationID) (*models.Visa, error) {
	v := &models.Visa{}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT visa_country, visa_type, visa_status, refusal_history, updated_at
		FROM application_visa WHERE application_id = $1`, id.String()).
		Scan(&v.VisaCountry, &v.VisaType, &v.VisaStatus, &v.RefusalHistory, &v.UpdatedAt)
	return optionalRow(v, err, "load visa details")
}

func (s *Postgres) Documents(ctx context.Context, id domain.ApplicationID) (*models.Documents, error) {
	d := &models.Documents{}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT profile_photo, passport_copy, english_test_cert, sop, cv_resume, financial_documents,
			other_documents, academic_documents, recommendation_letters, updated_at
		FROM application_documents WHERE application_id = $1`, id.String()).
		Scan(&d.ProfilePhoto, &d.PassportCopy, &d.EnglishTestCert, &d.SOP, &d.CVResume,
			&d.FinancialDocuments, &d.OtherDocuments, pq.Array(&d.AcademicDocuments),
			pq.Array(&d.RecommendationLetters), &d.UpdatedAt)
	return optionalRow(d, err, "load documents")
}

func (s *Postgres) Records(ctx context.Context, id domain.ApplicationID, kind models.RecordKind) ([]models.Record, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, kind, position, body, created_at, updated_at
		FROM application_records
		WHERE application_id = $1 AND kind = $2
		ORDER BY position, created_at`, id.String(), string(kind))
	if err != nil {
		return nil, postgres.TranslateError("list application records", err)
	}
	defer rows.Close()
	out := []models.Record{}
	for rows.Next() {
		var r models.Record
		var k string
		var body []byte
		if err := rows.Scan(domain.Scanner(&r.ID), &k, &r.Position, &body, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application record: %w", err)
		}
		r.Kind = models.RecordKind(k)
		r.Body = body
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application records: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateRecord(ctx context.Context, id domain.ApplicationID, r models.Record) error {
	return s.exec(ctx, "insert application record", `
		INSERT INTO application_records (id, application_id, kind, body, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4,
			(SELECT count(*) FROM application_records WHERE application_id = $2 AND kind = $3),
			$5, $6)
	`, r.ID.String(), id.String(), string(r.Kind), []byte(r.Body), r.CreatedAt, r.UpdatedAt)
}

// UpdateRecord only touches a record owned by the same application and kind.
func (s *Postgres) UpdateRecord(ctx context.Context, id domain.ApplicationID, r models.Record) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE application_records SET body = $4, updated_at = $5
		WHERE id = $1 AND application_id = $2 AND kind = $3
	`, r.ID.String(), id.String(), string(r.Kind), []byte(r.Body), r.UpdatedAt)
	if err != nil {
		return postgres.TranslateError("update application record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return postgres.TranslateError(op, err)
	}
	return nil
}

func optionalRow[T any](v *T, err error, op string) (*T, error) {
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, postgres.TranslateError(op, err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
