package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// Postgres persists the catalog in countries, universities and courses.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const selectCountry = `
	SELECT c.id, c.name, c.code, (SELECT count(*) FROM universities u WHERE u.country_id = c.id),
		c.created_at, c.updated_at
	FROM countries c`

const selectUniversity = `
	SELECT u.id, u.country_id, c.name, u.name, u.city, u.logo_url, u.created_at, u.updated_at
	FROM universities u
	JOIN countries c ON c.id = u.country_id`

const selectCourse = `
	SELECT k.id, k.university_id, u.name, c.name, k.name, k.description, k.level, k.category,
		k.duration_months, k.fee_type, k.original_fee, k.fee, k.application_fee, k.intake_month,
		k.commission, k.created_at, k.updated_at
	FROM courses k
	JOIN universities u ON u.id = k.university_id
	JOIN countries c ON c.id = u.country_id`

type scanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) CreateCountry(ctx context.Context, c *models.Country) error {
	return s.exec(ctx, "insert country", `
		INSERT INTO countries (id, name, code, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
	`, c.ID.String(), c.Name, c.Code, c.CreatedAt, c.UpdatedAt)
}

func (s *Postgres) FindCountry(ctx context.Context, id domain.CountryID) (*models.Country, error) {
	c, err := scanCountry(postgres.Conn(ctx, s.db).QueryRowContext(ctx, selectCountry+` WHERE c.id = $1`, id.String()))
	if err != nil {
		return nil, postgres.TranslateError("find country", err)
	}
	return c, nil
}

func (s *Postgres) ListCountries(ctx context.Context) ([]*models.Country, error) {
	return queryAll(ctx, s.db, "list countries", scanCountry, selectCountry+` ORDER BY c.name`)
}

func (s *Postgres) UpdateCountry(ctx context.Context, c *models.Country) error {
	return s.execOne(ctx, "update country", `
		UPDATE countries SET name = $2, code = $3, updated_at = $4 WHERE id = $1
	`, c.ID.String(), c.Name, c.Code, c.UpdatedAt)
}

func (s *Postgres) DeleteCountry(ctx context.Context, id domain.CountryID) error {
	return s.execOne(ctx, "delete country", `DELETE FROM countries WHERE id = $1`, id.String())
}

func (s *Postgres) CreateUniversity(ctx context.Context, u *models.University) error {
	return s.exec(ctx, "insert university", `
		INSERT INTO universities (id, country_id, name, city, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID.String(), u.CountryID.String(), u.Name, u.City, u.LogoURL, u.CreatedAt, u.UpdatedAt)
}

func (s *Postgres) FindUniversity(ctx context.Context, id domain.UniversityID) (*models.University, error) {
	u, err := scanUniversity(postgres.Conn(ctx, s.db).QueryRowContext(ctx, selectUniversity+` WHERE u.id = $1`, id.String()))
	if err != nil {
		return nil, postgres.TranslateError("find university", err)
	}
	return u, nil
}

func (s *Postgres) ListUniversities(ctx context.Context, countryID *domain.CountryID) ([]*models.University, error) {
	w := scope.Plain()
	if countryID != nil {
		w.Add("u.country_id = ?", countryID.String())
	}
	return queryAll(ctx, s.db, "list universities", scanUniversity,
		selectUniversity+` WHERE `+w.String()+` ORDER BY u.name`, w.Args()...)
}

func (s *Postgres) UpdateUniversity(ctx context.Context, u *models.University) error {
	return s.execOne(ctx, "update university", `
		UPDATE universities SET country_id = $2, name = $3, city = $4, logo_url = $5, updated_at = $6
		WHERE id = $1
	`, u.ID.String(), u.CountryID.String(), u.Name, u.City, u.LogoURL, u.UpdatedAt)
}

func (s *Postgres) DeleteUniversity(ctx context.Context, id domain.UniversityID) error {
	return s.execOne(ctx, "delete university", `DELETE FROM universities WHERE id = $1`, id.String())
}

func (s *Postgres) CreateCourse(ctx context.Context, c *models.Course) error {
	return s.exec(ctx, "insert course", `
		INSERT INTO courses (id, university_id, name, description, level, category, duration_months,
			fee_type, original_fee, fee, application_fee, intake_month, commission, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.ID.String(), c.UniversityID.String(), c.Name, c.Description, c.Level, c.Category, c.DurationMonths,
		c.FeeType, c.OriginalFee, c.Fee, c.ApplicationFee, c.IntakeMonth, c.Commission, c.CreatedAt, c.UpdatedAt)
}

func (s *Postgres) FindCourse(ctx context.Context, id domain.CourseID) (*models.Course, error) {
	c, err := scanCourse(postgres.Conn(ctx, s.db).QueryRowContext(ctx, selectCourse+` WHERE k.id = $1`, id.String()))
	if err != nil {
		return nil, postgres.TranslateError("find course", err)
	}
	return c, nil
}

func (s *Postgres) SearchCourses(ctx context.Context, f models.CourseFilter) ([]*models.Course, error) {
	w := scope.Plain()
	if f.Search != "" {
		p := w.Arg(postgres.LikePattern(f.Search))
		w.Raw(fmt.Sprintf("(k.name ILIKE %[1]s OR u.name ILIKE %[1]s)", p))
	}
	if len(f.Levels) > 0 {
		w.Raw("k.level = ANY(" + w.Arg(pq.Array(f.Levels)) + "::text[])")
	}
	if len(f.Universities) > 0 {
		w.Raw("u.name = ANY(" + w.Arg(pq.Array(f.Universities)) + "::text[])")
	}
	if len(f.Countries) > 0 {
		w.Raw("c.name = ANY(" + w.Arg(pq.Array(f.Countries)) + "::text[])")
	}
	if len(f.Intakes) > 0 {
		patterns := make([]string, len(f.Intakes))
		for i, m := range f.Intakes {
			patterns[i] = postgres.LikePattern(m)
		}
		w.Raw("k.intake_month ILIKE ANY(" + w.Arg(pq.Array(patterns)) + "::text[])")
	}
	return queryAll(ctx, s.db, "search courses", scanCourse,
		selectCourse+` WHERE `+w.String()+` ORDER BY k.created_at DESC`, w.Args()...)
}

func (s *Postgres) CoursesOf(ctx context.Context, id domain.UniversityID) ([]*models.Course, error) {
	return queryAll(ctx, s.db, "list university courses", scanCourse,
		selectCourse+` WHERE k.university_id = $1 ORDER BY k.name`, id.String())
}

func (s *Postgres) UpdateCourse(ctx context.Context, c *models.Course) error {
	return s.execOne(ctx, "update course", `
		UPDATE courses
		SET university_id = $2, name = $3, description = $4, level = $5, category = $6,
			duration_months = $7, fee_type = $8, original_fee = $9, fee = $10, application_fee = $11,
			intake_month = $12, commission = $13, updated_at = $14
		WHERE id = $1
	`, c.ID.String(), c.UniversityID.String(), c.Name, c.Description, c.Level, c.Category, c.DurationMonths,
		c.FeeType, c.OriginalFee, c.Fee, c.ApplicationFee, c.IntakeMonth, c.Commission, c.UpdatedAt)
}

func (s *Postgres) DeleteCourse(ctx context.Context, id domain.CourseID) error {
	return s.execOne(ctx, "delete course", `DELETE FROM courses WHERE id = $1`, id.String())
}

func (s *Postgres) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	opts := &models.FilterOptions{}
	var err error
	if opts.Countries, err = s.names(ctx, `SELECT DISTINCT name FROM countries ORDER BY name`); err != nil {
		return nil, err
	}
	if opts.Universities, err = s.names(ctx, `SELECT DISTINCT name FROM universities ORDER BY name`); err != nil {
		return nil, err
	}
	if opts.Levels, err = s.names(ctx, `SELECT DISTINCT level FROM courses WHERE level <> '' ORDER BY level`); err != nil {
		return nil, err
	}
	return opts, nil
}

func (s *Postgres) names(ctx context.Context, query string) ([]string, error) {
	return queryAll(ctx, s.db, "load filter options", func(row scanner) (string, error) {
		var v string
		err := row.Scan(&v)
		return v, err
	}, query)
}

func (s *Postgres) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return postgres.TranslateError(op, err)
	}
	return nil
}

// execOne is exec that reports ErrNotFound when no row was affected.
func (s *Postgres) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.TranslateError(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, op string, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := postgres.Conn(ctx, db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.TranslateError(op, err)
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func scanCountry(row scanner) (*models.Country, error) {
	c := &models.Country{}
	err := row.Scan(domain.Scanner(&c.ID), &c.Name, &c.Code, &c.UniversityCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanUniversity(row scanner) (*models.University, error) {
	u := &models.University{}
	err := row.Scan(domain.Scanner(&u.ID), domain.Scanner(&u.CountryID), &u.CountryName, &u.Name, &u.City,
		&u.LogoURL, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanCourse(row scanner) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(domain.Scanner(&c.ID), domain.Scanner(&c.UniversityID), &c.UniversityName, &c.CountryName,
		&c.Name, &c.Description, &c.Level, &c.Category, &c.DurationMonths, &c.FeeType, &c.OriginalFee,
		&c.Fee, &c.ApplicationFee, &c.IntakeMonth, &c.Commission, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
