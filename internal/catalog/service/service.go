// Package service manages the course catalog. Reads are open; mutations are
// admin-only and keep references intact: a country with universities or a
// university with courses cannot be deleted.
package service

import (
	"context"
	"errors"
	"log/slog"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

type Store interface {
	CreateCountry(ctx context.Context, c *models.Country) error
	FindCountry(ctx context.Context, id domain.CountryID) (*models.Country, error)
	ListCountries(ctx context.Context) ([]*models.Country, error)
	UpdateCountry(ctx context.Context, c *models.Country) error
	DeleteCountry(ctx context.Context, id domain.CountryID) error

	CreateUniversity(ctx context.Context, u *models.University) error
	FindUniversity(ctx context.Context, id domain.UniversityID) (*models.University, error)
	ListUniversities(ctx context.Context, countryID *domain.CountryID) ([]*models.University, error)
	UpdateUniversity(ctx context.Context, u *models.University) error
	DeleteUniversity(ctx context.Context, id domain.UniversityID) error

	CreateCourse(ctx context.Context, c *models.Course) error
	FindCourse(ctx context.Context, id domain.CourseID) (*models.Course, error)
	SearchCourses(ctx context.Context, f models.CourseFilter) ([]*models.Course, error)
	CoursesOf(ctx context.Context, id domain.UniversityID) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, c *models.Course) error
	DeleteCourse(ctx context.Context, id domain.CourseID) error

	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
}

type Service struct {
	store  Store
	tx     tx.Runner
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

func requireAdmin(actor scope.Actor) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "only admins can manage the catalog")
	}
	return nil
}

// wrapStoreErr translates store sentinels for entity; conflict is the
// message for ErrConflict.
func wrapStoreErr(err error, entity, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, conflict)
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, entity+" store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, actor scope.Actor, attributes ...any) {
	args := append(attributes,
		"event", event,
		"log_type", "audit",
		"actor_id", actor.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.InfoContext(ctx, event, args...)
}
