package service

import (
	"context"
	"errors"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/requestcontext"
)

// CreateUniversity adds a university to an existing country.
func (s *Service) CreateUniversity(ctx context.Context, actor scope.Actor, in models.CreateUniversityInput) (*models.University, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	u := &models.University{
		ID:        domain.New[domain.UniversityID](),
		CountryID: in.CountryID,
		Name:      in.Name,
		City:      in.City,
		LogoURL:   in.LogoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		country, err := s.requireCountry(txCtx, u.CountryID)
		if err != nil {
			return err
		}
		u.CountryName = country.Name
		return wrapStoreErr(s.store.CreateUniversity(txCtx, u), "university", "country no longer exists")
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "university_created", actor, "university_id", u.ID, "country_id", u.CountryID)
	return u, nil
}

// ListUniversities returns universities by name, optionally of one country.
func (s *Service) ListUniversities(ctx context.Context, countryID *domain.CountryID) ([]*models.University, error) {
	universities, err := s.store.ListUniversities(ctx, countryID)
	if err != nil {
		return nil, wrapStoreErr(err, "university", "")
	}
	return universities, nil
}

// GetUniversity returns a university with its courses.
func (s *Service) GetUniversity(ctx context.Context, id domain.UniversityID) (*models.UniversityDetail, error) {
	u, err := s.store.FindUniversity(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "university", "")
	}
	courses, err := s.store.CoursesOf(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "course", "")
	}
	return &models.UniversityDetail{University: u, Courses: courses}, nil
}

func (s *Service) UpdateUniversity(ctx context.Context, actor scope.Actor, id domain.UniversityID, in models.UpdateUniversityInput) (*models.University, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *models.University
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.store.FindUniversity(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "university", "")
		}
		in.Apply(u)
		if in.CountryID != nil {
			country, err := s.requireCountry(txCtx, u.CountryID)
			if err != nil {
				return err
			}
			u.CountryName = country.Name
		}
		u.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.UpdateUniversity(txCtx, u); err != nil {
			return wrapStoreErr(err, "university", "country no longer exists")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "university_updated", actor, "university_id", id)
	return updated, nil
}

// DeleteUniversity removes a university without courses.
func (s *Service) DeleteUniversity(ctx context.Context, actor scope.Actor, id domain.UniversityID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		courses, err := s.store.CoursesOf(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "course", "")
		}
		if len(courses) > 0 {
			return dErrors.Newf(dErrors.CodeConflict, "university has %d courses", len(courses))
		}
		return wrapStoreErr(s.store.DeleteUniversity(txCtx, id), "university", "university is still referenced")
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "university_deleted", actor, "university_id", id)
	return nil
}

func (s *Service) requireCountry(ctx context.Context, id domain.CountryID) (*models.Country, error) {
	c, err := s.store.FindCountry(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "country not found")
	}
	if err != nil {
		return nil, wrapStoreErr(err, "country", "")
	}
	return c, nil
}
