package service

import (
	"context"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

const countryExists = "a country with this name already exists"

func (s *Service) CreateCountry(ctx context.Context, actor scope.Actor, in models.CreateCountryInput) (*models.Country, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c := &models.Country{
		ID:        domain.New[domain.CountryID](),
		Name:      in.Name,
		Code:      in.Code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCountry(ctx, c); err != nil {
		return nil, wrapStoreErr(err, "country", countryExists)
	}
	s.logAudit(ctx, "country_created", actor, "country_id", c.ID, "name", c.Name)
	return c, nil
}

// ListCountries returns every country by name with its university count.
func (s *Service) ListCountries(ctx context.Context) ([]*models.Country, error) {
	countries, err := s.store.ListCountries(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "country", countryExists)
	}
	return countries, nil
}

// GetCountry returns a country with its universities.
func (s *Service) GetCountry(ctx context.Context, id domain.CountryID) (*models.CountryDetail, error) {
	c, err := s.store.FindCountry(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "country", countryExists)
	}
	universities, err := s.store.ListUniversities(ctx, &id)
	if err != nil {
		return nil, wrapStoreErr(err, "university", "")
	}
	return &models.CountryDetail{Country: c, Universities: universities}, nil
}

func (s *Service) UpdateCountry(ctx context.Context, actor scope.Actor, id domain.CountryID, in models.UpdateCountryInput) (*models.Country, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *models.Country
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindCountry(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "country", countryExists)
		}
		if in.Name != nil {
			c.Name = *in.Name
		}
		if in.Code != nil {
			c.Code = *in.Code
		}
		c.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.UpdateCountry(txCtx, c); err != nil {
			return wrapStoreErr(err, "country", countryExists)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "country_updated", actor, "country_id", id)
	return updated, nil
}

// DeleteCountry removes a country without universities.
func (s *Service) DeleteCountry(ctx context.Context, actor scope.Actor, id domain.CountryID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindCountry(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "country", "")
		}
		if c.UniversityCount > 0 {
			return dErrors.Newf(dErrors.CodeConflict, "country has %d universities", c.UniversityCount)
		}
		return wrapStoreErr(s.store.DeleteCountry(txCtx, id), "country", "country is still referenced")
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "country_deleted", actor, "country_id", id)
	return nil
}
