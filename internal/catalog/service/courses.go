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

// CreateCourse adds a course to an existing university.
func (s *Service) CreateCourse(ctx context.Context, actor scope.Actor, in models.CreateCourseInput) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	now := requestcontext.Now(ctx)
	c := &models.Course{
		ID:             domain.New[domain.CourseID](),
		UniversityID:   in.UniversityID,
		Name:           in.Name,
		Description:    in.Description,
		Level:          in.Level,
		Category:       in.Category,
		DurationMonths: in.DurationMonths,
		FeeType:        in.FeeType,
		OriginalFee:    in.OriginalFee,
		Fee:            in.Fee,
		ApplicationFee: in.ApplicationFee,
		IntakeMonth:    in.IntakeMonth,
		Commission:     in.Commission,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.joinUniversity(txCtx, c); err != nil {
			return err
		}
		return wrapStoreErr(s.store.CreateCourse(txCtx, c), "course", "university no longer exists")
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "course_created", actor, "course_id", c.ID, "university_id", c.UniversityID)
	return c, nil
}

// SearchCourses returns courses matching every set filter, newest first.
func (s *Service) SearchCourses(ctx context.Context, f models.CourseFilter) ([]*models.Course, error) {
	f.Normalize()
	courses, err := s.store.SearchCourses(ctx, f)
	if err != nil {
		return nil, wrapStoreErr(err, "course", "")
	}
	return courses, nil
}

func (s *Service) GetCourse(ctx context.Context, id domain.CourseID) (*models.Course, error) {
	c, err := s.store.FindCourse(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "course", "")
	}
	return c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, actor scope.Actor, id domain.CourseID, in models.UpdateCourseInput) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	var updated *models.Course
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindCourse(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "course", "")
		}
		in.Apply(c)
		if err := c.Validate(); err != nil {
			return err
		}
		if in.UniversityID != nil {
			if err := s.joinUniversity(txCtx, c); err != nil {
				return err
			}
		}
		c.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.UpdateCourse(txCtx, c); err != nil {
			return wrapStoreErr(err, "course", "university no longer exists")
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "course_updated", actor, "course_id", id)
	return updated, nil
}

func (s *Service) DeleteCourse(ctx context.Context, actor scope.Actor, id domain.CourseID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return wrapStoreErr(err, "course", "course is still referenced")
	}
	s.logAudit(ctx, "course_deleted", actor, "course_id", id)
	return nil
}

// FilterOptions lists the distinct countries, universities and levels.
func (s *Service) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	opts, err := s.store.FilterOptions(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "catalog", "")
	}
	return opts, nil
}

func (s *Service) joinUniversity(ctx context.Context, c *models.Course) error {
	u, err := s.store.FindUniversity(ctx, c.UniversityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "university not found")
	}
	if err != nil {
		return wrapStoreErr(err, "university", "")
	}
	c.UniversityName = u.Name
	c.CountryName = u.CountryName
	return nil
}
