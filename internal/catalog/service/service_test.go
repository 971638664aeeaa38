package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/catalog/store"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
	"idbcrm/pkg/testutil"
)

type CatalogServiceSuite struct {
	suite.Suite
	svc   *Service
	admin scope.Actor
	staff scope.Actor
	clock time.Time
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.svc = New(store.NewInMemory())
	s.admin = testutil.Admin()
	s.staff = testutil.BranchActor(scope.RoleStaff, domain.New[domain.BranchID]())
	s.clock = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
}

func (s *CatalogServiceSuite) ctx() context.Context {
	s.clock = s.clock.Add(time.Minute)
	return requestcontext.WithTime(context.Background(), s.clock)
}

func (s *CatalogServiceSuite) country(name, code string) *models.Country {
	c, err := s.svc.CreateCountry(s.ctx(), s.admin, models.CreateCountryInput{Name: name, Code: code})
	s.Require().NoError(err)
	return c
}

func (s *CatalogServiceSuite) university(country domain.CountryID, name string) *models.University {
	u, err := s.svc.CreateUniversity(s.ctx(), s.admin, models.CreateUniversityInput{CountryID: country, Name: name, City: "Somewhere"})
	s.Require().NoError(err)
	return u
}

func (s *CatalogServiceSuite) course(in models.CreateCourseInput) *models.Course {
	c, err := s.svc.CreateCourse(s.ctx(), s.admin, in)
	s.Require().NoError(err)
	return c
}

func courseNames(courses []*models.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Name
	}
	return out
}

func (s *CatalogServiceSuite) TestMutationsRequireAdmin() {
	_, err := s.svc.CreateCountry(s.ctx(), s.staff, models.CreateCountryInput{Name: "Canada", Code: "CA"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	c := s.country("Canada", "CA")
	s.True(dErrors.HasCode(s.svc.DeleteCountry(s.ctx(), s.staff, c.ID), dErrors.CodeForbidden))
	_, err = s.svc.CreateCourse(s.ctx(), s.staff, models.CreateCourseInput{Name: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CatalogServiceSuite) TestCountries() {
	s.Run("duplicate names conflict case-insensitively", func() {
		s.country("Australia", "au")
		_, err := s.svc.CreateCountry(s.ctx(), s.admin, models.CreateCountryInput{Name: "australia", Code: "AUS"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid code is rejected", func() {
		_, err := s.svc.CreateCountry(s.ctx(), s.admin, models.CreateCountryInput{Name: "Nowhere", Code: "QQQQ"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("list carries university counts in name order", func() {
		uk := s.country("United Kingdom", "GB")
		s.university(uk.ID, "Leeds")
		s.university(uk.ID, "Bath")

		countries, err := s.svc.ListCountries(s.ctx())
		s.Require().NoError(err)
		s.Require().Len(countries, 2)
		s.Equal("Australia", countries[0].Name)
		s.Equal(0, countries[0].UniversityCount)
		s.Equal(2, countries[1].UniversityCount)

		detail, err := s.svc.GetCountry(s.ctx(), uk.ID)
		s.Require().NoError(err)
		s.Len(detail.Universities, 2)
		s.Equal("Bath", detail.Universities[0].Name)
	})

	s.Run("rename into an existing name conflicts", func() {
		nz := s.country("New Zealand", "NZ")
		name := "AUSTRALIA"
		_, err := s.svc.UpdateCountry(s.ctx(), s.admin, nz.ID, models.UpdateCountryInput{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown country is not found", func() {
		_, err := s.svc.GetCountry(s.ctx(), domain.New[domain.CountryID]())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestDeleteKeepsReferencesIntact() {
	ca := s.country("Canada", "CA")
	u := s.university(ca.ID, "Toronto")
	c := s.course(models.CreateCourseInput{UniversityID: u.ID, Name: "MSc Data Science"})

	s.True(dErrors.HasCode(s.svc.DeleteCountry(s.ctx(), s.admin, ca.ID), dErrors.CodeConflict))
	s.True(dErrors.HasCode(s.svc.DeleteUniversity(s.ctx(), s.admin, u.ID), dErrors.CodeConflict))

	s.Require().NoError(s.svc.DeleteCourse(s.ctx(), s.admin, c.ID))
	s.Require().NoError(s.svc.DeleteUniversity(s.ctx(), s.admin, u.ID))
	s.Require().NoError(s.svc.DeleteCountry(s.ctx(), s.admin, ca.ID))

	_, err := s.svc.GetCountry(s.ctx(), ca.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CatalogServiceSuite) TestParentsMustExist() {
	_, err := s.svc.CreateUniversity(s.ctx(), s.admin, models.CreateUniversityInput{CountryID: domain.New[domain.CountryID](), Name: "Ghost"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.CreateCourse(s.ctx(), s.admin, models.CreateCourseInput{UniversityID: domain.New[domain.UniversityID](), Name: "Ghost"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.CreateCourse(s.ctx(), s.admin, models.CreateCourseInput{Name: "No university"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CatalogServiceSuite) TestCourseCarriesNames() {
	ca := s.country("Canada", "CA")
	ubc := s.university(ca.ID, "UBC")
	c := s.course(models.CreateCourseInput{UniversityID: ubc.ID, Name: "BSc Physics", Fee: 3_200_000})
	s.Equal("UBC", c.UniversityName)
	s.Equal("Canada", c.CountryName)

	uk := s.country("United Kingdom", "GB")
	leeds := s.university(uk.ID, "Leeds")
	updated, err := s.svc.UpdateCourse(s.ctx(), s.admin, c.ID, models.UpdateCourseInput{UniversityID: &leeds.ID})
	s.Require().NoError(err)
	s.Equal("Leeds", updated.UniversityName)
	s.Equal("United Kingdom", updated.CountryName)

	negative := int64(-1)
	_, err = s.svc.UpdateCourse(s.ctx(), s.admin, c.ID, models.UpdateCourseInput{Fee: &negative})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	detail, err := s.svc.GetUniversity(s.ctx(), leeds.ID)
	s.Require().NoError(err)
	s.Equal([]string{"BSc Physics"}, courseNames(detail.Courses))
}

func (s *CatalogServiceSuite) TestSearchCourses() {
	ca := s.country("Canada", "CA")
	uk := s.country("United Kingdom", "GB")
	ubc := s.university(ca.ID, "UBC")
	leeds := s.university(uk.ID, "Leeds")
	s.course(models.CreateCourseInput{UniversityID: ubc.ID, Name: "MSc Computing", Level: "Postgraduate", IntakeMonth: "January, September"})
	s.course(models.CreateCourseInput{UniversityID: leeds.ID, Name: "BSc Computing", Level: "Undergraduate", IntakeMonth: "September"})
	s.course(models.CreateCourseInput{UniversityID: leeds.ID, Name: "MA History", Level: "Postgraduate", IntakeMonth: "January"})

	cases := []struct {
		name   string
		filter models.CourseFilter
		want   []string
	}{
		{"no filter is newest first", models.CourseFilter{}, []string{"MA History", "BSc Computing", "MSc Computing"}},
		{"search matches course or university", models.CourseFilter{Search: "leeds"}, []string{"MA History", "BSc Computing"}},
		{"search is literal", models.CourseFilter{Search: "%"}, []string{}},
		{"search and intake combine", models.CourseFilter{Search: "computing", Intakes: []string{"january"}}, []string{"MSc Computing"}},
		{"levels any-match", models.CourseFilter{Levels: []string{"Postgraduate"}}, []string{"MA History", "MSc Computing"}},
		{"country and level", models.CourseFilter{Countries: []string{"United Kingdom"}, Levels: []string{"Postgraduate"}}, []string{"MA History"}},
		{"blank values are ignored", models.CourseFilter{Universities: []string{" ", "UBC"}}, []string{"MSc Computing"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, err := s.svc.SearchCourses(s.ctx(), tc.filter)
			s.Require().NoError(err)
			s.Equal(tc.want, courseNames(got))
		})
	}

	opts, err := s.svc.FilterOptions(s.ctx())
	s.Require().NoError(err)
	s.Equal([]string{"Canada", "United Kingdom"}, opts.Countries)
	s.Equal([]string{"Leeds", "UBC"}, opts.Universities)
	s.Equal([]string{"Postgraduate", "Undergraduate"}, opts.Levels)
}
