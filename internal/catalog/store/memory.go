// Package store persists the course catalog.
package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"idbcrm/internal/catalog/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// InMemory is a map-backed catalog store. It enforces the same uniqueness
// and reference rules as the Postgres schema.
type InMemory struct {
	mu           sync.RWMutex
	countries    map[domain.CountryID]models.Country
	universities map[domain.UniversityID]models.University
	courses      map[domain.CourseID]models.Course
}

func NewInMemory() *InMemory {
	return &InMemory{
		countries:    make(map[domain.CountryID]models.Country),
		universities: make(map[domain.UniversityID]models.University),
		courses:      make(map[domain.CourseID]models.Course),
	}
}

func (s *InMemory) CreateCountry(_ context.Context, c *models.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(c.ID, c.Name) {
		return sentinel.ErrConflict
	}
	s.countries[c.ID] = *c
	return nil
}

func (s *InMemory) FindCountry(_ context.Context, id domain.CountryID) (*models.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.countries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.withCount(c), nil
}

// ListCountries returns countries by name with their university counts.
func (s *InMemory) ListCountries(_ context.Context) ([]*models.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Country, 0, len(s.countries))
	for _, c := range s.countries {
		out = append(out, s.withCount(c))
	}
	slices.SortFunc(out, func(a, b *models.Country) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemory) UpdateCountry(_ context.Context, c *models.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countries[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTaken(c.ID, c.Name) {
		return sentinel.ErrConflict
	}
	s.countries[c.ID] = *c
	return nil
}

// DeleteCountry fails with ErrConflict while universities reference it.
func (s *InMemory) DeleteCountry(_ context.Context, id domain.CountryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countries[id]; !ok {
		return sentinel.ErrNotFound
	}
	for _, u := range s.universities {
		if u.CountryID == id {
			return sentinel.ErrConflict
		}
	}
	delete(s.countries, id)
	return nil
}

func (s *InMemory) CreateUniversity(_ context.Context, u *models.University) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countries[u.CountryID]; !ok {
		return sentinel.ErrConflict
	}
	s.universities[u.ID] = *u
	return nil
}

func (s *InMemory) FindUniversity(_ context.Context, id domain.UniversityID) (*models.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.universities[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.joinUniversity(u), nil
}

// ListUniversities returns universities by name, optionally of one country.
func (s *InMemory) ListUniversities(_ context.Context, countryID *domain.CountryID) ([]*models.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.University{}
	for _, u := range s.universities {
		if countryID == nil || u.CountryID == *countryID {
			out = append(out, s.joinUniversity(u))
		}
	}
	slices.SortFunc(out, func(a, b *models.University) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemory) UpdateUniversity(_ context.Context, u *models.University) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.universities[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.countries[u.CountryID]; !ok {
		return sentinel.ErrConflict
	}
	s.universities[u.ID] = *u
	return nil
}

// DeleteUniversity fails with ErrConflict while courses reference it.
func (s *InMemory) DeleteUniversity(_ context.Context, id domain.UniversityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.universities[id]; !ok {
		return sentinel.ErrNotFound
	}
	for _, c := range s.courses {
		if c.UniversityID == id {
			return sentinel.ErrConflict
		}
	}
	delete(s.universities, id)
	return nil
}

func (s *InMemory) CreateCourse(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.universities[c.UniversityID]; !ok {
		return sentinel.ErrConflict
	}
	s.courses[c.ID] = *c
	return nil
}

func (s *InMemory) FindCourse(_ context.Context, id domain.CourseID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.joinCourse(c), nil
}

// SearchCourses returns matching courses newest first.
func (s *InMemory) SearchCourses(_ context.Context, f models.CourseFilter) ([]*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Course{}
	for _, c := range s.courses {
		if joined := s.joinCourse(c); f.Matches(joined) {
			out = append(out, joined)
		}
	}
	slices.SortFunc(out, func(a, b *models.Course) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// CoursesOf returns a university's courses by name.
func (s *InMemory) CoursesOf(_ context.Context, id domain.UniversityID) ([]*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Course{}
	for _, c := range s.courses {
		if c.UniversityID == id {
			out = append(out, s.joinCourse(c))
		}
	}
	slices.SortFunc(out, func(a, b *models.Course) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemory) UpdateCourse(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.universities[c.UniversityID]; !ok {
		return sentinel.ErrConflict
	}
	s.courses[c.ID] = *c
	return nil
}

func (s *InMemory) DeleteCourse(_ context.Context, id domain.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.courses, id)
	return nil
}

// FilterOptions returns sorted distinct country, university and non-empty
// level names.
func (s *InMemory) FilterOptions(_ context.Context) (*models.FilterOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts := &models.FilterOptions{Countries: []string{}, Universities: []string{}, Levels: []string{}}
	for _, c := range s.countries {
		opts.Countries = append(opts.Countries, c.Name)
	}
	for _, u := range s.universities {
		opts.Universities = append(opts.Universities, u.Name)
	}
	for _, c := range s.courses {
		if c.Level != "" {
			opts.Levels = append(opts.Levels, c.Level)
		}
	}
	for _, list := range []*[]string{&opts.Countries, &opts.Universities, &opts.Levels} {
		slices.Sort(*list)
		*list = slices.Compact(*list)
	}
	return opts, nil
}

func (s *InMemory) nameTaken(id domain.CountryID, name string) bool {
	for _, c := range s.countries {
		if c.ID != id && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *InMemory) withCount(c models.Country) *models.Country {
	c.UniversityCount = 0
	for _, u := range s.universities {
		if u.CountryID == c.ID {
			c.UniversityCount++
		}
	}
	return &c
}

func (s *InMemory) joinUniversity(u models.University) *models.University {
	u.CountryName = s.countries[u.CountryID].Name
	return &u
}

func (s *InMemory) joinCourse(c models.Course) *models.Course {
	u := s.universities[c.UniversityID]
	c.UniversityName = u.Name
	c.CountryName = s.countries[u.CountryID].Name
	return &c
}
