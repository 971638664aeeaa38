package models

import (
	"slices"
	"strings"
	"time"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

// Course fees are in minor currency units.
type Course struct {
	ID             domain.CourseID     `json:"id"`
	UniversityID   domain.UniversityID `json:"university_id"`
	UniversityName string              `json:"university_name"`
	CountryName    string              `json:"country_name"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Level          string              `json:"level"`
	Category       string              `json:"category"`
	DurationMonths int                 `json:"duration_months"`
	FeeType        string              `json:"fee_type"`
	OriginalFee    int64               `json:"original_fee"`
	Fee            int64               `json:"fee"`
	ApplicationFee int64               `json:"application_fee"`
	IntakeMonth    string              `json:"intake_month"`
	Commission     string              `json:"commission"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Validate checks a complete course, after create or a merged update.
func (c *Course) Validate() error {
	switch {
	case domain.IsNil(c.UniversityID):
		return dErrors.New(dErrors.CodeValidation, "university_id is required")
	case c.Name == "":
		return dErrors.New(dErrors.CodeValidation, "name is required")
	case c.DurationMonths < 0:
		return dErrors.New(dErrors.CodeValidation, "duration_months cannot be negative")
	case c.Fee < 0 || c.OriginalFee < 0 || c.ApplicationFee < 0:
		return dErrors.New(dErrors.CodeValidation, "fees cannot be negative")
	}
	return nil
}

type CreateCourseInput struct {
	UniversityID   domain.UniversityID `json:"university_id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Level          string              `json:"level"`
	Category       string              `json:"category"`
	DurationMonths int                 `json:"duration_months"`
	FeeType        string              `json:"fee_type"`
	OriginalFee    int64               `json:"original_fee"`
	Fee            int64               `json:"fee"`
	ApplicationFee int64               `json:"application_fee"`
	IntakeMonth    string              `json:"intake_month"`
	Commission     string              `json:"commission"`
}

func (in *CreateCourseInput) Normalize() {
	pstrings.TrimPtr(&in.Name, &in.Description, &in.Level, &in.Category, &in.FeeType, &in.IntakeMonth, &in.Commission)
}

// UpdateCourseInput is a partial update.
type UpdateCourseInput struct {
	UniversityID   *domain.UniversityID `json:"university_id,omitempty"`
	Name           *string              `json:"name,omitempty"`
	Description    *string              `json:"description,omitempty"`
	Level          *string              `json:"level,omitempty"`
	Category       *string              `json:"category,omitempty"`
	DurationMonths *int                 `json:"duration_months,omitempty"`
	FeeType        *string              `json:"fee_type,omitempty"`
	OriginalFee    *int64               `json:"original_fee,omitempty"`
	Fee            *int64               `json:"fee,omitempty"`
	ApplicationFee *int64               `json:"application_fee,omitempty"`
	IntakeMonth    *string              `json:"intake_month,omitempty"`
	Commission     *string              `json:"commission,omitempty"`
}

func (in *UpdateCourseInput) Normalize() {
	pstrings.TrimPtr(in.Name, in.Description, in.Level, in.Category, in.FeeType, in.IntakeMonth, in.Commission)
}

// Apply merges the update into c.
func (in *UpdateCourseInput) Apply(c *Course) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int64, src *int64) {
		if src != nil {
			*dst = *src
		}
	}
	if in.UniversityID != nil {
		c.UniversityID = *in.UniversityID
	}
	set(&c.Name, in.Name)
	set(&c.Description, in.Description)
	set(&c.Level, in.Level)
	set(&c.Category, in.Category)
	set(&c.FeeType, in.FeeType)
	set(&c.IntakeMonth, in.IntakeMonth)
	set(&c.Commission, in.Commission)
	if in.DurationMonths != nil {
		c.DurationMonths = *in.DurationMonths
	}
	setInt(&c.OriginalFee, in.OriginalFee)
	setInt(&c.Fee, in.Fee)
	setInt(&c.ApplicationFee, in.ApplicationFee)
}

// CourseFilter narrows a course search. Search matches course or university
// names; Intakes match any month contained in the course's intake list. All
// set criteria must hold.
type CourseFilter struct {
	Search       string
	Countries    []string
	Levels       []string
	Universities []string
	Intakes      []string
}

func (f *CourseFilter) Normalize() {
	f.Search = strings.TrimSpace(f.Search)
	f.Countries = pstrings.DedupeAndTrim(f.Countries)
	f.Levels = pstrings.DedupeAndTrim(f.Levels)
	f.Universities = pstrings.DedupeAndTrim(f.Universities)
	f.Intakes = pstrings.DedupeAndTrim(f.Intakes)
}

// Matches reports whether c satisfies the filter.
func (f CourseFilter) Matches(c *Course) bool {
	if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.UniversityName, f.Search) {
		return false
	}
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, c.Level) {
		return false
	}
	if len(f.Universities) > 0 && !slices.Contains(f.Universities, c.UniversityName) {
		return false
	}
	if len(f.Countries) > 0 && !slices.Contains(f.Countries, c.CountryName) {
		return false
	}
	if len(f.Intakes) > 0 && !slices.ContainsFunc(f.Intakes, func(m string) bool { return containsFold(c.IntakeMonth, m) }) {
		return false
	}
	return true
}

// FilterOptions feeds the course search sidebar.
type FilterOptions struct {
	Countries    []string `json:"countries"`
	Universities []string `json:"universities"`
	Levels       []string `json:"levels"`
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
