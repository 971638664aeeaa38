package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

type University struct {
	ID          domain.UniversityID `json:"id"`
	CountryID   domain.CountryID    `json:"country_id"`
	CountryName string              `json:"country_name"`
	Name        string              `json:"name"`
	City        string              `json:"city"`
	LogoURL     string              `json:"logo_url"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// UniversityDetail is a university with its courses.
type UniversityDetail struct {
	*University
	Courses []*Course `json:"courses"`
}

type CreateUniversityInput struct {
	CountryID domain.CountryID `json:"country_id"`
	Name      string           `json:"name"`
	City      string           `json:"city"`
	LogoURL   string           `json:"logo_url"`
}

func (in *CreateUniversityInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
}

func (in *CreateUniversityInput) Validate() error {
	if domain.IsNil(in.CountryID) {
		return dErrors.New(dErrors.CodeValidation, "country_id is required")
	}
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return validateLogo(in.LogoURL)
}

type UpdateUniversityInput struct {
	CountryID *domain.CountryID `json:"country_id,omitempty"`
	Name      *string           `json:"name,omitempty"`
	City      *string           `json:"city,omitempty"`
	LogoURL   *string           `json:"logo_url,omitempty"`
}

func (in *UpdateUniversityInput) Normalize() {
	pstrings.TrimPtr(in.Name, in.City, in.LogoURL)
}

func (in *UpdateUniversityInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if in.LogoURL != nil {
		return validateLogo(*in.LogoURL)
	}
	return nil
}

// Apply merges the update into u.
func (in *UpdateUniversityInput) Apply(u *University) {
	if in.CountryID != nil {
		u.CountryID = *in.CountryID
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.City != nil {
		u.City = *in.City
	}
	if in.LogoURL != nil {
		u.LogoURL = *in.LogoURL
	}
}

func validateLogo(url string) error {
	if url != "" && !govalidator.IsURL(url) {
		return dErrors.New(dErrors.CodeValidation, "logo_url must be a URL")
	}
	return nil
}
