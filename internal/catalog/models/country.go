// Package models holds the study-abroad catalog: countries, their
// universities, and the courses those universities offer.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

type Country struct {
	ID              domain.CountryID `json:"id"`
	Name            string           `json:"name"`
	Code            string           `json:"code"`
	UniversityCount int              `json:"university_count"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CountryDetail is a country with its universities.
type CountryDetail struct {
	*Country
	Universities []*University `json:"universities"`
}

type CreateCountryInput struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (in *CreateCountryInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
}

func (in *CreateCountryInput) Validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return validateCode(in.Code)
}

type UpdateCountryInput struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}

func (in *UpdateCountryInput) Normalize() {
	pstrings.TrimPtr(in.Name)
	if in.Code != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Code))
		in.Code = &c
	}
}

func (in *UpdateCountryInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if in.Code != nil {
		return validateCode(*in.Code)
	}
	return nil
}

func validateCode(code string) error {
	if code != "" && !(govalidator.IsISO3166Alpha2(code) || govalidator.IsISO3166Alpha3(code)) {
		return dErrors.New(dErrors.CodeValidation, "code must be an ISO 3166 alpha-2 or alpha-3 code")
	}
	return nil
}
