// Package models holds a lead's study-abroad application: one application per
// lead with one-to-one sections and repeatable record lists.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

// Section names an updatable part of an application. It is the new_state of
// the LEAD_APPLICATION_UPDATED event.
type Section string

const (
	SectionPersonal       Section = "personal"
	SectionEducation      Section = "education"
	SectionPreferences    Section = "preferences"
	SectionTests          Section = "tests"
	SectionWorkExperience Section = "work_experience"
	SectionVisa           Section = "visa"
	SectionDocuments      Section = "documents"
)

// Date is a calendar date carried as "2006-01-02" in JSON and DATE in SQL.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, dErrors.Newf(dErrors.CodeValidation, "invalid date %q, want YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(time.DateOnly), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
	case string:
		return d.UnmarshalJSON([]byte(`"` + v + `"`))
	case []byte:
		return d.UnmarshalJSON([]byte(`"` + string(v) + `"`))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

// Application is the root record, created lazily on the first section update.
type Application struct {
	ID             domain.ApplicationID `json:"id"`
	LeadID         domain.LeadID        `json:"lead_id"`
	StudentID      string               `json:"student_id"`
	DateOfBirth    Date                 `json:"date_of_birth"`
	Gender         string               `json:"gender"`
	Nationality    string               `json:"nationality"`
	PassportNumber string               `json:"passport_number"`
	MaritalStatus  string               `json:"marital_status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type Family struct {
	FatherName            string    `json:"father_name"`
	MotherName            string    `json:"mother_name"`
	EmergencyContactName  string    `json:"emergency_contact_name"`
	EmergencyContactPhone string    `json:"emergency_contact_phone"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type Preferences struct {
	PreferredCountry string    `json:"preferred_country"`
	CourseName       string    `json:"course_name"`
	CourseType       string    `json:"course_type"`
	Intake           string    `json:"intake"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Visa struct {
	VisaCountry    string    `json:"visa_country"`
	VisaType       string    `json:"visa_type"`
	VisaStatus     string    `json:"visa_status"`
	RefusalHistory string    `json:"refusal_history"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Documents holds uploaded file URLs. Single slots are replaced on upload;
// list slots accumulate.
type Documents struct {
	ProfilePhoto          string    `json:"profile_photo"`
	PassportCopy          string    `json:"passport_copy"`
	EnglishTestCert       string    `json:"english_test_cert"`
	SOP                   string    `json:"sop"`
	CVResume              string    `json:"cv_resume"`
	FinancialDocuments    string    `json:"financial_documents"`
	OtherDocuments        string    `json:"other_documents"`
	AcademicDocuments     []string  `json:"academic_documents"`
	RecommendationLetters []string  `json:"recommendation_letters"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Detail is an application with every section loaded. Absent one-to-one
// sections are null; absent lists are empty.
type Detail struct {
	*Application
	Family         *Family           `json:"family_details"`
	Preferences    *Preferences      `json:"preferences"`
	Visa           *Visa             `json:"visa_details"`
	Documents      *Documents        `json:"documents"`
	Education      []*Education      `json:"education"`
	Tests          []*TestScore      `json:"tests"`
	WorkExperience []*WorkExperience `json:"work_experience"`
}

// PersonalInput updates the application's personal fields and family details.
type PersonalInput struct {
	DateOfBirth           Date   `json:"date_of_birth"`
	Gender                string `json:"gender"`
	Nationality           string `json:"nationality"`
	PassportNumber        string `json:"passport_number"`
	MaritalStatus         string `json:"marital_status"`
	FatherName            string `json:"father_name"`
	MotherName            string `json:"mother_name"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
}

func (in *PersonalInput) Normalize() {
	trim(&in.Gender, &in.Nationality, &in.MaritalStatus, &in.FatherName, &in.MotherName,
		&in.EmergencyContactName, &in.EmergencyContactPhone)
	in.PassportNumber = strings.ToUpper(strings.TrimSpace(in.PassportNumber))
}

func (in *PersonalInput) Validate() error {
	if !in.DateOfBirth.IsZero() && in.DateOfBirth.After(time.Now()) {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth cannot be in the future")
	}
	if len(in.PassportNumber) > 20 {
		return dErrors.New(dErrors.CodeValidation, "passport_number must be at most 20 characters")
	}
	return nil
}

type PreferencesInput struct {
	PreferredCountry string `json:"preferred_country"`
	CourseName       string `json:"course_name"`
	CourseType       string `json:"course_type"`
	Intake           string `json:"intake"`
}

func (in *PreferencesInput) Normalize() {
	trim(&in.PreferredCountry, &in.CourseName, &in.CourseType, &in.Intake)
}

type VisaInput struct {
	VisaCountry    string `json:"visa_country"`
	VisaType       string `json:"visa_type"`
	VisaStatus     string `json:"visa_status"`
	RefusalHistory string `json:"refusal_history"`
}

func (in *VisaInput) Normalize() {
	trim(&in.VisaCountry, &in.VisaType, &in.VisaStatus, &in.RefusalHistory)
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
