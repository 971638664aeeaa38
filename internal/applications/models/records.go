package models

import (
	"encoding/json"
	"strings"
	"time"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

// RecordKind discriminates the repeatable record lists.
type RecordKind string

const (
	KindEducation      RecordKind = "education"
	KindTest           RecordKind = "test"
	KindWorkExperience RecordKind = "work_experience"
)

// MaxRecordsPerRequest bounds one list update.
const MaxRecordsPerRequest = 20

// Record is the stored form of any list entry.
type Record struct {
	ID        domain.RecordID
	Kind      RecordKind
	Position  int
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is implemented by the typed list entries. An entry with an id updates
// that record; one without creates a new record.
type Entry interface {
	RecordID() *domain.RecordID
	SetRecordID(domain.RecordID)
	Kind() RecordKind
	Validate() error
	missing() bool
}

type Education struct {
	ID            *domain.RecordID `json:"id,omitempty"`
	Institution   string           `json:"institution"`
	Qualification string           `json:"qualification"`
	FieldOfStudy  string           `json:"field_of_study"`
	StartYear     int              `json:"start_year,omitempty"`
	EndYear       int              `json:"end_year,omitempty"`
	Grade         string           `json:"grade"`
}

func (e *Education) RecordID() *domain.RecordID     { return e.ID }
func (e *Education) SetRecordID(id domain.RecordID) { e.ID = &id }
func (e *Education) Kind() RecordKind               { return KindEducation }
func (e *Education) missing() bool                  { return e == nil }

func (e *Education) Validate() error {
	e.Institution = strings.TrimSpace(e.Institution)
	if e.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "education institution is required")
	}
	if e.StartYear != 0 && e.EndYear != 0 && e.EndYear < e.StartYear {
		return dErrors.New(dErrors.CodeValidation, "education end_year is before start_year")
	}
	return nil
}

type TestScore struct {
	ID           *domain.RecordID `json:"id,omitempty"`
	TestType     string           `json:"test_type"`
	OverallScore string           `json:"overall_score"`
	Listening    string           `json:"listening,omitempty"`
	Reading      string           `json:"reading,omitempty"`
	Writing      string           `json:"writing,omitempty"`
	Speaking     string           `json:"speaking,omitempty"`
	TestDate     Date             `json:"test_date"`
}

func (t *TestScore) RecordID() *domain.RecordID     { return t.ID }
func (t *TestScore) SetRecordID(id domain.RecordID) { t.ID = &id }
func (t *TestScore) Kind() RecordKind               { return KindTest }
func (t *TestScore) missing() bool                  { return t == nil }

func (t *TestScore) Validate() error {
	t.TestType = strings.ToUpper(strings.TrimSpace(t.TestType))
	if t.TestType == "" {
		return dErrors.New(dErrors.CodeValidation, "test_type is required")
	}
	return nil
}

type WorkExperience struct {
	ID               *domain.RecordID `json:"id,omitempty"`
	Company          string           `json:"company"`
	Designation      string           `json:"designation"`
	StartDate        Date             `json:"start_date"`
	EndDate          Date             `json:"end_date"`
	Responsibilities string           `json:"responsibilities"`
}

func (w *WorkExperience) RecordID() *domain.RecordID     { return w.ID }
func (w *WorkExperience) SetRecordID(id domain.RecordID) { w.ID = &id }
func (w *WorkExperience) Kind() RecordKind               { return KindWorkExperience }
func (w *WorkExperience) missing() bool                  { return w == nil }

func (w *WorkExperience) Validate() error {
	w.Company = strings.TrimSpace(w.Company)
	if w.Company == "" {
		return dErrors.New(dErrors.CodeValidation, "company is required")
	}
	if !w.StartDate.IsZero() && !w.EndDate.IsZero() && w.EndDate.Before(w.StartDate.Time) {
		return dErrors.New(dErrors.CodeValidation, "end_date is before start_date")
	}
	return nil
}

// RecordsInput is the body of a list section update.
type RecordsInput[T Entry] struct {
	Records []T `json:"records"`
}

func (in *RecordsInput[T]) Validate() error {
	if len(in.Records) == 0 {
		return dErrors.New(dErrors.CodeValidation, "records are required")
	}
	if len(in.Records) > MaxRecordsPerRequest {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d records per request", MaxRecordsPerRequest)
	}
	for _, r := range in.Records {
		if r.missing() {
			return dErrors.New(dErrors.CodeValidation, "records must not contain null")
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type (
	EducationInput      = RecordsInput[*Education]
	TestsInput          = RecordsInput[*TestScore]
	WorkExperienceInput = RecordsInput[*WorkExperience]
)

// DecodeRecords turns stored records into typed entries with ids filled in.
func DecodeRecords[T any, P interface {
	*T
	Entry
}](records []Record) ([]P, error) {
	out := make([]P, 0, len(records))
	for _, r := range records {
		var v T
		p := P(&v)
		if err := json.Unmarshal(r.Body, p); err != nil {
			return nil, err
		}
		p.SetRecordID(r.ID)
		out = append(out, p)
	}
	return out, nil
}
