// Package models holds the lead aggregate: a prospective student tracked
// from intake to conversion.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/email"
	pstrings "idbcrm/pkg/platform/strings"
)

// Status is a lead's pipeline stage.
type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusHot        Status = "hot"
	StatusCold       Status = "cold"
	StatusConverted  Status = "converted"
	StatusRejected   Status = "rejected"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNew, StatusAssigned, StatusInProgress, StatusHot, StatusCold, StatusConverted, StatusRejected}

func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus accepts any case and hyphenated spellings.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid lead status %q", raw)
	}
	return s, nil
}

// Type distinguishes an enquiry from an enrolled student.
type Type string

const (
	TypeLead    Type = "lead"
	TypeStudent Type = "student"
)

// Lead is a prospective student.
type Lead struct {
	ID               domain.LeadID     `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Mobile           string            `json:"mobile"`
	City             string            `json:"city"`
	Address          string            `json:"address"`
	Qualifications   string            `json:"qualifications"`
	PreferredCountry string            `json:"preferred_country"`
	Type             Type              `json:"type"`
	Purpose          string            `json:"purpose"`
	UTMSource        string            `json:"utm_source"`
	UTMMedium        string            `json:"utm_medium"`
	UTMCampaign      string            `json:"utm_campaign"`
	Status           Status            `json:"status"`
	BranchID         *domain.BranchID  `json:"branch_id,omitempty"`
	AssignedTo       *domain.PartnerID `json:"assigned_to,omitempty"`
	CreatedBy        domain.PartnerID  `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (l *Lead) ScopeBranchID() *domain.BranchID { return l.BranchID }
func (l *Lead) ScopeOwnerID() domain.PartnerID  { return l.CreatedBy }

// Contact holds the editable contact and intake fields shared by create and update.
type Contact struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	City             string `json:"city"`
	Address          string `json:"address"`
	Qualifications   string `json:"qualifications"`
	PreferredCountry string `json:"preferred_country"`
	Purpose          string `json:"purpose"`
	UTMSource        string `json:"utm_source"`
	UTMMedium        string `json:"utm_medium"`
	UTMCampaign      string `json:"utm_campaign"`
}

// CreateLeadInput is an intake. BranchID is honoured for admins only.
type CreateLeadInput struct {
	Contact
	Type       Type              `json:"type"`
	Status     Status            `json:"status"`
	BranchID   *domain.BranchID  `json:"branch_id,omitempty"`
	AssignedTo *domain.PartnerID `json:"assigned_to,omitempty"`
}

func (in *CreateLeadInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = email.Normalize(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.City = strings.TrimSpace(in.City)
	in.PreferredCountry = strings.TrimSpace(in.PreferredCountry)
	in.UTMSource = strings.TrimSpace(in.UTMSource)
	if in.Type == "" {
		in.Type = TypeLead
	}
	if in.Status == "" {
		in.Status = StatusNew
	} else if st, err := ParseStatus(string(in.Status)); err == nil {
		in.Status = st
	}
}

func (in *CreateLeadInput) Validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if in.Email == "" && in.Mobile == "" {
		return dErrors.New(dErrors.CodeValidation, "email or mobile is required")
	}
	if in.Email != "" && !email.IsValid(in.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if in.Mobile != "" && !govalidator.StringLength(in.Mobile, "7", "20") {
		return dErrors.New(dErrors.CodeValidation, "mobile must be 7 to 20 characters")
	}
	if in.Type != TypeLead && in.Type != TypeStudent {
		return dErrors.New(dErrors.CodeValidation, "type must be lead or student")
	}
	if !in.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid lead status %q", in.Status)
	}
	return nil
}

// UpdateLeadInput is a partial update. A nil field is left unchanged.
type UpdateLeadInput struct {
	Name             *string           `json:"name,omitempty"`
	Email            *string           `json:"email,omitempty"`
	Mobile           *string           `json:"mobile,omitempty"`
	City             *string           `json:"city,omitempty"`
	Address          *string           `json:"address,omitempty"`
	Qualifications   *string           `json:"qualifications,omitempty"`
	PreferredCountry *string           `json:"preferred_country,omitempty"`
	Purpose          *string           `json:"purpose,omitempty"`
	Type             *Type             `json:"type,omitempty"`
	Status           *Status           `json:"status,omitempty"`
	AssignedTo       *domain.PartnerID `json:"assigned_to,omitempty"`
	BranchID         *domain.BranchID  `json:"branch_id,omitempty"`
}

func (in *UpdateLeadInput) Normalize() {
	pstrings.TrimPtr(in.Name, in.Mobile, in.City, in.Address, in.Qualifications, in.PreferredCountry, in.Purpose)
	if in.Email != nil {
		*in.Email = email.Normalize(*in.Email)
	}
	if in.Status != nil {
		if s, err := ParseStatus(string(*in.Status)); err == nil {
			in.Status = &s
		}
	}
}

func (in *UpdateLeadInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if in.Email != nil && *in.Email != "" && !email.IsValid(*in.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if in.Status != nil && !in.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid lead status %q", *in.Status)
	}
	if in.Type != nil && *in.Type != TypeLead && *in.Type != TypeStudent {
		return dErrors.New(dErrors.CodeValidation, "type must be lead or student")
	}
	return nil
}

// BulkStatusInput sets one status on many leads.
type BulkStatusInput struct {
	IDs    []domain.LeadID `json:"ids"`
	Status Status          `json:"status"`
}

// MaxBulkIDs bounds one bulk status request.
const MaxBulkIDs = 500

func (in *BulkStatusInput) Normalize() {
	if s, err := ParseStatus(string(in.Status)); err == nil {
		in.Status = s
	}
	seen := make(map[domain.LeadID]bool, len(in.IDs))
	ids := in.IDs[:0]
	for _, id := range in.IDs {
		if !seen[id] && !domain.IsNil(id) {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	in.IDs = ids
}

func (in *BulkStatusInput) Validate() error {
	if len(in.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids are required")
	}
	if len(in.IDs) > MaxBulkIDs {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d ids per request", MaxBulkIDs)
	}
	if !in.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid lead status %q", in.Status)
	}
	return nil
}

// ListFilter narrows a lead listing within the caller's scope.
type ListFilter struct {
	Statuses   []Status
	Search     string
	AssignedTo *domain.PartnerID
	Type       Type
	Limit      int
	Offset     int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps paging and trims the search term.
func (f *ListFilter) Normalize() {
	f.Search = strings.TrimSpace(f.Search)
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches evaluates the non-scope part of the filter in memory.
func (f ListFilter) Matches(l *Lead) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if l.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.AssignedTo != nil && (l.AssignedTo == nil || *l.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.Email), q) &&
			!strings.Contains(l.Mobile, q) {
			return false
		}
	}
	return true
}

// ListResult is one page of leads.
type ListResult struct {
	Items  []*Lead `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
