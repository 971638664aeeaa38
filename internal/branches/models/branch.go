// Package models holds the branch hierarchy.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	partnerModels "idbcrm/internal/partners/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

// Type is a branch's place in the organization.
type Type string

const (
	TypeHeadOffice Type = "HeadOffice"
	TypeRegional   Type = "Regional"
	TypeBranch     Type = "Branch"
)

func (t Type) IsValid() bool {
	return t == TypeHeadOffice || t == TypeRegional || t == TypeBranch
}

// Branch is an office. ParentID links it into a tree.
type Branch struct {
	ID         domain.BranchID  `json:"id"`
	Name       string           `json:"name"`
	Code       string           `json:"code"`
	Type       Type             `json:"type"`
	Address    string           `json:"address"`
	Phone      string           `json:"phone"`
	ParentID   *domain.BranchID `json:"parent_id,omitempty"`
	ParentName string           `json:"parent_name,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Detail is a branch with its neighbours in the tree and its members.
type Detail struct {
	*Branch
	Parent   *Branch                  `json:"parent,omitempty"`
	Children []*Branch                `json:"children"`
	Members  []*partnerModels.Partner `json:"members"`
}

const codePattern = `^[A-Z0-9][A-Z0-9-]{1,19}$`

// CreateBranchInput creates a branch.
type CreateBranchInput struct {
	Name     string           `json:"name"`
	Code     string           `json:"code"`
	Type     Type             `json:"type"`
	Address  string           `json:"address"`
	Phone    string           `json:"phone"`
	ParentID *domain.BranchID `json:"parent_id,omitempty"`
}

func (in *CreateBranchInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Type == "" {
		in.Type = TypeBranch
	}
	if in.ParentID != nil && domain.IsNil(*in.ParentID) {
		in.ParentID = nil
	}
}

func (in *CreateBranchInput) Validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !govalidator.Matches(in.Code, codePattern) {
		return dErrors.New(dErrors.CodeValidation, "code must be 2-20 letters, digits or hyphens, e.g. DEL-001")
	}
	if !in.Type.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "type must be one of HeadOffice, Regional, Branch")
	}
	return nil
}

// UpdateBranchInput is a partial update.
type UpdateBranchInput struct {
	Name        *string          `json:"name,omitempty"`
	Code        *string          `json:"code,omitempty"`
	Type        *Type            `json:"type,omitempty"`
	Address     *string          `json:"address,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	ParentID    *domain.BranchID `json:"parent_id,omitempty"`
	ClearParent bool             `json:"clear_parent,omitempty"`
}

func (in *UpdateBranchInput) Normalize() {
	pstrings.TrimPtr(in.Name, in.Address, in.Phone)
	if in.Code != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Code))
		in.Code = &c
	}
}

func (in *UpdateBranchInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if in.Code != nil && !govalidator.Matches(*in.Code, codePattern) {
		return dErrors.New(dErrors.CodeValidation, "code must be 2-20 letters, digits or hyphens, e.g. DEL-001")
	}
	if in.Type != nil && !in.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "type must be one of HeadOffice, Regional, Branch")
	}
	if in.ParentID != nil && in.ClearParent {
		return dErrors.New(dErrors.CodeValidation, "parent_id and clear_parent are mutually exclusive")
	}
	return nil
}
