// Package models holds the partner (system user) aggregate.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/internal/partners/secrets"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/email"
)

// Partner is a person who signs in: an admin, branch manager, staff member or agent.
type Partner struct {
	ID           domain.PartnerID `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Mobile       string           `json:"mobile"`
	PasswordHash string           `json:"-"`
	Role         scope.Role       `json:"role"`
	BranchID     *domain.BranchID `json:"branch_id,omitempty"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Actor is the identity a token issued for p carries.
func (p *Partner) Actor() scope.Actor {
	var branch *domain.BranchID
	if p.BranchID != nil {
		b := *p.BranchID
		branch = &b
	}
	return scope.Actor{ID: p.ID, Role: p.Role, BranchID: branch}
}

// InBranch reports whether p belongs to branch.
func (p *Partner) InBranch(branch domain.BranchID) bool {
	return p.BranchID != nil && *p.BranchID == branch
}

// Filter narrows a partner listing. Nil fields do not filter.
type Filter struct {
	BranchID *domain.BranchID
	ID       *domain.PartnerID
}

// Matches evaluates the filter in memory.
func (f Filter) Matches(p *Partner) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if f.BranchID != nil && !p.InBranch(*f.BranchID) {
		return false
	}
	return true
}

// CreatePartnerInput creates a partner. Only admins may call it.
type CreatePartnerInput struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Mobile   string           `json:"mobile"`
	Password string           `json:"password"`
	Role     string           `json:"role"`
	BranchID *domain.BranchID `json:"branch_id,omitempty"`
}

func (in *CreatePartnerInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = email.Normalize(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Role = strings.TrimSpace(in.Role)
	if in.BranchID != nil && domain.IsNil(*in.BranchID) {
		in.BranchID = nil
	}
}

func (in *CreatePartnerInput) Validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !govalidator.IsByteLength(in.Name, 1, 120) {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	if !email.IsValid(in.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if in.Mobile != "" && !govalidator.StringLength(in.Mobile, "7", "20") {
		return dErrors.New(dErrors.CodeValidation, "mobile must be 7 to 20 characters")
	}
	if len(in.Password) < secrets.MinPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", secrets.MinPasswordLength)
	}
	role, err := scope.ParseRole(in.Role)
	if err != nil {
		return err
	}
	in.Role = role.String()
	return nil
}

// UpdatePartnerInput is a partial update. Role, BranchID, ClearBranch and
// Active are admin-only; a partner may change their own name and mobile.
type UpdatePartnerInput struct {
	Name        *string          `json:"name,omitempty"`
	Mobile      *string          `json:"mobile,omitempty"`
	Role        *string          `json:"role,omitempty"`
	BranchID    *domain.BranchID `json:"branch_id,omitempty"`
	ClearBranch bool             `json:"clear_branch,omitempty"`
	Active      *bool            `json:"active,omitempty"`
	Password    *string          `json:"password,omitempty"`
}

func (in *UpdatePartnerInput) Normalize() {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Mobile != nil {
		v := strings.TrimSpace(*in.Mobile)
		in.Mobile = &v
	}
}

func (in *UpdatePartnerInput) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if in.Role != nil {
		role, err := scope.ParseRole(*in.Role)
		if err != nil {
			return err
		}
		r := role.String()
		in.Role = &r
	}
	if in.BranchID != nil && in.ClearBranch {
		return dErrors.New(dErrors.CodeValidation, "branch_id and clear_branch are mutually exclusive")
	}
	if in.Password != nil && len(*in.Password) < secrets.MinPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", secrets.MinPasswordLength)
	}
	return nil
}

// TouchesPrivilegedFields reports whether the update needs an admin.
func (in *UpdatePartnerInput) TouchesPrivilegedFields() bool {
	return in.Role != nil || in.BranchID != nil || in.ClearBranch || in.Active != nil
}
