// Package scope turns an authenticated actor into the row filter every
// branch-sensitive query must intersect with.
//
// A Scope has exactly one kind:
//
//   - Unrestricted: admins see every row.
//   - Branch: branch managers and staff with a branch see rows of that branch.
//   - Owner: agents, and any non-admin without a branch, see rows they created.
//
// The zero Scope is invalid. Stores reject it, so a call site that forgets to
// resolve a scope fails instead of returning every row.
package scope

import (
	"fmt"
	"strings"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
)

// Role is a partner's authorization role.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
	RoleStaff         Role = "staff"
	RoleAgent         Role = "agent"
)

// Roles lists every valid role in privilege order.
var Roles = []Role{RoleAdmin, RoleBranchManager, RoleStaff, RoleAgent}

// ParseRole accepts the canonical role names plus the hyphenated
// "branch-manager" spelling older tokens carry.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid role %q", s)
	}
	return r, nil
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBranchManager, RoleStaff, RoleAgent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// branchScoped reports whether the role sees its whole branch when it has one.
func (r Role) branchScoped() bool {
	return r == RoleBranchManager || r == RoleStaff
}

// Actor is the authenticated partner performing an operation. Services take it
// as an explicit argument; it is never read from ambient state.
type Actor struct {
	ID       domain.PartnerID
	Role     Role
	BranchID *domain.BranchID
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// HasBranch reports whether the actor belongs to a branch.
func (a Actor) HasBranch() bool { return a.BranchID != nil && !domain.IsNil(*a.BranchID) }

// Is reports whether the actor is the given partner.
func (a Actor) Is(id domain.PartnerID) bool { return a.ID == id }

// Kind discriminates Scope values.
type Kind uint8

const (
	kindInvalid Kind = iota
	KindUnrestricted
	KindBranch
	KindOwner
)

func (k Kind) String() string {
	switch k {
	case KindUnrestricted:
		return "unrestricted"
	case KindBranch:
		return "branch"
	case KindOwner:
		return "owner"
	default:
		return "invalid"
	}
}

// Scope is the resolved row filter.
type Scope struct {
	kind   Kind
	branch domain.BranchID
	owner  domain.PartnerID
}

// Resolve derives the scope for an actor.
func Resolve(a Actor) (Scope, error) {
	if domain.IsNil(a.ID) {
		return Scope{}, dErrors.New(dErrors.CodeUnauthorized, "actor is not authenticated")
	}
	switch {
	case a.Role == RoleAdmin:
		return Unrestricted(), nil
	case a.Role.branchScoped() && a.HasBranch():
		return Branch(*a.BranchID), nil
	case a.Role.IsValid():
		return Owner(a.ID), nil
	default:
		return Scope{}, dErrors.Newf(dErrors.CodeForbidden, "role %q is not permitted", a.Role)
	}
}

// Unrestricted returns the admin scope. Background jobs and existence checks use it.
func Unrestricted() Scope { return Scope{kind: KindUnrestricted} }

// Branch returns a scope limited to one branch.
func Branch(id domain.BranchID) Scope { return Scope{kind: KindBranch, branch: id} }

// Owner returns a scope limited to rows created by one partner.
func Owner(id domain.PartnerID) Scope { return Scope{kind: KindOwner, owner: id} }

// Kind returns the scope's discriminator.
func (s Scope) Kind() Kind { return s.kind }

// BranchID returns the branch of a Branch scope.
func (s Scope) BranchID() (domain.BranchID, bool) { return s.branch, s.kind == KindBranch }

// OwnerID returns the partner of an Owner scope.
func (s Scope) OwnerID() (domain.PartnerID, bool) { return s.owner, s.kind == KindOwner }

// Validate rejects the zero scope and half-built values.
func (s Scope) Validate() error {
	switch s.kind {
	case KindUnrestricted:
		return nil
	case KindBranch:
		if domain.IsNil(s.branch) {
			return fmt.Errorf("branch scope without branch: %w", sentinel.ErrInvalidScope)
		}
		return nil
	case KindOwner:
		if domain.IsNil(s.owner) {
			return fmt.Errorf("owner scope without owner: %w", sentinel.ErrInvalidScope)
		}
		return nil
	default:
		return sentinel.ErrInvalidScope
	}
}

// Key is a stable cache key for the scope ("all", "branch:<id>", "owner:<id>").
func (s Scope) Key() string {
	switch s.kind {
	case KindUnrestricted:
		return "all"
	case KindBranch:
		return "branch:" + s.branch.String()
	case KindOwner:
		return "owner:" + s.owner.String()
	default:
		return "invalid"
	}
}

func (s Scope) String() string { return s.Key() }

// Owned is implemented by rows subject to scoping.
type Owned interface {
	ScopeBranchID() *domain.BranchID
	ScopeOwnerID() domain.PartnerID
}

// Permits evaluates the scope against an in-memory row.
func (s Scope) Permits(row Owned) bool {
	switch s.kind {
	case KindUnrestricted:
		return true
	case KindBranch:
		b := row.ScopeBranchID()
		return b != nil && *b == s.branch
	case KindOwner:
		return row.ScopeOwnerID() == s.owner
	default:
		return false
	}
}
