// Package models holds announcements and per-partner read receipts.
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	pstrings "idbcrm/pkg/platform/strings"
)

// Audience selects who sees an announcement.
type Audience string

const (
	// AudienceUser targets the partners listed in Users.
	AudienceUser Audience = "user"
	// AudienceBranch targets one branch, or everyone when BranchID is nil.
	AudienceBranch Audience = "branch"
)

func (a Audience) IsValid() bool { return a == AudienceUser || a == AudienceBranch }

const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
	MaxRecipients    = 500
)

type Announcement struct {
	ID             domain.AnnouncementID `json:"id"`
	Title          string                `json:"title"`
	Content        string                `json:"content"`
	TargetAudience Audience              `json:"target_audience"`
	Users          []domain.PartnerID    `json:"users"`
	BranchID       *domain.BranchID      `json:"branch_id,omitempty"`
	IsActive       bool                  `json:"is_active"`
	CreatedBy      domain.PartnerID      `json:"created_by"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Validate checks a complete announcement, after create or a merged update.
func (a *Announcement) Validate() error {
	if a.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !govalidator.RuneLength(a.Title, "1", "200") {
		return dErrors.Newf(dErrors.CodeValidation, "title must be at most %d characters", MaxTitleLength)
	}
	if a.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if !govalidator.RuneLength(a.Content, "1", "10000") {
		return dErrors.Newf(dErrors.CodeValidation, "content must be at most %d characters", MaxContentLength)
	}
	switch a.TargetAudience {
	case AudienceUser:
		if len(a.Users) == 0 {
			return dErrors.New(dErrors.CodeValidation, "users are required for a user announcement")
		}
		if len(a.Users) > MaxRecipients {
			return dErrors.Newf(dErrors.CodeValidation, "at most %d users", MaxRecipients)
		}
	case AudienceBranch:
	default:
		return dErrors.New(dErrors.CodeValidation, "target_audience must be user or branch")
	}
	return nil
}

// View is an announcement as seen by one partner.
type View struct {
	*Announcement
	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Visibility describes which announcements a viewer may see.
type Visibility struct {
	Viewer          domain.PartnerID
	BranchID        *domain.BranchID
	All             bool
	IncludeInactive bool
}

// VisibilityFor builds the visibility of actor. Only admins see every
// audience and may include inactive announcements.
func VisibilityFor(actor scope.Actor, includeInactive bool) Visibility {
	return Visibility{
		Viewer:          actor.ID,
		BranchID:        actor.BranchID,
		All:             actor.IsAdmin(),
		IncludeInactive: includeInactive && actor.IsAdmin(),
	}
}

// Permits reports whether a is visible.
func (v Visibility) Permits(a *Announcement) bool {
	if !a.IsActive && !v.IncludeInactive {
		return false
	}
	if v.All {
		return true
	}
	switch a.TargetAudience {
	case AudienceUser:
		return slices.Contains(a.Users, v.Viewer)
	case AudienceBranch:
		return a.BranchID == nil || (v.BranchID != nil && *v.BranchID == *a.BranchID)
	}
	return false
}

type CreateAnnouncementInput struct {
	Title          string             `json:"title"`
	Content        string             `json:"content"`
	TargetAudience Audience           `json:"target_audience"`
	Users          []domain.PartnerID `json:"users,omitempty"`
	BranchID       *domain.BranchID   `json:"branch_id,omitempty"`
	IsActive       *bool              `json:"is_active,omitempty"`
}

func (in *CreateAnnouncementInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.TargetAudience = Audience(strings.ToLower(strings.TrimSpace(string(in.TargetAudience))))
	if in.TargetAudience == "" {
		in.TargetAudience = AudienceBranch
	}
	in.Users = dedupe(in.Users)
	if in.BranchID != nil && domain.IsNil(*in.BranchID) {
		in.BranchID = nil
	}
}

func (in *CreateAnnouncementInput) Validate() error {
	if !in.TargetAudience.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "target_audience must be user or branch")
	}
	return nil
}

// UpdateAnnouncementInput is a partial update. ClearBranch widens a branch
// announcement to every branch.
type UpdateAnnouncementInput struct {
	Title          *string             `json:"title,omitempty"`
	Content        *string             `json:"content,omitempty"`
	TargetAudience *Audience           `json:"target_audience,omitempty"`
	Users          *[]domain.PartnerID `json:"users,omitempty"`
	BranchID       *domain.BranchID    `json:"branch_id,omitempty"`
	ClearBranch    bool                `json:"clear_branch,omitempty"`
	IsActive       *bool               `json:"is_active,omitempty"`
}

func (in *UpdateAnnouncementInput) Normalize() {
	pstrings.TrimPtr(in.Title, in.Content)
	if in.TargetAudience != nil {
		a := Audience(strings.ToLower(strings.TrimSpace(string(*in.TargetAudience))))
		in.TargetAudience = &a
	}
	if in.Users != nil {
		u := dedupe(*in.Users)
		in.Users = &u
	}
}

func (in *UpdateAnnouncementInput) Validate() error {
	if in.BranchID != nil && in.ClearBranch {
		return dErrors.New(dErrors.CodeValidation, "branch_id and clear_branch are mutually exclusive")
	}
	return nil
}

// Apply merges the update into a.
func (in *UpdateAnnouncementInput) Apply(a *Announcement) {
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Content != nil {
		a.Content = *in.Content
	}
	if in.TargetAudience != nil {
		a.TargetAudience = *in.TargetAudience
	}
	if in.Users != nil {
		a.Users = *in.Users
	}
	if in.ClearBranch {
		a.BranchID = nil
	}
	if in.BranchID != nil {
		a.BranchID = in.BranchID
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if a.TargetAudience == AudienceBranch {
		a.Users = []domain.PartnerID{}
	}
}

func dedupe(ids []domain.PartnerID) []domain.PartnerID {
	out := make([]domain.PartnerID, 0, len(ids))
	for _, id := range ids {
		if !domain.IsNil(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
