// Package models holds scheduled follow-ups on a lead.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

type FollowUp struct {
	ID          domain.FollowUpID `json:"id"`
	LeadID      domain.LeadID     `json:"lead_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DueDate     time.Time         `json:"due_date"`
	Completed   bool              `json:"completed"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedBy   domain.PartnerID  `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Due is an open follow-up with the name of its lead, for the "today" list.
type Due struct {
	*FollowUp
	LeadName string `json:"lead_name"`
}

type CreateFollowUpInput struct {
	LeadID      domain.LeadID `json:"lead_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     time.Time     `json:"due_date"`
}

func (in *CreateFollowUpInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *CreateFollowUpInput) Validate() error {
	if domain.IsNil(in.LeadID) {
		return dErrors.New(dErrors.CodeValidation, "lead_id is required")
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.DueDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "due_date is required")
	}
	return nil
}

// UpdateFollowUpInput is a partial update. A nil field is left unchanged.
type UpdateFollowUpInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

func (in *UpdateFollowUpInput) Normalize() {
	if in.Title != nil {
		*in.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		*in.Description = strings.TrimSpace(*in.Description)
	}
}

func (in *UpdateFollowUpInput) Validate() error {
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.DueDate != nil && in.DueDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "due_date cannot be empty")
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !govalidator.RuneLength(title, "1", "200") {
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	}
	return nil
}

// DayBounds returns [start, end) of the calendar day containing t in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
