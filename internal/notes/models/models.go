// Package models holds free-text notes attached to a lead.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

// MaxTextLength bounds a note body in characters.
const MaxTextLength = 5000

type Note struct {
	ID        domain.NoteID    `json:"id"`
	LeadID    domain.LeadID    `json:"lead_id"`
	Text      string           `json:"text"`
	CreatedBy domain.PartnerID `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type CreateNoteInput struct {
	LeadID domain.LeadID `json:"lead_id"`
	Text   string        `json:"text"`
}

func (in *CreateNoteInput) Normalize() { in.Text = strings.TrimSpace(in.Text) }

func (in *CreateNoteInput) Validate() error {
	if domain.IsNil(in.LeadID) {
		return dErrors.New(dErrors.CodeValidation, "lead_id is required")
	}
	return validateText(in.Text)
}

type UpdateNoteInput struct {
	Text string `json:"text"`
}

func (in *UpdateNoteInput) Normalize() { in.Text = strings.TrimSpace(in.Text) }

func (in *UpdateNoteInput) Validate() error { return validateText(in.Text) }

func validateText(text string) error {
	if text == "" {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}
	if !govalidator.RuneLength(text, "1", "5000") {
		return dErrors.Newf(dErrors.CodeValidation, "text must be at most %d characters", MaxTextLength)
	}
	return nil
}
