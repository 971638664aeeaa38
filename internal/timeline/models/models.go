// Package models holds the lead timeline: an append-only log of what happened
// to a lead, read newest first.
package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

// EventType names what happened to a lead.
type EventType string

const (
	EventLeadCreated        EventType = "LEAD_CREATED"
	EventNoteAdded          EventType = "LEAD_NOTE_ADDED"
	EventFollowUpAdded      EventType = "LEAD_FOLLOWUP_ADDED"
	EventFollowUpCompleted  EventType = "LEAD_FOLLOWUP_COMPLETED"
	EventStatusChanged      EventType = "LEAD_STATUS_CHANGED"
	EventAssigned           EventType = "LEAD_ASSIGNED"
	EventPaymentRecorded    EventType = "LEAD_PAYMENT_RECORDED"
	EventApplicationUpdated EventType = "LEAD_APPLICATION_UPDATED"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventLeadCreated, EventNoteAdded, EventFollowUpAdded, EventFollowUpCompleted,
		EventStatusChanged, EventAssigned, EventPaymentRecorded, EventApplicationUpdated:
		return true
	}
	return false
}

func (t EventType) String() string { return string(t) }

// Event is one timeline row. Seq orders events that share a timestamp.
type Event struct {
	ID        domain.EventID   `json:"id"`
	LeadID    domain.LeadID    `json:"lead_id"`
	Seq       int64            `json:"-"`
	Type      EventType        `json:"event_type"`
	NewState  string           `json:"new_state"`
	ActorID   domain.PartnerID `json:"actor_id"`
	CreatedAt time.Time        `json:"created_at"`
}

// RecordInput is what a triggering operation hands the recorder.
type RecordInput struct {
	LeadID   domain.LeadID
	Type     EventType
	ActorID  domain.PartnerID
	NewState string
}

// Validate checks the input carries a lead, an actor and a known type.
func (in RecordInput) Validate() error {
	if domain.IsNil(in.LeadID) {
		return dErrors.New(dErrors.CodeValidation, "timeline event requires a lead")
	}
	if domain.IsNil(in.ActorID) {
		return dErrors.New(dErrors.CodeValidation, "timeline event requires an actor")
	}
	if !in.Type.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown timeline event type %q", in.Type)
	}
	return nil
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// PageRequest asks for the page after Cursor. An empty cursor starts at the newest event.
type PageRequest struct {
	Cursor string
	Limit  int
}

// EffectiveLimit clamps Limit into [1, MaxPageLimit], defaulting to DefaultPageLimit.
func (p PageRequest) EffectiveLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageLimit
	case p.Limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return p.Limit
	}
}

// Page is one slice of a lead's timeline. NextCursor is empty on the last page.
type Page struct {
	Events     []*Event `json:"events"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Cursor is the position of the last event returned.
type Cursor struct {
	CreatedAt time.Time
	Seq       int64
}

// CursorAfter returns the cursor positioned at e.
func CursorAfter(e *Event) Cursor {
	return Cursor{CreatedAt: e.CreatedAt, Seq: e.Seq}
}

// Before reports whether e sorts after the cursor in newest-first order.
func (c Cursor) Before(e *Event) bool {
	if e.CreatedAt.Equal(c.CreatedAt) {
		return e.Seq < c.Seq
	}
	return e.CreatedAt.Before(c.CreatedAt)
}

// Encode renders the opaque cursor string.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%d|%d", c.CreatedAt.UnixNano(), c.Seq)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by Encode.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
	}
	ts, seq, ok := strings.Cut(string(raw), "|")
	if !ok {
		return Cursor{}, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
	}
	n, err := strconv.ParseInt(seq, 10, 64)
	if err != nil {
		return Cursor{}, dErrors.New(dErrors.CodeBadRequest, "invalid cursor")
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), Seq: n}, nil
}
