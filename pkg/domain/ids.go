// Package domain holds typed identifiers shared across bounded contexts.
//
// Every entity id is a distinct named uuid.UUID so that a LeadID can never be
// passed where a BranchID is expected.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "idbcrm/pkg/domain-errors"
)

type (
	PartnerID      uuid.UUID
	BranchID       uuid.UUID
	LeadID         uuid.UUID
	NoteID         uuid.UUID
	FollowUpID     uuid.UUID
	ApplicationID  uuid.UUID
	RecordID       uuid.UUID
	EventID        uuid.UUID
	AnnouncementID uuid.UUID
	CountryID      uuid.UUID
	UniversityID   uuid.UUID
	CourseID       uuid.UUID
	PaymentID      uuid.UUID
)

// ID is the constraint satisfied by every typed identifier.
type ID interface {
	~[16]byte
}

func parse[T ID](kind, s string) (T, error) {
	var zero T
	if s == "" {
		return zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	if u == uuid.Nil {
		return zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", kind)
	}
	return T(u), nil
}

func ParsePartnerID(s string) (PartnerID, error)   { return parse[PartnerID]("partner id", s) }
func ParseBranchID(s string) (BranchID, error)     { return parse[BranchID]("branch id", s) }
func ParseLeadID(s string) (LeadID, error)         { return parse[LeadID]("lead id", s) }
func ParseNoteID(s string) (NoteID, error)         { return parse[NoteID]("note id", s) }
func ParseFollowUpID(s string) (FollowUpID, error) { return parse[FollowUpID]("follow-up id", s) }
func ParseRecordID(s string) (RecordID, error)     { return parse[RecordID]("record id", s) }
func ParseAnnouncementID(s string) (AnnouncementID, error) {
	return parse[AnnouncementID]("announcement id", s)
}
func ParseCountryID(s string) (CountryID, error) { return parse[CountryID]("country id", s) }
func ParseUniversityID(s string) (UniversityID, error) {
	return parse[UniversityID]("university id", s)
}
func ParseCourseID(s string) (CourseID, error)   { return parse[CourseID]("course id", s) }
func ParsePaymentID(s string) (PaymentID, error) { return parse[PaymentID]("payment id", s) }

// New returns a fresh random identifier of the requested type.
func New[T ID]() T {
	return T(uuid.New())
}

// IsNil reports whether id is the zero UUID.
func IsNil[T ID](id T) bool {
	return uuid.UUID(id) == uuid.Nil
}

// String renders any typed id in canonical form.
func String[T ID](id T) string {
	return uuid.UUID(id).String()
}

func (id PartnerID) String() string      { return uuid.UUID(id).String() }
func (id BranchID) String() string       { return uuid.UUID(id).String() }
func (id LeadID) String() string         { return uuid.UUID(id).String() }
func (id NoteID) String() string         { return uuid.UUID(id).String() }
func (id FollowUpID) String() string     { return uuid.UUID(id).String() }
func (id ApplicationID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string       { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id AnnouncementID) String() string { return uuid.UUID(id).String() }
func (id CountryID) String() string      { return uuid.UUID(id).String() }
func (id UniversityID) String() string   { return uuid.UUID(id).String() }
func (id CourseID) String() string       { return uuid.UUID(id).String() }
func (id PaymentID) String() string      { return uuid.UUID(id).String() }

func (id PartnerID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id BranchID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id LeadID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id NoteID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id FollowUpID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id AnnouncementID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CountryID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id UniversityID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id CourseID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id PaymentID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }

func (id *PartnerID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BranchID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LeadID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NoteID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FollowUpID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApplicationID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AnnouncementID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CountryID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UniversityID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CourseID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PaymentID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }

// Value renders an id for database/sql, mapping the nil UUID to NULL.
func Value[T ID](id T) driver.Value {
	if IsNil(id) {
		return nil
	}
	return uuid.UUID(id).String()
}

// NullableScan is a sql.Scanner for optional typed ids.
type NullableScan[T ID] struct {
	ID    T
	Valid bool
}

func (n *NullableScan[T]) Scan(src any) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	n.ID, n.Valid = T(u), true
	return nil
}

// Ptr returns a pointer to the scanned id, or nil when the column was NULL.
func (n NullableScan[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.ID
	return &v
}

// Scanner adapts a typed id for use as a sql.Scan destination.
func Scanner[T ID](dst *T) *uuidScanner[T] {
	return &uuidScanner[T]{dst: dst}
}

type uuidScanner[T ID] struct{ dst *T }

func (s *uuidScanner[T]) Scan(src any) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*s.dst = T(u)
	return nil
}
