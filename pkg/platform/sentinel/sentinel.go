package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row does not exist, or exists outside the caller's scope
//   - ErrConflict: unique constraint violated, or a delete is still referenced
//   - ErrInvalidState: row is in the wrong state for the requested operation
//   - ErrInvalidScope: a store was handed the zero Scope
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidScope = errors.New("invalid scope")
	ErrUnavailable  = errors.New("unavailable")
)
