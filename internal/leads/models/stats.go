package models

import "time"

// CountFilter narrows a scoped lead count.
type CountFilter struct {
	Type   Type
	Status Status
	Since  *time.Time
	Until  *time.Time
}

// Matches evaluates the filter in memory.
func (f CountFilter) Matches(l *Lead) bool {
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Since != nil && l.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !l.CreatedAt.Before(*f.Until) {
		return false
	}
	return true
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Key   string
	Count int
}
