package models

import "time"

// Result is the outcome of a sliding window check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Lockout tracks consecutive failed logins for one identifier. Failures
// further apart than the policy window start a fresh count.
type Lockout struct {
	Identifier    string
	FailureCount  int
	LastFailureAt time.Time
	LockedUntil   *time.Time
}

// IsLockedAt reports whether the identifier is locked at now.
func (l *Lockout) IsLockedAt(now time.Time) bool {
	return l != nil && l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// Stale reports whether the failure streak has lapsed.
func (l *Lockout) Stale(now time.Time, window time.Duration) bool {
	return l == nil || now.Sub(l.LastFailureAt) > window
}

// Policy holds the login protection limits.
type Policy struct {
	// IPLimit requests per IPWindow from one client address.
	IPLimit  int
	IPWindow time.Duration
	// LockoutThreshold consecutive failures within LockoutWindow lock the
	// account for LockoutDuration.
	LockoutThreshold int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration
}

// DefaultPolicy is 10 login attempts a minute per address and a 15 minute
// lock after 5 failures.
func DefaultPolicy() Policy {
	return Policy{
		IPLimit:          10,
		IPWindow:         time.Minute,
		LockoutThreshold: 5,
		LockoutWindow:    15 * time.Minute,
		LockoutDuration:  15 * time.Minute,
	}
}
