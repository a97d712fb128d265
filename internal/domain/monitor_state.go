package domain

import "time"

// MonitorState is the live checkpoint for one accepted call under 24h
// price monitoring. Corresponds to monitor_state table in PostgreSQL.
//
// The row is the sole source of truth: a restarted worker reconstructs
// monitoring entirely from these fields plus the next incoming sample.
//
// Invariant: AboveSince is non-nil iff the most recent sample was at or
// above the breakout multiple. ExecCheckedAt marks the single
// executability attempt allowed per unbroken streak and resets with it.
type MonitorState struct {
	MessageID     string // PRIMARY KEY
	Mint          string
	EntryPrice    float64   // USD, earliest reliable price at/after FirstSeen
	StartedAt     time.Time // monitoring window start, UTC
	MaxPrice      float64   // running maximum observed price
	AboveSince    *time.Time
	AccumAboveSec int64 // cumulative seconds at/above the multiple, all streaks
	ExecCheckedAt *time.Time
	ExecPassed    bool
	Sustained     bool
	LastSeenAt    time.Time

	Claim Lease
}

// Touched10x reports whether price has ever reached the given multiple.
// Derived from the running maximum, so it survives streak resets.
func (m *MonitorState) Touched10x(multiple float64) bool {
	return m.EntryPrice > 0 && m.MaxPrice/m.EntryPrice >= multiple
}

// WindowElapsed reports whether the monitoring window has fully elapsed.
func (m *MonitorState) WindowElapsed(now time.Time, window time.Duration) bool {
	return !now.Before(m.StartedAt.Add(window))
}
