package domain

import "time"

// Outcome is the finalized 24h label for one accepted call. Corresponds to
// outcomes_24h table in PostgreSQL, keyed by (message_id, version).
//
// Rows are immutable. A re-labeling run writes a new version and never
// touches prior rows.
type Outcome struct {
	MessageID    string
	Version      int // outcomes schema version
	EntryPrice   float64
	MaxPrice24h  float64
	Touch10x     bool // price ever reached the multiple within the window
	Sustained10x bool // dwell + executability both satisfied
	Win          bool // defined as equal to Sustained10x
	ComputedAt   time.Time
}

// CurrentOutcomeVersion is the version tag written by live monitoring.
const CurrentOutcomeVersion = 1
