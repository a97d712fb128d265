// Package monitor tracks accepted calls through their 24h price window
// and finalizes each with a sustained-breakout label.
//
// The monitor is reactive: it never schedules its own timers. Each price
// sample advances the persisted MonitorState, and the state row is the
// complete checkpoint. A worker restarted mid-window resumes from the
// row and the next sample with no other recovery.
package monitor

import (
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
)

// Default breakout parameters.
const (
	DefaultMultiple    = 10.0
	DefaultDwell       = 180 * time.Second
	DefaultWindow      = 24 * time.Hour
	DefaultMaxSlippage = 0.15
)

// Tunables are the breakout label parameters.
type Tunables struct {
	// Multiple is the price multiple that opens a streak.
	Multiple float64
	// Dwell is how long an unbroken streak must last before the
	// executability check runs.
	Dwell time.Duration
	// Window is the total monitoring duration from acceptance.
	Window time.Duration
	// MaxSlippage caps the round trip's effective slippage for a streak
	// to count as executable.
	MaxSlippage float64
	// TestLamports sizes the simulated round trip.
	TestLamports uint64
}

// advance applies one price sample to the state. It mutates the state in
// place and reports whether the executability check is due: the streak
// has dwelled long enough and no check has run within it yet.
//
// Invariant: AboveSince is non-nil iff this latest sample's multiple is
// at or above the threshold.
func advance(m *domain.MonitorState, observedAt time.Time, price float64, tun Tunables) (execDue bool) {
	if price > m.MaxPrice {
		m.MaxPrice = price
	}

	multiple := 0.0
	if m.EntryPrice > 0 {
		multiple = price / m.EntryPrice
	}

	if multiple >= tun.Multiple {
		if m.AboveSince == nil {
			since := observedAt
			m.AboveSince = &since
		} else if m.LastSeenAt.After(*m.AboveSince) || m.LastSeenAt.Equal(*m.AboveSince) {
			// Consecutive above-threshold samples accrue dwell credit.
			m.AccumAboveSec += int64(observedAt.Sub(m.LastSeenAt) / time.Second)
		}

		streak := observedAt.Sub(*m.AboveSince)
		if streak >= tun.Dwell && !m.ExecPassed && m.ExecCheckedAt == nil {
			execDue = true
		}
	} else {
		// Streak broken. Running maximum and accumulated history survive;
		// the per-streak executability attempt does not.
		m.AboveSince = nil
		m.ExecCheckedAt = nil
	}

	m.LastSeenAt = observedAt
	return execDue
}

// outcome builds the terminal label from the final state.
func outcome(m *domain.MonitorState, tun Tunables, now time.Time) *domain.Outcome {
	touch := m.Touched10x(tun.Multiple)
	return &domain.Outcome{
		MessageID:    m.MessageID,
		Version:      domain.CurrentOutcomeVersion,
		EntryPrice:   m.EntryPrice,
		MaxPrice24h:  m.MaxPrice,
		Touch10x:     touch,
		Sustained10x: m.Sustained,
		Win:          m.Sustained,
		ComputedAt:   now,
	}
}
