package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/jupiter"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Tracker advances monitor states sample by sample and finalizes them.
type Tracker struct {
	monitors storage.MonitorStateStore
	outcomes storage.OutcomeStore
	samples  storage.PriceSampleStore
	router   jupiter.Router
	tun      Tunables
	logger   *log.Logger
}

// TrackerOptions contains configuration for creating a Tracker.
type TrackerOptions struct {
	Monitors storage.MonitorStateStore
	Outcomes storage.OutcomeStore
	Samples  storage.PriceSampleStore
	Router   jupiter.Router
	Tunables Tunables
	Logger   *log.Logger
}

// NewTracker creates a Tracker.
func NewTracker(opts TrackerOptions) *Tracker {
	tun := opts.Tunables
	if tun.Multiple == 0 {
		tun.Multiple = DefaultMultiple
	}
	if tun.Dwell == 0 {
		tun.Dwell = DefaultDwell
	}
	if tun.Window == 0 {
		tun.Window = DefaultWindow
	}
	if tun.MaxSlippage == 0 {
		tun.MaxSlippage = DefaultMaxSlippage
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		monitors: opts.Monitors,
		outcomes: opts.Outcomes,
		samples:  opts.Samples,
		router:   opts.Router,
		tun:      tun,
		logger:   logger,
	}
}

// HandleSample applies one price observation to a claimed monitor state.
// The state is persisted after every sample, win finalization happens
// inline, and window expiry finalizes as non-winning.
func (t *Tracker) HandleSample(ctx context.Context, m *domain.MonitorState, observedAt time.Time, price float64) error {
	execDue := advance(m, observedAt, price, t.tun)
	observability.DefaultMetrics.SamplesRecorded.Inc()

	t.archiveSample(ctx, m, observedAt, price)

	if execDue {
		if err := t.checkExecutability(ctx, m, observedAt); err != nil {
			// Transient. The attempt is not spent; a later sample in the
			// same streak retries.
			t.logger.Printf("Executability check for %s failed: %v", m.MessageID, err)
		}
		if m.Sustained {
			return t.finalize(ctx, m, observedAt)
		}
	}

	if m.WindowElapsed(observedAt, t.tun.Window) {
		return t.finalize(ctx, m, observedAt)
	}

	return t.monitors.Update(ctx, m)
}

// ExpireIfDue finalizes a state whose window has elapsed without any new
// sample arriving.
func (t *Tracker) ExpireIfDue(ctx context.Context, m *domain.MonitorState, now time.Time) (bool, error) {
	if !m.WindowElapsed(now, t.tun.Window) {
		return false, nil
	}
	return true, t.finalize(ctx, m, now)
}

// checkExecutability runs the per-streak round trip simulation. A spent
// attempt is recorded whatever it finds; only transient errors leave it
// unspent.
func (t *Tracker) checkExecutability(ctx context.Context, m *domain.MonitorState, observedAt time.Time) error {
	rt, err := t.router.SimulateRoundTrip(ctx, m.Mint, t.tun.TestLamports)
	if errors.Is(err, jupiter.ErrNoRoute) {
		// A definitive miss spends the streak's attempt.
		checked := observedAt
		m.ExecCheckedAt = &checked
		observability.RecordExecCheck(false)
		return nil
	}
	if err != nil {
		return err
	}

	checked := observedAt
	m.ExecCheckedAt = &checked
	if rt.EffectiveSlippage <= t.tun.MaxSlippage {
		m.ExecPassed = true
		m.Sustained = true
		t.logger.Printf("Sustained breakout for %s: slippage %.4f", m.MessageID, rt.EffectiveSlippage)
	} else {
		t.logger.Printf("Executability failed for %s: slippage %.4f > %.4f",
			m.MessageID, rt.EffectiveSlippage, t.tun.MaxSlippage)
	}
	observability.RecordExecCheck(m.ExecPassed)
	return nil
}

// finalize writes the outcome and removes the monitor row. Losing the
// outcome insert race to another worker is benign.
func (t *Tracker) finalize(ctx context.Context, m *domain.MonitorState, now time.Time) error {
	out := outcome(m, t.tun, now)

	err := t.outcomes.Insert(ctx, out)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("insert outcome: %w", err)
	}

	if err := t.monitors.Delete(ctx, m.MessageID); err != nil {
		return fmt.Errorf("close monitor: %w", err)
	}

	label := "no_10x"
	switch {
	case out.Sustained10x:
		label = "sustained_10x"
	case out.Touch10x:
		label = "touch_10x"
	}
	observability.RecordOutcome(label)

	t.logger.Printf("Finalized %s: touch=%v sustained=%v max=%.10f",
		m.MessageID, out.Touch10x, out.Sustained10x, out.MaxPrice24h)
	return nil
}

// archiveSample appends the observation to the audit trail. Best effort:
// labeling correctness never depends on the archive.
func (t *Tracker) archiveSample(ctx context.Context, m *domain.MonitorState, observedAt time.Time, price float64) {
	if t.samples == nil {
		return
	}
	multiple := 0.0
	if m.EntryPrice > 0 {
		multiple = price / m.EntryPrice
	}
	sample := &domain.PriceSample{
		MessageID:  m.MessageID,
		Mint:       m.Mint,
		ObservedAt: observedAt,
		PriceUSD:   price,
		Multiple:   multiple,
	}
	if err := t.samples.InsertBulk(ctx, []*domain.PriceSample{sample}); err != nil {
		t.logger.Printf("Archive sample for %s failed: %v", m.MessageID, err)
	}
}
