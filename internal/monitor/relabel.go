package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Relabeler recomputes outcome labels from the archived sample trail at a
// new outcomes version. Prior versions are never touched.
//
// The price path replays exactly; the executability simulation cannot be
// rerun after the fact, so a replayed sustain additionally requires that
// the original run's simulation passed.
type Relabeler struct {
	outcomes storage.OutcomeStore
	samples  storage.PriceSampleStore
	tun      Tunables
	logger   *log.Logger
}

// RelabelerOptions contains configuration for creating a Relabeler.
type RelabelerOptions struct {
	Outcomes storage.OutcomeStore
	Samples  storage.PriceSampleStore
	Tunables Tunables
	Logger   *log.Logger
}

// NewRelabeler creates a Relabeler.
func NewRelabeler(opts RelabelerOptions) *Relabeler {
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
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Relabeler{
		outcomes: opts.Outcomes,
		samples:  opts.Samples,
		tun:      tun,
		logger:   logger,
	}
}

// Run recomputes every outcome written at fromVersion and writes the
// results at toVersion. Already-written toVersion rows are skipped, so
// interrupted runs can simply be restarted. Returns the number of rows
// written.
func (r *Relabeler) Run(ctx context.Context, fromVersion, toVersion int) (int, error) {
	if toVersion <= fromVersion {
		return 0, fmt.Errorf("target version %d must exceed source version %d", toVersion, fromVersion)
	}

	prior, err := r.outcomes.ListVersion(ctx, fromVersion)
	if err != nil {
		return 0, fmt.Errorf("list outcomes at version %d: %w", fromVersion, err)
	}

	written := 0
	for _, prev := range prior {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}

		trail, err := r.samples.GetByMessageID(ctx, prev.MessageID)
		if err != nil {
			return written, fmt.Errorf("load samples for %s: %w", prev.MessageID, err)
		}
		if len(trail) == 0 {
			r.logger.Printf("No archived samples for %s, skipping", prev.MessageID)
			continue
		}

		touch, dwellMet, maxPrice := replay(prev.EntryPrice, trail, r.tun)
		sustained := dwellMet && prev.Sustained10x

		out := &domain.Outcome{
			MessageID:    prev.MessageID,
			Version:      toVersion,
			EntryPrice:   prev.EntryPrice,
			MaxPrice24h:  maxPrice,
			Touch10x:     touch,
			Sustained10x: sustained,
			Win:          sustained,
			ComputedAt:   time.Now().UTC(),
		}
		if err := r.outcomes.Insert(ctx, out); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return written, fmt.Errorf("insert outcome for %s: %w", prev.MessageID, err)
		}
		written++
	}
	return written, nil
}

// replay feeds the archived samples through the live labeling state
// machine. The window is anchored at the first sample.
func replay(entry float64, trail []*domain.PriceSample, tun Tunables) (touch, dwellMet bool, maxPrice float64) {
	start := trail[0].ObservedAt
	m := &domain.MonitorState{
		EntryPrice: entry,
		StartedAt:  start,
		MaxPrice:   entry,
		LastSeenAt: start,
	}

	for _, s := range trail {
		if s.ObservedAt.Sub(start) > tun.Window {
			break
		}
		if advance(m, s.ObservedAt, s.PriceUSD, tun) {
			dwellMet = true
			checked := s.ObservedAt
			m.ExecCheckedAt = &checked
		}
	}
	return m.Touched10x(tun.Multiple), dwellMet, m.MaxPrice
}
