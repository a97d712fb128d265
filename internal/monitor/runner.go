package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/claims"
	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Default runner configuration.
const (
	DefaultSampleInterval = 30 * time.Second
	DefaultBatchSize      = 10
)

// Runner sweeps due monitor states, samples each one's price, and feeds
// the tracker. Any number of runners may compete; leases keep each state
// single-writer.
type Runner struct {
	tracker  *Tracker
	monitors storage.MonitorStateStore
	outcomes storage.OutcomeStore
	prices   market.PriceSource
	claims   *claims.Coordinator
	interval time.Duration
	batch    int
	logger   *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Tracker        *Tracker
	Monitors       storage.MonitorStateStore
	Outcomes       storage.OutcomeStore
	Prices         market.PriceSource
	Claims         *claims.Coordinator
	SampleInterval time.Duration
	BatchSize      int
	Logger         *log.Logger
}

// NewRunner creates a monitor runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.SampleInterval
	if interval == 0 {
		interval = DefaultSampleInterval
	}
	batch := opts.BatchSize
	if batch == 0 {
		batch = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		tracker:  opts.Tracker,
		monitors: opts.Monitors,
		outcomes: opts.Outcomes,
		prices:   opts.Prices,
		claims:   opts.Claims,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting monitor runner (worker %s)...", r.claims.WorkerID())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Printf("Monitor sweep failed: %v", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Println("Monitor runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce claims and samples one batch of due states.
func (r *Runner) runOnce(ctx context.Context) error {
	due, err := r.monitors.ListDue(ctx, time.Now().UTC(), r.batch)
	if err != nil {
		return err
	}

	for _, m := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok, err := r.claims.Acquire(ctx, m.MessageID)
		if err != nil {
			return err
		}
		observability.RecordClaim(ok)
		if !ok {
			continue
		}

		if err := r.processOne(ctx, m.MessageID); err != nil {
			r.logger.Printf("Sample %s failed: %v", m.MessageID, err)
		}

		if err := r.claims.Release(ctx, m.MessageID); err != nil {
			r.logger.Printf("Release claim for %s failed: %v", m.MessageID, err)
		}
	}
	observability.DefaultMetrics.ActiveMonitors.Set(float64(len(due)))
	observability.DefaultMetrics.LastMonitorSweep.Set(float64(time.Now().Unix()))
	return nil
}

// processOne reloads the checkpoint under the lease before applying a
// sample. The listed snapshot is stale by the time the claim lands;
// another worker may have advanced the row in the gap, and feeding the
// tracker anything but the current row would clobber its progress.
func (r *Runner) processOne(ctx context.Context, messageID string) error {
	m, err := r.monitors.GetByID(ctx, messageID)
	if errors.Is(err, storage.ErrNotFound) {
		// Finalized by another worker in the claim gap.
		return nil
	}
	if err != nil {
		return err
	}

	if r.outcomes != nil {
		finalized, err := r.outcomes.Exists(ctx, messageID)
		if err != nil {
			return err
		}
		if finalized {
			// A crash between outcome insert and checkpoint delete leaves
			// the row behind. Finish the cleanup instead of re-monitoring.
			return r.monitors.Delete(ctx, messageID)
		}
	}

	return r.sampleOne(ctx, m)
}

func (r *Runner) sampleOne(ctx context.Context, m *domain.MonitorState) error {
	now := time.Now().UTC()

	stats, err := r.prices.TokenStats(ctx, m.Mint)
	if err != nil {
		// No sample this round. The window can still expire without one.
		done, expErr := r.tracker.ExpireIfDue(ctx, m, now)
		if done || expErr != nil {
			return expErr
		}
		return err
	}

	return r.tracker.HandleSample(ctx, m, stats.ObservedAt, stats.PriceUSD)
}
