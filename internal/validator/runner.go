package validator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/claims"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Default runner configuration.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultBatchSize    = 10
)

// Runner claims PENDING acceptance records and evaluates them.
type Runner struct {
	validator  *Validator
	acceptance storage.AcceptanceStore
	claims     *claims.Coordinator
	interval   time.Duration
	batchSize  int
	logger     *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Validator    *Validator
	Acceptance   storage.AcceptanceStore
	Claims       *claims.Coordinator
	PollInterval time.Duration
	BatchSize    int
	Logger       *log.Logger
}

// NewRunner creates a validator runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		validator:  opts.Validator,
		acceptance: opts.Acceptance,
		claims:     opts.Claims,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run polls for claimable PENDING records until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting validator runner (worker %s)...", r.claims.WorkerID())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Printf("Validator pass failed: %v", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Println("Validator runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce claims and evaluates one batch.
func (r *Runner) runOnce(ctx context.Context) error {
	pending, err := r.acceptance.ListPending(ctx, time.Now().UTC(), r.batchSize)
	if err != nil {
		return err
	}

	for _, a := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok, err := r.claims.Acquire(ctx, a.MessageID)
		if err != nil {
			return err
		}
		observability.RecordClaim(ok)
		if !ok {
			// Lost the race for this record.
			continue
		}

		if err := r.validator.Evaluate(ctx, a); err != nil {
			r.logger.Printf("Evaluate %s failed: %v", a.MessageID, err)
		}

		if err := r.claims.Release(ctx, a.MessageID); err != nil {
			r.logger.Printf("Release claim for %s failed: %v", a.MessageID, err)
		}
	}
	observability.DefaultMetrics.PendingCalls.Set(float64(len(pending)))
	observability.DefaultMetrics.LastValidatorSweep.Set(float64(time.Now().Unix()))
	return nil
}
