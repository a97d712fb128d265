package resolver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/snowflake"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Default runner configuration.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 10
)

// Runner continuously resolves unprocessed messages and opens acceptance
// records for the ones that yield a mint.
type Runner struct {
	resolver    *Resolver
	rawMessages storage.RawMessageStore
	acceptance  storage.AcceptanceStore
	poolWait    time.Duration
	interval    time.Duration
	batchSize   int
	logger      *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Resolver    *Resolver
	RawMessages storage.RawMessageStore
	Acceptance  storage.AcceptanceStore
	// PoolWaitTimeout sets the acceptance deadline relative to first seen.
	PoolWaitTimeout time.Duration
	PollInterval    time.Duration
	BatchSize       int
	Logger          *log.Logger
}

// NewRunner creates a resolver runner.
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
		resolver:    opts.Resolver,
		rawMessages: opts.RawMessages,
		acceptance:  opts.Acceptance,
		poolWait:    opts.PoolWaitTimeout,
		interval:    interval,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Run polls for unresolved messages until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("Starting resolver runner...")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Printf("Resolver pass failed: %v", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Println("Resolver runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce resolves one batch of unprocessed messages.
func (r *Runner) runOnce(ctx context.Context) error {
	msgs, err := r.rawMessages.ListUnresolved(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		res, err := r.resolver.Process(ctx, msg)
		if err != nil {
			// Transient failure. The message stays unresolved and will
			// be picked up on a later pass.
			r.logger.Printf("Resolution attempt for %s failed: %v", msg.MessageID, err)
			continue
		}
		observability.RecordMessageProcessed()

		if res.Resolved {
			observability.RecordResolution(string(res.SourceType))
			if err := r.openAcceptance(ctx, msg, res); err != nil {
				r.logger.Printf("Open acceptance for %s failed: %v", msg.MessageID, err)
			}
		} else {
			observability.RecordUnresolved()
		}
	}
	observability.DefaultMetrics.LastResolverSweep.Set(float64(time.Now().Unix()))
	return nil
}

// openAcceptance creates the PENDING acceptance record for a resolved
// message. First seen comes from the message snowflake, not ingest time.
func (r *Runner) openAcceptance(ctx context.Context, msg *domain.RawMessage, res *domain.MintResolution) error {
	firstSeen, err := snowflake.Time(msg.MessageID)
	if err != nil {
		firstSeen = msg.PostedAt
	}

	a := &domain.AcceptanceStatus{
		MessageID:     msg.MessageID,
		Mint:          *res.Mint,
		FirstSeen:     firstSeen,
		Status:        domain.StatusPending,
		Deadline:      firstSeen.Add(r.poolWait),
		LastCheckedAt: time.Now().UTC(),
		Evidence: map[string]any{
			"source_type": string(res.SourceType),
			"confidence":  res.Confidence,
		},
	}

	err = r.acceptance.Insert(ctx, a)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}
