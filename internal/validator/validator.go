// Package validator runs the acceptance checks for resolved calls.
// Checks are ordered and short-circuit: the first definitive failure
// rejects with its reason code, and only a full pass accepts. Transient
// external failures leave the record PENDING for a later claim.
package validator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/jupiter"
	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// Default check parameters.
const (
	DefaultTestAmountSOL   = 0.5
	DefaultMaxEffectiveFee = 0.40
	DefaultTopHolders      = 10
	DefaultMaxTopShare     = 0.60
)

// Validator evaluates one PENDING acceptance record at a time.
type Validator struct {
	acceptance storage.AcceptanceStore
	monitors   storage.MonitorStateStore
	features   storage.FeatureSnapshotStore
	rpc        solana.RPCClient
	router     jupiter.Router
	prices     market.PriceSource

	testLamports    uint64
	maxEffectiveFee float64
	concentration   bool
	topHolders      int
	maxTopShare     float64
	logger          *log.Logger
	now             func() time.Time
}

// Options contains configuration for creating a Validator.
type Options struct {
	Acceptance storage.AcceptanceStore
	Monitors   storage.MonitorStateStore
	Features   storage.FeatureSnapshotStore
	RPC        solana.RPCClient
	Router     jupiter.Router
	Prices     market.PriceSource

	// TestAmountSOL sizes the simulated round trip.
	TestAmountSOL float64
	// MaxEffectiveFee caps the worse leg's price impact fraction.
	MaxEffectiveFee float64
	// ConcentrationCheck enables the optional holder concentration check.
	ConcentrationCheck bool
	// TopHolders and MaxTopShare parameterize it.
	TopHolders  int
	MaxTopShare float64

	Logger *log.Logger
	Now    func() time.Time
}

// New creates a Validator.
func New(opts Options) *Validator {
	testSOL := opts.TestAmountSOL
	if testSOL == 0 {
		testSOL = DefaultTestAmountSOL
	}
	maxFee := opts.MaxEffectiveFee
	if maxFee == 0 {
		maxFee = DefaultMaxEffectiveFee
	}
	topHolders := opts.TopHolders
	if topHolders == 0 {
		topHolders = DefaultTopHolders
	}
	maxShare := opts.MaxTopShare
	if maxShare == 0 {
		maxShare = DefaultMaxTopShare
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Validator{
		acceptance:      opts.Acceptance,
		monitors:        opts.Monitors,
		features:        opts.Features,
		rpc:             opts.RPC,
		router:          opts.Router,
		prices:          opts.Prices,
		testLamports:    uint64(testSOL * jupiter.LamportsPerSOL),
		maxEffectiveFee: maxFee,
		concentration:   opts.ConcentrationCheck,
		topHolders:      topHolders,
		maxTopShare:     maxShare,
		logger:          logger,
		now:             now,
	}
}

// Evaluate runs the check chain for one claimed PENDING record and
// persists whatever it concludes. A nil error means the record was
// handled, whether finalized or left PENDING.
func (v *Validator) Evaluate(ctx context.Context, a *domain.AcceptanceStatus) error {
	now := v.now().UTC()
	evidence := map[string]any{}

	reason, done, err := v.runChecks(ctx, a, now, evidence)
	if err != nil {
		// Transient: bump last-checked, keep evidence gathered so far.
		v.logger.Printf("Checks for %s hit transient error: %v", a.MessageID, err)
		if touchErr := v.acceptance.Touch(ctx, a.MessageID, now, evidence); touchErr != nil {
			return touchErr
		}
		return nil
	}
	if !done {
		// No definitive finding yet (waiting on a pool).
		return v.acceptance.Touch(ctx, a.MessageID, now, evidence)
	}

	if reason != nil {
		v.logger.Printf("Rejecting %s: %s", a.MessageID, *reason)
		return v.finalizeOnce(ctx, a.MessageID, domain.StatusReject, reason, evidence)
	}

	return v.accept(ctx, a, now, evidence)
}

// runChecks walks the check chain. Returns (reason, done, err):
// a non-nil reason rejects, done=false keeps the record PENDING, and a
// non-nil error marks a transient failure.
func (v *Validator) runChecks(ctx context.Context, a *domain.AcceptanceStatus, now time.Time, evidence map[string]any) (*domain.ReasonCode, bool, error) {
	// Supply control on the ledger.
	reason, err := v.checkSupplyControl(ctx, a.Mint, evidence)
	if err != nil {
		return nil, false, err
	}
	if reason != nil {
		return reason, true, nil
	}

	// Route existence and cost.
	reason, routed, err := v.checkRoute(ctx, a.Mint, evidence)
	if err != nil {
		return nil, false, err
	}
	if reason != nil {
		return reason, true, nil
	}
	if !routed {
		if now.After(a.Deadline) {
			r := domain.ReasonNoPoolAfterTimeout
			return &r, true, nil
		}
		return nil, false, nil
	}

	// Optional holder concentration.
	if v.concentration {
		reason, err = v.checkConcentration(ctx, a.Mint, evidence)
		if err != nil {
			return nil, false, err
		}
		if reason != nil {
			return reason, true, nil
		}
	}

	return nil, true, nil
}

// checkSupplyControl verifies the mint exists, is fungible, and has both
// supply and freeze authorities revoked.
func (v *Validator) checkSupplyControl(ctx context.Context, mint string, evidence map[string]any) (*domain.ReasonCode, error) {
	acc, err := v.rpc.GetMintAccount(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}

	if !acc.FungibleToken() {
		evidence["mint_check"] = "not a fungible token mint"
		r := domain.ReasonInvalidMint
		return &r, nil
	}

	evidence["mint_owner"] = acc.Owner
	evidence["supply"] = acc.Supply
	evidence["decimals"] = acc.Decimals
	// Keypair mints sit on the ed25519 curve, PDA mints do not. Recorded
	// for the training stage, not a rejection criterion.
	evidence["mint_on_curve"] = solana.OnCurve(mint)
	evidence["mint_authority_revoked"] = acc.MintAuthority == nil
	evidence["freeze_authority_revoked"] = acc.FreezeAuthority == nil

	if acc.MintAuthority != nil {
		r := domain.ReasonInfiniteMint
		return &r, nil
	}
	if acc.FreezeAuthority != nil {
		r := domain.ReasonFreezeBackdoor
		return &r, nil
	}
	return nil, nil
}

// checkRoute simulates the buy-then-sell round trip. routed=false means
// no viable route yet, which is only terminal past the deadline.
func (v *Validator) checkRoute(ctx context.Context, mint string, evidence map[string]any) (*domain.ReasonCode, bool, error) {
	rt, err := v.router.SimulateRoundTrip(ctx, mint, v.testLamports)
	if errors.Is(err, jupiter.ErrNoRoute) {
		evidence["route"] = "none"
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("round trip: %w", err)
	}

	for k, val := range rt.Evidence() {
		evidence[k] = val
	}
	if rt.EffectiveSlippage > v.maxEffectiveFee {
		r := domain.ReasonConfiscatoryFee
		return &r, true, nil
	}
	return nil, true, nil
}

// checkConcentration rejects when the top holders control too much of
// the supply.
func (v *Validator) checkConcentration(ctx context.Context, mint string, evidence map[string]any) (*domain.ReasonCode, error) {
	acc, err := v.rpc.GetMintAccount(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}
	supply, err := strconv.ParseFloat(acc.Supply, 64)
	if err != nil || supply <= 0 {
		return nil, fmt.Errorf("unusable supply %q", acc.Supply)
	}

	balances, err := v.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("largest accounts: %w", err)
	}

	var top float64
	for i, b := range balances {
		if i >= v.topHolders {
			break
		}
		amount, err := strconv.ParseFloat(b.Amount, 64)
		if err != nil {
			continue
		}
		top += amount
	}

	share := top / supply
	evidence["top_holder_share"] = share
	if share > v.maxTopShare {
		r := domain.ReasonTeamConcentration
		return &r, nil
	}
	return nil, nil
}

// accept finalizes the record, opens the monitoring checkpoint, and
// captures a feature snapshot. The entry price must be in hand before
// finalization so a price outage cannot strand an accepted call without
// a monitor row.
func (v *Validator) accept(ctx context.Context, a *domain.AcceptanceStatus, now time.Time, evidence map[string]any) error {
	stats, err := v.prices.TokenStats(ctx, a.Mint)
	if err != nil {
		v.logger.Printf("Entry price for %s unavailable: %v", a.MessageID, err)
		return v.acceptance.Touch(ctx, a.MessageID, now, evidence)
	}

	evidence["entry_price_usd"] = stats.PriceUSD
	if err := v.finalizeOnce(ctx, a.MessageID, domain.StatusAccept, nil, evidence); err != nil {
		return err
	}
	v.logger.Printf("Accepted %s: mint=%s entry=%.10f", a.MessageID, a.Mint, stats.PriceUSD)

	state := &domain.MonitorState{
		MessageID:  a.MessageID,
		Mint:       a.Mint,
		EntryPrice: stats.PriceUSD,
		StartedAt:  now,
		MaxPrice:   stats.PriceUSD,
		LastSeenAt: now,
	}
	if err := v.monitors.Insert(ctx, state); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("open monitor: %w", err)
	}

	snapshot := &domain.FeatureSnapshot{
		MessageID:      a.MessageID,
		Mint:           a.Mint,
		CapturedAt:     now,
		FeatureVersion: domain.FeatureVersion,
		LiquidityUSD:   stats.LiquidityUSD,
		Volume24hUSD:   stats.VolumeH24,
		PriceChange5m:  stats.PriceChangeM5,
		PriceChange1h:  stats.PriceChangeH1,
		Buys24h:        int32(stats.BuysH24),
		Sells24h:       int32(stats.SellsH24),
		PriceUSD:       stats.PriceUSD,
	}
	if v.features != nil {
		if err := v.features.Insert(ctx, snapshot); err != nil {
			// Snapshots are best effort, monitoring is not.
			v.logger.Printf("Feature snapshot for %s failed: %v", a.MessageID, err)
		}
	}
	return nil
}

func (v *Validator) finalizeOnce(ctx context.Context, messageID string, status domain.AcceptanceState, reason *domain.ReasonCode, evidence map[string]any) error {
	err := v.acceptance.Finalize(ctx, messageID, status, reason, evidence)
	if errors.Is(err, storage.ErrTerminal) {
		return nil
	}
	if err == nil {
		reasonLabel := ""
		if reason != nil {
			reasonLabel = string(*reason)
		}
		observability.RecordDecision(string(status), reasonLabel)
	}
	return err
}
