// Package resolver extracts and verifies SPL mint addresses from raw
// call messages. Each message is resolved at most once: the result, hit
// or miss, is written as a mint_resolutions row and never revisited.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage"
)

// PairResolver maps a trading pair address to its traded token mint.
type PairResolver interface {
	ResolvePair(ctx context.Context, pairAddress string) (string, error)
}

// Resolver turns raw messages into mint resolutions.
type Resolver struct {
	resolutions storage.ResolutionStore
	rpc         solana.RPCClient
	pairs       PairResolver
	logger      *log.Logger
}

// Options contains configuration for creating a Resolver.
type Options struct {
	Resolutions storage.ResolutionStore
	RPC         solana.RPCClient
	Pairs       PairResolver
	Logger      *log.Logger
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		resolutions: opts.Resolutions,
		rpc:         opts.RPC,
		pairs:       opts.Pairs,
		logger:      logger,
	}
}

// Process resolves one message and persists the result. A transient
// external failure returns an error without writing anything, leaving
// the message eligible for a later attempt. Everything else, including
// "no mint found", is recorded as the final resolution.
func (r *Resolver) Process(ctx context.Context, msg *domain.RawMessage) (*domain.MintResolution, error) {
	res, err := r.resolve(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := r.resolutions.Insert(ctx, res); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Another worker got here first.
			return r.resolutions.GetByID(ctx, msg.MessageID)
		}
		return nil, fmt.Errorf("store resolution: %w", err)
	}

	if res.Resolved {
		r.logger.Printf("Resolved %s: mint=%s source=%s confidence=%.2f",
			msg.MessageID, *res.Mint, res.SourceType, res.Confidence)
	} else {
		r.logger.Printf("Unresolved %s: %s", msg.MessageID, *res.Error)
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, msg *domain.RawMessage) (*domain.MintResolution, error) {
	candidates := extractCandidates(msg.Payload)
	if len(candidates) == 0 {
		return unresolved(msg.MessageID, "no mint candidates in message"), nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	var tried []string
	for _, c := range candidates {
		tried = append(tried, string(c.Source))

		mint, ok, err := r.verify(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("verify candidate %s: %w", c.Mint, err)
		}
		if !ok {
			continue
		}

		res := &domain.MintResolution{
			MessageID:  msg.MessageID,
			Resolved:   true,
			Mint:       &mint,
			SourceType: c.Source,
			Confidence: c.Confidence,
			ResolvedAt: time.Now().UTC(),
		}
		if c.SourceURL != "" {
			url := c.SourceURL
			res.SourceURL = &url
		}
		return res, nil
	}

	detail := "no candidate passed ledger check, tried: " + strings.Join(tried, ", ")
	return unresolved(msg.MessageID, detail), nil
}

// verify confirms a candidate is a real fungible mint on the ledger,
// resolving pair addresses through the market service when needed.
// Returns the canonical mint on success.
func (r *Resolver) verify(ctx context.Context, c candidate) (string, bool, error) {
	if !solana.ValidAddress(c.Mint) {
		return "", false, nil
	}

	ok, err := r.isFungibleMint(ctx, c.Mint)
	if err != nil {
		return "", false, err
	}
	if ok {
		return c.Mint, true, nil
	}
	if !c.MaybePair {
		return "", false, nil
	}

	// A dexscreener path segment that is not a mint may be a pair.
	mint, err := r.pairs.ResolvePair(ctx, c.Mint)
	if errors.Is(err, market.ErrNoPair) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	ok, err = r.isFungibleMint(ctx, mint)
	if err != nil || !ok {
		return "", ok, err
	}
	return mint, true, nil
}

func (r *Resolver) isFungibleMint(ctx context.Context, mint string) (bool, error) {
	acc, err := r.rpc.GetMintAccount(ctx, mint)
	if err != nil {
		return false, err
	}
	return acc.FungibleToken(), nil
}

func unresolved(messageID, detail string) *domain.MintResolution {
	return &domain.MintResolution{
		MessageID:  messageID,
		Error:      &detail,
		ResolvedAt: time.Now().UTC(),
	}
}
