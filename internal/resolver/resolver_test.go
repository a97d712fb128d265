package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/solana/stub"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/memory"
)

const (
	mintBonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mintJup  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	pairAddr = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
)

// fakePairs is a canned PairResolver.
type fakePairs struct {
	mapping map[string]string
	err     error
}

func (f *fakePairs) ResolvePair(_ context.Context, pair string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if mint, ok := f.mapping[pair]; ok {
		return mint, nil
	}
	return "", market.ErrNoPair
}

func newTestResolver(rpc *stub.RPCClient, pairs *fakePairs) (*Resolver, *memory.ResolutionStore) {
	raw := memory.NewRawMessageStore()
	resolutions := memory.NewResolutionStore(raw)
	if pairs == nil {
		pairs = &fakePairs{}
	}
	r := New(Options{
		Resolutions: resolutions,
		RPC:         rpc,
		Pairs:       pairs,
	})
	return r, resolutions
}

func msgWithPayload(id string, payload map[string]any) *domain.RawMessage {
	return &domain.RawMessage{
		MessageID: id,
		PostedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:   payload,
	}
}

func TestProcess_EmbedURL(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddCleanMint(mintBonk)
	r, _ := newTestResolver(rpc, nil)

	msg := msgWithPayload("1", map[string]any{
		"embeds": []any{
			map[string]any{"url": "https://solscan.io/token/" + mintBonk},
		},
	})

	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Resolved || *res.Mint != mintBonk {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if res.SourceType != domain.SourceEmbedURL || res.Confidence != 0.9 {
		t.Errorf("source mismatch: %s %.2f", res.SourceType, res.Confidence)
	}
	if res.SourceURL == nil {
		t.Error("expected source URL recorded")
	}
}

func TestProcess_RankingFallsThroughFailedLedgerCheck(t *testing.T) {
	rpc := stub.NewRPCClient()
	// Only the low-confidence candidate exists on the ledger.
	rpc.AddCleanMint(mintJup)
	r, _ := newTestResolver(rpc, nil)

	msg := msgWithPayload("2", map[string]any{
		"embeds": []any{
			map[string]any{"url": "https://solscan.io/token/" + mintBonk},
		},
		"content": "check https://pump.fun/coin/" + mintJup,
	})

	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Resolved || *res.Mint != mintJup {
		t.Fatalf("expected fallback to verified candidate, got %+v", res)
	}
	if res.SourceType != domain.SourceContentURL {
		t.Errorf("source mismatch: %s", res.SourceType)
	}
}

func TestProcess_DexscreenerPairResolution(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddCleanMint(mintBonk)
	pairs := &fakePairs{mapping: map[string]string{pairAddr: mintBonk}}
	r, _ := newTestResolver(rpc, pairs)

	msg := msgWithPayload("3", map[string]any{
		"embeds": []any{
			map[string]any{"url": "https://dexscreener.com/solana/" + pairAddr},
		},
	})

	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Resolved || *res.Mint != mintBonk {
		t.Fatalf("expected pair to resolve to base mint, got %+v", res)
	}
}

func TestProcess_Base58ScrapeLastResort(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddCleanMint(mintBonk)
	r, _ := newTestResolver(rpc, nil)

	msg := msgWithPayload("4", map[string]any{
		"content": "new gem just dropped " + mintBonk + " get in",
	})

	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Resolved || res.SourceType != domain.SourceBase58Scan {
		t.Fatalf("expected base58 scan hit, got %+v", res)
	}
	if res.Confidence != 0.3 {
		t.Errorf("confidence = %.2f", res.Confidence)
	}
}

func TestProcess_NoCandidates(t *testing.T) {
	rpc := stub.NewRPCClient()
	r, resolutions := newTestResolver(rpc, nil)

	msg := msgWithPayload("5", map[string]any{"content": "gm"})

	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Resolved || res.Error == nil {
		t.Fatalf("expected unresolved with detail, got %+v", res)
	}

	// The miss is still persisted, closing the message.
	stored, err := resolutions.GetByID(context.Background(), "5")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Resolved {
		t.Error("miss should be stored unresolved")
	}
}

func TestProcess_TransientErrorStoresNothing(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddCleanMint(mintBonk)
	rpc.FailNext = true
	r, resolutions := newTestResolver(rpc, nil)

	msg := msgWithPayload("6", map[string]any{
		"embeds": []any{
			map[string]any{"url": "https://solscan.io/token/" + mintBonk},
		},
	})

	if _, err := r.Process(context.Background(), msg); !errors.Is(err, stub.ErrUnavailable) {
		t.Fatalf("expected transient error surfaced, got %v", err)
	}
	if _, err := resolutions.GetByID(context.Background(), "6"); err == nil {
		t.Error("transient failure must not persist a resolution")
	}

	// A later attempt succeeds.
	res, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !res.Resolved {
		t.Error("retry should resolve")
	}
}

func TestProcess_AtMostOnce(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddCleanMint(mintBonk)
	r, _ := newTestResolver(rpc, nil)

	msg := msgWithPayload("7", map[string]any{
		"embeds": []any{
			map[string]any{"url": "https://solscan.io/token/" + mintBonk},
		},
	})

	first, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	second, err := r.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.ResolvedAt != first.ResolvedAt {
		t.Error("second attempt must return the stored resolution")
	}
}

func TestExtractCandidates_Priority(t *testing.T) {
	payload := map[string]any{
		"embeds": []any{
			map[string]any{
				"url":         "https://solscan.io/token/" + mintBonk,
				"description": "trade at https://birdeye.so/token/" + mintJup,
				"footer":      map[string]any{"text": "mint: " + mintJup},
			},
		},
		"components": []any{
			map[string]any{
				"components": []any{
					map[string]any{"url": "https://pump.fun/coin/" + mintJup, "label": "Buy"},
				},
			},
		},
	}

	cands := extractCandidates(payload)
	if len(cands) != 4 {
		t.Fatalf("expected 4 candidates, got %d: %+v", len(cands), cands)
	}

	byType := map[domain.SourceType]float64{}
	for _, c := range cands {
		byType[c.Source] = c.Confidence
	}
	if byType[domain.SourceEmbedURL] != 0.9 || byType[domain.SourceButton] != 0.85 {
		t.Errorf("confidence map wrong: %+v", byType)
	}
	if byType[domain.SourceEmbedDescription] != 0.8 || byType[domain.SourceEmbedFooter] != 0.6 {
		t.Errorf("confidence map wrong: %+v", byType)
	}
}

func TestMintFromURL_QueryParams(t *testing.T) {
	c, ok := mintFromURL("https://example.com/swap?mint=" + mintBonk)
	if !ok || c.Mint != mintBonk {
		t.Fatalf("query param extraction failed: %+v ok=%v", c, ok)
	}
}
