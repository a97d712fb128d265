package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
)

// DefaultBaseURL is the public quote API root.
const DefaultBaseURL = "https://quote-api.jup.ag"

// DefaultSlippageBps is the tolerance sent with quote requests. It bounds
// what Jupiter will route, not what the round trip accepts.
const DefaultSlippageBps = 50

// LamportsPerSOL converts SOL amounts to the base unit quotes use.
const LamportsPerSOL = 1_000_000_000

// ErrNoRoute indicates Jupiter found no viable route for a leg. This is a
// definitive finding at quote time, not a transient failure.
var ErrNoRoute = errors.New("no route available")

// Router simulates a buy-then-sell round trip for executability testing.
type Router interface {
	SimulateRoundTrip(ctx context.Context, mint string, lamports uint64) (*RoundTrip, error)
}

// Client is a Jupiter v6 quote API client.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a quote client for the given API base URL.
func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 8 * time.Second},
	}
}

var _ Router = (*Client)(nil)

// Quote is a single-leg quote response.
type Quote struct {
	InputMint      string    `json:"inputMint"`
	OutputMint     string    `json:"outputMint"`
	InAmount       string    `json:"inAmount"`
	OutAmount      string    `json:"outAmount"`
	OtherAmount    string    `json:"otherAmountThreshold"`
	SlippageBps    int       `json:"slippageBps"`
	RoutePlan      []any     `json:"routePlan"`
	PriceImpactPct impactPct `json:"priceImpactPct"`
}

// impactPct tolerates both the string and number encodings the API has
// shipped for priceImpactPct.
type impactPct float64

func (p *impactPct) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse priceImpactPct %q: %w", s, err)
		}
		*p = impactPct(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = impactPct(f)
	return nil
}

// GetQuote requests a quote for one leg. amount is in smallest units.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (*Quote, error) {
	start := time.Now()
	defer func() {
		observability.DefaultMetrics.QuoteCallLatency.Observe(time.Since(start).Seconds())
	}()

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(DefaultSlippageBps))
	q.Set("onlyDirectRoutes", "false")
	u := c.base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Unroutable pairs come back as client errors with an error body.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote status %d", resp.StatusCode)
	}

	var out Quote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoundTrip is the result of a simulated buy-then-sell of a mint.
type RoundTrip struct {
	TestLamports   uint64
	TokensReceived uint64
	BuyImpactPct   float64
	SellImpactPct  float64
	// EffectiveSlippage is the worse leg's price impact as a fraction.
	EffectiveSlippage float64
}

// Evidence returns the round trip as audit fields.
func (rt *RoundTrip) Evidence() map[string]any {
	return map[string]any{
		"test_lamports":      rt.TestLamports,
		"tokens_received":    rt.TokensReceived,
		"buy_impact_pct":     rt.BuyImpactPct,
		"sell_impact_pct":    rt.SellImpactPct,
		"effective_slippage": rt.EffectiveSlippage,
	}
}

// SimulateRoundTrip quotes buying the mint with wrapped SOL, then selling
// the exact tokens received back. Returns ErrNoRoute if either leg is
// unroutable or the buy yields zero tokens.
func (c *Client) SimulateRoundTrip(ctx context.Context, mint string, lamports uint64) (*RoundTrip, error) {
	buy, err := c.GetQuote(ctx, solana.WSOLMint, mint, lamports)
	if err != nil {
		return nil, fmt.Errorf("buy leg: %w", err)
	}

	tokensOut, err := strconv.ParseUint(buy.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse buy outAmount %q: %w", buy.OutAmount, err)
	}
	if tokensOut == 0 {
		return nil, fmt.Errorf("buy leg: zero tokens out: %w", ErrNoRoute)
	}

	sell, err := c.GetQuote(ctx, mint, solana.WSOLMint, tokensOut)
	if err != nil {
		return nil, fmt.Errorf("sell leg: %w", err)
	}

	rt := &RoundTrip{
		TestLamports:   lamports,
		TokensReceived: tokensOut,
		BuyImpactPct:   float64(buy.PriceImpactPct),
		SellImpactPct:  float64(sell.PriceImpactPct),
	}
	rt.EffectiveSlippage = rt.BuyImpactPct
	if rt.SellImpactPct > rt.EffectiveSlippage {
		rt.EffectiveSlippage = rt.SellImpactPct
	}
	return rt, nil
}
