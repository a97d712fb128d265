package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
)

// DefaultBaseURL is the public Dexscreener API root.
const DefaultBaseURL = "https://api.dexscreener.com/latest"

// ErrNoPair indicates no trading pair exists for the queried address.
var ErrNoPair = errors.New("no pair data")

// PriceSource provides the current USD price for a mint.
type PriceSource interface {
	TokenStats(ctx context.Context, mint string) (*TokenStats, error)
}

// Client is a Dexscreener HTTP API client.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the given API base URL. Pass
// DefaultBaseURL for the public endpoint.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ PriceSource = (*Client)(nil)

// TokenStats is the best-pair market view of a mint.
type TokenStats struct {
	Mint          string
	PairAddress   string
	PriceUSD      float64
	LiquidityUSD  float64
	VolumeH24     float64
	BuysH24       int
	SellsH24      int
	PriceChangeM5 float64
	PriceChangeH1 float64
	ObservedAt    time.Time
}

type pairsResponse struct {
	Pairs []pair `json:"pairs"`
	Pair  *pair  `json:"pair"`
}

func (r *pairsResponse) all() []pair {
	if len(r.Pairs) > 0 {
		return r.Pairs
	}
	if r.Pair != nil {
		return []pair{*r.Pair}
	}
	return nil
}

type pair struct {
	ChainID     string      `json:"chainId"`
	PairAddress string      `json:"pairAddress"`
	BaseToken   token       `json:"baseToken"`
	QuoteToken  token       `json:"quoteToken"`
	PriceUsd    string      `json:"priceUsd"`
	PriceNative string      `json:"priceNative"`
	Txns        txns        `json:"txns"`
	Volume      volumes     `json:"volume"`
	Liquidity   liquidity   `json:"liquidity"`
	PriceChange priceChange `json:"priceChange"`
}

type token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type txns struct {
	M5  txn `json:"m5"`
	H1  txn `json:"h1"`
	H24 txn `json:"h24"`
}

type txn struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type volumes struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

type liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type priceChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	start := time.Now()
	defer func() {
		observability.DefaultMetrics.MarketCallLatency.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ag-trading-bot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// referenceAssets are quote-side mints that can never be the called token.
var referenceAssets = map[string]bool{
	"So11111111111111111111111111111111111111112":  true, // WSOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": true, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": true, // USDT
}

// ResolvePair looks up a Solana pair address and returns the traded token
// mint. Dexscreener URLs carry pair addresses, not mints, so call links
// need this hop. The base side is normally the traded token; when it is a
// reference asset the quote side is returned instead.
func (c *Client) ResolvePair(ctx context.Context, pairAddress string) (string, error) {
	url := fmt.Sprintf("%s/dex/pairs/solana/%s", c.base, pairAddress)

	var payload pairsResponse
	if err := c.get(ctx, url, &payload); err != nil {
		return "", err
	}

	pairs := payload.all()
	if len(pairs) == 0 || pairs[0].BaseToken.Address == "" {
		return "", ErrNoPair
	}

	p := pairs[0]
	if referenceAssets[p.BaseToken.Address] && p.QuoteToken.Address != "" {
		return p.QuoteToken.Address, nil
	}
	return p.BaseToken.Address, nil
}

// TokenStats fetches the market view of a mint from its highest liquidity
// pair.
func (c *Client) TokenStats(ctx context.Context, mint string) (*TokenStats, error) {
	url := fmt.Sprintf("%s/dex/tokens/%s", c.base, mint)

	var payload pairsResponse
	if err := c.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	pairs := payload.all()
	if len(pairs) == 0 {
		return nil, ErrNoPair
	}

	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	price, err := parsePrice(&best)
	if err != nil {
		return nil, err
	}

	return &TokenStats{
		Mint:          mint,
		PairAddress:   best.PairAddress,
		PriceUSD:      price,
		LiquidityUSD:  best.Liquidity.USD,
		VolumeH24:     best.Volume.H24,
		BuysH24:       best.Txns.H24.Buys,
		SellsH24:      best.Txns.H24.Sells,
		PriceChangeM5: best.PriceChange.M5,
		PriceChangeH1: best.PriceChange.H1,
		ObservedAt:    time.Now().UTC(),
	}, nil
}

func parsePrice(p *pair) (float64, error) {
	if p.PriceUsd != "" {
		if px, err := strconv.ParseFloat(p.PriceUsd, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	return 0, fmt.Errorf("pair %s missing usd price", p.PairAddress)
}
