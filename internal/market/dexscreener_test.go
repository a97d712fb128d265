package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolvePair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/pairs/solana/PAIRADDR" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pair": map[string]any{
				"chainId":     "solana",
				"pairAddress": "PAIRADDR",
				"baseToken":   map[string]any{"address": "BASEMINT", "symbol": "MEME"},
				"quoteToken":  map[string]any{"address": "So11111111111111111111111111111111111111112"},
				"priceUsd":    "0.00123",
			},
		})
	}))
	defer server.Close()

	mint, err := NewClient(server.URL).ResolvePair(context.Background(), "PAIRADDR")
	if err != nil {
		t.Fatalf("ResolvePair returned error: %v", err)
	}
	if mint != "BASEMINT" {
		t.Errorf("expected BASEMINT, got %s", mint)
	}
}

func TestResolvePair_ReferenceBaseFlipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pair": map[string]any{
				"pairAddress": "PAIRADDR",
				"baseToken":   map[string]any{"address": "So11111111111111111111111111111111111111112"},
				"quoteToken":  map[string]any{"address": "BASEMINT"},
			},
		})
	}))
	defer server.Close()

	mint, err := NewClient(server.URL).ResolvePair(context.Background(), "PAIRADDR")
	if err != nil {
		t.Fatalf("ResolvePair returned error: %v", err)
	}
	if mint != "BASEMINT" {
		t.Errorf("expected quote side when base is WSOL, got %s", mint)
	}
}

func TestResolvePair_NoPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"pair": nil})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ResolvePair(context.Background(), "UNKNOWN")
	if !errors.Is(err, ErrNoPair) {
		t.Fatalf("expected ErrNoPair, got %v", err)
	}
}

func TestTokenStats_PicksHighestLiquidityPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/tokens/MINT" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pairs": []map[string]any{
				{
					"pairAddress": "shallow",
					"priceUsd":    "0.002",
					"liquidity":   map[string]any{"usd": 5000.0},
				},
				{
					"pairAddress": "deep",
					"priceUsd":    "0.0019",
					"liquidity":   map[string]any{"usd": 250000.0},
					"volume":      map[string]any{"h24": 1200000.0},
					"txns": map[string]any{
						"h24": map[string]any{"buys": 900, "sells": 700},
					},
				},
			},
		})
	}))
	defer server.Close()

	stats, err := NewClient(server.URL).TokenStats(context.Background(), "MINT")
	if err != nil {
		t.Fatalf("TokenStats returned error: %v", err)
	}
	if stats.PairAddress != "deep" {
		t.Errorf("expected deepest pair, got %s", stats.PairAddress)
	}
	if stats.PriceUSD != 0.0019 {
		t.Errorf("PriceUSD = %f", stats.PriceUSD)
	}
	if stats.LiquidityUSD != 250000.0 || stats.VolumeH24 != 1200000.0 {
		t.Errorf("stats mismatch: %+v", stats)
	}
	if stats.BuysH24 != 900 || stats.SellsH24 != 700 {
		t.Errorf("txns mismatch: %+v", stats)
	}
}

func TestTokenStats_NoPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"pairs": []any{}})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).TokenStats(context.Background(), "MINT")
	if !errors.Is(err, ErrNoPair) {
		t.Fatalf("expected ErrNoPair, got %v", err)
	}
}
