package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("inputMint") != solana.WSOLMint {
			t.Fatalf("missing inputMint query")
		}
		if r.URL.Query().Get("onlyDirectRoutes") != "false" {
			t.Fatalf("missing onlyDirectRoutes query")
		}
		resp := map[string]any{
			"inputMint":      solana.WSOLMint,
			"outputMint":     testMint,
			"inAmount":       "500000000",
			"outAmount":      "123456789",
			"slippageBps":    50,
			"priceImpactPct": "0.0213",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	quote, err := client.GetQuote(context.Background(), solana.WSOLMint, testMint, 500000000)
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if quote.OutAmount != "123456789" {
		t.Fatalf("expected OutAmount 123456789, got %s", quote.OutAmount)
	}
	if float64(quote.PriceImpactPct) != 0.0213 {
		t.Fatalf("expected impact 0.0213, got %f", float64(quote.PriceImpactPct))
	}
}

func TestGetQuote_NumericImpact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outAmount":      "100",
			"priceImpactPct": 0.5,
		})
	}))
	defer server.Close()

	quote, err := NewClient(server.URL).GetQuote(context.Background(), "A", "B", 1)
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if float64(quote.PriceImpactPct) != 0.5 {
		t.Fatalf("expected impact 0.5, got %f", float64(quote.PriceImpactPct))
	}
}

func TestGetQuote_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "Could not find any route"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetQuote(context.Background(), solana.WSOLMint, testMint, 1)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestSimulateRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("inputMint") {
		case solana.WSOLMint:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"outAmount":      "987654",
				"priceImpactPct": "0.02",
			})
		case testMint:
			if r.URL.Query().Get("amount") != "987654" {
				t.Errorf("sell leg must use exact buy outAmount, got %s", r.URL.Query().Get("amount"))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"outAmount":      "490000000",
				"priceImpactPct": "0.09",
			})
		default:
			t.Errorf("unexpected inputMint %s", r.URL.Query().Get("inputMint"))
		}
	}))
	defer server.Close()

	rt, err := NewClient(server.URL).SimulateRoundTrip(context.Background(), testMint, 500000000)
	if err != nil {
		t.Fatalf("SimulateRoundTrip returned error: %v", err)
	}
	if rt.TokensReceived != 987654 {
		t.Errorf("TokensReceived = %d", rt.TokensReceived)
	}
	if rt.EffectiveSlippage != 0.09 {
		t.Errorf("EffectiveSlippage = %f, want worse leg 0.09", rt.EffectiveSlippage)
	}
}

func TestSimulateRoundTrip_ZeroTokensOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outAmount":      "0",
			"priceImpactPct": "0",
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).SimulateRoundTrip(context.Background(), testMint, 500000000)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute for zero out, got %v", err)
	}
}

func TestSimulateRoundTrip_NoSellRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("inputMint") == solana.WSOLMint {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"outAmount":      "1000",
				"priceImpactPct": "0.01",
			})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).SimulateRoundTrip(context.Background(), testMint, 500000000)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute for missing sell route, got %v", err)
	}
}
