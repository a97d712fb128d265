package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetMintAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"owner": TokenProgram,
					"data": map[string]interface{}{
						"program": "spl-token",
						"parsed": map[string]interface{}{
							"type": "mint",
							"info": map[string]interface{}{
								"supply":          "999967185903657",
								"decimals":        6,
								"isInitialized":   true,
								"mintAuthority":   "",
								"freezeAuthority": "8Lq5zAZvTB5jvg8RZSqjMg4rHzwvYBGLHBB9pyve2Tg6",
							},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	acc, err := client.GetMintAccount(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	if err != nil {
		t.Fatalf("GetMintAccount: %v", err)
	}
	if acc == nil {
		t.Fatal("expected mint account, got nil")
	}

	if !acc.FungibleToken() {
		t.Error("expected fungible token")
	}
	if acc.Supply != "999967185903657" {
		t.Errorf("supply mismatch: %s", acc.Supply)
	}
	if acc.Decimals != 6 {
		t.Errorf("decimals mismatch: %d", acc.Decimals)
	}
	if acc.MintAuthority != nil {
		t.Errorf("expected nil mint authority, got %v", *acc.MintAuthority)
	}
	if acc.FreezeAuthority == nil {
		t.Error("expected freeze authority present")
	}
}

func TestHTTPClient_GetMintAccount_Missing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": nil},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	acc, err := client.GetMintAccount(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetMintAccount: %v", err)
	}
	if acc != nil {
		t.Errorf("expected nil for missing account, got %+v", acc)
	}
}

func TestHTTPClient_GetMintAccount_NotAMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		// System account with base64 data array
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"owner": "11111111111111111111111111111111",
					"data":  []string{"", "base64"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	acc, err := client.GetMintAccount(context.Background(), "somewalletaddr")
	if err != nil {
		t.Fatalf("GetMintAccount: %v", err)
	}
	if acc == nil {
		t.Fatal("expected account, got nil")
	}
	if acc.FungibleToken() {
		t.Error("system account must not report as fungible token")
	}
}

func TestHTTPClient_GetTokenLargestAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenLargestAccounts" {
			t.Errorf("expected method getTokenLargestAccounts, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{"address": "acct1", "amount": "500000000000", "decimals": 6, "uiAmount": 500000.0},
					{"address": "acct2", "amount": "100000000000", "decimals": 6, "uiAmount": 100000.0},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	balances, err := client.GetTokenLargestAccounts(context.Background(), "mint")
	if err != nil {
		t.Fatalf("GetTokenLargestAccounts: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Address != "acct1" || balances[0].UIAmount != 500000.0 {
		t.Errorf("first balance mismatch: %+v", balances[0])
	}
}

func TestHTTPClient_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": nil},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithRetryDelay(10*time.Millisecond),
		WithMaxRetries(2),
	)
	if _, err := client.GetMintAccount(context.Background(), "mint"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid param"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	if _, err := client.GetMintAccount(context.Background(), "bad"); err == nil {
		t.Fatal("expected RPC error")
	}
	if calls.Load() != 1 {
		t.Errorf("RPC error should not be retried, got %d calls", calls.Load())
	}
}
