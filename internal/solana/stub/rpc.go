package stub

import (
	"context"
	"errors"

	"github.com/DoctorKnockers/ag-trading-bot/internal/solana"
)

// ErrUnavailable simulates a transient RPC failure.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Mints    map[string]*solana.MintAccount
	Largest  map[string][]solana.TokenAccountBalance
	FailNext bool
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Mints:   make(map[string]*solana.MintAccount),
		Largest: make(map[string][]solana.TokenAccountBalance),
	}
}

// GetMintAccount retrieves a mint account from the stub store. Unknown
// mints return nil, matching the live client for missing accounts.
func (c *RPCClient) GetMintAccount(_ context.Context, mint string) (*solana.MintAccount, error) {
	if c.FailNext {
		c.FailNext = false
		return nil, ErrUnavailable
	}
	return c.Mints[mint], nil
}

// GetTokenLargestAccounts retrieves largest accounts from the stub store.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if c.FailNext {
		c.FailNext = false
		return nil, ErrUnavailable
	}
	return c.Largest[mint], nil
}

// AddMint registers a mint account in the stub store.
func (c *RPCClient) AddMint(acc *solana.MintAccount) {
	c.Mints[acc.Address] = acc
}

// AddCleanMint registers a fungible mint with both authorities revoked.
func (c *RPCClient) AddCleanMint(mint string) *solana.MintAccount {
	acc := &solana.MintAccount{
		Address:     mint,
		Owner:       solana.TokenProgram,
		Supply:      "1000000000000000",
		Decimals:    6,
		Initialized: true,
	}
	c.Mints[mint] = acc
	return acc
}
