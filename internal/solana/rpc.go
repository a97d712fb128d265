package solana

import "context"

// SPL token program IDs. A mint account must be owned by one of these to
// count as a fungible token.
const (
	TokenProgram     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// WSOLMint is the wrapped SOL mint used as the quote side of routing.
const WSOLMint = "So11111111111111111111111111111111111111112"

// RPCClient defines the Solana RPC operations used for mint verification.
type RPCClient interface {
	// GetMintAccount retrieves and parses the on-chain account for a mint
	// address. Returns nil if the account does not exist.
	GetMintAccount(ctx context.Context, mint string) (*MintAccount, error)

	// GetTokenLargestAccounts retrieves the largest token accounts for a
	// mint, used by the optional holder concentration check.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)
}

// MintAccount is the parsed state of an SPL mint account.
type MintAccount struct {
	Address         string
	Owner           string // owning program, e.g. TokenProgram
	Supply          string // raw supply in base units
	Decimals        uint8
	MintAuthority   *string // nil when revoked
	FreezeAuthority *string // nil when revoked
	Initialized     bool
}

// FungibleToken reports whether the account is a mint owned by a
// recognized SPL token program.
func (m *MintAccount) FungibleToken() bool {
	return m != nil && m.Initialized && (m.Owner == TokenProgram || m.Owner == Token2022Program)
}

// TokenAccountBalance is one entry from getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address  string
	Amount   string
	Decimals uint8
	UIAmount float64
}
