package domain

import "time"

// SourceType identifies which payload field produced a mint candidate.
type SourceType string

const (
	SourceEmbedURL         SourceType = "embed_url"
	SourceEmbedTitle       SourceType = "embed_title"
	SourceEmbedDescription SourceType = "embed_description"
	SourceEmbedField       SourceType = "embed_field"
	SourceEmbedFooter      SourceType = "embed_footer"
	SourceButton           SourceType = "button"
	SourceContentURL       SourceType = "content_url"
	SourceBase58Scan       SourceType = "base58_scan"
)

// MintResolution records the outcome of mint extraction for one message.
// Corresponds to mint_resolutions table in PostgreSQL. Write-once per
// message: the validator never mutates it.
type MintResolution struct {
	MessageID  string     // PRIMARY KEY, 1:1 with raw_messages
	Resolved   bool       // true iff Mint is non-nil and ledger-verified
	Mint       *string    // canonical SPL mint address
	SourceURL  *string    // URL the mint was extracted from, if any
	SourceType SourceType // which field/pattern matched (empty if unresolved)
	Confidence float64    // extraction confidence, 0 when unresolved
	Error      *string    // detail for unresolved or transient failures
	ResolvedAt time.Time
}
