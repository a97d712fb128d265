package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a well-formed Solana address: base58
// text decoding to exactly 32 bytes.
func ValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// OnCurve reports whether the address decodes to a valid ed25519 point.
// Regular keypair addresses are on the curve; program derived addresses
// are deliberately off it. Mint addresses may be either, so this is a
// signal for evidence, not a rejection criterion.
func OnCurve(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
