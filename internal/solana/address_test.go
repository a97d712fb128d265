package solana

import "testing"

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"usdc mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"wsol mint", WSOLMint, true},
		{"token program", TokenProgram, true},
		{"too short", "abc", false},
		{"contains zero", "0PjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"contains uppercase O", "OPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"empty", "", false},
		{"too long", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1vEPjFWdd5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAddress(tt.addr); got != tt.want {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestOnCurve(t *testing.T) {
	// Keypair-derived addresses decode to points on the ed25519 curve.
	if !OnCurve(WSOLMint) {
		t.Error("WSOL mint should be on curve")
	}
	if OnCurve("not-base58-0OIl") {
		t.Error("invalid base58 must be off curve")
	}
	if OnCurve("abc") {
		t.Error("short input must be off curve")
	}
}
