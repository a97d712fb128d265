package domain

import "time"

// AcceptanceState is the validation status of a resolved call.
type AcceptanceState string

const (
	StatusPending AcceptanceState = "PENDING"
	StatusAccept  AcceptanceState = "ACCEPT"
	StatusReject  AcceptanceState = "REJECT"
)

// IsValid checks if the state is a valid value.
func (s AcceptanceState) IsValid() bool {
	return s == StatusPending || s == StatusAccept || s == StatusReject
}

// Terminal reports whether the state can never transition again.
func (s AcceptanceState) Terminal() bool {
	return s == StatusAccept || s == StatusReject
}

// ReasonCode is a machine-checkable rejection reason. The set is closed:
// the training stage matches on these values.
type ReasonCode string

const (
	ReasonInvalidMint        ReasonCode = "INVALID_MINT"
	ReasonInfiniteMint       ReasonCode = "INFINITE_MINT"
	ReasonFreezeBackdoor     ReasonCode = "FREEZE_BACKDOOR"
	ReasonNoPoolAfterTimeout ReasonCode = "NO_POOL_AFTER_TIMEOUT"
	ReasonConfiscatoryFee    ReasonCode = "CONFISCATORY_FEE"
	ReasonTeamConcentration  ReasonCode = "TEAM_CONCENTRATION"
)

// IsValid checks if the reason is a known value.
func (r ReasonCode) IsValid() bool {
	switch r {
	case ReasonInvalidMint, ReasonInfiniteMint, ReasonFreezeBackdoor,
		ReasonNoPoolAfterTimeout, ReasonConfiscatoryFee, ReasonTeamConcentration:
		return true
	}
	return false
}

// AcceptanceStatus tracks the validation lifecycle of one resolved call.
// Corresponds to acceptance_status table in PostgreSQL.
//
// Status transitions PENDING→ACCEPT or PENDING→REJECT exactly once.
// The claim fields are owned by the work coordinator, not the validator.
type AcceptanceStatus struct {
	MessageID     string // PRIMARY KEY
	Mint          string
	FirstSeen     time.Time // snowflake time of the call, UTC
	Status        AcceptanceState
	Reason        *ReasonCode    // present iff Status == REJECT
	Evidence      map[string]any // raw check outputs, kept for audit
	Deadline      time.Time      // FirstSeen + pool wait timeout
	LastCheckedAt time.Time

	Claim Lease
}
