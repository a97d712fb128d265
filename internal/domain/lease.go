package domain

import "time"

// Lease is a time-bounded exclusive claim on a record. A record with a nil
// holder, or whose expiry has passed, may be claimed by any worker.
type Lease struct {
	ClaimedBy    *string    // worker ID holding the claim
	ClaimExpires *time.Time // claim is void after this instant
}

// Held reports whether the lease is currently held as of now.
func (l Lease) Held(now time.Time) bool {
	return l.ClaimedBy != nil && l.ClaimExpires != nil && now.Before(*l.ClaimExpires)
}
