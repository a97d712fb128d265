// Package snowflake converts Discord snowflake message IDs to UTC timestamps.
package snowflake

import (
	"fmt"
	"strconv"
	"time"
)

// Epoch is the Discord epoch: 2015-01-01 00:00:00 UTC, in milliseconds.
const Epoch = 1420070400000

// Time extracts the creation time encoded in a snowflake ID.
// The result is always UTC. This is the authoritative arrival timestamp
// for a message and must never be recomputed from wall clocks.
func Time(id string) (time.Time, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snowflake %q: %w", id, err)
	}
	ms := int64(n>>22) + Epoch
	return time.UnixMilli(ms).UTC(), nil
}
