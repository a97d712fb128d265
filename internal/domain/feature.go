package domain

import "time"

// FeatureVersion tags the snapshot schema consumed by the training stage.
const FeatureVersion = "v1"

// FeatureSnapshot captures market features for an accepted call at decision
// time. The training stage reads these keyed by message ID; the engine only
// ever appends them. Stored in ClickHouse.
type FeatureSnapshot struct {
	MessageID      string
	Mint           string
	CapturedAt     time.Time
	FeatureVersion string

	LiquidityUSD  float64
	Volume24hUSD  float64
	PriceChange5m float64
	PriceChange1h float64
	Buys24h       int32
	Sells24h      int32
	PriceUSD      float64
}
