package domain

import "time"

// PriceSample is one observed price point consumed by the outcome monitor.
// Archived append-only to ClickHouse for audit and offline re-labeling.
type PriceSample struct {
	MessageID  string
	Mint       string
	ObservedAt time.Time // UTC
	PriceUSD   float64
	Multiple   float64 // PriceUSD / entry price at observation time
}
