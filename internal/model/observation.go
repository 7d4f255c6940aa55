package model

import "time"

// Observation is a single market data point for one instrument.
// Immutable once produced. Exchange payloads are parsed as exact decimals
// at the feed boundary; everything downstream is float64.
type Observation struct {
	Symbol       string
	Price        float64
	Volume24h    float64
	Change24hPct float64
	FundingRate  float64
	Timestamp    time.Time
}
