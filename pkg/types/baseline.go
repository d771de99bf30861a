package types

import "time"

// BaselineType describes what the baseline was built from.
type BaselineType string

const (
	BaselineHistorical   BaselineType = "historical"
	BaselineRecentTrades BaselineType = "recent_trades"
	BaselineEmpty        BaselineType = "empty"
)

// MarketBaseline is the normal activity profile of a market.
type MarketBaseline struct {
	MarketID         string       `json:"market_id"`
	AvgHourlyVolume  float64      `json:"avg_hourly_volume"`
	StdHourlyVolume  float64      `json:"std_hourly_volume"`
	AvgTradesPerHour float64      `json:"avg_trades_per_hour"`
	AvgPrice         float64      `json:"avg_price"`
	PriceVolatility  float64      `json:"price_volatility"`
	SampleCount      int          `json:"sample_count"`
	HourBuckets      int          `json:"hour_buckets"`
	DataQuality      float64      `json:"data_quality"`
	Type             BaselineType `json:"type"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// IsEmpty reports whether the baseline has too few samples to compare against.
func (b *MarketBaseline) IsEmpty() bool {
	return b == nil || b.SampleCount < 2
}
