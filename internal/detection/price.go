package detection

import (
	"fmt"
	"math"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

const (
	trendThresholdPct       = 1.0
	volatilitySpikeMultiple = 3.0
	minStdScoreSamples      = 10
)

// PriceDetector flags rapid moves inside the recent window.
type PriceDetector struct {
	rapidPct     float64
	stdThreshold float64
	window       time.Duration
}

// NewPriceDetector creates a price movement detector.
func NewPriceDetector(cfg Config) *PriceDetector {
	return &PriceDetector{
		rapidPct:     cfg.PriceRapidMovementPct,
		stdThreshold: cfg.PriceMovementStdThreshold,
		window:       cfg.PriceWindow,
	}
}

// Type returns UNUSUAL_PRICE_MOVEMENT.
func (d *PriceDetector) Type() types.AlertType {
	return types.AlertPriceMovement
}

// Detect measures the first-to-last move across the window.
func (d *PriceDetector) Detect(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) types.DetectionResult {
	res := newResult(types.AlertPriceMovement, now)
	if baseline.IsEmpty() {
		res.Reason = reasonInsufficientBaseline
		return res
	}

	recent := window(trades, now.Add(-d.window), now)
	if len(recent) < 2 {
		res.Reason = fmt.Sprintf("fewer than 2 trades in last %v", d.window)
		return res
	}

	start := recent[0].Price
	end := recent[len(recent)-1].Price
	change := end - start
	pct := change / start * 100

	prices := make([]float64, len(recent))
	high, low := start, start
	for i, t := range recent {
		prices[i] = t.Price
		high = math.Max(high, t.Price)
		low = math.Min(low, t.Price)
	}
	_, volatility := meanStd(prices)

	analysis := types.PriceMovementAnalysis{
		PriceStart:     start,
		PriceEnd:       end,
		PriceChangePct: pct,
		High:           high,
		Low:            low,
		Momentum:       momentum(prices),
		Volatility:     volatility,
		Trend:          trend(pct),
		WindowTrades:   len(recent),
	}

	if baseline.SampleCount > minStdScoreSamples && baseline.PriceVolatility > 0 {
		analysis.StdScore = math.Abs(change) / (baseline.PriceVolatility + epsilon)
		analysis.VolatilitySpike = volatility/(baseline.PriceVolatility+epsilon) > volatilitySpikeMultiple
	}

	res.Anomaly = math.Abs(pct) > d.rapidPct || analysis.StdScore > d.stdThreshold
	res.Score = math.Abs(pct)
	res.Details = analysis
	return res
}

func trend(pct float64) string {
	switch {
	case pct > trendThresholdPct:
		return types.TrendUp
	case pct < -trendThresholdPct:
		return types.TrendDown
	default:
		return types.TrendFlat
	}
}

// momentum is the share of price changes that go in the majority direction.
func momentum(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	up, down := 0, 0
	for i := 1; i < len(prices); i++ {
		switch {
		case prices[i] > prices[i-1]:
			up++
		case prices[i] < prices[i-1]:
			down++
		}
	}
	return float64(max(up, down)) / float64(len(prices)-1)
}
