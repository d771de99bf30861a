package detection

import (
	"math"
	"sort"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
)

const (
	epsilon = 1e-8

	reasonInsufficientBaseline = "insufficient baseline"
)

// Config holds the detector thresholds.
type Config struct {
	VolumeSpikeMultiplier float64
	VolumeZScoreThreshold float64

	PriceRapidMovementPct     float64
	PriceMovementStdThreshold float64
	PriceWindow               time.Duration

	WhaleThresholdUSD       float64
	WhaleImbalanceThreshold float64
	WhaleWindow             time.Duration

	CoordinationWindow          time.Duration
	CoordinationMinWallets      int
	CoordinationDirectionalBias float64
	CoordinationMinWindowTrades int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		VolumeSpikeMultiplier:       3.0,
		VolumeZScoreThreshold:       3.0,
		PriceRapidMovementPct:       15.0,
		PriceMovementStdThreshold:   2.5,
		PriceWindow:                 60 * time.Minute,
		WhaleThresholdUSD:           10000,
		WhaleImbalanceThreshold:     0.7,
		WhaleWindow:                 60 * time.Minute,
		CoordinationWindow:          30 * time.Minute,
		CoordinationMinWallets:      5,
		CoordinationDirectionalBias: 0.8,
		CoordinationMinWindowTrades: 20,
	}
}

// FromConfig extracts detector thresholds from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		VolumeSpikeMultiplier:       cfg.VolumeSpikeMultiplier,
		VolumeZScoreThreshold:       cfg.VolumeZScoreThreshold,
		PriceRapidMovementPct:       cfg.PriceRapidMovementPct,
		PriceMovementStdThreshold:   cfg.PriceMovementStdThreshold,
		PriceWindow:                 cfg.PriceWindow,
		WhaleThresholdUSD:           cfg.WhaleThresholdUSD,
		WhaleImbalanceThreshold:     cfg.WhaleImbalanceThreshold,
		WhaleWindow:                 cfg.WhaleWindow,
		CoordinationWindow:          cfg.CoordinationWindow,
		CoordinationMinWallets:      cfg.CoordinationMinWallets,
		CoordinationDirectionalBias: cfg.CoordinationDirectionalBias,
		CoordinationMinWindowTrades: cfg.CoordinationMinWindowTrades,
	}
}

// Detector inspects a market's trades against its baseline.
// Implementations must not retain trades or mutate the baseline.
type Detector interface {
	Type() types.AlertType
	Detect(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) types.DetectionResult
}

func newResult(kind types.AlertType, now time.Time) types.DetectionResult {
	return types.DetectionResult{
		Detector:  kind,
		Timestamp: now,
	}
}

// window returns valid trades with from < ts <= to, oldest first.
func window(trades []*types.Trade, from, to time.Time) []*types.Trade {
	out := make([]*types.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.Valid() {
			continue
		}
		if !t.Timestamp.After(from) || t.Timestamp.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func countValid(trades []*types.Trade) int {
	n := 0
	for _, t := range trades {
		if t.Valid() {
			n++
		}
	}
	return n
}

// meanStd returns the mean and sample standard deviation of values.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}

// gapsSeconds returns the spacing between consecutive, time-ordered trades.
func gapsSeconds(trades []*types.Trade) []float64 {
	if len(trades) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(trades)-1)
	for i := 1; i < len(trades); i++ {
		gaps = append(gaps, trades[i].Timestamp.Sub(trades[i-1].Timestamp).Seconds())
	}
	return gaps
}
