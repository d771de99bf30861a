package detection

import (
	"math"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

// VolumeDetector flags hours whose USD volume is far above the baseline.
type VolumeDetector struct {
	multiplier float64
	zThreshold float64
}

// NewVolumeDetector creates a volume spike detector.
func NewVolumeDetector(cfg Config) *VolumeDetector {
	return &VolumeDetector{
		multiplier: cfg.VolumeSpikeMultiplier,
		zThreshold: cfg.VolumeZScoreThreshold,
	}
}

// Type returns VOLUME_SPIKE.
func (d *VolumeDetector) Type() types.AlertType {
	return types.AlertVolumeSpike
}

// Detect compares the trailing hour's USD volume to the baseline.
func (d *VolumeDetector) Detect(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) types.DetectionResult {
	if baseline.IsEmpty() {
		res := newResult(types.AlertVolumeSpike, now)
		res.Reason = reasonInsufficientBaseline
		return res
	}

	recent := window(trades, now.Add(-time.Hour), now)
	var current float64
	for _, t := range recent {
		current += t.VolumeUSD()
	}

	return d.evaluate(current, len(recent), baseline, now)
}

func (d *VolumeDetector) evaluate(current float64, tradeCount int, baseline *types.MarketBaseline, now time.Time) types.DetectionResult {
	res := newResult(types.AlertVolumeSpike, now)

	avg := baseline.AvgHourlyVolume
	if avg <= 0 {
		res.Reason = "zero baseline volume"
		return res
	}

	multiplier := current / avg
	z := (current - avg) / (baseline.StdHourlyVolume + epsilon)

	analysis := types.VolumeSpikeAnalysis{
		CurrentHourVolume: current,
		AvgHourlyVolume:   avg,
		SpikeMultiplier:   multiplier,
		ZScore:            z,
		TradeCount:        tradeCount,
	}

	res.Anomaly = multiplier > d.multiplier || z > d.zThreshold
	if res.Anomaly {
		analysis.MaxAnomalyScore = math.Max(multiplier, z)
	}
	res.Score = multiplier
	res.Details = analysis
	return res
}
