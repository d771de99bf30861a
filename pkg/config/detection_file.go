package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DetectionFile is the optional YAML overlay for detector thresholds.
// Zero values leave the environment setting untouched.
//
//	volume:
//	  spike_multiplier: 4
//	whale:
//	  threshold_usd: 25000
type DetectionFile struct {
	Volume struct {
		SpikeMultiplier float64 `yaml:"spike_multiplier"`
		ZScoreThreshold float64 `yaml:"z_score_threshold"`
	} `yaml:"volume"`
	Price struct {
		RapidMovementPct float64       `yaml:"rapid_movement_pct"`
		StdThreshold     float64       `yaml:"std_threshold"`
		Window           time.Duration `yaml:"window"`
	} `yaml:"price"`
	Whale struct {
		ThresholdUSD       float64       `yaml:"threshold_usd"`
		ImbalanceThreshold float64       `yaml:"imbalance_threshold"`
		Window             time.Duration `yaml:"window"`
	} `yaml:"whale"`
	Coordination struct {
		Window          time.Duration `yaml:"window"`
		MinWallets      int           `yaml:"min_wallets"`
		DirectionalBias float64       `yaml:"directional_bias"`
		MinWindowTrades int           `yaml:"min_window_trades"`
	} `yaml:"coordination"`
	Severity struct {
		Medium   float64 `yaml:"medium"`
		High     float64 `yaml:"high"`
		Critical float64 `yaml:"critical"`
	} `yaml:"severity"`
}

// ApplyDetectionFile reads path and overrides the thresholds it sets.
func (c *Config) ApplyDetectionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var df DetectionFile
	err = yaml.Unmarshal(data, &df)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.applyDetection(&df)
	return nil
}

func (c *Config) applyDetection(df *DetectionFile) {
	setFloat(&c.VolumeSpikeMultiplier, df.Volume.SpikeMultiplier)
	setFloat(&c.VolumeZScoreThreshold, df.Volume.ZScoreThreshold)
	setFloat(&c.PriceRapidMovementPct, df.Price.RapidMovementPct)
	setFloat(&c.PriceMovementStdThreshold, df.Price.StdThreshold)
	setDuration(&c.PriceWindow, df.Price.Window)
	setFloat(&c.WhaleThresholdUSD, df.Whale.ThresholdUSD)
	setFloat(&c.WhaleImbalanceThreshold, df.Whale.ImbalanceThreshold)
	setDuration(&c.WhaleWindow, df.Whale.Window)
	setDuration(&c.CoordinationWindow, df.Coordination.Window)
	setInt(&c.CoordinationMinWallets, df.Coordination.MinWallets)
	setFloat(&c.CoordinationDirectionalBias, df.Coordination.DirectionalBias)
	setInt(&c.CoordinationMinWindowTrades, df.Coordination.MinWindowTrades)
	setFloat(&c.SeverityMediumScore, df.Severity.Medium)
	setFloat(&c.SeverityHighScore, df.Severity.High)
	setFloat(&c.SeverityCriticalScore, df.Severity.Critical)
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
