package types

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Analysis is the detector-specific payload of a detection result.
// Exactly one concrete type exists per AlertType.
type Analysis interface {
	Kind() AlertType
	Summary() string
}

// DetectionResult is the output of a single detector run.
type DetectionResult struct {
	Detector  AlertType `json:"detector"`
	Anomaly   bool      `json:"anomaly"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason,omitempty"`
	Details   Analysis  `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// VolumeSpikeAnalysis reports current-hour volume against the baseline.
type VolumeSpikeAnalysis struct {
	CurrentHourVolume float64 `json:"current_hour_volume"`
	AvgHourlyVolume   float64 `json:"avg_hourly_volume"`
	SpikeMultiplier   float64 `json:"spike_multiplier"`
	ZScore            float64 `json:"z_score"`
	MaxAnomalyScore   float64 `json:"max_anomaly_score"`
	TradeCount        int     `json:"trade_count"`
}

func (VolumeSpikeAnalysis) Kind() AlertType { return AlertVolumeSpike }

func (a VolumeSpikeAnalysis) Summary() string {
	return fmt.Sprintf("%.1fx normal volume ($%.0f vs $%.0f avg)",
		a.SpikeMultiplier, a.CurrentHourVolume, a.AvgHourlyVolume)
}

// Price trend directions.
const (
	TrendUp   = "UP"
	TrendDown = "DOWN"
	TrendFlat = "FLAT"
)

// PriceMovementAnalysis reports the move across the detection window.
type PriceMovementAnalysis struct {
	PriceStart      float64 `json:"price_start"`
	PriceEnd        float64 `json:"price_end"`
	PriceChangePct  float64 `json:"price_change_pct"`
	StdScore        float64 `json:"std_score"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Momentum        float64 `json:"momentum"`
	Volatility      float64 `json:"volatility"`
	VolatilitySpike bool    `json:"volatility_spike"`
	Trend           string  `json:"trend"`
	WindowTrades    int     `json:"window_trades"`
}

func (PriceMovementAnalysis) Kind() AlertType { return AlertPriceMovement }

func (a PriceMovementAnalysis) Summary() string {
	return fmt.Sprintf("%+.1f%% price move (%.3f -> %.3f)", a.PriceChangePct, a.PriceStart, a.PriceEnd)
}

// WhaleBreakdown aggregates whale trades for one wallet.
type WhaleBreakdown struct {
	Wallet        string  `json:"wallet"`
	TotalVolume   float64 `json:"total_volume"`
	TradeCount    int     `json:"trade_count"`
	PreferredSide string  `json:"preferred_side"`
	AssetID       string  `json:"asset_id,omitempty"`
}

// WhaleCoordination summarizes whether the whales acted together.
type WhaleCoordination struct {
	Coordinated   bool    `json:"coordinated"`
	Score         int     `json:"score"`
	SameDirection bool    `json:"same_direction"`
	Clustered     bool    `json:"clustered"`
	SimilarSizes  bool    `json:"similar_sizes"`
	TimeSpreadSec float64 `json:"time_spread_sec"`
}

// WhaleActivityAnalysis reports large-trade concentration.
type WhaleActivityAnalysis struct {
	TotalWhaleVolume     float64           `json:"total_whale_volume"`
	BuyVolume            float64           `json:"buy_volume"`
	SellVolume           float64           `json:"sell_volume"`
	DirectionalImbalance float64           `json:"directional_imbalance"`
	DominantSide         string            `json:"dominant_side"`
	WhaleCount           int               `json:"whale_count"`
	WhaleTradeCount      int               `json:"whale_trade_count"`
	MarketShare          float64           `json:"market_share"`
	LargestTrade         float64           `json:"largest_trade"`
	TopWhales            []WhaleBreakdown  `json:"top_whales,omitempty"`
	Coordination         WhaleCoordination `json:"coordination"`
}

func (WhaleActivityAnalysis) Kind() AlertType { return AlertWhaleActivity }

func (a WhaleActivityAnalysis) Summary() string {
	return fmt.Sprintf("%d whales, $%.0f volume, %.0f%% %s",
		a.WhaleCount, a.TotalWhaleVolume, a.DirectionalImbalance*100, a.DominantSide)
}

// WashTradingAnalysis flags maker/taker pairs trading back and forth.
type WashTradingAnalysis struct {
	Detected        bool    `json:"detected"`
	Score           float64 `json:"score"`
	SuspiciousPairs int     `json:"suspicious_pairs"`
}

// CoordinationAnalysis reports wallet behaviour inside the recent window.
type CoordinationAnalysis struct {
	CoordinationScore float64             `json:"coordination_score"`
	UniqueWallets     int                 `json:"unique_wallets"`
	BuyWallets        int                 `json:"buy_wallets"`
	SellWallets       int                 `json:"sell_wallets"`
	BuyWalletRatio    float64             `json:"buy_wallet_ratio"`
	DominantDirection string              `json:"dominant_direction"`
	WindowTradeCount  int                 `json:"window_trade_count"`
	TimingClustering  float64             `json:"timing_clustering"`
	SizeConsistency   float64             `json:"size_consistency"`
	WalletDiversity   float64             `json:"wallet_diversity"`
	AssetID           string              `json:"asset_id,omitempty"`
	WashTrading       WashTradingAnalysis `json:"wash_trading"`
}

func (CoordinationAnalysis) Kind() AlertType { return AlertCoordinatedTrading }

func (a CoordinationAnalysis) Summary() string {
	return fmt.Sprintf("%d wallets, %.0f%% buying, score %.2f",
		a.UniqueWallets, a.BuyWalletRatio*100, a.CoordinationScore)
}

type analysisEnvelope struct {
	Kind AlertType       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeAnalysis serializes an analysis with its kind tag.
func EncodeAnalysis(a Analysis) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return json.Marshal(analysisEnvelope{Kind: a.Kind(), Data: data})
}

// DecodeAnalysis restores an analysis written by EncodeAnalysis.
func DecodeAnalysis(data []byte) (Analysis, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil //nolint:nilnil // absent analysis
	}
	var env analysisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode analysis envelope: %w", err)
	}

	var target Analysis
	switch env.Kind {
	case AlertVolumeSpike:
		var v VolumeSpikeAnalysis
		err := json.Unmarshal(env.Data, &v)
		target = v
		if err != nil {
			return nil, fmt.Errorf("decode volume analysis: %w", err)
		}
	case AlertPriceMovement:
		var v PriceMovementAnalysis
		err := json.Unmarshal(env.Data, &v)
		target = v
		if err != nil {
			return nil, fmt.Errorf("decode price analysis: %w", err)
		}
	case AlertWhaleActivity:
		var v WhaleActivityAnalysis
		err := json.Unmarshal(env.Data, &v)
		target = v
		if err != nil {
			return nil, fmt.Errorf("decode whale analysis: %w", err)
		}
	case AlertCoordinatedTrading:
		var v CoordinationAnalysis
		err := json.Unmarshal(env.Data, &v)
		target = v
		if err != nil {
			return nil, fmt.Errorf("decode coordination analysis: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode analysis: unknown kind %q", env.Kind)
	}
	return target, nil
}

// MarshalJSON includes the tagged analysis payload.
func (a Alert) MarshalJSON() ([]byte, error) {
	type alias Alert
	analysis, err := EncodeAnalysis(a.Analysis)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Analysis json.RawMessage `json:"analysis"`
	}{alias: alias(a), Analysis: analysis})
}

// UnmarshalJSON restores the tagged analysis payload.
func (a *Alert) UnmarshalJSON(data []byte) error {
	type alias Alert
	aux := struct {
		alias
		Analysis json.RawMessage `json:"analysis"`
	}{alias: alias(*a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	analysis, err := DecodeAnalysis(aux.Analysis)
	if err != nil {
		return err
	}
	*a = Alert(aux.alias)
	a.Analysis = analysis
	return nil
}

// MarshalJSON includes the supporting detector's tagged analysis.
func (s SupportingAnomaly) MarshalJSON() ([]byte, error) {
	type alias SupportingAnomaly
	analysis, err := EncodeAnalysis(s.Analysis)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Analysis json.RawMessage `json:"analysis"`
	}{alias: alias(s), Analysis: analysis})
}

// UnmarshalJSON restores the supporting detector's analysis.
func (s *SupportingAnomaly) UnmarshalJSON(data []byte) error {
	type alias SupportingAnomaly
	aux := struct {
		alias
		Analysis json.RawMessage `json:"analysis"`
	}{alias: alias(*s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	analysis, err := DecodeAnalysis(aux.Analysis)
	if err != nil {
		return err
	}
	*s = SupportingAnomaly(aux.alias)
	s.Analysis = analysis
	return nil
}
