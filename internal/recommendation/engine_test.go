package recommendation

import (
	"strings"
	"testing"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) OutcomeForToken(tokenID string) (string, bool) {
	o, ok := m[tokenID]
	return o, ok
}

func strongWhale(side string) types.WhaleActivityAnalysis {
	return types.WhaleActivityAnalysis{
		TotalWhaleVolume:     60000,
		DirectionalImbalance: 0.9,
		DominantSide:         side,
		WhaleCount:           3,
		TopWhales: []types.WhaleBreakdown{
			{Wallet: "0xa", TotalVolume: 30000, AssetID: "tok-no"},
		},
	}
}

func TestEngine_WhaleStrongBuy(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertWhaleActivity,
		Severity:        types.SeverityCritical,
		Analysis:        strongWhale(types.SideBuy),
		CurrentPrice:    0.5,
		ConfidenceScore: 11,
		MultiMetric:     true,
		Supporting:      []types.SupportingAnomaly{{Type: types.AlertVolumeSpike}},
	})

	assert.Equal(t, types.ActionBuy, rec.Action)
	assert.Equal(t, types.OutcomeYes, rec.Side, "falls back to BUY -> YES without a resolver")
	require.NotNil(t, rec.EntryPrice)
	require.NotNil(t, rec.RiskPrice)
	assert.InDelta(t, 0.51, *rec.EntryPrice, 1e-9)
	assert.InDelta(t, 0.475, *rec.RiskPrice, 1e-9)
	assert.Nil(t, rec.TargetPrice)
	assert.Equal(t, types.ConfidenceHigh, rec.ConfidenceLevel)
	assert.Contains(t, rec.Text, "Consider YES Buy")
}

func TestEngine_WhaleStrongSell(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:    types.AlertWhaleActivity,
		Severity:     types.SeverityHigh,
		Analysis:     strongWhale(types.SideSell),
		CurrentPrice: 0.40,
	})

	assert.Equal(t, types.ActionSell, rec.Action)
	assert.Equal(t, types.OutcomeNo, rec.Side)
	assert.InDelta(t, 0.392, *rec.EntryPrice, 1e-9)
	assert.InDelta(t, 0.42, *rec.RiskPrice, 1e-9)
}

func TestEngine_WhaleOutcomeFromToken(t *testing.T) {
	e := NewEngine(mapResolver{"tok-no": types.OutcomeNo})

	rec := e.Generate(Input{
		AlertType:    types.AlertWhaleActivity,
		Severity:     types.SeverityCritical,
		Analysis:     strongWhale(types.SideBuy),
		CurrentPrice: 0.3,
	})

	assert.Equal(t, types.ActionBuy, rec.Action)
	assert.Equal(t, types.OutcomeNo, rec.Side, "whales bought the NO token")
}

func TestEngine_WhaleTiers(t *testing.T) {
	e := NewEngine(nil)

	tests := []struct {
		name     string
		severity types.Severity
		analysis types.WhaleActivityAnalysis
		want     string
		text     string
	}{
		{
			name:     "medium_severity_monitor",
			severity: types.SeverityMedium,
			analysis: strongWhale(types.SideBuy),
			want:     types.ActionMonitor,
			text:     "Monitor - Whale purchased $60K",
		},
		{
			name:     "moderate_volume_monitor",
			severity: types.SeverityCritical,
			analysis: types.WhaleActivityAnalysis{TotalWhaleVolume: 30000, DirectionalImbalance: 0.9, DominantSide: types.SideSell},
			want:     types.ActionMonitor,
			text:     "Monitor - Whale sold $30K NO",
		},
		{
			name:     "low_conviction",
			severity: types.SeverityCritical,
			analysis: types.WhaleActivityAnalysis{TotalWhaleVolume: 30000, DirectionalImbalance: 0.5, DominantSide: types.SideBuy},
			want:     types.ActionMonitor,
			text:     "Unusual whale activity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Generate(Input{
				AlertType:    types.AlertWhaleActivity,
				Severity:     tt.severity,
				Analysis:     tt.analysis,
				CurrentPrice: 0.5,
			})
			assert.Equal(t, tt.want, rec.Action)
			assert.Contains(t, rec.Text, tt.text)
			assert.Nil(t, rec.EntryPrice)
			assert.Nil(t, rec.RiskPrice)
		})
	}
}

func TestEngine_Coordination(t *testing.T) {
	e := NewEngine(nil)

	strong := types.CoordinationAnalysis{
		CoordinationScore: 1.0,
		UniqueWallets:     8,
		BuyWalletRatio:    0.95,
		DominantDirection: types.SideBuy,
		WashTrading:       types.WashTradingAnalysis{Detected: true},
	}

	t.Run("critical_buy_with_wash_warning", func(t *testing.T) {
		rec := e.Generate(Input{
			AlertType:    types.AlertCoordinatedTrading,
			Severity:     types.SeverityCritical,
			Analysis:     strong,
			CurrentPrice: 0.6,
		})
		assert.Equal(t, types.ActionBuy, rec.Action)
		assert.Equal(t, types.OutcomeYes, rec.Side)
		assert.InDelta(t, 0.612, *rec.EntryPrice, 1e-9)
		assert.InDelta(t, 0.57, *rec.RiskPrice, 1e-9)
		assert.True(t, strings.HasSuffix(rec.Text, "| ⚠️ Risk: Potential wash trading"))
	})

	t.Run("critical_sell", func(t *testing.T) {
		a := strong
		a.DominantDirection = types.SideSell
		a.BuyWalletRatio = 0.1
		a.WashTrading.Detected = false
		rec := e.Generate(Input{
			AlertType:    types.AlertCoordinatedTrading,
			Severity:     types.SeverityCritical,
			Analysis:     a,
			CurrentPrice: 0.6,
		})
		assert.Equal(t, types.ActionSell, rec.Action)
		assert.Equal(t, types.OutcomeNo, rec.Side)
		assert.InDelta(t, 0.588, *rec.EntryPrice, 1e-9)
		assert.InDelta(t, 0.63, *rec.RiskPrice, 1e-9)
		assert.NotContains(t, rec.Text, "wash")
	})

	t.Run("high_severity_monitor", func(t *testing.T) {
		rec := e.Generate(Input{
			AlertType:    types.AlertCoordinatedTrading,
			Severity:     types.SeverityHigh,
			Analysis:     strong,
			CurrentPrice: 0.6,
		})
		assert.Equal(t, types.ActionMonitor, rec.Action)
		assert.Contains(t, rec.Text, "8 wallets coordinated on YES")
	})

	t.Run("weak_monitor", func(t *testing.T) {
		rec := e.Generate(Input{
			AlertType:    types.AlertCoordinatedTrading,
			Severity:     types.SeverityCritical,
			Analysis:     types.CoordinationAnalysis{CoordinationScore: 0.4, UniqueWallets: 8},
			CurrentPrice: 0.6,
		})
		assert.Equal(t, types.ActionMonitor, rec.Action)
		assert.Contains(t, rec.Text, "Potential coordination")
	})
}

func TestEngine_SingleAmbiguousSignals(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:    types.AlertVolumeSpike,
		Severity:     types.SeverityCritical,
		Analysis:     types.VolumeSpikeAnalysis{SpikeMultiplier: 4.2, MaxAnomalyScore: 4.2},
		CurrentPrice: 0.5,
	})
	assert.Equal(t, types.ActionMonitor, rec.Action)
	assert.Equal(t, "Monitor - Volume spike 4.2x normal", rec.Text)

	rec = e.Generate(Input{
		AlertType:    types.AlertPriceMovement,
		Severity:     types.SeverityCritical,
		Analysis:     types.PriceMovementAnalysis{PriceChangePct: -18.26},
		CurrentPrice: 0.5,
	})
	assert.Equal(t, types.ActionMonitor, rec.Action)
	assert.Equal(t, "Monitor - Rapid -18.3% price movement", rec.Text)
	assert.Empty(t, rec.Side)
}

func TestEngine_UnknownType(t *testing.T) {
	rec := NewEngine(nil).Generate(Input{AlertType: "FRESH_WALLET", CurrentPrice: 0.5})

	assert.Equal(t, types.ActionMonitor, rec.Action)
	assert.Equal(t, "Verify independently before acting", rec.Reasoning)
}

func TestEngine_MultiMetricStrong(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertWhaleActivity,
		Severity:        types.SeverityCritical,
		Analysis:        strongWhale(types.SideBuy),
		CurrentPrice:    0.5,
		ConfidenceScore: 18,
		MultiMetric:     true,
		Supporting: []types.SupportingAnomaly{
			{Type: types.AlertVolumeSpike},
			{Type: types.AlertPriceMovement},
		},
	})

	assert.Equal(t, types.ActionBuy, rec.Action)
	require.NotNil(t, rec.TargetPrice)
	require.NotNil(t, rec.RiskPrice)
	assert.InDelta(t, 0.51, *rec.EntryPrice, 1e-9)
	assert.InDelta(t, 0.65, *rec.TargetPrice, 1e-9)
	assert.InDelta(t, 0.45, *rec.RiskPrice, 1e-9)
	assert.Contains(t, rec.Reasoning, "Whale Activity")
	assert.Contains(t, rec.Reasoning, "Volume Spike")
	assert.Contains(t, rec.Reasoning, "Price Movement")
	assert.Equal(t, types.ConfidenceVeryHigh, rec.ConfidenceLevel)
}

func TestEngine_MultiMetricStrongSell(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertCoordinatedTrading,
		Severity:        types.SeverityCritical,
		Analysis:        types.CoordinationAnalysis{DominantDirection: types.SideSell, BuyWalletRatio: 0.1},
		CurrentPrice:    0.5,
		ConfidenceScore: 20,
		MultiMetric:     true,
		Supporting: []types.SupportingAnomaly{
			{Type: types.AlertWhaleActivity},
			{Type: types.AlertVolumeSpike},
		},
	})

	assert.Equal(t, types.ActionSell, rec.Action)
	assert.Equal(t, types.OutcomeNo, rec.Side)
	assert.InDelta(t, 0.49, *rec.EntryPrice, 1e-9)
	assert.InDelta(t, 0.35, *rec.TargetPrice, 1e-9)
	assert.InDelta(t, 0.55, *rec.RiskPrice, 1e-9)
}

func TestEngine_MultiMetricWeak(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertWhaleActivity,
		Severity:        types.SeverityHigh,
		Analysis:        strongWhale(types.SideBuy),
		CurrentPrice:    0.5,
		ConfidenceScore: 12,
		MultiMetric:     true,
		Supporting:      []types.SupportingAnomaly{{Type: types.AlertVolumeSpike}},
	})

	assert.Equal(t, types.ActionBuy, rec.Action)
	require.NotNil(t, rec.EntryPrice)
	assert.Nil(t, rec.TargetPrice)
	assert.Nil(t, rec.RiskPrice)
	assert.Contains(t, rec.Reasoning, "Whale Activity + Volume Spike")
}

func TestEngine_MultiMetricNonActionablePrimary(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertVolumeSpike,
		Severity:        types.SeverityHigh,
		Analysis:        types.VolumeSpikeAnalysis{SpikeMultiplier: 6},
		CurrentPrice:    0.5,
		ConfidenceScore: 12,
		MultiMetric:     true,
		Supporting: []types.SupportingAnomaly{{
			Type:     types.AlertPriceMovement,
			Analysis: types.PriceMovementAnalysis{PriceChangePct: -22, Trend: types.TrendDown},
		}},
	})

	assert.Equal(t, types.ActionMonitor, rec.Action)
	assert.Equal(t, types.OutcomeNo, rec.Side)
	assert.Nil(t, rec.EntryPrice)
	assert.Contains(t, rec.Reasoning, "Volume Spike + Price Movement")
}

func TestEngine_MultiMetricBelowThreshold(t *testing.T) {
	e := NewEngine(nil)

	rec := e.Generate(Input{
		AlertType:       types.AlertVolumeSpike,
		Severity:        types.SeverityHigh,
		Analysis:        types.VolumeSpikeAnalysis{SpikeMultiplier: 6, MaxAnomalyScore: 6},
		CurrentPrice:    0.5,
		ConfidenceScore: 9,
		MultiMetric:     true,
		Supporting:      []types.SupportingAnomaly{{Type: types.AlertPriceMovement}},
	})

	assert.Equal(t, "Monitor - Volume spike 6.0x normal", rec.Text)
}

func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine(mapResolver{"tok-no": types.OutcomeNo})
	in := Input{
		AlertType:       types.AlertWhaleActivity,
		Severity:        types.SeverityCritical,
		Analysis:        strongWhale(types.SideBuy),
		CurrentPrice:    0.37,
		ConfidenceScore: 19,
		MultiMetric:     true,
		Supporting:      []types.SupportingAnomaly{{Type: types.AlertVolumeSpike}, {Type: types.AlertPriceMovement}},
	}

	first := e.Generate(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Generate(in))
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		score float64
		multi bool
		want  string
	}{
		{15, true, types.ConfidenceVeryHigh},
		{12, false, types.ConfidenceVeryHigh},
		{11, true, types.ConfidenceHigh},
		{9, false, types.ConfidenceHigh},
		{6, false, types.ConfidenceMedium},
		{5.9, true, types.ConfidenceLow},
	}

	for _, tt := range tests {
		if got := ConfidenceLevel(tt.score, tt.multi); got != tt.want {
			t.Errorf("ConfidenceLevel(%v, %v) = %s, want %s", tt.score, tt.multi, got, tt.want)
		}
	}
}

func TestInputFromAlert(t *testing.T) {
	alert := &types.Alert{
		AlertType:       types.AlertWhaleActivity,
		Severity:        types.SeverityCritical,
		Analysis:        strongWhale(types.SideBuy),
		CurrentPrice:    0.5,
		ConfidenceScore: 11,
		Metadata: types.AlertMetadata{
			MultiMetric:         true,
			SupportingAnomalies: []types.SupportingAnomaly{{Type: types.AlertVolumeSpike}},
		},
	}

	rec := NewEngine(nil).ForAlert(alert)
	assert.Equal(t, types.ActionBuy, rec.Action)
	assert.InDelta(t, 0.51, *rec.EntryPrice, 1e-9)
}
