package confidence

import (
	"strings"
	"testing"
	"time"

	"github.com/mselser95/polymarket-insider/internal/recommendation"
	"github.com/mselser95/polymarket-insider/internal/testutil"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	logger, _ := zap.NewDevelopment()
	return New(DefaultConfig(), logger)
}

func recentBaseline() *types.MarketBaseline {
	return &types.MarketBaseline{SampleCount: 50, Type: types.BaselineRecentTrades}
}

func volumeFired() types.DetectionResult {
	return types.DetectionResult{
		Detector: types.AlertVolumeSpike,
		Anomaly:  true,
		Score:    5,
		Details:  types.VolumeSpikeAnalysis{SpikeMultiplier: 5, CurrentHourVolume: 5000, AvgHourlyVolume: 1000},
	}
}

func priceFired() types.DetectionResult {
	return types.DetectionResult{
		Detector: types.AlertPriceMovement,
		Anomaly:  true,
		Score:    20,
		Details:  types.PriceMovementAnalysis{PriceStart: 0.5, PriceEnd: 0.6, PriceChangePct: 20, Trend: types.TrendUp},
	}
}

func whaleFired(imbalance float64) types.DetectionResult {
	return types.DetectionResult{
		Detector: types.AlertWhaleActivity,
		Anomaly:  true,
		Score:    imbalance,
		Details: types.WhaleActivityAnalysis{
			TotalWhaleVolume:     60000,
			DirectionalImbalance: imbalance,
			DominantSide:         types.SideBuy,
		},
	}
}

func coordinationFired(wash bool) types.DetectionResult {
	return types.DetectionResult{
		Detector: types.AlertCoordinatedTrading,
		Anomaly:  true,
		Score:    0.9,
		Details: types.CoordinationAnalysis{
			CoordinationScore: 0.9,
			UniqueWallets:     8,
			BuyWalletRatio:    0.95,
			DominantDirection: types.SideBuy,
			WashTrading:       types.WashTradingAnalysis{Detected: wash},
		},
	}
}

func quiet(kind types.AlertType) types.DetectionResult {
	return types.DetectionResult{Detector: kind, Reason: "below threshold"}
}

func TestAggregator_Severity(t *testing.T) {
	agg := newTestAggregator()

	tests := []struct {
		score float64
		want  types.Severity
	}{
		{0, types.SeverityNone},
		{2, types.SeverityLow},
		{3, types.SeverityMedium},
		{4, types.SeverityMedium},
		{5, types.SeverityHigh},
		{7, types.SeverityHigh},
		{8, types.SeverityCritical},
		{12, types.SeverityCritical},
	}

	for _, tt := range tests {
		if got := agg.Severity(tt.score); got != tt.want {
			t.Errorf("Severity(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestAggregator_NothingFired(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Will it?")

	results := []types.DetectionResult{
		quiet(types.AlertVolumeSpike),
		quiet(types.AlertPriceMovement),
		quiet(types.AlertWhaleActivity),
		quiet(types.AlertCoordinatedTrading),
	}

	alert, ok := agg.Combine(market, results, recentBaseline(), 0.5, testNow)
	if ok || alert != nil {
		t.Fatalf("expected no alert, got %+v", alert)
	}
}

func TestAggregator_SingleSignal(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Will it?")

	alert, ok := agg.Combine(market, []types.DetectionResult{volumeFired()}, recentBaseline(), 0.5, testNow)
	require.True(t, ok)

	assert.Equal(t, types.AlertVolumeSpike, alert.AlertType)
	assert.Equal(t, types.SeverityLow, alert.Severity)
	assert.InDelta(t, 5.0, alert.ConfidenceScore, 1e-9)
	assert.InDelta(t, 5.0, alert.DisplayConfidence, 1e-9)
	assert.False(t, alert.Metadata.MultiMetric)
	assert.Empty(t, alert.Metadata.SupportingAnomalies)
	assert.Equal(t, "m1", alert.MarketID)
	assert.Equal(t, "m1-slug", alert.MarketSlug)
	assert.Equal(t, "Will it?", alert.MarketQuestion)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, 0.5, alert.CurrentPrice)
	assert.True(t, strings.HasPrefix(alert.Metadata.FilterReason, "single signal"))
}

func TestAggregator_PrimaryTieBreak(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Q")

	alert, ok := agg.Combine(market, []types.DetectionResult{priceFired(), whaleFired(0.5)}, recentBaseline(), 0.5, testNow)
	require.True(t, ok)

	assert.Equal(t, types.AlertWhaleActivity, alert.AlertType)
	assert.Equal(t, types.SeverityHigh, alert.Severity)
	require.Len(t, alert.Metadata.SupportingAnomalies, 1)
	assert.Equal(t, types.AlertPriceMovement, alert.Metadata.SupportingAnomalies[0].Type)
	assert.NotNil(t, alert.Metadata.SupportingAnomalies[0].Analysis)
	// 5 + 6 + multi 2; imbalance 0.5 earns no bias bonus.
	assert.InDelta(t, 13.0, alert.ConfidenceScore, 1e-9)
}

func TestAggregator_WhaleVolumePriceIsCritical(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Q")

	results := []types.DetectionResult{volumeFired(), priceFired(), whaleFired(0.9), quiet(types.AlertCoordinatedTrading)}
	alert, ok := agg.Combine(market, results, recentBaseline(), 0.5, testNow)
	require.True(t, ok)

	assert.Equal(t, types.AlertWhaleActivity, alert.AlertType)
	assert.Equal(t, types.SeverityCritical, alert.Severity)
	assert.InDelta(t, 8.0, alert.SeverityScore, 1e-9)
	// 16 + bias 1 + multi 2
	assert.InDelta(t, 19.0, alert.ConfidenceScore, 1e-9)
	assert.InDelta(t, 10.0, alert.DisplayConfidence, 1e-9)
	assert.True(t, alert.Metadata.MultiMetric)
	require.Len(t, alert.Metadata.SupportingAnomalies, 2)
	assert.Equal(t, types.AlertPriceMovement, alert.Metadata.SupportingAnomalies[0].Type)
	assert.Equal(t, types.AlertVolumeSpike, alert.Metadata.SupportingAnomalies[1].Type)
}

func TestAggregator_AllSignalsReachStrongConfidence(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Q")
	baseline := &types.MarketBaseline{SampleCount: 500, Type: types.BaselineHistorical}

	results := []types.DetectionResult{volumeFired(), priceFired(), whaleFired(0.9), coordinationFired(true)}
	alert, ok := agg.Combine(market, results, baseline, 0.5, testNow)
	require.True(t, ok)

	assert.Equal(t, types.AlertCoordinatedTrading, alert.AlertType)
	assert.Equal(t, types.SeverityCritical, alert.Severity)
	// 20 + historical 1 + coordination 2 + bias 1 + multi 2 + wash 2
	assert.InDelta(t, 28.0, alert.ConfidenceScore, 1e-9)
	assert.GreaterOrEqual(t, alert.ConfidenceScore, 18.0)
	assert.InDelta(t, 10.0, alert.DisplayConfidence, 1e-9)
	assert.True(t, alert.Metadata.WashTrading)
	assert.Equal(t, types.BaselineHistorical, alert.Metadata.BaselineType)
	assert.Len(t, alert.Metadata.SupportingAnomalies, 3)
}

func TestAggregator_VolumeAndWhaleReachRecommendationTiers(t *testing.T) {
	engine := recommendation.NewEngine(nil)
	market := testutil.CreateTestMarket("m1", "m1-slug", "Q")

	t.Run("pair takes the two-signal path", func(t *testing.T) {
		agg := newTestAggregator()
		results := []types.DetectionResult{volumeFired(), whaleFired(0.9)}

		alert, ok := agg.Combine(market, results, recentBaseline(), 0.5, testNow)
		require.True(t, ok)
		// 5 + 6 + bias 1 + multi 2
		assert.InDelta(t, 14.0, alert.ConfidenceScore, 1e-9)

		rec := engine.ForAlert(alert)
		assert.Equal(t, types.ActionBuy, rec.Action)
		require.NotNil(t, rec.EntryPrice)
		assert.InDelta(t, 0.51, *rec.EntryPrice, 1e-9)
		assert.Nil(t, rec.TargetPrice)
		assert.Contains(t, rec.Reasoning, "Whale Activity + Volume Spike")
	})

	t.Run("with price movement takes the strong path", func(t *testing.T) {
		agg := newTestAggregator()
		results := []types.DetectionResult{volumeFired(), whaleFired(0.9), priceFired()}

		alert, ok := agg.Combine(market, results, recentBaseline(), 0.5, testNow)
		require.True(t, ok)
		assert.GreaterOrEqual(t, alert.ConfidenceScore, 18.0)

		rec := engine.ForAlert(alert)
		assert.Equal(t, types.ActionBuy, rec.Action)
		require.NotNil(t, rec.TargetPrice)
		require.NotNil(t, rec.RiskPrice)
		assert.InDelta(t, 0.65, *rec.TargetPrice, 1e-9)
		assert.InDelta(t, 0.45, *rec.RiskPrice, 1e-9)
		assert.Contains(t, rec.Reasoning, "Volume Spike")
		assert.Contains(t, rec.Reasoning, "Whale Activity")
		assert.Equal(t, types.ConfidenceVeryHigh, rec.ConfidenceLevel)
	})
}

func TestAggregator_WashTradingWithoutCoordinationAnomaly(t *testing.T) {
	agg := newTestAggregator()
	market := testutil.CreateTestMarket("m1", "m1-slug", "Q")

	coord := coordinationFired(true)
	coord.Anomaly = false

	alert, ok := agg.Combine(market, []types.DetectionResult{volumeFired(), coord}, recentBaseline(), 0.5, testNow)
	require.True(t, ok)

	assert.Equal(t, types.AlertVolumeSpike, alert.AlertType)
	assert.True(t, alert.Metadata.WashTrading)
	assert.InDelta(t, 7.0, alert.ConfidenceScore, 1e-9)
}

func TestAggregator_CrossMarketCount(t *testing.T) {
	agg := newTestAggregator()
	m1 := testutil.CreateTestMarket("m1", "s1", "Q1")
	m2 := testutil.CreateTestMarket("m2", "s2", "Q2")
	m3 := testutil.CreateTestMarket("m3", "s3", "Q3")
	results := []types.DetectionResult{whaleFired(0.9)}

	a1, _ := agg.Combine(m1, results, recentBaseline(), 0.5, testNow)
	a2, _ := agg.Combine(m2, results, recentBaseline(), 0.5, testNow.Add(time.Minute))
	a3, _ := agg.Combine(m3, []types.DetectionResult{volumeFired()}, recentBaseline(), 0.5, testNow.Add(time.Minute))
	a4, _ := agg.Combine(m2, results, recentBaseline(), 0.5, testNow.Add(20*time.Minute))

	assert.Equal(t, 0, a1.Metadata.CrossMarketCount)
	assert.Equal(t, 1, a2.Metadata.CrossMarketCount)
	assert.Equal(t, 0, a3.Metadata.CrossMarketCount, "different type does not count")
	assert.Equal(t, 0, a4.Metadata.CrossMarketCount, "m1 fell out of the window")
}

func TestDisplayConfidence(t *testing.T) {
	assert.InDelta(t, 9.0, DisplayConfidence(9, true), 1e-9)
	assert.InDelta(t, 12.0, DisplayConfidence(12, false), 1e-9)
	assert.InDelta(t, 8.0, DisplayConfidence(12, true), 1e-9)
	assert.InDelta(t, 10.0, DisplayConfidence(18, true), 1e-9)
}
