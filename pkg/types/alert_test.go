package types

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Ordering(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, int(ordered[i-1]), int(ordered[i]))
		assert.True(t, ordered[i].AtLeast(ordered[i-1]))
		assert.False(t, ordered[i-1].AtLeast(ordered[i]))
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"LOW", SeverityLow, false},
		{"medium", SeverityMedium, false},
		{" High ", SeverityHigh, false},
		{"CRITICAL", SeverityCritical, false},
		{"URGENT", SeverityNone, true},
		{"", SeverityNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlertType_Weights(t *testing.T) {
	assert.InDelta(t, 2.0, AlertVolumeSpike.Weight(), 1e-9)
	assert.InDelta(t, 3.0, AlertPriceMovement.Weight(), 1e-9)
	assert.InDelta(t, 3.0, AlertWhaleActivity.Weight(), 1e-9)
	assert.InDelta(t, 4.0, AlertCoordinatedTrading.Weight(), 1e-9)
	assert.Greater(t, AlertWhaleActivity.Priority(), AlertPriceMovement.Priority())
}

func TestAlertType_BaseConfidenceTiers(t *testing.T) {
	const multiBonus = 2.0

	for i, a := range AllAlertTypes {
		for _, b := range AllAlertTypes[i+1:] {
			pair := a.BaseConfidence() + b.BaseConfidence() + multiBonus
			if pair < 12 {
				t.Errorf("%s + %s = %v, want at least 12", a, b, pair)
			}
		}
	}

	for i := range AllAlertTypes {
		var triple float64
		for j, a := range AllAlertTypes {
			if j != i {
				triple += a.BaseConfidence()
			}
		}
		if triple+multiBonus < 18 {
			t.Errorf("triple without %s = %v, want at least 18", AllAlertTypes[i], triple+multiBonus)
		}
	}

	// Best case single signals: whale with historical and bias bonuses,
	// coordination with historical, coordination, bias and wash bonuses.
	assert.LessOrEqual(t, AlertWhaleActivity.BaseConfidence()+2, 10.0)
	assert.LessOrEqual(t, AlertCoordinatedTrading.BaseConfidence()+6, 10.0)
}

func TestAlert_JSONKeepsAnalysis(t *testing.T) {
	alert := Alert{
		ID:              "a1",
		MarketID:        "m1",
		AlertType:       AlertWhaleActivity,
		Severity:        SeverityCritical,
		ConfidenceScore: 11,
		Timestamp:       time.Unix(1000, 0).UTC(),
		Analysis: WhaleActivityAnalysis{
			TotalWhaleVolume:     60000,
			DirectionalImbalance: 0.9,
			DominantSide:         SideBuy,
		},
		Metadata: AlertMetadata{
			MultiMetric: true,
			SupportingAnomalies: []SupportingAnomaly{{
				Type:     AlertPriceMovement,
				Score:    20,
				Analysis: PriceMovementAnalysis{PriceChangePct: 20, Trend: TrendUp},
			}},
		},
	}

	data, err := json.Marshal(alert)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"CRITICAL"`)

	var decoded Alert
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, SeverityCritical, decoded.Severity)
	assert.Equal(t, "a1", decoded.ID)
	assert.Equal(t, "m1", decoded.MarketID)
	assert.Equal(t, AlertWhaleActivity, decoded.AlertType)
	assert.InDelta(t, 11, decoded.ConfidenceScore, 1e-9)
	assert.True(t, decoded.Timestamp.Equal(alert.Timestamp))
	assert.True(t, decoded.Metadata.MultiMetric)

	whale, ok := decoded.Analysis.(WhaleActivityAnalysis)
	require.True(t, ok, "analysis type = %T", decoded.Analysis)
	assert.InDelta(t, 0.9, whale.DirectionalImbalance, 1e-9)

	require.Len(t, decoded.Metadata.SupportingAnomalies, 1)
	price, ok := decoded.Metadata.SupportingAnomalies[0].Analysis.(PriceMovementAnalysis)
	require.True(t, ok)
	assert.Equal(t, TrendUp, price.Trend)
	assert.Equal(t, AlertPriceMovement, decoded.Metadata.SupportingAnomalies[0].Type)
	assert.InDelta(t, 20, decoded.Metadata.SupportingAnomalies[0].Score, 1e-9)
}

func TestMarket_UnmarshalJSON(t *testing.T) {
	input := `{
		"id": "123",
		"conditionId": "0xcond",
		"question": "Will it happen?",
		"slug": "will-it-happen",
		"volume24hr": "2500.5",
		"outcomes": "[\"Yes\", \"No\"]",
		"clobTokenIds": "[\"tok-yes\", \"tok-no\", \"tok-extra\"]"
	}`

	var m Market
	require.NoError(t, json.Unmarshal([]byte(input), &m))
	assert.Equal(t, "0xcond", m.Key())
	assert.InDelta(t, 2500.5, m.Volume24hr, 1e-9)
	require.Len(t, m.Tokens, 2)
	assert.Equal(t, OutcomeYes, m.Tokens[0].Outcome)
	assert.Equal(t, []string{"tok-yes", "tok-no"}, m.TokenIDs())
	require.NotNil(t, m.GetTokenByOutcome("No"))
	assert.Equal(t, "tok-no", m.GetTokenByOutcome("No").TokenID)
}
