package detection

import (
	"strings"
	"testing"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

type panickingDetector struct{}

func (panickingDetector) Type() types.AlertType { return types.AlertWhaleActivity }

func (panickingDetector) Detect([]*types.Trade, *types.MarketBaseline, time.Time) types.DetectionResult {
	panic("boom")
}

func TestSuite_RunOrder(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	suite := NewSuite(DefaultConfig(), logger)

	results := suite.Run(burst(25, 8, allBuy), testBaseline(1000, 500), testNow)

	want := []types.AlertType{
		types.AlertVolumeSpike,
		types.AlertPriceMovement,
		types.AlertWhaleActivity,
		types.AlertCoordinatedTrading,
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Detector != want[i] {
			t.Errorf("result %d detector = %s, want %s", i, r.Detector, want[i])
		}
		if !r.Timestamp.Equal(testNow) {
			t.Errorf("result %d timestamp = %v", i, r.Timestamp)
		}
	}
	if !results[3].Anomaly {
		t.Error("expected coordination to fire on a coordinated burst")
	}
}

func TestSuite_EmptyBaseline(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	suite := NewSuite(DefaultConfig(), logger)

	for _, r := range suite.Run(burst(25, 8, allBuy), &types.MarketBaseline{}, testNow) {
		if r.Anomaly {
			t.Errorf("%s fired on an empty baseline", r.Detector)
		}
		if r.Reason != reasonInsufficientBaseline {
			t.Errorf("%s reason = %q", r.Detector, r.Reason)
		}
	}
}

func TestSuite_RecoversPanics(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	suite := &Suite{detectors: []Detector{panickingDetector{}}, logger: logger}

	results := suite.Run(nil, testBaseline(1000, 500), testNow)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Anomaly {
		t.Error("a failed detector must not report an anomaly")
	}
	if !strings.Contains(results[0].Reason, "detector failed") {
		t.Errorf("Reason = %q", results[0].Reason)
	}
}
