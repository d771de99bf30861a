package detection

import (
	"fmt"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Suite runs every detector against one market.
type Suite struct {
	detectors []Detector
	logger    *zap.Logger
}

// NewSuite creates the four detectors in their fixed run order:
// volume, price, whale, coordination.
func NewSuite(cfg Config, logger *zap.Logger) *Suite {
	return &Suite{
		detectors: []Detector{
			NewVolumeDetector(cfg),
			NewPriceDetector(cfg),
			NewWhaleDetector(cfg),
			NewCoordinationDetector(cfg),
		},
		logger: logger,
	}
}

// Run returns one result per detector, in run order.
func (s *Suite) Run(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) []types.DetectionResult {
	results := make([]types.DetectionResult, 0, len(s.detectors))
	for _, d := range s.detectors {
		results = append(results, s.runOne(d, trades, baseline, now))
	}
	return results
}

func (s *Suite) runOne(d Detector, trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) (res types.DetectionResult) {
	name := string(d.Type())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			DetectorPanicsTotal.WithLabelValues(name).Inc()
			s.logger.Error("detector-panic",
				zap.String("detector", name),
				zap.Any("panic", r))
			res = newResult(d.Type(), now)
			res.Reason = fmt.Sprintf("detector failed: %v", r)
		}
		DetectorRunsTotal.WithLabelValues(name).Inc()
		DetectorDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	res = d.Detect(trades, baseline, now)
	if res.Anomaly {
		AnomaliesDetectedTotal.WithLabelValues(name).Inc()
		s.logger.Debug("anomaly-detected",
			zap.String("detector", name),
			zap.Float64("score", res.Score))
	}
	return res
}
