package confidence

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Confidence bonuses.
const (
	bonusHistoricalBaseline = 1.0
	bonusCoordination       = 2.0
	bonusDirectionalBias    = 1.0
	bonusMultiMetric        = 2.0
	bonusWashTrading        = 2.0

	strongBiasThreshold = 0.8

	displayRescale    = 1.5
	displayRescaleMin = 10.0
	displayCap        = 10.0
)

// Config holds the severity thresholds and cross-market window.
type Config struct {
	MediumScore       float64
	HighScore         float64
	CriticalScore     float64
	CrossMarketWindow time.Duration
}

// DefaultConfig returns thresholds 3/5/8 and a 15 minute cross-market window.
func DefaultConfig() Config {
	return Config{
		MediumScore:       3,
		HighScore:         5,
		CriticalScore:     8,
		CrossMarketWindow: 15 * time.Minute,
	}
}

// FromConfig extracts aggregation settings from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		MediumScore:       cfg.SeverityMediumScore,
		HighScore:         cfg.SeverityHighScore,
		CriticalScore:     cfg.SeverityCriticalScore,
		CrossMarketWindow: cfg.CrossMarketWindow,
	}
}

// Aggregator folds one cycle's detection results into at most one alert.
type Aggregator struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	recent map[types.AlertType]map[string]time.Time
}

// New creates an Aggregator.
func New(cfg Config, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		logger: logger,
		recent: make(map[types.AlertType]map[string]time.Time),
	}
}

// Severity maps a weighted detector score to a severity level.
func (a *Aggregator) Severity(score float64) types.Severity {
	switch {
	case score >= a.cfg.CriticalScore:
		return types.SeverityCritical
	case score >= a.cfg.HighScore:
		return types.SeverityHigh
	case score >= a.cfg.MediumScore:
		return types.SeverityMedium
	case score > 0:
		return types.SeverityLow
	default:
		return types.SeverityNone
	}
}

// Combine builds a candidate alert from the detectors that fired. It
// returns false when nothing fired.
func (a *Aggregator) Combine(
	market *types.Market,
	results []types.DetectionResult,
	baseline *types.MarketBaseline,
	price float64,
	now time.Time,
) (*types.Alert, bool) {
	fired := make([]types.DetectionResult, 0, len(results))
	var coordination *types.CoordinationAnalysis
	for _, r := range results {
		if c, ok := r.Details.(types.CoordinationAnalysis); ok {
			coordination = &c
		}
		if r.Anomaly && r.Detector.Weight() > 0 {
			fired = append(fired, r)
		}
	}

	if len(fired) == 0 {
		return nil, false
	}

	// Highest weight first, ties broken by priority.
	sort.SliceStable(fired, func(i, j int) bool {
		wi, wj := fired[i].Detector.Weight(), fired[j].Detector.Weight()
		if wi != wj {
			return wi > wj
		}
		return fired[i].Detector.Priority() > fired[j].Detector.Priority()
	})

	primary := fired[0]
	supporting := make([]types.SupportingAnomaly, 0, len(fired)-1)
	for _, r := range fired[1:] {
		supporting = append(supporting, types.SupportingAnomaly{
			Type:     r.Detector,
			Score:    r.Score,
			Summary:  summary(r),
			Analysis: r.Details,
		})
	}

	var severityScore float64
	for _, r := range fired {
		severityScore += r.Detector.Weight()
	}
	severity := a.Severity(severityScore)

	multi := len(fired) >= 2
	wash := coordination != nil && coordination.WashTrading.Detected

	var raw float64
	for _, r := range fired {
		raw += r.Detector.BaseConfidence()
	}
	if baseline != nil && baseline.Type == types.BaselineHistorical {
		raw += bonusHistoricalBaseline
	}
	if hasFired(fired, types.AlertCoordinatedTrading) {
		raw += bonusCoordination
	}
	if strongBias(fired) {
		raw += bonusDirectionalBias
	}
	if multi {
		raw += bonusMultiMetric
	}
	if wash {
		raw += bonusWashTrading
	}

	baselineType := types.BaselineEmpty
	if baseline != nil {
		baselineType = baseline.Type
	}

	alert := &types.Alert{
		ID:                uuid.NewString(),
		MarketID:          market.Key(),
		MarketQuestion:    market.Question,
		MarketSlug:        market.Slug,
		AlertType:         primary.Detector,
		Severity:          severity,
		SeverityScore:     severityScore,
		ConfidenceScore:   raw,
		DisplayConfidence: DisplayConfidence(raw, multi),
		Analysis:          primary.Details,
		CurrentPrice:      price,
		Timestamp:         now,
		Metadata: types.AlertMetadata{
			MultiMetric:         multi,
			BaselineType:        baselineType,
			FilterReason:        filterReason(fired),
			SupportingAnomalies: supporting,
			CrossMarketCount:    a.crossMarket(primary.Detector, market.Key(), now),
			WashTrading:         wash,
		},
	}

	CandidatesTotal.WithLabelValues(string(alert.AlertType), alert.Severity.String()).Inc()
	ConfidenceScore.Observe(raw)

	a.logger.Debug("alert-candidate",
		zap.String("market-id", alert.MarketID),
		zap.String("alert-type", string(alert.AlertType)),
		zap.String("severity", alert.Severity.String()),
		zap.Float64("severity-score", severityScore),
		zap.Float64("confidence", raw),
		zap.Int("supporting", len(supporting)))

	return alert, true
}

// DisplayConfidence rescales multi-metric scores above 10 onto the 0-10
// display range. Single-signal scores are returned unchanged.
func DisplayConfidence(raw float64, multi bool) float64 {
	if multi && raw > displayRescaleMin {
		return math.Min(raw/displayRescale, displayCap)
	}
	return raw
}

// crossMarket records the alert type for market and returns how many other
// markets produced the same type inside the window.
func (a *Aggregator) crossMarket(kind types.AlertType, marketID string, now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := a.recent[kind]
	if seen == nil {
		seen = make(map[string]time.Time)
		a.recent[kind] = seen
	}

	count := 0
	for id, ts := range seen {
		if now.Sub(ts) > a.cfg.CrossMarketWindow {
			delete(seen, id)
			continue
		}
		if id != marketID {
			count++
		}
	}
	seen[marketID] = now

	return count
}

func hasFired(fired []types.DetectionResult, kind types.AlertType) bool {
	for _, r := range fired {
		if r.Detector == kind {
			return true
		}
	}
	return false
}

func strongBias(fired []types.DetectionResult) bool {
	for _, r := range fired {
		switch d := r.Details.(type) {
		case types.WhaleActivityAnalysis:
			if d.DirectionalImbalance > strongBiasThreshold {
				return true
			}
		case types.CoordinationAnalysis:
			if d.BuyWalletRatio > strongBiasThreshold {
				return true
			}
		}
	}
	return false
}

func summary(r types.DetectionResult) string {
	if r.Details == nil {
		return r.Reason
	}
	return r.Details.Summary()
}

func filterReason(fired []types.DetectionResult) string {
	if len(fired) == 1 {
		return "single signal: " + string(fired[0].Detector)
	}
	names := make([]string, len(fired))
	for i, r := range fired {
		names[i] = string(r.Detector)
	}
	return fmt.Sprintf("multi-metric (%d signals): %s", len(fired), strings.Join(names, ", "))
}
