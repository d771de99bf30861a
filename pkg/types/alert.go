package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// AlertType names the detector that produced an alert.
type AlertType string

const (
	AlertVolumeSpike        AlertType = "VOLUME_SPIKE"
	AlertWhaleActivity      AlertType = "WHALE_ACTIVITY"
	AlertPriceMovement      AlertType = "UNUSUAL_PRICE_MOVEMENT"
	AlertCoordinatedTrading AlertType = "COORDINATED_TRADING"
)

// AllAlertTypes lists the detector types in evaluation order.
var AllAlertTypes = []AlertType{ //nolint:gochecknoglobals // fixed enumeration
	AlertVolumeSpike,
	AlertPriceMovement,
	AlertWhaleActivity,
	AlertCoordinatedTrading,
}

// Weight is the contribution of a fired detector to the severity score.
func (a AlertType) Weight() float64 {
	switch a {
	case AlertVolumeSpike:
		return 2
	case AlertPriceMovement, AlertWhaleActivity:
		return 3
	case AlertCoordinatedTrading:
		return 4
	default:
		return 0
	}
}

// BaseConfidence is the contribution of a fired detector to the raw
// confidence score. Any two fired detectors plus the multi-metric bonus
// reach 12 and any three reach 18; a single detector with every bonus it
// can earn stays within 10.
func (a AlertType) BaseConfidence() float64 {
	switch a {
	case AlertVolumeSpike, AlertPriceMovement:
		return 5
	case AlertWhaleActivity:
		return 6
	case AlertCoordinatedTrading:
		return 4
	default:
		return 0
	}
}

// Priority breaks ties between detectors of equal weight.
func (a AlertType) Priority() int {
	switch a {
	case AlertCoordinatedTrading:
		return 4
	case AlertWhaleActivity:
		return 3
	case AlertPriceMovement:
		return 2
	case AlertVolumeSpike:
		return 1
	default:
		return 0
	}
}

// Title is the human readable detector name.
func (a AlertType) Title() string {
	switch a {
	case AlertVolumeSpike:
		return "Volume Spike"
	case AlertWhaleActivity:
		return "Whale Activity"
	case AlertPriceMovement:
		return "Price Movement"
	case AlertCoordinatedTrading:
		return "Coordinated Trading"
	default:
		return string(a)
	}
}

// Severity is an ordered alert level. The zero value means "no alert".
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// ParseSeverity parses LOW, MEDIUM, HIGH or CRITICAL (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityNone, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// AtLeast reports whether s is at or above min.
func (s Severity) AtLeast(minimum Severity) bool {
	return s >= minimum
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SupportingAnomaly is a detector that fired alongside the primary one.
type SupportingAnomaly struct {
	Type     AlertType `json:"type"`
	Score    float64   `json:"score"`
	Summary  string    `json:"summary"`
	Analysis Analysis  `json:"-"`
}

// AlertMetadata carries aggregation context for an alert.
type AlertMetadata struct {
	MultiMetric         bool                `json:"multi_metric"`
	BaselineType        BaselineType        `json:"baseline_type"`
	FilterReason        string              `json:"filter_reason,omitempty"`
	SupportingAnomalies []SupportingAnomaly `json:"supporting_anomalies,omitempty"`
	CrossMarketCount    int                 `json:"cross_market_count"`
	WashTrading         bool                `json:"wash_trading"`
}

// Alert is a candidate or admitted alert. It is never mutated after
// the aggregator creates it.
type Alert struct {
	ID                string        `json:"id"`
	MarketID          string        `json:"market_id"`
	MarketQuestion    string        `json:"market_question"`
	MarketSlug        string        `json:"market_slug,omitempty"`
	AlertType         AlertType     `json:"alert_type"`
	Severity          Severity      `json:"severity"`
	SeverityScore     float64       `json:"severity_score"`
	ConfidenceScore   float64       `json:"confidence_score"`
	DisplayConfidence float64       `json:"display_confidence"`
	Analysis          Analysis      `json:"-"`
	CurrentPrice      float64       `json:"current_price"`
	Timestamp         time.Time     `json:"timestamp"`
	Metadata          AlertMetadata `json:"metadata"`
}

// Recommendation actions.
const (
	ActionBuy     = "BUY"
	ActionSell    = "SELL"
	ActionMonitor = "MONITOR"
)

// Outcome sides.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Confidence levels.
const (
	ConfidenceVeryHigh = "VERY_HIGH"
	ConfidenceHigh     = "HIGH"
	ConfidenceMedium   = "MEDIUM"
	ConfidenceLow      = "LOW"
)

// Recommendation is derived from an admitted alert and never persisted.
type Recommendation struct {
	Action          string   `json:"action"`
	Side            string   `json:"side,omitempty"`
	Price           float64  `json:"price"`
	EntryPrice      *float64 `json:"entry_price,omitempty"`
	TargetPrice     *float64 `json:"target_price,omitempty"`
	RiskPrice       *float64 `json:"risk_price,omitempty"`
	Text            string   `json:"text"`
	Reasoning       string   `json:"reasoning"`
	ConfidenceLevel string   `json:"confidence_level"`
}
