package recommendation

import (
	"fmt"
	"strings"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/shopspring/decimal"
)

// Routing thresholds on the raw confidence score.
const (
	strongConfidence = 18.0
	weakConfidence   = 12.0

	whaleBiasThreshold    = 0.8
	whaleStrongVolume     = 50000.0
	whaleMonitorVolume    = 10000.0
	whaleMonitorImbalance = 0.6

	coordinationStrongScore    = 0.8
	coordinationStrongWallets  = 5
	coordinationMonitorScore   = 0.6
	coordinationMonitorWallets = 3

	priceDecimals = 4
)

// Price multipliers.
var (
	buyEntry  = decimal.RequireFromString("1.02")
	sellEntry = decimal.RequireFromString("0.98")
	buyRisk   = decimal.RequireFromString("0.95")
	sellRisk  = decimal.RequireFromString("1.05")

	strongBuyTarget  = decimal.RequireFromString("1.30")
	strongSellTarget = decimal.RequireFromString("0.70")
	strongBuyRisk    = decimal.RequireFromString("0.90")
	strongSellRisk   = decimal.RequireFromString("1.10")
)

// OutcomeResolver maps a CLOB token id to its outcome (YES or NO).
type OutcomeResolver interface {
	OutcomeForToken(tokenID string) (string, bool)
}

// Input is everything a recommendation is derived from.
type Input struct {
	AlertType       types.AlertType
	Severity        types.Severity
	Analysis        types.Analysis
	CurrentPrice    float64
	ConfidenceScore float64
	MultiMetric     bool
	Supporting      []types.SupportingAnomaly
}

// InputFromAlert builds the engine input for an admitted alert.
func InputFromAlert(a *types.Alert) Input {
	return Input{
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Analysis:        a.Analysis,
		CurrentPrice:    a.CurrentPrice,
		ConfidenceScore: a.ConfidenceScore,
		MultiMetric:     a.Metadata.MultiMetric,
		Supporting:      a.Metadata.SupportingAnomalies,
	}
}

// Engine turns alerts into BUY/SELL/MONITOR recommendations. It holds no
// mutable state; Generate is deterministic for a given resolver.
type Engine struct {
	resolver OutcomeResolver
}

// NewEngine creates an Engine. resolver may be nil.
func NewEngine(resolver OutcomeResolver) *Engine {
	return &Engine{resolver: resolver}
}

// ForAlert is Generate(InputFromAlert(a)).
func (e *Engine) ForAlert(a *types.Alert) types.Recommendation {
	return e.Generate(InputFromAlert(a))
}

// Generate derives the recommendation for in.
func (e *Engine) Generate(in Input) types.Recommendation {
	level := ConfidenceLevel(in.ConfidenceScore, in.MultiMetric)

	var rec types.Recommendation
	switch {
	case e.multiMetricEligible(in):
		rec = e.multiMetric(in)
	case in.AlertType == types.AlertWhaleActivity:
		rec = e.whale(in)
	case in.AlertType == types.AlertCoordinatedTrading:
		rec = e.coordination(in)
	case in.AlertType == types.AlertVolumeSpike:
		rec = volume(in)
	case in.AlertType == types.AlertPriceMovement:
		rec = priceMovement(in)
	default:
		rec = monitor(
			fmt.Sprintf("Unusual %s detected", in.AlertType),
			"Verify independently before acting",
			in.CurrentPrice,
		)
	}

	rec.ConfidenceLevel = level
	return rec
}

// ConfidenceLevel labels a raw confidence score.
func ConfidenceLevel(score float64, multi bool) string {
	switch {
	case multi && score >= 15, score >= 12:
		return types.ConfidenceVeryHigh
	case score >= 9:
		return types.ConfidenceHigh
	case score >= 6:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

func (e *Engine) multiMetricEligible(in Input) bool {
	if !in.MultiMetric || len(in.Supporting) == 0 {
		return false
	}
	return in.ConfidenceScore >= weakConfidence
}

func (e *Engine) multiMetric(in Input) types.Recommendation {
	strong := in.ConfidenceScore >= strongConfidence && len(in.Supporting) >= 2
	price := in.CurrentPrice

	titles := []string{in.AlertType.Title()}
	for _, s := range in.Supporting {
		titles = append(titles, s.Type.Title())
	}
	signals := strings.Join(titles, " + ")

	action, outcome, actionable := e.direction(in)
	if !actionable {
		side := trendSide(in)
		text := "Monitor - Multi-signal activity"
		if side != "" {
			text = fmt.Sprintf("Monitor %s - Multi-signal activity @ $%.2f", side, price)
		}
		rec := monitor(text, fmt.Sprintf("Confluence: %s. No whale or coordinated flow to follow; watch the price trend.", signals), price)
		rec.Side = side
		return rec
	}

	verb := "Buy"
	entry, target, risk := buyEntry, strongBuyTarget, strongBuyRisk
	if action == types.ActionSell {
		verb = "Sell"
		entry, target, risk = sellEntry, strongSellTarget, strongSellRisk
	}

	rec := types.Recommendation{
		Action:     action,
		Side:       outcome,
		Price:      price,
		EntryPrice: scaled(price, entry),
	}

	if strong {
		rec.TargetPrice = scaled(price, target)
		rec.RiskPrice = scaled(price, risk)
		rec.Text = fmt.Sprintf("Consider %s %s @ $%.2f | Entry: $%.4f | Target: $%.4f | Stop: $%.4f",
			outcome, verb, price, *rec.EntryPrice, *rec.TargetPrice, *rec.RiskPrice)
		rec.Reasoning = fmt.Sprintf("Strong confluence: %s. Independent signals confirm %s pressure on %s.",
			signals, strings.ToLower(verb), outcome)
		return rec
	}

	rec.Text = fmt.Sprintf("Strong %s signal - Consider %s @ $%.2f", outcome, strings.ToLower(verb), price)
	rec.Reasoning = fmt.Sprintf("%s detected. Dual signal confirmation on %s.", signals, outcome)
	return rec
}

// direction returns the trade action and outcome for actionable primaries.
func (e *Engine) direction(in Input) (string, string, bool) {
	switch a := in.Analysis.(type) {
	case types.WhaleActivityAnalysis:
		return sideAction(a.DominantSide), e.whaleOutcome(a), true
	case types.CoordinationAnalysis:
		return sideAction(a.DominantDirection), e.coordinationOutcome(a), true
	default:
		return "", "", false
	}
}

func (e *Engine) whale(in Input) types.Recommendation {
	a, _ := in.Analysis.(types.WhaleActivityAnalysis)
	price := in.CurrentPrice
	outcome := e.whaleOutcome(a)

	whales := fmt.Sprintf("%d whale", a.WhaleCount)
	if a.WhaleCount != 1 {
		whales += "s"
	}
	if a.Coordination.Coordinated {
		whales += " coordinated"
	}

	strongSeverity := in.Severity == types.SeverityCritical || in.Severity == types.SeverityHigh
	if strongSeverity && a.DirectionalImbalance > whaleBiasThreshold && a.TotalWhaleVolume > whaleStrongVolume {
		action := sideAction(a.DominantSide)
		verb, past := "Buy", "purchased"
		entry, risk := buyEntry, buyRisk
		if action == types.ActionSell {
			verb, past = "Sell", "sold"
			entry, risk = sellEntry, sellRisk
		}

		return types.Recommendation{
			Action:     action,
			Side:       outcome,
			Price:      price,
			EntryPrice: scaled(price, entry),
			RiskPrice:  scaled(price, risk),
			Text:       fmt.Sprintf("Consider %s %s @ $%.2f", outcome, verb, price),
			Reasoning: fmt.Sprintf("%s %s $%.0fK %s @ $%.2f with %.0f%% %s bias. Strong conviction signal.",
				whales, past, a.TotalWhaleVolume/1000, outcome, price,
				a.DirectionalImbalance*100, strings.ToLower(a.DominantSide)),
		}
	}

	if a.TotalWhaleVolume > whaleMonitorVolume && a.DirectionalImbalance > whaleMonitorImbalance {
		past := "purchased"
		if a.DominantSide == types.SideSell {
			past = "sold"
		}
		rec := monitor(
			fmt.Sprintf("Monitor - Whale %s $%.0fK %s @ $%.2f", past, a.TotalWhaleVolume/1000, outcome, price),
			fmt.Sprintf("Whale activity detected (%s). Verify with other signals before acting.", whales),
			price,
		)
		rec.Side = outcome
		return rec
	}

	return monitor(
		"Monitor - Unusual whale activity detected",
		"Activity detected but low directional conviction. Monitor for confirmation.",
		price,
	)
}

func (e *Engine) coordination(in Input) types.Recommendation {
	a, _ := in.Analysis.(types.CoordinationAnalysis)
	price := in.CurrentPrice
	outcome := e.coordinationOutcome(a)

	if in.Severity == types.SeverityCritical &&
		a.CoordinationScore > coordinationStrongScore &&
		a.UniqueWallets >= coordinationStrongWallets {
		action := sideAction(a.DominantDirection)
		verb, noun := "Buy", "purchase"
		entry, risk := buyEntry, buyRisk
		if action == types.ActionSell {
			verb, noun = "Sell", "sale"
			entry, risk = sellEntry, sellRisk
		}

		warning := ""
		washNote := ""
		if a.WashTrading.Detected {
			warning = " | ⚠️ Risk: Potential wash trading"
			washNote = "High risk: potential wash trading. "
		}

		return types.Recommendation{
			Action:     action,
			Side:       outcome,
			Price:      price,
			EntryPrice: scaled(price, entry),
			RiskPrice:  scaled(price, risk),
			Text:       fmt.Sprintf("Strong insider signal - Consider %s %s @ $%.2f%s", outcome, verb, price, warning),
			Reasoning: fmt.Sprintf("%d wallets coordinated a %s %s. Coordination score: %.2f. %sVerify independently before acting.",
				a.UniqueWallets, outcome, noun, a.CoordinationScore, washNote),
		}
	}

	if a.CoordinationScore > coordinationMonitorScore && a.UniqueWallets >= coordinationMonitorWallets {
		return monitor(
			fmt.Sprintf("Monitor - %d wallets coordinated on %s", a.UniqueWallets, outcome),
			fmt.Sprintf("Coordination detected (score: %.2f). Verify independently before acting.", a.CoordinationScore),
			price,
		)
	}

	return monitor(
		"Monitor - Potential coordination detected",
		"Low coordination signal. Monitor for stronger confirmation.",
		price,
	)
}

func volume(in Input) types.Recommendation {
	a, _ := in.Analysis.(types.VolumeSpikeAnalysis)
	score := a.MaxAnomalyScore
	if score == 0 {
		score = a.SpikeMultiplier
	}
	return monitor(
		fmt.Sprintf("Monitor - Volume spike %.1fx normal", score),
		"High volume detected. Verify market news and confirm direction with other signals.",
		in.CurrentPrice,
	)
}

func priceMovement(in Input) types.Recommendation {
	a, _ := in.Analysis.(types.PriceMovementAnalysis)
	return monitor(
		fmt.Sprintf("Monitor - Rapid %+.1f%% price movement", a.PriceChangePct),
		"Significant price movement detected. Verify news catalyst before acting.",
		in.CurrentPrice,
	)
}

func monitor(text, reasoning string, price float64) types.Recommendation {
	return types.Recommendation{
		Action:    types.ActionMonitor,
		Price:     price,
		Text:      text,
		Reasoning: reasoning,
	}
}

// whaleOutcome resolves the top whales' token, falling back to the
// dominant side: BUY means YES, SELL means NO.
func (e *Engine) whaleOutcome(a types.WhaleActivityAnalysis) string {
	for _, w := range a.TopWhales {
		if outcome, ok := e.resolve(w.AssetID); ok {
			return outcome
		}
	}
	return sideOutcome(a.DominantSide)
}

func (e *Engine) coordinationOutcome(a types.CoordinationAnalysis) string {
	if outcome, ok := e.resolve(a.AssetID); ok {
		return outcome
	}
	if a.BuyWalletRatio > 0.5 {
		return types.OutcomeYes
	}
	return types.OutcomeNo
}

func (e *Engine) resolve(tokenID string) (string, bool) {
	if e.resolver == nil || tokenID == "" {
		return "", false
	}
	return e.resolver.OutcomeForToken(tokenID)
}

// trendSide reads the price trend from the primary or a supporting price
// analysis.
func trendSide(in Input) string {
	trend := ""
	if p, ok := in.Analysis.(types.PriceMovementAnalysis); ok {
		trend = p.Trend
	}
	for _, s := range in.Supporting {
		if trend != "" {
			break
		}
		if p, ok := s.Analysis.(types.PriceMovementAnalysis); ok {
			trend = p.Trend
		}
	}

	switch trend {
	case types.TrendUp:
		return types.OutcomeYes
	case types.TrendDown:
		return types.OutcomeNo
	default:
		return ""
	}
}

func sideAction(side string) string {
	if side == types.SideSell {
		return types.ActionSell
	}
	return types.ActionBuy
}

func sideOutcome(side string) string {
	if side == types.SideSell {
		return types.OutcomeNo
	}
	return types.OutcomeYes
}

func scaled(price float64, multiplier decimal.Decimal) *float64 {
	v := decimal.NewFromFloat(price).Mul(multiplier).Round(priceDecimals).InexactFloat64()
	return &v
}
