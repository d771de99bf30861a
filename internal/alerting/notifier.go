package alerting

import (
	"context"
	"fmt"
	"strings"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Notification is an admitted alert with its recommendation.
type Notification struct {
	Alert          *types.Alert
	Recommendation types.Recommendation
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// MinSeverity is the lowest severity this channel receives.
	MinSeverity() types.Severity

	// Notify delivers a single notification.
	Notify(ctx context.Context, n Notification) error
}

// ConsoleNotifier writes notifications to the structured log.
type ConsoleNotifier struct {
	minSeverity types.Severity
	logger      *zap.Logger
}

// NewConsoleNotifier creates a log-backed notifier.
func NewConsoleNotifier(minSeverity types.Severity, logger *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{
		minSeverity: minSeverity,
		logger:      logger,
	}
}

func (c *ConsoleNotifier) Name() string { return "console" }

func (c *ConsoleNotifier) MinSeverity() types.Severity { return c.minSeverity }

// Notify logs the alert and recommendation.
func (c *ConsoleNotifier) Notify(_ context.Context, n Notification) error {
	a := n.Alert
	c.logger.Info("alert-notification",
		zap.String("alert-id", a.ID),
		zap.String("market-slug", a.MarketSlug),
		zap.String("alert-type", string(a.AlertType)),
		zap.String("severity", a.Severity.String()),
		zap.Float64("confidence", a.DisplayConfidence),
		zap.String("action", n.Recommendation.Action),
		zap.String("side", n.Recommendation.Side),
		zap.String("recommendation", n.Recommendation.Text))
	return nil
}

// renderText formats a notification as plain text for chat channels.
func renderText(n Notification) string {
	a := n.Alert
	rec := n.Recommendation

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s SIGNAL: %s\n", severityEmoji(a.Severity), a.Severity, a.AlertType.Title())
	fmt.Fprintf(&b, "%s\n", a.MarketQuestion)
	fmt.Fprintf(&b, "Price: %.3f\n", a.CurrentPrice)
	if a.Analysis != nil {
		fmt.Fprintf(&b, "Detected: %s\n", a.Analysis.Summary())
	}
	for _, s := range a.Metadata.SupportingAnomalies {
		fmt.Fprintf(&b, "Also: %s (%s)\n", s.Type.Title(), s.Summary)
	}
	fmt.Fprintf(&b, "Recommendation: %s\n", rec.Text)
	if rec.Reasoning != "" {
		fmt.Fprintf(&b, "Why: %s\n", rec.Reasoning)
	}
	fmt.Fprintf(&b, "Confidence: %s (%.1f/10)", rec.ConfidenceLevel, a.DisplayConfidence)
	if a.MarketSlug != "" {
		fmt.Fprintf(&b, "\nhttps://polymarket.com/event/%s", a.MarketSlug)
	}
	return b.String()
}

func severityEmoji(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "🔴"
	case types.SeverityHigh:
		return "🟠"
	case types.SeverityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

var _ Notifier = (*ConsoleNotifier)(nil)
