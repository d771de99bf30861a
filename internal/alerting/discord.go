package alerting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Fields      []discordField `json:"fields"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// DiscordNotifier posts embeds to a Discord webhook.
type DiscordNotifier struct {
	webhookURL  string
	minSeverity types.Severity
	client      *http.Client
	logger      *zap.Logger
}

// NewDiscordNotifier creates a webhook notifier.
func NewDiscordNotifier(webhookURL string, minSeverity types.Severity, timeout time.Duration, logger *zap.Logger) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordNotifier{
		webhookURL:  webhookURL,
		minSeverity: minSeverity,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) MinSeverity() types.Severity { return d.minSeverity }

// Notify posts one embed for the notification.
func (d *DiscordNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{buildEmbed(n)}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned status %d: %s", resp.StatusCode, string(msg))
	}

	d.logger.Debug("discord-notification-sent",
		zap.String("alert-id", n.Alert.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}

func buildEmbed(n Notification) discordEmbed {
	a := n.Alert
	rec := n.Recommendation

	detected := fmt.Sprintf("**Alert:** %s", a.AlertType.Title())
	if a.Analysis != nil {
		detected += "\n" + a.Analysis.Summary()
	}
	for _, s := range a.Metadata.SupportingAnomalies {
		detected += fmt.Sprintf("\n**+ %s:** %s", s.Type.Title(), s.Summary)
	}
	if a.Metadata.WashTrading {
		detected += "\n⚠️ Possible wash trading"
	}

	embed := discordEmbed{
		Title:       fmt.Sprintf("%s %s SIGNAL", severityEmoji(a.Severity), a.Severity),
		Description: a.MarketQuestion,
		Color:       severityColor(a.Severity),
		Timestamp:   a.Timestamp.UTC().Format(time.RFC3339),
		Fields: []discordField{
			{Name: "🎯 MARKET", Value: fmt.Sprintf("Current: %.3f", a.CurrentPrice)},
			{Name: "📊 DETECTED", Value: detected},
			{Name: "⚡ RECOMMENDATION", Value: fmt.Sprintf("**%s**\n_%s_", rec.Text, rec.Reasoning)},
		},
		Footer: &discordFooter{
			Text: fmt.Sprintf("📈 %s Confidence (%.1f/10)", rec.ConfidenceLevel, a.DisplayConfidence),
		},
	}
	if a.MarketSlug != "" {
		embed.URL = "https://polymarket.com/event/" + a.MarketSlug
	}
	return embed
}

func severityColor(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return 0xFF0000
	case types.SeverityHigh:
		return 0xFF8C00
	case types.SeverityMedium:
		return 0xFFD700
	default:
		return 0x32CD32
	}
}

var _ Notifier = (*DiscordNotifier)(nil)
