package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// TelegramNotifier sends messages through the Bot API sendMessage call.
type TelegramNotifier struct {
	botToken    string
	chatID      string
	baseURL     string
	minSeverity types.Severity
	client      *http.Client
	logger      *zap.Logger
}

// NewTelegramNotifier creates a Telegram notifier. An empty baseURL uses
// the public Bot API.
func NewTelegramNotifier(
	botToken, chatID, baseURL string,
	minSeverity types.Severity,
	timeout time.Duration,
	logger *zap.Logger,
) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		botToken:    botToken,
		chatID:      chatID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		minSeverity: minSeverity,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) MinSeverity() types.Severity { return t.minSeverity }

// Notify posts the rendered text to the configured chat.
func (t *TelegramNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     renderText(n),
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	t.logger.Debug("telegram-notification-sent",
		zap.String("alert-id", n.Alert.ID))
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
