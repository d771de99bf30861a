package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	LogFile  string
	HTTPPort string

	// Polymarket API
	PolymarketWSURL      string
	PolymarketGammaURL   string
	PolymarketDataAPIURL string
	APITimeout           time.Duration

	// Market Discovery
	DiscoveryPollInterval time.Duration
	DiscoveryMarketLimit  int
	DiscoveryMinVolume    float64

	// WebSocket
	WSDialTimeout          time.Duration
	WSReadTimeout          time.Duration
	WSPingInterval         time.Duration
	WSReconnectBaseDelay   time.Duration
	WSMaxReconnectAttempts int
	WSMessageBufferSize    int

	// Analysis scheduling
	AnalysisInterval       time.Duration
	AnalysisMaxConcurrency int
	AnalysisCycleTimeout   time.Duration

	// Baseline and backfill
	BaselineWindow     time.Duration
	BaselineMaxTrades  int
	BackfillEnabled    bool
	BackfillLookback   time.Duration
	BackfillMaxTrades  int
	BackfillCacheTTL   time.Duration
	TradeBufferMaxSize int

	// Detection thresholds
	VolumeSpikeMultiplier       float64
	VolumeZScoreThreshold       float64
	PriceRapidMovementPct       float64
	PriceMovementStdThreshold   float64
	PriceWindow                 time.Duration
	WhaleThresholdUSD           float64
	WhaleImbalanceThreshold     float64
	WhaleWindow                 time.Duration
	CoordinationWindow          time.Duration
	CoordinationMinWallets      int
	CoordinationDirectionalBias float64
	CoordinationMinWindowTrades int
	CrossMarketWindow           time.Duration
	DetectionConfigFile         string

	// Severity score thresholds (weighted detector sum)
	SeverityMediumScore   float64
	SeverityHighScore     float64
	SeverityCriticalScore float64

	// Alerting
	AlertMinSeverity        types.Severity
	AlertMaxPerHour         int
	AlertDuplicateWindow    time.Duration
	AlertRetention          time.Duration
	DispatchBufferSize      int
	DispatchRatePerMinute   int
	DiscordWebhookURL       string
	DiscordMinSeverity      types.Severity
	TelegramBotToken        string
	TelegramChatID          string
	TelegramMinSeverity     types.Severity
	TelegramAPIURL          string
	NotificationSendTimeout time.Duration

	// Storage
	StorageMode  string // "memory", "console" or "postgres"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		PolymarketWSURL:      getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketGammaURL:   getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketDataAPIURL: getEnvOrDefault("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		APITimeout:           env.duration("API_TIMEOUT", 10*time.Second),

		// Market Discovery defaults
		DiscoveryPollInterval: env.duration("DISCOVERY_POLL_INTERVAL", 5*time.Minute),
		DiscoveryMarketLimit:  env.integer("DISCOVERY_MARKET_LIMIT", 50),
		DiscoveryMinVolume:    env.float("DISCOVERY_MIN_VOLUME", 1000),

		// WebSocket defaults
		WSDialTimeout:          env.duration("WS_DIAL_TIMEOUT", 10*time.Second),
		WSReadTimeout:          env.duration("WS_READ_TIMEOUT", 90*time.Second),
		WSPingInterval:         env.duration("WS_PING_INTERVAL", 30*time.Second),
		WSReconnectBaseDelay:   env.duration("WS_RECONNECT_BASE_DELAY", 5*time.Second),
		WSMaxReconnectAttempts: env.integer("WS_MAX_RECONNECT_ATTEMPTS", 10),
		WSMessageBufferSize:    env.integer("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Analysis defaults
		AnalysisInterval:       env.duration("ANALYSIS_INTERVAL", 60*time.Second),
		AnalysisMaxConcurrency: env.integer("ANALYSIS_MAX_CONCURRENCY", 8),
		AnalysisCycleTimeout:   env.duration("ANALYSIS_CYCLE_TIMEOUT", 45*time.Second),

		// Baseline and backfill defaults
		BaselineWindow:     env.duration("BASELINE_WINDOW", 168*time.Hour),
		BaselineMaxTrades:  env.integer("BASELINE_MAX_TRADES", 5000),
		BackfillEnabled:    env.boolean("BACKFILL_ENABLED", true),
		BackfillLookback:   env.duration("BACKFILL_LOOKBACK", 168*time.Hour),
		BackfillMaxTrades:  env.integer("BACKFILL_MAX_TRADES", 5000),
		BackfillCacheTTL:   env.duration("BACKFILL_CACHE_TTL", 10*time.Minute),
		TradeBufferMaxSize: env.integer("TRADE_BUFFER_MAX_SIZE", 5000),

		// Detection defaults
		VolumeSpikeMultiplier:       env.float("VOLUME_SPIKE_MULTIPLIER", 3.0),
		VolumeZScoreThreshold:       env.float("VOLUME_Z_SCORE_THRESHOLD", 3.0),
		PriceRapidMovementPct:       env.float("PRICE_RAPID_MOVEMENT_PCT", 15.0),
		PriceMovementStdThreshold:   env.float("PRICE_MOVEMENT_STD_THRESHOLD", 2.5),
		PriceWindow:                 env.duration("PRICE_WINDOW", 60*time.Minute),
		WhaleThresholdUSD:           env.float("WHALE_THRESHOLD_USD", 10000),
		WhaleImbalanceThreshold:     env.float("WHALE_IMBALANCE_THRESHOLD", 0.7),
		WhaleWindow:                 env.duration("WHALE_WINDOW", 60*time.Minute),
		CoordinationWindow:          env.duration("COORDINATION_WINDOW", 30*time.Minute),
		CoordinationMinWallets:      env.integer("COORDINATION_MIN_WALLETS", 5),
		CoordinationDirectionalBias: env.float("COORDINATION_DIRECTIONAL_BIAS", 0.8),
		CoordinationMinWindowTrades: env.integer("COORDINATION_MIN_WINDOW_TRADES", 20),
		CrossMarketWindow:           env.duration("CROSS_MARKET_WINDOW", 15*time.Minute),
		DetectionConfigFile:         os.Getenv("DETECTION_CONFIG_FILE"),

		SeverityMediumScore:   env.float("SEVERITY_MEDIUM_SCORE", 3),
		SeverityHighScore:     env.float("SEVERITY_HIGH_SCORE", 5),
		SeverityCriticalScore: env.float("SEVERITY_CRITICAL_SCORE", 8),

		// Alerting defaults
		AlertMinSeverity:        env.severity("ALERT_MIN_SEVERITY", types.SeverityMedium),
		AlertMaxPerHour:         env.integer("ALERT_MAX_PER_HOUR", 10),
		AlertDuplicateWindow:    env.duration("ALERT_DUPLICATE_WINDOW", 10*time.Minute),
		AlertRetention:          env.duration("ALERT_RETENTION", 48*time.Hour),
		DispatchBufferSize:      env.integer("DISPATCH_BUFFER_SIZE", 100),
		DispatchRatePerMinute:   env.integer("DISPATCH_RATE_PER_MINUTE", 30),
		DiscordWebhookURL:       os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordMinSeverity:      env.severity("DISCORD_MIN_SEVERITY", types.SeverityMedium),
		TelegramBotToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:          os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramMinSeverity:     env.severity("TELEGRAM_MIN_SEVERITY", types.SeverityMedium),
		TelegramAPIURL:          getEnvOrDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		NotificationSendTimeout: env.duration("NOTIFICATION_SEND_TIMEOUT", 10*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_insider"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if env.err != nil {
		return nil, fmt.Errorf("parse config: %w", env.err)
	}

	if cfg.DetectionConfigFile != "" {
		err := cfg.ApplyDetectionFile(cfg.DetectionConfigFile)
		if err != nil {
			return nil, fmt.Errorf("apply detection config: %w", err)
		}
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.PolymarketWSURL == "" {
		return errors.New("POLYMARKET_WS_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return errors.New("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	positiveDurations := map[string]time.Duration{
		"WS_PING_INTERVAL":        c.WSPingInterval,
		"WS_RECONNECT_BASE_DELAY": c.WSReconnectBaseDelay,
		"ANALYSIS_INTERVAL":       c.AnalysisInterval,
		"BASELINE_WINDOW":         c.BaselineWindow,
		"PRICE_WINDOW":            c.PriceWindow,
		"WHALE_WINDOW":            c.WhaleWindow,
		"COORDINATION_WINDOW":     c.CoordinationWindow,
		"ALERT_DUPLICATE_WINDOW":  c.AlertDuplicateWindow,
	}
	for name, d := range positiveDurations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}

	positiveFloats := map[string]float64{
		"VOLUME_SPIKE_MULTIPLIER":      c.VolumeSpikeMultiplier,
		"VOLUME_Z_SCORE_THRESHOLD":     c.VolumeZScoreThreshold,
		"PRICE_RAPID_MOVEMENT_PCT":     c.PriceRapidMovementPct,
		"PRICE_MOVEMENT_STD_THRESHOLD": c.PriceMovementStdThreshold,
		"WHALE_THRESHOLD_USD":          c.WhaleThresholdUSD,
	}
	for name, v := range positiveFloats {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, v)
		}
	}

	if c.WhaleImbalanceThreshold <= 0 || c.WhaleImbalanceThreshold > 1 {
		return fmt.Errorf("WHALE_IMBALANCE_THRESHOLD must be in (0, 1], got %f", c.WhaleImbalanceThreshold)
	}

	if c.CoordinationDirectionalBias <= 0 || c.CoordinationDirectionalBias > 1 {
		return fmt.Errorf("COORDINATION_DIRECTIONAL_BIAS must be in (0, 1], got %f", c.CoordinationDirectionalBias)
	}

	if c.CoordinationMinWallets <= 0 || c.CoordinationMinWindowTrades <= 0 {
		return errors.New("COORDINATION_MIN_WALLETS and COORDINATION_MIN_WINDOW_TRADES must be positive")
	}

	if c.WSMaxReconnectAttempts <= 0 {
		return fmt.Errorf("WS_MAX_RECONNECT_ATTEMPTS must be positive, got %d", c.WSMaxReconnectAttempts)
	}

	if c.AnalysisMaxConcurrency <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_CONCURRENCY must be positive, got %d", c.AnalysisMaxConcurrency)
	}

	if c.AlertMaxPerHour <= 0 {
		return fmt.Errorf("ALERT_MAX_PER_HOUR must be positive, got %d", c.AlertMaxPerHour)
	}

	sizes := map[string]int{
		"DISCOVERY_MARKET_LIMIT": c.DiscoveryMarketLimit,
		"BASELINE_MAX_TRADES":    c.BaselineMaxTrades,
		"TRADE_BUFFER_MAX_SIZE":  c.TradeBufferMaxSize,
		"DISPATCH_BUFFER_SIZE":   c.DispatchBufferSize,
	}
	for name, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	if c.SeverityMediumScore <= 0 ||
		c.SeverityHighScore <= c.SeverityMediumScore ||
		c.SeverityCriticalScore <= c.SeverityHighScore {
		return fmt.Errorf("severity score thresholds must be strictly ascending, got medium=%g high=%g critical=%g",
			c.SeverityMediumScore, c.SeverityHighScore, c.SeverityCriticalScore)
	}

	switch c.StorageMode {
	case "memory", "console", "postgres":
	default:
		return fmt.Errorf("STORAGE_MODE must be 'memory', 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN returns the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

// envReader keeps the first parse error so LoadFromEnv can stay a
// single struct literal. A malformed value is fatal rather than silently
// replaced by its default.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}

func (r *envReader) severity(key string, defaultValue types.Severity) types.Severity {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	sev, err := types.ParseSeverity(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}

	return sev
}

func (r *envReader) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}

	return intVal
}

func (r *envReader) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err == nil && (math.IsNaN(floatVal) || math.IsInf(floatVal, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}

	return floatVal
}

func (r *envReader) boolean(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	switch strings.ToLower(value) {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		r.fail(key, value, errors.New("not a boolean"))
		return defaultValue
	}
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}

	return duration
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
