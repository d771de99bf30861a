package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Gate rejection reasons not produced by storage.
const (
	ReasonBelowSeverity = "below_min_severity"
	ReasonStorageError  = "storage_error"
)

// GateConfig holds the admission policy.
type GateConfig struct {
	MinSeverity     types.Severity
	MaxPerHour      int
	DuplicateWindow time.Duration
}

// GateConfigFromConfig extracts the admission policy from the app config.
func GateConfigFromConfig(cfg *config.Config) GateConfig {
	return GateConfig{
		MinSeverity:     cfg.AlertMinSeverity,
		MaxPerHour:      cfg.AlertMaxPerHour,
		DuplicateWindow: cfg.AlertDuplicateWindow,
	}
}

// Gate decides which candidate alerts are recorded. The check and the
// record happen under one lock so concurrent market cycles cannot both
// pass the same rate-limit or duplicate check.
type Gate struct {
	cfg    GateConfig
	store  storage.AlertStorage
	logger *zap.Logger

	mu sync.Mutex
}

// NewGate creates a gate backed by store.
func NewGate(cfg GateConfig, store storage.AlertStorage, logger *zap.Logger) *Gate {
	return &Gate{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Admit runs the severity, rate-limit and duplicate checks and saves the
// alert when all pass. The reason is empty for admitted alerts.
func (g *Gate) Admit(ctx context.Context, alert *types.Alert) (bool, string) {
	if !alert.Severity.AtLeast(g.cfg.MinSeverity) {
		g.reject(alert, ReasonBelowSeverity)
		return false, ReasonBelowSeverity
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ok, reason, err := g.store.ShouldSendAlert(ctx, alert, g.cfg.MaxPerHour, g.cfg.DuplicateWindow)
	if err != nil {
		g.logger.Error("alert-check-failed",
			zap.String("market-id", alert.MarketID),
			zap.String("alert-type", string(alert.AlertType)),
			zap.Error(err))
		GateDecisionsTotal.WithLabelValues(ReasonStorageError).Inc()
		return false, ReasonStorageError
	}
	if !ok {
		g.reject(alert, reason)
		return false, reason
	}

	err = g.store.SaveAlert(ctx, alert)
	if err != nil {
		g.logger.Error("alert-save-failed",
			zap.String("alert-id", alert.ID),
			zap.Error(err))
		GateDecisionsTotal.WithLabelValues(ReasonStorageError).Inc()
		return false, ReasonStorageError
	}

	GateDecisionsTotal.WithLabelValues("admitted").Inc()
	g.logger.Info("alert-admitted",
		zap.String("alert-id", alert.ID),
		zap.String("market-id", alert.MarketID),
		zap.String("alert-type", string(alert.AlertType)),
		zap.String("severity", alert.Severity.String()),
		zap.Float64("confidence", alert.ConfidenceScore))

	return true, ""
}

// RateLimitActive reports whether the hourly cap is currently reached.
func (g *Gate) RateLimitActive(ctx context.Context) (bool, error) {
	recent, err := g.store.GetRecentAlerts(ctx, 1)
	if err != nil {
		return false, err
	}
	return len(recent) >= g.cfg.MaxPerHour, nil
}

func (g *Gate) reject(alert *types.Alert, reason string) {
	GateDecisionsTotal.WithLabelValues(reason).Inc()
	g.logger.Debug("alert-rejected",
		zap.String("market-id", alert.MarketID),
		zap.String("alert-type", string(alert.AlertType)),
		zap.String("severity", alert.Severity.String()),
		zap.String("reason", reason))
}
