package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mselser95/polymarket-insider/internal/alerting"
	"github.com/mselser95/polymarket-insider/internal/baseline"
	"github.com/mselser95/polymarket-insider/internal/confidence"
	"github.com/mselser95/polymarket-insider/internal/detection"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/internal/recommendation"
	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds the analysis schedule.
type Config struct {
	Interval             time.Duration
	MaxConcurrency       int
	CycleTimeout         time.Duration
	Retention            time.Duration
	HousekeepingInterval time.Duration
}

// ConfigFromConfig extracts the schedule from the application config.
func ConfigFromConfig(cfg *config.Config) Config {
	return Config{
		Interval:             cfg.AnalysisInterval,
		MaxConcurrency:       cfg.AnalysisMaxConcurrency,
		CycleTimeout:         cfg.AnalysisCycleTimeout,
		Retention:            cfg.AlertRetention,
		HousekeepingInterval: time.Hour,
	}
}

// Deps are the pipeline stages a Monitor drives.
type Deps struct {
	Registry   *markets.Registry
	Tracker    *baseline.Tracker
	Suite      *detection.Suite
	Aggregator *confidence.Aggregator
	Gate       *alerting.Gate
	Engine     *recommendation.Engine
	Dispatcher *alerting.Dispatcher
	Store      storage.AlertStorage
	Logger     *zap.Logger
}

// Monitor runs the periodic analysis cycle over every tracked market.
type Monitor struct {
	cfg Config

	registry   *markets.Registry
	tracker    *baseline.Tracker
	suite      *detection.Suite
	aggregator *confidence.Aggregator
	gate       *alerting.Gate
	engine     *recommendation.Engine
	dispatcher *alerting.Dispatcher
	store      storage.AlertStorage
	logger     *zap.Logger

	now   func() time.Time
	locks sync.Map // market key -> *sync.Mutex
}

// New creates a Monitor.
func New(cfg Config, deps Deps) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.HousekeepingInterval <= 0 {
		cfg.HousekeepingInterval = time.Hour
	}
	return &Monitor{
		cfg:        cfg,
		registry:   deps.Registry,
		tracker:    deps.Tracker,
		suite:      deps.Suite,
		aggregator: deps.Aggregator,
		gate:       deps.Gate,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		store:      deps.Store,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Run ticks until ctx is cancelled. A cycle in progress finishes (bounded
// by CycleTimeout) before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor-starting",
		zap.Duration("interval", m.cfg.Interval),
		zap.Int("max-concurrency", m.cfg.MaxConcurrency),
		zap.Duration("cycle-timeout", m.cfg.CycleTimeout))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	housekeeping := time.NewTicker(m.cfg.HousekeepingInterval)
	defer housekeeping.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor-stopping")
			return ctx.Err()
		case <-ticker.C:
			m.RunCycle(ctx)
		case <-housekeeping.C:
			m.Housekeep(ctx)
		}
	}
}

// RunCycle analyzes every tracked market once and returns the number of
// alerts admitted.
func (m *Monitor) RunCycle(ctx context.Context) int {
	start := time.Now()
	if m.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.CycleTimeout)
		defer cancel()
	}

	keys := m.registry.Keys()

	var mu sync.Mutex
	admitted := 0

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.MaxConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, ok := m.AnalyzeMarket(ctx, key); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	CycleDurationSeconds.Observe(time.Since(start).Seconds())
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		CycleTimeoutsTotal.Inc()
		m.logger.Warn("analysis-cycle-timeout",
			zap.Int("markets", len(keys)),
			zap.Duration("timeout", m.cfg.CycleTimeout))
	}

	m.logger.Debug("analysis-cycle-complete",
		zap.Int("markets", len(keys)),
		zap.Int("alerts", admitted),
		zap.Duration("duration", time.Since(start)))

	return admitted
}

// AnalyzeMarket runs the full pipeline for one market. It returns the
// admitted alert, or false when nothing fired, the gate rejected the
// candidate, or the previous analysis of this market is still running.
func (m *Monitor) AnalyzeMarket(ctx context.Context, key string) (*types.Alert, bool) {
	lock := m.marketLock(key)
	if !lock.TryLock() {
		MarketsSkippedTotal.Inc()
		m.logger.Debug("analysis-skipped-in-progress", zap.String("market-id", key))
		return nil, false
	}
	defer lock.Unlock()

	market, ok := m.registry.Market(key)
	if !ok {
		return nil, false
	}

	start := time.Now()
	now := m.now()

	trades := m.registry.Trades(key)
	b := m.tracker.Update(key, trades, now)
	results := m.suite.Run(trades, b, now)

	price, ok := m.registry.LastPrice(key)
	if !ok {
		price = market.LastTradePrice
	}

	alert, ok := m.aggregator.Combine(market, results, b, price, now)
	MarketAnalysisSeconds.Observe(time.Since(start).Seconds())
	if !ok {
		return nil, false
	}

	admitted, reason := m.gate.Admit(ctx, alert)
	if !admitted {
		m.logger.Debug("alert-suppressed",
			zap.String("market-id", key),
			zap.String("alert-type", string(alert.AlertType)),
			zap.String("reason", reason))
		return nil, false
	}

	rec := m.engine.ForAlert(alert)
	AlertsGeneratedTotal.WithLabelValues(string(alert.AlertType), alert.Severity.String()).Inc()

	m.logger.Info("alert-generated",
		zap.String("alert-id", alert.ID),
		zap.String("market-id", key),
		zap.String("slug", alert.MarketSlug),
		zap.String("alert-type", string(alert.AlertType)),
		zap.String("severity", alert.Severity.String()),
		zap.Float64("confidence", alert.ConfidenceScore),
		zap.String("action", rec.Action),
		zap.String("side", rec.Side))

	if m.dispatcher != nil {
		m.dispatcher.Enqueue(alerting.Notification{Alert: alert, Recommendation: rec})
	}
	return alert, true
}

// Housekeep drops stored alerts older than the retention window.
func (m *Monitor) Housekeep(ctx context.Context) {
	if m.store == nil || m.cfg.Retention <= 0 {
		return
	}
	removed, err := m.store.ClearOldAlerts(ctx, m.cfg.Retention)
	if err != nil {
		m.logger.Error("clear-old-alerts-failed", zap.Error(err))
		return
	}
	m.logger.Info("old-alerts-cleared",
		zap.Int64("removed", removed),
		zap.Duration("retention", m.cfg.Retention))
}

func (m *Monitor) marketLock(key string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// forget drops the per-market lock of a removed market.
func (m *Monitor) forget(key string) {
	m.locks.Delete(key)
}
