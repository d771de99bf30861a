package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-insider/internal/alerting"
	"github.com/mselser95/polymarket-insider/internal/backfill"
	"github.com/mselser95/polymarket-insider/internal/baseline"
	"github.com/mselser95/polymarket-insider/internal/confidence"
	"github.com/mselser95/polymarket-insider/internal/detection"
	"github.com/mselser95/polymarket-insider/internal/discovery"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/internal/monitor"
	"github.com/mselser95/polymarket-insider/internal/recommendation"
	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/cache"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/healthprobe"
	"github.com/mselser95/polymarket-insider/pkg/httpserver"
	"github.com/mselser95/polymarket-insider/pkg/websocket"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	appCache, err := setupCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	alertStorage, err := setupStorage(cfg, logger)
	if err != nil {
		appCache.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	healthChecker := healthprobe.New()
	discoveryService := setupDiscoveryService(cfg, logger, appCache, opts)
	wsManager := setupWebSocketManager(cfg, logger)
	registry := markets.NewRegistry(cfg.TradeBufferMaxSize, logger)

	engine := recommendation.NewEngine(registry)
	gate := alerting.NewGate(alerting.GateConfigFromConfig(cfg), alertStorage, logger)
	dispatcher := setupDispatcher(cfg, logger)

	mon := monitor.New(monitor.ConfigFromConfig(cfg), monitor.Deps{
		Registry:   registry,
		Tracker:    setupBaselineTracker(cfg, logger, appCache),
		Suite:      detection.NewSuite(detection.FromConfig(cfg), logger),
		Aggregator: confidence.New(confidence.FromConfig(cfg), logger),
		Gate:       gate,
		Engine:     engine,
		Dispatcher: dispatcher,
		Store:      alertStorage,
		Logger:     logger,
	})

	marketSync := monitor.NewMarketSync(
		registry,
		wsManager,
		setupBackfill(cfg, logger, appCache),
		monitor.BackfillConfig{
			Enabled:   cfg.BackfillEnabled,
			Lookback:  cfg.BackfillLookback,
			MaxTrades: cfg.BackfillMaxTrades,
		},
		mon,
		logger,
	)

	healthChecker.AddCheck("stream", streamCheck(wsManager))

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Alerts:        alertStorage,
		RateLimit:     gate,
		Recommender:   engine,
		Markets:       registry,
		Stream:        wsManager,
	})

	discoveryCtx, discoveryCancel := context.WithCancel(context.Background())
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:              cfg,
		logger:           logger,
		healthChecker:    healthChecker,
		httpServer:       httpServer,
		cache:            appCache,
		discoveryService: discoveryService,
		wsManager:        wsManager,
		registry:         registry,
		marketSync:       marketSync,
		monitor:          mon,
		dispatcher:       dispatcher,
		storage:          alertStorage,
		discoveryCtx:     discoveryCtx,
		discoveryCancel:  discoveryCancel,
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

func setupCache(cfg *config.Config, logger *zap.Logger) (*cache.RistrettoCache, error) {
	return cache.NewRistrettoCache(cache.ConfigForMarkets(cfg.DiscoveryMarketLimit, logger))
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.AlertStorage, error) {
	switch cfg.StorageMode {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pgStorage, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	case "memory":
		return storage.NewMemoryStorage(logger), nil
	default:
		return storage.NewConsoleStorage(logger), nil
	}
}

func setupDiscoveryService(cfg *config.Config, logger *zap.Logger, appCache cache.Cache, opts *Options) *discovery.Service {
	return discovery.New(discovery.Config{
		Client:       discovery.NewClient(cfg.PolymarketGammaURL, cfg.APITimeout, logger),
		Cache:        cache.WithNamespace(appCache, "market"),
		PollInterval: cfg.DiscoveryPollInterval,
		MarketLimit:  cfg.DiscoveryMarketLimit,
		MinVolume:    cfg.DiscoveryMinVolume,
		Logger:       logger,
		SingleMarket: opts.SingleMarket,
	})
}

func setupWebSocketManager(cfg *config.Config, logger *zap.Logger) *websocket.Manager {
	return websocket.New(websocket.Config{
		URL:                  cfg.PolymarketWSURL,
		DialTimeout:          cfg.WSDialTimeout,
		ReadTimeout:          cfg.WSReadTimeout,
		PingInterval:         cfg.WSPingInterval,
		ReconnectBaseDelay:   cfg.WSReconnectBaseDelay,
		MaxReconnectAttempts: cfg.WSMaxReconnectAttempts,
		JitterPercent:        0.1,
		MessageBufferSize:    cfg.WSMessageBufferSize,
		Logger:               logger,
	})
}

func setupBaselineTracker(cfg *config.Config, logger *zap.Logger, appCache cache.Cache) *baseline.Tracker {
	bcfg := baseline.DefaultConfig()
	bcfg.Window = cfg.BaselineWindow
	bcfg.MaxSamples = cfg.BaselineMaxTrades
	return baseline.New(bcfg, cache.WithNamespace(appCache, "baseline"), logger)
}

func setupBackfill(cfg *config.Config, logger *zap.Logger, appCache cache.Cache) backfill.HistoryFetcher {
	if !cfg.BackfillEnabled {
		return nil
	}
	client := backfill.NewClient(cfg.PolymarketDataAPIURL, cfg.APITimeout, logger)
	return backfill.NewCachedClient(client, cache.WithNamespace(appCache, "history"), cfg.BackfillCacheTTL)
}

func setupNotifiers(cfg *config.Config, logger *zap.Logger) []alerting.Notifier {
	notifiers := []alerting.Notifier{
		alerting.NewConsoleNotifier(cfg.AlertMinSeverity, logger),
	}

	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, alerting.NewDiscordNotifier(
			cfg.DiscordWebhookURL, cfg.DiscordMinSeverity, cfg.NotificationSendTimeout, logger))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, alerting.NewTelegramNotifier(
			cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramAPIURL,
			cfg.TelegramMinSeverity, cfg.NotificationSendTimeout, logger))
	}

	return notifiers
}

func setupDispatcher(cfg *config.Config, logger *zap.Logger) *alerting.Dispatcher {
	notifiers := setupNotifiers(cfg, logger)

	names := make([]string, len(notifiers))
	for i, n := range notifiers {
		names[i] = n.Name()
	}
	logger.Info("notification-channels-configured", zap.Strings("channels", names))

	return alerting.NewDispatcher(alerting.DispatcherConfig{
		BufferSize:    cfg.DispatchBufferSize,
		RatePerMinute: cfg.DispatchRatePerMinute,
		SendTimeout:   cfg.NotificationSendTimeout,
	}, logger, notifiers...)
}

// streamCheck fails readiness while the stream is not connected.
func streamCheck(m *websocket.Manager) healthprobe.Check {
	return func() error {
		if state := m.State(); state != websocket.StateConnected {
			return fmt.Errorf("stream state %s", state)
		}
		return nil
	}
}
