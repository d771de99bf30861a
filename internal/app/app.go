package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-insider/internal/alerting"
	"github.com/mselser95/polymarket-insider/internal/discovery"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/internal/monitor"
	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/cache"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/healthprobe"
	"github.com/mselser95/polymarket-insider/pkg/httpserver"
	"github.com/mselser95/polymarket-insider/pkg/websocket"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker    *healthprobe.HealthChecker
	httpServer       *httpserver.Server
	cache            cache.Cache
	discoveryService *discovery.Service
	wsManager        *websocket.Manager
	registry         *markets.Registry
	marketSync       *monitor.MarketSync
	monitor          *monitor.Monitor
	dispatcher       *alerting.Dispatcher
	storage          storage.AlertStorage

	// Discovery stops first on shutdown, the analysis side last.
	discoveryCtx    context.Context
	discoveryCancel context.CancelFunc
	ctx             context.Context
	cancel          context.CancelFunc

	wg         sync.WaitGroup
	pipelineWg sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // slug of a single market to track, for debugging
}
