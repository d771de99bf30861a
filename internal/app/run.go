package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown. It returns an
// error when the trade stream gives up reconnecting.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Int("market-limit", a.cfg.DiscoveryMarketLimit),
		zap.Duration("analysis-interval", a.cfg.AnalysisInterval),
		zap.Stringer("min-severity", a.cfg.AlertMinSeverity),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		_ = a.Shutdown()
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.PolymarketWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.dispatcher.Start()

	err := a.wsManager.Start()
	if err != nil {
		return fmt.Errorf("start websocket manager: %w", err)
	}

	a.pipelineWg.Add(1)
	go a.runRegistry()

	a.pipelineWg.Add(1)
	go a.runMarketSync()

	a.wg.Add(1)
	go a.runDiscoveryService()

	a.pipelineWg.Add(1)
	go a.runMonitor()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runDiscoveryService() {
	defer a.wg.Done()
	err := a.discoveryService.Run(a.discoveryCtx)
	if err != nil && !errors.Is(err, a.discoveryCtx.Err()) {
		a.logger.Error("discovery-service-error", zap.Error(err))
	}
}

func (a *App) runRegistry() {
	defer a.pipelineWg.Done()
	err := a.registry.Run(a.ctx, a.wsManager.Trades())
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("trade-registry-error", zap.Error(err))
	}
}

func (a *App) runMarketSync() {
	defer a.pipelineWg.Done()
	err := a.marketSync.Run(a.ctx, a.discoveryService.Updates())
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("market-sync-error", zap.Error(err))
	}
}

func (a *App) runMonitor() {
	defer a.pipelineWg.Done()
	err := a.monitor.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("monitor-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var fatal error
	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	case <-a.wsManager.Done():
		fatal = a.wsManager.Err()
		a.logger.Error("trade-stream-lost", zap.Error(fatal))
	}

	err := a.Shutdown()
	if fatal != nil {
		return fmt.Errorf("trade stream: %w", fatal)
	}
	return err
}
