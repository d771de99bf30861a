package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	pipelineStopTimeout = 10 * time.Second
	drainTimeout        = 10 * time.Second
	httpStopTimeout     = 5 * time.Second
)

// Shutdown stops components in dependency order: discovery, the stream,
// the analysis pipeline, notification delivery, storage, then the cache
// and the HTTP server.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	a.shutdownDiscovery()

	a.shutdownWebSocketManager()

	a.shutdownPipeline()

	err := a.shutdownDispatcher()
	if err != nil {
		a.logger.Warn("dispatcher-drain-incomplete", zap.Error(err))
	}

	err = a.shutdownStorage()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.cache.Close()

	err = a.shutdownHTTPServer()
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownDiscovery() {
	a.discoveryCancel()
}

func (a *App) shutdownWebSocketManager() {
	a.wsManager.Disconnect()
}

// shutdownPipeline cancels the analysis loops and waits a bounded time for
// in-flight cycles to finish.
func (a *App) shutdownPipeline() {
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.pipelineWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(pipelineStopTimeout):
		a.logger.Warn("pipeline-stop-timeout", zap.Duration("timeout", pipelineStopTimeout))
	}
}

func (a *App) shutdownDispatcher() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return a.dispatcher.Close(ctx)
}

func (a *App) shutdownStorage() error {
	return a.storage.Close()
}

func (a *App) shutdownHTTPServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), httpStopTimeout)
	defer cancel()
	return a.httpServer.Shutdown(ctx)
}
