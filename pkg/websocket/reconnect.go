package websocket

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrGivenUp is returned once MaxAttempts consecutive reconnects have failed.
var ErrGivenUp = errors.New("websocket reconnect attempts exhausted")

// ReconnectConfig holds the configuration for exponential backoff reconnection.
type ReconnectConfig struct {
	BaseDelay     time.Duration
	MaxExponent   int     // delay stops doubling after this many doublings
	MaxAttempts   int     // consecutive failures before giving up
	JitterPercent float64 // 0.2 = 20%
}

// ReconnectManager handles capped exponential backoff reconnection.
type ReconnectManager struct {
	config   ReconnectConfig
	logger   *zap.Logger
	attempts int
	mu       sync.Mutex
}

// NewReconnectManager creates a new reconnection manager with the specified config.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	if cfg.MaxExponent <= 0 {
		cfg.MaxExponent = 4
	}
	return &ReconnectManager{
		config: cfg,
		logger: logger,
	}
}

// Delay returns the backoff before the given 1-based attempt:
// base * 2^min(attempt-1, MaxExponent), without jitter.
func (rm *ReconnectManager) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := attempt - 1
	if exp > rm.config.MaxExponent {
		exp = rm.config.MaxExponent
	}
	return rm.config.BaseDelay * time.Duration(1<<exp)
}

// Reconnect calls connectFunc until it succeeds, the context is cancelled
// or MaxAttempts consecutive attempts have failed.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		attempt, exhausted := rm.nextAttempt()
		if exhausted {
			rm.logger.Error("reconnect-attempts-exhausted",
				zap.Int("max-attempts", rm.config.MaxAttempts))
			return fmt.Errorf("%w after %d attempts", ErrGivenUp, rm.config.MaxAttempts)
		}

		backoff := rm.withJitter(rm.Delay(attempt))

		rm.logger.Info("attempting-reconnection",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff))

		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := connectFunc(ctx)
		if err == nil {
			rm.Reset()
			rm.logger.Info("reconnection-successful", zap.Int("attempt", attempt))
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		rm.logger.Warn("reconnection-failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		ReconnectFailuresTotal.Inc()
	}
}

// Reset sets the attempt counter back to zero.
func (rm *ReconnectManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.attempts = 0
}

// Attempts returns the number of attempts since the last successful connect.
func (rm *ReconnectManager) Attempts() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.attempts
}

func (rm *ReconnectManager) nextAttempt() (int, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.config.MaxAttempts > 0 && rm.attempts >= rm.config.MaxAttempts {
		return rm.attempts, true
	}
	rm.attempts++
	return rm.attempts, false
}

// withJitter applies backoff * (1.0 + random(0, jitterPercent)).
func (rm *ReconnectManager) withJitter(d time.Duration) time.Duration {
	if rm.config.JitterPercent <= 0 {
		return d
	}
	jitter := rand.Float64() * rm.config.JitterPercent //nolint:gosec // jitter does not need crypto randomness
	return time.Duration(float64(d) * (1.0 + jitter))
}
