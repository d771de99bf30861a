package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// MemoryStorage keeps alerts in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	alerts []*types.Alert
	now    func() time.Time
	logger *zap.Logger
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for the trailing windows.
func (m *MemoryStorage) WithClock(now func() time.Time) *MemoryStorage {
	m.now = now
	return m
}

// SaveAlert appends the alert.
func (m *MemoryStorage) SaveAlert(_ context.Context, alert *types.Alert) error {
	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	m.mu.Unlock()

	AlertsSavedTotal.WithLabelValues(alert.Severity.String()).Inc()
	return nil
}

// GetRecentAlerts returns alerts with a timestamp inside the last hours.
func (m *MemoryStorage) GetRecentAlerts(_ context.Context, hours int) ([]*types.Alert, error) {
	cutoff := m.now().Add(-time.Duration(hours) * time.Hour)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Alert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].Timestamp.After(cutoff) {
			out = append(out, m.alerts[i])
		}
	}
	return out, nil
}

// ShouldSendAlert applies the rate limit first, then the duplicate window.
func (m *MemoryStorage) ShouldSendAlert(
	_ context.Context,
	alert *types.Alert,
	maxPerHour int,
	dupWindow time.Duration,
) (bool, string, error) {
	now := m.now()
	hourAgo := now.Add(-time.Hour)
	dupCutoff := now.Add(-dupWindow)

	m.mu.RLock()
	defer m.mu.RUnlock()

	lastHour := 0
	duplicate := false
	for _, a := range m.alerts {
		if a.Timestamp.After(hourAgo) {
			lastHour++
		}
		if a.MarketID == alert.MarketID && a.AlertType == alert.AlertType && a.Timestamp.After(dupCutoff) {
			duplicate = true
		}
	}

	if lastHour >= maxPerHour {
		return false, ReasonRateLimited, nil
	}
	if duplicate {
		return false, ReasonDuplicate, nil
	}
	return true, "", nil
}

// ClearOldAlerts drops alerts older than maxAge.
func (m *MemoryStorage) ClearOldAlerts(_ context.Context, maxAge time.Duration) (int64, error) {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := int64(len(m.alerts) - len(kept))
	for i := len(kept); i < len(m.alerts); i++ {
		m.alerts[i] = nil
	}
	m.alerts = kept
	m.mu.Unlock()

	if removed > 0 {
		AlertsClearedTotal.Add(float64(removed))
		m.logger.Debug("alerts-cleared",
			zap.Int64("removed", removed),
			zap.Duration("max-age", maxAge))
	}
	return removed, nil
}

// Len returns the number of stored alerts.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.alerts)
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}
