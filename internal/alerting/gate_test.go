package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var gateNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

func testGateConfig() GateConfig {
	return GateConfig{
		MinSeverity:     types.SeverityMedium,
		MaxPerHour:      10,
		DuplicateWindow: 10 * time.Minute,
	}
}

func candidate(id, market string, alertType types.AlertType, sev types.Severity) *types.Alert {
	return &types.Alert{
		ID:        id,
		MarketID:  market,
		AlertType: alertType,
		Severity:  sev,
		Timestamp: gateNow,
	}
}

func newTestGate(t *testing.T) (*Gate, *storage.MemoryStorage) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := storage.NewMemoryStorage(logger).WithClock(func() time.Time { return gateNow })
	return NewGate(testGateConfig(), store, logger), store
}

func TestGate_DeduplicatesSameMarketAndType(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	ok1, _ := gate.Admit(ctx, candidate("a1", "m1", types.AlertWhaleActivity, types.SeverityHigh))
	ok2, reason := gate.Admit(ctx, candidate("a2", "m1", types.AlertWhaleActivity, types.SeverityHigh))

	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.Equal(t, storage.ReasonDuplicate, reason)
	assert.Equal(t, 1, store.Len())
}

func TestGate_RateLimitBoundary(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	admitted := 0
	var lastReason string
	for i := 0; i < 11; i++ {
		ok, reason := gate.Admit(ctx, candidate(fmt.Sprintf("a%d", i), fmt.Sprintf("m%d", i),
			types.AlertVolumeSpike, types.SeverityHigh))
		if ok {
			admitted++
		}
		lastReason = reason
	}

	assert.Equal(t, 10, admitted)
	assert.Equal(t, storage.ReasonRateLimited, lastReason)
	assert.Equal(t, 10, store.Len())

	active, err := gate.RateLimitActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestGate_SeverityFilter(t *testing.T) {
	tests := []struct {
		severity types.Severity
		want     bool
	}{
		{types.SeverityLow, false},
		{types.SeverityMedium, true},
		{types.SeverityHigh, true},
		{types.SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.severity.String(), func(t *testing.T) {
			gate, store := newTestGate(t)

			ok, reason := gate.Admit(context.Background(), candidate("a", "m", types.AlertPriceMovement, tt.severity))
			if ok != tt.want {
				t.Errorf("Admit(%s) = %v, want %v", tt.severity, ok, tt.want)
			}
			if !tt.want {
				assert.Equal(t, ReasonBelowSeverity, reason)
				assert.Equal(t, 0, store.Len())
			}
		})
	}
}

func TestGate_ConcurrentDuplicates(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := gate.Admit(ctx, candidate(fmt.Sprintf("a%d", i), "m1", types.AlertCoordinatedTrading, types.SeverityCritical))
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("expected exactly 1 admitted alert, got %d", admitted)
	}
	assert.Equal(t, 1, store.Len())
}

type failingStore struct {
	*storage.MemoryStorage
	checkErr error
	saves    int
}

func (f *failingStore) ShouldSendAlert(context.Context, *types.Alert, int, time.Duration) (bool, string, error) {
	return false, "", f.checkErr
}

func (f *failingStore) SaveAlert(ctx context.Context, a *types.Alert) error {
	f.saves++
	return f.MemoryStorage.SaveAlert(ctx, a)
}

func TestGate_FailsClosedOnStorageError(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := &failingStore{
		MemoryStorage: storage.NewMemoryStorage(logger),
		checkErr:      errors.New("connection reset"),
	}
	gate := NewGate(testGateConfig(), store, logger)

	ok, reason := gate.Admit(context.Background(), candidate("a", "m", types.AlertWhaleActivity, types.SeverityCritical))

	assert.False(t, ok)
	assert.Equal(t, ReasonStorageError, reason)
	assert.Equal(t, 0, store.saves)
}
