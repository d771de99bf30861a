package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/internal/testutil"
	"github.com/mselser95/polymarket-insider/pkg/healthprobe"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/mselser95/polymarket-insider/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedRecommender struct{}

func (fixedRecommender) ForAlert(a *types.Alert) types.Recommendation {
	return types.Recommendation{Action: types.ActionMonitor, Price: a.CurrentPrice, Text: "Monitor " + a.MarketSlug}
}

type fixedRateLimit struct{ active bool }

func (f fixedRateLimit) RateLimitActive(context.Context) (bool, error) { return f.active, nil }

type failingAlerts struct{}

func (failingAlerts) GetRecentAlerts(context.Context, int) ([]*types.Alert, error) {
	return nil, errors.New("connection refused")
}

type fixedStream struct{ stats websocket.Stats }

func (f fixedStream) Stats() websocket.Stats { return f.stats }

func seededStore(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage(zap.NewNop()).WithClock(func() time.Time { return baseTime })
	// Saved oldest first, as the pipeline would.
	alerts := []*types.Alert{
		{ID: "a3", MarketID: "0xc", MarketSlug: "c", AlertType: types.AlertVolumeSpike, Severity: types.SeverityHigh, CurrentPrice: 0.5, Timestamp: baseTime.Add(-30 * time.Hour)},
		{ID: "a2", MarketID: "0xb", MarketSlug: "b", AlertType: types.AlertVolumeSpike, Severity: types.SeverityMedium, CurrentPrice: 0.3, Timestamp: baseTime.Add(-3 * time.Hour)},
		{ID: "a1", MarketID: "0xa", MarketSlug: "a", AlertType: types.AlertWhaleActivity, Severity: types.SeverityCritical, CurrentPrice: 0.7, Timestamp: baseTime.Add(-10 * time.Minute)},
	}
	for _, a := range alerts {
		require.NoError(t, store.SaveAlert(context.Background(), a))
	}
	return store
}

func newTestServer(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HealthChecker == nil {
		cfg.HealthChecker = healthprobe.New()
	}
	cfg.Port = "0"
	return New(cfg).Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNew(t *testing.T) {
	server := New(&Config{Port: "8080", Logger: zap.NewNop(), HealthChecker: healthprobe.New()})

	if server.server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", server.server.Addr)
	}
	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", server.server.ReadTimeout)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &Config{})

	tests := []struct {
		path string
		want int
	}{
		{path: "/health", want: http.StatusOK},
		{path: "/ready", want: http.StatusServiceUnavailable},
		{path: "/metrics", want: http.StatusOK},
		{path: "/api/alerts", want: http.StatusNotFound},
		{path: "/api/stream", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := get(t, h, tt.path); w.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestAlertsEndpoint(t *testing.T) {
	h := newTestServer(t, &Config{Alerts: seededStore(t), Recommender: fixedRecommender{}})

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
		wantHours int
	}{
		{name: "default_24h", path: "/api/alerts", wantCode: http.StatusOK, wantCount: 2, wantHours: 24},
		{name: "one_hour", path: "/api/alerts?hours=1", wantCode: http.StatusOK, wantCount: 1, wantHours: 1},
		{name: "two_days", path: "/api/alerts?hours=48", wantCode: http.StatusOK, wantCount: 3, wantHours: 48},
		{name: "not_a_number", path: "/api/alerts?hours=abc", wantCode: http.StatusBadRequest},
		{name: "zero", path: "/api/alerts?hours=0", wantCode: http.StatusBadRequest},
		{name: "too_large", path: "/api/alerts?hours=500", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.path)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				Hours  int `json:"hours"`
				Count  int `json:"count"`
				Alerts []struct {
					Alert struct {
						ID       string `json:"id"`
						Severity string `json:"severity"`
					} `json:"alert"`
					Recommendation types.Recommendation `json:"recommendation"`
				} `json:"alerts"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantHours, resp.Hours)
			assert.Equal(t, tt.wantCount, resp.Count)
			require.Len(t, resp.Alerts, tt.wantCount)

			first := resp.Alerts[0]
			assert.Equal(t, "a1", first.Alert.ID, "newest alert first")
			assert.Equal(t, "CRITICAL", first.Alert.Severity)
			assert.Equal(t, "Monitor a", first.Recommendation.Text)
		})
	}
}

func TestAlertsEndpoint_StorageError(t *testing.T) {
	h := newTestServer(t, &Config{Alerts: failingAlerts{}})

	w := get(t, h, "/api/alerts")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestAlertStatsEndpoint(t *testing.T) {
	h := newTestServer(t, &Config{Alerts: seededStore(t), RateLimit: fixedRateLimit{active: true}})

	w := get(t, h, "/api/alerts/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp AlertStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total24h)
	assert.Equal(t, map[string]int{"CRITICAL": 1, "MEDIUM": 1}, resp.BySeverity)
	assert.Equal(t, 1, resp.ByType[string(types.AlertWhaleActivity)])
	assert.True(t, resp.RateLimitActive)
}

func TestMarketsEndpoint(t *testing.T) {
	registry := markets.NewRegistry(100, zap.NewNop())
	registry.Add(testutil.CreateTestMarket("0xa", "a-slug", "A?"))
	registry.Add(testutil.CreateTestMarket("0xb", "b-slug", "B?"))
	registry.Record(testutil.NewTrade("0xb", types.SideBuy, 0.61, 10, "0xw", baseTime))

	h := newTestServer(t, &Config{Markets: registry})

	w := get(t, h, "/api/markets")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []MarketView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "0xb", resp[0].MarketID, "busiest market first")
	assert.Equal(t, 1, resp[0].TradeCount)
	assert.InDelta(t, 0.61, resp[0].LastPrice, 1e-9)
	assert.Equal(t, "a-slug", resp[1].Slug)
}

func TestStreamEndpoint(t *testing.T) {
	stats := websocket.Stats{State: "CONNECTED", Connected: true, Subscriptions: 4, TradesProcessed: 12}
	h := newTestServer(t, &Config{Stream: fixedStream{stats: stats}})

	w := get(t, h, "/api/stream")
	require.Equal(t, http.StatusOK, w.Code)

	var resp websocket.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stats, resp)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}
