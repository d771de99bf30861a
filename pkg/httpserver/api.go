package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/mselser95/polymarket-insider/pkg/websocket"
	"go.uber.org/zap"
)

const (
	defaultAlertHours = 24
	maxAlertHours     = 168
)

// AlertSource reads stored alerts.
type AlertSource interface {
	GetRecentAlerts(ctx context.Context, hours int) ([]*types.Alert, error)
}

// RateLimitReporter reports whether the hourly alert cap is reached.
type RateLimitReporter interface {
	RateLimitActive(ctx context.Context) (bool, error)
}

// Recommender derives the recommendation for a stored alert.
type Recommender interface {
	ForAlert(a *types.Alert) types.Recommendation
}

// MarketLister lists the tracked markets.
type MarketLister interface {
	Snapshot() []markets.Snapshot
}

// StreamReporter exposes stream connection counters.
type StreamReporter interface {
	Stats() websocket.Stats
}

// AlertView is an alert with its recommendation.
type AlertView struct {
	Alert          *types.Alert         `json:"alert"`
	Recommendation types.Recommendation `json:"recommendation"`
}

// AlertsResponse is the body of GET /api/alerts.
type AlertsResponse struct {
	Hours  int         `json:"hours"`
	Count  int         `json:"count"`
	Alerts []AlertView `json:"alerts"`
}

// AlertStatsResponse is the body of GET /api/alerts/stats.
type AlertStatsResponse struct {
	Total24h        int            `json:"total_24h"`
	BySeverity      map[string]int `json:"by_severity"`
	ByType          map[string]int `json:"by_type"`
	RateLimitActive bool           `json:"rate_limit_active"`
}

// MarketView is one tracked market.
type MarketView struct {
	MarketID    string    `json:"market_id"`
	Slug        string    `json:"slug"`
	Question    string    `json:"question"`
	Volume24hr  float64   `json:"volume_24hr"`
	TradeCount  int       `json:"trade_count"`
	LastPrice   float64   `json:"last_price"`
	LastTradeAt time.Time `json:"last_trade_at,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type apiHandler struct {
	alerts      AlertSource
	rateLimit   RateLimitReporter
	recommender Recommender
	markets     MarketLister
	stream      StreamReporter
	logger      *zap.Logger
}

func (h *apiHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	hours := defaultAlertHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAlertHours {
			writeError(w, http.StatusBadRequest, "hours must be an integer between 1 and 168")
			return
		}
		hours = n
	}

	alerts, err := h.alerts.GetRecentAlerts(r.Context(), hours)
	if err != nil {
		h.logger.Error("get-recent-alerts-failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		view := AlertView{Alert: a}
		if h.recommender != nil {
			view.Recommendation = h.recommender.ForAlert(a)
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, AlertsResponse{
		Hours:  hours,
		Count:  len(views),
		Alerts: views,
	})
}

func (h *apiHandler) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.GetRecentAlerts(r.Context(), defaultAlertHours)
	if err != nil {
		h.logger.Error("get-recent-alerts-failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	resp := AlertStatsResponse{
		Total24h:   len(alerts),
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, a := range alerts {
		resp.BySeverity[a.Severity.String()]++
		resp.ByType[string(a.AlertType)]++
	}

	if h.rateLimit != nil {
		active, err := h.rateLimit.RateLimitActive(r.Context())
		if err != nil {
			h.logger.Warn("rate-limit-check-failed", zap.Error(err))
		}
		resp.RateLimitActive = active
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) handleMarkets(w http.ResponseWriter, r *http.Request) {
	snapshots := h.markets.Snapshot()
	views := make([]MarketView, 0, len(snapshots))
	for _, s := range snapshots {
		views = append(views, MarketView{
			MarketID:    s.Market.Key(),
			Slug:        s.Market.Slug,
			Question:    s.Market.Question,
			Volume24hr:  s.Market.Volume24hr,
			TradeCount:  s.TradeCount,
			LastPrice:   s.LastPrice,
			LastTradeAt: s.LastTradeAt,
			AddedAt:     s.AddedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *apiHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stream.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
