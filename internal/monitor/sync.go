package monitor

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-insider/internal/backfill"
	"github.com/mselser95/polymarket-insider/internal/discovery"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Subscriber is the stream side of a market set change.
type Subscriber interface {
	AddMarkets(assetIDs []string) error
	RemoveMarkets(assetIDs []string)
}

// BackfillConfig bounds the history fetched for a newly added market.
type BackfillConfig struct {
	Enabled   bool
	Lookback  time.Duration
	MaxTrades int
}

// MarketSync applies discovery updates to the registry and the stream
// subscription, seeding new markets with historical trades.
type MarketSync struct {
	registry   *markets.Registry
	subscriber Subscriber
	history    backfill.HistoryFetcher
	backfill   BackfillConfig
	monitor    *Monitor
	logger     *zap.Logger
}

// NewMarketSync creates a MarketSync. history may be nil when backfill is off.
func NewMarketSync(
	registry *markets.Registry,
	subscriber Subscriber,
	history backfill.HistoryFetcher,
	cfg BackfillConfig,
	monitor *Monitor,
	logger *zap.Logger,
) *MarketSync {
	return &MarketSync{
		registry:   registry,
		subscriber: subscriber,
		history:    history,
		backfill:   cfg,
		monitor:    monitor,
		logger:     logger,
	}
}

// Run consumes updates until the channel closes or ctx is cancelled.
func (s *MarketSync) Run(ctx context.Context, updates <-chan discovery.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.Apply(ctx, update)
		}
	}
}

// Apply removes dropped markets first, then adds and backfills new ones.
// A market whose subscription or backfill fails stays tracked without
// history rather than blocking the rest of the update.
func (s *MarketSync) Apply(ctx context.Context, update discovery.Update) {
	if len(update.Removed) > 0 {
		var tokens []string
		for _, m := range update.Removed {
			if _, ok := s.registry.Remove(m.Key()); !ok {
				continue
			}
			tokens = append(tokens, m.TokenIDs()...)
			if s.monitor != nil {
				s.monitor.forget(m.Key())
			}
		}
		if len(tokens) > 0 && s.subscriber != nil {
			s.subscriber.RemoveMarkets(tokens)
		}
	}

	var added []*types.Market
	var tokens []string
	for _, m := range update.Added {
		if !s.registry.Add(m) {
			continue
		}
		added = append(added, m)
		tokens = append(tokens, m.TokenIDs()...)
	}
	if len(added) == 0 {
		return
	}

	if s.subscriber != nil {
		err := s.subscriber.AddMarkets(tokens)
		if err != nil {
			s.logger.Error("subscribe-failed",
				zap.Int("markets", len(added)),
				zap.Error(err))
		}
	}

	for _, m := range added {
		if ctx.Err() != nil {
			return
		}
		s.seed(ctx, m)
	}
}

func (s *MarketSync) seed(ctx context.Context, m *types.Market) {
	if !s.backfill.Enabled || s.history == nil {
		return
	}

	trades, err := s.history.FetchHistory(ctx, m.Key(), s.backfill.Lookback, s.backfill.MaxTrades)
	if err != nil {
		BackfillFailuresTotal.Inc()
		s.logger.Warn("backfill-failed",
			zap.String("market-id", m.Key()),
			zap.String("slug", m.Slug),
			zap.Error(err))
		return
	}

	seeded := s.registry.Seed(m.Key(), trades)
	s.logger.Info("market-backfilled",
		zap.String("market-id", m.Key()),
		zap.String("slug", m.Slug),
		zap.Int("fetched", len(trades)),
		zap.Int("seeded", seeded))
}
