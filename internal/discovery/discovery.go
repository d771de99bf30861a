package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/cache"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

const marketCacheTTL = 24 * time.Hour

// Update is the change in the monitored market set between two polls.
type Update struct {
	Added   []*types.Market
	Removed []*types.Market
}

// Empty reports whether the update carries no changes.
func (u Update) Empty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0
}

// Config holds discovery service configuration.
type Config struct {
	Client       *Client
	Cache        cache.Cache
	PollInterval time.Duration
	MarketLimit  int
	MinVolume    float64
	Logger       *zap.Logger
	SingleMarket string // slug; when set only this market is tracked
}

// Service keeps the monitored market set in line with the Gamma API.
type Service struct {
	client       *Client
	cache        cache.Cache
	pollInterval time.Duration
	marketLimit  int
	minVolume    float64
	singleMarket string
	logger       *zap.Logger

	mu      sync.RWMutex
	tracked map[string]*types.Market
	updates chan Update
}

// New creates a new discovery service.
func New(cfg Config) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	return &Service{
		client:       cfg.Client,
		cache:        cfg.Cache,
		pollInterval: cfg.PollInterval,
		marketLimit:  cfg.MarketLimit,
		minVolume:    cfg.MinVolume,
		singleMarket: cfg.SingleMarket,
		logger:       cfg.Logger,
		tracked:      make(map[string]*types.Market),
		updates:      make(chan Update, 16),
	}
}

// Run polls until ctx is cancelled. The updates channel is closed on return.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.updates)

	s.logger.Info("discovery-service-starting",
		zap.Duration("poll-interval", s.pollInterval),
		zap.Int("market-limit", s.marketLimit),
		zap.Float64("min-volume", s.minVolume),
		zap.String("single-market", s.singleMarket))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		err := s.pollAndPublish(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Error("poll-failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("discovery-service-stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) pollAndPublish(ctx context.Context) error {
	update, err := s.Poll(ctx)
	if err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}

	select {
	case s.updates <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll fetches the current market set and applies the diff to the tracked
// set. A failed fetch leaves the tracked set untouched.
func (s *Service) Poll(ctx context.Context) (Update, error) {
	start := time.Now()
	defer func() {
		PollDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var selected []*types.Market
	if s.singleMarket != "" {
		m, err := s.client.FetchMarketBySlug(ctx, s.singleMarket)
		if err != nil {
			PollErrorsTotal.Inc()
			return Update{}, fmt.Errorf("fetch market by slug %q: %w", s.singleMarket, err)
		}
		if !Monitorable(m) {
			return Update{}, fmt.Errorf("market %q missing YES or NO token", s.singleMarket)
		}
		selected = []*types.Market{m}
	} else {
		// Over-fetch so the volume filter still leaves a full set.
		fetched, err := s.client.FetchActiveMarkets(ctx, 2*s.marketLimit, 0)
		if err != nil {
			PollErrorsTotal.Inc()
			return Update{}, fmt.Errorf("fetch active markets: %w", err)
		}
		MarketsFetchedTotal.Add(float64(len(fetched)))
		selected = Select(fetched, s.marketLimit, s.minVolume)
	}

	update := s.apply(selected)

	for _, m := range update.Added {
		s.cacheMarket(m)
		MarketsAddedTotal.Inc()
		s.logger.Info("market-added",
			zap.String("market-id", m.Key()),
			zap.String("slug", m.Slug),
			zap.Float64("volume-24h", m.Volume24hr))
	}
	for _, m := range update.Removed {
		MarketsRemovedTotal.Inc()
		s.logger.Info("market-removed",
			zap.String("market-id", m.Key()),
			zap.String("slug", m.Slug))
	}

	s.logger.Debug("poll-complete",
		zap.Int("selected", len(selected)),
		zap.Int("added", len(update.Added)),
		zap.Int("removed", len(update.Removed)),
		zap.Duration("duration", time.Since(start)))

	return update, nil
}

func (s *Service) apply(selected []*types.Market) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	var update Update
	next := make(map[string]*types.Market, len(selected))
	for _, m := range selected {
		key := m.Key()
		next[key] = m
		if _, ok := s.tracked[key]; !ok {
			update.Added = append(update.Added, m)
		}
	}

	removedKeys := make([]string, 0)
	for key := range s.tracked {
		if _, ok := next[key]; !ok {
			removedKeys = append(removedKeys, key)
		}
	}
	sort.Strings(removedKeys)
	for _, key := range removedKeys {
		update.Removed = append(update.Removed, s.tracked[key])
	}

	s.tracked = next
	return update
}

// Select keeps monitorable markets with at least minVolume 24h volume,
// in input order, up to limit (0 means no cap).
func Select(markets []*types.Market, limit int, minVolume float64) []*types.Market {
	out := make([]*types.Market, 0, len(markets))
	seen := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		if limit > 0 && len(out) >= limit {
			break
		}
		if m.Closed || m.Volume24hr < minVolume || !Monitorable(m) {
			continue
		}
		if _, dup := seen[m.Key()]; dup {
			continue
		}
		seen[m.Key()] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Monitorable reports whether a market has both YES and NO tokens.
func Monitorable(m *types.Market) bool {
	return m != nil && m.GetTokenByOutcome(types.OutcomeYes) != nil && m.GetTokenByOutcome(types.OutcomeNo) != nil
}

// Updates returns the channel of market set diffs.
func (s *Service) Updates() <-chan Update {
	return s.updates
}

// Markets returns the tracked markets sorted by 24h volume, highest first.
func (s *Service) Markets() []*types.Market {
	s.mu.RLock()
	out := make([]*types.Market, 0, len(s.tracked))
	for _, m := range s.tracked {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume24hr != out[j].Volume24hr {
			return out[i].Volume24hr > out[j].Volume24hr
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func (s *Service) cacheMarket(m *types.Market) {
	if s.cache == nil {
		return
	}
	if !s.cache.Set(m.Key(), m, marketCacheTTL) {
		s.logger.Warn("failed-to-cache-market", zap.String("market-id", m.Key()))
	}
}

// GetMarket returns a market seen by discovery, including markets that have
// since dropped out of the tracked set while still cached.
func (s *Service) GetMarket(key string) *types.Market {
	s.mu.RLock()
	m, ok := s.tracked[key]
	s.mu.RUnlock()
	if ok {
		return m
	}

	if s.cache == nil {
		return nil
	}
	value, found := s.cache.Get(key)
	if !found {
		return nil
	}
	market, ok := value.(*types.Market)
	if !ok {
		s.logger.Warn("invalid-market-type-in-cache", zap.String("market-id", key))
		return nil
	}
	return market
}
