package backfill

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/cache"
	"github.com/mselser95/polymarket-insider/pkg/types"
)

// HistoryFetcher is implemented by Client and CachedClient.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, market string, lookback time.Duration, maxTrades int) ([]*types.Trade, error)
}

// CachedClient memoizes FetchHistory per market so a market that drops out
// of discovery and comes back is not refetched immediately.
type CachedClient struct {
	client HistoryFetcher
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedClient wraps client. A nil cache disables caching.
func NewCachedClient(client HistoryFetcher, c cache.Cache, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedClient{
		client: client,
		cache:  c,
		ttl:    ttl,
	}
}

// FetchHistory returns cached history when present.
func (c *CachedClient) FetchHistory(ctx context.Context, market string, lookback time.Duration, maxTrades int) ([]*types.Trade, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(market); ok {
			if trades, ok := cached.([]*types.Trade); ok {
				CacheHitsTotal.Inc()
				return trades, nil
			}
		}
		CacheMissesTotal.Inc()
	}

	trades, err := c.client.FetchHistory(ctx, market, lookback, maxTrades)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(market, trades, c.ttl)
	}
	return trades, nil
}
