package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a cache implementation using Ristretto. Writes are
// applied asynchronously; call Wait when a value must be visible at once.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for Ristretto cache.
type RistrettoConfig struct {
	NumCounters int64 // Number of keys to track frequency (10x max items)
	MaxCost     int64 // Maximum number of items (every entry costs 1)
	BufferItems int64 // Number of keys per Get buffer
	Logger      *zap.Logger
}

// entriesPerMarket is one baseline, one trade history and one market
// metadata entry.
const entriesPerMarket = 3

// ConfigForMarkets sizes the cache for marketLimit tracked markets with
// room for markets that rotated out but are still cached.
func ConfigForMarkets(marketLimit int, logger *zap.Logger) *RistrettoConfig {
	if marketLimit <= 0 {
		marketLimit = 50
	}
	maxCost := int64(marketLimit * entriesPerMarket * 4)
	return &RistrettoConfig{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Logger:      logger,
	}
}

// NewRistrettoCache creates a new Ristretto-backed cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	if cfg.MaxCost <= 0 {
		return nil, fmt.Errorf("max cost must be positive, got %d", cfg.MaxCost)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &RistrettoCache{
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves a value from the cache.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	value, found := r.cache.Get(key)
	if found {
		CacheHitsTotal.Inc()
	} else {
		CacheMissesTotal.Inc()
	}
	return value, found
}

// Set stores a value in the cache with a TTL.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	success := r.cache.SetWithTTL(key, value, 1, ttl)
	if success {
		CacheSetsTotal.Inc()
	} else {
		r.logger.Debug("cache-set-rejected", zap.String("key", key))
	}
	return success
}

// Delete removes a value from the cache.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
	CacheDeletesTotal.Inc()
}

// Clear removes all values from the cache.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared")
}

// Close closes the cache and logs its lifetime hit ratio.
func (r *RistrettoCache) Close() {
	ratio := r.HitRatio()
	r.cache.Close()
	r.logger.Info("cache-closed", zap.Float64("hit-ratio", ratio))
}

// HitRatio returns Ristretto's internal hit ratio.
func (r *RistrettoCache) HitRatio() float64 {
	return r.cache.Metrics.Ratio()
}

// Wait blocks until all pending writes have been applied.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
