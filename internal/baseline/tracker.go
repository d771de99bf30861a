package baseline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/cache"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// Config holds baseline computation settings.
type Config struct {
	Window        time.Duration // trailing window of trades considered
	MaxSamples    int           // newest trades kept inside the window
	CacheTTL      time.Duration // reuse window for an unchanged trade set
	QualityTarget int           // sample count at which DataQuality reaches 1
}

// DefaultConfig returns the 7 day / 5000 sample configuration.
func DefaultConfig() Config {
	return Config{
		Window:        168 * time.Hour,
		MaxSamples:    5000,
		CacheTTL:      time.Minute,
		QualityTarget: 100,
	}
}

// Tracker computes per-market baselines and caches the latest one.
type Tracker struct {
	cfg    Config
	cache  cache.Cache
	logger *zap.Logger
}

type cachedBaseline struct {
	fingerprint string
	baseline    *types.MarketBaseline
}

// New creates a Tracker. c may be nil to disable caching.
func New(cfg Config, c cache.Cache, logger *zap.Logger) *Tracker {
	if cfg.QualityTarget <= 0 {
		cfg.QualityTarget = 100
	}
	return &Tracker{
		cfg:    cfg,
		cache:  c,
		logger: logger,
	}
}

// Update returns the baseline for trades, reusing the cached result when
// the trade set has not changed.
func (t *Tracker) Update(marketID string, trades []*types.Trade, now time.Time) *types.MarketBaseline {
	fp := fingerprint(trades)

	if t.cache != nil {
		if v, ok := t.cache.Get(marketID); ok {
			if cb, ok := v.(cachedBaseline); ok && cb.fingerprint == fp {
				BaselineCacheHitsTotal.Inc()
				return cb.baseline
			}
		}
	}

	start := time.Now()
	b := Compute(marketID, trades, now, t.cfg)
	BaselineComputeSeconds.Observe(time.Since(start).Seconds())

	if b.IsEmpty() {
		EmptyBaselinesTotal.Inc()
		t.logger.Debug("baseline-empty",
			zap.String("market-id", marketID),
			zap.Int("samples", b.SampleCount))
	}

	if t.cache != nil {
		t.cache.Set(marketID, cachedBaseline{fingerprint: fp, baseline: b}, t.cfg.CacheTTL)
	}

	return b
}

// Get returns the last cached baseline for a market.
func (t *Tracker) Get(marketID string) (*types.MarketBaseline, bool) {
	if t.cache == nil {
		return nil, false
	}
	v, ok := t.cache.Get(marketID)
	if !ok {
		return nil, false
	}
	cb, ok := v.(cachedBaseline)
	if !ok {
		return nil, false
	}
	return cb.baseline, true
}

// Compute builds a baseline from trades inside cfg.Window ending at now.
// Fewer than two usable trades yield an empty baseline.
func Compute(marketID string, trades []*types.Trade, now time.Time, cfg Config) *types.MarketBaseline {
	usable := windowed(trades, now, cfg.Window, cfg.MaxSamples)

	b := &types.MarketBaseline{
		MarketID:    marketID,
		SampleCount: len(usable),
		UpdatedAt:   now,
		Type:        types.BaselineEmpty,
	}
	if len(usable) < 2 {
		return b
	}

	first := usable[0].Timestamp.Truncate(time.Hour)
	last := usable[len(usable)-1].Timestamp.Truncate(time.Hour)
	buckets := int(last.Sub(first)/time.Hour) + 1

	volumes := make([]float64, buckets)
	prices := make([]float64, 0, len(usable))
	for _, tr := range usable {
		idx := int(tr.Timestamp.Truncate(time.Hour).Sub(first) / time.Hour)
		volumes[idx] += tr.VolumeUSD()
		prices = append(prices, tr.Price)
	}

	b.HourBuckets = buckets
	b.AvgHourlyVolume, b.StdHourlyVolume = meanStd(volumes)
	b.AvgTradesPerHour = float64(len(usable)) / float64(buckets)
	b.AvgPrice, b.PriceVolatility = meanStd(prices)
	b.DataQuality = math.Min(1, float64(len(usable))/float64(cfg.QualityTarget))
	b.Type = baselineType(usable)

	return b
}

// windowed returns valid trades with timestamps in [now-window, now],
// oldest first, keeping at most maxSamples of the newest.
func windowed(trades []*types.Trade, now time.Time, window time.Duration, maxSamples int) []*types.Trade {
	cutoff := now.Add(-window)
	out := make([]*types.Trade, 0, len(trades))
	for _, tr := range trades {
		if !tr.Valid() {
			continue
		}
		if window > 0 && tr.Timestamp.Before(cutoff) {
			continue
		}
		if tr.Timestamp.After(now) {
			continue
		}
		out = append(out, tr)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if maxSamples > 0 && len(out) > maxSamples {
		out = out[len(out)-maxSamples:]
	}
	return out
}

func baselineType(trades []*types.Trade) types.BaselineType {
	var first, last time.Time
	historical := 0
	for _, tr := range trades {
		if tr.Source != types.SourceHistorical {
			continue
		}
		if historical == 0 || tr.Timestamp.Before(first) {
			first = tr.Timestamp
		}
		if historical == 0 || tr.Timestamp.After(last) {
			last = tr.Timestamp
		}
		historical++
	}

	if historical >= 2 && last.Sub(first) >= 24*time.Hour {
		return types.BaselineHistorical
	}
	return types.BaselineRecentTrades
}

// meanStd returns the mean and the sample standard deviation (n-1).
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}

func fingerprint(trades []*types.Trade) string {
	if len(trades) == 0 {
		return "0"
	}
	var volume float64
	var newest int64
	for _, tr := range trades {
		volume += tr.Price * tr.Size
		if ts := tr.Timestamp.UnixNano(); ts > newest {
			newest = ts
		}
	}
	return fmt.Sprintf("%d:%d:%.6f", len(trades), newest, volume)
}
