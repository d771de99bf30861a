package markets

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// DefaultMaxTrades is the per-market trade buffer cap.
const DefaultMaxTrades = 5000

type tokenRef struct {
	marketKey string
	outcome   string
}

type entry struct {
	market      *types.Market
	trades      []*types.Trade
	seen        map[string]struct{}
	lastTradeAt time.Time
	lastPriceAt time.Time
	lastPrice   float64
	addedAt     time.Time
}

// Snapshot is a read-only view of one tracked market.
type Snapshot struct {
	Market      *types.Market `json:"market"`
	TradeCount  int           `json:"trade_count"`
	LastPrice   float64       `json:"last_price"`
	LastTradeAt time.Time     `json:"last_trade_at"`
	AddedAt     time.Time     `json:"added_at"`
}

// Registry holds the tracked markets and a bounded trade buffer for each.
// Markets are keyed by condition id (Market.Key).
type Registry struct {
	maxTrades int
	logger    *zap.Logger

	mu      sync.RWMutex
	markets map[string]*entry
	tokens  map[string]tokenRef
}

// NewRegistry creates an empty registry.
func NewRegistry(maxTrades int, logger *zap.Logger) *Registry {
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTrades
	}
	return &Registry{
		maxTrades: maxTrades,
		logger:    logger,
		markets:   make(map[string]*entry),
		tokens:    make(map[string]tokenRef),
	}
}

// Add starts tracking m. It returns false if the market is already tracked.
func (r *Registry) Add(m *types.Market) bool {
	key := m.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.markets[key]; ok {
		existing.market = m
		return false
	}

	r.markets[key] = &entry{
		market:    m,
		seen:      make(map[string]struct{}),
		lastPrice: m.LastTradePrice,
		addedAt:   time.Now(),
	}
	for _, t := range m.Tokens {
		r.tokens[t.TokenID] = tokenRef{marketKey: key, outcome: t.Outcome}
	}

	TrackedMarkets.Set(float64(len(r.markets)))
	return true
}

// Remove stops tracking the market and drops its buffer.
func (r *Registry) Remove(key string) (*types.Market, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.markets[key]
	if !ok {
		return nil, false
	}
	for _, t := range e.market.Tokens {
		delete(r.tokens, t.TokenID)
	}
	delete(r.markets, key)

	TrackedMarkets.Set(float64(len(r.markets)))
	return e.market, true
}

// Record appends a trade to its market's buffer. Trades for untracked
// markets and duplicates are ignored.
func (r *Registry) Record(tr *types.Trade) bool {
	if !tr.Valid() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.resolve(tr)
	if !ok {
		TradesIgnoredTotal.WithLabelValues("untracked").Inc()
		return false
	}
	if tr.MarketID != key {
		cp := *tr
		cp.MarketID = key
		tr = &cp
	}

	if !r.insert(r.markets[key], tr) {
		TradesIgnoredTotal.WithLabelValues("duplicate").Inc()
		return false
	}
	TradesRecordedTotal.WithLabelValues(string(tr.Source)).Inc()
	return true
}

// Seed adds historical trades to a tracked market and returns how many
// were new.
func (r *Registry) Seed(key string, trades []*types.Trade) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.markets[key]
	if !ok {
		return 0
	}

	added := 0
	for _, tr := range trades {
		if !tr.Valid() {
			continue
		}
		if tr.MarketID != key {
			cp := *tr
			cp.MarketID = key
			tr = &cp
		}
		if r.insert(e, tr) {
			added++
		}
	}
	TradesRecordedTotal.WithLabelValues(string(types.SourceHistorical)).Add(float64(added))
	return added
}

// resolve finds the market key for a trade by market id, falling back to
// the token id.
func (r *Registry) resolve(tr *types.Trade) (string, bool) {
	if _, ok := r.markets[tr.MarketID]; ok {
		return tr.MarketID, true
	}
	if ref, ok := r.tokens[tr.AssetID]; ok {
		return ref.marketKey, true
	}
	return "", false
}

// insert keeps the buffer sorted by timestamp and capped at maxTrades,
// evicting the oldest trades first. Caller holds r.mu.
func (r *Registry) insert(e *entry, tr *types.Trade) bool {
	key := tr.DedupKey()
	if _, dup := e.seen[key]; dup {
		return false
	}
	e.seen[key] = struct{}{}

	n := len(e.trades)
	e.trades = append(e.trades, tr)
	if n > 0 && tr.Timestamp.Before(e.trades[n-1].Timestamp) {
		sort.SliceStable(e.trades, func(i, j int) bool {
			return e.trades[i].Timestamp.Before(e.trades[j].Timestamp)
		})
	}

	if over := len(e.trades) - r.maxTrades; over > 0 {
		for _, old := range e.trades[:over] {
			delete(e.seen, old.DedupKey())
		}
		e.trades = append(e.trades[:0:0], e.trades[over:]...)
		TradesEvictedTotal.Add(float64(over))
	}

	if tr.Timestamp.After(e.lastTradeAt) {
		e.lastTradeAt = tr.Timestamp
	}
	if !tr.Timestamp.Before(e.lastPriceAt) && r.primaryOutcome(tr) {
		e.lastPriceAt = tr.Timestamp
		e.lastPrice = tr.Price
	}
	return true
}

// primaryOutcome reports whether the trade prices the first listed outcome
// (YES on binary markets). Trades without a known token count as primary.
func (r *Registry) primaryOutcome(tr *types.Trade) bool {
	ref, ok := r.tokens[tr.AssetID]
	if !ok {
		return true
	}
	e := r.markets[ref.marketKey]
	return len(e.market.Tokens) == 0 || e.market.Tokens[0].TokenID == tr.AssetID
}

// Run records trades from in until ctx is cancelled or in is closed.
func (r *Registry) Run(ctx context.Context, in <-chan *types.Trade) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr, ok := <-in:
			if !ok {
				r.logger.Info("trade-feed-closed")
				return nil
			}
			r.Record(tr)
		}
	}
}

// Trades returns a copy of the market's buffer, oldest first.
func (r *Registry) Trades(key string) []*types.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.markets[key]
	if !ok {
		return nil
	}
	out := make([]*types.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// LastPrice returns the latest traded price of the market's first outcome,
// or the Gamma last trade price before any trade arrives.
func (r *Registry) LastPrice(key string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.markets[key]
	if !ok || e.lastPrice <= 0 {
		return 0, false
	}
	return e.lastPrice, true
}

// Market returns the tracked market for key.
func (r *Registry) Market(key string) (*types.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.markets[key]
	if !ok {
		return nil, false
	}
	return e.market, true
}

// Keys returns the tracked market keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.markets))
	for k := range r.markets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TokenIDs returns every token id of the tracked markets.
func (r *Registry) TokenIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tokens))
	for id := range r.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked markets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

// Snapshot returns a view of every tracked market, busiest first.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.markets))
	for _, e := range r.markets {
		out = append(out, Snapshot{
			Market:      e.market,
			TradeCount:  len(e.trades),
			LastPrice:   e.lastPrice,
			LastTradeAt: e.lastTradeAt,
			AddedAt:     e.addedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeCount != out[j].TradeCount {
			return out[i].TradeCount > out[j].TradeCount
		}
		return out[i].Market.Key() < out[j].Market.Key()
	})
	return out
}

// OutcomeForToken maps a token id to its outcome name (YES or NO).
func (r *Registry) OutcomeForToken(tokenID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.tokens[tokenID]
	if !ok {
		return "", false
	}
	return ref.outcome, true
}
