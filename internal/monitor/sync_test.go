package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-insider/internal/discovery"
	"github.com/mselser95/polymarket-insider/internal/markets"
	"github.com/mselser95/polymarket-insider/internal/testutil"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu      sync.Mutex
	added   []string
	removed []string
	addErr  error
}

func (f *fakeSubscriber) AddMarkets(ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, ids...)
	return f.addErr
}

func (f *fakeSubscriber) RemoveMarkets(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ids...)
}

type fakeHistory struct {
	trades map[string][]*types.Trade
	fail   map[string]bool
	calls  []string
}

func (f *fakeHistory) FetchHistory(_ context.Context, market string, _ time.Duration, _ int) ([]*types.Trade, error) {
	f.calls = append(f.calls, market)
	if f.fail[market] {
		return nil, errors.New("data api unavailable")
	}
	return f.trades[market], nil
}

func newSync(t *testing.T, sub Subscriber, history *fakeHistory, enabled bool) (*MarketSync, *markets.Registry) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	registry := markets.NewRegistry(markets.DefaultMaxTrades, logger)
	s := NewMarketSync(registry, sub, history, BackfillConfig{
		Enabled:   enabled,
		Lookback:  7 * 24 * time.Hour,
		MaxTrades: 5000,
	}, nil, logger)
	return s, registry
}

func TestMarketSync_AddSubscribesAndSeeds(t *testing.T) {
	history := &fakeHistory{
		trades: map[string][]*types.Trade{
			"0xa": testutil.Historical(testutil.SteadyHistory("0xa", baseTime, 24, 2, 0.4, 50)),
		},
		fail: map[string]bool{"0xb": true},
	}
	sub := &fakeSubscriber{}
	s, registry := newSync(t, sub, history, true)

	s.Apply(context.Background(), discovery.Update{Added: []*types.Market{
		testutil.CreateTestMarket("0xa", "a", "A?"),
		testutil.CreateTestMarket("0xb", "b", "B?"),
	}})

	assert.Equal(t, []string{"0xa", "0xb"}, registry.Keys())
	assert.Len(t, registry.Trades("0xa"), 48)
	assert.Empty(t, registry.Trades("0xb"), "failed backfill leaves the market tracked without history")
	assert.Equal(t, []string{"0xa", "0xb"}, history.calls)

	sort.Strings(sub.added)
	assert.Equal(t, []string{"0xa-no", "0xa-yes", "0xb-no", "0xb-yes"}, sub.added)
}

func TestMarketSync_BackfillDisabled(t *testing.T) {
	history := &fakeHistory{}
	s, registry := newSync(t, &fakeSubscriber{}, history, false)

	s.Apply(context.Background(), discovery.Update{Added: []*types.Market{
		testutil.CreateTestMarket("0xa", "a", "A?"),
	}})

	assert.Equal(t, 1, registry.Len())
	assert.Empty(t, history.calls)
}

func TestMarketSync_SubscribeErrorKeepsMarket(t *testing.T) {
	sub := &fakeSubscriber{addErr: errors.New("not connected")}
	s, registry := newSync(t, sub, &fakeHistory{}, true)

	s.Apply(context.Background(), discovery.Update{Added: []*types.Market{
		testutil.CreateTestMarket("0xa", "a", "A?"),
	}})
	assert.Equal(t, 1, registry.Len())
}

func TestMarketSync_Remove(t *testing.T) {
	sub := &fakeSubscriber{}
	s, registry := newSync(t, sub, &fakeHistory{}, false)
	ctx := context.Background()

	a := testutil.CreateTestMarket("0xa", "a", "A?")
	b := testutil.CreateTestMarket("0xb", "b", "B?")
	s.Apply(ctx, discovery.Update{Added: []*types.Market{a, b}})

	s.Apply(ctx, discovery.Update{Removed: []*types.Market{b, testutil.CreateTestMarket("0xzz", "zz", "?")}})

	assert.Equal(t, []string{"0xa"}, registry.Keys())
	assert.Equal(t, []string{"0xb-yes", "0xb-no"}, sub.removed)
}

func TestMarketSync_RunDrainsUntilClosed(t *testing.T) {
	s, registry := newSync(t, &fakeSubscriber{}, &fakeHistory{}, false)

	updates := make(chan discovery.Update, 2)
	updates <- discovery.Update{Added: []*types.Market{testutil.CreateTestMarket("0xa", "a", "A?")}}
	updates <- discovery.Update{Added: []*types.Market{testutil.CreateTestMarket("0xb", "b", "B?")}}
	close(updates)

	require.NoError(t, s.Run(context.Background(), updates))
	assert.Equal(t, 2, registry.Len())
}
