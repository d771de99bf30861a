package detection

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mselser95/polymarket-insider/internal/testutil"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// burst creates n trades one minute apart ending a minute before testNow,
// cycling through wallets distinct takers.
func burst(n, wallets int, side func(i int) string) []*types.Trade {
	trades := make([]*types.Trade, n)
	for i := 0; i < n; i++ {
		ts := testNow.Add(-time.Duration(n-i) * time.Minute)
		trades[i] = testutil.NewTrade("m1", side(i), 0.5, 100, fmt.Sprintf("0xw%d", i%wallets), ts)
	}
	return trades
}

func allBuy(int) string { return types.SideBuy }

func TestCoordinationDetector_Detect(t *testing.T) {
	d := NewCoordinationDetector(DefaultConfig())
	baseline := testBaseline(1000, 500)

	tests := []struct {
		name        string
		trades      []*types.Trade
		wantAnomaly bool
	}{
		{
			name:        "coordinated_buying",
			trades:      burst(25, 8, allBuy),
			wantAnomaly: true,
		},
		{
			name: "split_direction",
			trades: burst(25, 8, func(i int) string {
				if i%8 < 4 {
					return types.SideSell
				}
				return types.SideBuy
			}),
			wantAnomaly: false,
		},
		{
			name:        "too_few_wallets",
			trades:      burst(25, 5, allBuy),
			wantAnomaly: false,
		},
		{
			name:        "too_few_window_trades",
			trades:      burst(20, 8, allBuy),
			wantAnomaly: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Detect(tt.trades, baseline, testNow)
			if res.Anomaly != tt.wantAnomaly {
				t.Errorf("Anomaly = %v, want %v (%+v)", res.Anomaly, tt.wantAnomaly, res.Details)
			}
		})
	}
}

func TestCoordinationDetector_Analysis(t *testing.T) {
	d := NewCoordinationDetector(DefaultConfig())

	res := d.Detect(burst(25, 8, allBuy), testBaseline(1000, 500), testNow)
	a, ok := res.Details.(types.CoordinationAnalysis)
	require.True(t, ok)

	assert.Equal(t, 8, a.UniqueWallets)
	assert.Equal(t, 8, a.BuyWallets)
	assert.Equal(t, 0, a.SellWallets)
	assert.InDelta(t, 1.0, a.BuyWalletRatio, 1e-9)
	assert.Equal(t, types.SideBuy, a.DominantDirection)
	assert.Equal(t, 25, a.WindowTradeCount)
	assert.InDelta(t, 1.0, a.TimingClustering, 1e-9)
	assert.InDelta(t, 1.0, a.SizeConsistency, 1e-9)
	assert.InDelta(t, 8.0/25.0, a.WalletDiversity, 1e-9)
	assert.InDelta(t, 1.0, a.CoordinationScore, 1e-9)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, "m1-yes", a.AssetID)
	assert.False(t, a.WashTrading.Detected)
}

func TestCoordinationDetector_Insufficient(t *testing.T) {
	d := NewCoordinationDetector(DefaultConfig())
	baseline := testBaseline(1000, 500)

	res := d.Detect(burst(8, 8, allBuy), baseline, testNow)
	if res.Anomaly || !strings.Contains(res.Reason, "only 8 trades") {
		t.Errorf("few total trades: Anomaly=%v Reason=%q", res.Anomaly, res.Reason)
	}

	// Enough history, but only 3 trades inside the window.
	var trades []*types.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, testutil.NewTrade("m1", types.SideBuy, 0.5, 100, "0xold", testNow.Add(-time.Duration(2+i)*time.Hour)))
	}
	trades = append(trades, burst(3, 3, allBuy)...)

	res = d.Detect(trades, baseline, testNow)
	if res.Anomaly || !strings.Contains(res.Reason, "only 3 trades in last") {
		t.Errorf("sparse window: Anomaly=%v Reason=%q", res.Anomaly, res.Reason)
	}

	res = d.Detect(burst(25, 8, allBuy), nil, testNow)
	if res.Anomaly || res.Reason != reasonInsufficientBaseline {
		t.Errorf("nil baseline: Anomaly=%v Reason=%q", res.Anomaly, res.Reason)
	}
}

func TestDetectWashTrading(t *testing.T) {
	var trades []*types.Trade
	for i := 0; i < 6; i++ {
		side := types.SideBuy
		if i%2 == 1 {
			side = types.SideSell
		}
		tr := testutil.NewTrade("m1", side, 0.5, 100, "0xb", testNow.Add(-time.Duration(10-i)*time.Minute))
		tr.Maker = "0xa"
		trades = append(trades, tr)
	}
	// Reversed roles land in the same pair.
	tr := testutil.NewTrade("m1", types.SideBuy, 0.5, 100, "0xa", testNow.Add(-3*time.Minute))
	tr.Maker = "0xb"
	trades = append(trades, tr)

	got := detectWashTrading(trades)

	assert.True(t, got.Detected)
	assert.Equal(t, 1, got.SuspiciousPairs)
	assert.Greater(t, got.Score, washScoreMinimum)
}

func TestWashScore_OneSidedFlow(t *testing.T) {
	var trades []*types.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, testutil.NewTrade("m1", types.SideBuy, 0.5, 100, "0xb", testNow.Add(-time.Duration(10-i)*time.Minute)))
	}

	// No alternation: at most stability and regularity.
	assert.InDelta(t, 0.6, washScore(trades), 1e-9)
	assert.False(t, detectWashTrading(trades).Detected)
}
