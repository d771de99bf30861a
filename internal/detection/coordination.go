package detection

import (
	"fmt"
	"math"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

const (
	coordinationMinTotalTrades  = 10
	coordinationMinWindowTrades = 5

	clusterGapSeconds       = 300.0
	clusteredRatioIndicator = 0.6
	sizeConsistencyMinimum  = 0.7
	walletDiversityMaximum  = 0.5

	washMinPairTrades = 4
	washScoreMinimum  = 0.7
)

// CoordinationDetector flags many distinct wallets buying together.
type CoordinationDetector struct {
	window          time.Duration
	minWallets      int
	directionalBias float64
	minWindowTrades int
}

// NewCoordinationDetector creates a coordinated trading detector.
func NewCoordinationDetector(cfg Config) *CoordinationDetector {
	return &CoordinationDetector{
		window:          cfg.CoordinationWindow,
		minWallets:      cfg.CoordinationMinWallets,
		directionalBias: cfg.CoordinationDirectionalBias,
		minWindowTrades: cfg.CoordinationMinWindowTrades,
	}
}

// Type returns COORDINATED_TRADING.
func (d *CoordinationDetector) Type() types.AlertType {
	return types.AlertCoordinatedTrading
}

// Detect inspects wallet behaviour inside the coordination window.
func (d *CoordinationDetector) Detect(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) types.DetectionResult {
	res := newResult(types.AlertCoordinatedTrading, now)
	if baseline.IsEmpty() {
		res.Reason = reasonInsufficientBaseline
		return res
	}

	if n := countValid(trades); n < coordinationMinTotalTrades {
		res.Reason = fmt.Sprintf("only %d trades, need %d", n, coordinationMinTotalTrades)
		return res
	}

	recent := window(trades, now.Add(-d.window), now)
	if len(recent) < coordinationMinWindowTrades {
		res.Reason = fmt.Sprintf("only %d trades in last %v", len(recent), d.window)
		return res
	}

	analysis := d.analyze(recent)

	res.Anomaly = analysis.UniqueWallets > d.minWallets &&
		analysis.BuyWalletRatio > d.directionalBias &&
		analysis.WindowTradeCount > d.minWindowTrades
	res.Score = analysis.CoordinationScore
	res.Details = analysis
	return res
}

func (d *CoordinationDetector) analyze(recent []*types.Trade) types.CoordinationAnalysis {
	all := make(map[string]struct{})
	buyers := make(map[string]struct{})
	sellers := make(map[string]struct{})
	sizes := make([]float64, 0, len(recent))
	assets := make(map[string]float64)

	for _, t := range recent {
		sizes = append(sizes, t.Size)
		if t.AssetID != "" {
			assets[t.AssetID] += t.VolumeUSD()
		}
		w := t.Wallet()
		if w == "" {
			continue
		}
		all[w] = struct{}{}
		if t.Side == types.SideBuy {
			buyers[w] = struct{}{}
		} else {
			sellers[w] = struct{}{}
		}
	}

	a := types.CoordinationAnalysis{
		UniqueWallets:    len(all),
		BuyWallets:       len(buyers),
		SellWallets:      len(sellers),
		WindowTradeCount: len(recent),
		TimingClustering: clusteredRatio(recent),
		SizeConsistency:  sizeConsistency(sizes),
		WalletDiversity:  float64(len(all)) / float64(len(recent)),
		AssetID:          topAsset(assets),
		WashTrading:      detectWashTrading(recent),
	}
	a.BuyWalletRatio = float64(len(buyers)) / math.Max(float64(len(buyers)+len(sellers)), epsilon)

	a.DominantDirection = types.SideSell
	if a.BuyWalletRatio > 0.5 {
		a.DominantDirection = types.SideBuy
	}

	indicators := []bool{
		math.Min(a.BuyWalletRatio, 1-a.BuyWalletRatio) < 1-d.directionalBias,
		a.TimingClustering > clusteredRatioIndicator,
		a.SizeConsistency > sizeConsistencyMinimum,
		a.UniqueWallets >= d.minWallets,
		a.WalletDiversity < walletDiversityMaximum,
	}
	hits := 0
	for _, ok := range indicators {
		if ok {
			hits++
		}
	}
	a.CoordinationScore = float64(hits) / float64(len(indicators))

	return a
}

// clusteredRatio is the share of trades arriving within 5 minutes of the
// previous one. The first trade counts as clustered.
func clusteredRatio(trades []*types.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	clustered := 1
	for _, g := range gapsSeconds(trades) {
		if g <= clusterGapSeconds {
			clustered++
		}
	}
	return float64(clustered) / float64(len(trades))
}

// sizeConsistency is 1 minus the coefficient of variation, floored at 0.
func sizeConsistency(sizes []float64) float64 {
	if len(sizes) < 2 {
		return 0
	}
	mean, std := meanStd(sizes)
	if mean <= 0 {
		return 0
	}
	return math.Max(0, 1-std/mean)
}

// detectWashTrading looks for maker/taker pairs repeatedly trading with
// each other at a stable price and steady rhythm.
func detectWashTrading(trades []*types.Trade) types.WashTradingAnalysis {
	var out types.WashTradingAnalysis

	pairs := make(map[[2]string][]*types.Trade)
	for _, t := range trades {
		if t.Maker == "" || t.Taker == "" {
			continue
		}
		key := [2]string{t.Maker, t.Taker}
		if key[1] < key[0] {
			key[0], key[1] = key[1], key[0]
		}
		pairs[key] = append(pairs[key], t)
	}

	for _, pt := range pairs {
		if len(pt) < washMinPairTrades {
			continue
		}
		score := washScore(pt)
		if score > washScoreMinimum {
			out.SuspiciousPairs++
			out.Score = math.Max(out.Score, score)
		}
	}

	out.Detected = out.SuspiciousPairs > 0
	return out
}

// washScore weighs alternating sides 0.4, price stability 0.4 and timing
// regularity 0.2. Trades must be in time order.
func washScore(trades []*types.Trade) float64 {
	flips := 0
	prices := make([]float64, len(trades))
	for i, t := range trades {
		prices[i] = t.Price
		if i > 0 && t.Side != trades[i-1].Side {
			flips++
		}
	}
	alternating := float64(flips) / float64(len(trades)-1)

	mean, std := meanStd(prices)
	stability := math.Max(0, 1-std/math.Max(mean, epsilon))

	_, gapStd := meanStd(gapsSeconds(trades))
	regularity := 1 / (1 + gapStd)

	return math.Min(1, alternating*0.4+stability*0.4+regularity*0.2)
}
