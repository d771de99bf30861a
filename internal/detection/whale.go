package detection

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

const (
	maxTopWhales = 10

	whaleClusterGap          = 5 * time.Minute
	whaleMinForCoordination  = 3
	whaleSimilarSizeCV       = 0.5
	whaleCoordinationMinimum = 4
)

// WhaleDetector flags one-sided flow among large trades.
type WhaleDetector struct {
	thresholdUSD float64
	imbalance    float64
	window       time.Duration
}

// NewWhaleDetector creates a whale activity detector.
func NewWhaleDetector(cfg Config) *WhaleDetector {
	return &WhaleDetector{
		thresholdUSD: cfg.WhaleThresholdUSD,
		imbalance:    cfg.WhaleImbalanceThreshold,
		window:       cfg.WhaleWindow,
	}
}

// Type returns WHALE_ACTIVITY.
func (d *WhaleDetector) Type() types.AlertType {
	return types.AlertWhaleActivity
}

// Detect groups trades above the whale threshold by wallet and measures
// the buy/sell imbalance of their volume.
func (d *WhaleDetector) Detect(trades []*types.Trade, baseline *types.MarketBaseline, now time.Time) types.DetectionResult {
	res := newResult(types.AlertWhaleActivity, now)
	if baseline.IsEmpty() {
		res.Reason = reasonInsufficientBaseline
		return res
	}

	recent := window(trades, now.Add(-d.window), now)

	var totalVolume float64
	whales := make([]*types.Trade, 0)
	for _, t := range recent {
		totalVolume += t.VolumeUSD()
		if t.VolumeUSD() > d.thresholdUSD {
			whales = append(whales, t)
		}
	}

	if len(whales) == 0 {
		res.Reason = fmt.Sprintf("no trades above $%.0f", d.thresholdUSD)
		return res
	}

	analysis := analyzeWhales(whales)
	analysis.MarketShare = analysis.TotalWhaleVolume / math.Max(totalVolume, 1)

	res.Anomaly = analysis.DirectionalImbalance > d.imbalance
	res.Score = analysis.DirectionalImbalance
	res.Details = analysis
	return res
}

type walletAgg struct {
	volume     float64
	count      int
	buyVolume  float64
	sellVolume float64
	assets     map[string]float64
}

func analyzeWhales(whales []*types.Trade) types.WhaleActivityAnalysis {
	var a types.WhaleActivityAnalysis

	wallets := make(map[string]*walletAgg)
	for _, t := range whales {
		v := t.VolumeUSD()
		if t.Side == types.SideBuy {
			a.BuyVolume += v
		} else {
			a.SellVolume += v
		}
		a.LargestTrade = math.Max(a.LargestTrade, v)

		w := wallets[t.Wallet()]
		if w == nil {
			w = &walletAgg{assets: make(map[string]float64)}
			wallets[t.Wallet()] = w
		}
		w.volume += v
		w.count++
		if t.Side == types.SideBuy {
			w.buyVolume += v
		} else {
			w.sellVolume += v
		}
		if t.AssetID != "" {
			w.assets[t.AssetID] += v
		}
	}

	a.TotalWhaleVolume = a.BuyVolume + a.SellVolume
	a.DirectionalImbalance = imbalance(a.BuyVolume, a.SellVolume)
	a.DominantSide = dominantSide(a.BuyVolume, a.SellVolume)
	a.WhaleCount = len(wallets)
	a.WhaleTradeCount = len(whales)
	a.TopWhales = topWhales(wallets)
	a.Coordination = whaleCoordination(whales, len(wallets))

	return a
}

// imbalance is |buy-sell|/(buy+sell), 0 when there is no volume.
func imbalance(buy, sell float64) float64 {
	total := buy + sell
	if total <= 0 {
		return 0
	}
	return math.Abs(buy-sell) / total
}

func dominantSide(buy, sell float64) string {
	switch {
	case buy > sell:
		return types.SideBuy
	case sell > buy:
		return types.SideSell
	default:
		return types.SideNeutral
	}
}

func topWhales(wallets map[string]*walletAgg) []types.WhaleBreakdown {
	out := make([]types.WhaleBreakdown, 0, len(wallets))
	for addr, w := range wallets {
		side := types.SideBuy
		if w.sellVolume > w.buyVolume {
			side = types.SideSell
		}
		out = append(out, types.WhaleBreakdown{
			Wallet:        addr,
			TotalVolume:   w.volume,
			TradeCount:    w.count,
			PreferredSide: side,
			AssetID:       topAsset(w.assets),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVolume != out[j].TotalVolume {
			return out[i].TotalVolume > out[j].TotalVolume
		}
		return out[i].Wallet < out[j].Wallet
	})

	if len(out) > maxTopWhales {
		out = out[:maxTopWhales]
	}
	return out
}

func topAsset(assets map[string]float64) string {
	var best string
	var bestVolume float64
	for id, v := range assets {
		if v > bestVolume || (v == bestVolume && id < best) {
			best, bestVolume = id, v
		}
	}
	return best
}

// whaleCoordination scores whether the whale trades look like one actor:
// same direction 3, clustered timing 2, similar sizes 1, enough whales 1.
func whaleCoordination(whales []*types.Trade, uniqueWallets int) types.WhaleCoordination {
	var c types.WhaleCoordination
	if len(whales) < whaleMinForCoordination {
		return c
	}

	sorted := make([]*types.Trade, len(whales))
	copy(sorted, whales)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	c.SameDirection = true
	for _, t := range sorted[1:] {
		if t.Side != sorted[0].Side {
			c.SameDirection = false
			break
		}
	}

	gaps := gapsSeconds(sorted)
	near := 0
	for _, g := range gaps {
		if g < whaleClusterGap.Seconds() {
			near++
		}
	}
	c.Clustered = float64(near)/float64(len(gaps)) > 0.5
	c.TimeSpreadSec = sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Seconds()

	sizes := make([]float64, len(sorted))
	for i, t := range sorted {
		sizes[i] = t.VolumeUSD()
	}
	mean, std := meanStd(sizes)
	c.SimilarSizes = mean > 0 && std/mean < whaleSimilarSizeCV

	if c.SameDirection {
		c.Score += 3
	}
	if c.Clustered {
		c.Score += 2
	}
	if c.SimilarSizes {
		c.Score++
	}
	if uniqueWallets >= whaleMinForCoordination {
		c.Score++
	}
	c.Coordinated = c.Score >= whaleCoordinationMinimum

	return c
}
