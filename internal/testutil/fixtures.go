package testutil

import (
	"fmt"
	"time"

	"github.com/mselser95/polymarket-insider/pkg/types"
)

// CreateTestMarket creates a test market with YES and NO tokens.
// Token ids are "<id>-yes" and "<id>-no"; the condition id equals id.
func CreateTestMarket(id string, slug string, question string) *types.Market {
	return &types.Market{
		ID:          id,
		ConditionID: id,
		Slug:        slug,
		Question:    question,
		Closed:      false,
		Active:      true,
		Volume24hr:  50000,
		Outcomes:    `["Yes", "No"]`,
		ClobTokens:  `["` + id + `-yes", "` + id + `-no"]`,
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: types.OutcomeYes, Price: 0.52},
			{TokenID: id + "-no", Outcome: types.OutcomeNo, Price: 0.48},
		},
		CreatedAt: time.Now(),
	}
}

// NewTrade creates a valid stream trade. Wallet is used as the taker.
func NewTrade(marketID string, side string, price, size float64, wallet string, ts time.Time) *types.Trade {
	return &types.Trade{
		ID:        fmt.Sprintf("%s-%d-%s", marketID, ts.UnixNano(), wallet),
		MarketID:  marketID,
		AssetID:   marketID + "-yes",
		Price:     price,
		Size:      size,
		Side:      side,
		Maker:     "0xmaker",
		Taker:     wallet,
		Timestamp: ts,
		Source:    types.SourceStream,
	}
}

// SteadyHistory generates perTrade-sized trades spread evenly over hours,
// ending one hour before end, so the current hour is empty. Each hour
// carries tradesPerHour trades alternating BUY/SELL at price with distinct
// wallets.
func SteadyHistory(marketID string, end time.Time, hours, tradesPerHour int, price, size float64) []*types.Trade {
	trades := make([]*types.Trade, 0, hours*tradesPerHour)
	start := end.Add(-time.Duration(hours+1) * time.Hour).Truncate(time.Hour)

	for h := 0; h < hours; h++ {
		hourStart := start.Add(time.Duration(h) * time.Hour)
		for i := 0; i < tradesPerHour; i++ {
			side := types.SideBuy
			if i%2 == 1 {
				side = types.SideSell
			}
			ts := hourStart.Add(time.Duration(i) * time.Hour / time.Duration(tradesPerHour+1))
			wallet := fmt.Sprintf("0xhist%02d", i%7)
			trades = append(trades, NewTrade(marketID, side, price, size, wallet, ts))
		}
	}

	return trades
}

// Historical marks trades as backfilled.
func Historical(trades []*types.Trade) []*types.Trade {
	for _, t := range trades {
		t.Source = types.SourceHistorical
	}
	return trades
}
