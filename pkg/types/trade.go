package types

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Trade sides as reported by Polymarket.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	// SideNeutral marks balanced flow in aggregate analyses.
	SideNeutral = "NEUTRAL"
)

// TradeSource records where a trade entered the pipeline.
type TradeSource string

const (
	SourceStream     TradeSource = "stream"
	SourceHistorical TradeSource = "historical"
)

// Trade is a single normalized fill. Price and Size are always finite and
// positive, Side is BUY or SELL and MarketID is never empty once a Trade
// leaves RawTrade.Normalize.
type Trade struct {
	ID        string      `json:"id,omitempty"`
	MarketID  string      `json:"market_id"`
	AssetID   string      `json:"asset_id,omitempty"`
	Price     float64     `json:"price"`
	Size      float64     `json:"size"`
	Side      string      `json:"side"`
	Maker     string      `json:"maker,omitempty"`
	Taker     string      `json:"taker,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TxHash    string      `json:"tx_hash,omitempty"`
	Source    TradeSource `json:"source"`
}

// VolumeUSD returns the notional value of the trade.
func (t *Trade) VolumeUSD() float64 {
	return t.Price * t.Size
}

// Valid reports whether the trade can be used in volume, price and
// direction math.
func (t *Trade) Valid() bool {
	return t != nil && positive(t.Price) && positive(t.Size) && ValidSide(t.Side)
}

// ValidSide reports whether side is BUY or SELL.
func ValidSide(side string) bool {
	return side == SideBuy || side == SideSell
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Wallet returns the address most likely to be the initiator.
// Data API trades only carry the proxy wallet, stored as Maker.
func (t *Trade) Wallet() string {
	if t.Taker != "" {
		return t.Taker
	}
	return t.Maker
}

// DedupKey identifies a trade across the stream and the REST backfill.
func (t *Trade) DedupKey() string {
	if t.TxHash != "" {
		return t.TxHash
	}
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%d_%g_%g", t.Timestamp.UnixMilli(), t.Price, t.Size)
}

// FlexFloat decodes JSON numbers and numeric strings alike.
type FlexFloat float64

// UnmarshalJSON accepts 0.52, "0.52" and null.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse float %q: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexTime decodes unix seconds, unix milliseconds (as number or string)
// and RFC3339 strings.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = unixAuto(n)
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// unixAuto treats values above 1e12 as milliseconds.
func unixAuto(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// RawTrade is the union of trade fields seen on the market websocket
// channel and on the Data API /trades endpoint.
type RawTrade struct {
	EventType       string    `json:"event_type"`
	Type            string    `json:"type"`
	ID              string    `json:"id"`
	TradeID         string    `json:"trade_id"`
	Market          string    `json:"market"`
	ConditionID     string    `json:"conditionId"`
	AssetID         string    `json:"asset_id"`
	Asset           string    `json:"asset"`
	Price           FlexFloat `json:"price"`
	Size            FlexFloat `json:"size"`
	Side            string    `json:"side"`
	Maker           string    `json:"maker"`
	MakerAddress    string    `json:"maker_address"`
	ProxyWallet     string    `json:"proxyWallet"`
	Taker           string    `json:"taker"`
	TakerAddress    string    `json:"taker_address"`
	Timestamp       FlexTime  `json:"timestamp"`
	TransactionHash string    `json:"transaction_hash"`
	TxHash          string    `json:"transactionHash"`
}

// DecodeRawTrade decodes a single JSON object into a RawTrade.
func DecodeRawTrade(data []byte) (*RawTrade, error) {
	var raw RawTrade
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode trade: %w", err)
	}
	return &raw, nil
}

// Normalize validates the raw fields and produces a Trade.
// A zero timestamp is replaced with now.
func (r *RawTrade) Normalize(source TradeSource, now time.Time) (*Trade, error) {
	market := coalesce(r.Market, r.ConditionID)
	if market == "" {
		return nil, fmt.Errorf("%w: missing market", ErrInvalidTrade)
	}
	if !positive(float64(r.Price)) {
		return nil, fmt.Errorf("%w: price %g", ErrInvalidTrade, float64(r.Price))
	}
	if !positive(float64(r.Size)) {
		return nil, fmt.Errorf("%w: size %g", ErrInvalidTrade, float64(r.Size))
	}
	side := strings.ToUpper(strings.TrimSpace(r.Side))
	if !ValidSide(side) {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidTrade, r.Side)
	}

	ts := r.Timestamp.Time
	if ts.IsZero() {
		ts = now
	}

	return &Trade{
		ID:        coalesce(r.ID, r.TradeID),
		MarketID:  market,
		AssetID:   coalesce(r.AssetID, r.Asset),
		Price:     float64(r.Price),
		Size:      float64(r.Size),
		Side:      side,
		Maker:     coalesce(r.Maker, r.MakerAddress, r.ProxyWallet),
		Taker:     coalesce(r.Taker, r.TakerAddress),
		Timestamp: ts,
		TxHash:    coalesce(r.TransactionHash, r.TxHash),
		Source:    source,
	}, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
