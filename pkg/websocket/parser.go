package websocket

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-insider/pkg/types"
)

// MessageKind classifies an inbound stream message.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTrade
	KindOrderBook
	KindControl
	KindHeartbeat
)

func (k MessageKind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindOrderBook:
		return "orderbook"
	case KindControl:
		return "control"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Event is one classified element of a websocket frame. Frames may carry
// a single object or an array of objects.
type Event struct {
	Kind      MessageKind
	EventType string
	Trade     *types.Trade
	Err       error // decode or normalization failure
}

type eventHeader struct {
	EventType string `json:"event_type"`
	Type      string `json:"type"`
	Event     string `json:"event"`
	Market    string `json:"market"`
	Price     any    `json:"price"`
	Size      any    `json:"size"`
}

// ParseFrame classifies every event contained in a raw frame. Trades are
// normalized; an invalid trade is returned with Err set.
func ParseFrame(raw []byte, now time.Time) ([]Event, error) {
	trimmed := bytes.TrimSpace(raw)

	if isHeartbeat(trimmed) {
		return []Event{{Kind: KindHeartbeat, EventType: "pong"}}, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		err := json.Unmarshal(trimmed, &items)
		if err != nil {
			return nil, fmt.Errorf("decode frame array: %w", err)
		}

		events := make([]Event, 0, len(items))
		for _, item := range items {
			ev, err := parseObject(item, now)
			if err != nil {
				// One bad element must not cost the rest of the frame.
				ev = Event{Kind: KindUnknown, Err: err}
			}
			events = append(events, ev)
		}
		return events, nil
	}

	ev, err := parseObject(trimmed, now)
	if err != nil {
		return nil, err
	}
	return []Event{ev}, nil
}

func isHeartbeat(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	s := string(b)
	return s == "[]" || strings.EqualFold(s, "PONG") || strings.EqualFold(s, `"PONG"`)
}

func parseObject(raw []byte, now time.Time) (Event, error) {
	var hdr eventHeader
	err := json.Unmarshal(raw, &hdr)
	if err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	eventType := strings.ToLower(firstNonEmpty(hdr.EventType, hdr.Type, hdr.Event))
	kind := classify(eventType, hdr)

	ev := Event{Kind: kind, EventType: eventType}
	if kind != KindTrade {
		return ev, nil
	}

	rawTrade, err := types.DecodeRawTrade(raw)
	if err != nil {
		ev.Err = err
		return ev, nil
	}

	ev.Trade, ev.Err = rawTrade.Normalize(types.SourceStream, now)
	return ev, nil
}

func classify(eventType string, hdr eventHeader) MessageKind {
	switch eventType {
	case "last_trade_price", "trade", "trades":
		return KindTrade
	case "book", "price_change", "tick_size_change", "best_bid_ask":
		return KindOrderBook
	case "subscribed", "subscription_success", "unsubscribed", "error":
		return KindControl
	case "pong", "ping", "heartbeat":
		return KindHeartbeat
	case "":
		// Untyped payloads that look like fills are treated as trades.
		if hdr.Market != "" && hdr.Price != nil && hdr.Size != nil {
			return KindTrade
		}
		return KindUnknown
	default:
		return KindUnknown
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// subscriptionMessage is sent once per connection with every tracked asset.
type subscriptionMessage struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

func newSubscriptionMessage(assetIDs []string) subscriptionMessage {
	return subscriptionMessage{Type: "MARKET", AssetsIDs: assetIDs}
}

var pingPayload = []byte(`{"type":"ping"}`) //nolint:gochecknoglobals // constant payload
