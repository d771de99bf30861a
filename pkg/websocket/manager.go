package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by writes attempted while no connection is up.
var ErrNotConnected = errors.New("websocket not connected")

// State is the connection state of the stream.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
	StateClosed
	StateReconnecting
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateGivenUp:
		return "GIVEN_UP"
	default:
		return "UNKNOWN"
	}
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                  string
	DialTimeout          time.Duration
	ReadTimeout          time.Duration
	PingInterval         time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	JitterPercent        float64
	MessageBufferSize    int
	Logger               *zap.Logger
}

// Stats is a snapshot of stream activity counters.
type Stats struct {
	State             string `json:"state"`
	Connected         bool   `json:"connected"`
	Subscriptions     int    `json:"subscriptions"`
	MessagesReceived  int64  `json:"messages_received"`
	TradesProcessed   int64  `json:"trades_processed"`
	OrderBookUpdates  int64  `json:"order_book_updates"`
	ControlMessages   int64  `json:"control_messages"`
	Heartbeats        int64  `json:"heartbeats"`
	UnknownMessages   int64  `json:"unknown_messages"`
	InvalidTrades     int64  `json:"invalid_trades"`
	DroppedTrades     int64  `json:"dropped_trades"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
}

// Manager maintains the single streaming connection to the Polymarket
// market channel and forwards normalized trades to its sink.
type Manager struct {
	url          string
	logger       *zap.Logger
	config       Config
	reconnectMgr *ReconnectManager
	tradeChan    chan *types.Trade
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	mu         sync.RWMutex // guards conn and subscribed
	conn       *websocket.Conn
	subscribed map[string]struct{}
	writeMu    sync.Mutex // gorilla allows one concurrent writer

	state           atomic.Int32
	connectionStart atomic.Int64
	resubscribe     atomic.Bool
	closeOnce       sync.Once

	done    chan struct{}
	errMu   sync.Mutex
	fatal   error
	started atomic.Bool

	messages   atomic.Int64
	trades     atomic.Int64
	books      atomic.Int64
	control    atomic.Int64
	heartbeats atomic.Int64
	unknown    atomic.Int64
	invalid    atomic.Int64
	dropped    atomic.Int64

	now  func() time.Time
	send func(conn *websocket.Conn, payload []byte) error
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = 1000
	}

	reconnectCfg := ReconnectConfig{
		BaseDelay:     cfg.ReconnectBaseDelay,
		MaxExponent:   4,
		MaxAttempts:   cfg.MaxReconnectAttempts,
		JitterPercent: cfg.JitterPercent,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		config:       cfg,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		tradeChan:    make(chan *types.Trade, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]struct{}),
		done:         make(chan struct{}),
		now:          time.Now,
		send:         sendText,
	}
}

// Start launches the connection supervisor and returns immediately.
// Initial connection failures are retried with backoff.
func (m *Manager) Start() error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("websocket manager already started")
	}

	m.logger.Info("websocket-manager-starting", zap.String("url", m.url))

	m.wg.Add(1)
	go m.run()

	return nil
}

// run drives the state machine until shutdown or give-up.
func (m *Manager) run() {
	defer m.wg.Done()

	err := m.connect(m.ctx)
	for {
		if m.ctx.Err() != nil {
			m.setState(StateClosed)
			return
		}

		if err == nil {
			m.serve()

			if m.ctx.Err() != nil {
				m.setState(StateClosed)
				return
			}

			if m.resubscribe.Swap(false) {
				m.logger.Info("websocket-resubscribing")
				err = m.connect(m.ctx)
				continue
			}

			m.setState(StateError)
			m.logger.Warn("connection-lost-initiating-reconnect")
		}

		m.setState(StateReconnecting)
		err = m.reconnectMgr.Reconnect(m.ctx, m.reconnectOnce)
		if err != nil {
			if errors.Is(err, ErrGivenUp) {
				m.giveUp(err)
				return
			}
			m.setState(StateClosed)
			return
		}
	}
}

func (m *Manager) reconnectOnce(ctx context.Context) error {
	err := m.connect(ctx)
	if err != nil && ctx.Err() == nil {
		m.setState(StateReconnecting)
	}
	return err
}

// connect establishes a WebSocket connection and sends the subscription.
func (m *Manager) connect(ctx context.Context) error {
	m.setState(StateConnecting)

	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-websocket", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		m.setState(StateError)
		return fmt.Errorf("dial: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	assetIDs := m.subscribedLocked()
	m.mu.Unlock()

	now := m.now()
	m.connectionStart.Store(now.Unix())
	m.setState(StateConnected)
	ActiveConnections.Set(1)

	m.logger.Info("websocket-connected", zap.Int("assets", len(assetIDs)))

	if len(assetIDs) > 0 {
		err = m.writeSubscription(conn, assetIDs)
		if err != nil {
			m.dropConn(conn)
			ActiveConnections.Set(0)
			m.setState(StateError)
			return fmt.Errorf("send subscription: %w", err)
		}
	}

	// Only a subscribed connection counts as a recovery.
	m.reconnectMgr.Reset()
	return nil
}

// serve runs the read loop and heartbeat for the current connection and
// returns when the connection ends.
func (m *Manager) serve() {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return
	}

	sessionCtx, cancel := context.WithCancel(m.ctx)
	var heartbeat sync.WaitGroup
	heartbeat.Add(1)
	go func() {
		defer heartbeat.Done()
		m.pingLoop(sessionCtx, conn)
	}()

	m.readLoop(conn)

	cancel()
	heartbeat.Wait()

	startTime := m.connectionStart.Load()
	if startTime > 0 {
		ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
	}
	ActiveConnections.Set(0)

	m.dropConn(conn)
}

// readLoop reads frames until the connection fails or is closed.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		if m.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() == nil && !m.resubscribe.Load() {
				m.logger.Warn("read-error", zap.Error(err))
			}
			return
		}

		m.handleFrame(message)
	}
}

func (m *Manager) handleFrame(message []byte) {
	start := time.Now()
	m.messages.Add(1)

	events, err := ParseFrame(message, m.now())
	if err != nil {
		m.unknown.Add(1)
		MessagesReceivedTotal.WithLabelValues(KindUnknown.String()).Inc()

		preview := string(message)
		if len(preview) > 100 {
			preview = preview[:100]
		}
		m.logger.Debug("websocket-unparseable-message",
			zap.Error(err),
			zap.Int("bytes", len(message)),
			zap.String("preview", preview))
		return
	}

	for i := range events {
		m.handleEvent(&events[i])
	}

	MessageLatencySeconds.Observe(time.Since(start).Seconds())
}

func (m *Manager) handleEvent(ev *Event) {
	MessagesReceivedTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case KindHeartbeat:
		m.heartbeats.Add(1)
	case KindOrderBook:
		m.books.Add(1)
	case KindControl:
		m.control.Add(1)
		m.logger.Debug("websocket-control-message", zap.String("type", ev.EventType))
	case KindUnknown:
		m.unknown.Add(1)
		m.logger.Debug("websocket-unknown-message", zap.String("type", ev.EventType), zap.Error(ev.Err))
	case KindTrade:
		if ev.Err != nil {
			m.invalid.Add(1)
			InvalidTradesTotal.Inc()
			m.logger.Debug("invalid-trade-dropped", zap.Error(ev.Err))
			return
		}

		m.trades.Add(1)
		select {
		case m.tradeChan <- ev.Trade:
		default:
			m.dropped.Add(1)
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
			m.logger.Warn("trade-channel-full", zap.String("market-id", ev.Trade.MarketID))
		}
	}
}

// pingLoop sends the application-level ping for the life of one connection.
func (m *Manager) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if m.config.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.write(conn, pingPayload)
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// AddMarkets tracks additional asset ids and re-sends the subscription
// when connected.
func (m *Manager) AddMarkets(assetIDs []string) error {
	m.mu.Lock()
	added := 0
	for _, id := range assetIDs {
		if id == "" {
			continue
		}
		if _, ok := m.subscribed[id]; !ok {
			m.subscribed[id] = struct{}{}
			added++
		}
	}
	all := m.subscribedLocked()
	conn := m.conn
	m.mu.Unlock()

	SubscriptionCount.Set(float64(len(all)))

	if added == 0 {
		m.logger.Debug("all-assets-already-subscribed")
		return nil
	}

	m.logger.Info("subscribed-to-assets",
		zap.Int("new-count", added),
		zap.Int("total-count", len(all)))

	if m.State() != StateConnected || conn == nil {
		return nil
	}

	err := m.writeSubscription(conn, all)
	if err != nil {
		return fmt.Errorf("resend subscription: %w", err)
	}
	return nil
}

// RemoveMarkets stops tracking asset ids. The market channel has no
// unsubscribe operation, so a live connection is recycled immediately with
// the reduced set; this reconnect skips backoff.
func (m *Manager) RemoveMarkets(assetIDs []string) {
	m.mu.Lock()
	removed := 0
	for _, id := range assetIDs {
		if _, ok := m.subscribed[id]; ok {
			delete(m.subscribed, id)
			removed++
		}
	}
	remaining := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	SubscriptionCount.Set(float64(remaining))

	if removed == 0 {
		m.logger.Debug("no-assets-to-unsubscribe")
		return
	}

	UnsubscriptionsTotal.Inc()
	m.logger.Info("unsubscribed-from-assets",
		zap.Int("count", removed),
		zap.Int("remaining-count", remaining))

	if m.State() == StateConnected && conn != nil {
		m.resubscribe.Store(true)
		_ = conn.Close()
	}
}

// Subscriptions returns the tracked asset ids, sorted.
func (m *Manager) Subscriptions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.subscribedLocked()
}

// Trades returns the sink that receives normalized trades. It is closed by
// Disconnect.
func (m *Manager) Trades() <-chan *types.Trade {
	return m.tradeChan
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Done is closed when the manager reaches GIVEN_UP.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Err returns the fatal error once Done is closed.
func (m *Manager) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()

	return m.fatal
}

// Stats returns a snapshot of activity counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	subs := len(m.subscribed)
	m.mu.RUnlock()

	state := m.State()
	return Stats{
		State:             state.String(),
		Connected:         state == StateConnected,
		Subscriptions:     subs,
		MessagesReceived:  m.messages.Load(),
		TradesProcessed:   m.trades.Load(),
		OrderBookUpdates:  m.books.Load(),
		ControlMessages:   m.control.Load(),
		Heartbeats:        m.heartbeats.Load(),
		UnknownMessages:   m.unknown.Load(),
		InvalidTrades:     m.invalid.Load(),
		DroppedTrades:     m.dropped.Load(),
		ReconnectAttempts: m.reconnectMgr.Attempts(),
	}
}

// Disconnect stops the manager without reconnecting. Safe to call more
// than once.
func (m *Manager) Disconnect() {
	m.closeOnce.Do(func() {
		m.logger.Info("closing-websocket-manager")

		m.cancel()

		m.mu.RLock()
		if m.conn != nil {
			_ = m.conn.Close()
		}
		m.mu.RUnlock()

		m.wg.Wait()

		close(m.tradeChan)

		if m.State() != StateGivenUp {
			m.setState(StateClosed)
		}
		ActiveConnections.Set(0)

		m.logger.Info("websocket-manager-closed")
	})
}

// Close implements io.Closer.
func (m *Manager) Close() error {
	m.Disconnect()
	return nil
}

func (m *Manager) giveUp(err error) {
	m.errMu.Lock()
	m.fatal = err
	m.errMu.Unlock()

	m.setState(StateGivenUp)
	GivenUpTotal.Inc()
	m.logger.Error("websocket-given-up", zap.Error(err))

	close(m.done)
}

func (m *Manager) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	ConnectionState.Set(float64(s))
	if prev != s {
		m.logger.Debug("websocket-state-changed",
			zap.String("from", prev.String()),
			zap.String("to", s.String()))
	}
}

func (m *Manager) writeSubscription(conn *websocket.Conn, assetIDs []string) error {
	payload, err := json.Marshal(newSubscriptionMessage(assetIDs))
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	return m.write(conn, payload)
}

func (m *Manager) write(conn *websocket.Conn, payload []byte) error {
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	return m.send(conn, payload)
}

func sendText(conn *websocket.Conn, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (m *Manager) dropConn(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	_ = conn.Close()
}

func (m *Manager) subscribedLocked() []string {
	ids := make([]string, 0, len(m.subscribed))
	for id := range m.subscribed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
