package alerting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DispatcherConfig holds delivery settings.
type DispatcherConfig struct {
	BufferSize    int
	RatePerMinute int           // webhook sends per minute per channel
	SendTimeout   time.Duration // per notifier call
}

type channel struct {
	notifier Notifier
	limiter  *rate.Limiter
}

// Dispatcher delivers notifications to every channel from a single
// worker goroutine. Enqueue never blocks the analysis pipeline.
type Dispatcher struct {
	cfg      DispatcherConfig
	channels []channel
	queue    chan Notification
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewDispatcher creates a dispatcher for notifiers. Console channels are
// not throttled.
func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	channels := make([]channel, 0, len(notifiers))
	for _, n := range notifiers {
		limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
		if _, ok := n.(*ConsoleNotifier); ok {
			limiter = rate.NewLimiter(rate.Inf, 1)
		}
		channels = append(channels, channel{notifier: n, limiter: limiter})
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		queue:    make(chan Notification, cfg.BufferSize),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.notifier.Name())
	}
	d.logger.Info("dispatcher-started",
		zap.Strings("channels", names),
		zap.Int("buffer-size", d.cfg.BufferSize))

	go d.run()
}

// Enqueue queues n for delivery. It returns false when the queue is full
// or the dispatcher is closed.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- n:
		DispatchQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		NotificationsDroppedTotal.Inc()
		d.logger.Warn("notification-dropped",
			zap.String("alert-id", n.Alert.ID),
			zap.Int("queue-size", d.cfg.BufferSize))
		return false
	}
}

// Close stops accepting notifications and drains the queue until ctx
// expires. Deliveries still pending at the deadline are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if !started {
		d.cancel()
		return nil
	}

	select {
	case <-d.done:
		d.cancel()
		d.logger.Info("dispatcher-drained")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		d.logger.Warn("dispatcher-drain-timeout",
			zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for n := range d.queue {
		DispatchQueueDepth.Set(float64(len(d.queue)))
		if d.ctx.Err() != nil {
			continue
		}
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	for _, c := range d.channels {
		if !n.Alert.Severity.AtLeast(c.notifier.MinSeverity()) {
			continue
		}

		err := c.limiter.Wait(d.ctx)
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
		err = c.notifier.Notify(ctx, n)
		cancel()

		name := c.notifier.Name()
		if err != nil {
			NotificationFailuresTotal.WithLabelValues(name).Inc()
			d.logger.Error("notification-failed",
				zap.String("channel", name),
				zap.String("alert-id", n.Alert.ID),
				zap.Error(err))
			continue
		}
		NotificationsSentTotal.WithLabelValues(name).Inc()
	}
}
