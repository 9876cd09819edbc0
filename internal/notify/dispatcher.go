// Package notify delivers best-effort notifications about committed orders.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

// Channel delivers an order notification over one medium.
type Channel interface {
	Name() string
	Notify(ctx context.Context, o *order.Order) error
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single channel delivery.
	Timeout time.Duration
}

type job struct {
	order *order.Order
	lg    *zap.Logger
}

var _ order.Notifier = (*Dispatcher)(nil)

// Dispatcher fans committed orders out to its channels on a fixed pool of
// workers. It never blocks the caller: when the queue is full or Run has
// returned the notification is dropped with a warning.
type Dispatcher struct {
	cfg      DispatcherConfig
	channels []Channel
	queue    chan job

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a Dispatcher. Call Run to start the workers.
func NewDispatcher(cfg DispatcherConfig, channels ...Channel) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		queue:    make(chan job, cfg.QueueSize),
	}
}

// OrderPlaced enqueues o for delivery.
func (d *Dispatcher) OrderPlaced(ctx context.Context, o *order.Order) {
	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		lg.Warn("Notification dispatcher stopped, dropping")
		return
	}
	select {
	case d.queue <- job{order: o, lg: lg}:
	default:
		lg.Warn("Notification queue full, dropping", zap.Int("queue_size", d.cfg.QueueSize))
	}
}

// Run processes the queue until ctx is done, then delivers what is still
// queued and returns. Notifications arriving after Run returns are dropped
// with a warning.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for range d.cfg.Workers {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	err := g.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	// Enqueued between the worker drains and the stop flag.
	d.drain(ctx)
	return err
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case j := <-d.queue:
			d.deliver(ctx, j)
		case <-ctx.Done():
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case j := <-d.queue:
			d.deliver(ctx, j)
		default:
			return
		}
	}
}

// deliver runs every channel for j. Deliveries outlive ctx cancellation and
// are bounded by the per-message timeout only.
func (d *Dispatcher) deliver(ctx context.Context, j job) {
	ctx = context.WithoutCancel(ctx)
	for _, ch := range d.channels {
		func() {
			ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
			defer cancel()

			if err := ch.Notify(ctx, j.order); err != nil {
				j.lg.Warn("Notification failed",
					zap.String("channel", ch.Name()),
					zap.Error(err),
				)
				return
			}
			j.lg.Debug("Notification sent", zap.String("channel", ch.Name()))
		}()
	}
}

// Backlog returns the number of queued notifications.
func (d *Dispatcher) Backlog() int {
	return len(d.queue)
}
