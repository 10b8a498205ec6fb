package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qualee/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Failure reasons reported to the failure hook
const (
	ReasonQueueFull = "queue_full"
	ReasonClosed    = "closed"
	ReasonSend      = "send_failed"
)

// DispatcherStats is a snapshot of delivery counters
type DispatcherStats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"`
}

// FailureHook is called for every message that was not delivered
type FailureHook func(kind Kind, reason string)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithFailureHook registers a callback for dropped and failed messages
func WithFailureHook(hook FailureHook) DispatcherOption {
	return func(d *Dispatcher) {
		d.onFailure = hook
	}
}

// WithSendTimeout bounds each transport call
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// Dispatcher delivers messages from a bounded queue with a fixed worker pool.
// Enqueue never blocks: a full queue drops the message.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	workers     int
	sendTimeout time.Duration
	onFailure   FailureHook
	logger      *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a Dispatcher. workers and queueSize are clamped to 1.
func NewDispatcher(sender Sender, workers, queueSize int, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, queueSize),
		workers:     workers,
		sendTimeout: 15 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Calling it twice has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.Info("Notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)))
}

// Enqueue schedules msg for delivery and reports whether it was accepted
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(msg, ReasonClosed)
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, ReasonQueueFull)
		return false
	}
}

// Stop closes the queue and waits for the workers to drain it, or for ctx
// to expire. The dispatcher owns the sender: it is closed exactly once, here,
// whether or not the queue drained.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	var drainErr error
	if started {
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.logger.Warn("Notification dispatcher stopped before queue drained",
				zap.Int("remaining", len(d.queue)))
			drainErr = ctx.Err()
		}
	}
	return errors.Join(drainErr, d.sender.Close())
}

// Stats returns the current counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Sent:    d.sent.Load(),
		Dropped: d.dropped.Load(),
		Failed:  d.failed.Load(),
		Queued:  len(d.queue),
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "notification.send",
		telemetry.WithSpanKind(trace.SpanKindProducer),
		telemetry.WithAttribute("kind", string(msg.Kind)),
		telemetry.WithAttribute("merchant_id", msg.MerchantID.String()),
	)
	defer span.End()

	if err := d.sender.Send(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		d.failed.Add(1)
		d.logger.Warn("Notification delivery failed",
			zap.String("kind", string(msg.Kind)),
			zap.String("merchant_id", msg.MerchantID.String()),
			zap.String("account_id", msg.AccountID.String()),
			zap.Error(err))
		d.report(msg.Kind, ReasonSend)
		return
	}
	d.sent.Add(1)
}

func (d *Dispatcher) drop(msg Message, reason string) {
	d.dropped.Add(1)
	d.logger.Warn("Notification dropped",
		zap.String("kind", string(msg.Kind)),
		zap.String("merchant_id", msg.MerchantID.String()),
		zap.String("reason", reason))
	d.report(msg.Kind, reason)
}

func (d *Dispatcher) report(kind Kind, reason string) {
	if d.onFailure != nil {
		d.onFailure(kind, reason)
	}
}
