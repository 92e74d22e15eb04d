// Package notify delivers new-data events to matched subscribers over
// webhooks, email, and the real-time broker.
//
// Deliveries are isolated per subscriber and per channel: each runs as its
// own task with its own retry budget, and one subscriber's failure never
// touches another's delivery or the batch that produced the point.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/gapilongo/OPiN/broker"
	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/metric"
	"github.com/gapilongo/OPiN/pkg/retry"
	"github.com/gapilongo/OPiN/pkg/worker"
	"github.com/gapilongo/OPiN/types"
)

// Channel names used in logs and metrics.
const (
	ChannelWebhook   = "webhook"
	ChannelEmail     = "email"
	ChannelBroadcast = "broadcast"
)

// Delivery is one unit of notification work: one event to one subscriber
// over one channel.
type Delivery struct {
	Channel string
	Event   types.NotificationEvent
	Sub     *types.Subscription
	Point   *types.DataPoint
}

// EmailSender sends a rendered notification email.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Dispatcher fans events out to subscriber targets through a worker pool.
type Dispatcher struct {
	pool    *worker.Pool[Delivery]
	webhook *WebhookSender
	email   EmailSender
	broker  *broker.Broker
	metrics *metric.Metrics
	logger  *slog.Logger
	retry   retry.Config
}

// Config sizes the dispatcher.
type Config struct {
	Workers   int
	QueueSize int
}

// DefaultConfig returns the standard dispatcher sizing.
func DefaultConfig() Config {
	return Config{Workers: 4, QueueSize: 256}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetryConfig overrides the delivery retry schedule.
func WithRetryConfig(cfg retry.Config) Option {
	return func(d *Dispatcher) { d.retry = cfg }
}

// NewDispatcher creates a dispatcher. The email sender, broker, and metrics
// may each be nil, disabling that channel or instrumentation.
func NewDispatcher(cfg Config, webhook *WebhookSender, email EmailSender, b *broker.Broker, metrics *metric.Metrics, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg = DefaultConfig()
	}

	d := &Dispatcher{
		webhook: webhook,
		email:   email,
		broker:  b,
		metrics: metrics,
		logger:  logger.With("component", "dispatcher"),
		retry:   retry.Delivery(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, d.deliver)
	return d
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.pool.Start(ctx)
}

// Stop drains in-flight deliveries.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	return d.pool.Stop(timeout)
}

// Dispatch queues one delivery per configured target of each matched
// subscription. Queue overflow drops that delivery with a log record rather
// than blocking the caller.
func (d *Dispatcher) Dispatch(_ context.Context, point *types.DataPoint, subs []*types.Subscription) {
	for _, sub := range subs {
		event := types.NewDataEvent(sub, point)

		if sub.WebhookURL != "" && d.webhook != nil {
			d.enqueue(Delivery{Channel: ChannelWebhook, Event: event, Sub: sub, Point: point})
		}
		if sub.Email != "" && d.email != nil {
			d.enqueue(Delivery{Channel: ChannelEmail, Event: event, Sub: sub, Point: point})
		}
		if sub.BroadcastTopic != "" && d.broker != nil {
			d.enqueue(Delivery{Channel: ChannelBroadcast, Event: event, Sub: sub, Point: point})
		}
	}
}

func (d *Dispatcher) enqueue(delivery Delivery) {
	if err := d.pool.Submit(delivery); err != nil {
		d.record(delivery.Channel, "dropped")
		d.logger.Warn("delivery dropped",
			"channel", delivery.Channel,
			"subscription_id", delivery.Sub.ID,
			"error", err)
	}
}

// deliver runs one delivery with its retry budget. Exhausting the budget
// drops the event with a log record; events are never persisted for later.
func (d *Dispatcher) deliver(ctx context.Context, delivery Delivery) error {
	err := retry.Do(ctx, d.retry, func() error {
		return d.sendOnce(ctx, delivery)
	})
	if err != nil {
		d.record(delivery.Channel, "failed")
		d.logger.Warn("delivery failed after retries, dropping event",
			"channel", delivery.Channel,
			"subscription_id", delivery.Sub.ID,
			"point_id", delivery.Event.Data.ID,
			"error", err)
		// Failure stays inside this delivery; the pool treats it as done.
		return nil
	}
	d.record(delivery.Channel, "success")
	return nil
}

func (d *Dispatcher) sendOnce(ctx context.Context, delivery Delivery) error {
	switch delivery.Channel {
	case ChannelWebhook:
		return d.webhook.Send(ctx, delivery.Sub.WebhookURL, delivery.Event)
	case ChannelEmail:
		subject, body := renderEmail(delivery.Event)
		return d.email.Send(ctx, delivery.Sub.Email, subject, body)
	case ChannelBroadcast:
		d.broker.Publish(broker.CategoryTopic(string(delivery.Point.Category)), delivery.Event)
		return nil
	default:
		return retry.NonRetryable(errors.ErrDeliveryFailed)
	}
}

func (d *Dispatcher) record(channel, status string) {
	if d.metrics != nil {
		d.metrics.RecordNotificationSent(channel, status)
	}
}
