// Package eventbus is RCRT's in-process fan-out: every successful
// breadcrumb mutation is published once and offered to every subscriber
// whose tenant and selector match, in the order Publish is called.
//
// Durable subscribers (the Context Assembly Engine) block the publisher
// with bounded patience; an event a durable subscriber does not accept
// within that window is dropped for it and is not replayed later.
// Transient subscribers (SSE sessions) are dropped on backpressure and must
// reconnect and catch up through the store's list/search API.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/observability"
)

// Kind distinguishes a durable in-process subscriber from a transient push
// (SSE) subscriber for backpressure and metrics purposes.
type Kind string

const (
	KindDurable   Kind = "durable"
	KindTransient Kind = "transient"
)

// Subscription is a live registration on the bus. Call Events to drain it
// and Cancel to stop delivery.
type Subscription struct {
	id       string
	tenantID string
	selector breadcrumb.Selector
	kind     Kind
	ch       chan breadcrumb.Event
	done     chan struct{}
	once     sync.Once
}

// Events returns the channel events are delivered on. The channel is
// closed when the subscription is cancelled or disconnected for
// backpressure.
func (s *Subscription) Events() <-chan breadcrumb.Event { return s.ch }

// Cancel stops delivery and closes the channel. Safe to call more than
// once and concurrently with delivery.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Bus is the durable fan-out hub. The zero value is not usable; build one
// with New.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription

	// tenantSeq counts the events published for each tenant. Publish only
	// increments it; it does not check ordering.
	tenantSeq map[string]int64

	queueSize      int
	durablePatience time.Duration
	nextID          int64

	log     *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithQueueSize sets the bounded per-subscriber queue depth. Default 256.
func WithQueueSize(n int) Option { return func(b *Bus) { b.queueSize = n } }

// WithDurablePatience sets how long Publish blocks on a durable
// subscriber's full queue before giving up on that subscriber for this
// event. Default 2s.
func WithDurablePatience(d time.Duration) Option {
	return func(b *Bus) { b.durablePatience = d }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option { return func(b *Bus) { b.log = log } }

// WithMetrics attaches a metrics recorder. A nil Manager-sourced *Metrics
// is fine; every Record* method tolerates a nil receiver.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// New constructs a Bus ready to accept subscriptions and publishes.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:            make(map[string]*Subscription),
		tenantSeq:       make(map[string]int64),
		queueSize:       256,
		durablePatience: 2 * time.Second,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber scoped to tenantID, optionally
// filtered server-side by sel (a nil or zero-value selector matches
// everything). An empty tenantID subscribes across every tenant — used by
// process-wide internal consumers (the CAE) that are
// not scoped to any one tenant, never by a caller acting on a specific
// tenant's behalf. kind controls backpressure behavior: durable
// subscribers block the publisher up to durablePatience; transient
// subscribers are dropped immediately on a full queue.
func (b *Bus) Subscribe(tenantID string, sel breadcrumb.Selector, kind Kind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:       subID(b.nextID),
		tenantID: tenantID,
		selector: sel,
		kind:     kind,
		ch:       make(chan breadcrumb.Event, b.queueSize),
		done:     make(chan struct{}),
	}
	b.subs[sub.id] = sub
	return sub
}

func subID(n int64) string {
	const base = "sub-"
	return base + itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Unsubscribe removes sub from the bus and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()
	sub.Cancel()
}

// Publish delivers evt to every matching subscriber. Durable subscribers
// are given durablePatience to accept the event; if a durable subscriber's
// queue is still full after that, the event is dropped for that subscriber
// only and PublishFailed is logged — the caller's mutation has already
// committed and is never rolled back on account of bus delivery. Transient
// subscribers that can't accept immediately are disconnected so they can
// reconnect and replay via history.
func (b *Bus) Publish(ctx context.Context, evt breadcrumb.Event) {
	b.mu.Lock()
	b.tenantSeq[evt.TenantID]++
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.tenantID != "" && sub.tenantID != evt.TenantID {
			continue
		}
		if !sub.selector.Matches(evt) {
			continue
		}
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	b.metrics.RecordEventPublished(ctx, evt.Schema, string(evt.Op))

	for _, sub := range targets {
		b.deliver(ctx, sub, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, sub *Subscription, evt breadcrumb.Event) {
	select {
	case sub.ch <- evt:
		b.metrics.RecordEventDelivered(ctx, string(sub.kind))
		return
	case <-sub.done:
		return
	default:
	}

	if sub.kind == KindTransient {
		b.metrics.RecordEventDropped(ctx, string(sub.kind), "queue_full")
		b.log.Warn("eventbus: disconnecting slow transient subscriber",
			"subscriber_id", sub.id, "tenant_id", sub.tenantID)
		b.Unsubscribe(sub)
		return
	}

	timer := time.NewTimer(b.durablePatience)
	defer timer.Stop()
	select {
	case sub.ch <- evt:
		b.metrics.RecordEventDelivered(ctx, string(sub.kind))
	case <-sub.done:
	case <-ctx.Done():
	case <-timer.C:
		b.metrics.RecordEventDropped(ctx, string(sub.kind), "patience_exceeded")
		b.log.Error("eventbus: durable subscriber did not drain within patience window",
			"subscriber_id", sub.id, "tenant_id", sub.tenantID,
			"breadcrumb_id", evt.ID, "schema_name", evt.Schema)
	}
}

// SubscriberCount reports the current number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
