package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

func TestPublish_DeliversToMatchingTenantOnly(t *testing.T) {
	b := New()
	subA := b.Subscribe("tenant-a", breadcrumb.Selector{}, KindTransient)
	subB := b.Subscribe("tenant-b", breadcrumb.Selector{}, KindTransient)
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	b.Publish(context.Background(), breadcrumb.Event{TenantID: "tenant-a", ID: "1", Schema: "note.v1"})

	select {
	case evt := <-subA.Events():
		if evt.ID != "1" {
			t.Errorf("unexpected event id %q", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected tenant-a subscriber to receive the event")
	}

	select {
	case evt, ok := <-subB.Events():
		if ok {
			t.Errorf("tenant-b should not receive tenant-a's event, got %v", evt)
		}
	case <-time.After(50 * time.Millisecond):
		// no delivery within the window: correct, cross-tenant isolation holds.
	}
}

func TestSubscribe_EmptyTenantIsWildcard(t *testing.T) {
	b := New()
	sub := b.Subscribe("", breadcrumb.Selector{}, KindDurable)
	defer b.Unsubscribe(sub)

	b.Publish(context.Background(), breadcrumb.Event{TenantID: "tenant-a", ID: "1"})
	b.Publish(context.Background(), breadcrumb.Event{TenantID: "tenant-b", ID: "2"})

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub.Events():
			seen[evt.ID] = true
		case <-time.After(time.Second):
			t.Fatal("expected wildcard subscriber to see both tenants' events")
		}
	}
	if !seen["1"] || !seen["2"] {
		t.Errorf("seen = %v, want both 1 and 2", seen)
	}
}

func TestSelectorFiltersServerSide(t *testing.T) {
	b := New()
	sub := b.Subscribe("tenant-a", breadcrumb.Selector{SchemaName: "user.message.v1"}, KindTransient)
	defer b.Unsubscribe(sub)

	b.Publish(context.Background(), breadcrumb.Event{TenantID: "tenant-a", ID: "1", Schema: "tool.response.v1"})
	b.Publish(context.Background(), breadcrumb.Event{TenantID: "tenant-a", ID: "2", Schema: "user.message.v1"})

	select {
	case evt := <-sub.Events():
		if evt.ID != "2" {
			t.Errorf("expected only the matching-schema event, got %q", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the matching event to be delivered")
	}

	select {
	case evt, ok := <-sub.Events():
		if ok {
			t.Errorf("expected no further events, got %v", evt)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransientSubscriber_DisconnectedOnBackpressure(t *testing.T) {
	b := New(WithQueueSize(1))
	sub := b.Subscribe("tenant-a", breadcrumb.Selector{}, KindTransient)

	ctx := context.Background()
	b.Publish(ctx, breadcrumb.Event{TenantID: "tenant-a", ID: "1"})
	// Second publish overflows the bounded queue of 1 and should disconnect
	// the slow transient subscriber rather than block the publisher.
	b.Publish(ctx, breadcrumb.Event{TenantID: "tenant-a", ID: "2"})

	if b.SubscriberCount() != 0 {
		t.Errorf("expected the transient subscriber to be dropped, subscriber count = %d", b.SubscriberCount())
	}
}

func TestDurableSubscriber_BlocksPublisherUpToPatience(t *testing.T) {
	b := New(WithQueueSize(1), WithDurablePatience(50*time.Millisecond))
	sub := b.Subscribe("tenant-a", breadcrumb.Selector{}, KindDurable)
	defer b.Unsubscribe(sub)

	ctx := context.Background()
	b.Publish(ctx, breadcrumb.Event{TenantID: "tenant-a", ID: "1"})

	start := time.Now()
	b.Publish(ctx, breadcrumb.Event{TenantID: "tenant-a", ID: "2"})
	elapsed := time.Since(start)

	if elapsed < 40*time.Millisecond {
		t.Errorf("expected Publish to wait roughly the patience window, took %v", elapsed)
	}
	// The durable subscriber is still registered even though the second
	// event was dropped for it; the write path is never rolled back.
	if b.SubscriberCount() != 1 {
		t.Errorf("durable subscriber must remain subscribed, count = %d", b.SubscriberCount())
	}
}

func TestCancel_StopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("tenant-a", breadcrumb.Selector{}, KindTransient)
	sub.Cancel()
	sub.Cancel() // safe to call twice

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected the channel to be closed after Cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("expected the channel to report closed promptly")
	}
}
