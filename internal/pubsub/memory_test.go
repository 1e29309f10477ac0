package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropmate/trackd/pkg/log"
)

type recorder struct {
	mu     sync.Mutex
	topics []Topic
	bodies []string
}

func (r *recorder) handler() Handler {
	return func(topic Topic, payload []byte) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.topics = append(r.topics, topic)
		r.bodies = append(r.bodies, string(payload))
	}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		got := len(r.topics)
		r.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deliveries", n)
}

func (r *recorder) snapshot() ([]Topic, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Topic(nil), r.topics...), append([]string(nil), r.bodies...)
}

func newBusForTest(t *testing.T) *MemoryBus {
	t.Helper()
	b := NewMemoryBus(log.NewNop())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestExactTopicDelivery(t *testing.T) {
	b := newBusForTest(t)
	rec := &recorder{}
	if _, err := b.SubscribePattern("shipment:42:location", rec.handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Publish(context.Background(), ShipmentTopic(42), []byte("a"))
	b.Publish(context.Background(), ShipmentTopic(43), []byte("b"))

	rec.wait(t, 1)
	time.Sleep(20 * time.Millisecond)
	topics, bodies := rec.snapshot()
	if len(topics) != 1 || topics[0] != "shipment:42:location" || bodies[0] != "a" {
		t.Fatalf("unexpected deliveries: %v %v", topics, bodies)
	}
}

func TestWildcardPatternCapture(t *testing.T) {
	b := newBusForTest(t)
	rec := &recorder{}
	if _, err := b.SubscribePattern(DriverPattern, rec.handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Publish(context.Background(), DriverTopic(7), []byte("x"))
	b.Publish(context.Background(), ShipmentTopic(7), []byte("y"))

	rec.wait(t, 1)
	time.Sleep(20 * time.Millisecond)
	topics, _ := rec.snapshot()
	if len(topics) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(topics))
	}
	if capture, ok := Match(DriverPattern, topics[0]); !ok || capture != "7" {
		t.Fatalf("wildcard capture = %q, ok=%v", capture, ok)
	}
}

func TestPerTopicFIFO(t *testing.T) {
	b := newBusForTest(t)
	rec := &recorder{}
	if _, err := b.SubscribePattern(DriverPattern, rec.handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	const n = 100
	for i := 0; i < n; i++ {
		b.Publish(context.Background(), DriverTopic(7), []byte{byte(i)})
	}
	rec.wait(t, n)

	_, bodies := rec.snapshot()
	for i := 0; i < n; i++ {
		if bodies[i][0] != byte(i) {
			t.Fatalf("out of order at %d: got %d", i, bodies[i][0])
		}
	}
}

func TestCancelDetaches(t *testing.T) {
	b := newBusForTest(t)
	rec := &recorder{}
	cancel, err := b.SubscribePattern(DriverPattern, rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel() // idempotent

	b.Publish(context.Background(), DriverTopic(7), []byte("x"))
	time.Sleep(30 * time.Millisecond)
	topics, _ := rec.snapshot()
	if len(topics) != 0 {
		t.Fatalf("delivery after cancel: %v", topics)
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	b := NewMemoryBus(log.NewNop())
	rec := &recorder{}
	if _, err := b.SubscribePattern(DriverPattern, rec.handler()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = b.Close()
	b.Publish(context.Background(), DriverTopic(7), []byte("x"))
	time.Sleep(20 * time.Millisecond)
	topics, _ := rec.snapshot()
	if len(topics) != 0 {
		t.Fatalf("delivery after close: %v", topics)
	}
}
