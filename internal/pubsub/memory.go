package pubsub

import (
	"context"
	"sync"

	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/pkg/log"
)

const defaultSubscriberBuffer = 256

type memoryMessage struct {
	topic   Topic
	payload []byte
}

type memorySub struct {
	pattern Topic
	handler Handler
	ch      chan memoryMessage
	done    chan struct{}
}

// MemoryBus is the in-process Bus. Each subscription drains its own buffered
// queue on a dedicated goroutine, so a slow handler never blocks Publish or
// other subscriptions; when a queue fills, messages for that subscription
// are dropped and counted.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   []*memorySub
	closed bool
	buf    int
	logger log.Logger
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus(logger log.Logger) *MemoryBus {
	return &MemoryBus{buf: defaultSubscriberBuffer, logger: logger.WithComponent("pubsub.memory")}
}

// Publish enqueues payload for every subscription matching topic. Enqueues
// happen in call order under the lock, which preserves per-topic FIFO for a
// single producer.
func (b *MemoryBus) Publish(_ context.Context, topic Topic, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if _, ok := Match(s.pattern, topic); !ok {
			continue
		}
		select {
		case s.ch <- memoryMessage{topic: topic, payload: payload}:
			metrics.MessagesPublished.Inc()
		default:
			metrics.PublishesDropped.Inc()
			b.logger.Warn("subscriber queue full, dropping message",
				log.Str("topic", string(topic)), log.Str("pattern", string(s.pattern)))
		}
	}
}

// SubscribePattern registers h for topics matching pattern.
func (b *MemoryBus) SubscribePattern(pattern Topic, h Handler) (func(), error) {
	s := &memorySub{pattern: pattern, handler: h, ch: make(chan memoryMessage, b.buf), done: make(chan struct{})}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case m := <-s.ch:
				s.handler(m.topic, m.payload)
			case <-s.done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(s.done)
		})
	}
	return cancel, nil
}

// Close detaches all subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.done)
	}
	b.subs = nil
	return nil
}
