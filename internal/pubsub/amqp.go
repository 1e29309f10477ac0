package pubsub

import (
	"context"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/pkg/log"
)

// AMQP defaults
const (
	defaultExchange       = "trackd.location"
	defaultPublishTimeout = 250 * time.Millisecond
	defaultReconnectWait  = 2 * time.Second
)

// AMQPOptions configures the RabbitMQ-backed bus.
type AMQPOptions struct {
	URL      string
	Exchange string
	// PublishTimeout is the per-publish budget. A publish that cannot
	// complete within it is abandoned, not awaited, so ingestion throughput
	// is never coupled to broker latency.
	PublishTimeout time.Duration
	ReconnectWait  time.Duration
	Logger         log.Logger
}

type amqpSub struct {
	pattern   Topic
	handler   Handler
	cancelled bool
	mu        sync.Mutex
}

func (s *amqpSub) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *amqpSub) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// AMQPBus is a Bus over a RabbitMQ topic exchange. Colon-delimited topics
// are mapped to dot-delimited routing keys at this boundary, which makes
// the single-segment wildcard patterns native AMQP bindings.
//
// A background manager owns the connection: it dials, declares the
// exchange, re-establishes consumers after a broker restart, and backs off
// between attempts. Publishing while disconnected drops the message.
type AMQPBus struct {
	opts AMQPOptions

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel
	subs []*amqpSub

	closed    chan struct{}
	closeOnce sync.Once
	logger    log.Logger
}

// NewAMQPBus creates the bus and starts its connection manager. The broker
// being unreachable at start is not an error; the manager keeps retrying in
// the background and the bus drops publishes until connected.
func NewAMQPBus(opts AMQPOptions) *AMQPBus {
	if opts.Exchange == "" {
		opts.Exchange = defaultExchange
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = defaultReconnectWait
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	b := &AMQPBus{
		opts:   opts,
		closed: make(chan struct{}),
		logger: opts.Logger.WithComponent("pubsub.amqp"),
	}
	go b.manage()
	return b
}

func (b *AMQPBus) manage() {
	for {
		select {
		case <-b.closed:
			return
		default:
		}

		notify, err := b.connect()
		if err != nil {
			b.logger.Warn("broker unreachable, retrying",
				log.Err(err), log.Duration("wait", b.opts.ReconnectWait))
			select {
			case <-time.After(b.opts.ReconnectWait):
				continue
			case <-b.closed:
				return
			}
		}

		b.logger.Info("connected", log.Str("exchange", b.opts.Exchange))
		b.resubscribeAll()

		select {
		case reason := <-notify:
			b.clearConn()
			if reason != nil {
				b.logger.Warn("connection lost", log.Str("reason", reason.Reason))
			}
		case <-b.closed:
			b.clearConn()
			return
		}
	}
}

func (b *AMQPBus) connect() (chan *amqp.Error, error) {
	conn, err := amqp.Dial(b.opts.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(b.opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	notify := conn.NotifyClose(make(chan *amqp.Error, 1))
	b.mu.Lock()
	b.conn = conn
	b.ch = ch
	b.mu.Unlock()
	return notify, nil
}

func (b *AMQPBus) clearConn() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.ch = nil
	b.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

// Publish sends payload on topic. Transport failures are logged and
// dropped; the sample write already succeeded and must not be failed by
// fan-out.
func (b *AMQPBus) Publish(ctx context.Context, topic Topic, payload []byte) {
	b.mu.RLock()
	ch := b.ch
	b.mu.RUnlock()
	if ch == nil {
		metrics.PublishesDropped.Inc()
		b.logger.Warn("not connected, dropping publish", log.Str("topic", string(topic)))
		return
	}

	pctx, cancel := context.WithTimeout(ctx, b.opts.PublishTimeout)
	defer cancel()
	err := ch.PublishWithContext(pctx, b.opts.Exchange, routingKey(topic), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	if err != nil {
		metrics.PublishesDropped.Inc()
		b.logger.Warn("publish failed, dropping", log.Str("topic", string(topic)), log.Err(err))
		return
	}
	metrics.MessagesPublished.Inc()
}

// SubscribePattern binds a broker-named exclusive queue to pattern and
// dispatches deliveries to h. Subscriptions survive reconnects.
func (b *AMQPBus) SubscribePattern(pattern Topic, h Handler) (func(), error) {
	s := &amqpSub{pattern: pattern, handler: h}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	connected := b.conn != nil
	b.mu.Unlock()

	if connected {
		if err := b.consume(s); err != nil {
			return nil, err
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.cancel()
			b.mu.Lock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
	return cancel, nil
}

func (b *AMQPBus) resubscribeAll() {
	b.mu.RLock()
	subs := make([]*amqpSub, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, s := range subs {
		if err := b.consume(s); err != nil {
			b.logger.Error("resubscribe failed", log.Str("pattern", string(s.pattern)), log.Err(err))
		}
	}
}

func (b *AMQPBus) consume(s *amqpSub) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return amqp.ErrClosed
	}
	// Dedicated channel per consumer so a heavy subscription cannot starve
	// the publish channel.
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, routingKey(s.pattern), b.opts.Exchange, false, nil); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}
	go func() {
		// Ends when the channel closes; the manager re-subscribes after
		// reconnect.
		for d := range deliveries {
			if s.isCancelled() {
				_ = ch.Close()
				return
			}
			s.handler(topicFromRoutingKey(d.RoutingKey), d.Body)
		}
	}()
	return nil
}

// Close stops the manager and closes the connection.
func (b *AMQPBus) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	b.clearConn()
	return nil
}

func routingKey(t Topic) string { return strings.ReplaceAll(string(t), ":", ".") }

func topicFromRoutingKey(k string) Topic { return Topic(strings.ReplaceAll(k, ".", ":")) }
