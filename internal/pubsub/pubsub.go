package pubsub

import "context"

// Handler receives one published message. topic is the concrete topic the
// message was published on, never the subscription pattern.
type Handler func(topic Topic, payload []byte)

// Bus is the publish channel contract shared by the in-process and AMQP
// implementations.
//
// Publish is best-effort fire-and-forget: per-topic FIFO order is preserved
// for a single producer, there is no cross-topic ordering, and failures are
// absorbed (logged and dropped) rather than returned, so the caller's write
// path never blocks on fan-out.
type Bus interface {
	Publish(ctx context.Context, topic Topic, payload []byte)

	// SubscribePattern registers h for every topic matching pattern. The
	// returned cancel function detaches the subscription.
	SubscribePattern(pattern Topic, h Handler) (cancel func(), err error)

	Close() error
}
