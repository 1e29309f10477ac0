package gateway

import (
	"sync"

	"github.com/dropmate/trackd/internal/pubsub"
)

// Registry tracks which connections are subscribed to which topics. All
// methods are safe for concurrent use; add, remove and lookup each hold
// the lock as one discipline so readers never observe a half-applied
// mutation.
type Registry struct {
	mu      sync.RWMutex
	byTopic map[pubsub.Topic]map[string]struct{}
	byConn  map[string]map[pubsub.Topic]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byTopic: make(map[pubsub.Topic]map[string]struct{}),
		byConn:  make(map[string]map[pubsub.Topic]struct{}),
	}
}

// Subscribe adds a (connection, topic) pair. Idempotent. Subscribing to a
// topic nothing has published on yet is legal; there is no existence check
// against the shipment or driver tables.
func (r *Registry) Subscribe(connID string, topic pubsub.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byTopic[topic] == nil {
		r.byTopic[topic] = make(map[string]struct{})
	}
	r.byTopic[topic][connID] = struct{}{}
	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[pubsub.Topic]struct{})
	}
	r.byConn[connID][topic] = struct{}{}
}

// Unsubscribe removes a (connection, topic) pair. Idempotent.
func (r *Registry) Unsubscribe(connID string, topic pubsub.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID, topic)
}

// DropConnection removes every subscription the connection holds in one
// critical section. Callers must invoke it on every disconnect, graceful
// or not, so entries cannot leak.
func (r *Registry) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic := range r.byConn[connID] {
		r.removeLocked(connID, topic)
	}
}

func (r *Registry) removeLocked(connID string, topic pubsub.Topic) {
	if subs := r.byTopic[topic]; subs != nil {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.byTopic, topic)
		}
	}
	if topics := r.byConn[connID]; topics != nil {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// SubscribersOf returns the ids of the connections subscribed to topic.
// The slice is a copy; callers may iterate it without holding any lock.
func (r *Registry) SubscribersOf(topic pubsub.Topic) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.byTopic[topic]
	out := make([]string, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}

// TopicsOf returns the topics a connection is subscribed to.
func (r *Registry) TopicsOf(connID string) []pubsub.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := r.byConn[connID]
	out := make([]pubsub.Topic, 0, len(topics))
	for t := range topics {
		out = append(out, t)
	}
	return out
}

// Snapshot returns a copy of every connection's subscription set, for the
// stats endpoint.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.byConn))
	for id, topics := range r.byConn {
		ts := make([]string, 0, len(topics))
		for t := range topics {
			ts = append(ts, string(t))
		}
		out[id] = ts
	}
	return out
}

// Len returns the number of connections holding at least one subscription.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
