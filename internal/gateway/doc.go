// Package gateway is the realtime edge: a websocket endpoint, a
// per-process subscription registry, and the fan-out loop that bridges
// publish-channel messages onto subscribed connections.
//
// # Overview
//
// The registry maps live connections to the topics they care about and
// back. It holds no durable state: a restart loses all subscriptions and
// clients re-subscribe on reconnect. Delivery to each connection is
// independent and best-effort; a slow or broken socket is dropped rather
// than allowed to block the others.
package gateway
