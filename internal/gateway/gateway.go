package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/internal/pubsub"
	"github.com/dropmate/trackd/pkg/id"
	"github.com/dropmate/trackd/pkg/log"
)

// DefaultSendBuffer is the per-connection outbound queue depth. A
// connection whose queue is full is dropped rather than allowed to slow
// the delivery loop.
const DefaultSendBuffer = 64

// clientMessage is what a websocket client sends.
type clientMessage struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// serverMessage is what the gateway pushes. Data carries the published
// payload verbatim.
type serverMessage struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Gateway bridges the publish channel onto websocket connections. It owns
// the registry and the send queue of every live connection.
type Gateway struct {
	bus    pubsub.Bus
	reg    *Registry
	logger log.Logger
	ids    *id.Generator

	upgrader websocket.Upgrader
	sendBuf  int

	mu      sync.Mutex
	conns   map[string]*conn
	cancels []func()
}

type conn struct {
	id   string
	ws   *websocket.Conn
	send chan serverMessage
	once sync.Once
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSendBuffer overrides the per-connection queue depth.
func WithSendBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuf = n
		}
	}
}

// New creates a Gateway. Call Start before serving connections.
func New(bus pubsub.Bus, logger log.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		bus:    bus,
		reg:    NewRegistry(),
		logger: logger.WithComponent("gateway"),
		ids:    id.NewGenerator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuf: DefaultSendBuffer,
		conns:   make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start subscribes the gateway to the driver and shipment location
// patterns on the bus.
func (g *Gateway) Start() error {
	for _, pattern := range []pubsub.Topic{pubsub.DriverPattern, pubsub.ShipmentPattern} {
		cancel, err := g.bus.SubscribePattern(pattern, g.route)
		if err != nil {
			g.Stop()
			return err
		}
		g.mu.Lock()
		g.cancels = append(g.cancels, cancel)
		g.mu.Unlock()
	}
	return nil
}

// Stop detaches the bus subscriptions and closes every connection.
func (g *Gateway) Stop() {
	g.mu.Lock()
	cancels := g.cancels
	g.cancels = nil
	conns := make([]*conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	for _, c := range conns {
		g.drop(c)
	}
}

// route delivers one published message to every connection subscribed to
// its topic. Each delivery is an enqueue onto the connection's buffered
// queue; a full queue marks the connection slow and drops it.
func (g *Gateway) route(topic pubsub.Topic, payload []byte) {
	kind, _, ok := topic.Parse()
	if !ok {
		return
	}
	msgType := "driver_location_updated"
	if kind == pubsub.KindShipment {
		msgType = "shipment_location_updated"
	}
	msg := serverMessage{Type: msgType, Data: json.RawMessage(payload)}

	// Enqueue under the lock so a concurrent drop cannot close a queue
	// between the lookup and the send. Slow connections are collected and
	// dropped after the lock is released.
	var slow []*conn
	g.mu.Lock()
	for _, connID := range g.reg.SubscribersOf(topic) {
		c := g.conns[connID]
		if c == nil {
			continue
		}
		select {
		case c.send <- msg:
			metrics.GatewayDeliveries.Inc()
		default:
			metrics.GatewayDeliveriesDropped.Inc()
			slow = append(slow, c)
		}
	}
	g.mu.Unlock()
	for _, c := range slow {
		g.logger.Warn("dropping slow connection", log.Str("conn_id", c.id), log.Str("topic", string(topic)))
		g.drop(c)
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", log.Err(err))
		return
	}
	c := &conn{
		id:   g.ids.Next().String(),
		ws:   ws,
		send: make(chan serverMessage, g.sendBuf),
	}
	g.mu.Lock()
	g.conns[c.id] = c
	c.send <- serverMessage{Type: "connected", ConnectionID: c.id}
	g.mu.Unlock()
	metrics.GatewayConnections.Inc()
	g.logger.Debug("connection open", log.Str("conn_id", c.id))

	go g.writePump(c)
	g.readLoop(c)
}

// readLoop consumes client subscribe/unsubscribe messages until the
// socket closes, then drops the connection.
func (g *Gateway) readLoop(c *conn) {
	defer g.drop(c)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.logger.Debug("bad client message", log.Str("conn_id", c.id), log.Err(err))
			continue
		}
		switch msg.Type {
		case "subscribe:driver":
			g.reg.Subscribe(c.id, pubsub.DriverTopic(msg.ID))
		case "subscribe:shipment":
			g.reg.Subscribe(c.id, pubsub.ShipmentTopic(msg.ID))
		case "unsubscribe:driver":
			g.reg.Unsubscribe(c.id, pubsub.DriverTopic(msg.ID))
		case "unsubscribe:shipment":
			g.reg.Unsubscribe(c.id, pubsub.ShipmentTopic(msg.ID))
		default:
			g.logger.Debug("unknown client message type", log.Str("conn_id", c.id), log.Str("type", msg.Type))
		}
	}
}

// writePump serializes queued messages onto the socket. It is the only
// writer; closing the send channel ends it.
func (g *Gateway) writePump(c *conn) {
	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			g.drop(c)
			return
		}
	}
}

// drop removes the connection from registry and conn table, closes the
// send queue and the socket. Safe to call more than once.
func (g *Gateway) drop(c *conn) {
	c.once.Do(func() {
		g.mu.Lock()
		delete(g.conns, c.id)
		close(c.send)
		g.mu.Unlock()
		g.reg.DropConnection(c.id)
		_ = c.ws.Close()
		metrics.GatewayConnections.Dec()
		g.logger.Debug("connection closed", log.Str("conn_id", c.id))
	})
}

// Stats describes the gateway's live state.
type Stats struct {
	Connections   int                 `json:"connections"`
	Subscriptions map[string][]string `json:"subscriptions"`
}

// Stats returns the current connection count and per-connection
// subscription sets.
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	n := len(g.conns)
	g.mu.Unlock()
	return Stats{Connections: n, Subscriptions: g.reg.Snapshot()}
}

// Registry exposes the gateway's registry, for tests and the stats
// surface.
func (g *Gateway) Registry() *Registry { return g.reg }
