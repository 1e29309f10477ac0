package controllers

import (
	"context"
	"net/http"

	"github.com/dropmate/trackd/internal/gateway"
)

// GeneralController handles health, the websocket endpoint and gateway
// stats.
type GeneralController struct {
	health func(context.Context) error
	gw     *gateway.Gateway
}

// NewGeneralController creates a general controller. health may be nil
// when the process has no backing store to check.
func NewGeneralController(health func(context.Context) error, gw *gateway.Gateway) *GeneralController {
	return &GeneralController{health: health, gw: gw}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/healthz", c.handleHealth)
	mux.HandleFunc("GET /v1/ws", c.gw.ServeWS)
	mux.HandleFunc("GET /v1/stats", c.handleStats)
}

// handleHealth returns 200 {"status":"ok"} when the store answers a ping,
// 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if c.health != nil {
		if err := c.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not_serving")
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStats returns the gateway's connection count and per-connection
// subscription sets.
func (c *GeneralController) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, c.gw.Stats())
}
