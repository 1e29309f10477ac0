package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/shipment"
	"github.com/dropmate/trackd/pkg/log"
)

// ShipmentController handles the shipment read surface, the event log
// projections, and the status-mutating glue.
type ShipmentController struct {
	shipments *shipment.Service
	events    *events.Service
	logger    log.Logger
}

// NewShipmentController creates a shipment controller.
func NewShipmentController(shp *shipment.Service, evs *events.Service, logger log.Logger) *ShipmentController {
	return &ShipmentController{
		shipments: shp,
		events:    evs,
		logger:    logger.WithComponent("http.shipments"),
	}
}

// RegisterRoutes registers shipment routes with the given mux.
func (c *ShipmentController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/shipments", c.handleList)
	mux.HandleFunc("POST /v1/shipments", c.handleCreate)
	mux.HandleFunc("GET /v1/shipments/{id}", c.handleGet)
	mux.HandleFunc("GET /v1/shipments/track/{trackingNumber}", c.handleTrack)
	mux.HandleFunc("GET /v1/shipments/{id}/location", c.handleLocation)
	mux.HandleFunc("GET /v1/shipments/{id}/events", c.handleEvents)
	mux.HandleFunc("GET /v1/shipments/{id}/history", c.handleHistory)
	mux.HandleFunc("POST /v1/shipments/{id}/assign-driver", c.handleAssignDriver)
	mux.HandleFunc("PATCH /v1/shipments/{id}/status", c.handleUpdateStatus)
}

func (c *ShipmentController) handleList(w http.ResponseWriter, r *http.Request) {
	shipments, err := c.shipments.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"shipments": shipments})
}

type createShipmentReq struct {
	OrderID     *int64 `json:"order_id"`
	ActorUserID *int64 `json:"actor_user_id"`
}

func (c *ShipmentController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createShipmentReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}
	sh, err := c.shipments.Create(r.Context(), req.OrderID, req.ActorUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeCreated(w, sh)
}

func (c *ShipmentController) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sh, err := c.shipments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sh)
}

func (c *ShipmentController) handleTrack(w http.ResponseWriter, r *http.Request) {
	sh, err := c.shipments.TrackByNumber(r.Context(), r.PathValue("trackingNumber"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sh)
}

// handleLocation returns the shipment merged with driver metadata and the
// driver's current location. No driver assigned is not an error: the
// current_location field is simply absent.
func (c *ShipmentController) handleLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loc, err := c.shipments.GetLocation(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, loc)
}

func (c *ShipmentController) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	include, _ := strconv.ParseBool(r.URL.Query().Get("include_location_updates"))
	list, err := c.events.ListFor(r.Context(), id, events.ListOptions{
		Limit:                  parseLimit(r.URL.Query().Get("limit")),
		IncludeLocationUpdates: include,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"events": list})
}

// handleHistory returns the customer-visible projection, never raw event
// rows.
func (c *ShipmentController) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := c.events.CustomerVisible(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"history": list})
}

type assignDriverReq struct {
	DriverID    int64  `json:"driver_id"`
	ActorUserID *int64 `json:"actor_user_id"`
}

func (c *ShipmentController) handleAssignDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignDriverReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.DriverID <= 0 {
		writeError(w, http.StatusBadRequest, "driver_id is required")
		return
	}
	sh, err := c.shipments.AssignDriver(r.Context(), id, req.DriverID, req.ActorUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sh)
}

type shipmentStatusReq struct {
	Status      string `json:"status"`
	ActorUserID *int64 `json:"actor_user_id"`
}

func (c *ShipmentController) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req shipmentStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sh, err := c.shipments.UpdateStatus(r.Context(), id, domain.Status(req.Status), req.ActorUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sh)
}
