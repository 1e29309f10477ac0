package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/shipment"
	"github.com/dropmate/trackd/internal/tracker"
	"github.com/dropmate/trackd/pkg/log"
)

// DriverController handles location ingestion, location queries, and the
// driver read surface.
type DriverController struct {
	tracker   *tracker.Service
	locations *location.Service
	shipments *shipment.Service
	logger    log.Logger
}

// NewDriverController creates a driver controller.
func NewDriverController(trk *tracker.Service, loc *location.Service, shp *shipment.Service, logger log.Logger) *DriverController {
	return &DriverController{
		tracker:   trk,
		locations: loc,
		shipments: shp,
		logger:    logger.WithComponent("http.drivers"),
	}
}

// RegisterRoutes registers driver routes with the given mux.
func (c *DriverController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/drivers/{id}/location", c.handleRecordLocation)
	mux.HandleFunc("GET /v1/drivers/{id}/location/latest", c.handleLatest)
	mux.HandleFunc("GET /v1/drivers/{id}/location/history", c.handleHistory)
	mux.HandleFunc("GET /v1/drivers", c.handleList)
	mux.HandleFunc("PATCH /v1/drivers/{id}/status", c.handleUpdateStatus)
}

type recordLocationReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

// handleRecordLocation runs the full ingestion pipeline. A 201 means the
// sample is durable; broadcast_to_shipments reports best-effort fan-out
// and may be zero even with active shipments.
func (c *DriverController) handleRecordLocation(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req recordLocationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	sample, broadcast, err := c.tracker.RecordAndBroadcast(r.Context(), driverID, *req.Latitude, *req.Longitude, req.Accuracy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeCreated(w, map[string]any{
		"sample":                 sample,
		"broadcast_to_shipments": broadcast,
	})
}

func (c *DriverController) handleLatest(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sample, err := c.locations.Latest(r.Context(), driverID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sample)
}

func (c *DriverController) handleHistory(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	opts := location.HistoryOptions{
		Limit: parseLimit(r.URL.Query().Get("limit")),
		Since: parseSince(r.URL.Query().Get("since")),
	}
	samples, err := c.locations.History(r.Context(), driverID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"locations": samples})
}

func (c *DriverController) handleList(w http.ResponseWriter, r *http.Request) {
	drivers, err := c.shipments.ListDrivers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"drivers": drivers})
}

type driverStatusReq struct {
	Status string `json:"status"`
}

func (c *DriverController) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req driverStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	d, err := c.shipments.UpdateDriverStatus(r.Context(), driverID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, d)
}
