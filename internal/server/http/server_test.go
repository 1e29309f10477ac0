package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/gateway"
	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/pubsub"
	"github.com/dropmate/trackd/internal/shipment"
	"github.com/dropmate/trackd/internal/storage/memory"
	"github.com/dropmate/trackd/internal/tracker"
	"github.com/dropmate/trackd/pkg/log"
)

func newTestServer(t *testing.T) (*Server, *memory.DB) {
	t.Helper()
	db := memory.NewDB()
	logger := log.NewNop()
	bus := pubsub.NewMemoryBus(logger)
	t.Cleanup(func() { _ = bus.Close() })

	locSvc := location.NewService(db.Locations(), logger)
	evSvc := events.NewService(db.Events(), logger)
	shpSvc := shipment.NewService(db.Shipments(), evSvc, logger)
	trkSvc := tracker.NewService(locSvc, shpSvc, bus, logger)
	gw := gateway.New(bus, logger)
	if err := gw.Start(); err != nil {
		t.Fatalf("gateway start: %v", err)
	}
	t.Cleanup(gw.Stop)

	return New(Deps{
		Locations: locSvc,
		Events:    evSvc,
		Shipments: shpSvc,
		Tracker:   trkSvc,
		Gateway:   gw,
		Health:    db.Health,
		Logger:    logger,
	}), db
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestRecordLocationHandler(t *testing.T) {
	s, db := newTestServer(t)
	driverID := int64(7)
	db.AddShipment(domain.Shipment{TrackingNumber: "DM-5", Status: domain.StatusAssigned, DriverID: &driverID})

	w := doJSON(t, s, http.MethodPost, "/v1/drivers/7/location",
		`{"latitude":40.7128,"longitude":-74.0060,"accuracy":5.0}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Sample    domain.LocationSample `json:"sample"`
		Broadcast int                   `json:"broadcast_to_shipments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sample.ID == 0 {
		t.Fatal("sample not stored")
	}
	if resp.Broadcast != 1 {
		t.Fatalf("broadcast = %d, want 1", resp.Broadcast)
	}
}

func TestRecordLocationHandlerRejectsMissingCoords(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/drivers/7/location", `{"latitude":40.7}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestRecordLocationHandlerRejectsOutOfRange(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/drivers/7/location",
		`{"latitude":91,"longitude":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestLatestHandler(t *testing.T) {
	s, _ := newTestServer(t)

	if w := doJSON(t, s, http.MethodGet, "/v1/drivers/7/location/latest", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status before any sample: %d", w.Code)
	}

	doJSON(t, s, http.MethodPost, "/v1/drivers/7/location", `{"latitude":1,"longitude":2}`)
	w := doJSON(t, s, http.MethodGet, "/v1/drivers/7/location/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var sample domain.LocationSample
	if err := json.Unmarshal(w.Body.Bytes(), &sample); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sample.Latitude != 1 || sample.Longitude != 2 {
		t.Fatalf("sample = %+v", sample)
	}
}

func TestHistoryHandlerLimit(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < 5; i++ {
		doJSON(t, s, http.MethodPost, "/v1/drivers/7/location", `{"latitude":1,"longitude":2}`)
	}
	w := doJSON(t, s, http.MethodGet, "/v1/drivers/7/location/history?limit=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var resp struct {
		Locations []domain.LocationSample `json:"locations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Locations) != 3 {
		t.Fatalf("history len = %d, want 3", len(resp.Locations))
	}
}

func TestCreateShipmentHandler(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/shipments", `{}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: %d, body %s", w.Code, w.Body.String())
	}
	var sh domain.Shipment
	if err := json.Unmarshal(w.Body.Bytes(), &sh); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sh.TrackingNumber == "" || sh.Status != domain.StatusPending {
		t.Fatalf("shipment = %+v", sh)
	}
}

func TestShipmentHandlers(t *testing.T) {
	s, db := newTestServer(t)
	sh := db.AddShipment(domain.Shipment{TrackingNumber: "DM-7788", Status: domain.StatusPending})

	w := doJSON(t, s, http.MethodGet, "/v1/shipments", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/v1/shipments/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/v1/shipments/track/DM-7788", "")
	if w.Code != http.StatusOK {
		t.Fatalf("track status: %d", w.Code)
	}
	var got domain.Shipment
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != sh.ID {
		t.Fatalf("tracked id = %d, want %d", got.ID, sh.ID)
	}

	if w := doJSON(t, s, http.MethodGet, "/v1/shipments/999", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing shipment status: %d", w.Code)
	}
}

func TestAssignDriverAndStatusHandlers(t *testing.T) {
	s, db := newTestServer(t)
	db.AddShipment(domain.Shipment{TrackingNumber: "DM-1", Status: domain.StatusPending})

	w := doJSON(t, s, http.MethodPost, "/v1/shipments/1/assign-driver", `{"driver_id":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign status: %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPatch, "/v1/shipments/1/status", `{"status":"in_transit"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status: %d, body %s", w.Code, w.Body.String())
	}

	// A no-op transition maps to 409.
	w = doJSON(t, s, http.MethodPatch, "/v1/shipments/1/status", `{"status":"in_transit"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("no-op transition status: %d", w.Code)
	}

	// Unknown status maps to 400.
	w = doJSON(t, s, http.MethodPatch, "/v1/shipments/1/status", `{"status":"lost"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", w.Code)
	}

	// The full transition history is on the events endpoint.
	w = doJSON(t, s, http.MethodGet, "/v1/shipments/1/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("events status: %d", w.Code)
	}
	var resp struct {
		Events []domain.ShipmentEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("events len = %d, want 2", len(resp.Events))
	}
}

func TestHistoryProjectionHandler(t *testing.T) {
	s, db := newTestServer(t)
	db.AddShipment(domain.Shipment{TrackingNumber: "DM-1", Status: domain.StatusPending})
	doJSON(t, s, http.MethodPost, "/v1/shipments/1/assign-driver", `{"driver_id":7}`)

	w := doJSON(t, s, http.MethodGet, "/v1/shipments/1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status: %d", w.Code)
	}
	var resp struct {
		History []domain.CustomerEvent `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.History) != 1 || resp.History[0].Type != domain.EventDriverAllocated {
		t.Fatalf("history = %+v, want one driver_allocated", resp.History)
	}
}

func TestShipmentLocationHandler(t *testing.T) {
	s, db := newTestServer(t)
	d := db.AddDriver(domain.Driver{Name: "Dana", VehicleType: "bike", Status: "available"})
	db.AddShipment(domain.Shipment{TrackingNumber: "DM-1", Status: domain.StatusInTransit, DriverID: &d.ID})
	doJSON(t, s, http.MethodPost, "/v1/drivers/1/location", `{"latitude":40.7,"longitude":-74.0}`)

	w := doJSON(t, s, http.MethodGet, "/v1/shipments/1/location", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var loc domain.ShipmentLocation
	if err := json.Unmarshal(w.Body.Bytes(), &loc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc.DriverName == nil || *loc.DriverName != "Dana" {
		t.Fatalf("driver name = %v", loc.DriverName)
	}
	if loc.CurrentLocation == nil {
		t.Fatal("current location missing")
	}
}

func TestDriversHandlers(t *testing.T) {
	s, db := newTestServer(t)
	db.AddDriver(domain.Driver{Name: "Dana", VehicleType: "bike", Status: "available"})

	w := doJSON(t, s, http.MethodGet, "/v1/drivers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPatch, "/v1/drivers/1/status", `{"status":"busy"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status: %d", w.Code)
	}
	var d domain.Driver
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Status != "busy" {
		t.Fatalf("driver status = %q, want busy", d.Status)
	}
}

func TestStatsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/v1/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var stats gateway.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Connections != 0 {
		t.Fatalf("connections = %d, want 0", stats.Connections)
	}
}

func TestMetricsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}
