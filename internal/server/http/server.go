package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/gateway"
	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/server/http/controllers"
	"github.com/dropmate/trackd/internal/shipment"
	"github.com/dropmate/trackd/internal/tracker"
	"github.com/dropmate/trackd/pkg/log"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Locations *location.Service
	Events    *events.Service
	Shipments *shipment.Service
	Tracker   *tracker.Service
	Gateway   *gateway.Gateway
	Health    func(context.Context) error
	Logger    log.Logger
}

type Server struct {
	srv *http.Server
	lis net.Listener
}

// New builds the server and registers all routes.
func New(deps Deps) *Server {
	mux := http.NewServeMux()

	controllers.NewGeneralController(deps.Health, deps.Gateway).RegisterRoutes(mux)
	controllers.NewDriverController(deps.Tracker, deps.Locations, deps.Shipments, deps.Logger).RegisterRoutes(mux)
	controllers.NewShipmentController(deps.Shipments, deps.Events, deps.Logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{srv: &http.Server{Handler: cors(mux)}}
}

// ListenAndServe serves until ctx is cancelled, then shuts down with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
