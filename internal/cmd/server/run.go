package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dropmate/trackd/internal/config"
	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/gateway"
	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/internal/pubsub"
	httpserver "github.com/dropmate/trackd/internal/server/http"
	"github.com/dropmate/trackd/internal/shipment"
	"github.com/dropmate/trackd/internal/storage/memory"
	"github.com/dropmate/trackd/internal/storage/postgres"
	"github.com/dropmate/trackd/internal/tracker"
	"github.com/dropmate/trackd/pkg/log"
)

// Options carries everything Run needs beyond the loaded config.
type Options struct {
	Config config.Config
}

// Run starts the trackd server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	log.RedirectStdLog(logger)
	metrics.Register()

	logger.Info("starting trackd server",
		log.Str("http", cfg.HTTPAddr),
		log.Str("storage", cfg.Storage),
		log.Bool("amqp", cfg.AMQPURL != ""))

	// Storage
	var (
		locStore location.Store
		evStore  events.Store
		shpStore shipment.Store
		health   func(context.Context) error
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.Open(sctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		locStore, evStore, shpStore = db.Locations(), db.Events(), db.Shipments()
		health = db.Health
	default:
		db := memory.NewDB()
		locStore, evStore, shpStore = db.Locations(), db.Events(), db.Shipments()
		health = db.Health
	}

	// Publish channel
	var bus pubsub.Bus
	if cfg.AMQPURL != "" {
		bus = pubsub.NewAMQPBus(pubsub.AMQPOptions{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Logger:   logger,
		})
	} else {
		bus = pubsub.NewMemoryBus(logger)
	}
	defer bus.Close()

	// Services
	locSvc := location.NewService(locStore, logger)
	evSvc := events.NewService(evStore, logger)
	shpSvc := shipment.NewService(shpStore, evSvc, logger)
	trkSvc := tracker.NewService(locSvc, shpSvc, bus, logger)

	gw := gateway.New(bus, logger, gateway.WithSendBuffer(cfg.GatewaySendBuffer))
	if err := gw.Start(); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}
	defer gw.Stop()

	srv := httpserver.New(httpserver.Deps{
		Locations: locSvc,
		Events:    evSvc,
		Shipments: shpSvc,
		Tracker:   trkSvc,
		Gateway:   gw,
		Health:    health,
		Logger:    logger,
	})
	defer srv.Close()

	return srv.ListenAndServe(sctx, cfg.HTTPAddr)
}

func buildLogger(cfg config.Config) (log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := log.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(log.WithLevel(level), log.WithFormat(format)), nil
}
