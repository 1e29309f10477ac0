package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	serverrun "github.com/dropmate/trackd/internal/cmd/server"
	cfgpkg "github.com/dropmate/trackd/internal/config"
	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/storage/postgres"
	logpkg "github.com/dropmate/trackd/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trackd",
		Short: "trackd delivery tracking server CLI",
		Long:  "trackd ingests driver GPS samples, maintains shipment event history, and fans location updates out to realtime subscribers.",
	}

	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers file, env and flags, in that order.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if v, _ := cmd.Flags().GetString("http"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, _ := cmd.Flags().GetString("storage"); v != "" {
		cfg.Storage = v
	}
	if v, _ := cmd.Flags().GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v, _ := cmd.Flags().GetString("amqp-url"); v != "" {
		cfg.AMQPURL = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	return cfg, nil
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", os.Getenv("TRACKD_CONFIG"), "Path to JSON config file")
	cmd.Flags().String("http", "", "HTTP listen address")
	cmd.Flags().String("storage", "", "Storage backend: memory|postgres")
	cmd.Flags().String("database-url", "", "Postgres connection URL")
	cmd.Flags().String("amqp-url", "", "AMQP broker URL (empty runs the in-process bus)")
	cmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	cmd.Flags().String("log-format", "", "Log format: text|json")
}

func serverCmd() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the trackd server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	addConfigFlags(startCmd)
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete location samples and location events past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage != cfgpkg.StoragePostgres {
				return fmt.Errorf("sweep requires postgres storage, have %q", cfg.Storage)
			}
			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = cfg.LocationRetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention window not configured")
			}

			level, err := logpkg.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = logpkg.InfoLevel
			}
			logger := logpkg.NewLogger(logpkg.WithLevel(level))

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := postgres.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			locSvc := location.NewService(db.Locations(), logger)
			evSvc := events.NewService(db.Events(), logger)

			samples, err := locSvc.PurgeBefore(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("purge samples: %w", err)
			}
			evs, err := evSvc.CleanupLocationEvents(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("cleanup location events: %w", err)
			}
			logger.Info("sweep complete",
				logpkg.Time("cutoff", cutoff),
				logpkg.Int64("samples_deleted", samples),
				logpkg.Int64("location_events_deleted", evs))
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().Int("days", 0, "Retention window in days (overrides config)")
	return cmd
}
