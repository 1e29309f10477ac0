package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr string `json:"httpAddr"`

	Storage     string `json:"storage"`
	DatabaseURL string `json:"databaseUrl"`

	AMQPURL      string `json:"amqpUrl"`
	AMQPExchange string `json:"amqpExchange"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`

	LocationRetentionDays int `json:"locationRetentionDays"`
	GatewaySendBuffer     int `json:"gatewaySendBuffer"`
}

// Default returns built-in defaults: in-memory storage and in-process bus,
// so a bare `trackd server start` runs with no external services.
func Default() Config {
	return Config{
		HTTPAddr:              ":8080",
		Storage:               StorageMemory,
		AMQPExchange:          "trackd.location",
		LogLevel:              "info",
		LogFormat:             "text",
		LocationRetentionDays: 30,
		GatewaySendBuffer:     64,
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that cannot be expressed as
// defaults.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("storage %q requires databaseUrl", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.LocationRetentionDays < 0 {
		return fmt.Errorf("locationRetentionDays must not be negative")
	}
	return nil
}
