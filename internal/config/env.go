package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TRACKD_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TRACKD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("TRACKD_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("TRACKD_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TRACKD_AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("TRACKD_AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}
	if v := os.Getenv("TRACKD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRACKD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TRACKD_LOCATION_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LocationRetentionDays = n
		}
	}
	if v := os.Getenv("TRACKD_GATEWAY_SEND_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GatewaySendBuffer = n
		}
	}
}
