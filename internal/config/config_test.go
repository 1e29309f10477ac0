package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("default http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Storage != StorageMemory {
		t.Fatalf("default storage = %q", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "trackd.json")
	data := []byte(`{"httpAddr":":9090","storage":"postgres","databaseUrl":"postgres://localhost/trackd","locationRetentionDays":7}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("httpAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Storage != StoragePostgres {
		t.Fatalf("storage = %q", cfg.Storage)
	}
	if cfg.LocationRetentionDays != 7 {
		t.Fatalf("retention = %d", cfg.LocationRetentionDays)
	}
	// Fields absent from the file keep their defaults.
	if cfg.AMQPExchange != "trackd.location" {
		t.Fatalf("exchange = %q", cfg.AMQPExchange)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("TRACKD_HTTP_ADDR", ":7070")
	os.Setenv("TRACKD_STORAGE", "postgres")
	os.Setenv("TRACKD_DATABASE_URL", "postgres://db/trackd")
	os.Setenv("TRACKD_LOCATION_RETENTION_DAYS", "14")
	t.Cleanup(func() {
		os.Unsetenv("TRACKD_HTTP_ADDR")
		os.Unsetenv("TRACKD_STORAGE")
		os.Unsetenv("TRACKD_DATABASE_URL")
		os.Unsetenv("TRACKD_LOCATION_RETENTION_DAYS")
	})
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("env override addr: %q", cfg.HTTPAddr)
	}
	if cfg.Storage != StoragePostgres || cfg.DatabaseURL != "postgres://db/trackd" {
		t.Fatalf("env override storage: %q %q", cfg.Storage, cfg.DatabaseURL)
	}
	if cfg.LocationRetentionDays != 14 {
		t.Fatalf("env override retention: %d", cfg.LocationRetentionDays)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage = StoragePostgres
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres storage without databaseUrl must not validate")
	}
	cfg.DatabaseURL = "postgres://localhost/trackd"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.Storage = "bolt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown storage must not validate")
	}
}
