package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("trajprep-test", viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "trajprep-test" {
		t.Errorf("expected service name trajprep-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.MapView.Zoom != 6 {
		t.Errorf("expected zoom 6, got %d", cfg.MapView.Zoom)
	}
	if cfg.Ingest.BatchSize != 5000 {
		t.Errorf("expected batch size 5000, got %d", cfg.Ingest.BatchSize)
	}
	if got := cfg.Database.DSN(); got != "postgres://trajprep:@localhost:5432/trajprep?sslmode=disable" {
		t.Errorf("unexpected DSN %s", got)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TRAJPREP_SERVER_PORT", "9090")
	t.Setenv("TRAJPREP_DATABASE_MAX_CONNS", "25")
	t.Setenv("TRAJPREP_MAPVIEW_ZOOM", "11")

	cfg, err := load("trajprep-test", viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Database.MaxConns)
	}
	if cfg.MapView.Zoom != 11 {
		t.Errorf("expected zoom 11, got %d", cfg.MapView.Zoom)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"server.port", "database.host", "nats.url", "valkey.addr", "ingest.batch_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_ZoomRange(t *testing.T) {
	cfg, err := load("trajprep-test", viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.MapView.Zoom = 25
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "mapview.zoom") {
		t.Errorf("expected zoom error, got %v", err)
	}
}
