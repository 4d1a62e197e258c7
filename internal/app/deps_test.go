package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/services/ipinfo"
)

func TestNewDepsWithoutBackend(t *testing.T) {
	t.Parallel()

	loaded, err := catalog.NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := NewDeps(DefaultConfig(), loaded)
	defer d.Close()

	if len(d.Aggregator.Server) != 0 {
		t.Fatalf("server path should be disabled without backend")
	}
	if len(d.Aggregator.Local) != 4 || d.Runner.Concurrency != 16 {
		t.Fatalf("unexpected wiring: %+v", d.Aggregator)
	}
	if _, ok := d.Resolver.Locator.(*ipinfo.HTTPLocator); !ok {
		t.Fatalf("default locator should be http, got %T", d.Resolver.Locator)
	}
	if len(d.Warnings) == 0 || !strings.Contains(d.Warnings[0], "backend") {
		t.Fatalf("warnings=%v", d.Warnings)
	}
}

func TestNewDepsFallsBackWhenGeoIPMissing(t *testing.T) {
	t.Parallel()

	loaded, err := catalog.NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BackendURL = "http://backend.example:8787"
	cfg.GeoIPCityDB = filepath.Join(t.TempDir(), "missing.mmdb")
	d := NewDeps(cfg, loaded)
	defer d.Close()

	if _, ok := d.Resolver.Locator.(*ipinfo.HTTPLocator); !ok {
		t.Fatalf("expected http fallback, got %T", d.Resolver.Locator)
	}
	if len(d.Aggregator.Server) != 2 {
		t.Fatalf("server descriptors=%+v", d.Aggregator.Server)
	}
	found := false
	for _, w := range d.Warnings {
		if strings.Contains(w, "geoip unavailable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings=%v", d.Warnings)
	}
}
