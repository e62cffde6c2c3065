package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Runtime.TargetScanTimeMS != 10 {
		t.Errorf("Expected TargetScanTimeMS=10, got %v", cfg.Runtime.TargetScanTimeMS)
	}
	if cfg.Runtime.MaxScans != 0 {
		t.Errorf("Expected MaxScans=0, got %d", cfg.Runtime.MaxScans)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected Port=8080, got %d", cfg.API.Port)
	}
	if cfg.API.Enabled {
		t.Error("Expected API disabled by default")
	}
	if cfg.Monitor.RefreshMS != 250 {
		t.Errorf("Expected RefreshMS=250, got %d", cfg.Monitor.RefreshMS)
	}
	if cfg.Display.NumberFormat != "dec" {
		t.Errorf("Expected NumberFormat=dec, got %s", cfg.Display.NumberFormat)
	}
}

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("expected defaults, got port %d", cfg.API.Port)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Runtime.TargetScanTimeMS = 25
	cfg.API.Enabled = true
	cfg.API.Port = 9090
	cfg.Monitor.Watch = []string{"X1", "DS5"}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Runtime.TargetScanTimeMS != 25 {
		t.Errorf("TargetScanTimeMS = %v, want 25", loaded.Runtime.TargetScanTimeMS)
	}
	if !loaded.API.Enabled || loaded.API.Port != 9090 {
		t.Errorf("API settings not preserved: %+v", loaded.API)
	}
	if len(loaded.Monitor.Watch) != 2 || loaded.Monitor.Watch[0] != "X1" {
		t.Errorf("Watch list not preserved: %v", loaded.Monitor.Watch)
	}
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[runtime\nbroken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}
