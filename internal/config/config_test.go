package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected embedded defaults to load, got %v", err)
	}
	if cfg.Garden.Width <= 0 || cfg.Garden.Height <= 0 {
		t.Errorf("Expected positive garden bounds, got %fx%f", cfg.Garden.Width, cfg.Garden.Height)
	}
	if cfg.Garden.TicksPerDay <= 0 {
		t.Errorf("Expected positive ticks per day, got %d", cfg.Garden.TicksPerDay)
	}
	if cfg.Mutation.Probability < 0 || cfg.Mutation.Probability > 1 {
		t.Errorf("Expected mutation probability in [0,1], got %f", cfg.Mutation.Probability)
	}
	if cfg.Carnivore.HuntingDistance >= cfg.Carnivore.AmbushRadius {
		t.Error("Expected hunting distance inside the ambush radius")
	}
	if cfg.Server.Addr == "" || cfg.Server.DBPath == "" {
		t.Error("Expected server defaults populated")
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	override := []byte("garden:\n  width: 250.0\nplant:\n  photosynthesis_scale: 9.0\n")
	if err := os.WriteFile(path, override, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected merged load to succeed, got %v", err)
	}
	if cfg.Garden.Width != 250.0 {
		t.Errorf("Expected overridden width 250, got %f", cfg.Garden.Width)
	}
	if cfg.Plant.PhotosynthesisScale != 9.0 {
		t.Errorf("Expected overridden photosynthesis scale 9, got %f", cfg.Plant.PhotosynthesisScale)
	}
	// Untouched fields keep their defaults
	defaults, _ := Load("")
	if cfg.Garden.Height != defaults.Garden.Height {
		t.Errorf("Expected default height %f, got %f", defaults.Garden.Height, cfg.Garden.Height)
	}
	if cfg.Herbivore.EatDistance != defaults.Herbivore.EatDistance {
		t.Errorf("Expected default eat distance, got %f", cfg.Herbivore.EatDistance)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := MustLoad("")
	cfg.Garden.Seed = 1234
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Expected written file to load, got %v", err)
	}
	if loaded.Garden.Seed != 1234 {
		t.Errorf("Expected seed 1234 after round trip, got %d", loaded.Garden.Seed)
	}
}
