package config

import (
	"os"
	"sync"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func resetConfig() {
	instance = nil
	once = *new(sync.Once)
}

func TestLoad(t *testing.T) {
	t.Setenv("CARBONAWARE_BASE_URL", "")
	path := writeTempConfig(t, `service:
  base_url: "http://localhost:8080"
  timeout: "5s"
collector:
  locations:
    - westus
    - eastus
  window_minutes: 15
detector:
  z_score_threshold: 3.0
redis:
  addr: "localhost:6379"
  stream: "carbon_emissions"
`)
	resetConfig()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Service.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected base_url 'http://localhost:8080', got '%s'", cfg.Service.BaseURL)
	}

	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", cfg.Timeout())
	}

	if len(cfg.Collector.Locations) != 2 {
		t.Errorf("Expected 2 locations, got %d", len(cfg.Collector.Locations))
	}

	if cfg.Collector.WindowMinutes != 15 {
		t.Errorf("Expected window_minutes 15, got %d", cfg.Collector.WindowMinutes)
	}

	if cfg.Collector.HistoricalDays != defaultHistoricalDays {
		t.Errorf("Expected default historical_days %d, got %d", defaultHistoricalDays, cfg.Collector.HistoricalDays)
	}

	if cfg.Detector.ZScoreThreshold != 3.0 {
		t.Errorf("Expected z_score_threshold 3.0, got %v", cfg.Detector.ZScoreThreshold)
	}

	if cfg.Detector.RecentHours != defaultRecentHours {
		t.Errorf("Expected default recent_hours %d, got %d", defaultRecentHours, cfg.Detector.RecentHours)
	}

	if cfg.Redis.Stream != "carbon_emissions" {
		t.Errorf("Expected Redis stream 'carbon_emissions', got '%s'", cfg.Redis.Stream)
	}
}

func TestLoad_BaseURLOverride(t *testing.T) {
	t.Setenv("CARBONAWARE_BASE_URL", "https://carbon.example.com")
	path := writeTempConfig(t, `service:
  base_url: "http://localhost:8080"
collector:
  locations: [westus]
`)
	resetConfig()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.BaseURL != "https://carbon.example.com" {
		t.Errorf("Expected env override, got '%s'", cfg.Service.BaseURL)
	}
	if cfg.Timeout() != defaultTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.Timeout())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "invalid: [yaml: content")
	resetConfig()

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	path := writeTempConfig(t, `service:
  base_url: "http://localhost:8080"
  timeout: "soon"
collector:
  locations: [westus]
`)
	resetConfig()

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid timeout, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	resetConfig()

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestLoad_EmptyLocations(t *testing.T) {
	t.Setenv("CARBONAWARE_BASE_URL", "")
	path := writeTempConfig(t, `service:
  base_url: "http://localhost:8080"
collector:
  locations: []
`)
	resetConfig()

	_, err := Load(path)
	if err == nil {
		t.Error("Expected validation error for empty locations, got nil")
	}
}

func TestGet(t *testing.T) {
	t.Setenv("CARBONAWARE_BASE_URL", "")
	path := writeTempConfig(t, `service:
  base_url: "http://localhost:8080"
collector:
  locations: [westus]
`)
	resetConfig()

	if _, err := Load(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if len(cfg.Collector.Locations) != 1 {
		t.Errorf("Expected 1 location, got %d", len(cfg.Collector.Locations))
	}
}

func TestGet_Panic(t *testing.T) {
	resetConfig()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected Get() to panic when config not loaded")
		}
	}()

	Get()
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Service.BaseURL = "http://localhost:8080"
		c.Collector.Locations = []string{"westus"}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Service.BaseURL = "" }, wantErr: true},
		{name: "no locations", mutate: func(c *Config) { c.Collector.Locations = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
