package cfg

import (
	"os"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgs_Defaults(t *testing.T) {
	for _, env := range []string{"DB_PATH", "STORE", "SOURCES_DIR", "PORT", "WORKER_COUNT", "MENU_CRON", "TRUCK_CRON",
		"UPSERT_CONCURRENCY", "FETCH_TIMEOUT", "API_ACCESS_KEY", "REDIS_ADDR", "USER_AGENT", "TZ", "DEBUG"} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}

	cfg, err := LoadArgs([]string{"--timezone", "America/Los_Angeles"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "./dining.db" {
		t.Errorf("Expected db path './dining.db', got '%s'", cfg.DBPath)
	}
	if cfg.Store != "sqlite" {
		t.Errorf("Expected store 'sqlite', got '%s'", cfg.Store)
	}
	if cfg.MenuCron != "*/30 * * * *" {
		t.Errorf("Expected menu cron '*/30 * * * *', got '%s'", cfg.MenuCron)
	}
	if cfg.UpsertConcurrency != 16 {
		t.Errorf("Expected upsert concurrency 16, got %d", cfg.UpsertConcurrency)
	}
	if cfg.FetchTimeout != 0 {
		t.Errorf("Expected no fetch timeout, got %s", cfg.FetchTimeout)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Los_Angeles" {
		t.Errorf("Expected America/Los_Angeles location, got %v", cfg.Location)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgs_Overrides(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("FETCH_TIMEOUT", "15")

	cfg, err := LoadArgs([]string{"--port", "9000", "--api-key", "secret", "--timezone", "UTC"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Store != "memory" {
		t.Errorf("Expected store 'memory', got '%s'", cfg.Store)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("Expected 15s fetch timeout, got %s", cfg.FetchTimeout)
	}
	if cfg.Port != "9000" || cfg.APIAccessKey != "secret" {
		t.Errorf("Expected flag overrides, got port '%s' key '%s'", cfg.Port, cfg.APIAccessKey)
	}
}

func TestLoadArgs_Invalid(t *testing.T) {
	tests := map[string][]string{
		"unknown store":      {"--store", "postgres"},
		"zero workers":       {"--worker-count", "0"},
		"negative timeout":   {"--fetch-timeout", "-1"},
		"no upsert capacity": {"--upsert-concurrency", "0"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadArgs(args); err == nil {
				t.Errorf("Expected error for %v", args)
			}
		})
	}
}
