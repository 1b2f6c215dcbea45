package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
remote:
  driver: http
  base_url: https://store.example.com
  api_key: secret
  timeout: 10s
sync:
  teams_interval: 5s
cache:
  path: /tmp/test-companion.db
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Remote.BaseURL != "https://store.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout.Std() != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Sync.TeamsInterval.Std() != 5*time.Second {
		t.Errorf("Sync.TeamsInterval = %v, want 5s", cfg.Sync.TeamsInterval)
	}
	if cfg.Cache.Path != "/tmp/test-companion.db" {
		t.Errorf("Cache.Path = %q", cfg.Cache.Path)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  driver: http
  base_url: https://store.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Timeout.Std() != 30*time.Second {
		t.Errorf("Remote.Timeout default = %v, want 30s", cfg.Remote.Timeout)
	}
	if cfg.Sync.TeamsInterval.Std() != 15*time.Second {
		t.Errorf("Sync.TeamsInterval default = %v, want 15s", cfg.Sync.TeamsInterval)
	}
	if cfg.Sync.NotificationsInterval.Std() != 30*time.Second {
		t.Errorf("Sync.NotificationsInterval default = %v, want 30s", cfg.Sync.NotificationsInterval)
	}
	if cfg.Cache.Path != "companion.db" {
		t.Errorf("Cache.Path default = %q, want companion.db", cfg.Cache.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "camp",
		Password: "pw",
		DBName:   "companion",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=camp password=pw dbname=companion sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
