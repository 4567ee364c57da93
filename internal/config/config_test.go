package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8080 || cfg.App.Host != "127.0.0.1" {
		t.Fatalf("unexpected defaults: %+v", cfg.App)
	}
	if cfg.Environment != EnvLocal {
		t.Fatalf("expected local env, got %q", cfg.Environment)
	}
}

func TestLoadLayersFilesThenEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "app:\n  host: 0.0.0.0\n  port: 9000\n  max_rooms: 10\n")
	writeFile(t, dir, "production.yaml", "app:\n  port: 9100\nredis:\n  url: redis://cache:6379/0\n")
	t.Setenv("APP_ENVIRONMENT", "production")
	t.Setenv("APP_APP__MAX_PARTICIPANTS", "42")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Host != "0.0.0.0" {
		t.Fatalf("base layer lost: %q", cfg.App.Host)
	}
	if cfg.App.Port != 9100 {
		t.Fatalf("env file must override base: %d", cfg.App.Port)
	}
	if cfg.App.MaxRooms != 10 || cfg.App.MaxParticipants != 42 {
		t.Fatalf("unexpected limits: %+v", cfg.App)
	}
	if cfg.Redis.URL != "redis://cache:6379/0" {
		t.Fatalf("redis url: %q", cfg.Redis.URL)
	}
	if cfg.App.Addr() != "0.0.0.0:9100" {
		t.Fatalf("addr: %q", cfg.App.Addr())
	}
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "staging")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown environment")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "local")
	t.Setenv("APP_APP__PORT", "not-a-number")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
	t.Setenv("APP_APP__PORT", "70000")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestAddrBracketsIPv6Hosts(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1": "127.0.0.1:8080",
		"::":        "[::]:8080",
		"::1":       "[::1]:8080",
		"":          ":8080",
	}
	for host, want := range cases {
		if got := (AppSettings{Host: host, Port: 8080}).Addr(); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", host, got, want)
		}
	}
}
