package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "")

	cfg, _, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("port=%d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("ping_period=%v, want 54s", cfg.PingPeriod)
	}
	if cfg.Backpressure != "drop" {
		t.Fatalf("backpressure=%q, want drop", cfg.Backpressure)
	}
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "4321")

	cfg, _, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 4321 {
		t.Fatalf("port=%d, want 4321", cfg.Port)
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "4321")

	fs := Flags()
	if err := fs.Parse([]string{"--port", "5555", "--backpressure", "kick"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, _, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 5555 || cfg.Backpressure != "kick" {
		t.Fatalf("port=%d backpressure=%q", cfg.Port, cfg.Backpressure)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "port: 9090\nlog_level: debug\nrate_limit: 5\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("PORT", "")

	cfg, _, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.LogLevel != "debug" || cfg.RateLimit != 5 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "70000")
	if _, _, err := Load(nil); err == nil {
		t.Fatalf("expected error for port 70000")
	}
}
