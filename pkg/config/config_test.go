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

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected default address %s", cfg.Server.Addr())
	}
	if cfg.Engine.Timeout.Std() != 45*time.Second {
		t.Errorf("unexpected default engine timeout %s", cfg.Engine.Timeout.Std())
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("unexpected default cache backend %s", cfg.Cache.Backend)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Breaker.FailureThreshold != 3 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
engine:
  timeout: 10s
  lookahead_days: 7
cache:
  backend: sqlite
  path: /tmp/test-cache.db
  ttl: 2m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port not overridden: %d", cfg.Server.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default lost: %s", cfg.Server.Host)
	}
	if cfg.Engine.Timeout.Std() != 10*time.Second {
		t.Errorf("duration not parsed: %s", cfg.Engine.Timeout.Std())
	}
	if cfg.Engine.LookaheadDays != 7 {
		t.Errorf("lookahead not overridden: %d", cfg.Engine.LookaheadDays)
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.TTL.Std() != 2*time.Minute {
		t.Errorf("cache not overridden: %+v", cfg.Cache)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := writeConfig(t, "engine:\n  timeout: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed duration")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port out of range": "server:\n  port: 70000\n",
		"unknown backend":   "cache:\n  backend: redis\n",
		"zero lookahead":    "engine:\n  lookahead_days: 0\n",
	}
	for name, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}

func TestValidateSQLiteRequiresPath(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite backend without a path must not validate")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestTelemetryBuildCarriesOverrides(t *testing.T) {
	path := writeConfig(t, `
telemetry:
  service_name: test-svc
  logging:
    level: debug
    format: json
  metrics:
    enabled: true
    namespace: testns
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	tel := cfg.Telemetry.Build()
	if tel.ServiceName != "test-svc" {
		t.Errorf("service name not carried: %s", tel.ServiceName)
	}
	if tel.Logging.Level != "debug" || tel.Logging.Format != "json" {
		t.Errorf("logging not carried: %+v", tel.Logging)
	}
	if !tel.Metrics.Enabled || tel.Metrics.Namespace != "testns" {
		t.Errorf("metrics not carried: %+v", tel.Metrics)
	}
}
