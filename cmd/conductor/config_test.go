package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sregrade/internal/common/cache"
	"sregrade/internal/common/mq"

	"github.com/alicebob/miniredis/v2"
)

func TestApplyDefaultsAddress(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	var cfg AppConfig
	applyDefaults(&cfg, getenv)
	if cfg.Server.Addr != "0.0.0.0:8000" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}

	cfg = AppConfig{Server: ServerConfig{Addr: "127.0.0.1:9000"}}
	env["API_PORT"] = "9100"
	applyDefaults(&cfg, getenv)
	if cfg.Server.Addr != "127.0.0.1:9100" {
		t.Fatalf("addr with API_PORT = %q", cfg.Server.Addr)
	}

	cfg = AppConfig{}
	env["API_HOSTNAME"] = "localhost"
	applyDefaults(&cfg, getenv)
	if cfg.Server.Addr != "localhost:9100" {
		t.Fatalf("addr with both overrides = %q", cfg.Server.Addr)
	}
	if cfg.Driver.PollInterval != time.Second || cfg.Driver.ResultsDir != "results" || cfg.Logger.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conductor.yaml")
	data := []byte(`
server:
  addr: "127.0.0.1:8123"
driver:
  problems: [p1, p2]
  runNoop: true
  problemTimeout: 5m
conductor:
  requiredBinaries: []
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("API_HOSTNAME", "")
	t.Setenv("API_PORT", "")

	cfg, err := loadAppConfig(path, true)
	if err != nil {
		t.Fatalf("loadAppConfig failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8123" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Driver.Problems) != 2 || !cfg.Driver.RunNoop || cfg.Driver.ProblemTimeout != 5*time.Minute {
		t.Fatalf("unexpected driver config: %+v", cfg.Driver)
	}
	if cfg.Conductor.RequiredBinaries == nil || len(cfg.Conductor.RequiredBinaries) != 0 {
		t.Fatalf("explicit empty requiredBinaries must disable the check, got %#v", cfg.Conductor.RequiredBinaries)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := loadAppConfig(missing, false); err != nil {
		t.Fatalf("optional missing config should load defaults: %v", err)
	}
	if _, err := loadAppConfig(missing, true); err == nil {
		t.Fatalf("expected error for a required missing config")
	}
}

func TestBuildRegistryDefaultCatalog(t *testing.T) {
	cfg := &AppConfig{}
	applyDefaults(cfg, func(string) string { return "" })
	reg, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}
	if !reg.Has("noop_hotel_reservation") {
		t.Fatalf("expected built-in noop control")
	}
}

func TestExportValidation(t *testing.T) {
	cases := []ExportConfig{
		{Redis: RedisExportConfig{Enabled: true}},
		{Kafka: KafkaExportConfig{Enabled: true}},
		{Object: ObjectExportConfig{Enabled: true}},
	}
	for _, c := range cases {
		if err := c.validate(); err == nil {
			t.Fatalf("expected validation error for %+v", c)
		}
	}
	if err := (ExportConfig{}).validate(); err != nil {
		t.Fatalf("disabled exports must validate: %v", err)
	}
}

func TestBuildSinks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := ExportConfig{
		Redis: RedisExportConfig{Enabled: true, Redis: cache.RedisConfig{Addr: mr.Addr()}},
		Kafka: KafkaExportConfig{Enabled: true, KafkaConfig: mq.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}}, Topic: "t"},
	}
	ctx := context.Background()
	s, err := buildSinks(ctx, cfg)
	if err != nil {
		t.Fatalf("buildSinks failed: %v", err)
	}
	defer s.close(ctx)
	if len(s.runs) != 2 || len(s.artifacts) != 0 || len(s.closers) != 2 {
		t.Fatalf("unexpected sinks: runs=%d artifacts=%d closers=%d", len(s.runs), len(s.artifacts), len(s.closers))
	}

	cfg.Redis.Redis.Addr = "127.0.0.1:1"
	if _, err := buildSinks(ctx, cfg); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}
