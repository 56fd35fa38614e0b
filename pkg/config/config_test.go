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

const minimalConfig = `
environment: test
stream:
  addr: localhost:6379
gateway:
  topics: [market.ticks]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stream.Start != "tail" {
		t.Errorf("start = %q, want tail", cfg.Stream.Start)
	}
	if cfg.Stream.BlockTimeout != 2*time.Second {
		t.Errorf("block timeout = %v", cfg.Stream.BlockTimeout)
	}
	if cfg.Stream.BatchCount != 10 {
		t.Errorf("batch count = %d", cfg.Stream.BatchCount)
	}
	if cfg.Gateway.MaxConnections != 256 {
		t.Errorf("max connections = %d", cfg.Gateway.MaxConnections)
	}
	if cfg.Reputation.ApproveDelta != 1.0 || cfg.Reputation.RejectDelta != -0.25 {
		t.Errorf("reputation deltas = %v/%v", cfg.Reputation.ApproveDelta, cfg.Reputation.RejectDelta)
	}
	if cfg.Execution.EffectLog != "actions.log" {
		t.Errorf("effect log = %q", cfg.Execution.EffectLog)
	}
}

func TestLoadRejectsBadStart(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
stream:
  addr: localhost:6379
  start: middle
gateway:
  topics: [market.ticks]
`))
	if err == nil {
		t.Fatal("want error for invalid stream.start")
	}
}

func TestLoadRejectsBridgeWithoutBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
stream:
  addr: localhost:6379
gateway:
  topics: [market.ticks]
kafka:
  bridge:
    enabled: true
    topic: raw
`))
	if err == nil {
		t.Fatal("want error for bridge without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("STREAM_START", "earliest")
	t.Setenv("GATEWAY_TOPICS", "market.ticks,audit.events")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stream.Addr != "redis:6380" {
		t.Errorf("addr = %q", cfg.Stream.Addr)
	}
	if cfg.Stream.Start != "earliest" {
		t.Errorf("start = %q", cfg.Stream.Start)
	}
	if len(cfg.Gateway.Topics) != 2 {
		t.Errorf("topics = %v", cfg.Gateway.Topics)
	}
}
