package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.BindAddr != defaultBindAddr {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.HeartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.QueueCapacity != defaultQueueCapacity {
		t.Errorf("QueueCapacity = %d", cfg.QueueCapacity)
	}
}

func TestLoadOrDefaultMissingFileIsNotError(t *testing.T) {
	cfg, loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded {
		t.Fatal("expected loadedFromFile=false for missing file")
	}
	if cfg.BindAddr != defaultBindAddr {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
}

func TestLoadOrDefaultFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := "bindAddr: \":9090\"\nheartbeatInterval: \"10s\"\nqueueCapacity: 64\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, loaded, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded {
		t.Fatal("expected loadedFromFile=true")
	}
	if cfg.BindAddr != ":9090" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d", cfg.QueueCapacity)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("LOGBROKER_BIND_ADDR", ":7070")
	t.Setenv("LOGBROKER_SERVICE_TOKENS", "tok1=svc1")
	cfg, _, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BindAddr != ":7070" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.ServiceTokens["tok1"] != "svc1" {
		t.Errorf("ServiceTokens = %+v", cfg.ServiceTokens)
	}
}

func TestAllowedOrigin(t *testing.T) {
	cfg := Config{CORSOrigins: []string{"https://a.example"}}
	if got := cfg.AllowedOrigin("https://a.example"); got != "https://a.example" {
		t.Errorf("got %q", got)
	}
	if got := cfg.AllowedOrigin("https://b.example"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	wildcard := Config{CORSOrigins: []string{"*"}}
	if got := wildcard.AllowedOrigin("https://anything.example"); got != "*" {
		t.Errorf("got %q", got)
	}
}
