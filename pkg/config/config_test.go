package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sipeed/picoclaw/pkg/eventbus"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.WorkerThreads != 2 || cfg.Engine.QueueCapacity != 1024 {
		t.Fatalf("expected defaults, got %+v", cfg.Engine)
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarmbus.yaml")
	body := []byte("engine:\n  publish_mode: exact+super\n  worker_threads: 8\ndiscord:\n  enabled: true\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.WorkerThreads != 8 {
		t.Fatalf("got worker threads %d, want 8", cfg.Engine.WorkerThreads)
	}
	if !cfg.Discord.Enabled {
		t.Fatal("expected discord.enabled to be true")
	}
	if cfg.Engine.PublishModeValue() != eventbus.ModeExactWithSuperTypes {
		t.Fatalf("got publish mode %v, want ModeExactWithSuperTypes", cfg.Engine.PublishModeValue())
	}
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarmbus.yaml")
	os.WriteFile(path, []byte("engine:\n  worker_threads: 4\n"), 0o600)

	t.Setenv("SWARMBUS_WORKER_THREADS", "16")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.WorkerThreads != 16 {
		t.Fatalf("got worker threads %d, want env override 16", cfg.Engine.WorkerThreads)
	}
}
