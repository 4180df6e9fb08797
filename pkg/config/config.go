// Package config loads swarmbus's runtime configuration: engine tuning
// (worker count, queue depth, publish mode) and per-channel adapter
// credentials. A YAML file supplies the base configuration; environment
// variables layered on top override individual fields, so the same file can
// be checked in while secrets stay out of it.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sipeed/picoclaw/pkg/eventbus"
)

// EngineConfig tunes the underlying eventbus.Bus.
type EngineConfig struct {
	// PublishMode is one of "exact", "exact+super", "exact+super+vararg".
	PublishMode   string `yaml:"publish_mode" env:"SWARMBUS_PUBLISH_MODE"`
	WorkerThreads int    `yaml:"worker_threads" env:"SWARMBUS_WORKER_THREADS"`
	QueueCapacity int    `yaml:"queue_capacity" env:"SWARMBUS_QUEUE_CAPACITY"`
}

// DiscordConfig configures the Discord channel adapter.
type DiscordConfig struct {
	Enabled bool   `yaml:"enabled" env:"SWARMBUS_DISCORD_ENABLED"`
	Token   string `yaml:"token" env:"SWARMBUS_DISCORD_TOKEN"`
}

// WebSocketConfig configures the generic websocket channel adapter.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled" env:"SWARMBUS_WS_ENABLED"`
	Addr    string `yaml:"addr" env:"SWARMBUS_WS_ADDR"`
}

// SchedulerConfig configures the cron-driven heartbeat publisher.
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled" env:"SWARMBUS_SCHEDULER_ENABLED"`
	CronExpr string `yaml:"cron_expr" env:"SWARMBUS_SCHEDULER_CRON"`
}

// StoreConfig configures the SQLite-backed dead-letter store.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" env:"SWARMBUS_STORE_ENABLED"`
	Path    string `yaml:"path" env:"SWARMBUS_STORE_PATH"`
}

// Config is swarmbus's complete runtime configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Discord   DiscordConfig   `yaml:"discord"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns a Config with the engine defaults eventbus.New itself
// applies (2 worker threads, a 1024-capacity queue, exact-match publishing).
func Default() Config {
	return Config{
		Engine: EngineConfig{
			PublishMode:   "exact",
			WorkerThreads: 2,
			QueueCapacity: 1024,
		},
		Scheduler: SchedulerConfig{CronExpr: "@every 30s"},
		Store:     StoreConfig{Path: "swarmbus-deadletters.db"},
	}
}

// Load reads path as YAML into a Default() base, then overlays any
// SWARMBUS_* environment variables present. A missing file is not an error;
// Load falls back to defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: applying environment overrides: %w", err)
	}
	return cfg, nil
}

// PublishModeValue translates the configured string into an eventbus.PublishMode,
// defaulting to eventbus.ModeExact for an empty or unrecognized value.
func (c EngineConfig) PublishModeValue() eventbus.PublishMode {
	switch c.PublishMode {
	case "exact+super":
		return eventbus.ModeExactWithSuperTypes
	case "exact+super+vararg":
		return eventbus.ModeExactWithSuperTypesAndVarArgs
	default:
		return eventbus.ModeExact
	}
}

// Bus builds the eventbus.Config this engine section describes.
func (c EngineConfig) Bus() eventbus.Config {
	return eventbus.Config{
		PublishMode:   c.PublishModeValue(),
		WorkerThreads: c.WorkerThreads,
		QueueCapacity: c.QueueCapacity,
	}
}
