// Package config loads engine configuration from a TOML file with
// environment variable overrides. Every setting has a working default so a
// missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "EDITFLOW_"

// Config holds all engine settings.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Engine  EngineConfig  `toml:"engine"`
	Watcher WatcherConfig `toml:"watcher"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level"`
}

// EngineConfig configures the edit engine.
type EngineConfig struct {
	// SettleDelayMS is the pause after a diff recompute before completion
	// events fire, giving dependent view state time to regenerate. Zero
	// disables the pause.
	SettleDelayMS int `toml:"settle_delay_ms"`

	// MaxLedgerEntries bounds the undo stack.
	MaxLedgerEntries int `toml:"max_ledger_entries"`

	// DiffContextLines is the number of unchanged lines of context kept
	// around each computed diff.
	DiffContextLines int `toml:"diff_context_lines"`
}

// WatcherConfig configures the external-write watcher.
type WatcherConfig struct {
	// Enabled turns the fsnotify watcher on.
	Enabled bool `toml:"enabled"`

	// DebounceMS coalesces rapid filesystem events for the same path.
	DebounceMS int `toml:"debounce_ms"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			SettleDelayMS:    35,
			MaxLedgerEntries: 1000,
			DiffContextLines: 3,
		},
		Watcher: WatcherConfig{
			Enabled:    false,
			DebounceMS: 100,
		},
	}
}

// SettleDelay returns the settle delay as a duration.
func (c EngineConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// Debounce returns the watcher debounce as a duration.
func (c WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides settings from EDITFLOW_* environment variables.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookupInt(EnvPrefix + "SETTLE_DELAY_MS"); ok {
		cfg.Engine.SettleDelayMS = v
	}
	if v, ok := lookupInt(EnvPrefix + "MAX_LEDGER_ENTRIES"); ok {
		cfg.Engine.MaxLedgerEntries = v
	}
	if v, ok := lookupInt(EnvPrefix + "DIFF_CONTEXT_LINES"); ok {
		cfg.Engine.DiffContextLines = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "WATCHER_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watcher.Enabled = b
		}
	}
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
