package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefault tests the default configuration values
func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("unexpected default log level %q", cfg.Logging.Level)
	}
	if cfg.Engine.SettleDelayMS != 35 {
		t.Errorf("unexpected default settle delay %d", cfg.Engine.SettleDelayMS)
	}
	if cfg.Engine.SettleDelay() != 35*time.Millisecond {
		t.Errorf("unexpected settle duration %v", cfg.Engine.SettleDelay())
	}
	if cfg.Engine.MaxLedgerEntries != 1000 {
		t.Errorf("unexpected default ledger bound %d", cfg.Engine.MaxLedgerEntries)
	}
}

// TestLoad tests TOML loading and environment overrides
func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Engine.SettleDelayMS != Default().Engine.SettleDelayMS {
			t.Error("expected default config for missing file")
		}
	})

	t.Run("toml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "editflow.toml")
		content := `
[logging]
level = "debug"

[engine]
settle_delay_ms = 0
max_ledger_entries = 50

[watcher]
enabled = true
debounce_ms = 200
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("unexpected level %q", cfg.Logging.Level)
		}
		if cfg.Engine.SettleDelayMS != 0 || cfg.Engine.MaxLedgerEntries != 50 {
			t.Errorf("unexpected engine config %+v", cfg.Engine)
		}
		if !cfg.Watcher.Enabled || cfg.Watcher.Debounce() != 200*time.Millisecond {
			t.Errorf("unexpected watcher config %+v", cfg.Watcher)
		}
	})

	t.Run("malformed toml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.toml")
		if err := os.WriteFile(path, []byte("[engine\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv(EnvPrefix+"LOG_LEVEL", "error")
		t.Setenv(EnvPrefix+"SETTLE_DELAY_MS", "5")
		t.Setenv(EnvPrefix+"WATCHER_ENABLED", "true")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Logging.Level != "error" {
			t.Errorf("unexpected level %q", cfg.Logging.Level)
		}
		if cfg.Engine.SettleDelayMS != 5 {
			t.Errorf("unexpected settle delay %d", cfg.Engine.SettleDelayMS)
		}
		if !cfg.Watcher.Enabled {
			t.Error("expected watcher enabled")
		}
	})

	t.Run("non-numeric env value ignored", func(t *testing.T) {
		t.Setenv(EnvPrefix+"SETTLE_DELAY_MS", "lots")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Engine.SettleDelayMS != Default().Engine.SettleDelayMS {
			t.Errorf("unexpected settle delay %d", cfg.Engine.SettleDelayMS)
		}
	})
}
