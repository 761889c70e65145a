// Package main is the entry point for the editflow command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/editflow/editflow/internal/config"
	"github.com/editflow/editflow/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg config.Config
	log *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration before any command runs. A missing
// config file falls back to defaults; flags override both.
func loadConfig(configPath, logLevel string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	log = logging.New(logCfg)
	return nil
}
