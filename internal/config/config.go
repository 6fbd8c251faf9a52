// Package config loads ambient, process-wide harness configuration — the
// daemon socket path override, default log level, and similar knobs that
// are not part of any single SpecRun's WorkspaceInfo. This is deliberately
// separate from store.WorkspaceInfo: config is read once at process start
// and is the same for every agent the daemon supervises, whereas
// WorkspaceInfo is per-SpecRun durable state read fresh every session.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/speckit/harness/internal/paths"
)

// Config is the shape of ~/.harness/config.toml.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `toml:"log_level"`

	// SocketPath overrides the well-known daemon socket location from
	// paths.SocketPath when non-empty.
	SocketPath string `toml:"socket_path"`

	// StopGraceSeconds is the grace window before a stop() escalates from
	// signal to force-kill (§5's "default 30s").
	StopGraceSeconds int `toml:"stop_grace_seconds"`

	// MaxRetries is loaded from the config file but not read by any
	// component; retry.Do always uses its fixed retry.MaxAttempts.
	MaxRetries int `toml:"max_retries"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		LogLevel:         "info",
		StopGraceSeconds: 30,
		MaxRetries:       3,
	}
}

// Load reads ~/.harness/config.toml, if present, layering its values over
// Default(). A missing file is not an error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	dataDir, err := paths.DaemonDataDir()
	if err != nil {
		return cfg, err
	}
	configPath := filepath.Join(dataDir, "config.toml")

	data, err := os.ReadFile(configPath) //nolint:gosec // fixed, user-owned path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", configPath, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}
