// Package config loads the CLI defaults file.
//
//	[engine]
//	strategy  = "odometer"
//	run_limit = 100000
//
//	[store]
//	path = "runs.db"
//
//	[log]
//	level = "info"
//
// Command-line flags override file values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/firegraph/internal/engine"
)

// Config is the decoded defaults file.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

// EngineConfig holds run defaults.
type EngineConfig struct {
	Strategy string `toml:"strategy"`
	RunLimit int    `toml:"run_limit"`
}

// StoreConfig locates the results database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the values used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{Strategy: engine.StrategyOdometer},
		Store:  StoreConfig{Path: "firegraph.db"},
		Log:    LogConfig{Level: "warn"},
	}
}

// Load reads a defaults file. An empty path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := engine.StrategyByName(c.Engine.Strategy); err != nil {
		return fmt.Errorf("engine.strategy: %w", err)
	}
	if c.Engine.RunLimit < 0 {
		return fmt.Errorf("engine.run_limit must not be negative, got %d", c.Engine.RunLimit)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", name)
	}
}

// Options returns the engine options for the configured defaults.
func (c *Config) Options() ([]engine.Option, error) {
	s, err := engine.StrategyByName(c.Engine.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{engine.WithStrategy(s)}
	if c.Engine.RunLimit > 0 {
		opts = append(opts, engine.WithRunLimit(c.Engine.RunLimit))
	}
	return opts, nil
}
