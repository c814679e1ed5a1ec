// Package config loads the search configuration.
//
// Configuration is read once per session: defaults, then the YAML file,
// then BINLOCATE_* environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/pkg/types"
)

// Search backends
const (
	EngineOffline = "offline" // Local package-file index
	EngineOnline  = "online"  // Remote package catalog
)

// Config represents the binlocate configuration.
type Config struct {
	Prefix           string   `yaml:"prefix"`             // Routing prefix stripped from host input
	MaxEntries       int      `yaml:"max_entries"`        // Result cap per search
	ExactMatch       bool     `yaml:"exact_match"`        // Match whole binary names only
	IndexPath        string   `yaml:"index_path"`         // Location of the package-file index
	Engine           string   `yaml:"engine"`             // offline or online
	StoreDir         string   `yaml:"store_dir"`          // Store scanned when building the index
	Exclude          []string `yaml:"exclude"`            // Store entry globs skipped when indexing
	PatternCacheSize int      `yaml:"pattern_cache_size"` // Compiled patterns kept between searches
	LogLevel         string   `yaml:"log_level"`          // debug, info, warn, error
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Prefix:           ":nr",
		MaxEntries:       16,
		ExactMatch:       true,
		IndexPath:        filepath.Join(cacheDir(), "binlocate", "index.db"),
		Engine:           EngineOffline,
		StoreDir:         "/nix/store",
		Exclude:          []string{"*.drv"},
		PatternCacheSize: 128,
		LogLevel:         "info",
	}
}

// DefaultPath returns the default configuration file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, "binlocate", "config.yaml")
}

// Load loads configuration from path. A missing file yields the defaults.
// Environment overrides are applied after file loading.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.IndexPath = expandHome(cfg.IndexPath)
	cfg.StoreDir = expandHome(cfg.StoreDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies BINLOCATE_* environment variables
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("BINLOCATE_PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv("BINLOCATE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxEntries = n
		}
	}
	if v := os.Getenv("BINLOCATE_EXACT_MATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ExactMatch = b
		}
	}
	if v := os.Getenv("BINLOCATE_INDEX_PATH"); v != "" {
		c.IndexPath = v
	}
	if v := os.Getenv("BINLOCATE_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("BINLOCATE_STORE_DIR"); v != "" {
		c.StoreDir = v
	}
	if v := os.Getenv("BINLOCATE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be > 0 (got: %d)", c.MaxEntries)
	}

	if c.Engine != EngineOffline && c.Engine != EngineOnline {
		return fmt.Errorf("engine must be %s or %s (got: %s)", EngineOffline, EngineOnline, c.Engine)
	}

	if strings.TrimSpace(c.IndexPath) == "" {
		return errors.New("index_path is required")
	}

	if c.PatternCacheSize < 0 {
		return errors.New("pattern_cache_size must be >= 0")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level must be debug, info, warn, or error (got: %s)", c.LogLevel)
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	return nil
}

// SearchMode returns the search mode selected by ExactMatch
func (c *Config) SearchMode() types.SearchMode {
	return types.ModeFor(c.ExactMatch)
}

// StripPrefix removes the routing prefix and surrounding whitespace from
// host input. Input without the prefix is only trimmed.
func (c *Config) StripPrefix(input string) string {
	input = strings.TrimSpace(input)
	if c.Prefix != "" {
		input = strings.TrimPrefix(input, c.Prefix)
	}
	return strings.TrimSpace(input)
}

// SaveToFile writes the configuration as YAML
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(homeDir(), ".cache")
	}
	return dir
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
