// Package config loads the postq configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Postfix PostfixConfig `yaml:"postfix"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

// PostfixConfig holds the paths of the Postfix utilities.
type PostfixConfig struct {
	Postqueue string `yaml:"postqueue"`
	Postcat   string `yaml:"postcat"`
	Postsuper string `yaml:"postsuper"`
}

// StoreConfig controls snapshot loading.
type StoreConfig struct {
	// ListingFile reads a captured listing instead of running
	// postqueue, for offline use.
	ListingFile string `yaml:"listing_file"`

	// AutoLoad loads the store on the first query instead of requiring
	// an explicit load.
	AutoLoad bool `yaml:"auto_load"`

	// MaxAge is the staleness threshold for snapshot reloads.
	MaxAge time.Duration `yaml:"max_age"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WatchConfig contains settings for the watch daemon.
type WatchConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	Interval   time.Duration `yaml:"interval"`    // snapshot reload interval
	AllowedIPs []string      `yaml:"allowed_ips"` // IPs/CIDRs allowed to access the HTTP endpoints
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a YAML configuration file. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in default values
func (c *Config) applyDefaults() {
	if c.Postfix.Postqueue == "" {
		c.Postfix.Postqueue = "postqueue"
	}
	if c.Postfix.Postcat == "" {
		c.Postfix.Postcat = "postcat"
	}
	if c.Postfix.Postsuper == "" {
		c.Postfix.Postsuper = "postsuper"
	}

	if c.Store.MaxAge == 0 {
		c.Store.MaxAge = time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Watch.ListenAddr == "" {
		c.Watch.ListenAddr = ":9199"
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = 30 * time.Second
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Store.MaxAge < 0 {
		return fmt.Errorf("store.max_age must not be negative")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive")
	}

	if c.Store.ListingFile != "" {
		if _, err := os.Stat(c.Store.ListingFile); err != nil {
			return fmt.Errorf("store.listing_file: %w", err)
		}
	}

	return nil
}
