// Package config provides configuration management for linkmesh.
//
// Config file locations (priority order):
//  1. $LINKMESH_CONFIG
//  2. ./linkmesh.yaml
//  3. ~/.config/linkmesh/config.yaml
//  4. /etc/linkmesh/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found.
// The second return value is the path the config was loaded from, empty when
// defaults were used.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// FindConfigPath returns the first existing config file location.
func FindConfigPath() string {
	candidates := []string{os.Getenv("LINKMESH_CONFIG"), "./linkmesh.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "linkmesh", "config.yaml"))
	}
	candidates = append(candidates, "/etc/linkmesh/config.yaml")

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Save writes config to the specified path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = "./linkmesh.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Reconciler.Interval == 0 {
		c.Reconciler.Interval = Duration(5 * time.Minute)
	}
	if c.Reconciler.FetchTimeout == 0 {
		c.Reconciler.FetchTimeout = Duration(30 * time.Second)
	}
	if c.Reconciler.MaxParallel == 0 {
		c.Reconciler.MaxParallel = 4
	}
}
