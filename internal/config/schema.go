package config

import (
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Version    int              `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// InventoryConfig points at the optional YAML inventory seed file.
type InventoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ReconcilerConfig tunes the reconciliation loop. DisconnectVanished is a
// pointer so that an absent key means "enabled" rather than false.
type ReconcilerConfig struct {
	Interval           Duration `yaml:"interval"`
	FetchTimeout       Duration `yaml:"fetch_timeout"`
	MaxParallel        int      `yaml:"max_parallel"`
	DisconnectVanished *bool    `yaml:"disconnect_vanished,omitempty"`
}

// ShouldDisconnectVanished reports whether vanished links are transitioned
// to disconnected (the default).
func (r ReconcilerConfig) ShouldDisconnectVanished() bool {
	return r.DisconnectVanished == nil || *r.DisconnectVanished
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
