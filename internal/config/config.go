// Package config handles configuration loading using viper, generalized
// from the teacher's packet-capture-agent config to the dataflow core's
// two-tier split: GlobalConfig (runtime identity, logging, metrics — static,
// viper/env-overridable) and DataflowConfig (nodes + links — declarative,
// parsed by LoadDataflow and resolved into an internal/graph.Dataflow by a
// separate DataflowConfig.Resolve call, both in dataflow.go).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration. Maps to the
// `otusflow:` root key in YAML, mirroring the teacher's `capture-agent:`
// wrapper.
type GlobalConfig struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ─── Runtime Identity ───

// RuntimeConfig identifies this runtime instance (spec.md §4.8's
// Context.RuntimeUUID pairs with a human-readable Name here).
type RuntimeConfig struct {
	Name string            `mapstructure:"name"` // empty = os.Hostname()
	Tags map[string]string `mapstructure:"tags"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains the firing-engine metrics snapshot's exposition
// settings (internal/engine.Metrics, surfaced over HTTP).
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure
// `otusflow: ...`.
type configRoot struct {
	Otusflow GlobalConfig `mapstructure:"otusflow"`
}

// Load loads the global configuration from file. The YAML file uses
// `otusflow:` as root key; env vars use OTUSFLOW_ prefix (e.g.
// OTUSFLOW_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Otusflow

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration, all under the
// "otusflow." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("otusflow.log.level", "info")
	v.SetDefault("otusflow.log.format", "json")
	v.SetDefault("otusflow.log.outputs.file.enabled", false)
	v.SetDefault("otusflow.log.outputs.file.path", "/var/log/otusflow/otusflow.log")
	v.SetDefault("otusflow.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("otusflow.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("otusflow.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("otusflow.log.outputs.file.rotation.compress", true)

	v.SetDefault("otusflow.metrics.enabled", true)
	v.SetDefault("otusflow.metrics.listen", ":9091")
	v.SetDefault("otusflow.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and applies runtime
// defaults (hostname auto-detect).
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	if cfg.Runtime.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.Runtime.Name = hostname
	}

	return nil
}
