package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/causetlabs/causet/internal/bytesize"
)

// Config represents the causet server configuration.
//
// This structure captures the static configuration of the sequencing engine:
//   - Logging configuration
//   - Journal geometry and blob policy
//   - Ingest listener settings (bind address, pipeline depth)
//   - IPC notification socket
//   - Metrics/status HTTP server
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CAUSET_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Journal configures the memory-mapped journal file backing the ring
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`

	// Ingest configures the UDP ingest pipeline
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`

	// IPC configures the unix-socket commit notification broadcast
	IPC IPCConfig `mapstructure:"ipc" yaml:"ipc"`

	// Metrics contains Prometheus metrics server configuration.
	// The same listener also serves the /status endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// JournalConfig configures the memory-mapped journal file.
//
// The journal is a single preallocated file: the first IndexRegionSize bytes
// hold the index ring, the remainder is the blob region. Geometry is fixed at
// open; changing it against an existing file fails fast at startup.
type JournalConfig struct {
	// Path is the directory for the journal file (required).
	// The server creates a journal.dat file in this directory.
	// Example: /var/lib/causet or /tmp/causet
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// TotalSize is the full journal file size.
	// Supports human-readable formats: "64Mi", "1Gi", "500MB"
	// Default: 64Mi
	TotalSize bytesize.ByteSize `mapstructure:"total_size" yaml:"total_size,omitempty"`

	// IndexRegionSize is the size of the index ring region. Must be a
	// positive multiple of the 32-byte event record and leave room for a
	// non-empty blob region.
	// Default: 1Mi (32768 slots)
	IndexRegionSize bytesize.ByteSize `mapstructure:"index_region_size" yaml:"index_region_size,omitempty"`

	// BlobPolicy selects the behavior when the blob region is exhausted.
	// Valid values: "refuse" (drop new payload-bearing events), "wrap"
	// (overwrite oldest payload bytes, detected by readers via checksum).
	// Default: wrap
	BlobPolicy string `mapstructure:"blob_policy" validate:"omitempty,oneof=refuse wrap" yaml:"blob_policy,omitempty"`
}

// IngestConfig configures the UDP ingest pipeline.
type IngestConfig struct {
	// BindAddr is the UDP address the ingest listener binds to.
	// Default: ":9917"
	BindAddr string `mapstructure:"bind_addr" validate:"required" yaml:"bind_addr"`

	// Depth is the number of concurrent receivers, bounding the in-flight
	// datagram count.
	// Default: 16
	Depth int `mapstructure:"depth" validate:"omitempty,min=1,max=1024" yaml:"depth,omitempty"`
}

// IPCConfig configures the unix-socket commit notification broadcast.
// Every committed event's logical slot index is pushed to all connected
// consumers; notifications are best-effort and missed ones are non-fatal.
type IPCConfig struct {
	// SocketPath is the unix socket path for the notification listener.
	// Default: /tmp/causet/causet.sock
	SocketPath string `mapstructure:"socket_path" validate:"required" yaml:"socket_path"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead) and the
// HTTP listener (including /status) is not started.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics and status endpoints
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CAUSET_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location; a missing file is not an
// error and yields the default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file is
// missing, pointing users at 'causet init'.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  causet init\n\n"+
				"Or specify a custom config file:\n"+
				"  causet <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  causet init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CAUSET_ prefix and underscores
	// Example: CAUSET_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CAUSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/causet/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// os.PathError when an explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use
// human-readable sizes like "1Gi", "500Mi", "100MB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration, so config files can use "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "causet")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "causet")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
