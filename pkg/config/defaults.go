package config

import (
	"strings"
	"time"

	"github.com/causetlabs/causet/internal/bytesize"
)

// Default journal geometry: 1Mi of index ring (32768 slots) inside a 64Mi
// file, leaving 63Mi of blob region.
const (
	defaultTotalSize       = 64 * bytesize.MiB
	defaultIndexRegionSize = 1 * bytesize.MiB
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	applyJournalDefaults(&cfg.Journal)
	applyIngestDefaults(&cfg.Ingest)
	applyIPCDefaults(&cfg.IPC)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyJournalDefaults sets journal geometry defaults.
// Path has no default; it is required and must be configured by the user.
func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.TotalSize == 0 {
		cfg.TotalSize = defaultTotalSize
	}
	if cfg.IndexRegionSize == 0 {
		cfg.IndexRegionSize = defaultIndexRegionSize
	}
	if cfg.BlobPolicy == "" {
		cfg.BlobPolicy = "wrap"
	}
}

// applyIngestDefaults sets ingest listener defaults.
func applyIngestDefaults(cfg *IngestConfig) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = ":9917"
	}
	if cfg.Depth == 0 {
		cfg.Depth = 16
	}
}

// applyIPCDefaults sets the notification socket default.
func applyIPCDefaults(cfg *IPCConfig) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/tmp/causet/causet.sock"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files ('causet init')
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Journal: JournalConfig{
			Path: "/tmp/causet",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
