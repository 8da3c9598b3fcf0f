package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/causetlabs/causet/pkg/event"
)

// structValidator runs the struct tag validation (required, oneof, min/max).
var structValidator = validator.New()

// Validate checks the configuration for errors.
//
// Struct tags cover field-level constraints; journal geometry needs the
// cross-field checks below because the same rules are enforced (fatally) at
// journal open, and config load should catch them first with a friendlier
// error.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return validateJournalGeometry(&cfg.Journal)
}

// validateJournalGeometry checks the ring/blob split before it reaches the
// journal layer.
func validateJournalGeometry(cfg *JournalConfig) error {
	if cfg.IndexRegionSize == 0 || cfg.IndexRegionSize.Uint64()%event.Size != 0 {
		return fmt.Errorf("journal index_region_size %s is not a positive multiple of the %d-byte event record",
			cfg.IndexRegionSize, event.Size)
	}
	if cfg.IndexRegionSize.Uint64()/event.Size < 2 {
		return fmt.Errorf("journal index_region_size %s yields fewer than 2 ring slots", cfg.IndexRegionSize)
	}
	if cfg.TotalSize <= cfg.IndexRegionSize {
		return fmt.Errorf("journal total_size %s leaves no blob region past index_region_size %s",
			cfg.TotalSize, cfg.IndexRegionSize)
	}
	return nil
}
