package config

import (
	"compress/flate"
	"errors"
	"fmt"
	"slices"
)

var (
	validLogFormats     = []string{"console", "json"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validDuplicateNames = []string{DuplicateNamesSuffix, DuplicateNamesSkip}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStaging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path must be set when history is enabled")
	}
	return nil
}

func (c *Config) validateExport() error {
	if !slices.Contains(validDuplicateNames, c.Export.DuplicateNames) {
		return fmt.Errorf("export.duplicate_names must be one of %v, got %q", validDuplicateNames, c.Export.DuplicateNames)
	}
	if c.Export.CompressionLevel < flate.HuffmanOnly || c.Export.CompressionLevel > flate.BestCompression {
		return fmt.Errorf("export.compression_level must be between %d and %d", flate.HuffmanOnly, flate.BestCompression)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %v, got %q", validLogFormats, c.Logging.Format)
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStaging() error {
	if c.Staging.StaleAfterHours <= 0 {
		return errors.New("staging.stale_after_hours must be positive")
	}
	return nil
}
