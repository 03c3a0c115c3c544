// Package config loads, normalizes, and validates univsrg configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// UNIVSRG_STAGING_DIR and UNIVSRG_LOG_LEVEL. The Config type centralizes every
// knob the converter and CLI need: where scratch trees live, how charts are
// recognised on import, how bundles are written on export, and where the
// conversion history ledger is kept.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
