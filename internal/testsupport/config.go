package testsupport

import (
	"path/filepath"
	"testing"

	"univsrg/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Logging goes nowhere but stderr; history lives in the temp tree.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = ""
	cfg.History.Path = filepath.Join(base, "history.db")
	cfg.Staging.CheckFreeSpace = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDuplicateNames sets the export duplicate name policy.
func WithDuplicateNames(policy string) ConfigOption {
	return func(c *config.Config) { c.Export.DuplicateNames = policy }
}

// WithFilter sets the export filter expression.
func WithFilter(expr string) ConfigOption {
	return func(c *config.Config) { c.Export.Filter = expr }
}

// WithoutHistory disables the conversion ledger.
func WithoutHistory() ConfigOption {
	return func(c *config.Config) { c.History.Enabled = false }
}

// WithKeepPathIndex disables path index clearing between bundles.
func WithKeepPathIndex() ConfigOption {
	return func(c *config.Config) { c.Import.ClearPathIndex = false }
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
