// Package logging assembles structured slog loggers and formatting helpers used
// across univsrg.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so conversion code can tag log
// lines with the run ID and the bundle or chart being processed. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
