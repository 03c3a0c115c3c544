// Package history persists a ledger of conversion runs in SQLite.
//
// Each run records its inputs, output, filter, and outcome counts; every chart
// or beatmap skipped during the run is stored as a failure row tied to it.
// The CLI reads the ledger for `history list` and `history show`.
package history
