// Package convert runs one conversion: it parses every input bundle into a
// single package, applies the beatmap filter, and compiles the merged output
// bundle.
//
// A run holds an exclusive lock keyed by the output path, so two processes
// never write the same bundle at once, and is recorded in the history ledger
// when one is configured. Per-chart problems are collected into the Report;
// only bundle-level failures end the run early.
package convert
