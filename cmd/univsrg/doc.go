// Package main hosts the univsrg CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the structured logger, and hands the real work to the internal packages:
// convert and inspect drive the bundle pipeline, history reads the SQLite
// ledger, and config and staging cover housekeeping. Logs go to stderr so
// tables and JSON on stdout stay machine-readable.
package main
