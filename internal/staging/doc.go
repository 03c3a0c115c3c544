// Package staging manages the scratch directories used while extracting input
// bundles and compiling output bundles.
//
// Every scratch directory lives directly under the configured staging root
// and carries the "univsrg-" name prefix, so leftovers from crashed runs can
// be recognised and removed by CleanStale without touching foreign files.
package staging
