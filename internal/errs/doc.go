// Package errs defines the error taxonomy shared by the converter.
//
// Every failure surfaced by the chart, resource, archive, and workflow layers
// wraps one of the sentinel markers declared here so callers can classify it
// with errors.Is. KindOf turns an error into the stable label stored in the
// history ledger and printed in reports.
package errs
