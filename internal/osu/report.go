package osu

import (
	"fmt"

	"univsrg/internal/errs"
)

// Failure records one chart or beatmap that was skipped.
type Failure struct {
	// Item is the chart path inside the input bundle, or the source label of
	// the beatmap that could not be written.
	Item string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Item, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Kind returns the stable error classification of the failure.
func (f Failure) Kind() string { return errs.KindOf(f.Err) }

// ParseReport summarises one ParseBundle call.
type ParseReport struct {
	Bundle string
	// Charts counts chart files found in the bundle.
	Charts int
	// Decoded counts beatmaps appended to the package.
	Decoded int
	// NewResources counts pool entries this bundle added.
	NewResources int
	Failures     []Failure
}

// WrittenChart is one chart file in the output bundle.
type WrittenChart struct {
	Name   string
	Source string
}

// CompileReport summarises one CompileBundle call.
type CompileReport struct {
	Output    string
	Charts    []WrittenChart
	Resources int
	// Entries is the number of files archived.
	Entries  int
	Failures []Failure
}
