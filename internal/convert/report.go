package convert

import (
	"path/filepath"
	"time"

	"univsrg/internal/errs"
	"univsrg/internal/history"
	"univsrg/internal/osu"
)

// ItemFailure is one chart or beatmap left out of the output.
type ItemFailure struct {
	Stage string
	Item  string
	Err   error
}

// Kind returns the stable classification stored in history.
func (f ItemFailure) Kind() string {
	if f.Stage == history.StageFilter {
		return errs.KindFiltered
	}
	return errs.KindOf(f.Err)
}

// Message returns the error text, or "" for filtered beatmaps.
func (f ItemFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Report summarises a run.
type Report struct {
	RunID    string
	Output   string
	Parsed   []*osu.ParseReport
	Compiled *osu.CompileReport
	// Filtered lists the sources of beatmaps the filter rejected.
	Filtered []string
	Failures []ItemFailure
	Duration time.Duration
}

// Decoded returns the number of beatmaps decoded across all inputs.
func (r *Report) Decoded() int {
	total := 0
	for _, p := range r.Parsed {
		total += p.Decoded
	}
	return total
}

// Summary converts the report into the history ledger's counters.
func (r *Report) Summary() history.Summary {
	s := history.Summary{Filtered: len(r.Filtered)}
	for _, f := range r.Failures {
		if f.Stage != history.StageFilter {
			s.Failed++
		}
	}
	if r.Compiled != nil {
		s.ChartsWritten = len(r.Compiled.Charts)
		s.Resources = r.Compiled.Resources
	}
	return s
}

func (r *Report) addParse(p *osu.ParseReport) {
	r.Parsed = append(r.Parsed, p)
	label := filepath.Base(p.Bundle)
	for _, f := range p.Failures {
		r.Failures = append(r.Failures, ItemFailure{Stage: history.StageParse, Item: label + "/" + f.Item, Err: f.Err})
	}
}

func (r *Report) addCompile(c *osu.CompileReport) {
	r.Compiled = c
	for _, f := range c.Failures {
		r.Failures = append(r.Failures, ItemFailure{Stage: history.StageCompile, Item: f.Item, Err: f.Err})
	}
}
