// Package filter selects beatmaps with boolean expressions evaluated by
// expr-lang, for example `keys == 7 && od >= 8` or `creator in ["a", "b"]`.
package filter

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"univsrg/internal/chart"
	"univsrg/internal/errs"
)

// Env is the set of variables an expression can reference. Unset
// difficulties read as 0.
type Env struct {
	Title         string  `expr:"title"`
	TitleUnicode  string  `expr:"title_unicode"`
	Artist        string  `expr:"artist"`
	ArtistUnicode string  `expr:"artist_unicode"`
	Creator       string  `expr:"creator"`
	Version       string  `expr:"version"`
	Keys          int     `expr:"keys"`
	HP            float64 `expr:"hp"`
	OD            float64 `expr:"od"`
	Notes         int     `expr:"notes"`
	LongNotes     int     `expr:"long_notes"`
	Objects       int     `expr:"objects"`
	MinBPM        float64 `expr:"min_bpm"`
	MaxBPM        float64 `expr:"max_bpm"`
	LengthMs      int     `expr:"length_ms"`
	Source        string  `expr:"source"`
}

// NewEnv builds the expression environment for b.
func NewEnv(b *chart.Beatmap) Env {
	stats := b.Stats()
	env := Env{
		Title:         b.Title.Latin,
		TitleUnicode:  b.Title.Unicode,
		Artist:        b.Artist.Latin,
		ArtistUnicode: b.Artist.Unicode,
		Creator:       b.Creator,
		Version:       b.Version,
		Keys:          b.ColumnCount,
		Notes:         stats.Notes,
		LongNotes:     stats.LongNotes,
		Objects:       len(b.Objects),
		MinBPM:        stats.MinBPM,
		MaxBPM:        stats.MaxBPM,
		LengthMs:      stats.LengthMs,
		Source:        b.Source,
	}
	if b.HPDifficulty != nil {
		env.HP = *b.HPDifficulty
	}
	if b.AccuracyDifficulty != nil {
		env.OD = *b.AccuracyDifficulty
	}
	return env
}

// Filter is a compiled expression. The zero value and nil match everything.
type Filter struct {
	expression string
	program    *exprvm.Program
}

// Compile parses and type-checks expression. An empty expression yields a
// filter that matches every beatmap.
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return &Filter{}, nil
	}
	program, err := exprlang.Compile(expression, exprlang.Env(Env{}), exprlang.AsBool())
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "filter", "compile", fmt.Sprintf("%q", expression), err)
	}
	return &Filter{expression: expression, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

// MatchesAll reports whether the filter accepts every beatmap.
func (f *Filter) MatchesAll() bool {
	return f == nil || f.program == nil
}

// Match evaluates the filter against b.
func (f *Filter) Match(b *chart.Beatmap) (bool, error) {
	if f.MatchesAll() {
		return true, nil
	}
	result, err := exprlang.Run(f.program, NewEnv(b))
	if err != nil {
		return false, errs.Wrap(errs.ErrConfiguration, "filter", "evaluate", fmt.Sprintf("%q", f.expression), err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, errs.Wrap(errs.ErrConfiguration, "filter", "evaluate", fmt.Sprintf("%q returned %T, want bool", f.expression, result), nil)
	}
	return ok, nil
}
