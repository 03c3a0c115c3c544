package chart

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"univsrg/internal/errs"
)

// ValidateForExport checks the fields the target format requires.
func (b *Beatmap) ValidateForExport() error {
	if b.ColumnCount <= 0 {
		return errs.Wrap(errs.ErrMissingField, "chart", "validate", "column count", nil)
	}
	if b.Audio == nil {
		return errs.Wrap(errs.ErrMissingField, "chart", "validate", "audio", nil)
	}
	for i, obj := range b.Objects {
		if obj.Column < 0 || obj.Column >= b.ColumnCount {
			return errs.Wrap(errs.ErrMalformed, "chart", "validate",
				fmt.Sprintf("object %d column %d outside [0,%d)", i, obj.Column, b.ColumnCount), nil)
		}
		switch obj.Kind {
		case KindNote, KindLongNote:
		default:
			return errs.Wrap(errs.ErrMalformed, "chart", "validate", fmt.Sprintf("object %d has unknown kind %d", i, obj.Kind), nil)
		}
	}
	for i, tp := range b.BPMTimePoints {
		if !(tp.BPM > 0) || math.IsInf(tp.BPM, 0) {
			return errs.Wrap(errs.ErrMalformed, "chart", "validate", fmt.Sprintf("bpm point %d has bpm %v", i, tp.BPM), nil)
		}
	}
	for i, tp := range b.EffectTimePoints {
		if !(tp.VelocityMultiplier > 0) || math.IsInf(tp.VelocityMultiplier, 0) {
			return errs.Wrap(errs.ErrMalformed, "chart", "validate",
				fmt.Sprintf("effect point %d has velocity %v", i, tp.VelocityMultiplier), nil)
		}
	}
	return nil
}

// SortTiming orders both timing lists ascending by offset, keeping the
// relative order of points that share an offset.
func (b *Beatmap) SortTiming() {
	slices.SortStableFunc(b.BPMTimePoints, func(x, y BPMTimePoint) int {
		return cmp.Compare(x.Offset, y.Offset)
	})
	slices.SortStableFunc(b.EffectTimePoints, func(x, y EffectTimePoint) int {
		return cmp.Compare(x.Offset, y.Offset)
	})
}

// Stats summarises a beatmap for filters and reports.
type Stats struct {
	Notes     int
	LongNotes int
	MinBPM    float64
	MaxBPM    float64
	LengthMs  int
}

// Stats computes object counts, the tempo range, and the last object end.
func (b *Beatmap) Stats() Stats {
	var s Stats
	for _, obj := range b.Objects {
		switch obj.Kind {
		case KindNote:
			s.Notes++
		case KindLongNote:
			s.LongNotes++
		}
		if end := obj.End(); end > s.LengthMs {
			s.LengthMs = end
		}
	}
	for i, tp := range b.BPMTimePoints {
		if i == 0 || tp.BPM < s.MinBPM {
			s.MinBPM = tp.BPM
		}
		if i == 0 || tp.BPM > s.MaxBPM {
			s.MaxBPM = tp.BPM
		}
	}
	return s
}
