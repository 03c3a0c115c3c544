package osu

import (
	"math"

	"univsrg/internal/chart"
	"univsrg/internal/osufile"
)

const (
	msPerMinute = 60000.0
	// Inherited lines store scroll velocity as -100 / multiplier.
	velocityScale = -100.0
	defaultMeter  = 4
)

// MergeTiming interleaves the two ascending lists into the single timing list
// the format stores. On equal offsets the BPM point comes first. Effect points
// are written with meter 0.
func MergeTiming(bpms []chart.BPMTimePoint, effects []chart.EffectTimePoint) []osufile.TimingPoint {
	merged := make([]osufile.TimingPoint, 0, len(bpms)+len(effects))
	b, e := 0, 0
	for b < len(bpms) || e < len(effects) {
		if e >= len(effects) || (b < len(bpms) && bpms[b].Offset <= effects[e].Offset) {
			merged = append(merged, bpmLine(bpms[b]))
			b++
			continue
		}
		merged = append(merged, effectLine(effects[e]))
		e++
	}
	return merged
}

func bpmLine(tp chart.BPMTimePoint) osufile.TimingPoint {
	return osufile.TimingPoint{
		Time:        float64(tp.Offset),
		BeatLength:  msPerMinute / tp.BPM,
		Meter:       tp.BeatsPerBar,
		Volume:      osufile.DefaultSampleVolume,
		Uninherited: true,
	}
}

func effectLine(tp chart.EffectTimePoint) osufile.TimingPoint {
	return osufile.TimingPoint{
		Time:       float64(tp.Offset),
		BeatLength: velocityScale / tp.VelocityMultiplier,
		Volume:     osufile.DefaultSampleVolume,
	}
}

// SplitTiming separates a merged timing list back into BPM and effect points,
// preserving input order. Lines whose beat length cannot be converted are
// dropped.
func SplitTiming(points []osufile.TimingPoint) ([]chart.BPMTimePoint, []chart.EffectTimePoint) {
	var (
		bpms    []chart.BPMTimePoint
		effects []chart.EffectTimePoint
	)
	for _, tp := range points {
		offset := int(tp.Time)
		if tp.Uninherited {
			if !(tp.BeatLength > 0) {
				continue
			}
			bpm := msPerMinute / tp.BeatLength
			if math.IsInf(bpm, 0) {
				continue
			}
			meter := tp.Meter
			if meter <= 0 {
				meter = defaultMeter
			}
			bpms = append(bpms, chart.BPMTimePoint{Offset: offset, BPM: bpm, BeatsPerBar: meter})
			continue
		}
		if !(tp.BeatLength < 0) {
			continue
		}
		velocity := velocityScale / tp.BeatLength
		if math.IsInf(velocity, 0) {
			continue
		}
		effects = append(effects, chart.EffectTimePoint{Offset: offset, VelocityMultiplier: velocity})
	}
	return bpms, effects
}
