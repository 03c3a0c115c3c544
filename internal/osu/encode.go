package osu

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"univsrg/internal/chart"
	"univsrg/internal/errs"
	"univsrg/internal/osufile"
	"univsrg/internal/resource"
	"univsrg/internal/textutil"
)

const (
	// ChartExt is the extension of chart files written by Encode.
	ChartExt = ".osu"
	// NoteY is the y coordinate written for every mania object.
	NoteY = 192

	fallbackChartStem = "beatmap"
	// Leaves room in a 255-byte file name for " (NNN)" and the extension.
	maxChartStemBytes = 240
)

// Encode renders b as a chart file whose resource references use the paths
// assigned in out. The column count and audio are mandatory, and every
// referenced resource must have been inflated into out.
func Encode(b *chart.Beatmap, out *resource.Out) (*osufile.File, error) {
	if err := b.ValidateForExport(); err != nil {
		return nil, err
	}
	audioPath, ok := out.PathOf(b.Audio)
	if !ok {
		return nil, errs.Wrap(errs.ErrMissingField, "encoder", "audio", "audio was not inflated into the output tree", nil)
	}
	var backgroundPath string
	if b.Background != nil {
		if backgroundPath, ok = out.PathOf(b.Background); !ok {
			return nil, errs.Wrap(errs.ErrMissingField, "encoder", "background", "background was not inflated into the output tree", nil)
		}
	}

	f := osufile.New()

	general := f.Ensure(osufile.SectionGeneral)
	general.Set("AudioFilename", audioPath)
	if b.AudioLeadIn != nil {
		general.Set("AudioLeadIn", strconv.Itoa(*b.AudioLeadIn))
	}
	if b.PreviewTime != nil {
		general.Set("PreviewTime", strconv.Itoa(*b.PreviewTime))
	}
	general.Set("Mode", strconv.Itoa(ModeMania))

	meta := f.Ensure(osufile.SectionMetadata)
	meta.Set("Title", b.Title.Latin)
	meta.Set("TitleUnicode", b.Title.Unicode)
	meta.Set("Artist", b.Artist.Latin)
	meta.Set("ArtistUnicode", b.Artist.Unicode)
	meta.Set("Creator", b.Creator)
	meta.Set("Version", b.Version)

	difficulty := f.Ensure(osufile.SectionDifficulty)
	if b.HPDifficulty != nil {
		difficulty.Set("HPDrainRate", formatFloat(*b.HPDifficulty))
	}
	difficulty.Set("CircleSize", strconv.Itoa(b.ColumnCount))
	if b.AccuracyDifficulty != nil {
		difficulty.Set("OverallDifficulty", formatFloat(*b.AccuracyDifficulty))
	}

	events := f.Ensure(osufile.SectionEvents)
	if backgroundPath != "" {
		events.Append(osufile.BackgroundEvent(backgroundPath))
	}

	timing := f.Ensure(osufile.SectionTimingPoints)
	for _, tp := range MergeTiming(b.BPMTimePoints, b.EffectTimePoints) {
		timing.Append(tp.String())
	}

	objects := f.Ensure(osufile.SectionHitObjects)
	for _, obj := range sortedObjects(b.Objects) {
		h := osufile.HitObject{
			X:    XFromColumn(obj.Column, b.ColumnCount),
			Y:    NoteY,
			Time: obj.Offset,
		}
		switch obj.Kind {
		case chart.KindNote:
			h.Type = osufile.TypeCircle
		case chart.KindLongNote:
			h.Type = osufile.TypeManiaHold
			h.EndTime = obj.EndOffset
		}
		objects.Append(h.String())
	}

	return f, nil
}

// sortedObjects returns objects ordered by time then column; the format
// expects hit objects in chronological order.
func sortedObjects(objects []chart.Object) []chart.Object {
	sorted := slices.Clone(objects)
	slices.SortStableFunc(sorted, func(x, y chart.Object) int {
		if c := cmp.Compare(x.Offset, y.Offset); c != 0 {
			return c
		}
		return cmp.Compare(x.Column, y.Column)
	})
	return sorted
}

// ChartFileName returns "creator - title - version.osu" built from the
// non-empty parts, with the unicode title preferred, sanitised for use as a
// file name.
func ChartFileName(b *chart.Beatmap) string {
	stem := textutil.SanitizeFileName(textutil.JoinNonEmpty(" - ", b.Creator, b.Title.Best(), b.Version))
	stem = strings.TrimRight(truncateUTF8(stem, maxChartStemBytes), ". ")
	if stem == "" {
		stem = fallbackChartStem
	}
	return stem + ChartExt
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
