package osu

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"strconv"
	"strings"

	"univsrg/internal/chart"
	"univsrg/internal/errs"
	"univsrg/internal/fileutil"
	"univsrg/internal/osufile"
	"univsrg/internal/resource"
)

// ModeMania is the [General] Mode value of osu!mania charts.
const ModeMania = 3

// Location says where a chart file sits inside an extracted bundle. Resource
// references in the chart resolve against the chart's own directory and must
// stay inside Root.
type Location struct {
	// Root is the extraction directory on disk.
	Root string
	// Rel is the chart file's slash-separated path relative to Root.
	Rel string
}

func (l Location) resolve(ref string) (string, error) {
	rel := fileutil.NormalizeRel(path.Join(path.Dir(fileutil.NormalizeRel(l.Rel)), fileutil.NormalizeRel(ref)))
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %q", fileutil.ErrOutsideBase, ref)
	}
	return rel, nil
}

// DecodeFile reads, parses and decodes the chart at loc.
func DecodeFile(loc Location, pool *resource.Pool) (*chart.Beatmap, error) {
	target, err := fileutil.SafeJoin(loc.Root, loc.Rel)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMalformed, "decoder", "open", loc.Rel, err)
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "decoder", "open", loc.Rel, err)
	}
	defer f.Close()

	parsed, err := osufile.Parse(f)
	if err != nil {
		return nil, err
	}
	return Decode(parsed, loc, pool)
}

// Decode converts one parsed chart into a Beatmap, inserting the referenced
// audio and background into pool. The column count is mandatory; timing and
// hit object lines that fail to parse are skipped. A background that cannot
// be read is dropped.
func Decode(f *osufile.File, loc Location, pool *resource.Pool) (*chart.Beatmap, error) {
	if mode, ok := f.Get(osufile.SectionGeneral, "Mode"); ok {
		if n, err := strconv.Atoi(mode); err != nil || n != ModeMania {
			return nil, errs.Wrap(errs.ErrMalformed, "decoder", "mode", fmt.Sprintf("mode %q is not osu!mania", mode), nil)
		}
	}

	columns, err := decodeColumnCount(f)
	if err != nil {
		return nil, err
	}

	b := &chart.Beatmap{ColumnCount: columns, Source: loc.Rel}
	decodeMetadata(f, b)
	decodeDifficulty(f, b)

	audioRef, ok := f.Get(osufile.SectionGeneral, "AudioFilename")
	if !ok || audioRef == "" {
		return nil, errs.Wrap(errs.ErrMissingField, "decoder", "audio", "AudioFilename", nil)
	}
	if b.Audio, err = loadResource(loc, audioRef, pool); err != nil {
		return nil, err
	}
	b.AudioLeadIn = optionalInt(f, osufile.SectionGeneral, "AudioLeadIn")
	b.PreviewTime = optionalInt(f, osufile.SectionGeneral, "PreviewTime")

	if events := f.Section(osufile.SectionEvents); events != nil {
		for _, line := range events.Lines {
			name, ok := osufile.BackgroundFile(line)
			if !ok {
				continue
			}
			if entry, err := loadResource(loc, name, pool); err == nil {
				b.Background = entry
			}
			break
		}
	}

	if timing := f.Section(osufile.SectionTimingPoints); timing != nil {
		points := make([]osufile.TimingPoint, 0, len(timing.Lines))
		for _, line := range timing.Lines {
			tp, err := osufile.ParseTimingPoint(line)
			if err != nil {
				continue
			}
			points = append(points, tp)
		}
		b.BPMTimePoints, b.EffectTimePoints = SplitTiming(points)
		b.SortTiming()
	}

	if objects := f.Section(osufile.SectionHitObjects); objects != nil {
		b.Objects = make([]chart.Object, 0, len(objects.Lines))
		for _, line := range objects.Lines {
			h, err := osufile.ParseHitObject(line)
			if err != nil {
				continue
			}
			column := ColumnFromX(h.X, columns)
			switch {
			case h.IsHold():
				if h.EndTime < h.Time {
					continue
				}
				b.Objects = append(b.Objects, chart.NewLongNote(column, h.Time, h.EndTime))
			case h.IsCircle():
				b.Objects = append(b.Objects, chart.NewNote(column, h.Time))
			}
		}
	}

	return b, nil
}

func decodeColumnCount(f *osufile.File) (int, error) {
	raw, ok := f.Get(osufile.SectionDifficulty, "CircleSize")
	if !ok {
		return 0, errs.Wrap(errs.ErrMissingField, "decoder", "difficulty", "CircleSize", nil)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errs.Wrap(errs.ErrMalformed, "decoder", "difficulty", fmt.Sprintf("CircleSize %q", raw), nil)
	}
	columns := int(value)
	if float64(columns) != value || columns <= 0 || columns > osufile.PlayfieldWidth {
		return 0, errs.Wrap(errs.ErrMalformed, "decoder", "difficulty", fmt.Sprintf("CircleSize %q is not a lane count", raw), nil)
	}
	return columns, nil
}

func decodeMetadata(f *osufile.File, b *chart.Beatmap) {
	meta := f.Section(osufile.SectionMetadata)
	b.Title.Latin, _ = meta.Get("Title")
	b.Title.Unicode, _ = meta.Get("TitleUnicode")
	b.Artist.Latin, _ = meta.Get("Artist")
	b.Artist.Unicode, _ = meta.Get("ArtistUnicode")
	b.Creator, _ = meta.Get("Creator")
	b.Version, _ = meta.Get("Version")
}

func decodeDifficulty(f *osufile.File, b *chart.Beatmap) {
	b.HPDifficulty = optionalFloat(f, osufile.SectionDifficulty, "HPDrainRate")
	b.AccuracyDifficulty = optionalFloat(f, osufile.SectionDifficulty, "OverallDifficulty")
}

// loadResource returns the pool entry for ref, consulting the path index
// before reading the file.
func loadResource(loc Location, ref string, pool *resource.Pool) (*resource.Entry, error) {
	rel, err := loc.resolve(ref)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMalformed, "decoder", "resource", ref, err)
	}
	if entry, ok := pool.LookupByPath(rel); ok {
		return entry, nil
	}
	data, err := fileutil.ReadInside(loc.Root, rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrMissingField, "decoder", "resource", rel+" not found in bundle", err)
		}
		return nil, errs.Wrap(errs.ErrIO, "decoder", "resource", rel, err)
	}
	entry, _ := pool.Insert(rel, data)
	return entry, nil
}

func optionalFloat(f *osufile.File, section, key string) *float64 {
	raw, ok := f.Get(section, key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}

func optionalInt(f *osufile.File, section, key string) *int {
	raw, ok := f.Get(section, key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}
