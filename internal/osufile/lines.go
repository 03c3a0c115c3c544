package osufile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"univsrg/internal/errs"
)

// Playfield geometry of the format.
const (
	PlayfieldWidth  = 512
	PlayfieldHeight = 384
)

// Hit object type bits.
const (
	TypeCircle    = 1 << 0
	TypeSlider    = 1 << 1
	TypeNewCombo  = 1 << 2
	TypeSpinner   = 1 << 3
	TypeManiaHold = 1 << 7
)

// DefaultSampleVolume is written for timing points that carry no volume.
const DefaultSampleVolume = 100

// TimingPoint is one line of [TimingPoints].
type TimingPoint struct {
	Time        float64
	BeatLength  float64
	Meter       int
	SampleSet   int
	SampleIndex int
	Volume      int
	Uninherited bool
	Effects     int
}

// ParseTimingPoint decodes a comma-separated timing line. Trailing fields are
// optional; when the uninherited flag is absent it is inferred from the sign
// of the beat length.
func ParseTimingPoint(line string) (TimingPoint, error) {
	fields := splitFields(line, ",")
	if len(fields) < 2 {
		return TimingPoint{}, malformedLine("timing point", line, "expected at least 2 fields")
	}
	tp := TimingPoint{Meter: 4, Volume: DefaultSampleVolume}
	var err error
	if tp.Time, err = parseFinite(fields[0]); err != nil {
		return TimingPoint{}, malformedLine("timing point", line, "time: "+err.Error())
	}
	if tp.BeatLength, err = parseFinite(fields[1]); err != nil {
		return TimingPoint{}, malformedLine("timing point", line, "beat length: "+err.Error())
	}
	tp.Uninherited = tp.BeatLength > 0

	ints := []*int{&tp.Meter, &tp.SampleSet, &tp.SampleIndex, &tp.Volume}
	for i, dst := range ints {
		idx := i + 2
		if idx >= len(fields) {
			break
		}
		if *dst, err = strconv.Atoi(fields[idx]); err != nil {
			return TimingPoint{}, malformedLine("timing point", line, fmt.Sprintf("field %d: %v", idx, err))
		}
	}
	if len(fields) > 6 {
		flag, err := strconv.Atoi(fields[6])
		if err != nil {
			return TimingPoint{}, malformedLine("timing point", line, "uninherited: "+err.Error())
		}
		tp.Uninherited = flag == 1
	}
	if len(fields) > 7 {
		if tp.Effects, err = strconv.Atoi(fields[7]); err != nil {
			return TimingPoint{}, malformedLine("timing point", line, "effects: "+err.Error())
		}
	}
	return tp, nil
}

// String encodes the timing point in the full eight-field form.
func (tp TimingPoint) String() string {
	uninherited := 0
	if tp.Uninherited {
		uninherited = 1
	}
	return strings.Join([]string{
		formatFloat(tp.Time),
		formatFloat(tp.BeatLength),
		strconv.Itoa(tp.Meter),
		strconv.Itoa(tp.SampleSet),
		strconv.Itoa(tp.SampleIndex),
		strconv.Itoa(tp.Volume),
		strconv.Itoa(uninherited),
		strconv.Itoa(tp.Effects),
	}, ",")
}

// HitObject is one line of [HitObjects].
type HitObject struct {
	X        int
	Y        int
	Time     int
	Type     int
	HitSound int
	// EndTime is set for mania hold notes.
	EndTime int
	// Params holds the raw fields after hitSound, excluding the hold end time.
	Params string
}

// IsCircle reports whether the circle bit is set.
func (h HitObject) IsCircle() bool { return h.Type&TypeCircle != 0 }

// IsHold reports whether the mania hold bit is set.
func (h HitObject) IsHold() bool { return h.Type&TypeManiaHold != 0 }

// ParseHitObject decodes a hit object line. Coordinates and times may be
// written as decimals; they are truncated.
func ParseHitObject(line string) (HitObject, error) {
	fields := splitFields(line, ",")
	if len(fields) < 5 {
		return HitObject{}, malformedLine("hit object", line, "expected at least 5 fields")
	}
	var (
		h    HitObject
		nums [5]int
	)
	for i := range nums {
		v, err := parseFinite(fields[i])
		if err != nil {
			return HitObject{}, malformedLine("hit object", line, fmt.Sprintf("field %d: %v", i, err))
		}
		nums[i] = int(v)
	}
	h.X, h.Y, h.Time, h.Type, h.HitSound = nums[0], nums[1], nums[2], nums[3], nums[4]
	rest := fields[5:]
	if h.IsHold() {
		if len(rest) == 0 {
			return HitObject{}, malformedLine("hit object", line, "hold note without end time")
		}
		endRaw, sample, _ := strings.Cut(rest[0], ":")
		end, err := parseFinite(endRaw)
		if err != nil {
			return HitObject{}, malformedLine("hit object", line, "end time: "+err.Error())
		}
		h.EndTime = int(end)
		h.Params = sample
		return h, nil
	}
	h.Params = strings.Join(rest, ",")
	return h, nil
}

// String encodes the hit object. Holds are written as x,y,time,type,hitSound,endTime:params.
func (h HitObject) String() string {
	head := fmt.Sprintf("%d,%d,%d,%d,%d", h.X, h.Y, h.Time, h.Type, h.HitSound)
	if h.IsHold() {
		params := h.Params
		if params == "" {
			params = "0:0:0:0:"
		}
		return head + "," + strconv.Itoa(h.EndTime) + ":" + params
	}
	if h.Params == "" {
		return head + ",0:0:0:0:"
	}
	return head + "," + h.Params
}

// BackgroundFile returns the image path of a background event line.
func BackgroundFile(line string) (string, bool) {
	fields := splitQuoted(line)
	if len(fields) < 3 {
		return "", false
	}
	if fields[0] != "0" && fields[0] != "Background" {
		return "", false
	}
	name := strings.Trim(fields[2], "\"")
	if name == "" {
		return "", false
	}
	return name, true
}

// BackgroundEvent returns the event line placing filename as the background.
func BackgroundEvent(filename string) string {
	return "0,0,\"" + filename + "\",0,0"
}

func splitFields(line, sep string) []string {
	parts := strings.Split(strings.TrimSpace(line), sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// splitQuoted splits on commas outside double quotes.
func splitQuoted(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func malformedLine(kind, line, reason string) error {
	return errs.Wrap(errs.ErrMalformed, "osufile", kind, fmt.Sprintf("%q: %s", line, reason), nil)
}
