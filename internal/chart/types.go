package chart

import (
	"univsrg/internal/resource"
)

// LatinAndUnicodeString holds the latin-script and unicode-script renderings
// of the same text. An empty field means the rendering is absent.
type LatinAndUnicodeString struct {
	Latin   string
	Unicode string
}

// Best returns the unicode rendering when present, otherwise the latin one.
func (s LatinAndUnicodeString) Best() string {
	if s.Unicode != "" {
		return s.Unicode
	}
	return s.Latin
}

// BestLatin returns the latin rendering when present, otherwise the unicode one.
func (s LatinAndUnicodeString) BestLatin() string {
	if s.Latin != "" {
		return s.Latin
	}
	return s.Unicode
}

// IsEmpty reports whether neither rendering is set.
func (s LatinAndUnicodeString) IsEmpty() bool {
	return s.Latin == "" && s.Unicode == ""
}

// BPMTimePoint fixes the beat duration from Offset onwards.
type BPMTimePoint struct {
	Offset      int
	BPM         float64
	BeatsPerBar int
}

// EffectTimePoint scales scroll speed from Offset onwards. It carries no tempo.
type EffectTimePoint struct {
	Offset             int
	VelocityMultiplier float64
}

// ObjectKind tags the variant stored in an Object.
type ObjectKind int

const (
	KindNote ObjectKind = iota
	KindLongNote
)

func (k ObjectKind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindLongNote:
		return "long_note"
	default:
		return "unknown"
	}
}

// Object is a hit object. EndOffset is meaningful only for KindLongNote.
type Object struct {
	Kind      ObjectKind
	Column    int
	Offset    int
	EndOffset int
}

// NewNote returns an instantaneous hit object.
func NewNote(column, offset int) Object {
	return Object{Kind: KindNote, Column: column, Offset: offset}
}

// NewLongNote returns a held hit object.
func NewLongNote(column, offset, endOffset int) Object {
	return Object{Kind: KindLongNote, Column: column, Offset: offset, EndOffset: endOffset}
}

// End returns the last instant the object occupies its lane.
func (o Object) End() int {
	if o.Kind == KindLongNote && o.EndOffset > o.Offset {
		return o.EndOffset
	}
	return o.Offset
}

// Beatmap is one playable difficulty.
type Beatmap struct {
	Title   LatinAndUnicodeString
	Artist  LatinAndUnicodeString
	Version string
	Creator string

	ColumnCount int

	// Audio and Background are handles into the owning Package's pool.
	Audio      *resource.Entry
	Background *resource.Entry

	HPDifficulty       *float64
	AccuracyDifficulty *float64

	AudioLeadIn *int
	PreviewTime *int

	BPMTimePoints    []BPMTimePoint
	EffectTimePoints []EffectTimePoint
	Objects          []Object

	// Source identifies the bundle and chart the beatmap was decoded from.
	Source string
}

// Package is an ordered set of beatmaps sharing one resource pool.
type Package struct {
	Beatmaps  []*Beatmap
	Resources *resource.Pool
}

// NewPackage returns an empty package with a fresh pool.
func NewPackage() *Package {
	return &Package{Resources: resource.NewPool()}
}

// Add appends beatmaps in order.
func (p *Package) Add(beatmaps ...*Beatmap) {
	p.Beatmaps = append(p.Beatmaps, beatmaps...)
}
