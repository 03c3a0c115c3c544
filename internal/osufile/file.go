package osufile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"univsrg/internal/errs"
)

const (
	headerPrefix = "osu file format v"
	// LatestVersion is the format version written by Write.
	LatestVersion = 14
	maxLineBytes  = 4 << 20
)

// Section names.
const (
	SectionGeneral      = "General"
	SectionEditor       = "Editor"
	SectionMetadata     = "Metadata"
	SectionDifficulty   = "Difficulty"
	SectionEvents       = "Events"
	SectionTimingPoints = "TimingPoints"
	SectionColours      = "Colours"
	SectionHitObjects   = "HitObjects"
)

var keyValueSections = map[string]string{
	SectionGeneral:    ": ",
	SectionEditor:     ": ",
	SectionMetadata:   ":",
	SectionDifficulty: ":",
	SectionColours:    " : ",
}

// Pair is one key/value line of a key-value section.
type Pair struct {
	Key   string
	Value string
}

// Section is a bracketed block. Key-value sections fill Pairs; list sections
// (events, timing points, hit objects) keep raw Lines.
type Section struct {
	Name  string
	Pairs []Pair
	Lines []string
}

// IsKeyValue reports whether the section stores key/value pairs.
func (s *Section) IsKeyValue() bool {
	_, ok := keyValueSections[s.Name]
	return ok
}

// Get returns the value of the last pair named key.
func (s *Section) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	for i := len(s.Pairs) - 1; i >= 0; i-- {
		if s.Pairs[i].Key == key {
			return s.Pairs[i].Value, true
		}
	}
	return "", false
}

// Set replaces the value of key or appends a new pair.
func (s *Section) Set(key, value string) {
	for i := range s.Pairs {
		if s.Pairs[i].Key == key {
			s.Pairs[i].Value = value
			return
		}
	}
	s.Pairs = append(s.Pairs, Pair{Key: key, Value: value})
}

// Append adds a raw line to a list section.
func (s *Section) Append(line string) {
	s.Lines = append(s.Lines, line)
}

// File is the generic section model of one chart text file.
type File struct {
	Version  int
	Sections []*Section
}

// New returns an empty file at the latest format version.
func New() *File {
	return &File{Version: LatestVersion}
}

// Section returns the named section or nil.
func (f *File) Section(name string) *Section {
	for _, s := range f.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Ensure returns the named section, appending it when missing.
func (f *File) Ensure(name string) *Section {
	if s := f.Section(name); s != nil {
		return s
	}
	s := &Section{Name: name}
	f.Sections = append(f.Sections, s)
	return s
}

// Get is shorthand for Section(section).Get(key).
func (f *File) Get(section, key string) (string, bool) {
	return f.Section(section).Get(key)
}

// Parse reads a chart text file. Errors wrap errs.ErrMalformed.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	f := &File{}
	var current *Section
	lineNo := 0
	sawHeader := false
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if !sawHeader {
			version, err := parseHeader(trimmed)
			if err != nil {
				return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse", fmt.Sprintf("line %d", lineNo), err)
			}
			f.Version = version
			sawHeader = true
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse", fmt.Sprintf("line %d: empty section name", lineNo), nil)
			}
			current = f.Ensure(name)
			continue
		}
		if current == nil {
			return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse", fmt.Sprintf("line %d: content outside any section", lineNo), nil)
		}
		if current.IsKeyValue() {
			key, value, ok := strings.Cut(trimmed, ":")
			if !ok {
				return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse",
					fmt.Sprintf("line %d: expected key:value in [%s]", lineNo, current.Name), nil)
			}
			current.Pairs = append(current.Pairs, Pair{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
			continue
		}
		current.Append(trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse", "read", err)
	}
	if !sawHeader {
		return nil, errs.Wrap(errs.ErrMalformed, "osufile", "parse", "missing format header", nil)
	}
	return f, nil
}

func parseHeader(line string) (int, error) {
	if !strings.HasPrefix(line, headerPrefix) {
		return 0, fmt.Errorf("expected %q header, got %q", headerPrefix+"N", line)
	}
	version, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, headerPrefix)))
	if err != nil {
		return 0, fmt.Errorf("format version: %w", err)
	}
	return version, nil
}

// Write serialises f. Sections are written in their stored order.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	version := f.Version
	if version <= 0 {
		version = LatestVersion
	}
	fmt.Fprintf(bw, "%s%d\n", headerPrefix, version)
	for _, s := range f.Sections {
		fmt.Fprintf(bw, "\n[%s]\n", s.Name)
		if sep, ok := keyValueSections[s.Name]; ok {
			for _, p := range s.Pairs {
				bw.WriteString(p.Key)
				bw.WriteString(sep)
				bw.WriteString(p.Value)
				bw.WriteByte('\n')
			}
			continue
		}
		for _, line := range s.Lines {
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
