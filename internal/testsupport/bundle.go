package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Chart describes a minimal osu!mania chart for tests. Zero values are
// omitted from the rendered text, except Keys which defaults to 4 unless
// OmitKeys is set.
type Chart struct {
	Audio      string
	Background string
	Title      string
	TitleUni   string
	Artist     string
	Creator    string
	Version    string
	Keys       int
	OmitKeys   bool
	HP         string
	OD         string
	LeadIn     string
	Preview    string
	Timing     []string
	Objects    []string
}

// Text renders the chart in the osu file format.
func (c Chart) Text() string {
	var b strings.Builder
	b.WriteString("osu file format v14\n\n[General]\n")
	if c.Audio != "" {
		fmt.Fprintf(&b, "AudioFilename: %s\n", c.Audio)
	}
	if c.LeadIn != "" {
		fmt.Fprintf(&b, "AudioLeadIn: %s\n", c.LeadIn)
	}
	if c.Preview != "" {
		fmt.Fprintf(&b, "PreviewTime: %s\n", c.Preview)
	}
	b.WriteString("Mode: 3\n\n[Metadata]\n")
	writeKV(&b, "Title", c.Title)
	writeKV(&b, "TitleUnicode", c.TitleUni)
	writeKV(&b, "Artist", c.Artist)
	writeKV(&b, "Creator", c.Creator)
	writeKV(&b, "Version", c.Version)
	b.WriteString("\n[Difficulty]\n")
	writeKV(&b, "HPDrainRate", c.HP)
	if !c.OmitKeys {
		keys := c.Keys
		if keys == 0 {
			keys = 4
		}
		fmt.Fprintf(&b, "CircleSize:%d\n", keys)
	}
	writeKV(&b, "OverallDifficulty", c.OD)
	b.WriteString("\n[Events]\n")
	if c.Background != "" {
		fmt.Fprintf(&b, "0,0,\"%s\",0,0\n", c.Background)
	}
	b.WriteString("\n[TimingPoints]\n")
	for _, line := range c.Timing {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n[HitObjects]\n")
	for _, line := range c.Objects {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func writeKV(b *strings.Builder, key, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s:%s\n", key, value)
	}
}

// WriteBundle writes a zip archive at path holding files, keyed by entry name.
func WriteBundle(t testing.TB, path string, files map[string][]byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadBundle returns every file in the zip at path keyed by entry name.
func ReadBundle(t testing.TB, path string) map[string][]byte {
	t.Helper()

	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open bundle %s: %v", path, err)
	}
	defer reader.Close()

	files := make(map[string][]byte, len(reader.File))
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		files[f.Name] = data
	}
	return files
}
