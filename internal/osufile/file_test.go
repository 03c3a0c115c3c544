package osufile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"univsrg/internal/errs"
)

const sampleChart = "\ufeffosu file format v14\n" +
	"\n" +
	"[General]\n" +
	"AudioFilename: audio.mp3\n" +
	"AudioLeadIn: 0\n" +
	"PreviewTime: 1234\n" +
	"Mode: 3\n" +
	"\n" +
	"[Metadata]\n" +
	"Title:Song\n" +
	"TitleUnicode:歌\n" +
	"Version:Hard: Extra\n" +
	"\n" +
	"[Difficulty]\n" +
	"CircleSize:7\n" +
	"\n" +
	"[Events]\n" +
	"//Background and Video events\n" +
	"0,0,\"bg.jpg\",0,0\n" +
	"\n" +
	"[TimingPoints]\n" +
	"0,500,4,1,0,100,1,0\n" +
	"\n" +
	"[HitObjects]\n" +
	"36,192,1000,1,0,0:0:0:0:\n"

func TestParseSections(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleChart))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.Version != 14 {
		t.Fatalf("unexpected version %d", f.Version)
	}
	if v, ok := f.Get(SectionGeneral, "AudioFilename"); !ok || v != "audio.mp3" {
		t.Fatalf("unexpected AudioFilename %q %v", v, ok)
	}
	if v, _ := f.Get(SectionMetadata, "TitleUnicode"); v != "歌" {
		t.Fatalf("unexpected TitleUnicode %q", v)
	}
	if v, _ := f.Get(SectionMetadata, "Version"); v != "Hard: Extra" {
		t.Fatalf("value must keep colons after the first, got %q", v)
	}
	if _, ok := f.Get(SectionMetadata, "Artist"); ok {
		t.Fatal("missing key must not resolve")
	}
	events := f.Section(SectionEvents)
	if events == nil || len(events.Lines) != 1 {
		t.Fatalf("expected one event line (comment skipped), got %#v", events)
	}
	if got := f.Section(SectionHitObjects).Lines; len(got) != 1 || got[0] != "36,192,1000,1,0,0:0:0:0:" {
		t.Fatalf("unexpected hit objects %#v", got)
	}
	if _, ok := f.Get("Missing", "Key"); ok {
		t.Fatal("missing section must not resolve")
	}
}

func TestParseErrorsAreMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"no header":       "[General]\nMode: 3\n",
		"bad version":     "osu file format vX\n",
		"outside section": "osu file format v14\nstray line\n",
		"missing colon":   "osu file format v14\n[Metadata]\nTitle Song\n",
		"empty section":   "osu file format v14\n[]\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			if !errors.Is(err, errs.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestWriteThenParse(t *testing.T) {
	f := New()
	general := f.Ensure(SectionGeneral)
	general.Set("AudioFilename", "a.ogg")
	general.Set("Mode", "3")
	general.Set("AudioFilename", "b.ogg")
	f.Ensure(SectionMetadata).Set("Title", "Name")
	f.Ensure(SectionHitObjects).Append("64,192,0,1,0,0:0:0:0:")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := buf.String()
	if !strings.HasPrefix(text, "osu file format v14\n") {
		t.Fatalf("unexpected header in %q", text)
	}
	if !strings.Contains(text, "AudioFilename: b.ogg\n") || !strings.Contains(text, "Title:Name\n") {
		t.Fatalf("unexpected separators in %q", text)
	}

	parsed, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v, _ := parsed.Get(SectionGeneral, "AudioFilename"); v != "b.ogg" {
		t.Fatalf("Set should replace existing value, got %q", v)
	}
	if len(parsed.Section(SectionGeneral).Pairs) != 2 {
		t.Fatalf("expected two General pairs, got %d", len(parsed.Section(SectionGeneral).Pairs))
	}
	if got := parsed.Section(SectionHitObjects).Lines; len(got) != 1 {
		t.Fatalf("unexpected hit objects %#v", got)
	}
}
