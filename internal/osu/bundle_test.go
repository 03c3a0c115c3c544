package osu

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"univsrg/internal/chart"
	"univsrg/internal/errs"
	"univsrg/internal/logging"
	"univsrg/internal/testsupport"
)

func parseOptions(t *testing.T) ParseOptions {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return ParseOptions{
		StagingDir:     cfg.Paths.StagingDir,
		ClearPathIndex: true,
		Logger:         logging.NewNop(),
	}
}

func chartBytes(c testsupport.Chart) []byte { return []byte(c.Text()) }

func TestParseBundleSkipsBrokenCharts(t *testing.T) {
	opts := parseOptions(t)
	src := filepath.Join(t.TempDir(), "set.osz")
	testsupport.WriteBundle(t, src, map[string][]byte{
		"easy.osu":   chartBytes(testsupport.Chart{Audio: "audio.mp3", Title: "Song", Version: "Easy", Objects: []string{"64,192,0,1,0"}}),
		"broken.osu": chartBytes(testsupport.Chart{Audio: "audio.mp3", Version: "Broken", OmitKeys: true}),
		"audio.mp3":  []byte("audio"),
		"notes.txt":  []byte("not a chart"),
	})

	pkg := chart.NewPackage()
	report, err := ParseBundle(context.Background(), pkg, src, opts)
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if report.Charts != 2 || report.Decoded != 1 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Failures[0].Item != "broken.osu" || report.Failures[0].Kind() != errs.KindMissingField {
		t.Fatalf("unexpected failure %+v", report.Failures[0])
	}
	if len(pkg.Beatmaps) != 1 || pkg.Beatmaps[0].Version != "Easy" {
		t.Fatalf("unexpected beatmaps %+v", pkg.Beatmaps)
	}
	if pkg.Beatmaps[0].Source != "set.osz/easy.osu" {
		t.Fatalf("unexpected source %q", pkg.Beatmaps[0].Source)
	}
	if report.NewResources != 1 {
		t.Fatalf("expected 1 new resource, got %d", report.NewResources)
	}

	entries, err := os.ReadDir(opts.StagingDir)
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch directory left behind: %v", entries)
	}
}

func TestParseBundleNotAnArchive(t *testing.T) {
	opts := parseOptions(t)
	src := filepath.Join(t.TempDir(), "fake.osz")
	if err := os.WriteFile(src, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ParseBundle(context.Background(), chart.NewPackage(), src, opts); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestParseBundlePathIndexAcrossBundles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.osz")
	second := filepath.Join(dir, "second.osz")
	testsupport.WriteBundle(t, first, map[string][]byte{
		"a.osu":     chartBytes(testsupport.Chart{Audio: "audio.mp3", Version: "A"}),
		"audio.mp3": []byte("first audio"),
	})
	testsupport.WriteBundle(t, second, map[string][]byte{
		"b.osu":     chartBytes(testsupport.Chart{Audio: "audio.mp3", Version: "B"}),
		"audio.mp3": []byte("second audio"),
	})

	t.Run("cleared", func(t *testing.T) {
		opts := parseOptions(t)
		pkg := chart.NewPackage()
		for _, src := range []string{first, second} {
			if _, err := ParseBundle(context.Background(), pkg, src, opts); err != nil {
				t.Fatalf("ParseBundle %s: %v", src, err)
			}
		}
		if got := string(pkg.Beatmaps[1].Audio.Bytes()); got != "second audio" {
			t.Fatalf("second chart got %q", got)
		}
		if pkg.Resources.Len() != 2 {
			t.Fatalf("expected 2 resources, got %d", pkg.Resources.Len())
		}
	})

	t.Run("kept", func(t *testing.T) {
		opts := parseOptions(t)
		opts.ClearPathIndex = false
		pkg := chart.NewPackage()
		for _, src := range []string{first, second} {
			if _, err := ParseBundle(context.Background(), pkg, src, opts); err != nil {
				t.Fatalf("ParseBundle %s: %v", src, err)
			}
		}
		if got := string(pkg.Beatmaps[1].Audio.Bytes()); got != "first audio" {
			t.Fatalf("second chart got %q", got)
		}
	})
}

func TestParseBundleDeduplicatesAcrossBundles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.osz")
	second := filepath.Join(dir, "second.osz")
	testsupport.WriteBundle(t, first, map[string][]byte{
		"a.osu":     chartBytes(testsupport.Chart{Audio: "audio.mp3", Version: "A"}),
		"audio.mp3": []byte("shared"),
	})
	testsupport.WriteBundle(t, second, map[string][]byte{
		"b.osu":    chartBytes(testsupport.Chart{Audio: "song.ogg", Version: "B"}),
		"song.ogg": []byte("shared"),
	})

	opts := parseOptions(t)
	pkg := chart.NewPackage()
	if _, err := ParseBundle(context.Background(), pkg, first, opts); err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	report, err := ParseBundle(context.Background(), pkg, second, opts)
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if report.NewResources != 0 || pkg.Resources.Len() != 1 {
		t.Fatalf("expected identical audio to be shared, pool has %d", pkg.Resources.Len())
	}
	if pkg.Beatmaps[0].Audio != pkg.Beatmaps[1].Audio {
		t.Fatalf("expected both beatmaps to reference the same entry")
	}
}

func TestParseBundleCancelled(t *testing.T) {
	opts := parseOptions(t)
	src := filepath.Join(t.TempDir(), "set.osz")
	testsupport.WriteBundle(t, src, map[string][]byte{
		"a.osu":     chartBytes(testsupport.Chart{Audio: "audio.mp3"}),
		"audio.mp3": []byte("audio"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ParseBundle(ctx, chart.NewPackage(), src, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func compileOptions(t *testing.T, policy string) CompileOptions {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	opts := DefaultCompileOptions(cfg.Paths.StagingDir)
	opts.DuplicateNames = policy
	opts.Logger = logging.NewNop()
	return opts
}

func twinPackage() *chart.Package {
	pkg := chart.NewPackage()
	audio, _ := pkg.Resources.Insert("audio.mp3", []byte("audio"))
	for _, offset := range []int{0, 100} {
		pkg.Add(&chart.Beatmap{
			Title:       chart.LatinAndUnicodeString{Latin: "Song"},
			Creator:     "mapper",
			Version:     "Hard",
			ColumnCount: 4,
			Audio:       audio,
			Objects:     []chart.Object{chart.NewNote(1, offset)},
		})
	}
	return pkg
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestCompileBundleSuffixesDuplicateNames(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.osz")
	report, err := CompileBundle(context.Background(), twinPackage(), dest, compileOptions(t, DuplicateSuffix))
	if err != nil {
		t.Fatalf("CompileBundle: %v", err)
	}
	if len(report.Failures) != 0 || len(report.Charts) != 2 || report.Resources != 1 || report.Entries != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	files := testsupport.ReadBundle(t, dest)
	want := []string{"audio.mp3", "mapper - Song - Hard (2).osu", "mapper - Song - Hard.osu"}
	got := sortedKeys(files)
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}
	if string(files["audio.mp3"]) != "audio" {
		t.Fatalf("audio contents changed")
	}
}

func TestCompileBundleSkipPolicy(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.osz")
	report, err := CompileBundle(context.Background(), twinPackage(), dest, compileOptions(t, DuplicateSkip))
	if err != nil {
		t.Fatalf("CompileBundle: %v", err)
	}
	if len(report.Charts) != 1 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !errors.Is(report.Failures[0].Err, errs.ErrAlreadyExists) || !errors.Is(report.Failures[0].Err, fs.ErrExist) {
		t.Fatalf("unexpected failure %v", report.Failures[0].Err)
	}
}

func TestCompileBundleAvoidsResourceNames(t *testing.T) {
	pkg := chart.NewPackage()
	audio, _ := pkg.Resources.Insert("audio.mp3", []byte("audio"))
	pkg.Resources.Insert("beatmap.osu", []byte("not really a chart"))
	pkg.Add(&chart.Beatmap{ColumnCount: 4, Audio: audio})

	dest := filepath.Join(t.TempDir(), "out.osz")
	report, err := CompileBundle(context.Background(), pkg, dest, compileOptions(t, DuplicateSuffix))
	if err != nil {
		t.Fatalf("CompileBundle: %v", err)
	}
	if len(report.Charts) != 1 || report.Charts[0].Name != "beatmap (2).osu" {
		t.Fatalf("unexpected charts %+v", report.Charts)
	}
	files := testsupport.ReadBundle(t, dest)
	if string(files["beatmap.osu"]) != "not really a chart" {
		t.Fatalf("resource was overwritten")
	}
}

func TestCompileBundleReportsInvalidBeatmaps(t *testing.T) {
	pkg := twinPackage()
	pkg.Beatmaps[1].ColumnCount = 0
	pkg.Beatmaps[1].Source = "set.osz/bad.osu"

	dest := filepath.Join(t.TempDir(), "out.osz")
	report, err := CompileBundle(context.Background(), pkg, dest, compileOptions(t, DuplicateSuffix))
	if err != nil {
		t.Fatalf("CompileBundle: %v", err)
	}
	if len(report.Charts) != 1 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Failures[0].Item != "set.osz/bad.osu" || report.Failures[0].Kind() != errs.KindMissingField {
		t.Fatalf("unexpected failure %+v", report.Failures[0])
	}
}

func TestCompileBundleRejectsUnknownPolicy(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.osz")
	_, err := CompileBundle(context.Background(), twinPackage(), dest, compileOptions(t, "rename"))
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatalf("no output expected, stat err %v", statErr)
	}
}

func TestParseThenCompileRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "set.osz")
	testsupport.WriteBundle(t, src, map[string][]byte{
		"maps/hard.osu": chartBytes(testsupport.Chart{
			Audio: "../audio.mp3", Background: "bg.png", Title: "Song", Creator: "mapper", Version: "Hard", Keys: 7,
			Timing:  []string{"0,400,4,1,0,100,1,0"},
			Objects: []string{"36,192,0,1,0", "475,192,100,128,0,300:0:0:0:0:"},
		}),
		"audio.mp3":   []byte("audio"),
		"maps/bg.png": []byte("png"),
	})

	pkg := chart.NewPackage()
	if _, err := ParseBundle(context.Background(), pkg, src, parseOptions(t)); err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "out.osz")
	if _, err := CompileBundle(context.Background(), pkg, dest, compileOptions(t, DuplicateSuffix)); err != nil {
		t.Fatalf("CompileBundle: %v", err)
	}

	again := chart.NewPackage()
	report, err := ParseBundle(context.Background(), again, dest, parseOptions(t))
	if err != nil {
		t.Fatalf("ParseBundle output: %v", err)
	}
	if report.Decoded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	b := again.Beatmaps[0]
	if b.ColumnCount != 7 || len(b.Objects) != 2 || b.BPMTimePoints[0].BPM != 150 {
		t.Fatalf("unexpected beatmap %+v", b)
	}
	if string(b.Audio.Bytes()) != "audio" || string(b.Background.Bytes()) != "png" {
		t.Fatalf("resources did not survive")
	}
}
