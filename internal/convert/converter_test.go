package convert

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"univsrg/internal/config"
	"univsrg/internal/errs"
	"univsrg/internal/history"
	"univsrg/internal/logging"
	"univsrg/internal/testsupport"
)

func newConverter(t *testing.T, cfg *config.Config) (*Converter, *history.Store) {
	t.Helper()
	var store *history.Store
	if cfg.History.Enabled {
		store = testsupport.MustOpenHistory(t, cfg)
	}
	conv, err := New(cfg, logging.NewNop(), store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return conv, store
}

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	first := filepath.Join(dir, "first.osz")
	second := filepath.Join(dir, "second.osz")
	testsupport.WriteBundle(t, first, map[string][]byte{
		"easy.osu": []byte(testsupport.Chart{
			Audio: "audio.mp3", Title: "First", Creator: "mapper", Version: "Easy", Keys: 4,
			Objects: []string{"64,192,0,1,0"},
		}.Text()),
		"hard.osu": []byte(testsupport.Chart{
			Audio: "audio.mp3", Title: "First", Creator: "mapper", Version: "Hard", Keys: 7,
			Objects: []string{"36,192,0,1,0", "475,192,10,1,0"},
		}.Text()),
		"broken.osu": []byte(testsupport.Chart{Audio: "audio.mp3", OmitKeys: true}.Text()),
		"audio.mp3":  []byte("first audio"),
	})
	testsupport.WriteBundle(t, second, map[string][]byte{
		"normal.osu": []byte(testsupport.Chart{
			Audio: "song.ogg", Background: "bg.jpg", Title: "Second", Creator: "other", Version: "Normal", Keys: 7,
		}.Text()),
		"song.ogg": []byte("second audio"),
		"bg.jpg":   []byte("jpeg"),
	})
	return first, second
}

func TestRunMergesBundles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	conv, store := newConverter(t, cfg)
	dir := t.TempDir()
	first, second := writeInputs(t, dir)
	output := filepath.Join(dir, "merged.osz")

	report, err := conv.Run(context.Background(), Request{Inputs: []string{first, second}, Output: output})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" || report.Output != output {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Decoded() != 3 || len(report.Compiled.Charts) != 3 || report.Compiled.Resources != 3 {
		t.Fatalf("unexpected counts decoded=%d compiled=%+v", report.Decoded(), report.Compiled)
	}
	if len(report.Failures) != 1 || report.Failures[0].Item != "first.osz/broken.osu" || report.Failures[0].Kind() != errs.KindMissingField {
		t.Fatalf("unexpected failures %+v", report.Failures)
	}

	files := testsupport.ReadBundle(t, output)
	for _, name := range []string{
		"audio.mp3", "song.ogg", "bg.jpg",
		"mapper - First - Easy.osu", "mapper - First - Hard.osu", "other - Second - Normal.osu",
	} {
		if _, ok := files[name]; !ok {
			t.Fatalf("output missing %s; has %v", name, files)
		}
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun = %#v, %v", run, err)
	}
	want := history.Summary{ChartsWritten: 3, Resources: 3, Failed: 1}
	if run.Status != history.StatusCompleted || run.Summary != want || len(run.Inputs) != 2 {
		t.Fatalf("unexpected run %#v", run)
	}
	failures, err := store.Failures(context.Background(), report.RunID)
	if err != nil || len(failures) != 1 || failures[0].Stage != history.StageParse {
		t.Fatalf("unexpected recorded failures %#v, %v", failures, err)
	}
}

func TestRunAppliesFilterAndDropsUnusedResources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFilter("keys == 4"))
	conv, store := newConverter(t, cfg)
	dir := t.TempDir()
	first, second := writeInputs(t, dir)
	output := filepath.Join(dir, "merged.osz")

	// The request filter wins over export.filter.
	report, err := conv.Run(context.Background(), Request{Inputs: []string{first, second}, Output: output, Filter: "keys == 7"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Filtered) != 1 || report.Filtered[0] != "first.osz/easy.osu" {
		t.Fatalf("unexpected filtered %v", report.Filtered)
	}
	files := testsupport.ReadBundle(t, output)
	if len(files) != 5 {
		t.Fatalf("expected 2 charts and 3 resources, got %v", files)
	}

	cfgOnly := filepath.Join(dir, "easy-only.osz")
	report, err = conv.Run(context.Background(), Request{Inputs: []string{first, second}, Output: cfgOnly})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	files = testsupport.ReadBundle(t, cfgOnly)
	if len(files) != 2 {
		t.Fatalf("expected one chart and its audio, got %v", files)
	}
	if _, ok := files["song.ogg"]; ok {
		t.Fatalf("audio of filtered beatmaps should not be written")
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun = %#v, %v", run, err)
	}
	if run.Summary.Filtered != 2 || run.Summary.Failed != 1 || run.Filter != "keys == 4" {
		t.Fatalf("unexpected summary %#v", run)
	}
}

func TestRunFailsWhenNothingMatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	conv, store := newConverter(t, cfg)
	dir := t.TempDir()
	first, _ := writeInputs(t, dir)
	output := filepath.Join(dir, "none.osz")

	report, err := conv.Run(context.Background(), Request{Inputs: []string{first}, Output: output, Filter: "keys == 18"})
	if !errors.Is(err, errs.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, statErr := os.Stat(output); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatalf("no output expected, stat err %v", statErr)
	}
	run, _ := store.GetRun(context.Background(), report.RunID)
	if run == nil || run.Status != history.StatusFailed || run.ErrorMessage == "" {
		t.Fatalf("expected failed run, got %#v", run)
	}
}

func TestRunBundleFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	conv, _ := newConverter(t, cfg)
	dir := t.TempDir()
	first, _ := writeInputs(t, dir)
	bogus := filepath.Join(dir, "bogus.osz")
	if err := os.WriteFile(bogus, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := conv.Run(context.Background(), Request{Inputs: []string{first, bogus}, Output: filepath.Join(dir, "out.osz")})
	if !errors.Is(err, errs.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if len(report.Parsed) != 2 || report.Compiled != nil {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunValidatesRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	conv, _ := newConverter(t, cfg)
	dir := t.TempDir()
	first, _ := writeInputs(t, dir)
	existing := filepath.Join(dir, "existing.osz")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"no inputs", Request{Output: filepath.Join(dir, "o.osz")}, errs.ErrConfiguration},
		{"missing input", Request{Inputs: []string{filepath.Join(dir, "missing.osz")}, Output: filepath.Join(dir, "o.osz")}, errs.ErrConfiguration},
		{"wrong input extension", Request{Inputs: []string{filepath.Join(dir, "a.zip")}, Output: filepath.Join(dir, "o.osz")}, errs.ErrConfiguration},
		{"wrong output extension", Request{Inputs: []string{first}, Output: filepath.Join(dir, "o.zip")}, errs.ErrConfiguration},
		{"output is input", Request{Inputs: []string{first}, Output: first, Overwrite: true}, errs.ErrConfiguration},
		{"output exists", Request{Inputs: []string{first}, Output: existing}, errs.ErrAlreadyExists},
		{"bad filter", Request{Inputs: []string{first}, Output: filepath.Join(dir, "o.osz"), Filter: "keys +"}, errs.ErrConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := conv.Run(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := conv.Run(context.Background(), Request{Inputs: []string{first}, Output: existing, Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	conv, _ := newConverter(t, cfg)
	dir := t.TempDir()
	first, _ := writeInputs(t, dir)
	output := filepath.Join(dir, "out.osz")

	path := lockPath(cfg.Paths.StagingDir, output)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	held := flock.New(path)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}

	_, err = conv.Run(context.Background(), Request{Inputs: []string{first}, Output: output})
	if !errors.Is(err, errs.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := held.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := conv.Run(context.Background(), Request{Inputs: []string{first}, Output: output}); err != nil {
		t.Fatalf("Run after unlock: %v", err)
	}
}

func TestInspectDoesNotWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	conv, _ := newConverter(t, cfg)
	dir := t.TempDir()
	first, second := writeInputs(t, dir)

	pkg, reports, err := conv.Inspect(context.Background(), []string{first, second}, false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(pkg.Beatmaps) != 3 || len(reports) != 2 || len(reports[0].Failures) != 1 {
		t.Fatalf("unexpected inspect result beatmaps=%d reports=%d", len(pkg.Beatmaps), len(reports))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("inspect should not write next to inputs: %v", entries)
	}
}

func TestRetainKeepsOnlyReferencedResources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	conv, _ := newConverter(t, cfg)
	dir := t.TempDir()
	first, second := writeInputs(t, dir)
	pkg, _, err := conv.Inspect(context.Background(), []string{first, second}, false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	kept := retain(pkg.Beatmaps[2:])
	if len(kept.Beatmaps) != 1 || kept.Resources.Len() != 2 {
		t.Fatalf("unexpected retained package: %d beatmaps, %d resources", len(kept.Beatmaps), kept.Resources.Len())
	}
	if kept.Beatmaps[0] == pkg.Beatmaps[2] {
		t.Fatalf("retain should copy beatmaps")
	}
	if pkg.Beatmaps[2].Audio == kept.Beatmaps[0].Audio {
		t.Fatalf("retained beatmap should point into the new pool")
	}
	if string(kept.Beatmaps[0].Audio.Bytes()) != "second audio" {
		t.Fatalf("audio contents changed")
	}
}
