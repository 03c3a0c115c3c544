package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"univsrg/internal/config"
	"univsrg/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	dir        string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("UNIVSRG_STAGING_DIR", "")
	t.Setenv("UNIVSRG_LOG_LEVEL", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(base, "univsrg.toml")
	writeTestConfig(t, configPath, cfg)

	dir := filepath.Join(base, "bundles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bundles: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, dir: dir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
staging_dir = %q
log_dir = %q

[export]
duplicate_names = %q
filter = %q

[history]
enabled = %t
path = %q

[logging]
level = "error"

[staging]
check_free_space = false
`,
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.Export.DuplicateNames,
		cfg.Export.Filter,
		cfg.History.Enabled,
		cfg.History.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeSampleBundle(t *testing.T, path string) {
	t.Helper()
	testsupport.WriteBundle(t, path, map[string][]byte{
		"hard.osu": []byte(testsupport.Chart{
			Audio: "audio.mp3", Title: "Song", Creator: "mapper", Version: "Hard", Keys: 7,
			Timing:  []string{"0,500,4,1,0,100,1,0"},
			Objects: []string{"36,192,0,1,0", "475,192,1000,128,0,61000:0:0:0:0:"},
		}.Text()),
		"easy.osu": []byte(testsupport.Chart{
			Audio: "audio.mp3", Title: "Song", Creator: "mapper", Version: "Easy", Keys: 4,
			Objects: []string{"64,192,0,1,0"},
		}.Text()),
		"broken.osu": []byte(testsupport.Chart{Audio: "audio.mp3", OmitKeys: true}.Text()),
		"audio.mp3":  []byte("audio"),
	})
}

func TestConvertAndHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.dir, "set.osz")
	output := filepath.Join(env.dir, "out.osz")
	writeSampleBundle(t, input)

	out, _, err := runCLI(t, []string{"convert", input, "-o", output}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Wrote "+output)
	requireContains(t, out, "charts:    2")
	requireContains(t, out, "broken.osu")
	requireContains(t, out, "missing_field")

	files := testsupport.ReadBundle(t, output)
	if len(files) != 3 {
		t.Fatalf("unexpected output entries %v", files)
	}

	// A second conversion to the same output needs --force.
	if _, _, err := runCLI(t, []string{"convert", input, "-o", output}, env.configPath); err == nil {
		t.Fatal("expected error when output exists")
	}
	if _, _, err := runCLI(t, []string{"convert", input, "-o", output, "--force", "--filter", "keys == 4"}, env.configPath); err != nil {
		t.Fatalf("convert --force: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"--json", "history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list --json: %v", err)
	}
	var runs []runJSON
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}

	var filteredRun runJSON
	for _, r := range runs {
		if r.Filter == "keys == 4" {
			filteredRun = r
		}
	}
	if filteredRun.ID == "" || filteredRun.Charts != 1 || filteredRun.Filtered != 1 {
		t.Fatalf("unexpected filtered run %#v", filteredRun)
	}

	out, _, err = runCLI(t, []string{"history", "show", filteredRun.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, filteredRun.ID)
	requireContains(t, out, "Filter:    keys == 4")
	requireContains(t, out, "filtered")

	out, _, err = runCLI(t, []string{"history", "prune", "--days", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 2 runs")
}

func TestConvertRequiresOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.dir, "set.osz")
	writeSampleBundle(t, input)
	if _, _, err := runCLI(t, []string{"convert", input}, env.configPath); err == nil {
		t.Fatal("expected error without --output")
	}
}

func TestInspectCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.dir, "set.osz")
	writeSampleBundle(t, input)

	out, _, err := runCLI(t, []string{"inspect", input}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "set.osz/hard.osu")
	requireContains(t, out, "1:01")
	requireContains(t, out, "2 beatmaps, 1 distinct resources")
	requireContains(t, out, "broken.osu")

	out, _, err = runCLI(t, []string{"--json", "inspect", "--filter", "keys == 7", input}, env.configPath)
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var payload inspectJSONPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode inspect: %v\n%s", err, out)
	}
	if len(payload.Beatmaps) != 1 || payload.Beatmaps[0].Version != "Hard" || payload.Beatmaps[0].MaxBPM != 120 {
		t.Fatalf("unexpected beatmaps %#v", payload.Beatmaps)
	}
	if len(payload.Failures) != 1 || payload.Failures[0].Kind != "missing_field" {
		t.Fatalf("unexpected failures %#v", payload.Failures)
	}

	entries, err := os.ReadDir(env.dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("inspect wrote files: %v", entries)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	_, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "history is disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.StagingDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestInvalidConfigIsReported(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[export]\nduplicate_names = \"rename\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "duplicate_names") {
		t.Fatalf("expected duplicate_names error, got %v", err)
	}
}

func TestLogLevelFlagValidated(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--log-level", "loud", "history", "list"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestStagingClean(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.StagingDir, "univsrg-extract-123")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	out, _, err := runCLI(t, []string{"staging", "clean", "--older-than", "0s"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 1 scratch directories")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale directory still present: %v", err)
	}
}
