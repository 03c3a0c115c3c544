package osu

import (
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"univsrg/internal/archive"
	"univsrg/internal/chart"
	"univsrg/internal/errs"
	"univsrg/internal/fileutil"
	"univsrg/internal/logging"
	"univsrg/internal/resource"
	"univsrg/internal/staging"
)

// Duplicate chart name policies.
const (
	DuplicateSuffix = "suffix"
	DuplicateSkip   = "skip"
)

// maxDuplicateSuffix bounds the " (n)" search for one chart name.
const maxDuplicateSuffix = 999

// CompileOptions controls how CompileBundle writes the output bundle.
type CompileOptions struct {
	// StagingDir is where the compile scratch directory is created.
	StagingDir string
	// DuplicateNames is DuplicateSuffix (default) or DuplicateSkip.
	DuplicateNames string
	// CompressionLevel is a compress/flate level.
	CompressionLevel int
	// CheckFreeSpace refuses to start when the staging filesystem cannot hold
	// the inflated resources plus the archive.
	CheckFreeSpace bool
	Logger         *slog.Logger
}

// DefaultCompileOptions returns suffix naming at the default deflate level.
func DefaultCompileOptions(stagingDir string) CompileOptions {
	return CompileOptions{
		StagingDir:       stagingDir,
		DuplicateNames:   DuplicateSuffix,
		CompressionLevel: flate.DefaultCompression,
	}
}

// CompileBundle writes every resource of pkg and every beatmap that encodes
// into a scratch directory, then archives it to dest. Beatmaps that cannot be
// encoded are listed in the report. pkg is not modified.
func CompileBundle(ctx context.Context, pkg *chart.Package, dest string, opts CompileOptions) (*CompileReport, error) {
	logger := logging.NewComponentLogger(opts.Logger, "bundle_compiler").With(logging.String(logging.FieldBundle, dest))
	report := &CompileReport{Output: dest}

	policy := strings.ToLower(strings.TrimSpace(opts.DuplicateNames))
	switch policy {
	case "":
		policy = DuplicateSuffix
	case DuplicateSuffix, DuplicateSkip:
	default:
		return report, errs.Wrap(errs.ErrConfiguration, "compiler", "options", fmt.Sprintf("unknown duplicate name policy %q", opts.DuplicateNames), nil)
	}

	scratch, err := staging.NewScratch(opts.StagingDir, "compile")
	if err != nil {
		return report, err
	}
	defer func() {
		if err := scratch.Remove(); err != nil {
			logging.WarnWithContext(logger, "scratch directory not removed", "scratch_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space not reclaimed until stale cleanup"),
			)
		}
	}()

	if opts.CheckFreeSpace {
		// Resources are written once to the scratch tree and once, at worst
		// uncompressed, into the archive.
		need := uint64(pkg.Resources.TotalBytes()) * 2
		if err := staging.CheckFreeSpace(scratch.Path(), need); err != nil {
			return report, err
		}
	}

	out, err := resource.Inflate(scratch.Path(), pkg.Resources)
	if err != nil {
		return report, err
	}
	report.Resources = out.Len()

	for _, beatmap := range pkg.Beatmaps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := beatmapLabel(beatmap)
		name, err := writeChart(beatmap, out, policy)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Item: item, Err: err})
			logging.WarnWithContext(logger, "beatmap skipped", "beatmap_encode_failed",
				logging.String(logging.FieldItem, item),
				logging.String(logging.FieldErrorKind, errs.KindOf(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "beatmap missing from output"),
			)
			continue
		}
		report.Charts = append(report.Charts, WrittenChart{Name: name, Source: beatmap.Source})
		logger.Debug("chart written", logging.String(logging.FieldItem, name))
	}

	entries, err := archive.Create(ctx, scratch.Path(), dest, archive.Options{Level: opts.CompressionLevel})
	if err != nil {
		return report, err
	}
	report.Entries = entries

	logger.Info("bundle compiled",
		logging.String(logging.FieldEventType, "bundle_compiled"),
		logging.Int("charts", len(report.Charts)),
		logging.Int("resources", report.Resources),
		logging.Int("failed", len(report.Failures)),
	)
	return report, nil
}

func writeChart(beatmap *chart.Beatmap, out *resource.Out, policy string) (string, error) {
	encoded, err := Encode(beatmap, out)
	if err != nil {
		return "", err
	}
	name, err := chooseChartName(ChartFileName(beatmap), out, policy)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := encoded.Write(&buf); err != nil {
		return "", errs.Wrap(errs.ErrIO, "compiler", "encode", name, err)
	}
	if err := fileutil.WriteExclusive(filepath.Join(out.Dir(), name), buf.Bytes(), 0o644); err != nil {
		return "", errs.Wrap(errs.ErrIO, "compiler", "write", name, err)
	}
	out.Reserve(name)
	return name, nil
}

// chooseChartName resolves a clash with an earlier chart or a resource file.
func chooseChartName(name string, out *resource.Out, policy string) (string, error) {
	if !out.Taken(name) {
		return name, nil
	}
	if policy == DuplicateSkip {
		return "", errs.AlreadyExists("compiler", "chart name", name+" is already used in the output")
	}
	stem := strings.TrimSuffix(name, ChartExt)
	for n := 2; n <= maxDuplicateSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ChartExt)
		if !out.Taken(candidate) {
			return candidate, nil
		}
	}
	return "", errs.Wrap(errs.ErrNameCollisionExhausted, "compiler", "chart name", name, nil)
}

func beatmapLabel(b *chart.Beatmap) string {
	if b.Source != "" {
		return b.Source
	}
	return ChartFileName(b)
}
