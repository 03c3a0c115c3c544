package osu

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"univsrg/internal/archive"
	"univsrg/internal/chart"
	"univsrg/internal/errs"
	"univsrg/internal/logging"
	"univsrg/internal/staging"
)

// BundleExt is the extension of input and output bundles.
const BundleExt = ".osz"

// ParseOptions controls how ParseBundle reads one bundle.
type ParseOptions struct {
	// StagingDir is where the extraction scratch directory is created.
	StagingDir string
	// ClearPathIndex drops the pool's path index before decoding, so paths
	// in this bundle never resolve to files from an earlier one.
	ClearPathIndex bool
	// ChartExtensions lists lower-case extensions, with dot, that mark chart
	// files. Defaults to ".osu".
	ChartExtensions []string
	Logger          *slog.Logger
}

func (o ParseOptions) isChart(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if len(o.ChartExtensions) == 0 {
		return ext == ChartExt
	}
	for _, candidate := range o.ChartExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// ParseBundle extracts the bundle at src and appends every chart that decodes
// to pkg. Charts that fail are listed in the report and do not stop the rest;
// failures of the bundle itself are returned as the error.
func ParseBundle(ctx context.Context, pkg *chart.Package, src string, opts ParseOptions) (*ParseReport, error) {
	logger := logging.NewComponentLogger(opts.Logger, "bundle_parser").With(logging.String(logging.FieldBundle, src))
	report := &ParseReport{Bundle: src}

	scratch, err := staging.NewScratch(opts.StagingDir, "extract")
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

	names, err := archive.Extract(ctx, src, scratch.Path())
	if err != nil {
		return report, err
	}

	if opts.ClearPathIndex {
		pkg.Resources.ClearPathIndex()
	}
	before := pkg.Resources.Len()
	label := filepath.Base(src)

	for _, name := range names {
		if !opts.isChart(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Charts++

		beatmap, err := DecodeFile(Location{Root: scratch.Path(), Rel: name}, pkg.Resources)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Item: name, Err: err})
			logging.WarnWithContext(logger, "chart skipped", "chart_decode_failed",
				logging.String(logging.FieldItem, name),
				logging.String(logging.FieldErrorKind, errs.KindOf(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "chart missing from output"),
				logging.String(logging.FieldErrorHint, "check the chart's [Difficulty] and [General] sections"),
			)
			continue
		}
		beatmap.Source = label + "/" + name
		pkg.Add(beatmap)
		report.Decoded++
		logger.Debug("chart decoded",
			logging.String(logging.FieldItem, name),
			logging.Int("columns", beatmap.ColumnCount),
			logging.Int("objects", len(beatmap.Objects)),
		)
	}

	report.NewResources = pkg.Resources.Len() - before
	logger.Info("bundle parsed",
		logging.String(logging.FieldEventType, "bundle_parsed"),
		logging.Int("charts", report.Charts),
		logging.Int("decoded", report.Decoded),
		logging.Int("failed", len(report.Failures)),
		logging.Int("new_resources", report.NewResources),
	)
	return report, nil
}
