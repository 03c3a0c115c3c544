package convert

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"univsrg/internal/chart"
	"univsrg/internal/config"
	"univsrg/internal/errs"
	"univsrg/internal/filter"
	"univsrg/internal/history"
	"univsrg/internal/logging"
	"univsrg/internal/osu"
	"univsrg/internal/staging"
)

// Converter executes conversion requests against one configuration.
type Converter struct {
	cfg     *config.Config
	// logger is the base logger handed to the bundle parser and compiler.
	logger  *slog.Logger
	history *history.Store
}

// New constructs a converter. store may be nil to skip the history ledger.
func New(cfg *config.Config, logger *slog.Logger, store *history.Store) (*Converter, error) {
	if cfg == nil {
		return nil, errors.New("converter requires a config")
	}
	return &Converter{
		cfg:     cfg,
		logger:  logger,
		history: store,
	}, nil
}

func (c *Converter) parseOptions(keepPathIndex bool) osu.ParseOptions {
	return osu.ParseOptions{
		StagingDir:      c.cfg.Paths.StagingDir,
		ClearPathIndex:  c.cfg.Import.ClearPathIndex && !keepPathIndex,
		ChartExtensions: c.cfg.Import.ChartExtensions,
		Logger:          c.logger,
	}
}

func (c *Converter) compileOptions() osu.CompileOptions {
	return osu.CompileOptions{
		StagingDir:       c.cfg.Paths.StagingDir,
		DuplicateNames:   c.cfg.Export.DuplicateNames,
		CompressionLevel: c.cfg.Export.CompressionLevel,
		CheckFreeSpace:   c.cfg.Staging.CheckFreeSpace,
		Logger:           c.logger,
	}
}

// Run performs req and returns what was written and skipped. The report is
// returned, partially filled, alongside any error.
func (c *Converter) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()
	report := &Report{}

	req, err := req.normalize()
	if err != nil {
		return report, err
	}
	report.Output = req.Output

	expression := req.Filter
	if expression == "" {
		expression = c.cfg.Export.Filter
	}
	selector, err := filter.Compile(expression)
	if err != nil {
		return report, err
	}

	lock, err := acquireOutputLock(c.cfg.Paths.StagingDir, req.Output)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.NewComponentLogger(c.logger, "converter").Warn("output lock not released", logging.Error(err))
		}
	}()

	report.RunID = uuid.NewString()
	ctx = logging.WithRunID(ctx, report.RunID)
	base := logging.WithContext(ctx, c.logger)
	logger := logging.NewComponentLogger(base, "converter")

	staging.CleanStale(ctx, c.cfg.Paths.StagingDir, c.cfg.StaleAfter(), logging.NewComponentLogger(base, "staging"))
	ledger := c.beginRun(ctx, logger, report.RunID, req, selector)

	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_started"),
		logging.Int("inputs", len(req.Inputs)),
		logging.String("output", req.Output),
		logging.String("filter", selector.String()),
	)

	runErr := c.run(ctx, base, logger, req, selector, report)
	report.Duration = time.Since(started)

	if ledger != nil {
		c.finishRun(ctx, logger, ledger, report, runErr)
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String(logging.FieldErrorKind, errs.KindOf(runErr)),
			logging.Error(runErr),
		)
		return report, runErr
	}

	summary := report.Summary()
	logger.Info("conversion finished",
		logging.String(logging.FieldEventType, "conversion_finished"),
		logging.Int("charts", summary.ChartsWritten),
		logging.Int("resources", summary.Resources),
		logging.Int("filtered", summary.Filtered),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", report.Duration.Round(time.Millisecond)),
	)
	return report, nil
}

func (c *Converter) run(ctx context.Context, base, logger *slog.Logger, req Request, selector *filter.Filter, report *Report) error {
	pkg := chart.NewPackage()
	opts := c.parseOptions(req.KeepPathIndex)
	opts.Logger = base
	for _, input := range req.Inputs {
		parsed, err := osu.ParseBundle(ctx, pkg, input, opts)
		if parsed != nil {
			report.addParse(parsed)
		}
		if err != nil {
			return err
		}
	}

	if !selector.MatchesAll() {
		keep := make([]*chart.Beatmap, 0, len(pkg.Beatmaps))
		for _, b := range pkg.Beatmaps {
			ok, err := selector.Match(b)
			if err != nil {
				return err
			}
			if ok {
				keep = append(keep, b)
				continue
			}
			report.Filtered = append(report.Filtered, b.Source)
			report.Failures = append(report.Failures, ItemFailure{Stage: history.StageFilter, Item: b.Source})
			logger.Debug("beatmap filtered out", logging.String(logging.FieldItem, b.Source))
		}
		if len(keep) != len(pkg.Beatmaps) {
			pkg = retain(keep)
		}
	}

	if len(pkg.Beatmaps) == 0 {
		return errs.Wrap(errs.ErrMissingField, "convert", "compile", "no beatmap decoded or matched the filter; nothing written", nil)
	}

	compileOpts := c.compileOptions()
	compileOpts.Logger = base
	compiled, err := osu.CompileBundle(ctx, pkg, req.Output, compileOpts)
	if compiled != nil {
		report.addCompile(compiled)
	}
	return err
}

// beginRun records the run, returning nil when history is disabled or the
// ledger cannot be written.
func (c *Converter) beginRun(ctx context.Context, logger *slog.Logger, runID string, req Request, selector *filter.Filter) *history.Store {
	if c.history == nil {
		return nil
	}
	err := c.history.BeginRun(ctx, history.Run{
		ID:     runID,
		Inputs: req.Inputs,
		Output: req.Output,
		Filter: selector.String(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
			logging.String(logging.FieldErrorHint, "check history.path"),
		)
		return nil
	}
	return c.history
}

func (c *Converter) finishRun(ctx context.Context, logger *slog.Logger, ledger *history.Store, report *Report, runErr error) {
	// Record even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)
	for _, f := range report.Failures {
		err := ledger.RecordFailure(ctx, report.RunID, history.Failure{
			Stage:   f.Stage,
			Item:    f.Item,
			Kind:    f.Kind(),
			Message: f.Message(),
		})
		if err != nil {
			logging.WarnWithContext(logger, "history failure not recorded", "history_write_failed",
				logging.String(logging.FieldItem, f.Item),
				logging.Error(err),
			)
			break
		}
	}
	if err := ledger.FinishRun(ctx, report.RunID, report.Summary(), runErr); err != nil {
		logging.WarnWithContext(logger, "history not finalised", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run stays marked running"),
		)
	}
}

// Inspect parses inputs without writing anything, for reporting.
func (c *Converter) Inspect(ctx context.Context, inputs []string, keepPathIndex bool) (*chart.Package, []*osu.ParseReport, error) {
	pkg := chart.NewPackage()
	opts := c.parseOptions(keepPathIndex)
	reports := make([]*osu.ParseReport, 0, len(inputs))
	for _, input := range inputs {
		if _, err := bundlePath(input, "input"); err != nil {
			return pkg, reports, err
		}
		parsed, err := osu.ParseBundle(ctx, pkg, input, opts)
		if parsed != nil {
			reports = append(reports, parsed)
		}
		if err != nil {
			return pkg, reports, err
		}
	}
	return pkg, reports, nil
}
