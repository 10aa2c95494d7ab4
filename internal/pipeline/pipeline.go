package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"emoroute/internal/acquire"
	"emoroute/internal/config"
	"emoroute/internal/dataset"
	"emoroute/internal/discovery"
	"emoroute/internal/logging"
	"emoroute/internal/materialize"
	"emoroute/internal/media/transcode"
	"emoroute/internal/notifications"
	"emoroute/internal/preflight"
	"emoroute/internal/routing"
	"emoroute/internal/runlock"
	"emoroute/internal/runstore"
	"emoroute/internal/services"
	"emoroute/internal/staging"
)

// Stage names recorded in log context.
const (
	StageFetch       = "fetch"
	StageDiscover    = "discover"
	StageRoute       = "route"
	StageMaterialize = "materialize"
)

// Options adjusts a single invocation.
type Options struct {
	// Datasets restricts the run to these keys. Empty means every enabled dataset.
	Datasets []string
	Fetch    bool
	// ForceFetch re-downloads datasets that already carry a completion marker.
	ForceFetch bool
	DryRun     bool
	// MinFreeBytes overrides preflight.MinFreeBytes for the output volume.
	MinFreeBytes uint64

	Prober     materialize.Prober
	Transcoder materialize.Transcoder
	Notifier   notifications.Service

	FetchProgress       func(dataset string, written, total int64)
	MaterializeProgress func(done, total int)
}

// Result is everything a run produced. Fields are nil for stages that did
// not execute.
type Result struct {
	Run     *runstore.Run
	Catalog *dataset.Catalog
	Issues  []dataset.Issue
	Fetched []acquire.Result
	Listing discovery.Listing
	Plan    *routing.Plan
	Report  *materialize.Report
	LogPath string
}

// Pipeline wires the stages together for one configuration.
type Pipeline struct {
	cfg    *config.Config
	store  *runstore.Store
	logger *slog.Logger
	opts   Options
}

// New constructs a Pipeline. store may be nil for Plan-only use.
func New(cfg *config.Config, store *runstore.Store, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MinFreeBytes == 0 {
		opts.MinFreeBytes = preflight.MinFreeBytes
	}
	if opts.Prober == nil {
		opts.Prober = materialize.FFprobe{Binary: cfg.FFprobeBinary()}
	}
	if opts.Transcoder == nil {
		opts.Transcoder = transcode.FFmpeg{Binary: cfg.FFmpegBinary(), Target: target(cfg)}
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(cfg)
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger, opts: opts}
}

func target(cfg *config.Config) transcode.Target {
	return transcode.Target{
		Format:     cfg.Audio.Format,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}
}

// Catalog builds the descriptors selected by the options.
func (p *Pipeline) Catalog() (*dataset.Catalog, error) {
	catalog, err := dataset.FromConfig(p.cfg, p.opts.Datasets...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "build descriptors", "", err)
	}
	return catalog, nil
}

// Plan discovers and routes without writing anything.
func (p *Pipeline) Plan(ctx context.Context) (*Result, error) {
	catalog, err := p.Catalog()
	if err != nil {
		return nil, err
	}
	result := &Result{Catalog: catalog, Issues: dataset.Check(catalog.Descriptors, catalog.Final)}
	p.logIssues(p.logger, result.Issues)

	if err := p.discoverAndRoute(ctx, p.logger, result); err != nil {
		return result, err
	}
	return result, nil
}

// Fetch acquires the selected datasets under the run lock.
func (p *Pipeline) Fetch(ctx context.Context) ([]acquire.Result, error) {
	lock, err := runlock.Acquire(p.cfg.Paths.StateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	catalog, err := p.Catalog()
	if err != nil {
		return nil, err
	}
	return p.fetch(ctx, p.logger, catalog.Descriptors)
}

// Run executes the full pipeline and records it in the run store. The
// returned Result is populated as far as the run progressed, even on error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.store == nil {
		return nil, fmt.Errorf("run store is required")
	}
	lock, err := runlock.Acquire(p.cfg.Paths.StateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	catalog, err := p.Catalog()
	if err != nil {
		return nil, err
	}
	result := &Result{Catalog: catalog}

	run, err := p.store.CreateRun(context.WithoutCancel(ctx), selectedKeys(catalog), p.opts.DryRun)
	if err != nil {
		return nil, err
	}
	result.Run = run
	ctx = services.WithRunID(ctx, run.ID)

	logger, closer := p.runLogger(run.ID, result)
	if closer != nil {
		defer closer.Close()
	}
	logger = logging.WithContext(ctx, logger)
	start := time.Now()
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("datasets", len(catalog.Descriptors)),
		logging.Int("invalid_datasets", len(catalog.Invalid)),
		logging.Bool("dry_run", p.opts.DryRun),
		logging.Bool("fetch", p.opts.Fetch),
	)

	runErr := p.execute(ctx, logger, result)

	completion := runstore.Completion{Err: runErr, Report: result.Report}
	if result.Plan != nil {
		completion.Totals = result.Plan.Totals()
	}
	// The run row is finalized even when ctx was cancelled.
	if err := p.store.FinishRun(context.WithoutCancel(ctx), run.ID, completion); err != nil {
		logger.Error("failed to record run completion", logging.Error(err))
	}
	if stored, err := p.store.GetRun(context.WithoutCancel(ctx), run.ID); err == nil {
		result.Run = stored
	}

	status := services.FailureStatus(runErr)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", status),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	}
	if result.Report != nil {
		attrs = append(attrs,
			logging.Int("written", result.Report.Written()),
			logging.String("bytes", result.Report.HumanBytes()),
		)
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		logging.ErrorWithContext(logger, "run finished with errors", "run_failed", attrs...)
		p.notify(ctx, logger, notifications.EventRunFailed, notifications.Payload{
			"run":    shortID(run.ID),
			"status": status,
			"error":  runErr.Error(),
		})
	} else {
		logger.Info("run finished", logging.Args(attrs...)...)
		if !p.opts.DryRun {
			p.notify(ctx, logger, notifications.EventRunCompleted, runPayload(run.ID, result))
		}
	}
	return result, runErr
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, result *Result) error {
	catalog := result.Catalog
	result.Issues = dataset.Check(catalog.Descriptors, catalog.Final)
	p.logIssues(logger, result.Issues)
	if !p.opts.DryRun {
		p.sweepLeftovers(ctx, logger)
	}

	var fetchErr error
	if p.opts.Fetch {
		fetchLog := stageLogger(logger, StageFetch)
		result.Fetched, fetchErr = p.fetch(services.WithStage(ctx, StageFetch), fetchLog, catalog.Descriptors)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fetchErr != nil {
			logging.WarnWithContext(fetchLog, "some datasets could not be fetched; routing what is on disk", "fetch_incomplete",
				logging.Error(fetchErr),
				logging.String(logging.FieldImpact, "missing datasets contribute no files"),
			)
		}
	}

	if err := p.discoverAndRoute(ctx, logger, result); err != nil {
		if result.Plan != nil {
			p.record(ctx, logger, result)
		}
		return err
	}
	p.record(ctx, logger, result)

	if p.opts.DryRun {
		logger.Info("dry run; output tree left untouched", logging.Int("resolved", len(result.Plan.Resolved())))
		return fetchErr
	}

	if err := p.materialize(ctx, logger, result); err != nil {
		return err
	}
	return fetchErr
}

// sweepLeftovers removes temporary files from interrupted runs. The caller
// holds the run lock, so nothing else can be writing them.
func (p *Pipeline) sweepLeftovers(ctx context.Context, logger *slog.Logger) {
	var removed int
	var reclaimed int64
	for _, target := range []struct {
		dir   string
		depth int
	}{
		{p.cfg.Paths.OutputDir, 1},
		{p.cfg.Paths.RawDir, 0},
	} {
		res := staging.CleanLeftovers(ctx, target.dir, target.depth, 0, logger)
		removed += len(res.Removed)
		reclaimed += res.Bytes
	}
	if removed > 0 {
		logger.Info("removed leftover temporary files",
			logging.String(logging.FieldEventType, "staging_cleanup"),
			logging.Int("files", removed),
			logging.Int64("bytes", reclaimed),
		)
	}
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, result *Result) {
	if err := p.store.RecordPlan(context.WithoutCancel(ctx), result.Run.ID, result.Plan); err != nil {
		logging.WarnWithContext(logger, "failed to persist routing plan", "run_store_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history will lack per-file decisions for this run"),
		)
	}
}

func (p *Pipeline) fetch(ctx context.Context, logger *slog.Logger, descriptors []*dataset.Descriptor) ([]acquire.Result, error) {
	fetcher := acquire.New(acquire.Options{
		Timeout:        time.Duration(p.cfg.Acquire.TimeoutSeconds) * time.Second,
		HuggingFaceCLI: p.cfg.Acquire.HuggingFaceCLI,
		Force:          p.opts.ForceFetch,
		Logger:         logger,
		Progress:       p.opts.FetchProgress,
	})
	results, err := fetcher.FetchAll(ctx, descriptors)
	if ctx.Err() == nil {
		var fetched, failed int
		for _, res := range results {
			switch res.Outcome {
			case acquire.OutcomeFetched:
				fetched++
			case acquire.OutcomeFailed:
				failed++
			}
		}
		if fetched+failed > 0 {
			p.notify(ctx, logger, notifications.EventFetchCompleted, notifications.Payload{"fetched": fetched, "failed": failed})
		}
	}
	return results, err
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := p.opts.Notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run continues without push notification"),
		)
	}
}

func (p *Pipeline) discoverAndRoute(ctx context.Context, logger *slog.Logger, result *Result) error {
	catalog := result.Catalog

	discoverLogger := stageLogger(logger, StageDiscover)
	scanner := discovery.NewScanner([]string{p.cfg.AudioExtension()}, discoverLogger)
	listing, err := scanner.Scan(ctx, catalog.Descriptors)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageDiscover, "scan dataset roots", "", err)
	}
	result.Listing = listing
	discoverLogger.Info("discovery complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("files", listing.Count()),
	)

	routeLogger := stageLogger(logger, StageRoute)
	router := routing.New(catalog.Final, routing.Options{
		Workers:   p.cfg.Routing.Workers,
		Tolerance: p.cfg.Routing.CountTolerance,
		Logger:    routeLogger,
	})
	plan, err := router.Route(services.WithStage(ctx, StageRoute), catalog.Descriptors, listing)
	if plan != nil {
		for _, invalid := range catalog.Invalid {
			plan.Invalid = append(plan.Invalid, routing.InvalidDataset{Dataset: invalid.Key, Reason: invalid.Error()})
		}
	}
	result.Plan = plan
	if err != nil {
		return err
	}
	totals := plan.Totals()
	routeLogger.Info("routing complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("resolved", totals.Resolved),
		logging.Int("excluded", totals.Excluded),
		logging.Int("unresolved", totals.Unresolved),
		logging.Int("config_errors", totals.ConfigErrors),
	)
	for _, invalid := range plan.Invalid {
		logging.ErrorWithContext(routeLogger, "dataset skipped: malformed descriptor", "descriptor_invalid",
			logging.String(logging.FieldDataset, invalid.Dataset),
			logging.String("reason", invalid.Reason),
			logging.String(logging.FieldErrorHint, "fix the [datasets."+invalid.Dataset+"] section and rerun"),
		)
	}
	return nil
}

func (p *Pipeline) materialize(ctx context.Context, logger *slog.Logger, result *Result) error {
	stageLog := stageLogger(logger, StageMaterialize)
	if err := p.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, StageMaterialize, "ensure directories", "", err)
	}
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Output directory", p.cfg.Paths.OutputDir),
		preflight.CheckFreeSpace("Output volume", p.cfg.Paths.OutputDir, p.opts.MinFreeBytes),
	}
	if failed := preflight.Failed(checks); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, f := range failed {
			details = append(details, f.Name+": "+f.Detail)
		}
		return services.Wrap(services.ErrConfiguration, StageMaterialize, "preflight", strings.Join(details, "; "), nil)
	}

	stageLog.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	m := materialize.New(materialize.Options{
		OutputDir: p.cfg.Paths.OutputDir,
		Target:    target(p.cfg),
		Workers:   p.cfg.Materialize.Workers,
		Overwrite: p.cfg.Materialize.OverwriteExisting,
		Verify:    p.cfg.Materialize.VerifyCopies,
		Logger:    stageLog,
		Progress:  p.opts.MaterializeProgress,
	}, p.opts.Prober, p.opts.Transcoder)

	report, err := m.Apply(services.WithStage(ctx, StageMaterialize), result.Plan)
	result.Report = &report
	if err != nil {
		return err
	}
	stageLog.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("copied", report.Copied),
		logging.Int("transcoded", report.Transcoded),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.String("bytes", report.HumanBytes()),
	)
	if report.Failed > 0 {
		return services.Wrap(services.ErrExternalTool, StageMaterialize, "apply plan",
			fmt.Sprintf("%d of %d files failed", report.Failed, report.Failed+report.Written()+report.Skipped), nil)
	}
	return nil
}

func runPayload(runID string, result *Result) notifications.Payload {
	payload := notifications.Payload{"run": shortID(runID)}
	if result.Plan != nil {
		totals := result.Plan.Totals()
		payload["resolved"] = totals.Resolved
		payload["problems"] = totals.Unresolved + totals.ConfigErrors
	}
	if result.Report != nil {
		payload["written"] = result.Report.Written()
		payload["bytes"] = result.Report.HumanBytes()
	}
	return payload
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runLogger tees the base logger into a per-run log file and prunes old
// run logs. Failure to open the file only costs the per-run copy.
func (p *Pipeline) runLogger(runID string, result *Result) (*slog.Logger, io.Closer) {
	logDir := p.cfg.Paths.LogDir
	if strings.TrimSpace(logDir) == "" {
		return p.logger, nil
	}
	path := logging.RunLogPath(logDir, runID)
	handler, closer, err := logging.NewFileHandler(path, "json", p.cfg.Logging.Level)
	if err != nil {
		logging.WarnWithContext(p.logger, "per-run log unavailable", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is only logged to the shared log"),
		)
		return p.logger, nil
	}
	result.LogPath = path
	logger := logging.TeeLogger(p.logger, handler)
	logging.CleanupOldLogs(logger, p.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     logDir,
		Pattern: logging.RunLogPattern,
		Exclude: []string{path},
	})
	return logger, closer
}

func (p *Pipeline) logIssues(logger *slog.Logger, issues []dataset.Issue) {
	for _, issue := range issues {
		hint, impact := "run `emoroute check` and fix the emotion tables", "affected files will be reported as config errors"
		if issue.Kind.Advisory() {
			hint, impact = "check the dataset's language_filter spelling", "files outside a matching directory stay unresolved"
		}
		logging.WarnWithContext(logger, "configuration completeness issue", "completeness_issue",
			logging.String(logging.FieldDataset, issue.Dataset),
			logging.String("kind", string(issue.Kind)),
			logging.String("detail", issue.Detail),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, impact),
		)
	}
}

func stageLogger(logger *slog.Logger, stage string) *slog.Logger {
	return logger.With(logging.String(logging.FieldStage, stage))
}

func selectedKeys(catalog *dataset.Catalog) []string {
	keys := make([]string, 0, len(catalog.Descriptors)+len(catalog.Invalid))
	for _, d := range catalog.Descriptors {
		keys = append(keys, d.Key)
	}
	for _, invalid := range catalog.Invalid {
		keys = append(keys, invalid.Key)
	}
	return keys
}
