package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"emoroute/internal/fileutil"
	"emoroute/internal/labels"
	"emoroute/internal/logging"
	"emoroute/internal/media/ffprobe"
	"emoroute/internal/media/transcode"
	"emoroute/internal/routing"
	"emoroute/internal/services"
)

// ErrTranscode marks a failed conversion of one source file.
var ErrTranscode = errors.New("transcode failed")

// Prober inspects a source file.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Transcoder converts src into dst in the target format.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFprobe adapts ffprobe.Inspect to Prober.
type FFprobe struct {
	Binary string
}

func (p FFprobe) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, p.Binary, path)
}

// Outcome is what happened to one resolved file.
type Outcome string

const (
	OutcomeCopied     Outcome = "copied"
	OutcomeTranscoded Outcome = "transcoded"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// FileResult records the handling of one resolved decision.
type FileResult struct {
	Dataset     string  `json:"dataset"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Category    string  `json:"category"`
	Outcome     Outcome `json:"outcome"`
	Bytes       int64   `json:"bytes"`
	Error       string  `json:"error,omitempty"`
	Err         error   `json:"-"`
}

// Report summarizes an Apply call.
type Report struct {
	Copied     int          `json:"copied"`
	Transcoded int          `json:"transcoded"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Ignored    int          `json:"ignored"`
	Bytes      int64        `json:"bytes"`
	Results    []FileResult `json:"results"`
}

// Written returns the number of files created or replaced.
func (r Report) Written() int { return r.Copied + r.Transcoded }

// HumanBytes formats the written volume, e.g. "82 MB".
func (r Report) HumanBytes() string { return humanize.Bytes(uint64(r.Bytes)) }

// Options configures a Materializer.
type Options struct {
	OutputDir string
	Target    transcode.Target
	Workers   int
	Overwrite bool
	Verify    bool
	Logger    *slog.Logger
	// Progress, when set, is called after each resolved file is handled.
	Progress func(done, total int)
}

// Materializer applies routing plans to the file system.
type Materializer struct {
	opts       Options
	prober     Prober
	transcoder Transcoder
	logger     *slog.Logger
}

// New constructs a Materializer.
func New(opts Options, prober Prober, transcoder Transcoder) *Materializer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Target.Format == "" {
		opts.Target.Format = "wav"
	}
	return &Materializer{
		opts:       opts,
		prober:     prober,
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(opts.Logger, "materializer"),
	}
}

// Destination returns the output path for a resolved decision. The file name
// is the dataset key followed by the source path relative to root with
// separators flattened to "_", so "DC/sa03.wav" under savee becomes
// "savee_DC_sa03.wav". Sources outside root keep only their base name.
func (m *Materializer) Destination(root string, d routing.Decision) string {
	rel := filepath.Base(d.Source)
	if root != "" {
		if r, err := filepath.Rel(root, d.Source); err == nil && filepath.IsLocal(r) {
			rel = r
		}
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	stem = strings.ReplaceAll(filepath.ToSlash(stem), "/", "_")
	name := d.Dataset + "_" + stem + "." + strings.ToLower(m.opts.Target.Format)
	return filepath.Join(m.opts.OutputDir, string(d.Category), name)
}

// Apply writes every resolved decision in plan. Decisions that are excluded,
// unresolved, or config errors are counted as ignored. The returned error is
// non-nil only when ctx is cancelled; per-file failures live in the report.
func (m *Materializer) Apply(ctx context.Context, plan *routing.Plan) (Report, error) {
	var report Report
	var work []routing.Decision
	var roots []string
	for _, ds := range plan.Datasets {
		for _, d := range ds.Decisions {
			if d.Status != labels.StatusResolved {
				report.Ignored++
				m.logger.Debug("decision not materialized",
					logging.String(logging.FieldDataset, d.Dataset),
					logging.String("path", d.Source),
					logging.String("status", string(d.Status)),
				)
				continue
			}
			work = append(work, d)
			roots = append(roots, ds.Root)
		}
	}

	results := make([]FileResult, len(work))
	claimed := make(map[string]string, len(work))
	var pending []int
	for idx, d := range work {
		dst := m.Destination(roots[idx], d)
		results[idx] = FileResult{Dataset: d.Dataset, Source: d.Source, Destination: dst, Category: string(d.Category)}
		if prev, ok := claimed[dst]; ok {
			results[idx].Outcome = OutcomeFailed
			results[idx].Error = fmt.Sprintf("destination collides with %s", prev)
			continue
		}
		claimed[dst] = d.Source
		pending = append(pending, idx)
	}

	var progressMu sync.Mutex
	done := len(work) - len(pending)
	tick := func() {
		if m.opts.Progress == nil {
			return
		}
		progressMu.Lock()
		done++
		m.opts.Progress(done, len(work))
		progressMu.Unlock()
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(m.opts.Workers)
	for _, idx := range pending {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m.materialize(gctx, &results[idx])
			tick()
			return nil
		})
	}
	err := group.Wait()

	for _, res := range results {
		switch res.Outcome {
		case OutcomeCopied:
			report.Copied++
		case OutcomeTranscoded:
			report.Transcoded++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		default:
			continue
		}
		report.Bytes += res.Bytes
		report.Results = append(report.Results, res)
	}

	m.logger.Info("materialization finished",
		logging.String(logging.FieldEventType, "materialize_complete"),
		logging.Int("copied", report.Copied),
		logging.Int("transcoded", report.Transcoded),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.String("written", report.HumanBytes()),
	)
	if report.Failed > 0 {
		logging.WarnWithContext(m.logger, "some files could not be materialized", "materialize_failures",
			logging.Int("failed", report.Failed),
			logging.String(logging.FieldErrorHint, "inspect the run with `emoroute show` for per-file errors"),
			logging.String(logging.FieldImpact, "output dataset is missing these files"),
		)
	}
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

func (m *Materializer) materialize(ctx context.Context, res *FileResult) {
	logger := m.logger.With(logging.String(logging.FieldDataset, res.Dataset))
	if _, err := os.Stat(res.Destination); err == nil && !m.opts.Overwrite {
		res.Outcome = OutcomeSkipped
		return
	}

	copyAsIs := false
	if m.prober != nil {
		probe, err := m.prober.Probe(ctx, res.Source)
		if err != nil {
			logger.Debug("probe failed; transcoding",
				logging.String("path", res.Source),
				logging.Error(err),
			)
		} else {
			copyAsIs = probe.Matches(m.opts.Target.Format, m.opts.Target.SampleRate, m.opts.Target.Channels)
		}
	}

	if copyAsIs {
		copyFn := fileutil.CopyFile
		if m.opts.Verify {
			copyFn = fileutil.CopyFileVerified
		}
		written, err := copyFn(res.Source, res.Destination)
		if err != nil {
			m.fail(logger, res, services.Wrap(services.ErrTransient, "materialize", "copy", filepath.Base(res.Source), err))
			return
		}
		res.Outcome = OutcomeCopied
		res.Bytes = written
		return
	}

	if m.transcoder == nil {
		m.fail(logger, res, fmt.Errorf("%w: no transcoder configured", ErrTranscode))
		return
	}
	if err := m.transcoder.Transcode(ctx, res.Source, res.Destination); err != nil {
		m.fail(logger, res, fmt.Errorf("%w: %w", ErrTranscode, services.Wrap(services.ErrExternalTool, "materialize", "transcode", filepath.Base(res.Source), err)))
		return
	}
	res.Outcome = OutcomeTranscoded
	if info, err := os.Stat(res.Destination); err == nil {
		res.Bytes = info.Size()
	}
}

func (m *Materializer) fail(logger *slog.Logger, res *FileResult, err error) {
	res.Outcome = OutcomeFailed
	res.Err = err
	res.Error = err.Error()
	logger.Debug("materialize failed",
		logging.String("path", res.Source),
		logging.Error(err),
		logging.String(logging.FieldEventType, "materialize_failed"),
	)
}
