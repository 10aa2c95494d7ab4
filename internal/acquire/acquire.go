package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"emoroute/internal/dataset"
	"emoroute/internal/logging"
	"emoroute/internal/services"
)

// MarkerName is written into a dataset root once every source has been fetched.
const MarkerName = ".complete"

const defaultTimeout = time.Hour

// ErrDownload marks failures while fetching or unpacking a dataset.
var ErrDownload = errors.New("dataset download failed")

// Outcome describes what Fetch did for one dataset.
type Outcome string

const (
	OutcomeFetched   Outcome = "fetched"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLocalOnly Outcome = "local_only"
	OutcomeFailed    Outcome = "failed"
)

// Result reports the acquisition of one dataset.
type Result struct {
	Dataset string
	Outcome Outcome
	Files   int
	Bytes   int64
	Err     error
}

// Options configures a Fetcher.
type Options struct {
	Timeout        time.Duration
	HuggingFaceCLI string
	Force          bool
	Logger         *slog.Logger
	Client         *http.Client
	// Progress, when set, receives byte counts for each URL download. total
	// is -1 when the server does not report a length.
	Progress func(dataset string, written, total int64)
}

// Fetcher downloads datasets.
type Fetcher struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// New constructs a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.HuggingFaceCLI) == "" {
		opts.HuggingFaceCLI = "huggingface-cli"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{opts: opts, client: client, logger: logging.NewComponentLogger(logger, "acquire")}
}

// IsComplete reports whether root carries the completion marker.
func IsComplete(root string) bool {
	info, err := os.Stat(filepath.Join(root, MarkerName))
	return err == nil && !info.IsDir()
}

// FetchAll fetches each descriptor in order. A failed dataset does not stop
// the others; the returned error joins every failure. Cancellation stops the
// loop and is returned as-is.
func (f *Fetcher) FetchAll(ctx context.Context, descriptors []*dataset.Descriptor) ([]Result, error) {
	results := make([]Result, 0, len(descriptors))
	var failures []error
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := f.Fetch(ctx, d)
		results = append(results, res)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			failures = append(failures, err)
		}
	}
	return results, errors.Join(failures...)
}

// Fetch acquires a single dataset into its local root.
func (f *Fetcher) Fetch(ctx context.Context, d *dataset.Descriptor) (Result, error) {
	res := Result{Dataset: d.Key}
	logger := f.logger.With(logging.String(logging.FieldDataset, d.Key))

	if !d.HasRemoteSource() {
		res.Outcome = OutcomeLocalOnly
		logger.Debug("dataset has no remote source", logging.String("root", d.LocalRoot))
		return res, nil
	}
	if IsComplete(d.LocalRoot) && !f.opts.Force {
		res.Outcome = OutcomeSkipped
		logger.Info("dataset already fetched", logging.String("root", d.LocalRoot))
		return res, nil
	}
	if err := os.MkdirAll(d.LocalRoot, 0o755); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = services.Wrap(ErrDownload, "acquire", "create root", d.LocalRoot, err)
		return res, res.Err
	}

	start := time.Now()
	var err error
	if d.HostedRepo != "" {
		err = f.fetchHosted(ctx, d)
	} else {
		for _, url := range d.URLs {
			var files int
			var size int64
			files, size, err = f.fetchURL(ctx, d, url)
			res.Files += files
			res.Bytes += size
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		logging.WarnWithContext(logger, "dataset fetch failed", "fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access or place the files under the dataset root manually"),
		)
		return res, err
	}

	if err := writeMarker(d.LocalRoot); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = services.Wrap(ErrDownload, "acquire", "write marker", d.LocalRoot, err)
		return res, res.Err
	}
	res.Outcome = OutcomeFetched
	logger.Info("dataset fetched",
		logging.String(logging.FieldEventType, "fetch_complete"),
		logging.Int("files", res.Files),
		logging.String("size", humanize.Bytes(uint64(res.Bytes))),
		logging.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
	return res, nil
}

func writeMarker(root string) error {
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(filepath.Join(root, MarkerName), []byte(stamp), 0o644)
}

func wrapDownload(operation, detail string, err error) error {
	return services.Wrap(ErrDownload, "acquire", operation, detail, err)
}

func statusError(url string, code int) error {
	return wrapDownload("download", url, fmt.Errorf("unexpected status %d", code))
}
