package routing

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"emoroute/internal/dataset"
	"emoroute/internal/emotion"
	"emoroute/internal/labels"
	"emoroute/internal/logging"
)

// DefaultTolerance is the fraction of expected_count a dataset may deviate by
// before CountMismatch is raised.
const DefaultTolerance = 0.10

// Options configures a Router.
type Options struct {
	Workers   int
	Tolerance float64
	Logger    *slog.Logger
}

// Router routes discovered files through the two-stage label mapping.
type Router struct {
	final     emotion.FinalMap
	workers   int
	tolerance float64
	logger    *slog.Logger
}

// New constructs a Router for the given final map.
func New(final emotion.FinalMap, opts Options) *Router {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tolerance := opts.Tolerance
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return &Router{
		final:     final,
		workers:   workers,
		tolerance: tolerance,
		logger:    logging.NewComponentLogger(opts.Logger, "router"),
	}
}

// Route produces the plan for descriptors over the discovery listing, which
// maps dataset keys to file paths. The returned plan lists datasets sorted by
// key and each dataset's decisions sorted by source path. When ctx is
// cancelled, datasets that finished routing are still returned together with
// the context error.
func (r *Router) Route(ctx context.Context, descriptors []*dataset.Descriptor, discovered map[string][]string) (*Plan, error) {
	descriptors = slices.Clone(descriptors)
	slices.SortFunc(descriptors, func(a, b *dataset.Descriptor) int { return strings.Compare(a.Key, b.Key) })
	assigned := assignOwners(descriptors, discovered)

	slots := make([]DatasetPlan, len(descriptors))
	done := make([]bool, len(descriptors))

	var group errgroup.Group
	group.SetLimit(r.workers)
	for idx, d := range descriptors {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[idx] = r.routeDataset(ctx, d, assigned[d.Key])
			done[idx] = true
			return nil
		})
	}
	err := group.Wait()

	plan := &Plan{Datasets: make([]DatasetPlan, 0, len(descriptors))}
	for idx := range descriptors {
		if done[idx] {
			plan.Datasets = append(plan.Datasets, slots[idx])
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return plan, err
}

func (r *Router) routeDataset(ctx context.Context, d *dataset.Descriptor, paths []string) DatasetPlan {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldDataset, d.Key))
	plan := DatasetPlan{
		Dataset:   d.Key,
		Name:      d.Name,
		Root:      d.LocalRoot,
		Decisions: make([]Decision, 0, len(paths)),
		Summary:   newSummary(d.ExpectedCount),
	}
	plan.Summary.Discovered = len(paths)

	for _, path := range paths {
		res := labels.Label(path, d, r.final)
		decision := Decision{
			Dataset:      d.Key,
			Source:       path,
			Status:       res.Status,
			Category:     res.Category,
			Intermediate: res.Intermediate,
			Detail:       res.Detail,
		}
		plan.Decisions = append(plan.Decisions, decision)
		plan.Summary.add(decision)

		switch res.Status {
		case labels.StatusUnresolved:
			logger.Debug("label unresolved",
				logging.String("path", path),
				logging.String("reason", res.Detail),
				logging.String(logging.FieldEventType, "label_unresolved"),
			)
		case labels.StatusConfigError:
			logger.Debug("label config error",
				logging.String("path", path),
				logging.String("reason", res.Detail),
				logging.String(logging.FieldEventType, "label_config_error"),
			)
		}
	}

	plan.Summary.CountMismatch = mismatch(plan.Summary.Resolved, d.ExpectedCount, r.tolerance)

	if plan.Summary.ConfigErrors > 0 {
		logging.WarnWithContext(logger, "files carry labels the configuration cannot map", "label_config_error",
			logging.Int("config_error", plan.Summary.ConfigErrors),
			logging.String(logging.FieldErrorHint, "run `emoroute check` and extend the dataset vocabulary or final map"),
			logging.String(logging.FieldImpact, "affected files are not materialized"),
		)
	}
	if plan.Summary.CountMismatch {
		logging.WarnWithContext(logger, "resolved count deviates from expected", "count_mismatch",
			logging.Int("resolved", plan.Summary.Resolved),
			logging.Int("expected", d.ExpectedCount),
			logging.Float64("tolerance", r.tolerance),
			logging.String(logging.FieldErrorHint, "verify the dataset download is complete and the naming pattern matches"),
			logging.String(logging.FieldImpact, "output may be missing files from this dataset"),
		)
	}
	logger.Info("dataset routed",
		logging.String(logging.FieldEventType, "dataset_routed"),
		logging.Int("discovered", plan.Summary.Discovered),
		logging.Int("resolved", plan.Summary.Resolved),
		logging.Int("excluded", plan.Summary.Excluded),
		logging.Int("unresolved", plan.Summary.Unresolved),
	)
	return plan
}

// assignOwners builds the per-dataset path lists, each sorted and free of
// duplicates. For discovery listings, which are already sorted, this is
// discovery order. A path listed under more than one dataset goes to the
// dataset with the longest local root that contains it; equal roots resolve
// to the smaller key. Paths outside every root stay with the first dataset,
// by key, that listed them.
func assignOwners(descriptors []*dataset.Descriptor, discovered map[string][]string) map[string][]string {
	owned := make(map[string][]string, len(descriptors))
	claimed := make(map[string]struct{})
	for _, d := range descriptors {
		for _, path := range discovered[d.Key] {
			path = filepath.Clean(path)
			if _, dup := claimed[path]; dup {
				continue
			}
			claimed[path] = struct{}{}
			owner := ownerOf(descriptors, path)
			if owner == "" {
				owner = d.Key
			}
			owned[owner] = append(owned[owner], path)
		}
	}
	for key, paths := range owned {
		owned[key] = sortedUnique(paths)
	}
	return owned
}

func ownerOf(descriptors []*dataset.Descriptor, path string) string {
	best := ""
	bestLen := -1
	for _, d := range descriptors {
		if !d.Owns(path) {
			continue
		}
		n := len(d.LocalRoot)
		if n > bestLen || (n == bestLen && d.Key < best) {
			best, bestLen = d.Key, n
		}
	}
	return best
}
