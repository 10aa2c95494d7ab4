package preflight

import (
	"context"

	"emoroute/internal/config"
)

// MinFreeBytes is the free space required on the output volume.
const MinFreeBytes uint64 = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes the filesystem preflight checks for the given config.
// Remote sources are only probed when probeSources is set.
func RunAll(ctx context.Context, cfg *config.Config, probeSources bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Raw directory", cfg.Paths.RawDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Output volume", cfg.Paths.OutputDir, MinFreeBytes),
	}

	if probeSources {
		for _, key := range cfg.DatasetKeys() {
			ds := cfg.Datasets[key]
			if len(ds.URLs) == 0 {
				continue
			}
			results = append(results, CheckSourceReachable(ctx, "Source "+key, ds.URLs[0]))
		}
	}
	return results
}
