package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"emoroute/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Dataset roots point at <base>/raw/<key>, which is what normalization would
// produce for the stock datasets.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RawDir = filepath.Join(base, "raw")
	cfgVal.Paths.OutputDir = filepath.Join(base, "Final_Audio_Dataset")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Routing.Workers = 2
	cfgVal.Materialize.Workers = 2
	for key, ds := range cfgVal.Datasets {
		ds.LocalPath = filepath.Join(cfgVal.Paths.RawDir, key)
		if ds.Naming.TokenMatch == "" {
			ds.Naming.TokenMatch = config.TokenMatchExact
		}
		cfgVal.Datasets[key] = ds
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithOnlyDatasets disables every stock dataset not named.
func WithOnlyDatasets(keys ...string) ConfigOption {
	return func(b *configBuilder) {
		keep := make(map[string]struct{}, len(keys))
		for _, key := range keys {
			keep[key] = struct{}{}
		}
		for key, ds := range b.cfg.Datasets {
			if _, ok := keep[key]; !ok {
				ds.Disabled = true
				b.cfg.Datasets[key] = ds
			}
		}
	}
}

// WithDataset adds or replaces a dataset. A relative local_path is resolved
// against the test raw directory.
func WithDataset(key string, ds config.Dataset) ConfigOption {
	return func(b *configBuilder) {
		if ds.LocalPath == "" {
			ds.LocalPath = key
		}
		if !filepath.IsAbs(ds.LocalPath) {
			ds.LocalPath = filepath.Join(b.cfg.Paths.RawDir, ds.LocalPath)
		}
		b.cfg.Datasets[key] = ds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
