package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RawDir    string `toml:"raw_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Audio describes the target format of materialized files.
type Audio struct {
	Format     string `toml:"format"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
}

// Routing contains label routing settings.
type Routing struct {
	Workers int `toml:"workers"`
	// CountTolerance is the fraction of expected_count a dataset's resolved
	// count may deviate by before a count mismatch warning is raised.
	CountTolerance float64 `toml:"count_tolerance"`
}

// Materialize contains output writing settings.
type Materialize struct {
	Workers           int  `toml:"workers"`
	OverwriteExisting bool `toml:"overwrite_existing"`
	VerifyCopies      bool `toml:"verify_copies"`
}

// Acquire contains dataset download settings.
type Acquire struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	HuggingFaceCLI string `toml:"huggingface_cli"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Runs           bool   `toml:"runs"`
	Fetch          bool   `toml:"fetch"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Emotions holds the global intermediate -> category map. Intermediates listed
// in Excluded map to no category.
type Emotions struct {
	Final    map[string]string `toml:"final"`
	Excluded []string          `toml:"excluded"`
}

// Naming describes how a dataset encodes the emotion label.
type Naming struct {
	// Kind is "pattern", "directory" or "unconstrained".
	Kind    string `toml:"kind"`
	Pattern string `toml:"pattern"`
	// CaptureGroups are 1-based regex group numbers tried in order; the first
	// non-empty capture is the raw label.
	CaptureGroups []int `toml:"capture_groups"`
	// TokenMatch is "exact" or "longest_prefix".
	TokenMatch string `toml:"token_match"`
	// Segment counts ancestor directories upward from the file (1 = parent).
	Segment        int    `toml:"segment"`
	LanguageFilter string `toml:"language_filter"`
}

// Dataset is the raw configuration of one source dataset.
type Dataset struct {
	Name            string            `toml:"name"`
	LocalPath       string            `toml:"local_path"`
	URLs            []string          `toml:"urls"`
	HuggingFaceRepo string            `toml:"huggingface_repo"`
	ExpectedCount   int               `toml:"expected_count"`
	Disabled        bool              `toml:"disabled"`
	Emotions        map[string]string `toml:"emotions"`
	Naming          Naming            `toml:"naming"`
}

// Config encapsulates all configuration values for emoroute.
//
// Configuration sections by subsystem:
//   - Paths: raw dataset, output, log and state directories
//   - Audio: target format, sample rate and channel count
//   - Routing: router workers and the expected-count tolerance
//   - Materialize: copy/transcode workers and overwrite policy
//   - Acquire: download timeout and the hosted-repository CLI
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Emotions: the global final emotion map
//   - Datasets: one entry per source dataset, keyed by dataset key
type Config struct {
	Paths         Paths              `toml:"paths"`
	Audio         Audio              `toml:"audio"`
	Routing       Routing            `toml:"routing"`
	Materialize   Materialize        `toml:"materialize"`
	Acquire       Acquire            `toml:"acquire"`
	Notifications Notifications      `toml:"notifications"`
	Logging       Logging            `toml:"logging"`
	Emotions      Emotions           `toml:"emotions"`
	Datasets      map[string]Dataset `toml:"datasets"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/emoroute/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
//
// Dataset entries in the file replace the default entry with the same key
// wholesale; default datasets the file does not mention are kept. The
// [emotions] table likewise replaces the default final map as a unit.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	defaultDatasets := cfg.Datasets
	defaultEmotions := cfg.Emotions
	cfg.Datasets = nil
	cfg.Emotions = Emotions{}

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config: %s", strict.String())
		}
		return fmt.Errorf("parse config: %w", err)
	}

	if cfg.Datasets == nil {
		cfg.Datasets = make(map[string]Dataset, len(defaultDatasets))
	}
	for key, ds := range defaultDatasets {
		if _, ok := cfg.Datasets[key]; !ok {
			cfg.Datasets[key] = ds
		}
	}
	if cfg.Emotions.Final == nil && cfg.Emotions.Excluded == nil {
		cfg.Emotions = defaultEmotions
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("emoroute.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes to. The raw dataset
// directory is created too so acquisition has somewhere to land.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RawDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatasetKeys returns the configured dataset keys in sorted order, skipping
// disabled entries.
func (c *Config) DatasetKeys() []string {
	keys := make([]string, 0, len(c.Datasets))
	for key, ds := range c.Datasets {
		if ds.Disabled {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// FFprobeBinary returns the ffprobe executable name used for audio inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for transcoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// AudioExtension returns the configured audio extension with a leading dot.
func (c *Config) AudioExtension() string {
	return "." + strings.TrimPrefix(c.Audio.Format, ".")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
