package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeWorkers()
	c.normalizeAcquire()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeEmotions()
	return c.normalizeDatasets()
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("EMOROUTE_RAW_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.RawDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("EMOROUTE_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.RawDir, err = expandPath(strings.TrimSpace(c.Paths.RawDir)); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.Format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Audio.Format)), ".")
	if c.Audio.Format == "" {
		c.Audio.Format = defaultAudioFormat
	}
}

func (c *Config) normalizeWorkers() {
	if c.Routing.Workers <= 0 {
		c.Routing.Workers = defaultRoutingWorkers
	}
	if c.Materialize.Workers <= 0 {
		c.Materialize.Workers = defaultMaterializeWorkers
	}
}

func (c *Config) normalizeAcquire() {
	if c.Acquire.TimeoutSeconds <= 0 {
		c.Acquire.TimeoutSeconds = defaultAcquireTimeout
	}
	c.Acquire.HuggingFaceCLI = strings.TrimSpace(c.Acquire.HuggingFaceCLI)
	if c.Acquire.HuggingFaceCLI == "" {
		c.Acquire.HuggingFaceCLI = defaultHuggingFaceCLI
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// normalizeEmotions trims whitespace only. Emotion names are case-sensitive.
func (c *Config) normalizeEmotions() {
	final := make(map[string]string, len(c.Emotions.Final))
	for key, value := range c.Emotions.Final {
		final[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	c.Emotions.Final = final
	excluded := make([]string, 0, len(c.Emotions.Excluded))
	for _, value := range c.Emotions.Excluded {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			excluded = append(excluded, trimmed)
		}
	}
	c.Emotions.Excluded = excluded
}

// normalizeDatasets resolves local paths against raw_dir and fills naming
// defaults. Vocabulary keys are left untouched because raw tokens are
// case-sensitive per dataset.
func (c *Config) normalizeDatasets() error {
	for key, ds := range c.Datasets {
		ds.Name = strings.TrimSpace(ds.Name)
		local := strings.TrimSpace(ds.LocalPath)
		if local == "" {
			local = key
		}
		if !filepath.IsAbs(local) && !strings.HasPrefix(local, "~") {
			local = filepath.Join(c.Paths.RawDir, local)
		}
		expanded, err := expandPath(local)
		if err != nil {
			return fmt.Errorf("datasets.%s.local_path: %w", key, err)
		}
		ds.LocalPath = expanded
		ds.HuggingFaceRepo = strings.TrimSpace(ds.HuggingFaceRepo)
		urls := make([]string, 0, len(ds.URLs))
		for _, u := range ds.URLs {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				urls = append(urls, trimmed)
			}
		}
		ds.URLs = urls
		ds.Naming.Kind = strings.ToLower(strings.TrimSpace(ds.Naming.Kind))
		ds.Naming.TokenMatch = strings.ToLower(strings.TrimSpace(ds.Naming.TokenMatch))
		if ds.Naming.TokenMatch == "" {
			ds.Naming.TokenMatch = TokenMatchExact
		}
		c.Datasets[key] = ds
	}
	return nil
}
