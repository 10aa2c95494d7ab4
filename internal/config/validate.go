package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"emoroute/internal/emotion"
)

// Validate ensures the configuration is usable. Per-dataset naming and
// vocabulary rules are checked when descriptors are built, not here.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateRouting(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateEmotions(); err != nil {
		return err
	}
	return c.validateDatasets()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		return errors.New("paths.raw_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.OutputDir == c.Paths.RawDir {
		return errors.New("paths.output_dir must differ from paths.raw_dir")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	return nil
}

func (c *Config) validateRouting() error {
	if c.Routing.CountTolerance < 0 {
		return errors.New("routing.count_tolerance must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected a full topic URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateEmotions() error {
	if len(c.Emotions.Final) == 0 && len(c.Emotions.Excluded) == 0 {
		return errors.New("emotions.final must not be empty")
	}
	for _, name := range c.Emotions.Excluded {
		if category, ok := c.Emotions.Final[name]; ok {
			return fmt.Errorf("emotions: %q is both excluded and mapped to %q", name, category)
		}
	}
	keys := make([]string, 0, len(c.Emotions.Final))
	for key := range c.Emotions.Final {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "" {
			return errors.New("emotions.final contains an empty intermediate name")
		}
		if c.Emotions.Final[key] == "" {
			return fmt.Errorf("emotions.final.%s: category is empty (list it under emotions.excluded instead)", key)
		}
		if _, err := emotion.ParseCategory(c.Emotions.Final[key]); err != nil {
			return fmt.Errorf("emotions.final.%s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validateDatasets() error {
	if len(c.DatasetKeys()) == 0 {
		return errors.New("datasets: at least one enabled dataset is required")
	}
	roots := make(map[string]string, len(c.Datasets))
	for _, key := range c.DatasetKeys() {
		if strings.TrimSpace(key) == "" {
			return errors.New("datasets: empty dataset key")
		}
		root := c.Datasets[key].LocalPath
		if other, ok := roots[root]; ok {
			return fmt.Errorf("datasets.%s.local_path duplicates datasets.%s.local_path (%s)", key, other, root)
		}
		roots[root] = key
	}
	return nil
}
