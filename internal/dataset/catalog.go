package dataset

import (
	"errors"
	"fmt"
	"slices"

	"emoroute/internal/config"
	"emoroute/internal/emotion"
)

// Catalog is the immutable set of descriptors for one run together with the
// global final map.
type Catalog struct {
	Descriptors []*Descriptor
	// Invalid holds datasets whose descriptors could not be built. They are
	// skipped by routing and surfaced in the run summary.
	Invalid []*DescriptorError
	Final   emotion.FinalMap
}

// FromConfig builds descriptors for every enabled dataset. A malformed
// dataset is recorded in Invalid and does not prevent the others from
// loading. Only a broken final map is returned as an error.
func FromConfig(cfg *config.Config, only ...string) (*Catalog, error) {
	if cfg == nil {
		return nil, errors.New("dataset catalog: nil config")
	}
	final, err := FinalMapFromConfig(cfg.Emotions)
	if err != nil {
		return nil, err
	}

	keys := cfg.DatasetKeys()
	if len(only) > 0 {
		selected, err := selectKeys(cfg, only)
		if err != nil {
			return nil, err
		}
		keys = selected
	}

	catalog := &Catalog{Final: final}
	for _, key := range keys {
		descriptor, err := New(key, cfg.Datasets[key])
		if err != nil {
			var derr *DescriptorError
			if !errors.As(err, &derr) {
				derr = &DescriptorError{Key: key, Err: err}
			}
			catalog.Invalid = append(catalog.Invalid, derr)
			continue
		}
		catalog.Descriptors = append(catalog.Descriptors, descriptor)
	}
	return catalog, nil
}

func selectKeys(cfg *config.Config, only []string) ([]string, error) {
	enabled := make(map[string]struct{})
	for _, key := range cfg.DatasetKeys() {
		enabled[key] = struct{}{}
	}
	seen := make(map[string]struct{}, len(only))
	var keys []string
	for _, key := range only {
		if _, ok := enabled[key]; !ok {
			return nil, fmt.Errorf("unknown or disabled dataset %q", key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Lookup returns the descriptor with the given key.
func (c *Catalog) Lookup(key string) (*Descriptor, bool) {
	for _, d := range c.Descriptors {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// FinalMapFromConfig converts the [emotions] table into a FinalMap.
func FinalMapFromConfig(cfg config.Emotions) (emotion.FinalMap, error) {
	entries := make(map[emotion.Intermediate]emotion.Outcome, len(cfg.Final)+len(cfg.Excluded))
	for name, category := range cfg.Final {
		entries[emotion.Intermediate(name)] = emotion.Include(emotion.Category(category))
	}
	for _, name := range cfg.Excluded {
		if _, ok := entries[emotion.Intermediate(name)]; ok {
			return emotion.FinalMap{}, fmt.Errorf("final map: %q is both mapped and excluded", name)
		}
		entries[emotion.Intermediate(name)] = emotion.Exclude()
	}
	return emotion.NewFinalMap(entries)
}
