package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"emoroute/internal/config"
	"emoroute/internal/emotion"
)

// ErrMalformed marks descriptor construction failures.
var ErrMalformed = errors.New("malformed dataset descriptor")

// DescriptorError reports why one dataset could not be built.
type DescriptorError struct {
	Key   string
	Field string
	Err   error
}

func (e *DescriptorError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("dataset %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("dataset %s: %s: %v", e.Key, e.Field, e.Err)
}

func (e *DescriptorError) Unwrap() []error { return []error{ErrMalformed, e.Err} }

// TokenMatch selects how a captured token is matched against vocabulary keys.
type TokenMatch int

const (
	// MatchExact uses the captured token as the raw label.
	MatchExact TokenMatch = iota
	// MatchLongestPrefix picks the longest vocabulary key that prefixes the
	// captured token, so "sa03" yields "sa" rather than "s".
	MatchLongestPrefix
)

// Convention is the naming-convention sum type.
type Convention interface {
	Kind() string
	convention()
}

// PatternConvention reads the label from a regex capture in the base name.
type PatternConvention struct {
	Pattern *regexp.Regexp
	// Groups are 1-based capture group numbers in precedence order.
	Groups     []int
	TokenMatch TokenMatch
}

func (PatternConvention) Kind() string { return config.NamingPattern }
func (PatternConvention) convention()  {}

// DirectoryConvention reads the label from an ancestor directory name.
type DirectoryConvention struct {
	// Segment counts upward from the file: 1 is the parent directory.
	Segment        int
	LanguageFilter string
}

func (DirectoryConvention) Kind() string { return config.NamingDirectory }
func (DirectoryConvention) convention()  {}

// UnconstrainedConvention declares that the file name carries no label at
// all; extraction works like DirectoryConvention.
type UnconstrainedConvention struct {
	Segment        int
	LanguageFilter string
}

func (UnconstrainedConvention) Kind() string { return config.NamingUnconstrained }
func (UnconstrainedConvention) convention()  {}

// Descriptor is the static definition of one dataset. It is never mutated
// after New returns.
type Descriptor struct {
	Key           string
	Name          string
	LocalRoot     string
	URLs          []string
	HostedRepo    string
	ExpectedCount int
	Convention    Convention

	vocabulary map[string]emotion.Intermediate
	keysByLen  []string
}

// Lookup returns the intermediate emotion for a raw token. Matching is
// case-sensitive.
func (d *Descriptor) Lookup(raw string) (emotion.Intermediate, bool) {
	value, ok := d.vocabulary[raw]
	return value, ok
}

// LongestPrefix returns the longest vocabulary key that is a prefix of token.
func (d *Descriptor) LongestPrefix(token string) (string, bool) {
	for _, key := range d.keysByLen {
		if strings.HasPrefix(token, key) {
			return key, true
		}
	}
	return "", false
}

// VocabularyKeys returns the raw tokens in sorted order.
func (d *Descriptor) VocabularyKeys() []string {
	keys := make([]string, 0, len(d.vocabulary))
	for key := range d.vocabulary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HasRemoteSource reports whether the dataset can be fetched.
func (d *Descriptor) HasRemoteSource() bool {
	return len(d.URLs) > 0 || d.HostedRepo != ""
}

// Owns reports whether path lies under the descriptor's local root.
func (d *Descriptor) Owns(path string) bool {
	return underRoot(d.LocalRoot, path)
}

func underRoot(root, path string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// New validates a configured dataset and builds its descriptor.
func New(key string, ds config.Dataset) (*Descriptor, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &DescriptorError{Key: "<empty>", Field: "key", Err: errors.New("required")}
	}
	fail := func(field string, err error) (*Descriptor, error) {
		return nil, &DescriptorError{Key: key, Field: field, Err: err}
	}
	if strings.TrimSpace(ds.Name) == "" {
		return fail("name", errors.New("required"))
	}
	if strings.TrimSpace(ds.LocalPath) == "" {
		return fail("local_path", errors.New("required"))
	}
	if !filepath.IsAbs(ds.LocalPath) {
		return fail("local_path", fmt.Errorf("%q is not absolute", ds.LocalPath))
	}
	if len(ds.URLs) > 0 && ds.HuggingFaceRepo != "" {
		return fail("urls", errors.New("urls and huggingface_repo are mutually exclusive"))
	}
	if len(ds.Emotions) == 0 {
		return fail("emotions", errors.New("vocabulary must not be empty"))
	}
	if ds.ExpectedCount < 0 {
		return fail("expected_count", errors.New("must not be negative"))
	}

	convention, field, err := buildConvention(ds.Naming)
	if err != nil {
		return fail(field, err)
	}

	vocabulary := make(map[string]emotion.Intermediate, len(ds.Emotions))
	for raw, intermediate := range ds.Emotions {
		if raw == "" {
			return fail("emotions", errors.New("empty raw token"))
		}
		if intermediate == "" {
			return fail("emotions."+raw, errors.New("empty intermediate emotion"))
		}
		vocabulary[raw] = emotion.Intermediate(intermediate)
	}
	keysByLen := make([]string, 0, len(vocabulary))
	for raw := range vocabulary {
		keysByLen = append(keysByLen, raw)
	}
	sort.Slice(keysByLen, func(i, j int) bool {
		if len(keysByLen[i]) != len(keysByLen[j]) {
			return len(keysByLen[i]) > len(keysByLen[j])
		}
		return keysByLen[i] < keysByLen[j]
	})

	return &Descriptor{
		Key:           key,
		Name:          ds.Name,
		LocalRoot:     filepath.Clean(ds.LocalPath),
		URLs:          append([]string(nil), ds.URLs...),
		HostedRepo:    ds.HuggingFaceRepo,
		ExpectedCount: ds.ExpectedCount,
		Convention:    convention,
		vocabulary:    vocabulary,
		keysByLen:     keysByLen,
	}, nil
}

func buildConvention(naming config.Naming) (Convention, string, error) {
	switch naming.Kind {
	case config.NamingPattern:
		if strings.TrimSpace(naming.Pattern) == "" {
			return nil, "naming.pattern", errors.New("required for pattern naming")
		}
		re, err := regexp.Compile(naming.Pattern)
		if err != nil {
			return nil, "naming.pattern", err
		}
		if len(naming.CaptureGroups) == 0 {
			return nil, "naming.capture_groups", errors.New("required for pattern naming")
		}
		for _, group := range naming.CaptureGroups {
			if group < 1 || group > re.NumSubexp() {
				return nil, "naming.capture_groups", fmt.Errorf("group %d out of range (pattern has %d groups)", group, re.NumSubexp())
			}
		}
		match, err := parseTokenMatch(naming.TokenMatch)
		if err != nil {
			return nil, "naming.token_match", err
		}
		return PatternConvention{
			Pattern:    re,
			Groups:     append([]int(nil), naming.CaptureGroups...),
			TokenMatch: match,
		}, "", nil
	case config.NamingDirectory, config.NamingUnconstrained:
		if naming.Segment < 1 {
			return nil, "naming.segment", errors.New("must be 1 or greater")
		}
		if len(naming.CaptureGroups) > 0 {
			return nil, "naming.capture_groups", fmt.Errorf("not used by %s naming", naming.Kind)
		}
		if p := strings.TrimSpace(naming.Pattern); p != "" && p != ".*" {
			return nil, "naming.pattern", fmt.Errorf("%s naming reads labels from directories; file name patterns are not allowed", naming.Kind)
		}
		if naming.Kind == config.NamingDirectory {
			return DirectoryConvention{Segment: naming.Segment, LanguageFilter: naming.LanguageFilter}, "", nil
		}
		return UnconstrainedConvention{Segment: naming.Segment, LanguageFilter: naming.LanguageFilter}, "", nil
	case "":
		return nil, "naming.kind", errors.New("required")
	default:
		return nil, "naming.kind", fmt.Errorf("unsupported value %q", naming.Kind)
	}
}

func parseTokenMatch(value string) (TokenMatch, error) {
	switch value {
	case "", config.TokenMatchExact:
		return MatchExact, nil
	case config.TokenMatchLongestPrefix:
		return MatchLongestPrefix, nil
	default:
		return MatchExact, fmt.Errorf("unsupported value %q", value)
	}
}
