package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"emoroute/internal/config"
	"emoroute/internal/emotion"
)

func patternDataset(pattern string, groups ...int) config.Dataset {
	return config.Dataset{
		Name:      "Test",
		LocalPath: filepath.Join(string(filepath.Separator), "data", "test"),
		Emotions:  map[string]string{"ANG": "angry"},
		Naming: config.Naming{
			Kind:          config.NamingPattern,
			Pattern:       pattern,
			CaptureGroups: groups,
		},
	}
}

func TestNewBuildsPatternConvention(t *testing.T) {
	d, err := New("crema", patternDataset(`(\d+)_([A-Z]+)_([A-Z]+)_([A-Z]+)\.wav`, 3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pc, ok := d.Convention.(PatternConvention)
	if !ok {
		t.Fatalf("expected PatternConvention, got %T", d.Convention)
	}
	if len(pc.Groups) != 1 || pc.Groups[0] != 3 {
		t.Fatalf("unexpected groups %v", pc.Groups)
	}
	if pc.TokenMatch != MatchExact {
		t.Fatalf("expected exact matching by default")
	}
	if value, ok := d.Lookup("ANG"); !ok || value != emotion.Angry {
		t.Fatalf("unexpected lookup: %q %v", value, ok)
	}
	if _, ok := d.Lookup("ang"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
}

func TestNewRejectsMalformedDescriptors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Dataset)
		field  string
	}{
		{"missing name", func(ds *config.Dataset) { ds.Name = "" }, "name"},
		{"missing root", func(ds *config.Dataset) { ds.LocalPath = "" }, "local_path"},
		{"relative root", func(ds *config.Dataset) { ds.LocalPath = "relative/dir" }, "local_path"},
		{"empty vocabulary", func(ds *config.Dataset) { ds.Emotions = nil }, "emotions"},
		{"group beyond pattern", func(ds *config.Dataset) { ds.Naming.CaptureGroups = []int{5} }, "naming.capture_groups"},
		{"zero group", func(ds *config.Dataset) { ds.Naming.CaptureGroups = []int{0} }, "naming.capture_groups"},
		{"no groups", func(ds *config.Dataset) { ds.Naming.CaptureGroups = nil }, "naming.capture_groups"},
		{"bad regex", func(ds *config.Dataset) { ds.Naming.Pattern = "(" }, "naming.pattern"},
		{"unknown kind", func(ds *config.Dataset) { ds.Naming.Kind = "magic" }, "naming.kind"},
		{"missing kind", func(ds *config.Dataset) { ds.Naming.Kind = "" }, "naming.kind"},
		{"bad token match", func(ds *config.Dataset) { ds.Naming.TokenMatch = "fuzzy" }, "naming.token_match"},
		{"both sources", func(ds *config.Dataset) {
			ds.URLs = []string{"https://example.com/a.zip"}
			ds.HuggingFaceRepo = "org/repo"
		}, "urls"},
		{"empty intermediate", func(ds *config.Dataset) { ds.Emotions = map[string]string{"ANG": ""} }, "emotions.ANG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := patternDataset(`(\d+)_([A-Z]+)_([A-Z]+)_([A-Z]+)\.wav`, 3)
			tc.mutate(&ds)
			_, err := New("crema", ds)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			var derr *DescriptorError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DescriptorError, got %T", err)
			}
			if derr.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%v)", tc.field, derr.Field, err)
			}
		})
	}
}

func TestNewDirectoryConventions(t *testing.T) {
	ds := config.Dataset{
		Name:      "ESD",
		LocalPath: "/data/esd",
		Emotions:  map[string]string{"Angry": "angry"},
		Naming:    config.Naming{Kind: config.NamingUnconstrained, Segment: 1, LanguageFilter: "English", Pattern: ".*"},
	}
	d, err := New("esd", ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	uc, ok := d.Convention.(UnconstrainedConvention)
	if !ok {
		t.Fatalf("expected UnconstrainedConvention, got %T", d.Convention)
	}
	if uc.Segment != 1 || uc.LanguageFilter != "English" {
		t.Fatalf("unexpected convention %+v", uc)
	}

	ds.Naming.Kind = config.NamingDirectory
	ds.Naming.Pattern = ""
	d, err = New("esd", ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.Convention.(DirectoryConvention); !ok {
		t.Fatalf("expected DirectoryConvention, got %T", d.Convention)
	}

	ds.Naming.Segment = 0
	if _, err := New("esd", ds); err == nil {
		t.Fatal("expected error for segment 0")
	}

	ds.Naming.Segment = 1
	ds.Naming.Pattern = `(\w+)\.wav`
	if _, err := New("esd", ds); err == nil {
		t.Fatal("expected error for file pattern on directory naming")
	}
}

func TestLongestPrefixPrefersLongerKeys(t *testing.T) {
	ds := config.Dataset{
		Name:      "SAVEE",
		LocalPath: "/data/savee",
		Emotions:  map[string]string{"n": "neutral", "h": "happy", "sa": "sad", "a": "angry", "f": "fearful", "d": "disgust", "su": "surprised"},
		Naming:    config.Naming{Kind: config.NamingPattern, Pattern: `([a-z]+)\d+\.wav`, CaptureGroups: []int{1}, TokenMatch: config.TokenMatchLongestPrefix},
	}
	d, err := New("savee", ds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]string{"sa": "sa", "su": "su", "a": "a", "sax": "sa", "nn": "n"}
	for token, want := range cases {
		got, ok := d.LongestPrefix(token)
		if !ok || got != want {
			t.Fatalf("LongestPrefix(%q) = %q, %v; want %q", token, got, ok, want)
		}
	}
	if _, ok := d.LongestPrefix("xyz"); ok {
		t.Fatal("expected no prefix for xyz")
	}
}

func TestOwns(t *testing.T) {
	d, err := New("crema", patternDataset(`(\w+)\.wav`, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	root := d.LocalRoot
	if !d.Owns(filepath.Join(root, "a", "b.wav")) {
		t.Fatal("expected file under root to be owned")
	}
	if d.Owns(root + "-other/b.wav") {
		t.Fatal("sibling directory with shared prefix must not be owned")
	}
	if d.Owns(filepath.Dir(root)) {
		t.Fatal("parent must not be owned")
	}
}
