package dataset

import (
	"path/filepath"
	"strings"
	"testing"

	"emoroute/internal/config"
	"emoroute/internal/emotion"
)

func normalizedDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	for key, ds := range cfg.Datasets {
		ds.LocalPath = filepath.Join(base, "raw", key)
		cfg.Datasets[key] = ds
	}
	return &cfg
}

func TestFromConfigBuildsDefaultCatalog(t *testing.T) {
	cfg := normalizedDefaults(t)
	catalog, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(catalog.Invalid) != 0 {
		t.Fatalf("unexpected invalid datasets: %v", catalog.Invalid)
	}
	var keys []string
	for _, d := range catalog.Descriptors {
		keys = append(keys, d.Key)
	}
	if strings.Join(keys, ",") != "crema_d,esd,ravdess,savee,tess" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if issues := Check(catalog.Descriptors, catalog.Final); len(issues) != 0 {
		t.Fatalf("default catalog should be complete, got %v", issues)
	}
	tess, _ := catalog.Lookup("tess")
	if tess.HostedRepo != "Ren/tess-emotion-speech" || len(tess.URLs) != 0 {
		t.Fatalf("unexpected tess source: %+v", tess)
	}
}

func TestFromConfigIsolatesMalformedDataset(t *testing.T) {
	cfg := normalizedDefaults(t)
	broken := cfg.Datasets["ravdess"]
	broken.Naming.CaptureGroups = []int{9}
	cfg.Datasets["ravdess"] = broken

	catalog, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(catalog.Invalid) != 1 || catalog.Invalid[0].Key != "ravdess" {
		t.Fatalf("expected ravdess invalid, got %v", catalog.Invalid)
	}
	if len(catalog.Descriptors) != 4 {
		t.Fatalf("expected remaining datasets to load, got %d", len(catalog.Descriptors))
	}
}

func TestFromConfigSelectsDatasets(t *testing.T) {
	cfg := normalizedDefaults(t)
	catalog, err := FromConfig(cfg, "tess", "esd", "tess")
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(catalog.Descriptors) != 2 || catalog.Descriptors[0].Key != "esd" || catalog.Descriptors[1].Key != "tess" {
		t.Fatalf("expected esd then tess, got %v", catalog.Descriptors)
	}
	if _, err := FromConfig(cfg, "nope"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestCheckDetectsMissingFinalEntries(t *testing.T) {
	cfg := normalizedDefaults(t)
	cfg.Emotions = config.Emotions{
		Final:    map[string]string{"neutral": "calm", "happy": "happy", "sad": "sad", "angry": "angry", "fear": "fear", "calm": "calm"},
		Excluded: []string{"disgust", "surprise", "disgusted"},
	}
	catalog, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	issues := Check(catalog.Descriptors, catalog.Final)
	var incomplete, unmapped int
	for _, issue := range issues {
		switch issue.Kind {
		case IssueFinalMapIncomplete:
			incomplete++
		case IssueUnmappedIntermediate:
			unmapped++
		}
	}
	// fearful and surprised are missing from the final map.
	if incomplete != 2 {
		t.Fatalf("expected 2 incomplete findings, got %d: %v", incomplete, issues)
	}
	if unmapped == 0 {
		t.Fatalf("expected unmapped vocabulary findings, got %v", issues)
	}
}

func TestCheckFlagsUnknownIntermediates(t *testing.T) {
	d, err := New("x", config.Dataset{
		Name:      "X",
		LocalPath: "/data/x",
		Emotions:  map[string]string{"J": "joy"},
		Naming:    config.Naming{Kind: config.NamingDirectory, Segment: 1},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	issues := Check([]*Descriptor{d}, emotion.DefaultFinalMap())
	if len(issues) != 2 {
		t.Fatalf("expected unknown + unmapped findings, got %v", issues)
	}
	if issues[0].Kind != IssueUnknownIntermediate || issues[1].Kind != IssueUnmappedIntermediate {
		t.Fatalf("unexpected kinds: %v", issues)
	}
}

func TestCheckFlagsUnknownLanguageFilter(t *testing.T) {
	newESD := func(filter string) *Descriptor {
		d, err := New("esd", config.Dataset{
			Name:      "ESD",
			LocalPath: "/data/esd",
			Emotions:  map[string]string{"Angry": "angry"},
			Naming:    config.Naming{Kind: config.NamingDirectory, Segment: 1, LanguageFilter: filter},
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return d
	}
	if issues := Check([]*Descriptor{newESD("English")}, emotion.DefaultFinalMap()); len(issues) != 0 {
		t.Fatalf("expected no findings for English, got %v", issues)
	}
	issues := Check([]*Descriptor{newESD("Englsh")}, emotion.DefaultFinalMap())
	if len(issues) != 1 || issues[0].Kind != IssueUnknownLanguage || !issues[0].Kind.Advisory() {
		t.Fatalf("expected one advisory unknown language finding, got %v", issues)
	}
}

func TestFinalMapFromConfigRejectsOverlap(t *testing.T) {
	_, err := FinalMapFromConfig(config.Emotions{
		Final:    map[string]string{"disgust": "angry"},
		Excluded: []string{"disgust"},
	})
	if err == nil {
		t.Fatal("expected overlap error")
	}
}
