package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"emoroute/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRaw := filepath.Join(tempHome, ".local", "share", "emoroute", "raw")
	if cfg.Paths.RawDir != wantRaw {
		t.Fatalf("unexpected raw dir: got %q want %q", cfg.Paths.RawDir, wantRaw)
	}
	if cfg.Datasets["ravdess"].LocalPath != filepath.Join(wantRaw, "ravdess") {
		t.Fatalf("unexpected ravdess path: %q", cfg.Datasets["ravdess"].LocalPath)
	}
	if got := cfg.DatasetKeys(); strings.Join(got, ",") != "crema_d,esd,ravdess,savee,tess" {
		t.Fatalf("unexpected dataset keys: %v", got)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.Format != "wav" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Routing.CountTolerance != 0.10 {
		t.Fatalf("unexpected tolerance: %v", cfg.Routing.CountTolerance)
	}
	if cfg.Datasets["savee"].Naming.TokenMatch != config.TokenMatchLongestPrefix {
		t.Fatalf("expected savee longest prefix matching, got %q", cfg.Datasets["savee"].Naming.TokenMatch)
	}
	if cfg.Datasets["ravdess"].Naming.TokenMatch != config.TokenMatchExact {
		t.Fatalf("expected exact token matching by default, got %q", cfg.Datasets["ravdess"].Naming.TokenMatch)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.RawDir, cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathMergesDatasets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "emoroute.toml")

	contents := `
[paths]
raw_dir = "` + filepath.Join(tempDir, "raw") + `"
output_dir = "` + filepath.Join(tempDir, "out") + `"

[routing]
count_tolerance = 0.25

[datasets.savee]
disabled = true

[datasets.custom]
name = "Custom"
local_path = "/data/custom"
expected_count = 10

[datasets.custom.naming]
kind = "directory"
segment = 2

[datasets.custom.emotions]
joy = "happy"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Routing.CountTolerance != 0.25 {
		t.Fatalf("expected tolerance override, got %v", cfg.Routing.CountTolerance)
	}
	if got := strings.Join(cfg.DatasetKeys(), ","); got != "crema_d,custom,esd,ravdess,tess" {
		t.Fatalf("unexpected dataset keys: %s", got)
	}
	custom := cfg.Datasets["custom"]
	if custom.LocalPath != "/data/custom" {
		t.Fatalf("expected absolute local path kept, got %q", custom.LocalPath)
	}
	if custom.Naming.Kind != config.NamingDirectory || custom.Naming.Segment != 2 {
		t.Fatalf("unexpected naming: %+v", custom.Naming)
	}
	if cfg.Datasets["ravdess"].LocalPath != filepath.Join(tempDir, "raw", "ravdess") {
		t.Fatalf("expected default dataset resolved against raw_dir, got %q", cfg.Datasets["ravdess"].LocalPath)
	}
	if len(cfg.Emotions.Final) != len(config.DefaultEmotions().Final) {
		t.Fatalf("expected default final map when [emotions] absent, got %v", cfg.Emotions.Final)
	}
}

func TestLoadEmotionsReplaceDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "emoroute.toml")

	type emotions struct {
		Final    map[string]string `toml:"final"`
		Excluded []string          `toml:"excluded"`
	}
	payload := struct {
		Emotions emotions `toml:"emotions"`
	}{
		Emotions: emotions{
			Final:    map[string]string{"neutral": "calm", "happy": "happy"},
			Excluded: []string{"disgust"},
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HOME", tempDir)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Emotions.Final) != 2 {
		t.Fatalf("expected replaced final map, got %v", cfg.Emotions.Final)
	}
	if len(cfg.Emotions.Excluded) != 1 || cfg.Emotions.Excluded[0] != "disgust" {
		t.Fatalf("unexpected excluded list: %v", cfg.Emotions.Excluded)
	}
}

func TestEnvVarOverridesDirectories(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("EMOROUTE_RAW_DIR", filepath.Join(tempDir, "env-raw"))
	t.Setenv("EMOROUTE_OUTPUT_DIR", filepath.Join(tempDir, "env-out"))

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.RawDir != filepath.Join(tempDir, "env-raw") {
		t.Errorf("expected raw dir from env, got %q", cfg.Paths.RawDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "env-out") {
		t.Errorf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Datasets["tess"].LocalPath != filepath.Join(tempDir, "env-raw", "tess") {
		t.Errorf("expected dataset path under env raw dir, got %q", cfg.Datasets["tess"].LocalPath)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "emoroute.toml")
	if err := os.WriteFile(configPath, []byte("[routing]\nworkerz = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCreateSample(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "count_tolerance") {
		t.Fatalf("sample config missing count_tolerance: %s", contents)
	}

	var decoded config.Config
	if err := toml.Unmarshal(contents, &decoded); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(decoded.Paths.RawDir, "emoroute") {
		t.Fatalf("expected raw dir to contain emoroute, got %q", decoded.Paths.RawDir)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Datasets["esd"].Naming.LanguageFilter != "English" {
		t.Fatalf("expected esd language filter from sample, got %q", cfg.Datasets["esd"].Naming.LanguageFilter)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.SampleRate = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive sample rate")
	}

	cfg = config.Default()
	cfg.Routing.CountTolerance = -0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative tolerance")
	}

	cfg = config.Default()
	cfg.Emotions.Final["disgust"] = "angry"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when an intermediate is both mapped and excluded")
	}

	cfg = config.Default()
	cfg.Emotions.Final["neutral"] = "bored"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown category")
	}

	cfg = config.Default()
	cfg.Notifications.NtfyTopic = "emoroute-builds"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ntfy topic without scheme")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	for key, ds := range cfg.Datasets {
		ds.Disabled = true
		cfg.Datasets[key] = ds
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when every dataset is disabled")
	}
}
