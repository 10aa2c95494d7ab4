package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestDatasetsAndCheck(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"datasets"}, env.configPath)
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	for _, key := range []string{"crema_d", "esd", "ravdess", "savee", "tess"} {
		requireContains(t, out, key)
	}
	requireContains(t, out, "hf:Ren/tess-emotion-speech")

	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "no issues found")
}

func TestDatasetsUsage(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeRavdessFixture(t)

	out, _, err := runCLI(t, []string{"datasets", "--usage", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("datasets --usage: %v", err)
	}
	var views []datasetView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	for _, view := range views {
		if view.Key == "ravdess" {
			if view.Files != 3 || view.Bytes == 0 {
				t.Fatalf("unexpected ravdess usage %+v", view)
			}
			return
		}
	}
	t.Fatalf("ravdess missing from %+v", views)
}

func TestCheckReportsUnmappedVocabulary(t *testing.T) {
	env := setupCLITestEnv(t, `
[emotions]
final = { neutral = "calm", calm = "calm", happy = "happy", sad = "sad", angry = "angry", fear = "fear" }
excluded = ["disgust", "surprised", "surprise", "disgusted"]
`)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail when fearful has no final mapping")
	}
	requireContains(t, out, "fearful")
}

func TestPlanFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeRavdessFixture(t)

	out, _, err := runCLI(t, []string{"plan", "--dataset", "ravdess", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan json: %v", err)
	}
	var doc struct {
		Totals struct {
			Resolved   int `json:"resolved"`
			Unresolved int `json:"unresolved"`
		} `json:"totals"`
		Datasets []struct {
			Dataset string `json:"dataset"`
		} `json:"datasets"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode plan json: %v\n%s", err, out)
	}
	if doc.Totals.Resolved != 2 || doc.Totals.Unresolved != 1 {
		t.Fatalf("unexpected totals %+v", doc.Totals)
	}
	if len(doc.Datasets) != 1 || doc.Datasets[0].Dataset != "ravdess" {
		t.Fatalf("unexpected datasets %+v", doc.Datasets)
	}

	target := filepath.Join(t.TempDir(), "plan.yaml")
	if _, _, err := runCLI(t, []string{"plan", "-d", "ravdess", "-f", "yaml", "-o", target}, env.configPath); err != nil {
		t.Fatalf("plan yaml: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read yaml: %v", err)
	}
	var ydoc map[string]any
	if err := yaml.Unmarshal(data, &ydoc); err != nil {
		t.Fatalf("decode plan yaml: %v", err)
	}
	if _, ok := ydoc["totals"]; !ok {
		t.Fatalf("expected totals key in yaml output:\n%s", data)
	}

	out, _, err = runCLI(t, []string{"plan", "-d", "ravdess"}, env.configPath)
	if err != nil {
		t.Fatalf("plan table: %v", err)
	}
	requireContains(t, out, "Angry")
	requireContains(t, out, "Sad")

	if _, _, err := runCLI(t, []string{"plan", "--format", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestPlanFailsOnMalformedDataset(t *testing.T) {
	env := setupCLITestEnv(t, `
[datasets.broken]
name = "Broken"
local_path = "broken"
emotions = { x = "angry" }
naming = { kind = "pattern", pattern = '(\w+)\.wav', capture_groups = [4] }
`)
	out, _, err := runCLI(t, []string{"plan"}, env.configPath)
	if !errors.Is(err, errInvalidDatasets) {
		t.Fatalf("expected errInvalidDatasets, got %v", err)
	}
	requireContains(t, out, "Skipped broken")
}

func TestDryRunHistoryAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeRavdessFixture(t)

	out, _, err := runCLI(t, []string{"run", "--dry-run", "--dataset", "ravdess"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "completed")
	match := regexp.MustCompile(`Run ([0-9a-f]{8}):`).FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("run id not printed:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "angry")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote output: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, match[1])
	requireContains(t, out, "dry-run")

	out, _, err = runCLI(t, []string{"show", match[1]}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Problem files (1)")
	requireContains(t, out, "readme.wav")

	if _, _, err := runCLI(t, []string{"show", "ffffffff"}, env.configPath); err == nil {
		t.Fatal("expected show to fail for unknown run")
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestStatusReportsDependencies(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFprobe")
	requireContains(t, out, "idle")
	requireContains(t, out, "none recorded")
}

func TestFetchLocalOnlyDataset(t *testing.T) {
	env := setupCLITestEnv(t, `
[datasets.local]
name = "Local"
local_path = "local"
emotions = { angry = "angry" }
naming = { kind = "pattern", pattern = '([a-z]+)_\d+\.wav', capture_groups = [1] }
`)
	out, _, err := runCLI(t, []string{"fetch", "--dataset", "local"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "Local Only")
}

func TestTestNotify(t *testing.T) {
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles = append(titles, r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	requireContains(t, out, "Notification not sent")

	configured := setupCLITestEnv(t, "[notifications]\nntfy_topic = \""+server.URL+"\"\n")
	out, _, err = runCLI(t, []string{"test-notify"}, configured.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if len(titles) != 1 || titles[0] != "emoroute - Test" {
		t.Fatalf("unexpected notifications %v", titles)
	}
}
