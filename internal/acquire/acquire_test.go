package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"emoroute/internal/config"
	"emoroute/internal/dataset"
	"emoroute/internal/testsupport"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func descriptor(t *testing.T, cfg *config.Config, key string, mutate func(*config.Dataset)) *dataset.Descriptor {
	t.Helper()
	ds := cfg.Datasets[key]
	ds.URLs = nil
	ds.HuggingFaceRepo = ""
	if mutate != nil {
		mutate(&ds)
	}
	d, err := dataset.New(key, ds)
	if err != nil {
		t.Fatalf("dataset.New(%s): %v", key, err)
	}
	return d
}

func TestFetchExtractsArchiveAndMarksComplete(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"Actor_01/03-01-05-01-02-01-01.wav": "RIFF",
		"Actor_02/03-01-04-01-02-01-02.wav": "RIFF",
	})
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	d := descriptor(t, cfg, "ravdess", func(ds *config.Dataset) {
		ds.URLs = []string{srv.URL + "/Audio_Speech_Actors_01-24.zip"}
	})

	var lastWritten int64
	f := New(Options{Progress: func(key string, written, _ int64) {
		if key != "ravdess" {
			t.Errorf("unexpected progress key %q", key)
		}
		lastWritten = written
	}})
	res, err := f.Fetch(context.Background(), d)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Outcome != OutcomeFetched || res.Files != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if lastWritten != int64(len(archive)) {
		t.Fatalf("progress reported %d of %d bytes", lastWritten, len(archive))
	}
	if _, err := os.Stat(filepath.Join(d.LocalRoot, "Actor_01", "03-01-05-01-02-01-01.wav")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
	if !IsComplete(d.LocalRoot) {
		t.Fatal("expected completion marker")
	}

	res, err = f.Fetch(context.Background(), d)
	if err != nil || res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skip on second fetch, got %+v %v", res, err)
	}
	if hits != 1 {
		t.Fatalf("expected one download, got %d", hits)
	}

	forced := New(Options{Force: true})
	if res, err := forced.Fetch(context.Background(), d); err != nil || res.Outcome != OutcomeFetched {
		t.Fatalf("expected forced refetch, got %+v %v", res, err)
	}
}

func TestFetchSkipsResourceForksAndHiddenEntries(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"Actor_01/03-01-05-01-02-01-01.wav":            "RIFF",
		"__MACOSX/Actor_01/._03-01-05-01-02-01-01.wav": "fork",
		".DS_Store":                                    "meta",
		"Actor_01/.03-01-04-01-02-01-01.wav":           "RIFF",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	d := descriptor(t, cfg, "ravdess", func(ds *config.Dataset) {
		ds.URLs = []string{srv.URL + "/speech.zip"}
	})
	res, err := New(Options{}).Fetch(context.Background(), d)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Files != 1 {
		t.Fatalf("expected one extracted file, got %+v", res)
	}
	for _, rel := range []string{"__MACOSX", ".DS_Store", filepath.Join("Actor_01", ".03-01-04-01-02-01-01.wav")} {
		if _, err := os.Stat(filepath.Join(d.LocalRoot, rel)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be skipped, stat err = %v", rel, err)
		}
	}
}

func TestSkipEntry(t *testing.T) {
	cases := map[string]bool{
		"Actor_01/03-01-05-01-02-01-01.wav": false,
		"__MACOSX/":                         true,
		"__MACOSX/Actor_01/._clip.wav":      true,
		".DS_Store":                         true,
		"Actor_01/.hidden.wav":              true,
		"./Actor_01/clip.wav":               false,
	}
	for name, want := range cases {
		if got := skipEntry(name); got != want {
			t.Errorf("skipEntry(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFetchStoresNonArchiveResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain payload"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	d := descriptor(t, cfg, "crema_d", func(ds *config.Dataset) {
		ds.URLs = []string{srv.URL + "/files/readme.txt"}
	})
	res, err := New(Options{}).Fetch(context.Background(), d)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Files != 1 {
		t.Fatalf("expected one stored file, got %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(d.LocalRoot, "readme.txt"))
	if err != nil || string(data) != "plain payload" {
		t.Fatalf("unexpected stored file %q %v", data, err)
	}
}

func TestFetchFailures(t *testing.T) {
	evil := zipBytes(t, map[string]string{"../escape.wav": "x"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "evil.zip") {
			_, _ = w.Write(evil)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"not found", srv.URL + "/missing.zip"},
		{"path traversal", srv.URL + "/evil.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			d := descriptor(t, cfg, "esd", func(ds *config.Dataset) {
				ds.URLs = []string{tt.url}
			})
			res, err := New(Options{}).Fetch(context.Background(), d)
			if !errors.Is(err, ErrDownload) {
				t.Fatalf("expected ErrDownload, got %v", err)
			}
			if res.Outcome != OutcomeFailed {
				t.Fatalf("expected failed outcome, got %s", res.Outcome)
			}
			if IsComplete(d.LocalRoot) {
				t.Fatal("marker must not be written on failure")
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(d.LocalRoot), "escape.wav")); err == nil {
				t.Fatal("archive entry escaped the dataset root")
			}
		})
	}
}

func TestFetchHostedRepository(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := t.TempDir()
	cli := testsupport.WriteScript(t, binDir, "hf-stub", `[ "$1" = "download" ] || exit 2
mkdir -p "$6/TESS"
echo RIFF > "$6/TESS/OAF_back_angry.wav"
`)
	d := descriptor(t, cfg, "tess", func(ds *config.Dataset) {
		ds.HuggingFaceRepo = "Ren/tess-emotion-speech"
	})

	res, err := New(Options{HuggingFaceCLI: cli}).Fetch(context.Background(), d)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Outcome != OutcomeFetched {
		t.Fatalf("unexpected outcome %s", res.Outcome)
	}
	if _, err := os.Stat(filepath.Join(d.LocalRoot, "TESS", "OAF_back_angry.wav")); err != nil {
		t.Fatalf("expected downloaded file: %v", err)
	}
}

func TestFetchHostedRepositoryFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cli := testsupport.WriteScript(t, t.TempDir(), "hf-stub", "echo 'repository not found' >&2\nexit 1\n")
	d := descriptor(t, cfg, "savee", func(ds *config.Dataset) {
		ds.HuggingFaceRepo = "Ejfrai/SAVEE"
	})

	_, err := New(Options{HuggingFaceCLI: cli}).Fetch(context.Background(), d)
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if !strings.Contains(err.Error(), "repository not found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFetchAllContinuesPastFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	broken := descriptor(t, cfg, "crema_d", func(ds *config.Dataset) {
		ds.URLs = []string{srv.URL + "/gone.zip"}
	})
	local := descriptor(t, cfg, "ravdess", nil)

	results, err := New(Options{}).FetchAll(context.Background(), []*dataset.Descriptor{broken, local})
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected joined ErrDownload, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Outcome != OutcomeLocalOnly {
		t.Fatalf("expected local-only dataset to be reported, got %s", results[1].Outcome)
	}
}

func TestFetchAllHonoursCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := New(Options{}).FetchAll(ctx, []*dataset.Descriptor{descriptor(t, cfg, "ravdess", nil)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
