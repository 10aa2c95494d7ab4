package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"emoroute/internal/config"
	"emoroute/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	homeDir    string
}

func setupCLITestEnv(t *testing.T, extraTOML ...string) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe", "huggingface-cli"))
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("EMOROUTE_RAW_DIR", "")
	t.Setenv("EMOROUTE_OUTPUT_DIR", "")

	configPath := filepath.Join(base, "emoroute.toml")
	writeTestConfig(t, configPath, cfg, extraTOML...)
	return &cliTestEnv{cfg: cfg, configPath: configPath, homeDir: homeDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, extra ...string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nraw_dir = %q\noutput_dir = %q\nlog_dir = %q\nstate_dir = %q\n\n[logging]\nlevel = \"error\"\n\n[routing]\nworkers = 2\n",
		cfg.Paths.RawDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.StateDir,
	)
	content += strings.Join(extra, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeRavdessFixture places two routable files and one pattern miss under
// the ravdess root.
func (env *cliTestEnv) writeRavdessFixture(t *testing.T) {
	t.Helper()
	testsupport.WriteAudioTree(t, filepath.Join(env.cfg.Paths.RawDir, "ravdess"),
		"Actor_01/03-01-05-01-02-01-12.wav",
		"Actor_01/03-01-04-01-01-01-01.wav",
		"Actor_01/readme.wav",
	)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
