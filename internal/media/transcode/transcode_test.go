package transcode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	f := FFmpeg{Target: Target{Format: "wav", SampleRate: 16000, Channels: 1}}
	got := strings.Join(f.Args("in.mp3", "out.wav"), " ")
	want := "-hide_banner -loglevel error -nostdin -y -i in.mp3 -vn -ac 1 -ar 16000 -c:a pcm_s16le -f wav out.wav"
	if got != want {
		t.Fatalf("unexpected args:\n got %s\nwant %s", got, want)
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscodeRenamesOutput(t *testing.T) {
	stub := writeStub(t, "for a in \"$@\"; do last=$a; done\nprintf converted > \"$last\"\n")
	dst := filepath.Join(t.TempDir(), "angry", "ravdess_clip.wav")
	f := FFmpeg{Binary: stub, Target: Target{Format: "wav", SampleRate: 16000, Channels: 1}}
	if err := f.Transcode(context.Background(), "/src/clip.wav", dst); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "converted" {
		t.Fatalf("unexpected output %q %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestTranscodeFailureLeavesNoFile(t *testing.T) {
	stub := writeStub(t, "for a in \"$@\"; do last=$a; done\nprintf partial > \"$last\"\necho 'decode error' >&2\nexit 1\n")
	dst := filepath.Join(t.TempDir(), "out.wav")
	err := FFmpeg{Binary: stub, Target: Target{Format: "wav"}}.Transcode(context.Background(), "/src/x.wav", dst)
	if err == nil || !strings.Contains(err.Error(), "decode error") {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatal("destination must not exist after failure")
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 0 {
		t.Fatalf("expected no leftovers, found %d", len(entries))
	}
}
