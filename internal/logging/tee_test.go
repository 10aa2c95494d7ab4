package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeLoggerCollapses(t *testing.T) {
	if _, ok := TeeLogger(nil, nil).Handler().(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if TeeLogger(nil, nil, inner).Handler() != inner {
		t.Fatal("expected single non-nil handler to be used unwrapped")
	}
}

func TestTeeLoggerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger := TeeLogger(base, slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Debug("routing decision", String(FieldDataset, "savee"))
	logger.Info("dataset routed")

	if strings.Contains(infoBuf.String(), "routing decision") {
		t.Fatal("info handler must not receive debug records")
	}
	if !strings.Contains(debugBuf.String(), "routing decision") || !strings.Contains(debugBuf.String(), "dataset routed") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "dataset routed") {
		t.Fatalf("info handler missing record: %s", infoBuf.String())
	}
}

func TestTeeLoggerWithAttrsReachesAllHandlers(t *testing.T) {
	var a, b bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger.With(String(FieldRunID, "abc")).WithGroup("summary").Info("done", Int("resolved", 3))
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"run_id":"abc"`) || !strings.Contains(out, `"summary":{"resolved":3}`) {
			t.Fatalf("unexpected output %s", out)
		}
	}
}

func TestFormatValueHumanizesByteCounts(t *testing.T) {
	tests := []struct {
		key   string
		value slog.Value
		want  string
	}{
		{"bytes", slog.Int64Value(3 << 20), "3.0 MiB"},
		{"reclaimed_bytes", slog.Int64Value(512), "512 B"},
		{"files", slog.Int64Value(512), "512"},
		{"path", slog.StringValue("/raw/My Clip.wav"), `"/raw/My Clip.wav"`},
		{"error", slog.AnyValue(errString("disk full")), `"disk full"`},
	}
	for _, tc := range tests {
		if got := formatValue(tc.key, tc.value); got != tc.want {
			t.Errorf("formatValue(%s) = %s, want %s", tc.key, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
