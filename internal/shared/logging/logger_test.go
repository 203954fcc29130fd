package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("dashboard", "plant"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "shown" || entry["dashboard"] != "plant" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestSetupWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	day := time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)

	closer, logger, err := Setup(&stdout, Config{Directory: dir, Format: "text"}, day)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	data, err := os.ReadFile(filepath.Join(dir, "2026-03-04.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(stdout.String(), "msg=hello") {
		t.Fatalf("expected message in file and stdout, got %q / %q", data, stdout.String())
	}
}
