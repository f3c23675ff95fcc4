package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewWriterStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "scheduler"))
	log.Info("task ran", Int("n", 3), Duration("took", 2*time.Millisecond), Err(errors.New("boom")))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if m["message"] != "task ran" || m["comp"] != "scheduler" || m["n"] != float64(3) {
		t.Fatalf("unexpected line: %v", m)
	}
	if _, ok := m["caller"]; !ok {
		t.Fatalf("caller missing: %v", m)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output=%q", buf.String())
	}
	if log.Enabled(LevelDebug) {
		t.Fatalf("debug should be disabled at warn")
	}
}

func TestZeroAndNopAreSilent(t *testing.T) {
	var zero Logger
	if !zero.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	zero.Error("nothing")
	Nop().Error("nothing")
}

func TestServiceApplyFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wd.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("first")
	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	log.Info("dropped")
	log.Error("second")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") || strings.Contains(out, "dropped") {
		t.Fatalf("file contents=%q", out)
	}
	if !strings.Contains(out, `"pid":`) {
		t.Fatalf("pid field missing: %q", out)
	}
}
