package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.Debug("hidden")
	log.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info line missing")
	}

	buf.Reset()
	log.SetLevel(LevelDebug)
	log.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("debug line missing after SetLevel")
	}
}

func TestLogger_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	child := log.WithComponent("ingest").WithRun("run-42")
	child.Info("snapshot merged", map[string]interface{}{"appended": 3})

	line := buf.String()
	if !strings.HasPrefix(line, "INFO ") {
		t.Errorf("expected level prefix, got %q", line)
	}
	if !strings.Contains(line, "[ingest]") {
		t.Errorf("expected component tag, got %q", line)
	}
	if !strings.Contains(line, "appended=3") || !strings.Contains(line, "run=run-42") {
		t.Errorf("expected fields in line, got %q", line)
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	got := formatFields(map[string]interface{}{"b": 2, "a": 1, "c": 3})
	if got != " a=1 b=2 c=3" {
		t.Errorf("expected sorted fields, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("debug not recognized")
	}
	if ParseLevel("WARNING") != LevelWarn {
		t.Error("warning alias not recognized")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("unknown level should default to info")
	}
}
