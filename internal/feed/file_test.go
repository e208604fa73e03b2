package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	content := `{"type":"summary","summary":"a"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	src := NewFileSource(path, quietLogger())
	if src.RunID() == "" {
		t.Error("expected a stable run id")
	}

	got, err := src.FetchTranscript(context.Background(), src.RunID())
	if err != nil {
		t.Fatalf("FetchTranscript failed: %v", err)
	}
	if got != content {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestFileSource_FetchMissing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.jsonl"), quietLogger())
	if _, err := src.FetchTranscript(context.Background(), src.RunID()); !errors.Is(err, ErrNoSuchRun) {
		t.Errorf("expected ErrNoSuchRun, got %v", err)
	}
}

func TestFileSource_StartRunUnsupported(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "x.jsonl"), quietLogger())
	if _, err := src.StartRun(context.Background(), RunSpec{Name: "run"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestFileSource_Tail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(`{"type":"summary","summary":"old"}`+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	src := NewFileSource(path, quietLogger())
	src.debounce = 5 * time.Millisecond

	sub, err := src.SubscribeLive(src.RunID())
	if err != nil {
		t.Fatalf("SubscribeLive failed: %v", err)
	}
	defer sub.Close()

	// Only content appended after the attach is delivered.
	appendFile(t, path, `{"type":"summary","summary":"new"}`+"\n")

	if got := recvLine(t, sub.Lines()); got != `{"type":"summary","summary":"new"}` {
		t.Errorf("unexpected line: %q", got)
	}
}

func TestFileSource_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	src := NewFileSource(path, quietLogger())
	src.debounce = 5 * time.Millisecond

	sub, err := src.SubscribeLive(src.RunID())
	if err != nil {
		t.Fatalf("SubscribeLive failed: %v", err)
	}
	defer sub.Close()

	appendFile(t, filepath.Join(dir, "other.jsonl"), `{"type":"summary","summary":"noise"}`+"\n")
	appendFile(t, path, `{"type":"summary","summary":"signal"}`+"\n")

	if got := recvLine(t, sub.Lines()); got != `{"type":"summary","summary":"signal"}` {
		t.Errorf("expected only the watched file's line, got %q", got)
	}
}
