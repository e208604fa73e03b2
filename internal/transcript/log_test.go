package transcript

import (
	"fmt"
	"testing"
)

func TestLog_AppendAssignsDenseIndices(t *testing.T) {
	log := NewLog("run-1")

	for i := 0; i < 5; i++ {
		line := fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"text","text":"m%d"}]}}`, i)
		msg, err := log.Append(line)
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if msg.SequenceIndex != uint64(i) {
			t.Errorf("expected sequence index %d, got %d", i, msg.SequenceIndex)
		}
		if msg.RawLine != line {
			t.Errorf("raw line not preserved verbatim")
		}
	}

	msgs := log.Messages()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].SequenceIndex != msgs[i-1].SequenceIndex+1 {
			t.Errorf("gap between indices %d and %d", msgs[i-1].SequenceIndex, msgs[i].SequenceIndex)
		}
	}
}

func TestLog_ParseFailureConsumesNoIndex(t *testing.T) {
	log := NewLog("run-1")

	if _, err := log.Append(`{"type":"summary","summary":"a"}`); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := log.Append(`{"broken`); err == nil {
		t.Fatal("expected parse error")
	}
	msg, err := log.Append(`{"type":"summary","summary":"b"}`)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if msg.SequenceIndex != 1 {
		t.Errorf("expected index 1 after skipped bad line, got %d", msg.SequenceIndex)
	}
	if log.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", log.Len())
	}
}

func TestLog_RawJoinsVerbatim(t *testing.T) {
	log := NewLog("run-1")
	lines := []string{
		`{"type":"summary","summary":"one"}`,
		`{"type":"summary","summary":"two"}`,
		`{"type":"summary","summary":"three"}`,
	}
	for _, line := range lines {
		if _, err := log.Append(line); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	want := lines[0] + "\n" + lines[1] + "\n" + lines[2]
	if got := log.Raw(); got != want {
		t.Errorf("raw mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestLog_MessagesReturnsCopy(t *testing.T) {
	log := NewLog("run-1")
	if _, err := log.Append(`{"type":"summary","summary":"one"}`); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	snap := log.Messages()
	snap[0].RawLine = "tampered"

	if log.At(0).RawLine == "tampered" {
		t.Error("snapshot mutation leaked into the log")
	}
}

func TestLog_LastRaw(t *testing.T) {
	log := NewLog("run-1")
	for i := 0; i < 4; i++ {
		line := fmt.Sprintf(`{"type":"summary","summary":"s%d"}`, i)
		if _, err := log.Append(line); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	tail := log.LastRaw(2)
	if len(tail) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(tail))
	}
	if tail[0] != `{"type":"summary","summary":"s2"}` || tail[1] != `{"type":"summary","summary":"s3"}` {
		t.Errorf("unexpected tail: %v", tail)
	}

	if got := log.LastRaw(10); len(got) != 4 {
		t.Errorf("expected clamp to log length, got %d", len(got))
	}
}
