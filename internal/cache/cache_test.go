package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_PutGet(t *testing.T) {
	s := New(4, DefaultFreshnessWindow)

	if _, ok := s.Get("run-1"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Put("run-1", Entry{Raw: "line", StatusAtCapture: transcript.StatusCompleted})
	e, ok := s.Get("run-1")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if e.RunID != "run-1" || e.Raw != "line" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	s := New(4, DefaultFreshnessWindow)

	s.Put("run-1", Entry{Raw: "old"})
	s.Put("run-1", Entry{Raw: "new"})

	e, _ := s.Get("run-1")
	if e.Raw != "new" {
		t.Errorf("expected last write to win, got %q", e.Raw)
	}
}

func TestStore_LastUpdatedNeverMovesBackwards(t *testing.T) {
	now := time.Now()
	s := New(4, DefaultFreshnessWindow)

	s.Put("run-1", Entry{Raw: "a", LastUpdated: now})
	s.Put("run-1", Entry{Raw: "b", LastUpdated: now.Add(-time.Minute)})

	e, _ := s.Get("run-1")
	if e.Raw != "b" {
		t.Errorf("content should still be last write, got %q", e.Raw)
	}
	if e.LastUpdated.Before(now) {
		t.Errorf("LastUpdated moved backwards: %v < %v", e.LastUpdated, now)
	}
}

func TestStore_FreshCompletedWithinWindow(t *testing.T) {
	now := time.Now()
	s := New(4, 5*time.Second, WithClock(fixedClock(now)))

	entry := Entry{
		LastUpdated:     now.Add(-3 * time.Second),
		StatusAtCapture: transcript.StatusCompleted,
	}
	if !s.Fresh(entry) {
		t.Error("completed entry 3s old inside a 5s window must be fresh")
	}
}

func TestStore_StaleOutsideWindow(t *testing.T) {
	now := time.Now()
	s := New(4, 5*time.Second, WithClock(fixedClock(now)))

	entry := Entry{
		LastUpdated:     now.Add(-6 * time.Second),
		StatusAtCapture: transcript.StatusCompleted,
	}
	if s.Fresh(entry) {
		t.Error("entry older than the window must be stale")
	}
}

func TestStore_RunningNeverFresh(t *testing.T) {
	now := time.Now()
	s := New(4, 5*time.Second, WithClock(fixedClock(now)))

	entry := Entry{
		LastUpdated:     now,
		StatusAtCapture: transcript.StatusRunning,
	}
	if s.Fresh(entry) {
		t.Error("an entry captured while the run was live must never be fresh")
	}
}

func TestStore_EvictsOverCapacity(t *testing.T) {
	now := time.Now()
	s := New(2, 5*time.Second, WithClock(fixedClock(now)))

	s.Put("run-1", Entry{LastUpdated: now.Add(-3 * time.Second)})
	s.Put("run-2", Entry{LastUpdated: now.Add(-2 * time.Second)})
	s.Put("run-3", Entry{LastUpdated: now.Add(-1 * time.Second)})

	if s.Len() != 2 {
		t.Fatalf("expected capacity eviction to 2 entries, got %d", s.Len())
	}
	if _, ok := s.Get("run-1"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := s.Get("run-3"); !ok {
		t.Error("newest entry should survive")
	}
}

func TestStore_EvictsExpired(t *testing.T) {
	now := time.Now()
	s := New(8, time.Second, WithClock(fixedClock(now)), WithTTL(10*time.Second))

	s.Put("run-old", Entry{LastUpdated: now.Add(-time.Minute)})
	s.Put("run-new", Entry{LastUpdated: now})

	if _, ok := s.Get("run-old"); ok {
		t.Error("expired entry should have been evicted on put")
	}
	if _, ok := s.Get("run-new"); !ok {
		t.Error("live entry should survive")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(32, DefaultFreshnessWindow)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := transcript.RunID(fmt.Sprintf("run-%d", n%4))
			for j := 0; j < 100; j++ {
				s.Put(id, Entry{Raw: "x", StatusAtCapture: transcript.StatusCompleted})
				s.Get(id)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() == 0 || s.Len() > 4 {
		t.Errorf("unexpected entry count after concurrent writes: %d", s.Len())
	}
}
