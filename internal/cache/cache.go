// Package cache keeps the last known transcript state per run so reopening a
// viewer paints instantly instead of waiting on a fetch.
package cache

import (
	"sync"
	"time"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

// DefaultFreshnessWindow is how long a snapshot of a finished run may be
// reused without refetching.
const DefaultFreshnessWindow = 5 * time.Second

// DefaultCapacity bounds the number of cached runs.
const DefaultCapacity = 64

// Entry is the cached state of one run: the verbatim transcript, its parsed
// form, and the run status observed when the entry was written.
type Entry struct {
	RunID           transcript.RunID
	Raw             string
	Messages        []transcript.Message
	LastUpdated     time.Time
	StatusAtCapture string
}

// Store is a concurrency-safe cache of transcript entries. Writes are
// last-write-wins; reads never block on I/O.
type Store struct {
	mu       sync.RWMutex
	entries  map[transcript.RunID]Entry
	capacity int
	freshFor time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// Option adjusts store behavior.
type Option func(*Store)

// WithClock substitutes the time source. Tests use this to control
// freshness without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTTL changes how long entries survive before eviction.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New creates a store. A capacity of zero means DefaultCapacity; a zero
// freshness window means DefaultFreshnessWindow. Entries are evicted once
// they are older than ten freshness windows, or oldest-first when the store
// is over capacity.
func New(capacity int, freshFor time.Duration, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if freshFor <= 0 {
		freshFor = DefaultFreshnessWindow
	}
	s := &Store{
		entries:  make(map[transcript.RunID]Entry),
		capacity: capacity,
		freshFor: freshFor,
		ttl:      10 * freshFor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached entry for a run. The boolean reports presence, not
// freshness; callers decide what a stale entry is good for.
func (s *Store) Get(runID transcript.RunID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[runID]
	return e, ok
}

// Put stores an entry for a run, replacing any previous one. LastUpdated is
// clamped so it never moves backwards for a run, even when writers race.
func (s *Store) Put(runID transcript.RunID, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.RunID = runID
	if entry.LastUpdated.IsZero() {
		entry.LastUpdated = s.now()
	}
	if prev, ok := s.entries[runID]; ok && entry.LastUpdated.Before(prev.LastUpdated) {
		entry.LastUpdated = prev.LastUpdated
	}
	s.entries[runID] = entry
	s.evictLocked()
}

// Fresh reports whether an entry may be shown without a refetch: it must be
// younger than the freshness window and must not describe a run that was
// still in flight when captured.
func (s *Store) Fresh(entry Entry) bool {
	if entry.StatusAtCapture == transcript.StatusRunning {
		return false
	}
	return s.now().Sub(entry.LastUpdated) < s.freshFor
}

// Delete removes a run's entry if present.
func (s *Store) Delete(runID transcript.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, runID)
}

// Len returns the number of cached runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictLocked drops expired entries, then trims oldest-first down to
// capacity. Callers hold the write lock.
func (s *Store) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.LastUpdated.Before(cutoff) {
			delete(s.entries, id)
		}
	}
	for len(s.entries) > s.capacity {
		var oldestID transcript.RunID
		var oldest time.Time
		first := true
		for id, e := range s.entries {
			if first || e.LastUpdated.Before(oldest) {
				oldestID = id
				oldest = e.LastUpdated
				first = false
			}
		}
		delete(s.entries, oldestID)
	}
}
