// Package viewer ties the feed, ingest, and cache layers together behind a
// terminal pager. A Session owns one run's live state; the pager renders it.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/ai-auto-register/claudia/internal/cache"
	"github.com/ai-auto-register/claudia/internal/feed"
	"github.com/ai-auto-register/claudia/internal/ingest"
	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/telemetry"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// SessionConfig carries the collaborators a Session needs. Cache may be nil
// for one-shot consumers that never revisit a run.
type SessionConfig struct {
	Source       feed.Source
	Cache        *cache.Store
	Logger       *logging.Logger
	PollInterval time.Duration // fallback poll cadence when subscribe fails
}

// Session manages one run's transcript lifecycle: prime from cache, fetch a
// snapshot while buffering live lines, merge, and keep appending until the
// run ends or the viewer closes. All state lives in the Ingestor; the
// Session adds cache writes, fallback polling, and teardown.
type Session struct {
	runID  transcript.RunID
	source feed.Source
	store  *cache.Store
	logger *logging.Logger
	poll   time.Duration

	ing *ingest.Ingestor

	mu       sync.Mutex
	closed   bool
	sub      *feed.Subscription
	stopPoll chan struct{}
	fallback bool
	fetchErr error
	notice   string

	changed chan struct{}
}

// Open builds a session for runID and starts its refresh in the background.
// If the cache holds a fresh entry for a finished run, the cached transcript
// is authoritative and no fetch is issued at all.
func Open(runID transcript.RunID, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	logger = logger.WithComponent("viewer").WithRun(string(runID))

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	s := &Session{
		runID:   runID,
		source:  cfg.Source,
		store:   cfg.Cache,
		logger:  logger,
		poll:    poll,
		ing:     ingest.New(runID, logger),
		changed: make(chan struct{}, 1),
	}
	s.ing.Observe(s.onChange)

	if s.store != nil {
		if entry, ok := s.store.Get(runID); ok {
			fresh := s.store.Fresh(entry)
			s.logger.CacheHit(time.Since(entry.LastUpdated), entry.StatusAtCapture, fresh)
			s.ing.Prime(entry.Raw, entry.StatusAtCapture)
			if fresh {
				return s
			}
		} else {
			s.logger.CacheMiss()
		}
	}

	go s.refresh()
	return s
}

// RunID returns the run this session follows.
func (s *Session) RunID() transcript.RunID {
	return s.runID
}

// Log returns the live transcript log. The log is safe for concurrent reads.
func (s *Session) Log() *transcript.Log {
	return s.ing.Log()
}

// Status returns the run's current status string.
func (s *Session) Status() string {
	return s.ing.Status()
}

// ParseErrors returns the count of malformed lines skipped so far.
func (s *Session) ParseErrors() int {
	return s.ing.ParseErrors()
}

// FetchErr returns the most recent snapshot fetch failure, or nil.
func (s *Session) FetchErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

// Fallback reports whether the session is polling because live subscribe
// failed.
func (s *Session) Fallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// Notice returns the latest transport notice, or "".
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Changed returns a channel that receives a wakeup after any state change.
// Signals are coalesced; one receive may cover several changes.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

// Retry clears the last fetch error and refreshes the transcript again.
// Useful after a transient source failure surfaced in the UI.
func (s *Session) Retry() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fetchErr = nil
	s.mu.Unlock()
	go s.refresh()
}

// Stop asks the source to cancel the running run. Sources that cannot stop
// runs return feed.ErrUnsupported.
func (s *Session) Stop(ctx context.Context) error {
	stopper, ok := s.source.(feed.Stopper)
	if !ok {
		return feed.ErrUnsupported
	}
	return stopper.StopRun(ctx, s.runID)
}

// Close tears the session down: the live subscription is closed, fallback
// polling stops, and the final state is written back to the cache. Close is
// synchronous and idempotent; a fetch still in flight has its result
// discarded when it lands.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	stop := s.stopPoll
	s.stopPoll = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if stop != nil {
		close(stop)
	}
	s.writeCache()
}

// refresh runs one snapshot cycle: arm buffering, attach the live
// subscription if none exists yet, fetch the snapshot, then merge. The
// subscription stays attached across retries; only the first refresh
// creates it.
func (s *Session) refresh() {
	ctx, span := telemetry.StartFetch(context.Background(), string(s.runID))

	s.ing.BeginSnapshot()

	s.mu.Lock()
	needSub := s.sub == nil && !s.fallback && !s.closed
	s.mu.Unlock()

	if needSub {
		sub, err := s.source.SubscribeLive(s.runID)
		if err != nil {
			s.enterFallback(err)
		} else {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				sub.Close()
				telemetry.End(span, nil)
				return
			}
			s.sub = sub
			s.mu.Unlock()
			go s.pump(sub)
		}
	}

	text, err := s.source.FetchTranscript(ctx, s.runID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		telemetry.End(span, err)
		return
	}
	s.fetchErr = err
	s.mu.Unlock()

	if err != nil {
		s.ing.FailSnapshot(err)
	} else {
		_, merge := telemetry.StartMerge(ctx, string(s.runID))
		s.ing.CompleteSnapshot(text)
		telemetry.End(merge, nil)
		s.writeCache()
	}
	telemetry.End(span, err)
}

// pump drains one subscription into the ingestor until the subscription
// closes. Lines still buffered in the channels when Done fires are dropped.
func (s *Session) pump(sub *feed.Subscription) {
	for {
		select {
		case <-sub.Done():
			return
		case line := <-sub.Lines():
			s.ing.HandleLine(line)
		case msg := <-sub.Errs():
			s.ing.HandleNotice(msg)
		case success := <-sub.Complete():
			s.ing.HandleComplete(success)
		case <-sub.Cancelled():
			s.ing.HandleCancelled()
		}
	}
}

// enterFallback switches the session to periodic full refetches. Entered at
// most once; later subscribe errors are ignored while polling runs.
func (s *Session) enterFallback(err error) {
	s.mu.Lock()
	if s.closed || s.fallback {
		s.mu.Unlock()
		return
	}
	s.fallback = true
	stop := make(chan struct{})
	s.stopPoll = stop
	s.mu.Unlock()

	s.logger.SubscribeFailed(err, s.poll)
	go s.pollLoop(stop)
}

// pollLoop refetches the whole transcript on a ticker. Each round replaces
// the log through the same snapshot path a live refresh uses, so ordering
// and dedup behave identically.
func (s *Session) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, span := telemetry.StartFetch(context.Background(), string(s.runID))
		text, err := s.source.FetchTranscript(ctx, s.runID)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			telemetry.End(span, err)
			return
		}
		s.fetchErr = err
		s.mu.Unlock()

		if err == nil {
			s.ing.BeginSnapshot()
			s.ing.CompleteSnapshot(text)
			s.writeCache()
		}
		telemetry.End(span, err)
		s.wake()
	}
}

// onChange mirrors ingestor changes into session state and wakes the UI.
func (s *Session) onChange(c ingest.Change) {
	switch c.Kind {
	case ingest.ChangeStatus:
		s.writeCache()
	case ingest.ChangeNotice:
		s.mu.Lock()
		s.notice = c.Note
		s.mu.Unlock()
	}
	s.wake()
}

// writeCache stores the current transcript and status for the next open.
func (s *Session) writeCache() {
	if s.store == nil {
		return
	}
	log := s.ing.Log()
	s.store.Put(s.runID, cache.Entry{
		RunID:           s.runID,
		Raw:             log.Raw(),
		Messages:        log.Messages(),
		LastUpdated:     time.Now(),
		StatusAtCapture: s.ing.Status(),
	})
}

func (s *Session) wake() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
