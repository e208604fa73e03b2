// Package ingest reconciles a fetched snapshot with live event lines into a
// single append-only transcript log. Lines that race the snapshot fetch are
// buffered and replayed against the snapshot tail, so nothing is lost and
// nothing is duplicated regardless of how the two sources interleave.
package ingest

import (
	"strings"
	"sync"

	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// Change kinds delivered to observers.
const (
	// ChangeReset means the log was rebuilt; re-read it from the start.
	ChangeReset = "reset"
	// ChangeAppend means one message was appended at the tail.
	ChangeAppend = "append"
	// ChangeStatus means the run status transitioned.
	ChangeStatus = "status"
	// ChangeNotice carries a transient diagnostic from the run's error
	// channel.
	ChangeNotice = "notice"
)

// Change describes one mutation of the ingestor's state.
type Change struct {
	Kind   string
	Tail   int
	Status string
	Note   string
}

// Ingestor owns the transcript log of one run and the merge protocol that
// fills it. All methods are safe to call from the feed goroutine while
// readers walk the log.
type Ingestor struct {
	mu        sync.Mutex
	runID     transcript.RunID
	log       *transcript.Log
	status    string
	pending   bool
	buffer    []string
	parseErrs int
	observers []func(Change)
	logger    *logging.Logger
}

// New returns an ingestor for the given run with an empty log and running
// status.
func New(runID transcript.RunID, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.New()
	}
	return &Ingestor{
		runID:  runID,
		log:    transcript.NewLog(runID),
		status: transcript.StatusRunning,
		logger: logger.WithComponent("ingest").WithRun(string(runID)),
	}
}

// RunID returns the run this ingestor serves.
func (g *Ingestor) RunID() transcript.RunID {
	return g.runID
}

// Log returns the current transcript log. A snapshot merge replaces the log
// wholesale, so callers should re-fetch it after a reset change.
func (g *Ingestor) Log() *transcript.Log {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.log
}

// Status returns the current run status.
func (g *Ingestor) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// ParseErrors returns how many lines failed to decode and were skipped.
func (g *Ingestor) ParseErrors() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parseErrs
}

// Observe registers a callback for state changes. Callbacks run on the
// goroutine that caused the change, after the ingestor lock is released.
func (g *Ingestor) Observe(fn func(Change)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// Prime seeds the log from cached raw content so the viewer has something to
// paint before the authoritative fetch resolves. No change is emitted; the
// caller paints directly.
func (g *Ingestor) Prime(raw, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fresh := transcript.NewLog(g.runID)
	g.appendLinesLocked(fresh, splitLines(raw))
	g.log = fresh
	if status != "" {
		g.status = status
	}
}

// BeginSnapshot arms buffering: lines delivered from here on are held back
// until the snapshot resolves one way or the other.
func (g *Ingestor) BeginSnapshot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = true
	g.buffer = nil
}

// HandleLine routes one live line: buffered while a snapshot is in flight,
// appended otherwise. Successful appends notify observers of the new tail.
func (g *Ingestor) HandleLine(raw string) {
	g.mu.Lock()
	if g.pending {
		g.buffer = append(g.buffer, raw)
		g.mu.Unlock()
		return
	}
	if strings.TrimSpace(raw) == "" {
		g.mu.Unlock()
		return
	}
	_, err := g.log.Append(raw)
	if err != nil {
		g.parseErrs++
		count := g.parseErrs
		g.mu.Unlock()
		g.logger.ParseFailure(err, count)
		return
	}
	tail := g.log.Len()
	g.mu.Unlock()

	g.notify(Change{Kind: ChangeAppend, Tail: tail})
}

// CompleteSnapshot resolves the merge: the snapshot's lines become the log,
// then the buffered live lines are replayed against it. A buffered line that
// exactly duplicates one of the trailing snapshot lines is dropped; the rest
// append in arrival order. Replaying the same snapshot and buffer again
// would produce an identical log.
func (g *Ingestor) CompleteSnapshot(text string) {
	g.mu.Lock()

	fresh := transcript.NewLog(g.runID)
	snapshotLines := g.appendLinesLocked(fresh, splitLines(text))

	buffered := len(g.buffer)
	tailSeen := countLines(fresh.LastRaw(buffered))
	appended := 0
	for _, raw := range g.buffer {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if tailSeen[raw] > 0 {
			tailSeen[raw]--
			continue
		}
		if _, err := fresh.Append(raw); err != nil {
			g.parseErrs++
			g.logger.ParseFailure(err, g.parseErrs)
			continue
		}
		appended++
	}

	g.log = fresh
	g.pending = false
	g.buffer = nil
	tail := fresh.Len()
	g.mu.Unlock()

	g.logger.SnapshotMerged(snapshotLines, buffered, appended)
	g.notify(Change{Kind: ChangeReset, Tail: tail})
}

// FailSnapshot resolves a failed fetch: whatever was buffered becomes the
// whole log so live progress still shows.
func (g *Ingestor) FailSnapshot(err error) {
	g.mu.Lock()

	fresh := transcript.NewLog(g.runID)
	g.appendLinesLocked(fresh, g.buffer)
	kept := fresh.Len()

	g.log = fresh
	g.pending = false
	g.buffer = nil
	g.mu.Unlock()

	g.logger.SnapshotFailed(err, kept)
	g.notify(Change{Kind: ChangeReset, Tail: kept})
}

// HandleComplete records the run finishing. The log itself is untouched;
// only the status moves. A cancelled run stays cancelled even if a late
// completion signal arrives.
func (g *Ingestor) HandleComplete(success bool) {
	status := transcript.StatusCompleted
	if !success {
		status = transcript.StatusFailed
	}
	g.transition(status)
}

// HandleCancelled records a user-initiated stop.
func (g *Ingestor) HandleCancelled() {
	g.transition(transcript.StatusCancelled)
}

// HandleNotice forwards a line from the run's error channel to observers as
// a transient notice.
func (g *Ingestor) HandleNotice(msg string) {
	g.logger.Warn("run reported error output", map[string]interface{}{"notice": msg})
	g.notify(Change{Kind: ChangeNotice, Note: msg})
}

func (g *Ingestor) transition(status string) {
	g.mu.Lock()
	if g.status == transcript.StatusCancelled && status != transcript.StatusCancelled {
		g.mu.Unlock()
		return
	}
	if g.status == status {
		g.mu.Unlock()
		return
	}
	g.status = status
	g.mu.Unlock()

	g.logger.StatusChanged(status)
	g.notify(Change{Kind: ChangeStatus, Status: status})
}

func (g *Ingestor) notify(c Change) {
	g.mu.Lock()
	obs := make([]func(Change), len(g.observers))
	copy(obs, g.observers)
	if c.Status == "" {
		c.Status = g.status
	}
	g.mu.Unlock()

	for _, fn := range obs {
		fn(c)
	}
}

// appendLinesLocked appends each non-blank line to the log, counting parse
// failures against the ingestor. Returns the number of lines appended.
func (g *Ingestor) appendLinesLocked(log *transcript.Log, lines []string) int {
	appended := 0
	for _, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := log.Append(raw); err != nil {
			g.parseErrs++
			g.logger.ParseFailure(err, g.parseErrs)
			continue
		}
		appended++
	}
	return appended
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func countLines(lines []string) map[string]int {
	counts := make(map[string]int, len(lines))
	for _, l := range lines {
		counts[l]++
	}
	return counts
}
