package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/runs"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// defaultDebounce coalesces filesystem event bursts before reading.
const defaultDebounce = 100 * time.Millisecond

// DirSource serves runs from a directory tree: <root>/<run-id>/ holds the
// transcript, the RUN.md manifest, and completion markers. Starting a run
// provisions the directory; an agent harness appends transcript lines and
// drops the markers. Live subscriptions tail the transcript with fsnotify.
type DirSource struct {
	root     string
	debounce time.Duration
	logger   *logging.Logger
}

// DirOption adjusts a DirSource.
type DirOption func(*DirSource)

// WithDebounce changes how long the tail waits for event bursts to settle.
func WithDebounce(d time.Duration) DirOption {
	return func(s *DirSource) { s.debounce = d }
}

// NewDirSource returns a source rooted at the given directory.
func NewDirSource(root string, logger *logging.Logger, opts ...DirOption) *DirSource {
	if logger == nil {
		logger = logging.New()
	}
	s := &DirSource{
		root:     root,
		debounce: defaultDebounce,
		logger:   logger.WithComponent("feed.dir"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRun provisions a run directory with its manifest and an empty
// transcript, and returns the minted id.
func (s *DirSource) StartRun(ctx context.Context, spec RunSpec) (transcript.RunID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	name := spec.Name
	if name == "" {
		name = "agent run"
	}
	manifest := &runs.Manifest{
		ID:      id,
		Name:    name,
		Task:    spec.Task,
		Model:   spec.Model,
		Created: time.Now().UTC(),
	}
	if err := runs.Write(dir, manifest); err != nil {
		return "", err
	}

	path := filepath.Join(dir, runs.TranscriptFile)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return "", fmt.Errorf("failed to create transcript: %w", err)
	}

	s.logger.RunStarted(id, name)
	return transcript.RunID(id), nil
}

// FetchTranscript reads the whole transcript file. A run directory without a
// transcript yet reads as empty.
func (s *DirSource) FetchTranscript(ctx context.Context, id transcript.RunID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, string(id))
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoSuchRun, id)
	}

	data, err := os.ReadFile(filepath.Join(dir, runs.TranscriptFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

// SubscribeLive tails the run directory. Lines written after the attach are
// delivered in order; marker files map to the completion and cancellation
// signals, including markers that already exist at attach time.
func (s *DirSource) SubscribeLive(id transcript.RunID) (*Subscription, error) {
	dir := filepath.Join(s.root, string(id))
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRun, id)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch run directory: %w", err)
	}

	path := filepath.Join(dir, runs.TranscriptFile)
	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	sub := NewSubscription(func() { watcher.Close() })
	t := &tail{
		sub:      sub,
		watcher:  watcher,
		path:     path,
		dir:      dir,
		offset:   offset,
		debounce: s.debounce,
		logger:   s.logger,
	}
	go t.run()
	return sub, nil
}

// StopRun drops the cancellation marker. The agent harness watches for it;
// the tail reports it back as the cancelled signal.
func (s *DirSource) StopRun(ctx context.Context, id transcript.RunID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, string(id))
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNoSuchRun, id)
	}
	return os.WriteFile(filepath.Join(dir, runs.MarkerCancelled), nil, 0o644)
}

// tail follows one transcript file and its sibling markers until the
// subscription closes. With dir unset there are no markers to watch, and
// with match set only events for that path count.
type tail struct {
	sub      *Subscription
	watcher  *fsnotify.Watcher
	path     string
	dir      string
	match    string
	offset   int64
	debounce time.Duration
	logger   *logging.Logger

	doneSent   bool
	cancelSent bool
}

func (t *tail) run() {
	// Markers may predate the attach; report them before waiting on events.
	t.checkMarkers()

	for {
		select {
		case <-t.sub.Done():
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if t.match != "" && filepath.Clean(event.Name) != t.match {
				continue
			}
			// Let the burst settle, then drain whatever queued up.
			time.Sleep(t.debounce)
			t.drainEvents()
			t.readNewLines()
			t.checkMarkers()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (t *tail) drainEvents() {
	for {
		select {
		case _, ok := <-t.watcher.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// readNewLines emits the complete lines appended since the last read. A
// trailing fragment without its newline stays unread until the writer
// finishes the line.
func (t *tail) readNewLines() {
	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		// Truncated or replaced; start over.
		t.offset = 0
	}
	if info.Size() == t.offset {
		return
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	data := make([]byte, info.Size()-t.offset)
	if _, err := io.ReadFull(f, data); err != nil {
		return
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return
	}
	t.offset += int64(end) + 1

	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		t.sub.PublishLine(string(line))
	}
}

func (t *tail) checkMarkers() {
	if t.dir == "" {
		return
	}
	if !t.cancelSent {
		if _, err := os.Stat(filepath.Join(t.dir, runs.MarkerCancelled)); err == nil {
			t.sub.PublishCancelled()
			t.cancelSent = true
		}
	}
	if !t.doneSent {
		data, err := os.ReadFile(filepath.Join(t.dir, runs.MarkerDone))
		if err != nil {
			return
		}
		t.sub.PublishComplete(strings.TrimSpace(string(data)) != "false")
		t.doneSent = true
	}
}
