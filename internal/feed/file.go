package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// FileSource serves a single transcript file, for viewing a raw JSONL log
// that lives outside any run directory. It cannot start or stop runs and has
// no completion markers; the viewer just follows the file as it grows.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *logging.Logger
}

// NewFileSource returns a source for one transcript file.
func NewFileSource(path string, logger *logging.Logger) *FileSource {
	if logger == nil {
		logger = logging.New()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileSource{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   logger.WithComponent("feed.file"),
	}
}

// RunID returns the stable id this source answers to: the cleaned absolute
// path of the file.
func (s *FileSource) RunID() transcript.RunID {
	return transcript.RunID(s.path)
}

// StartRun is not available for single files.
func (s *FileSource) StartRun(ctx context.Context, spec RunSpec) (transcript.RunID, error) {
	return "", ErrUnsupported
}

// FetchTranscript reads the whole file.
func (s *FileSource) FetchTranscript(ctx context.Context, id transcript.RunID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchRun, s.path)
		}
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

// SubscribeLive tails the file. The watch sits on the parent directory so
// the file may be replaced or created after the attach.
func (s *FileSource) SubscribeLive(id transcript.RunID) (*Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch transcript: %w", err)
	}

	var offset int64
	if info, err := os.Stat(s.path); err == nil {
		offset = info.Size()
	}

	sub := NewSubscription(func() { watcher.Close() })
	t := &tail{
		sub:      sub,
		watcher:  watcher,
		path:     s.path,
		match:    s.path,
		offset:   offset,
		debounce: s.debounce,
		logger:   s.logger,
	}
	go t.run()
	return sub, nil
}
