// Package feed supplies run transcripts to the viewer. A Source exposes the
// inbound control surface: start a run, fetch the full transcript so far,
// and subscribe to the live event channels. Two sources ship here: a run
// directory watched through the filesystem and a NATS transport.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

// Sentinel errors shared by sources.
var (
	ErrNoSuchRun   = errors.New("no such run")
	ErrUnsupported = errors.New("operation not supported by this source")
)

// RunSpec describes a run to start.
type RunSpec struct {
	Name  string            `json:"name"`
	Task  string            `json:"task"`
	Model string            `json:"model,omitempty"`
	Args  map[string]string `json:"args,omitempty"`
}

// Source is the inbound control surface for transcripts.
type Source interface {
	// StartRun requests a new run and returns its id.
	StartRun(ctx context.Context, spec RunSpec) (transcript.RunID, error)
	// FetchTranscript returns the full transcript so far as raw JSONL. The
	// call runs as long as the context allows; the caller decides whether to
	// bound it.
	FetchTranscript(ctx context.Context, id transcript.RunID) (string, error)
	// SubscribeLive attaches to the run's event channels. The returned
	// subscription delivers only events observed after the attach.
	SubscribeLive(id transcript.RunID) (*Subscription, error)
}

// Stopper is implemented by sources that can request run cancellation.
type Stopper interface {
	StopRun(ctx context.Context, id transcript.RunID) error
}

// Subscription is one live attachment to a run. Lines carries transcript
// events, Errs carries diagnostic output, Complete fires once with the run's
// verdict, and Cancelled fires once on a user-initiated stop. Done is closed
// when the subscription is torn down.
type Subscription struct {
	lines     chan string
	errs      chan string
	complete  chan bool
	cancelled chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeFn   func()
}

// NewSubscription builds a subscription for a source implementation. The
// close hook runs exactly once, from the first Close call.
func NewSubscription(closeFn func()) *Subscription {
	return &Subscription{
		lines:     make(chan string, 256),
		errs:      make(chan string, 16),
		complete:  make(chan bool, 1),
		cancelled: make(chan struct{}, 1),
		done:      make(chan struct{}),
		closeFn:   closeFn,
	}
}

// Lines delivers transcript event lines in arrival order.
func (s *Subscription) Lines() <-chan string { return s.lines }

// Errs delivers diagnostic lines from the run.
func (s *Subscription) Errs() <-chan string { return s.errs }

// Complete fires once when the run finishes; the value is the verdict.
func (s *Subscription) Complete() <-chan bool { return s.complete }

// Cancelled fires once when the run is stopped by a user.
func (s *Subscription) Cancelled() <-chan struct{} { return s.cancelled }

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches from the run. It returns once the underlying transport
// resources are released, and further calls are no-ops.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// PublishLine blocks until the line is consumed or the subscription closes.
// Lines must not be dropped; the channel buffer absorbs bursts.
func (s *Subscription) PublishLine(line string) {
	select {
	case s.lines <- line:
	case <-s.done:
	}
}

// PublishErr delivers a transport notice.
func (s *Subscription) PublishErr(msg string) {
	select {
	case s.errs <- msg:
	case <-s.done:
	}
}

// PublishComplete delivers the verdict once; repeats are dropped.
func (s *Subscription) PublishComplete(success bool) {
	select {
	case s.complete <- success:
	default:
	}
}

// PublishCancelled delivers the cancellation signal once; repeats are
// dropped.
func (s *Subscription) PublishCancelled() {
	select {
	case s.cancelled <- struct{}{}:
	default:
	}
}
