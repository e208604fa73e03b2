package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// NATS subjects of the run control surface. Transcript lines and diagnostics
// stream on the per-run subjects; start and fetch are request/reply.
const (
	subjectStartRun      = "run.start"
	subjectOutFmt        = "run.%s.out"
	subjectErrFmt        = "run.%s.err"
	subjectDoneFmt       = "run.%s.done"
	subjectStopFmt       = "run.%s.stop"
	subjectTranscriptFmt = "run.%s.transcript"
)

// doneCancelled is the done-subject payload marking a user-initiated stop;
// anything else reads as a verdict, with "false" meaning failure.
const doneCancelled = "cancelled"

// NATSSource serves runs over a NATS connection shared with the agent
// harness.
type NATSSource struct {
	conn   *nats.Conn
	logger *logging.Logger
}

// DialNATS connects to a NATS server and wraps it as a source.
func DialNATS(url string, logger *logging.Logger) (*NATSSource, error) {
	conn, err := nats.Connect(url, nats.Name("claudia"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSSource(conn, logger), nil
}

// NewNATSSource wraps an existing connection. The caller keeps ownership of
// the connection unless Close is used.
func NewNATSSource(conn *nats.Conn, logger *logging.Logger) *NATSSource {
	if logger == nil {
		logger = logging.New()
	}
	return &NATSSource{
		conn:   conn,
		logger: logger.WithComponent("feed.nats"),
	}
}

// Close tears down the underlying connection.
func (s *NATSSource) Close() {
	s.conn.Close()
}

// StartRun publishes the run spec and waits for the harness to reply with
// the minted id.
func (s *NATSSource) StartRun(ctx context.Context, spec RunSpec) (transcript.RunID, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to encode run spec: %w", err)
	}

	msg, err := s.conn.RequestWithContext(ctx, subjectStartRun, payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return "", fmt.Errorf("no run harness listening on %s: %w", subjectStartRun, err)
		}
		return "", fmt.Errorf("start request failed: %w", err)
	}

	id := strings.TrimSpace(string(msg.Data))
	if id == "" {
		return "", fmt.Errorf("harness returned an empty run id")
	}
	s.logger.RunStarted(id, spec.Name)
	return transcript.RunID(id), nil
}

// FetchTranscript asks the harness for the full transcript so far. The
// request runs as long as the context allows.
func (s *NATSSource) FetchTranscript(ctx context.Context, id transcript.RunID) (string, error) {
	subject := fmt.Sprintf(subjectTranscriptFmt, id)
	msg, err := s.conn.RequestWithContext(ctx, subject, nil)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchRun, id)
		}
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	return string(msg.Data), nil
}

// SubscribeLive attaches to the run's out, err, and done subjects. The
// subscriptions are flushed to the server before returning, so everything
// published after this call is observed.
func (s *NATSSource) SubscribeLive(id transcript.RunID) (*Subscription, error) {
	var natsSubs []*nats.Subscription
	unsubscribe := func() {
		for _, ns := range natsSubs {
			_ = ns.Unsubscribe()
		}
	}
	sub := NewSubscription(unsubscribe)

	outSub, err := s.conn.Subscribe(fmt.Sprintf(subjectOutFmt, id), func(m *nats.Msg) {
		sub.PublishLine(string(m.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to output: %w", err)
	}
	natsSubs = append(natsSubs, outSub)

	errSub, err := s.conn.Subscribe(fmt.Sprintf(subjectErrFmt, id), func(m *nats.Msg) {
		sub.PublishErr(string(m.Data))
	})
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to diagnostics: %w", err)
	}
	natsSubs = append(natsSubs, errSub)

	doneSub, err := s.conn.Subscribe(fmt.Sprintf(subjectDoneFmt, id), func(m *nats.Msg) {
		switch strings.TrimSpace(string(m.Data)) {
		case doneCancelled:
			sub.PublishCancelled()
		case "false":
			sub.PublishComplete(false)
		default:
			sub.PublishComplete(true)
		}
	})
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to completion: %w", err)
	}
	natsSubs = append(natsSubs, doneSub)

	// The attach must be live on the server before the snapshot fetch runs,
	// or lines could slip between the two.
	if err := s.conn.Flush(); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("failed to flush subscriptions: %w", err)
	}
	return sub, nil
}

// StopRun asks the harness to cancel a run. The cancelled signal comes back
// on the done subject once the harness acts.
func (s *NATSSource) StopRun(ctx context.Context, id transcript.RunID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf(subjectStopFmt, id)
	if err := s.conn.Publish(subject, nil); err != nil {
		return fmt.Errorf("stop request failed: %w", err)
	}
	return s.conn.Flush()
}
