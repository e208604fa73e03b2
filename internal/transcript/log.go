package transcript

import (
	"strings"
	"sync"
)

// Log is the append-only transcript of one run. Sequence indices are assigned
// under the lock, so they are dense and strictly increasing for the lifetime
// of the log. Entries are never mutated or removed once appended.
type Log struct {
	mu       sync.RWMutex
	runID    RunID
	messages []Message
	nextSeq  uint64
}

// NewLog returns an empty log for the given run.
func NewLog(runID RunID) *Log {
	return &Log{runID: runID}
}

// RunID returns the run this log belongs to.
func (l *Log) RunID() RunID {
	return l.runID
}

// Append parses raw as one event line and appends it. On a parse failure
// nothing is appended and no sequence index is consumed, so indices stay
// gap-free across bad lines.
func (l *Log) Append(raw string) (Message, error) {
	ev, err := ParseLine(raw)
	if err != nil {
		return Message{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	msg := Message{
		SequenceIndex: l.nextSeq,
		RawLine:       raw,
		Event:         ev,
	}
	l.nextSeq++
	l.messages = append(l.messages, msg)
	return msg, nil
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// At returns the message at position i. Positions and sequence indices
// coincide because indices are dense.
func (l *Log) At(i int) Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.messages[i]
}

// Messages returns a snapshot copy of the log. The copy is safe to read while
// appends continue.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Raw reconstructs the transcript exactly as received: every source line in
// order, joined by newlines.
func (l *Log) Raw() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var b strings.Builder
	for i, m := range l.messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.RawLine)
	}
	return b.String()
}

// LastRaw returns the source lines of up to n trailing messages, oldest
// first.
func (l *Log) LastRaw(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]string, 0, n)
	for _, m := range l.messages[len(l.messages)-n:] {
		out = append(out, m.RawLine)
	}
	return out
}
