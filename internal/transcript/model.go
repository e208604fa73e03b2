// Package transcript defines the event model and append-only log for agent
// run transcripts. Transcripts arrive as JSON lines; each line parses into an
// Event and is kept alongside its source bytes so exports stay lossless.
package transcript

import (
	"encoding/json"
	"time"
)

// RunID identifies one agent run across feeds, cache entries, and logs.
type RunID string

// Run lifecycle states.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Event kinds produced by agent runs. Lines with a type outside this set are
// kept as opaque events under their own kind string.
const (
	KindSystem    = "system"
	KindAssistant = "assistant"
	KindUser      = "user"
	KindResult    = "result"
	KindSummary   = "summary"
)

// Content block types within a message payload.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Event is one parsed transcript entry. Kind selects which fields carry
// meaning; fields outside a kind's shape stay zero.
type Event struct {
	Kind      string
	Timestamp time.Time

	// Envelope metadata shared across kinds.
	UUID       string
	ParentUUID string
	SessionID  string
	CWD        string
	Version    string
	IsMeta     bool

	// Message payload for assistant and user events.
	Role    string
	Model   string
	Content []ContentBlock
	Usage   *TokenUsage

	// System events.
	Subtype string
	Tools   []string

	// Result events.
	ResultText string
	IsError    bool
	CostUSD    float64
	DurationMs int64
	NumTurns   int

	// Summary events.
	SummaryText string
	LeafUUID    string
}

// ContentBlock is one element of a message's content list. Type selects the
// populated fields: Text for text blocks, ID/Name/Input for tool_use blocks,
// ToolUseID/Content/IsError for tool_result blocks.
type ContentBlock struct {
	Type      string
	Text      string
	ID        string
	Name      string
	Input     json.RawMessage
	ToolUseID string
	Content   string
	IsError   bool
}

// TokenUsage reports token consumption attached to a message or result.
type TokenUsage struct {
	InputTokens              int
	CacheCreationInputTokens int
	CacheReadInputTokens     int
	OutputTokens             int
}

// Total returns input plus output tokens, ignoring cache accounting.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Message pairs a parsed event with its immutable source line and the
// position it was assigned in the log.
type Message struct {
	SequenceIndex uint64
	RawLine       string
	Event         Event
}

// HasText reports whether the event carries at least one text block.
func (e Event) HasText() bool {
	for _, b := range e.Content {
		if b.Type == BlockText {
			return true
		}
	}
	return false
}

// ToolUses returns the tool_use blocks of the event in order.
func (e Event) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range e.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// ToolResults returns the tool_result blocks of the event in order.
func (e Event) ToolResults() []ContentBlock {
	var results []ContentBlock
	for _, b := range e.Content {
		if b.Type == BlockToolResult {
			results = append(results, b)
		}
	}
	return results
}
