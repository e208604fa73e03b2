package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawEntry mirrors one transcript line. Agent runs emit two spellings of the
// session field depending on whether the line came from a stream or a file
// log, so both are captured and coalesced.
type rawEntry struct {
	Type       string          `json:"type"`
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid"`
	SessionID  string          `json:"sessionId"`
	SessionID2 string          `json:"session_id"`
	CWD        string          `json:"cwd"`
	Version    string          `json:"version"`
	Timestamp  string          `json:"timestamp"`
	IsMeta     bool            `json:"isMeta"`
	Message    json.RawMessage `json:"message"`

	// System events.
	Subtype string   `json:"subtype"`
	Tools   []string `json:"tools"`
	Model   string   `json:"model"`

	// Result events.
	Result       string    `json:"result"`
	IsError      bool      `json:"is_error"`
	DurationMs   int64     `json:"duration_ms"`
	NumTurns     int       `json:"num_turns"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	CostUSD      float64   `json:"cost_usd"`
	Usage        *rawUsage `json:"usage"`

	// Summary events.
	Summary  string `json:"summary"`
	LeafUUID string `json:"leafUuid"`
}

type messagePayload struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage"`
}

type rawUsage struct {
	InputTokens              int `json:"input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	OutputTokens             int `json:"output_tokens"`
}

type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// ParseLine decodes one transcript line into an Event. Lines that are not
// valid JSON objects fail; lines with an unrecognized type parse into an
// opaque event so nothing is silently dropped.
func ParseLine(raw string) (Event, error) {
	var entry rawEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Event{}, fmt.Errorf("invalid transcript line: %w", err)
	}

	ev := Event{
		Kind:       entry.Type,
		UUID:       entry.UUID,
		ParentUUID: entry.ParentUUID,
		SessionID:  entry.SessionID,
		CWD:        entry.CWD,
		Version:    entry.Version,
		IsMeta:     entry.IsMeta,
		Timestamp:  parseTimestamp(entry.Timestamp),
	}
	if ev.SessionID == "" {
		ev.SessionID = entry.SessionID2
	}

	switch entry.Type {
	case KindSystem:
		ev.Subtype = entry.Subtype
		ev.Tools = entry.Tools
		ev.Model = entry.Model
	case KindAssistant, KindUser:
		if len(entry.Message) > 0 {
			var payload messagePayload
			if err := json.Unmarshal(entry.Message, &payload); err != nil {
				return Event{}, fmt.Errorf("invalid message payload: %w", err)
			}
			ev.Role = payload.Role
			ev.Model = payload.Model
			ev.Content = decodeContent(payload.Content)
			if payload.Usage != nil {
				ev.Usage = &TokenUsage{
					InputTokens:              payload.Usage.InputTokens,
					CacheCreationInputTokens: payload.Usage.CacheCreationInputTokens,
					CacheReadInputTokens:     payload.Usage.CacheReadInputTokens,
					OutputTokens:             payload.Usage.OutputTokens,
				}
			}
		}
	case KindResult:
		ev.Subtype = entry.Subtype
		ev.ResultText = entry.Result
		ev.IsError = entry.IsError
		ev.DurationMs = entry.DurationMs
		ev.NumTurns = entry.NumTurns
		ev.CostUSD = entry.TotalCostUSD
		if ev.CostUSD == 0 {
			ev.CostUSD = entry.CostUSD
		}
		if entry.Usage != nil {
			ev.Usage = &TokenUsage{
				InputTokens:              entry.Usage.InputTokens,
				CacheCreationInputTokens: entry.Usage.CacheCreationInputTokens,
				CacheReadInputTokens:     entry.Usage.CacheReadInputTokens,
				OutputTokens:             entry.Usage.OutputTokens,
			}
		}
	case KindSummary:
		ev.SummaryText = entry.Summary
		ev.LeafUUID = entry.LeafUUID
	}
	// Every other kind stays opaque: the raw line is preserved on the
	// Message, so nothing is lost.

	return ev, nil
}

// decodeContent handles both payload shapes: a bare string (short user
// turns) and a list of typed blocks.
func decodeContent(raw json.RawMessage) []ContentBlock {
	if len(raw) == 0 {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []ContentBlock{{Type: BlockText, Text: text}}
	}

	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}

	out := make([]ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		cb := ContentBlock{
			Type:      b.Type,
			Text:      b.Text,
			ID:        b.ID,
			Name:      b.Name,
			Input:     b.Input,
			ToolUseID: b.ToolUseID,
			IsError:   b.IsError,
		}
		if b.Type == BlockToolResult {
			cb.Content = flattenResultContent(b.Content)
		}
		out = append(out, cb)
	}
	return out
}

// flattenResultContent reduces a tool result's content to plain text. Results
// arrive either as a string or as a list of text blocks.
func flattenResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return strings.TrimSpace(string(raw))
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
