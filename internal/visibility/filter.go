// Package visibility decides which transcript messages the viewer renders.
// The rules mirror what dedicated UI elements already show elsewhere: tool
// results that have their own rendering are suppressed from the message
// stream, injected meta chatter is dropped, and anything unrecognized stays
// visible so new event shapes degrade loudly instead of vanishing.
package visibility

import (
	"strings"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

// selfRenderingTools are tools whose results are drawn by dedicated
// elements, so their raw output never appears in the message stream.
// Matching is case-insensitive.
var selfRenderingTools = []string{
	"task",
	"edit",
	"multiedit",
	"todowrite",
	"ls",
	"read",
	"glob",
	"bash",
	"write",
	"grep",
}

// mcpPrefix marks MCP-provided tools, which are all self-rendering.
const mcpPrefix = "mcp__"

type toolUseRef struct {
	pos  int
	name string
}

// Filter projects a transcript onto the messages worth rendering. It keeps
// an incremental index from tool use id to defining message, so result
// lookups stay cheap as the log grows. A Filter serves one log and one
// goroutine; it is not safe for concurrent use.
type Filter struct {
	self    map[string]bool
	uses    map[string]toolUseRef
	scanned int
}

// New returns a filter with the built-in self-rendering set plus any extra
// tool names, typically loaded from a catalog directory.
func New(extra ...string) *Filter {
	f := &Filter{
		self: make(map[string]bool, len(selfRenderingTools)+len(extra)),
		uses: make(map[string]toolUseRef),
	}
	for _, name := range selfRenderingTools {
		f.self[name] = true
	}
	f.Extend(extra...)
	return f
}

// Extend adds tool names to the self-rendering set. Extending never removes
// built-in names.
func (f *Filter) Extend(names ...string) {
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			f.self[name] = true
		}
	}
}

// SelfRendering reports whether a tool's results are drawn by a dedicated
// element rather than the message stream.
func (f *Filter) SelfRendering(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, mcpPrefix) {
		return true
	}
	return f.self[lower]
}

// Visible returns the positions of the messages to render, in log order.
// Calling it twice on the same messages yields the same result; the filter
// reads the log and nothing else.
func (f *Filter) Visible(msgs []transcript.Message) []int {
	f.index(msgs)

	visible := make([]int, 0, len(msgs))
	for i := range msgs {
		if f.visibleAt(msgs, i) {
			visible = append(visible, i)
		}
	}
	return visible
}

// Reset discards the tool-use index. Callers that replace their log
// wholesale rather than appending to it must reset before the next Visible
// call: a rebuilt log of equal or greater length can bind an id to a
// different tool, and the shrink check in index cannot see that.
func (f *Filter) Reset() {
	f.uses = make(map[string]toolUseRef)
	f.scanned = 0
}

// index advances the tool-use index over any messages appended since the
// last call. If the slice shrank the log was rebuilt, so the index restarts.
func (f *Filter) index(msgs []transcript.Message) {
	if len(msgs) < f.scanned {
		f.uses = make(map[string]toolUseRef)
		f.scanned = 0
	}
	for i := f.scanned; i < len(msgs); i++ {
		for _, b := range msgs[i].Event.Content {
			if b.Type != transcript.BlockToolUse || b.ID == "" {
				continue
			}
			if _, exists := f.uses[b.ID]; !exists {
				f.uses[b.ID] = toolUseRef{pos: i, name: b.Name}
			}
		}
	}
	f.scanned = len(msgs)
}

func (f *Filter) visibleAt(msgs []transcript.Message, i int) bool {
	ev := msgs[i].Event

	if ev.IsMeta && ev.LeafUUID == "" && ev.SummaryText == "" {
		return false
	}

	if ev.Kind != transcript.KindUser {
		return true
	}

	// User messages carry tool results and prompts; most of them echo
	// output already shown elsewhere.
	if ev.IsMeta {
		return false
	}
	if len(ev.Content) == 0 {
		return false
	}
	for _, b := range ev.Content {
		switch b.Type {
		case transcript.BlockText:
			return true
		case transcript.BlockToolResult:
			if f.resultVisible(b, i) {
				return true
			}
		}
	}
	return false
}

// resultVisible decides whether one tool result earns the whole message a
// slot. A result whose defining tool use cannot be found fails open: better
// to show a stray result than to hide real output.
func (f *Filter) resultVisible(b transcript.ContentBlock, pos int) bool {
	ref, ok := f.uses[b.ToolUseID]
	if !ok || ref.pos >= pos {
		return true
	}
	return !f.SelfRendering(ref.name)
}
