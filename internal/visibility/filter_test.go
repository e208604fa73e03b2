package visibility

import (
	"testing"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

func buildLog(t *testing.T, lines ...string) []transcript.Message {
	t.Helper()
	log := transcript.NewLog("run-test")
	for i, line := range lines {
		if _, err := log.Append(line); err != nil {
			t.Fatalf("append line %d failed: %v", i, err)
		}
	}
	return log.Messages()
}

func TestFilter_SelfRenderingToolResultHidden(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 {
		t.Fatalf("expected exactly 1 visible message, got %d: %v", len(visible), visible)
	}
	if visible[0] != 0 {
		t.Errorf("expected the assistant message to be the visible one, got position %d", visible[0])
	}
}

func TestFilter_ToolNameCaseInsensitive(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Read","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"file body"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 {
		t.Errorf("Read result should be hidden, visible=%v", visible)
	}
}

func TestFilter_UnknownToolResultVisible(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"UnknownTool","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"out"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 2 {
		t.Errorf("unknown tool result should be visible, visible=%v", visible)
	}
}

func TestFilter_MCPToolResultHidden(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"mcp__github__create_issue","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"issue 12"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 {
		t.Errorf("mcp__ tool result should be hidden, visible=%v", visible)
	}
}

func TestFilter_OrphanResultFailsOpen(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"ghost","content":"stray"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 {
		t.Errorf("orphan tool result must stay visible, visible=%v", visible)
	}
}

func TestFilter_MetaDroppedUnlessLinked(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"user","isMeta":true,"message":{"content":"injected"}}`,
		`{"type":"summary","isMeta":true,"summary":"kept","leafUuid":"leaf-1"}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 || visible[0] != 1 {
		t.Errorf("expected only the linked summary to survive, visible=%v", visible)
	}
}

func TestFilter_UserWithoutContentHidden(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"user","message":{"role":"user"}}`,
		`{"type":"user","message":{"content":[]}}`,
		`{"type":"user","message":{"content":"hello"}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 1 || visible[0] != 2 {
		t.Errorf("only the user message with text should survive, visible=%v", visible)
	}
}

func TestFilter_TextBlockKeepsMixedMessage(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"},{"type":"text","text":"also a comment"}]}}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 2 {
		t.Errorf("a text block should keep the message visible, visible=%v", visible)
	}
}

func TestFilter_OtherKindsAlwaysVisible(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"system","subtype":"init","session_id":"s"}`,
		`{"type":"result","result":"done"}`,
		`{"type":"summary","summary":"s"}`,
		`{"type":"telemetry","custom":true}`,
	)

	visible := New().Visible(msgs)
	if len(visible) != 4 {
		t.Errorf("non-user kinds must stay visible, visible=%v", visible)
	}
}

func TestFilter_Pure(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
		`{"type":"user","message":{"content":"hello"}}`,
	)

	f := New()
	first := f.Visible(msgs)
	second := f.Visible(msgs)

	if len(first) != len(second) {
		t.Fatalf("repeat call changed result: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeat call changed result: %v vs %v", first, second)
		}
	}
}

func TestFilter_IncrementalAppend(t *testing.T) {
	f := New()

	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
	)
	if got := f.Visible(msgs); len(got) != 1 {
		t.Fatalf("expected 1 visible before append, got %v", got)
	}

	msgs = buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
		`{"type":"user","message":{"content":"hello"}}`,
	)
	visible := f.Visible(msgs)
	if len(visible) != 2 || visible[0] != 0 || visible[1] != 2 {
		t.Errorf("incremental index gave wrong projection: %v", visible)
	}
}

func TestFilter_ResetAfterSameLengthRebuild(t *testing.T) {
	f := New()

	first := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"customtool","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"out"}]}}`,
	)
	if got := f.Visible(first); len(got) != 2 {
		t.Fatalf("customtool result should be visible, got %v", got)
	}

	// The rewritten transcript has the same length but binds t1 to a tool
	// whose results are drawn elsewhere. Without a reset the stale index
	// would keep the result visible.
	rebuilt := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"out"}]}}`,
	)
	f.Reset()
	visible := f.Visible(rebuilt)
	if len(visible) != 1 || visible[0] != 0 {
		t.Errorf("rebuilt log must project from a fresh index, got %v", visible)
	}
}

func TestFilter_IndexResetsWhenLogRebuilt(t *testing.T) {
	f := New()

	long := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"bash","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
	)
	f.Visible(long)

	short := buildLog(t,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
	)
	visible := f.Visible(short)
	if len(visible) != 1 {
		t.Errorf("after rebuild the result is an orphan and must fail open, visible=%v", visible)
	}
}

func TestFilter_CatalogExtension(t *testing.T) {
	msgs := buildLog(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"sitetool","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"out"}]}}`,
	)

	if got := New().Visible(msgs); len(got) != 2 {
		t.Fatalf("sitetool is not built in, result should be visible: %v", got)
	}
	if got := New("sitetool").Visible(msgs); len(got) != 1 {
		t.Errorf("extended filter should hide sitetool results: %v", got)
	}
}
