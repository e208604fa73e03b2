package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

// Timeline layout: "  seq │ hh:mm:ss │ content". Continuation lines repeat
// the separators with blank columns so wrapped content stays aligned.
const contIndent = "      │          │ "

// compactResultLines caps tool-result output in the normal view; the
// fullscreen view shows everything.
const compactResultLines = 6

// renderItem formats one transcript message as styled terminal lines.
// Expanded rendering shows full tool inputs and results; compact rendering
// keeps each message short enough to scan.
func renderItem(msg transcript.Message, width int, expanded bool) string {
	var b strings.Builder
	ev := msg.Event

	prefix := fmt.Sprintf("%s │ %s │ ",
		seqStyle.Render(fmt.Sprintf("%d", msg.SequenceIndex)),
		renderTime(msg))

	switch ev.Kind {
	case transcript.KindSystem:
		renderSystem(&b, prefix, ev, width)
	case transcript.KindAssistant:
		renderAssistant(&b, prefix, ev, width, expanded)
	case transcript.KindUser:
		renderUser(&b, prefix, ev, width, expanded)
	case transcript.KindResult:
		renderResult(&b, prefix, ev)
	case transcript.KindSummary:
		fmt.Fprintf(&b, "%s%s %s\n", prefix,
			dimStyle.Render("SUMMARY"),
			dimStyle.Render(truncateContent(ev.SummaryText, 120)))
	default:
		fmt.Fprintf(&b, "%s%s\n", prefix,
			dimStyle.Render(strings.ToUpper(ev.Kind)))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderTime(msg transcript.Message) string {
	if msg.Event.Timestamp.IsZero() {
		return timeStyle.Render("        ")
	}
	return timeStyle.Render(msg.Event.Timestamp.Format("15:04:05"))
}

func renderSystem(b *strings.Builder, prefix string, ev transcript.Event, width int) {
	label := "SYSTEM"
	if ev.Subtype != "" {
		label = "SYSTEM " + strings.ToUpper(ev.Subtype)
	}
	fmt.Fprintf(b, "%s%s\n", prefix, systemStyle.Render(label))

	if ev.Subtype == "init" {
		if ev.Model != "" {
			writeDetail(b, "model:", ev.Model)
		}
		if ev.CWD != "" {
			writeDetail(b, "cwd:", ev.CWD)
		}
		if len(ev.Tools) > 0 {
			writeDetail(b, "tools:", fmt.Sprintf("%d available", len(ev.Tools)))
		}
	}
}

func renderAssistant(b *strings.Builder, prefix string, ev transcript.Event, width int, expanded bool) {
	fmt.Fprintf(b, "%s%s", prefix, assistantStyle.Render("ASSISTANT"))
	if ev.Model != "" {
		fmt.Fprintf(b, " %s", dimStyle.Render("["+ev.Model+"]"))
	}
	b.WriteString("\n")

	for _, block := range ev.Content {
		switch block.Type {
		case transcript.BlockText:
			writeWrapped(b, valueStyle, block.Text, width)
		case transcript.BlockToolUse:
			style := toolStyle
			if strings.HasPrefix(strings.ToLower(block.Name), "mcp__") {
				style = mcpStyle
			}
			fmt.Fprintf(b, "%s%s %s\n", contIndent,
				style.Render("TOOL:"), valueStyle.Render(block.Name))
			if expanded {
				writeWrapped(b, dimStyle, formatInput(block.Input), width)
			} else if hint := inputHint(block.Input); hint != "" {
				fmt.Fprintf(b, "%s  %s\n", contIndent, dimStyle.Render(hint))
			}
		}
	}
}

func renderUser(b *strings.Builder, prefix string, ev transcript.Event, width int, expanded bool) {
	fmt.Fprintf(b, "%s%s\n", prefix, userStyle.Render("USER"))

	for _, block := range ev.Content {
		switch block.Type {
		case transcript.BlockText:
			writeWrapped(b, valueStyle, block.Text, width)
		case transcript.BlockToolResult:
			label, style := "RESULT", dimStyle
			if block.IsError {
				label, style = "RESULT (error)", errorStyle
			}
			fmt.Fprintf(b, "%s%s\n", contIndent, style.Render(label))
			writeResultContent(b, block.Content, width, expanded)
		}
	}
}

func renderResult(b *strings.Builder, prefix string, ev transcript.Event) {
	if ev.IsError {
		fmt.Fprintf(b, "%s%s\n", prefix, errorStyle.Render("FAILED"))
	} else {
		fmt.Fprintf(b, "%s%s\n", prefix, successStyle.Render("COMPLETED"))
	}

	if ev.ResultText != "" {
		writeDetail(b, "result:", truncateContent(ev.ResultText, 120))
	}
	if ev.CostUSD > 0 {
		writeDetail(b, "cost:", fmt.Sprintf("$%.4f", ev.CostUSD))
	}
	if ev.DurationMs > 0 {
		writeDetail(b, "duration:", fmt.Sprintf("%.1fs", float64(ev.DurationMs)/1000))
	}
	if ev.NumTurns > 0 {
		writeDetail(b, "turns:", fmt.Sprintf("%d", ev.NumTurns))
	}
	if ev.Usage != nil {
		writeDetail(b, "tokens:", fmt.Sprintf("%d in / %d out",
			ev.Usage.InputTokens, ev.Usage.OutputTokens))
	}
}

// writeDetail emits one aligned "label: value" continuation line.
func writeDetail(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s%s %s\n", contIndent,
		labelStyle.Render(label), valueStyle.Render(value))
}

// writeWrapped emits text wrapped to the content column width, each line
// behind the continuation indent.
func writeWrapped(b *strings.Builder, style lipgloss.Style, text string, width int) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	wrapped := wordwrap.String(text, contentWidth(width))
	for _, line := range strings.Split(wrapped, "\n") {
		fmt.Fprintf(b, "%s%s\n", contIndent, style.Render(line))
	}
}

// writeResultContent emits tool-result output, capped in compact mode.
func writeResultContent(b *strings.Builder, content string, width int, expanded bool) {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return
	}
	lines := strings.Split(wordwrap.String(content, contentWidth(width)), "\n")
	maxLines := len(lines)
	if !expanded && maxLines > compactResultLines {
		maxLines = compactResultLines
	}
	for _, line := range lines[:maxLines] {
		fmt.Fprintf(b, "%s  %s\n", contIndent, dimStyle.Render(line))
	}
	if remaining := len(lines) - maxLines; remaining > 0 {
		fmt.Fprintf(b, "%s  %s\n", contIndent,
			dimStyle.Render(fmt.Sprintf("... (%d more lines)", remaining)))
	}
}

// contentWidth is the width left for content after the timeline columns.
func contentWidth(width int) int {
	w := width - len(contIndent) - 2
	if w < 20 {
		w = 20
	}
	return w
}

// inputHint renders a tool input as one short "k=v, k=v" line.
func inputHint(input json.RawMessage) string {
	if len(input) == 0 {
		return ""
	}
	var args map[string]interface{}
	if err := json.Unmarshal(input, &args); err != nil {
		return truncateContent(string(input), 80)
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	// Map order is random; sort for a stable hint.
	sort.Strings(parts)
	return truncateContent(strings.Join(parts, ", "), 80)
}

// formatInput pretty-prints a tool input for the fullscreen view.
func formatInput(input json.RawMessage) string {
	if len(input) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, input, "", "  "); err != nil {
		return string(input)
	}
	return buf.String()
}

// searchText returns the plain text a search query matches against for one
// message: visible content without styling or raw JSON noise.
func searchText(msg transcript.Message) string {
	ev := msg.Event
	var parts []string

	switch ev.Kind {
	case transcript.KindSystem:
		parts = append(parts, "system", ev.Subtype, ev.Model, ev.CWD)
	case transcript.KindResult:
		parts = append(parts, "result", ev.ResultText)
	case transcript.KindSummary:
		parts = append(parts, "summary", ev.SummaryText)
	default:
		parts = append(parts, ev.Kind)
	}
	for _, block := range ev.Content {
		switch block.Type {
		case transcript.BlockText:
			parts = append(parts, block.Text)
		case transcript.BlockToolUse:
			parts = append(parts, block.Name, string(block.Input))
		case transcript.BlockToolResult:
			parts = append(parts, block.Content)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// truncateContent flattens a string onto one line and truncates it for
// display.
func truncateContent(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
