// Package export renders transcripts for sharing: a verbatim raw form and a
// deterministic markdown form.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ai-auto-register/claudia/internal/transcript"
)

// Info describes the run for the markdown header.
type Info struct {
	Name  string
	Task  string
	Model string
	Date  time.Time
}

// Raw reconstructs the transcript exactly as received: every source line in
// order, joined by newlines, nothing added or normalized.
func Raw(msgs []transcript.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.RawLine)
	}
	return b.String()
}

// Markdown renders the share template. The same log and info always produce
// byte-identical output.
func Markdown(msgs []transcript.Message, info Info) string {
	var b strings.Builder
	writeMarkdown(&b, msgs, info)
	return b.String()
}

// WriteMarkdown streams the markdown rendering to w.
func WriteMarkdown(w io.Writer, msgs []transcript.Message, info Info) error {
	var b strings.Builder
	writeMarkdown(&b, msgs, info)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(b *strings.Builder, msgs []transcript.Message, info Info) {
	name := info.Name
	if name == "" {
		name = "Agent Run"
	}
	fmt.Fprintf(b, "# %s\n\n", name)
	if info.Task != "" {
		fmt.Fprintf(b, "- **Task:** %s\n", info.Task)
	}
	if info.Model != "" {
		fmt.Fprintf(b, "- **Model:** %s\n", info.Model)
	}
	if !info.Date.IsZero() {
		fmt.Fprintf(b, "- **Date:** %s\n", info.Date.UTC().Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n---\n")

	for _, m := range msgs {
		switch m.Event.Kind {
		case transcript.KindSystem:
			if m.Event.Subtype == "init" {
				writeSystemSection(b, m.Event)
			}
		case transcript.KindAssistant:
			writeAssistantSection(b, m.Event)
		case transcript.KindUser:
			writeUserSection(b, m.Event)
		case transcript.KindResult:
			writeResultSection(b, m.Event)
		}
	}
}

func writeSystemSection(b *strings.Builder, ev transcript.Event) {
	b.WriteString("\n## System\n\n")
	if ev.SessionID != "" {
		fmt.Fprintf(b, "- **Session:** %s\n", ev.SessionID)
	}
	if ev.Model != "" {
		fmt.Fprintf(b, "- **Model:** %s\n", ev.Model)
	}
	if ev.CWD != "" {
		fmt.Fprintf(b, "- **Working directory:** %s\n", ev.CWD)
	}
	if len(ev.Tools) > 0 {
		fmt.Fprintf(b, "- **Tools:** %s\n", strings.Join(ev.Tools, ", "))
	}
}

func writeAssistantSection(b *strings.Builder, ev transcript.Event) {
	b.WriteString("\n## Assistant\n")
	for _, block := range ev.Content {
		switch block.Type {
		case transcript.BlockText:
			if block.Text != "" {
				fmt.Fprintf(b, "\n%s\n", block.Text)
			}
		case transcript.BlockToolUse:
			fmt.Fprintf(b, "\n### Tool: %s\n\n", block.Name)
			writeFenced(b, "json", formatJSON(block.Input))
		}
	}
}

func writeUserSection(b *strings.Builder, ev transcript.Event) {
	b.WriteString("\n## User\n")
	for _, block := range ev.Content {
		switch block.Type {
		case transcript.BlockText:
			if block.Text != "" {
				fmt.Fprintf(b, "\n%s\n", block.Text)
			}
		case transcript.BlockToolResult:
			if block.IsError {
				b.WriteString("\n### Tool result (error)\n\n")
			} else {
				b.WriteString("\n### Tool result\n\n")
			}
			writeFenced(b, "", block.Content)
		}
	}
}

func writeResultSection(b *strings.Builder, ev transcript.Event) {
	b.WriteString("\n## Result\n")
	if ev.ResultText != "" {
		fmt.Fprintf(b, "\n%s\n", ev.ResultText)
	}
	b.WriteString("\n")
	if ev.IsError {
		b.WriteString("- **Error:** yes\n")
	}
	if ev.CostUSD > 0 {
		fmt.Fprintf(b, "- **Cost:** $%.4f\n", ev.CostUSD)
	}
	if ev.DurationMs > 0 {
		fmt.Fprintf(b, "- **Duration:** %.1fs\n", float64(ev.DurationMs)/1000)
	}
	if ev.NumTurns > 0 {
		fmt.Fprintf(b, "- **Turns:** %d\n", ev.NumTurns)
	}
	if ev.Usage != nil {
		fmt.Fprintf(b, "- **Tokens:** %d in / %d out\n", ev.Usage.InputTokens, ev.Usage.OutputTokens)
	}
}

// writeFenced emits a fenced code block, widening the fence when the content
// itself contains backtick runs.
func writeFenced(b *strings.Builder, lang, content string) {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	b.WriteString(fence)
	b.WriteString(lang)
	b.WriteByte('\n')
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
}

func formatJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
