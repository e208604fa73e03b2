package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/ai-auto-register/claudia/internal/config"
	"github.com/ai-auto-register/claudia/internal/runs"
)

// Run lists recorded runs in the requested format.
func (c *ListCmd) Run(rc *runContext) error {
	root := config.ExpandHome(rc.cfg.Runs.Dir)
	summaries, warns := runs.Summarize(root)
	for _, w := range warns {
		rc.logger.Warn("run skipped", map[string]interface{}{"error": w.Error()})
	}
	if c.Limit > 0 && len(summaries) > c.Limit {
		summaries = summaries[:c.Limit]
	}

	format := strings.ToLower(c.Format)
	if format == "" {
		format = "plain"
		if isTerminal(os.Stdout) {
			format = "table"
		}
	}

	switch format {
	case "table":
		return writeTable(os.Stdout, summaries)
	case "plain":
		return writePlain(os.Stdout, summaries)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listRows(summaries))
	case "jsonl":
		enc := json.NewEncoder(os.Stdout)
		for _, row := range listRows(summaries) {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// listRow is the JSON shape of one run listing entry.
type listRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Messages int    `json:"messages"`
	Model    string `json:"model,omitempty"`
	Updated  string `json:"updated,omitempty"`
}

func listRows(summaries []runs.Summary) []listRow {
	rows := make([]listRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, listRow{
			ID:       s.ID,
			Name:     s.Name,
			Status:   s.Status,
			Messages: s.Messages,
			Model:    s.Model,
			Updated:  formatUpdated(s.Updated),
		})
	}
	return rows
}

func writeTable(w io.Writer, summaries []runs.Summary) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 40},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})

	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Messages", "Model", "Updated"})
	for _, s := range summaries {
		tw.AppendRow(table.Row{s.ID, s.Name, s.Status, s.Messages, s.Model, formatUpdated(s.Updated)})
	}
	if len(summaries) == 0 {
		tw.AppendRow(table.Row{"-", "(no runs)", "-", 0, "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func writePlain(w io.Writer, summaries []runs.Summary) error {
	for _, s := range summaries {
		line := fmt.Sprintf("%s\t%s\t%s\t%d\t%s\t%s",
			s.ID, s.Name, s.Status, s.Messages, s.Model, formatUpdated(s.Updated))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatUpdated(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
