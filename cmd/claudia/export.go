package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ai-auto-register/claudia/internal/export"
	"github.com/ai-auto-register/claudia/internal/telemetry"
	"github.com/ai-auto-register/claudia/internal/transcript"
)

// Run renders a transcript to stdout or a file.
func (c *ExportCmd) Run(rc *runContext) error {
	source, runID, closeSource, err := resolveSource(rc, c.Target)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, span := telemetry.StartExport(context.Background(), string(runID), c.Format)
	defer func() { telemetry.End(span, err) }()

	text, err := source.FetchTranscript(ctx, runID)
	if err != nil {
		return fmt.Errorf("fetch transcript: %w", err)
	}

	log := transcript.NewLog(runID)
	parseErrs := 0
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := log.Append(raw); err != nil {
			parseErrs++
		}
	}
	if parseErrs > 0 {
		rc.logger.Warn("malformed lines skipped", map[string]interface{}{
			"count": parseErrs,
		})
	}

	var out string
	switch c.Format {
	case "raw":
		out = export.Raw(log.Messages())
	default:
		out = export.Markdown(log.Messages(), exportInfo(rc, runID))
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	dest := "stdout"
	if c.Output != "" {
		if err = os.WriteFile(c.Output, []byte(out), 0o644); err != nil {
			return err
		}
		dest = c.Output
	} else {
		if _, err = os.Stdout.WriteString(out); err != nil {
			return err
		}
	}

	rc.logger.ExportWritten(c.Format, dest, len(out))
	return nil
}
