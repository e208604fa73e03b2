package main

import (
	"context"
	"fmt"

	"github.com/ai-auto-register/claudia/internal/feed"
	"github.com/ai-auto-register/claudia/internal/telemetry"
)

// Run starts a run on the configured source and follows it live.
func (c *RunCmd) Run(rc *runContext) error {
	source, _, closeSource, err := resolveSource(rc, "")
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, span := telemetry.StartRun(context.Background(), c.Name)
	runID, err := source.StartRun(ctx, feed.RunSpec{
		Name:  c.Name,
		Task:  c.Task,
		Model: c.Model,
		Args:  c.Arg,
	})
	telemetry.End(span, err)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	rc.logger.RunStarted(string(runID), c.Name)
	fmt.Println(runID)

	if c.Detach {
		return nil
	}
	return openViewer(rc, source, runID, false)
}
