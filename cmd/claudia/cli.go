// Package main defines the CLI structure using kong.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Config      string           `help:"Config file path" type:"path"`
	VersionFlag kong.VersionFlag `name:"version" help:"Show version and exit"`

	View    ViewCmd    `cmd:"" help:"Open the transcript viewer for a run"`
	Run     RunCmd     `cmd:"" help:"Start a run and follow it live"`
	Export  ExportCmd  `cmd:"" help:"Export a transcript to markdown or raw JSONL"`
	List    ListCmd    `cmd:"" help:"List recorded runs"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// ViewCmd opens the interactive pager for a run.
type ViewCmd struct {
	Target     string `arg:"" help:"Run id, or path to a .jsonl transcript"`
	Fullscreen bool   `help:"Start in the expanded view"`
}

// RunCmd starts a new run on the configured source.
type RunCmd struct {
	Name   string            `required:"" help:"Run name"`
	Task   string            `help:"Task description passed to the harness"`
	Model  string            `help:"Model override"`
	Arg    map[string]string `help:"Extra key=value arguments (repeatable)"`
	Detach bool              `help:"Print the run id and exit instead of viewing"`
}

// ExportCmd renders a transcript to markdown or raw JSONL.
type ExportCmd struct {
	Target string `arg:"" help:"Run id, or path to a .jsonl transcript"`
	Format string `default:"markdown" enum:"markdown,raw" help:"Export format"`
	Output string `short:"o" help:"Write to a file instead of stdout"`
}

// ListCmd lists recorded runs with their status and stats.
type ListCmd struct {
	Format string `help:"Output format: table, plain, json, jsonl (default: table on a TTY)"`
	Limit  int    `help:"Show at most this many runs"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run prints version information.
func (c *VersionCmd) Run(rc *runContext) error {
	fmt.Printf("claudia version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
