// Package main is the entry point for the claudia transcript viewer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/ai-auto-register/claudia/internal/config"
	"github.com/ai-auto-register/claudia/internal/logging"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for any additional env vars
	_ = godotenv.Load()
}

// runContext carries what every command needs after flag parsing.
type runContext struct {
	cfg    *config.Config
	logger *logging.Logger
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("claudia"),
		kong.Description("Terminal viewer for live and recorded agent run transcripts."),
		kong.UsageOnError(),
		kongVars(),
	)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "claudia: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))

	ctx.FatalIfErrorf(ctx.Run(&runContext{cfg: cfg, logger: logger}))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadDefault()
}
