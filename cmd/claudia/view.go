package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ai-auto-register/claudia/internal/cache"
	"github.com/ai-auto-register/claudia/internal/config"
	"github.com/ai-auto-register/claudia/internal/export"
	"github.com/ai-auto-register/claudia/internal/feed"
	"github.com/ai-auto-register/claudia/internal/runs"
	"github.com/ai-auto-register/claudia/internal/transcript"
	"github.com/ai-auto-register/claudia/internal/viewer"
	"github.com/ai-auto-register/claudia/internal/visibility"
)

// Run opens the pager over the requested run.
func (c *ViewCmd) Run(rc *runContext) error {
	source, runID, closeSource, err := resolveSource(rc, c.Target)
	if err != nil {
		return err
	}
	defer closeSource()

	return openViewer(rc, source, runID, c.Fullscreen)
}

// openViewer builds a session and runs the pager over it. Shared by the
// view and run commands.
func openViewer(rc *runContext, source feed.Source, runID transcript.RunID, fullscreen bool) error {
	store := cache.New(
		rc.cfg.Cache.Capacity,
		time.Duration(rc.cfg.Cache.FreshnessMs)*time.Millisecond,
	)

	sess := viewer.Open(runID, viewer.SessionConfig{
		Source:       source,
		Cache:        store,
		Logger:       rc.logger,
		PollInterval: time.Duration(rc.cfg.Viewer.PollMs) * time.Millisecond,
	})
	defer sess.Close()

	info := exportInfo(rc, runID)
	return viewer.Run(sess, viewer.PagerOptions{
		Title:           "claudia · " + info.Name,
		Info:            info,
		Filter:          buildFilter(rc),
		Logger:          rc.logger,
		Estimate:        rc.cfg.Viewer.Estimate,
		Overscan:        rc.cfg.Viewer.Overscan,
		FollowThreshold: rc.cfg.Viewer.FollowThreshold,
		Fullscreen:      fullscreen,
	})
}

// resolveSource picks the feed for a target: a .jsonl path gets a
// single-file source, anything else is a run id on the configured source.
// The returned func releases transport resources.
func resolveSource(rc *runContext, target string) (feed.Source, transcript.RunID, func(), error) {
	noop := func() {}

	if strings.HasSuffix(target, ".jsonl") {
		src := feed.NewFileSource(target, rc.logger)
		return src, src.RunID(), noop, nil
	}

	switch rc.cfg.Feed.Source {
	case "", "dir":
		root := config.ExpandHome(rc.cfg.Runs.Dir)
		return feed.NewDirSource(root, rc.logger), transcript.RunID(target), noop, nil
	case "nats":
		src, err := feed.DialNATS(rc.cfg.Feed.NATSURL, rc.logger)
		if err != nil {
			return nil, "", nil, err
		}
		return src, transcript.RunID(target), src.Close, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown feed source %q", rc.cfg.Feed.Source)
	}
}

// buildFilter assembles the visibility filter from config and the catalog
// directory.
func buildFilter(rc *runContext) *visibility.Filter {
	f := visibility.New(rc.cfg.Visibility.SelfRendering...)
	if dir := rc.cfg.Visibility.CatalogDir; dir != "" {
		exts, errs := visibility.LoadCatalog(config.ExpandHome(dir))
		for _, err := range errs {
			rc.logger.Warn("catalog entry skipped", map[string]interface{}{
				"error": err.Error(),
			})
		}
		f.Extend(visibility.Names(exts)...)
	}
	return f
}

// exportInfo resolves header fields from the run manifest when one exists;
// a bare transcript path falls back to its file name.
func exportInfo(rc *runContext, runID transcript.RunID) export.Info {
	name := string(runID)
	if strings.HasSuffix(name, ".jsonl") {
		name = strings.TrimSuffix(filepath.Base(name), ".jsonl")
	}
	info := export.Info{Name: name, Date: time.Now()}

	root := config.ExpandHome(rc.cfg.Runs.Dir)
	if m, err := runs.Load(filepath.Join(root, string(runID))); err == nil {
		info.Name = m.Name
		info.Task = m.Task
		info.Model = m.Model
		if !m.Created.IsZero() {
			info.Date = m.Created
		}
	}
	return info
}
