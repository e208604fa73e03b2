// Package logging provides structured logging for the transcript viewer.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents logging severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes timestamped, component-tagged lines. The zero output is
// stderr so log lines never bleed into the terminal UI on stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	runID     string
}

// New creates a logger writing to stderr at INFO level.
func New() *Logger {
	return &Logger{
		output:    os.Stderr,
		minLevel:  LevelInfo,
		component: "claudia",
	}
}

// WithComponent returns a child logger tagged with the given component.
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		runID:     l.runID,
	}
}

// WithRun returns a child logger whose lines carry the run id.
func (l *Logger) WithRun(runID string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		runID:     runID,
	}
}

// SetLevel changes the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	merged := make(map[string]interface{})
	if l.runID != "" {
		merged["run"] = l.runID
	}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	fieldStr := formatFields(merged)

	fmt.Fprintf(l.output, "%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// SnapshotMerged reports a completed snapshot-plus-buffer merge.
func (l *Logger) SnapshotMerged(snapshotLines, buffered, appended int) {
	l.Info("snapshot merged", map[string]interface{}{
		"snapshot_lines": snapshotLines,
		"buffered":       buffered,
		"appended":       appended,
	})
}

// SnapshotFailed reports a failed transcript fetch.
func (l *Logger) SnapshotFailed(err error, bufferedKept int) {
	l.Warn("snapshot fetch failed", map[string]interface{}{
		"error":         err.Error(),
		"buffered_kept": bufferedKept,
	})
}

// ParseFailure reports a transcript line that could not be decoded.
func (l *Logger) ParseFailure(err error, total int) {
	l.Debug("transcript line skipped", map[string]interface{}{
		"error":        err.Error(),
		"parse_errors": total,
	})
}

// CacheHit reports that a cached transcript satisfied an open.
func (l *Logger) CacheHit(age time.Duration, status string, fresh bool) {
	l.Debug("cache hit", map[string]interface{}{
		"age_ms": age.Milliseconds(),
		"status": status,
		"fresh":  fresh,
	})
}

// CacheMiss reports that no cached transcript existed for a run.
func (l *Logger) CacheMiss() {
	l.Debug("cache miss")
}

// SubscribeFailed reports that the live subscription could not be
// established and polling will be used instead.
func (l *Logger) SubscribeFailed(err error, interval time.Duration) {
	l.Warn("live subscription failed, falling back to polling", map[string]interface{}{
		"error":       err.Error(),
		"interval_ms": interval.Milliseconds(),
	})
}

// StatusChanged reports a run status transition.
func (l *Logger) StatusChanged(status string) {
	l.Info("run status changed", map[string]interface{}{
		"status": status,
	})
}

// RunStarted reports a newly started run.
func (l *Logger) RunStarted(runID, name string) {
	l.Info("run started", map[string]interface{}{
		"run":  runID,
		"name": name,
	})
}

// ExportWritten reports a finished export.
func (l *Logger) ExportWritten(format, dest string, bytes int) {
	l.Info("export written", map[string]interface{}{
		"format": format,
		"dest":   dest,
		"bytes":  bytes,
	})
}
