package runs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Summary is one row of a run listing: the manifest plus what can be read
// cheaply off the transcript and markers.
type Summary struct {
	Manifest
	Status   string
	Messages int
	Updated  int64 // transcript mtime, unix seconds; zero when absent
}

// Summarize walks the runs root and builds a summary per run, newest first.
// Directories that fail to load come back as warnings rather than killing
// the whole listing.
func Summarize(root string) ([]Summary, []error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("failed to read runs directory: %w", err)}
	}

	var summaries []Summary
	var warnings []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		m, err := Load(dir)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}

		s := Summary{
			Manifest: *m,
			Status:   Status(dir),
		}
		if info, err := os.Stat(filepath.Join(dir, TranscriptFile)); err == nil {
			s.Updated = info.ModTime().Unix()
		}
		if n, err := countMessages(filepath.Join(dir, TranscriptFile)); err == nil {
			s.Messages = n
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Updated != summaries[j].Updated {
			return summaries[i].Updated > summaries[j].Updated
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, warnings
}

// countMessages counts the valid JSON lines of a transcript without fully
// decoding them.
func countMessages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := newScanner(f)
	count := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if json.Valid(line) {
			count++
		}
	}
	return count, scanner.Err()
}

// newScanner returns a line scanner sized for transcript lines, which can
// carry whole file bodies inside tool results.
func newScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return scanner
}
