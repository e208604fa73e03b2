// Package runs manages on-disk run directories: one directory per run,
// holding the transcript, a RUN.md manifest, and completion markers.
package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Files inside a run directory.
const (
	ManifestFile    = "RUN.md"
	TranscriptFile  = "transcript.jsonl"
	MarkerDone      = ".done"
	MarkerCancelled = ".cancelled"
)

// Manifest describes one run. The YAML frontmatter of RUN.md carries the
// fields; anything below the frontmatter is free-form notes.
type Manifest struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Task    string    `yaml:"task,omitempty"`
	Model   string    `yaml:"model,omitempty"`
	Created time.Time `yaml:"created,omitempty"`

	// Not part of the frontmatter.
	Notes string `yaml:"-"`
	Dir   string `yaml:"-"`
}

// Load reads and validates the manifest of a run directory. The manifest id
// must match the directory name so a copied directory cannot impersonate
// another run.
func Load(runDir string) (*Manifest, error) {
	path := filepath.Join(runDir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	dirName := filepath.Base(filepath.Clean(runDir))
	if m.ID != dirName {
		return nil, fmt.Errorf("manifest id %q does not match directory %q", m.ID, dirName)
	}
	m.Dir = runDir
	return m, nil
}

// Parse decodes a RUN.md document: YAML frontmatter between --- fences,
// followed by optional notes.
func Parse(content string) (*Manifest, error) {
	frontmatter, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal([]byte(frontmatter), &m); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}

	if m.ID == "" {
		return nil, fmt.Errorf("manifest missing required field: id")
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest missing required field: name")
	}
	if err := validateID(m.ID); err != nil {
		return nil, err
	}

	m.Notes = strings.TrimSpace(body)
	return &m, nil
}

// Write renders the manifest into runDir/RUN.md.
func Write(runDir string, m *Manifest) error {
	frontmatter, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(frontmatter)
	b.WriteString("---\n")
	if m.Notes != "" {
		b.WriteString("\n")
		b.WriteString(m.Notes)
		b.WriteString("\n")
	}

	path := filepath.Join(runDir, ManifestFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Discover scans a root directory for valid run directories. Directories
// without a parseable manifest are skipped.
func Discover(root string) ([]*Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := Load(filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Status derives a run's status from its marker files: a cancellation marker
// wins, then the completion marker's verdict, otherwise the run counts as
// still running.
func Status(runDir string) string {
	if _, err := os.Stat(filepath.Join(runDir, MarkerCancelled)); err == nil {
		return "cancelled"
	}
	data, err := os.ReadFile(filepath.Join(runDir, MarkerDone))
	if err != nil {
		return "running"
	}
	if strings.TrimSpace(string(data)) == "false" {
		return "failed"
	}
	return "completed"
}

// splitFrontmatter separates the YAML frontmatter from the body. The first
// line must open the fence.
func splitFrontmatter(content string) (string, string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", "", fmt.Errorf("manifest must start with --- frontmatter")
	}

	var fmLines []string
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			body := strings.Join(lines[i+1:], "\n")
			return strings.Join(fmLines, "\n"), body, nil
		}
		fmLines = append(fmLines, lines[i])
	}
	return "", "", fmt.Errorf("unclosed frontmatter")
}

// validateID enforces run id rules: 1-64 characters of lowercase letters,
// digits, and hyphens, with no leading, trailing, or doubled hyphens.
func validateID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("run id must be 1-64 characters, got %d", len(id))
	}
	if strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return fmt.Errorf("run id cannot start or end with a hyphen: %q", id)
	}
	if strings.Contains(id, "--") {
		return fmt.Errorf("run id cannot contain consecutive hyphens: %q", id)
	}
	for _, r := range id {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		if !valid {
			return fmt.Errorf("run id contains invalid character %q: %q", r, id)
		}
	}
	return nil
}
