package visibility

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extension declares one additional self-rendering tool. Extensions are
// loaded from a catalog directory of YAML files, one tool per file, so
// deployments can suppress output of site-specific tools without a rebuild.
type Extension struct {
	Name   string `yaml:"name"`
	Reason string `yaml:"reason,omitempty"`
}

// LoadCatalog reads every .yaml/.yml file under dir into extensions. Files
// that fail to parse or carry an invalid name are skipped so one bad entry
// cannot take the catalog down; the skipped names come back as errors for
// the caller to log. A missing directory yields an empty catalog.
func LoadCatalog(dir string) ([]Extension, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("failed to read catalog directory: %w", err)}
	}

	var exts []Extension
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}

		var e Extension
		if err := yaml.Unmarshal(data, &e); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid yaml: %w", entry.Name(), err))
			continue
		}
		if err := validateToolName(e.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		exts = append(exts, e)
	}
	return exts, errs
}

// Names flattens extensions to their tool names.
func Names(exts []Extension) []string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, e.Name)
	}
	return names
}

// validateToolName enforces the catalog naming rules: 1-64 characters,
// lowercase letters, digits, hyphens or underscores, with no leading or
// trailing hyphen.
func validateToolName(name string) error {
	if len(name) == 0 || len(name) > 64 {
		return fmt.Errorf("tool name must be 1-64 characters, got %d", len(name))
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("tool name cannot start or end with a hyphen: %q", name)
	}
	for _, r := range name {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if !valid {
			return fmt.Errorf("tool name contains invalid character %q: %q", r, name)
		}
	}
	return nil
}
