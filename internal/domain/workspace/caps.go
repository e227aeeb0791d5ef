package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// capsFile is the on-disk shape of a workspace caps file. Values are
// human-readable sizes ("512MiB", "1GB").
type capsFile struct {
	Workspaces map[string]string `yaml:"workspaces" toml:"workspaces"`
}

// LoadCaps reads per-workspace cap overrides from a YAML or TOML file,
// chosen by extension. An empty path means no overrides.
func LoadCaps(path string) (map[string]int64, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read caps file: %w", err)
	}

	var file capsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse caps file %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse caps file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported caps file format: %s", filepath.Ext(path))
	}

	caps := make(map[string]int64, len(file.Workspaces))
	for workspaceID, value := range file.Workspaces {
		bytes, err := humanize.ParseBytes(value)
		if err != nil {
			return nil, fmt.Errorf("invalid cap %q for workspace %s: %w", value, workspaceID, err)
		}
		caps[workspaceID] = int64(bytes)
	}
	return caps, nil
}

// ApplyCaps installs loaded overrides on the budget.
func (b *Budget) ApplyCaps(caps map[string]int64) {
	for workspaceID, capBytes := range caps {
		b.SetCap(workspaceID, capBytes)
	}
}
