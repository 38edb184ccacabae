package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarkerFileName is the per-directory hierarchy marker. A directory carrying
// this file is either a project or a workspace root.
const MarkerFileName = ".conductor.yaml"

// Marker declares what kind of context a directory roots and which
// subdirectories hold component definitions.
type Marker struct {
	Type           string   `yaml:"type" json:"type"`
	IncludeConfigs []string `yaml:"include_configs" json:"include_configs"`
	Projects       []string `yaml:"projects,omitempty" json:"projects,omitempty"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// LoadMarker reads and validates a marker file.
func LoadMarker(path string) (*Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(path, "failed to read marker file", err)
	}

	var m Marker
	// YAML is a superset of JSON, but try JSON explicitly as a fallback for
	// files that YAML rejects (e.g. tab-indented JSON).
	if yamlErr := yaml.Unmarshal(data, &m); yamlErr != nil {
		if jsonErr := json.Unmarshal(data, &m); jsonErr != nil {
			return nil, NewConfigError(path, "failed to parse marker file", yamlErr)
		}
	}

	switch m.Type {
	case "project", "workspace":
	default:
		return nil, NewConfigError(path, fmt.Sprintf("invalid marker type %q (want project or workspace)", m.Type), nil)
	}

	return &m, nil
}

// WriteMarker writes a marker file atomically.
func WriteMarker(path string, m *Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return NewConfigError(path, "failed to encode marker file", err)
	}
	return writeFileAtomic(path, data)
}
