// Package labels holds the immutable display map (label, icon, color) keyed by
// occurrence kind.
package labels

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_labels.yaml
var defaultLabels []byte

// Label is the display metadata of one kind.
type Label struct {
	Label string `yaml:"label" json:"label"`
	Icon  string `yaml:"icon" json:"icon"`
	Color string `yaml:"color" json:"color"`
}

// Set is a read-only kind→Label map. The zero value is usable and empty.
type Set struct {
	entries map[string]Label
}

// Default returns the built-in label set.
func Default() Set {
	set, err := Parse(defaultLabels)
	if err != nil {
		panic(fmt.Sprintf("labels: embedded defaults invalid: %v", err))
	}
	return set
}

// Parse decodes a YAML document of kind → {label, icon, color}.
func Parse(data []byte) (Set, error) {
	raw := map[string]Label{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Set{}, fmt.Errorf("decode labels: %w", err)
	}
	entries := make(map[string]Label, len(raw))
	for kind, label := range raw {
		entries[kind] = label
	}
	return Set{entries: entries}, nil
}

// Load reads path and overlays its entries on the defaults. An empty path returns Default().
func Load(path string) (Set, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read labels file: %w", err)
	}
	overlay, err := Parse(data)
	if err != nil {
		return Set{}, err
	}
	merged := make(map[string]Label, len(base.entries)+len(overlay.entries))
	for k, v := range base.entries {
		merged[k] = v
	}
	for k, v := range overlay.entries {
		merged[k] = v
	}
	return Set{entries: merged}, nil
}

// Lookup returns the label for kind; ok is false when the kind is unknown.
func (s Set) Lookup(kind string) (Label, bool) {
	l, ok := s.entries[kind]
	return l, ok
}

// Len returns the number of kinds in the set.
func (s Set) Len() int {
	return len(s.entries)
}
