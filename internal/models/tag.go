package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag is either a plain label or a label with a display color.
// Both shapes decode into the same struct; Name is always populated.
type Tag struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// MarshalJSON writes colorless tags back as plain strings.
func (t Tag) MarshalJSON() ([]byte, error) {
	if t.Color == "" {
		return json.Marshal(t.Name)
	}
	type plain Tag
	return json.Marshal(plain(t))
}

// UnmarshalJSON accepts "name" or {"name": ..., "color": ...}.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Tag{Name: strings.TrimSpace(s)}
		return nil
	}
	type plain Tag
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("models: tag: %w", err)
	}
	*t = Tag(p)
	t.Name = strings.TrimSpace(t.Name)
	return nil
}

// UnmarshalYAML accepts a scalar or a mapping.
func (t *Tag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = Tag{Name: strings.TrimSpace(node.Value)}
		return nil
	}
	type plain Tag
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("models: tag: %w", err)
	}
	*t = Tag(p)
	t.Name = strings.TrimSpace(t.Name)
	return nil
}

// TagNames returns the names of tags, skipping empty ones.
func TagNames(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			out = append(out, t.Name)
		}
	}
	return out
}
