package prefabs

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownTemplate = errors.New("prefabs: unknown template")
	ErrInvalidTemplate = errors.New("prefabs: invalid template")
)

// Template is a named, ordered composition of components.
type Template struct {
	Name       string          `yaml:"name"`
	Components []ComponentSpec `yaml:"components"`
}

// ComponentSpec names a registered component type and the property values
// written into a fresh instance of it.
type ComponentSpec struct {
	Type       string         `yaml:"type"`
	Properties map[string]any `yaml:"properties"`
}

// ParseTemplate decodes one YAML template document.
func ParseTemplate(data []byte) (Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return Template{}, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if tmpl.Name == "" {
		return Template{}, fmt.Errorf("%w: missing name", ErrInvalidTemplate)
	}
	seen := make(map[string]struct{}, len(tmpl.Components))
	for i, c := range tmpl.Components {
		if c.Type == "" {
			return Template{}, fmt.Errorf("%w: %s: component %d has no type", ErrInvalidTemplate, tmpl.Name, i)
		}
		if _, dup := seen[c.Type]; dup {
			return Template{}, fmt.Errorf("%w: %s: component %s listed twice", ErrInvalidTemplate, tmpl.Name, c.Type)
		}
		seen[c.Type] = struct{}{}
	}
	return tmpl, nil
}
