package panel

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

type template struct {
	Name   Name `yaml:"name"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
}

type templateFile struct {
	Panels []template `yaml:"panels"`
}

func loadTemplates() ([]template, error) {
	var f templateFile
	if err := yaml.Unmarshal(templatesYAML, &f); err != nil {
		return nil, fmt.Errorf("panel templates: %w", err)
	}
	if len(f.Panels) != 6 {
		return nil, fmt.Errorf("panel templates: expected 6 panels, got %d", len(f.Panels))
	}
	for _, t := range f.Panels {
		if !t.Name.Valid() {
			return nil, fmt.Errorf("panel templates: unknown panel %q", t.Name)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("panel templates: %s has invalid size %dx%d", t.Name, t.Width, t.Height)
		}
	}
	return f.Panels, nil
}
