package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/swilhoit/wrapstudio/panel"
	"github.com/swilhoit/wrapstudio/store"
)

type projectLayer struct {
	URI    string  `yaml:"uri"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type projectOverlay struct {
	Enabled bool   `yaml:"enabled"`
	Variant string `yaml:"variant"`
}

type projectPanel struct {
	Name            string          `yaml:"name"`
	BackgroundColor string          `yaml:"background_color,omitempty"`
	Background      *projectLayer   `yaml:"background,omitempty"`
	Logo            *projectLayer   `yaml:"logo,omitempty"`
	Overlay         *projectOverlay `yaml:"overlay,omitempty"`
	Reference       string          `yaml:"reference,omitempty"`
}

type projectFile struct {
	DesignID string         `yaml:"design_id"`
	Linked   bool           `yaml:"linked"`
	Panels   []projectPanel `yaml:"panels"`
}

func toProjectLayer(l *panel.Layer) *projectLayer {
	if l == nil {
		return nil
	}
	return &projectLayer{URI: l.URI, X: l.X, Y: l.Y, Width: l.Width, Height: l.Height}
}

func fromProjectLayer(l *projectLayer) *panel.Layer {
	if l == nil {
		return nil
	}
	return &panel.Layer{URI: l.URI, X: l.X, Y: l.Y, Width: l.Width, Height: l.Height}
}

// SaveProject writes the session's panel content and design id as YAML.
func (o *Orchestrator) SaveProject(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("session: project dir: %w", err)
	}

	f := projectFile{DesignID: o.DesignID, Linked: o.store.Set().Linked()}
	panels := o.store.Snapshot()
	for _, name := range panel.Order() {
		p := panels[name]
		pp := projectPanel{
			Name:            string(name),
			BackgroundColor: p.BackgroundColor,
			Background:      toProjectLayer(p.BackgroundImage),
			Logo:            toProjectLayer(p.Logo),
			Reference:       p.ReferenceImage,
		}
		if p.LogoOverlay != nil {
			pp.Overlay = &projectOverlay{Enabled: p.LogoOverlay.Enabled, Variant: string(p.LogoOverlay.Variant)}
		}
		f.Panels = append(f.Panels, pp)
	}

	b, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("session: marshal project: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("session: write project: %w", err)
	}
	return nil
}

// LoadProject replaces the session's panel content from a project file.
func (o *Orchestrator) LoadProject(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("session: read project: %w", err)
	}
	var f projectFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("session: parse project: %w", err)
	}

	if f.DesignID != "" {
		o.DesignID = f.DesignID
	}
	o.store.Set().SetLinked(f.Linked)

	panels := o.store.Snapshot()
	next := make(map[panel.Name]panel.Panel, len(f.Panels))
	for _, pp := range f.Panels {
		name := panel.Name(pp.Name)
		p, ok := panels[name]
		if !ok {
			return fmt.Errorf("session: project references unknown panel %q", pp.Name)
		}
		p.BackgroundColor = pp.BackgroundColor
		p.BackgroundImage = fromProjectLayer(pp.Background)
		p.Logo = fromProjectLayer(pp.Logo)
		p.LogoOverlay = nil
		if pp.Overlay != nil {
			p.LogoOverlay = &panel.Overlay{Enabled: pp.Overlay.Enabled, Variant: panel.Variant(pp.Overlay.Variant)}
		}
		p.ReferenceImage = pp.Reference
		next[name] = p
	}
	return o.store.Dispatch(store.Action{Type: store.SetPanelStates, Panels: next})
}
