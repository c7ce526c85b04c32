// Package assets embeds the fixed decorative artwork the editor composites
// onto panels: per-panel overlay variants, cutline guides, and masks. Assets
// are looked up by panel name (and variant for overlays); a panel with no
// mapped asset yields nil, which callers skip.
package assets

import (
	"bytes"
	"embed"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/swilhoit/wrapstudio/panel"
)

//go:embed wrap/*
var assetsFS embed.FS

var panelFile = map[panel.Name]string{
	panel.Right:    "right",
	panel.Left:     "left",
	panel.Back:     "back",
	panel.TopFront: "top_front",
	panel.Front:    "front",
	panel.Lid:      "lid",
}

// overlayFiles maps panel+variant to an embedded overlay. Panels absent here
// simply have no overlay art.
var overlayFiles = map[panel.Name]map[panel.Variant]string{
	panel.Right: {
		panel.VariantPrimary:   "wrap/overlays/right_primary.png",
		panel.VariantSecondary: "wrap/overlays/right_secondary.png",
	},
	panel.Left: {
		panel.VariantPrimary:   "wrap/overlays/left_primary.png",
		panel.VariantSecondary: "wrap/overlays/left_secondary.png",
	},
	panel.Back: {
		panel.VariantPrimary:   "wrap/overlays/back_primary.png",
		panel.VariantSecondary: "wrap/overlays/back_secondary.png",
	},
}

// Library decodes assets on demand and caches the pixels. Override
// directories, when given, are searched before the embedded art using the
// same relative layout (overlays/, guides/, masks/); a Watcher drops the
// cache when an override changes. The zero value is not usable; call
// NewLibrary.
type Library struct {
	mu        sync.Mutex
	overrides []string
	images    map[string]image.Image
}

func NewLibrary(overrideDirs ...string) *Library {
	return &Library{
		overrides: overrideDirs,
		images:    make(map[string]image.Image),
	}
}

// Invalidate drops every decoded image so the next lookup re-reads its
// source file.
func (l *Library) Invalidate() {
	l.mu.Lock()
	l.images = make(map[string]image.Image)
	l.mu.Unlock()
}

func (l *Library) load(path string) image.Image {
	if path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if img, ok := l.images[path]; ok {
		return img
	}
	b, err := l.read(path)
	if err != nil {
		l.images[path] = nil
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		img = nil
	}
	l.images[path] = img
	return img
}

// read prefers an override file mirroring the embedded layout, falling back
// to the embedded art.
func (l *Library) read(path string) ([]byte, error) {
	rel := strings.TrimPrefix(path, "wrap/")
	for _, dir := range l.overrides {
		if b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))); err == nil {
			return b, nil
		}
	}
	return assetsFS.ReadFile(path)
}

// Overlay returns the fixed overlay art for a panel and variant, or nil when
// none is mapped.
func (l *Library) Overlay(name panel.Name, v panel.Variant) image.Image {
	variants, ok := overlayFiles[name]
	if !ok {
		return nil
	}
	return l.load(variants[v])
}

// Guide returns the cutline guide art for a panel, or nil.
func (l *Library) Guide(name panel.Name) image.Image {
	f, ok := panelFile[name]
	if !ok {
		return nil
	}
	return l.load("wrap/guides/" + f + ".png")
}

// Mask returns the mask art for a panel, or nil.
func (l *Library) Mask(name panel.Name) image.Image {
	f, ok := panelFile[name]
	if !ok {
		return nil
	}
	return l.load("wrap/masks/" + f + ".png")
}

// HasOverlay reports whether any overlay art is mapped for the panel.
func HasOverlay(name panel.Name) bool {
	_, ok := overlayFiles[name]
	return ok
}
