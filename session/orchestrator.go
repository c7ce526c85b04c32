// Package session wires the editing core together for one editor session:
// the store, the image cache, the canvas controller, and the atlas engine.
// It owns the user-level actions (upload, generate, toggle, finalize,
// import) and the project file format.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/swilhoit/wrapstudio/assets"
	"github.com/swilhoit/wrapstudio/atlas"
	"github.com/swilhoit/wrapstudio/canvassync"
	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
	"github.com/swilhoit/wrapstudio/store"
)

// Orchestrator drives one editing session. Panels are created at session
// start and live until Close.
type Orchestrator struct {
	DesignID string

	store  *store.Store
	cache  *imagecache.Cache
	valid  *imagecache.Validator
	assets *assets.Library
	ctrl   *canvassync.Controller
}

// New builds a session over an existing cache; the panel set is created
// fresh from the templates.
func New(cache *imagecache.Cache, assetLib *assets.Library) (*Orchestrator, error) {
	set, err := panel.NewSet()
	if err != nil {
		return nil, err
	}
	if assetLib == nil {
		assetLib = assets.NewLibrary()
	}
	o := &Orchestrator{
		DesignID: uuid.NewString(),
		store:    store.New(set),
		cache:    cache,
		valid:    imagecache.NewValidator(cache, nil),
		assets:   assetLib,
	}
	return o, nil
}

// Store exposes the session's state container.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// AttachCanvas creates the canvas controller for this session and routes
// store changes into it. Call once, with the UI's canvas capability.
func (o *Orchestrator) AttachCanvas(canvas canvassync.Canvas, transform canvassync.Transform) error {
	ctrl, err := canvassync.New(canvassync.Config{
		Canvas:    canvas,
		Model:     o.store,
		Loader:    o.cache,
		Assets:    o.assets,
		Transform: transform,
	})
	if err != nil {
		return err
	}
	o.ctrl = ctrl
	o.store.Subscribe(func(name panel.Name, p panel.Panel) {
		ctrl.OnModelChanged(p)
	})
	return nil
}

// Controller returns the attached canvas controller, or nil.
func (o *Orchestrator) Controller() *canvassync.Controller {
	return o.ctrl
}

// OpenPanel switches the canvas to the named panel.
func (o *Orchestrator) OpenPanel(ctx context.Context, name panel.Name) error {
	if o.ctrl == nil {
		return fmt.Errorf("session: no canvas attached")
	}
	return o.ctrl.OpenPanel(ctx, name)
}

// Upload decodes raw image bytes, caches them under a fresh mem:// URI, and
// sets them as the panel's background covering the whole template.
func (o *Orchestrator) Upload(name panel.Name, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("session: decode upload: %w", err)
	}
	uri := "mem://upload/" + uuid.NewString()
	o.cache.Put(uri, img)
	err = o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{BackgroundImage: &panel.Layer{URI: uri}},
	})
	if err != nil {
		return "", err
	}
	return uri, nil
}

// ApplyGenerated records an AI-generation result for the panel. The URI is
// marked fresh so existence validation gives persistence time to catch up.
func (o *Orchestrator) ApplyGenerated(name panel.Name, uri string) error {
	o.valid.MarkFresh(uri)
	return o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{BackgroundImage: &panel.Layer{URI: uri}},
	})
}

// MissingAssets lists referenced URIs that can no longer be resolved,
// honoring the post-generation grace period.
func (o *Orchestrator) MissingAssets() []string {
	var missing []string
	for _, p := range o.store.Snapshot() {
		for _, l := range []*panel.Layer{p.BackgroundImage, p.Logo} {
			if l != nil && o.valid.Missing(l.URI) {
				missing = append(missing, l.URI)
			}
		}
	}
	return missing
}

// SetColor sets a panel's background fill.
func (o *Orchestrator) SetColor(name panel.Name, hex string) error {
	return o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{BackgroundColor: &hex},
	})
}

// SetLogo places a logo layer on the panel at a native-space rectangle.
func (o *Orchestrator) SetLogo(name panel.Name, layer panel.Layer) error {
	return o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{Logo: &layer},
	})
}

// ToggleOverlay enables or disables a panel's fixed overlay art. Panels
// without mapped art are a no-op.
func (o *Orchestrator) ToggleOverlay(name panel.Name, enabled bool, variant panel.Variant) error {
	if !assets.HasOverlay(name) {
		return nil
	}
	return o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{LogoOverlay: &panel.Overlay{Enabled: enabled, Variant: variant}},
	})
}

// ToggleGuide shows or hides the cutline guide. Display-only; the model is
// untouched.
func (o *Orchestrator) ToggleGuide(show bool) {
	if o.ctrl != nil {
		o.ctrl.SetGuideVisible(show)
	}
}

// SetLinked toggles sides linking.
func (o *Orchestrator) SetLinked(on bool) {
	o.store.Set().SetLinked(on)
}

// Clear resets one panel to its blank template.
func (o *Orchestrator) Clear(name panel.Name) error {
	empty := ""
	return o.store.Dispatch(store.Action{
		Type:  store.UpdatePanel,
		Panel: name,
		Patch: panel.Patch{
			BackgroundColor:  &empty,
			RemoveBackground: true,
			RemoveLogo:       true,
			LogoOverlay:      &panel.Overlay{},
			ReferenceImage:   &empty,
		},
	})
}

// ErrIncomplete gates Finalize: every panel needs a background color or
// image first.
var ErrIncomplete = fmt.Errorf("session: not all panels are complete")

// Finalize stitches the six panels into the combined atlas. Per-panel layer
// failures are reported in the result, not fatal.
func (o *Orchestrator) Finalize(ctx context.Context) (*atlas.Result, error) {
	if !o.store.Set().AllComplete() {
		return nil, ErrIncomplete
	}
	start := time.Now()
	res, err := atlas.Compose(ctx, o.store.Snapshot(), o.cache, o.assets)
	if err != nil {
		return nil, err
	}
	log.Printf("session: composed %dx%d atlas in %s (%d failed panels)",
		res.Layout.MaxWidth, res.Layout.AtlasHeight, time.Since(start).Round(time.Millisecond), len(res.Failed))
	return res, nil
}

// ImportAtlas slices an externally produced atlas back into editable panels,
// replacing all panel content in one action.
func (o *Orchestrator) ImportAtlas(img image.Image) error {
	panels := o.store.Snapshot()
	cells, err := atlas.Slice(img, panels)
	if err != nil {
		return err
	}
	next := make(map[panel.Name]panel.Panel, len(panels))
	for name, p := range panels {
		cell, ok := cells[name]
		if !ok {
			continue
		}
		uri := fmt.Sprintf("mem://import/%s/%s", name, uuid.NewString())
		o.cache.Put(uri, cell)
		p.BackgroundColor = ""
		p.BackgroundImage = &panel.Layer{URI: uri}
		p.Logo = nil
		p.LogoOverlay = nil
		next[name] = p
	}
	return o.store.Dispatch(store.Action{Type: store.SetPanelStates, Panels: next})
}

// Close flushes and releases the canvas controller. The shared cache is left
// alone; its lifetime belongs to the caller.
func (o *Orchestrator) Close() {
	if o.ctrl != nil {
		o.ctrl.Dispose()
	}
}
