package canvassync

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
)

// State is the controller's position in its per-panel lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateInteractive
	StateSyncing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateInteractive:
		return "interactive"
	case StateSyncing:
		return "syncing"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Loader resolves image URIs. *imagecache.Cache satisfies it.
type Loader interface {
	Load(ctx context.Context, uri string) (*imagecache.Handle, error)
}

// AssetSource supplies the fixed overlay/mask/guide art. *assets.Library
// satisfies it.
type AssetSource interface {
	Overlay(name panel.Name, v panel.Variant) image.Image
	Guide(name panel.Name) image.Image
	Mask(name panel.Name) image.Image
}

// Model is the panel state the controller syncs against. *panel.Set
// satisfies it.
type Model interface {
	Get(name panel.Name) (panel.Panel, error)
	Update(name panel.Name, patch panel.Patch) (bool, error)
}

// Config wires a controller. Zero Throttle and HistoryLimit get defaults.
type Config struct {
	Canvas       Canvas
	Model        Model
	Loader       Loader
	Assets       AssetSource
	Transform    Transform
	Throttle     time.Duration
	HistoryLimit int
}

const defaultThrottle = 100 * time.Millisecond

type pendingSync struct {
	role       Role
	x, y, w, h float64 // display space
}

// Controller owns one interactive canvas for a panel-editing session. It
// translates panel layers into canvas objects, writes user geometry edits
// back to the model, and keeps the two from feeding back into each other.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	state   State
	current panel.Name
	opened  bool

	// load liveness: continuations from a superseded load must not touch
	// the canvas, and only one full reload runs at a time
	gen     int
	loading bool

	guideVisible bool
	lastContent  uint64
	lastOverlay  panel.Overlay

	hist      *history
	restoring bool

	lastSyncAt time.Time
	pending    *pendingSync

	wg sync.WaitGroup
}

// New builds a controller in the Idle state.
func New(cfg Config) (*Controller, error) {
	if cfg.Canvas == nil || cfg.Model == nil || cfg.Loader == nil {
		return nil, fmt.Errorf("canvassync: canvas, model and loader are required")
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = defaultThrottle
	}
	return &Controller{
		cfg:   cfg,
		state: StateIdle,
		hist:  newHistory(cfg.HistoryLimit),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the open panel name.
func (c *Controller) Current() panel.Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OpenPanel loads name onto the canvas, replacing whatever was open. A load
// already in progress for the same panel is left alone; switching panels
// supersedes the old load, whose late completions are discarded.
func (c *Controller) OpenPanel(ctx context.Context, name panel.Name) error {
	c.mu.Lock()
	if c.state == StateDisposed {
		c.mu.Unlock()
		return fmt.Errorf("canvassync: disposed")
	}
	if c.loading && c.current == name {
		c.mu.Unlock()
		return nil
	}
	p, err := c.cfg.Model.Get(name)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.gen++
	g := c.gen
	c.current = name
	c.opened = true
	c.loading = true
	c.state = StateLoading
	c.pending = nil
	c.lastContent = panel.ContentFingerprint(&p)
	c.lastOverlay = panel.Overlay{}
	if p.LogoOverlay != nil {
		c.lastOverlay = *p.LogoOverlay
	}

	// synchronous base: fill and border, never selectable
	canvas := c.cfg.Canvas
	canvas.Clear()
	fillColor := p.BackgroundColor
	if fillColor == "" {
		fillColor = "#ffffff"
	}
	dx, dy, dw, dh := c.cfg.Transform.ToDisplay(0, 0, float64(p.Width), float64(p.Height))
	canvas.Add(Object{Role: RoleFill, Color: fillColor, X: dx, Y: dy, Width: dw, Height: dh, Visible: true})
	canvas.Add(Object{Role: RoleBorder, X: dx, Y: dy, Width: dw, Height: dh, Visible: true})
	canvas.SetZOrder(ZOrder())
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loadLayers(ctx, g, p)
	return nil
}

// loadLayers resolves the async layers of p. Each insertion checks liveness
// against the current generation, guards against a duplicate object for its
// role, and re-asserts the fixed z-order so draw order never depends on
// decode completion order.
func (c *Controller) loadLayers(ctx context.Context, g int, p panel.Panel) {
	defer c.wg.Done()

	var wg sync.WaitGroup
	if p.BackgroundImage != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.loadImageLayer(ctx, g, RoleBackground, p, *p.BackgroundImage)
		}()
	}
	if p.Logo != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.loadImageLayer(ctx, g, RoleLogo, p, *p.Logo)
		}()
	}
	if c.cfg.Assets != nil {
		overlayOn := p.LogoOverlay != nil && p.LogoOverlay.Enabled
		variant := panel.VariantPrimary
		if p.LogoOverlay != nil {
			variant = p.LogoOverlay.Variant
		}
		c.addAssetLayer(g, RoleOverlay, p, c.cfg.Assets.Overlay(p.Name, variant), overlayOn)
		c.addAssetLayer(g, RoleMask, p, c.cfg.Assets.Mask(p.Name), true)
		c.addAssetLayer(g, RoleGuide, p, c.cfg.Assets.Guide(p.Name), c.isGuideVisible())
	}
	wg.Wait()

	c.mu.Lock()
	if c.gen != g || c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	// content may have changed while this load ran; OpenPanel suppressed the
	// reload because we were loading, so re-check before going interactive
	if cur, err := c.cfg.Model.Get(p.Name); err == nil {
		if panel.ContentFingerprint(&cur) != c.lastContent {
			c.loading = false
			c.mu.Unlock()
			if err := c.OpenPanel(ctx, p.Name); err != nil {
				log.Printf("canvassync: reload %s: %v", p.Name, err)
			}
			return
		}
	}
	c.loading = false
	c.state = StateInteractive
	c.hist.reset(c.cfg.Canvas.Serialize())
	c.mu.Unlock()
}

func (c *Controller) loadImageLayer(ctx context.Context, g int, role Role, p panel.Panel, layer panel.Layer) {
	h, err := c.cfg.Loader.Load(ctx, layer.URI)

	c.mu.Lock()
	defer c.mu.Unlock()
	// a stale completion must not touch a canvas that has moved on
	if c.gen != g || c.state == StateDisposed {
		return
	}
	if err != nil {
		log.Printf("canvassync: %s %s layer %q: %v", p.Name, role, layer.URI, err)
		return
	}
	// two racing loads of the same panel must not insert twice
	if c.cfg.Canvas.Has(role) {
		return
	}

	nx, ny, nw, nh := layer.X, layer.Y, layer.Width, layer.Height
	if nw <= 0 || nh <= 0 {
		nx, ny, nw, nh = 0, 0, float64(p.Width), float64(p.Height)
	}
	dx, dy, dw, dh := c.cfg.Transform.ToDisplay(nx, ny, nw, nh)
	c.cfg.Canvas.Add(Object{
		Role: role, URI: layer.URI, Image: h.Image,
		X: dx, Y: dy, Width: dw, Height: dh,
		Selectable: true, Visible: true,
	})
	c.cfg.Canvas.SetZOrder(ZOrder())
}

func (c *Controller) addAssetLayer(g int, role Role, p panel.Panel, img image.Image, visible bool) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != g || c.state == StateDisposed {
		return
	}
	if c.cfg.Canvas.Has(role) {
		c.cfg.Canvas.SetVisible(role, visible)
		return
	}
	dx, dy, dw, dh := c.cfg.Transform.ToDisplay(0, 0, float64(p.Width), float64(p.Height))
	c.cfg.Canvas.Add(Object{Role: role, Image: img, X: dx, Y: dy, Width: dw, Height: dh, Visible: visible})
	c.cfg.Canvas.SetZOrder(ZOrder())
}

func (c *Controller) isGuideVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guideVisible
}

// OnObjectModified reports a user-driven move/resize in progress, in display
// space. Writes to the model are throttled; the latest geometry is kept
// pending so nothing is lost between ticks.
func (c *Controller) OnObjectModified(role Role, x, y, w, h float64) {
	c.mu.Lock()
	if !c.interactiveLocked() {
		c.mu.Unlock()
		return
	}
	c.pending = &pendingSync{role: role, x: x, y: y, w: w, h: h}
	if time.Since(c.lastSyncAt) < c.cfg.Throttle {
		c.mu.Unlock()
		return
	}
	name, patch, ok := c.takeSyncLocked()
	c.mu.Unlock()
	if ok {
		c.applySync(name, patch)
	}
}

// OnObjectModificationDone reports a completed move/resize. The geometry is
// synced unconditionally and a scene snapshot is pushed onto the history.
func (c *Controller) OnObjectModificationDone(role Role, x, y, w, h float64) {
	c.mu.Lock()
	if !c.interactiveLocked() {
		c.mu.Unlock()
		return
	}
	c.pending = &pendingSync{role: role, x: x, y: y, w: w, h: h}
	name, patch, ok := c.takeSyncLocked()
	c.hist.push(c.cfg.Canvas.Serialize())
	c.mu.Unlock()
	if ok {
		c.applySync(name, patch)
	}
}

func (c *Controller) interactiveLocked() bool {
	if c.restoring {
		return false
	}
	return c.state == StateInteractive || c.state == StateSyncing
}

// takeSyncLocked converts the pending display geometry back into the
// panel's native space and builds the model patch. The model write itself
// happens outside the lock.
func (c *Controller) takeSyncLocked() (panel.Name, panel.Patch, bool) {
	if c.pending == nil {
		return "", panel.Patch{}, false
	}
	ps := c.pending
	c.pending = nil

	obj, ok := c.cfg.Canvas.Get(ps.role)
	if !ok {
		return "", panel.Patch{}, false
	}
	nx, ny, nw, nh := c.cfg.Transform.ToNative(ps.x, ps.y, ps.w, ps.h)
	layer := &panel.Layer{URI: obj.URI, X: nx, Y: ny, Width: nw, Height: nh}

	var patch panel.Patch
	switch ps.role {
	case RoleBackground:
		patch.BackgroundImage = layer
	case RoleLogo:
		patch.Logo = layer
	default:
		return "", panel.Patch{}, false
	}

	c.state = StateSyncing
	c.lastSyncAt = time.Now()
	return c.current, patch, true
}

func (c *Controller) applySync(name panel.Name, patch panel.Patch) {
	if _, err := c.cfg.Model.Update(name, patch); err != nil {
		log.Printf("canvassync: sync %s: %v", name, err)
	}
	c.mu.Lock()
	if c.state == StateSyncing {
		c.state = StateInteractive
	}
	c.mu.Unlock()
}

// OnModelChanged classifies an external change to the open panel's state and
// reacts minimally: identical content with new geometry is the echo of our
// own sync and is ignored; genuinely new content forces a full reload; a
// bare overlay toggle is an in-place show/hide.
func (c *Controller) OnModelChanged(p panel.Panel) {
	c.mu.Lock()
	if c.state == StateDisposed || !c.opened || p.Name != c.current {
		c.mu.Unlock()
		return
	}

	content := panel.ContentFingerprint(&p)
	if content != c.lastContent {
		c.mu.Unlock()
		if err := c.OpenPanel(context.Background(), p.Name); err != nil {
			log.Printf("canvassync: reload %s: %v", p.Name, err)
		}
		return
	}

	overlay := panel.Overlay{}
	if p.LogoOverlay != nil {
		overlay = *p.LogoOverlay
	}
	if overlay != c.lastOverlay {
		c.lastOverlay = overlay
		canvas := c.cfg.Canvas
		if canvas.Has(RoleOverlay) {
			canvas.SetVisible(RoleOverlay, overlay.Enabled)
		} else if overlay.Enabled && c.cfg.Assets != nil {
			if img := c.cfg.Assets.Overlay(p.Name, overlay.Variant); img != nil {
				dx, dy, dw, dh := c.cfg.Transform.ToDisplay(0, 0, float64(p.Width), float64(p.Height))
				canvas.Add(Object{Role: RoleOverlay, Image: img, X: dx, Y: dy, Width: dw, Height: dh, Visible: true})
				canvas.SetZOrder(ZOrder())
			}
		}
	}
	// geometry-only change: our own sync coming back, nothing to do
	c.mu.Unlock()
}

// SetGuideVisible shows or hides the cutline guide in place; it never
// triggers a reload.
func (c *Controller) SetGuideVisible(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guideVisible = show
	if c.state == StateDisposed {
		return
	}
	canvas := c.cfg.Canvas
	if canvas.Has(RoleGuide) {
		canvas.SetVisible(RoleGuide, show)
		return
	}
	if !show || c.cfg.Assets == nil || !c.opened {
		return
	}
	p, err := c.cfg.Model.Get(c.current)
	if err != nil {
		return
	}
	if img := c.cfg.Assets.Guide(p.Name); img != nil {
		dx, dy, dw, dh := c.cfg.Transform.ToDisplay(0, 0, float64(p.Width), float64(p.Height))
		canvas.Add(Object{Role: RoleGuide, Image: img, X: dx, Y: dy, Width: dw, Height: dh, Visible: true})
		canvas.SetZOrder(ZOrder())
	}
}

// Undo restores the previous scene snapshot. It changes canvas visuals only;
// no model sync fires, so the model is never clobbered with stale geometry.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInteractive {
		return false
	}
	data, ok := c.hist.undo()
	if !ok {
		return false
	}
	c.restoring = true
	c.cfg.Canvas.Restore(data)
	c.restoring = false
	return true
}

// Redo re-applies an undone snapshot, visuals only.
func (c *Controller) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInteractive {
		return false
	}
	data, ok := c.hist.redo()
	if !ok {
		return false
	}
	c.restoring = true
	c.cfg.Canvas.Restore(data)
	c.restoring = false
	return true
}

// CanUndo reports whether an undo step exists.
func (c *Controller) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.canUndo()
}

// CanRedo reports whether a redo step exists.
func (c *Controller) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.canRedo()
}

// Dispose flushes any in-flight drag edit, then releases the canvas. The
// controller is unusable afterwards.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	name, patch, ok := c.takeSyncLocked()
	c.gen++
	c.state = StateDisposed
	c.cfg.Canvas.Clear()
	c.mu.Unlock()

	if ok {
		if _, err := c.cfg.Model.Update(name, patch); err != nil {
			log.Printf("canvassync: final flush %s: %v", name, err)
		}
	}
	c.wg.Wait()
}
