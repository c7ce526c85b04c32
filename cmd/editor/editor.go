package main

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/ebitenui/ebitenui"
	ebuiinput "github.com/ebitenui/ebitenui/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/swilhoit/wrapstudio/assets"
	"github.com/swilhoit/wrapstudio/canvassync"
	"github.com/swilhoit/wrapstudio/panel"
	"github.com/swilhoit/wrapstudio/session"
	"golang.design/x/clipboard"
)

var (
	backgroundColor = color.RGBA{24, 24, 28, 255}
	borderColor     = color.RGBA{90, 90, 100, 255}
	selectionColor  = color.RGBA{80, 160, 255, 255}

	// set by main once clipboard.Init succeeds
	clipboardOK bool
)

// Editor is the interactive wrap editor game. It owns the window loop and
// input; everything stateful about the design goes through the session
// orchestrator and the canvas-sync controller.
type Editor struct {
	orch        *session.Orchestrator
	canvas      *EbitenCanvas
	ui          *ebitenui.UI
	controls    *UIControls
	projectPath string

	selected   canvassync.Role
	dragging   bool
	dragResize bool
	lastMX     int
	lastMY     int

	view    View
	panning bool

	guideOn bool
	linked  bool

	mu         sync.Mutex
	preview    *ebiten.Image
	atlasPNG   []byte
	finalizing bool

	statusMu sync.Mutex
	status   string
	statusAt time.Time
}

func NewEditor(orch *session.Orchestrator, canvas *EbitenCanvas, projectPath string) *Editor {
	e := &Editor{
		orch:        orch,
		canvas:      canvas,
		projectPath: projectPath,
	}
	e.ui, e.controls = BuildEditorUI(UICallbacks{
		OnPanelSelected: e.openPanel,
		OnLinkToggled:   e.toggleLink,
		OnGuideToggled:  e.toggleGuide,
		OnOverlayCycled: e.cycleOverlay,
		OnFinalize:      e.finalize,
		OnSave:          e.saveProject,
		OnClearPanel:    e.clearPanel,
	})
	e.openPanel(panel.Right)
	return e
}

func (e *Editor) openPanel(name panel.Name) {
	e.selected = ""
	e.dragging = false
	if err := e.orch.OpenPanel(context.Background(), name); err != nil {
		e.setStatus("open %s: %v", name, err)
		return
	}
	e.controls.SetActivePanel(name)
	e.setStatus("editing %s", name)
}

func (e *Editor) toggleLink() {
	e.linked = !e.linked
	e.orch.SetLinked(e.linked)
	e.controls.SetLinked(e.linked)
	if e.linked {
		e.setStatus("sides linked: LEFT mirrors RIGHT content")
	} else {
		e.setStatus("sides unlinked")
	}
}

func (e *Editor) toggleGuide() {
	e.guideOn = !e.guideOn
	e.orch.ToggleGuide(e.guideOn)
}

// cycleOverlay steps the current panel's overlay through
// off -> primary -> secondary -> off.
func (e *Editor) cycleOverlay() {
	name := e.orch.Controller().Current()
	if !assets.HasOverlay(name) {
		e.setStatus("%s has no overlay art", name)
		return
	}
	p, err := e.orch.Store().Get(name)
	if err != nil {
		return
	}
	enabled, variant := true, panel.VariantPrimary
	if p.LogoOverlay != nil && p.LogoOverlay.Enabled {
		if p.LogoOverlay.Variant == panel.VariantPrimary {
			variant = panel.VariantSecondary
		} else {
			enabled = false
		}
	}
	if err := e.orch.ToggleOverlay(name, enabled, variant); err != nil {
		e.setStatus("overlay: %v", err)
		return
	}
	if enabled {
		e.setStatus("overlay %s", variant)
	} else {
		e.setStatus("overlay off")
	}
}

func (e *Editor) clearPanel() {
	name := e.orch.Controller().Current()
	if err := e.orch.Clear(name); err != nil {
		e.setStatus("clear %s: %v", name, err)
		return
	}
	e.setStatus("cleared %s", name)
}

func (e *Editor) finalize() {
	e.mu.Lock()
	if e.finalizing {
		e.mu.Unlock()
		return
	}
	e.finalizing = true
	e.mu.Unlock()

	e.setStatus("compositing atlas...")
	go func() {
		res, err := e.orch.Finalize(context.Background())
		if err != nil {
			e.mu.Lock()
			e.finalizing = false
			e.mu.Unlock()
			e.setStatus("finalize: %v", err)
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image); err != nil {
			e.mu.Lock()
			e.finalizing = false
			e.mu.Unlock()
			e.setStatus("finalize: encode: %v", err)
			return
		}
		e.mu.Lock()
		e.finalizing = false
		e.atlasPNG = buf.Bytes()
		e.preview = ebiten.NewImageFromImage(res.Image)
		e.mu.Unlock()
		e.setStatus("atlas %dx%d ready, C copies it, Esc closes",
			res.Image.Bounds().Dx(), res.Image.Bounds().Dy())
	}()
}

func (e *Editor) copyAtlas() {
	e.mu.Lock()
	data := e.atlasPNG
	e.mu.Unlock()
	if data == nil {
		e.setStatus("finalize first, then copy")
		return
	}
	if !clipboardOK {
		e.setStatus("clipboard unavailable on this system")
		return
	}
	clipboard.Write(clipboard.FmtImage, data)
	e.setStatus("atlas copied to clipboard")
}

func (e *Editor) saveProject() {
	if err := e.orch.SaveProject(e.projectPath); err != nil {
		e.setStatus("save: %v", err)
		return
	}
	e.setStatus("saved %s", e.projectPath)
}

func (e *Editor) zoom() float64 {
	if e.view.Zoom == 0 {
		return 1
	}
	return e.view.Zoom
}

func (e *Editor) setStatus(format string, args ...any) {
	e.statusMu.Lock()
	e.status = fmt.Sprintf(format, args...)
	e.statusAt = time.Now()
	e.statusMu.Unlock()
}

func (e *Editor) currentStatus() (string, bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status, e.status != "" && time.Since(e.statusAt) < 5*time.Second
}

func (e *Editor) Update() error {
	e.ui.Update()
	e.handleDroppedFiles()
	e.handleKeys()

	e.mu.Lock()
	previewOpen := e.preview != nil
	e.mu.Unlock()
	if !previewOpen && !ebuiinput.UIHovered {
		e.handleMouse()
	}
	return nil
}

func (e *Editor) handleKeys() {
	ctrlHeld := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	switch {
	case ctrlHeld && inpututil.IsKeyJustPressed(ebiten.KeyZ):
		if !e.orch.Controller().Undo() {
			e.setStatus("nothing to undo")
		}
	case ctrlHeld && inpututil.IsKeyJustPressed(ebiten.KeyY):
		if !e.orch.Controller().Redo() {
			e.setStatus("nothing to redo")
		}
	case ctrlHeld && inpututil.IsKeyJustPressed(ebiten.KeyS):
		e.saveProject()
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		e.toggleGuide()
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		e.cycleOverlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		e.toggleLink()
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		e.finalize()
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		e.copyAtlas()
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		e.mu.Lock()
		e.preview = nil
		e.mu.Unlock()
	default:
		for i, name := range panel.Order() {
			if inpututil.IsKeyJustPressed(ebiten.KeyDigit1 + ebiten.Key(i)) {
				e.openPanel(name)
				break
			}
		}
	}
}

// handleDroppedFiles uploads an image dropped onto the window as the current
// panel's background.
func (e *Editor) handleDroppedFiles() {
	dropped := ebiten.DroppedFiles()
	if dropped == nil {
		return
	}
	name := e.orch.Controller().Current()
	err := fs.WalkDir(dropped, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(dropped, path)
		if err != nil {
			return err
		}
		uri, err := e.orch.Upload(name, data)
		if err != nil {
			return err
		}
		log.Printf("editor: uploaded %s as %s background (%s)", path, name, uri)
		return fs.SkipAll
	})
	if err != nil {
		e.setStatus("upload: %v", err)
		return
	}
	e.setStatus("background set on %s", name)
}

func (e *Editor) handleMouse() {
	mx, my := ebiten.CursorPosition()
	ctrl := e.orch.Controller()

	// wheel zooms around the cursor so the point under it stays put
	if _, wy := ebiten.Wheel(); wy != 0 {
		oldZoom := e.zoom()
		newZoom := oldZoom * (1 + wy*0.1)
		if newZoom < 0.2 {
			newZoom = 0.2
		}
		if newZoom > 8 {
			newZoom = 8
		}
		e.view.OX = float64(mx) - (float64(mx)-e.view.OX)*newZoom/oldZoom
		e.view.OY = float64(my) - (float64(my)-e.view.OY)*newZoom/oldZoom
		e.view.Zoom = newZoom
	}

	// right drag pans the view
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		e.panning = true
		e.lastMX, e.lastMY = mx, my
	}
	if e.panning {
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
			e.panning = false
		} else {
			e.view.OX += float64(mx - e.lastMX)
			e.view.OY += float64(my - e.lastMY)
			e.lastMX, e.lastMY = mx, my
			return
		}
	}

	cx, cy := e.view.ToDisplay(float64(mx), float64(my))

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		role, resize, ok := e.canvas.HitTest(cx, cy)
		if ok {
			e.selected = role
			e.dragging = true
			e.dragResize = resize
			e.lastMX, e.lastMY = mx, my
		} else {
			e.selected = ""
		}
		return
	}

	if !e.dragging {
		return
	}

	dx := float64(mx-e.lastMX) / e.zoom()
	dy := float64(my-e.lastMY) / e.zoom()
	e.lastMX, e.lastMY = mx, my
	if dx != 0 || dy != 0 {
		var x, y, w, h float64
		var ok bool
		if e.dragResize {
			x, y, w, h, ok = e.canvas.Nudge(e.selected, 0, 0, dx, dy)
		} else {
			x, y, w, h, ok = e.canvas.Nudge(e.selected, dx, dy, 0, 0)
		}
		if ok {
			ctrl.OnObjectModified(e.selected, x, y, w, h)
		}
	}

	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		e.dragging = false
		if obj, ok := e.canvas.Get(e.selected); ok {
			ctrl.OnObjectModificationDone(e.selected, obj.X, obj.Y, obj.Width, obj.Height)
		}
	}
}

func (e *Editor) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	e.mu.Lock()
	preview := e.preview
	e.mu.Unlock()

	if preview != nil {
		e.drawPreview(screen, preview)
	} else {
		e.canvas.Draw(screen, e.selected, e.view)
	}

	e.ui.Draw(screen)

	if status, ok := e.currentStatus(); ok {
		ebitenutil.DebugPrintAt(screen, status, leftPanelWidth+8, screen.Bounds().Dy()-20)
	}
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("%s  [%s]", e.orch.Controller().Current(), e.orch.Controller().State()),
		leftPanelWidth+8, 4)
}

func (e *Editor) drawPreview(screen *ebiten.Image, preview *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	pw, ph := preview.Bounds().Dx(), preview.Bounds().Dy()
	scale := min(float64(sw-leftPanelWidth-40)/float64(pw), float64(sh-40)/float64(ph))
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(float64(leftPanelWidth+20), 20)
	screen.DrawImage(preview, &op)
}

func (e *Editor) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
