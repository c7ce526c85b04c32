package main

import (
	"encoding/json"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/swilhoit/wrapstudio/atlas"
	"github.com/swilhoit/wrapstudio/canvassync"
)

// handleSize is the hit radius, in screen pixels, of the bottom-right resize
// handle on a selectable object.
const handleSize = 14

type canvasObject struct {
	canvassync.Object
	eimg *ebiten.Image
}

// EbitenCanvas renders the controller's layered scene and answers its Canvas
// calls. The controller mutates it from background goroutines while Draw runs
// on the game loop, so every method takes the mutex.
type EbitenCanvas struct {
	mu      sync.Mutex
	objects map[canvassync.Role]*canvasObject
	order   []canvassync.Role

	// retained keeps the last decoded pixels per role so Restore can
	// reattach images to snapshots, which carry geometry only.
	retained map[canvassync.Role]image.Image

	whiteImg *ebiten.Image
}

func NewEbitenCanvas() *EbitenCanvas {
	white := ebiten.NewImage(1, 1)
	white.Fill(color.White)
	return &EbitenCanvas{
		objects:  make(map[canvassync.Role]*canvasObject),
		retained: make(map[canvassync.Role]image.Image),
		whiteImg: white,
	}
}

func (c *EbitenCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = make(map[canvassync.Role]*canvasObject)
	c.retained = make(map[canvassync.Role]image.Image)
	c.order = nil
}

func (c *EbitenCanvas) Add(obj canvassync.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[obj.Role]; !ok {
		c.order = append(c.order, obj.Role)
	}
	c.objects[obj.Role] = &canvasObject{Object: obj}
	if obj.Image != nil {
		c.retained[obj.Role] = obj.Image
	}
}

func (c *EbitenCanvas) Has(role canvassync.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.objects[role]
	return ok
}

func (c *EbitenCanvas) Get(role canvassync.Role) (canvassync.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[role]
	if !ok {
		return canvassync.Object{}, false
	}
	return o.Object, true
}

func (c *EbitenCanvas) Remove(role canvassync.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[role]; !ok {
		return
	}
	delete(c.objects, role)
	for i, r := range c.order {
		if r == role {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *EbitenCanvas) SetVisible(role canvassync.Role, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.objects[role]; ok {
		o.Visible = visible
	}
}

func (c *EbitenCanvas) SetZOrder(roles []canvassync.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ordered := make([]canvassync.Role, 0, len(c.order))
	for _, r := range roles {
		if _, ok := c.objects[r]; ok {
			ordered = append(ordered, r)
		}
	}
	c.order = ordered
}

// snapshotObject is the serialized form of one canvas object. Pixels are not
// part of a snapshot; Restore reattaches them from the retained map.
type snapshotObject struct {
	Role       canvassync.Role `json:"role"`
	URI        string          `json:"uri,omitempty"`
	Color      string          `json:"color,omitempty"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"w"`
	Height     float64         `json:"h"`
	Selectable bool            `json:"selectable"`
	Visible    bool            `json:"visible"`
}

func (c *EbitenCanvas) Serialize() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make([]snapshotObject, 0, len(c.order))
	for _, role := range c.order {
		o := c.objects[role]
		snap = append(snap, snapshotObject{
			Role: o.Role, URI: o.URI, Color: o.Color,
			X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
			Selectable: o.Selectable, Visible: o.Visible,
		})
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("editor: serialize canvas: %v", err)
		return nil
	}
	return data
}

func (c *EbitenCanvas) Restore(data []byte) {
	var snap []snapshotObject
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("editor: restore canvas: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = make(map[canvassync.Role]*canvasObject)
	c.order = c.order[:0]
	for _, s := range snap {
		obj := canvassync.Object{
			Role: s.Role, URI: s.URI, Color: s.Color,
			X: s.X, Y: s.Y, Width: s.Width, Height: s.Height,
			Selectable: s.Selectable, Visible: s.Visible,
			Image: c.retained[s.Role],
		}
		c.objects[s.Role] = &canvasObject{Object: obj}
		c.order = append(c.order, s.Role)
	}
}

// HitTest finds the topmost selectable visible object under the cursor.
// resize reports whether the cursor sits on the bottom-right handle.
func (c *EbitenCanvas) HitTest(x, y float64) (role canvassync.Role, resize bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.order) - 1; i >= 0; i-- {
		o := c.objects[c.order[i]]
		if !o.Selectable || !o.Visible {
			continue
		}
		cornerX, cornerY := o.X+o.Width, o.Y+o.Height
		if x >= cornerX-handleSize && x <= cornerX+handleSize &&
			y >= cornerY-handleSize && y <= cornerY+handleSize {
			return o.Role, true, true
		}
		if x >= o.X && x < o.X+o.Width && y >= o.Y && y < o.Y+o.Height {
			return o.Role, false, true
		}
	}
	return "", false, false
}

// Nudge applies a delta to one object's geometry and returns the updated
// rect. The editor forwards the result to the controller, which owns the
// model sync; the canvas only keeps the picture current mid-drag.
func (c *EbitenCanvas) Nudge(role canvassync.Role, dx, dy, dw, dh float64) (x, y, w, h float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, found := c.objects[role]
	if !found {
		return 0, 0, 0, 0, false
	}
	o.X += dx
	o.Y += dy
	o.Width += dw
	o.Height += dh
	if o.Width < handleSize {
		o.Width = handleSize
	}
	if o.Height < handleSize {
		o.Height = handleSize
	}
	return o.X, o.Y, o.Width, o.Height, true
}

// View is the screen-space pan/zoom applied on top of the fixed display
// transform: screen = display*Zoom + (OX, OY).
type View struct {
	Zoom float64
	OX   float64
	OY   float64
}

// ToDisplay maps screen coordinates back into display space.
func (v View) ToDisplay(sx, sy float64) (float64, float64) {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	return (sx - v.OX) / z, (sy - v.OY) / z
}

// Draw paints the scene bottom to top under the given view.
func (c *EbitenCanvas) Draw(screen *ebiten.Image, selected canvassync.Role, view View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := view.Zoom
	if z == 0 {
		z = 1
	}
	for _, role := range c.order {
		o := c.objects[role]
		if !o.Visible {
			continue
		}
		sx, sy := o.X*z+view.OX, o.Y*z+view.OY
		sw, sh := o.Width*z, o.Height*z
		switch {
		case role == canvassync.RoleFill:
			c.drawRect(screen, sx, sy, sw, sh, atlas.ParseHexColor(o.Color))
		case role == canvassync.RoleBorder:
			c.strokeRect(screen, sx, sy, sw, sh, 2, borderColor)
		case o.Image != nil:
			if o.eimg == nil {
				o.eimg = ebiten.NewImageFromImage(o.Image)
			}
			var op ebiten.DrawImageOptions
			bounds := o.eimg.Bounds()
			op.GeoM.Scale(sw/float64(bounds.Dx()), sh/float64(bounds.Dy()))
			op.GeoM.Translate(sx, sy)
			screen.DrawImage(o.eimg, &op)
		}
	}
	if sel, ok := c.objects[selected]; ok && sel.Visible {
		sx, sy := sel.X*z+view.OX, sel.Y*z+view.OY
		sw, sh := sel.Width*z, sel.Height*z
		c.strokeRect(screen, sx, sy, sw, sh, 1, selectionColor)
		c.drawRect(screen, sx+sw-handleSize/2, sy+sh-handleSize/2,
			handleSize, handleSize, selectionColor)
	}
}

func (c *EbitenCanvas) drawRect(dst *ebiten.Image, x, y, w, h float64, col color.RGBA) {
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(col)
	dst.DrawImage(c.whiteImg, &op)
}

func (c *EbitenCanvas) strokeRect(dst *ebiten.Image, x, y, w, h, thick float64, col color.RGBA) {
	c.drawRect(dst, x, y, w, thick, col)
	c.drawRect(dst, x, y+h-thick, w, thick, col)
	c.drawRect(dst, x, y, thick, h, col)
	c.drawRect(dst, x+w-thick, y, thick, h, col)
}
