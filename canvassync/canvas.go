// Package canvassync keeps one interactive editing canvas in two-way sync
// with the declarative panel model: model content flows onto the canvas as
// layered objects, user-driven geometry edits flow back as panel updates,
// and a bounded snapshot history drives undo/redo. The canvas itself is an
// injected capability so the controller is testable without a graphics
// backend.
package canvassync

import "image"

// Role names a slot on the canvas. At most one object exists per role.
type Role string

const (
	RoleFill       Role = "fill"       // background color rectangle, not selectable
	RoleBorder     Role = "border"     // panel frame, not selectable
	RoleBackground Role = "background" // user background image
	RoleLogo       Role = "logo"       // user logo
	RoleOverlay    Role = "overlay"    // fixed decorative art
	RoleMask       Role = "mask"       // fixed mask art
	RoleGuide      Role = "guide"      // cutline guide art
)

// ZOrder is the fixed draw order, bottom to top. Insertions re-assert it so
// the order never depends on which async decode finished first.
func ZOrder() []Role {
	return []Role{RoleFill, RoleBorder, RoleBackground, RoleLogo, RoleOverlay, RoleMask, RoleGuide}
}

// Object is one canvas layer. Geometry is in display space; Image carries
// the decoded pixels (nil for the color fill and border).
type Object struct {
	Role       Role
	URI        string
	Color      string
	Image      image.Image
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Selectable bool
	Visible    bool
}

// Canvas is the imperative interactive-canvas capability the controller
// drives. Implementations: the ebiten canvas in cmd/editor, a fake in tests.
type Canvas interface {
	// Clear removes every object.
	Clear()
	// Add inserts obj under its role. Adding an existing role replaces it.
	Add(obj Object)
	// Has reports whether an object with the role exists.
	Has(role Role) bool
	// Get returns the object for the role.
	Get(role Role) (Object, bool)
	// Remove deletes the role's object if present.
	Remove(role Role)
	// SetVisible shows or hides one role in place.
	SetVisible(role Role, visible bool)
	// SetZOrder re-stacks existing objects into the given bottom-to-top order.
	SetZOrder(roles []Role)
	// Serialize captures the scene for undo history.
	Serialize() []byte
	// Restore replaces the scene from a Serialize payload.
	Restore(data []byte)
}

// Transform converts between display space and a panel's native pixel
// space: display = native*Scale + Margin.
type Transform struct {
	Margin float64
	Scale  float64
}

// ToNative maps a display-space rectangle into native panel space by
// subtracting the fixed margin and dividing by the display scale.
func (t Transform) ToNative(x, y, w, h float64) (float64, float64, float64, float64) {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return (x - t.Margin) / s, (y - t.Margin) / s, w / s, h / s
}

// ToDisplay maps a native-space rectangle into display space.
func (t Transform) ToDisplay(x, y, w, h float64) (float64, float64, float64, float64) {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return x*s + t.Margin, y*s + t.Margin, w * s, h * s
}
