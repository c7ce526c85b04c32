// Package atlas stitches the six wrap panels into one vertically stacked
// texture and can invert that placement to slice an imported atlas back into
// per-panel images. The layout math is pure; compositing is failure-tolerant
// per panel.
package atlas

import (
	"math"

	"github.com/swilhoit/wrapstudio/panel"
)

// Layout describes where every panel lands inside the combined atlas. All
// panels are conceptually scaled to the widest panel's width, preserving
// their own aspect ratio, and stacked in canonical order.
type Layout struct {
	MaxWidth    int
	Heights     map[panel.Name]int // normalized height per panel
	Offsets     map[panel.Name]int // y offset per panel, canonical order
	AtlasHeight int
}

// Compute derives the layout from the panels' native template sizes.
func Compute(panels map[panel.Name]panel.Panel) Layout {
	l := Layout{
		Heights: make(map[panel.Name]int, len(panels)),
		Offsets: make(map[panel.Name]int, len(panels)),
	}
	for _, p := range panels {
		if p.Width > l.MaxWidth {
			l.MaxWidth = p.Width
		}
	}
	y := 0
	for _, name := range panel.Order() {
		p, ok := panels[name]
		if !ok || p.Width <= 0 {
			continue
		}
		// round up so a panel cell never loses a row to truncation; panels
		// already at MaxWidth keep their exact native height
		h := int(math.Ceil(float64(l.MaxWidth) * float64(p.Height) / float64(p.Width)))
		l.Heights[name] = h
		l.Offsets[name] = y
		y += h
	}
	l.AtlasHeight = y
	return l
}
