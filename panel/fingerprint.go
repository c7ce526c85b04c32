package panel

import (
	"fmt"
	"hash/fnv"
)

// ContentFingerprint hashes a panel's non-geometric fields: background image
// identity, background color, and logo identity. A changed content
// fingerprint means new content arrived; an unchanged one means any edit was
// a pure move/resize. Display-only flags (overlay/guide toggles) are
// deliberately excluded so toggling them never looks like new content.
func ContentFingerprint(p *Panel) uint64 {
	h := fnv.New64a()
	if p == nil {
		return h.Sum64()
	}
	fmt.Fprintf(h, "color=%s;", p.BackgroundColor)
	if p.BackgroundImage != nil {
		fmt.Fprintf(h, "bg=%s;", p.BackgroundImage.URI)
	}
	if p.Logo != nil {
		fmt.Fprintf(h, "logo=%s;", p.Logo.URI)
	}
	return h.Sum64()
}

// GeometryFingerprint hashes the positions and sizes of the panel's layers.
func GeometryFingerprint(p *Panel) uint64 {
	h := fnv.New64a()
	if p == nil {
		return h.Sum64()
	}
	if p.BackgroundImage != nil {
		l := p.BackgroundImage
		fmt.Fprintf(h, "bg=%g,%g,%g,%g;", l.X, l.Y, l.Width, l.Height)
	}
	if p.Logo != nil {
		l := p.Logo
		fmt.Fprintf(h, "logo=%g,%g,%g,%g;", l.X, l.Y, l.Width, l.Height)
	}
	return h.Sum64()
}
