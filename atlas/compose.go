package atlas

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	xdraw "golang.org/x/image/draw"

	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
)

// Loader resolves an image URI. *imagecache.Cache satisfies it.
type Loader interface {
	Load(ctx context.Context, uri string) (*imagecache.Handle, error)
}

// AssetSource supplies the fixed overlay art. *assets.Library satisfies it.
type AssetSource interface {
	Overlay(name panel.Name, v panel.Variant) image.Image
}

// Result is a composed atlas plus the panels whose layers could not be
// resolved. A failed panel is still present in the atlas, just without the
// layer that failed.
type Result struct {
	Image  *image.RGBA
	Layout Layout
	Failed map[panel.Name]error
}

// Compose renders all six panels into one atlas bitmap. Each panel is drawn
// at native size (color fill, then background image, then logo, then overlay
// art) and scaled into its normalized cell. A single panel's decode failure
// never aborts the others.
func Compose(ctx context.Context, panels map[panel.Name]panel.Panel, loader Loader, assetLib AssetSource) (*Result, error) {
	layout := Compute(panels)
	if layout.MaxWidth <= 0 || layout.AtlasHeight <= 0 {
		return nil, fmt.Errorf("atlas: degenerate layout %dx%d", layout.MaxWidth, layout.AtlasHeight)
	}

	out := image.NewRGBA(image.Rect(0, 0, layout.MaxWidth, layout.AtlasHeight))
	res := &Result{Image: out, Layout: layout, Failed: make(map[panel.Name]error)}

	for _, name := range panel.Order() {
		p, ok := panels[name]
		if !ok {
			continue
		}
		cell, err := renderPanel(ctx, &p, loader, assetLib)
		if err != nil {
			log.Printf("atlas: panel %s: %v", name, err)
			res.Failed[name] = err
		}
		if cell == nil {
			continue
		}
		dst := image.Rect(0, layout.Offsets[name], layout.MaxWidth, layout.Offsets[name]+layout.Heights[name])
		xdraw.CatmullRom.Scale(out, dst, cell, cell.Bounds(), xdraw.Over, nil)
	}
	return res, nil
}

// renderPanel flattens one panel into a native-size bitmap. The returned
// error covers a skipped layer; the bitmap is still valid best-effort.
func renderPanel(ctx context.Context, p *panel.Panel, loader Loader, assetLib AssetSource) (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid native size %dx%d", p.Width, p.Height)
	}
	cell := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))

	var firstErr error
	if p.BackgroundColor != "" {
		fill(cell, ParseHexColor(p.BackgroundColor))
	}
	if p.BackgroundImage != nil {
		if img, err := load(ctx, loader, p.BackgroundImage.URI); err != nil {
			firstErr = fmt.Errorf("background %q: %w", p.BackgroundImage.URI, err)
		} else {
			drawLayer(cell, img, p.BackgroundImage, true)
		}
	}
	if p.Logo != nil {
		if img, err := load(ctx, loader, p.Logo.URI); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("logo %q: %w", p.Logo.URI, err)
			}
		} else {
			drawLayer(cell, img, p.Logo, false)
		}
	}
	if p.LogoOverlay != nil && p.LogoOverlay.Enabled && assetLib != nil {
		// overlay art paints above the logo, stretched across the cell
		if overlay := assetLib.Overlay(p.Name, p.LogoOverlay.Variant); overlay != nil {
			xdraw.ApproxBiLinear.Scale(cell, cell.Bounds(), overlay, overlay.Bounds(), xdraw.Over, nil)
		}
	}
	return cell, firstErr
}

func load(ctx context.Context, loader Loader, uri string) (image.Image, error) {
	h, err := loader.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return h.Image, nil
}

// drawLayer places img at the layer's stored panel-space rectangle. The
// stored width/height are honored exactly; a layer with no stored geometry
// is cover-scaled across the whole cell (cover keeps aspect ratio and crops
// the overflow).
func drawLayer(dst *image.RGBA, img image.Image, l *panel.Layer, cover bool) {
	if img == nil {
		return
	}
	if l.Width <= 0 || l.Height <= 0 {
		if cover {
			drawCover(dst, img)
		} else {
			b := img.Bounds()
			r := image.Rect(int(l.X), int(l.Y), int(l.X)+b.Dx(), int(l.Y)+b.Dy())
			xdraw.CatmullRom.Scale(dst, r, img, b, xdraw.Over, nil)
		}
		return
	}
	r := image.Rect(int(l.X), int(l.Y), int(l.X+l.Width), int(l.Y+l.Height))
	xdraw.CatmullRom.Scale(dst, r, img, img.Bounds(), xdraw.Over, nil)
}

// drawCover scales img so it fully covers dst while keeping its aspect
// ratio, cropping whatever overflows.
func drawCover(dst *image.RGBA, img image.Image) {
	db := dst.Bounds()
	sb := img.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	sx := float64(db.Dx()) / float64(sb.Dx())
	sy := float64(db.Dy()) / float64(sb.Dy())
	scale := sx
	if sy > sx {
		scale = sy
	}
	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	x := (db.Dx() - w) / 2
	y := (db.Dy() - h) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), img, sb, xdraw.Over, nil)
}

func fill(dst *image.RGBA, c color.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
}

// ParseHexColor parses "#rrggbb". Returns opaque white if parse fails.
func ParseHexColor(s string) color.RGBA {
	var r, g, b uint8 = 0xff, 0xff, 0xff
	if len(s) == 7 && s[0] == '#' {
		var ri, gi, bi uint32
		if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &ri, &gi, &bi); err == nil {
			r = uint8(ri)
			g = uint8(gi)
			b = uint8(bi)
		}
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
