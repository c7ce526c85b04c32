package atlas

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/swilhoit/wrapstudio/panel"
)

// Slice is the geometric inverse of Compose's placement: it cuts an
// externally supplied atlas back into per-panel images at each panel's
// native size. Content is lossily re-sampled; only the placement inverts
// exactly.
func Slice(atlasImg image.Image, panels map[panel.Name]panel.Panel) (map[panel.Name]*image.RGBA, error) {
	if atlasImg == nil {
		return nil, fmt.Errorf("atlas: nil source image")
	}
	layout := Compute(panels)
	if layout.AtlasHeight <= 0 {
		return nil, fmt.Errorf("atlas: degenerate layout")
	}

	b := atlasImg.Bounds()
	scaleY := float64(b.Dy()) / float64(layout.AtlasHeight)

	out := make(map[panel.Name]*image.RGBA, len(panels))
	for _, name := range panel.Order() {
		p, ok := panels[name]
		if !ok {
			continue
		}
		srcY := b.Min.Y + int(math.Round(float64(layout.Offsets[name])*scaleY))
		srcH := int(math.Round(float64(layout.Heights[name]) * scaleY))
		src := image.Rect(b.Min.X, srcY, b.Max.X, srcY+srcH)

		dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), atlasImg, src, xdraw.Src, nil)
		out[name] = dst
	}
	return out, nil
}
