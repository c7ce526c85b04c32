package atlas

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
)

func testPanels(t *testing.T) map[panel.Name]panel.Panel {
	t.Helper()
	s, err := panel.NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return s.Snapshot()
}

type fakeLoader struct {
	images map[string]image.Image
	fail   map[string]bool
}

func (f *fakeLoader) Load(ctx context.Context, uri string) (*imagecache.Handle, error) {
	if f.fail[uri] {
		return nil, errors.New("decode failed")
	}
	img, ok := f.images[uri]
	if !ok {
		return nil, errors.New("not found")
	}
	return &imagecache.Handle{URI: uri, Image: img}, nil
}

type fakeAssets struct {
	overlay image.Image
}

func (f *fakeAssets) Overlay(name panel.Name, v panel.Variant) image.Image {
	return f.overlay
}

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestComputeLayoutScenario(t *testing.T) {
	panels := testPanels(t)
	l := Compute(panels)

	if l.MaxWidth != 2192 {
		t.Fatalf("MaxWidth = %d, want 2192", l.MaxWidth)
	}
	// ceil(2192*1278/2190) = ceil(1279.17) = 1280
	if l.Heights[panel.Right] != 1280 {
		t.Fatalf("normalized RIGHT height = %d, want 1280", l.Heights[panel.Right])
	}
	if l.Offsets[panel.Right] != 0 {
		t.Fatalf("RIGHT offset = %d, want 0", l.Offsets[panel.Right])
	}

	// offsets strictly increase in canonical order and sum to AtlasHeight
	prev := -1
	total := 0
	for _, name := range panel.Order() {
		off := l.Offsets[name]
		if off <= prev {
			t.Fatalf("offset for %s (%d) not monotonically increasing (prev %d)", name, off, prev)
		}
		prev = off
		total += l.Heights[name]
	}
	if total != l.AtlasHeight {
		t.Fatalf("sum of heights %d != AtlasHeight %d", total, l.AtlasHeight)
	}
	for _, name := range panel.Order() {
		want := l.Offsets[name] + l.Heights[name]
		next := nextOffset(l, name)
		if next >= 0 && next != want {
			t.Fatalf("%s cell [%d,%d) does not abut next offset %d", name, l.Offsets[name], want, next)
		}
	}
}

func nextOffset(l Layout, name panel.Name) int {
	order := panel.Order()
	for i, n := range order {
		if n == name {
			if i+1 < len(order) {
				return l.Offsets[order[i+1]]
			}
			return -1
		}
	}
	return -1
}

func TestSliceRoundTrip(t *testing.T) {
	panels := testPanels(t)
	l := Compute(panels)

	atlasImg := image.NewRGBA(image.Rect(0, 0, l.MaxWidth, l.AtlasHeight))
	sliced, err := Slice(atlasImg, panels)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(sliced) != 6 {
		t.Fatalf("expected 6 slices, got %d", len(sliced))
	}
	for name, p := range panels {
		img := sliced[name]
		if img == nil {
			t.Fatalf("missing slice for %s", name)
		}
		if img.Bounds().Dx() != p.Width || img.Bounds().Dy() != p.Height {
			t.Fatalf("%s slice is %dx%d, want native %dx%d",
				name, img.Bounds().Dx(), img.Bounds().Dy(), p.Width, p.Height)
		}
	}
}

func TestSliceRecoversCellContent(t *testing.T) {
	panels := testPanels(t)
	l := Compute(panels)

	// paint RIGHT's cell red and LID's cell blue, leave the rest black
	atlasImg := image.NewRGBA(image.Rect(0, 0, l.MaxWidth, l.AtlasHeight))
	red := color.RGBA{R: 0xff, A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}
	paint := func(name panel.Name, c color.RGBA) {
		y0 := l.Offsets[name]
		for y := y0; y < y0+l.Heights[name]; y++ {
			for x := 0; x < l.MaxWidth; x++ {
				atlasImg.SetRGBA(x, y, c)
			}
		}
	}
	paint(panel.Right, red)
	paint(panel.Lid, blue)

	sliced, err := Slice(atlasImg, panels)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	checkCenter := func(name panel.Name, want color.RGBA) {
		img := sliced[name]
		got := img.RGBAAt(img.Bounds().Dx()/2, img.Bounds().Dy()/2)
		if got != want {
			t.Fatalf("%s center = %v, want %v", name, got, want)
		}
	}
	checkCenter(panel.Right, red)
	checkCenter(panel.Lid, blue)
	checkCenter(panel.Front, color.RGBA{})
}

func TestComposeColorAndLogo(t *testing.T) {
	panels := testPanels(t)
	for name, p := range panels {
		p.BackgroundColor = "#336699"
		panels[name] = p
	}
	right := panels[panel.Right]
	right.Logo = &panel.Layer{URI: "img://logo", X: 0, Y: 0, Width: 400, Height: 400}
	panels[panel.Right] = right

	loader := &fakeLoader{images: map[string]image.Image{
		"img://logo": solidImage(10, 10, color.RGBA{R: 0xff, A: 0xff}),
	}}

	res, err := Compose(context.Background(), panels, loader, nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	b := res.Image.Bounds()
	if b.Dx() != res.Layout.MaxWidth || b.Dy() != res.Layout.AtlasHeight {
		t.Fatalf("atlas is %dx%d, want %dx%d", b.Dx(), b.Dy(), res.Layout.MaxWidth, res.Layout.AtlasHeight)
	}

	// background color shows in an area away from the logo
	got := res.Image.RGBAAt(res.Layout.MaxWidth-10, res.Layout.Offsets[panel.Right]+res.Layout.Heights[panel.Right]/2)
	want := ParseHexColor("#336699")
	if got != want {
		t.Fatalf("background pixel = %v, want %v", got, want)
	}
	// logo shows near the panel origin
	got = res.Image.RGBAAt(50, res.Layout.Offsets[panel.Right]+50)
	if got.R < 0x80 || got.B > 0x80 {
		t.Fatalf("logo pixel = %v, expected red-dominant", got)
	}
}

func TestComposeSingleFailureDoesNotAbort(t *testing.T) {
	panels := testPanels(t)
	for name, p := range panels {
		p.BackgroundColor = "#222222"
		panels[name] = p
	}
	back := panels[panel.Back]
	back.BackgroundImage = &panel.Layer{URI: "img://broken"}
	panels[panel.Back] = back

	loader := &fakeLoader{fail: map[string]bool{"img://broken": true}}
	res, err := Compose(context.Background(), panels, loader, nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want exactly BACK", res.Failed)
	}
	if _, ok := res.Failed[panel.Back]; !ok {
		t.Fatalf("BACK not flagged: %v", res.Failed)
	}
	// the failing panel still got its color fill
	got := res.Image.RGBAAt(10, res.Layout.Offsets[panel.Back]+10)
	if got != ParseHexColor("#222222") {
		t.Fatalf("failed panel lost its color fill: %v", got)
	}
}

func TestComposeOverlayPaintsAboveLogo(t *testing.T) {
	panels := testPanels(t)
	right := panels[panel.Right]
	right.BackgroundColor = "#000000"
	right.Logo = &panel.Layer{URI: "img://logo", X: 0, Y: 0, Width: 2190, Height: 1278}
	right.LogoOverlay = &panel.Overlay{Enabled: true, Variant: panel.VariantPrimary}
	panels[panel.Right] = right
	for name, p := range panels {
		if p.BackgroundColor == "" {
			p.BackgroundColor = "#000000"
			panels[name] = p
		}
	}

	loader := &fakeLoader{images: map[string]image.Image{
		"img://logo": solidImage(8, 8, color.RGBA{R: 0xff, A: 0xff}),
	}}
	green := solidImage(8, 8, color.RGBA{G: 0xff, A: 0xff})

	res, err := Compose(context.Background(), panels, loader, &fakeAssets{overlay: green})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	got := res.Image.RGBAAt(res.Layout.MaxWidth/2, res.Layout.Offsets[panel.Right]+res.Layout.Heights[panel.Right]/2)
	if got.G < 0x80 {
		t.Fatalf("overlay did not paint above logo: %v", got)
	}
}
