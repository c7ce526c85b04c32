package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
)

func newTestSession(t *testing.T) *Orchestrator {
	t.Helper()
	cache := imagecache.New(func(ctx context.Context, uri string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	})
	t.Cleanup(cache.Close)
	o, err := New(cache, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadSetsBackground(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	uri, err := o.Upload(panel.Front, pngBytes(t, 16, 16, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	p, _ := o.Store().Get(panel.Front)
	if p.BackgroundImage == nil || p.BackgroundImage.URI != uri {
		t.Fatalf("background = %+v, want uri %s", p.BackgroundImage, uri)
	}
	if h := o.Store(); h == nil {
		t.Fatal("store missing")
	}
	if !p.Complete() {
		t.Fatalf("panel with uploaded background should be complete")
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()
	if _, err := o.Upload(panel.Front, []byte("not an image")); err == nil {
		t.Fatalf("garbage upload should fail")
	}
}

func TestFinalizeGate(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	if _, err := o.Finalize(context.Background()); err != ErrIncomplete {
		t.Fatalf("Finalize on empty panels = %v, want ErrIncomplete", err)
	}

	for _, name := range panel.Order() {
		if err := o.SetColor(name, "#204060"); err != nil {
			t.Fatalf("SetColor %s: %v", name, err)
		}
	}
	res, err := o.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Image == nil || len(res.Failed) != 0 {
		t.Fatalf("unexpected result: failed=%v", res.Failed)
	}
	if res.Layout.MaxWidth != 2192 {
		t.Fatalf("layout width = %d, want 2192", res.Layout.MaxWidth)
	}
}

func TestImportAtlasRoundTrip(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	for _, name := range panel.Order() {
		if err := o.SetColor(name, "#a0b0c0"); err != nil {
			t.Fatalf("SetColor: %v", err)
		}
	}
	res, err := o.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := o.ImportAtlas(res.Image); err != nil {
		t.Fatalf("ImportAtlas: %v", err)
	}
	for _, name := range panel.Order() {
		p, _ := o.Store().Get(name)
		if p.BackgroundImage == nil {
			t.Fatalf("%s has no recovered background", name)
		}
		h, err := o.cache.Load(context.Background(), p.BackgroundImage.URI)
		if err != nil {
			t.Fatalf("recovered cell not cached: %v", err)
		}
		b := h.Image.Bounds()
		if b.Dx() != p.Width || b.Dy() != p.Height {
			t.Fatalf("%s recovered cell is %dx%d, want native %dx%d", name, b.Dx(), b.Dy(), p.Width, p.Height)
		}
	}
}

func TestGeneratedAssetGracePeriod(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	if err := o.ApplyGenerated(panel.Back, "gen://pending-save"); err != nil {
		t.Fatalf("ApplyGenerated: %v", err)
	}
	// the asset does not exist anywhere yet, but was just generated
	if missing := o.MissingAssets(); len(missing) != 0 {
		t.Fatalf("fresh generated asset flagged missing: %v", missing)
	}
}

func TestProjectSaveLoadRoundTrip(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	o.SetLinked(true)
	if err := o.SetColor(panel.Lid, "#ff8800"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	if err := o.SetLogo(panel.Front, panel.Layer{URI: "img://logo", X: 12, Y: 34, Width: 300, Height: 150}); err != nil {
		t.Fatalf("SetLogo: %v", err)
	}
	if err := o.ToggleOverlay(panel.Right, true, panel.VariantSecondary); err != nil {
		t.Fatalf("ToggleOverlay: %v", err)
	}

	path := filepath.Join(t.TempDir(), "design.yaml")
	if err := o.SaveProject(path); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}

	other := newTestSession(t)
	defer other.Close()
	if err := other.LoadProject(path); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}

	if other.DesignID != o.DesignID {
		t.Fatalf("design id %q != %q", other.DesignID, o.DesignID)
	}
	if !other.Store().Set().Linked() {
		t.Fatalf("linked flag lost")
	}
	lid, _ := other.Store().Get(panel.Lid)
	if lid.BackgroundColor != "#ff8800" {
		t.Fatalf("lid color = %q", lid.BackgroundColor)
	}
	front, _ := other.Store().Get(panel.Front)
	if front.Logo == nil || front.Logo.X != 12 || front.Logo.Width != 300 {
		t.Fatalf("front logo = %+v", front.Logo)
	}
	right, _ := other.Store().Get(panel.Right)
	if right.LogoOverlay == nil || !right.LogoOverlay.Enabled || right.LogoOverlay.Variant != panel.VariantSecondary {
		t.Fatalf("right overlay = %+v", right.LogoOverlay)
	}
}

func TestClearResetsPanel(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	if _, err := o.Upload(panel.Back, pngBytes(t, 8, 8, color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := o.Clear(panel.Back); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	p, _ := o.Store().Get(panel.Back)
	if p.Complete() {
		t.Fatalf("cleared panel should be incomplete: %+v", p)
	}
	if p.Width != 2192 || p.Height != 1248 {
		t.Fatalf("clear must keep template size, got %dx%d", p.Width, p.Height)
	}
}

func TestOverlayToggleSkipsUnmappedPanel(t *testing.T) {
	o := newTestSession(t)
	defer o.Close()

	// LID has no overlay art mapped; the toggle is a silent no-op
	if err := o.ToggleOverlay(panel.Lid, true, panel.VariantPrimary); err != nil {
		t.Fatalf("ToggleOverlay: %v", err)
	}
	p, _ := o.Store().Get(panel.Lid)
	if p.LogoOverlay != nil {
		t.Fatalf("unmapped overlay should not be stored: %+v", p.LogoOverlay)
	}
}
