package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swilhoit/wrapstudio/panel"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitChange(t *testing.T, w *Watcher, path string) Change {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c, ok := <-w.Events:
			if !ok {
				t.Fatalf("events closed while waiting for %s", path)
			}
			if c.Path == path {
				return c
			}
		case <-deadline:
			t.Fatalf("no change delivered for %s", path)
		}
	}
}

func TestWatcherDeliversImageChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(nil, time.Millisecond, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	imgPath := filepath.Join(dir, "side.png")
	writePNG(t, imgPath, 2, 2)
	waitChange(t, w, imgPath)

	// non-image files are filtered out
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case c, ok := <-w.Events:
		if ok {
			t.Fatalf("unexpected change for non-image: %+v", c)
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherInvalidatesLibraryOverrides(t *testing.T) {
	dir := t.TempDir()
	guidePath := filepath.Join(dir, "guides", "right.png")
	writePNG(t, guidePath, 3, 3)

	lib := NewLibrary(dir)
	if img := lib.Guide(panel.Right); img == nil || img.Bounds().Dx() != 3 {
		t.Fatalf("override guide not picked up: %v", img)
	}

	w, err := NewWatcher(lib, time.Millisecond, filepath.Join(dir, "guides"))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	time.Sleep(20 * time.Millisecond) // past the debounce window
	writePNG(t, guidePath, 5, 5)
	waitChange(t, w, guidePath)

	if img := lib.Guide(panel.Right); img == nil || img.Bounds().Dx() != 5 {
		t.Fatalf("library cache not invalidated, guide = %v", img)
	}
}

func TestWatcherCloseDrainsCleanly(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(nil, time.Millisecond, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	// more events than the channel buffers, so a blocked send must yield to
	// Close instead of panicking on a closed channel
	for i := 0; i < 40; i++ {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("img%02d.png", i)), 1, 1)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed")
		}
	}
}
