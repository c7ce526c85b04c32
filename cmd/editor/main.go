package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/swilhoit/wrapstudio/assets"
	"github.com/swilhoit/wrapstudio/canvassync"
	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/session"
	"golang.design/x/clipboard"
)

const (
	windowWidth  = 1280
	windowHeight = 800
	canvasMargin = 40
)

func main() {
	projectPath := flag.String("project", "wrap_project.yaml", "project file to load and save")
	metaPath := flag.String("meta", "wrapstudio_meta.db", "metadata store path")
	watchDir := flag.String("watch", "", "optional asset override directory, reloaded on change")
	flag.Parse()

	if err := clipboard.Init(); err != nil {
		log.Printf("editor: clipboard unavailable: %v", err)
	} else {
		clipboardOK = true
	}

	cache := imagecache.New(imagecache.DecodeURI)
	defer cache.Close()

	meta, err := imagecache.OpenMetaStore(*metaPath)
	if err != nil {
		log.Fatalf("editor: open metadata store: %v", err)
	}
	defer meta.Close()
	if err := meta.Put("last_project", []byte(*projectPath), 30*24*time.Hour); err != nil {
		log.Printf("editor: record last project: %v", err)
	}

	var overrides []string
	if *watchDir != "" {
		overrides = append(overrides, *watchDir)
	}
	lib := assets.NewLibrary(overrides...)

	orch, err := session.New(cache, lib)
	if err != nil {
		log.Fatalf("editor: start session: %v", err)
	}
	defer orch.Close()

	if _, err := os.Stat(*projectPath); err == nil {
		if err := orch.LoadProject(*projectPath); err != nil {
			log.Fatalf("editor: load project %s: %v", *projectPath, err)
		}
		log.Printf("editor: loaded project %s", *projectPath)
	}

	canvas := NewEbitenCanvas()
	if err := orch.AttachCanvas(canvas, displayTransform(orch)); err != nil {
		log.Fatalf("editor: attach canvas: %v", err)
	}

	if *watchDir != "" {
		watcher, err := assets.NewWatcher(lib, 0, *watchDir)
		if err != nil {
			log.Fatalf("editor: watch %s: %v", *watchDir, err)
		}
		defer watcher.Close()
		go func() {
			for change := range watcher.Events {
				log.Printf("editor: asset override changed: %s (removed=%v)", change.Path, change.Removed)
			}
		}()
	}

	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("Wrap Studio")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(NewEditor(orch, canvas, *projectPath)); err != nil {
		log.Fatal(err)
	}
}

// displayTransform fits the largest panel template into the area right of
// the side panel with a fixed margin.
func displayTransform(orch *session.Orchestrator) canvassync.Transform {
	maxW, maxH := 1, 1
	for _, p := range orch.Store().Snapshot() {
		if p.Width > maxW {
			maxW = p.Width
		}
		if p.Height > maxH {
			maxH = p.Height
		}
	}
	// one shared margin on both axes, large enough to clear the side panel
	margin := float64(leftPanelWidth + canvasMargin)
	availW := windowWidth - margin - canvasMargin
	availH := windowHeight - margin - canvasMargin
	scale := min(availW/float64(maxW), availH/float64(maxH))
	return canvassync.Transform{Margin: margin, Scale: scale}
}
