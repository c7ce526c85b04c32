// Command export renders a saved wrap project without opening the editor:
// it composites the print atlas to a PNG and writes a proof sheet PDF with
// the panel inventory and a QR code carrying the design id.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"github.com/swilhoit/wrapstudio/assets"
	"github.com/swilhoit/wrapstudio/atlas"
	"github.com/swilhoit/wrapstudio/imagecache"
	"github.com/swilhoit/wrapstudio/panel"
	"github.com/swilhoit/wrapstudio/session"
)

func main() {
	projectPath := flag.String("project", "wrap_project.yaml", "project file to export")
	outDir := flag.String("out", ".", "output directory")
	flag.Parse()

	if err := run(*projectPath, *outDir); err != nil {
		log.Fatalf("export: %v", err)
	}
}

func run(projectPath, outDir string) error {
	cache := imagecache.New(imagecache.DecodeURI)
	defer cache.Close()

	orch, err := session.New(cache, assets.NewLibrary())
	if err != nil {
		return err
	}
	defer orch.Close()

	if err := orch.LoadProject(projectPath); err != nil {
		return fmt.Errorf("load project %s: %w", projectPath, err)
	}

	res, err := orch.Finalize(context.Background())
	if err != nil {
		return err
	}
	for name, ferr := range res.Failed {
		log.Printf("export: %s rendered without its image layers: %v", name, ferr)
	}

	var atlasPNG bytes.Buffer
	if err := png.Encode(&atlasPNG, res.Image); err != nil {
		return fmt.Errorf("encode atlas: %w", err)
	}
	atlasPath := filepath.Join(outDir, "atlas.png")
	if err := os.WriteFile(atlasPath, atlasPNG.Bytes(), 0o644); err != nil {
		return err
	}
	log.Printf("export: wrote %s (%dx%d)", atlasPath, res.Image.Bounds().Dx(), res.Image.Bounds().Dy())

	proofPath := filepath.Join(outDir, "proof.pdf")
	if err := writeProofSheet(proofPath, orch, res, atlasPNG.Bytes()); err != nil {
		return fmt.Errorf("proof sheet: %w", err)
	}
	log.Printf("export: wrote %s", proofPath)
	return nil
}

// writeProofSheet lays out a single A4 page: header with the design id and
// its QR code, the scaled atlas, and a per-panel inventory table.
func writeProofSheet(path string, orch *session.Orchestrator, res *atlas.Result, atlasPNG []byte) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(120, 10, "Wrap Proof Sheet")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(120, 6, "Design "+orch.DesignID)

	qr, err := qrcode.Encode(orch.DesignID, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 170, 10, 28, 28, false, opts, 0, "")

	// atlas, fit to a 120mm column under the header
	pdf.RegisterImageOptionsReader("atlas", opts, bytes.NewReader(atlasPNG))
	atlasW := 120.0
	atlasH := atlasW * float64(res.Image.Bounds().Dy()) / float64(res.Image.Bounds().Dx())
	pdf.ImageOptions("atlas", 10, 45, atlasW, atlasH, false, opts, 0, "")

	// panel inventory on the right
	x, y := 140.0, 45.0
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(x, y)
	pdf.Cell(60, 6, "Panels")
	y += 7
	pdf.SetFont("Helvetica", "", 9)
	panels := orch.Store().Snapshot()
	for _, name := range panel.Order() {
		p := panels[name]
		line := fmt.Sprintf("%s  %dx%d", name, p.Width, p.Height)
		if _, failed := res.Failed[name]; failed {
			line += "  (degraded)"
		}
		if p.Logo != nil {
			line += "  +logo"
		}
		if p.LogoOverlay != nil && p.LogoOverlay.Enabled {
			line += fmt.Sprintf("  +overlay/%s", p.LogoOverlay.Variant)
		}
		pdf.SetXY(x, y)
		pdf.Cell(60, 5, line)
		y += 6
	}

	// one page per panel, sliced back out of the composed atlas
	cells, err := atlas.Slice(res.Image, panels)
	if err != nil {
		return fmt.Errorf("slice atlas: %w", err)
	}
	for _, name := range panel.Order() {
		cell, ok := cells[name]
		if !ok {
			continue
		}
		var cellPNG bytes.Buffer
		if err := png.Encode(&cellPNG, cell); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(120, 8, fmt.Sprintf("%s  %dx%d px", name, cell.Bounds().Dx(), cell.Bounds().Dy()))
		imgName := "panel-" + string(name)
		pdf.RegisterImageOptionsReader(imgName, opts, &cellPNG)
		w := 180.0
		h := w * float64(cell.Bounds().Dy()) / float64(cell.Bounds().Dx())
		pdf.ImageOptions(imgName, 15, 25, w, h, false, opts, 0, "")
	}

	return pdf.OutputFileAndClose(path)
}
