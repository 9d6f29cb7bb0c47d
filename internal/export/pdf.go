// Package export renders a scene to a printable battle map. Sprites are
// drawn bottom layer first so the page stacks the way the table renders.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"

	"tableslate/server/internal/scene"
)

const cellMM = 6.0

// PDF writes a one-page rendering of the scene. Hidden layers are
// skipped; locked layers still print.
func PDF(w io.Writer, s *scene.Scene) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.AddPage()
	p.SetTitle(s.Title, true)

	pageW, pageH := p.GetPageSize()
	left, top, right, bottom := p.GetMargins()
	availW := pageW - left - right
	availH := pageH - top - bottom

	scale := cellMM
	if need := float64(s.W) * scale; need > availW {
		scale = availW / float64(s.W)
	}
	if need := float64(s.H) * scale; need > availH {
		scale = availH / float64(s.H)
	}

	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(0, 8, s.Title, "", 1, "L", false, 0, "")
	top += 10

	drawGrid(p, s, left, top, scale)

	// Layers slice is ordered top first; walk it backwards.
	for i := len(s.Layers) - 1; i >= 0; i-- {
		l := s.Layers[i]
		if !l.Visible {
			continue
		}
		drawLayer(p, l, left, top, scale)
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

// PDFFile renders the scene into a file at path.
func PDFFile(path string, s *scene.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	defer f.Close()
	return PDF(f, s)
}

func drawGrid(p *gofpdf.Fpdf, s *scene.Scene, left, top, scale float64) {
	p.SetDrawColor(200, 200, 200)
	p.SetLineWidth(0.1)
	for x := 0; x <= s.W; x++ {
		fx := left + float64(x)*scale
		p.Line(fx, top, fx, top+float64(s.H)*scale)
	}
	for y := 0; y <= s.H; y++ {
		fy := top + float64(y)*scale
		p.Line(left, fy, left+float64(s.W)*scale, fy)
	}
}

func hexagon(x, y, w, h float64) []gofpdf.PointType {
	return []gofpdf.PointType{
		{X: x + w*0.25, Y: y},
		{X: x + w*0.75, Y: y},
		{X: x + w, Y: y + h*0.5},
		{X: x + w*0.75, Y: y + h},
		{X: x + w*0.25, Y: y + h},
		{X: x, Y: y + h*0.5},
	}
}

func drawLayer(p *gofpdf.Fpdf, l *scene.Layer, left, top, scale float64) {
	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(0.3)
	if l.Z < 0 {
		p.SetFillColor(225, 225, 225)
	} else {
		p.SetFillColor(245, 245, 245)
	}
	for _, sp := range l.Sprites {
		r := sp.Rect.Positive()
		x := left + r.X*scale
		y := top + r.Y*scale
		switch sp.Shape {
		case scene.ShapeEllipse:
			p.Ellipse(x+r.W*scale/2, y+r.H*scale/2, r.W*scale/2, r.H*scale/2, 0, "FD")
		case scene.ShapeHexagon:
			p.Polygon(hexagon(x, y, r.W*scale, r.H*scale), "FD")
		default:
			p.Rect(x, y, r.W*scale, r.H*scale, "FD")
		}
	}
}
