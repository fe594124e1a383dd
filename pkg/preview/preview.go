// Package preview renders the processed board as an SVG: copper,
// outline, isolation passes and drill holes on a dark background. It
// consumes vertex lists produced upstream and performs no geometry of
// its own.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"isomill/pkg/board"
	"isomill/pkg/excellon"
	"isomill/pkg/planar"
	"isomill/pkg/toolpath"
)

// PixelsPerMM is the fixed viewport scale.
const PixelsPerMM = 4.0

// Layer colors, following the usual PCB editor palette.
const (
	colorBackground = "#202020"
	colorBoard      = "#005000"
	colorCopper     = "#C83434"
	colorEdge       = "#F0E14A"
	colorToolpath   = "#FFFFFF"
	colorHoleRing   = "#FFFFFF"
	colorHole       = "#000000"
)

// Scene is everything the preview draws. Outline and Holes may be
// empty; Extents must be valid.
type Scene struct {
	Extents board.Extents
	Copper  []planar.Contour
	Outline []planar.Contour
	Passes  []toolpath.Pass
	Holes   []excellon.Hole
}

// WriteSVG renders the scene. Board coordinates are millimeters with Y
// up; the viewport is PixelsPerMM scaled with Y flipped down.
func WriteSVG(w io.Writer, s Scene) error {
	if !s.Extents.Valid() {
		return fmt.Errorf("preview: scene has no extents")
	}
	width := s.Extents.Width() * PixelsPerMM
	height := s.Extents.Height() * PixelsPerMM

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", fmt.Sprintf("%.0f", width))
	svg.CreateAttr("height", fmt.Sprintf("%.0f", height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %.0f %.0f", width, height))

	bg := svg.CreateElement("rect")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")
	bg.CreateAttr("fill", colorBackground)

	for _, c := range s.Outline {
		poly := svg.CreateElement("polygon")
		poly.CreateAttr("points", s.points(c))
		poly.CreateAttr("fill", colorBoard)
		poly.CreateAttr("stroke", colorEdge)
		poly.CreateAttr("stroke-width", "2")
	}

	for _, c := range s.Copper {
		poly := svg.CreateElement("polygon")
		poly.CreateAttr("points", s.points(c))
		poly.CreateAttr("fill", colorCopper)
	}

	for _, pass := range s.Passes {
		for _, c := range pass.Contours {
			poly := svg.CreateElement("polygon")
			poly.CreateAttr("points", s.points(c))
			poly.CreateAttr("fill", "none")
			poly.CreateAttr("stroke", colorToolpath)
			poly.CreateAttr("stroke-width", "1")
		}
	}

	for _, h := range s.Holes {
		cx, cy := s.pixel(h.Pos)
		r := h.Diameter / 2 * PixelsPerMM
		ring := svg.CreateElement("circle")
		ring.CreateAttr("cx", fmt.Sprintf("%.1f", cx))
		ring.CreateAttr("cy", fmt.Sprintf("%.1f", cy))
		ring.CreateAttr("r", fmt.Sprintf("%.1f", r+1))
		ring.CreateAttr("fill", colorHoleRing)
		hole := svg.CreateElement("circle")
		hole.CreateAttr("cx", fmt.Sprintf("%.1f", cx))
		hole.CreateAttr("cy", fmt.Sprintf("%.1f", cy))
		hole.CreateAttr("r", fmt.Sprintf("%.1f", r))
		hole.CreateAttr("fill", colorHole)
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

// pixel maps a board point to viewport coordinates.
func (s Scene) pixel(p planar.Point) (x, y float64) {
	return (p.X - s.Extents.MinX) * PixelsPerMM, (s.Extents.MaxY - p.Y) * PixelsPerMM
}

func (s Scene) points(c planar.Contour) string {
	var b strings.Builder
	for i, p := range c {
		if i > 0 {
			b.WriteByte(' ')
		}
		x, y := s.pixel(p)
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}
