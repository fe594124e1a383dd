package board

import (
	"math"

	"isomill/pkg/excellon"
	"isomill/pkg/gerber"
	"isomill/pkg/planar"
)

// Extent margins in mm, by feature class. Pads get the widest berth
// because the isolation passes fan outward from them.
const (
	MarginPad   = 1.5
	MarginTrace = 0.6
	MarginEdge  = 0.2
)

// Extents is the bounding box of the design, used to shift the board so
// its minimum corner sits at the origin.
type Extents struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewExtents returns an empty Extents that any update will initialize.
func NewExtents() Extents {
	return Extents{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// Update grows the extents to include p plus a margin on every side.
func (e *Extents) Update(p planar.Point, margin float64) {
	e.MinX = math.Min(e.MinX, p.X-margin)
	e.MinY = math.Min(e.MinY, p.Y-margin)
	e.MaxX = math.Max(e.MaxX, p.X+margin)
	e.MaxY = math.Max(e.MaxY, p.Y+margin)
}

// Width returns the board width in mm.
func (e Extents) Width() float64 { return e.MaxX - e.MinX }

// Height returns the board height in mm.
func (e Extents) Height() float64 { return e.MaxY - e.MinY }

// Valid reports whether any coordinates were recorded.
func (e Extents) Valid() bool { return e.MinX <= e.MaxX }

// Normalize computes the extents over all inputs and returns copies
// shifted so the minimum corner is the origin. Inputs are not mutated;
// outline may be nil and holes may be empty. Aperture definitions are
// shared between the input and shifted layers (they are immutable).
func Normalize(copper, outline *gerber.Layer, holes []excellon.Hole) (*gerber.Layer, *gerber.Layer, []excellon.Hole, Extents) {
	e := NewExtents()

	for _, prim := range copper.Primitives {
		margin := MarginTrace
		if prim.Kind == gerber.KindFlash {
			margin = MarginPad
		}
		e.Update(prim.Start, margin)
		e.Update(prim.End, margin)
	}
	if outline != nil {
		for _, prim := range outline.Primitives {
			e.Update(prim.Start, MarginEdge)
			e.Update(prim.End, MarginEdge)
		}
	}
	for _, h := range holes {
		e.Update(h.Pos, 0)
	}

	if !e.Valid() {
		return copper, outline, holes, e
	}

	shift := planar.Point{X: -e.MinX, Y: -e.MinY}
	shiftedCopper := shiftLayer(copper, shift)
	var shiftedOutline *gerber.Layer
	if outline != nil {
		shiftedOutline = shiftLayer(outline, shift)
	}
	shiftedHoles := make([]excellon.Hole, len(holes))
	for i, h := range holes {
		shiftedHoles[i] = excellon.Hole{Pos: h.Pos.Add(shift), Diameter: h.Diameter}
	}

	e = Extents{MinX: 0, MinY: 0, MaxX: e.Width(), MaxY: e.Height()}
	return shiftedCopper, shiftedOutline, shiftedHoles, e
}

func shiftLayer(layer *gerber.Layer, shift planar.Point) *gerber.Layer {
	out := &gerber.Layer{
		Units:      layer.Units,
		Format:     layer.Format,
		Apertures:  layer.Apertures,
		Primitives: make([]gerber.Primitive, len(layer.Primitives)),
	}
	for i, prim := range layer.Primitives {
		prim.Start = prim.Start.Add(shift)
		prim.End = prim.End.Add(shift)
		if prim.Kind == gerber.KindArc {
			prim.Center = prim.Center.Add(shift)
		}
		out.Primitives[i] = prim
	}
	return out
}
