// Package board turns parsed fabrication layers into planar regions:
// the unioned copper area and the board outline loops. It owns the
// coordinate normalization that puts the board origin at (0, 0).
package board

import (
	"math"

	"isomill/pkg/gerber"
	"isomill/pkg/planar"
)

// arcSagitta is the maximum chord deviation when flattening arcs, mm.
const arcSagitta = 0.01

// Region is a closed planar area: the kernel shape for further boolean
// work plus its extracted boundary loops for consumers that only read
// vertex lists (preview, emitters). Immutable once built.
type Region struct {
	Shape planar.Shape
	Loops []planar.Contour
}

// BuildCopper merges every copper primitive into one region. Flashes
// contribute the aperture shape at the flash point, draws a stroked
// line of the aperture's width, arcs a flattened stroked sweep. The
// union tolerates overlapping and near-coincident contributions.
func BuildCopper(layer *gerber.Layer, k planar.Kernel) (*Region, error) {
	if len(layer.Primitives) == 0 {
		return nil, &GeometryBuildError{Reason: "copper layer contains no primitives"}
	}

	var shapes []planar.Shape
	for _, prim := range layer.Primitives {
		shapes = append(shapes, contribution(k, prim)...)
	}

	union := k.Union(shapes...)
	loops, err := k.Contours(union)
	if err != nil {
		return nil, &GeometryBuildError{Reason: "boundary extraction failed", Err: err}
	}
	if len(loops) == 0 {
		return nil, &GeometryBuildError{Reason: "copper union produced no boundary"}
	}
	return &Region{Shape: union, Loops: loops}, nil
}

// contribution converts one primitive to kernel shapes.
func contribution(k planar.Kernel, prim gerber.Primitive) []planar.Shape {
	ap := prim.Aperture
	switch prim.Kind {
	case gerber.KindFlash:
		return []planar.Shape{flashShape(k, prim.End, ap)}

	case gerber.KindDraw:
		style := planar.CapRound
		if ap.Shape == gerber.ShapeRectangle {
			style = planar.CapSquare
		}
		return []planar.Shape{k.Stroke(prim.Start, prim.End, ap.StrokeWidth(), style)}

	case gerber.KindArc:
		pts := flattenArc(prim)
		shapes := make([]planar.Shape, 0, len(pts)-1)
		for i := 0; i+1 < len(pts); i++ {
			shapes = append(shapes, k.Stroke(pts[i], pts[i+1], ap.StrokeWidth(), planar.CapRound))
		}
		return shapes
	}
	return nil
}

// flashShape stamps an aperture at a point.
func flashShape(k planar.Kernel, at planar.Point, ap *gerber.Aperture) planar.Shape {
	switch ap.Shape {
	case gerber.ShapeCircle:
		return k.Circle(at, ap.Diameter)
	case gerber.ShapeRectangle:
		return k.Rect(at, ap.Width, ap.Height, 0)
	case gerber.ShapeObround:
		return k.Rect(at, ap.Width, ap.Height, math.Min(ap.Width, ap.Height)/2)
	case gerber.ShapeRoundRect:
		return k.Rect(at, ap.Width, ap.Height, ap.Round)
	case gerber.ShapePolygon:
		return k.Polygon(regularPolygon(at, ap.Diameter/2, ap.Vertices, ap.Rotation))
	}
	// Unsupported shapes are rejected by the parser before this point.
	return k.Circle(at, ap.StrokeWidth())
}

// regularPolygon returns the vertices of a regular n-gon inscribed in a
// circle of the given radius, rotated counterclockwise by rot degrees.
func regularPolygon(center planar.Point, radius float64, n int, rot float64) []planar.Point {
	pts := make([]planar.Point, n)
	base := rot * math.Pi / 180
	for i := 0; i < n; i++ {
		a := base + 2*math.Pi*float64(i)/float64(n)
		pts[i] = planar.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		}
	}
	return pts
}

// flattenArc converts an arc primitive to a chord polyline whose
// deviation from the true arc stays under arcSagitta.
func flattenArc(prim gerber.Primitive) []planar.Point {
	return flattenArcPoints(prim.Start, prim.End, prim.Center, prim.Clockwise)
}

func flattenArcPoints(start, end, center planar.Point, clockwise bool) []planar.Point {
	r0 := start.Distance(center)
	r1 := end.Distance(center)
	if r0 == 0 || r1 == 0 {
		return []planar.Point{start, end}
	}

	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)

	sweep := a1 - a0
	if clockwise {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	}

	// Chord step bounded by the sagitta tolerance.
	r := math.Max(r0, r1)
	maxStep := 2 * math.Acos(math.Max(0, 1-arcSagitta/r))
	if maxStep <= 0 {
		maxStep = math.Pi / 18
	}
	steps := int(math.Ceil(math.Abs(sweep) / maxStep))
	if steps < 2 {
		steps = 2
	}

	pts := make([]planar.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		a := a0 + sweep*t
		r := r0 + (r1-r0)*t
		pts = append(pts, planar.Point{
			X: center.X + r*math.Cos(a),
			Y: center.Y + r*math.Sin(a),
		})
	}
	return pts
}
