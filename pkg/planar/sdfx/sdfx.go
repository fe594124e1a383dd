// Package sdfx implements the planar.Kernel interface using the
// github.com/deadsy/sdfx signed distance field library. Union is the
// pointwise minimum of exact distance fields, which is exact outside the
// region, so outward offsets of unioned copper are true Minkowski
// dilations with rounded joins.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"isomill/pkg/planar"
)

// Compile-time interface check.
var _ planar.Kernel = (*Kernel)(nil)

// defaultMeshCells controls marching squares resolution along the longest
// bounding box axis. Contour accuracy is bounded by the resulting cell size.
const defaultMeshCells = 400

// Kernel implements planar.Kernel using sdfx.
type Kernel struct {
	meshCells int
}

// New returns a Kernel with the default contour resolution.
func New() *Kernel {
	return &Kernel{meshCells: defaultMeshCells}
}

// NewWithCells returns a Kernel with a specific marching squares cell
// count along the longest axis. Intended for tests and previews.
func NewWithCells(cells int) *Kernel {
	if cells < 8 {
		cells = 8
	}
	return &Kernel{meshCells: cells}
}

// shape wraps an sdf.SDF2 to implement planar.Shape.
type shape struct {
	s sdf.SDF2
}

// BoundingBox returns the axis-aligned bounding box.
func (s *shape) BoundingBox() (min, max planar.Point) {
	bb := s.s.BoundingBox()
	return planar.Point{X: bb.Min.X, Y: bb.Min.Y}, planar.Point{X: bb.Max.X, Y: bb.Max.Y}
}

// unwrap extracts the underlying sdf.SDF2 from a planar.Shape.
func unwrap(s planar.Shape) sdf.SDF2 {
	return s.(*shape).s
}

// wrap creates a planar.Shape from an sdf.SDF2.
func wrap(s sdf.SDF2) planar.Shape {
	return &shape{s: s}
}

// translate moves an SDF2 so its local origin lands on p.
func translate(s sdf.SDF2, p planar.Point) sdf.SDF2 {
	return sdf.Transform2D(s, sdf.Translate2d(v2.Vec{X: p.X, Y: p.Y}))
}

// Circle creates a disc of the given diameter centered on p.
func (k *Kernel) Circle(center planar.Point, diameter float64) planar.Shape {
	s, err := sdf.Circle2D(diameter / 2)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Circle2D: %v", err))
	}
	return wrap(translate(s, center))
}

// Rect creates an axis-aligned rectangle centered on p. A non-zero round
// gives rounded corners; round = min(width, height)/2 yields an obround.
func (k *Kernel) Rect(center planar.Point, width, height, round float64) planar.Shape {
	s := sdf.Box2D(v2.Vec{X: width, Y: height}, round)
	return wrap(translate(s, center))
}

// Stroke creates the area swept by a pen of the given width moving from a
// to b. CapRound ends with half-discs (circular apertures), CapSquare with
// half-width squares (rectangular apertures).
func (k *Kernel) Stroke(a, b planar.Point, width float64, style planar.CapStyle) planar.Shape {
	length := a.Distance(b)
	if length == 0 {
		if style == planar.CapSquare {
			return k.Rect(a, width, width, 0)
		}
		return k.Circle(a, width)
	}

	round := 0.0
	if style == planar.CapRound {
		round = width / 2
	}
	box := sdf.Box2D(v2.Vec{X: length + width, Y: width}, round)

	mid := planar.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	m := sdf.Translate2d(v2.Vec{X: mid.X, Y: mid.Y}).Mul(sdf.Rotate2d(angle))
	return wrap(sdf.Transform2D(box, m))
}

// Polygon creates a simple polygon from its vertices. Orientation is
// normalized to counterclockwise.
func (k *Kernel) Polygon(vertices []planar.Point) planar.Shape {
	pts := append(planar.Contour{}, vertices...)
	if pts.Area() < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	vs := make([]v2.Vec, len(pts))
	for i, p := range pts {
		vs[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Polygon2D: %v", err))
	}
	return wrap(s)
}

// Union returns the boolean union of the given shapes.
func (k *Kernel) Union(shapes ...planar.Shape) planar.Shape {
	if len(shapes) == 0 {
		panic("sdfx.Union: no shapes")
	}
	if len(shapes) == 1 {
		return shapes[0]
	}
	ss := make([]sdf.SDF2, len(shapes))
	for i, s := range shapes {
		ss[i] = unwrap(s)
	}
	return wrap(sdf.Union2D(ss...))
}

// Offset dilates the shape boundary outward by distance. Joins are
// rounded: the result is the Minkowski sum with a disc of that radius.
func (k *Kernel) Offset(s planar.Shape, distance float64) planar.Shape {
	if distance == 0 {
		return s
	}
	return wrap(sdf.Offset2D(unwrap(s), distance))
}
