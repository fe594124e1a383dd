package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"isomill/pkg/planar"
)

// Contour extraction runs uniform marching squares over the signed
// distance field. Crossing points are interpolated once per grid edge, so
// the two cells sharing an edge see bitwise-identical vertices and loop
// assembly can key segments by grid edge instead of floating point
// coordinates. Segments are directed with the interior on the left and
// collected in row-major cell scan order; the loop containing the
// earliest segment is discovered first. That scan order is the stable
// island order the toolpath stage depends on.

// edgeKey identifies a grid edge. Horizontal edges run from node (i,j) to
// (i+1,j); vertical edges from (i,j) to (i,j+1).
type edgeKey struct {
	horiz bool
	i, j  int
}

// segment is a directed boundary piece inside one cell.
type segment struct {
	from, to edgeKey
}

// Contours extracts the boundary loops of a shape.
func (k *Kernel) Contours(s planar.Shape) ([]planar.Contour, error) {
	field := unwrap(s)
	bb := field.BoundingBox()
	dx := bb.Max.X - bb.Min.X
	dy := bb.Max.Y - bb.Min.Y
	size := math.Max(dx, dy)
	if size <= 0 || math.IsInf(size, 1) {
		return nil, fmt.Errorf("contours: shape has empty bounding box")
	}

	cell := size / float64(k.meshCells)

	// Pad the grid so the boundary never touches the sampling window.
	x0 := bb.Min.X - 2*cell
	y0 := bb.Min.Y - 2*cell
	nx := int(math.Ceil(dx/cell)) + 4
	ny := int(math.Ceil(dy/cell)) + 4

	g := &grid{
		field: field,
		x0:    x0,
		y0:    y0,
		cell:  cell,
		nx:    nx,
		ny:    ny,
		val:   make([]float64, (nx+1)*(ny+1)),
	}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			g.val[j*(nx+1)+i] = field.Evaluate(v2.Vec{
				X: x0 + float64(i)*cell,
				Y: y0 + float64(j)*cell,
			})
		}
	}

	segs, crossings := g.trace()
	return assemble(segs, crossings)
}

// grid holds the sampled distance field.
type grid struct {
	field sdf.SDF2
	x0    float64
	y0    float64
	cell  float64
	nx    int
	ny    int
	val   []float64
}

func (g *grid) at(i, j int) float64 {
	return g.val[j*(g.nx+1)+i]
}

func (g *grid) inside(i, j int) bool {
	return g.at(i, j) < 0
}

// crossing interpolates the zero crossing on a grid edge. Both adjacent
// cells call this with identical arguments, so the result is shared.
func (g *grid) crossing(e edgeKey) planar.Point {
	x := g.x0 + float64(e.i)*g.cell
	y := g.y0 + float64(e.j)*g.cell
	var v0, v1 float64
	if e.horiz {
		v0 = g.at(e.i, e.j)
		v1 = g.at(e.i+1, e.j)
	} else {
		v0 = g.at(e.i, e.j)
		v1 = g.at(e.i, e.j+1)
	}
	t := 0.5
	if v0 != v1 {
		t = v0 / (v0 - v1)
	}
	if e.horiz {
		return planar.Point{X: x + t*g.cell, Y: y}
	}
	return planar.Point{X: x, Y: y + t*g.cell}
}

// trace walks every cell in scan order and emits directed boundary
// segments. Saddle cells (two opposite corners inside) are resolved by
// sampling the field at the cell center.
func (g *grid) trace() ([]segment, map[edgeKey]planar.Point) {
	var segs []segment
	crossings := map[edgeKey]planar.Point{}

	emit := func(from, to edgeKey) {
		if _, ok := crossings[from]; !ok {
			crossings[from] = g.crossing(from)
		}
		if _, ok := crossings[to]; !ok {
			crossings[to] = g.crossing(to)
		}
		segs = append(segs, segment{from: from, to: to})
	}

	for j := 0; j < g.ny; j++ {
		for i := 0; i < g.nx; i++ {
			code := 0
			if g.inside(i, j) {
				code |= 1
			}
			if g.inside(i+1, j) {
				code |= 2
			}
			if g.inside(i+1, j+1) {
				code |= 4
			}
			if g.inside(i, j+1) {
				code |= 8
			}
			if code == 0 || code == 15 {
				continue
			}

			bottom := edgeKey{horiz: true, i: i, j: j}
			top := edgeKey{horiz: true, i: i, j: j + 1}
			left := edgeKey{horiz: false, i: i, j: j}
			right := edgeKey{horiz: false, i: i + 1, j: j}

			switch code {
			case 1:
				emit(bottom, left)
			case 2:
				emit(right, bottom)
			case 3:
				emit(right, left)
			case 4:
				emit(top, right)
			case 6:
				emit(top, bottom)
			case 7:
				emit(top, left)
			case 8:
				emit(left, top)
			case 9:
				emit(bottom, top)
			case 11:
				emit(right, top)
			case 12:
				emit(left, right)
			case 13:
				emit(bottom, right)
			case 14:
				emit(left, bottom)
			case 5:
				if g.centerInside(i, j) {
					emit(top, left)
					emit(bottom, right)
				} else {
					emit(bottom, left)
					emit(top, right)
				}
			case 10:
				if g.centerInside(i, j) {
					emit(left, bottom)
					emit(right, top)
				} else {
					emit(right, bottom)
					emit(left, top)
				}
			}
		}
	}
	return segs, crossings
}

func (g *grid) centerInside(i, j int) bool {
	c := g.field.Evaluate(v2.Vec{
		X: g.x0 + (float64(i)+0.5)*g.cell,
		Y: g.y0 + (float64(j)+0.5)*g.cell,
	})
	return c < 0
}

// assemble chains directed segments into closed loops. Each crossing edge
// has exactly one outgoing segment, so the walk is unambiguous. Loops are
// returned in discovery order of their earliest segment.
func assemble(segs []segment, crossings map[edgeKey]planar.Point) ([]planar.Contour, error) {
	next := make(map[edgeKey]int, len(segs))
	for idx, s := range segs {
		if _, dup := next[s.from]; dup {
			return nil, fmt.Errorf("contours: duplicate boundary segment at grid edge %+v", s.from)
		}
		next[s.from] = idx
	}

	used := make([]bool, len(segs))
	var loops []planar.Contour

	for start := range segs {
		if used[start] {
			continue
		}
		var loop planar.Contour
		idx := start
		for {
			if used[idx] {
				return nil, fmt.Errorf("contours: boundary walk revisited a segment")
			}
			used[idx] = true
			loop = append(loop, crossings[segs[idx].from])
			nextIdx, ok := next[segs[idx].to]
			if !ok {
				return nil, fmt.Errorf("contours: open boundary chain at grid edge %+v", segs[idx].to)
			}
			if nextIdx == start {
				break
			}
			idx = nextIdx
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops, nil
}
