package board

import (
	"sort"

	"github.com/asim/quadtree"

	"isomill/pkg/gerber"
	"isomill/pkg/planar"
)

// CloseTolerance is the maximum endpoint mismatch when chaining outline
// segments into closed loops, mm.
const CloseTolerance = 0.01

// piece is one outline fragment: a draw segment or a flattened arc.
type piece struct {
	index int
	pts   []planar.Point
	used  bool
}

// pieceEnd is one endpoint of a piece. tail marks the last vertex.
type pieceEnd struct {
	p    *piece
	tail bool
}

func (e pieceEnd) point() planar.Point {
	if e.tail {
		return e.p.pts[len(e.p.pts)-1]
	}
	return e.p.pts[0]
}

// BuildOutline chains the outline layer's draw and arc primitives into
// closed loops. Endpoints are matched within CloseTolerance using a
// quadtree index; a chain that cannot reach back to its start is an
// OpenOutlineError. A nil or empty layer yields no loops.
func BuildOutline(layer *gerber.Layer) ([]planar.Contour, error) {
	if layer == nil || len(layer.Primitives) == 0 {
		return nil, nil
	}

	var pieces []*piece
	ext := NewExtents()
	for _, prim := range layer.Primitives {
		var pts []planar.Point
		switch prim.Kind {
		case gerber.KindDraw:
			pts = []planar.Point{prim.Start, prim.End}
		case gerber.KindArc:
			pts = flattenArc(prim)
		default:
			// Flashes (drill markers etc.) carry no outline geometry.
			continue
		}
		ext.Update(pts[0], 1)
		ext.Update(pts[len(pts)-1], 1)
		pieces = append(pieces, &piece{index: len(pieces), pts: pts})
	}
	if len(pieces) == 0 {
		return nil, nil
	}

	tree := newEndpointIndex(ext)
	for _, p := range pieces {
		tree.add(pieceEnd{p: p, tail: false})
		tree.add(pieceEnd{p: p, tail: true})
	}

	var loops []planar.Contour
	for _, start := range pieces {
		if start.used {
			continue
		}
		start.used = true
		loop := append(planar.Contour{}, start.pts...)

		for {
			last := loop[len(loop)-1]
			if len(loop) > 2 && last.Distance(loop[0]) <= CloseTolerance {
				break
			}

			next, ok := tree.nearest(last)
			if !ok {
				gap := last.Distance(loop[0])
				return nil, &OpenOutlineError{Gap: gap, X: last.X, Y: last.Y}
			}

			next.p.used = true
			pts := next.p.pts
			if next.tail {
				pts = reversed(pts)
			}
			loop = append(loop, pts[1:]...)
		}

		// Drop the duplicated closing vertex; contour closure is implicit.
		loop = loop[:len(loop)-1]
		loops = append(loops, loop)
	}
	return loops, nil
}

func reversed(pts []planar.Point) []planar.Point {
	out := make([]planar.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// endpointIndex wraps a quadtree of piece endpoints.
type endpointIndex struct {
	tree *quadtree.QuadTree
}

func newEndpointIndex(e Extents) *endpointIndex {
	center := quadtree.NewPoint((e.MinX+e.MaxX)/2, (e.MinY+e.MaxY)/2, nil)
	half := quadtree.NewPoint(e.Width()/2+10, e.Height()/2+10, nil)
	return &endpointIndex{
		tree: quadtree.New(quadtree.NewAABB(center, half), 0, nil),
	}
}

func (idx *endpointIndex) add(e pieceEnd) {
	p := e.point()
	idx.tree.Insert(quadtree.NewPoint(p.X, p.Y, e))
}

// nearest returns the unused piece endpoint within CloseTolerance of p.
// Ties resolve to the lowest piece index, head end first, so chaining is
// deterministic.
func (idx *endpointIndex) nearest(p planar.Point) (pieceEnd, bool) {
	area := quadtree.NewAABB(
		quadtree.NewPoint(p.X, p.Y, nil),
		quadtree.NewPoint(CloseTolerance, CloseTolerance, nil),
	)
	var candidates []pieceEnd
	for _, pt := range idx.tree.Search(area) {
		end := pt.Data().(pieceEnd)
		if end.p.used {
			continue
		}
		if end.point().Distance(p) <= CloseTolerance {
			candidates = append(candidates, end)
		}
	}
	if len(candidates) == 0 {
		return pieceEnd{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].p.index != candidates[j].p.index {
			return candidates[i].p.index < candidates[j].p.index
		}
		return !candidates[i].tail && candidates[j].tail
	})
	return candidates[0], true
}
