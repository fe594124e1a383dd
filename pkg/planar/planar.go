// Package planar defines the planar geometry types and the abstract
// geometry kernel interface used by the milling pipeline. Implementations
// (sdfx) provide robust polygon union and offset behind this interface,
// which keeps the one genuinely hard piece of numerical code swappable
// and independently testable.
package planar

// Point is a position on the board plane, in millimeters.
type Point struct {
	X float64
	Y float64
}

// Shape is an opaque handle to a kernel planar area.
// Implementations wrap their internal representation.
type Shape interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max Point)
}

// CapStyle selects how a Stroke terminates at its endpoints.
type CapStyle int

const (
	// CapRound extends the stroke with a half-disc at each end.
	CapRound CapStyle = iota
	// CapSquare extends the stroke with a half-width square at each end.
	CapSquare
)

// Kernel is the abstract planar geometry kernel. All distances are in
// millimeters. Offset uses a rounded join policy: the offset area is the
// Minkowski sum of the shape with a disc of the offset radius, so outside
// corners become circular arcs. That policy is a fixed contract; inside
// corner coverage in the toolpath stage depends on it.
type Kernel interface {
	// Primitives
	Circle(center Point, diameter float64) Shape
	Rect(center Point, width, height, round float64) Shape
	Stroke(a, b Point, width float64, style CapStyle) Shape
	Polygon(vertices []Point) Shape

	// Boolean union of one or more shapes. Overlapping and
	// near-coincident inputs must produce a valid planar area.
	Union(shapes ...Shape) Shape

	// Offset dilates the shape boundary outward by distance (>= 0).
	Offset(s Shape, distance float64) Shape

	// Contours extracts the boundary of a shape as closed loops in a
	// stable discovery order. The same shape always yields identical
	// output.
	Contours(s Shape) ([]Contour, error)
}
