package planar

import "math"

// Contour is an ordered closed polyline. The edge from the last vertex
// back to the first is implicit. Contours produced by a Kernel are
// oriented with the enclosed area on the left (counterclockwise for
// outer boundaries, clockwise for holes).
type Contour []Point

// Distance returns the euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Sub returns the vector p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns the vector sum p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Cross returns the z component of the cross product p x q.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Area returns the signed area enclosed by the contour.
// Positive for counterclockwise orientation.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += p.Cross(q)
	}
	return sum / 2
}

// BoundingBox returns the axis-aligned bounding box of the contour.
func (c Contour) BoundingBox() (min, max Point) {
	min = Point{X: math.Inf(1), Y: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range c {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Contains reports whether the point lies inside the contour,
// using the even-odd crossing rule.
func (c Contour) Contains(p Point) bool {
	inside := false
	for i, a := range c {
		b := c[(i+1)%len(c)]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceToBoundary returns the distance from p to the nearest point on
// the contour's boundary.
func (c Contour) DistanceToBoundary(p Point) float64 {
	best := math.Inf(1)
	for i, a := range c {
		b := c[(i+1)%len(c)]
		if d := segmentDistance(a, b, p); d < best {
			best = d
		}
	}
	return best
}

// segmentDistance returns the distance from p to segment ab.
func segmentDistance(a, b, p Point) float64 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := (ap.X*ab.X + ap.Y*ab.Y) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := Point{X: a.X + t*ab.X, Y: a.Y + t*ab.Y}
	return p.Distance(proj)
}

// Simplify reduces the contour with the Douglas-Peucker algorithm at the
// given tolerance. The loop is split at its two extreme vertices so the
// open-polyline algorithm applies to each half; closure is preserved.
func (c Contour) Simplify(tolerance float64) Contour {
	if len(c) <= 4 || tolerance <= 0 {
		return c
	}

	// Split at the vertex farthest from vertex 0 to get two open runs.
	far := 0
	farDist := 0.0
	for i, p := range c {
		if d := c[0].Distance(p); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return c
	}

	first := simplifyOpen(append(Contour{}, c[:far+1]...), tolerance)
	second := simplifyOpen(append(append(Contour{}, c[far:]...), c[0]), tolerance)

	// Join the runs, dropping the duplicated split and closing vertices.
	out := append(Contour{}, first...)
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	return out
}

// simplifyOpen is Douglas-Peucker on an open polyline.
func simplifyOpen(points Contour, epsilon float64) Contour {
	if len(points) < 3 {
		return points
	}

	dmax := 0.0
	index := 0
	a, b := points[0], points[len(points)-1]
	for i := 1; i < len(points)-1; i++ {
		if d := segmentDistance(a, b, points[i]); d > dmax {
			index, dmax = i, d
		}
	}

	if dmax < epsilon {
		return Contour{a, b}
	}

	left := simplifyOpen(points[:index+1], epsilon)
	right := simplifyOpen(points[index:], epsilon)
	return append(left[:len(left)-1], right...)
}
