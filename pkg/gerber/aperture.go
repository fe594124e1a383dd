package gerber

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ApertureShape is the geometric class of an aperture.
type ApertureShape int

const (
	ShapeCircle ApertureShape = iota
	ShapeRectangle
	ShapeObround
	ShapePolygon
	// ShapeRoundRect is KiCad's RoundRect macro, decoded to a rectangle
	// with rounded corners.
	ShapeRoundRect
)

func (s ApertureShape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeRectangle:
		return "rectangle"
	case ShapeObround:
		return "obround"
	case ShapePolygon:
		return "polygon"
	case ShapeRoundRect:
		return "roundrect"
	}
	return "unknown"
}

// Aperture is a tool/pad shape definition. Immutable once parsed;
// primitives reference it by pointer.
type Aperture struct {
	Code     int
	Shape    ApertureShape
	Diameter float64 // circle and polygon outer diameter
	Width    float64 // rectangle, obround, roundrect
	Height   float64
	Round    float64 // roundrect corner radius
	Vertices int     // polygon
	Rotation float64 // polygon rotation, degrees
}

// StrokeWidth is the effective pen diameter when this aperture draws a
// line: the diameter for round shapes, the width for rectangular ones.
func (a *Aperture) StrokeWidth() float64 {
	if a.Diameter > 0 {
		return a.Diameter
	}
	return a.Width
}

// parseAperture decodes the inner content of an %ADD block, e.g.
// "ADD10C,0.254" or "ADD23RoundRect,0.1X-0.5X-0.3X0.5X-0.3X0.5X0.3X-0.5X0.3X0".
// All size parameters are in the layer's units; scale converts to mm.
func parseAperture(content string, scale float64, line int) (*Aperture, error) {
	rest := strings.TrimPrefix(content, "ADD")
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, fmt.Errorf("line %d: malformed aperture definition %q", line, content)
	}
	code, err := strconv.Atoi(rest[:i])
	if err != nil || code < 10 {
		return nil, fmt.Errorf("line %d: invalid aperture code in %q", line, content)
	}

	rest = rest[i:]
	name := rest
	var params []float64
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		name = rest[:comma]
		for _, f := range strings.Split(rest[comma+1:], "X") {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad aperture parameter %q: %w", line, f, err)
			}
			params = append(params, v)
		}
	}

	ap := &Aperture{Code: code}
	switch name {
	case "C":
		if len(params) < 1 {
			return nil, fmt.Errorf("line %d: circle aperture D%d needs a diameter", line, code)
		}
		ap.Shape = ShapeCircle
		ap.Diameter = params[0] * scale

	case "R", "O":
		if len(params) < 1 {
			return nil, fmt.Errorf("line %d: aperture D%d needs dimensions", line, code)
		}
		ap.Shape = ShapeRectangle
		if name == "O" {
			ap.Shape = ShapeObround
		}
		ap.Width = params[0] * scale
		ap.Height = ap.Width
		if len(params) > 1 {
			ap.Height = params[1] * scale
		}

	case "P":
		if len(params) < 2 {
			return nil, fmt.Errorf("line %d: polygon aperture D%d needs diameter and vertex count", line, code)
		}
		ap.Shape = ShapePolygon
		ap.Diameter = params[0] * scale
		ap.Vertices = int(params[1])
		if ap.Vertices < 3 || ap.Vertices > 12 {
			return nil, fmt.Errorf("line %d: polygon aperture D%d has %d vertices, want 3..12", line, code, ap.Vertices)
		}
		if len(params) > 2 {
			ap.Rotation = params[2]
		}

	case "RoundRect":
		// KiCad macro: corner radius followed by the four corner-circle
		// centers of the pad. Full extent = center extent + 2*radius.
		if len(params) < 9 {
			return nil, fmt.Errorf("line %d: RoundRect aperture D%d needs 9 parameters", line, code)
		}
		r := params[0] * scale
		minX, maxX := math.Inf(1), math.Inf(-1)
		minY, maxY := math.Inf(1), math.Inf(-1)
		for p := 1; p+1 < 10; p += 2 {
			x, y := params[p]*scale, params[p+1]*scale
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		ap.Shape = ShapeRoundRect
		ap.Width = maxX - minX + 2*r
		ap.Height = maxY - minY + 2*r
		ap.Round = r

	default:
		return nil, &UnsupportedFeatureError{Line: line, Feature: fmt.Sprintf("aperture macro %q", name)}
	}
	return ap, nil
}
