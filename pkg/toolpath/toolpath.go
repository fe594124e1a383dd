// Package toolpath computes isolation milling passes around a copper
// region. Each pass is an outward offset of the full copper shape, so
// islands whose clearances overlap merge into one contour instead of
// producing crossing paths.
package toolpath

import (
	"fmt"

	"isomill/pkg/board"
	"isomill/pkg/planar"
)

// Default cutting parameters in mm.
const (
	DefaultOffset  = 0.22
	DefaultPasses  = 3
	DefaultSpacing = 0.2

	// simplifyTolerance trims contour vertices that deviate less than
	// this from the simplified path.
	simplifyTolerance = 0.03
)

// Params controls the isolation passes. Offset is the distance of the
// first pass from the copper boundary, Spacing the distance between
// consecutive passes.
type Params struct {
	Offset  float64
	Passes  int
	Spacing float64
}

// DefaultParams returns the stock single-flute engraving setup.
func DefaultParams() Params {
	return Params{Offset: DefaultOffset, Passes: DefaultPasses, Spacing: DefaultSpacing}
}

func (p Params) validate() error {
	if p.Offset <= 0 {
		return fmt.Errorf("toolpath: offset must be positive, got %g", p.Offset)
	}
	if p.Passes < 1 {
		return fmt.Errorf("toolpath: need at least one pass, got %d", p.Passes)
	}
	if p.Spacing < 0 {
		return fmt.Errorf("toolpath: spacing must not be negative, got %g", p.Spacing)
	}
	return nil
}

// DegenerateGeometryError reports a copper region with no millable
// boundary.
type DegenerateGeometryError struct {
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate copper geometry: %s", e.Reason)
}

// Pass is one ring of isolation contours at a fixed distance from the
// copper boundary.
type Pass struct {
	Index    int
	Offset   float64
	Contours []planar.Contour
}

// Toolpath is the ordered set of passes, innermost first.
type Toolpath struct {
	Passes []Pass
}

// Generate offsets the copper region outward once per pass and extracts
// the contours of each offset shape. Pass i sits at Offset + i*Spacing.
// Contours inside a pass keep the kernel's discovery order, so the same
// input always yields the same toolpath.
func Generate(copper *board.Region, k planar.Kernel, p Params) (*Toolpath, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if copper == nil || len(copper.Loops) == 0 {
		return nil, &DegenerateGeometryError{Reason: "no boundary loops"}
	}
	area := 0.0
	for _, loop := range copper.Loops {
		a := loop.Area()
		if a > 0 {
			area += a
		}
	}
	if area == 0 {
		return nil, &DegenerateGeometryError{Reason: "zero copper area"}
	}

	tp := &Toolpath{Passes: make([]Pass, 0, p.Passes)}
	for i := 0; i < p.Passes; i++ {
		d := p.Offset + float64(i)*p.Spacing
		contours, err := k.Contours(k.Offset(copper.Shape, d))
		if err != nil {
			return nil, fmt.Errorf("toolpath: pass %d at %.3f mm: %w", i, d, err)
		}
		if len(contours) == 0 {
			return nil, &DegenerateGeometryError{
				Reason: fmt.Sprintf("pass %d at %.3f mm produced no contours", i, d),
			}
		}
		for j, c := range contours {
			contours[j] = c.Simplify(simplifyTolerance)
		}
		tp.Passes = append(tp.Passes, Pass{Index: i, Offset: d, Contours: contours})
	}
	return tp, nil
}
