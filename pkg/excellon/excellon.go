// Package excellon decodes Excellon drill lists: a header of tool
// definitions followed by hole coordinate records. Both KiCad output
// (explicit decimal coordinates) and Fritzing output (implied decimal
// fixed point) are handled; all output is in millimeters.
package excellon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"isomill/pkg/planar"
)

// Hole is one drill position with its finished diameter in mm.
type Hole struct {
	Pos      planar.Point
	Diameter float64
}

// UnknownToolError reports a hole record that references a tool code
// with no T..C.. definition in the header.
type UnknownToolError struct {
	Line int
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("line %d: drill tool T%s referenced but never defined", e.Line, e.Tool)
}

// Implied-decimal divisors when coordinates carry no decimal point:
// inch files use 2.4 format, metric files 3.3.
const (
	impliedInch   = 10000.0
	impliedMetric = 1000.0
)

var (
	toolDefRe    = regexp.MustCompile(`^T(\d+)C([\d.]+)`)
	toolSelectRe = regexp.MustCompile(`^T(\d+)$`)
	holeRe       = regexp.MustCompile(`^X(-?[\d.]+)Y(-?[\d.]+)`)
)

// Parse decodes a drill file into an ordered hole list.
// Hole order is record order; no reordering or deduplication.
func Parse(data []byte) ([]Hole, error) {
	lines := strings.Split(string(data), "\n")
	hasDecimals := detectDecimalFormat(lines)

	unitScale := 1.0  // file units -> mm
	coordScale := 1.0 // implied decimal divisor
	tools := map[string]float64{}
	currentTool := ""
	var holes []Hole

	for n, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(upper, "METRIC"):
			unitScale = 1.0
			if !hasDecimals {
				coordScale = impliedMetric
			}
			continue
		case strings.Contains(upper, "INCH"):
			unitScale = 25.4
			if !hasDecimals {
				coordScale = impliedInch
			}
			continue
		}

		if m := toolDefRe.FindStringSubmatch(line); m != nil {
			dia, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad tool diameter %q: %w", n+1, m[2], err)
			}
			tools[m[1]] = dia * unitScale
			continue
		}

		if m := toolSelectRe.FindStringSubmatch(line); m != nil {
			currentTool = m[1]
			continue
		}

		if m := holeRe.FindStringSubmatch(line); m != nil {
			if currentTool == "" {
				return nil, &UnknownToolError{Line: n + 1, Tool: "?"}
			}
			dia, ok := tools[currentTool]
			if !ok {
				return nil, &UnknownToolError{Line: n + 1, Tool: currentTool}
			}
			x, err := parseCoord(m[1], coordScale, unitScale)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			y, err := parseCoord(m[2], coordScale, unitScale)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			holes = append(holes, Hole{Pos: planar.Point{X: x, Y: y}, Diameter: dia})
		}
	}
	return holes, nil
}

// detectDecimalFormat reports whether hole coordinates carry explicit
// decimal points (KiCad) rather than implied fixed point (Fritzing).
func detectDecimalFormat(lines []string) bool {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if m := holeRe.FindStringSubmatch(line); m != nil {
			return strings.ContainsRune(m[1], '.') || strings.ContainsRune(m[2], '.')
		}
	}
	return false
}

// parseCoord converts one coordinate field to mm.
func parseCoord(s string, coordScale, unitScale float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q: %w", s, err)
	}
	if strings.ContainsRune(s, '.') {
		return v * unitScale, nil
	}
	return v / coordScale * unitScale, nil
}
