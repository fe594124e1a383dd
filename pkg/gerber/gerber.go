// Package gerber decodes the RS-274X subset emitted by KiCad and
// Fritzing for copper and board-outline layers: aperture definitions,
// draw/arc/flash operations, coordinate format and unit selection.
// Output coordinates are always millimeters. Anything the format allows
// but this pipeline cannot honor exactly fails with
// UnsupportedFeatureError; nothing is silently approximated.
package gerber

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"isomill/pkg/planar"
)

// Units is the unit mode declared by the file.
type Units int

const (
	UnitsMM Units = iota
	UnitsInch
)

// Format is the fixed-point coordinate format from the %FS block:
// IntDigits before and DecDigits after the implied decimal point.
type Format struct {
	IntDigits int
	DecDigits int
}

// defaultFormat matches KiCad and Fritzing exports (X3.6/Y3.6).
var defaultFormat = Format{IntDigits: 3, DecDigits: 6}

// PrimitiveKind distinguishes decoded drawing operations.
type PrimitiveKind int

const (
	// KindDraw is a straight stroke from Start to End.
	KindDraw PrimitiveKind = iota
	// KindArc is a circular stroke from Start to End around Center.
	KindArc
	// KindFlash stamps the aperture at End.
	KindFlash
)

// Primitive is one decoded drawing operation in absolute mm coordinates.
type Primitive struct {
	Kind      PrimitiveKind
	Start     planar.Point
	End       planar.Point
	Center    planar.Point // arc center, KindArc only
	Clockwise bool         // KindArc only
	Aperture  *Aperture
}

// Layer is the fully decoded content of one Gerber file.
// Primitive order is input order; nothing is reordered or deduplicated.
type Layer struct {
	Units      Units
	Format     Format
	Apertures  map[int]*Aperture
	Primitives []Primitive
}

// interpolation modes set by G codes.
const (
	interpLinear = 1
	interpCW     = 2
	interpCCW    = 3
)

// cursor is the interpolation state threaded through the decode fold.
// Each step takes the prior cursor and returns the next one; there is no
// hidden parser state.
type cursor struct {
	pos           planar.Point
	aperture      int
	interp        int
	multiQuadrant bool
	incremental   bool
}

// parser accumulates the layer while the cursor is folded over commands.
type parser struct {
	layer   *Layer
	line    int
	done    bool
	inMacro bool
}

// Parse decodes a Gerber file.
func Parse(data []byte) (*Layer, error) {
	p := &parser{
		layer: &Layer{
			Format:    defaultFormat,
			Apertures: map[int]*Aperture{},
		},
	}

	cur := cursor{interp: interpLinear}
	for _, raw := range strings.Split(string(data), "\n") {
		p.line++
		if p.done {
			break
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		// Inside a multiline %AM block: skip body lines until the
		// terminating % delimiter.
		if p.inMacro {
			if strings.Contains(text, "%") {
				p.inMacro = false
			}
			continue
		}

		if strings.HasPrefix(text, "%") {
			// KiCad writes aperture macros as a multiline block: the
			// %AM header line, primitive and comment lines, then a
			// closing %. Open the skip state when the block does not
			// close on its own line.
			if strings.HasPrefix(text, "%AM") && strings.Count(text, "%") == 1 {
				p.inMacro = true
				continue
			}
			next, err := p.extended(cur, text)
			if err != nil {
				return nil, err
			}
			cur = next
			continue
		}

		// A line may carry several *-terminated commands.
		for _, cmd := range strings.Split(text, "*") {
			cmd = strings.TrimSpace(cmd)
			if cmd == "" {
				continue
			}
			next, err := p.step(cur, cmd)
			if err != nil {
				return nil, err
			}
			cur = next
		}
	}
	return p.layer, nil
}

// scale returns the multiplier from file units to millimeters.
func (p *parser) scale() float64 {
	if p.layer.Units == UnitsInch {
		return 25.4
	}
	return 1.0
}

// extended handles %...% blocks.
func (p *parser) extended(cur cursor, text string) (cursor, error) {
	content := strings.Trim(text, "%")
	content = strings.TrimSuffix(strings.TrimSpace(content), "*")

	switch {
	case strings.HasPrefix(content, "FS"):
		return p.formatSpec(cur, content)

	case content == "MOMM":
		p.layer.Units = UnitsMM
		return cur, nil
	case content == "MOIN":
		p.layer.Units = UnitsInch
		return cur, nil

	case strings.HasPrefix(content, "ADD"):
		ap, err := parseAperture(content, p.scale(), p.line)
		if err != nil {
			return cur, err
		}
		p.layer.Apertures[ap.Code] = ap
		return cur, nil

	case strings.HasPrefix(content, "AM"):
		// Single-line macro. Bodies are ignored (multiline blocks are
		// skipped in Parse); unsupported macros are rejected at their
		// %AD reference instead.
		return cur, nil

	case content == "LPD":
		return cur, nil
	case content == "LPC":
		return cur, &UnsupportedFeatureError{Line: p.line, Feature: "clear layer polarity (%LPC)"}

	case strings.HasPrefix(content, "SR"):
		return cur, &UnsupportedFeatureError{Line: p.line, Feature: "step and repeat (%SR)"}

	case strings.HasPrefix(content, "TF"), strings.HasPrefix(content, "TA"),
		strings.HasPrefix(content, "TO"), strings.HasPrefix(content, "TD"):
		// File/aperture attributes carry no geometry.
		return cur, nil

	case strings.HasPrefix(content, "IP"), strings.HasPrefix(content, "IN"),
		strings.HasPrefix(content, "LN"):
		// Deprecated image metadata.
		return cur, nil
	}
	return cur, &UnsupportedFeatureError{Line: p.line, Feature: fmt.Sprintf("extended command %%%s%%", content)}
}

var formatRe = regexp.MustCompile(`^FS([LT])([AI])X(\d)(\d)Y(\d)(\d)$`)

func (p *parser) formatSpec(cur cursor, content string) (cursor, error) {
	m := formatRe.FindStringSubmatch(content)
	if m == nil {
		return cur, fmt.Errorf("line %d: malformed format specification %q", p.line, content)
	}
	if m[1] == "T" {
		return cur, &UnsupportedFeatureError{Line: p.line, Feature: "trailing zero omission in coordinate format"}
	}
	xi, _ := strconv.Atoi(m[3])
	xd, _ := strconv.Atoi(m[4])
	yi, _ := strconv.Atoi(m[5])
	yd, _ := strconv.Atoi(m[6])
	if xi != yi || xd != yd {
		return cur, &UnsupportedFeatureError{Line: p.line, Feature: "asymmetric X/Y coordinate formats"}
	}
	p.layer.Format = Format{IntDigits: xi, DecDigits: xd}
	cur.incremental = m[2] == "I"
	return cur, nil
}

var coordRe = regexp.MustCompile(`^(?:X(-?[0-9.]+))?(?:Y(-?[0-9.]+))?(?:I(-?[0-9.]+))?(?:J(-?[0-9.]+))?(?:D0?([123]))?$`)

// step is one iteration of the decode fold: prior cursor plus one word
// command in, primitives appended and next cursor out.
func (p *parser) step(cur cursor, cmd string) (cursor, error) {
	if strings.HasPrefix(cmd, "G04") {
		return cur, nil
	}
	if cmd == "M02" || cmd == "M00" {
		p.done = true
		return cur, nil
	}

	// Peel modal G codes off the front; "G01X5000Y0D01" is legal.
	for len(cmd) >= 3 && cmd[0] == 'G' {
		code := cmd[:3]
		cmd = cmd[3:]
		switch code {
		case "G01":
			cur.interp = interpLinear
		case "G02":
			cur.interp = interpCW
		case "G03":
			cur.interp = interpCCW
		case "G75":
			cur.multiQuadrant = true
		case "G74":
			return cur, &UnsupportedFeatureError{Line: p.line, Feature: "single quadrant arc mode (G74)"}
		case "G90":
			cur.incremental = false
		case "G91":
			cur.incremental = true
		case "G36", "G37":
			return cur, &UnsupportedFeatureError{Line: p.line, Feature: "region mode (" + code + ")"}
		case "G54", "G55":
			// Deprecated prepare-for-operation prefixes.
		default:
			return cur, &UnsupportedFeatureError{Line: p.line, Feature: "G code " + code}
		}
	}
	if cmd == "" {
		return cur, nil
	}

	// Bare aperture selection: D10 and up.
	if cmd[0] == 'D' && !strings.ContainsAny(cmd, "XYIJ") {
		code, err := strconv.Atoi(cmd[1:])
		if err != nil {
			return cur, fmt.Errorf("line %d: malformed D code %q", p.line, cmd)
		}
		if code >= 10 {
			if _, ok := p.layer.Apertures[code]; !ok {
				return cur, &UnknownApertureError{Line: p.line, Code: code}
			}
			cur.aperture = code
			return cur, nil
		}
		return p.operate(cur, cur.pos, planar.Point{}, code)
	}

	m := coordRe.FindStringSubmatch(cmd)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return cur, fmt.Errorf("line %d: unrecognized command %q", p.line, cmd)
	}
	if m[5] == "" {
		return cur, &UnsupportedFeatureError{Line: p.line, Feature: "coordinate data without an operation code"}
	}
	op, _ := strconv.Atoi(m[5])

	target := cur.pos
	if m[1] != "" {
		v, err := p.coordValue(m[1])
		if err != nil {
			return cur, err
		}
		if cur.incremental {
			target.X += v
		} else {
			target.X = v
		}
	}
	if m[2] != "" {
		v, err := p.coordValue(m[2])
		if err != nil {
			return cur, err
		}
		if cur.incremental {
			target.Y += v
		} else {
			target.Y = v
		}
	}

	// I/J are always offsets from the start point, never absolute.
	var offset planar.Point
	for idx, dst := range []*float64{&offset.X, &offset.Y} {
		if m[3+idx] == "" {
			continue
		}
		v, err := p.coordValue(m[3+idx])
		if err != nil {
			return cur, err
		}
		*dst = v
	}

	return p.operate(cur, target, offset, op)
}

// operate applies a D01/D02/D03 operation at the decoded target point.
func (p *parser) operate(cur cursor, target, offset planar.Point, op int) (cursor, error) {
	switch op {
	case 2: // move
		cur.pos = target
		return cur, nil

	case 1: // draw
		ap, err := p.selectedAperture(cur)
		if err != nil {
			return cur, err
		}
		switch cur.interp {
		case interpLinear:
			p.layer.Primitives = append(p.layer.Primitives, Primitive{
				Kind:     KindDraw,
				Start:    cur.pos,
				End:      target,
				Aperture: ap,
			})
		case interpCW, interpCCW:
			if !cur.multiQuadrant {
				return cur, &UnsupportedFeatureError{Line: p.line, Feature: "arc draw without multi quadrant mode (G75)"}
			}
			if offset == (planar.Point{}) {
				return cur, &UnsupportedFeatureError{Line: p.line, Feature: "arc draw without an I/J center offset"}
			}
			p.layer.Primitives = append(p.layer.Primitives, Primitive{
				Kind:      KindArc,
				Start:     cur.pos,
				End:       target,
				Center:    cur.pos.Add(offset),
				Clockwise: cur.interp == interpCW,
				Aperture:  ap,
			})
		}
		cur.pos = target
		return cur, nil

	case 3: // flash
		ap, err := p.selectedAperture(cur)
		if err != nil {
			return cur, err
		}
		p.layer.Primitives = append(p.layer.Primitives, Primitive{
			Kind:     KindFlash,
			Start:    target,
			End:      target,
			Aperture: ap,
		})
		cur.pos = target
		return cur, nil
	}
	return cur, fmt.Errorf("line %d: unknown operation D%02d", p.line, op)
}

func (p *parser) selectedAperture(cur cursor) (*Aperture, error) {
	if cur.aperture == 0 {
		return nil, &UnknownApertureError{Line: p.line, Code: 0}
	}
	ap, ok := p.layer.Apertures[cur.aperture]
	if !ok {
		return nil, &UnknownApertureError{Line: p.line, Code: cur.aperture}
	}
	return ap, nil
}

// coordValue converts one coordinate field to millimeters. A value with
// an explicit decimal point is taken at face value in file units;
// otherwise it is fixed-point per the %FS format.
func (p *parser) coordValue(s string) (float64, error) {
	if strings.ContainsRune(s, '.') {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: bad coordinate %q: %w", p.line, s, err)
		}
		return v * p.scale(), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad coordinate %q: %w", p.line, s, err)
	}
	div := math.Pow10(p.layer.Format.DecDigits)
	return float64(v) / div * p.scale(), nil
}
