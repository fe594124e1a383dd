package gerber

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomill/pkg/planar"
)

func parseLines(t *testing.T, lines ...string) *Layer {
	t.Helper()
	layer, err := Parse([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return layer
}

const header = "%FSLAX36Y36*%\n%MOMM*%"

func TestParseKiCadLayer(t *testing.T) {
	layer := parseLines(t,
		"%TF.GenerationSoftware,KiCad,Pcbnew*%",
		header,
		"%ADD10C,0.250000*%",
		"%ADD11R,1.500000X1.200000*%",
		"%ADD12O,1.700000X1.000000*%",
		"%ADD13P,1.500000X6X30.000000*%",
		"G04 copper layer*",
		"D10*",
		"X1000000Y2000000D02*",
		"G01*",
		"X5000000Y2000000D01*",
		"D11*",
		"X3000000Y3000000D03*",
		"M02*",
	)

	assert.Equal(t, UnitsMM, layer.Units)
	assert.Equal(t, Format{IntDigits: 3, DecDigits: 6}, layer.Format)
	require.Len(t, layer.Apertures, 4)

	circle := layer.Apertures[10]
	assert.Equal(t, ShapeCircle, circle.Shape)
	assert.InDelta(t, 0.25, circle.Diameter, 1e-9)
	assert.InDelta(t, 0.25, circle.StrokeWidth(), 1e-9)

	rect := layer.Apertures[11]
	assert.Equal(t, ShapeRectangle, rect.Shape)
	assert.InDelta(t, 1.5, rect.Width, 1e-9)
	assert.InDelta(t, 1.2, rect.Height, 1e-9)

	obround := layer.Apertures[12]
	assert.Equal(t, ShapeObround, obround.Shape)

	poly := layer.Apertures[13]
	assert.Equal(t, ShapePolygon, poly.Shape)
	assert.Equal(t, 6, poly.Vertices)
	assert.InDelta(t, 30.0, poly.Rotation, 1e-9)

	require.Len(t, layer.Primitives, 2)

	draw := layer.Primitives[0]
	assert.Equal(t, KindDraw, draw.Kind)
	assert.Equal(t, planar.Point{X: 1, Y: 2}, draw.Start)
	assert.Equal(t, planar.Point{X: 5, Y: 2}, draw.End)
	assert.Same(t, circle, draw.Aperture)

	flash := layer.Primitives[1]
	assert.Equal(t, KindFlash, flash.Kind)
	assert.Equal(t, planar.Point{X: 3, Y: 3}, flash.End)
	assert.Same(t, rect, flash.Aperture)
}

func TestParseArc(t *testing.T) {
	layer := parseLines(t,
		header,
		"%ADD10C,0.200000*%",
		"D10*",
		"X0Y0D02*",
		"G75*",
		"G03X2000000Y2000000I2000000J0D01*",
		"M02*",
	)

	require.Len(t, layer.Primitives, 1)
	arc := layer.Primitives[0]
	assert.Equal(t, KindArc, arc.Kind)
	assert.False(t, arc.Clockwise)
	assert.Equal(t, planar.Point{X: 0, Y: 0}, arc.Start)
	assert.Equal(t, planar.Point{X: 2, Y: 2}, arc.End)
	assert.Equal(t, planar.Point{X: 2, Y: 0}, arc.Center)
}

func TestParseInchUnits(t *testing.T) {
	layer := parseLines(t,
		"%FSLAX24Y24*%",
		"%MOIN*%",
		"%ADD10C,0.010000*%",
		"D10*",
		"X10000Y0D02*",
		"X20000Y0D01*",
		"M02*",
	)

	require.Len(t, layer.Primitives, 1)
	// 1.0000 inch and 2.0000 inch in 2.4 format.
	assert.InDelta(t, 25.4, layer.Primitives[0].Start.X, 1e-9)
	assert.InDelta(t, 50.8, layer.Primitives[0].End.X, 1e-9)
	assert.InDelta(t, 0.254, layer.Apertures[10].Diameter, 1e-9)
}

func TestParseExplicitDecimals(t *testing.T) {
	layer := parseLines(t,
		header,
		"%ADD10C,0.300000*%",
		"D10*",
		"X1.25Y-0.5D02*",
		"X3.75Y-0.5D01*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 1)
	assert.Equal(t, planar.Point{X: 1.25, Y: -0.5}, layer.Primitives[0].Start)
	assert.Equal(t, planar.Point{X: 3.75, Y: -0.5}, layer.Primitives[0].End)
}

func TestParseModalCoordinates(t *testing.T) {
	layer := parseLines(t,
		header,
		"%ADD10C,0.200000*%",
		"D10*",
		"X1000000Y1000000D02*",
		"Y3000000D01*",
		"X2000000D01*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 2)
	assert.Equal(t, planar.Point{X: 1, Y: 3}, layer.Primitives[0].End)
	assert.Equal(t, planar.Point{X: 2, Y: 3}, layer.Primitives[1].End)
}

func TestParseIncremental(t *testing.T) {
	layer := parseLines(t,
		"%FSLIX36Y36*%",
		"%MOMM*%",
		"%ADD10C,0.200000*%",
		"D10*",
		"X1000000Y1000000D02*",
		"X1000000Y0D01*",
		"X0Y2000000D01*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 2)
	assert.Equal(t, planar.Point{X: 2, Y: 1}, layer.Primitives[0].End)
	assert.Equal(t, planar.Point{X: 2, Y: 3}, layer.Primitives[1].End)
}

func TestParseRoundRect(t *testing.T) {
	layer := parseLines(t,
		header,
		"%AMRoundRect*0 Rectangle with rounded corners*0 $1 Rounding radius*%",
		"%ADD14RoundRect,0.1X-0.7X-0.5X0.7X-0.5X0.7X0.5X-0.7X0.5X0*%",
		"D14*",
		"X0Y0D03*",
		"M02*",
	)
	ap := layer.Apertures[14]
	require.NotNil(t, ap)
	assert.Equal(t, ShapeRoundRect, ap.Shape)
	assert.InDelta(t, 1.6, ap.Width, 1e-9)
	assert.InDelta(t, 1.2, ap.Height, 1e-9)
	assert.InDelta(t, 0.1, ap.Round, 1e-9)
}

func TestParseMultilineMacroBlock(t *testing.T) {
	// KiCad spreads the RoundRect macro over several lines: the %AM
	// header, primitive and comment lines, then a closing %. The body
	// must not leak into command decoding.
	layer := parseLines(t,
		header,
		"%AMRoundRect*",
		"0 Rectangle with rounded corners*",
		"0 $1 Rounding radius*",
		"4,1,4,$2,$3,$4,$5,$6,$7,$8,$9,$2,$3,0*",
		"1,1,$1+$1,$2,$3*",
		"%",
		"%ADD14RoundRect,0.1X-0.7X-0.5X0.7X-0.5X0.7X0.5X-0.7X0.5X0*%",
		"D14*",
		"X1000000Y1000000D03*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 1)
	assert.Equal(t, KindFlash, layer.Primitives[0].Kind)
	ap := layer.Apertures[14]
	require.NotNil(t, ap)
	assert.Equal(t, ShapeRoundRect, ap.Shape)
	assert.InDelta(t, 1.6, ap.Width, 1e-9)
}

func TestParseMacroBlockClosedOnBodyLine(t *testing.T) {
	// Fritzing closes the block on the last body line instead of a
	// bare % delimiter.
	layer := parseLines(t,
		header,
		"%AMRoundRect*",
		"4,1,4,$2,$3,$4,$5,$6,$7,$8,$9,$2,$3,0*%",
		"%ADD14RoundRect,0.1X-0.7X-0.5X0.7X-0.5X0.7X0.5X-0.7X0.5X0*%",
		"%ADD10C,0.250000*%",
		"D10*",
		"X0Y0D02*",
		"X1000000Y0D01*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 1)
	require.NotNil(t, layer.Apertures[10])
	require.NotNil(t, layer.Apertures[14])
}

func TestUnknownAperture(t *testing.T) {
	_, err := Parse([]byte(strings.Join([]string{
		header,
		"%ADD10C,0.200000*%",
		"D99*",
	}, "\n")))
	var unknown *UnknownApertureError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 99, unknown.Code)
}

func TestDrawBeforeApertureSelect(t *testing.T) {
	_, err := Parse([]byte(strings.Join([]string{
		header,
		"%ADD10C,0.200000*%",
		"X1000000Y1000000D01*",
	}, "\n")))
	var unknown *UnknownApertureError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 0, unknown.Code)
}

func TestUnsupportedFeatures(t *testing.T) {
	cases := map[string][]string{
		"single quadrant arcs": {header, "%ADD10C,0.2*%", "D10*", "G74*"},
		"region mode":          {header, "G36*"},
		"clear polarity":       {header, "%LPC*%"},
		"step and repeat":      {header, "%SRX2Y2I5.0J5.0*%"},
		"unknown macro":        {header, "%ADD15Outline5P,0.1X0.2*%"},
		"arc without G75": {header, "%ADD10C,0.2*%", "D10*", "X0Y0D02*",
			"G02X1000000Y1000000I1000000J0D01*"},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(strings.Join(lines, "\n")))
			var unsupported *UnsupportedFeatureError
			assert.True(t, errors.As(err, &unsupported), "expected UnsupportedFeatureError, got %v", err)
		})
	}
}

func TestPrimitiveOrderIsInputOrder(t *testing.T) {
	layer := parseLines(t,
		header,
		"%ADD10C,0.200000*%",
		"%ADD11C,0.400000*%",
		"D10*",
		"X0Y0D03*",
		"D11*",
		"X1000000Y0D03*",
		"D10*",
		"X2000000Y0D03*",
		"M02*",
	)
	require.Len(t, layer.Primitives, 3)
	assert.Equal(t, 10, layer.Primitives[0].Aperture.Code)
	assert.Equal(t, 11, layer.Primitives[1].Aperture.Code)
	assert.Equal(t, 10, layer.Primitives[2].Aperture.Code)
}
