package gcode

import (
	"bytes"
	"strings"
	"testing"

	"isomill/pkg/excellon"
	"isomill/pkg/planar"
	"isomill/pkg/toolpath"
)

func padToolpath() *toolpath.Toolpath {
	return &toolpath.Toolpath{Passes: []toolpath.Pass{{
		Index:  0,
		Offset: 0.22,
		Contours: []planar.Contour{{
			{X: 1, Y: 1}, {X: 4, Y: 1}, {X: 4, Y: 3}, {X: 1, Y: 3},
		}},
	}}}
}

func indexOf(cmds []Command, match func(Command) bool) int {
	for i, c := range cmds {
		if match(c) {
			return i
		}
	}
	return -1
}

func lastIndexOf(cmds []Command, match func(Command) bool) int {
	last := -1
	for i, c := range cmds {
		if match(c) {
			last = i
		}
	}
	return last
}

func TestSingleSpindlePair(t *testing.T) {
	holes := []excellon.Hole{{Pos: planar.Point{X: 2.5, Y: 2}, Diameter: 0.8}}
	prog := Build(padToolpath(), nil, holes, DefaultParams())

	on, off := 0, 0
	for _, c := range prog.Commands {
		switch c.(type) {
		case SpindleOn:
			on++
		case SpindleOff:
			off++
		}
	}
	if on != 1 || off != 1 {
		t.Fatalf("spindle toggled %d on / %d off times, expected exactly one pair", on, off)
	}

	onAt := indexOf(prog.Commands, func(c Command) bool { _, ok := c.(SpindleOn); return ok })
	offAt := indexOf(prog.Commands, func(c Command) bool { _, ok := c.(SpindleOff); return ok })
	plunge := indexOf(prog.Commands, func(c Command) bool { _, ok := c.(FeedZ); return ok })
	lastDrill := lastIndexOf(prog.Commands, func(c Command) bool { _, ok := c.(Drill); return ok })

	if plunge < onAt {
		t.Error("plunge happens before the spindle starts")
	}
	if lastDrill < 0 || lastDrill > offAt {
		t.Error("drill cycle is not bracketed by the spindle pair")
	}
	if _, ok := prog.Commands[len(prog.Commands)-1].(End); !ok {
		t.Error("program does not end with M30")
	}
}

func TestEngraveTraversalOrder(t *testing.T) {
	prog := Build(padToolpath(), nil, nil, DefaultParams())

	// The contour section: rapid above the start, approach, plunge,
	// every vertex at feed, close back to the start, retract.
	start := indexOf(prog.Commands, func(c Command) bool {
		r, ok := c.(RapidXY)
		return ok && r.X == 1 && r.Y == 1
	})
	if start < 0 {
		t.Fatal("no rapid to contour start")
	}

	var feeds []FeedXY
	for _, c := range prog.Commands[start:] {
		if f, ok := c.(FeedXY); ok {
			feeds = append(feeds, f)
		}
		if _, ok := c.(RapidZ); ok && len(feeds) > 0 {
			break
		}
	}
	if len(feeds) != 4 {
		t.Fatalf("contour traversal has %d feed moves, expected 4 (3 vertices + close)", len(feeds))
	}
	last := feeds[len(feeds)-1]
	if last.X != 1 || last.Y != 1 {
		t.Errorf("traversal closes at (%g, %g), expected the start vertex", last.X, last.Y)
	}
}

func TestOutlineMarkedAtEdgeDepth(t *testing.T) {
	outline := []planar.Contour{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 8}, {X: 0, Y: 8},
	}}
	p := DefaultParams()
	prog := Build(nil, outline, nil, p)

	foundEdgePlunge := false
	for _, c := range prog.Commands {
		if f, ok := c.(FeedZ); ok && f.Z == p.EdgeDepth {
			foundEdgePlunge = true
		}
	}
	if !foundEdgePlunge {
		t.Errorf("outline pass never plunges to edge depth %g", p.EdgeDepth)
	}
}

func TestDrillSplitByDiameter(t *testing.T) {
	holes := []excellon.Hole{
		{Pos: planar.Point{X: 1, Y: 1}, Diameter: 0.6},
		{Pos: planar.Point{X: 2, Y: 1}, Diameter: 0.9},
		{Pos: planar.Point{X: 3, Y: 1}, Diameter: 0.8},
	}
	prog := Build(nil, nil, holes, DefaultParams())

	var slots []int
	var drills []Drill
	for _, c := range prog.Commands {
		switch v := c.(type) {
		case ToolChange:
			slots = append(slots, v.Slot)
		case Drill:
			drills = append(drills, v)
		}
	}
	// Engraving tool, then the small drill, then the large drill.
	if len(slots) != 3 || slots[1] != toolSmallDrill || slots[2] != toolLargeDrill {
		t.Fatalf("tool change slots = %v, expected [1 2 3]", slots)
	}
	if len(drills) != 3 {
		t.Fatalf("%d drill cycles, expected 3", len(drills))
	}
	// Small holes keep record order, then the large one.
	if drills[0].X != 1 || drills[1].X != 3 || drills[2].X != 2 {
		t.Errorf("drill order = %v, expected small holes (x=1, x=3) then large (x=2)", drills)
	}
}

func TestWriteSerialization(t *testing.T) {
	prog := &Program{}
	prog.add(
		MillimeterUnits{},
		AbsolutePositioning{},
		RapidXY{X: 1.5, Y: -2},
		SetFeed{Rate: 450},
		FeedZ{Z: -0.1},
		Drill{X: 2.5, Y: 2, Depth: -1.8, Retract: 0.1, Feed: 200},
		CancelCycle{},
		SpindleOff{},
		End{},
	)

	var buf bytes.Buffer
	if err := prog.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := strings.Join([]string{
		"G21",
		"G90",
		"G00 X1.500 Y-2.000",
		"F450",
		"G01 Z-0.100",
		"G81 X2.500 Y2.000 Z-1.800 R0.100 F200",
		"G80",
		"M05",
		"M30",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("serialized program:\n%s\nexpected:\n%s", buf.String(), want)
	}
}

func TestCoordinatePrecision(t *testing.T) {
	// A 3.6-format Gerber coordinate parses to micron resolution and
	// must survive emission at 3 decimals without drift.
	cases := map[float64]string{
		1.234567:  "1.235",
		12.3454:   "12.345",
		-0.0004:   "-0.000",
		100.0:     "100.000",
		33.333333: "33.333",
	}
	for v, want := range cases {
		if got := coord(v); got != want {
			t.Errorf("coord(%v) = %q, expected %q", v, got, want)
		}
	}
}
