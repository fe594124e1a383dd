package gcode

import (
	"fmt"

	"isomill/pkg/excellon"
	"isomill/pkg/planar"
	"isomill/pkg/toolpath"
)

// Default machining parameters. Depths are negative (below the copper
// surface), heights positive.
const (
	DefaultSpindleRPM         = 12000
	DefaultCutDepth           = -0.1
	DefaultEdgeDepth          = -0.2
	DefaultSafeHeight         = 3.0
	DefaultPlungeFeed         = 200.0
	DefaultFeedRate           = 450.0
	DefaultHoleStart          = 0.1
	DefaultHoleDepth          = -1.8
	DefaultLargeHoleThreshold = 0.85

	spindleSpinup = 2.0 // seconds of dwell after M03

	// Tool slots. The engraving bit cuts isolation and outline, the two
	// drills cover holes below and above the size threshold.
	toolEngrave    = 1
	toolSmallDrill = 2
	toolLargeDrill = 3
)

// Params holds the machining setup applied to every program section.
type Params struct {
	SpindleRPM         int
	CutDepth           float64
	EdgeDepth          float64
	SafeHeight         float64
	PlungeFeed         float64
	FeedRate           float64
	HoleStart          float64
	HoleDepth          float64
	LargeHoleThreshold float64
}

// DefaultParams returns the stock FR4 engraving setup.
func DefaultParams() Params {
	return Params{
		SpindleRPM:         DefaultSpindleRPM,
		CutDepth:           DefaultCutDepth,
		EdgeDepth:          DefaultEdgeDepth,
		SafeHeight:         DefaultSafeHeight,
		PlungeFeed:         DefaultPlungeFeed,
		FeedRate:           DefaultFeedRate,
		HoleStart:          DefaultHoleStart,
		HoleDepth:          DefaultHoleDepth,
		LargeHoleThreshold: DefaultLargeHoleThreshold,
	}
}

// Build assembles the full program: isolation passes, outline marking,
// then drilling, bracketed by exactly one spindle start and stop. Tool
// changes leave the spindle running.
func Build(tp *toolpath.Toolpath, outline []planar.Contour, holes []excellon.Hole, p Params) *Program {
	prog := &Program{}
	prog.add(
		Comment{Text: "isomill isolation routing"},
		MillimeterUnits{},
		AbsolutePositioning{},
		RapidZ{Z: p.SafeHeight},
		ToolChange{Slot: toolEngrave, Name: "engraving bit"},
		SpindleOn{RPM: p.SpindleRPM},
		Dwell{Seconds: spindleSpinup},
	)

	if tp != nil {
		for _, pass := range tp.Passes {
			prog.add(Comment{Text: fmt.Sprintf("isolation pass %d, offset %.3f mm", pass.Index, pass.Offset)})
			for _, c := range pass.Contours {
				prog.engrave(c, p.CutDepth, p)
			}
		}
	}

	if len(outline) > 0 {
		prog.add(Comment{Text: "outline marking"})
		for _, c := range outline {
			prog.engrave(c, p.EdgeDepth, p)
		}
	}

	small, large := splitHoles(holes, p.LargeHoleThreshold)
	prog.drill(small, toolSmallDrill, "small drill", p)
	prog.drill(large, toolLargeDrill, "large drill", p)

	prog.add(
		SpindleOff{},
		RapidZ{Z: p.SafeHeight},
		RapidXY{X: 0, Y: 0},
		End{},
	)
	return prog
}

// engrave traverses one closed contour at the given depth: rapid over
// the first vertex, plunge, visit every vertex, close back to the
// start, retract.
func (p *Program) engrave(c planar.Contour, depth float64, params Params) {
	if len(c) == 0 {
		return
	}
	first := c[0]
	p.add(
		RapidXY{X: first.X, Y: first.Y},
		RapidZ{Z: params.HoleStart},
		SetFeed{Rate: params.PlungeFeed},
		FeedZ{Z: depth},
		SetFeed{Rate: params.FeedRate},
	)
	for _, v := range c[1:] {
		p.add(FeedXY{X: v.X, Y: v.Y})
	}
	p.add(
		FeedXY{X: first.X, Y: first.Y},
		RapidZ{Z: params.SafeHeight},
	)
}

// drill emits one tool change and a G81 cycle per hole, in record
// order.
func (p *Program) drill(holes []excellon.Hole, slot int, name string, params Params) {
	if len(holes) == 0 {
		return
	}
	p.add(
		Comment{Text: fmt.Sprintf("%s, %d holes", name, len(holes))},
		RapidZ{Z: params.SafeHeight},
		ToolChange{Slot: slot, Name: name},
	)
	for _, h := range holes {
		p.add(Drill{
			X: h.Pos.X, Y: h.Pos.Y,
			Depth:   params.HoleDepth,
			Retract: params.HoleStart,
			Feed:    params.PlungeFeed,
		})
	}
	p.add(CancelCycle{}, RapidZ{Z: params.SafeHeight})
}

// splitHoles partitions holes by diameter, keeping record order inside
// each group.
func splitHoles(holes []excellon.Hole, threshold float64) (small, large []excellon.Hole) {
	for _, h := range holes {
		if h.Diameter < threshold {
			small = append(small, h)
		} else {
			large = append(large, h)
		}
	}
	return small, large
}
