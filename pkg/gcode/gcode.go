// Package gcode builds and serializes the milling program. A Program is
// an ordered list of typed commands assembled fully in memory; nothing
// is written until the whole pipeline has succeeded.
package gcode

import (
	"bufio"
	"fmt"
	"io"
)

// Command is one line of the motion program.
type Command interface {
	gcode() string
}

// coord formats an absolute coordinate at the program's fixed
// precision. Every vertex is formatted from its absolute value, so
// rounding never accumulates along a path.
func coord(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// MillimeterUnits selects metric input (G21).
type MillimeterUnits struct{}

func (MillimeterUnits) gcode() string { return "G21" }

// AbsolutePositioning selects absolute coordinates (G90).
type AbsolutePositioning struct{}

func (AbsolutePositioning) gcode() string { return "G90" }

// RapidXY moves above the work at rapid rate.
type RapidXY struct{ X, Y float64 }

func (c RapidXY) gcode() string { return "G00 X" + coord(c.X) + " Y" + coord(c.Y) }

// RapidZ moves the spindle vertically at rapid rate.
type RapidZ struct{ Z float64 }

func (c RapidZ) gcode() string { return "G00 Z" + coord(c.Z) }

// FeedXY cuts to a point at the current feed rate.
type FeedXY struct{ X, Y float64 }

func (c FeedXY) gcode() string { return "G01 X" + coord(c.X) + " Y" + coord(c.Y) }

// FeedZ plunges or retracts at the current feed rate.
type FeedZ struct{ Z float64 }

func (c FeedZ) gcode() string { return "G01 Z" + coord(c.Z) }

// SetFeed sets the modal feed rate in mm/min.
type SetFeed struct{ Rate float64 }

func (c SetFeed) gcode() string { return fmt.Sprintf("F%.0f", c.Rate) }

// SpindleOn starts the spindle clockwise at the given speed.
type SpindleOn struct{ RPM int }

func (c SpindleOn) gcode() string { return fmt.Sprintf("M03 S%d", c.RPM) }

// SpindleOff stops the spindle.
type SpindleOff struct{}

func (SpindleOff) gcode() string { return "M05" }

// Dwell pauses for the spindle to reach speed.
type Dwell struct{ Seconds float64 }

func (c Dwell) gcode() string { return fmt.Sprintf("G04 P%.1f", c.Seconds) }

// ToolChange requests the tool in the given slot.
type ToolChange struct {
	Slot int
	Name string
}

func (c ToolChange) gcode() string { return fmt.Sprintf("T%d M06 (%s)", c.Slot, c.Name) }

// Drill runs one G81 canned drill cycle at a point. Depth, Retract and
// Feed repeat on every cycle line so each hole is self-contained.
type Drill struct {
	X, Y    float64
	Depth   float64
	Retract float64
	Feed    float64
}

func (c Drill) gcode() string {
	return fmt.Sprintf("G81 X%s Y%s Z%s R%s F%.0f",
		coord(c.X), coord(c.Y), coord(c.Depth), coord(c.Retract), c.Feed)
}

// CancelCycle ends the active canned cycle (G80).
type CancelCycle struct{}

func (CancelCycle) gcode() string { return "G80" }

// Comment is a parenthesized program comment.
type Comment struct{ Text string }

func (c Comment) gcode() string { return "(" + c.Text + ")" }

// End terminates the program (M30).
type End struct{}

func (End) gcode() string { return "M30" }

// Program is the complete ordered command list.
type Program struct {
	Commands []Command
}

func (p *Program) add(cmds ...Command) {
	p.Commands = append(p.Commands, cmds...)
}

// Write serializes the program, one command per line.
func (p *Program) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, c := range p.Commands {
		if _, err := bw.WriteString(c.gcode()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
