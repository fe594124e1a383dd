package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const copperFixture = `%FSLAX36Y36*%
%MOMM*%
%ADD10C,0.300000*%
%ADD11R,1.600000X1.200000*%
G90*
G01*
D10*
X1000000Y1000000D02*
X4000000Y1000000D01*
D11*
X2500000Y2500000D03*
M02*
`

const drillFixture = `M48
METRIC
T1C0.800
%
T1
X2.5Y2.5
M30
`

// The D99 selection has no matching %ADD definition.
const badCopperFixture = `%FSLAX36Y36*%
%MOMM*%
%ADD10C,0.300000*%
G90*
G01*
D99*
X1000000Y1000000D02*
X4000000Y1000000D01*
M02*
`

func quietOptions(output string) *options {
	return &options{
		output:     output,
		offset:     0.22,
		passes:     1,
		spacing:    0.2,
		spindleRPM: 12000,
		cutDepth:   -0.1,
		feedRate:   450,
		quiet:      true,
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "board-F_Cu.gbr", copperFixture)
	writeFixture(t, dir, "board-PTH.drl", drillFixture)
	output := filepath.Join(dir, "board.nc")

	if err := run(filepath.Join(dir, "board"), quietOptions(output)); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("no output file: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "(") {
		t.Error("program does not start with a comment header")
	}
	if strings.Count(text, "M03") != 1 || strings.Count(text, "M05") != 1 {
		t.Error("program must contain exactly one spindle start and stop")
	}
	if !strings.Contains(text, "G81 X") {
		t.Error("program has no drill cycle for the hole")
	}
	if !strings.HasSuffix(strings.TrimSpace(text), "M30") {
		t.Error("program does not end with M30")
	}
}

func TestRunWritesPreview(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "board-F_Cu.gbr", copperFixture)
	output := filepath.Join(dir, "board.nc")

	opts := quietOptions(output)
	opts.previewPath = filepath.Join(dir, "board.svg")
	if err := run(filepath.Join(dir, "board"), opts); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	svg, err := os.ReadFile(opts.previewPath)
	if err != nil {
		t.Fatalf("no preview file: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("preview file is not an SVG")
	}
}

func TestRunMalformedInputWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "board-F_Cu.gbr", badCopperFixture)
	output := filepath.Join(dir, "board.nc")

	err := run(filepath.Join(dir, "board"), quietOptions(output))
	if err == nil {
		t.Fatal("expected an error for an undefined aperture")
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("a failed run must not leave an output file behind")
	}
}

func TestRunPositiveCutDepthNegated(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "board-F_Cu.gbr", copperFixture)
	output := filepath.Join(dir, "board.nc")

	opts := quietOptions(output)
	opts.cutDepth = 0.1
	if err := run(filepath.Join(dir, "board"), opts); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("no output file: %v", err)
	}
	if !strings.Contains(string(data), "G01 Z-0.100") {
		t.Error("positive cut depth was not negated")
	}
	if strings.Contains(string(data), "G01 Z0.100") {
		t.Error("program plunges above the surface")
	}
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
