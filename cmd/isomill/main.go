// isomill converts Gerber PCB exports to G-code for isolation milling
// on a CNC router. It reads the copper layer, optional board outline
// and optional drill file of a KiCad or Fritzing export and writes a
// single milling program.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"isomill/pkg/board"
	"isomill/pkg/discover"
	"isomill/pkg/excellon"
	"isomill/pkg/gcode"
	"isomill/pkg/gerber"
	"isomill/pkg/planar"
	"isomill/pkg/planar/sdfx"
	"isomill/pkg/preview"
	"isomill/pkg/toolpath"
)

type options struct {
	output      string
	offset      float64
	passes      int
	spacing     float64
	spindleRPM  int
	cutDepth    float64
	feedRate    float64
	previewPath string
	verbose     bool
	quiet       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "isomill <project-base>",
		Short: "Convert Gerber PCB exports to isolation milling G-code",
		Long: `isomill converts the Gerber and Excellon exports of a PCB design into
a G-code program that isolates the copper traces with an engraving bit,
marks the board outline and drills the holes.

The project base is the file path prefix of the export. For KiCad that
matches board-F_Cu.gbr, board-Edge_Cuts.gbr and board-PTH.drl; for
Fritzing board_copperTop.gtl, board_contour.gm1 and board_drill.txt.`,
		Example:       "  isomill ~/projects/myboard -o myboard.nc --passes 2",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(args[0], opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output G-code file (default <project>.nc)")
	f.Float64Var(&opts.offset, "offset", toolpath.DefaultOffset, "first pass offset from the copper edge, mm")
	f.IntVar(&opts.passes, "passes", toolpath.DefaultPasses, "number of isolation passes")
	f.Float64Var(&opts.spacing, "spacing", toolpath.DefaultSpacing, "spacing between passes, mm")
	f.IntVar(&opts.spindleRPM, "spindle-speed", gcode.DefaultSpindleRPM, "spindle speed, rpm")
	f.Float64Var(&opts.cutDepth, "cut-depth", gcode.DefaultCutDepth, "trace isolation cut depth, mm")
	f.Float64Var(&opts.feedRate, "feed-rate", gcode.DefaultFeedRate, "horizontal feed rate, mm/min")
	f.StringVar(&opts.previewPath, "preview", "", "write an SVG preview to this path")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

func run(base string, opts *options) error {
	info := log.New(os.Stderr, "", 0)
	debug := log.New(io.Discard, "", 0)
	if opts.quiet {
		info.SetOutput(io.Discard)
	} else if opts.verbose {
		debug.SetOutput(os.Stderr)
	}

	// Depths are below the copper surface. A positive value is almost
	// always a sign mistake, so flip it instead of milling air.
	if opts.cutDepth > 0 {
		info.Printf("cut depth %g is positive, using %g", opts.cutDepth, -opts.cutDepth)
		opts.cutDepth = -opts.cutDepth
	}
	output := opts.output
	if output == "" {
		output = filepath.Base(base) + ".nc"
	}

	files, err := discover.Find(base)
	if err != nil {
		return err
	}
	info.Printf("copper layer: %s", files.Copper)
	if files.Outline != "" {
		info.Printf("edge cuts:    %s", files.Outline)
	}
	if files.Drill != "" {
		info.Printf("drill file:   %s", files.Drill)
	}

	copperLayer, err := parseGerberFile(files.Copper)
	if err != nil {
		return err
	}
	var outlineLayer *gerber.Layer
	if files.Outline != "" {
		if outlineLayer, err = parseGerberFile(files.Outline); err != nil {
			return err
		}
	}
	var holes []excellon.Hole
	if files.Drill != "" {
		data, err := os.ReadFile(files.Drill)
		if err != nil {
			return err
		}
		if holes, err = excellon.Parse(data); err != nil {
			return fmt.Errorf("%s: %w", files.Drill, err)
		}
	}

	copperLayer, outlineLayer, holes, extents := board.Normalize(copperLayer, outlineLayer, holes)
	info.Printf("board size: %.1f x %.1f mm", extents.Width(), extents.Height())

	k := sdfx.New()
	region, err := board.BuildCopper(copperLayer, k)
	if err != nil {
		return err
	}
	debug.Printf("copper region: %d boundary loops", len(region.Loops))

	outlineLoops, err := board.BuildOutline(outlineLayer)
	if err != nil {
		return err
	}

	tp, err := toolpath.Generate(region, k, toolpath.Params{
		Offset:  opts.offset,
		Passes:  opts.passes,
		Spacing: opts.spacing,
	})
	if err != nil {
		return err
	}
	for _, pass := range tp.Passes {
		debug.Printf("pass %d at %.3f mm: %d contours", pass.Index, pass.Offset, len(pass.Contours))
	}

	if opts.previewPath != "" {
		if err := writePreview(opts.previewPath, extents, region, outlineLoops, tp, holes); err != nil {
			return err
		}
		info.Printf("wrote preview %s", opts.previewPath)
	}

	params := gcode.DefaultParams()
	params.SpindleRPM = opts.spindleRPM
	params.CutDepth = opts.cutDepth
	params.FeedRate = opts.feedRate
	prog := gcode.Build(tp, outlineLoops, holes, params)

	// The output file is created only after the whole program built.
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := prog.Write(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	info.Printf("wrote %s (%d commands)", output, len(prog.Commands))
	return nil
}

func parseGerberFile(path string) (*gerber.Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layer, err := gerber.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layer, nil
}

func writePreview(path string, e board.Extents, region *board.Region, outline []planar.Contour, tp *toolpath.Toolpath, holes []excellon.Hole) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return preview.WriteSVG(f, preview.Scene{
		Extents: e,
		Copper:  region.Loops,
		Outline: outline,
		Passes:  tp.Passes,
		Holes:   holes,
	})
}
