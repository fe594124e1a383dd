// Package discover locates the fabrication files of a project from its
// base path, covering KiCad and Fritzing naming conventions.
package discover

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Files is the resolved input set. Copper is always present; Outline
// and Drill are empty strings when the project has none.
type Files struct {
	Copper  string
	Outline string
	Drill   string
}

// Pattern lists per file class, ordered by priority. Exact KiCad names
// first, then Fritzing, then loose globs.
var (
	copperPatterns = []string{
		"%s-F_Cu.gbr",
		"%s-B_Cu.gbr",
		"%s_copperTop.gtl",
		"%s_copperBottom.gbl",
		"%s*_Cu.gbr",
		"%s*.gtl",
		"%s*.gbl",
	}
	outlinePatterns = []string{
		"%s-Edge_Cuts.gbr",
		"%s-Edge_cuts.gbr",
		"%s_contour.gm1",
		"%s*Edge*.gbr",
		"%s*contour*",
		"%s*.gm1",
	}
	drillPatterns = []string{
		"%s-PTH.drl",
		"%s.drl",
		"%s-NPTH.drl",
		"%s_drill.txt",
		"%s*.drl",
		"%s*drill*.txt",
	}
)

// Find resolves the copper, outline and drill files for the project at
// base (a path prefix, typically the board name without extension).
// The first pattern with any match wins; multiple matches for one
// pattern resolve to the lexically first. A missing copper layer is an
// error, the other layers are optional.
func Find(base string) (Files, error) {
	dir, name := filepath.Split(base)
	if dir == "" {
		dir = "."
	}

	match := func(patterns []string) string {
		for _, pat := range patterns {
			glob := filepath.Join(dir, fmt.Sprintf(pat, name))
			matches, err := filepath.Glob(glob)
			if err != nil || len(matches) == 0 {
				continue
			}
			sort.Strings(matches)
			return matches[0]
		}
		return ""
	}

	f := Files{
		Copper:  match(copperPatterns),
		Outline: match(outlinePatterns),
		Drill:   match(drillPatterns),
	}
	if f.Copper == "" {
		return Files{}, fmt.Errorf("discover: no copper layer found for base %q (tried %s-F_Cu.gbr, %s_copperTop.gtl, ...)", base, name, name)
	}
	return f, nil
}
