package board

import "fmt"

// GeometryBuildError reports a copper layer that could not be merged
// into a valid planar region.
type GeometryBuildError struct {
	Reason string
	Err    error
}

func (e *GeometryBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("copper geometry: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("copper geometry: %s", e.Reason)
}

func (e *GeometryBuildError) Unwrap() error { return e.Err }

// OpenOutlineError reports a board outline whose segments do not close
// into a loop within the endpoint tolerance.
type OpenOutlineError struct {
	Gap float64 // distance between the dangling endpoints, mm
	X   float64 // dangling endpoint position
	Y   float64
}

func (e *OpenOutlineError) Error() string {
	return fmt.Sprintf("board outline does not close: %.3f mm gap at (%.3f, %.3f)", e.Gap, e.X, e.Y)
}
