package gerber

import "fmt"

// UnknownApertureError reports a draw, flash or select operation that
// references an aperture code with no prior %AD definition. Code 0 means
// the operation ran before any aperture was selected.
type UnknownApertureError struct {
	Line int
	Code int
}

func (e *UnknownApertureError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("line %d: operation before any aperture was selected", e.Line)
	}
	return fmt.Sprintf("line %d: aperture D%d referenced but never defined", e.Line, e.Code)
}

// UnsupportedFeatureError reports a Gerber construct the parser refuses
// to approximate. The pipeline fails loudly instead of guessing.
type UnsupportedFeatureError struct {
	Line    int
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("line %d: unsupported Gerber feature: %s", e.Line, e.Feature)
}
