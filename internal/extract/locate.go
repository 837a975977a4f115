package extract

import "github.com/alfredjeanlab/storymap/internal/geometry"

// Tolerances used when reading a diagram, in pixels.
const (
	DefaultUserTolerance      = 25.0  // story user label to story, horizontally
	DefaultSequenceTolerance  = 30.0  // stories sharing a workflow step
	DefaultIncrementTolerance = 100.0 // story to increment lane, vertically
)

// Box is anything with a position on the page.
type Box interface {
	Bounds() geometry.Rect
}

// LocateByX returns the container an element at x belongs to: the last one,
// scanning left to right, whose left edge is at or before x. When x is left of
// every container the leftmost one is returned. containers must be sorted by
// left edge. ok is false only when containers is empty.
func LocateByX[T Box](containers []T, x float64) (found T, ok bool) {
	if len(containers) == 0 {
		return found, false
	}
	found = containers[0]
	for _, c := range containers[1:] {
		if c.Bounds().X > x {
			break
		}
		found = c
	}
	return found, true
}
