package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
)

// Kind selects the tiling algorithm of a workspace
// New algorithms get a new variant here, not a new interface
type Kind int

const (
	// First window fills the left half, the rest stack up on the right
	MasterStack = Kind(iota)
)

// Placement pairs a window with the rect the layout wants it to have
type Placement struct {
	Window WindowID
	Geo    geom.Rect
}

// Arrange computes target rects for the given windows inside area.
// Pure and deterministic: the same inputs always give the same output.
// The order of windows is the tiling order, not a z order
func Arrange(kind Kind, windows []WindowID, area geom.Rect) []Placement {
	switch kind {
	case MasterStack:
		return masterStack(windows, area)
	}
	return nil
}

// masterStack gives the first window the left half of the area (all of it
// if it is alone) and stacks every other window in the right half with
// equal heights
func masterStack(windows []WindowID, area geom.Rect) []Placement {
	count := len(windows)
	if count == 0 {
		return nil
	}

	placements := make([]Placement, 0, count)
	halfWidth := area.W / 2

	masterWidth := area.W
	if count > 1 {
		masterWidth = halfWidth
	}
	placements = append(placements, Placement{
		Window: windows[0],
		Geo:    geom.Rect{X: area.X, Y: area.Y, W: masterWidth, H: area.H},
	})

	if count == 1 {
		return placements
	}

	stackHeight := area.H / (count - 1)
	for i, win := range windows[1:] {
		placements = append(placements, Placement{
			Window: win,
			Geo: geom.Rect{
				X: area.X + halfWidth,
				Y: area.Y + stackHeight*i,
				W: halfWidth,
				H: stackHeight,
			},
		})
	}
	return placements
}
