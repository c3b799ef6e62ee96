package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
)

// Direction of a focus or window move request
type Direction int

const (
	DirLeft = Direction(iota)
	DirRight
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	}
	return "unknown"
}

// BestCandidate finds the window to land on when focus moves from the rect
// `from` in the given direction. A candidate counts if its center lies
// strictly on the requested side of from's center and the two centers are
// no further apart on the perpendicular axis than the candidate's own
// extent there, so roughly aligned windows beat diagonal ones. Among the
// candidates the smallest Manhattan distance between centers wins, the
// first window in list order breaks ties.
// Returns NoWindow if nothing qualifies
func BestCandidate(arena *Arena, from geom.Rect, windows []WindowID, dir Direction) WindowID {
	fromCenter := from.Center()
	best := NoWindow
	bestDist := 0

	for _, win := range windows {
		if !arena.Alive(win) {
			continue
		}
		geo := arena.Geometry(win)
		center := geo.Center()
		dx := center.X - fromCenter.X
		dy := center.Y - fromCenter.Y

		valid := false
		switch dir {
		case DirLeft:
			valid = dx < 0 && abs(dy) < geo.H
		case DirRight:
			valid = dx > 0 && abs(dy) < geo.H
		case DirUp:
			valid = dy < 0 && abs(dx) < geo.W
		case DirDown:
			valid = dy > 0 && abs(dx) < geo.W
		}
		if !valid {
			continue
		}

		dist := abs(dx) + abs(dy)
		if best == NoWindow || dist < bestDist {
			best = win
			bestDist = dist
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
