// Package shell is the seam towards the protocol state library.
// The compositor core never talks wire protocol itself, it only consumes
// the narrow callback surface below and issues configure/close commands back.
package shell

import (
	"time"

	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
)

// State flags sent back to a toplevel with a configure
type State int

const (
	StateActivated = State(iota)
	StateResizing
	StateFullscreen
)

// Edges is a bitmask of the window edges taking part in a resize
// The values match the xdg toplevel resize_edge enum
type Edges uint32

const (
	EdgeNone   = Edges(0)
	EdgeTop    = Edges(1)
	EdgeBottom = Edges(2)
	EdgeLeft   = Edges(4)
	EdgeRight  = Edges(8)
)

// Layer is the stacking slot of a shell layer surface
type Layer int

const (
	LayerBackground = Layer(iota)
	LayerBottom
	LayerTop
	LayerOverlay
)

// Anchor is a bitmask of the output edges a layer surface sticks to
// The values match the layer shell anchor enum
type Anchor uint32

const (
	AnchorTop    = Anchor(1)
	AnchorBottom = Anchor(2)
	AnchorLeft   = Anchor(4)
	AnchorRight  = Anchor(8)
)

// Toplevel is one client window as the protocol library exposes it.
// Everything behind it (buffers, roles, popups) stays on the protocol side.
type Toplevel interface {
	// Stable identity for maps and logs
	ID() uint64
	AppID() string
	Title() string
	// Asks the client to take on the given size and states.
	// The serial comes from the compositor so replies can be matched up
	Configure(serial uint32, size geom.Size, states []State)
	// Asks the client to close the window. The client may refuse
	Close()
	// Content is what the client last committed, nil before the first
	// commit
	Content() render.Content
}

// LayerSurface is a non-window shell surface (bar, background, notification)
type LayerSurface interface {
	ID() uint64
	Layer() Layer
	// Geometry in logical coordinates of the output the surface sits on
	Geometry() geom.Rect
	Anchor() Anchor
	// ExclusiveZone is how many logical units the surface reserves along
	// its anchored edge. Zero or negative means it reserves nothing
	ExclusiveZone() int
	// Content is what the client last committed, nil before the first
	// commit
	Content() render.Content
}

// FrameSink receives per output presentation reports. The protocol side
// turns them into frame callbacks and presentation feedback for clients
type FrameSink interface {
	// FramePresented reports that the named output scanned out a frame.
	// The timestamp and sequence come straight from the vblank
	FramePresented(output string, when time.Time, seq uint32)
}

// UsableArea shrinks an output rect by every exclusive zone the given layer
// surfaces reserve. Surfaces without a single well defined edge are skipped
func UsableArea(output geom.Rect, layers []LayerSurface) geom.Rect {
	area := output
	for _, l := range layers {
		zone := l.ExclusiveZone()
		if zone <= 0 {
			continue
		}
		switch exclusiveEdge(l.Anchor()) {
		case AnchorTop:
			area.Y += zone
			area.H -= zone
		case AnchorBottom:
			area.H -= zone
		case AnchorLeft:
			area.X += zone
			area.W -= zone
		case AnchorRight:
			area.W -= zone
		}
	}
	if area.Empty() {
		// A pathological layer setup must not leave the workspace without
		// any space at all, fall back to the raw output
		return output
	}
	return area
}

// exclusiveEdge picks the single edge an exclusive zone applies to.
// Anchoring to one edge, or to one edge plus both perpendicular ones,
// names that edge. Anything else has no usable edge
func exclusiveEdge(a Anchor) Anchor {
	vertical := a & (AnchorTop | AnchorBottom)
	horizontal := a & (AnchorLeft | AnchorRight)
	switch {
	case vertical == AnchorTop && horizontal != AnchorLeft && horizontal != AnchorRight:
		return AnchorTop
	case vertical == AnchorBottom && horizontal != AnchorLeft && horizontal != AnchorRight:
		return AnchorBottom
	case horizontal == AnchorLeft && vertical != AnchorTop && vertical != AnchorBottom:
		return AnchorLeft
	case horizontal == AnchorRight && vertical != AnchorTop && vertical != AnchorBottom:
		return AnchorRight
	}
	return 0
}
