package render

import (
	"image"

	"github.com/mstarongithub/tidewm/geom"
)

// Kind tags what an Element draws. The set is closed, every consumer
// switches over it explicitly
type Kind int

const (
	KindBorder = Kind(iota)
	KindWindow
	KindLayer
	KindCursor
)

func (k Kind) String() string {
	switch k {
	case KindBorder:
		return "border"
	case KindWindow:
		return "window"
	case KindLayer:
		return "layer"
	case KindCursor:
		return "cursor"
	}
	return "unknown"
}

// Content is the committed pixel state of a client surface. The protocol
// library owns the backing buffer, the renderer only reads it
type Content interface {
	// Seq increases with every commit and drives damage tracking
	Seq() uint64
	// Image is the committed pixel data, nil before the first commit
	Image() image.Image
	// Size of the content in logical units
	Size() geom.Size
}

// Element is one draw command of a frame, in physical output pixels.
// Lists handed to an Output are ordered bottom to top, later elements
// draw over earlier ones.
// Which payload fields matter depends on Kind: borders use Color and
// Thickness, windows and layers use Content, the cursor uses Texture
type Element struct {
	Kind Kind
	// ID and Seq together tell whether the element changed between frames
	ID  uint64
	Seq uint64
	// Geo is where the element lands on the output
	Geo geom.Rect

	Color     Color
	Thickness int
	Content   Content
	Texture   *Texture
}

// fingerprint is the damage identity of an element. Two frames whose
// elements fingerprint pairwise equal need no redraw
type fingerprint struct {
	kind      Kind
	id        uint64
	seq       uint64
	geo       geom.Rect
	color     Color
	thickness int
}

func (e Element) fingerprint() fingerprint {
	return fingerprint{
		kind:      e.Kind,
		id:        e.ID,
		seq:       e.Seq,
		geo:       e.Geo,
		color:     e.Color,
		thickness: e.Thickness,
	}
}

func fingerprintsEqual(a, b []fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
