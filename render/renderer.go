package render

import (
	"image"
	"sync/atomic"

	"github.com/gogpu/gg"

	"github.com/mstarongithub/tidewm/geom"
)

// Renderer produces composition targets for one GPU device
type Renderer interface {
	// NewOutput builds the composition target for one connector at the
	// given physical size
	NewOutput(size geom.Size) (Output, error)
	// ImportCursor converts a cursor image into something the device's
	// outputs can draw, pre-scaled for the given output scale
	ImportCursor(img image.Image, scale float64) (*Texture, error)
	Close() error
}

// Output is the per-connector frame queue: draw a frame, queue it for
// scanout, acknowledge the vblank that retires it.
// Implementations report damage so callers can throttle idle outputs
type Output interface {
	// RenderFrame draws the element list over the clear color and reports
	// whether anything changed since the previously rendered frame
	RenderFrame(elements []Element, clear Color) (bool, error)
	// QueueFrame hands the last rendered frame to scanout. The frame
	// stays in flight until FrameSubmitted.
	// Queueing twice without a vblank in between fails
	QueueFrame() error
	// FrameSubmitted retires the in-flight frame after its vblank
	FrameSubmitted() error
	// Invalidate drops the damage history, the next RenderFrame redraws
	// everything. Needed after session resume, the buffers may hold
	// whatever the previous session controller left behind
	Invalidate()
	Close() error
}

// Texture is renderer owned pixel data in physical pixels
type Texture struct {
	buf  *gg.ImageBuf
	size geom.Size
	seq  uint64
}

var textureSeq atomic.Uint64

// Size of the texture in physical pixels
func (t *Texture) Size() geom.Size {
	if t == nil {
		return geom.Size{}
	}
	return t.size
}

// Seq is a process-unique stamp for damage tracking.
// A nil texture stamps as zero
func (t *Texture) Seq() uint64 {
	if t == nil {
		return 0
	}
	return t.seq
}
