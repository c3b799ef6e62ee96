package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
)

type fakeContent struct {
	seq  uint64
	img  image.Image
	size geom.Size
}

func (c *fakeContent) Seq() uint64        { return c.seq }
func (c *fakeContent) Image() image.Image { return c.img }
func (c *fakeContent) Size() geom.Size    { return c.size }

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newTestOutput(t *testing.T, w, h int) *softwareOutput {
	t.Helper()
	r, err := NewSoftwareRenderer("/dev/dri/renderD128")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	out, err := r.NewOutput(geom.Size{W: w, H: h})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	return out.(*softwareOutput)
}

// probe reads one pixel as 8 bit channels
func probe(t *testing.T, out *softwareOutput, x, y int) (r, g, b uint8) {
	t.Helper()
	pr, pg, pb, _ := out.ctx.Image().At(x, y).RGBA()
	return uint8(pr >> 8), uint8(pg >> 8), uint8(pb >> 8)
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -3 && d <= 3
}

func TestRenderFrameReportsDamage(t *testing.T) {
	out := newTestOutput(t, 100, 100)
	clear := Color{R: 0.1, G: 0.1, B: 0.1, A: 1}
	frame := []Element{{
		Kind: KindBorder, ID: 1, Geo: geom.Rect{X: 10, Y: 10, W: 50, H: 40},
		Color: Color{R: 1, A: 1}, Thickness: 4,
	}}

	damaged, err := out.RenderFrame(frame, clear)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if !damaged {
		t.Errorf("first frame reported no damage")
	}

	damaged, err = out.RenderFrame(frame, clear)
	if err != nil {
		t.Fatalf("repeat frame: %v", err)
	}
	if damaged {
		t.Errorf("identical frame reported damage")
	}

	frame[0].Geo.X = 20
	damaged, _ = out.RenderFrame(frame, clear)
	if !damaged {
		t.Errorf("moved element reported no damage")
	}

	out.Invalidate()
	damaged, _ = out.RenderFrame(frame, clear)
	if !damaged {
		t.Errorf("frame after invalidate reported no damage")
	}
}

func TestRenderFrameDrawsBorderStrips(t *testing.T) {
	out := newTestOutput(t, 100, 100)
	clear := Color{R: 0.1, G: 0.1, B: 0.1, A: 1}
	frame := []Element{{
		Kind: KindBorder, ID: 1, Geo: geom.Rect{X: 10, Y: 10, W: 60, H: 60},
		Color: Color{R: 1, A: 1}, Thickness: 4,
	}}
	if _, err := out.RenderFrame(frame, clear); err != nil {
		t.Fatalf("render: %v", err)
	}

	// Top strip is border colored
	r, g, _ := probe(t, out, 40, 12)
	if !near(r, 255) || !near(g, 0) {
		t.Errorf("top strip pixel = %d,%d, expected red", r, g)
	}
	// Middle stays at the clear color, the strips leave it alone
	r, g, b := probe(t, out, 40, 40)
	if !near(r, 26) || !near(g, 26) || !near(b, 26) {
		t.Errorf("center pixel = %d,%d,%d, expected clear color", r, g, b)
	}
	// Outside the element too
	r, _, _ = probe(t, out, 90, 90)
	if !near(r, 26) {
		t.Errorf("outside pixel = %d, expected clear color", r)
	}
}

func TestRenderFrameDrawsContent(t *testing.T) {
	out := newTestOutput(t, 100, 100)
	content := &fakeContent{
		seq:  1,
		img:  solidImage(10, 10, color.RGBA{B: 0xff, A: 0xff}),
		size: geom.Size{W: 10, H: 10},
	}
	frame := []Element{{
		Kind: KindWindow, ID: 3, Seq: content.seq,
		Geo: geom.Rect{X: 0, Y: 0, W: 20, H: 20}, Content: content,
	}}
	if _, err := out.RenderFrame(frame, Color{A: 1}); err != nil {
		t.Fatalf("render: %v", err)
	}
	// Content is scaled onto the element rect
	_, _, b := probe(t, out, 10, 10)
	if !near(b, 255) {
		t.Errorf("content pixel blue = %d, expected 255", b)
	}
	_, _, b = probe(t, out, 50, 50)
	if !near(b, 0) {
		t.Errorf("pixel outside content blue = %d, expected 0", b)
	}
}

func TestRenderFrameSkipsUncommittedContent(t *testing.T) {
	out := newTestOutput(t, 50, 50)
	frame := []Element{
		{Kind: KindWindow, ID: 1, Geo: geom.Rect{W: 20, H: 20}},
		{Kind: KindWindow, ID: 2, Geo: geom.Rect{W: 20, H: 20}, Content: &fakeContent{}},
	}
	if _, err := out.RenderFrame(frame, Color{A: 1}); err != nil {
		t.Fatalf("render with empty content: %v", err)
	}
}

func TestQueueFrameLifecycle(t *testing.T) {
	out := newTestOutput(t, 10, 10)
	if err := out.QueueFrame(); err != nil {
		t.Fatalf("first queue: %v", err)
	}
	if err := out.QueueFrame(); !errors.Is(err, drm.ErrAlreadyQueued) {
		t.Errorf("double queue error = %v, expected ErrAlreadyQueued", err)
	}
	if err := out.FrameSubmitted(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := out.QueueFrame(); err != nil {
		t.Errorf("queue after submit: %v", err)
	}
	// A vblank with nothing in flight is not an error
	if err := out.FrameSubmitted(); err != nil {
		t.Errorf("spurious submit: %v", err)
	}
}

func TestNewOutputRejectsBadSize(t *testing.T) {
	r, _ := NewSoftwareRenderer("")
	if _, err := r.NewOutput(geom.Size{W: 0, H: 100}); err == nil {
		t.Errorf("zero width output accepted")
	}
}

func TestImportCursorScales(t *testing.T) {
	r, _ := NewSoftwareRenderer("")
	tex, err := r.ImportCursor(DefaultCursor(), 1)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if tex.Size() != (geom.Size{W: cursorSize, H: cursorSize}) {
		t.Errorf("cursor size = %v, expected %dx%d", tex.Size(), cursorSize, cursorSize)
	}
	doubled, err := r.ImportCursor(DefaultCursor(), 2)
	if err != nil {
		t.Fatalf("import scaled: %v", err)
	}
	if doubled.Size() != (geom.Size{W: 2 * cursorSize, H: 2 * cursorSize}) {
		t.Errorf("scaled cursor size = %v, expected %dx%d", doubled.Size(), 2*cursorSize, 2*cursorSize)
	}
	if doubled.Seq() == tex.Seq() {
		t.Errorf("distinct textures share a seq")
	}
}

func TestDefaultCursorHasVisiblePixels(t *testing.T) {
	img := DefaultCursor()
	opaque := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				opaque++
			}
		}
	}
	if opaque < 50 {
		t.Errorf("cursor has %d opaque pixels, expected a visible arrow", opaque)
	}
	// Hotspot corner is part of the arrow
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0 {
		t.Errorf("cursor tip at 0,0 is transparent")
	}
}

func TestParseColor(t *testing.T) {
	c := ParseColor("#ff0000")
	if c.R < 0.99 || c.G > 0.01 || c.B > 0.01 || c.A < 0.99 {
		t.Errorf("parsed #ff0000 as %+v", c)
	}
	c = ParseColor("#2A2A2A")
	if c.R < 0.16 || c.R > 0.17 {
		t.Errorf("parsed #2A2A2A red channel as %f", c.R)
	}
}
