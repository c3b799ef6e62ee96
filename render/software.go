package render

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
)

// SoftwareRenderer composes frames on the CPU. It fills the Renderer seam
// for devices without a usable GPU path and for headless runs, scanout
// still happens against the device the render node belongs to
type SoftwareRenderer struct {
	node string
}

func NewSoftwareRenderer(renderNode string) (*SoftwareRenderer, error) {
	logrus.WithField("render_node", renderNode).Debugln("Using software rendering")
	return &SoftwareRenderer{node: renderNode}, nil
}

func (r *SoftwareRenderer) NewOutput(size geom.Size) (Output, error) {
	if size.W <= 0 || size.H <= 0 {
		return nil, fmt.Errorf("bad output size %dx%d", size.W, size.H)
	}
	return &softwareOutput{
		ctx:   gg.NewContext(size.W, size.H),
		cache: map[uint64]cachedContent{},
	}, nil
}

func (r *SoftwareRenderer) ImportCursor(img image.Image, scale float64) (*Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("no cursor image")
	}
	scaled := scaleImage(img, scale)
	b := scaled.Bounds()
	return &Texture{
		buf:  gg.ImageBufFromImage(scaled),
		size: geom.Size{W: b.Dx(), H: b.Dy()},
		seq:  textureSeq.Add(1),
	}, nil
}

func (r *SoftwareRenderer) Close() error { return nil }

// scaleImage resamples img by the given factor. Factor 1 passes through
func scaleImage(img image.Image, scale float64) image.Image {
	if scale == 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

type cachedContent struct {
	seq uint64
	buf *gg.ImageBuf
}

type softwareOutput struct {
	ctx *gg.Context
	// converted client buffers by element ID, refreshed when the commit
	// seq moves on
	cache  map[uint64]cachedContent
	last   []fingerprint
	warm   bool
	queued bool
}

func (o *softwareOutput) RenderFrame(elements []Element, clear Color) (bool, error) {
	prints := make([]fingerprint, len(elements))
	for i, e := range elements {
		prints[i] = e.fingerprint()
	}
	if o.warm && fingerprintsEqual(o.last, prints) {
		return false, nil
	}
	o.ctx.ClearWithColor(clear.rgba())
	for _, e := range elements {
		if err := o.draw(e); err != nil {
			return false, fmt.Errorf("drawing %s element %d: %w", e.Kind, e.ID, err)
		}
	}
	o.pruneCache(elements)
	o.last = prints
	o.warm = true
	return true, nil
}

func (o *softwareOutput) draw(e Element) error {
	switch e.Kind {
	case KindBorder:
		return o.drawBorder(e)
	case KindWindow, KindLayer:
		o.drawContent(e)
	case KindCursor:
		if e.Texture != nil && e.Texture.buf != nil {
			o.ctx.DrawImage(e.Texture.buf, float64(e.Geo.X), float64(e.Geo.Y))
		}
	default:
		return fmt.Errorf("unknown element kind %d", e.Kind)
	}
	return nil
}

// drawBorder fills the four strips between the element rect and the rect
// inset by the thickness. Content drawn later covers the middle anyway,
// the strips just avoid pointless overdraw
func (o *softwareOutput) drawBorder(e Element) error {
	g := e.Geo
	t := e.Thickness
	if t <= 0 || g.Empty() {
		return nil
	}
	if 2*t >= g.W || 2*t >= g.H {
		// Degenerate window, a single fill is all there is room for
		return o.fillRect(g, e.Color)
	}
	strips := [4]geom.Rect{
		{X: g.X, Y: g.Y, W: g.W, H: t},
		{X: g.X, Y: g.Y + g.H - t, W: g.W, H: t},
		{X: g.X, Y: g.Y + t, W: t, H: g.H - 2*t},
		{X: g.X + g.W - t, Y: g.Y + t, W: t, H: g.H - 2*t},
	}
	for _, s := range strips {
		if err := o.fillRect(s, e.Color); err != nil {
			return err
		}
	}
	return nil
}

func (o *softwareOutput) fillRect(r geom.Rect, c Color) error {
	o.ctx.SetRGBA(c.R, c.G, c.B, c.A)
	o.ctx.DrawRectangle(float64(r.X), float64(r.Y), float64(r.W), float64(r.H))
	return o.ctx.Fill()
}

func (o *softwareOutput) drawContent(e Element) {
	if e.Content == nil {
		return
	}
	buf := o.contentBuf(e)
	if buf == nil {
		return
	}
	o.ctx.DrawImageEx(buf, gg.DrawImageOptions{
		X:         float64(e.Geo.X),
		Y:         float64(e.Geo.Y),
		DstWidth:  float64(e.Geo.W),
		DstHeight: float64(e.Geo.H),
	})
}

func (o *softwareOutput) contentBuf(e Element) *gg.ImageBuf {
	if c, ok := o.cache[e.ID]; ok && c.seq == e.Seq {
		return c.buf
	}
	img := e.Content.Image()
	if img == nil {
		return nil
	}
	buf := gg.ImageBufFromImage(img)
	o.cache[e.ID] = cachedContent{seq: e.Seq, buf: buf}
	return buf
}

func (o *softwareOutput) pruneCache(elements []Element) {
	seen := make(map[uint64]bool, len(elements))
	for _, e := range elements {
		if e.Content != nil {
			seen[e.ID] = true
		}
	}
	for id := range o.cache {
		if !seen[id] {
			delete(o.cache, id)
		}
	}
}

func (o *softwareOutput) QueueFrame() error {
	if o.queued {
		return drm.ErrAlreadyQueued
	}
	o.queued = true
	return nil
}

func (o *softwareOutput) FrameSubmitted() error {
	o.queued = false
	return nil
}

func (o *softwareOutput) Invalidate() {
	o.warm = false
}

func (o *softwareOutput) Close() error {
	return o.ctx.Close()
}
