package main

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/mstarongithub/tidewm/config"
	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
)

// Fakes for the hardware seams. The tests play the loop goroutine
// themselves: they call handlers directly and drain the pending queue,
// so everything stays deterministic and nothing ever races

type fakeOutput struct {
	size    geom.Size
	damaged bool
	queued  bool

	renders     int
	queues      int
	submits     int
	invalidated int
	closed      bool

	last      []render.Element
	renderErr error
	queueErr  error
}

func (o *fakeOutput) RenderFrame(elements []render.Element, clear render.Color) (bool, error) {
	o.renders++
	o.last = elements
	if o.renderErr != nil {
		return false, o.renderErr
	}
	return o.damaged, nil
}

func (o *fakeOutput) QueueFrame() error {
	if o.queueErr != nil {
		return o.queueErr
	}
	if o.queued {
		return drm.ErrAlreadyQueued
	}
	o.queued = true
	o.queues++
	return nil
}

func (o *fakeOutput) FrameSubmitted() error {
	o.queued = false
	o.submits++
	return nil
}

func (o *fakeOutput) Invalidate() {
	o.invalidated++
}

func (o *fakeOutput) Close() error {
	o.closed = true
	return nil
}

type fakeRenderer struct {
	outputs []*fakeOutput
	closed  bool
}

func (r *fakeRenderer) NewOutput(size geom.Size) (render.Output, error) {
	o := &fakeOutput{size: size, damaged: true}
	r.outputs = append(r.outputs, o)
	return o, nil
}

func (r *fakeRenderer) ImportCursor(img image.Image, scale float64) (*render.Texture, error) {
	return &render.Texture{}, nil
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

type fakeCard struct {
	path   string
	conns  []drm.Connector
	scans  int
	closed bool
	stop   chan struct{}
}

func (c *fakeCard) Path() string {
	return c.path
}

func (c *fakeCard) ScanConnectors() ([]drm.Connector, error) {
	c.scans++
	return c.conns, nil
}

// WaitEvents blocks until the card is closed. Tests hand vblanks to the
// server directly instead of routing them through the pump goroutine
func (c *fakeCard) WaitEvents() ([]drm.VBlank, error) {
	<-c.stop
	return nil, errors.New("card closed")
}

func (c *fakeCard) Close() error {
	if !c.closed {
		c.closed = true
		close(c.stop)
	}
	return nil
}

type fakeBackend struct {
	cards     map[string]*fakeCard
	renderers []*fakeRenderer
	infos     []drm.CardInfo
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{cards: map[string]*fakeCard{}}
}

func (b *fakeBackend) addCard(path string, id drm.DeviceID, conns ...drm.Connector) *fakeCard {
	c := &fakeCard{path: path, conns: conns, stop: make(chan struct{})}
	b.cards[path] = c
	b.infos = append(b.infos, drm.CardInfo{Path: path, ID: id})
	return c
}

func (b *fakeBackend) ListCards() ([]drm.CardInfo, error) {
	return b.infos, nil
}

func (b *fakeBackend) OpenCard(path string) (card, error) {
	c, ok := b.cards[path]
	if !ok {
		return nil, fmt.Errorf("no card at %s", path)
	}
	if c.closed {
		// Re-opened after a release, needs a fresh pump gate
		c.closed = false
		c.stop = make(chan struct{})
	}
	return c, nil
}

func (b *fakeBackend) NewRenderer(renderNode string) (render.Renderer, error) {
	r := &fakeRenderer{}
	b.renderers = append(b.renderers, r)
	return r, nil
}

type presentReport struct {
	output string
	when   time.Time
	seq    uint32
}

type fakeSink struct {
	reports []presentReport
}

func (f *fakeSink) FramePresented(output string, when time.Time, seq uint32) {
	f.reports = append(f.reports, presentReport{output: output, when: when, seq: seq})
}

type testLayer struct {
	id      uint64
	layer   shell.Layer
	geo     geom.Rect
	anchor  shell.Anchor
	zone    int
	content render.Content
}

func (l *testLayer) ID() uint64              { return l.id }
func (l *testLayer) Layer() shell.Layer      { return l.layer }
func (l *testLayer) Geometry() geom.Rect     { return l.geo }
func (l *testLayer) Anchor() shell.Anchor    { return l.anchor }
func (l *testLayer) ExclusiveZone() int      { return l.zone }
func (l *testLayer) Content() render.Content { return l.content }

type testContent struct {
	seq  uint64
	size geom.Size
}

func (c *testContent) Seq() uint64 { return c.seq }
func (c *testContent) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, c.size.W, c.size.H))
}
func (c *testContent) Size() geom.Size { return c.size }

func testMode() drm.Mode {
	return drm.Mode{Name: "2560x1440", Width: 2560, Height: 1440, RefreshMHz: 60_000, Preferred: true}
}

// testConnector is a connected DisplayPort with one 2560x1440@60 mode
func testConnector(id, crtc uint32) drm.Connector {
	return drm.Connector{
		ID:        drm.ConnectorID(id),
		Type:      10,
		TypeID:    id,
		Connected: true,
		CRTC:      drm.CRTCID(crtc),
		Modes:     []drm.Mode{testMode()},
	}
}

func disconnected(id uint32) drm.Connector {
	conn := testConnector(id, 0)
	conn.Connected = false
	return conn
}

// newTestServer brings up a server over one fake card with the given
// connectors. Default config, so borders are 2 thick with a gap of 2
func newTestServer(t *testing.T, conns ...drm.Connector) (*Server, *fakeBackend) {
	t.Helper()
	hw := newFakeBackend()
	hw.addCard("/dev/dri/card0", 0xe200, conns...)
	s := NewServer(config.Default(), hw)
	s.startupScan()
	t.Cleanup(s.teardown)
	return s, hw
}

func output0(t *testing.T, s *Server) *renderSurface {
	t.Helper()
	all := s.allSurfaces()
	if len(all) == 0 {
		t.Fatalf("no outputs came up")
	}
	return all[0]
}

func fakeOut(t *testing.T, surf *renderSurface) *fakeOutput {
	t.Helper()
	o, ok := surf.output.(*fakeOutput)
	if !ok {
		t.Fatalf("surface output is a %T, not the fake", surf.output)
	}
	return o
}

// addWindow maps a fresh toplevel and settles the layout
func addWindow(s *Server, id uint64, app string) (*tiler.TestWindow, tiler.WindowID) {
	w := &tiler.TestWindow{Id: id, App: app}
	s.handleToplevelCreated(w)
	s.drainPending()
	return w, s.byToplevel[id]
}

func hasState(states []shell.State, want shell.State) bool {
	for _, st := range states {
		if st == want {
			return true
		}
	}
	return false
}
