package main

import (
	"testing"

	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
)

func TestMoveRequestStartsGrab(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, id := addWindow(s, 1, "term")

	s.handleMotion(geom.Point{X: 600, Y: 700})
	s.handleButton(272, true)
	s.handleMoveRequested(1, s.buttonSerial)
	if s.grab == nil || s.grab.kind != grabMove {
		t.Fatalf("no move grab running")
	}
	if s.ws.Arena().Mode(id) != tiler.ModeFloating {
		t.Errorf("grabbed window should pop out into floating")
	}
	start := s.ws.Arena().Geometry(id)

	s.handleMotion(geom.Point{X: 650, Y: 760})
	want := geom.RectAt(geom.Point{X: start.X + 50, Y: start.Y + 60}, start.Size())
	if got := s.ws.Arena().Geometry(id); got != want {
		t.Errorf("dragged to %v, want %v", got, want)
	}

	s.handleButton(272, false)
	if s.grab != nil {
		t.Errorf("grab outlived the button")
	}
	s.drainPending()
}

func TestStaleSerialDropsRequest(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	addWindow(s, 1, "term")

	s.handleMotion(geom.Point{X: 600, Y: 700})
	s.handleButton(272, true)
	s.handleMoveRequested(1, s.buttonSerial-1)
	if s.grab != nil {
		t.Fatalf("stale serial started a grab")
	}

	// With the button gone even the right serial is too late
	s.handleButton(272, false)
	s.handleMoveRequested(1, s.buttonSerial)
	if s.grab != nil {
		t.Fatalf("request without a held button started a grab")
	}
	s.drainPending()
}

func TestResizeClampsAtMinimum(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	w, id := addWindow(s, 1, "term")
	arena := s.ws.Arena()
	arena.SetMode(id, tiler.ModeFloating)
	arena.SetGeometry(id, geom.Rect{X: 500, Y: 400, W: 300, H: 200})

	s.handleMotion(geom.Point{X: 800, Y: 600})
	s.handleButton(272, true)
	s.handleResizeRequested(1, s.buttonSerial, shell.EdgeRight|shell.EdgeBottom)
	if s.grab == nil || s.grab.kind != grabResize {
		t.Fatalf("no resize grab running")
	}
	if !hasState(w.States[len(w.States)-1], shell.StateResizing) {
		t.Errorf("client not told the resize started")
	}

	// Dragging way past the minimum pins the size, the far corner stays put
	s.handleMotion(geom.Point{X: 100, Y: 100})
	want := geom.Rect{X: 500, Y: 400, W: 100, H: 100}
	if got := arena.Geometry(id); got != want {
		t.Errorf("clamped resize got %v, want %v", got, want)
	}

	s.handleButton(272, false)
	if hasState(w.States[len(w.States)-1], shell.StateResizing) {
		t.Errorf("resizing state stuck after the grab ended")
	}
	s.drainPending()
}

func TestResizeLeftEdgeKeepsRightFixed(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, id := addWindow(s, 1, "term")
	arena := s.ws.Arena()
	arena.SetMode(id, tiler.ModeFloating)
	arena.SetGeometry(id, geom.Rect{X: 500, Y: 400, W: 300, H: 200})

	s.handleMotion(geom.Point{X: 500, Y: 450})
	s.handleButton(272, true)
	s.handleResizeRequested(1, s.buttonSerial, shell.EdgeLeft)

	s.handleMotion(geom.Point{X: 750, Y: 450})
	want := geom.Rect{X: 700, Y: 400, W: 100, H: 200}
	if got := arena.Geometry(id); got != want {
		t.Errorf("shrink past the minimum got %v, want %v", got, want)
	}

	s.handleMotion(geom.Point{X: 300, Y: 450})
	want = geom.Rect{X: 300, Y: 400, W: 500, H: 200}
	if got := arena.Geometry(id); got != want {
		t.Errorf("growing left got %v, want %v", got, want)
	}
	s.handleButton(272, false)
	s.drainPending()
}

func TestDragTogglesKeyboardMove(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, id := addWindow(s, 1, "term")
	s.handleMotion(geom.Point{X: 1000, Y: 700})

	s.toggleDrag()
	if s.grab == nil || s.grab.kind != grabMove {
		t.Fatalf("drag toggle did not start a move")
	}
	// Action moves center the window under the pointer
	want := geom.RectAt(geom.Point{X: 1000 - 2552/2, Y: 700 - 1432/2}, geom.Size{W: 2552, H: 1432})
	if got := s.ws.Arena().Geometry(id); got != want {
		t.Errorf("centered at %v, want %v", got, want)
	}

	s.handleMotion(geom.Point{X: 1100, Y: 800})
	want = want.Translate(geom.Point{X: 100, Y: 100})
	if got := s.ws.Arena().Geometry(id); got != want {
		t.Errorf("dragged to %v, want %v", got, want)
	}

	s.toggleDrag()
	if s.grab != nil {
		t.Errorf("second toggle did not end the drag")
	}
	s.drainPending()
}

func TestGrabEndsWhenWindowDies(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	addWindow(s, 1, "term")

	s.handleMotion(geom.Point{X: 600, Y: 700})
	s.handleButton(272, true)
	s.handleMoveRequested(1, s.buttonSerial)
	if s.grab == nil {
		t.Fatalf("no grab running")
	}

	s.handleToplevelDestroyed(1)
	if s.grab != nil {
		t.Errorf("grab held on to a dead window")
	}
	// Motion after the fact must not blow up
	s.handleMotion(geom.Point{X: 700, Y: 700})
	s.drainPending()
}

func TestGrabLocksFocus(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, idA := addWindow(s, 1, "a")
	addWindow(s, 2, "b")
	s.setFocus(idA)

	s.handleMotion(geom.Point{X: 600, Y: 700})
	s.handleButton(272, true)
	s.handleMoveRequested(1, s.buttonSerial)

	// Crossing the other window must not steal the focus mid drag
	s.handleMotion(geom.Point{X: 1920, Y: 720})
	if s.ws.Current().Active() != idA {
		t.Errorf("focus wandered off during the grab")
	}
	s.handleButton(272, false)
	s.drainPending()
}

func TestFullscreenWindowRefusesGrab(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, id := addWindow(s, 1, "video")
	s.toggleFullscreenActive()
	s.drainPending()

	s.toggleDrag()
	if s.grab != nil {
		t.Errorf("fullscreen window got move grabbed")
	}
	s.beginResize(id, shell.EdgeRight)
	if s.grab != nil {
		t.Errorf("fullscreen window got resize grabbed")
	}
	s.drainPending()
}
