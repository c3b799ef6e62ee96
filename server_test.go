package main

import (
	"testing"

	"github.com/mstarongithub/tidewm/config"
	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
)

func TestLayoutOnSingleOutput(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))

	// Border 2 plus gap 2 insets every tile by 4
	a, idA := addWindow(s, 1, "term")
	want := geom.Rect{X: 4, Y: 4, W: 2552, H: 1432}
	if got := s.ws.Arena().Geometry(idA); got != want {
		t.Fatalf("single window got %v, want %v", got, want)
	}
	if len(a.Configures) == 0 || a.Configures[len(a.Configures)-1] != want.Size() {
		t.Errorf("window never told about %v: %v", want.Size(), a.Configures)
	}

	_, idB := addWindow(s, 2, "editor")
	wantA := geom.Rect{X: 4, Y: 4, W: 1272, H: 1432}
	wantB := geom.Rect{X: 1284, Y: 4, W: 1272, H: 1432}
	if got := s.ws.Arena().Geometry(idA); got != wantA {
		t.Errorf("master got %v, want %v", got, wantA)
	}
	if got := s.ws.Arena().Geometry(idB); got != wantB {
		t.Errorf("stack got %v, want %v", got, wantB)
	}
}

func TestMoveWindowSwapsSlots(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, idA := addWindow(s, 1, "a")
	_, idB := addWindow(s, 2, "b")
	s.setFocus(idA)

	s.moveDir(tiler.DirRight)
	s.drainPending()

	if got := s.ws.Arena().Geometry(idA).X; got != 1284 {
		t.Errorf("moved window sits at x=%d, want 1284", got)
	}
	if got := s.ws.Arena().Geometry(idB).X; got != 4 {
		t.Errorf("displaced window sits at x=%d, want 4", got)
	}
	if s.ws.Current().Active() != idA {
		t.Errorf("focus left the moved window")
	}
	if want := (geom.Point{X: 1920, Y: 720}); s.pointer != want {
		t.Errorf("pointer at %v, want %v", s.pointer, want)
	}
}

func TestFocusDirParksPointerOnTarget(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, idA := addWindow(s, 1, "a")
	addWindow(s, 2, "b")

	s.focusDir(tiler.DirLeft)
	s.drainPending()

	if s.ws.Current().Active() != idA {
		t.Errorf("focus did not move left")
	}
	if want := (geom.Point{X: 640, Y: 720}); s.pointer != want {
		t.Errorf("pointer at %v, want %v", s.pointer, want)
	}
}

func TestWorkspaceIsolation(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, idA := addWindow(s, 1, "a")
	solo := geom.Rect{X: 4, Y: 4, W: 2552, H: 1432}

	s.moveActiveToWorkspace(1)
	s.drainPending()
	if s.ws.ActiveIndex() != 1 {
		t.Fatalf("carrying a window should follow it, active workspace is %d", s.ws.ActiveIndex())
	}

	s.switchWorkspace(0)
	s.drainPending()
	_, idB := addWindow(s, 2, "b")
	if got := s.ws.Arena().Geometry(idB); got != solo {
		t.Errorf("window on workspace 0 got %v, want %v", got, solo)
	}
	if got := s.ws.Arena().Geometry(idA); got != solo {
		t.Errorf("hidden window moved to %v", got)
	}

	// Out of range switches change nothing
	s.switchWorkspace(99)
	if s.ws.ActiveIndex() != 0 {
		t.Errorf("switched to a workspace that does not exist")
	}
}

func TestFocusFollowsPointer(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	a, idA := addWindow(s, 1, "a")
	b, _ := addWindow(s, 2, "b")

	s.handleMotion(geom.Point{X: 600, Y: 700})
	s.drainPending()
	if s.ws.Current().Active() != idA {
		t.Fatalf("pointer over the master should focus it")
	}
	if !hasState(a.States[len(a.States)-1], shell.StateActivated) {
		t.Errorf("focused window not told it is active")
	}
	if hasState(b.States[len(b.States)-1], shell.StateActivated) {
		t.Errorf("unfocused window still told it is active")
	}

	// Empty space keeps the focus where it was
	s.handleMotion(geom.Point{X: 3000, Y: 700})
	s.drainPending()
	if s.ws.Current().Active() != idA {
		t.Errorf("focus drifted off into the void")
	}
}

func TestFullscreenCoversOutputAndRestores(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	w, id := addWindow(s, 1, "video")
	addWindow(s, 2, "chat")
	s.setFocus(id)
	before := s.ws.Arena().Geometry(id)

	s.toggleFullscreenActive()
	s.drainPending()
	if got := s.ws.Arena().Geometry(id); got != (geom.Rect{W: 2560, H: 1440}) {
		t.Fatalf("fullscreen got %v, want the whole output", got)
	}
	if !hasState(w.States[len(w.States)-1], shell.StateFullscreen) {
		t.Errorf("client not told about fullscreen")
	}

	s.toggleFullscreenActive()
	s.drainPending()
	if got := s.ws.Arena().Geometry(id); got != before {
		t.Errorf("restore got %v, want %v", got, before)
	}
	if hasState(w.States[len(w.States)-1], shell.StateFullscreen) {
		t.Errorf("fullscreen state stuck after leaving")
	}
}

func TestFullscreenRequestTargetsNamedOutput(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40), testConnector(2, 41))
	_, id := addWindow(s, 1, "video")

	s.handleFullscreenRequested(1, "DP-2")
	s.drainPending()
	want := geom.Rect{X: 2560, Y: 0, W: 2560, H: 1440}
	if got := s.ws.Arena().Geometry(id); got != want {
		t.Fatalf("fullscreen on the named output got %v, want %v", got, want)
	}

	s.handleUnfullscreenRequested(1)
	s.drainPending()
	if got := s.ws.Arena().Mode(id); got != tiler.ModeTiled {
		t.Errorf("mode after leaving fullscreen is %v, want tiled", got)
	}
}

func TestFloatingWindowSizesItselfOnCommit(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	w, id := addWindow(s, 1, "dialog")

	s.toggleFloating()
	s.drainPending()
	if s.ws.Arena().Mode(id) != tiler.ModeFloating {
		t.Fatalf("toggle did not float the window")
	}
	// Centering a full sized window lands on the tile position
	if got := s.ws.Arena().Geometry(id).Loc(); got != (geom.Point{X: 4, Y: 4}) {
		t.Errorf("centered at %v, want (4, 4)", got)
	}

	w.Committed = &testContent{seq: 1, size: geom.Size{W: 640, H: 480}}
	s.handleSurfaceCommitted(1)
	s.drainPending()
	got := s.ws.Arena().Geometry(id)
	if got.Size() != (geom.Size{W: 640, H: 480}) {
		t.Errorf("commit sized the window to %v, want 640x480", got.Size())
	}
	if got.Loc() != (geom.Point{X: 4, Y: 4}) {
		t.Errorf("commit moved the window to %v", got.Loc())
	}

	// Tiled windows never size themselves
	s.toggleFloating()
	s.drainPending()
	w.Committed = &testContent{seq: 2, size: geom.Size{W: 200, H: 200}}
	s.handleSurfaceCommitted(1)
	s.drainPending()
	if got := s.ws.Arena().Geometry(id).Size(); got == (geom.Size{W: 200, H: 200}) {
		t.Errorf("tiled window took its own size over the layout")
	}
}

func TestToplevelLifecycle(t *testing.T) {
	s, _ := newTestServer(t, testConnector(1, 40))
	_, id := addWindow(s, 1, "a")

	// A second announce for the same id changes nothing
	s.handleToplevelCreated(&tiler.TestWindow{Id: 1, App: "imposter"})
	s.drainPending()
	if len(s.byToplevel) != 1 {
		t.Errorf("duplicate announce created a second window")
	}

	s.handleToplevelDestroyed(1)
	s.drainPending()
	if len(s.byToplevel) != 0 {
		t.Errorf("destroy left the toplevel mapped")
	}
	if s.ws.Arena().Alive(id) {
		t.Errorf("destroy left the window alive")
	}
	if s.ws.Current().Len() != 0 {
		t.Errorf("destroy left the window on the workspace")
	}

	// Destroying an id we never saw is fine
	s.handleToplevelDestroyed(77)
}

func TestDeviceRemovalLeavesSiblingAlone(t *testing.T) {
	hw := newFakeBackend()
	hw.addCard("/dev/dri/card0", 0xe200, testConnector(1, 40))
	hw.addCard("/dev/dri/card1", 0xe201, testConnector(2, 50))
	s := NewServer(config.Default(), hw)
	s.startupScan()
	t.Cleanup(s.teardown)

	all := s.allSurfaces()
	if len(all) != 2 {
		t.Fatalf("%d outputs up, want 2", len(all))
	}
	if all[1].position.X != 2560 {
		t.Errorf("second output at x=%d, want 2560", all[1].position.X)
	}

	s.handleHotplug(drm.HotplugEvent{Action: drm.HotplugRemoved, Path: "/dev/dri/card0", ID: 0xe200})
	s.drainPending()

	all = s.allSurfaces()
	if len(all) != 1 {
		t.Fatalf("%d outputs left, want 1", len(all))
	}
	if all[0].device != 0xe201 {
		t.Errorf("wrong device survived: %s", all[0].device.String())
	}
	if !hw.cards["/dev/dri/card0"].closed {
		t.Errorf("removed card never closed")
	}
	if hw.cards["/dev/dri/card1"].closed {
		t.Errorf("sibling card got closed too")
	}
}

func TestConnectorDisconnectDropsOnlyThatSurface(t *testing.T) {
	s, hw := newTestServer(t, testConnector(1, 40), testConnector(2, 41))
	if got := len(s.allSurfaces()); got != 2 {
		t.Fatalf("%d outputs up, want 2", got)
	}

	hw.cards["/dev/dri/card0"].conns = []drm.Connector{testConnector(1, 40), disconnected(2)}
	s.handleHotplug(drm.HotplugEvent{Action: drm.HotplugChanged, Path: "/dev/dri/card0", ID: 0xe200})
	s.drainPending()

	all := s.allSurfaces()
	if len(all) != 1 {
		t.Fatalf("%d outputs left, want 1", len(all))
	}
	if all[0].name != "DP-1" {
		t.Errorf("wrong output survived: %s", all[0].name)
	}
	if len(s.devices) != 1 {
		t.Errorf("losing one display tore down the whole device")
	}
}

func TestOutputConfigOverrides(t *testing.T) {
	hw := newFakeBackend()
	hw.addCard("/dev/dri/card0", 0xe200, testConnector(1, 40), testConnector(2, 41))
	x, y := 100, 200
	cfg := config.Default()
	cfg.Outputs = map[string]config.OutputConfig{
		"DP-1": {Scale: 2, X: &x, Y: &y},
		"DP-2": {Disabled: true},
	}
	s := NewServer(cfg, hw)
	s.startupScan()
	t.Cleanup(s.teardown)

	all := s.allSurfaces()
	if len(all) != 1 {
		t.Fatalf("disabled output still lit, %d outputs up", len(all))
	}
	surf := all[0]
	if surf.scale != 2 {
		t.Errorf("scale %v, want 2", surf.scale)
	}
	if surf.position != (geom.Point{X: 100, Y: 200}) {
		t.Errorf("position %v, want the configured corner", surf.position)
	}
	if surf.logicalSize() != (geom.Size{W: 1280, H: 720}) {
		t.Errorf("logical size %v, want 1280x720", surf.logicalSize())
	}
}
