package main

import (
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	"github.com/mstarongithub/tidewm/common/ipc"
	"github.com/mstarongithub/tidewm/config"
	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
	"github.com/mstarongithub/tidewm/util/multiplexer"
)

// Server owns the whole desktop: devices and their outputs, the
// workspaces, the pointer and whatever grab is running. Every field is
// owned by the loop goroutine, the exported methods below only post
// intents into it
type Server struct {
	cfg     config.Config
	backend backend
	monitor *drm.Monitor

	ws         *tiler.Workspaces
	byToplevel map[uint64]tiler.WindowID
	layers     []shell.LayerSurface
	devices    map[drm.DeviceID]*device
	frames     shell.FrameSink

	events  chan intent
	inbox   multiplexer.ManyToOne[intent]
	pending []intent
	running bool

	serial       uint32
	buttonSerial uint32
	buttonsDown  int
	pointer      geom.Point
	grab         *grab

	borderActive   render.Color
	borderInactive render.Color
}

func NewServer(cfg config.Config, hw backend) *Server {
	events := make(chan intent, 64)
	return &Server{
		cfg:            cfg,
		backend:        hw,
		monitor:        drm.NewMonitor(),
		ws:             tiler.NewWorkspaces(cfg.Workspaces),
		byToplevel:     map[uint64]tiler.WindowID{},
		devices:        map[drm.DeviceID]*device{},
		events:         events,
		inbox:          multiplexer.NewManyToOne(events),
		borderActive:   render.ParseColor(cfg.Border.Active),
		borderInactive: render.ParseColor(cfg.Border.Inactive),
	}
}

// SetFrameSink wires the receiver for presentation reports. Set once
// before Run, the protocol side turns the reports into frame callbacks
func (s *Server) SetFrameSink(sink shell.FrameSink) {
	s.frames = sink
}

// RunHotplug feeds udev card events into the loop until the context ends.
// No monitor is degraded but not fatal, the startup scan already found
// everything that was plugged in
func (s *Server) RunHotplug(ctx context.Context) error {
	if err := s.monitor.Start(); err != nil {
		logrus.WithError(err).Warnln("Hotplug monitor unavailable, running with the startup scan only")
		<-ctx.Done()
		return nil
	}
	sub, err := s.monitor.Subscribe("server")
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			// Keep draining while the monitor shuts down so its fan out
			// never blocks on us
			go s.monitor.Stop()
			for range sub {
			}
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			s.post(hotplugIntent{ev: ev})
		}
	}
}

// The protocol library and input backend call these from their own
// goroutines. Each one is a thin post into the loop

func (s *Server) ToplevelCreated(t shell.Toplevel) {
	s.post(toplevelCreatedIntent{handle: t})
}

func (s *Server) ToplevelDestroyed(id uint64) {
	s.post(toplevelDestroyedIntent{id: id})
}

func (s *Server) SurfaceCommitted(id uint64) {
	s.post(surfaceCommittedIntent{id: id})
}

func (s *Server) LayerCreated(l shell.LayerSurface) {
	s.post(layerCreatedIntent{handle: l})
}

func (s *Server) LayerDestroyed(id uint64) {
	s.post(layerDestroyedIntent{id: id})
}

func (s *Server) FullscreenRequested(id uint64, output string) {
	s.post(fullscreenIntent{id: id, output: output})
}

func (s *Server) UnfullscreenRequested(id uint64) {
	s.post(unfullscreenIntent{id: id})
}

func (s *Server) MoveRequested(id uint64, serial uint32) {
	s.post(moveRequestIntent{id: id, serial: serial})
}

func (s *Server) ResizeRequested(id uint64, serial uint32, edges shell.Edges) {
	s.post(resizeRequestIntent{id: id, serial: serial, edges: edges})
}

func (s *Server) PointerMotion(loc geom.Point) {
	s.post(motionIntent{loc: loc})
}

func (s *Server) PointerButton(button uint32, pressed bool) {
	s.post(buttonIntent{button: button, pressed: pressed})
}

func (s *Server) PauseSession() {
	s.post(sessionIntent{pause: true})
}

func (s *Server) ResumeSession() {
	s.post(sessionIntent{pause: false})
}

func (s *Server) Quit() {
	s.post(quitIntent{})
}

// nextSerial stamps outgoing configures and input events. Plain counter,
// only the loop touches it
func (s *Server) nextSerial() uint32 {
	s.serial++
	return s.serial
}

func (s *Server) handleToplevelCreated(t shell.Toplevel) {
	if _, ok := s.byToplevel[t.ID()]; ok {
		logrus.WithField("id", t.ID()).Warnln("Toplevel announced twice")
		return
	}
	id := s.ws.InsertWindow(t)
	s.byToplevel[t.ID()] = id
	logrus.WithFields(logrus.Fields{
		"app":   t.AppID(),
		"title": t.Title(),
	}).Debugln("New toplevel")
	s.refreshLayout()
}

func (s *Server) handleToplevelDestroyed(tid uint64) {
	id, ok := s.byToplevel[tid]
	if !ok {
		return
	}
	delete(s.byToplevel, tid)
	if s.grab != nil && s.grab.window == id {
		s.grab = nil
	}
	s.ws.RemoveWindow(id)
	s.refreshLayout()
}

func (s *Server) handleSurfaceCommitted(tid uint64) {
	id, ok := s.byToplevel[tid]
	if !ok {
		// Not a toplevel, so a layer surface changed its content
		s.damageAll()
		return
	}
	arena := s.ws.Arena()
	if arena.Mode(id) == tiler.ModeFloating {
		// Floating windows size themselves through their commits
		if t := arena.Handle(id); t != nil && t.Content() != nil {
			size := t.Content().Size()
			if !size.Empty() && size != arena.Geometry(id).Size() {
				arena.SetGeometry(id, geom.RectAt(arena.Geometry(id).Loc(), size))
			}
		}
	}
	s.damageAll()
}

func (s *Server) handleLayerCreated(l shell.LayerSurface) {
	s.layers = append(s.layers, l)
	logrus.WithFields(logrus.Fields{
		"id":    l.ID(),
		"layer": l.Layer(),
	}).Debugln("Layer surface mapped")
	s.refreshLayout()
}

func (s *Server) handleLayerDestroyed(id uint64) {
	s.layers = sliceutils.Filter(s.layers, func(l shell.LayerSurface) bool {
		return l.ID() != id
	})
	s.refreshLayout()
}

func (s *Server) handleFullscreenRequested(tid uint64, outputName string) {
	id, ok := s.byToplevel[tid]
	if !ok {
		return
	}
	var out *renderSurface
	if outputName != "" {
		out = s.outputByName(outputName)
	}
	s.fullscreenWindow(id, out)
}

func (s *Server) handleUnfullscreenRequested(tid uint64) {
	if id, ok := s.byToplevel[tid]; ok {
		s.unfullscreenWindow(id)
	}
}

func (s *Server) handleMoveRequested(tid uint64, serial uint32) {
	id, ok := s.byToplevel[tid]
	if !ok {
		return
	}
	if !s.serialValid(serial) {
		logrus.WithField("serial", serial).Debugln("Dropping stale move request")
		return
	}
	s.beginMove(id, false)
}

func (s *Server) handleResizeRequested(tid uint64, serial uint32, edges shell.Edges) {
	id, ok := s.byToplevel[tid]
	if !ok {
		return
	}
	if !s.serialValid(serial) {
		logrus.WithField("serial", serial).Debugln("Dropping stale resize request")
		return
	}
	s.beginResize(id, edges)
}

// serialValid accepts a shell request only while the button press it
// claims to stem from is still held
func (s *Server) serialValid(serial uint32) bool {
	return s.grab == nil && s.buttonsDown > 0 && serial == s.buttonSerial
}

func (s *Server) handleMotion(loc geom.Point) {
	s.pointer = loc
	if s.grab != nil {
		s.grabMotion()
		return
	}
	s.focusUnderPointer()
	s.damageAll()
}

func (s *Server) handleButton(button uint32, pressed bool) {
	serial := s.nextSerial()
	if pressed {
		s.buttonsDown++
		s.buttonSerial = serial
		if s.grab == nil {
			s.focusUnderPointer()
		}
		return
	}
	if s.buttonsDown > 0 {
		s.buttonsDown--
	}
	if s.buttonsDown == 0 && s.grab != nil {
		s.endGrab()
	}
}

// configure pushes size and state down to the client. The states derive
// from where the window stands right now, callers never assemble them
func (s *Server) configure(id tiler.WindowID, size geom.Size) {
	handle := s.ws.Arena().Handle(id)
	if handle == nil {
		return
	}
	var states []shell.State
	if _, space := s.ws.WorkspaceOf(id); space != nil && space.Active() == id {
		states = append(states, shell.StateActivated)
	}
	if s.grab != nil && s.grab.kind == grabResize && s.grab.window == id {
		states = append(states, shell.StateResizing)
	}
	if s.ws.Arena().Mode(id) == tiler.ModeFullscreen {
		states = append(states, shell.StateFullscreen)
	}
	handle.Configure(s.nextSerial(), size, states)
}

// refreshLayout re-tiles the current workspace into the usable area of
// the primary output and tells every affected client its new size
func (s *Server) refreshLayout() {
	out := s.primaryOutput()
	if out == nil {
		s.damageAll()
		return
	}
	area := shell.UsableArea(out.layoutRect(), s.layers)
	offset := s.cfg.Border.Offset()
	arena := s.ws.Arena()
	for _, p := range tiler.Arrange(s.ws.Current().Layout(), s.ws.CurrentTiled(), area) {
		geo := p.Geo.Inset(offset)
		arena.SetGeometry(p.Window, geo)
		s.configure(p.Window, geo.Size())
	}
	if s.ws.Current().Active() == tiler.NoWindow {
		if under := s.windowAt(s.pointer); under != tiler.NoWindow {
			s.ws.Current().SetActive(under)
			s.configure(under, arena.Geometry(under).Size())
		}
	}
	s.damageAll()
}

// windowAt hit-tests the pointer against the current workspace, topmost
// first. The hit box includes the border and gap around each window so
// the pointer never falls through between tiles
func (s *Server) windowAt(loc geom.Point) tiler.WindowID {
	arena := s.ws.Arena()
	if full := s.ws.Current().Fullscreen(); arena.Alive(full) && arena.Geometry(full).Contains(loc) {
		return full
	}
	offset := s.cfg.Border.Offset()
	stack := s.ws.VisualStack()
	for i := len(stack) - 1; i >= 0; i-- {
		if arena.Geometry(stack[i]).Expand(offset).Contains(loc) {
			return stack[i]
		}
	}
	return tiler.NoWindow
}

// focusUnderPointer moves focus to the window under the pointer. Empty
// space keeps the focus where it was
func (s *Server) focusUnderPointer() {
	if s.grab != nil {
		return
	}
	if under := s.windowAt(s.pointer); under != tiler.NoWindow {
		s.setFocus(under)
	}
}

func (s *Server) setFocus(id tiler.WindowID) {
	cur := s.ws.Current()
	prev := cur.Active()
	if prev == id {
		return
	}
	cur.SetActive(id)
	arena := s.ws.Arena()
	if arena.Alive(prev) {
		s.configure(prev, arena.Geometry(prev).Size())
	}
	s.configure(id, arena.Geometry(id).Size())
	// Border colors moved with the focus
	s.damageAll()
}

func (s *Server) switchWorkspace(i int) {
	if !s.ws.SetActive(i) {
		return
	}
	logrus.WithField("workspace", i).Debugln("Switched workspace")
	s.refreshLayout()
}

func (s *Server) moveActiveToWorkspace(i int) {
	active := s.ws.Current().Active()
	if active == tiler.NoWindow {
		return
	}
	if !s.ws.MoveWindowToWorkspace(active, i) {
		return
	}
	logrus.WithField("workspace", i).Debugln("Carried window to workspace")
	s.refreshLayout()
}

// focusDir moves focus towards the best window in the given direction and
// parks the pointer on its center, like the focus had been clicked there
func (s *Server) focusDir(dir tiler.Direction) {
	target := s.ws.FocusCandidate(dir)
	if target == tiler.NoWindow {
		return
	}
	s.pointer = s.ws.Arena().Geometry(target).Center()
	s.setFocus(target)
}

// moveDir swaps the active window with its neighbor in the given
// direction. The pointer follows to where the active window ends up
func (s *Server) moveDir(dir tiler.Direction) {
	target := s.ws.FocusCandidate(dir)
	if target == tiler.NoWindow {
		return
	}
	center := s.ws.Arena().Geometry(target).Center()
	if !s.ws.MoveWindow(dir) {
		return
	}
	s.pointer = center
	s.refreshLayout()
	s.focusUnderPointer()
}

func (s *Server) toggleFloating() {
	active := s.ws.Current().Active()
	arena := s.ws.Arena()
	if !arena.Alive(active) {
		return
	}
	switch arena.Mode(active) {
	case tiler.ModeFloating:
		arena.SetMode(active, tiler.ModeTiled)
	case tiler.ModeTiled:
		arena.SetMode(active, tiler.ModeFloating)
		if out := s.primaryOutput(); out != nil {
			s.ws.CenterIn(active, shell.UsableArea(out.layoutRect(), s.layers))
			s.configure(active, arena.Geometry(active).Size())
		}
	default:
		// Fullscreen windows leave fullscreen first
		return
	}
	s.refreshLayout()
}

func (s *Server) toggleFullscreenActive() {
	cur := s.ws.Current()
	active := cur.Active()
	if !s.ws.Arena().Alive(active) {
		return
	}
	if cur.Fullscreen() == active {
		s.unfullscreenWindow(active)
	} else {
		s.fullscreenWindow(active, nil)
	}
}

// fullscreenWindow puts the window over the whole output. An already
// fullscreen window on the workspace gets kicked back to its saved rect,
// the newcomer always wins
func (s *Server) fullscreenWindow(id tiler.WindowID, out *renderSurface) {
	if out == nil {
		out = s.outputFor(id)
	}
	if out == nil {
		return
	}
	replaced := s.ws.SetFullscreen(id, out.layoutRect())
	if replaced != tiler.NoWindow {
		s.configure(replaced, s.ws.Arena().Geometry(replaced).Size())
	}
	s.configure(id, out.logicalSize())
	s.refreshLayout()
}

func (s *Server) unfullscreenWindow(id tiler.WindowID) {
	restored, ok := s.ws.Unfullscreen(id)
	if !ok {
		return
	}
	s.configure(id, restored.Size())
	s.refreshLayout()
}

func (s *Server) closeActive() {
	if handle := s.ws.Arena().Handle(s.ws.Current().Active()); handle != nil {
		handle.Close()
	}
}

// toggleDrag starts or ends a keyboard driven move of the active window.
// Unlike a pointer initiated move there are no buttons to release, the
// same action ends it
func (s *Server) toggleDrag() {
	if s.grab != nil {
		s.endGrab()
		return
	}
	active := s.ws.Current().Active()
	if !s.ws.Arena().Alive(active) {
		return
	}
	s.beginMove(active, true)
}

func (s *Server) spawn(command string) {
	if command == "" {
		return
	}
	parts := strings.Split(command, " ")
	cmd := exec.Command(parts[0], parts[1:]...)
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", command).Warnln("Failed to spawn")
		return
	}
	logrus.WithFields(logrus.Fields{
		"command": command,
		"pid":     cmd.Process.Pid,
	}).Debugln("Spawned")
	// Reap so finished children don't linger as zombies
	go func() { _ = cmd.Wait() }()
}

// snapshot captures the desktop state for the inspect command
func (s *Server) snapshot() ipc.State {
	st := ipc.State{
		PointerX: s.pointer.X,
		PointerY: s.pointer.Y,
	}
	if s.grab != nil {
		st.Grab = s.grab.kind.String()
	}
	arena := s.ws.Arena()
	for i := 0; i < s.ws.Count(); i++ {
		space := s.ws.Workspace(i)
		w := ipc.WorkspaceState{
			Index:   i,
			Active:  i == s.ws.ActiveIndex(),
			Windows: space.Len(),
		}
		if t := arena.Handle(space.Active()); t != nil {
			w.Focused = t.Title()
		}
		if t := arena.Handle(space.Fullscreen()); t != nil {
			w.Fullscreen = t.Title()
		}
		st.Workspaces = append(st.Workspaces, w)
	}
	for _, surf := range s.allSurfaces() {
		st.Outputs = append(st.Outputs, ipc.OutputState{
			Name:   surf.name,
			Device: surf.device.String(),
			Mode:   surf.mode.String(),
			Scale:  surf.scale,
			X:      surf.position.X,
			Y:      surf.position.Y,
			Frame:  surf.state.String(),
		})
	}
	return st
}
