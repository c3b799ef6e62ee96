package main

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/tidewm/config"
	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
	"github.com/mstarongithub/tidewm/tiler"
)

// card is the slice of drm.Card the registry needs. An interface so tests
// can feed synthetic connectors and vblanks
type card interface {
	Path() string
	ScanConnectors() ([]drm.Connector, error)
	WaitEvents() ([]drm.VBlank, error)
	Close() error
}

// backend creates cards and renderers. kmsBackend is the real one
type backend interface {
	ListCards() ([]drm.CardInfo, error)
	OpenCard(path string) (card, error)
	NewRenderer(renderNode string) (render.Renderer, error)
}

type kmsBackend struct{}

func (kmsBackend) ListCards() ([]drm.CardInfo, error) {
	return drm.ListCards()
}

func (kmsBackend) OpenCard(path string) (card, error) {
	return drm.OpenCard(path)
}

func (kmsBackend) NewRenderer(renderNode string) (render.Renderer, error) {
	return render.NewSoftwareRenderer(renderNode)
}

// device is one open card with its renderer and lit connectors
type device struct {
	id       drm.DeviceID
	card     card
	renderer render.Renderer
	surfaces map[drm.ConnectorID]*renderSurface
	paused   bool
}

// surfaceByCRTC resolves a vblank to the surface it belongs to. Flips on
// single headed cards sometimes report controller zero, attribute those to
// the only surface there is
func (d *device) surfaceByCRTC(crtc drm.CRTCID) *renderSurface {
	for _, surf := range d.surfaces {
		if crtc != 0 && surf.crtc == crtc {
			return surf
		}
	}
	if len(d.surfaces) == 1 {
		for _, surf := range d.surfaces {
			return surf
		}
	}
	return nil
}

func (s *Server) handleHotplug(ev drm.HotplugEvent) {
	logrus.WithFields(logrus.Fields{
		"action": ev.Action.String(),
		"path":   ev.Path,
		"device": ev.ID.String(),
	}).Debugln("Hotplug event")
	switch ev.Action {
	case drm.HotplugAdded:
		s.addDevice(ev.Path, ev.ID)
	case drm.HotplugChanged:
		if dev, ok := s.devices[ev.ID]; ok {
			s.queue(rescanIntent{device: dev.id})
		} else {
			// A change for a card we never saw, treat it as an add
			s.addDevice(ev.Path, ev.ID)
		}
	case drm.HotplugRemoved:
		// Teardown never runs inside the event that asked for it
		s.queue(releaseDeviceIntent{device: ev.ID})
	}
}

func (s *Server) addDevice(path string, id drm.DeviceID) {
	if dev, ok := s.devices[id]; ok {
		s.rescanDevice(dev)
		return
	}
	c, err := s.backend.OpenCard(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Errorln("Failed to open card")
		return
	}
	renderer, err := s.backend.NewRenderer(drm.RenderNodePath(path))
	if err != nil {
		logrus.WithError(err).WithField("path", path).Errorln("Failed to bring up renderer")
		_ = c.Close()
		return
	}
	dev := &device{
		id:       id,
		card:     c,
		renderer: renderer,
		surfaces: map[drm.ConnectorID]*renderSurface{},
	}
	s.devices[id] = dev
	logrus.WithFields(logrus.Fields{
		"path":   path,
		"device": id.String(),
	}).Infoln("Device added")
	go s.pumpCardEvents(dev)
	s.rescanDevice(dev)
}

// pumpCardEvents forwards scanout completions from the card fd into the
// loop. Runs until the card is closed
func (s *Server) pumpCardEvents(dev *device) {
	for {
		events, err := dev.card.WaitEvents()
		if err != nil {
			logrus.WithField("device", dev.id.String()).Debugln("Card event pump stopped")
			return
		}
		for _, ev := range events {
			s.post(vblankIntent{device: dev.id, ev: ev})
		}
	}
}

// rescanDevice walks the connectors and reconciles surfaces: lights up
// connectors that gained a display, drops surfaces whose display left
func (s *Server) rescanDevice(dev *device) {
	conns, err := dev.card.ScanConnectors()
	if err != nil {
		logrus.WithError(err).WithField("device", dev.id.String()).Errorln("Connector scan failed")
		return
	}
	seen := map[drm.ConnectorID]bool{}
	for _, conn := range conns {
		seen[conn.ID] = true
		if conn.Connected {
			if _, ok := dev.surfaces[conn.ID]; !ok {
				s.connectorConnected(dev, conn)
			}
		} else if surf, ok := dev.surfaces[conn.ID]; ok {
			s.dropSurface(dev, surf)
		}
	}
	for id, surf := range dev.surfaces {
		if !seen[id] {
			s.dropSurface(dev, surf)
		}
	}
	s.refreshLayout()
}

func (s *Server) connectorConnected(dev *device, conn drm.Connector) {
	name := conn.Name()
	override, hasOverride := s.cfg.Outputs[name]
	if hasOverride && override.Disabled {
		logrus.WithField("output", name).Infoln("Output disabled by config")
		return
	}
	mode, ok := drm.PickMode(conn.Modes)
	if !ok {
		logrus.WithField("output", name).Warnln("Connector advertises no modes")
		return
	}
	scale := 1.0
	if hasOverride {
		if override.Width > 0 {
			mode.Width = override.Width
		}
		if override.Height > 0 {
			mode.Height = override.Height
		}
		if override.RefreshHz > 0 {
			mode.RefreshMHz = override.RefreshHz * 1000
		}
		if override.Scale > 0 {
			scale = override.Scale
		}
	}
	out, err := dev.renderer.NewOutput(geom.Size{W: mode.Width, H: mode.Height})
	if err != nil {
		logrus.WithError(err).WithField("output", name).Errorln("Failed to build render output")
		return
	}
	cursor, err := dev.renderer.ImportCursor(render.DefaultCursor(), scale)
	if err != nil {
		// The output still works, it just shows no pointer
		logrus.WithError(err).WithField("output", name).Warnln("No cursor texture")
	}
	surf := &renderSurface{
		device:    dev.id,
		connector: conn.ID,
		name:      name,
		crtc:      conn.CRTC,
		mode:      mode,
		scale:     scale,
		output:    out,
		cursor:    cursor,
	}
	surf.position = s.placeOutput(override, hasOverride)
	dev.surfaces[conn.ID] = surf
	logrus.WithFields(logrus.Fields{
		"output":   name,
		"mode":     mode.String(),
		"scale":    scale,
		"position": surf.position,
	}).Infoln("Output connected")
	s.scheduleRepaint(dev, surf)
}

// placeOutput picks where the new output sits in the shared logical space:
// the configured corner if there is one, otherwise right of everything
// already placed
func (s *Server) placeOutput(override config.OutputConfig, hasOverride bool) geom.Point {
	if hasOverride && override.X != nil && override.Y != nil {
		return geom.Point{X: *override.X, Y: *override.Y}
	}
	x := 0
	for _, surf := range s.allSurfaces() {
		rect := surf.layoutRect()
		if right := rect.X + rect.W; right > x {
			x = right
		}
	}
	return geom.Point{X: x}
}

func (s *Server) dropSurface(dev *device, surf *renderSurface) {
	surf.stopThrottle()
	surf.stopFeedback()
	if err := surf.output.Close(); err != nil {
		logrus.WithError(err).WithField("output", surf.name).Warnln("Render output close failed")
	}
	delete(dev.surfaces, surf.connector)
	logrus.WithField("output", surf.name).Infoln("Output disconnected")
}

func (s *Server) releaseDevice(id drm.DeviceID) {
	dev, ok := s.devices[id]
	if !ok {
		return
	}
	for _, surf := range dev.surfaces {
		s.dropSurface(dev, surf)
	}
	if err := dev.renderer.Close(); err != nil {
		logrus.WithError(err).WithField("device", id.String()).Warnln("Renderer close failed")
	}
	// Closing the card also ends its event pump
	if err := dev.card.Close(); err != nil {
		logrus.WithError(err).WithField("device", id.String()).Warnln("Card close failed")
	}
	delete(s.devices, id)
	logrus.WithField("device", id.String()).Infoln("Device removed")
	s.refreshLayout()
}

func (s *Server) surfaceOf(id drm.DeviceID, conn drm.ConnectorID) *renderSurface {
	dev, ok := s.devices[id]
	if !ok {
		return nil
	}
	return dev.surfaces[conn]
}

// allSurfaces lists every lit output in stable name order
func (s *Server) allSurfaces() []*renderSurface {
	var surfaces []*renderSurface
	for _, dev := range s.devices {
		for _, surf := range dev.surfaces {
			surfaces = append(surfaces, surf)
		}
	}
	sort.Slice(surfaces, func(i, j int) bool {
		return surfaces[i].name < surfaces[j].name
	})
	return surfaces
}

func (s *Server) outputAt(loc geom.Point) *renderSurface {
	for _, surf := range s.allSurfaces() {
		if surf.layoutRect().Contains(loc) {
			return surf
		}
	}
	return nil
}

func (s *Server) outputByName(name string) *renderSurface {
	for _, surf := range s.allSurfaces() {
		if surf.name == name {
			return surf
		}
	}
	return nil
}

// primaryOutput is the output under the pointer, or the first one when the
// pointer floats in the void
func (s *Server) primaryOutput() *renderSurface {
	if surf := s.outputAt(s.pointer); surf != nil {
		return surf
	}
	if all := s.allSurfaces(); len(all) > 0 {
		return all[0]
	}
	return nil
}

// outputFor is the output showing the window
func (s *Server) outputFor(id tiler.WindowID) *renderSurface {
	if surf := s.outputAt(s.ws.Arena().Geometry(id).Center()); surf != nil {
		return surf
	}
	return s.primaryOutput()
}

// pauseSession parks every device while the session is away on another vt.
// Renders turn into silent no-ops until resume
func (s *Server) pauseSession() {
	for _, dev := range s.devices {
		dev.paused = true
	}
	logrus.Infoln("Session paused")
}

// resumeSession reactivates the devices. Damage tracked while the session
// was away cannot be trusted, every surface redraws from scratch
func (s *Server) resumeSession() {
	logrus.Infoln("Session resumed")
	for _, dev := range s.devices {
		dev.paused = false
		for _, surf := range dev.surfaces {
			surf.output.Invalidate()
			surf.stopThrottle()
			surf.state = frameIdle
			s.scheduleRepaint(dev, surf)
		}
	}
}
