package main

import (
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
)

// frameState tracks where one output is in its redraw cycle
type frameState int

const (
	// nothing in flight, the next damage or timer renders
	frameIdle = frameState(iota)
	// a frame is being drawn right now
	frameRendering
	// a frame sits in the hardware queue waiting for scanout
	frameSubmitted
	// last render had no damage, a timer re-checks shortly
	frameThrottled
)

func (f frameState) String() string {
	switch f {
	case frameIdle:
		return "idle"
	case frameRendering:
		return "rendering"
	case frameSubmitted:
		return "submitted"
	case frameThrottled:
		return "throttled"
	}
	return "unknown"
}

// renderSurface is one lit connector: its mode, its place in the shared
// logical space and its frame scheduling state
type renderSurface struct {
	device    drm.DeviceID
	connector drm.ConnectorID
	name      string
	crtc      drm.CRTCID
	mode      drm.Mode
	scale     float64
	position  geom.Point
	output    render.Output
	cursor    *render.Texture

	state         frameState
	repaintQueued bool
	lastPresented time.Time
	slowWarned    bool
	throttle      *time.Timer
	feedback      *time.Timer
}

// logicalSize is the mode size divided by the output scale
func (rs *renderSurface) logicalSize() geom.Size {
	return geom.Size{
		W: int(math.Round(float64(rs.mode.Width) / rs.scale)),
		H: int(math.Round(float64(rs.mode.Height) / rs.scale)),
	}
}

// layoutRect is the output's rect in the shared logical space
func (rs *renderSurface) layoutRect() geom.Rect {
	return geom.RectAt(rs.position, rs.logicalSize())
}

// toPhysical turns a global logical rect into output pixels
func (rs *renderSurface) toPhysical(r geom.Rect) geom.Rect {
	local := r.Translate(geom.Point{X: -rs.position.X, Y: -rs.position.Y})
	return local.Scale(rs.scale)
}

func (rs *renderSurface) toPhysicalPoint(p geom.Point) geom.Point {
	return geom.Point{
		X: int(math.Round(float64(p.X-rs.position.X) * rs.scale)),
		Y: int(math.Round(float64(p.Y-rs.position.Y) * rs.scale)),
	}
}

func (rs *renderSurface) stopThrottle() {
	if rs.throttle != nil {
		rs.throttle.Stop()
		rs.throttle = nil
	}
}

func (rs *renderSurface) stopFeedback() {
	if rs.feedback != nil {
		rs.feedback.Stop()
		rs.feedback = nil
	}
}

func (s *Server) renderConnector(id drm.DeviceID, conn drm.ConnectorID) {
	surf := s.surfaceOf(id, conn)
	if surf == nil {
		return
	}
	if _, err := s.render(s.devices[id], surf); err != nil {
		logrus.WithError(err).WithField("output", surf.name).Debugln("Frame dropped")
	}
}

// render draws one frame for the surface and submits it if anything
// changed since the last one. Reports whether a frame went out
func (s *Server) render(dev *device, surf *renderSurface) (bool, error) {
	surf.repaintQueued = false
	if dev.paused {
		return false, nil
	}
	if surf.state == frameSubmitted {
		// A frame is in flight, its vblank triggers the next draw
		return false, nil
	}
	surf.stopThrottle()
	surf.state = frameRendering
	damaged, err := surf.output.RenderFrame(s.composeFrame(surf), backgroundColor)
	if err == nil && damaged {
		if err = surf.output.QueueFrame(); err == nil {
			surf.state = frameSubmitted
			return true, nil
		}
	}
	if err != nil {
		return false, s.absorbRenderError(dev, surf, err)
	}
	// Nothing changed on screen. Re-check in about one refresh instead of
	// spinning on an idle output
	surf.state = frameThrottled
	surf.throttle = s.schedule(surf.mode.ThrottleDelay(),
		renderIntent{device: dev.id, connector: surf.connector})
	return false, nil
}

// absorbRenderError keeps per output failures inside the surface. Only
// errors worth the caller's attention come back out
func (s *Server) absorbRenderError(dev *device, surf *renderSurface, err error) error {
	switch {
	case errors.Is(err, drm.ErrAlreadyQueued):
		surf.state = frameSubmitted
		return nil
	case errors.Is(err, drm.ErrDeviceInactive):
		logrus.WithField("output", surf.name).Debugln("Device inactive, frame skipped")
		surf.state = frameIdle
		return nil
	case errors.Is(err, drm.ErrPermissionDenied):
		// Usually a session switch race, we get master back shortly
		logrus.WithField("output", surf.name).Warnln("Not drm master, retrying")
		surf.state = frameThrottled
		surf.throttle = s.schedule(surf.mode.ThrottleDelay(),
			renderIntent{device: dev.id, connector: surf.connector})
		return nil
	case errors.Is(err, drm.ErrContextLost):
		logrus.WithField("device", dev.id.String()).Errorln("Render context lost, recycling device")
		path := dev.card.Path()
		s.queue(releaseDeviceIntent{device: dev.id})
		s.queue(recreateDeviceIntent{device: dev.id, path: path})
		surf.state = frameIdle
		return err
	default:
		surf.state = frameIdle
		return err
	}
}

// onVBlank finishes the submitted frame and lines up the next one.
// Presentation feedback holds back when vblanks come in faster than the
// mode allows. Virtual outputs complete flips instantly and clients must
// not be paced by that
func (s *Server) onVBlank(dev *device, ev drm.VBlank) {
	surf := dev.surfaceByCRTC(ev.CRTC)
	if surf == nil {
		logrus.WithFields(logrus.Fields{
			"device": dev.id.String(),
			"crtc":   ev.CRTC,
		}).Debugln("Vblank for unknown controller")
		return
	}
	if err := surf.output.FrameSubmitted(); err != nil {
		logrus.WithError(err).WithField("output", surf.name).Debugln("Frame release hiccup")
	}
	surf.state = frameIdle
	interval := surf.mode.Duration()
	elapsed := ev.When.Sub(surf.lastPresented)
	if !surf.lastPresented.IsZero() && elapsed < interval/2 {
		if !surf.slowWarned {
			logrus.WithField("output", surf.name).Warnln("Vblanks outpace the refresh rate, deferring feedback")
			surf.slowWarned = true
		}
		surf.stopFeedback()
		surf.feedback = s.schedule(interval-elapsed,
			feedbackIntent{device: dev.id, connector: surf.connector, ev: ev})
	} else {
		s.deliverFeedback(surf, ev)
	}
	s.scheduleRepaint(dev, surf)
}

// deliverFeedback reports a finished scanout to the protocol side
func (s *Server) deliverFeedback(surf *renderSurface, ev drm.VBlank) {
	surf.feedback = nil
	surf.lastPresented = ev.When
	if s.frames != nil {
		s.frames.FramePresented(surf.name, ev.When, ev.Sequence)
	}
}

// scheduleRepaint makes sure the surface draws a fresh frame soon. Every
// damage signal lands here
func (s *Server) scheduleRepaint(dev *device, surf *renderSurface) {
	switch surf.state {
	case frameSubmitted, frameRendering:
		// The in flight frame's vblank repaints anyway
		return
	case frameThrottled:
		surf.stopThrottle()
		surf.state = frameIdle
	}
	if surf.repaintQueued {
		return
	}
	surf.repaintQueued = true
	s.queue(renderIntent{device: dev.id, connector: surf.connector})
}

// damageAll flags every output. Window moves and focus changes touch every
// screen showing the workspace, being precise here buys nothing
func (s *Server) damageAll() {
	for _, dev := range s.devices {
		for _, surf := range dev.surfaces {
			s.scheduleRepaint(dev, surf)
		}
	}
}
