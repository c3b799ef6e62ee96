package main

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
)

type grabKind int

const (
	grabMove = grabKind(iota)
	grabResize
)

func (k grabKind) String() string {
	if k == grabResize {
		return "resize"
	}
	return "move"
}

// minWindowSize is the shortest edge a resize can shrink a window to,
// in logical units
const minWindowSize = 100

// grab is one pointer drag in flight. While it lives, motion bypasses
// focus tracking and goes straight into the drag math
type grab struct {
	kind         grabKind
	window       tiler.WindowID
	startPointer geom.Point
	startGeo     geom.Rect
	edges        shell.Edges
}

// beginMove starts dragging the window along with the pointer. Tiled
// windows pop out into floating first. Action initiated moves center the
// window on the pointer, protocol requests keep the window where it is
func (s *Server) beginMove(id tiler.WindowID, centerOnPointer bool) {
	arena := s.ws.Arena()
	if !arena.Alive(id) || s.ws.Current().Fullscreen() == id {
		return
	}
	arena.SetMode(id, tiler.ModeFloating)
	if centerOnPointer {
		size := arena.Geometry(id).Size()
		loc := geom.Point{X: s.pointer.X - size.W/2, Y: s.pointer.Y - size.H/2}
		arena.SetGeometry(id, geom.RectAt(loc, size))
	}
	s.grab = &grab{
		kind:         grabMove,
		window:       id,
		startPointer: s.pointer,
		startGeo:     arena.Geometry(id),
	}
	s.ws.Current().SetActive(id)
	logrus.WithField("window", s.elementID(id)).Debugln("Move grab started")
	s.refreshLayout()
}

func (s *Server) beginResize(id tiler.WindowID, edges shell.Edges) {
	arena := s.ws.Arena()
	if !arena.Alive(id) || edges == shell.EdgeNone || s.ws.Current().Fullscreen() == id {
		return
	}
	s.grab = &grab{
		kind:         grabResize,
		window:       id,
		startPointer: s.pointer,
		startGeo:     arena.Geometry(id),
		edges:        edges,
	}
	s.ws.Current().SetActive(id)
	logrus.WithFields(logrus.Fields{
		"window": s.elementID(id),
		"edges":  edges,
	}).Debugln("Resize grab started")
	// Announces the resizing state to the client
	s.configure(id, arena.Geometry(id).Size())
	s.damageAll()
}

// grabMotion applies the pointer delta to the grabbed window
func (s *Server) grabMotion() {
	g := s.grab
	arena := s.ws.Arena()
	if !arena.Alive(g.window) {
		s.endGrab()
		return
	}
	dx := s.pointer.X - g.startPointer.X
	dy := s.pointer.Y - g.startPointer.Y
	switch g.kind {
	case grabMove:
		loc := geom.Point{X: g.startGeo.X + dx, Y: g.startGeo.Y + dy}
		arena.SetGeometry(g.window, geom.RectAt(loc, g.startGeo.Size()))
	case grabResize:
		geo := resizeBy(g.startGeo, g.edges, dx, dy)
		if geo != arena.Geometry(g.window) {
			arena.SetGeometry(g.window, geo)
			s.configure(g.window, geo.Size())
		}
	}
	s.damageAll()
}

// resizeBy moves the dragged edges by the delta. Edges not taking part
// stay fixed, shrinking stops at the minimum size so the opposite edge
// never gets pushed
func resizeBy(start geom.Rect, edges shell.Edges, dx, dy int) geom.Rect {
	geo := start
	if edges&shell.EdgeLeft != 0 {
		right := start.X + start.W
		geo.X = start.X + dx
		if right-geo.X < minWindowSize {
			geo.X = right - minWindowSize
		}
		geo.W = right - geo.X
	} else if edges&shell.EdgeRight != 0 {
		geo.W = start.W + dx
		if geo.W < minWindowSize {
			geo.W = minWindowSize
		}
	}
	if edges&shell.EdgeTop != 0 {
		bottom := start.Y + start.H
		geo.Y = start.Y + dy
		if bottom-geo.Y < minWindowSize {
			geo.Y = bottom - minWindowSize
		}
		geo.H = bottom - geo.Y
	} else if edges&shell.EdgeBottom != 0 {
		geo.H = start.H + dy
		if geo.H < minWindowSize {
			geo.H = minWindowSize
		}
	}
	return geo
}

func (s *Server) endGrab() {
	g := s.grab
	if g == nil {
		return
	}
	s.grab = nil
	logrus.WithField("kind", g.kind.String()).Debugln("Grab ended")
	if s.ws.Arena().Alive(g.window) {
		// Re-configure without the resizing state
		s.configure(g.window, s.ws.Arena().Geometry(g.window).Size())
	}
	s.focusUnderPointer()
	s.damageAll()
}
