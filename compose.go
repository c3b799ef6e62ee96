package main

import (
	"math"

	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"
)

// backgroundColor is the almost-black the desktop clears to
var backgroundColor = render.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}

// cursorElementID keeps the cursor out of the id space clients live in
const cursorElementID = ^uint64(0)

// composeFrame assembles the element list for one output, bottom to top:
// background and bottom shell layers, then the windows of the current
// workspace with their borders (or the fullscreen window alone), then top
// and overlay layers, then the cursor
func (s *Server) composeFrame(surf *renderSurface) []render.Element {
	var elements []render.Element
	elements = s.appendLayers(elements, surf, shell.LayerBackground, shell.LayerBottom)
	cur := s.ws.Current()
	if full := cur.Fullscreen(); s.ws.Arena().Alive(full) {
		elements = s.appendWindow(elements, surf, full)
	} else {
		active := cur.Active()
		for _, id := range s.ws.VisualStack() {
			elements = s.appendBorder(elements, surf, id, id == active)
			elements = s.appendWindow(elements, surf, id)
		}
	}
	elements = s.appendLayers(elements, surf, shell.LayerTop, shell.LayerOverlay)
	if surf.cursor != nil && surf.layoutRect().Contains(s.pointer) {
		elements = append(elements, render.Element{
			Kind:    render.KindCursor,
			ID:      cursorElementID,
			Seq:     surf.cursor.Seq(),
			Geo:     geom.RectAt(surf.toPhysicalPoint(s.pointer), surf.cursor.Size()),
			Texture: surf.cursor,
		})
	}
	return elements
}

// appendLayers adds the shell surfaces of the given layers, in the order
// the layers are passed in. Surfaces off this output are skipped
func (s *Server) appendLayers(elements []render.Element, surf *renderSurface, layers ...shell.Layer) []render.Element {
	rect := surf.layoutRect()
	for _, want := range layers {
		for _, l := range s.layers {
			if l.Layer() != want {
				continue
			}
			geo := l.Geometry()
			if geo.Intersect(rect).Empty() {
				continue
			}
			content := l.Content()
			var seq uint64
			if content != nil {
				seq = content.Seq()
			}
			elements = append(elements, render.Element{
				Kind:    render.KindLayer,
				ID:      l.ID(),
				Seq:     seq,
				Geo:     surf.toPhysical(geo),
				Content: content,
			})
		}
	}
	return elements
}

// appendBorder adds the frame around a window, the window geometry grown
// by the border thickness on all sides
func (s *Server) appendBorder(elements []render.Element, surf *renderSurface, id tiler.WindowID, active bool) []render.Element {
	thickness := s.cfg.Border.Thickness
	if thickness <= 0 {
		return elements
	}
	color := s.borderInactive
	if active {
		color = s.borderActive
	}
	geo := s.ws.Arena().Geometry(id).Expand(thickness)
	return append(elements, render.Element{
		Kind:      render.KindBorder,
		ID:        s.elementID(id),
		Geo:       surf.toPhysical(geo),
		Color:     color,
		Thickness: int(math.Round(float64(thickness) * surf.scale)),
	})
}

func (s *Server) appendWindow(elements []render.Element, surf *renderSurface, id tiler.WindowID) []render.Element {
	handle := s.ws.Arena().Handle(id)
	if handle == nil {
		return elements
	}
	content := handle.Content()
	var seq uint64
	if content != nil {
		seq = content.Seq()
	}
	return append(elements, render.Element{
		Kind:    render.KindWindow,
		ID:      handle.ID(),
		Seq:     seq,
		Geo:     surf.toPhysical(s.ws.Arena().Geometry(id)),
		Content: content,
	})
}

// elementID is the damage identity of a window derived element
func (s *Server) elementID(id tiler.WindowID) uint64 {
	if handle := s.ws.Arena().Handle(id); handle != nil {
		return handle.ID()
	}
	return 0
}
