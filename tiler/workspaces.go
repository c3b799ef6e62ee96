package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

// Workspaces owns the window arena and a fixed set of desktops with one
// active index. All window bookkeeping of the compositor goes through here.
// Everything runs on the compositor loop, so there is no locking
type Workspaces struct {
	arena  Arena
	spaces []*Workspace
	active int
}

// NewWorkspaces creates count desktops. Less than one gets clamped to one
func NewWorkspaces(count int) *Workspaces {
	if count < 1 {
		count = 1
	}
	spaces := make([]*Workspace, count)
	for i := range spaces {
		spaces[i] = &Workspace{}
	}
	return &Workspaces{spaces: spaces}
}

func (ws *Workspaces) Arena() *Arena {
	return &ws.arena
}

func (ws *Workspaces) Count() int {
	return len(ws.spaces)
}

func (ws *Workspaces) ActiveIndex() int {
	return ws.active
}

// Current is the workspace shown on the outputs right now
func (ws *Workspaces) Current() *Workspace {
	return ws.spaces[ws.active]
}

// Workspace returns desktop i, nil when out of range
func (ws *Workspaces) Workspace(i int) *Workspace {
	if i < 0 || i >= len(ws.spaces) {
		return nil
	}
	return ws.spaces[i]
}

// SetActive switches the shown workspace. Out of range requests are
// silently ignored. Reports whether a switch happened so the caller
// knows to remap windows and relayout
func (ws *Workspaces) SetActive(i int) bool {
	if i < 0 || i >= len(ws.spaces) || i == ws.active {
		return false
	}
	ws.active = i
	return true
}

// InsertWindow places a fresh window on the current workspace and makes
// it the active one
func (ws *Workspaces) InsertWindow(handle shell.Toplevel) WindowID {
	id := ws.arena.Insert(handle)
	cur := ws.Current()
	cur.append(id)
	cur.SetActive(id)
	return id
}

// RemoveWindow drops the window from whichever workspace holds it and
// frees its arena slot. Safe to call with stale ids
func (ws *Workspaces) RemoveWindow(id WindowID) {
	if _, space := ws.WorkspaceOf(id); space != nil {
		space.remove(id)
	}
	ws.arena.Remove(id)
}

// WorkspaceOf finds the desktop holding the window, (-1, nil) if none does
func (ws *Workspaces) WorkspaceOf(id WindowID) (int, *Workspace) {
	for i, space := range ws.spaces {
		if space.contains(id) {
			return i, space
		}
	}
	return -1, nil
}

// MoveWindowToWorkspace carries the window over to the target desktop and
// switches there. Floating windows keep their on screen rect, tiled ones
// get re-tiled by the next layout pass. A fullscreen window leaves
// fullscreen first. No-op when the target is current or out of range
func (ws *Workspaces) MoveWindowToWorkspace(id WindowID, target int) bool {
	if target == ws.active || target < 0 || target >= len(ws.spaces) {
		return false
	}
	_, space := ws.WorkspaceOf(id)
	if space == nil {
		return false
	}
	if space.Fullscreen() == id {
		ws.Unfullscreen(id)
	}
	space.remove(id)
	ws.active = target
	dst := ws.spaces[target]
	dst.append(id)
	dst.SetActive(id)
	return true
}

// FocusCandidate picks the window focus should land on when moving in the
// given direction from the current active window
func (ws *Workspaces) FocusCandidate(dir Direction) WindowID {
	cur := ws.Current()
	active := cur.Active()
	if !ws.arena.Alive(active) {
		return NoWindow
	}
	others := sliceutils.Filter(cur.Windows(), func(id WindowID) bool {
		return id != active
	})
	return BestCandidate(&ws.arena, ws.arena.Geometry(active), others, dir)
}

// MoveWindow swaps the active window with the best candidate in the given
// direction. Two tiled windows trade tiling order slots, otherwise the two
// windows trade rects. The caller relayouts afterwards
func (ws *Workspaces) MoveWindow(dir Direction) bool {
	cur := ws.Current()
	active := cur.Active()
	target := ws.FocusCandidate(dir)
	if target == NoWindow {
		return false
	}
	if ws.arena.Mode(active) == ModeTiled && ws.arena.Mode(target) == ModeTiled {
		return cur.swap(active, target)
	}
	aGeo := ws.arena.Geometry(active)
	tGeo := ws.arena.Geometry(target)
	ws.arena.SetGeometry(active, tGeo)
	ws.arena.SetGeometry(target, aGeo)
	return true
}

// SetFullscreen makes the window cover the rect `full`. Its current rect
// is kept on the workspace for the way back. If another window on the same
// workspace is already fullscreen it gets kicked back to its saved rect
// first. Returns the window that was replaced, NoWindow if none was
func (ws *Workspaces) SetFullscreen(id WindowID, full geom.Rect) WindowID {
	_, space := ws.WorkspaceOf(id)
	if space == nil || !ws.arena.Alive(id) {
		return NoWindow
	}
	replaced := NoWindow
	if prev := space.Fullscreen(); prev != NoWindow && prev != id {
		ws.Unfullscreen(prev)
		replaced = prev
	}
	if space.Fullscreen() != id {
		space.restore = ws.arena.Geometry(id)
		space.restoreMode = ws.arena.Mode(id)
		space.fullscreen = id
	}
	ws.arena.SetMode(id, ModeFullscreen)
	ws.arena.SetGeometry(id, full)
	space.SetActive(id)
	return replaced
}

// Unfullscreen puts the window back on its saved rect and mode and clears
// the restore state. Reports the restored rect and whether anything happened
func (ws *Workspaces) Unfullscreen(id WindowID) (geom.Rect, bool) {
	_, space := ws.WorkspaceOf(id)
	if space == nil || space.Fullscreen() != id {
		return geom.Rect{}, false
	}
	restored := space.restore
	mode := space.restoreMode
	space.fullscreen = NoWindow
	space.restore = geom.Rect{}
	space.restoreMode = ModeTiled
	ws.arena.SetMode(id, mode)
	ws.arena.SetGeometry(id, restored)
	return restored, true
}

// CurrentTiled lists the current workspace's tiled windows in tiling
// order. The layout consumes exactly this order, so swapping two entries
// swaps their places on screen on the next pass
func (ws *Workspaces) CurrentTiled() []WindowID {
	return sliceutils.Filter(ws.Current().Windows(), func(id WindowID) bool {
		return ws.arena.Alive(id) && ws.arena.Mode(id) == ModeTiled
	})
}

// VisualStack lists the current workspace's windows bottom to top for
// rendering: tiled windows first in tiling order, floating ones above
// them, the active floating window topmost. A fullscreen window is not
// part of the stack, it draws alone
func (ws *Workspaces) VisualStack() []WindowID {
	cur := ws.Current()
	active := cur.Active()
	live := sliceutils.Filter(cur.Windows(), func(id WindowID) bool {
		return ws.arena.Alive(id) && ws.arena.Mode(id) != ModeFullscreen
	})
	stack := sliceutils.Filter(live, func(id WindowID) bool {
		return ws.arena.Mode(id) == ModeTiled
	})
	for _, id := range live {
		if ws.arena.Mode(id) == ModeFloating && id != active {
			stack = append(stack, id)
		}
	}
	if ws.arena.Alive(active) && ws.arena.Mode(active) == ModeFloating {
		stack = append(stack, active)
	}
	return stack
}

// CenterIn parks a window in the middle of the given area, used when a
// window goes floating
func (ws *Workspaces) CenterIn(id WindowID, area geom.Rect) {
	size := ws.arena.Geometry(id).Size()
	loc := geom.Point{
		X: area.X + (area.W-size.W)/2,
		Y: area.Y + (area.H-size.H)/2,
	}
	ws.arena.SetGeometry(id, geom.RectAt(loc, size))
}
