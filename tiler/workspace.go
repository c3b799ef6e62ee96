// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
)

// Workspace is one desktop. It holds its windows in tiling order,
// remembers which one is active and carries the restore rect while one
// of its windows is fullscreen.
// Workspaces are created once at startup and never destroyed, only emptied
type Workspace struct {
	windows     []WindowID
	active      WindowID
	fullscreen  WindowID
	restore     geom.Rect
	restoreMode Mode
	layout      Kind
}

// Windows returns the tiling order. The slice is owned by the workspace
func (w *Workspace) Windows() []WindowID {
	return w.windows
}

func (w *Workspace) Active() WindowID {
	return w.active
}

func (w *Workspace) SetActive(id WindowID) {
	w.active = id
}

func (w *Workspace) Layout() Kind {
	return w.layout
}

func (w *Workspace) SetLayout(k Kind) {
	w.layout = k
}

// Fullscreen returns the workspace's fullscreen window, NoWindow if none
func (w *Workspace) Fullscreen() WindowID {
	return w.fullscreen
}

// RestoreRect is only meaningful while Fullscreen returns a window
func (w *Workspace) RestoreRect() geom.Rect {
	return w.restore
}

func (w *Workspace) Len() int {
	return len(w.windows)
}

func (w *Workspace) indexOf(id WindowID) int {
	for i, win := range w.windows {
		if win == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) contains(id WindowID) bool {
	return w.indexOf(id) >= 0
}

func (w *Workspace) append(id WindowID) {
	w.windows = append(w.windows, id)
}

// remove drops the window from the tiling order and clears the
// active/fullscreen references if they pointed at it
func (w *Workspace) remove(id WindowID) bool {
	i := w.indexOf(id)
	if i < 0 {
		return false
	}
	w.windows = append(w.windows[:i], w.windows[i+1:]...)
	if w.active == id {
		w.active = NoWindow
	}
	if w.fullscreen == id {
		w.fullscreen = NoWindow
		w.restore = geom.Rect{}
		w.restoreMode = ModeTiled
	}
	return true
}

// swap exchanges the tiling order positions of two windows
func (w *Workspace) swap(a, b WindowID) bool {
	i := w.indexOf(a)
	j := w.indexOf(b)
	if i < 0 || j < 0 {
		return false
	}
	w.windows[i], w.windows[j] = w.windows[j], w.windows[i]
	return true
}
