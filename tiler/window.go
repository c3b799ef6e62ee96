// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
)

// Mode decides whether the layout engine may reposition a window
type Mode int

const (
	// Window is placed by the layout engine
	ModeTiled = Mode(iota)
	// Window keeps whatever geometry it has, layout leaves it alone
	ModeFloating
	// Window covers a whole output. The pre-fullscreen geometry is kept
	// on the workspace so it can be restored
	ModeFullscreen
)

func (m Mode) String() string {
	switch m {
	case ModeTiled:
		return "tiled"
	case ModeFloating:
		return "floating"
	case ModeFullscreen:
		return "fullscreen"
	}
	return "unknown"
}

// WindowID names a slot in the window arena
// The zero value never refers to a live window
type WindowID struct {
	idx uint32
	gen uint32
}

// NoWindow is the absent window
var NoWindow = WindowID{}

// Valid reports whether the id could refer to a window at all
// Use Arena.Alive to check whether it still does
func (id WindowID) Valid() bool {
	return id.gen != 0
}

type windowSlot struct {
	handle shell.Toplevel
	mode   Mode
	geo    geom.Rect
	gen    uint32
	live   bool
}

// Arena owns every window the compositor knows about
// Windows are addressed by index so there is no shared mutable handle
// floating around, the mode tag lives right in the slot
type Arena struct {
	slots []windowSlot
	free  []uint32
	count int
}

// Insert stores a new window and hands back its id
// New windows start out tiled with no geometry
func (a *Arena) Insert(handle shell.Toplevel) WindowID {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, windowSlot{})
		idx = uint32(len(a.slots) - 1)
	}
	slot := &a.slots[idx]
	slot.gen++
	slot.handle = handle
	slot.mode = ModeTiled
	slot.geo = geom.Rect{}
	slot.live = true
	a.count++
	return WindowID{idx: idx, gen: slot.gen}
}

// Remove frees the slot. Stale ids for it stop resolving
func (a *Arena) Remove(id WindowID) bool {
	slot := a.slot(id)
	if slot == nil {
		return false
	}
	slot.live = false
	slot.handle = nil
	a.free = append(a.free, id.idx)
	a.count--
	return true
}

func (a *Arena) Alive(id WindowID) bool {
	return a.slot(id) != nil
}

func (a *Arena) Len() int {
	return a.count
}

func (a *Arena) Handle(id WindowID) shell.Toplevel {
	if slot := a.slot(id); slot != nil {
		return slot.handle
	}
	return nil
}

func (a *Arena) Mode(id WindowID) Mode {
	if slot := a.slot(id); slot != nil {
		return slot.mode
	}
	return ModeTiled
}

func (a *Arena) SetMode(id WindowID, m Mode) {
	if slot := a.slot(id); slot != nil {
		slot.mode = m
	}
}

// Geometry is the window's current rect in global logical coordinates
func (a *Arena) Geometry(id WindowID) geom.Rect {
	if slot := a.slot(id); slot != nil {
		return slot.geo
	}
	return geom.Rect{}
}

func (a *Arena) SetGeometry(id WindowID, r geom.Rect) {
	if slot := a.slot(id); slot != nil {
		slot.geo = r
	}
}

// slot resolves an id, nil if the id is stale or was never handed out
func (a *Arena) slot(id WindowID) *windowSlot {
	if !id.Valid() || int(id.idx) >= len(a.slots) {
		return nil
	}
	slot := &a.slots[id.idx]
	if !slot.live || slot.gen != id.gen {
		return nil
	}
	return slot
}
