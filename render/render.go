// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package render turns assembled frame elements into pixels.
// The compositor core only deals in the Renderer and Output seams here,
// the in-tree implementation composes on the CPU.
package render

import (
	"github.com/gogpu/gg"
)

// Color is an RGBA color with channels in [0, 1]
type Color struct {
	R, G, B, A float64
}

// ParseColor reads a "#RRGGBB" (or short "#RGB") string.
// Unparseable input degrades to opaque black
func ParseColor(hex string) Color {
	c := gg.Hex(hex)
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func (c Color) rgba() gg.RGBA {
	return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
