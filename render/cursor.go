package render

import (
	"image"
	"image/color"
)

// The classic left-pointing arrow, hotspot at the top left corner.
// Logical units, outputs scale it at import time
var cursorOutline = [][2]float64{
	{0, 0}, {0, 17}, {5, 13}, {8, 20}, {11, 19}, {8, 12}, {14, 12},
}

const cursorSize = 24

// DefaultCursor rasterizes the built-in arrow pointer. Compositors
// normally load a cursor theme, the built-in one keeps bare setups and
// tests working without any files on disk
func DefaultCursor() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, cursorSize, cursorSize))
	inside := func(x, y int) bool {
		return pointInPoly(float64(x)+0.5, float64(y)+0.5, cursorOutline)
	}
	fill := color.RGBA{R: 0xf2, G: 0xf2, B: 0xf2, A: 0xff}
	edge := color.RGBA{A: 0xff}
	for y := 0; y < cursorSize; y++ {
		for x := 0; x < cursorSize; x++ {
			if !inside(x, y) {
				continue
			}
			if !inside(x-1, y) || !inside(x+1, y) || !inside(x, y-1) || !inside(x, y+1) {
				img.SetRGBA(x, y, edge)
			} else {
				img.SetRGBA(x, y, fill)
			}
		}
	}
	return img
}

// Crossing number test, boundary treatment does not matter for drawing
func pointInPoly(x, y float64, poly [][2]float64) bool {
	in := false
	j := len(poly) - 1
	for i := range poly {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
		j = i
	}
	return in
}
