package geom

import (
	"fmt"
	"math"
)

// A Point in logical screen coordinates
type Point struct {
	X int
	Y int
}

// A Size in logical screen coordinates
type Size struct {
	W int
	H int
}

// A Rect combines a location and a size
// The location is the top left corner, Y grows downwards
type Rect struct {
	X int
	Y int
	W int
	H int
}

func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y}
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// RectAt builds a rect from a location and a size
func RectAt(loc Point, size Size) Rect {
	return Rect{loc.X, loc.Y, size.W, size.H}
}

func (r Rect) Loc() Point {
	return Point{r.X, r.Y}
}

func (r Rect) Size() Size {
	return Size{r.W, r.H}
}

// Center is the midpoint of the rect, rounded towards the top left
func (r Rect) Center() Point {
	return Point{r.X + r.W/2, r.Y + r.H/2}
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether the point lies inside the rect
// The left and top edges are inclusive, the right and bottom edges are not
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersect returns the overlap of two rects
// Returns the zero rect if they don't overlap
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.W, o.X+o.W)
	y2 := min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{x1, y1, x2 - x1, y2 - y1}
}

// Inset shrinks the rect by n on all four sides
func (r Rect) Inset(n int) Rect {
	return Rect{r.X + n, r.Y + n, r.W - 2*n, r.H - 2*n}
}

// Expand grows the rect by n on all four sides
func (r Rect) Expand(n int) Rect {
	return r.Inset(-n)
}

// Translate moves the rect by the given offset
func (r Rect) Translate(p Point) Rect {
	return Rect{r.X + p.X, r.Y + p.Y, r.W, r.H}
}

// Scale converts a logical rect to physical coordinates, rounding each edge
func (r Rect) Scale(f float64) Rect {
	if f == 1.0 {
		return r
	}
	return Rect{
		X: round(float64(r.X) * f),
		Y: round(float64(r.Y) * f),
		W: round(float64(r.W) * f),
		H: round(float64(r.H) * f),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@%d,%d", r.W, r.H, r.X, r.Y)
}

func round(v float64) int {
	return int(math.Round(v))
}
