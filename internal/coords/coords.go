// Package coords converts the model's normalized screen coordinates into
// device pixels. The model addresses the screen on a fixed [0,1000] grid in
// both axes regardless of the actual resolution; callers validate ranges
// before mapping.
package coords

import "math"

// GridMax is the upper bound of the normalized coordinate space.
const GridMax = 1000

// Point is a normalized screen position on the [0,1000] grid.
type Point [2]int

// X returns the horizontal component.
func (p Point) X() int { return p[0] }

// Y returns the vertical component.
func (p Point) Y() int { return p[1] }

// Map scales a normalized point to pixel coordinates for a screen of the
// given dimensions. Mapping is linear with rounding, so [0,0] maps to (0,0)
// and [1000,1000] maps to (width,height).
func Map(p Point, width, height int) (int, int) {
	x := int(math.Round(float64(p[0]) / GridMax * float64(width)))
	y := int(math.Round(float64(p[1]) / GridMax * float64(height)))
	return x, y
}

// SquaredDistance returns the squared pixel distance between two mapped
// points. Used to derive swipe durations.
func SquaredDistance(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}
