package viz

import (
	"math"

	geojson "github.com/paulmach/go.geojson"

	"github.com/san-kum/marsvis/internal/state"
)

// projector maps world coordinates onto canvas dots. The y axis points
// up: the world's minimum y sits on the bottom row.
type projector struct {
	bounds state.WorldBounds
	w, h   float64
	rows   int
}

func newProjector(c *Canvas, b state.WorldBounds) projector {
	return projector{bounds: b, w: float64(c.DotWidth()), h: float64(c.DotHeight()), rows: c.DotHeight()}
}

// scaled returns the unflipped dot position of a world coordinate.
func (p projector) scaled(x, y float64) (float64, float64) {
	nx, ny := p.bounds.Normalize(x, y)
	return nx * p.w, ny * p.h
}

func (p projector) dot(x, y float64) (int, int) {
	sx, sy := p.scaled(x, y)
	return int(math.Floor(sx)), p.rows - 1 - int(math.Floor(sy))
}

// Draw rasterizes a snapshot: raster cells first, then polygons, rings,
// lines, points and finally entities on top.
func Draw(c *Canvas, snap state.Snapshot) {
	c.Clear()
	p := newProjector(c, snap.Bounds)

	for _, r := range snap.Rasters {
		for _, cell := range r.Cells {
			if cell.Value == 0 {
				continue
			}
			fillRect(c, p, cell.X, cell.Y, r.CellWidth, r.CellHeight)
		}
	}

	for _, g := range snap.Geometries.Polygons {
		for _, ring := range g.Polygon {
			polyline(c, p, ring, true)
		}
	}
	for _, g := range snap.Geometries.Rings {
		polyline(c, p, g.LineString, true)
	}
	for _, g := range snap.Geometries.Lines {
		polyline(c, p, g.LineString, false)
	}
	for _, g := range snap.Geometries.Points {
		point(c, p, g)
	}

	// entities occupy the centre of their cell
	for _, list := range snap.Entities {
		for _, e := range list {
			c.Set(p.dot(e.X+0.5, e.Y+0.5))
		}
	}
}

func fillRect(c *Canvas, p projector, x, y, w, h float64) {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	sx0, sy0 := p.scaled(x, y)
	sx1, sy1 := p.scaled(x+w, y+h)
	x0, x1 := dotSpan(sx0, sx1, c.DotWidth())
	r0, r1 := dotSpan(sy0, sy1, c.DotHeight())
	for r := r0; r < r1; r++ {
		dy := p.rows - 1 - r
		for dx := x0; dx < x1; dx++ {
			c.Set(dx, dy)
		}
	}
}

// dotSpan turns a scaled interval into a half-open dot range clipped to
// [0, limit). A span thinner than one dot still covers one.
func dotSpan(from, to float64, limit int) (int, int) {
	lo := clampFloor(from, limit)
	hi := clampFloor(to, limit)
	if hi <= lo {
		hi = lo + 1
	}
	if lo < 0 {
		lo = 0
	}
	if hi > limit {
		hi = limit
	}
	return lo, hi
}

// clampFloor floors v into [-1, limit] so huge or NaN inputs cannot
// overflow the int conversion.
func clampFloor(v float64, limit int) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return -1
	case v > float64(limit):
		return limit
	}
	return int(math.Floor(v))
}

func polyline(c *Canvas, p projector, coords [][]float64, closed bool) {
	var first, prev [2]int
	n := 0
	for _, pos := range coords {
		if len(pos) < 2 {
			continue
		}
		x, y := p.dot(pos[0], pos[1])
		cur := [2]int{x, y}
		if n == 0 {
			first = cur
			c.Set(x, y)
		} else {
			c.DrawLine(prev[0], prev[1], x, y)
		}
		prev = cur
		n++
	}
	if closed && n > 2 {
		c.DrawLine(prev[0], prev[1], first[0], first[1])
	}
}

func point(c *Canvas, p projector, g *geojson.Geometry) {
	if g == nil || len(g.Point) < 2 {
		return
	}
	c.Set(p.dot(g.Point[0], g.Point[1]))
}
