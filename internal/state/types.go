package state

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/san-kum/marsvis/internal/wire"
)

// WorldBounds is the simulation's coordinate extent in whole cells.
type WorldBounds struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

// Width is the number of cells spanned on the x axis, so 0..9 is 10 wide.
func (b WorldBounds) Width() int  { return b.MaxX - b.MinX + 1 }
func (b WorldBounds) Height() int { return b.MaxY - b.MinY + 1 }

// Normalize maps a world coordinate into [0,1] on both axes. Values
// outside the bounds map outside that range.
func (b WorldBounds) Normalize(x, y float64) (float64, float64) {
	w, h := float64(b.Width()), float64(b.Height())
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return (x - float64(b.MinX)) / w, (y - float64(b.MinY)) / h
}

// Geometries holds the four append-only vector collections.
type Geometries struct {
	Points   []*geojson.Geometry
	Lines    []*geojson.Geometry
	Rings    []*geojson.Geometry
	Polygons []*geojson.Geometry
}

func (g Geometries) Len() int {
	return len(g.Points) + len(g.Lines) + len(g.Rings) + len(g.Polygons)
}

func (g Geometries) clone() Geometries {
	return Geometries{
		Points:   cloneAll(g.Points),
		Lines:    cloneAll(g.Lines),
		Rings:    cloneAll(g.Rings),
		Polygons: cloneAll(g.Polygons),
	}
}

func cloneAll(gs []*geojson.Geometry) []*geojson.Geometry {
	if gs == nil {
		return nil
	}
	out := make([]*geojson.Geometry, len(gs))
	for i, g := range gs {
		out[i] = cloneGeometry(g)
	}
	return out
}

// cloneGeometry copies the coordinate kinds a Store can hold.
func cloneGeometry(g *geojson.Geometry) *geojson.Geometry {
	if g == nil {
		return nil
	}
	c := &geojson.Geometry{Type: g.Type}
	c.Point = clonePosition(g.Point)
	c.LineString = clonePositions(g.LineString)
	if g.Polygon != nil {
		c.Polygon = make([][][]float64, len(g.Polygon))
		for i, ring := range g.Polygon {
			c.Polygon[i] = clonePositions(ring)
		}
	}
	return c
}

func clonePosition(p []float64) []float64 {
	if p == nil {
		return nil
	}
	return append([]float64(nil), p...)
}

func clonePositions(ps [][]float64) [][]float64 {
	if ps == nil {
		return nil
	}
	out := make([][]float64, len(ps))
	for i, p := range ps {
		out[i] = clonePosition(p)
	}
	return out
}

// Progress is the simulation's tick counter.
type Progress struct {
	HasData     bool `json:"hasData"`
	CurrentTick int  `json:"currentTick"`
	MaxTicks    int  `json:"maxTicks"`
}

// Fraction is CurrentTick/MaxTicks clamped to [0,1], or 0 without a max.
func (p Progress) Fraction() float64 {
	if p.MaxTicks <= 0 {
		return 0
	}
	f := float64(p.CurrentTick) / float64(p.MaxTicks)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Snapshot is a point-in-time copy of the model, safe to use after the
// store lock has been released.
type Snapshot struct {
	Bounds     WorldBounds
	Entities   map[int][]wire.Entity
	Geometries Geometries
	Rasters    map[int]wire.Raster
	Progress   Progress
}

func (s Snapshot) EntityCount() int {
	n := 0
	for _, list := range s.Entities {
		n += len(list)
	}
	return n
}

func (s Snapshot) CellCount() int {
	n := 0
	for _, r := range s.Rasters {
		n += len(r.Cells)
	}
	return n
}
