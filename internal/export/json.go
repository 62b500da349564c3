package export

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"

	geojson "github.com/paulmach/go.geojson"

	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/wire"
)

// Document is the on-disk form of a captured snapshot. Vector geometries
// are written as a GeoJSON feature collection whose "kind" property tells
// points, lines, rings and polygons apart.
type Document struct {
	Bounds     state.WorldBounds          `json:"bounds"`
	Progress   state.Progress             `json:"progress"`
	Entities   map[string][]wire.Entity   `json:"entities"`
	Rasters    []wire.Raster              `json:"rasters"`
	Geometries *geojson.FeatureCollection `json:"geometries"`
}

func NewDocument(snap state.Snapshot) Document {
	doc := Document{
		Bounds:     snap.Bounds,
		Progress:   snap.Progress,
		Entities:   make(map[string][]wire.Entity, len(snap.Entities)),
		Rasters:    make([]wire.Raster, 0, len(snap.Rasters)),
		Geometries: geojson.NewFeatureCollection(),
	}
	for k, list := range snap.Entities {
		doc.Entities[strconv.Itoa(k)] = list
	}

	ids := make([]int, 0, len(snap.Rasters))
	for id := range snap.Rasters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		doc.Rasters = append(doc.Rasters, snap.Rasters[id])
	}

	add := func(kind wire.GeometryKind, gs []*geojson.Geometry) {
		for _, g := range gs {
			f := geojson.NewFeature(g)
			f.SetProperty("kind", kind.String())
			doc.Geometries.AddFeature(f)
		}
	}
	add(wire.KindPoint, snap.Geometries.Points)
	add(wire.KindLine, snap.Geometries.Lines)
	add(wire.KindRing, snap.Geometries.Rings)
	add(wire.KindPolygon, snap.Geometries.Polygons)
	return doc
}

// WriteJSON writes snap as an indented Document.
func WriteJSON(w io.Writer, snap state.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(snap))
}
