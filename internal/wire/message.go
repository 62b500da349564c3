// Package wire decodes the JSON snapshots streamed by a running simulation
// and encodes the control messages sent back to it.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
)

var (
	ErrEmptyPayload = errors.New("wire: empty payload")
	ErrBadCell      = errors.New("wire: raster cell needs [x, y, value]")
)

// GeometryKind routes an inbound vector feature to one of the four
// geometry collections.
type GeometryKind int

const (
	KindPoint GeometryKind = iota
	KindLine
	KindRing
	KindPolygon
)

func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindRing:
		return "ring"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

type Entity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorldSize is the coordinate extent a simulation reports.
type WorldSize struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

// Cell is one raster cell, encoded on the wire as [x, y, value].
type Cell struct {
	X, Y, Value float64
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if len(v) < 3 {
		return ErrBadCell
	}
	c.X, c.Y, c.Value = v[0], v[1], v[2]
	return nil
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{c.X, c.Y, c.Value})
}

type Raster struct {
	T          int     `json:"t"`
	CellWidth  float64 `json:"cellWidth"`
	CellHeight float64 `json:"cellHeight"`
	Cells      []Cell  `json:"cells"`
}

// Feature is a decoded vector geometry. Rings are carried as LineString
// geometries; Kind keeps them apart from plain lines.
type Feature struct {
	Kind     GeometryKind
	Geometry *geojson.Geometry
}

// Message is one decoded snapshot. Nil pointers and nil maps mean the
// field was absent from the payload.
type Message struct {
	T           *int
	CurrentTick *int
	MaxTicks    *int
	Entities    map[int][]Entity
	WorldSize   *WorldSize
	Vectors     []Feature
	Rasters     []Raster
}

type rawFeature struct {
	Geometry json.RawMessage `json:"geometry"`
}

type rawMessage struct {
	T           *int            `json:"t"`
	CurrentTick *int            `json:"currentTick"`
	MaxTicks    *int            `json:"maxTicks"`
	Entities    json.RawMessage `json:"entities"`
	WorldSize   *WorldSize      `json:"worldSize"`
	Vectors     []rawFeature    `json:"vectors"`
	Rasters     []Raster        `json:"rasters"`
}

// Decode parses one inbound payload. Any error means the whole payload
// must be discarded; Decode never returns a partially filled message.
func Decode(data []byte) (*Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wire: decode message: %w", err)
	}

	msg := &Message{
		T:           raw.T,
		CurrentTick: raw.CurrentTick,
		MaxTicks:    raw.MaxTicks,
		WorldSize:   raw.WorldSize,
		Rasters:     raw.Rasters,
	}

	entities, err := decodeEntities(raw.Entities, raw.T)
	if err != nil {
		return nil, err
	}
	msg.Entities = entities

	for i, f := range raw.Vectors {
		feature, ok, err := decodeFeature(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("wire: vector %d: %w", i, err)
		}
		if ok {
			msg.Vectors = append(msg.Vectors, feature)
		}
	}

	return msg, nil
}

// decodeEntities accepts either {"<typeKey>": [...]} or a bare list keyed
// by the message's top-level t.
func decodeEntities(raw json.RawMessage, t *int) (map[int][]Entity, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var list []Entity
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("wire: decode entities: %w", err)
		}
		if t == nil {
			return nil, nil
		}
		return map[int][]Entity{*t: list}, nil
	case '{':
		var byKey map[string][]Entity
		if err := json.Unmarshal(raw, &byKey); err != nil {
			return nil, fmt.Errorf("wire: decode entities: %w", err)
		}
		out := make(map[int][]Entity, len(byKey))
		for k, list := range byKey {
			key, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			out[key] = list
		}
		return out, nil
	}
	return nil, fmt.Errorf("wire: decode entities: unexpected %q", raw[0])
}

func decodeFeature(raw json.RawMessage) (Feature, bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Feature{}, false, nil
	}

	var probe struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Feature{}, false, err
	}

	switch probe.Type {
	case "LineRing", "LinearRing":
		var coords [][]float64
		if err := json.Unmarshal(probe.Coordinates, &coords); err != nil {
			return Feature{}, false, err
		}
		return Feature{Kind: KindRing, Geometry: geojson.NewLineStringGeometry(coords)}, true, nil
	case string(geojson.GeometryPoint), string(geojson.GeometryLineString), string(geojson.GeometryPolygon):
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return Feature{}, false, err
		}
		kind := KindPoint
		switch {
		case g.IsLineString():
			kind = KindLine
		case g.IsPolygon():
			kind = KindPolygon
		}
		return Feature{Kind: kind, Geometry: g}, true, nil
	}
	return Feature{}, false, nil
}

// EntityKeys returns the type keys present in the message in ascending order.
func (m *Message) EntityKeys() []int {
	keys := make([]int, 0, len(m.Entities))
	for k := range m.Entities {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Pacing is the control message asking the simulation to wait between
// successive snapshots.
type Pacing struct {
	TimeToWaitInMilliseconds int `json:"timeToWaitInMilliseconds"`
}

func EncodePacing(ms int) ([]byte, error) {
	return json.Marshal(Pacing{TimeToWaitInMilliseconds: ms})
}
