// Package state holds the visualization model shared between the ingest
// loop, which merges inbound snapshots into it, and the render loop, which
// copies it out once per frame.
package state

import (
	"errors"

	geojson "github.com/paulmach/go.geojson"

	"github.com/san-kum/marsvis/internal/rwlock"
	"github.com/san-kum/marsvis/internal/wire"
)

const (
	DefaultMaxTicks      = 1000
	DefaultMaxGeometries = 20000
)

// DefaultBounds is the extent assumed until a simulation reports its own.
var DefaultBounds = WorldBounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

var ErrWriteLockNotHeld = errors.New("state: write lock not held")

// Options configures a Store. MaxGeometries caps each geometry collection;
// zero or less leaves them unbounded.
type Options struct {
	MaxGeometries int
}

// Store is the shared model. All fields are guarded by the embedded lock:
// Merge and Clear take it for writing, Snapshot for reading.
type Store struct {
	rwlock.RWLock

	maxGeometries int

	bounds     WorldBounds
	entities   map[int][]wire.Entity
	geometries Geometries
	rasters    map[int]wire.Raster
	progress   Progress
}

func New(opts Options) *Store {
	s := &Store{maxGeometries: opts.MaxGeometries}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.bounds = DefaultBounds
	s.entities = make(map[int][]wire.Entity)
	s.geometries = Geometries{}
	s.rasters = make(map[int]wire.Raster)
	s.progress = Progress{MaxTicks: DefaultMaxTicks}
}

// Merge applies one decoded message under a single write-lock acquisition.
// Entities and rasters are replaced per key, geometries are appended,
// bounds are only taken when the reported extent is positive, and fields
// absent from the message are left as they were.
func (s *Store) Merge(msg *wire.Message) {
	if msg == nil {
		return
	}
	s.AcquireWrite()
	defer func() { _ = s.ReleaseWrite() }()

	if msg.CurrentTick != nil {
		s.progress.CurrentTick = *msg.CurrentTick
	}
	if msg.MaxTicks != nil {
		s.progress.MaxTicks = *msg.MaxTicks
	}

	for key, list := range msg.Entities {
		s.entities[key] = append([]wire.Entity(nil), list...)
	}

	if ws := msg.WorldSize; ws != nil && ws.MaxX > 0 {
		s.bounds = WorldBounds{MinX: ws.MinX, MinY: ws.MinY, MaxX: ws.MaxX, MaxY: ws.MaxY}
	}

	for _, f := range msg.Vectors {
		s.geometries.add(f, s.maxGeometries)
	}

	for _, r := range msg.Rasters {
		r.Cells = append([]wire.Cell(nil), r.Cells...)
		s.rasters[r.T] = r
	}

	s.progress.HasData = true
}

// Clear resets every structure to its default, taking the write lock.
func (s *Store) Clear() {
	s.AcquireWrite()
	defer func() { _ = s.ReleaseWrite() }()
	s.reset()
}

// ClearLocked is Clear for callers that already hold the write lock.
func (s *Store) ClearLocked() error {
	if !s.Writing() {
		return ErrWriteLockNotHeld
	}
	s.reset()
	return nil
}

// Snapshot copies the model out under a read lock. The copy shares no
// memory with the store. When no data has been merged yet only bounds and
// progress are filled in and the second result is false.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.AcquireRead()
	defer func() { _ = s.ReleaseRead() }()

	snap := Snapshot{Bounds: s.bounds, Progress: s.progress}
	if !s.progress.HasData {
		return snap, false
	}

	snap.Entities = make(map[int][]wire.Entity, len(s.entities))
	for k, list := range s.entities {
		snap.Entities[k] = append([]wire.Entity(nil), list...)
	}

	snap.Rasters = make(map[int]wire.Raster, len(s.rasters))
	for k, r := range s.rasters {
		r.Cells = append([]wire.Cell(nil), r.Cells...)
		snap.Rasters[k] = r
	}

	snap.Geometries = s.geometries.clone()
	return snap, true
}

func (s *Store) HasData() bool {
	return s.Progress().HasData
}

func (s *Store) Progress() Progress {
	s.AcquireRead()
	defer func() { _ = s.ReleaseRead() }()
	return s.progress
}

func (g *Geometries) add(f wire.Feature, max int) {
	if f.Geometry == nil {
		return
	}
	switch f.Kind {
	case wire.KindPoint:
		g.Points = capped(append(g.Points, f.Geometry), max)
	case wire.KindLine:
		g.Lines = capped(append(g.Lines, f.Geometry), max)
	case wire.KindRing:
		g.Rings = capped(append(g.Rings, f.Geometry), max)
	case wire.KindPolygon:
		g.Polygons = capped(append(g.Polygons, f.Geometry), max)
	}
}

// capped drops the oldest entries once gs grows past max.
func capped(gs []*geojson.Geometry, max int) []*geojson.Geometry {
	if max <= 0 || len(gs) <= max {
		return gs
	}
	n := copy(gs, gs[len(gs)-max:])
	for i := n; i < len(gs); i++ {
		gs[i] = nil
	}
	return gs[:n]
}
