// Package geometry resolves way and relation geometry through the
// coordinate store and the way-geometry table.
package geometry

import (
	"sync"
	"sync/atomic"

	"github.com/wegman-software/pbf2json-go/internal/element"
	"github.com/wegman-software/pbf2json-go/internal/geo"
	"github.com/wegman-software/pbf2json-go/internal/nodestore"
)

// WayGeometry is the resolved geometry of a single way
type WayGeometry struct {
	ID       int64
	Coords   []geo.Coord
	Centroid geo.Coord
	Bounds   geo.Bounds
}

// ResolveWay resolves the way's node refs through the coordinate store and
// computes its centroid and bounds. Unresolved refs are dropped silently.
// Returns nil when no refs resolve at all.
func ResolveWay(w *element.Way, store *nodestore.Store) *WayGeometry {
	if len(w.NodeRefs) == 0 {
		return nil
	}

	lookups := store.GetBatch(w.NodeRefs)
	coords := make([]geo.Coord, 0, len(lookups))
	for _, l := range lookups {
		if l.Found {
			coords = append(coords, geo.Coord{Lat: l.Lat, Lon: l.Lon})
		}
	}

	if len(coords) == 0 {
		return nil
	}

	return &WayGeometry{
		ID:       w.ID,
		Coords:   coords,
		Centroid: geo.Centroid(coords),
		Bounds:   geo.ComputeBounds(coords),
	}
}

// WayTable is a concurrent table of resolved way geometries, populated by
// the way collection pass and read during the final pass.
type WayTable struct {
	m    sync.Map // int64 -> *WayGeometry
	size atomic.Int64
}

// Put stores a resolved way geometry
func (t *WayTable) Put(g *WayGeometry) {
	if g == nil {
		return
	}
	t.m.Store(g.ID, g)
	t.size.Add(1)
}

// Get looks up a way geometry by ID
func (t *WayTable) Get(id int64) (*WayGeometry, bool) {
	v, ok := t.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*WayGeometry), true
}

// Len returns the number of stored geometries
func (t *WayTable) Len() int64 {
	return t.size.Load()
}

// RelationCoords gathers the coordinates a relation's geometry is computed
// from. With a way table available (three-pass mode) it aggregates every
// member way's resolved coordinates; when that yields nothing, or no table
// is available (two-pass mode), it falls back to direct member-node lookups
// in the store. An empty result means the caller should emit the raw member
// list instead of geometry.
//
// Aggregation concatenates member coordinates as-is: inner rings are not
// excluded and ways are not length-weighted. Downstream consumers depend on
// these centroid semantics.
func RelationCoords(r *element.Relation, table *WayTable, store *nodestore.Store) []geo.Coord {
	var coords []geo.Coord

	if table != nil {
		for _, m := range r.Members {
			if m.Type != element.MemberWay {
				continue
			}
			if g, ok := table.Get(m.Ref); ok {
				coords = append(coords, g.Coords...)
			}
		}
		if len(coords) > 0 {
			return coords
		}
	}

	if store != nil {
		var nodeIDs []int64
		for _, m := range r.Members {
			if m.Type == element.MemberNode {
				nodeIDs = append(nodeIDs, m.Ref)
			}
		}
		if len(nodeIDs) > 0 {
			for _, l := range store.GetBatch(nodeIDs) {
				if l.Found {
					coords = append(coords, geo.Coord{Lat: l.Lat, Lon: l.Lon})
				}
			}
		}
	}

	return coords
}
