// Package feature builds the line-delimited JSON output records.
package feature

import (
	"encoding/json"
	"strconv"

	"github.com/wegman-software/pbf2json-go/internal/element"
	"github.com/wegman-software/pbf2json-go/internal/geo"
	"github.com/wegman-software/pbf2json-go/internal/geometry"
)

// Centroid is the JSON centroid object. Coordinate values are fixed
// 7-decimal strings, the geodetic precision convention of this format.
type Centroid struct {
	Lat  string `json:"lat"`
	Lon  string `json:"lon"`
	Type string `json:"type"`
}

// Bounds is the JSON bounding-box object
type Bounds struct {
	N string `json:"n"`
	S string `json:"s"`
	E string `json:"e"`
	W string `json:"w"`
}

type nodeRecord struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type wayRecord struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Nodes    []int64           `json:"nodes"`
	Tags     map[string]string `json:"tags"`
	Centroid *Centroid         `json:"centroid,omitempty"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
}

type memberRecord struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

// relationRecord is the no-geometry relation shape. Members is always
// present, as an empty array for a memberless relation, never omitted.
type relationRecord struct {
	ID      int64             `json:"id"`
	Type    string            `json:"type"`
	Members []memberRecord    `json:"members"`
	Tags    map[string]string `json:"tags"`
}

type relationGeomRecord struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Tags     map[string]string `json:"tags"`
	Centroid *Centroid         `json:"centroid"`
	Bounds   *Bounds           `json:"bounds"`
}

// formatCoord renders a coordinate value as fixed 7-decimal text
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

func centroidJSON(c geo.Coord, typ string) *Centroid {
	return &Centroid{
		Lat:  formatCoord(c.Lat),
		Lon:  formatCoord(c.Lon),
		Type: typ,
	}
}

func boundsJSON(b geo.Bounds) *Bounds {
	return &Bounds{
		N: formatCoord(b.North),
		S: formatCoord(b.South),
		E: formatCoord(b.East),
		W: formatCoord(b.West),
	}
}

func marshal(v interface{}, pretty bool) (string, error) {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Node renders a node record
func Node(n *element.Node, pretty bool) (string, error) {
	return marshal(nodeRecord{
		ID:   n.ID,
		Type: "node",
		Lat:  n.Lat,
		Lon:  n.Lon,
		Tags: n.Tags,
	}, pretty)
}

// Way renders a way record. With a resolved geometry the record carries
// centroid and bounds; without one it carries the raw node refs only.
func Way(w *element.Way, g *geometry.WayGeometry, pretty bool) (string, error) {
	rec := wayRecord{
		ID:    w.ID,
		Type:  "way",
		Nodes: w.NodeRefs,
		Tags:  w.Tags,
	}
	if g != nil {
		rec.Centroid = centroidJSON(g.Centroid, "centroid")
		rec.Bounds = boundsJSON(g.Bounds)
	}
	return marshal(rec, pretty)
}

// Relation renders a relation record. With aggregated member coordinates
// the record carries centroid and bounds; otherwise it falls back to the
// raw member list. The centroid type is "entrance" for compatibility with
// the original pbf2json output.
func Relation(r *element.Relation, coords []geo.Coord, pretty bool) (string, error) {
	if len(coords) > 0 {
		return marshal(relationGeomRecord{
			ID:       r.ID,
			Type:     "relation",
			Tags:     r.Tags,
			Centroid: centroidJSON(geo.Centroid(coords), "entrance"),
			Bounds:   boundsJSON(geo.ComputeBounds(coords)),
		}, pretty)
	}

	members := make([]memberRecord, len(r.Members))
	for i, m := range r.Members {
		members[i] = memberRecord{
			Type: m.Type.String(),
			Ref:  m.Ref,
			Role: m.Role,
		}
	}
	return marshal(relationRecord{
		ID:      r.ID,
		Type:    "relation",
		Members: members,
		Tags:    r.Tags,
	}, pretty)
}
