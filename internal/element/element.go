// Package element defines the canonical OSM element model used by the
// conversion pipeline and the adapters from the external PBF decoder.
package element

import "github.com/paulmach/osm"

// MemberType identifies the kind of element a relation member refers to.
type MemberType int

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// String returns the wire name of the member type
func (t MemberType) String() string {
	switch t {
	case MemberNode:
		return "node"
	case MemberWay:
		return "way"
	case MemberRelation:
		return "relation"
	}
	return "unknown"
}

// Node is a tagged point
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Way is an ordered path of node references. Duplicate refs and closed
// loops (first ref == last ref) are valid.
type Way struct {
	ID       int64
	NodeRefs []int64
	Tags     map[string]string
}

// Member is one entry of a relation's ordered member list
type Member struct {
	Type MemberType
	Ref  int64
	Role string
}

// Relation groups other elements with roles
type Relation struct {
	ID      int64
	Members []Member
	Tags    map[string]string
}

// Element is the closed sum over Node, Way and Relation. Consumers
// type-switch over the three concrete types; new kinds are added here,
// never by open-ended embedding.
type Element interface {
	isElement()
}

func (*Node) isElement()     {}
func (*Way) isElement()      {}
func (*Relation) isElement() {}

// ID returns the element's OSM identifier
func ID(e Element) int64 {
	switch v := e.(type) {
	case *Node:
		return v.ID
	case *Way:
		return v.ID
	case *Relation:
		return v.ID
	}
	return 0
}

// Tags returns the element's tag map
func Tags(e Element) map[string]string {
	switch v := e.(type) {
	case *Node:
		return v.Tags
	case *Way:
		return v.Tags
	case *Relation:
		return v.Tags
	}
	return nil
}

// IsClosed reports whether a way forms a loop
func (w *Way) IsClosed() bool {
	return len(w.NodeRefs) > 0 && w.NodeRefs[0] == w.NodeRefs[len(w.NodeRefs)-1]
}

// FromOSM adapts a decoded PBF object into the canonical model.
// Returns nil for non-element objects (headers, bounds, etc.).
func FromOSM(obj osm.Object) Element {
	switch o := obj.(type) {
	case *osm.Node:
		return FromOSMNode(o)
	case *osm.Way:
		return FromOSMWay(o)
	case *osm.Relation:
		return FromOSMRelation(o)
	}
	return nil
}

// FromOSMNode adapts a decoded node
func FromOSMNode(n *osm.Node) *Node {
	return &Node{
		ID:   int64(n.ID),
		Lat:  n.Lat,
		Lon:  n.Lon,
		Tags: tagsToMap(n.Tags),
	}
}

// FromOSMWay adapts a decoded way
func FromOSMWay(w *osm.Way) *Way {
	refs := make([]int64, len(w.Nodes))
	for i, wn := range w.Nodes {
		refs[i] = int64(wn.ID)
	}
	return &Way{
		ID:       int64(w.ID),
		NodeRefs: refs,
		Tags:     tagsToMap(w.Tags),
	}
}

// FromOSMRelation adapts a decoded relation
func FromOSMRelation(r *osm.Relation) *Relation {
	members := make([]Member, len(r.Members))
	for i, m := range r.Members {
		var mt MemberType
		switch m.Type {
		case osm.TypeNode:
			mt = MemberNode
		case osm.TypeWay:
			mt = MemberWay
		case osm.TypeRelation:
			mt = MemberRelation
		}
		members[i] = Member{
			Type: mt,
			Ref:  m.Ref,
			Role: m.Role,
		}
	}
	return &Relation{
		ID:      int64(r.ID),
		Members: members,
		Tags:    tagsToMap(r.Tags),
	}
}

// tagsToMap converts OSM tags to a map
func tagsToMap(tags osm.Tags) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		m[tag.Key] = tag.Value
	}
	return m
}
