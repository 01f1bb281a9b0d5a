package element

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestFromOSMNode(t *testing.T) {
	n := FromOSMNode(&osm.Node{
		ID:   osm.NodeID(42),
		Lat:  51.5,
		Lon:  -0.1,
		Tags: osm.Tags{{Key: "amenity", Value: "pub"}},
	})

	if n.ID != 42 || n.Lat != 51.5 || n.Lon != -0.1 {
		t.Errorf("node = %+v", n)
	}
	if n.Tags["amenity"] != "pub" {
		t.Errorf("tags = %v", n.Tags)
	}
}

func TestFromOSMWay(t *testing.T) {
	w := FromOSMWay(&osm.Way{
		ID: osm.WayID(7),
		Nodes: osm.WayNodes{
			{ID: osm.NodeID(1)},
			{ID: osm.NodeID(2)},
			{ID: osm.NodeID(3)},
		},
		Tags: osm.Tags{{Key: "highway", Value: "residential"}},
	})

	if w.ID != 7 {
		t.Errorf("ID = %d, want 7", w.ID)
	}
	want := []int64{1, 2, 3}
	if len(w.NodeRefs) != len(want) {
		t.Fatalf("NodeRefs = %v, want %v", w.NodeRefs, want)
	}
	for i, ref := range want {
		if w.NodeRefs[i] != ref {
			t.Errorf("NodeRefs[%d] = %d, want %d", i, w.NodeRefs[i], ref)
		}
	}
}

func TestFromOSMRelation(t *testing.T) {
	r := FromOSMRelation(&osm.Relation{
		ID: osm.RelationID(9),
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 100, Role: "outer"},
			{Type: osm.TypeNode, Ref: 200, Role: "admin_centre"},
			{Type: osm.TypeRelation, Ref: 300, Role: "subarea"},
		},
		Tags: osm.Tags{{Key: "type", Value: "multipolygon"}},
	})

	if r.ID != 9 {
		t.Errorf("ID = %d, want 9", r.ID)
	}
	if len(r.Members) != 3 {
		t.Fatalf("got %d members, want 3", len(r.Members))
	}
	if r.Members[0].Type != MemberWay || r.Members[0].Ref != 100 || r.Members[0].Role != "outer" {
		t.Errorf("members[0] = %+v", r.Members[0])
	}
	if r.Members[1].Type != MemberNode {
		t.Errorf("members[1].Type = %v, want node", r.Members[1].Type)
	}
	if r.Members[2].Type != MemberRelation {
		t.Errorf("members[2].Type = %v, want relation", r.Members[2].Type)
	}
}

func TestFromOSMNonElement(t *testing.T) {
	if e := FromOSM(nil); e != nil {
		t.Errorf("expected nil for non-element object, got %T", e)
	}
}

func TestMemberTypeString(t *testing.T) {
	tests := []struct {
		mt   MemberType
		want string
	}{
		{MemberNode, "node"},
		{MemberWay, "way"},
		{MemberRelation, "relation"},
		{MemberType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mt.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.mt, got, tt.want)
		}
	}
}

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		refs []int64
		want bool
	}{
		{"empty", nil, false},
		{"open", []int64{1, 2, 3}, false},
		{"closed", []int64{1, 2, 3, 1}, true},
		{"single ref", []int64{5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Way{NodeRefs: tt.refs}
			if got := w.IsClosed(); got != tt.want {
				t.Errorf("IsClosed(%v) = %v, want %v", tt.refs, got, tt.want)
			}
		})
	}
}

func TestIDAndTags(t *testing.T) {
	tags := map[string]string{"name": "x"}
	elems := []Element{
		&Node{ID: 1, Tags: tags},
		&Way{ID: 2, Tags: tags},
		&Relation{ID: 3, Tags: tags},
	}
	for i, e := range elems {
		if ID(e) != int64(i+1) {
			t.Errorf("ID(%T) = %d, want %d", e, ID(e), i+1)
		}
		if Tags(e)["name"] != "x" {
			t.Errorf("Tags(%T) = %v", e, Tags(e))
		}
	}
}
