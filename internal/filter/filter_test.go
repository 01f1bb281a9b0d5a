package filter

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Spec
	}{
		{
			name: "empty string",
			in:   "",
			want: nil,
		},
		{
			name: "whitespace only",
			in:   "   ",
			want: nil,
		},
		{
			name: "single term",
			in:   "highway",
			want: Spec{{"highway"}},
		},
		{
			name: "OR groups",
			in:   "highway,building",
			want: Spec{{"highway"}, {"building"}},
		},
		{
			name: "AND terms",
			in:   "addr:housenumber+addr:street",
			want: Spec{{"addr:housenumber", "addr:street"}},
		},
		{
			name: "mixed with wildcards",
			in:   "addr*+name,highway",
			want: Spec{{"addr*", "name"}, {"highway"}},
		},
		{
			name: "terms are trimmed",
			in:   " highway , building + name ",
			want: Spec{{"highway"}, {"building", "name"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyMatches(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		pattern string
		want    bool
	}{
		{"exact match", "highway", "highway", true},
		{"exact mismatch", "highway", "railway", false},
		{"no partial without wildcard", "highways", "highway", false},
		{"prefix wildcard", "addr:street", "addr*", true},
		{"prefix wildcard mismatch", "name", "addr*", false},
		{"suffix wildcard", "note:en", "*:en", true},
		{"suffix wildcard mismatch", "note:de", "*:en", false},
		{"both sides open", "contact:phone:mobile", "*phone*", true},
		{"middle fragments in order", "alpha-beta-gamma", "a*beta*gamma", true},
		{"fragments out of order", "gamma-beta", "beta*gamma", false},
		{"trailing fragment must end key", "highway:old", "high*way", false},
		{"fragments cannot overlap", "aba", "ab*ba", false},
		{"bare star matches any key", "anything", "*", true},
		{"empty fragments collapse", "abc", "a**c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyMatches(tt.key, tt.pattern); got != tt.want {
				t.Errorf("keyMatches(%q, %q) = %v, want %v", tt.key, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	amenity := map[string]string{"amenity": "cafe", "name": "Kaffebar"}
	address := map[string]string{"addr:housenumber": "7", "addr:street": "Main St"}
	empty := map[string]string{}

	tests := []struct {
		name string
		spec Spec
		tags map[string]string
		want bool
	}{
		{"empty spec matches tagged element", nil, amenity, true},
		{"empty spec matches untagged element", nil, empty, true},
		{"single group hit", Spec{{"amenity"}}, amenity, true},
		{"single group miss", Spec{{"highway"}}, amenity, false},
		{"AND requires all terms", Spec{{"amenity", "name"}}, amenity, true},
		{"AND fails on one missing term", Spec{{"amenity", "operator"}}, amenity, false},
		{"OR needs only one group", Spec{{"highway"}, {"amenity"}}, amenity, true},
		{"wildcard AND", Spec{{"addr*", "addr:street"}}, address, true},
		{"star requires at least one tag", Spec{{"*"}}, empty, false},
		{"star matches any tagged element", Spec{{"*"}}, amenity, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Match(tt.tags); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestMatchConcurrent(t *testing.T) {
	spec := Parse("addr*+name,highway")
	matching := map[string]string{"addr:street": "Main St", "name": "Home"}
	other := map[string]string{"building": "yes"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if !spec.Match(matching) {
					t.Error("expected match")
					return
				}
				if spec.Match(other) {
					t.Error("unexpected match")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter.yaml")
	content := "groups:\n  - [addr*, name]\n  - [highway]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	spec, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	want := Spec{{"addr*", "name"}, {"highway"}}
	if !reflect.DeepEqual(spec, want) {
		t.Errorf("LoadFile = %v, want %v", spec, want)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing filter file")
	}
}
