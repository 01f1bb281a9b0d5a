// Package filter implements the OR-of-AND tag key predicate used to select
// which elements are emitted.
package filter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is an ordered list of AND groups; an element matches when every
// pattern of at least one group matches one of its tag keys. An empty
// spec matches every element. Matching is read-only and safe for
// concurrent use from any number of goroutines.
type Spec [][]string

// Parse parses the command-line filter syntax: comma separates OR groups,
// plus separates AND terms within a group. "addr*+name,highway" means
// (addr* AND name) OR highway. An empty string yields a nil spec.
func Parse(s string) Spec {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var spec Spec
	for _, group := range strings.Split(s, ",") {
		var terms []string
		for _, term := range strings.Split(group, "+") {
			terms = append(terms, strings.TrimSpace(term))
		}
		spec = append(spec, terms)
	}
	return spec
}

// fileSpec is the YAML form of a filter spec
type fileSpec struct {
	Groups [][]string `yaml:"groups"`
}

// LoadFile loads a filter spec from a YAML file:
//
//	groups:
//	  - [addr*, name]
//	  - [highway]
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}

	var fs fileSpec
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("failed to parse filter YAML: %w", err)
	}

	return Spec(fs.Groups), nil
}

// Match reports whether the tag set satisfies the spec
func (s Spec) Match(tags map[string]string) bool {
	if len(s) == 0 {
		return true
	}

	for _, group := range s {
		if groupMatches(tags, group) {
			return true
		}
	}
	return false
}

// groupMatches requires every pattern in the group to match some tag key
func groupMatches(tags map[string]string, group []string) bool {
	for _, pattern := range group {
		if !MatchPattern(tags, pattern) {
			return false
		}
	}
	return true
}

// MatchPattern reports whether any tag key matches the pattern. Patterns
// filter on key presence only; tag values are never consulted.
func MatchPattern(tags map[string]string, pattern string) bool {
	if pattern == "*" {
		return len(tags) > 0
	}
	for key := range tags {
		if keyMatches(key, pattern) {
			return true
		}
	}
	return false
}

// keyMatches matches a single key against a wildcard pattern. Without a
// wildcard the match is exact. Fragments between wildcards must appear in
// order at non-overlapping positions; a leading fragment anchors at the
// start of the key and a trailing fragment anchors at the end.
func keyMatches(key, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return key == pattern
	}

	parts := strings.Split(pattern, "*")

	first := parts[0]
	if first != "" {
		if !strings.HasPrefix(key, first) {
			return false
		}
		key = key[len(first):]
	}

	last := parts[len(parts)-1]
	for _, frag := range parts[1 : len(parts)-1] {
		if frag == "" {
			continue
		}
		i := strings.Index(key, frag)
		if i < 0 {
			return false
		}
		key = key[i+len(frag):]
	}

	if last == "" {
		return true
	}
	return strings.HasSuffix(key, last)
}
