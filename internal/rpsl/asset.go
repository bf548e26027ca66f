package rpsl

import (
	"fmt"
	"strings"
)

// AsSetObject is the internal representation of an as-set RPSL object: a
// named, possibly nested, collection of ASNs and other as-set names.
type AsSetObject struct {
	Name    string
	Members []string
}

func (a *AsSetObject) Key() string { return a.Name }

// IsAsSetName reports whether name follows the as-set naming convention
// (contains "AS-").
func IsAsSetName(name string) bool {
	return strings.Contains(strings.ToUpper(name), "AS-")
}

func newAsSetObject(lines []string) (*AsSetObject, error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return nil, err
	}
	obj := &AsSetObject{}
	for _, a := range attrs {
		switch a.Name {
		case "AS-SET":
			obj.Name = strings.ToUpper(strings.TrimSpace(a.Value))
		case "MEMBERS":
			obj.Members = append(obj.Members, splitCommaList(strings.ToUpper(a.Value))...)
		}
	}
	if obj.Name == "" {
		return nil, fmt.Errorf("rpsl: as-set object missing as-set attribute in %v", lines)
	}
	return obj, nil
}

// MatchRecursive reports whether target (e.g. "AS1234") is a direct or
// transitive member of this set. visited must be supplied by the caller
// and is mutated to guard against cycles; a set name seen twice on one
// path counts as no match, not an error.
func (a *AsSetObject) MatchRecursive(target string, dir *HashDirectory[*AsSetObject], visited map[string]bool) bool {
	if visited[a.Name] {
		return false
	}
	visited[a.Name] = true

	for _, m := range a.Members {
		if m == target {
			return true
		}
	}
	for _, m := range a.Members {
		if IsAsSetName(m) {
			if sub, ok := dir.Lookup(m); ok {
				if sub.MatchRecursive(target, dir, visited) {
					return true
				}
			}
		}
	}
	return false
}
