package rpsl

import (
	"fmt"
	"strings"
)

// FilterSetObject is the internal representation of a filter-set RPSL
// object: a named, reusable filter expression. Filter and MPFilter keep
// their original case — unlike the rest of this package's attributes,
// filter bodies feed the regex atom of the evaluator and RPSL regex
// semantics are case-sensitive for identifiers.
type FilterSetObject struct {
	Name     string
	Filter   string
	MPFilter string
}

func (f *FilterSetObject) Key() string { return f.Name }

// IsFilterSetName reports whether name follows the filter-set naming
// convention (contains "FLTR-").
func IsFilterSetName(name string) bool {
	return strings.Contains(strings.ToUpper(name), "FLTR-")
}

func newFilterSetObject(lines []string) (*FilterSetObject, error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return nil, err
	}
	obj := &FilterSetObject{}
	for _, a := range attrs {
		switch a.Name {
		case "FILTER-SET":
			obj.Name = strings.ToUpper(strings.TrimSpace(a.Value))
		case "FILTER":
			obj.Filter = strings.TrimSpace(a.Value)
		case "MP-FILTER":
			obj.MPFilter = strings.TrimSpace(a.Value)
		}
	}
	if obj.Name == "" {
		return nil, fmt.Errorf("rpsl: filter-set object missing filter-set attribute in %v", lines)
	}
	return obj, nil
}

// FilterText returns the filter text applicable to an AFI: mp-filter for
// IPv6, filter for IPv4, falling back to whichever is set if the other is
// empty.
func (f *FilterSetObject) FilterText(ipv6 bool) string {
	if ipv6 {
		if f.MPFilter != "" {
			return f.MPFilter
		}
		return f.Filter
	}
	if f.Filter != "" {
		return f.Filter
	}
	return f.MPFilter
}
