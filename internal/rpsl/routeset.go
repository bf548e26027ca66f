package rpsl

import (
	"fmt"
	"strings"
)

// RouteSetObject is the internal representation of a route-set RPSL
// object: a named collection of prefixes, route-sets, as-sets or ASNs.
type RouteSetObject struct {
	Name      string
	Members   []string
	MPMembers []string
}

func (r *RouteSetObject) Key() string { return r.Name }

// IsRouteSetName reports whether name follows the route-set naming
// convention (contains "RS-").
func IsRouteSetName(name string) bool {
	return strings.Contains(strings.ToUpper(name), "RS-")
}

func newRouteSetObject(lines []string) (*RouteSetObject, error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return nil, err
	}
	obj := &RouteSetObject{}
	for _, a := range attrs {
		switch a.Name {
		case "ROUTE-SET":
			obj.Name = strings.ToUpper(strings.TrimSpace(a.Value))
		case "MEMBERS":
			obj.Members = append(obj.Members, splitCommaList(strings.ToUpper(a.Value))...)
		case "MP-MEMBERS":
			obj.MPMembers = append(obj.MPMembers, splitCommaList(strings.ToUpper(a.Value))...)
		}
	}
	if obj.Name == "" {
		return nil, fmt.Errorf("rpsl: route-set object missing route-set attribute in %v", lines)
	}
	return obj, nil
}

// MemberTokens returns the members applicable to an AFI, mp-members for
// IPv6 and members for IPv4, matching FilterSetObject.FilterText's
// fallback behaviour.
func (r *RouteSetObject) MemberTokens(ipv6 bool) []string {
	if ipv6 {
		if len(r.MPMembers) > 0 {
			return r.MPMembers
		}
		return r.Members
	}
	if len(r.Members) > 0 {
		return r.Members
	}
	return r.MPMembers
}
