package rpsl

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/triemap"
)

// RouteObject is the internal representation of an RPSL route object:
// a single (prefix, origin) binding plus any as-set membership the
// object declares about itself.
type RouteObject struct {
	Prefix   ipaddr.Prefix
	Origin   string
	MemberOf []string
}

func (r *RouteObject) Key() string          { return r.Prefix.String() }
func (r *RouteObject) prefixValue() netip.Prefix { return r.Prefix.Prefix }
func (r *RouteObject) originValue() string  { return r.Origin }

// Route6Object is RouteObject's IPv6 counterpart (distinct ROUTE6
// attribute, /v6 prefix parsing).
type Route6Object struct {
	Prefix   ipaddr.Prefix
	Origin   string
	MemberOf []string
}

func (r *Route6Object) Key() string          { return r.Prefix.String() }
func (r *Route6Object) prefixValue() netip.Prefix { return r.Prefix.Prefix }
func (r *Route6Object) originValue() string  { return r.Origin }

func parseRouteAttrs(lines []string, routeAttr string) (prefixText, origin string, memberOf []string, err error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return "", "", nil, err
	}
	for _, a := range attrs {
		switch a.Name {
		case routeAttr:
			prefixText = strings.TrimSpace(a.Value)
		case "ORIGIN":
			v := strings.ToUpper(strings.TrimSpace(a.Value))
			if !strings.HasPrefix(v, "AS") {
				return "", "", nil, fmt.Errorf("rpsl: origin value %q is not an ASN", a.Value)
			}
			origin = v
		case "MEMBER-OF":
			memberOf = append(memberOf, splitCommaList(strings.ToUpper(a.Value))...)
		}
	}
	if prefixText == "" || origin == "" {
		return "", "", nil, fmt.Errorf("rpsl: route object missing route/origin attribute in %v", lines)
	}
	return prefixText, origin, memberOf, nil
}

func newRouteObject(lines []string) (*RouteObject, error) {
	pfxText, origin, memberOf, err := parseRouteAttrs(lines, "ROUTE")
	if err != nil {
		return nil, err
	}
	p, err := ipaddr.ParseV4(pfxText)
	if err != nil {
		return nil, fmt.Errorf("rpsl: route prefix %q: %w", pfxText, err)
	}
	return &RouteObject{Prefix: p, Origin: origin, MemberOf: memberOf}, nil
}

func newRoute6Object(lines []string) (*Route6Object, error) {
	pfxText, origin, memberOf, err := parseRouteAttrs(lines, "ROUTE6")
	if err != nil {
		return nil, err
	}
	p, err := ipaddr.ParseV6(pfxText)
	if err != nil {
		return nil, fmt.Errorf("rpsl: route6 prefix %q: %w", pfxText, err)
	}
	return &Route6Object{Prefix: p, Origin: origin, MemberOf: memberOf}, nil
}

// RouteLike constrains the two concrete route-object shapes a
// RouteDirectory can index. The methods are deliberately unexported:
// outside packages name the constraint in generic signatures but only
// this package's route/route6 objects satisfy it.
type RouteLike interface {
	prefixValue() netip.Prefix
	originValue() string
}

// RouteDirectory indexes route/route6 objects two ways: an exact-prefix
// trie lookup (used by the route-object checker) and an origin-ASN hash
// lookup (used by as-set enrichment). One prefix may map to several
// objects with distinct origins; lookups therefore return slices.
type RouteDirectory[T RouteLike] struct {
	tree        *triemap.Trie[[]T]
	originIndex map[string][]T
}

func buildRouteDirectory[T RouteLike](objs []T, v6 bool) *RouteDirectory[T] {
	dir := &RouteDirectory[T]{tree: triemap.New[[]T](v6), originIndex: map[string][]T{}}
	for _, o := range objs {
		var group []T
		if hits := dir.tree.LookupNetExact(o.prefixValue()); len(hits) > 0 {
			group = hits[0]
		}
		dir.tree.Insert(o.prefixValue(), append(group, o))
		dir.originIndex[o.originValue()] = append(dir.originIndex[o.originValue()], o)
	}
	return dir
}

// BuildRouteDirectory parses an IPv4 ripe.db.route file into a directory.
func BuildRouteDirectory(filename string) (*RouteDirectory[*RouteObject], []error) {
	objs, errs := ParseObjects(filename, newRouteObject)
	return buildRouteDirectory(objs, false), errs
}

// BuildRoute6Directory parses an IPv6 ripe.db.route6 file into a directory.
func BuildRoute6Directory(filename string) (*RouteDirectory[*Route6Object], []error) {
	objs, errs := ParseObjects(filename, newRoute6Object)
	return buildRouteDirectory(objs, true), errs
}

// NewRouteDirectory indexes an already-constructed route/route6 object
// slice, for callers (tests, in-memory fixtures) that build objects
// without a backing file.
func NewRouteDirectory[T RouteLike](objs []T, v6 bool) *RouteDirectory[T] {
	return buildRouteDirectory(objs, v6)
}

// Lookup returns every route object registered for exactly p (not a
// covering supernet).
func (d *RouteDirectory[T]) Lookup(p ipaddr.Prefix) []T {
	var out []T
	for _, group := range d.tree.LookupNetExact(p.Prefix) {
		out = append(out, group...)
	}
	return out
}

// ByOrigin returns the route objects originated by asn (e.g. "AS8400").
func (d *RouteDirectory[T]) ByOrigin(asn string) []T {
	return d.originIndex[asn]
}

// Len returns the number of indexed objects.
func (d *RouteDirectory[T]) Len() int {
	n := 0
	for _, group := range d.originIndex {
		n += len(group)
	}
	return n
}

// All returns every object in the directory, in no particular order.
func (d *RouteDirectory[T]) All() []T {
	var out []T
	for _, group := range d.originIndex {
		out = append(out, group...)
	}
	return out
}
