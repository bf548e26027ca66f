// Package check implements the two per-path verdicts this repository
// exists to produce: whether a BGP best-path vector's origin matches a
// RIPE route object (the route-object check) and whether every AS-hop
// on that path is permitted by the hop's own aut-num import/export
// policy (the path check). Hop verdicts encode the failing side and
// the filter residual in one integer (300/400 + residual) so they can
// be written to text reports unchanged.
package check

import (
	"strconv"

	"github.com/irraudit/bgpcrunch/internal/iana"
	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// Route-object check result codes.
const (
	RouteOK            = 0
	RouteAggregate     = 1
	RouteMissingOrigin = 2
	RouteASMismatch    = 3
	RouteNotFound      = 4
	RouteNonRIPE       = 5
)

// RouteResult is the outcome of checking one best-path vector's prefix
// against the route/route6 directory for the day it was observed.
type RouteResult[T any] struct {
	Prefix      ipaddr.Prefix
	AsPath      ipaddr.AsPath
	Status      int
	Match       T
	NonMatching []T
}

// CheckRoute resolves one BGP best-path vector's origin against the
// route-object directory for its prefix. originOf extracts an object's
// declared origin token (e.g. "AS8400") so the same function serves
// both the RouteObject and Route6Object directories; the accessor
// methods RouteLike names are not exported by rpsl.
func CheckRoute[T rpsl.RouteLike](prefix ipaddr.Prefix, asPath ipaddr.AsPath, ianaDir *iana.Directory, routes *rpsl.RouteDirectory[T], originOf func(T) string) RouteResult[T] {
	res := RouteResult[T]{Prefix: prefix, AsPath: asPath}

	if asPath.Aggregate {
		res.Status = RouteAggregate
		return res
	}
	origin, ok := asPath.OriginASN()
	if !ok {
		res.Status = RouteMissingOrigin
		return res
	}
	originToken := asnToken(origin)

	entry, found := ianaDir.Resolve(prefix)
	if !found || entry.RIR != "RIPE NCC" {
		res.Status = RouteNonRIPE
		return res
	}

	candidates := routes.Lookup(prefix)
	if len(candidates) == 0 {
		res.Status = RouteNotFound
		return res
	}

	var nonMatching []T
	for _, c := range candidates {
		if originOf(c) == originToken {
			res.Status = RouteOK
			res.Match = c
			return res
		}
		nonMatching = append(nonMatching, c)
	}
	res.Status = RouteASMismatch
	res.NonMatching = nonMatching
	return res
}

func asnToken(n uint32) string {
	return "AS" + strconv.FormatUint(uint64(n), 10)
}

// RouteOrigin and Route6Origin are the originOf callbacks for
// CheckRoute's two concrete instantiations.
func RouteOrigin(r *rpsl.RouteObject) string   { return r.Origin }
func Route6Origin(r *rpsl.Route6Object) string { return r.Origin }
