package artifact

import (
	"fmt"

	"github.com/irraudit/bgpcrunch/internal/check"
	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// RouteRecord is the gob-friendly form of a route/route6 object. The
// in-memory RouteObject carries a netip-backed prefix that gob cannot
// encode, so the prefix round-trips as its canonical text.
type RouteRecord struct {
	Prefix   string
	Origin   string
	MemberOf []string
}

// RouteRecords flattens a route directory's objects for persistence.
func RouteRecords(objs []*rpsl.RouteObject) []RouteRecord {
	recs := make([]RouteRecord, 0, len(objs))
	for _, o := range objs {
		recs = append(recs, RouteRecord{Prefix: o.Prefix.String(), Origin: o.Origin, MemberOf: o.MemberOf})
	}
	return recs
}

// Route6Records flattens a route6 directory's objects for persistence.
func Route6Records(objs []*rpsl.Route6Object) []RouteRecord {
	recs := make([]RouteRecord, 0, len(objs))
	for _, o := range objs {
		recs = append(recs, RouteRecord{Prefix: o.Prefix.String(), Origin: o.Origin, MemberOf: o.MemberOf})
	}
	return recs
}

// RouteObjects rebuilds route objects from persisted records.
func RouteObjects(recs []RouteRecord) ([]*rpsl.RouteObject, error) {
	objs := make([]*rpsl.RouteObject, 0, len(recs))
	for _, r := range recs {
		p, err := ipaddr.ParseV4(r.Prefix)
		if err != nil {
			return nil, fmt.Errorf("artifact: route record %s: %w", r.Prefix, err)
		}
		objs = append(objs, &rpsl.RouteObject{Prefix: p, Origin: r.Origin, MemberOf: r.MemberOf})
	}
	return objs, nil
}

// Route6Objects rebuilds route6 objects from persisted records.
func Route6Objects(recs []RouteRecord) ([]*rpsl.Route6Object, error) {
	objs := make([]*rpsl.Route6Object, 0, len(recs))
	for _, r := range recs {
		p, err := ipaddr.ParseV6(r.Prefix)
		if err != nil {
			return nil, fmt.Errorf("artifact: route6 record %s: %w", r.Prefix, err)
		}
		objs = append(objs, &rpsl.Route6Object{Prefix: p, Origin: r.Origin, MemberOf: r.MemberOf})
	}
	return objs, nil
}

// RouteOutcome is one route-check verdict in persistable form: the
// observed prefix and AS-path as text, the status code, and the
// origins of the matched / non-matching route objects the timeline
// report needs.
type RouteOutcome struct {
	Prefix           string
	AsPath           string
	Status           int
	MatchOrigin      string
	CandidateOrigins []string
}

// NewRouteOutcome converts a live check result for persistence.
// originOf recovers the origin token of a matched object, mirroring
// CheckRoute's own type-erased accessor.
func NewRouteOutcome[T any](res check.RouteResult[T], rawPath string, originOf func(T) string) RouteOutcome {
	out := RouteOutcome{
		Prefix: res.Prefix.String(),
		AsPath: rawPath,
		Status: res.Status,
	}
	if res.Status == check.RouteOK {
		out.MatchOrigin = originOf(res.Match)
	}
	for _, c := range res.NonMatching {
		out.CandidateOrigins = append(out.CandidateOrigins, originOf(c))
	}
	return out
}

// HopCode is one AS-hop verdict of a checked path.
type HopCode struct {
	ASN  uint32
	Code int
}

// PathOutcome is one path-check verdict in persistable form.
type PathOutcome struct {
	Prefix   string
	AsPath   string
	InRegion bool
	Hops     []HopCode
}

// NewPathOutcome converts a live path-check result for persistence.
func NewPathOutcome(prefix ipaddr.Prefix, rawPath string, res check.PathResult) PathOutcome {
	out := PathOutcome{
		Prefix:   prefix.String(),
		AsPath:   rawPath,
		InRegion: res.WholeInRegion,
	}
	for _, h := range res.Hops {
		out.Hops = append(out.Hops, HopCode{ASN: h.ASN, Code: h.Code})
	}
	return out
}

// UncheckablePath marks a path whose route-object pre-check failed so
// the walk never ran: every hop reports OK except the origin, which
// carries the uncheckable marker, so per-day totals still count every
// best path exactly once.
func UncheckablePath(prefix ipaddr.Prefix, rawPath string, asPath ipaddr.AsPath) PathOutcome {
	out := PathOutcome{
		Prefix:   prefix.String(),
		AsPath:   rawPath,
		InRegion: true,
	}
	for _, asn := range asPath.Asns {
		out.Hops = append(out.Hops, HopCode{ASN: asn, Code: check.HopOK})
	}
	if len(out.Hops) == 0 {
		out.Hops = []HopCode{{Code: check.HopPreCheckFailed}}
		out.InRegion = false
		return out
	}
	out.Hops[len(out.Hops)-1].Code = check.HopUncheckable
	return out
}
