package policy

import (
	"testing"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

func testPrefix(t *testing.T, text string) ipaddr.Prefix {
	t.Helper()
	p, err := ipaddr.Parse(text)
	if err != nil {
		t.Fatalf("ipaddr.Parse(%q): %v", text, err)
	}
	return p
}

func testDirs() *Dirs {
	asSets := []*rpsl.AsSetObject{
		{Name: "AS-EXAMPLE", Members: []string{"AS64500"}},
	}
	filterSets := []*rpsl.FilterSetObject{
		{Name: "FLTR-EXAMPLE", Filter: "AS64500"},
	}
	routeSets := []*rpsl.RouteSetObject{
		{Name: "RS-EXAMPLE", Members: []string{"192.0.2.0/24"}},
	}
	peeringSets := []*rpsl.PeeringSetObject{
		{Name: "PRNG-EXAMPLE", Peering: []string{"AS64501 192.0.2.1"}},
	}
	return &Dirs{
		AsSets:      rpsl.NewHashDirectory(asSets),
		FilterSets:  rpsl.NewHashDirectory(filterSets),
		RouteSets:   rpsl.NewHashDirectory(routeSets),
		PeeringSets: rpsl.NewHashDirectory(peeringSets),
		AutNums:     rpsl.NewHashDirectory([]*rpsl.AutNumObject{}),
	}
}

func TestMatchFilter_Any(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("ANY", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK, got %d", c)
	}
}

func TestMatchFilter_ASNLiteral(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("AS64500", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK for matching origin, got %d", c)
	}
	if c := MatchFilter("AS1", p, ap, testDirs(), false); c != CodeASNMismatch {
		t.Fatalf("want CodeASNMismatch, got %d", c)
	}
}

func TestMatchFilter_AsSetUndefinedAndMiss(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	dirs := testDirs()
	if c := MatchFilter("AS-NOWHERE", p, ap, dirs, false); c != CodeAsSetUndefined {
		t.Fatalf("want CodeAsSetUndefined, got %d", c)
	}
	apMiss := ipaddr.AsPath{Asns: []uint32{64501, 1}}
	if c := MatchFilter("AS-EXAMPLE", p, apMiss, dirs, false); c != CodeAsSetMiss {
		t.Fatalf("want CodeAsSetMiss, got %d", c)
	}
	if c := MatchFilter("AS-EXAMPLE", p, ap, dirs, false); c != CodeOK {
		t.Fatalf("want CodeOK for AS-SET containing origin, got %d", c)
	}
}

func TestMatchFilter_FilterSetRecursion(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("FLTR-EXAMPLE", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK via filter-set recursion, got %d", c)
	}
	if c := MatchFilter("FLTR-MISSING", p, ap, testDirs(), false); c != CodeFilterSetMissing {
		t.Fatalf("want CodeFilterSetMissing, got %d", c)
	}
}

func TestMatchFilter_RouteSetLiteralMember(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("RS-EXAMPLE", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK via route-set member, got %d", c)
	}
	other := testPrefix(t, "198.51.100.0/24")
	if c := MatchFilter("RS-EXAMPLE", other, ap, testDirs(), false); c != CodeRouteSetMiss {
		t.Fatalf("want CodeRouteSetMiss, got %d", c)
	}
}

func TestMatchFilter_PrefixRangeExactAndPlus(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{}
	if c := MatchFilter("{192.0.2.0/24}", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK exact match, got %d", c)
	}
	if c := MatchFilter("{192.0.3.0/24}", p, ap, testDirs(), false); c != CodePrefixRangeMiss {
		t.Fatalf("want CodePrefixRangeMiss, got %d", c)
	}
	if c := MatchFilter("{192.0.0.0/16^+}", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK via ^+ range covering a more specific prefix, got %d", c)
	}
}

func TestMatchFilter_EmptyBracesAlwaysFail(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	if c := MatchFilter("{}", p, ipaddr.AsPath{}, testDirs(), false); c != CodePrefixRangeMiss {
		t.Fatalf("want CodePrefixRangeMiss for empty braces, got %d", c)
	}
}

func TestMatchFilter_RegexAtom(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("<AS64500>", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK regex match, got %d", c)
	}
	if c := MatchFilter("<AS9999>", p, ap, testDirs(), false); c != CodeRegexFail {
		t.Fatalf("want CodeRegexFail, got %d", c)
	}
}

func TestMatchFilter_RegexContainingAsSetTokenIsDunno(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("<AS-EXAMPLE>", p, ap, testDirs(), false); c != CodeRegexUnresolvable {
		t.Fatalf("want CodeRegexUnresolvable, got %d", c)
	}
}

func TestMatchFilter_EmptyAsPathRegexFails(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	if c := MatchFilter("<AS64500>", p, ipaddr.AsPath{}, testDirs(), false); c != CodeRegexFail {
		t.Fatalf("want CodeRegexFail for empty as-path, got %d", c)
	}
}

func TestMatchFilter_Community(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	if c := MatchFilter("COMMUNITY(64500:100)", p, ipaddr.AsPath{}, testDirs(), false); c != CodeCommunity {
		t.Fatalf("want CodeCommunity, got %d", c)
	}
}

func TestMatchFilter_EmptyFilter(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	if c := MatchFilter("   ", p, ipaddr.AsPath{}, testDirs(), false); c != CodeEmptyFilter {
		t.Fatalf("want CodeEmptyFilter, got %d", c)
	}
}

func TestMatchFilter_BooleanAndOrNot(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	dirs := testDirs()

	if c := MatchFilter("AS64500 AND ANY", p, ap, dirs, false); c != CodeOK {
		t.Fatalf("want CodeOK for AND of two admitting operands, got %d", c)
	}
	if c := MatchFilter("AS1 OR AS64500", p, ap, dirs, false); c != CodeOK {
		t.Fatalf("want CodeOK for OR with one admitting disjunct, got %d", c)
	}
	if c := MatchFilter("NOT AS1", p, ap, dirs, false); c != CodeOK {
		t.Fatalf("want CodeOK for NOT of a failing operand, got %d", c)
	}
	if c := MatchFilter("NOT AS64500", p, ap, dirs, false); c != CodeBooleanFail {
		t.Fatalf("want CodeBooleanFail for NOT of an admitting operand, got %d", c)
	}
}

func TestMatchFilter_TokenList(t *testing.T) {
	p := testPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	if c := MatchFilter("AS1 AS64500 AS2", p, ap, testDirs(), false); c != CodeOK {
		t.Fatalf("want CodeOK via OR-combined token list, got %d", c)
	}
	if c := MatchFilter("AS1 AS2", p, ap, testDirs(), false); c != CodeASNMismatch {
		t.Fatalf("want CodeASNMismatch when no token matches, got %d", c)
	}
}
