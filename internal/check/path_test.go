package check

import (
	"testing"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/policy"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

func uptr(n uint32) *uint32 { return &n }

func dirsWithAutNums(autnums ...*rpsl.AutNumObject) *policy.Dirs {
	return &policy.Dirs{
		AsSets:      rpsl.NewHashDirectory([]*rpsl.AsSetObject{}),
		FilterSets:  rpsl.NewHashDirectory([]*rpsl.FilterSetObject{}),
		RouteSets:   rpsl.NewHashDirectory([]*rpsl.RouteSetObject{}),
		PeeringSets: rpsl.NewHashDirectory([]*rpsl.PeeringSetObject{}),
		AutNums:     rpsl.NewHashDirectory(autnums),
	}
}

func TestCheckPath_EmptyPathIsPreCheckFailure(t *testing.T) {
	p := mustPrefix(t, "192.0.2.0/24")
	res := CheckPath(p, ipaddr.AsPath{}, dirsWithAutNums(), false, nil)
	if len(res.Hops) != 1 || res.Hops[0].Code != HopPreCheckFailed {
		t.Fatalf("want single HopPreCheckFailed hop, got %+v", res.Hops)
	}
	if res.WholeInRegion {
		t.Fatalf("want WholeInRegion false for an unwalked path")
	}
}

func TestCheckPath_ASNOutsideRegion(t *testing.T) {
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64501, 64500}}
	res := CheckPath(p, ap, dirsWithAutNums(), false, nil)
	if len(res.Hops) != 2 {
		t.Fatalf("want 2 hops, got %d", len(res.Hops))
	}
	for _, h := range res.Hops {
		if h.Code != HopOutsideRegion {
			t.Fatalf("want HopOutsideRegion for %d, got %d", h.ASN, h.Code)
		}
	}
	if res.WholeInRegion {
		t.Fatalf("want WholeInRegion false when every hop is outside the region")
	}
}

func TestCheckPath_OriginatorSkipsImport(t *testing.T) {
	// Single-hop path: asn 64500 is both neighbour and origin
	// (previous_as is None since it is the last element), and with no
	// observer ASN configured next_as is also None, so both halves
	// are vacuously satisfied regardless of the aut-num's rules.
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500}}
	autnum := &rpsl.AutNumObject{ASN: "AS64500"}
	res := CheckPath(p, ap, dirsWithAutNums(autnum), false, nil)
	if len(res.Hops) != 1 || res.Hops[0].Code != HopOK {
		t.Fatalf("want single HopOK, got %+v", res.Hops)
	}
	if !res.WholeInRegion {
		t.Fatalf("want WholeInRegion true")
	}
}

func TestCheckPath_PrependingSatisfiesImportRegardlessOfFilter(t *testing.T) {
	// aspath = [64500, 64500, 64501]: hop 0's previous_as (aspath[1])
	// equals its own ASN, so the import half-step is satisfied by the
	// prepending rule even though the aut-num carries no import rules
	// that would otherwise admit AS64500.
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500, 64500, 64501}}
	autnum := &rpsl.AutNumObject{
		ASN:         "AS64500",
		ExportRules: []rpsl.Rule{rpsl.NewRule(rpsl.RuleExport, "to AS64500 announce ANY", false)},
	}
	res := CheckPath(p, ap, dirsWithAutNums(autnum), false, nil)
	if res.Hops[0].Code != HopOK {
		t.Fatalf("want prepending hop OK, got %d", res.Hops[0].Code)
	}
}

func TestCheckPath_ImportNoRuleAppliedAtAll(t *testing.T) {
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500, 64501}}
	autnum := &rpsl.AutNumObject{ASN: "AS64500"} // no import rules at all
	res := CheckPath(p, ap, dirsWithAutNums(autnum, &rpsl.AutNumObject{ASN: "AS64501"}), false, nil)
	if res.Hops[0].Code != 300 {
		t.Fatalf("want 300 (no import rule applied at all), got %d", res.Hops[0].Code)
	}
}

func TestCheckPath_ImportRuleMatchedButFilterFailed(t *testing.T) {
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500, 64501}}
	autnum := &rpsl.AutNumObject{
		ASN:         "AS64500",
		ImportRules: []rpsl.Rule{rpsl.NewRule(rpsl.RuleImport, "from AS64501 accept AS1", false)},
	}
	res := CheckPath(p, ap, dirsWithAutNums(autnum, &rpsl.AutNumObject{ASN: "AS64501"}), false, nil)
	// AS1 != origin AS64501 -> CodeASNMismatch(4) -> residual 4 -> 304
	if res.Hops[0].Code != 300+policy.CodeASNMismatch {
		t.Fatalf("want %d, got %d", 300+policy.CodeASNMismatch, res.Hops[0].Code)
	}
}

func TestCheckPath_ImportRuleMatchedAndAdmits(t *testing.T) {
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500, 64501}}
	autnum := &rpsl.AutNumObject{
		ASN:         "AS64500",
		ImportRules: []rpsl.Rule{rpsl.NewRule(rpsl.RuleImport, "from AS64501 accept ANY", false)},
	}
	res := CheckPath(p, ap, dirsWithAutNums(autnum, &rpsl.AutNumObject{ASN: "AS64501"}), false, nil)
	if res.Hops[0].Code != HopOK {
		t.Fatalf("want HopOK once import admits and export is vacuous (origin hop), got %d", res.Hops[0].Code)
	}
}

func TestCheckPath_ExportSideOnlyAttemptedAfterImportPasses(t *testing.T) {
	// Middle hop of a 3-AS path: import from aspath[i+1]=64502, export
	// to aspath[i-1]=64500. Import admits via ANY; export has no rules
	// at all -> 400.
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500, 64501, 64502}}
	autnum501 := &rpsl.AutNumObject{
		ASN:         "AS64501",
		ImportRules: []rpsl.Rule{rpsl.NewRule(rpsl.RuleImport, "from AS64502 accept ANY", false)},
	}
	dirs := dirsWithAutNums(autnum501, &rpsl.AutNumObject{ASN: "AS64500"}, &rpsl.AutNumObject{ASN: "AS64502"})
	res := CheckPath(p, ap, dirs, false, nil)
	if res.Hops[1].Code != 400 {
		t.Fatalf("want 400 (no export rule applied at all), got %d", res.Hops[1].Code)
	}
}

func TestCheckPath_ObserverASNSuppliesFinalExportNeighbor(t *testing.T) {
	// Single-hop path: asn 64500 is the originator, so previous_as is
	// None (import vacuous); next_as falls back to the observer ASN
	// since there is no inward hop, and the export rule targets it.
	p := mustPrefix(t, "192.0.2.0/24")
	ap := ipaddr.AsPath{Asns: []uint32{64500}}
	autnum := &rpsl.AutNumObject{
		ASN:         "AS64500",
		ExportRules: []rpsl.Rule{rpsl.NewRule(rpsl.RuleExport, "to AS65000 announce ANY", false)},
	}
	dirs := dirsWithAutNums(autnum)
	res := CheckPath(p, ap, dirs, false, uptr(65000))
	if res.Hops[0].Code != HopOK {
		t.Fatalf("want HopOK with observer ASN satisfying export, got %d", res.Hops[0].Code)
	}
}
