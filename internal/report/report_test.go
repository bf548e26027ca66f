package report

import (
	"strings"
	"testing"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/check"
)

func TestWriteRoutes_Format(t *testing.T) {
	outcomes := []artifact.RouteOutcome{
		{Prefix: "2.10.0.0/16", Status: check.RouteOK},
		{Prefix: "2.11.0.0/16", Status: check.RouteOK},
		{Prefix: "2.12.0.0/16", Status: check.RouteASMismatch},
		{Prefix: "8.8.8.0/24", Status: check.RouteNonRIPE},
	}

	var sb strings.Builder
	if err := WriteRoutes(&sb, CountRoutes(outcomes)); err != nil {
		t.Fatalf("WriteRoutes: %v", err)
	}

	want := "total: 4\n" +
		"OK: 2\n" +
		"no-search aggregate: 0\n" +
		"origin missing: 0\n" +
		"AS not match: 1\n" +
		"route obj not found: 0\n" +
		"non-ripe: 1\n"
	if sb.String() != want {
		t.Fatalf("report mismatch:\nwant:\n%s\ngot:\n%s", want, sb.String())
	}
}

func TestCountPaths_Aggregates(t *testing.T) {
	outcomes := []artifact.PathOutcome{
		{
			Prefix: "2.10.0.0/16", AsPath: "1299 8400 i", InRegion: true,
			Hops: []artifact.HopCode{{ASN: 1299, Code: 0}, {ASN: 8400, Code: 0}},
		},
		{
			Prefix: "2.11.0.0/16", AsPath: "3356 2 1 i", InRegion: false,
			Hops: []artifact.HopCode{{ASN: 3356, Code: 2}, {ASN: 2, Code: 305}, {ASN: 1, Code: 0}},
		},
	}

	s := CountPaths(outcomes)
	if s.Total != 2 || s.Valid != 1 || s.InRegion != 1 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.CodeCounts[0] != 3 || s.CodeCounts[2] != 1 || s.CodeCounts[305] != 1 {
		t.Fatalf("unexpected code counts: %v", s.CodeCounts)
	}
	// Only the 305 hop is an error; it sits at index 1 of its path.
	if len(s.IndexErrors) != 1 || s.IndexErrors[1] != 1 {
		t.Fatalf("unexpected index errors: %v", s.IndexErrors)
	}
}

func TestWritePaths_ContainsBlocksAndFooter(t *testing.T) {
	outcomes := []artifact.PathOutcome{
		{
			Prefix: "2.10.0.0/16", AsPath: "1299 8400 i", InRegion: true,
			Hops: []artifact.HopCode{{ASN: 1299, Code: 0}, {ASN: 8400, Code: 301}},
		},
	}

	var sb strings.Builder
	if err := WritePaths(&sb, outcomes); err != nil {
		t.Fatalf("WritePaths: %v", err)
	}
	got := sb.String()

	for _, want := range []string{
		"2.10.0.0/16 (1299 8400 i)\n",
		"  AS1299: 0\n",
		"  AS8400: 301\n",
		"paths total: 1\n",
		"paths valid: 0\n",
		"hop code 301: 1\n",
		"errors by hop index:\n",
		"  1: 1\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
}

func TestIsHopError(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{0, false},
		{1, false},
		{2, false},
		{-1, true},
		{300, true},
		{308, true},
		{321, true},
		{400, true},
	}
	for _, c := range cases {
		if got := IsHopError(c.code); got != c.want {
			t.Errorf("IsHopError(%d) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestTimeline_DedupAndFormat(t *testing.T) {
	day1 := []artifact.RouteOutcome{
		{Prefix: "2.12.0.0/16", AsPath: "1299 9999 i", Status: check.RouteASMismatch, CandidateOrigins: []string{"AS8400"}},
		{Prefix: "2.13.0.0/16", AsPath: "1299 8400 i", Status: check.RouteOK},
	}
	day2 := []artifact.RouteOutcome{
		// Same observation again: must not produce a second entry.
		{Prefix: "2.12.0.0/16", AsPath: "1299 9999 i", Status: check.RouteASMismatch, CandidateOrigins: []string{"AS8400"}},
	}
	day3 := []artifact.RouteOutcome{
		{Prefix: "2.12.0.0/16", AsPath: "1299 9999 i", Status: check.RouteNotFound},
	}

	violators := map[string]bool{}
	Violators(day1, violators)
	Violators(day2, violators)
	Violators(day3, violators)
	if len(violators) != 1 || !violators["2.12.0.0/16"] {
		t.Fatalf("unexpected violators: %v", violators)
	}

	tl := Timeline{}
	ExtendTimeline(tl, violators, "2014-04-01", day1)
	ExtendTimeline(tl, violators, "2014-04-02", day2)
	ExtendTimeline(tl, violators, "2014-04-03", day3)

	entries := tl["2.12.0.0/16"]
	if len(entries) != 2 {
		t.Fatalf("want 2 transitions, got %d: %+v", len(entries), entries)
	}
	if entries[0].Day != "2014-04-01" || entries[1].Day != "2014-04-03" {
		t.Fatalf("wrong transition days: %+v", entries)
	}

	var sb strings.Builder
	if err := WriteTimeline(&sb, tl); err != nil {
		t.Fatalf("WriteTimeline: %v", err)
	}
	got := sb.String()
	if !strings.Contains(got, "2014-04-01 2.12.0.0/16 (1299 9999 i) AS not match: ripe-db orig: [AS8400]\n") {
		t.Fatalf("missing mismatch line:\n%s", got)
	}
	if !strings.Contains(got, "2014-04-03 2.12.0.0/16 (1299 9999 i) route obj not found\n") {
		t.Fatalf("missing not-found line:\n%s", got)
	}
	if !strings.Contains(got, "--------------------------------------------------") {
		t.Fatalf("missing separator:\n%s", got)
	}
}
