package bgptable

import (
	"strings"
	"testing"
)

const sampleTable = `BGP table version is 123456, local router ID is 192.0.2.1
Status codes: s suppressed, d damped, h history, * valid, > best, i - internal
Origin codes: i - IGP, e - EGP, ? - incomplete

   Network          Next Hop            Metric LocPrf Weight Path
*> 10.0.0.0/8       192.0.2.254              0             0 1299 8400 i
*  10.0.0.0/8       192.0.2.253              0             0 1299 3356 8400 i
*> 10.1.0.0/16      192.0.2.254              0             0 1299 174 701 i
`

func TestParse_BestPathIndicator(t *testing.T) {
	rows, err := ParseAll(strings.NewReader(sampleTable), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	if !rows[0].Best() {
		t.Fatalf("expected row 0 to carry the best-path indicator: %+v", rows[0])
	}
	if rows[1].Best() {
		t.Fatalf("did not expect row 1 to carry the best-path indicator: %+v", rows[1])
	}
}

func TestParse_PrefixAndNextHopInheritance(t *testing.T) {
	rows, err := ParseAll(strings.NewReader(sampleTable), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Prefix != "10.0.0.0/8" {
		t.Fatalf("expected 10.0.0.0/8, got %q", rows[0].Prefix)
	}
	if rows[0].NextHop != "192.0.2.254" {
		t.Fatalf("expected 192.0.2.254, got %q", rows[0].NextHop)
	}
	if rows[1].Prefix != "10.0.0.0/8" {
		t.Fatalf("continuation row should inherit the prefix, got %q", rows[1].Prefix)
	}
	if rows[1].NextHop != "192.0.2.253" {
		t.Fatalf("expected 192.0.2.253, got %q", rows[1].NextHop)
	}
}

func TestParse_AsPath(t *testing.T) {
	rows, err := ParseAll(strings.NewReader(sampleTable), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rows[0].AsPath, "1299 8400 i") {
		t.Fatalf("expected AS path to contain 1299 8400 i, got %q", rows[0].AsPath)
	}
	if !strings.Contains(rows[2].AsPath, "1299 174 701 i") {
		t.Fatalf("expected AS path to contain 1299 174 701 i, got %q", rows[2].AsPath)
	}
}

func TestParse_NoHeaderYieldsNoRows(t *testing.T) {
	rows, err := ParseAll(strings.NewReader("not a bgp table\njust some text\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows without a header line, got %+v", rows)
	}
}

const sampleTableV6 = `BGP table version is 9, local router ID is 192.0.2.1
Status codes: s suppressed, d damped, h history, * valid, > best, i - internal
Origin codes: i - IGP, e - EGP, ? - incomplete

   Network          Next Hop                              Metric LocPrf Weight Path
*> 2001:db8::/32     2001:db8:ffff::1                           0             0 1299 8400 i
`

func TestParse_IPv6PrefixLeftLiteral(t *testing.T) {
	rows, err := ParseAll(strings.NewReader(sampleTableV6), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %+v", len(rows), rows)
	}
	if rows[0].Prefix != "2001:db8::/32" {
		t.Fatalf("expected 2001:db8::/32, got %q", rows[0].Prefix)
	}
}
