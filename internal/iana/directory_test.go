package iana

import (
	"strings"
	"testing"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
)

func TestBuild_IPv4ResolvesRIRAndStripsAdministeredByPrefix(t *testing.T) {
	csv := "prefix,designation,date,whois,status\n" +
		"217.0.0.0/8,Administered by RIPE NCC,1990-01,whois.ripe.net,ALLOCATED\n"
	dir, errs := Build(strings.NewReader(csv), false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	net, _ := ipaddr.ParseV4("217.31.48.0/20")
	e, ok := dir.Resolve(net)
	if !ok {
		t.Fatal("want a resolved entry")
	}
	if e.RIR != "RIPE NCC" {
		t.Fatalf("want RIR RIPE NCC with prefix stripped, got %q", e.RIR)
	}
}

func TestBuild_LegacyStatusWithUnrecognisedRIRCollapses(t *testing.T) {
	csv := "prefix,designation,date,whois,status\n" +
		"18.0.0.0/8,Legacy,1990-01,whois.arin.net,LEGACY\n"
	dir, errs := Build(strings.NewReader(csv), false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	net, _ := ipaddr.ParseV4("18.1.2.0/24")
	e, ok := dir.Resolve(net)
	if !ok {
		t.Fatal("want a resolved entry")
	}
	if e.RIR != "LEGACY" {
		t.Fatalf("want RIR collapsed to LEGACY, got %q", e.RIR)
	}
}

func TestBuild_RecognisedRIRLegacyStatusKeptAsIs(t *testing.T) {
	csv := "prefix,designation,date,whois,status\n" +
		"196.0.0.0/8,AFRINIC,1990-01,whois.afrinic.net,LEGACY\n"
	dir, errs := Build(strings.NewReader(csv), false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	net, _ := ipaddr.ParseV4("196.1.2.0/24")
	e, ok := dir.Resolve(net)
	if !ok {
		t.Fatal("want a resolved entry")
	}
	if e.RIR != "AFRINIC" {
		t.Fatalf("want recognised RIR kept, got %q", e.RIR)
	}
}

func TestBuild_IPv6ColumnLayout(t *testing.T) {
	csv := "prefix,designation,date,whois,rdap,status\n" +
		"2001:1a00::/23,APNIC,1990-01,whois.apnic.net,,ALLOCATED\n"
	dir, errs := Build(strings.NewReader(csv), true)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	net, _ := ipaddr.ParseV6("2001:1ab0::/32")
	e, ok := dir.Resolve(net)
	if !ok {
		t.Fatal("want a resolved entry")
	}
	if e.RIR != "APNIC" || e.Status != "ALLOCATED" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestBuild_MalformedRowCollectedNotFatal(t *testing.T) {
	csv := "prefix,designation,date,whois,status\n" +
		"not-a-prefix,RIPE NCC,1990-01,whois.ripe.net,ALLOCATED\n" +
		"217.0.0.0/8,RIPE NCC,1990-01,whois.ripe.net,ALLOCATED\n"
	dir, errs := Build(strings.NewReader(csv), false)
	if len(errs) != 1 {
		t.Fatalf("want 1 error, got %d: %v", len(errs), errs)
	}
	net, _ := ipaddr.ParseV4("217.1.2.0/24")
	if _, ok := dir.Resolve(net); !ok {
		t.Fatal("want the well-formed row still resolved")
	}
}
