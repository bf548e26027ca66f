// Package iana resolves BGP-visible prefixes against the top-level
// IANA address-space registry, attributing each to the RIR (or LEGACY
// bucket) that holds the enclosing allocation.
//
// The registry export is read one entry per allocation row, indexed
// into a longest-prefix-match trie and resolved with a least-specific
// match rather than most-specific, since an allocation entry is never
// nested inside another allocation entry of the same registry.
package iana

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/triemap"
)

// recognisedRIRs are the five regional registries. A LEGACY-status
// entry naming anything outside this set collapses to the RIR "LEGACY".
var recognisedRIRs = map[string]bool{
	"LACNIC":   true,
	"APNIC":    true,
	"ARIN":     true,
	"RIPE NCC": true,
	"AFRINIC":  true,
}

// Entry is one resolved IANA allocation record.
type Entry struct {
	Net    ipaddr.Prefix
	Status string
	RIR    string
}

// Directory resolves prefixes against the allocation table for one
// address family.
type Directory struct {
	tree *triemap.Trie[Entry]
}

// Column layout of the two registry exports: the IPv4 space CSV
// carries status at index 4, RIR (designation) at index 1; the IPv6
// unicast assignment CSV carries RIR at index 1 and status at index 5.
const (
	ipv4RIRCol    = 1
	ipv4StatusCol = 4
	ipv6RIRCol    = 1
	ipv6StatusCol = 5
)

func normalizeRIR(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, "Administered by "))
}

func resolveRIR(status, rir string) string {
	if status == "LEGACY" && !recognisedRIRs[rir] {
		return "LEGACY"
	}
	return rir
}

func parseRow(row []string, ipv6 bool) (Entry, error) {
	if ipv6 {
		if len(row) <= ipv6StatusCol {
			return Entry{}, fmt.Errorf("iana: short ipv6 row %v", row)
		}
		net, err := ipaddr.ParseV6(row[0])
		if err != nil {
			return Entry{}, err
		}
		status := strings.ToUpper(strings.TrimSpace(row[ipv6StatusCol]))
		rir := strings.TrimSpace(row[ipv6RIRCol])
		return Entry{Net: net, Status: status, RIR: resolveRIR(status, rir)}, nil
	}

	if len(row) <= ipv4StatusCol {
		return Entry{}, fmt.Errorf("iana: short ipv4 row %v", row)
	}
	net, err := ipaddr.ParseV4(row[0])
	if err != nil {
		return Entry{}, err
	}
	status := strings.ToUpper(strings.TrimSpace(row[ipv4StatusCol]))
	rir := normalizeRIR(row[ipv4RIRCol])
	return Entry{Net: net, Status: status, RIR: resolveRIR(status, rir)}, nil
}

// Build reads a registry CSV (skipping its header row) into a
// Directory. Malformed rows are collected in errs and skipped rather
// than aborting the read.
func Build(r io.Reader, ipv6 bool) (*Directory, []error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	dir := &Directory{tree: triemap.New[Entry](ipv6)}
	var errs []error

	rows, err := reader.ReadAll()
	if err != nil {
		return dir, []error{fmt.Errorf("iana: csv: %w", err)}
	}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		e, err := parseRow(row, ipv6)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dir.tree.Insert(e.Net.Prefix, e)
	}
	return dir, errs
}

// BuildFile opens filename and delegates to Build.
func BuildFile(filename string, ipv6 bool) (*Directory, []error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, []error{fmt.Errorf("iana: open %s: %w", filename, err)}
	}
	defer f.Close()
	return Build(f, ipv6)
}

// Resolve returns the least-specific allocation entry containing net.
// An allocation entry is never nested inside a sibling allocation
// entry, so the least-specific match is the correct (and only) one.
func (d *Directory) Resolve(net ipaddr.Prefix) (Entry, bool) {
	return d.tree.LookupFirst(net.Prefix)
}
