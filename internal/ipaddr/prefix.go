// Package ipaddr normalises and classifies IPv4/IPv6 prefixes the way the
// rest of the analysis pipeline expects: trimmed classful input accepted,
// canonical a.b.c.d/len output, family tracked explicitly rather than
// inferred per call.
package ipaddr

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Family distinguishes the address family of a Prefix independently of
// what net/netip itself reports, since the pipeline treats v4 and v6 as
// entirely separate universes (separate tries, separate directories).
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV6 {
		return "ipv6"
	}
	return "ipv4"
}

// Prefix is a normalised CIDR block tagged by family.
type Prefix struct {
	netip.Prefix
	Family Family
}

// ErrClassD is returned when classful mask inference is attempted on an
// address whose first octet falls in the Class D/E range (>= 224), where
// classful inference is undefined.
var ErrClassD = fmt.Errorf("ipaddr: cannot infer classful mask for class D/E address")

// ParseV4 accepts Cisco/IANA-style IPv4 prefix text, which may be
// classful-trimmed ("192.168.1" for "192.168.1.0/24") or carry an explicit
// mask ("192.168.1.0/24", "192.168.1/24"), and returns the canonical Prefix.
//
// Classful inference uses the textbook class boundaries: first octet
// <=127 => /8, <=191 => /16, <=223 => /24. Class D/E addresses (>=224)
// have no classful mask and fail outright.
func ParseV4(text string) (Prefix, error) {
	text = strings.TrimSpace(text)
	if text == "0.0.0.0" {
		p, err := netip.ParsePrefix("0.0.0.0/0")
		return Prefix{Prefix: p, Family: FamilyV4}, err
	}

	addrPart := text
	maskPart := -1
	if idx := strings.IndexByte(text, '/'); idx >= 0 {
		addrPart = text[:idx]
		m, err := strconv.Atoi(text[idx+1:])
		if err != nil {
			return Prefix{}, fmt.Errorf("ipaddr: bad mask in %q: %w", text, err)
		}
		maskPart = m
	}

	addr, err := normalizeV4Addr(addrPart)
	if err != nil {
		return Prefix{}, err
	}

	if maskPart < 0 {
		maskPart, err = resolveClassfulMask(addr)
		if err != nil {
			return Prefix{}, fmt.Errorf("ipaddr: %q: %w", text, err)
		}
	}

	p, err := addr.Prefix(maskPart)
	if err != nil {
		return Prefix{}, fmt.Errorf("ipaddr: %q: %w", text, err)
	}
	return Prefix{Prefix: p.Masked(), Family: FamilyV4}, nil
}

// ParseV6 parses a textual IPv6 CIDR. IPv6 allocation data is never
// classful-trimmed in practice, so no mask inference is attempted: an
// explicit prefix length is required.
func ParseV6(text string) (Prefix, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(text))
	if err != nil {
		return Prefix{}, fmt.Errorf("ipaddr: %q: %w", text, err)
	}
	if !p.Addr().Is6() {
		return Prefix{}, fmt.Errorf("ipaddr: %q is not an IPv6 prefix", text)
	}
	return Prefix{Prefix: p.Masked(), Family: FamilyV6}, nil
}

// Parse dispatches to ParseV4 or ParseV6 based on the presence of a
// colon.
func Parse(text string) (Prefix, error) {
	if strings.ContainsRune(text, ':') {
		return ParseV6(text)
	}
	return ParseV4(text)
}

// normalizeV4Addr pads a short dotted-quad ("192.168.1") out to four
// octets with trailing zeroes and validates each octet is a legal byte.
func normalizeV4Addr(addr string) (netip.Addr, error) {
	parts := strings.Split(addr, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return netip.Addr{}, fmt.Errorf("ipaddr: malformed IPv4 address %q", addr)
	}
	octets := [4]byte{}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return netip.Addr{}, fmt.Errorf("ipaddr: malformed octet %q in %q", p, addr)
		}
		octets[i] = byte(v)
	}
	return netip.AddrFrom4(octets), nil
}

func resolveClassfulMask(addr netip.Addr) (int, error) {
	first := addr.As4()[0]
	switch {
	case first >= 224:
		return 0, ErrClassD
	case first <= 127:
		return 8, nil
	case first <= 191:
		return 16, nil
	default:
		return 24, nil
	}
}

// Contains reports whether p fully contains other (same family, other's
// address range is a subset of p's).
func (p Prefix) Contains(other Prefix) bool {
	if p.Family != other.Family {
		return false
	}
	return p.Bits() <= other.Bits() && p.Prefix.Contains(other.Addr())
}

// String returns the canonical "a.b.c.d/len" / "a:b::/len" form.
func (p Prefix) String() string {
	return p.Prefix.String()
}
