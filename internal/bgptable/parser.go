// Package bgptable parses Cisco "show ip bgp" / "show ipv6 bgp" table
// dumps captured to a text file, as produced by a router CLI session or a
// looking-glass scrape.
//
// The header line is located first to learn the byte offsets of the
// "Next Hop" and "Path" columns, then every following line is matched
// against three regexes to recover the status indicator, prefix, next
// hop and AS path. Cisco wraps long rows onto a continuation line that
// starts mid-way through the next-hop/path columns; the prefix and
// next hop are therefore never reset between rows, only the indicator
// is.
package bgptable

import (
	"bufio"
	"io"
	"regexp"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
)

// Row is one entry of a BGP table: a single best- or non-best-path
// candidate for a prefix as advertised by a neighbor.
type Row struct {
	Indicator string
	Prefix    string
	NextHop   string
	AsPath    string
}

// Best reports whether the status indicator marks this row as the
// best-path selection ('>').
func (r Row) Best() bool {
	for _, c := range r.Indicator {
		if c == '>' {
			return true
		}
	}
	return false
}

var (
	headerRegex    = regexp.MustCompile(`^.+ (Next Hop) .+ (Path).*$`)
	lineStartRegex = regexp.MustCompile(`^\s*([>isdhRSfxacmb\*]*)([0-9\s].*)?`)
	addrRegex      = regexp.MustCompile(`^(.*\s)?([a-fA-F0-9]{0,4}:[a-fA-F0-9:]+|[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3})(\s+.*)?`)
	prefixRegex    = regexp.MustCompile(`^([>isdhRSfxacmb\s\*]*[i\s]+)?([a-fA-F0-9]{0,4}:[a-fA-F0-9:]+[/0-9]{0,4}|([0-9.]{1,4}){1,4}[/0-9]{0,3})(\s+.*)?`)
)

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// groupSpan returns the [start,end) byte span of capture group n in m (the
// result of FindStringSubmatchIndex), or (-1,-1) if the group did not
// participate in the match.
func groupSpan(m []int, n int) (int, int) {
	if m == nil || 2*n+1 >= len(m) {
		return -1, -1
	}
	return m[2*n], m[2*n+1]
}

// Parse reads a Cisco BGP table dump from r and invokes yield once per row
// in file order. ipv6 selects whether recovered prefixes are normalized as
// IPv4 (classful-mask inference applied) or left as literal IPv6 text.
// yield returning an error aborts the scan and the error propagates.
func Parse(r io.Reader, ipv6 bool, yield func(Row) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var nhbeg, apbeg int
	haveHeader := false

	var indicator, pfx, nexthop string

	for scanner.Scan() {
		line := scanner.Text()
		for len(line) > 0 && (line[len(line)-1] == '\r' || line[len(line)-1] == '\n') {
			line = line[:len(line)-1]
		}

		if !haveHeader {
			m := headerRegex.FindStringSubmatchIndex(line)
			if m != nil {
				nhbeg, _ = groupSpan(m, 1)
				apbeg, _ = groupSpan(m, 2)
				haveHeader = true
			}
			continue
		}

		if m := lineStartRegex.FindStringSubmatchIndex(line); m != nil {
			start, end := groupSpan(m, 1)
			if start >= 0 && end > start {
				indicator = line[start:end]
			}
		}

		if m := prefixRegex.FindStringSubmatchIndex(line); m != nil {
			start, end := groupSpan(m, 2)
			if start >= 0 && start < nhbeg {
				raw := line[start:end]
				if ipv6 {
					pfx = raw
				} else if p, err := ipaddr.ParseV4(raw); err == nil {
					pfx = p.String()
				} else {
					pfx = raw
				}
			}
		}

		if m := addrRegex.FindStringSubmatchIndex(line); m != nil {
			start, end := groupSpan(m, 2)
			if start >= 0 && start >= nhbeg {
				nexthop = line[start:end]
			}
		}

		if len(line) > apbeg && apbeg > 0 && isSpaceByte(line[apbeg-1]) {
			row := Row{Indicator: indicator, Prefix: pfx, NextHop: nexthop, AsPath: line[apbeg:]}
			if err := yield(row); err != nil {
				return err
			}
			indicator = ""
		}

		if len(line) > apbeg && isSpaceByte(line[apbeg]) {
			row := Row{Indicator: indicator, Prefix: pfx, NextHop: nexthop, AsPath: line[apbeg+1:]}
			if err := yield(row); err != nil {
				return err
			}
			indicator = ""
		}
	}
	return scanner.Err()
}

// ParseAll collects Parse's rows into a slice. Prefer Parse directly for
// multi-gigabyte table dumps where holding every row in memory at once is
// undesirable.
func ParseAll(r io.Reader, ipv6 bool) ([]Row, error) {
	var rows []Row
	err := Parse(r, ipv6, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// ParseFile opens filename (transparently decompressing by suffix via
// Open) and parses it as a BGP table dump.
func ParseFile(filename string, ipv6 bool, yield func(Row) error) error {
	f, err := Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return Parse(f, ipv6, yield)
}
