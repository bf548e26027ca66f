// Package report renders the per-day and cross-day text outputs:
// bgp2routes / bgp2paths totals, and the flagged-prefix timeline. All
// reports are plain text lines so they diff cleanly across days.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/check"
)

// RouteLegend maps route-check status codes to their report labels.
var RouteLegend = []string{
	"OK",
	"no-search aggregate",
	"origin missing",
	"AS not match",
	"route obj not found",
	"non-ripe",
}

// RouteCounts is the per-day histogram over the six route-check codes.
type RouteCounts [6]int

// Count tallies one outcome. Codes outside the taxonomy are impossible
// by construction of CheckRoute; an out-of-range status panics here.
func (c *RouteCounts) Count(status int) {
	c[status]++
}

// Total is the number of routes examined.
func (c RouteCounts) Total() int {
	t := 0
	for _, n := range c {
		t += n
	}
	return t
}

// CountRoutes builds the histogram for one day's outcomes.
func CountRoutes(outcomes []artifact.RouteOutcome) RouteCounts {
	var c RouteCounts
	for _, o := range outcomes {
		c.Count(o.Status)
	}
	return c
}

// WriteRoutes renders the bgp2routes.txt body.
func WriteRoutes(w io.Writer, c RouteCounts) error {
	if _, err := fmt.Fprintf(w, "%s: %d\n", "total", c.Total()); err != nil {
		return err
	}
	for i, label := range RouteLegend {
		if _, err := fmt.Fprintf(w, "%s: %d\n", label, c[i]); err != nil {
			return err
		}
	}
	return nil
}

// IsHopError reports whether a hop code is a confirmed or suspected
// policy problem, as opposed to OK (0) or uncheckable (1, 2). The
// pre-check sentinel (-1) counts as an error: the path could not even
// be walked.
func IsHopError(code int) bool {
	return code < 0 || code >= 300
}

// PathStats aggregates one day's path outcomes for the report footer
// and for the rollup sink.
type PathStats struct {
	Total       int
	Valid       int
	InRegion    int
	CodeCounts  map[int]int
	IndexErrors map[int]int
}

// CountPaths walks the outcomes once, collecting hop-code totals and
// the distribution of errors over hop index (0 = neighbour of the
// observer).
func CountPaths(outcomes []artifact.PathOutcome) PathStats {
	s := PathStats{CodeCounts: map[int]int{}, IndexErrors: map[int]int{}}
	for _, o := range outcomes {
		s.Total++
		if o.InRegion {
			s.InRegion++
		}
		valid := true
		for i, h := range o.Hops {
			s.CodeCounts[h.Code]++
			if h.Code != check.HopOK {
				valid = false
			}
			if IsHopError(h.Code) {
				s.IndexErrors[i]++
			}
		}
		if valid {
			s.Valid++
		}
	}
	return s
}

// WritePaths renders the bgp2paths.txt body: one block per path with
// the per-hop verdicts, then the aggregate footer.
func WritePaths(w io.Writer, outcomes []artifact.PathOutcome) error {
	for _, o := range outcomes {
		if _, err := fmt.Fprintf(w, "%s (%s)\n", o.Prefix, o.AsPath); err != nil {
			return err
		}
		for _, h := range o.Hops {
			if _, err := fmt.Fprintf(w, "  AS%d: %d\n", h.ASN, h.Code); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	s := CountPaths(outcomes)
	if _, err := fmt.Fprintf(w, "paths total: %d\npaths valid: %d\npaths fully in region: %d\n", s.Total, s.Valid, s.InRegion); err != nil {
		return err
	}
	for _, code := range sortedKeys(s.CodeCounts) {
		if _, err := fmt.Fprintf(w, "hop code %d: %d\n", code, s.CodeCounts[code]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "errors by hop index:"); err != nil {
		return err
	}
	for _, idx := range sortedKeys(s.IndexErrors) {
		if _, err := fmt.Fprintf(w, "  %d: %d\n", idx, s.IndexErrors[idx]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
