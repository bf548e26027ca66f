package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/check"
)

// TimelineEntry is one state-transition of a flagged prefix: the first
// day a given (as-path, status, candidates) combination was observed.
type TimelineEntry struct {
	Day     string
	Prefix  string
	AsPath  string
	Status  int
	Origins []string
}

// Timeline maps each flagged prefix to its transition history in day
// order.
type Timeline map[string][]TimelineEntry

// Violators collects the prefixes of one day's outcomes that were
// flagged mismatch or not-found, per ripe_filter_violating_routes.
func Violators(outcomes []artifact.RouteOutcome, into map[string]bool) {
	for _, o := range outcomes {
		if o.Status == check.RouteASMismatch || o.Status == check.RouteNotFound {
			into[o.Prefix] = true
		}
	}
}

// ExtendTimeline appends day's observations of the flagged prefixes to
// tl, recording an entry only when the observation differs from the
// prefix's most recent one — the same dedup rule ripe_gen_route_timeline
// applies, so a stable violation produces one line, not one per day.
func ExtendTimeline(tl Timeline, violators map[string]bool, day string, outcomes []artifact.RouteOutcome) {
	for _, o := range outcomes {
		if !violators[o.Prefix] {
			continue
		}
		entry := TimelineEntry{Day: day, Prefix: o.Prefix, AsPath: o.AsPath, Status: o.Status, Origins: o.CandidateOrigins}
		prev := tl[o.Prefix]
		if len(prev) > 0 && sameObservation(prev[len(prev)-1], entry) {
			continue
		}
		tl[o.Prefix] = append(tl[o.Prefix], entry)
	}
}

func sameObservation(a, b TimelineEntry) bool {
	if a.AsPath != b.AsPath || a.Status != b.Status || len(a.Origins) != len(b.Origins) {
		return false
	}
	for i := range a.Origins {
		if a.Origins[i] != b.Origins[i] {
			return false
		}
	}
	return true
}

// WriteTimeline renders route_violations_timeline.txt: per prefix, one
// line per transition day, separated by a rule line. A flagged prefix
// can transition back to a healthy state on a later day; those lines
// carry the legend label alone.
func WriteTimeline(w io.Writer, tl Timeline) error {
	prefixes := make([]string, 0, len(tl))
	for p := range tl {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	for _, pfx := range prefixes {
		for _, e := range tl[pfx] {
			var err error
			switch e.Status {
			case check.RouteASMismatch:
				_, err = fmt.Fprintf(w, "%s %s (%s) %s: ripe-db orig: %v\n", e.Day, e.Prefix, e.AsPath, RouteLegend[e.Status], e.Origins)
			default:
				_, err = fmt.Fprintf(w, "%s %s (%s) %s\n", e.Day, e.Prefix, e.AsPath, RouteLegend[e.Status])
			}
			if err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\n--------------------------------------------------\n\n"); err != nil {
			return err
		}
	}
	return nil
}
