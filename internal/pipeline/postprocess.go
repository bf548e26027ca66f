package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/bgptable"
	"github.com/irraudit/bgpcrunch/internal/iana"
	"github.com/irraudit/bgpcrunch/internal/plot"
	"github.com/irraudit/bgpcrunch/internal/report"
)

// TimelineFile names the cross-day flagged-prefix report at the result
// root.
func TimelineFile(ipv6 bool) string {
	if ipv6 {
		return "route6_violations_timeline.txt"
	}
	return "route_violations_timeline.txt"
}

// rirOrder fixes the column order of the per-RIR series and text
// stats. LEGACY is the collapsed bucket for legacy space administered
// outside the five registries.
var rirOrder = []string{"AFRINIC", "APNIC", "ARIN", "LACNIC", "RIPE NCC", "LEGACY"}

// Postprocess aggregates the per-day outcomes into the cross-day
// reports and plot series, and feeds the optional rollup sink. It is
// deliberately single-threaded and consumes days in sorted order, so
// every emitted time series is monotonic in X.
func (r *Runner) Postprocess(ctx context.Context, days []Day) error {
	days = SortDays(append([]Day{}, days...))

	for _, ipv6 := range []bool{false, true} {
		ianaDir, errs := iana.BuildFile(r.ianaFile(ipv6), ipv6)
		if ianaDir == nil {
			return fmt.Errorf("pipeline: iana %s directory: %w", afiLabel(ipv6), errs[0])
		}
		if err := r.postprocessFamily(ctx, days, ipv6, ianaDir); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) postprocessFamily(ctx context.Context, days []Day, ipv6 bool, ianaDir *iana.Directory) error {
	sfx := "4"
	if ipv6 {
		sfx = "6"
	}

	if err := r.aggregateRoutes(ctx, days, ipv6, sfx); err != nil {
		return err
	}
	if err := r.aggregatePaths(ctx, days, ipv6, sfx); err != nil {
		return err
	}
	for _, host := range r.cfg.BGP.Hosts {
		if err := r.aggregateTables(ctx, days, host, ipv6, sfx, ianaDir); err != nil {
			return err
		}
	}
	return nil
}

// aggregateRoutes emits the per-code route-check totals series, builds
// the flagged-prefix timeline, and pushes both into the rollup sink.
func (r *Runner) aggregateRoutes(ctx context.Context, days []Day, ipv6 bool, sfx string) error {
	var totals []plot.MultiPoint
	violators := map[string]bool{}
	var loaded []Day

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcomes, err := r.loadRouteOutcomes(day, ipv6)
		if err != nil {
			r.logger.Warn("missing route outcomes, day skipped in aggregation",
				zap.Stringer("day", day), zap.Error(err))
			continue
		}
		loaded = append(loaded, day)

		counts := report.CountRoutes(outcomes)
		ys := make([]float64, len(counts))
		for i, n := range counts {
			ys[i] = float64(n)
		}
		totals = append(totals, plot.MultiPoint{X: day.String(), Ys: ys})
		report.Violators(outcomes, violators)

		if r.sink != nil {
			if err := r.sink.UpsertRouteDaily(ctx, day.String(), afiLabel(ipv6), counts); err != nil {
				return err
			}
		}
	}

	if len(totals) > 0 {
		if err := r.plotter.EmitMultiLine("bgp2routes"+sfx, totals, plot.Meta{
			Legend: report.RouteLegend,
			YLabel: "Route count",
		}); err != nil {
			return err
		}
	}

	// Second pass over the same days for the timeline: reloading keeps
	// peak memory at one day's outcomes instead of the whole range.
	tl := report.Timeline{}
	for _, day := range loaded {
		outcomes, err := r.loadRouteOutcomes(day, ipv6)
		if err != nil {
			return err
		}
		report.ExtendTimeline(tl, violators, day.String(), outcomes)
	}
	if err := writeFileAtomic(filepath.Join(r.cfg.Data.ResultRoot, TimelineFile(ipv6)), func(f *os.File) error {
		return report.WriteTimeline(f, tl)
	}); err != nil {
		return err
	}
	if r.sink != nil && len(tl) > 0 {
		if err := r.sink.UpsertTimeline(ctx, afiLabel(ipv6), tl); err != nil {
			return err
		}
	}
	return nil
}

// aggregatePaths emits the hop-index error distribution over time and
// feeds the per-day hop-code histograms to the sink.
func (r *Runner) aggregatePaths(ctx context.Context, days []Day, ipv6 bool, sfx string) error {
	var hopErrors []plot.Point3

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := filepath.Join(r.cfg.Data.ResultRoot, day.String())
		var outcomes []artifact.PathOutcome
		if err := artifact.Load(filepath.Join(dir, artifact.PathsOutcomeFile(ipv6)), &outcomes); err != nil {
			r.logger.Warn("missing path outcomes, day skipped in aggregation",
				zap.Stringer("day", day), zap.Error(err))
			continue
		}
		stats := report.CountPaths(outcomes)
		for _, idx := range sortedKeys(stats.IndexErrors) {
			hopErrors = append(hopErrors, plot.Point3{X: day.String(), Y: float64(idx), Z: float64(stats.IndexErrors[idx])})
		}
		if r.sink != nil {
			if err := r.sink.UpsertPathDaily(ctx, day.String(), afiLabel(ipv6), stats); err != nil {
				return err
			}
		}
	}

	if len(hopErrors) > 0 {
		if err := r.plotter.Emit3D("hoperrdist"+sfx, hopErrors, plot.Meta{
			YLabel: "Hop index",
			ZLabel: "Errors",
		}); err != nil {
			return err
		}
	}
	return nil
}

// aggregateTables recomputes the table-shape statistics from one
// host's persisted BGP rows: path-length buckets per prefix length,
// prefix counts, and per-RIR attribution.
func (r *Runner) aggregateTables(ctx context.Context, days []Day, host string, ipv6 bool, sfx string, ianaDir *iana.Directory) error {
	var avgSeries, sumSeries, avgLenSeries []plot.Point
	var lenOverTime []plot.Point3
	var rirRows []plot.MultiPoint

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := filepath.Join(r.cfg.Data.ResultRoot, day.String())
		var rows []bgptable.Row
		if err := artifact.Load(filepath.Join(dir, artifact.BGPFile(host, ipv6)), &rows); err != nil {
			r.logger.Warn("missing bgp artifact, day skipped in aggregation",
				zap.Stringer("day", day), zap.String("host", host), zap.Error(err))
			continue
		}

		b := bucketsFromRows(rows, ipv6)
		if err := writeFileAtomic(filepath.Join(dir, fmt.Sprintf("%s-pathlen%s.txt", host, sfx)), func(f *os.File) error {
			for _, line := range formatBuckets(b) {
				if _, err := fmt.Fprintln(f, line); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		// Per-day aggregates for the time series.
		dayAvg, nonZero := 0.0, 0
		totalPfx, weightedLen := 0, 0
		for length, bucket := range b {
			a := avgPathLen(bucket)
			if a > 0 {
				lenOverTime = append(lenOverTime, plot.Point3{X: day.String(), Y: float64(length), Z: a})
				dayAvg += a
				nonZero++
			}
			totalPfx += len(bucket)
			weightedLen += len(bucket) * length
		}
		if nonZero > 0 {
			avgSeries = append(avgSeries, plot.Point{X: day.String(), Y: dayAvg / float64(nonZero)})
		}
		if totalPfx > 0 {
			sumSeries = append(sumSeries, plot.Point{X: day.String(), Y: float64(totalPfx)})
			avgLenSeries = append(avgLenSeries, plot.Point{X: day.String(), Y: float64(weightedLen) / float64(totalPfx)})
		}

		rirCounts, rirAvgLen := r.countByRIR(rows, ipv6, ianaDir)
		if err := writeFileAtomic(filepath.Join(dir, fmt.Sprintf("rirstats%s-%s.txt", sfx, host)), func(f *os.File) error {
			for _, rir := range rirOrder {
				if _, err := fmt.Fprintf(f, "%s: %d (avg pfxlen: %.2f)\n", rir, rirCounts[rir], rirAvgLen[rir]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
		ys := make([]float64, len(rirOrder))
		for i, rir := range rirOrder {
			ys[i] = float64(rirCounts[rir])
		}
		rirRows = append(rirRows, plot.MultiPoint{X: day.String(), Ys: ys})
	}

	if len(avgSeries) > 0 {
		if err := r.plotter.EmitLine(fmt.Sprintf("pathlen%s-%s-avg", sfx, host), avgSeries,
			plot.Meta{YLabel: "Total avg path len", Title: "# of hops"}); err != nil {
			return err
		}
	}
	if len(lenOverTime) > 0 {
		if err := r.plotter.Emit3D(fmt.Sprintf("pathlen%s-%s-3d", sfx, host), lenOverTime,
			plot.Meta{YLabel: "Prefix length", ZLabel: "Avg path length", Title: "# of hops"}); err != nil {
			return err
		}
	}
	if len(sumSeries) > 0 {
		if err := r.plotter.EmitLine(fmt.Sprintf("pfxcount%s-%s-sum", sfx, host), sumSeries,
			plot.Meta{YLabel: "Prefix count", Title: "# of pfxes"}); err != nil {
			return err
		}
	}
	if len(avgLenSeries) > 0 {
		if err := r.plotter.EmitLine(fmt.Sprintf("pfxcount%s-%s-avgpfxlen", sfx, host), avgLenSeries,
			plot.Meta{YLabel: "Avg pfx length", Title: "BGP average"}); err != nil {
			return err
		}
	}
	if len(rirRows) > 0 {
		if err := r.plotter.EmitMultiLine(fmt.Sprintf("rirpfxcount%s-%s", sfx, host), rirRows,
			plot.Meta{YLabel: "Pfx count", Legend: rirOrder}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) loadRouteOutcomes(day Day, ipv6 bool) ([]artifact.RouteOutcome, error) {
	dir := filepath.Join(r.cfg.Data.ResultRoot, day.String())
	var outcomes []artifact.RouteOutcome
	if err := artifact.Load(filepath.Join(dir, artifact.RoutesOutcomeFile(ipv6)), &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// countByRIR attributes each best-path prefix to its top-level IANA
// allocation and tallies counts and average prefix length per RIR.
func (r *Runner) countByRIR(rows []bgptable.Row, ipv6 bool, ianaDir *iana.Directory) (map[string]int, map[string]float64) {
	counts := map[string]int{}
	lenSums := map[string]int{}
	for _, row := range rows {
		if !row.Best() {
			continue
		}
		prefix, err := parsePrefix(row.Prefix, ipv6)
		if err != nil {
			continue
		}
		entry, ok := ianaDir.Resolve(prefix)
		if !ok {
			r.logger.Debug("no iana assignment", zap.String("prefix", row.Prefix))
			continue
		}
		counts[entry.RIR]++
		lenSums[entry.RIR] += prefix.Bits()
	}
	avg := map[string]float64{}
	for rir, n := range counts {
		avg[rir] = float64(lenSums[rir]) / float64(n)
	}
	return counts, avg
}

// Path-length buckets, one slice of observed AS-path lengths per
// prefix length.
type pathLenBuckets [][]int

func newBuckets(ipv6 bool) pathLenBuckets {
	size := 33
	if ipv6 {
		size = 129
	}
	return make(pathLenBuckets, size)
}

// bucketsFromRows sorts each best-flagged row's AS-path length into
// the bucket of its prefix length.
func bucketsFromRows(rows []bgptable.Row, ipv6 bool) pathLenBuckets {
	b := newBuckets(ipv6)
	for _, row := range rows {
		if !row.Best() {
			continue
		}
		prefix, err := parsePrefix(row.Prefix, ipv6)
		if err != nil {
			continue
		}
		// Token count minus the origin marker.
		pathLen := len(strings.Fields(row.AsPath)) - 1
		if pathLen < 0 {
			continue
		}
		b[prefix.Bits()] = append(b[prefix.Bits()], pathLen)
	}
	return b
}

func avgPathLen(bucket []int) float64 {
	if len(bucket) == 0 {
		return 0
	}
	sum := 0
	for _, n := range bucket {
		sum += n
	}
	return float64(sum) / float64(len(bucket))
}

// formatBuckets renders the per-day path-length text block.
func formatBuckets(b pathLenBuckets) []string {
	lines := []string{"Avg path length by prefixlength:"}
	total := 0
	for i, bucket := range b {
		total += len(bucket)
		if len(bucket) == 0 {
			lines = append(lines, fmt.Sprintf("/%d : N/A (0 prefixes)", i))
		} else {
			lines = append(lines, fmt.Sprintf("/%d : %.2f (%d prefixes)", i, avgPathLen(bucket), len(bucket)))
		}
	}
	lines = append(lines, "Total prefixes examined: "+strconv.Itoa(total))
	return lines
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
