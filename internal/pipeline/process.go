package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/bgptable"
	"github.com/irraudit/bgpcrunch/internal/check"
	"github.com/irraudit/bgpcrunch/internal/iana"
	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/metrics"
	"github.com/irraudit/bgpcrunch/internal/policy"
	"github.com/irraudit/bgpcrunch/internal/report"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// RoutesReportFile names the per-day route-check text report.
func RoutesReportFile(ipv6 bool) string {
	if ipv6 {
		return "bgp2routes6.txt"
	}
	return "bgp2routes.txt"
}

// PathsReportFile names the per-day path-check text report.
func PathsReportFile(ipv6 bool) string {
	if ipv6 {
		return "bgp2paths6.txt"
	}
	return "bgp2paths.txt"
}

// Process runs the route-object and path-policy checks over each day's
// persisted artifacts and writes the per-day outcome artifacts and
// text reports. Requires preprocess to have completed for the day.
func (r *Runner) Process(ctx context.Context, days []Day) error {
	iana4, errs := iana.BuildFile(r.ianaFile(false), false)
	if iana4 == nil {
		return fmt.Errorf("pipeline: iana ipv4 directory: %w", errs[0])
	}
	r.logIANAErrors(false, errs)
	iana6, errs := iana.BuildFile(r.ianaFile(true), true)
	if iana6 == nil {
		return fmt.Errorf("pipeline: iana ipv6 directory: %w", errs[0])
	}
	r.logIANAErrors(true, errs)

	return r.runWorkers(ctx, "process", days, func(day Day) error {
		return r.processDay(day, iana4, iana6)
	})
}

func (r *Runner) logIANAErrors(ipv6 bool, errs []error) {
	for _, e := range errs {
		r.logger.Warn("iana row dropped", zap.String("afi", afiLabel(ipv6)), zap.Error(e))
	}
}

// dayDirectories is one day's object-directory bundle, rebuilt from the
// persisted artifacts.
type dayDirectories struct {
	routes  *rpsl.RouteDirectory[*rpsl.RouteObject]
	routes6 *rpsl.RouteDirectory[*rpsl.Route6Object]
	policy  *policy.Dirs
}

func loadDayDirectories(dir string) (*dayDirectories, error) {
	var routeRecs, route6Recs []artifact.RouteRecord
	if err := artifact.Load(filepath.Join(dir, artifact.FileRoute), &routeRecs); err != nil {
		return nil, err
	}
	if err := artifact.Load(filepath.Join(dir, artifact.FileRoute6), &route6Recs); err != nil {
		return nil, err
	}
	routeObjs, err := artifact.RouteObjects(routeRecs)
	if err != nil {
		return nil, err
	}
	route6Objs, err := artifact.Route6Objects(route6Recs)
	if err != nil {
		return nil, err
	}

	var autnums []*rpsl.AutNumObject
	var asSets []*rpsl.AsSetObject
	var filterSets []*rpsl.FilterSetObject
	var routeSets []*rpsl.RouteSetObject
	var peeringSets []*rpsl.PeeringSetObject
	for _, l := range []struct {
		name string
		v    any
	}{
		{artifact.FileAutNum, &autnums},
		{artifact.FileAsSet, &asSets},
		{artifact.FileFilterSet, &filterSets},
		{artifact.FileRouteSet, &routeSets},
		{artifact.FilePeeringSet, &peeringSets},
	} {
		if err := artifact.Load(filepath.Join(dir, l.name), l.v); err != nil {
			return nil, err
		}
	}

	return &dayDirectories{
		routes:  rpsl.NewRouteDirectory(routeObjs, false),
		routes6: rpsl.NewRouteDirectory(route6Objs, true),
		policy: &policy.Dirs{
			AsSets:      rpsl.NewHashDirectory(asSets),
			FilterSets:  rpsl.NewHashDirectory(filterSets),
			RouteSets:   rpsl.NewHashDirectory(routeSets),
			PeeringSets: rpsl.NewHashDirectory(peeringSets),
			AutNums:     rpsl.NewHashDirectory(autnums),
		},
	}, nil
}

func (r *Runner) processDay(day Day, iana4, iana6 *iana.Directory) error {
	dir, err := r.resultDir(day)
	if err != nil {
		return err
	}

	todo := false
	for _, ipv6 := range []bool{false, true} {
		if !artifact.Exists(dir, artifact.RoutesOutcomeFile(ipv6), artifact.PathsOutcomeFile(ipv6)) ||
			!fileExists(filepath.Join(dir, RoutesReportFile(ipv6))) ||
			!fileExists(filepath.Join(dir, PathsReportFile(ipv6))) {
			todo = true
		}
	}
	if !todo {
		r.logger.Debug("day outputs present, skipping", zap.Stringer("day", day))
		return nil
	}

	dirs, err := loadDayDirectories(dir)
	if err != nil {
		return err
	}

	var observer *uint32
	if r.cfg.BGP.ObserverASN != 0 {
		asn := r.cfg.BGP.ObserverASN
		observer = &asn
	}

	for _, ipv6 := range []bool{false, true} {
		var routeOutcomes []artifact.RouteOutcome
		var pathOutcomes []artifact.PathOutcome

		for _, host := range r.cfg.BGP.Hosts {
			var rows []bgptable.Row
			if err := artifact.Load(filepath.Join(dir, artifact.BGPFile(host, ipv6)), &rows); err != nil {
				return err
			}
			var ro []artifact.RouteOutcome
			var po []artifact.PathOutcome
			if ipv6 {
				ro, po = checkRows(r, rows, true, iana6, dirs.routes6, check.Route6Origin, dirs.policy, observer)
			} else {
				ro, po = checkRows(r, rows, false, iana4, dirs.routes, check.RouteOrigin, dirs.policy, observer)
			}
			routeOutcomes = append(routeOutcomes, ro...)
			pathOutcomes = append(pathOutcomes, po...)
		}

		if err := artifact.Save(filepath.Join(dir, artifact.RoutesOutcomeFile(ipv6)), routeOutcomes); err != nil {
			return err
		}
		if err := artifact.Save(filepath.Join(dir, artifact.PathsOutcomeFile(ipv6)), pathOutcomes); err != nil {
			return err
		}

		counts := report.CountRoutes(routeOutcomes)
		if err := writeFileAtomic(filepath.Join(dir, RoutesReportFile(ipv6)), func(f *os.File) error {
			return report.WriteRoutes(f, counts)
		}); err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(dir, PathsReportFile(ipv6)), func(f *os.File) error {
			return report.WritePaths(f, pathOutcomes)
		}); err != nil {
			return err
		}

		r.logger.Info("day checked",
			zap.Stringer("day", day),
			zap.String("afi", afiLabel(ipv6)),
			zap.Int("routes", counts.Total()),
			zap.Int("paths", len(pathOutcomes)))
	}
	return nil
}

// checkRows runs both checks over one host's table rows for one family.
// Only best-flagged rows are considered; rows whose prefix does not
// parse are dropped with a debug log, per the propagation policy.
func checkRows[T rpsl.RouteLike](
	r *Runner,
	rows []bgptable.Row,
	ipv6 bool,
	ianaDir *iana.Directory,
	routes *rpsl.RouteDirectory[T],
	originOf func(T) string,
	dirs *policy.Dirs,
	observer *uint32,
) ([]artifact.RouteOutcome, []artifact.PathOutcome) {
	afi := afiLabel(ipv6)
	var routeOutcomes []artifact.RouteOutcome
	var pathOutcomes []artifact.PathOutcome

	for _, row := range rows {
		if !row.Best() {
			continue
		}
		prefix, err := parsePrefix(row.Prefix, ipv6)
		if err != nil {
			metrics.BGPRowsDroppedTotal.WithLabelValues(afi).Inc()
			r.logger.Debug("dropped bgp row", zap.String("prefix", row.Prefix), zap.Error(err))
			continue
		}
		asPath := ipaddr.ParseAsPath(row.AsPath)

		res := check.CheckRoute(prefix, asPath, ianaDir, routes, originOf)
		metrics.RouteCheckCodeTotal.WithLabelValues(afi, strconv.Itoa(res.Status)).Inc()
		routeOutcomes = append(routeOutcomes, artifact.NewRouteOutcome(res, row.AsPath, originOf))

		// Only a route whose origin is attested (or that lives outside
		// the region entirely) has a path worth walking; anything else
		// is recorded as uncheckable so the totals still add up.
		var po artifact.PathOutcome
		if res.Status == check.RouteOK || res.Status == check.RouteNonRIPE {
			po = artifact.NewPathOutcome(prefix, row.AsPath, check.CheckPath(prefix, asPath, dirs, ipv6, observer))
		} else {
			po = artifact.UncheckablePath(prefix, row.AsPath, asPath)
		}
		for _, h := range po.Hops {
			metrics.PathCheckHopCodeTotal.WithLabelValues(afi, strconv.Itoa(h.Code)).Inc()
		}
		pathOutcomes = append(pathOutcomes, po)
	}
	return routeOutcomes, pathOutcomes
}

func parsePrefix(text string, ipv6 bool) (ipaddr.Prefix, error) {
	if ipv6 {
		return ipaddr.ParseV6(text)
	}
	return ipaddr.ParseV4(text)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
