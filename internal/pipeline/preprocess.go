package pipeline

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/irraudit/bgpcrunch/internal/artifact"
	"github.com/irraudit/bgpcrunch/internal/bgptable"
	"github.com/irraudit/bgpcrunch/internal/metrics"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// ErrArchiveIncomplete marks a RIPE tarball that expanded without one
// of the expected database files. The day aborts; other days proceed.
var ErrArchiveIncomplete = errors.New("pipeline: ripe archive incomplete")

// ripeArtifacts are the per-day artifacts the RIPE half of preprocess
// must produce before the day counts as prepared.
var ripeArtifacts = []string{
	artifact.FileRoute,
	artifact.FileRoute6,
	artifact.FileAutNum,
	artifact.FileAsSet,
	artifact.FileFilterSet,
	artifact.FileRouteSet,
	artifact.FilePeeringSet,
}

// Preprocess expands each day's RIPE tarball, parses the RPSL flat
// files and the BGP table dumps, and persists the per-day artifacts.
// Days whose artifacts already exist are skipped, so an interrupted
// run resumes where it stopped.
func (r *Runner) Preprocess(ctx context.Context, days []Day) error {
	ripe, err := r.ripeFiles()
	if err != nil {
		return err
	}
	type hostFiles struct {
		host string
		ipv6 bool
		m    map[Day]string
	}
	var sources []hostFiles
	for _, host := range r.cfg.BGP.Hosts {
		for _, ipv6 := range []bool{false, true} {
			m, err := r.bgpFiles(host, ipv6)
			if err != nil {
				return err
			}
			sources = append(sources, hostFiles{host: host, ipv6: ipv6, m: m})
		}
	}

	return r.runWorkers(ctx, "preprocess", days, func(day Day) error {
		dir, err := r.resultDir(day)
		if err != nil {
			return err
		}
		if err := r.preprocessRIPE(day, dir, ripe[day]); err != nil {
			return err
		}
		for _, src := range sources {
			if err := r.preprocessBGP(dir, src.host, src.ipv6, src.m[day]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) preprocessRIPE(day Day, dir, tarball string) error {
	if artifact.Exists(dir, ripeArtifacts...) {
		r.logger.Debug("ripe artifacts present, skipping", zap.Stringer("day", day))
		return nil
	}
	if tarball == "" {
		return fmt.Errorf("pipeline: no ripe tarball for day %s", day)
	}

	tmpdir, err := os.MkdirTemp("", "bgpcrunch")
	if err != nil {
		return fmt.Errorf("pipeline: creating tempdir: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	r.logger.Info("unpacking ripe archive",
		zap.Stringer("day", day),
		zap.String("file", tarball))
	if err := extractTarBz2(tarball, tmpdir); err != nil {
		return err
	}

	dbFile := func(name string) (string, error) {
		p := filepath.Join(tmpdir, name)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: missing %s in %s", ErrArchiveIncomplete, name, tarball)
		}
		return p, nil
	}

	routes, err := buildDir(r, "route", dbFile, rpsl.BuildRouteDirectory)
	if err != nil {
		return err
	}
	routes6, err := buildDir(r, "route6", dbFile, rpsl.BuildRoute6Directory)
	if err != nil {
		return err
	}
	autnums, err := buildDir(r, "aut-num", dbFile, rpsl.BuildAutNumDirectory)
	if err != nil {
		return err
	}
	asSets, err := buildDir(r, "as-set", dbFile, rpsl.BuildAsSetDirectory)
	if err != nil {
		return err
	}
	filterSets, err := buildDir(r, "filter-set", dbFile, rpsl.BuildFilterSetDirectory)
	if err != nil {
		return err
	}
	routeSets, err := buildDir(r, "route-set", dbFile, rpsl.BuildRouteSetDirectory)
	if err != nil {
		return err
	}
	peeringSets, err := buildDir(r, "peering-set", dbFile, rpsl.BuildPeeringSetDirectory)
	if err != nil {
		return err
	}

	rpsl.EnrichMemberOf(asSets, routes, routes6, autnums)

	saves := []struct {
		name string
		v    any
	}{
		{artifact.FileRoute, artifact.RouteRecords(routes.All())},
		{artifact.FileRoute6, artifact.Route6Records(routes6.All())},
		{artifact.FileAutNum, autnums.All()},
		{artifact.FileAsSet, asSets.All()},
		{artifact.FileFilterSet, filterSets.All()},
		{artifact.FileRouteSet, routeSets.All()},
		{artifact.FilePeeringSet, peeringSets.All()},
	}
	for _, s := range saves {
		if err := artifact.Save(filepath.Join(dir, s.name), s.v); err != nil {
			return err
		}
	}
	return nil
}

// buildDir resolves the db file for one object class, parses it, and
// accounts for parsed and dropped objects. Individual object parse
// failures drop the object and leave the directory consistent.
func buildDir[D interface{ Len() int }](r *Runner, class string, dbFile func(string) (string, error), build func(string) (D, []error)) (D, error) {
	var zero D
	path, err := dbFile("ripe.db." + class)
	if err != nil {
		return zero, err
	}
	dir, errs := build(path)
	metrics.ObjectsParsedTotal.WithLabelValues(class).Add(float64(dir.Len()))
	metrics.ObjectsDroppedTotal.WithLabelValues(class).Add(float64(len(errs)))
	for _, e := range errs {
		r.logger.Debug("dropped rpsl object", zap.String("class", class), zap.Error(e))
	}
	if len(errs) > 0 {
		r.logger.Warn("rpsl objects dropped",
			zap.String("class", class),
			zap.Int("dropped", len(errs)),
			zap.Int("kept", dir.Len()))
	}
	return dir, nil
}

func (r *Runner) preprocessBGP(dir, host string, ipv6 bool, source string) error {
	out := filepath.Join(dir, artifact.BGPFile(host, ipv6))
	if artifact.Exists(dir, artifact.BGPFile(host, ipv6)) {
		return nil
	}
	if source == "" {
		return fmt.Errorf("pipeline: no %s bgp snapshot from %s", afiLabel(ipv6), host)
	}

	r.logger.Info("parsing bgp snapshot",
		zap.String("host", host),
		zap.String("afi", afiLabel(ipv6)),
		zap.String("file", source))
	var rows []bgptable.Row
	if err := bgptable.ParseFile(source, ipv6, func(row bgptable.Row) error {
		rows = append(rows, row)
		return nil
	}); err != nil {
		return fmt.Errorf("pipeline: parsing %s: %w", source, err)
	}
	metrics.BGPRowsParsedTotal.WithLabelValues(afiLabel(ipv6)).Add(float64(len(rows)))

	return artifact.Save(out, rows)
}

// extractTarBz2 streams a .tar.bz2 archive into dst, flattening every
// regular entry to its base name — the RIPE archives are flat and the
// downstream lookups are by bare db-file name.
func extractTarBz2(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("pipeline: opening %s: %w", src, err)
	}
	defer f.Close()

	tr := tar.NewReader(bzip2.NewReader(f))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline: reading %s: %w", src, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(filepath.Clean(hdr.Name))
		if name == "." || name == ".." || name == "/" {
			continue
		}
		out, err := os.Create(filepath.Join(dst, name))
		if err != nil {
			return fmt.Errorf("pipeline: extracting %s: %w", name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("pipeline: extracting %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("pipeline: extracting %s: %w", name, err)
		}
	}
}
