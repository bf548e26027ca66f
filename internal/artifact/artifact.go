// Package artifact persists the per-day intermediate structures the
// pipeline produces during preprocess so that process and postprocess
// can restart without re-parsing the source archives. Each artifact is
// an independent gob stream wrapped in a zstd frame and renamed into
// place atomically relative to its day directory.
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Per-day artifact file names under <result_root>/<YYYY-MM-DD>/.
const (
	FileRoute      = "ripe.route.gob.zst"
	FileRoute6     = "ripe.route6.gob.zst"
	FileAutNum     = "ripe.autnum.gob.zst"
	FileAsSet      = "ripe.asset.gob.zst"
	FileFilterSet  = "ripe.filterset.gob.zst"
	FileRouteSet   = "ripe.routeset.gob.zst"
	FilePeeringSet = "ripe.peeringset.gob.zst"
)

// BGPFile names the parsed BGP table artifact for one host and family.
func BGPFile(host string, ipv6 bool) string {
	if ipv6 {
		return "bgp6-" + host + ".gob.zst"
	}
	return "bgp4-" + host + ".gob.zst"
}

// RoutesOutcomeFile names the persisted route-check results for a family.
func RoutesOutcomeFile(ipv6 bool) string {
	if ipv6 {
		return "bgp2routes6.gob.zst"
	}
	return "bgp2routes.gob.zst"
}

// PathsOutcomeFile names the persisted path-check results for a family.
func PathsOutcomeFile(ipv6 bool) string {
	if ipv6 {
		return "bgp2paths6.gob.zst"
	}
	return "bgp2paths.gob.zst"
}

// Save gob-encodes v through a zstd writer into a temporary file and
// renames it over path, so readers never observe a half-written
// artifact.
func Save(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("artifact: creating temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: zstd writer for %s: %w", path, err)
	}
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		tmp.Close()
		return fmt.Errorf("artifact: encoding %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: renaming %s: %w", path, err)
	}
	return nil
}

// Load decodes the artifact at path into v, which must be a pointer.
func Load(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("artifact: opening %s: %w", path, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("artifact: zstd reader for %s: %w", path, err)
	}
	defer zr.Close()

	if err := gob.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("artifact: decoding %s: %w", path, err)
	}
	return nil
}

// Exists reports whether every named artifact is present in dir.
func Exists(dir string, names ...string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(dir, n)); err != nil {
			return false
		}
	}
	return true
}
