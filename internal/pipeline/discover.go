package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Snapshot filename patterns, matching the capture naming convention:
// bgp-<ipv4|ipv6>-YYYY-M-D-h-m-s.txt.bz2 and
// ripedb-YYYY-M-D-h-m-s.tar.bz2.
var (
	bgp4FileRegex = regexp.MustCompile(`^bgp-ipv4-[0-9-]+\.txt\.bz2$`)
	bgp6FileRegex = regexp.MustCompile(`^bgp-ipv6-[0-9-]+\.txt\.bz2$`)
	ripeFileRegex = regexp.MustCompile(`^ripedb-[0-9-]+\.tar\.bz2$`)
)

// enumerateFiles lists the full paths of dir entries whose base name
// matches pattern.
func enumerateFiles(dir string, pattern *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && pattern.MatchString(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// decodeSnapshotDay pulls the (year, month, dom) fields out of a
// dash-separated snapshot filename, with the date starting at field
// index start.
func decodeSnapshotDay(filename string, prefix string, start int) (Day, error) {
	base := filepath.Base(filename)
	fields := strings.Split(base, "-")
	if len(fields) < start+3 || fields[0] != prefix {
		return Day{}, fmt.Errorf("pipeline: cannot parse filename %s", filename)
	}
	var nums [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(fields[start+i])
		if err != nil {
			return Day{}, fmt.Errorf("pipeline: cannot parse filename %s: %w", filename, err)
		}
		nums[i] = n
	}
	return Day{Year: nums[0], Month: nums[1], Dom: nums[2]}, nil
}

func decodeBGPFilename(filename string) (Day, error) {
	return decodeSnapshotDay(filename, "bgp", 2)
}

func decodeRIPEFilename(filename string) (Day, error) {
	return decodeSnapshotDay(filename, "ripedb", 1)
}

// bgpFiles maps each day to the snapshot file for one host and family.
// When a host captured more than one snapshot per day the
// lexicographically last one wins, making re-runs deterministic.
func (r *Runner) bgpFiles(host string, ipv6 bool) (map[Day]string, error) {
	pattern := bgp4FileRegex
	if ipv6 {
		pattern = bgp6FileRegex
	}
	files, err := enumerateFiles(filepath.Join(r.cfg.Data.DataRoot, host), pattern)
	if err != nil {
		return nil, err
	}
	out := map[Day]string{}
	for _, fn := range files {
		d, err := decodeBGPFilename(fn)
		if err != nil {
			return nil, err
		}
		if prev, ok := out[d]; !ok || fn > prev {
			out[d] = fn
		}
	}
	return out, nil
}

// ripeFiles maps each day to its RIPE database tarball.
func (r *Runner) ripeFiles() (map[Day]string, error) {
	files, err := enumerateFiles(filepath.Join(r.cfg.Data.DataRoot, "ripe"), ripeFileRegex)
	if err != nil {
		return nil, err
	}
	out := map[Day]string{}
	for _, fn := range files {
		d, err := decodeRIPEFilename(fn)
		if err != nil {
			return nil, err
		}
		if prev, ok := out[d]; !ok || fn > prev {
			out[d] = fn
		}
	}
	return out, nil
}

// ListDays returns the sorted days for which every input is present:
// an IPv4 and an IPv6 BGP snapshot from every configured host, and a
// RIPE database tarball.
func (r *Runner) ListDays() ([]Day, error) {
	available, err := r.ripeFiles()
	if err != nil {
		return nil, err
	}
	for _, host := range r.cfg.BGP.Hosts {
		for _, ipv6 := range []bool{false, true} {
			m, err := r.bgpFiles(host, ipv6)
			if err != nil {
				return nil, err
			}
			available = intersectDays(available, m)
		}
	}
	days := make([]Day, 0, len(available))
	for d := range available {
		days = append(days, d)
	}
	return SortDays(days), nil
}

// resultDir returns (and creates) the day-scoped output directory.
func (r *Runner) resultDir(day Day) (string, error) {
	dir := filepath.Join(r.cfg.Data.ResultRoot, day.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: creating %s: %w", dir, err)
	}
	return dir, nil
}

func (r *Runner) ianaFile(ipv6 bool) string {
	if ipv6 {
		return filepath.Join(r.cfg.Data.DataRoot, "ipv6-unicast-address-assignments.csv")
	}
	return filepath.Join(r.cfg.Data.DataRoot, "ipv4-address-space.csv")
}

func afiLabel(ipv6 bool) string {
	if ipv6 {
		return "ipv6"
	}
	return "ipv4"
}
