// Package plot is the narrow emitter surface the reporting layer pushes
// graph series through. The core computes (x,y) / (x,y,z) streams and
// hands them over; it never inspects plot state or renders anything.
//
// The one shipped implementation (JSONL) writes each emitted series to
// a .plot.jsonl sidecar file a rendering backend can consume offline.
package plot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Point is one sample of a single-line series. X is a date in
// %Y-%m-%d form for time series, or a plain numeric label otherwise.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// MultiPoint is one sample row of a multi-line series: a shared X and
// one Y per line, ordered as the legend.
type MultiPoint struct {
	X  string    `json:"x"`
	Ys []float64 `json:"ys"`
}

// Point3 is one sample of a 3-D series.
type Point3 struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Meta carries the axis/legend metadata a renderer needs alongside the
// raw series.
type Meta struct {
	Title  string   `json:"title,omitempty"`
	XLabel string   `json:"xlabel,omitempty"`
	YLabel string   `json:"ylabel,omitempty"`
	ZLabel string   `json:"zlabel,omitempty"`
	Legend []string `json:"legend,omitempty"`
}

// Plotter is implemented by plot backends. Emitting an empty series is
// an error on every method: a renderer handed zero points can only
// produce a broken graph, so the mistake surfaces here instead.
type Plotter interface {
	EmitLine(name string, points []Point, meta Meta) error
	EmitMultiLine(name string, rows []MultiPoint, meta Meta) error
	Emit3D(name string, points []Point3, meta Meta) error
}

// TimeFmt is the date format renderers should parse X values with when
// XLabel is "Date".
const TimeFmt = "%Y-%m-%d"

// JSONL writes each series as <dir>/<name>.plot.jsonl: a single header
// line with kind and metadata, then one line per point.
type JSONL struct {
	Dir string
}

// NewJSONL returns a JSONL plotter rooted at dir.
func NewJSONL(dir string) *JSONL {
	return &JSONL{Dir: dir}
}

type header struct {
	Kind    string `json:"kind"`
	TimeFmt string `json:"timefmt,omitempty"`
	Meta
}

func (j *JSONL) emit(name, kind string, meta Meta, points func(enc *json.Encoder) error) error {
	if meta.XLabel == "" {
		meta.XLabel = "Date"
	}
	f, err := os.Create(filepath.Join(j.Dir, name+".plot.jsonl"))
	if err != nil {
		return fmt.Errorf("plot: creating %s: %w", name, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	h := header{Kind: kind, Meta: meta}
	if meta.XLabel == "Date" {
		h.TimeFmt = TimeFmt
	}
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("plot: writing %s header: %w", name, err)
	}
	if err := points(enc); err != nil {
		return fmt.Errorf("plot: writing %s points: %w", name, err)
	}
	return nil
}

func (j *JSONL) EmitLine(name string, points []Point, meta Meta) error {
	if len(points) == 0 {
		return fmt.Errorf("plot: empty line series %s", name)
	}
	return j.emit(name, "line", meta, func(enc *json.Encoder) error {
		for _, p := range points {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *JSONL) EmitMultiLine(name string, rows []MultiPoint, meta Meta) error {
	if len(rows) == 0 {
		return fmt.Errorf("plot: empty multi-line series %s", name)
	}
	width := len(rows[0].Ys)
	for _, r := range rows {
		if len(r.Ys) != width {
			return fmt.Errorf("plot: ragged multi-line series %s: row %q has %d values, want %d", name, r.X, len(r.Ys), width)
		}
	}
	return j.emit(name, "multiline", meta, func(enc *json.Encoder) error {
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *JSONL) Emit3D(name string, points []Point3, meta Meta) error {
	if len(points) == 0 {
		return fmt.Errorf("plot: empty 3d series %s", name)
	}
	return j.emit(name, "3d", meta, func(enc *json.Encoder) error {
		for _, p := range points {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	})
}
