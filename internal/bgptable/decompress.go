package bgptable

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Open returns a reader over filename, transparently decompressing
// based on its suffix. ".bz2" and ".gz" are recognised; anything else is
// read as plain text.
func Open(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("bgptable: open %s: %w", filename, err)
	}

	switch {
	case strings.HasSuffix(filename, ".bz2"):
		return nopCloser{bufio.NewReader(bzip2.NewReader(f)), f}, nil
	case strings.HasSuffix(filename, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("bgptable: gzip %s: %w", filename, err)
		}
		return gzCloser{gz, f}, nil
	default:
		return f, nil
	}
}

// nopCloser wraps a bzip2 reader (which has no Close) alongside the
// underlying file so closing the returned ReadCloser closes the file.
type nopCloser struct {
	io.Reader
	f *os.File
}

func (n nopCloser) Close() error { return n.f.Close() }

type gzCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g gzCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g gzCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}
