package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// stack closes its closers in reverse order and returns the first
// error.
type stack []func() error

func (s stack) close() error {
	var first error
	for i := len(s) - 1; i >= 0; i-- {
		if e := s[i](); e != nil && first == nil {
			first = e
		}
	}
	return first
}

type reader struct {
	io.Reader
	closers stack
}

func (r *reader) Close() error { return r.closers.close() }

type writer struct {
	io.Writer
	closers stack
}

func (w *writer) Close() error { return w.closers.close() }

// OpenReader opens filename for reading.  Files ending in .gz or .zst
// are decompressed transparently.
func OpenReader(filename string) (io.ReadCloser, error) {
	f, e := os.Open(filename)
	if e != nil {
		return nil, e
	}
	r := &reader{Reader: bufio.NewReader(f), closers: stack{f.Close}}

	switch path.Ext(filename) {
	case ".gz":
		z, e := gzip.NewReader(r.Reader)
		if e != nil {
			f.Close()
			return nil, fmt.Errorf("gzip header of %s: %w", filename, e)
		}
		r.Reader = z
		r.closers = append(r.closers, z.Close)
	case ".zst":
		z, e := zstd.NewReader(r.Reader)
		if e != nil {
			f.Close()
			return nil, fmt.Errorf("zstd stream of %s: %w", filename, e)
		}
		r.Reader = z
		r.closers = append(r.closers, func() error { z.Close(); return nil })
	}
	return r, nil
}

// CreateWriter creates or truncates filename, compressing by its
// extension like OpenReader.  Data is only complete after Close
// returns nil.
func CreateWriter(filename string) (io.WriteCloser, error) {
	f, e := os.Create(filename)
	if e != nil {
		return nil, e
	}
	b := bufio.NewWriter(f)
	w := &writer{Writer: b, closers: stack{f.Close, b.Flush}}

	switch path.Ext(filename) {
	case ".gz":
		z := gzip.NewWriter(b)
		w.Writer = z
		w.closers = append(w.closers, z.Close)
	case ".zst":
		z, e := zstd.NewWriter(b)
		if e != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer for %s: %w", filename, e)
		}
		w.Writer = z
		w.closers = append(w.closers, z.Close)
	}
	return w, nil
}
