// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package xio centralizes the "-" means stdin/stdout and ".sz means
// snappy-compressed" file conventions spec §6 and SPEC_FULL §6 use
// throughout the CLI, grounded on the pervasive use of
// github.com/golang/snappy across every muscato stage binary
// (e.g. cmd/muscato_prep_targets's snappy.NewReader/NewBufferedWriter
// dispatch on file extension).
package xio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// OpenRead opens path for reading. "-" reads stdin. A ".sz" suffix
// transparently wraps the reader in a snappy decompressor.
func OpenRead(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".sz") {
		return &snappyReadCloser{r: snappy.NewReader(f), f: f}, nil
	}
	return f, nil
}

type snappyReadCloser struct {
	r *snappy.Reader
	f *os.File
}

func (s *snappyReadCloser) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *snappyReadCloser) Close() error               { return s.f.Close() }

// OpenWrite opens path for writing, truncating any existing file. "-"
// writes stdout. A ".sz" suffix transparently wraps the writer in a
// buffered snappy compressor.
func OpenWrite(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{bufio.NewWriter(os.Stdout)}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".sz") {
		return &snappyWriteCloser{w: snappy.NewBufferedWriter(f), f: f}, nil
	}
	return f, nil
}

type snappyWriteCloser struct {
	w *snappy.Writer
	f *os.File
}

func (s *snappyWriteCloser) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *snappyWriteCloser) Close() error {
	if err := s.w.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// nopWriteCloser adapts a *bufio.Writer (stdout) to io.WriteCloser,
// flushing on Close since stdout itself is never closed.
type nopWriteCloser struct {
	*bufio.Writer
}

func (n nopWriteCloser) Close() error { return n.Flush() }
