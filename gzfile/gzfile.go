// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

// Package gzfile reads and writes gzip files on top of the flate package.
//
// Files are opened with a mode string: one of "r", "w" or "a", optionally
// followed by a compression level digit and a strategy letter
// ("f" filtered, "h" Huffman only, "R" run-length, "F" fixed codes).
// "T" writes the data uncompressed. Files that are not gzip are read
// as they are.
package gzfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/hashicorp/go-multierror"

	"github.com/klauspost/zflate"
	"github.com/klauspost/zflate/flate"
)

// bulkSize is the smallest write that is classified
// to pick a strategy, and the amount sampled.
const bulkSize = 32 << 10

var (
	errClosed    = fmt.Errorf("%w: file is closed", flate.ErrStreamState)
	errReadOnly  = fmt.Errorf("%w: file is open for reading", flate.ErrStreamState)
	errWriteOnly = fmt.Errorf("%w: file is open for writing", flate.ErrStreamState)
)

// File is a gzip file opened for either reading or writing.
// A File must not be used concurrently.
type File struct {
	f    *os.File
	mode mode

	// Reading.
	r  io.Reader
	zr *flate.Reader // nil when reading transparently

	// Writing.
	w     *flate.Writer
	bw    *bufio.Writer // transparent writes
	class zflate.Class

	closed bool
}

// Open opens the named file with the given mode.
func Open(name, mode string) (*File, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, m.flags(), 0o666)
	if err != nil {
		return nil, err
	}
	g, err := newFile(f, m)
	if err != nil {
		f.Close()
		return nil, err
	}
	return g, nil
}

// Dopen uses an already open file. The file is closed by Close.
// In append mode the file offset must already be at the end.
func Dopen(f *os.File, mode string) (*File, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	return newFile(f, m)
}

func newFile(f *os.File, m mode) (*File, error) {
	g := &File{f: f, mode: m}
	if m.access == accessRead {
		br := bufio.NewReaderSize(f, bulkSize)
		g.r = br
		if b, _ := br.Peek(2); len(b) == 2 && b[0] == 0x1f && b[1] == 0x8b {
			zr, err := flate.NewReader(br, flate.WithDecoderFormat(flate.FormatGzip))
			if err != nil {
				return nil, err
			}
			g.r, g.zr = zr, zr
		}
		return g, nil
	}
	if m.transparent {
		g.bw = bufio.NewWriterSize(f, bulkSize)
		return g, nil
	}
	w, err := flate.NewWriter(f,
		flate.WithEncoderFormat(flate.FormatGzip),
		flate.WithEncoderLevel(m.level),
		flate.WithEncoderStrategy(m.strategy),
		flate.WithEncoderHeader(flate.Header{OS: osCode()}))
	if err != nil {
		return nil, err
	}
	g.w = w
	return g, nil
}

// osCode is the gzip operating system byte for files written here.
func osCode() byte {
	if runtime.GOOS == "windows" {
		return 10 // NTFS
	}
	return 3 // Unix
}

// Read decompresses into p. Concatenated gzip members are read as one
// stream; bytes after a member that do not start another are ignored.
func (g *File) Read(p []byte) (int, error) {
	switch {
	case g.closed:
		return 0, errClosed
	case g.r == nil:
		return 0, errWriteOnly
	}
	return g.r.Read(p)
}

// Direct reports whether the file is read or written without compression.
func (g *File) Direct() bool {
	if g.mode.access == accessRead {
		return g.zr == nil
	}
	return g.mode.transparent
}

// Header returns the header of the gzip member being read, or nil.
func (g *File) Header() *flate.Header {
	if g.zr == nil {
		return nil
	}
	return g.zr.Header()
}

// Write compresses p to the file.
//
// Unless the mode names a strategy, large writes are sampled and the
// compressor switches between its normal search, Huffman only coding
// and stored blocks to suit the data.
func (g *File) Write(p []byte) (int, error) {
	switch {
	case g.closed:
		return 0, errClosed
	case g.r != nil:
		return 0, errReadOnly
	case g.bw != nil:
		return g.bw.Write(p)
	}
	if len(p) >= bulkSize && !g.mode.strategySet && g.mode.level != flate.NoCompression {
		if err := g.adapt(zflate.Classify(p[:bulkSize])); err != nil {
			return 0, err
		}
	}
	return g.w.Write(p)
}

// adapt changes compression parameters to suit data of class c.
func (g *File) adapt(c zflate.Class) error {
	if c == g.class {
		return nil
	}
	level, strategy := g.mode.level, flate.StrategyDefault
	switch c {
	case zflate.EntropyOnly:
		strategy = flate.StrategyHuffmanOnly
	case zflate.Incompressible:
		level = flate.NoCompression
	}
	if err := g.w.Deflater().Params(level, strategy); err != nil {
		return err
	}
	g.class = c
	return nil
}

// Flush writes buffered data so that everything written so far can be
// read back. It does not sync the file.
func (g *File) Flush() error {
	switch {
	case g.closed:
		return errClosed
	case g.r != nil:
		return errReadOnly
	case g.bw != nil:
		return g.bw.Flush()
	}
	return g.w.Flush()
}

// Close completes the gzip stream when writing and closes the file.
// When reading it also reports a stream that was corrupt or cut short.
func (g *File) Close() error {
	if g.closed {
		return errClosed
	}
	g.closed = true
	var errs *multierror.Error
	switch {
	case g.w != nil:
		errs = multierror.Append(errs, g.w.Close())
	case g.bw != nil:
		errs = multierror.Append(errs, g.bw.Flush())
	case g.zr != nil:
		errs = multierror.Append(errs, g.zr.Close())
	}
	errs = multierror.Append(errs, g.f.Close())
	return errs.ErrorOrNil()
}
