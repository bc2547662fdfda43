// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"fmt"
	"io"
)

const ioBufferSize = 32 << 10

var errWriterClosed = fmt.Errorf("%w: writer is closed", ErrStreamState)

// Writer compresses data written to it and writes the result to an
// underlying io.Writer.
type Writer struct {
	d      *Deflater
	w      io.Writer
	buf    []byte
	err    error
	closed bool
}

// NewWriter returns a Writer compressing to w.
// The options are the same as for NewDeflater.
func NewWriter(w io.Writer, opts ...EOption) (*Writer, error) {
	d, err := NewDeflater(opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{d: d, w: w, buf: make([]byte, ioBufferSize)}, nil
}

// Write compresses p. Output is written as blocks complete,
// so data may be held back until Flush or Close.
func (z *Writer) Write(p []byte) (n int, err error) {
	if z.err != nil {
		return 0, z.err
	}
	if z.closed {
		return 0, errWriterClosed
	}
	for len(p) > 0 {
		res, err := z.d.Deflate(z.buf, p, NoFlush)
		n += res.Read
		p = p[res.Read:]
		if err != nil {
			z.err = err
			return n, err
		}
		if err := z.write(res.Written); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Flush writes all pending data, ending with a sync marker so a reader
// can decode everything written so far.
func (z *Writer) Flush() error {
	if z.err != nil {
		return z.err
	}
	if z.closed {
		return nil
	}
	return z.drain(SyncFlush, StatusNeedInput)
}

// Close completes the stream and writes the trailer.
// It does not close the underlying writer.
func (z *Writer) Close() error {
	if z.err != nil {
		return z.err
	}
	if z.closed {
		return nil
	}
	z.closed = true
	return z.drain(FinishFlush, StatusStreamEnd)
}

// drain repeats flush until the Deflater reports want.
func (z *Writer) drain(flush Flush, want Status) error {
	for {
		res, err := z.d.Deflate(z.buf, nil, flush)
		if err != nil {
			z.err = err
			return err
		}
		if err := z.write(res.Written); err != nil {
			return err
		}
		if res.Status == want {
			return nil
		}
	}
}

func (z *Writer) write(n int) error {
	if n == 0 {
		return nil
	}
	if _, err := z.w.Write(z.buf[:n]); err != nil {
		z.err = err
		return err
	}
	return nil
}

// Reset discards the Writer state and makes it write a new stream to w
// with the same options.
func (z *Writer) Reset(w io.Writer) error {
	if err := z.d.Reset(); err != nil {
		return err
	}
	z.w = w
	z.err = nil
	z.closed = false
	return nil
}

// Deflater returns the underlying stream, for example to set a gzip header
// before the first write.
func (z *Writer) Deflater() *Deflater {
	return z.d
}
