// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"errors"
	"fmt"
	"io"
)

var errReaderClosed = fmt.Errorf("%w: reader is closed", ErrStreamState)

// Reader decompresses data read from an underlying io.Reader.
//
// With gzip input and multistream enabled, concatenated members are
// returned as one stream. Bytes after the last member that do not start
// a new member are ignored.
type Reader struct {
	f   *Inflater
	r   io.Reader
	buf []byte
	in  []byte // unread part of buf
	eof bool   // r has returned io.EOF
	err error
}

// NewReader returns a Reader decompressing from r.
// The options are the same as for NewInflater.
func NewReader(r io.Reader, opts ...DOption) (*Reader, error) {
	f, err := NewInflater(opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, r: r, buf: make([]byte, ioBufferSize)}, nil
}

// Read decompresses into p.
// A stream that ends early returns io.ErrUnexpectedEOF.
func (z *Reader) Read(p []byte) (n int, err error) {
	if z.err != nil {
		return 0, z.err
	}
	for {
		if len(z.in) == 0 && !z.eof {
			if err := z.fill(); err != nil {
				z.err = err
				return n, err
			}
		}
		flush := NoFlush
		if z.eof {
			flush = FinishFlush
		}
		res, err := z.f.Inflate(p[n:], z.in, flush)
		z.in = z.in[res.Read:]
		n += res.Written
		if err != nil {
			if errors.Is(err, ErrTruncated) {
				err = io.ErrUnexpectedEOF
			}
			z.err = err
			return n, err
		}
		switch res.Status {
		case StatusStreamEnd:
			more, err := z.nextMember()
			if err != nil {
				z.err = err
				return n, err
			}
			if !more {
				z.err = io.EOF
				return n, io.EOF
			}
		case StatusNeedDict:
			z.err = ErrNeedDictionary
			return n, z.err
		}
		if n > 0 || len(p) == 0 {
			return n, nil
		}
	}
}

// fill reads more input after the unread bytes.
func (z *Reader) fill() error {
	if len(z.in) > 0 && &z.in[0] != &z.buf[0] {
		z.in = z.buf[:copy(z.buf, z.in)]
	}
	m, err := z.r.Read(z.buf[len(z.in):])
	z.in = z.buf[:len(z.in)+m]
	switch {
	case err == io.EOF:
		z.eof = true
	case err != nil:
		return err
	}
	return nil
}

// nextMember reports whether another gzip member follows,
// and restarts the Inflater if it does.
func (z *Reader) nextMember() (bool, error) {
	if !z.f.o.multistream || z.f.Format() != FormatGzip {
		return false, nil
	}
	for len(z.in) < 2 && !z.eof {
		if err := z.fill(); err != nil {
			return false, err
		}
	}
	if len(z.in) < 2 || z.in[0] != gzipID1 || z.in[1] != gzipID2 {
		return false, nil
	}
	if debug {
		println("reader: next gzip member")
	}
	return true, z.f.Reset()
}

// Header returns the header of the current gzip member,
// or nil if none has been read.
func (z *Reader) Header() *Header {
	return z.f.Header()
}

// Close ends reading and returns any data error seen.
// It does not close the underlying reader.
func (z *Reader) Close() error {
	if z.err == io.EOF {
		return nil
	}
	if z.err == io.ErrUnexpectedEOF || errors.Is(z.err, ErrData) {
		return z.err
	}
	z.err = errReaderClosed
	return nil
}

// Reset discards the Reader state and reads a new stream from r
// with the same options.
func (z *Reader) Reset(r io.Reader) error {
	if err := z.f.Reset(); err != nil {
		return err
	}
	z.r = r
	z.in = nil
	z.eof = false
	z.err = nil
	return nil
}
