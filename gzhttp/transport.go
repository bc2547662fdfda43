// Copyright (c) 2021 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gzhttp provides an HTTP client transport that requests
// compressed responses and decompresses them with the flate package.
package gzhttp

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/zflate/flate"
)

// Transport will wrap a transport with a custom handler
// that will request gzip and deflate and automatically decompress it.
//
// "deflate" bodies are accepted both zlib wrapped and as raw DEFLATE
// data, since servers disagree on which the encoding means.
func Transport(parent http.RoundTripper, opts ...transportOption) http.RoundTripper {
	g := gzRoundtripper{parent: parent, withGzip: true, withDeflate: true}
	for _, o := range opts {
		o(&g)
	}
	var enc []string
	if g.withGzip {
		enc = append(enc, "gzip")
	}
	if g.withDeflate {
		enc = append(enc, "deflate")
	}
	g.acceptEncoding = strings.Join(enc, ",")
	return &g
}

type transportOption func(c *gzRoundtripper)

// TransportEnableGzip will send "gzip" in Accept-Encoding.
// Default: true
func TransportEnableGzip(b bool) transportOption {
	return func(c *gzRoundtripper) {
		c.withGzip = b
	}
}

// TransportEnableDeflate will send "deflate" in Accept-Encoding.
// Default: true
func TransportEnableDeflate(b bool) transportOption {
	return func(c *gzRoundtripper) {
		c.withDeflate = b
	}
}

// TransportAlwaysDecompress will always decompress the response,
// regardless of whether we requested it or not.
// Default: false
func TransportAlwaysDecompress(enabled bool) transportOption {
	return func(c *gzRoundtripper) {
		c.alwaysDecomp = enabled
	}
}

// TransportCustomEval allows to specify a custom callback
// that decides whether a compressed response is decompressed.
// The callback receives the response headers.
// Returning false leaves the body and headers untouched.
func TransportCustomEval(fn func(header http.Header) bool) transportOption {
	return func(c *gzRoundtripper) {
		c.customEval = fn
	}
}

type gzRoundtripper struct {
	parent         http.RoundTripper
	acceptEncoding string
	withGzip       bool
	withDeflate    bool
	alwaysDecomp   bool
	customEval     func(header http.Header) bool
}

func (g *gzRoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var requested bool
	if g.acceptEncoding != "" &&
		req.Header.Get("Accept-Encoding") == "" &&
		req.Header.Get("Range") == "" &&
		req.Method != "HEAD" {
		// Note that we don't request this for HEAD requests,
		// due to a bug in nginx:
		//   https://trac.nginx.org/nginx/ticket/358
		//   https://golang.org/issue/5522
		//
		// We don't request compression if the request is for a range, since
		// auto-decoding a portion of a compressed document will just fail
		// anyway. See https://golang.org/issue/8923
		requested = true
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", g.acceptEncoding)
	}
	resp, err := g.parent.RoundTrip(req)
	if err != nil || !(requested || g.alwaysDecomp) {
		return resp, err
	}
	var format flate.Format
	switch ce := resp.Header.Get("Content-Encoding"); {
	case asciiEqualFold(ce, "gzip") && (g.withGzip || g.alwaysDecomp):
		format = flate.FormatGzip
	case asciiEqualFold(ce, "deflate") && (g.withDeflate || g.alwaysDecomp):
		format = flate.FormatAuto
	default:
		return resp, nil
	}
	if g.customEval != nil && !g.customEval(resp.Header) {
		return resp, nil
	}
	resp.Body = &decompressReader{body: resp.Body, format: format}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// Readers are pooled per format, since Reset keeps the options.
var (
	gzReaderPool      sync.Pool
	deflateReaderPool sync.Pool
)

func readerPool(f flate.Format) *sync.Pool {
	if f == flate.FormatGzip {
		return &gzReaderPool
	}
	return &deflateReaderPool
}

// decompressReader wraps a response body so it can lazily
// create a flate.Reader on the first call to Read
type decompressReader struct {
	body   io.ReadCloser // underlying HTTP/1 response body framing
	format flate.Format
	zr     *flate.Reader // lazily-initialized reader
	zerr   error         // any error from creating the reader; sticky
}

func (d *decompressReader) Read(p []byte) (n int, err error) {
	if d.zr == nil && d.zerr == nil {
		zr, ok := readerPool(d.format).Get().(*flate.Reader)
		if ok {
			d.zr, d.zerr = zr, zr.Reset(d.body)
		} else {
			d.zr, d.zerr = flate.NewReader(d.body, flate.WithDecoderFormat(d.format))
		}
	}
	if d.zerr != nil {
		return 0, d.zerr
	}
	return d.zr.Read(p)
}

func (d *decompressReader) Close() error {
	if d.zr != nil {
		readerPool(d.format).Put(d.zr)
		d.zr = nil
	}
	return d.body.Close()
}

// asciiEqualFold is strings.EqualFold, ASCII only. It reports whether s and t
// are equal, ASCII-case-insensitively.
func asciiEqualFold(s, t string) bool {
	if len(s) != len(t) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if lower(s[i]) != lower(t[i]) {
			return false
		}
	}
	return true
}

// lower returns the ASCII lowercase version of b.
func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
