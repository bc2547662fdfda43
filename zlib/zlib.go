// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

// Package zlib compresses and decompresses whole zlib streams held in memory.
//
// The functions reuse pooled flate.Deflater and flate.Inflater contexts,
// so they are safe for concurrent use.
package zlib

import (
	"fmt"
	"sync"

	"github.com/klauspost/zflate/flate"
)

// ErrBufferTooSmall is returned when dst cannot hold the result.
var ErrBufferTooSmall = fmt.Errorf("%w: destination buffer too small", flate.ErrResource)

// One pool per level, index 0 is DefaultCompression.
var encoders [flate.BestCompression + 2]sync.Pool

var decoders sync.Pool

func getEncoder(level int) (*flate.Deflater, error) {
	if v, ok := encoders[level+1].Get().(*flate.Deflater); ok {
		return v, v.Reset()
	}
	return flate.NewDeflater(flate.WithEncoderFormat(flate.FormatZlib), flate.WithEncoderLevel(level))
}

// CompressBound returns the largest size Compress can produce for n bytes.
// It is non-decreasing in n.
func CompressBound(n int) int {
	return flate.Bound(n, flate.FormatZlib)
}

// Compress compresses src into dst as a zlib stream with the default level
// and returns the number of bytes written.
func Compress(dst, src []byte) (int, error) {
	return Compress2(dst, src, flate.DefaultCompression)
}

// Compress2 is Compress with an explicit level.
// A dst of CompressBound(len(src)) bytes is always large enough.
func Compress2(dst, src []byte, level int) (int, error) {
	if level < flate.DefaultCompression || level > flate.BestCompression {
		return 0, fmt.Errorf("%w: level %d", flate.ErrInvalidParam, level)
	}
	d, err := getEncoder(level)
	if err != nil {
		return 0, err
	}
	res, err := d.Deflate(dst, src, flate.FinishFlush)
	if err != nil {
		d.End()
		return res.Written, err
	}
	encoders[level+1].Put(d)
	if res.Status != flate.StatusStreamEnd {
		return res.Written, ErrBufferTooSmall
	}
	return res.Written, nil
}

// Uncompress decompresses the zlib stream in src into dst
// and returns the number of bytes written.
func Uncompress(dst, src []byte) (int, error) {
	n, _, err := Uncompress2(dst, src)
	return n, err
}

// Uncompress2 is Uncompress that also returns how much of src the stream
// occupied. Bytes after the stream are not examined.
//
// A stream that ends before its trailer is a data error matching
// io.ErrUnexpectedEOF. A stream that needs a preset dictionary returns
// flate.ErrNeedDictionary.
func Uncompress2(dst, src []byte) (nDst, nSrc int, err error) {
	f, ok := decoders.Get().(*flate.Inflater)
	if ok {
		err = f.Reset()
	} else {
		f, err = flate.NewInflater(flate.WithDecoderFormat(flate.FormatZlib))
	}
	if err != nil {
		return 0, 0, err
	}
	res, err := f.Inflate(dst, src, flate.FinishFlush)
	if err != nil {
		f.End()
		return res.Written, res.Read, err
	}
	decoders.Put(f)
	switch res.Status {
	case flate.StatusNeedOutput:
		return res.Written, res.Read, ErrBufferTooSmall
	case flate.StatusNeedDict:
		return res.Written, res.Read, flate.ErrNeedDictionary
	}
	return res.Written, res.Read, nil
}
