//go:build gofuzz

// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import "bytes"

// Fuzz is the go-fuzz entry point. Input that decodes in any format is
// compressed again and must survive the round trip.
func Fuzz(data []byte) int {
	f, err := NewInflater(WithDecoderFormat(FormatAuto))
	if err != nil {
		panic(err)
	}
	defer f.End()
	var out []byte
	buf := make([]byte, 4096)
	for len(out) < 16<<20 {
		res, err := f.Inflate(buf, data, FinishFlush)
		out = append(out, buf[:res.Written]...)
		data = data[res.Read:]
		if err != nil || res.Status == StatusNeedDict {
			return 0
		}
		if res.Status == StatusStreamEnd {
			break
		}
	}

	d, err := NewDeflater(WithEncoderFormat(f.Format()), WithEncoderLevel(len(out)%10))
	if err != nil {
		panic(err)
	}
	defer d.End()
	comp := make([]byte, d.Bound(len(out)))
	res, err := d.Deflate(comp, out, FinishFlush)
	if err != nil || res.Status != StatusStreamEnd {
		panic("deflate did not complete within Bound")
	}
	if err := f.Reset(WithDecoderFormat(f.Format())); err != nil {
		panic(err)
	}
	got := make([]byte, len(out))
	res, err = f.Inflate(got, comp[:res.Written], FinishFlush)
	if err != nil || res.Status != StatusStreamEnd || !bytes.Equal(got[:res.Written], out) {
		panic("round trip mismatch")
	}
	return 1
}
