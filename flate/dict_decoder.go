// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

// dictDecoder implements the LZ77 sliding dictionary as used in decompression.
// LZ77 decompresses data through sequences of two forms of commands:
//
//   - Literal insertions: Runs of one or more symbols are inserted into the data
//     stream as is. This is accomplished through the writeByte method for a
//     single symbol, or combinations of WriteSlice/WriteMark for multiple symbols.
//     Any valid stream must start with a literal insertion if no preset dictionary
//     is used.
//
//   - Backward copies: Runs of one or more symbols are copied from previously
//     emitted data. Backward copies come as the tuple (dist, length) where dist
//     determines how far back in the stream to copy from and length determines how
//     many bytes to copy. Note that it is valid for the length to be greater than
//     the distance. Since LZ77 uses forward copies, that situation is used to
//     perform a form of run-length encoding on repeated runs of symbols.
//     WriteCopy performs this operation.
//
// The dictDecoder also doubles as the output buffer, so decoded bytes
// are handed out with ReadFlush.
type dictDecoder struct {
	hist []byte // Sliding window history

	// Invariant: 0 <= rdPos <= wrPos <= len(hist)
	wrPos int  // Current output position in buffer
	rdPos int  // Have emitted hist[:rdPos] already
	full  bool // Has a full window length been written yet?
}

// init resets dd to use hist as its window. The content of hist is ignored.
func (dd *dictDecoder) init(hist []byte) {
	*dd = dictDecoder{hist: hist}
}

// clone returns a copy of dd using hist, which must have the same size.
func (dd *dictDecoder) clone(hist []byte) dictDecoder {
	c := *dd
	copy(hist, dd.hist)
	c.hist = hist
	return c
}

// HistSize reports the total amount of historical data in the dictionary.
func (dd *dictDecoder) HistSize() int {
	if dd.full {
		return len(dd.hist)
	}
	return dd.wrPos
}

// AvailRead reports the number of bytes that can be flushed by ReadFlush.
func (dd *dictDecoder) AvailRead() int {
	return dd.wrPos - dd.rdPos
}

// AvailWrite reports the available amount of output buffer space.
func (dd *dictDecoder) AvailWrite() int {
	return len(dd.hist) - dd.wrPos
}

// WriteSlice returns a slice of the available buffer to write data to.
//
// This invariant will be kept: len(s) <= AvailWrite()
func (dd *dictDecoder) WriteSlice() []byte {
	return dd.hist[dd.wrPos:]
}

// WriteMark advances the writer pointer by cnt.
//
// This invariant must be kept: 0 <= cnt <= AvailWrite()
func (dd *dictDecoder) WriteMark(cnt int) {
	dd.wrPos += cnt
}

// writeByte writes a single byte to the dictionary.
//
// This invariant must be kept: 0 < AvailWrite()
func (dd *dictDecoder) writeByte(c byte) {
	dd.hist[dd.wrPos] = c
	dd.wrPos++
}

// WriteCopy copies a string at a given (dist, length) to the output.
// This returns the number of bytes copied and may be less than the requested
// length if the available space in the output buffer is too small.
//
// This invariant must be kept: 0 < dist <= HistSize()
func (dd *dictDecoder) WriteCopy(dist, length int) int {
	dstBase := dd.wrPos
	dstPos := dstBase
	srcPos := dstPos - dist
	endPos := min(dstPos+length, len(dd.hist))

	// Copy non-overlapping section after destination position.
	//
	// This section is non-overlapping in that the copy length for this section
	// is always less than or equal to the backwards distance. This can occur
	// if a distance refers to data that wraps-around in the buffer.
	// Thus, a backwards copy is performed here; that is, the exact bytes in
	// the source prior to the copy is placed in the destination.
	if srcPos < 0 {
		srcPos += len(dd.hist)
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:])
		srcPos = 0
	}

	// Copy possibly overlapping section before destination position.
	//
	// This section can overlap if the copy length for this section is larger
	// than the backwards distance. This is allowed by LZ77 so that repeated
	// strings can be succinctly represented using (dist, length) pairs.
	// Thus, a forwards copy is performed here; that is, the bytes copied is
	// possibly dependent on the resulting bytes in the destination as the copy
	// progresses along.
	for dstPos < endPos {
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:dstPos])
	}

	dd.wrPos = dstPos
	return dstPos - dstBase
}

// ReadFlush returns a slice of the historical buffer that is ready to be
// emitted to the user. The data returned by ReadFlush must be fully consumed
// before calling any other dictDecoder methods.
func (dd *dictDecoder) ReadFlush() []byte {
	toRead := dd.hist[dd.rdPos:dd.wrPos]
	dd.rdPos = dd.wrPos
	if dd.wrPos == len(dd.hist) {
		dd.wrPos, dd.rdPos = 0, 0
		dd.full = true
	}
	return toRead
}

// AddHistory appends b to the history without making it readable.
// Nothing may be pending for ReadFlush.
func (dd *dictDecoder) AddHistory(b []byte) {
	if len(b) >= len(dd.hist) {
		copy(dd.hist, b[len(b)-len(dd.hist):])
		dd.wrPos, dd.rdPos = 0, 0
		dd.full = true
		return
	}
	for len(b) > 0 {
		n := copy(dd.hist[dd.wrPos:], b)
		b = b[n:]
		dd.wrPos += n
		if dd.wrPos == len(dd.hist) {
			dd.wrPos = 0
			dd.full = true
		}
	}
	dd.rdPos = dd.wrPos
}

// History returns a copy of the history in stream order.
func (dd *dictDecoder) History() []byte {
	if !dd.full {
		return append([]byte(nil), dd.hist[:dd.wrPos]...)
	}
	out := make([]byte, 0, len(dd.hist))
	out = append(out, dd.hist[dd.wrPos:]...)
	return append(out, dd.hist[:dd.wrPos]...)
}
