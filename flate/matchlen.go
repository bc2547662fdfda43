// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"math/bits"

	"github.com/klauspost/zflate/internal/le"
)

const prime3bytes = 506832829

// hash3 returns the hash of the 3 bytes at window[i:].
// 4 bytes are loaded, so window must extend one byte further.
func (d *compressor) hash3(i int) uint32 {
	return ((le.Load32(d.window, i) << 8) * prime3bytes) >> d.hashShift
}

// matchLen returns the maximum common prefix length of a and b.
// a must be the shortest of the two.
func matchLen(a, b []byte) (n int) {
	b = b[:len(a)]
	for ; len(a) >= 8; a, b = a[8:], b[8:] {
		diff := le.Load64(a, 0) ^ le.Load64(b, 0)
		if diff != 0 {
			return n + bits.TrailingZeros64(diff)>>3
		}
		n += 8
	}

	for i := range a {
		if a[i] != b[i] {
			break
		}
		n++
	}
	return n
}

// matchRun returns how many leading bytes of a equal c.
func matchRun(a []byte, c byte) (n int) {
	pattern := uint64(c) * 0x0101010101010101
	for ; len(a) >= 8; a = a[8:] {
		diff := le.Load64(a, 0) ^ pattern
		if diff != 0 {
			return n + bits.TrailingZeros64(diff)>>3
		}
		n += 8
	}
	for _, v := range a {
		if v != c {
			break
		}
		n++
	}
	return n
}
