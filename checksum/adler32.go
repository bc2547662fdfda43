// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

// Package checksum provides the running Adler-32 and CRC-32 accumulators
// used by the zlib and gzip stream wrappers.
//
// Both accumulators are pure functions of the previous value and the
// supplied bytes, so a checksum can be computed over any chunking of the
// input and the result is the same as computing it in one call.
// Two accumulators over adjacent ranges can be merged with the
// corresponding Combine function.
package checksum

import (
	"github.com/chronos-tachyon/assert"
)

const (
	// AdlerInit is the initial value of an Adler-32 accumulator.
	AdlerInit = 1

	// adlerMod is the largest prime smaller than 65536.
	adlerMod = 65521

	// adlerNMax is the largest n such that
	// 255 * n * (n+1) / 2 + (n+1) * (adlerMod-1) <= 2^32-1.
	adlerNMax = 5552
)

// Adler32 returns the Adler-32 checksum of p appended to the running
// checksum adler. A nil or empty p returns adler unchanged.
func Adler32(adler uint32, p []byte) uint32 {
	s1, s2 := (adler&0xffff)%adlerMod, (adler>>16)%adlerMod
	for len(p) > 0 {
		var rest []byte
		if len(p) > adlerNMax {
			p, rest = p[:adlerNMax], p[adlerNMax:]
		}
		for len(p) >= 4 {
			s1 += uint32(p[0])
			s2 += s1
			s1 += uint32(p[1])
			s2 += s1
			s1 += uint32(p[2])
			s2 += s1
			s1 += uint32(p[3])
			s2 += s1
			p = p[4:]
		}
		for _, x := range p {
			s1 += uint32(x)
			s2 += s1
		}
		s1 %= adlerMod
		s2 %= adlerMod
		p = rest
	}
	return s2<<16 | s1
}

// Adler32Combine returns the Adler-32 checksum of the concatenation of two
// ranges, given adler1 over the first range, adler2 over the second and
// the length of the second range.
func Adler32Combine(adler1, adler2 uint32, len2 int64) uint32 {
	assert.Assertf(len2 >= 0, "negative length %d", len2)

	rem := uint32(len2 % adlerMod)
	sum1 := (adler1 & 0xffff) % adlerMod
	sum2 := (rem * sum1) % adlerMod
	sum1 += (adler2 & 0xffff) + adlerMod - 1
	sum2 += (adler1 >> 16) + (adler2 >> 16) + adlerMod - rem
	if sum1 >= adlerMod {
		sum1 -= adlerMod
	}
	if sum1 >= adlerMod {
		sum1 -= adlerMod
	}
	if sum2 >= adlerMod<<1 {
		sum2 -= adlerMod << 1
	}
	if sum2 >= adlerMod {
		sum2 -= adlerMod
	}
	return sum2<<16 | sum1
}
