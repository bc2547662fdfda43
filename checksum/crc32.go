// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package checksum

import (
	"hash/crc32"

	"github.com/chronos-tachyon/assert"
)

// CRCInit is the initial value of a CRC-32 accumulator.
const CRCInit = 0

// crcPoly is the reflected IEEE polynomial.
const crcPoly = 0xedb88320

// CRC32 returns the IEEE CRC-32 of p appended to the running checksum crc.
// A nil or empty p returns crc unchanged.
func CRC32(crc uint32, p []byte) uint32 {
	if len(p) == 0 {
		return crc
	}
	return crc32.Update(crc, crc32.IEEETable, p)
}

// x2nTable[k] holds x^(2^k) modulo the CRC polynomial.
var x2nTable [32]uint32

func init() {
	p := uint32(1) << 30 // x^1
	x2nTable[0] = p
	for n := 1; n < 32; n++ {
		p = multModP(p, p)
		x2nTable[n] = p
	}
}

// multModP returns a(x) multiplied by b(x) modulo p(x), where p(x) is the
// CRC polynomial, reflected. a must be non-zero.
func multModP(a, b uint32) uint32 {
	m := uint32(1) << 31
	var p uint32
	for {
		if a&m != 0 {
			p ^= b
			if a&(m-1) == 0 {
				break
			}
		}
		m >>= 1
		if b&1 != 0 {
			b = b>>1 ^ crcPoly
		} else {
			b >>= 1
		}
	}
	return p
}

// x2nModP returns x^(n * 2^k) modulo p(x).
func x2nModP(n uint64, k uint) uint32 {
	p := uint32(1) << 31 // x^0 == 1
	for n != 0 {
		if n&1 != 0 {
			p = multModP(x2nTable[k&31], p)
		}
		n >>= 1
		k++
	}
	return p
}

// CRC32Combine returns the CRC-32 of the concatenation of two ranges,
// given crc1 over the first range, crc2 over the second and the
// length of the second range.
func CRC32Combine(crc1, crc2 uint32, len2 int64) uint32 {
	assert.Assertf(len2 >= 0, "negative length %d", len2)
	return multModP(x2nModP(uint64(len2), 3), crc1) ^ crc2
}
