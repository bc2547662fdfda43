// Package zflate holds helpers shared by the codec packages.
//
// The codec itself lives in the flate package. The zlib package has
// one-shot buffer helpers and gzfile reads and writes gzip files.
package zflate

import (
	"math"

	"github.com/klauspost/zflate/internal/le"
)

// ShannonEntropyBits returns the number of bits minimum required to represent
// an entropy encoding of the input bytes.
// https://en.wiktionary.org/wiki/Shannon_entropy
func ShannonEntropyBits(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	var hist [256]int
	for _, c := range b {
		hist[c]++
	}
	shannon := float64(0)
	invTotal := 1.0 / float64(len(b))
	for _, v := range hist[:] {
		if v > 0 {
			n := float64(v)
			shannon += math.Ceil(-math.Log2(n*invTotal) * n)
		}
	}
	return int(math.Ceil(shannon))
}

// Class is a coarse compressibility class of a block.
type Class uint8

const (
	// Compressible blocks have repeated strings worth searching for.
	Compressible Class = iota

	// EntropyOnly blocks have a skewed byte distribution but few
	// repeats, so Huffman coding alone captures most of the gain.
	EntropyOnly

	// Incompressible blocks are close to random.
	Incompressible
)

func (c Class) String() string {
	switch c {
	case Compressible:
		return "compressible"
	case EntropyOnly:
		return "entropy-only"
	case Incompressible:
		return "incompressible"
	}
	return "unknown"
}

// Classify returns the class of b.
// Blocks shorter than 16 bytes are always Compressible.
func Classify(b []byte) Class {
	if len(b) < 16 {
		return Compressible
	}
	// Less than 1% saving from an order 0 entropy coder.
	if ShannonEntropyBits(b) >= len(b)*8*99/100 {
		return Incompressible
	}
	if repeatRatio(b) < 0.25 {
		return EntropyOnly
	}
	return Compressible
}

// repeatRatio returns the fraction of positions in b whose next four
// bytes were last seen at the position remembered in a small hash table.
func repeatRatio(b []byte) float64 {
	const tableBits = 12
	var table [1 << tableBits]int32
	n := len(b) - 3
	hits := 0
	for i := 0; i < n; i++ {
		v := le.Load32(b, i)
		h := (v * 0x9E3779B1) >> (32 - tableBits)
		if j := table[h]; j > 0 && le.Load32(b, j-1) == v {
			hits++
		}
		table[h] = int32(i + 1)
	}
	return float64(hits) / float64(n)
}
