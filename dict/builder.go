// Copyright 2023+ Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dict builds preset dictionaries for DEFLATE and zlib streams
// from sample inputs.
package dict

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/zflate/flate"
	"github.com/klauspost/zflate/internal/le"
)

// MaxDictSize is the largest useful dictionary: one 32 KiB window.
const MaxDictSize = 32 << 10

// Options for Build.
type Options struct {
	// MaxDictSize is the size of the dictionary.
	// Zero or values above MaxDictSize use MaxDictSize.
	MaxDictSize int

	// HashBytes is the length of the strings that are counted.
	// Must be between 4 and 8. Zero means 6.
	HashBytes int

	// Output receives progress when not nil.
	Output io.Writer
}

// candidate is a counted string.
type candidate struct {
	hash   uint32
	n      uint32
	offset int64 // sum of offsets within the samples
}

// entry is a selected string with its neighbours in the samples.
type entry struct {
	value      []byte
	followedBy map[uint32]uint32
	precededBy map[uint32]uint32
}

type builder struct {
	Options
	samples [][]byte
	offsets map[uint32]int64
	entries map[uint32]entry
}

func (b *builder) printf(format string, args ...any) {
	if b.Output != nil {
		fmt.Fprintf(b.Output, format, args...)
	}
}

func (b *builder) hashAt(s []byte, i int) uint32 {
	return hashLen(le.Load64(s, i), 32, uint8(b.HashBytes))
}

// Build returns a dictionary made of the strings most common across samples.
// The most common strings are placed last, where they are cheapest to
// reference. Use it with flate.WithEncoderDict and flate.WithDecoderDict.
func Build(samples [][]byte, o Options) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples provided")
	}
	if o.MaxDictSize <= 0 || o.MaxDictSize > MaxDictSize {
		o.MaxDictSize = MaxDictSize
	}
	if o.HashBytes == 0 {
		o.HashBytes = 6
	}
	if o.HashBytes < 4 || o.HashBytes > 8 {
		return nil, fmt.Errorf("HashBytes must be >= 4 and <= 8, got %d", o.HashBytes)
	}
	b := &builder{Options: o, samples: samples}
	selected := b.count()
	if len(selected) == 0 {
		return nil, errors.New("samples have no repeated strings")
	}
	b.link(selected)
	return b.assemble(b.chain(selected)), nil
}

// count returns the strings seen in more samples than average,
// the most common first.
func (b *builder) count() []candidate {
	counts := make(map[uint32]uint32)
	b.offsets = make(map[uint32]int64)
	var total uint64
	seen := make(map[uint32]struct{})
	for _, s := range b.samples {
		clear(seen)
		for i := 0; i+8 <= len(s); i++ {
			h := b.hashAt(s, i)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			counts[h]++
			b.offsets[h] += int64(i)
			total++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	threshold := uint32(total / uint64(len(counts)))
	b.printf("indexed %d strings, %d distinct, average count %d\n", total, len(counts), threshold)

	var out []candidate
	for h, n := range counts {
		if n > threshold {
			out = append(out, candidate{hash: h, n: n, offset: b.offsets[h]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		// Near equal counts are ordered by offset,
		// so strings from the same context stay together.
		d := int(out[i].n) - int(out[j].n)
		if d < 0 {
			d = -d
		}
		if uint32(d) < out[i].n/32 {
			return out[i].offset < out[j].offset
		}
		return out[i].n > out[j].n
	})
	if len(out) > b.MaxDictSize {
		out = out[:b.MaxDictSize]
	}
	return out
}

// link records which selected strings precede and follow each other.
func (b *builder) link(selected []candidate) {
	want := make(map[uint32]struct{}, len(selected))
	for _, c := range selected {
		want[c.hash] = struct{}{}
	}
	hb := b.HashBytes
	b.entries = make(map[uint32]entry, len(selected))
	for _, s := range b.samples {
		for i := 0; i+8 <= len(s); i++ {
			h := b.hashAt(s, i)
			if _, ok := want[h]; !ok {
				continue
			}
			e := b.entries[h]
			if e.value == nil {
				e.value = bytes.Clone(s[i : i+hb])
				e.followedBy = make(map[uint32]uint32, 4)
				e.precededBy = make(map[uint32]uint32, 4)
			}
			if i+hb+8 <= len(s) {
				if next := b.hashAt(s, i+hb); hasKey(want, next) {
					e.followedBy[next]++
				}
			}
			if i >= hb {
				if prev := b.hashAt(s, i-hb); hasKey(want, prev) {
					e.precededBy[prev]++
				}
			}
			b.entries[h] = e
		}
	}
}

func hasKey(m map[uint32]struct{}, k uint32) bool {
	_, ok := m[k]
	return ok
}

// best returns the most frequent neighbour that is still unused.
func (b *builder) best(neighbours map[uint32]uint32) (candidate, bool) {
	var found candidate
	ok := false
	for h, n := range neighbours {
		if _, unused := b.entries[h]; !unused {
			continue
		}
		c := candidate{hash: h, n: n, offset: b.offsets[h]}
		if !ok || c.n > found.n || (c.n == found.n && c.offset > found.offset) {
			found, ok = c, true
		}
	}
	return found, ok
}

// chain grows each selected string with its most frequent neighbours
// and returns the pieces, most common first.
func (b *builder) chain(selected []candidate) [][]byte {
	hb := b.HashBytes
	lowest := selected[len(selected)-1].n
	var pieces [][]byte
	added := 0
	for _, c := range selected {
		if added > b.MaxDictSize {
			break
		}
		e, ok := b.entries[c.hash]
		if !ok {
			continue
		}
		cutoff := max(c.n/uint32(hb)/4, lowest)

		piece := make([]byte, 0, hb*4)
		if p, ok := b.best(e.precededBy); ok && p.n >= cutoff {
			piece = append(piece, b.entries[p.hash].value...)
		}
		piece = append(piece, e.value...)
		delete(b.entries, c.hash)

		for {
			next, ok := b.best(e.followedBy)
			if !ok {
				break
			}
			e = b.entries[next.hash]
			b.forget(append(piece[len(piece)-hb:len(piece):len(piece)], e.value...))
			piece = append(piece, e.value...)
			if next.n < cutoff {
				break
			}
		}
		b.forget(piece)
		b.printf("piece %d: %q (%d samples)\n", len(pieces), piece, c.n)
		pieces = append(pieces, piece)
		added += len(piece)
	}
	return pieces
}

// forget removes every string contained in s from the unused entries.
func (b *builder) forget(s []byte) {
	if len(s) < b.HashBytes {
		return
	}
	var tmp [8]byte
	for i := 0; i+b.HashBytes <= len(s); i++ {
		tmp = [8]byte{}
		copy(tmp[:], s[i:])
		delete(b.entries, hashLen(le.Load64(tmp[:], 0), 32, uint8(b.HashBytes)))
	}
}

// assemble crops pieces to the dictionary size and writes them
// least common first.
func (b *builder) assemble(pieces [][]byte) []byte {
	size := 0
	for i, p := range pieces {
		if size+len(p) >= b.MaxDictSize {
			pieces[i] = p[:b.MaxDictSize-size]
			pieces = pieces[:i+1]
			break
		}
		size += len(p)
	}
	out := make([]byte, 0, b.MaxDictSize)
	for i := len(pieces) - 1; i >= 0; i-- {
		out = append(out, pieces[i]...)
	}
	return out
}

// Stats compares compressed sizes of samples with and without a dictionary.
type Stats struct {
	Input    int64
	Plain    int64
	WithDict int64
}

// Measure compresses every sample as a separate zlib stream at level,
// once without and once with dict.
func Measure(dict []byte, samples [][]byte, level int) (Stats, error) {
	var st Stats
	plain, err := flate.NewDeflater(flate.WithEncoderFormat(flate.FormatZlib), flate.WithEncoderLevel(level))
	if err != nil {
		return st, err
	}
	defer plain.End()
	withDict, err := flate.NewDeflater(flate.WithEncoderFormat(flate.FormatZlib), flate.WithEncoderLevel(level),
		flate.WithEncoderDict(dict))
	if err != nil {
		return st, err
	}
	defer withDict.End()

	var buf []byte
	for _, s := range samples {
		st.Input += int64(len(s))
		for _, d := range []*flate.Deflater{plain, withDict} {
			if err := d.Reset(); err != nil {
				return st, err
			}
			if n := d.Bound(len(s)); cap(buf) < n {
				buf = make([]byte, n)
			}
			res, err := d.Deflate(buf[:cap(buf)], s, flate.FinishFlush)
			if err != nil {
				return st, err
			}
			if d == plain {
				st.Plain += int64(res.Written)
			} else {
				st.WithDict += int64(res.Written)
			}
		}
	}
	return st, nil
}

const (
	prime5bytes = 889523592379
	prime6bytes = 227718039650203
	prime7bytes = 58295818150454627
	prime8bytes = 0xcf1bbcdcb7a56463
)

// hashLen returns a hash of the lowest l bytes of u for a size size of h bytes.
// l must be >=4 and <=8. Any other value will return hash for 4 bytes.
// h should always be <32.
// LENGTH 4 is passed straight through
func hashLen(u uint64, hashLog, mls uint8) uint32 {
	switch mls {
	case 5:
		return uint32(((u << (64 - 40)) * prime5bytes) >> ((64 - hashLog) & 63))
	case 6:
		return uint32(((u << (64 - 48)) * prime6bytes) >> ((64 - hashLog) & 63))
	case 7:
		return uint32(((u << (64 - 56)) * prime7bytes) >> ((64 - hashLog) & 63))
	case 8:
		return uint32((u * prime8bytes) >> ((64 - hashLog) & 63))
	default:
		return uint32(u)
	}
}
