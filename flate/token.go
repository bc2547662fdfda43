// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

const (
	// A token is a literal byte or a match:
	// 2 bits:   type, 0 = literal, 1 = match
	// 8 bits:   xlength = length - minMatchLength
	// 22 bits:  xoffset = offset - minOffsetSize, or the literal
	lengthShift = 22
	offsetMask  = 1<<lengthShift - 1
	typeMask    = 3 << 30
	literalType = 0 << 30
	matchType   = 1 << 30

	// endBlockMarker is the literal/length symbol ending a block.
	endBlockMarker = 256
)

// The length code for length X (minMatchLength <= X <= maxMatchLength)
// is lengthCodes[X - minMatchLength].
var lengthCodes = [256]uint8{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 12, 12,
	13, 13, 13, 13, 14, 14, 14, 14, 15, 15,
	15, 15, 16, 16, 16, 16, 16, 16, 16, 16,
	17, 17, 17, 17, 17, 17, 17, 17, 18, 18,
	18, 18, 18, 18, 18, 18, 19, 19, 19, 19,
	19, 19, 19, 19, 20, 20, 20, 20, 20, 20,
	20, 20, 20, 20, 20, 20, 20, 20, 20, 20,
	21, 21, 21, 21, 21, 21, 21, 21, 21, 21,
	21, 21, 21, 21, 21, 21, 22, 22, 22, 22,
	22, 22, 22, 22, 22, 22, 22, 22, 22, 22,
	22, 22, 23, 23, 23, 23, 23, 23, 23, 23,
	23, 23, 23, 23, 23, 23, 23, 23, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 28,
}

// offsetCodes maps xoffset to its distance code for xoffset < 256.
// Larger offsets use the table shifted by 7 bits.
var offsetCodes = [256]uint32{
	0, 1, 2, 3, 4, 4, 5, 5, 6, 6, 6, 6, 7, 7, 7, 7,
	8, 8, 8, 8, 8, 8, 8, 8, 9, 9, 9, 9, 9, 9, 9, 9,
	10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
	11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11,
	12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
	12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
	13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13,
	13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
}

type token uint32

// tokens holds the symbols of one block along with their histograms,
// which are all the block writer needs to size the Huffman codes.
type tokens struct {
	tokens    []token
	litHist   [256]uint16 // codes 0->255
	extraHist [32]uint16  // codes 256->maxnumlit
	offHist   [32]uint16  // offset codes
}

// newTokens returns a buffer for up to n symbols plus the end of block.
func newTokens(n int) tokens {
	return tokens{tokens: make([]token, 0, n+1)}
}

func (t *tokens) Reset() {
	if len(t.tokens) == 0 {
		return
	}
	t.tokens = t.tokens[:0]
	t.litHist = [256]uint16{}
	t.extraHist = [32]uint16{}
	t.offHist = [32]uint16{}
}

func (t *tokens) n() int {
	return len(t.tokens)
}

func (t *tokens) AddLiteral(lit byte) {
	t.tokens = append(t.tokens, token(lit))
	t.litHist[lit]++
}

// AddMatch adds a match of xlength+minMatchLength bytes at distance
// xoffset+minOffsetSize.
func (t *tokens) AddMatch(xlength uint32, xoffset uint32) {
	t.tokens = append(t.tokens, token(matchType|xlength<<lengthShift|xoffset))
	t.offHist[offsetCode(xoffset)&31]++
	t.extraHist[(1+lengthCodes[uint8(xlength)])&31]++
}

func (t *tokens) AddEOB() {
	t.tokens = append(t.tokens, token(endBlockMarker))
	t.extraHist[0]++
}

func (t *tokens) Slice() []token {
	return t.tokens
}

// clone returns a copy that shares no memory with t.
func (t *tokens) clone() tokens {
	c := *t
	c.tokens = make([]token, len(t.tokens), cap(t.tokens))
	copy(c.tokens, t.tokens)
	return c
}

// Returns the type of a token
func (t token) typ() uint32 { return uint32(t) & typeMask }

// Returns the literal of a literal token
func (t token) literal() uint8 { return uint8(t) }

// Returns the extra offset of a match token
func (t token) offset() uint32 { return uint32(t) & offsetMask }

func (t token) length() uint8 { return uint8(t >> lengthShift) }

// The code is never more than 8 bits, but is returned as uint32 for convenience.
func lengthCode(len uint8) uint32 { return uint32(lengthCodes[len]) }

// Returns the offset code corresponding to a specific offset
func offsetCode(off uint32) uint32 {
	if off < uint32(len(offsetCodes)) {
		return offsetCodes[uint8(off)]
	}
	return offsetCodes[uint8(off>>7)] + 14
}
