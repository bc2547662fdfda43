// Copyright 2009 The Go Authors. All rights reserved.
// Copyright (c) 2015 Klaus Post
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

import (
	"math"

	"github.com/chronos-tachyon/assert"
)

const (
	minMatchLength = 3   // The smallest match that the compressor looks for
	maxMatchLength = 258 // The longest match for the compressor
	minOffsetSize  = 1   // The shortest offset that makes any sense

	// minLookahead is the input kept ahead of the current position so a
	// full length match and one lazy step are always available.
	minLookahead = minMatchLength + maxMatchLength + 1

	// Matches of minimum length farther away than this cost more than
	// the literals they replace.
	tooFar = 4096

	// windowSlack allows 8 byte loads at the end of the window.
	windowSlack = 8

	maxHashOffset = 1 << 24

	skipNever = math.MaxInt32
)

type compressionLevel struct {
	good, lazy, nice, chain, fastSkipHashing int
	level                                    int
}

var levels = []compressionLevel{
	{}, // 0
	// For levels 1-3 we don't bother trying with lazy matches
	{4, 0, 8, 4, 4, 1},
	{4, 0, 16, 8, 5, 2},
	{4, 0, 32, 32, 6, 3},
	// Levels 4-9 use increasingly more lazy matching
	// and increasingly stringent conditions for "good enough".
	{4, 4, 16, 16, skipNever, 4},
	{8, 16, 32, 32, skipNever, 5},
	{8, 16, 128, 128, skipNever, 6},
	{8, 32, 128, 256, skipNever, 7},
	{32, 128, 258, 1024, skipNever, 8},
	{32, 258, 258, 4096, skipNever, 9},
}

// compressor is the LZ77 engine. It turns the bytes in its window into
// tokens and hands complete blocks to the bit writer.
type compressor struct {
	compressionLevel
	strategy Strategy

	w    *huffmanBitWriter
	step func(*compressor) // process window
	sync bool              // requesting flush

	wsize   int
	wmask   int
	maxDist int

	// Input hash chains
	// hashHead[hashValue] contains the largest inputIndex with the specified hash value
	// If hashHead[hashValue] is within the current window, then
	// hashPrev[hashHead[hashValue] & wmask] contains the previous index
	// with the same hash value.
	// Both store index+hashOffset, so 0 is never a valid entry.
	chainHead  int
	hashHead   []uint32
	hashPrev   []uint32
	hashOffset int
	hashShift  uint

	// input window: unprocessed data is window[index:windowEnd]
	index         int
	window        []byte
	windowEnd     int
	blockStart    int  // window index where current tokens start
	histStart     int  // matches never reach before this index
	byteAvailable bool // if true, still need to process window[index-1].

	// queued output tokens
	tokens    tokens
	maxTokens int

	// deflate state
	length         int
	offset         int
	maxInsertIndex int
}

// init prepares d for a new stream.
// window must hold 2<<windowBits + windowSlack bytes.
func (d *compressor) init(window []byte, windowBits, memLevel int) {
	d.wsize = 1 << windowBits
	d.wmask = d.wsize - 1
	d.maxDist = d.wsize - minLookahead
	assert.Assertf(len(window) == 2*d.wsize+windowSlack, "window is %d bytes", len(window))
	d.window = window

	hashBits := memLevel + 7
	d.hashShift = uint(32 - hashBits)
	if len(d.hashHead) != 1<<hashBits {
		d.hashHead = make([]uint32, 1<<hashBits)
	} else {
		clear(d.hashHead)
	}
	if len(d.hashPrev) != d.wsize {
		d.hashPrev = make([]uint32, d.wsize)
	} else {
		clear(d.hashPrev)
	}

	d.maxTokens = 1 << (memLevel + 6)
	if cap(d.tokens.tokens) != d.maxTokens+1 {
		d.tokens = newTokens(d.maxTokens)
	} else {
		d.tokens.Reset()
	}
	if d.w == nil {
		d.w = newHuffmanBitWriter()
	}
	d.w.reset()

	d.sync = false
	d.chainHead = 0
	d.hashOffset = 1
	d.index = 0
	d.windowEnd = 0
	d.blockStart = 0
	d.histStart = 0
	d.byteAvailable = false
	d.length = minMatchLength - 1
	d.offset = 0
}

// setLevel selects the parameters and the step function.
// Any buffered input must have been flushed.
func (d *compressor) setLevel(level int, strategy Strategy, tuning *Tuning) {
	if level == DefaultCompression {
		level = 6
	}
	d.compressionLevel = levels[level]
	if tuning != nil && level > 0 {
		d.good, d.nice, d.chain = tuning.Good, tuning.Nice, tuning.Chain
		if d.fastSkipHashing != skipNever {
			d.fastSkipHashing = tuning.Lazy
		} else {
			d.lazy = tuning.Lazy
		}
	}
	d.strategy = strategy
	switch {
	case level == NoCompression:
		d.step = (*compressor).store
	case strategy == StrategyHuffmanOnly:
		d.step = (*compressor).storeHuff
	case strategy == StrategyRLE:
		d.step = (*compressor).deflateRLE
	default:
		d.step = (*compressor).deflate
	}
}

// clone returns a deep copy of d using window as its window buffer.
func (d *compressor) clone(window []byte) compressor {
	c := *d
	copy(window, d.window)
	c.window = window
	c.hashHead = append([]uint32(nil), d.hashHead...)
	c.hashPrev = append([]uint32(nil), d.hashPrev...)
	c.tokens = d.tokens.clone()
	c.w = d.w.clone()
	return c
}

// hasPending returns true if input has been accepted that is not yet
// part of a written block.
func (d *compressor) hasPending() bool {
	return d.index < d.windowEnd || d.byteAvailable || d.tokens.n() > 0 ||
		(d.level == NoCompression && d.blockStart < d.index)
}

// fill copies as much of b as fits into the window,
// sliding the window first if the read index has reached the upper half.
func (d *compressor) fill(b []byte) int {
	if d.index >= 2*d.wsize-minLookahead {
		d.slide()
	}
	n := copy(d.window[d.windowEnd:2*d.wsize], b)
	d.windowEnd += n
	return n
}

func (d *compressor) slide() {
	if d.blockStart < d.wsize {
		// The pending block starts in the half that is discarded.
		// Write it now, so it can still be stored if that is smaller.
		end := d.index
		if d.byteAvailable {
			end--
		}
		d.writeBlock(end, false)
	}
	// shift the window by wsize
	copy(d.window, d.window[d.wsize:2*d.wsize])
	d.index -= d.wsize
	d.windowEnd -= d.wsize
	d.blockStart -= d.wsize
	d.histStart = max(0, d.histStart-d.wsize)
	assert.Assertf(d.blockStart >= 0, "block start %d after slide", d.blockStart)

	d.hashOffset += d.wsize
	if d.hashOffset > maxHashOffset {
		delta := d.hashOffset - 1
		d.hashOffset -= delta
		d.chainHead -= delta
		for i, v := range d.hashPrev {
			if int(v) > delta {
				d.hashPrev[i] = uint32(int(v) - delta)
			} else {
				d.hashPrev[i] = 0
			}
		}
		for i, v := range d.hashHead {
			if int(v) > delta {
				d.hashHead[i] = uint32(int(v) - delta)
			} else {
				d.hashHead[i] = 0
			}
		}
	}
	if debug {
		printf("window slide: index %d, end %d, block %d", d.index, d.windowEnd, d.blockStart)
	}
}

// writeBlock writes the tokens covering window[blockStart:end].
// Level 0 writes the bytes as stored blocks.
// With eof set a final block is written even if nothing is pending.
func (d *compressor) writeBlock(end int, eof bool) {
	input := d.window[d.blockStart:end]
	d.blockStart = end
	if d.level == NoCompression {
		if len(input) > 0 || eof {
			d.w.writeStored(input, eof)
		}
		return
	}
	if d.tokens.n() == 0 {
		if eof {
			d.w.writeStoredHeader(0, true)
		}
		return
	}
	d.w.writeBlock(&d.tokens, eof, input, d.strategy == StrategyFixed)
	d.tokens.Reset()
}

// flush processes all buffered input and writes it as a block.
func (d *compressor) flush(eof bool) {
	d.sync = true
	d.step(d)
	d.sync = false
	assert.Assert(d.index == d.windowEnd && !d.byteAvailable, "flush left unprocessed input")
	d.writeBlock(d.index, eof)
}

// resetHistory makes all previous input unavailable for matching.
func (d *compressor) resetHistory() {
	clear(d.hashHead)
	d.chainHead = 0
	d.histStart = d.index
}

// insertHash adds position i to the hash chains.
// i must be at most windowEnd-minMatchLength.
func (d *compressor) insertHash(i int) {
	h := d.hash3(i)
	d.chainHead = int(d.hashHead[h])
	d.hashPrev[i&d.wmask] = d.hashHead[h]
	d.hashHead[h] = uint32(i + d.hashOffset)
}

// fillDict adds b to the history without producing output.
// No input may be buffered.
func (d *compressor) fillDict(b []byte) {
	if d.tokens.n() > 0 {
		d.writeBlock(d.index, false)
	}
	for len(b) > 0 {
		if d.index >= 2*d.wsize-minLookahead {
			d.slide()
		}
		start := max(d.histStart, d.index-(minMatchLength-1))
		n := d.fill(b)
		b = b[n:]
		for i := start; i <= d.windowEnd-minMatchLength; i++ {
			d.insertHash(i)
		}
		d.index = d.windowEnd
		d.blockStart = d.index
	}
}

// history returns up to one window of the most recent input.
func (d *compressor) history() []byte {
	return d.window[max(0, d.windowEnd-d.wsize):d.windowEnd]
}

// Try to find a match starting at pos whose length is greater than prevLength.
// We only look at chainCount possibilities before giving up.
func (d *compressor) findMatch(pos int, prevHead int, prevLength int, lookahead int) (length, offset int, ok bool) {
	minMatchLook := min(lookahead, maxMatchLength)

	win := d.window[0 : pos+minMatchLook]

	// We quit when we get a match that's at least nice long
	nice := min(len(win)-pos, d.nice)

	// If we've got a match that's good enough, only look in 1/4 the chain.
	tries := d.chain
	length = prevLength
	if length >= d.good {
		tries >>= 2
	}

	wEnd := win[pos+length]
	wPos := win[pos:]
	minIndex := max(pos-d.maxDist, d.histStart)

	for i := prevHead; tries > 0; tries-- {
		if wEnd == win[i+length] {
			n := matchLen(wPos, win[i:])

			if n > length && (n > minMatchLength || pos-i <= tooFar) {
				length = n
				offset = pos - i
				ok = true
				if n >= nice {
					// The match is good enough that we don't try to find a better one.
					break
				}
				wEnd = win[pos+n]
			}
		}
		if i == minIndex {
			// hashPrev[i & wmask] has already been overwritten, so stop now.
			break
		}
		next := int(d.hashPrev[i&d.wmask]) - d.hashOffset
		if next < minIndex || next >= i {
			break
		}
		i = next
	}
	return
}

// store emits level 0 data. Stored blocks are written when the window
// slides or on a flush.
func (d *compressor) store() {
	d.index = d.windowEnd
}

// storeHuff emits every byte as a literal.
func (d *compressor) storeHuff() {
	for d.index < d.windowEnd {
		d.tokens.AddLiteral(d.window[d.index])
		d.index++
		if d.tokens.n() >= d.maxTokens {
			d.writeBlock(d.index, false)
		}
	}
}

// deflateRLE only looks for runs of the previous byte.
func (d *compressor) deflateRLE() {
	for {
		lookahead := d.windowEnd - d.index
		if lookahead == 0 || (lookahead <= maxMatchLength && !d.sync) {
			return
		}
		length := 0
		if lookahead >= minMatchLength && d.index > d.histStart {
			length = matchRun(d.window[d.index:d.index+min(lookahead, maxMatchLength)], d.window[d.index-1])
		}
		if length >= minMatchLength {
			d.tokens.AddMatch(uint32(length-minMatchLength), 0)
			d.index += length
		} else {
			d.tokens.AddLiteral(d.window[d.index])
			d.index++
		}
		if d.tokens.n() >= d.maxTokens {
			d.writeBlock(d.index, false)
		}
	}
}

// deflate is the hash chain match finder.
// Levels 1-3 take the first acceptable match, higher levels
// check if the next position has a longer match before committing.
func (d *compressor) deflate() {
	if d.windowEnd-d.index < minLookahead && !d.sync {
		return
	}

	d.maxInsertIndex = d.windowEnd - (minMatchLength - 1)

Loop:
	for {
		assert.Assertf(d.index <= d.windowEnd, "index %d > windowEnd %d", d.index, d.windowEnd)
		lookahead := d.windowEnd - d.index
		if lookahead < minLookahead {
			if !d.sync {
				break Loop
			}
			if lookahead == 0 {
				// Flush current output block if any.
				if d.byteAvailable {
					// There is still one pending token that needs to be flushed
					d.tokens.AddLiteral(d.window[d.index-1])
					d.byteAvailable = false
				}
				break Loop
			}
		}
		if d.index < d.maxInsertIndex {
			d.insertHash(d.index)
		} else {
			d.chainHead = 0
		}
		prevLength := d.length
		prevOffset := d.offset
		d.length = minMatchLength - 1
		d.offset = 0
		minIndex := max(d.index-d.maxDist, d.histStart)

		if d.chainHead-d.hashOffset >= minIndex &&
			(d.fastSkipHashing != skipNever && lookahead > minMatchLength-1 ||
				d.fastSkipHashing == skipNever && lookahead > prevLength && prevLength < d.lazy) {
			prev := minMatchLength - 1
			if d.fastSkipHashing == skipNever {
				prev = prevLength
			}
			if newLength, newOffset, ok := d.findMatch(d.index, d.chainHead-d.hashOffset, prev, lookahead); ok {
				d.length = newLength
				d.offset = newOffset
			}
		}
		if d.strategy == StrategyFiltered && d.length < 6 {
			d.length = minMatchLength - 1
		}
		if d.fastSkipHashing != skipNever && d.length >= minMatchLength ||
			d.fastSkipHashing == skipNever && prevLength >= minMatchLength && d.length <= prevLength {
			// There was a match at the previous step, and the current match is
			// not better. Output the previous match.
			if d.fastSkipHashing != skipNever {
				d.tokens.AddMatch(uint32(d.length-minMatchLength), uint32(d.offset-minOffsetSize))
			} else {
				d.tokens.AddMatch(uint32(prevLength-minMatchLength), uint32(prevOffset-minOffsetSize))
			}
			// Insert in the hash table all strings up to the end of the match.
			// index and index-1 are already inserted. If there is not enough
			// lookahead, the last two strings are not inserted into
			// the hash table.
			if d.length <= d.fastSkipHashing {
				var newIndex int
				if d.fastSkipHashing != skipNever {
					newIndex = d.index + d.length
				} else {
					newIndex = d.index + prevLength - 1
				}
				end := min(newIndex, d.maxInsertIndex)
				for i := d.index + 1; i < end; i++ {
					d.insertHash(i)
				}
				d.index = newIndex

				if d.fastSkipHashing == skipNever {
					d.byteAvailable = false
					d.length = minMatchLength - 1
				}
			} else {
				// For matches this long, we don't bother inserting each individual
				// item into the table.
				d.index += d.length
			}
			if d.tokens.n() >= d.maxTokens {
				d.writeBlock(d.index, false)
			}
		} else {
			if d.fastSkipHashing != skipNever || d.byteAvailable {
				i := d.index - 1
				if d.fastSkipHashing != skipNever {
					i = d.index
				}
				d.tokens.AddLiteral(d.window[i])
				if d.tokens.n() >= d.maxTokens {
					d.writeBlock(i+1, false)
				}
			}
			d.index++
			if d.fastSkipHashing == skipNever {
				d.byteAvailable = true
			}
		}
	}
}
