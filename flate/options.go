// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"fmt"
	"strconv"
)

// Format selects the container wrapped around the DEFLATE data.
type Format uint8

const (
	// FormatRaw is bare DEFLATE data with no header or trailer.
	FormatRaw Format = iota
	// FormatZlib is RFC 1950: 2 byte header, Adler-32 trailer.
	FormatZlib
	// FormatGzip is RFC 1952: gzip header, CRC-32 and length trailer.
	FormatGzip
	// FormatAuto detects zlib, gzip or raw data. Decoding only.
	FormatAuto
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatZlib:
		return "zlib"
	case FormatGzip:
		return "gzip"
	case FormatAuto:
		return "auto"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// Strategy tunes the match finder for particular kinds of input.
type Strategy uint8

const (
	// StrategyDefault is normal LZ77 with Huffman coding.
	StrategyDefault Strategy = iota
	// StrategyFiltered rejects matches shorter than 6 bytes,
	// which suits small values with a random distribution.
	StrategyFiltered
	// StrategyHuffmanOnly emits literals only.
	StrategyHuffmanOnly
	// StrategyRLE only looks for matches at distance 1.
	StrategyRLE
	// StrategyFixed never emits dynamic Huffman tables.
	StrategyFixed
)

func (s Strategy) String() string {
	switch s {
	case StrategyDefault:
		return "default"
	case StrategyFiltered:
		return "filtered"
	case StrategyHuffmanOnly:
		return "huffman-only"
	case StrategyRLE:
		return "rle"
	case StrategyFixed:
		return "fixed"
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// Flush controls how much of the buffered data a call must emit.
type Flush uint8

const (
	// NoFlush lets the compressor decide how much to buffer.
	NoFlush Flush = iota
	// PartialFlush completes the current block and emits an empty
	// fixed block, leaving the output unaligned.
	PartialFlush
	// SyncFlush completes the current block and emits an empty stored
	// block, aligning the output to a byte boundary.
	SyncFlush
	// FullFlush is SyncFlush that also resets the match history, so
	// decoding can restart at this point.
	FullFlush
	// FinishFlush completes the stream.
	// For decoding it declares that no more input follows.
	FinishFlush
	// BlockFlush completes the current block without a marker.
	BlockFlush
)

// rank orders flush modes by how much they force out.
func (f Flush) rank() int {
	if f == BlockFlush {
		return 1
	}
	return int(f) * 2
}

func (f Flush) valid() bool {
	return f <= BlockFlush
}

func (f Flush) String() string {
	switch f {
	case NoFlush:
		return "none"
	case PartialFlush:
		return "partial"
	case SyncFlush:
		return "sync"
	case FullFlush:
		return "full"
	case FinishFlush:
		return "finish"
	case BlockFlush:
		return "block"
	}
	return "Flush(" + strconv.Itoa(int(f)) + ")"
}

// Status reports why a Deflate or Inflate call returned.
// Suspension is never an error.
type Status uint8

const (
	// StatusNeedInput means all input was consumed and more is needed.
	StatusNeedInput Status = iota
	// StatusNeedOutput means dst was filled and output is still pending.
	StatusNeedOutput
	// StatusStreamEnd means the stream is complete.
	StatusStreamEnd
	// StatusNeedDict means a zlib stream asks for a preset dictionary.
	StatusNeedDict
)

func (s Status) String() string {
	switch s {
	case StatusNeedInput:
		return "need-input"
	case StatusNeedOutput:
		return "need-output"
	case StatusStreamEnd:
		return "stream-end"
	case StatusNeedDict:
		return "need-dict"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Result is the outcome of a single Deflate or Inflate call.
type Result struct {
	Read    int // Bytes consumed from src.
	Written int // Bytes written to dst.
	Status  Status
}

// Allocator supplies the large buffers of a stream.
// Alloc must return a slice of length n or an error.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(n int) ([]byte, error) { return make([]byte, n), nil }
func (heapAllocator) Free([]byte)                 {}

func alloc(a Allocator, n int) ([]byte, error) {
	b, err := a.Alloc(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemory, err)
	}
	if len(b) != n {
		a.Free(b)
		return nil, fmt.Errorf("%w: allocator returned %d bytes, want %d", ErrMemory, len(b), n)
	}
	return b, nil
}

const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = -1

	minWindowBits   = 8
	maxWindowBits   = 15
	defaultMemLevel = 8
	maxMemLevel     = 9
)

// Tuning holds the match finder parameters of a compression level.
// For levels 1 to 3 Lazy is the longest match whose positions are
// all inserted into the hash chains. For higher levels it is the match
// length above which lazy evaluation is skipped.
type Tuning struct {
	Good  int // Reduce the chain search when the current match is this long.
	Lazy  int
	Nice  int // Stop searching when a match is this long.
	Chain int // Maximum hash chain length walked.
}

// DefaultTuning returns the parameters used for level.
func DefaultTuning(level int) Tuning {
	if level == DefaultCompression {
		level = 6
	}
	if level < 0 || level >= len(levels) {
		return Tuning{}
	}
	l := levels[level]
	t := Tuning{Good: l.good, Lazy: l.lazy, Nice: l.nice, Chain: l.chain}
	if l.fastSkipHashing != skipNever {
		t.Lazy = l.fastSkipHashing
	}
	return t
}

func (t Tuning) validate() error {
	if t.Good < 0 || t.Lazy < 0 || t.Nice < 0 || t.Chain < 0 {
		return fmt.Errorf("%w: negative tuning value %+v", ErrInvalidParam, t)
	}
	if t.Nice > maxMatchLength || t.Lazy > maxMatchLength || t.Good > maxMatchLength {
		return fmt.Errorf("%w: tuning length above %d: %+v", ErrInvalidParam, maxMatchLength, t)
	}
	return nil
}

func validLevel(level int) bool {
	return level == DefaultCompression || (level >= NoCompression && level <= BestCompression)
}

// EOption is an option for creating a Deflater or Writer.
type EOption func(*encoderOptions) error

type encoderOptions struct {
	format     Format
	level      int
	strategy   Strategy
	windowBits int
	memLevel   int
	tuning     *Tuning
	alloc      Allocator
	dict       []byte
	header     *Header
}

func (o *encoderOptions) setDefault() {
	*o = encoderOptions{
		format:     FormatRaw,
		level:      DefaultCompression,
		windowBits: maxWindowBits,
		memLevel:   defaultMemLevel,
		alloc:      heapAllocator{},
	}
}

// validate checks the combination of options.
func (o *encoderOptions) validate() error {
	if o.format == FormatGzip && o.dict != nil {
		return fmt.Errorf("%w: gzip has no preset dictionary", ErrDictionaryNotAllowed)
	}
	if o.header != nil && o.format != FormatGzip {
		return fmt.Errorf("%w: %v stream", ErrHeaderNotAllowed, o.format)
	}
	return nil
}

// WithEncoderFormat selects the container written around the data.
// FormatAuto is not valid for encoding.
func WithEncoderFormat(f Format) EOption {
	return func(o *encoderOptions) error {
		if f > FormatGzip {
			return fmt.Errorf("%w: encoder format %v", ErrInvalidParam, f)
		}
		o.format = f
		return nil
	}
}

// WithEncoderLevel sets the compression level, 0 to 9 or DefaultCompression.
func WithEncoderLevel(level int) EOption {
	return func(o *encoderOptions) error {
		if !validLevel(level) {
			return fmt.Errorf("%w: level %d", ErrInvalidParam, level)
		}
		o.level = level
		return nil
	}
}

// WithEncoderStrategy sets the compression strategy.
func WithEncoderStrategy(s Strategy) EOption {
	return func(o *encoderOptions) error {
		if s > StrategyFixed {
			return fmt.Errorf("%w: strategy %v", ErrInvalidParam, s)
		}
		o.strategy = s
		return nil
	}
}

// WithEncoderWindow sets the base two logarithm of the window size, 8 to 15.
// A window of 8 bits is written as 9 bits.
func WithEncoderWindow(bits int) EOption {
	return func(o *encoderOptions) error {
		if bits < minWindowBits || bits > maxWindowBits {
			return fmt.Errorf("%w: window bits %d", ErrInvalidParam, bits)
		}
		o.windowBits = bits
		return nil
	}
}

// WithEncoderMemLevel sets the memory level, 1 to 9.
// It sizes the hash table and the number of symbols per block.
func WithEncoderMemLevel(level int) EOption {
	return func(o *encoderOptions) error {
		if level < 1 || level > maxMemLevel {
			return fmt.Errorf("%w: memory level %d", ErrInvalidParam, level)
		}
		o.memLevel = level
		return nil
	}
}

// WithEncoderTuning overrides the match finder parameters of the level.
func WithEncoderTuning(t Tuning) EOption {
	return func(o *encoderOptions) error {
		if err := t.validate(); err != nil {
			return err
		}
		o.tuning = &t
		return nil
	}
}

// WithEncoderAllocator sets the allocator used for the window buffer.
func WithEncoderAllocator(a Allocator) EOption {
	return func(o *encoderOptions) error {
		if a == nil {
			a = heapAllocator{}
		}
		o.alloc = a
		return nil
	}
}

// WithEncoderDict sets a preset dictionary.
// Not valid for gzip.
func WithEncoderDict(dict []byte) EOption {
	return func(o *encoderOptions) error {
		o.dict = append([]byte(nil), dict...)
		return nil
	}
}

// WithEncoderHeader sets the gzip header fields.
func WithEncoderHeader(h Header) EOption {
	return func(o *encoderOptions) error {
		if err := h.validate(); err != nil {
			return err
		}
		hh := h.clone()
		o.header = &hh
		return nil
	}
}

// DOption is an option for creating an Inflater or Reader.
type DOption func(*decoderOptions) error

type decoderOptions struct {
	format         Format
	windowBits     int
	alloc          Allocator
	dict           []byte
	ignoreChecksum bool
	multistream    bool
}

func (o *decoderOptions) setDefault() {
	*o = decoderOptions{
		format:      FormatRaw,
		windowBits:  maxWindowBits,
		alloc:       heapAllocator{},
		multistream: true,
	}
}

// WithDecoderFormat selects the expected container.
func WithDecoderFormat(f Format) DOption {
	return func(o *decoderOptions) error {
		if f > FormatAuto {
			return fmt.Errorf("%w: decoder format %v", ErrInvalidParam, f)
		}
		o.format = f
		return nil
	}
}

// WithDecoderWindow sets the base two logarithm of the largest
// window accepted, 8 to 15.
func WithDecoderWindow(bits int) DOption {
	return func(o *decoderOptions) error {
		if bits < minWindowBits || bits > maxWindowBits {
			return fmt.Errorf("%w: window bits %d", ErrInvalidParam, bits)
		}
		o.windowBits = bits
		return nil
	}
}

// WithDecoderAllocator sets the allocator used for the history buffer.
func WithDecoderAllocator(a Allocator) DOption {
	return func(o *decoderOptions) error {
		if a == nil {
			a = heapAllocator{}
		}
		o.alloc = a
		return nil
	}
}

// WithDecoderDict sets a preset dictionary.
// Raw streams start with it as history. Zlib streams use it
// when the header asks for a dictionary with a matching identifier.
func WithDecoderDict(dict []byte) DOption {
	return func(o *decoderOptions) error {
		o.dict = append([]byte(nil), dict...)
		return nil
	}
}

// WithDecoderIgnoreChecksum skips verification of the trailer checksum.
func WithDecoderIgnoreChecksum(b bool) DOption {
	return func(o *decoderOptions) error {
		o.ignoreChecksum = b
		return nil
	}
}

// WithDecoderMultistream makes Reader continue with the next gzip
// member after a member ends. Default is true.
func WithDecoderMultistream(b bool) DOption {
	return func(o *decoderOptions) error {
		o.multistream = b
		return nil
	}
}
