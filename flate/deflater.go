// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/zflate/checksum"
)

type deflateState uint8

const (
	deflateInit      deflateState = iota // header not written
	deflateBusy                          // accepting input
	deflateFinishing                     // trailer queued, output pending
	deflateFinished
	deflateEnded
)

// Deflater is a streaming compressor.
// Input is supplied and output is collected through caller owned
// slices; the Deflater never blocks and never writes more than fits
// in the destination. Pending output is kept until the next call.
//
// A Deflater must not be used concurrently.
type Deflater struct {
	o     encoderOptions
	state deflateState
	c     compressor

	windowBits int
	pendingOff int // drained prefix of c.w.out
	lastFlush  Flush

	check    uint32
	totalIn  int64
	totalOut int64
	hasDict  bool
	dictID   uint32
}

// NewDeflater returns a Deflater configured by opts.
// By default it writes raw DEFLATE data at DefaultCompression.
func NewDeflater(opts ...EOption) (*Deflater, error) {
	d := &Deflater{}
	d.o.setDefault()
	for _, o := range opts {
		if err := o(&d.o); err != nil {
			return nil, err
		}
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init (re)starts the stream with the current options,
// reusing the window if its size is unchanged.
func (d *Deflater) init() error {
	if err := d.o.validate(); err != nil {
		return err
	}
	wbits := max(d.o.windowBits, minWindowBits+1)
	size := 2<<wbits + windowSlack
	window := d.c.window
	if len(window) != size {
		if window != nil {
			d.o.alloc.Free(window)
			d.c.window = nil
		}
		var err error
		window, err = alloc(d.o.alloc, size)
		if err != nil {
			d.state = deflateEnded
			return err
		}
	}
	d.windowBits = wbits
	d.c.init(window, wbits, d.o.memLevel)
	d.c.setLevel(d.o.level, d.o.strategy, d.o.tuning)

	d.state = deflateInit
	d.pendingOff = 0
	d.lastFlush = NoFlush
	d.totalIn, d.totalOut = 0, 0
	d.hasDict, d.dictID = false, 0
	d.check = d.checkInit()
	if d.o.dict != nil {
		if err := d.SetDictionary(d.o.dict); err != nil {
			return err
		}
	}
	return nil
}

// ready reports whether d has buffers: it was made by NewDeflater
// and has not been ended.
func (d *Deflater) ready() bool {
	return d.c.window != nil
}

func (d *Deflater) checkInit() uint32 {
	if d.o.format == FormatGzip {
		return checksum.CRCInit
	}
	return checksum.AdlerInit
}

func (d *Deflater) updateCheck(b []byte) {
	switch d.o.format {
	case FormatZlib:
		d.check = checksum.Adler32(d.check, b)
	case FormatGzip:
		d.check = checksum.CRC32(d.check, b)
	}
}

// Deflate compresses src into dst.
//
// Input is consumed only while there is room for the output it
// produces, so a call may return with src partially read and
// StatusNeedOutput. Call again with the remaining input and a new
// dst to continue. flush applies once all of src has been consumed.
//
// After FinishFlush the call must be repeated with FinishFlush and
// no input until StatusStreamEnd is returned.
func (d *Deflater) Deflate(dst, src []byte, flush Flush) (Result, error) {
	var res Result
	if !d.ready() {
		return res, ErrStreamState
	}
	if !flush.valid() {
		return res, fmt.Errorf("%w: flush %d", ErrInvalidParam, flush)
	}
	switch d.state {
	case deflateFinished:
		return res, ErrStreamState
	case deflateFinishing:
		if len(src) > 0 || flush != FinishFlush {
			return res, fmt.Errorf("%w: stream is finishing", ErrStreamState)
		}
	case deflateInit:
		d.writeHeader()
		d.state = deflateBusy
	}

	d.drain(dst, &res)
	if d.state == deflateBusy {
		for len(src) > 0 && !d.outputBlocked(dst, &res) {
			n := d.c.fill(src)
			d.updateCheck(src[:n])
			d.totalIn += int64(n)
			src = src[n:]
			res.Read += n
			if n > 0 {
				d.lastFlush = NoFlush
			}
			d.c.step(&d.c)
			d.drain(dst, &res)
		}
		if len(src) == 0 {
			d.applyFlush(flush)
			d.drain(dst, &res)
		}
	}

	switch {
	case d.state == deflateFinishing && d.pending() == 0:
		d.state = deflateFinished
		res.Status = StatusStreamEnd
		if debug {
			printf("deflate: stream end, %d bytes in, %d bytes out", d.totalIn, d.totalOut)
		}
	case d.pending() > 0:
		res.Status = StatusNeedOutput
	default:
		res.Status = StatusNeedInput
	}
	return res, nil
}

// outputBlocked returns true when dst is full and output is pending.
func (d *Deflater) outputBlocked(dst []byte, res *Result) bool {
	return res.Written == len(dst) && d.pending() > 0
}

func (d *Deflater) pending() int {
	return len(d.c.w.out) - d.pendingOff
}

// drain moves pending output to dst.
func (d *Deflater) drain(dst []byte, res *Result) {
	n := copy(dst[res.Written:], d.c.w.out[d.pendingOff:])
	res.Written += n
	d.totalOut += int64(n)
	d.pendingOff += n
	if d.pendingOff == len(d.c.w.out) {
		d.c.w.out = d.c.w.out[:0]
		d.pendingOff = 0
	}
}

func (d *Deflater) applyFlush(flush Flush) {
	switch {
	case flush == NoFlush:
		return
	case flush == FinishFlush:
		d.c.flush(true)
		d.c.w.align()
		d.writeTrailer()
		d.state = deflateFinishing
		return
	case flush.rank() <= d.lastFlush.rank():
		// Nothing was added since an equal or stronger flush.
		return
	}
	d.c.flush(false)
	switch flush {
	case PartialFlush:
		d.c.w.writeEmptyFixed()
	case SyncFlush:
		d.c.w.writeStoredHeader(0, false)
	case FullFlush:
		d.c.w.writeStoredHeader(0, false)
		d.c.resetHistory()
	}
	d.c.w.flushBytes()
	d.lastFlush = flush
	if debug {
		printf("deflate: %v flush at %d bytes in", flush, d.totalIn)
	}
}

func (d *Deflater) writeHeader() {
	w := d.c.w
	switch d.o.format {
	case FormatZlib:
		w.out = appendZlibHeader(w.out, d.windowBits, d.o.level, d.o.strategy, d.hasDict, d.dictID)
		d.check = checksum.AdlerInit
	case FormatGzip:
		w.out = appendGzipHeader(w.out, d.o.header, gzipXFL(d.o.level, d.o.strategy))
	}
}

func (d *Deflater) writeTrailer() {
	w := d.c.w
	switch d.o.format {
	case FormatZlib:
		w.out = binary.BigEndian.AppendUint32(w.out, d.check)
	case FormatGzip:
		w.out = binary.LittleEndian.AppendUint32(w.out, d.check)
		w.out = binary.LittleEndian.AppendUint32(w.out, uint32(d.totalIn))
	}
}

// Params changes the compression level and strategy.
// Input buffered under the old parameters is first written as a block,
// whose output is returned by the next Deflate call.
func (d *Deflater) Params(level int, strategy Strategy) error {
	if !d.ready() {
		return ErrStreamState
	}
	switch d.state {
	case deflateFinishing, deflateFinished:
		return ErrStreamState
	}
	if !validLevel(level) {
		return fmt.Errorf("%w: level %d", ErrInvalidParam, level)
	}
	if strategy > StrategyFixed {
		return fmt.Errorf("%w: strategy %v", ErrInvalidParam, strategy)
	}
	if level == d.o.level && strategy == d.o.strategy {
		return nil
	}
	if d.state == deflateBusy && d.c.hasPending() {
		d.c.flush(false)
		d.c.w.flushBytes()
	}
	d.o.level, d.o.strategy = level, strategy
	d.c.setLevel(level, strategy, d.o.tuning)
	return nil
}

// SetDictionary adds dict to the history used for matches.
//
// For zlib it must be called before the first Deflate call; the
// header then identifies the dictionary. Raw streams accept a
// dictionary whenever all input has been processed, for example
// right after a flush. Gzip does not support dictionaries.
func (d *Deflater) SetDictionary(dict []byte) error {
	if !d.ready() {
		return ErrStreamState
	}
	switch d.state {
	case deflateFinishing, deflateFinished:
		return ErrStreamState
	}
	switch d.o.format {
	case FormatGzip:
		return fmt.Errorf("%w: gzip has no preset dictionary", ErrDictionaryNotAllowed)
	case FormatZlib:
		if d.state != deflateInit {
			return fmt.Errorf("%w: zlib header already written", ErrDictionaryNotAllowed)
		}
		if !d.hasDict {
			d.dictID = checksum.AdlerInit
		}
		d.dictID = checksum.Adler32(d.dictID, dict)
		d.hasDict = true
	default:
		if d.c.index != d.c.windowEnd || d.c.byteAvailable {
			return fmt.Errorf("%w: unprocessed input is buffered", ErrDictionaryNotAllowed)
		}
	}
	d.c.fillDict(dict)
	return nil
}

// GetDictionary returns a copy of up to one window of the most recent input.
func (d *Deflater) GetDictionary() ([]byte, error) {
	if !d.ready() {
		return nil, ErrStreamState
	}
	return append([]byte(nil), d.c.history()...), nil
}

// SetHeader sets the gzip header fields.
// It must be called before the first Deflate call.
func (d *Deflater) SetHeader(h *Header) error {
	if !d.ready() {
		return ErrStreamState
	}
	if d.o.format != FormatGzip || d.state != deflateInit {
		return ErrHeaderNotAllowed
	}
	if h == nil {
		return fmt.Errorf("%w: nil header", ErrInvalidParam)
	}
	if err := h.validate(); err != nil {
		return err
	}
	hh := h.clone()
	d.o.header = &hh
	return nil
}

// Bound returns an upper bound on the compressed size of n bytes
// compressed in one pass with FinishFlush under the current parameters.
// Extra flushes add the size of their markers.
func (d *Deflater) Bound(n int) int {
	return deflateBound(n, d.windowBits, d.o.memLevel, d.wrapperSize())
}

// Bound returns the Bound of a Deflater for format with the default
// window and memory level, no dictionary and an empty gzip header.
func Bound(n int, format Format) int {
	wrapper := 0
	switch format {
	case FormatZlib:
		wrapper = 2 + 4
	case FormatGzip:
		wrapper = gzipHeaderSize(nil) + 8
	}
	return deflateBound(n, maxWindowBits, defaultMemLevel, wrapper)
}

func (d *Deflater) wrapperSize() int {
	switch d.o.format {
	case FormatZlib:
		if d.hasDict {
			return 2 + 4 + 4
		}
		return 2 + 4
	case FormatGzip:
		return gzipHeaderSize(d.o.header) + 8
	}
	return 0
}

// deflateBound returns the largest output for n input bytes.
// Every block but the last spans at least minBlock input bytes,
// and a block never costs more than storing it: 5 header bytes per
// 65535 bytes plus up to 2 bits of alignment slack.
// A block reaches at most 2 stored blocks.
func deflateBound(n, windowBits, memLevel, wrapper int) int {
	wbits := max(windowBits, minWindowBits+1)
	minBlock := min(1<<(memLevel+6), 1<<wbits-minLookahead-1)
	blocks := n/minBlock + 2
	return n + blocks*11 + 2 + wrapper
}

// TotalIn returns the number of bytes consumed.
func (d *Deflater) TotalIn() int64 { return d.totalIn }

// TotalOut returns the number of bytes produced.
func (d *Deflater) TotalOut() int64 { return d.totalOut }

// Adler returns the running checksum of the input:
// Adler-32 for zlib, CRC-32 for gzip and 1 for raw streams.
func (d *Deflater) Adler() uint32 { return d.check }

// Copy returns an independent Deflater with the same state.
// Both can be continued separately.
func (d *Deflater) Copy() (*Deflater, error) {
	if !d.ready() {
		return nil, ErrStreamState
	}
	window, err := alloc(d.o.alloc, len(d.c.window))
	if err != nil {
		return nil, err
	}
	c := *d
	c.c = d.c.clone(window)
	c.o.dict = append([]byte(nil), d.o.dict...)
	if d.o.header != nil {
		h := d.o.header.clone()
		c.o.header = &h
	}
	if d.o.tuning != nil {
		t := *d.o.tuning
		c.o.tuning = &t
	}
	return &c, nil
}

// Reset discards the stream state and starts a new stream.
// opts are applied on top of the current options.
// Buffers are reused when their sizes do not change.
func (d *Deflater) Reset(opts ...EOption) error {
	if !d.ready() {
		return ErrStreamState
	}
	o := d.o
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return err
		}
	}
	if err := o.validate(); err != nil {
		return err
	}
	d.o = o
	return d.init()
}

// End releases the buffers. Any further call returns ErrStreamState.
func (d *Deflater) End() error {
	if !d.ready() {
		return ErrStreamState
	}
	d.o.alloc.Free(d.c.window)
	d.c = compressor{}
	d.pendingOff = 0
	d.state = deflateEnded
	return nil
}
