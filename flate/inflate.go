// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/klauspost/zflate/checksum"
)

type inflateMode uint8

const (
	modeHead      inflateMode = iota // nothing read yet
	modeDetect                       // peek at the first two bytes
	modeZlib                         // zlib CMF and FLG
	modeDictID                       // zlib dictionary identifier
	modeDict                         // waiting for SetDictionary
	modeGzip                         // gzip header, see gzipState
	modeBlock                        // block header
	modeStoredLen                    // stored block LEN and NLEN
	modeStored                       // stored block payload
	modeTable                        // dynamic block code counts
	modeCodeLens                     // code length code lengths
	modeLens                         // literal/length and distance code lengths
	modeLen                          // literal or length with extra bits
	modeDist                         // distance with extra bits
	modeCopy                         // match copy in progress
	modeCheck                        // trailer
	modeDone
	modeSync // searching for a flush marker
	modeBad  // sticky data error
)

type gzipState uint8

const (
	gzFlags gzipState = iota
	gzTime
	gzXflOS
	gzExtraLen
	gzExtra
	gzName
	gzComment
	gzHCRC
)

// detectResult is the container guessed from the first two bytes.
type detectResult uint8

const (
	detectRaw detectResult = iota
	detectZlib
	detectGzip
)

// detect guesses the container from the first two bytes of a stream.
// A raw stream passes the zlib check about once in 500 streams.
func detect(b0, b1 byte) detectResult {
	switch {
	case b0 == gzipID1 && b1 == gzipID2:
		return detectGzip
	case b0&0x0f == zlibDeflate && b0>>4 <= maxWindowBits-8 && (uint16(b0)<<8|uint16(b1))%31 == 0:
		return detectZlib
	}
	return detectRaw
}

// errNeedInput is returned internally when src is exhausted.
var errNeedInput = errors.New("need input")

// Inflater is a streaming decompressor.
// Like Deflater it reads and writes caller owned slices and keeps
// its own state between calls.
//
// An Inflater must not be used concurrently.
type Inflater struct {
	o      decoderOptions
	format Format // configured, or detected when FormatAuto
	mode   inflateMode
	err    error

	// Input bits. Bytes are pulled from in one at a time.
	in    []byte
	inLen int
	hold  uint64
	nb    uint

	win    dictDecoder
	toRead []byte // decoded bytes not yet copied to the caller

	final    bool
	fixed    bool
	h1, h2   huffmanDecoder
	bits     [maxNumLit + maxNumDist]int
	codebits [numCodes]int
	nlit     int
	ndist    int
	nclen    int
	idx      int
	copyLen  int
	copyDist int

	gz        gzipState
	gzFlags   byte
	hcrc      uint32
	remaining int
	str       []byte
	header    Header
	hasHeader bool

	dictID    uint32
	check     uint32
	outCount  int64 // bytes decoded in the current stream
	skipCheck bool
	syncHave  int

	totalIn  int64
	totalOut int64
}

// NewInflater returns an Inflater configured by opts.
// By default it reads raw DEFLATE data with a 32 KiB window.
func NewInflater(opts ...DOption) (*Inflater, error) {
	f := &Inflater{}
	f.o.setDefault()
	for _, o := range opts {
		if err := o(&f.o); err != nil {
			return nil, err
		}
	}
	if err := f.init(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Inflater) init() error {
	size := 1 << f.o.windowBits
	hist := f.win.hist
	if len(hist) != size {
		if hist != nil {
			f.o.alloc.Free(hist)
			f.win.hist = nil
		}
		var err error
		hist, err = alloc(f.o.alloc, size)
		if err != nil {
			return err
		}
	}
	f.win.init(hist)
	f.format = f.o.format
	f.mode = modeHead
	f.err = nil
	f.in, f.inLen = nil, 0
	f.hold, f.nb = 0, 0
	f.toRead = nil
	f.final, f.fixed = false, false
	f.gz, f.gzFlags, f.hcrc = gzFlags, 0, 0
	f.str = f.str[:0]
	f.header, f.hasHeader = Header{}, false
	f.dictID = 0
	f.check = checksum.AdlerInit
	f.outCount = 0
	f.skipCheck = false
	f.syncHave = 0
	f.totalIn, f.totalOut = 0, 0
	if f.format == FormatRaw && f.o.dict != nil {
		f.win.AddHistory(f.o.dict)
	}
	return nil
}

// Inflate decompresses src into dst.
//
// It returns StatusNeedInput when src has been consumed,
// StatusNeedOutput when dst is full and StatusStreamEnd once the
// trailer has been verified. StatusNeedDict asks for SetDictionary.
// With FinishFlush an incomplete stream returns ErrTruncated.
//
// Data errors are sticky. Sync can be used to skip ahead.
func (f *Inflater) Inflate(dst, src []byte, flush Flush) (res Result, err error) {
	if !f.ready() {
		return res, ErrStreamState
	}
	if !flush.valid() {
		return res, fmt.Errorf("%w: flush %d", ErrInvalidParam, flush)
	}
	if f.mode == modeBad {
		return res, f.err
	}
	if f.mode == modeSync {
		return res, fmt.Errorf("%w: no sync point found yet", ErrStreamState)
	}
	f.in, f.inLen = src, len(src)
	defer func() {
		res.Read = f.inLen - len(f.in)
		f.totalIn += int64(res.Read)
		f.in, f.inLen = nil, 0
	}()

	needInput := false
	for {
		if len(f.toRead) > 0 {
			n := copy(dst[res.Written:], f.toRead)
			f.toRead = f.toRead[n:]
			res.Written += n
			f.totalOut += int64(n)
			if len(f.toRead) > 0 {
				res.Status = StatusNeedOutput
				return res, nil
			}
		}
		switch {
		case f.mode == modeDone:
			res.Status = StatusStreamEnd
			return res, nil
		case f.mode == modeDict:
			res.Status = StatusNeedDict
			return res, nil
		case needInput:
			res.Status = StatusNeedInput
			if flush == FinishFlush {
				return res, ErrTruncated
			}
			return res, nil
		}
		err = f.run()
		switch {
		case err == errNeedInput:
			f.flushHist()
			needInput = true
		case err != nil:
			if debug {
				println("inflate:", err)
			}
			f.err = err
			f.mode = modeBad
			return res, err
		}
	}
}

// ready reports whether f has a history buffer: it was made by
// NewInflater and has not been ended.
func (f *Inflater) ready() bool {
	return f.win.hist != nil
}

// offset returns the stream position of the next input byte.
func (f *Inflater) offset() int64 {
	return f.totalIn + int64(f.inLen-len(f.in))
}

func (f *Inflater) corrupt() error {
	return CorruptInputError(f.offset())
}

// needBits makes sure at least n bits are held.
func (f *Inflater) needBits(n uint) bool {
	for f.nb < n {
		if len(f.in) == 0 {
			return false
		}
		f.hold |= uint64(f.in[0]) << f.nb
		f.in = f.in[1:]
		f.nb += 8
	}
	return true
}

func (f *Inflater) peekBits(n uint) uint32 {
	return uint32(f.hold & (1<<n - 1))
}

func (f *Inflater) drop(n uint) {
	f.hold >>= n
	f.nb -= n
}

// headerBytes consumes n <= 4 bytes as a little endian value
// and adds them to the header CRC.
func (f *Inflater) headerBytes(n uint) (uint32, bool) {
	if !f.needBits(8 * n) {
		return 0, false
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(f.hold))
	f.hcrc = checksum.CRC32(f.hcrc, b[:n])
	v := f.peekBits(8 * n)
	f.drop(8 * n)
	return v, true
}

// peekSym decodes the next symbol with h without consuming it.
// ok is false when more input is needed.
func (f *Inflater) peekSym(h *huffmanDecoder) (sym int, n uint, ok bool, err error) {
	// Since a huffmanDecoder can be empty or be composed of a degenerate tree
	// with single element, huffSym must error on these two edge cases. In both
	// cases, the chunks slice will be 0 for the invalid sequence, leading it
	// satisfy the n == 0 check below.
	n = uint(h.min)
	for {
		if !f.needBits(n) {
			return 0, 0, false, nil
		}
		chunk := h.chunks[f.hold&(huffmanNumChunks-1)]
		n = uint(chunk & huffmanCountMask)
		if n > huffmanChunkBits {
			chunk = h.links[chunk>>huffmanValueShift][(f.hold>>huffmanChunkBits)&uint64(h.linkMask)]
			n = uint(chunk & huffmanCountMask)
		}
		if n <= f.nb {
			if n == 0 {
				return 0, 0, false, f.corrupt()
			}
			return int(chunk >> huffmanValueShift), n, true, nil
		}
	}
}

// flushHist hands decoded bytes to toRead and updates the checksum.
// toRead must be empty.
func (f *Inflater) flushHist() {
	if f.win.AvailRead() == 0 {
		return
	}
	f.toRead = f.win.ReadFlush()
	f.outCount += int64(len(f.toRead))
	switch f.format {
	case FormatZlib:
		f.check = checksum.Adler32(f.check, f.toRead)
	case FormatGzip:
		f.check = checksum.CRC32(f.check, f.toRead)
	}
}

func (f *Inflater) setFormat(format Format) {
	f.format = format
	switch format {
	case FormatRaw:
		f.mode = modeBlock
		if f.o.format == FormatAuto && f.o.dict != nil {
			f.win.AddHistory(f.o.dict)
		}
	case FormatZlib:
		f.mode = modeZlib
		f.check = checksum.AdlerInit
	case FormatGzip:
		f.mode = modeGzip
		f.gz = gzFlags
		f.hcrc = checksum.CRCInit
		f.check = checksum.CRCInit
	}
}

// run advances the state machine. It returns nil when decoded output is
// waiting in toRead or the stream needs a dictionary or is done, and
// errNeedInput when src is exhausted.
func (f *Inflater) run() error {
	for {
		switch f.mode {
		case modeHead:
			if f.format == FormatAuto {
				f.mode = modeDetect
				continue
			}
			f.setFormat(f.format)

		case modeDetect:
			if !f.needBits(16) {
				return errNeedInput
			}
			switch detect(byte(f.hold), byte(f.hold>>8)) {
			case detectGzip:
				f.setFormat(FormatGzip)
			case detectZlib:
				f.setFormat(FormatZlib)
			default:
				f.setFormat(FormatRaw)
			}
			if debug {
				println("inflate: detected", f.format.String())
			}

		case modeZlib:
			if !f.needBits(16) {
				return errNeedInput
			}
			cmf, flg := byte(f.hold), byte(f.hold>>8)
			if err := checkZlibHeader(cmf, flg, f.o.windowBits); err != nil {
				return err
			}
			f.drop(16)
			if flg&zlibFDict != 0 {
				f.mode = modeDictID
			} else {
				f.mode = modeBlock
			}

		case modeDictID:
			if !f.needBits(32) {
				return errNeedInput
			}
			f.dictID = bits.ReverseBytes32(uint32(f.hold))
			f.drop(32)
			f.mode = modeDict
			if f.o.dict != nil && checksum.Adler32(checksum.AdlerInit, f.o.dict) == f.dictID {
				f.win.AddHistory(f.o.dict)
				f.mode = modeBlock
			}

		case modeDict:
			return nil

		case modeGzip:
			if err := f.gzipHeader(); err != nil {
				return err
			}

		case modeBlock:
			if f.final {
				f.mode = modeCheck
				continue
			}
			if !f.needBits(3) {
				return errNeedInput
			}
			f.final = f.hold&1 == 1
			typ := f.peekBits(3) >> 1
			f.drop(3)
			switch typ {
			case 0:
				f.drop(f.nb & 7)
				f.mode = modeStoredLen
			case 1:
				f.fixed = true
				f.mode = modeLen
			case 2:
				f.fixed = false
				f.mode = modeTable
			default:
				if debug {
					println("inflate: reserved block type")
				}
				return f.corrupt()
			}

		case modeStoredLen:
			if !f.needBits(32) {
				return errNeedInput
			}
			n := uint16(f.hold)
			nn := uint16(f.hold >> 16)
			if nn != ^n {
				if debug {
					println("inflate: stored length", n, "complement", nn)
				}
				return f.corrupt()
			}
			f.drop(32)
			f.copyLen = int(n)
			f.mode = modeStored

		case modeStored:
			for f.copyLen > 0 && f.nb >= 8 {
				if f.win.AvailWrite() == 0 {
					f.flushHist()
					return nil
				}
				f.win.writeByte(byte(f.hold))
				f.drop(8)
				f.copyLen--
			}
			for f.copyLen > 0 {
				if f.win.AvailWrite() == 0 {
					f.flushHist()
					return nil
				}
				if len(f.in) == 0 {
					return errNeedInput
				}
				n := min(f.copyLen, f.win.AvailWrite(), len(f.in))
				copy(f.win.WriteSlice(), f.in[:n])
				f.win.WriteMark(n)
				f.in = f.in[n:]
				f.copyLen -= n
			}
			f.mode = modeBlock

		case modeTable:
			if !f.needBits(14) {
				return errNeedInput
			}
			f.nlit = int(f.peekBits(5)) + 257
			f.ndist = int(f.peekBits(10)>>5) + 1
			f.nclen = int(f.peekBits(14)>>10) + 4
			if f.nlit > maxNumLit || f.ndist > maxNumDist {
				if debug {
					println("inflate: nlit", f.nlit, "ndist", f.ndist)
				}
				return f.corrupt()
			}
			f.drop(14)
			f.idx = 0
			f.mode = modeCodeLens

		case modeCodeLens:
			for ; f.idx < f.nclen; f.idx++ {
				if !f.needBits(3) {
					return errNeedInput
				}
				f.codebits[codegenOrder[f.idx]] = int(f.peekBits(3))
				f.drop(3)
			}
			for i := f.nclen; i < len(codegenOrder); i++ {
				f.codebits[codegenOrder[i]] = 0
			}
			if !f.h1.init(f.codebits[:]) {
				return f.corrupt()
			}
			f.idx = 0
			f.mode = modeLens

		case modeLens:
			if err := f.readLens(); err != nil {
				return err
			}

		case modeLen:
			if err := f.decodeLen(); err != nil || f.mode == modeLen {
				return err
			}

		case modeDist:
			if err := f.decodeDist(); err != nil {
				return err
			}

		case modeCopy:
			for f.copyLen > 0 {
				if f.win.AvailWrite() == 0 {
					f.flushHist()
					return nil
				}
				f.copyLen -= f.win.WriteCopy(f.copyDist, f.copyLen)
			}
			f.mode = modeLen

		case modeCheck:
			if err := f.trailer(); err != nil {
				return err
			}

		case modeDone, modeSync, modeBad:
			return nil
		}
	}
}

func (f *Inflater) gzipHeader() error {
	for {
		switch f.gz {
		case gzFlags:
			v, ok := f.headerBytes(4)
			if !ok {
				return errNeedInput
			}
			id1, id2, cm, flg := byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
			if id1 != gzipID1 || id2 != gzipID2 {
				return fmt.Errorf("%w: not a gzip stream", ErrHeader)
			}
			if cm != gzipDeflate {
				return fmt.Errorf("%w: gzip compression method %d", ErrHeader, cm)
			}
			if flg&flagReserved != 0 {
				return fmt.Errorf("%w: reserved gzip flags %#x", ErrHeader, flg)
			}
			f.gzFlags = flg
			f.header = Header{Text: flg&flagText != 0, HCRC: flg&flagHdrCrc != 0}
			f.gz = gzTime

		case gzTime:
			v, ok := f.headerBytes(4)
			if !ok {
				return errNeedInput
			}
			if v > 0 {
				f.header.ModTime = time.Unix(int64(v), 0)
			}
			f.gz = gzXflOS

		case gzXflOS:
			v, ok := f.headerBytes(2)
			if !ok {
				return errNeedInput
			}
			f.header.OS = byte(v >> 8)
			f.gz = gzExtraLen

		case gzExtraLen:
			f.gz = gzName
			if f.gzFlags&flagExtra == 0 {
				continue
			}
			v, ok := f.headerBytes(2)
			if !ok {
				f.gz = gzExtraLen
				return errNeedInput
			}
			f.remaining = int(v)
			f.header.Extra = make([]byte, 0, v)
			f.gz = gzExtra

		case gzExtra:
			for f.remaining > 0 {
				v, ok := f.headerBytes(1)
				if !ok {
					return errNeedInput
				}
				f.header.Extra = append(f.header.Extra, byte(v))
				f.remaining--
			}
			f.gz = gzName

		case gzName, gzComment:
			if (f.gz == gzName && f.gzFlags&flagName != 0) || (f.gz == gzComment && f.gzFlags&flagComment != 0) {
				for {
					v, ok := f.headerBytes(1)
					if !ok {
						return errNeedInput
					}
					if v == 0 {
						break
					}
					if len(f.str) < maxHeaderString {
						f.str = append(f.str, byte(v))
					}
				}
				if f.gz == gzName {
					f.header.Name = string(f.str)
				} else {
					f.header.Comment = string(f.str)
				}
				f.str = f.str[:0]
			}
			f.gz++

		case gzHCRC:
			if f.gzFlags&flagHdrCrc != 0 {
				want := uint16(f.hcrc)
				v, ok := f.headerBytes(2)
				if !ok {
					return errNeedInput
				}
				if uint16(v) != want && !f.o.ignoreChecksum {
					return fmt.Errorf("%w: header CRC %#04x, want %#04x", ErrHeader, v, want)
				}
			}
			f.hasHeader = true
			f.mode = modeBlock
			return nil
		}
	}
}

func (f *Inflater) readLens() error {
	n := f.nlit + f.ndist
	for f.idx < n {
		sym, nb, ok, err := f.peekSym(&f.h1)
		if err != nil {
			return err
		}
		if !ok {
			return errNeedInput
		}
		if sym < 16 {
			f.drop(nb)
			f.bits[f.idx] = sym
			f.idx++
			continue
		}
		var rep int
		var extra uint
		var b int
		switch sym {
		case 16:
			if f.idx == 0 {
				if debug {
					println("inflate: repeat with no previous length")
				}
				return f.corrupt()
			}
			rep, extra, b = 3, 2, f.bits[f.idx-1]
		case 17:
			rep, extra = 3, 3
		case 18:
			rep, extra = 11, 7
		default:
			return f.corrupt()
		}
		if !f.needBits(nb + extra) {
			return errNeedInput
		}
		rep += int(f.hold>>nb) & (1<<extra - 1)
		f.drop(nb + extra)
		if f.idx+rep > n {
			if debug {
				println("inflate: repeat past end of lengths")
			}
			return f.corrupt()
		}
		for j := 0; j < rep; j++ {
			f.bits[f.idx] = b
			f.idx++
		}
	}
	if !f.h1.init(f.bits[:f.nlit]) || !f.h2.init(f.bits[f.nlit:n]) {
		return f.corrupt()
	}
	// A block without an end marker can never complete.
	if f.bits[endBlockMarker] == 0 {
		return f.corrupt()
	}
	f.mode = modeLen
	return nil
}

// decodeLen decodes literals until a length, the end of the block,
// a full window or the end of input.
func (f *Inflater) decodeLen() error {
	h := &f.h1
	if f.fixed {
		h = fixedHuffmanDecoderInit()
	}
	for {
		if f.win.AvailWrite() == 0 {
			f.flushHist()
			return nil
		}
		sym, n, ok, err := f.peekSym(h)
		if err != nil {
			return err
		}
		if !ok {
			return errNeedInput
		}
		switch {
		case sym < endBlockMarker:
			f.drop(n)
			f.win.writeByte(byte(sym))
			continue
		case sym == endBlockMarker:
			f.drop(n)
			f.mode = modeBlock
			return nil
		case sym < maxNumLit:
		default:
			if debug {
				println("inflate: literal/length symbol", sym)
			}
			return f.corrupt()
		}
		code := sym - lengthCodesStart
		extra := uint(lengthExtraBits[code])
		if !f.needBits(n + extra) {
			return errNeedInput
		}
		f.copyLen = int(lengthBase[code]) + minMatchLength + int(f.hold>>n)&(1<<extra-1)
		f.drop(n + extra)
		f.mode = modeDist
		return nil
	}
}

func (f *Inflater) decodeDist() error {
	var code int
	var n uint
	if f.fixed {
		if !f.needBits(5) {
			return errNeedInput
		}
		code = int(reverseBits(uint16(f.peekBits(5)), 5))
		n = 5
	} else {
		var ok bool
		var err error
		code, n, ok, err = f.peekSym(&f.h2)
		if err != nil {
			return err
		}
		if !ok {
			return errNeedInput
		}
	}
	if code >= maxNumDist {
		if debug {
			println("inflate: distance code", code)
		}
		return f.corrupt()
	}
	extra := uint(offsetExtraBits[code])
	if !f.needBits(n + extra) {
		return errNeedInput
	}
	dist := int(offsetBase[code]) + minOffsetSize + int(f.hold>>n)&(1<<extra-1)
	if dist > f.win.HistSize() {
		if debug {
			println("inflate: distance", dist, "history", f.win.HistSize())
		}
		return f.corrupt()
	}
	f.drop(n + extra)
	f.copyDist = dist
	f.mode = modeCopy
	return nil
}

// trailer verifies the zlib or gzip trailer.
func (f *Inflater) trailer() error {
	f.drop(f.nb & 7)
	f.flushHist()
	verify := !f.skipCheck && !f.o.ignoreChecksum
	switch f.format {
	case FormatZlib:
		if !f.needBits(32) {
			return errNeedInput
		}
		sum := bits.ReverseBytes32(uint32(f.hold))
		f.drop(32)
		if verify && sum != f.check {
			return fmt.Errorf("%w: adler32 %08x, want %08x", ErrChecksum, sum, f.check)
		}
	case FormatGzip:
		if !f.needBits(64) {
			return errNeedInput
		}
		sum, size := uint32(f.hold), uint32(f.hold>>32)
		f.drop(64)
		if verify && sum != f.check {
			return fmt.Errorf("%w: crc32 %08x, want %08x", ErrChecksum, sum, f.check)
		}
		if verify && size != uint32(f.outCount) {
			return fmt.Errorf("%w: size %d, want %d", ErrLength, size, uint32(f.outCount))
		}
	}
	if debug {
		printf("inflate: %v stream end after %d bytes", f.format, f.outCount)
	}
	f.mode = modeDone
	return nil
}

// syncSearch advances the flush marker match state have over b
// and returns the number of bytes it used.
func syncSearch(have *int, b []byte) int {
	got := *have
	next := 0
	for next < len(b) && got < 4 {
		want := byte(0)
		if got >= 2 {
			want = 0xff
		}
		switch {
		case b[next] == want:
			got++
		case b[next] != 0:
			got = 0
		default:
			got = 4 - got
		}
		next++
	}
	*have = got
	return next
}

// Sync skips input until the 00 00 ff ff marker of a sync or full flush
// and prepares to decode the block that follows. It returns the number of
// bytes of src consumed. If no marker is found all of src is consumed,
// ErrNoSyncPoint is returned, and a partial marker is remembered for the
// next call.
//
// After a successful Sync the trailer checksum is not verified.
// A stream of unknown format is decoded as raw DEFLATE.
func (f *Inflater) Sync(src []byte) (int, error) {
	if !f.ready() {
		return 0, ErrStreamState
	}
	if f.mode != modeSync {
		// Whole bytes already pulled in are searched first.
		f.drop(f.nb & 7)
		var buf [8]byte
		n := 0
		for f.nb >= 8 {
			buf[n] = byte(f.hold)
			f.drop(8)
			n++
		}
		f.hold, f.nb = 0, 0
		f.syncHave = 0
		f.mode = modeSync
		used := syncSearch(&f.syncHave, buf[:n])
		if f.syncHave == 4 {
			for i, b := range buf[used:n] {
				f.hold |= uint64(b) << (8 * i)
				f.nb += 8
			}
			f.resume()
			return 0, nil
		}
	}
	n := syncSearch(&f.syncHave, src)
	f.totalIn += int64(n)
	if f.syncHave < 4 {
		return n, ErrNoSyncPoint
	}
	f.resume()
	return n, nil
}

func (f *Inflater) resume() {
	if f.format == FormatAuto {
		f.format = FormatRaw
	}
	f.syncHave = 0
	f.err = nil
	f.final = false
	f.skipCheck = true
	f.mode = modeBlock
	if debug {
		printf("inflate: resynchronized at input offset %d", f.totalIn)
	}
}

// SetDictionary supplies the preset dictionary.
//
// For zlib it must be called after Inflate returned StatusNeedDict, and
// the dictionary must match the identifier in the header. Raw streams
// accept it before the first block or between blocks once all output
// has been read.
func (f *Inflater) SetDictionary(dict []byte) error {
	switch {
	case !f.ready() || f.mode == modeBad:
		return ErrStreamState
	case f.mode == modeDict:
		if id := checksum.Adler32(checksum.AdlerInit, dict); id != f.dictID {
			return fmt.Errorf("%w: dictionary id %08x, want %08x", ErrDictionaryMismatch, id, f.dictID)
		}
		f.win.AddHistory(dict)
		f.mode = modeBlock
		return nil
	case f.format == FormatRaw && (f.mode == modeHead || f.mode == modeBlock) &&
		f.win.AvailRead() == 0 && len(f.toRead) == 0:
		f.win.AddHistory(dict)
		return nil
	}
	return ErrDictionaryNotAllowed
}

// GetDictionary returns a copy of up to one window of decoded data.
func (f *Inflater) GetDictionary() ([]byte, error) {
	if !f.ready() {
		return nil, ErrStreamState
	}
	return f.win.History(), nil
}

// Header returns the gzip header, or nil if none has been parsed.
func (f *Inflater) Header() *Header {
	if !f.hasHeader {
		return nil
	}
	h := f.header.clone()
	return &h
}

// Format returns the container being decoded.
// It is FormatAuto until detection has happened.
func (f *Inflater) Format() Format { return f.format }

// TotalIn returns the number of bytes consumed.
func (f *Inflater) TotalIn() int64 { return f.totalIn }

// TotalOut returns the number of bytes produced.
func (f *Inflater) TotalOut() int64 { return f.totalOut }

// Copy returns an independent Inflater with the same state.
func (f *Inflater) Copy() (*Inflater, error) {
	if !f.ready() {
		return nil, ErrStreamState
	}
	hist, err := alloc(f.o.alloc, len(f.win.hist))
	if err != nil {
		return nil, err
	}
	c := *f
	c.win = f.win.clone(hist)
	if len(f.toRead) > 0 {
		start := cap(f.win.hist) - cap(f.toRead)
		c.toRead = hist[start : start+len(f.toRead)]
	} else {
		c.toRead = nil
	}
	c.str = append([]byte(nil), f.str...)
	c.header = f.header.clone()
	c.o.dict = append([]byte(nil), f.o.dict...)
	return &c, nil
}

// Reset discards the stream state and starts a new stream.
// opts are applied on top of the current options.
func (f *Inflater) Reset(opts ...DOption) error {
	if !f.ready() {
		return ErrStreamState
	}
	o := f.o
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return err
		}
	}
	f.o = o
	return f.init()
}

// End releases the history buffer. Any further call returns ErrStreamState.
func (f *Inflater) End() error {
	if !f.ready() {
		return ErrStreamState
	}
	f.o.alloc.Free(f.win.hist)
	f.win = dictDecoder{}
	f.toRead = nil
	return nil
}
