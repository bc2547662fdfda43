// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/zflate/checksum"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	flagText     = 1 << 0
	flagHdrCrc   = 1 << 1
	flagExtra    = 1 << 2
	flagName     = 1 << 3
	flagComment  = 1 << 4
	flagReserved = 0xe0

	zlibDeflate = 8
	zlibFDict   = 0x20

	// OSUnknown is the gzip operating system code written by default.
	OSUnknown = 255

	// maxHeaderString caps the stored length of a parsed name or comment.
	// Longer values are consumed and truncated.
	maxHeaderString = 1 << 16
)

// Header holds the optional fields of a gzip member header.
type Header struct {
	Text    bool      // Content is probably text.
	ModTime time.Time // Zero means not set.
	Extra   []byte    // FEXTRA payload, at most 65535 bytes.
	Name    string    // Original file name, no NUL bytes.
	Comment string    // No NUL bytes.
	OS      byte      // Operating system code.
	HCRC    bool      // Write or verify a header CRC.
}

func (h Header) clone() Header {
	if h.Extra != nil {
		h.Extra = append([]byte(nil), h.Extra...)
	}
	return h
}

// validate reports every field that cannot be written.
func (h *Header) validate() error {
	var errs []error
	if len(h.Extra) > math.MaxUint16 {
		errs = append(errs, fmt.Errorf("%w: extra field is %d bytes, max %d", ErrInvalidParam, len(h.Extra), math.MaxUint16))
	}
	if strings.IndexByte(h.Name, 0) >= 0 {
		errs = append(errs, fmt.Errorf("%w: name contains NUL", ErrInvalidParam))
	}
	if strings.IndexByte(h.Comment, 0) >= 0 {
		errs = append(errs, fmt.Errorf("%w: comment contains NUL", ErrInvalidParam))
	}
	if !h.ModTime.IsZero() && (h.ModTime.Unix() < 0 || h.ModTime.Unix() > math.MaxUint32) {
		errs = append(errs, fmt.Errorf("%w: modification time %v out of range", ErrInvalidParam, h.ModTime))
	}
	if len(errs) == 0 {
		return nil
	}
	return &multierror.Error{Errors: errs}
}

// appendGzipHeader appends the gzip member header.
// xfl is the extra flags byte describing the compression level.
func appendGzipHeader(dst []byte, h *Header, xfl byte) []byte {
	var hdr Header
	if h != nil {
		hdr = *h
	} else {
		hdr.OS = OSUnknown
	}
	start := len(dst)
	var flg byte
	if hdr.Text {
		flg |= flagText
	}
	if hdr.HCRC {
		flg |= flagHdrCrc
	}
	if hdr.Extra != nil {
		flg |= flagExtra
	}
	if hdr.Name != "" {
		flg |= flagName
	}
	if hdr.Comment != "" {
		flg |= flagComment
	}
	var mtime uint32
	if !hdr.ModTime.IsZero() {
		mtime = uint32(hdr.ModTime.Unix())
	}
	dst = append(dst, gzipID1, gzipID2, gzipDeflate, flg)
	dst = binary.LittleEndian.AppendUint32(dst, mtime)
	dst = append(dst, xfl, hdr.OS)
	if hdr.Extra != nil {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(hdr.Extra)))
		dst = append(dst, hdr.Extra...)
	}
	if hdr.Name != "" {
		dst = append(dst, hdr.Name...)
		dst = append(dst, 0)
	}
	if hdr.Comment != "" {
		dst = append(dst, hdr.Comment...)
		dst = append(dst, 0)
	}
	if hdr.HCRC {
		crc := checksum.CRC32(checksum.CRCInit, dst[start:])
		dst = binary.LittleEndian.AppendUint16(dst, uint16(crc))
	}
	return dst
}

// gzipHeaderSize returns the number of bytes appendGzipHeader writes.
func gzipHeaderSize(h *Header) int {
	n := 10
	if h == nil {
		return n
	}
	if h.Extra != nil {
		n += 2 + len(h.Extra)
	}
	if h.Name != "" {
		n += len(h.Name) + 1
	}
	if h.Comment != "" {
		n += len(h.Comment) + 1
	}
	if h.HCRC {
		n += 2
	}
	return n
}

// gzipXFL returns the extra flags byte for a level and strategy.
func gzipXFL(level int, strategy Strategy) byte {
	switch {
	case level == BestCompression:
		return 2
	case level == BestSpeed || strategy >= StrategyHuffmanOnly:
		return 4
	}
	return 0
}

// appendZlibHeader appends the 2 byte zlib header, followed by the
// dictionary identifier when hasDict is set.
func appendZlibHeader(dst []byte, windowBits, level int, strategy Strategy, hasDict bool, dictID uint32) []byte {
	cmf := uint16(zlibDeflate | (windowBits-8)<<4)
	var flevel uint16
	switch {
	case strategy >= StrategyHuffmanOnly || (level >= 0 && level < 2):
		flevel = 0
	case level >= 2 && level < 6:
		flevel = 1
	case level == 6 || level == DefaultCompression:
		flevel = 2
	default:
		flevel = 3
	}
	hdr := cmf<<8 | flevel<<6
	if hasDict {
		hdr |= zlibFDict
	}
	hdr += 31 - hdr%31
	dst = binary.BigEndian.AppendUint16(dst, hdr)
	if hasDict {
		dst = binary.BigEndian.AppendUint32(dst, dictID)
	}
	return dst
}

// checkZlibHeader validates the first two bytes of a zlib stream.
func checkZlibHeader(cmf, flg byte, maxWindowBits int) error {
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return fmt.Errorf("%w: zlib header check bits", ErrHeader)
	}
	if cmf&0x0f != zlibDeflate {
		return fmt.Errorf("%w: zlib compression method %d", ErrHeader, cmf&0x0f)
	}
	if bits := int(cmf>>4) + 8; bits > maxWindowBits {
		return fmt.Errorf("%w: zlib window of %d bits, max %d", ErrHeader, bits, maxWindowBits)
	}
	return nil
}
