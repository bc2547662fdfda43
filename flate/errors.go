// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"errors"
	"io"
	"strconv"
)

// Error kinds. Every error returned by this package matches exactly one
// of these with errors.Is.
var (
	// ErrUsage is returned when the caller violates the API contract.
	ErrUsage = errors.New("flate: usage error")

	// ErrData is returned when the compressed input is malformed.
	ErrData = errors.New("flate: data error")

	// ErrResource is returned when a buffer could not be obtained.
	ErrResource = errors.New("flate: resource error")
)

type kindError struct {
	kind error
	also error
	msg  string
}

func (e *kindError) Error() string { return "flate: " + e.msg }

func (e *kindError) Is(target error) bool {
	return target == e.kind || (e.also != nil && target == e.also)
}

var (
	// ErrStreamState is returned when a stream is used after it has
	// finished or been ended, or when a call is not valid in its current state.
	ErrStreamState = &kindError{kind: ErrUsage, msg: "invalid stream state"}

	// ErrInvalidParam is returned for an out of range parameter.
	ErrInvalidParam = &kindError{kind: ErrUsage, msg: "invalid parameter"}

	// ErrDictionaryNotAllowed is returned when a dictionary is supplied at a
	// point where the format does not permit one.
	ErrDictionaryNotAllowed = &kindError{kind: ErrUsage, msg: "dictionary not allowed now"}

	// ErrHeaderNotAllowed is returned when a gzip header is supplied to a
	// non-gzip stream or after the header has been written.
	ErrHeaderNotAllowed = &kindError{kind: ErrUsage, msg: "header not allowed now"}

	// ErrNeedDictionary is returned by Reader when a zlib stream asks for a
	// preset dictionary that was not supplied.
	ErrNeedDictionary = &kindError{kind: ErrUsage, msg: "stream needs a preset dictionary"}

	// ErrChecksum is returned when the trailer checksum does not match.
	ErrChecksum = &kindError{kind: ErrData, msg: "incorrect data check"}

	// ErrLength is returned when the gzip trailer length does not match.
	ErrLength = &kindError{kind: ErrData, msg: "incorrect length check"}

	// ErrHeader is returned for a malformed zlib or gzip header.
	ErrHeader = &kindError{kind: ErrData, msg: "invalid header"}

	// ErrDictionaryMismatch is returned when the supplied dictionary does
	// not match the identifier in the zlib header.
	ErrDictionaryMismatch = &kindError{kind: ErrData, msg: "dictionary does not match"}

	// ErrTruncated is returned when input was declared complete before
	// the end of the stream. It also matches io.ErrUnexpectedEOF.
	ErrTruncated = &kindError{kind: ErrData, also: io.ErrUnexpectedEOF, msg: "truncated stream"}

	// ErrNoSyncPoint is returned by Sync when the input holds no full
	// flush marker.
	ErrNoSyncPoint = &kindError{kind: ErrData, msg: "no sync point found"}

	// ErrMemory is returned when the Allocator fails.
	ErrMemory = &kindError{kind: ErrResource, msg: "insufficient memory"}
)

// A CorruptInputError reports the presence of corrupt input at a given offset.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "flate: corrupt input before offset " + strconv.FormatInt(int64(e), 10)
}

// Is reports CorruptInputError as a data error.
func (e CorruptInputError) Is(target error) bool {
	return target == ErrData
}
