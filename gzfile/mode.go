// Copyright 2019+ Klaus Post. All rights reserved.
// License information can be found in the LICENSE file.

package gzfile

import (
	"fmt"
	"os"

	"github.com/klauspost/zflate/flate"
)

// ErrInvalidMode is returned by Open and Dopen for a malformed mode string.
var ErrInvalidMode = fmt.Errorf("%w: invalid gzip file mode", flate.ErrInvalidParam)

type access uint8

const (
	accessRead access = iota + 1
	accessWrite
	accessAppend
)

// mode is a parsed mode string.
type mode struct {
	access      access
	level       int
	strategy    flate.Strategy
	strategySet bool
	transparent bool
	exclusive   bool
}

// parseMode parses a mode string such as "rb", "w9", "ab1h" or "wT".
// Unknown characters are ignored.
func parseMode(s string) (mode, error) {
	m := mode{level: flate.DefaultCompression}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			m.level = int(c - '0')
		case c == 'r' || c == 'w' || c == 'a':
			if m.access != 0 {
				return m, fmt.Errorf("%w: %q has more than one of r, w and a", ErrInvalidMode, s)
			}
			m.access = accessRead
			if c == 'w' {
				m.access = accessWrite
			} else if c == 'a' {
				m.access = accessAppend
			}
		case c == '+':
			return m, fmt.Errorf("%w: %q: reading and writing at once is not supported", ErrInvalidMode, s)
		case c == 'x':
			m.exclusive = true
		case c == 'f':
			m.strategy, m.strategySet = flate.StrategyFiltered, true
		case c == 'h':
			m.strategy, m.strategySet = flate.StrategyHuffmanOnly, true
		case c == 'R':
			m.strategy, m.strategySet = flate.StrategyRLE, true
		case c == 'F':
			m.strategy, m.strategySet = flate.StrategyFixed, true
		case c == 'T':
			m.transparent = true
		}
	}
	if m.access == 0 {
		return m, fmt.Errorf("%w: %q needs one of r, w and a", ErrInvalidMode, s)
	}
	return m, nil
}

// flags returns the os.OpenFile flags for m.
func (m mode) flags() int {
	var fl int
	switch m.access {
	case accessRead:
		return os.O_RDONLY
	case accessWrite:
		fl = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case accessAppend:
		fl = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	if m.exclusive {
		fl |= os.O_EXCL
	}
	return fl
}
