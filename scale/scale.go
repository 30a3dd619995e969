// Copyright 2021 The go-polytx Authors
// This file is part of the go-polytx library.
//
// The go-polytx library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-polytx library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-polytx library. If not, see <http://www.gnu.org/licenses/>.

// Package scale implements the primitive layer of the SCALE binary codec used
// by Substrate runtimes: little-endian fixed-width integers, the compact
// variable-length integer encoding and length-prefixed byte sequences.
//
// Composite shapes (structs, enums, sequences of arbitrary element types) are
// not handled here; they are driven by the type registry which knows the
// runtime's type layout.
package scale

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	// ErrUnexpectedEOF is returned when the input ends before a value is complete.
	ErrUnexpectedEOF = errors.New("scale: unexpected end of input")
	// ErrNonCanonical is returned for compact integers not in their shortest form.
	ErrNonCanonical = errors.New("scale: non-canonical compact encoding")
	// ErrOverflow is returned when a value does not fit the requested width.
	ErrOverflow = errors.New("scale: value overflows target width")
	// ErrInvalidBool is returned for boolean bytes other than 0 and 1.
	ErrInvalidBool = errors.New("scale: invalid boolean")
	// ErrLengthTooLarge is returned when a length prefix exceeds the remaining input.
	ErrLengthTooLarge = errors.New("scale: length prefix exceeds input")
)

const (
	maxSingleByte = 1<<6 - 1
	maxTwoByte    = 1<<14 - 1
	maxFourByte   = 1<<30 - 1
)

// CompactLen returns the number of bytes the compact encoding of v occupies.
func CompactLen(v uint64) int {
	switch {
	case v <= maxSingleByte:
		return 1
	case v <= maxTwoByte:
		return 2
	case v <= maxFourByte:
		return 4
	default:
		return 1 + (bits.Len64(v)+7)/8
	}
}

// EncodeCompact returns the compact encoding of v.
func EncodeCompact(v uint64) []byte {
	e := NewEncoder()
	e.PutCompactUint64(v)
	return e.Bytes()
}

// reverse returns a reversed copy of b, converting between big- and
// little-endian byte orders.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

// fitsWidth reports whether v is representable in the given number of bytes.
func fitsWidth(v *uint256.Int, width int) bool {
	return v.BitLen() <= width*8
}
