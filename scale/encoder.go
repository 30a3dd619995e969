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

package scale

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Encoder accumulates SCALE encoded values.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded output. The slice aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Write appends raw bytes without a length prefix.
func (e *Encoder) Write(b []byte) {
	e.buf = append(e.buf, b...)
}

// PutUint8 appends a single byte.
func (e *Encoder) PutUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// PutBool appends a boolean as 0x00 or 0x01.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint8(1)
	} else {
		e.PutUint8(0)
	}
}

// PutUint16 appends v in little-endian order.
func (e *Encoder) PutUint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// PutUint32 appends v in little-endian order.
func (e *Encoder) PutUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// PutUint64 appends v in little-endian order.
func (e *Encoder) PutUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// PutUint appends v as a little-endian integer of the given byte width.
func (e *Encoder) PutUint(v *uint256.Int, width int) error {
	if !fitsWidth(v, width) {
		return ErrOverflow
	}
	be := v.Bytes32()
	e.buf = append(e.buf, reverse(be[32-width:])...)
	return nil
}

// PutCompactUint64 appends the compact encoding of v.
func (e *Encoder) PutCompactUint64(v uint64) {
	switch {
	case v <= maxSingleByte:
		e.PutUint8(uint8(v) << 2)
	case v <= maxTwoByte:
		e.PutUint16(uint16(v)<<2 | 0b01)
	case v <= maxFourByte:
		e.PutUint32(uint32(v)<<2 | 0b10)
	default:
		e.PutCompact(new(uint256.Int).SetUint64(v))
	}
}

// PutCompact appends the compact encoding of an arbitrary-width unsigned
// integer.
func (e *Encoder) PutCompact(v *uint256.Int) {
	if v.IsUint64() && v.Uint64() <= maxFourByte {
		e.PutCompactUint64(v.Uint64())
		return
	}
	le := reverse(v.Bytes())
	for len(le) < 4 {
		le = append(le, 0)
	}
	e.PutUint8(uint8(len(le)-4)<<2 | 0b11)
	e.Write(le)
}

// PutBytes appends b prefixed with its compact-encoded length.
func (e *Encoder) PutBytes(b []byte) {
	e.PutCompactUint64(uint64(len(b)))
	e.Write(b)
}

// PutString appends s as length-prefixed UTF-8 bytes.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}
