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

// Decoder reads SCALE encoded values from a byte slice.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder creates a decoder reading from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{data: b}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.pos }

// ReadBytes consumes exactly n bytes. The result aliases the input.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// Peek returns the next byte without consuming it.
func (d *Decoder) Peek() (byte, error) {
	if d.Remaining() < 1 {
		return 0, ErrUnexpectedEOF
	}
	return d.data[d.pos], nil
}

// ReadUint8 consumes one byte.
func (d *Decoder) ReadUint8() (uint8, error) {
	b, err := d.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool consumes a strict 0x00/0x01 boolean.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, ErrInvalidBool
}

// ReadUint16 consumes a little-endian uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 consumes a little-endian uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 consumes a little-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadUint consumes a little-endian unsigned integer of the given byte width.
func (d *Decoder) ReadUint(width int) (*uint256.Int, error) {
	if width > 32 {
		return nil, ErrOverflow
	}
	b, err := d.ReadBytes(width)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(reverse(b)), nil
}

// ReadCompact consumes a compact-encoded unsigned integer. Encodings that are
// longer than necessary are rejected, matching the runtime's decoder.
func (d *Decoder) ReadCompact() (*uint256.Int, error) {
	b0, err := d.Peek()
	if err != nil {
		return nil, err
	}
	switch b0 & 0b11 {
	case 0b00:
		d.pos++
		return new(uint256.Int).SetUint64(uint64(b0 >> 2)), nil
	case 0b01:
		v, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		v >>= 2
		if v <= maxSingleByte {
			return nil, ErrNonCanonical
		}
		return new(uint256.Int).SetUint64(uint64(v)), nil
	case 0b10:
		v, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		v >>= 2
		if v <= maxTwoByte {
			return nil, ErrNonCanonical
		}
		return new(uint256.Int).SetUint64(uint64(v)), nil
	default:
		d.pos++
		n := int(b0>>2) + 4
		if n > 32 {
			return nil, ErrOverflow
		}
		le, err := d.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		if le[n-1] == 0 {
			return nil, ErrNonCanonical
		}
		v := new(uint256.Int).SetBytes(reverse(le))
		if v.IsUint64() && v.Uint64() <= maxFourByte {
			return nil, ErrNonCanonical
		}
		return v, nil
	}
}

// ReadCompactUint64 consumes a compact integer that must fit in 64 bits.
func (d *Decoder) ReadCompactUint64() (uint64, error) {
	v, err := d.ReadCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// ReadLength consumes a compact length prefix and checks it against the
// remaining input, assuming each element takes at least minElem bytes.
func (d *Decoder) ReadLength(minElem int) (int, error) {
	n, err := d.ReadCompactUint64()
	if err != nil {
		return 0, err
	}
	if minElem > 0 && n > uint64(d.Remaining()/minElem) {
		return 0, ErrLengthTooLarge
	}
	if n > uint64(^uint(0)>>1) {
		return 0, ErrLengthTooLarge
	}
	return int(n), nil
}

// ReadPrefixedBytes consumes a compact length followed by that many bytes.
func (d *Decoder) ReadPrefixedBytes() ([]byte, error) {
	n, err := d.ReadLength(1)
	if err != nil {
		return nil, err
	}
	return d.ReadBytes(n)
}

// ReadString consumes a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadPrefixedBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
