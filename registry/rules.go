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

package registry

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/probeum/go-polytx/scale"
)

// Rule encodes and decodes values of one type.
type Rule interface {
	Encode(e *scale.Encoder, v interface{}) error
	Decode(d *scale.Decoder) (interface{}, error)
}

var (
	errInvalidOption = errors.New("invalid option tag")
	errTrailingBytes = errors.New("trailing bytes")
)

type nullRule struct{}

func (nullRule) Encode(*scale.Encoder, interface{}) error { return nil }

func (nullRule) Decode(*scale.Decoder) (interface{}, error) { return nil, nil }

type boolRule struct{}

func (boolRule) Encode(e *scale.Encoder, v interface{}) error {
	switch x := v.(type) {
	case bool:
		e.PutBool(x)
		return nil
	case nil:
		return ErrNoValue
	}
	return fmt.Errorf("cannot use %T as bool", v)
}

func (boolRule) Decode(d *scale.Decoder) (interface{}, error) {
	return d.ReadBool()
}

// uintRule is an unsigned integer of width bytes. Values up to 64 bits
// decode to uint64, wider ones to *uint256.Int.
type uintRule struct {
	width int
}

func (r *uintRule) Encode(e *scale.Encoder, v interface{}) error {
	n, err := toUint256(v)
	if err != nil {
		return err
	}
	if err := e.PutUint(n, r.width); err != nil {
		return fmt.Errorf("value %s overflows u%d", n.Dec(), r.width*8)
	}
	return nil
}

func (r *uintRule) Decode(d *scale.Decoder) (interface{}, error) {
	n, err := d.ReadUint(r.width)
	if err != nil {
		return nil, err
	}
	return uintValue(n, r.width), nil
}

func uintValue(n *uint256.Int, width int) interface{} {
	if width <= 8 {
		return n.Uint64()
	}
	return n
}

// intRule is a two's complement signed integer of width bytes. Values up to
// 64 bits decode to int64, wider ones to *big.Int.
type intRule struct {
	width int
}

func (r *intRule) Encode(e *scale.Encoder, v interface{}) error {
	n, err := toBigInt(v)
	if err != nil {
		return err
	}
	bits := uint(r.width * 8)
	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return fmt.Errorf("value %s overflows i%d", n, bits)
	}
	if n.Sign() < 0 {
		n.Add(n, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	u, _ := uint256.FromBig(n)
	return e.PutUint(u, r.width)
}

func (r *intRule) Decode(d *scale.Decoder) (interface{}, error) {
	u, err := d.ReadUint(r.width)
	if err != nil {
		return nil, err
	}
	n := u.ToBig()
	bits := uint(r.width * 8)
	if n.Bit(int(bits)-1) == 1 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	if r.width <= 8 {
		return n.Int64(), nil
	}
	return n, nil
}

// compactRule is Compact<T> for an unsigned T of width bytes.
type compactRule struct {
	width int
}

func (r *compactRule) Encode(e *scale.Encoder, v interface{}) error {
	n, err := toUint256(v)
	if err != nil {
		return err
	}
	if n.BitLen() > r.width*8 {
		return fmt.Errorf("value %s overflows u%d", n.Dec(), r.width*8)
	}
	e.PutCompact(n)
	return nil
}

func (r *compactRule) Decode(d *scale.Decoder) (interface{}, error) {
	n, err := d.ReadCompact()
	if err != nil {
		return nil, err
	}
	if n.BitLen() > r.width*8 {
		return nil, scale.ErrOverflow
	}
	return uintValue(n, r.width), nil
}

// bytesRule is Vec<u8>: a compact length followed by raw bytes.
type bytesRule struct{}

func (bytesRule) Encode(e *scale.Encoder, v interface{}) error {
	b, _, err := toBytes(v)
	if err != nil {
		return err
	}
	e.PutBytes(b)
	return nil
}

func (bytesRule) Decode(d *scale.Decoder) (interface{}, error) {
	b, err := d.ReadPrefixedBytes()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

type textRule struct{}

func (textRule) Encode(e *scale.Encoder, v interface{}) error {
	switch x := v.(type) {
	case string:
		e.PutString(x)
		return nil
	case []byte:
		e.PutBytes(x)
		return nil
	case nil:
		return ErrNoValue
	}
	return fmt.Errorf("cannot use %T as text", v)
}

func (textRule) Decode(d *scale.Decoder) (interface{}, error) {
	return d.ReadString()
}

// fixedBytesRule is [u8; n]. Plain (non-hex) strings shorter than n are
// padded with NUL bytes, hex input and raw bytes must match exactly.
type fixedBytesRule struct {
	n int
}

func (r *fixedBytesRule) Encode(e *scale.Encoder, v interface{}) error {
	b, text, err := toBytes(v)
	if err != nil {
		return err
	}
	if text && len(b) < r.n {
		padded := make([]byte, r.n)
		copy(padded, b)
		b = padded
	}
	if len(b) != r.n {
		return fmt.Errorf("need %d bytes, got %d", r.n, len(b))
	}
	e.Write(b)
	return nil
}

func (r *fixedBytesRule) Decode(d *scale.Decoder) (interface{}, error) {
	b, err := d.ReadBytes(r.n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
