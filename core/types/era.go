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

package types

import (
	"fmt"
	"math/bits"

	"github.com/probeum/go-polytx/scale"
)

// Era bounds.
const (
	MinEraPeriod = 4
	MaxEraPeriod = 1 << 16
)

// ErrInvalidEra is returned when decoding an era with an impossible period or
// phase.
var ErrInvalidEra = fmt.Errorf("invalid era")

// Era is the mortality of a transaction: either immortal, or valid for Period
// blocks starting at the last block whose number is Phase modulo Period.
type Era struct {
	Immortal bool
	Period   uint64
	Phase    uint64
}

// ImmortalEra never expires.
var ImmortalEra = Era{Immortal: true}

// NewMortalEra creates an era of at least the requested period starting at
// the current block. The period is rounded up to a power of two within
// [MinEraPeriod, MaxEraPeriod] and the phase is quantized to what the
// two-byte encoding can hold.
func NewMortalEra(current, period uint64) Era {
	p := uint64(MinEraPeriod)
	for p < period && p < MaxEraPeriod {
		p <<= 1
	}
	quantize := quantizeFactor(p)
	phase := current % p / quantize * quantize
	return Era{Period: p, Phase: phase}
}

func quantizeFactor(period uint64) uint64 {
	if q := period >> 12; q > 1 {
		return q
	}
	return 1
}

// Encode returns the SCALE form: 0x00 for immortal, two little-endian bytes
// otherwise.
func (e Era) Encode() []byte {
	if e.Immortal {
		return []byte{0}
	}
	tz := uint64(bits.TrailingZeros64(e.Period))
	low := tz - 1
	if tz < 2 {
		low = 1
	}
	if low > 15 {
		low = 15
	}
	encoded := low | (e.Phase/quantizeFactor(e.Period))<<4
	return []byte{byte(encoded), byte(encoded >> 8)}
}

// DecodeEra reads an era.
func DecodeEra(d *scale.Decoder) (Era, error) {
	first, err := d.ReadUint8()
	if err != nil {
		return Era{}, err
	}
	if first == 0 {
		return ImmortalEra, nil
	}
	second, err := d.ReadUint8()
	if err != nil {
		return Era{}, err
	}
	encoded := uint64(first) | uint64(second)<<8
	period := uint64(2) << (encoded % 16)
	phase := (encoded >> 4) * quantizeFactor(period)
	if period < MinEraPeriod || phase >= period {
		return Era{}, fmt.Errorf("%w: period %d, phase %d", ErrInvalidEra, period, phase)
	}
	return Era{Period: period, Phase: phase}, nil
}

// Birth returns the first block in which a transaction with this era is
// valid, for a chain currently at block current.
func (e Era) Birth(current uint64) uint64 {
	if e.Immortal {
		return 0
	}
	if current < e.Phase {
		current = e.Phase
	}
	return (current-e.Phase)/e.Period*e.Period + e.Phase
}

// Death returns the first block in which the transaction is no longer valid.
func (e Era) Death(current uint64) uint64 {
	if e.Immortal {
		return ^uint64(0)
	}
	return e.Birth(current) + e.Period
}

// Contains reports whether block n lies within the validity window of an era
// created at block created.
func (e Era) Contains(created, n uint64) bool {
	return n >= e.Birth(created) && n < e.Death(created)
}

func (e Era) String() string {
	if e.Immortal {
		return "immortal"
	}
	return fmt.Sprintf("mortal(period=%d, phase=%d)", e.Period, e.Phase)
}
