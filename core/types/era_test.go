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
	"bytes"
	"errors"
	"testing"

	"github.com/probeum/go-polytx/scale"
)

func TestNewMortalEra(t *testing.T) {
	tests := []struct {
		current, period    uint64
		wantPeriod, wantPh uint64
	}{
		{1000, 64, 64, 1000 % 64},
		{1000, 50, 64, 1000 % 64},
		{1000, 0, 4, 0},
		{1000, 3, 4, 0},
		{7, 64, 64, 7},
		{20000, 32768, 32768, 20000},
		{20001, 32768, 32768, 20000},
		{123456, 1 << 20, 65536, (123456 % 65536) / 16 * 16},
	}
	for _, tt := range tests {
		e := NewMortalEra(tt.current, tt.period)
		if e.Immortal || e.Period != tt.wantPeriod || e.Phase != tt.wantPh {
			t.Errorf("NewMortalEra(%d, %d) = %v, want period %d phase %d", tt.current, tt.period, e, tt.wantPeriod, tt.wantPh)
		}
	}
}

func TestEraEncoding(t *testing.T) {
	tests := []struct {
		era  Era
		want []byte
	}{
		{ImmortalEra, []byte{0x00}},
		{Era{Period: 64, Phase: 42}, []byte{0xa5, 0x02}},
		{Era{Period: 32768, Phase: 20000}, []byte{0x4e, 0x9c}},
		{Era{Period: 4, Phase: 3}, []byte{0x31, 0x00}},
		{Era{Period: 64, Phase: 40}, []byte{0x85, 0x02}},
	}
	for _, tt := range tests {
		got := tt.era.Encode()
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%v: encoded %x, want %x", tt.era, got, tt.want)
			continue
		}
		dec, err := DecodeEra(scale.NewDecoder(got))
		if err != nil {
			t.Errorf("%v: decode error %v", tt.era, err)
			continue
		}
		if dec != tt.era {
			t.Errorf("decoded %v, want %v", dec, tt.era)
		}
	}
}

func TestDecodeEraInvalid(t *testing.T) {
	// Period 2 is below the minimum.
	if _, err := DecodeEra(scale.NewDecoder([]byte{0x00 | 0x10, 0x00})); !errors.Is(err, ErrInvalidEra) {
		t.Errorf("expected ErrInvalidEra for short period, got %v", err)
	}
	// Phase 64 does not fit a period of 64.
	if _, err := DecodeEra(scale.NewDecoder([]byte{0x05, 0x04})); !errors.Is(err, ErrInvalidEra) {
		t.Errorf("expected ErrInvalidEra for large phase, got %v", err)
	}
	if _, err := DecodeEra(scale.NewDecoder([]byte{0x05})); err == nil {
		t.Error("expected error for truncated era")
	}
}

// The validity window of an era created at block B with period P contains B
// and ends before B+P.
func TestEraWindow(t *testing.T) {
	for _, period := range []uint64{4, 16, 64, 256, 4096, 65536} {
		for _, current := range []uint64{0, 1, 63, 64, 1000, 99999, 1 << 30} {
			e := NewMortalEra(current, period)
			if !e.Contains(current, current) {
				t.Errorf("era %v created at %d does not contain %d", e, current, current)
			}
			if e.Contains(current, current+e.Period) {
				t.Errorf("era %v created at %d contains %d", e, current, current+e.Period)
			}
			if birth := e.Birth(current); birth > current || current-birth >= e.Period {
				t.Errorf("era %v created at %d: birth %d out of range", e, current, birth)
			}
			if e.Death(current)-e.Birth(current) != e.Period {
				t.Errorf("era %v: death-birth != period", e)
			}
		}
	}
	if !ImmortalEra.Contains(5, 1<<40) {
		t.Error("immortal era expired")
	}
}
