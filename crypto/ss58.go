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

package crypto

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var ss58Prefix = []byte("SS58PRE")

var (
	ErrSS58Checksum = errors.New("ss58: invalid checksum")
	ErrSS58Length   = errors.New("ss58: invalid address length")
	ErrSS58Format   = errors.New("ss58: reserved address format")
)

// MaxSS58Format is the largest network identifier expressible in an address.
const MaxSS58Format = 1<<14 - 1

// SS58Encode encodes a public key or account id into an address for the given
// network format.
func SS58Encode(key []byte, format uint16) string {
	var prefix []byte
	if format < 64 {
		prefix = []byte{byte(format)}
	} else {
		prefix = []byte{
			byte((format&0xfc)>>2) | 0x40,
			byte(format>>8) | byte(format&0x03)<<6,
		}
	}
	body := append(prefix, key...)
	sum := Blake2b512(ss58Prefix, body)
	return base58.Encode(append(body, sum[:checksumLength(len(key))]...))
}

// SS58Decode returns the account id and network format of an address.
func SS58Decode(addr string) ([]byte, uint16, error) {
	data, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("ss58: %v", err)
	}
	if len(data) < 2 {
		return nil, 0, ErrSS58Length
	}
	var (
		format    uint16
		prefixLen int
	)
	switch {
	case data[0] < 64:
		format, prefixLen = uint16(data[0]), 1
	case data[0] < 128:
		if len(data) < 3 {
			return nil, 0, ErrSS58Length
		}
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0x3f
		format, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, ErrSS58Format
	}
	rest := len(data) - prefixLen
	var keyLen int
	switch rest {
	case 2, 3, 5, 9:
		keyLen = rest - 1
	case 34, 35:
		keyLen = rest - 2
	default:
		return nil, 0, ErrSS58Length
	}
	body := data[:prefixLen+keyLen]
	sum := Blake2b512(ss58Prefix, body)
	if !bytes.Equal(sum[:checksumLength(keyLen)], data[prefixLen+keyLen:]) {
		return nil, 0, ErrSS58Checksum
	}
	return append([]byte(nil), body[prefixLen:]...), format, nil
}

func checksumLength(keyLen int) int {
	switch keyLen {
	case 32, 33:
		return 2
	}
	return 1
}
