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

// Package crypto provides the hashers and key schemes used to sign and
// address Substrate extrinsics.
package crypto

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/probeum/go-polytx/common"
)

// SeedLength is the byte length of a mini secret key (the raw seed every
// supported scheme derives its keypair from).
const SeedLength = 32

var errInvalidSeed = errors.New("invalid seed length, need 32 bytes")

// Blake2b256 calculates and returns the blake2b-256 hash of the input data.
func Blake2b256(data ...[]byte) []byte {
	h := Blake2b256Hash(data...)
	return h[:]
}

// Blake2b256Hash calculates the blake2b-256 hash of the input data,
// converting it to an internal Hash data structure.
func Blake2b256Hash(data ...[]byte) (h common.Hash) {
	d, _ := blake2b.New256(nil)
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// Blake2b128 calculates the 16 byte blake2b hash of the input data.
func Blake2b128(data ...[]byte) []byte {
	d, _ := blake2b.New(16, nil)
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Blake2b512 calculates the blake2b-512 hash of the input data.
func Blake2b512(data ...[]byte) []byte {
	d, _ := blake2b.New512(nil)
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Blake2b128Concat is the storage hasher that prefixes the key with its
// blake2b-128 hash.
func Blake2b128Concat(data []byte) []byte {
	return append(Blake2b128(data), data...)
}

// Twox64 is the 8 byte xxhash64 of data with seed 0.
func Twox64(data []byte) []byte {
	return twox(data, 1)
}

// Twox128 is the concatenation of xxhash64 with seeds 0 and 1, the hasher
// used for pallet and storage item prefixes.
func Twox128(data []byte) []byte {
	return twox(data, 2)
}

// Twox256 is the concatenation of xxhash64 with seeds 0 to 3.
func Twox256(data []byte) []byte {
	return twox(data, 4)
}

// Twox64Concat prefixes data with its Twox64 hash.
func Twox64Concat(data []byte) []byte {
	return append(Twox64(data), data...)
}

func twox(data []byte, rounds int) []byte {
	out := make([]byte, 0, rounds*8)
	for seed := 0; seed < rounds; seed++ {
		d := xxhash.NewWithSeed(uint64(seed))
		d.Write(data)
		out = binary.LittleEndian.AppendUint64(out, d.Sum64())
	}
	return out
}

// HexToSeed parses a 32 byte seed, with or without 0x prefix.
func HexToSeed(hexkey string) ([]byte, error) {
	if len(hexkey) >= 2 && hexkey[0] == '0' && (hexkey[1] == 'x' || hexkey[1] == 'X') {
		hexkey = hexkey[2:]
	}
	b, err := hex.DecodeString(hexkey)
	if byteErr, ok := err.(hex.InvalidByteError); ok {
		return nil, fmt.Errorf("invalid hex character %q in seed", byte(byteErr))
	} else if err != nil {
		return nil, errors.New("invalid hex data for seed")
	}
	if len(b) != SeedLength {
		return nil, errInvalidSeed
	}
	return b, nil
}

// LoadSeed loads a hex encoded seed from the given file.
func LoadSeed(file string) ([]byte, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	r := bufio.NewReader(fd)
	buf := make([]byte, SeedLength*2+2)
	n, err := readASCII(buf, r)
	if err != nil {
		return nil, err
	}
	if err := checkKeyFileEnd(r); err != nil {
		return nil, err
	}
	return HexToSeed(string(buf[:n]))
}

// readASCII reads into 'buf', stopping when the buffer is full or
// when a non-printable control character is encountered.
func readASCII(buf []byte, r *bufio.Reader) (n int, err error) {
	for ; n < len(buf); n++ {
		buf[n], err = r.ReadByte()
		switch {
		case err == io.EOF || buf[n] < '!':
			return n, nil
		case err != nil:
			return n, err
		}
	}
	return n, nil
}

// checkKeyFileEnd skips over additional newlines at the end of a seed file.
func checkKeyFileEnd(r *bufio.Reader) error {
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		case b != '\n' && b != '\r':
			return fmt.Errorf("invalid character %q at end of seed file", b)
		case i >= 2:
			return errors.New("seed file too long, want 64 hex characters")
		}
	}
}

// SaveSeed saves a seed to the given file with restrictive permissions.
// The seed is saved hex-encoded.
func SaveSeed(file string, seed []byte) error {
	if len(seed) != SeedLength {
		return errInvalidSeed
	}
	return os.WriteFile(file, []byte(hex.EncodeToString(seed)), 0600)
}

func zeroBytes(bytes []byte) {
	for i := range bytes {
		bytes[i] = 0
	}
}
