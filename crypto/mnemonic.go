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
	"crypto/sha512"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

// SeedFromMnemonic derives the 32 byte mini secret key from a BIP-39 phrase.
// Substrate stretches the mnemonic entropy, not the phrase itself, so the
// result differs from the BIP-39 seed for the same words.
func SeedFromMnemonic(mnemonic, password string) ([]byte, error) {
	entropy, err := bip39.EntropyFromMnemonic(strings.Join(strings.Fields(mnemonic), " "))
	if err != nil {
		return nil, err
	}
	defer zeroBytes(entropy)

	seed := pbkdf2.Key(entropy, []byte("mnemonic"+password), 2048, 64, sha512.New)
	defer zeroBytes(seed)
	return append([]byte(nil), seed[:SeedLength]...), nil
}

// NewMnemonic creates a random 12 word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// IsMnemonic reports whether s looks like a phrase rather than a hex seed.
func IsMnemonic(s string) bool {
	return len(strings.Fields(s)) >= 12
}
