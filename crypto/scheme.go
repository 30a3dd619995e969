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
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Scheme identifies a signature scheme. The numeric value is the variant
// index of the scheme in the runtime's MultiSignature enum.
type Scheme uint8

const (
	Ed25519 Scheme = iota
	Sr25519
	Ecdsa
)

// ErrUnknownScheme is returned for scheme names or variant indices that are
// not supported.
var ErrUnknownScheme = errors.New("unknown signature scheme")

// ParseScheme converts a scheme name as used in configuration files.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "ed25519":
		return Ed25519, nil
	case "sr25519", "":
		return Sr25519, nil
	case "ecdsa", "secp256k1":
		return Ecdsa, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, s)
}

// SchemeByIndex maps a MultiSignature variant index to its scheme.
func SchemeByIndex(idx uint8) (Scheme, error) {
	if idx > uint8(Ecdsa) {
		return 0, fmt.Errorf("%w: variant %d", ErrUnknownScheme, idx)
	}
	return Scheme(idx), nil
}

// SignatureLength is the byte length of a signature under the scheme.
func (s Scheme) SignatureLength() int {
	if s == Ecdsa {
		return 65
	}
	return 64
}

func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "ed25519"
	case Sr25519:
		return "sr25519"
	case Ecdsa:
		return "ecdsa"
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(input []byte) error {
	v, err := ParseScheme(string(input))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// KeyPair is a signing key of one of the supported schemes.
type KeyPair interface {
	Scheme() Scheme
	// Public returns the raw public key.
	Public() []byte
	// AccountID returns the 32 byte account identifier derived from the
	// public key.
	AccountID() []byte
	// Sign signs msg. Callers pass the exact bytes that must be covered,
	// hashing (if any) is part of the scheme.
	Sign(msg []byte) ([]byte, error)
}

// NewKeyPair derives a keypair of the given scheme from a 32 byte seed.
func NewKeyPair(scheme Scheme, seed []byte) (KeyPair, error) {
	if len(seed) != SeedLength {
		return nil, errInvalidSeed
	}
	switch scheme {
	case Sr25519:
		return newSr25519(seed)
	case Ed25519:
		return newEd25519(seed), nil
	case Ecdsa:
		return newEcdsa(seed)
	}
	return nil, ErrUnknownScheme
}

// GenerateKey creates a keypair from a random seed.
func GenerateKey(scheme Scheme) (KeyPair, []byte, error) {
	seed := make([]byte, SeedLength)
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, err
	}
	kp, err := NewKeyPair(scheme, seed)
	if err != nil {
		return nil, nil, err
	}
	return kp, seed, nil
}

// VerifyAccount checks that sig is a valid signature over msg by the key
// behind the given account id. For ecdsa the public key is recovered from the
// signature, the other schemes use the account id as the public key.
func VerifyAccount(scheme Scheme, accountID, msg, sig []byte) bool {
	if len(sig) != scheme.SignatureLength() {
		return false
	}
	switch scheme {
	case Sr25519:
		return verifySr25519(accountID, msg, sig)
	case Ed25519:
		return verifyEd25519(accountID, msg, sig)
	case Ecdsa:
		return verifyEcdsa(accountID, msg, sig)
	}
	return false
}
