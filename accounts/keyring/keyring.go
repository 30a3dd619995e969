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

// Package keyring holds signing keys for Substrate accounts.
package keyring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/log"
)

// ErrUnknownAccount is returned by Keyring.Get for addresses without a key.
var ErrUnknownAccount = errors.New("unknown account")

// KeyPair is a signing key together with its SS58 address. It implements
// core.Signer.
type KeyPair struct {
	kp      crypto.KeyPair
	format  uint16
	address string
}

// FromSeed derives a keypair from a 32 byte seed.
func FromSeed(scheme crypto.Scheme, seed []byte, ss58Format uint16) (*KeyPair, error) {
	if ss58Format > crypto.MaxSS58Format {
		return nil, fmt.Errorf("ss58 format %d out of range", ss58Format)
	}
	kp, err := crypto.NewKeyPair(scheme, seed)
	if err != nil {
		return nil, err
	}
	return &KeyPair{kp: kp, format: ss58Format, address: crypto.SS58Encode(kp.AccountID(), ss58Format)}, nil
}

// FromHexSeed derives a keypair from a 0x-hex seed.
func FromHexSeed(scheme crypto.Scheme, hexSeed string, ss58Format uint16) (*KeyPair, error) {
	seed, err := crypto.HexToSeed(hexSeed)
	if err != nil {
		return nil, err
	}
	return FromSeed(scheme, seed, ss58Format)
}

// FromMnemonic derives a keypair from a BIP-39 phrase and optional password.
func FromMnemonic(scheme crypto.Scheme, mnemonic, password string, ss58Format uint16) (*KeyPair, error) {
	seed, err := crypto.SeedFromMnemonic(mnemonic, password)
	if err != nil {
		return nil, err
	}
	return FromSeed(scheme, seed, ss58Format)
}

// FromSecret accepts either a hex seed or a mnemonic phrase.
func FromSecret(scheme crypto.Scheme, secret string, ss58Format uint16) (*KeyPair, error) {
	secret = strings.TrimSpace(secret)
	if crypto.IsMnemonic(secret) {
		return FromMnemonic(scheme, secret, "", ss58Format)
	}
	return FromHexSeed(scheme, secret, ss58Format)
}

// Generate creates a keypair from a fresh mnemonic, which is returned so the
// key can be recovered.
func Generate(scheme crypto.Scheme, ss58Format uint16) (*KeyPair, string, error) {
	mnemonic, err := crypto.NewMnemonic()
	if err != nil {
		return nil, "", err
	}
	kp, err := FromMnemonic(scheme, mnemonic, "", ss58Format)
	if err != nil {
		return nil, "", err
	}
	return kp, mnemonic, nil
}

// Address returns the SS58 address.
func (k *KeyPair) Address() string { return k.address }

// PublicKey returns the raw public key.
func (k *KeyPair) PublicKey() []byte { return k.kp.Public() }

// AccountID returns the 32 byte account id.
func (k *KeyPair) AccountID() []byte { return k.kp.AccountID() }

// Scheme returns the signature scheme.
func (k *KeyPair) Scheme() crypto.Scheme { return k.kp.Scheme() }

// Sign signs msg.
func (k *KeyPair) Sign(msg []byte) ([]byte, error) { return k.kp.Sign(msg) }

// WithFormat returns the same key addressed under another SS58 format.
func (k *KeyPair) WithFormat(ss58Format uint16) *KeyPair {
	return &KeyPair{kp: k.kp, format: ss58Format, address: crypto.SS58Encode(k.kp.AccountID(), ss58Format)}
}

func (k *KeyPair) String() string {
	return fmt.Sprintf("%s(%s)", k.kp.Scheme(), k.address)
}

// Keyring is a set of keypairs indexed by account. It is safe for
// concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]*KeyPair // by hex account id
}

// New creates an empty keyring.
func New() *Keyring {
	return &Keyring{keys: make(map[string]*KeyPair)}
}

func accountKey(address string) (string, error) {
	id, _, err := crypto.SS58Decode(address)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", id), nil
}

// Add stores a keypair, replacing any key of the same account.
func (r *Keyring) Add(k *KeyPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[fmt.Sprintf("%x", k.AccountID())] = k
	log.Debug("Added key to keyring", "address", k.Address(), "scheme", k.Scheme())
}

// Get returns the keypair of an address in any SS58 format.
func (r *Keyring) Get(address string) (*KeyPair, error) {
	key, err := accountKey(address)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, address)
	}
	return k, nil
}

// Remove deletes the key of an address.
func (r *Keyring) Remove(address string) error {
	key, err := accountKey(address)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, address)
	}
	delete(r.keys, key)
	return nil
}

// Addresses lists the addresses in the keyring, sorted.
func (r *Keyring) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k.Address())
	}
	sort.Strings(out)
	return out
}
