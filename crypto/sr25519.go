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
	schnorrkel "github.com/ChainSafe/go-schnorrkel"
)

// signingContext is the transcript label Substrate runtimes verify sr25519
// signatures under.
var signingContext = []byte("substrate")

type sr25519KeyPair struct {
	secret *schnorrkel.SecretKey
	public [32]byte
}

func newSr25519(seed []byte) (*sr25519KeyPair, error) {
	var raw [32]byte
	copy(raw[:], seed)
	defer zeroBytes(raw[:])

	mini, err := schnorrkel.NewMiniSecretKeyFromRaw(raw)
	if err != nil {
		return nil, err
	}
	secret := mini.ExpandEd25519()
	pub, err := secret.Public()
	if err != nil {
		return nil, err
	}
	return &sr25519KeyPair{secret: secret, public: pub.Encode()}, nil
}

func (k *sr25519KeyPair) Scheme() Scheme { return Sr25519 }

func (k *sr25519KeyPair) Public() []byte { return k.public[:] }

func (k *sr25519KeyPair) AccountID() []byte { return k.public[:] }

func (k *sr25519KeyPair) Sign(msg []byte) ([]byte, error) {
	sig, err := k.secret.Sign(schnorrkel.NewSigningContext(signingContext, msg))
	if err != nil {
		return nil, err
	}
	enc := sig.Encode()
	return enc[:], nil
}

func verifySr25519(pubkey, msg, sig []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	var (
		pubRaw [32]byte
		sigRaw [64]byte
	)
	copy(pubRaw[:], pubkey)
	copy(sigRaw[:], sig)

	pub := new(schnorrkel.PublicKey)
	if err := pub.Decode(pubRaw); err != nil {
		return false
	}
	s := new(schnorrkel.Signature)
	if err := s.Decode(sigRaw); err != nil {
		return false
	}
	ok, err := pub.Verify(s, schnorrkel.NewSigningContext(signingContext, msg))
	return err == nil && ok
}
