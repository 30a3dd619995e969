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
	"github.com/cloudflare/circl/sign/ed25519"
)

type ed25519KeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newEd25519(seed []byte) *ed25519KeyPair {
	priv := ed25519.NewKeyFromSeed(seed)
	return &ed25519KeyPair{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

func (k *ed25519KeyPair) Scheme() Scheme { return Ed25519 }

func (k *ed25519KeyPair) Public() []byte { return k.pub }

func (k *ed25519KeyPair) AccountID() []byte { return k.pub }

func (k *ed25519KeyPair) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, msg), nil
}

func verifyEd25519(pubkey, msg, sig []byte) bool {
	if len(pubkey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubkey), msg, sig)
}
