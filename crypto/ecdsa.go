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

	"github.com/btcsuite/btcd/btcec"
)

// RecoveryIDOffset points to the byte offset within an ecdsa signature that
// contains the recovery id.
const RecoveryIDOffset = 64

var errInvalidRecoveryID = errors.New("invalid signature recovery id")

// ecdsaKeyPair signs with secp256k1 over the blake2b-256 hash of the message.
// The account id is the blake2b-256 hash of the compressed public key.
type ecdsaKeyPair struct {
	priv *btcec.PrivateKey
	pub  []byte
}

func newEcdsa(seed []byte) (*ecdsaKeyPair, error) {
	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), seed)
	if priv.D.Sign() == 0 || priv.D.Cmp(btcec.S256().N) >= 0 {
		return nil, errors.New("invalid private key, out of curve order")
	}
	return &ecdsaKeyPair{priv: priv, pub: pub.SerializeCompressed()}, nil
}

func (k *ecdsaKeyPair) Scheme() Scheme { return Ecdsa }

func (k *ecdsaKeyPair) Public() []byte { return k.pub }

func (k *ecdsaKeyPair) AccountID() []byte { return Blake2b256(k.pub) }

// Sign returns a 65 byte [R || S || V] signature where V is 0 or 1.
func (k *ecdsaKeyPair) Sign(msg []byte) ([]byte, error) {
	sig, err := btcec.SignCompact(btcec.S256(), k.priv, Blake2b256(msg), true)
	if err != nil {
		return nil, err
	}
	// Convert to the substrate [R || S || V] layout.
	v := sig[0] - 27 - 4
	copy(sig, sig[1:])
	sig[RecoveryIDOffset] = v
	return sig, nil
}

// EcdsaRecover returns the compressed public key that created the signature.
func EcdsaRecover(msg, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, errors.New("invalid signature length, need 65 bytes")
	}
	if sig[RecoveryIDOffset] > 3 {
		return nil, errInvalidRecoveryID
	}
	// Convert to the btcec [V || R || S] layout.
	btcsig := make([]byte, 65)
	btcsig[0] = sig[RecoveryIDOffset] + 27 + 4
	copy(btcsig[1:], sig[:RecoveryIDOffset])

	pub, _, err := btcec.RecoverCompact(btcec.S256(), btcsig, Blake2b256(msg))
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

func verifyEcdsa(accountID, msg, sig []byte) bool {
	pub, err := EcdsaRecover(msg, sig)
	if err != nil {
		return false
	}
	return bytes.Equal(Blake2b256(pub), accountID)
}
