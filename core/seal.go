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

package core

import (
	"fmt"

	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/scale"
)

// Signer produces signatures for one account.
type Signer interface {
	// Address is the SS58 address of the account.
	Address() string
	PublicKey() []byte
	Scheme() crypto.Scheme
	Sign(msg []byte) ([]byte, error)
}

// Sign signs exactly payload.Bytes().
func Sign(payload *types.SigningPayload, signer Signer) (*types.Signature, error) {
	if signer == nil {
		return nil, ErrNilSigner
	}
	sig, err := signer.Sign(payload.Bytes())
	if err != nil {
		return nil, err
	}
	scheme := signer.Scheme()
	if len(sig) != scheme.SignatureLength() {
		return nil, fmt.Errorf("%s signer returned %d byte signature, want %d", scheme, len(sig), scheme.SignatureLength())
	}
	return &types.Signature{Scheme: scheme, Bytes: sig}, nil
}

// Seal assembles the signed wire form: length prefix, version byte with the
// signed bit, signer address, MultiSignature, the extra fields of the signed
// extensions (era, nonce, tip) and finally the call.
func Seal(tx *types.UnsignedExtrinsic, sig *types.Signature, reg *registry.Registry) (*types.SignedExtrinsic, error) {
	if sig == nil || len(sig.Bytes) != sig.Scheme.SignatureLength() {
		return nil, fmt.Errorf("%w: bad signature length", ErrBadSignature)
	}
	body := scale.NewEncoder()
	body.PutUint8(types.SignedVersion)
	if err := reg.EncodeTo(body, "Address", tx.Address); err != nil {
		return nil, err
	}
	if err := reg.EncodeTo(body, "ExtrinsicSignature", map[string]interface{}{sig.Scheme.String(): sig.Bytes}); err != nil {
		return nil, err
	}
	encodeExtra(body, tx)
	body.Write(tx.CallBytes)

	wire := scale.NewEncoder()
	wire.PutCompactUint64(uint64(body.Len()))
	wire.Write(body.Bytes())
	signed := types.NewSignedExtrinsic(wire.Bytes(), reg)
	log.Debug("Sealed extrinsic", "hash", signed.Hash(), "size", signed.Size(), "scheme", sig.Scheme)
	return signed, nil
}
