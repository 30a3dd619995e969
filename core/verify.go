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
	"bytes"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/scale"
)

var errTrailingBytes = errors.New("trailing bytes after call")

// Verify decodes a signed extrinsic. Malformed bytes yield *DecodeError.
func Verify(signed *types.SignedExtrinsic, reg *registry.Registry) (*types.DecodedExtrinsic, error) {
	dec, err := Decode(signed.Bytes(), reg)
	if err != nil {
		return nil, err
	}
	if !dec.Signed {
		return nil, ErrNotSigned
	}
	return dec, nil
}

// Decode decodes extrinsic bytes from any source, length prefix included.
// Both signed and unsigned extrinsics are accepted.
func Decode(raw []byte, reg *registry.Registry) (*types.DecodedExtrinsic, error) {
	d := scale.NewDecoder(raw)
	dec, err := decodeExtrinsic(d, raw, reg)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DecodeError{Type: "Extrinsic", Offset: d.Offset(), Err: err}
	}
	return dec, nil
}

func decodeExtrinsic(d *scale.Decoder, raw []byte, reg *registry.Registry) (*types.DecodedExtrinsic, error) {
	length, err := d.ReadCompactUint64()
	if err != nil {
		return nil, err
	}
	if length != uint64(d.Remaining()) {
		return nil, fmt.Errorf("length prefix %d, have %d bytes", length, d.Remaining())
	}
	version, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version&types.VersionMask != types.UnsignedVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version&types.VersionMask)
	}
	dec := &types.DecodedExtrinsic{
		Version: version & types.VersionMask,
		Signed:  version&types.SignedBit != 0,
		Era:     types.ImmortalEra,
	}
	if dec.Signed {
		addr, err := reg.DecodeFrom(d, "Address")
		if err != nil {
			return nil, err
		}
		dec.Address = addressString(addr)
		sig, err := reg.DecodeFrom(d, "ExtrinsicSignature")
		if err != nil {
			return nil, err
		}
		if dec.Signature, err = signatureOf(sig); err != nil {
			return nil, err
		}
		names := extensionNames(reg.Metadata().Extrinsic.SignedExtensions)
		if err := decodeExtra(d, names, dec); err != nil {
			return nil, err
		}
	}
	if dec.Tip == nil {
		dec.Tip = new(uint256.Int)
	}
	start := d.Offset()
	if dec.Call, err = reg.DecodeCallFrom(d); err != nil {
		return nil, err
	}
	dec.CallBytes = append([]byte(nil), raw[start:d.Offset()]...)
	if d.Remaining() != 0 {
		return nil, errTrailingBytes
	}
	dec.Hash = crypto.Blake2b256Hash(raw)
	return dec, nil
}

// addressString renders a decoded address. Account ids already decode to
// SS58, other address forms are printed as their decoded value.
func addressString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func signatureOf(v interface{}) (*types.Signature, error) {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("unexpected signature value %T", v)
	}
	var (
		name string
		val  interface{}
	)
	for name, val = range m {
	}
	scheme, err := crypto.ParseScheme(name)
	if err != nil {
		return nil, err
	}
	b, ok := val.([]byte)
	if !ok || len(b) != scheme.SignatureLength() {
		return nil, fmt.Errorf("malformed %s signature", scheme)
	}
	return &types.Signature{Scheme: scheme, Bytes: b}, nil
}

// VerifySealed decodes an extrinsic that was just sealed from tx and checks
// that it reads back as built. Any failure is a *ConsistencyError: it means
// the encoder and decoder disagree, which is a defect rather than bad input.
func VerifySealed(tx *types.UnsignedExtrinsic, signed *types.SignedExtrinsic, reg *registry.Registry) (*types.DecodedExtrinsic, error) {
	dec, err := Verify(signed, reg)
	if err != nil {
		return nil, &ConsistencyError{Err: err}
	}
	for _, c := range sealedChecks {
		if err := c.check(tx, dec); err != nil {
			return nil, &ConsistencyError{Field: c.field, Err: err}
		}
	}
	return dec, nil
}

// sealedChecks compare one field of a decoded extrinsic with its source.
var sealedChecks = []struct {
	field string
	check func(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error
}{
	{"address", validateAddress},
	{"era", validateEra},
	{"nonce", validateNonce},
	{"tip", validateTip},
	{"call", validateCall},
}

func validateAddress(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error {
	want, err := registry.ParseAccountID(tx.Address)
	if err != nil {
		return err
	}
	have, err := registry.ParseAccountID(dec.Address)
	if err != nil {
		return err
	}
	if !bytes.Equal(have, want) {
		return fmt.Errorf("have %s, want %s", dec.Address, tx.Address)
	}
	return nil
}

func validateEra(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error {
	if !tx.HasExtension("CheckMortality", "CheckEra") {
		return nil
	}
	if dec.Era != tx.Era {
		return fmt.Errorf("have %v, want %v", dec.Era, tx.Era)
	}
	return nil
}

func validateNonce(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error {
	if dec.Nonce != tx.Nonce && tx.HasExtension("CheckNonce") {
		return fmt.Errorf("have %d, want %d", dec.Nonce, tx.Nonce)
	}
	return nil
}

func validateTip(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error {
	if !tx.HasExtension("ChargeTransactionPayment") {
		return nil
	}
	if tx.Tip != nil && dec.Tip.Cmp(tx.Tip) != 0 || tx.Tip == nil && !dec.Tip.IsZero() {
		return fmt.Errorf("have %v, want %v", dec.Tip, tx.Tip)
	}
	return nil
}

func validateCall(tx *types.UnsignedExtrinsic, dec *types.DecodedExtrinsic) error {
	if !bytes.Equal(dec.CallBytes, tx.CallBytes) {
		return fmt.Errorf("call bytes differ: have %x, want %x", dec.CallBytes, tx.CallBytes)
	}
	if metadata.NormalizeName(dec.Call.Pallet) != metadata.NormalizeName(tx.Call.Pallet()) ||
		metadata.NormalizeName(dec.Call.Method) != metadata.NormalizeName(tx.Call.Method()) {
		return fmt.Errorf("have %s.%s, want %s", dec.Call.Pallet, dec.Call.Method, tx.Call)
	}
	return nil
}

// VerifySignature checks a decoded extrinsic's signature over payload
// against the signer's account.
func VerifySignature(dec *types.DecodedExtrinsic, payload *types.SigningPayload) error {
	if !dec.Signed || dec.Signature == nil {
		return ErrNotSigned
	}
	account, err := registry.ParseAccountID(dec.Address)
	if err != nil {
		return err
	}
	if !crypto.VerifyAccount(dec.Signature.Scheme, account, payload.Bytes(), dec.Signature.Bytes) {
		return ErrBadSignature
	}
	return nil
}
