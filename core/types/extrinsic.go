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

// Package types contains the data types of the transaction pipeline: calls,
// eras, chain contexts and the forms an extrinsic passes through.
package types

import (
	"fmt"
	"sync/atomic"

	"github.com/holiman/uint256"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/registry"
)

// Extrinsic version bytes.
const (
	SignedBit       = 0x80
	VersionMask     = 0x7f
	SignedVersion   = SignedBit | params.ExtrinsicVersion
	UnsignedVersion = params.ExtrinsicVersion
)

// UnsignedExtrinsic is a fully resolved transaction that still lacks its
// signature.
type UnsignedExtrinsic struct {
	Version            uint8
	Address            string
	Call               *Call
	CallBytes          []byte
	Era                Era
	Nonce              uint64
	Tip                *uint256.Int
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        common.Hash
	BlockHash          common.Hash
	BlockNumber        uint64
	Extensions         []string
}

// HasExtension reports whether any of the named signed extensions is in use.
func (tx *UnsignedExtrinsic) HasExtension(names ...string) bool {
	for _, ext := range tx.Extensions {
		for _, name := range names {
			if ext == name {
				return true
			}
		}
	}
	return false
}

// SigningPayload is the byte string a signer commits to.
type SigningPayload struct {
	Raw []byte
}

// Bytes returns the bytes to sign: Raw itself, or its blake2b-256 digest if
// Raw is longer than params.MaxUnhashedPayload.
func (p *SigningPayload) Bytes() []byte {
	if len(p.Raw) > params.MaxUnhashedPayload {
		return crypto.Blake2b256(p.Raw)
	}
	return common.CopyBytes(p.Raw)
}

// Hashed reports whether Bytes returns a digest.
func (p *SigningPayload) Hashed() bool {
	return len(p.Raw) > params.MaxUnhashedPayload
}

// Hex returns the 0x-hex form of Raw.
func (p *SigningPayload) Hex() string {
	return hexutil.Encode(p.Raw)
}

// Signature is a signature together with its scheme.
type Signature struct {
	Scheme crypto.Scheme
	Bytes  []byte
}

func (s *Signature) String() string {
	return fmt.Sprintf("%s:%s", s.Scheme, hexutil.Encode(s.Bytes))
}

// SignedExtrinsic is a wire-ready signed transaction.
type SignedExtrinsic struct {
	raw []byte
	reg *registry.Registry

	// caches
	hash atomic.Value
}

// NewSignedExtrinsic wraps encoded extrinsic bytes, length prefix included.
// reg is the registry the bytes were encoded with, or nil if unknown.
func NewSignedExtrinsic(raw []byte, reg *registry.Registry) *SignedExtrinsic {
	return &SignedExtrinsic{raw: common.CopyBytes(raw), reg: reg}
}

// Registry returns the registry the extrinsic was sealed with. It is nil
// for extrinsics wrapped from foreign bytes.
func (tx *SignedExtrinsic) Registry() *registry.Registry { return tx.reg }

// Bytes returns a copy of the wire bytes.
func (tx *SignedExtrinsic) Bytes() []byte { return common.CopyBytes(tx.raw) }

// Size returns the length of the wire bytes.
func (tx *SignedExtrinsic) Size() int { return len(tx.raw) }

// Hex returns the 0x-hex form submitted over RPC.
func (tx *SignedExtrinsic) Hex() string { return hexutil.Encode(tx.raw) }

// Hash returns the transaction hash, the blake2b-256 digest of the wire
// bytes. The hash is computed on first use and cached thereafter.
func (tx *SignedExtrinsic) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	h := crypto.Blake2b256Hash(tx.raw)
	tx.hash.Store(h)
	return h
}

// DecodedExtrinsic is the logical content of an encoded extrinsic.
type DecodedExtrinsic struct {
	Version   uint8
	Signed    bool
	Address   string
	Signature *Signature
	Era       Era
	Nonce     uint64
	Tip       *uint256.Int
	Call      *registry.DecodedCall
	CallBytes []byte
	Hash      common.Hash
}

// AsCall returns the decoded call as a Call.
func (d *DecodedExtrinsic) AsCall() *Call {
	return NewCall(d.Call.Pallet, d.Call.Method, d.Call.Args...)
}
