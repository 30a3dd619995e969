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

// Package core builds, signs, verifies and submits Substrate extrinsics.
//
// A transaction passes through Fetcher (chain context), Builder (call bytes
// and signing payload), Sign and Seal (the signed wire form), Verify (decode
// the wire form back) and Monitor (submission and confirmation). Pipeline
// ties the stages together and serializes them per signer.
package core

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/scale"
)

var errNoContext = errors.New("chain context without registry")

// Builder turns calls into unsigned extrinsics and their signing payloads.
// A Builder holds no chain state and is safe for concurrent use.
type Builder struct {
	catalog *calls.Catalog
}

// NewBuilder creates a builder. The catalog is optional; when set, calls it
// knows are checked and normalized against it before encoding.
func NewBuilder(catalog *calls.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Build resolves call against the context's runtime and assembles the
// unsigned extrinsic for the signer at address. It does no I/O: a call the
// runtime does not know fails with *UnsupportedCallError before anything is
// sent anywhere.
func (b *Builder) Build(call *types.Call, address string, cc *types.ChainContext) (*types.UnsignedExtrinsic, *types.SigningPayload, error) {
	if cc == nil || cc.Registry == nil {
		return nil, nil, errNoContext
	}
	reg := cc.Registry
	meta := reg.Metadata()
	if v := meta.Extrinsic.Version; v != 0 && v != params.ExtrinsicVersion {
		return nil, nil, fmt.Errorf("%w: runtime uses %d", ErrUnsupportedVersion, v)
	}
	margs, err := reg.CallArgs(call.Pallet(), call.Method())
	if errors.Is(err, metadata.ErrCallNotFound) {
		return nil, nil, &UnsupportedCallError{Pallet: call.Pallet(), Method: call.Method(), SpecVersion: cc.SpecVersion}
	}
	if err != nil {
		return nil, nil, err
	}
	if b.catalog != nil {
		if call, err = b.catalog.Prepare(call); err != nil {
			return nil, nil, err
		}
	}
	if err := checkRequired(call, margs); err != nil {
		return nil, nil, err
	}
	if _, err := registry.ParseAccountID(address); err != nil {
		return nil, nil, fmt.Errorf("invalid signer address %q: %w", address, err)
	}
	callBytes, err := reg.EncodeCall(call.Pallet(), call.Method(), call.Args())
	if err != nil {
		return nil, nil, err
	}
	tx := &types.UnsignedExtrinsic{
		Version:            types.SignedVersion,
		Address:            address,
		Call:               call,
		CallBytes:          callBytes,
		Era:                cc.Era(),
		Nonce:              cc.Nonce,
		Tip:                new(uint256.Int).Set(cc.TipOrZero()),
		SpecVersion:        cc.SpecVersion,
		TransactionVersion: cc.TransactionVersion,
		GenesisHash:        cc.GenesisHash,
		BlockHash:          cc.BlockHash,
		BlockNumber:        cc.BlockNumber,
		Extensions:         extensionNames(meta.Extrinsic.SignedExtensions),
	}
	payload := PayloadOf(tx)
	log.Debug("Built extrinsic", "call", call, "signer", address, "nonce", tx.Nonce, "era", tx.Era, "payload", len(payload.Raw))
	return tx, payload, nil
}

// checkRequired reports the first non-Option argument of the runtime's call
// signature that call leaves out.
func checkRequired(call *types.Call, margs []metadata.Arg) error {
	args := call.Args()
	for i, a := range margs {
		if registry.IsOptional(a.Type) {
			continue
		}
		if i < len(args) && args[i].Name == "" && args[i].Value != nil {
			continue
		}
		if v, ok := call.Arg(a.Name); ok && v != nil {
			continue
		}
		return &calls.MissingArgumentError{Pallet: call.Pallet(), Method: call.Method(), Arg: a.Name}
	}
	return nil
}

// PayloadOf derives the signing payload of an unsigned extrinsic: the call
// bytes, then the extra fields, then the additional signed fields of its
// signed extensions.
func PayloadOf(tx *types.UnsignedExtrinsic) *types.SigningPayload {
	e := scale.NewEncoder()
	e.Write(tx.CallBytes)
	encodeExtra(e, tx)
	encodeAdditional(e, tx)
	return &types.SigningPayload{Raw: e.Bytes()}
}
