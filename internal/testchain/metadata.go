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

// Package testchain provides fixtures for tests: Polymesh-like runtime
// metadata, well-known keys and an in-process fake node speaking the JSON-RPC
// methods the pipeline uses.
package testchain

import (
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/params"
)

// Runtime constants served by the fixture chain.
const (
	SpecName    = "polymesh_testnet"
	SpecVersion = 2027
	TxVersion   = 7
)

var (
	// GenesisHash is the hash of block 0.
	GenesisHash = common.HexToHash("0x2ace05e703aa50b48c0ccccfc8b424f7aab9a1e2c424ed12e45d20b1e8ffd0d6")

	// Properties are the chain properties of the fixture chain.
	Properties = params.PolymeshTestnet

	// Signed extensions listed by the fixture runtime.
	SignedExtensions = []string{
		"CheckSpecVersion",
		"CheckTxVersion",
		"CheckGenesis",
		"CheckMortality",
		"CheckNonce",
		"CheckWeight",
		"ChargeTransactionPayment",
		"StoreCallMetadata",
	}
)

const lookupSource = "<T::Lookup as StaticLookup>::Source"

// Metadata returns a fresh copy of the fixture runtime metadata (v12).
func Metadata() *metadata.Metadata {
	return &metadata.Metadata{
		Version: metadata.V12,
		Modules: []metadata.Module{
			{
				Name: "System",
				Storage: &metadata.Storage{Prefix: "System", Items: []metadata.StorageItem{
					{Name: "Account", Modifier: metadata.Default, Type: metadata.StorageType{
						Kind: metadata.MapKind, Keys: []string{"T::AccountId"}, Hashers: []metadata.Hasher{metadata.Blake2_128Concat},
						Value: "AccountInfo<T::Index, T::AccountData>",
					}, Fallback: make([]byte, 4+4+64)},
					{Name: "Number", Modifier: metadata.Default, Type: metadata.StorageType{Kind: metadata.PlainKind, Value: "T::BlockNumber"}, Fallback: make([]byte, 4)},
				}},
				HasCalls:  true,
				Calls:     []metadata.Call{{Name: "remark", Args: []metadata.Arg{{Name: "_remark", Type: "Vec<u8>"}}}},
				HasEvents: true,
				Events:    []metadata.Event{{Name: "ExtrinsicSuccess", Args: []string{"DispatchInfo"}}},
				Constants: []metadata.Constant{{Name: "BlockHashCount", Type: "T::BlockNumber", Value: []byte{0x60, 0x09, 0, 0}}},
				Index:     0,
			},
			{Name: "Babe", Index: 1},
			{
				Name:     "Timestamp",
				HasCalls: true,
				Calls:    []metadata.Call{{Name: "set", Args: []metadata.Arg{{Name: "now", Type: "Compact<T::Moment>"}}}},
				Index:    2,
			},
			{
				Name:     "Balances",
				HasCalls: true,
				Calls: []metadata.Call{
					{Name: "transfer", Args: []metadata.Arg{
						{Name: "dest", Type: lookupSource},
						{Name: "value", Type: "Compact<T::Balance>"},
					}},
					{Name: "transfer_with_memo", Args: []metadata.Arg{
						{Name: "dest", Type: lookupSource},
						{Name: "value", Type: "Compact<T::Balance>"},
						{Name: "memo", Type: "Option<Memo>"},
					}},
				},
				Index: 5,
			},
			{
				Name: "Identity",
				Storage: &metadata.Storage{Prefix: "Identity", Items: []metadata.StorageItem{
					{Name: "KeyToIdentityIds", Modifier: metadata.Default, Type: metadata.StorageType{
						Kind: metadata.MapKind, Keys: []string{"T::AccountId"}, Hashers: []metadata.Hasher{metadata.Blake2_128Concat},
						Value: "IdentityId",
					}, Fallback: make([]byte, 32)},
					{Name: "Authorizations", Modifier: metadata.Optional, Type: metadata.StorageType{
						Kind: metadata.DoubleMapKind, Keys: []string{"Signatory<T::AccountId>", "u64"},
						Hashers: []metadata.Hasher{metadata.Blake2_128Concat, metadata.Twox64Concat},
						Value:   "Authorization<T::AccountId, T::Moment>",
					}},
				}},
				HasCalls: true,
				Calls: []metadata.Call{
					{Name: "cdd_register_did", Args: []metadata.Arg{
						{Name: "target_account", Type: "T::AccountId"},
						{Name: "secondary_keys", Type: "Vec<SecondaryKey<T::AccountId>>"},
					}},
					{Name: "add_claim", Args: []metadata.Arg{
						{Name: "target", Type: "IdentityId"},
						{Name: "claim", Type: "Claim"},
						{Name: "expiry", Type: "Option<T::Moment>"},
					}},
					{Name: "add_authorization", Args: []metadata.Arg{
						{Name: "target", Type: "Signatory<T::AccountId>"},
						{Name: "data", Type: "AuthorizationData<T::AccountId>"},
						{Name: "expiry", Type: "Option<T::Moment>"},
					}},
					{Name: "join_identity_as_key", Args: []metadata.Arg{{Name: "auth_id", Type: "u64"}}},
				},
				Index: 7,
			},
			{
				Name:     "Utility",
				HasCalls: true,
				Calls:    []metadata.Call{{Name: "batch", Args: []metadata.Arg{{Name: "calls", Type: "Vec<<T as Config>::Call>"}}}},
				Index:    29,
			},
		},
		Extrinsic: metadata.Extrinsic{Version: 4, SignedExtensions: append([]string(nil), SignedExtensions...)},
	}
}

// MetadataBlob returns the encoded fixture metadata.
func MetadataBlob() []byte {
	return MustEncode(Metadata())
}

// MustEncode encodes metadata, panicking on error.
func MustEncode(m *metadata.Metadata) []byte {
	blob, err := m.Encode()
	if err != nil {
		panic(err)
	}
	return blob
}

// WithoutCall removes a call from the metadata, as a runtime upgrade that
// drops it would. Later calls of the module keep their positions shifted
// down, which is what a real removal does.
func WithoutCall(m *metadata.Metadata, pallet, method string) *metadata.Metadata {
	mod, ok := m.Module(pallet)
	if !ok {
		return m
	}
	norm := metadata.NormalizeName(method)
	calls := mod.Calls[:0]
	for _, c := range mod.Calls {
		if metadata.NormalizeName(c.Name) != norm {
			calls = append(calls, c)
		}
	}
	mod.Calls = calls
	return m
}
