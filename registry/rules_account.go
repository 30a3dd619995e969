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

package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/scale"
)

// AccountIDLength is the byte length of an AccountId.
const AccountIDLength = 32

// accountIDRule is AccountId. Input may be an SS58 address of any network
// format, 0x-hex or raw bytes; output is the SS58 address in the registry's
// format.
type accountIDRule struct {
	format uint16
}

// ParseAccountID converts an address-like value into raw account id bytes.
func ParseAccountID(v interface{}) ([]byte, error) {
	if s, ok := v.(string); ok && !common.IsHex(s) {
		id, _, err := crypto.SS58Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %v", s, err)
		}
		if len(id) != AccountIDLength {
			return nil, fmt.Errorf("address %q holds %d bytes, need %d", s, len(id), AccountIDLength)
		}
		return id, nil
	}
	b, _, err := toBytes(v)
	if err != nil {
		return nil, err
	}
	if len(b) != AccountIDLength {
		return nil, fmt.Errorf("account id needs %d bytes, got %d", AccountIDLength, len(b))
	}
	return b, nil
}

func (r *accountIDRule) Encode(e *scale.Encoder, v interface{}) error {
	id, err := ParseAccountID(v)
	if err != nil {
		return err
	}
	e.Write(id)
	return nil
}

func (r *accountIDRule) Decode(d *scale.Decoder) (interface{}, error) {
	b, err := d.ReadBytes(AccountIDLength)
	if err != nil {
		return nil, err
	}
	return crypto.SS58Encode(b, r.format), nil
}

// Prefix bytes of an IndicesLookupSource.
const (
	lookupAccountPrefix = 0xff
	lookupU64Prefix     = 0xfe
	lookupU32Prefix     = 0xfd
	lookupU16Prefix     = 0xfc
	lookupMaxInline     = 0xef
)

// indicesLookupSourceRule is the pre-MultiAddress address format: 0xff
// followed by an account id, or an account index in one of the compact-like
// forms. Account ids round trip as SS58 strings, indices as {"Index": n}.
type indicesLookupSourceRule struct {
	account *accountIDRule
}

func (r *indicesLookupSourceRule) Encode(e *scale.Encoder, v interface{}) error {
	if name, payload, ok := singleEntry(v); ok {
		switch name {
		case "Index", "index":
			return r.encodeIndex(e, payload)
		case "Id", "id", "Account", "account":
			v = payload
		default:
			return fmt.Errorf("unknown lookup source variant %q", name)
		}
	}
	switch v.(type) {
	case uint8, uint16, uint32, uint64, int:
		return r.encodeIndex(e, v)
	}
	id, err := ParseAccountID(v)
	if err != nil {
		return err
	}
	e.PutUint8(lookupAccountPrefix)
	e.Write(id)
	return nil
}

func (r *indicesLookupSourceRule) encodeIndex(e *scale.Encoder, v interface{}) error {
	n, err := toUint256(v)
	if err != nil {
		return err
	}
	if !n.IsUint64() {
		return fmt.Errorf("account index %s overflows u64", n.Dec())
	}
	switch idx := n.Uint64(); {
	case idx <= lookupMaxInline:
		e.PutUint8(uint8(idx))
	case idx <= 0xffff:
		e.PutUint8(lookupU16Prefix)
		e.PutUint16(uint16(idx))
	case idx <= 0xffffffff:
		e.PutUint8(lookupU32Prefix)
		e.PutUint32(uint32(idx))
	default:
		e.PutUint8(lookupU64Prefix)
		e.PutUint64(idx)
	}
	return nil
}

func (r *indicesLookupSourceRule) Decode(d *scale.Decoder) (interface{}, error) {
	prefix, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	var idx, floor uint64
	switch {
	case prefix == lookupAccountPrefix:
		return r.account.Decode(d)
	case prefix <= lookupMaxInline:
		return map[string]interface{}{"Index": uint64(prefix)}, nil
	case prefix == lookupU16Prefix:
		b, err := d.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		idx, floor = uint64(binary.LittleEndian.Uint16(b)), lookupMaxInline+1
	case prefix == lookupU32Prefix:
		b, err := d.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		idx, floor = uint64(binary.LittleEndian.Uint32(b)), 1<<16
	case prefix == lookupU64Prefix:
		b, err := d.ReadBytes(8)
		if err != nil {
			return nil, err
		}
		idx, floor = binary.LittleEndian.Uint64(b), 1<<32
	default:
		return nil, fmt.Errorf("invalid lookup source prefix 0x%02x", prefix)
	}
	if idx < floor {
		return nil, scale.ErrNonCanonical
	}
	return map[string]interface{}{"Index": idx}, nil
}

// multiAddressRule is MultiAddress: an enum whose Id variant is also accepted
// (and decoded) as a bare address.
type multiAddressRule struct {
	enum    *enumRule
	account *accountIDRule
}

func newMultiAddressRule(account *accountIDRule) *multiAddressRule {
	return &multiAddressRule{
		account: account,
		enum: &enumRule{variants: []variant{
			{name: "Id", index: 0, rule: account},
			{name: "Index", index: 1, rule: &compactRule{width: 4}},
			{name: "Raw", index: 2, rule: bytesRule{}},
			{name: "Address32", index: 3, rule: &fixedBytesRule{n: 32}},
			{name: "Address20", index: 4, rule: &fixedBytesRule{n: 20}},
		}},
	}
}

func (r *multiAddressRule) Encode(e *scale.Encoder, v interface{}) error {
	if _, _, ok := singleEntry(v); ok {
		return r.enum.Encode(e, v)
	}
	e.PutUint8(0)
	return r.account.Encode(e, v)
}

func (r *multiAddressRule) Decode(d *scale.Decoder) (interface{}, error) {
	tag, err := d.Peek()
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		d.ReadUint8()
		return r.account.Decode(d)
	}
	return r.enum.Decode(d)
}
