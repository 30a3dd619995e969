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

package calls

import (
	"github.com/holiman/uint256"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/core/types"
)

// Calls of the Polymesh runtime, spelled as the JavaScript API spells them.
var (
	CddRegisterDid = &Spec{
		Pallet: "identity", Method: "cddRegisterDid",
		Args: []ArgSpec{
			{Name: "targetAccount", Check: checkAddress},
			{Name: "secondaryKeys", Default: []interface{}{}},
		},
		Doc: "Registers a new identity for an account. Signed by a CDD provider.",
	}
	AddClaim = &Spec{
		Pallet: "identity", Method: "addClaim",
		Args: []ArgSpec{
			{Name: "target", Check: checkIdentityID},
			{Name: "claim"},
			{Name: "expiry", Optional: true},
		},
		Doc: "Adds a claim to an identity.",
	}
	AddAuthorization = &Spec{
		Pallet: "identity", Method: "addAuthorization",
		Args: []ArgSpec{
			{Name: "target", Check: checkSignatory},
			{Name: "data"},
			{Name: "expiry", Optional: true},
		},
		Doc: "Creates an authorization request for a signatory.",
	}
	JoinIdentityAsKey = &Spec{
		Pallet: "identity", Method: "joinIdentityAsKey",
		Args: []ArgSpec{{Name: "authId"}},
		Doc:  "Accepts a JoinIdentity authorization.",
	}
	Transfer = &Spec{
		Pallet: "balances", Method: "transfer",
		Args: []ArgSpec{
			{Name: "dest", Check: checkAddress},
			{Name: "value", Check: checkAmount},
		},
		Doc: "Transfers funds.",
	}
	TransferWithMemo = &Spec{
		Pallet: "balances", Method: "transferWithMemo",
		Args: []ArgSpec{
			{Name: "dest", Check: checkAddress},
			{Name: "value", Check: checkAmount},
			{Name: "memo", Optional: true, Check: checkMemo},
		},
		Doc: "Transfers funds with a memo of up to 32 bytes.",
	}
	Remark = &Spec{
		Pallet: "system", Method: "remark",
		Args: []ArgSpec{{Name: "remark"}},
		Doc:  "Stores nothing, useful for testing.",
	}
)

// Polymesh returns a catalog with the Polymesh calls.
func Polymesh() *Catalog {
	return NewCatalog(CddRegisterDid, AddClaim, AddAuthorization, JoinIdentityAsKey, Transfer, TransferWithMemo, Remark)
}

// WholePermissions grants everything.
var WholePermissions = map[string]interface{}{"asset": "Whole", "extrinsic": "Whole", "portfolio": "Whole"}

// NoPermissions grants nothing beyond membership of the identity.
func NoPermissions() map[string]interface{} {
	empty := func() map[string]interface{} { return map[string]interface{}{"These": []interface{}{}} }
	return map[string]interface{}{"asset": empty(), "extrinsic": empty(), "portfolio": empty()}
}

// RegisterIdentity creates an identity for target with no secondary keys.
func RegisterIdentity(target string) *types.Call {
	return types.NewCall(CddRegisterDid.Pallet, CddRegisterDid.Method,
		types.Arg{Name: "targetAccount", Value: target},
		types.Arg{Name: "secondaryKeys", Value: []interface{}{}},
	)
}

// AddCddClaim attaches a customer due diligence claim with a zero CDD id and
// no expiry to an identity.
func AddCddClaim(did common.Hash) *types.Call {
	return types.NewCall(AddClaim.Pallet, AddClaim.Method,
		types.Arg{Name: "target", Value: did.Hex()},
		types.Arg{Name: "claim", Value: map[string]interface{}{"CustomerDueDiligence": common.Hash{}.Hex()}},
		types.Arg{Name: "expiry", Value: nil},
	)
}

// AddSecondaryKey asks secondary to join the signer's identity with no
// permissions. The request is accepted with JoinIdentity.
func AddSecondaryKey(secondary string) *types.Call {
	return types.NewCall(AddAuthorization.Pallet, AddAuthorization.Method,
		types.Arg{Name: "target", Value: map[string]interface{}{"Account": secondary}},
		types.Arg{Name: "data", Value: map[string]interface{}{"JoinIdentity": NoPermissions()}},
		types.Arg{Name: "expiry", Value: nil},
	)
}

// JoinIdentity accepts the authorization authID.
func JoinIdentity(authID uint64) *types.Call {
	return types.NewCall(JoinIdentityAsKey.Pallet, JoinIdentityAsKey.Method,
		types.Arg{Name: "authId", Value: authID},
	)
}

// NewTransferWithMemo transfers value to dest. An empty memo is sent as
// None, others are NUL padded to 32 bytes.
func NewTransferWithMemo(dest string, value *uint256.Int, memo string) (*types.Call, error) {
	var m interface{}
	if memo != "" {
		padded, err := PadMemo(memo)
		if err != nil {
			return nil, err
		}
		m = padded
	}
	return types.NewCall(TransferWithMemo.Pallet, TransferWithMemo.Method,
		types.Arg{Name: "dest", Value: dest},
		types.Arg{Name: "value", Value: value},
		types.Arg{Name: "memo", Value: m},
	), nil
}
