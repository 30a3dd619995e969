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
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/registry"
)

const (
	alice    = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceHex = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func TestPrepareOrdersArguments(t *testing.T) {
	c := Polymesh()
	call := types.NewCall("Balances", "transfer_with_memo",
		types.Arg{Name: "memo", Value: "hi"},
		types.Arg{Name: "value", Value: uint64(5)},
		types.Arg{Name: "dest", Value: alice},
	)
	got, err := c.Prepare(call)
	require.NoError(t, err)
	require.Len(t, got.Args(), 3)
	assert.Equal(t, []string{"dest", "value", "memo"}, []string{got.Args()[0].Name, got.Args()[1].Name, got.Args()[2].Name})
	assert.Equal(t, alice, got.Args()[0].Value)

	// Positional arguments and a missing optional one.
	got, err = c.Prepare(types.NewCall("balances", "transferWithMemo", types.Arg{Value: alice}, types.Arg{Value: "10"}))
	require.NoError(t, err)
	assert.Equal(t, "memo", got.Args()[2].Name)
	assert.Nil(t, got.Args()[2].Value)

	// Defaults fill absent arguments.
	got, err = c.Prepare(types.NewCall("identity", "cddRegisterDid", types.Arg{Name: "target_account", Value: alice}))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, got.Args()[1].Value)
}

func TestPrepareErrors(t *testing.T) {
	c := Polymesh()

	_, err := c.Prepare(types.NewCall("balances", "transfer", types.Arg{Name: "dest", Value: alice}))
	var missing *MissingArgumentError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "value", missing.Arg)

	tests := []struct {
		name string
		call *types.Call
		arg  string
	}{
		{"bad address", types.NewCall("balances", "transfer", types.Arg{Name: "dest", Value: "nope"}, types.Arg{Name: "value", Value: 1}), "dest"},
		{"short hex address", types.NewCall("balances", "transfer", types.Arg{Name: "dest", Value: "0x1234"}, types.Arg{Name: "value", Value: 1}), "dest"},
		{"negative amount", types.NewCall("balances", "transfer", types.Arg{Name: "dest", Value: alice}, types.Arg{Name: "value", Value: -1}), "value"},
		{"bad amount", types.NewCall("balances", "transfer", types.Arg{Name: "dest", Value: alice}, types.Arg{Name: "value", Value: "ten"}), "value"},
		{"long memo", types.NewCall("balances", "transferWithMemo", types.Arg{Value: alice}, types.Arg{Value: 1}, types.Arg{Value: strings.Repeat("m", 33)}), "memo"},
		{"long hex memo", types.NewCall("balances", "transferWithMemo", types.Arg{Value: alice}, types.Arg{Value: 1}, types.Arg{Value: "0x" + strings.Repeat("ab", 33)}), "memo"},
		{"bad identity", types.NewCall("identity", "addClaim", types.Arg{Name: "target", Value: "0x01"}, types.Arg{Name: "claim", Value: "x"}), "target"},
		{"bad signatory", types.NewCall("identity", "addAuthorization", types.Arg{Name: "target", Value: alice}, types.Arg{Name: "data", Value: "x"}), "target"},
		{"unexpected", types.NewCall("system", "remark", types.Arg{Name: "remark", Value: []byte{1}}, types.Arg{Name: "extra", Value: 1}), "extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Prepare(tt.call)
			var aerr *ArgumentError
			require.True(t, errors.As(err, &aerr), "got %v", err)
			assert.Equal(t, tt.arg, aerr.Arg)
		})
	}
}

func TestPrepareUncatalogued(t *testing.T) {
	call := types.NewCall("timestamp", "set", types.Arg{Value: uint64(1)})
	got, err := Polymesh().Prepare(call)
	require.NoError(t, err)
	assert.Same(t, call, got)
}

func TestCatalogSpecs(t *testing.T) {
	c := NewCatalog(Remark, Transfer)
	specs := c.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "balances.transfer", specs[0].Name())
	assert.Equal(t, "system.remark", specs[1].Name())

	s, ok := c.Lookup("System", "REMARK")
	require.True(t, ok)
	assert.Same(t, Remark, s)
	_, ok = c.Lookup("identity", "addClaim")
	assert.False(t, ok)
}

func TestPadMemo(t *testing.T) {
	m, err := PadMemo("INITIAL TRANSFER")
	require.NoError(t, err)
	assert.Len(t, m, 32)
	assert.True(t, strings.HasPrefix(m, "INITIAL TRANSFER\x00"))

	_, err = PadMemo(strings.Repeat("x", 33))
	assert.Equal(t, ErrMemoTooLong, err)

	// Hex memos are measured and padded by their bytes.
	m, err = PadMemo("0x4142")
	require.NoError(t, err)
	assert.Equal(t, "0x4142"+strings.Repeat("00", 30), m)
	full := "0x" + strings.Repeat("cd", 32)
	m, err = PadMemo(full)
	require.NoError(t, err)
	assert.Equal(t, full, m)
	_, err = prepareMemoTransfer(t, full)
	require.NoError(t, err)

	call, err := NewTransferWithMemo(alice, uint256.NewInt(1), "")
	require.NoError(t, err)
	memo, _ := call.Arg("memo")
	assert.Nil(t, memo)
}

func prepareMemoTransfer(t *testing.T, memo string) (*types.Call, error) {
	t.Helper()
	return Polymesh().Prepare(types.NewCall("balances", "transferWithMemo",
		types.Arg{Name: "dest", Value: alice}, types.Arg{Name: "value", Value: 1}, types.Arg{Name: "memo", Value: memo}))
}

func encodeCall(t *testing.T, call *types.Call) []byte {
	t.Helper()
	reg, err := registry.Build(registry.DefaultSchema(), testchain.MetadataBlob(), testchain.Properties, testchain.SpecName, testchain.SpecVersion)
	require.NoError(t, err)
	call, err = Polymesh().Prepare(call)
	require.NoError(t, err)
	b, err := reg.EncodeCall(call.Pallet(), call.Method(), call.Args())
	require.NoError(t, err)

	dec, err := reg.DecodeCall(b)
	require.NoError(t, err)
	assert.True(t, call.Matches(dec.Pallet, dec.Method))
	return b
}

func TestOnboardingCalls(t *testing.T) {
	acct := hexutil.MustDecode("0x" + aliceHex)

	assert.Equal(t, append(append([]byte{7, 0}, acct...), 0), encodeCall(t, RegisterIdentity(alice)))

	did := common.HexToHash("0x0600000000000000000000000000000000000000000000000000000000000000")
	b := encodeCall(t, AddCddClaim(did))
	assert.Equal(t, []byte{7, 1}, b[:2])
	assert.Equal(t, did.Bytes(), b[2:34])
	assert.Equal(t, byte(4), b[34], "CustomerDueDiligence")
	assert.Equal(t, make([]byte, 32), b[35:67], "zero cdd id")
	assert.Equal(t, byte(0), b[len(b)-1], "no expiry")

	b = encodeCall(t, AddSecondaryKey(alice))
	assert.Equal(t, []byte{7, 2, 1}, b[:3], "signatory account")
	assert.Equal(t, acct, b[3:35])
	assert.Equal(t, []byte{1, 0, 1, 0, 1, 0, 0}, b[len(b)-7:], "empty permissions, no expiry")

	assert.Equal(t, []byte{7, 3, 9, 0, 0, 0, 0, 0, 0, 0}, encodeCall(t, JoinIdentity(9)))
}
