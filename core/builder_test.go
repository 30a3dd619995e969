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
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/accounts/keyring"
	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/rpc"
	"github.com/probeum/go-polytx/scale"
)

const (
	eveSeed      = "0x786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a"
	aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceHex     = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

var testBlockHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

func newSigner(t *testing.T, scheme crypto.Scheme) *keyring.KeyPair {
	t.Helper()
	kp, err := keyring.FromHexSeed(scheme, eveSeed, testchain.Properties.SS58Format)
	require.NoError(t, err)
	return kp
}

func newTestRegistry(t *testing.T, specVersion uint32) *registry.Registry {
	t.Helper()
	reg, err := registry.Build(registry.DefaultSchema(), testchain.MetadataBlob(), testchain.Properties, testchain.SpecName, specVersion)
	require.NoError(t, err)
	return reg
}

// testContext is a frozen chain context at block 1000.
func testContext(t *testing.T, specVersion uint32) *types.ChainContext {
	return &types.ChainContext{
		BlockHash:          testBlockHash,
		BlockNumber:        1000,
		GenesisHash:        testchain.GenesisHash,
		Metadata:           testchain.MetadataBlob(),
		Nonce:              5,
		SpecName:           testchain.SpecName,
		SpecVersion:        specVersion,
		TransactionVersion: testchain.TxVersion,
		EraPeriod:          64,
		Properties:         testchain.Properties,
		Registry:           newTestRegistry(t, specVersion),
	}
}

func memoTransfer(t *testing.T, memo string) *types.Call {
	t.Helper()
	call, err := calls.NewTransferWithMemo(aliceAddress, uint256.NewInt(1000000), memo)
	require.NoError(t, err)
	return call
}

func startNode(t *testing.T) (*testchain.Node, *client.Client) {
	t.Helper()
	node := testchain.NewNode()
	t.Cleanup(node.Close)
	h := rpc.NewHandle(node.URL, time.Second)
	t.Cleanup(h.Close)
	return node, client.New(h)
}

func u32le(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestSigningPayloadLayout(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)

	tx, payload, err := NewBuilder(calls.Polymesh()).Build(memoTransfer(t, "INITIAL TRANSFER"), signer.Address(), cc)
	require.NoError(t, err)

	memo := append([]byte("INITIAL TRANSFER"), make([]byte, 16)...)
	wantCall := concat(hexutil.MustDecode("0x0501ff"+aliceHex+"02093d0001"), memo)
	assert.Equal(t, hexutil.Encode(wantCall), hexutil.Encode(tx.CallBytes))

	want := concat(
		wantCall,
		[]byte{0x85, 0x02}, // mortal, period 64, phase 40
		[]byte{0x14},       // nonce 5
		[]byte{0x00},       // tip
		u32le(testchain.SpecVersion),
		u32le(testchain.TxVersion),
		testchain.GenesisHash[:],
		testBlockHash[:],
	)
	assert.Equal(t, hexutil.Encode(want), payload.Hex())
	assert.False(t, payload.Hashed())
	assert.Equal(t, want, payload.Bytes())

	assert.Equal(t, types.Era{Period: 64, Phase: 40}, tx.Era)
	assert.Equal(t, uint64(5), tx.Nonce)
	assert.True(t, tx.Tip.IsZero())
	assert.Equal(t, testchain.SignedExtensions, tx.Extensions)
}

func TestImmortalPayload(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	cc.EraPeriod = 0
	cc.Tip = uint256.NewInt(3)
	signer := newSigner(t, crypto.Sr25519)

	tx, payload, err := NewBuilder(nil).Build(types.NewCall("system", "remark", types.Arg{Name: "_remark", Value: []byte{1}}), signer.Address(), cc)
	require.NoError(t, err)
	assert.True(t, tx.Era.Immortal)

	want := concat(
		hexutil.MustDecode("0x00000401"),
		[]byte{0x00, 0x14, 0x0c},
		u32le(testchain.SpecVersion),
		u32le(testchain.TxVersion),
		testchain.GenesisHash[:],
		testchain.GenesisHash[:],
	)
	assert.Equal(t, hexutil.Encode(want), payload.Hex())
}

func TestLargePayloadHashed(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)
	remark := bytes.Repeat([]byte{0xab}, 300)

	_, payload, err := NewBuilder(calls.Polymesh()).Build(types.NewCall("system", "remark", types.Arg{Value: remark}), signer.Address(), cc)
	require.NoError(t, err)
	require.True(t, payload.Hashed())
	assert.Equal(t, crypto.Blake2b256(payload.Raw), payload.Bytes())
}

func TestBuildDeterministic(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	signer := newSigner(t, crypto.Ed25519)
	b := NewBuilder(calls.Polymesh())

	var (
		sealed  [][]byte
		payload [][]byte
	)
	for i := 0; i < 3; i++ {
		tx, p, err := b.Build(memoTransfer(t, "memo"), signer.Address(), cc)
		require.NoError(t, err)
		sig, err := Sign(p, signer)
		require.NoError(t, err)
		signed, err := Seal(tx, sig, cc.Registry)
		require.NoError(t, err)
		payload = append(payload, p.Raw)
		sealed = append(sealed, signed.Bytes())
	}
	for i := 1; i < len(sealed); i++ {
		assert.Equal(t, payload[0], payload[i], "payload %d", i)
		assert.Equal(t, sealed[0], sealed[i], "extrinsic %d", i)
	}
}

func TestBuildUnsupportedCall(t *testing.T) {
	node, c := startNode(t)
	node.SetMetadata(testchain.WithoutCall(testchain.Metadata(), "Identity", "cdd_register_did"), testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)

	cc, err := NewFetcher(c, FetcherConfig{}).Fetch(context.Background(), signer.Address())
	require.NoError(t, err)
	node.ResetCalls()

	_, _, err = NewBuilder(calls.Polymesh()).Build(calls.RegisterIdentity(aliceAddress), signer.Address(), cc)
	var uce *UnsupportedCallError
	require.True(t, errors.As(err, &uce), "got %v", err)
	assert.Equal(t, "identity", uce.Pallet)
	assert.Equal(t, "cddRegisterDid", uce.Method)
	assert.Equal(t, uint32(testchain.SpecVersion), uce.SpecVersion)
	assert.Empty(t, node.Calls())

	// Calls the runtime still has are unaffected.
	_, _, err = NewBuilder(calls.Polymesh()).Build(calls.JoinIdentity(7), signer.Address(), cc)
	require.NoError(t, err)
}

func TestBuildArgumentErrors(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)
	noDest := types.NewCall("balances", "transferWithMemo", types.Arg{Name: "value", Value: 5})

	for _, catalog := range []*calls.Catalog{nil, calls.Polymesh()} {
		_, _, err := NewBuilder(catalog).Build(noDest, signer.Address(), cc)
		var mae *calls.MissingArgumentError
		require.True(t, errors.As(err, &mae), "catalog %v: got %v", catalog != nil, err)
		assert.Equal(t, "dest", mae.Arg)
	}

	// The memo is optional.
	_, _, err := NewBuilder(calls.Polymesh()).Build(noDest.With("dest", aliceAddress), signer.Address(), cc)
	require.NoError(t, err)

	long := noDest.With("dest", aliceAddress).With("memo", strings.Repeat("x", 33))
	_, _, err = NewBuilder(calls.Polymesh()).Build(long, signer.Address(), cc)
	require.True(t, errors.Is(err, calls.ErrMemoTooLong), "got %v", err)

	_, _, err = NewBuilder(nil).Build(noDest.With("dest", aliceAddress), "not an address", cc)
	require.Error(t, err)

	_, _, err = NewBuilder(nil).Build(noDest, signer.Address(), nil)
	require.Error(t, err)
}

func TestPayloadOfUnknownExtension(t *testing.T) {
	cc := testContext(t, testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)
	tx, payload, err := NewBuilder(nil).Build(calls.JoinIdentity(1), signer.Address(), cc)
	require.NoError(t, err)

	tx.Extensions = append(tx.Extensions, "SomethingNew")
	assert.Equal(t, payload.Raw, PayloadOf(tx).Raw)

	// Order follows the extension list.
	tx.Extensions = []string{"CheckNonce", "CheckMortality"}
	e := scale.NewEncoder()
	e.Write(tx.CallBytes)
	e.PutCompactUint64(tx.Nonce)
	e.Write(tx.Era.Encode())
	e.Write(tx.BlockHash[:])
	assert.Equal(t, e.Bytes(), PayloadOf(tx).Raw)
}
