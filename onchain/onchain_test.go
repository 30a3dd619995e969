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

package onchain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/rpc"
)

const (
	alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

var did = common.HexToHash("0x0600000000000000000000000000000000000000000000000000000000000000")

func newQuerier(t *testing.T) (*testchain.Node, *Querier) {
	t.Helper()
	node := testchain.NewNode()
	t.Cleanup(node.Close)
	h := rpc.NewHandle(node.URL, time.Second)
	t.Cleanup(h.Close)
	return node, New(client.New(h))
}

func linkIdentity(t *testing.T, node *testchain.Node, address string, id common.Hash) {
	t.Helper()
	account, _, err := crypto.SS58Decode(address)
	require.NoError(t, err)
	mod, item, err := testchain.Metadata().FindStorage("Identity", "KeyToIdentityIds")
	require.NoError(t, err)
	key, err := mod.Storage.StorageKey(item, account)
	require.NoError(t, err)
	node.SetStorage(key, id.Bytes())
}

func TestIdentityStatus(t *testing.T) {
	node, q := newQuerier(t)
	ctx := context.Background()

	status, err := q.GetIdentityStatus(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, status.DID)
	assert.False(t, status.HasCddClaim)
	assert.Equal(t, "no identity", status.String())
	assert.Zero(t, node.CallCount("identity_isIdentityHasValidCdd"))

	linkIdentity(t, node, alice, did)
	status, err = q.GetIdentityStatus(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, status.DID)
	assert.Equal(t, did, *status.DID)
	assert.False(t, status.HasCddClaim)

	node.SetValidCdd(did, true)
	status, err = q.GetIdentityStatus(ctx, alice)
	require.NoError(t, err)
	assert.True(t, status.HasCddClaim)
	assert.Contains(t, status.String(), "CDD valid")

	// Other accounts are unaffected.
	status, err = q.GetIdentityStatus(ctx, bob)
	require.NoError(t, err)
	assert.Nil(t, status.DID)
}

func TestIdentityOfErrors(t *testing.T) {
	node, q := newQuerier(t)
	_, err := q.IdentityOf(context.Background(), "not-an-address")
	assert.Error(t, err)

	linkIdentity(t, node, alice, did)
	account, _, _ := crypto.SS58Decode(alice)
	mod, item, _ := testchain.Metadata().FindStorage("Identity", "KeyToIdentityIds")
	key, _ := mod.Storage.StorageKey(item, account)
	node.SetStorage(key, []byte{1, 2, 3})
	_, err = q.IdentityOf(context.Background(), alice)
	assert.Error(t, err)
}

func TestPendingAuthorizations(t *testing.T) {
	node, q := newQuerier(t)
	ctx := context.Background()

	ids, err := q.GetPendingAuthorizations(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, ids)

	past := uint64(1)
	node.AddAuthorization(bob, testchain.Authorization{AuthID: 7, AuthorizedBy: did, Data: map[string]interface{}{JoinIdentity: nil}})
	node.AddAuthorization(bob, testchain.Authorization{AuthID: 8, AuthorizedBy: did, Data: map[string]interface{}{"TransferTicker": "ACME"}})
	node.AddAuthorization(bob, testchain.Authorization{AuthID: 9, AuthorizedBy: did, Data: map[string]interface{}{JoinIdentity: nil}, Expiry: &past})
	node.AddAuthorization(alice, testchain.Authorization{AuthID: 10, AuthorizedBy: did, Data: map[string]interface{}{JoinIdentity: nil}})

	ids, err = q.GetPendingAuthorizations(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, ids)
}
