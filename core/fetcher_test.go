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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/registry"
)

func TestFetch(t *testing.T) {
	node, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	node.SetNonce(signer.AccountID(), 17)

	cc, err := NewFetcher(c, FetcherConfig{Tip: uint256.NewInt(9)}).Fetch(context.Background(), signer.Address())
	require.NoError(t, err)
	// latest and genesis
	assert.Equal(t, 2, node.CallCount("chain_getBlockHash"))
	head, err := c.BlockHash(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(testchain.InitialHead), cc.BlockNumber)
	assert.Equal(t, head, cc.BlockHash)
	assert.Equal(t, testchain.GenesisHash, cc.GenesisHash)
	assert.Equal(t, uint64(17), cc.Nonce)
	assert.Equal(t, testchain.SpecName, cc.SpecName)
	assert.Equal(t, uint32(testchain.SpecVersion), cc.SpecVersion)
	assert.Equal(t, uint32(testchain.TxVersion), cc.TransactionVersion)
	assert.Equal(t, uint64(64), cc.EraPeriod)
	assert.Equal(t, uint256.NewInt(9), cc.Tip)
	assert.Equal(t, testchain.MetadataBlob(), cc.Metadata)
	assert.Equal(t, testchain.Properties, cc.Properties)
	require.NotNil(t, cc.Registry)
	assert.Equal(t, uint32(testchain.SpecVersion), cc.Registry.SpecVersion())

	for _, method := range []string{"chain_getBlock", "state_getMetadata", "system_accountNextIndex", "state_getRuntimeVersion"} {
		assert.Equal(t, 1, node.CallCount(method), method)
	}
}

func TestFetchEraSettings(t *testing.T) {
	_, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	ctx := context.Background()

	cc, err := NewFetcher(c, FetcherConfig{Immortal: true}).Fetch(ctx, signer.Address())
	require.NoError(t, err)
	assert.True(t, cc.Era().Immortal)

	// A long period quantizes the phase below the current block, and the
	// context anchors to the era's first block.
	cc, err = NewFetcher(c, FetcherConfig{EraPeriod: 65536}).Fetch(ctx, signer.Address())
	require.NoError(t, err)
	era := cc.Era()
	assert.Equal(t, uint64(65536), era.Period)
	assert.Equal(t, uint64(992), era.Phase)
	birth := uint64(992)
	want, err := c.BlockHash(ctx, &birth)
	require.NoError(t, err)
	assert.Equal(t, want, cc.BlockHash)
}

func TestFetchHeadConsistency(t *testing.T) {
	node, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	ctx := context.Background()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				node.Seal()
				time.Sleep(time.Millisecond)
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	f := NewFetcher(c, FetcherConfig{})
	for i := 0; i < 20; i++ {
		cc, err := f.Fetch(ctx, signer.Address())
		require.NoError(t, err)
		number := cc.BlockNumber
		want, err := c.BlockHash(ctx, &number)
		require.NoError(t, err)
		require.Equal(t, want, cc.BlockHash, "context %d: hash is not the hash of block %d", i, number)
	}
}

func TestFetchLookupFailure(t *testing.T) {
	node, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)

	for _, method := range []string{"state_getMetadata", "system_accountNextIndex", "state_getRuntimeVersion", "chain_getBlock"} {
		node.Fail(method, errors.New("boom"))
		_, err := NewFetcher(c, FetcherConfig{}).Fetch(context.Background(), signer.Address())
		var fe *ContextFetchError
		require.True(t, errors.As(err, &fe), "%s: got %v", method, err)
		assert.Equal(t, method, fe.Lookup)
		node.Fail(method, nil)
	}
}

func TestFetchRegistryError(t *testing.T) {
	node, c := startNode(t)
	meta := testchain.Metadata()
	sys, _ := meta.Module("System")
	sys.Calls = append(sys.Calls, metadata.Call{Name: "mint", Args: []metadata.Arg{{Name: "what", Type: "Unobtainium"}}})
	node.SetMetadata(meta, testchain.SpecVersion)
	signer := newSigner(t, crypto.Sr25519)

	_, err := NewFetcher(c, FetcherConfig{}).Fetch(context.Background(), signer.Address())
	var mpe *registry.MetadataParseError
	require.True(t, errors.As(err, &mpe), "got %v", err)
	var fe *ContextFetchError
	assert.False(t, errors.As(err, &fe))

	// Lenient registries build and only fail for the affected call.
	cc, err := NewFetcher(c, FetcherConfig{Lenient: true}).Fetch(context.Background(), signer.Address())
	require.NoError(t, err)
	_, _, err = NewBuilder(nil).Build(memoTransfer(t, ""), signer.Address(), cc)
	require.NoError(t, err)
}
