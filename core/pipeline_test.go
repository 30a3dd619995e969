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
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/rpc"
)

func newTestPipeline(t *testing.T) (*testchain.Node, *Pipeline) {
	t.Helper()
	node := testchain.NewNode()
	t.Cleanup(node.Close)
	h := rpc.NewHandle(node.URL, time.Second)
	t.Cleanup(h.Close)
	return node, New(h, Config{
		Catalog: calls.Polymesh(),
		Policy:  FixedDelay{Window: time.Millisecond},
	})
}

func TestPipelineTransferWithMemo(t *testing.T) {
	node, p := newTestPipeline(t)
	signer := newSigner(t, crypto.Sr25519)

	c, r, err := p.Run(context.Background(), signer, memoTransfer(t, "INITIAL TRANSFER"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, c.Signed.Hash(), r.Hash)

	dec := c.Decoded
	assert.Equal(t, signer.Address(), dec.Address)
	assert.Equal(t, uint64(0), dec.Nonce)
	assert.Equal(t, uint64(64), dec.Era.Period)
	assert.True(t, dec.Tip.IsZero())
	assert.True(t, dec.AsCall().Matches("balances", "transferWithMemo"), "decoded %s", dec.Call)
	assert.Equal(t, c.Unsigned.CallBytes, dec.CallBytes)

	args := dec.AsCall().Args()
	require.Len(t, args, 3)
	assert.Equal(t, aliceAddress, args[0].Value)
	assert.Equal(t, uint256.NewInt(1000000), args[1].Value)
	memo := append([]byte("INITIAL TRANSFER"), make([]byte, 16)...)
	assert.Equal(t, memo, args[2].Value)

	assert.Equal(t, [][]byte{c.Signed.Bytes()}, node.Submitted())
	assert.Equal(t, uint64(1), node.Nonce(signer.AccountID()))
}

func TestPipelineSequentialNonces(t *testing.T) {
	_, p := newTestPipeline(t)
	signer := newSigner(t, crypto.Ed25519)

	for i := uint64(0); i < 3; i++ {
		c, _, err := p.Run(context.Background(), signer, memoTransfer(t, ""))
		require.NoError(t, err)
		assert.Equal(t, i, c.Unsigned.Nonce)
	}
}

func TestPipelineConcurrentSigner(t *testing.T) {
	node, p := newTestPipeline(t)
	node.SetLatency(2 * time.Millisecond)
	signer := newSigner(t, crypto.Sr25519)
	other := newSigner(t, crypto.Ed25519)

	const runs = 5
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces []uint64
		errs   []error
	)
	for i := 0; i < runs; i++ {
		for _, s := range []Signer{signer, other} {
			wg.Add(1)
			go func(s Signer) {
				defer wg.Done()
				c, _, err := p.Run(context.Background(), s, memoTransfer(t, "concurrent"))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if s == signer {
					nonces = append(nonces, c.Unsigned.Nonce)
				}
			}(s)
		}
	}
	wg.Wait()
	require.Empty(t, errs)
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, nonces)
	assert.Equal(t, uint64(runs), node.Nonce(other.AccountID()))
	assert.Empty(t, p.locks, "signer locks are released")
}

func TestPipelineUnsupportedCall(t *testing.T) {
	node, p := newTestPipeline(t)
	node.SetMetadata(testchain.WithoutCall(testchain.Metadata(), "Balances", "transfer_with_memo"), testchain.SpecVersion+1)
	signer := newSigner(t, crypto.Sr25519)

	_, r, err := p.Run(context.Background(), signer, memoTransfer(t, "memo"))
	assert.Nil(t, r)
	var uerr *UnsupportedCallError
	require.True(t, errors.As(err, &uerr), "got %v", err)
	assert.Equal(t, uint32(testchain.SpecVersion+1), uerr.SpecVersion)
	assert.Zero(t, node.CallCount("author_submitExtrinsic"))
	assert.Empty(t, p.locks)
}

func TestPipelineFetchFailure(t *testing.T) {
	node, p := newTestPipeline(t)
	node.Fail("system_accountNextIndex", errors.New("unavailable"))
	signer := newSigner(t, crypto.Sr25519)

	_, _, err := p.Run(context.Background(), signer, memoTransfer(t, ""))
	var fe *ContextFetchError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, "system_accountNextIndex", fe.Lookup)
	assert.Zero(t, node.CallCount("author_submitExtrinsic"))
}

func TestPipelineRejected(t *testing.T) {
	node, p := newTestPipeline(t)
	signer := newSigner(t, crypto.Sr25519)
	c, err := p.Construct(context.Background(), signer, memoTransfer(t, ""))
	require.NoError(t, err)
	node.SetNonce(signer.AccountID(), 3)

	r, err := p.Submit(context.Background(), c)
	assert.Nil(t, r)
	var serr *SubmissionError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, testchain.InvalidTransactionCode, serr.Code)
}
