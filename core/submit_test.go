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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
)

// sealFromNode builds a transfer against the node's current context.
func sealFromNode(t *testing.T, c *client.Client, signer Signer) *types.SignedExtrinsic {
	t.Helper()
	cc, err := NewFetcher(c, FetcherConfig{}).Fetch(context.Background(), signer.Address())
	require.NoError(t, err)
	_, _, signed := sealTransfer(t, cc, signer)
	return signed
}

func TestSubmitFixedDelay(t *testing.T) {
	node, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	signed := sealFromNode(t, c, signer)

	r, err := NewMonitor(c, FixedDelay{Window: 10 * time.Millisecond}).Submit(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, []State{StateBuilt, StateSubmitted, StateAckReceived, StateWindowElapsed, StateDone}, r.States)
	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, signed.Hash(), r.Hash)
	assert.Equal(t, r.Hash, r.NodeHash)
	assert.False(t, r.Included)
	assert.Equal(t, 1, node.CallCount("author_submitExtrinsic"))
	assert.Equal(t, [][]byte{signed.Bytes()}, node.Submitted())
}

func TestSubmitRejected(t *testing.T) {
	node, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	signed := sealFromNode(t, c, signer)
	m := NewMonitor(c, FixedDelay{Window: time.Millisecond})

	_, err := m.Submit(context.Background(), signed)
	require.NoError(t, err)

	r, err := m.Submit(context.Background(), signed)
	assert.Nil(t, r)
	var serr *SubmissionError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, testchain.AlreadyImportedCode, serr.Code)
	assert.Equal(t, signed.Hash(), serr.Hash)

	// The nonce the transaction carries is used up now.
	node.SetNonce(signer.AccountID(), 1)
	stale := sealFromNode(t, c, signer)
	node.SetNonce(signer.AccountID(), 2)
	_, err = m.Submit(context.Background(), stale)
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, testchain.InvalidTransactionCode, serr.Code)
	assert.Equal(t, "Transaction is outdated", serr.Data)
	assert.Contains(t, serr.Error(), "Transaction is outdated")
}

func TestSubmitInclusionPoll(t *testing.T) {
	node, c := startNode(t)
	node.SetAutoSeal(false)
	signer := newSigner(t, crypto.Sr25519)
	signed := sealFromNode(t, c, signer)

	sealed := make(chan struct{})
	go func() {
		defer close(sealed)
		for len(node.Submitted()) == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		node.Seal()
	}()
	r, err := NewMonitor(c, InclusionPoll{Interval: 10 * time.Millisecond, Timeout: 5 * time.Second}).Submit(context.Background(), signed)
	<-sealed
	require.NoError(t, err)
	assert.True(t, r.Included)
	assert.Equal(t, uint64(testchain.InitialHead+1), r.BlockNumber)
	number := uint64(testchain.InitialHead + 1)
	want, err := c.BlockHash(context.Background(), &number)
	require.NoError(t, err)
	assert.Equal(t, want, r.BlockHash)
	assert.Equal(t, []State{StateBuilt, StateSubmitted, StateAckReceived, StateIncluded, StateDone}, r.States)
}

func TestSubmitInclusionTimeout(t *testing.T) {
	node, c := startNode(t)
	node.SetAutoSeal(false)
	signer := newSigner(t, crypto.Sr25519)
	signed := sealFromNode(t, c, signer)

	r, err := NewMonitor(c, InclusionPoll{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}).Submit(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInclusionTimeout)
	require.NotNil(t, r, "accepted extrinsics keep their receipt")
	assert.Equal(t, StateAckReceived, r.State())
}

func TestSubmitInclusionPollForeignBytes(t *testing.T) {
	node, c := startNode(t)
	node.SetAutoSeal(false)
	signer := newSigner(t, crypto.Sr25519)
	foreign := types.NewSignedExtrinsic(sealFromNode(t, c, signer).Bytes(), nil)

	r, err := NewMonitor(c, InclusionPoll{Interval: 5 * time.Millisecond, Timeout: time.Second}).Submit(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrNoRegistry)
	require.NotNil(t, r)
	assert.Equal(t, StateAckReceived, r.State())
}

func TestHeaderNumber(t *testing.T) {
	_, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	cc, err := NewFetcher(c, FetcherConfig{}).Fetch(context.Background(), signer.Address())
	require.NoError(t, err)
	_, _, signed := sealTransfer(t, cc, signer)
	require.Same(t, cc.Registry, signed.Registry())

	n, err := headerNumber(signed.Registry(), &client.Header{Number: "0x0400"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), n)

	// BlockNumber is a u32, so a wider head number is rejected rather than
	// silently accepted as a 64-bit quantity.
	_, err = headerNumber(signed.Registry(), &client.Header{Number: "0x100000000"})
	assert.Error(t, err)
}

func TestSubmitCancelled(t *testing.T) {
	_, c := startNode(t)
	signer := newSigner(t, crypto.Sr25519)
	signed := sealFromNode(t, c, signer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	r, err := NewMonitor(c, FixedDelay{Window: time.Hour}).Submit(ctx, signed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
	require.NotNil(t, r)
	assert.Equal(t, StateAckReceived, r.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "window elapsed", StateWindowElapsed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
