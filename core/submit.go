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
	"fmt"
	"time"

	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/params"
)

// State is a step in the life of a submitted extrinsic.
type State int

const (
	StateBuilt State = iota
	StateSubmitted
	StateAckReceived
	StateSubmitRejected
	StateWindowElapsed
	StateIncluded
	StateDone
)

var stateNames = [...]string{"built", "submitted", "acknowledged", "rejected", "window elapsed", "included", "done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Receipt records what happened to a submitted extrinsic.
type Receipt struct {
	Hash        common.Hash // blake2b-256 of the wire bytes
	NodeHash    common.Hash // hash returned by the node
	States      []State
	SubmittedAt time.Time

	// Set by confirmation policies that observe inclusion.
	Included    bool
	BlockHash   common.Hash
	BlockNumber uint64
}

// State returns the latest state.
func (r *Receipt) State() State {
	if len(r.States) == 0 {
		return StateBuilt
	}
	return r.States[len(r.States)-1]
}

func (r *Receipt) advance(s State) {
	r.States = append(r.States, s)
	log.Trace("Extrinsic state changed", "hash", r.Hash, "state", s)
}

// ConfirmationPolicy decides when a submitted extrinsic counts as done.
type ConfirmationPolicy interface {
	Await(ctx context.Context, c *client.Client, signed *types.SignedExtrinsic, r *Receipt) error
}

// FixedDelay waits a fixed window after submission and assumes the
// extrinsic made it into a block.
type FixedDelay struct {
	Window time.Duration // zero selects params.DefaultConfirmationWindow
}

// Await implements ConfirmationPolicy.
func (p FixedDelay) Await(ctx context.Context, _ *client.Client, _ *types.SignedExtrinsic, r *Receipt) error {
	window := p.Window
	if window <= 0 {
		window = params.DefaultConfirmationWindow
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
		r.advance(StateWindowElapsed)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Defaults of InclusionPoll.
const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = time.Minute
)

// InclusionPoll polls new blocks until one of them carries the extrinsic.
type InclusionPoll struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Await implements ConfirmationPolicy.
func (p InclusionPoll) Await(ctx context.Context, c *client.Client, signed *types.SignedExtrinsic, r *Receipt) error {
	interval, timeout := p.Interval, p.Timeout
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reg := signed.Registry()
	if reg == nil {
		return ErrNoRegistry
	}
	var (
		raw  = signed.Bytes()
		next uint64
		seen bool
	)
	for {
		head, err := c.Block(ctx, nil)
		if err != nil {
			return err
		}
		number, err := headerNumber(reg, &head.Block.Header)
		if err != nil {
			return err
		}
		if !seen {
			next, seen = number, true
		}
		for ; next <= number; next++ {
			blk := head
			if next != number {
				hash, err := c.BlockHash(ctx, &next)
				if err != nil {
					return err
				}
				if blk, err = c.Block(ctx, &hash); err != nil {
					return err
				}
			}
			if !containsExtrinsic(blk, raw) {
				continue
			}
			hash, err := c.BlockHash(ctx, &next)
			if err != nil {
				return err
			}
			r.Included, r.BlockHash, r.BlockNumber = true, hash, next
			r.advance(StateIncluded)
			return nil
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return ErrInclusionTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func containsExtrinsic(b *client.SignedBlock, raw []byte) bool {
	for _, ext := range b.Block.Extrinsics {
		if bytes.Equal(ext, raw) {
			return true
		}
	}
	return false
}

// Monitor submits extrinsics and waits for confirmation.
type Monitor struct {
	client *client.Client
	policy ConfirmationPolicy
}

// NewMonitor creates a monitor. A nil policy waits a FixedDelay of the
// default window.
func NewMonitor(c *client.Client, policy ConfirmationPolicy) *Monitor {
	if policy == nil {
		policy = FixedDelay{}
	}
	return &Monitor{client: c, policy: policy}
}

// Submit sends a signed extrinsic and applies the confirmation policy. A
// rejection by the node is returned as *SubmissionError. If the node accepts
// the extrinsic but confirmation fails, the receipt is returned along with
// the error. Nothing is retried.
func (m *Monitor) Submit(ctx context.Context, signed *types.SignedExtrinsic) (*Receipt, error) {
	r, err := m.Send(ctx, signed)
	if err != nil {
		return nil, err
	}
	return r, m.Confirm(ctx, signed, r)
}

// Send submits a signed extrinsic without waiting for confirmation.
func (m *Monitor) Send(ctx context.Context, signed *types.SignedExtrinsic) (*Receipt, error) {
	r := &Receipt{Hash: signed.Hash()}
	r.advance(StateBuilt)
	r.advance(StateSubmitted)
	r.SubmittedAt = time.Now()

	nodeHash, err := m.client.SubmitExtrinsic(ctx, signed.Bytes())
	if err != nil {
		r.advance(StateSubmitRejected)
		r.advance(StateDone)
		serr := newSubmissionError(r.Hash, err)
		log.Warn("Extrinsic rejected", "hash", r.Hash, "code", serr.Code, "err", serr.Message, "data", serr.Data)
		return nil, serr
	}
	r.NodeHash = nodeHash
	r.advance(StateAckReceived)
	if nodeHash != r.Hash {
		log.Warn("Node reported a different extrinsic hash", "local", r.Hash, "node", nodeHash)
	}
	log.Info("Submitted extrinsic", "hash", r.Hash, "size", signed.Size())
	return r, nil
}

// Confirm applies the confirmation policy to an acknowledged extrinsic.
func (m *Monitor) Confirm(ctx context.Context, signed *types.SignedExtrinsic, r *Receipt) error {
	if err := m.policy.Await(ctx, m.client, signed, r); err != nil {
		return err
	}
	r.advance(StateDone)
	log.Debug("Extrinsic confirmed", "hash", r.Hash, "included", r.Included, "block", r.BlockNumber,
		"elapsed", time.Since(r.SubmittedAt))
	return nil
}
