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
	"sync"

	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/rpc"
)

// Construction is everything produced while building one transaction.
type Construction struct {
	Context   *types.ChainContext
	Unsigned  *types.UnsignedExtrinsic
	Payload   *types.SigningPayload
	Signature *types.Signature
	Signed    *types.SignedExtrinsic
	Decoded   *types.DecodedExtrinsic
}

// Config assembles a pipeline.
type Config struct {
	Fetcher FetcherConfig
	Catalog *calls.Catalog     // optional
	Policy  ConfirmationPolicy // nil selects FixedDelay
}

// Pipeline runs fetch, build, sign, seal, verify and submit for calls.
// Run serializes these steps per signer address, since two transactions
// built concurrently for one signer would get the same nonce. Different
// signers proceed in parallel.
type Pipeline struct {
	fetcher *Fetcher
	builder *Builder
	monitor *Monitor

	mu    sync.Mutex
	locks map[string]*signerLock
}

type signerLock struct {
	sync.Mutex
	refs int
}

// New creates a pipeline talking to a node through caller, usually a
// process-wide rpc.Handle.
func New(caller rpc.Caller, config Config) *Pipeline {
	c := client.New(caller)
	return NewPipeline(NewFetcher(c, config.Fetcher), NewBuilder(config.Catalog), NewMonitor(c, config.Policy))
}

// NewPipeline creates a pipeline from its stages.
func NewPipeline(f *Fetcher, b *Builder, m *Monitor) *Pipeline {
	return &Pipeline{fetcher: f, builder: b, monitor: m, locks: make(map[string]*signerLock)}
}

// Fetcher returns the pipeline's fetcher.
func (p *Pipeline) Fetcher() *Fetcher { return p.fetcher }

func (p *Pipeline) lock(address string) func() {
	p.mu.Lock()
	l := p.locks[address]
	if l == nil {
		l = new(signerLock)
		p.locks[address] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(p.locks, address)
		}
		p.mu.Unlock()
	}
}

// Construct builds, signs and seals a transaction and checks that it
// decodes back to what was built. It takes no lock: callers running
// Construct and Submit themselves must not build for one signer
// concurrently.
func (p *Pipeline) Construct(ctx context.Context, signer Signer, call *types.Call) (*Construction, error) {
	address := signer.Address()
	cc, err := p.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}
	tx, payload, err := p.builder.Build(call, address, cc)
	if err != nil {
		return nil, err
	}
	sig, err := Sign(payload, signer)
	if err != nil {
		return nil, err
	}
	signed, err := Seal(tx, sig, cc.Registry)
	if err != nil {
		return nil, err
	}
	dec, err := VerifySealed(tx, signed, cc.Registry)
	if err != nil {
		log.Error("Sealed extrinsic failed verification", "call", call, "err", err)
		return nil, err
	}
	if err := VerifySignature(dec, payload); err != nil {
		return nil, &ConsistencyError{Field: "signature", Err: err}
	}
	log.Info("Constructed extrinsic", "call", call, "signer", address, "nonce", tx.Nonce, "era", tx.Era, "hash", signed.Hash())
	return &Construction{
		Context:   cc,
		Unsigned:  tx,
		Payload:   payload,
		Signature: sig,
		Signed:    signed,
		Decoded:   dec,
	}, nil
}

// Submit submits a constructed transaction and waits for confirmation.
func (p *Pipeline) Submit(ctx context.Context, c *Construction) (*Receipt, error) {
	return p.monitor.Submit(ctx, c.Signed)
}

// Run constructs and submits a call. Fetching through submission holds the
// signer's lock; the confirmation wait does not, as the node counts pooled
// transactions in the next nonce.
func (p *Pipeline) Run(ctx context.Context, signer Signer, call *types.Call) (*Construction, *Receipt, error) {
	unlock := p.lock(signer.Address())
	c, err := p.Construct(ctx, signer, call)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	r, err := p.monitor.Send(ctx, c.Signed)
	unlock()
	if err != nil {
		return c, nil, err
	}
	return c, r, p.monitor.Confirm(ctx, c.Signed, r)
}
