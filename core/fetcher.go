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
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/registry"
)

// FetcherConfig are the transaction settings a Fetcher stamps onto every
// chain context.
type FetcherConfig struct {
	// EraPeriod is the requested mortality in blocks. Zero selects
	// params.DefaultEraPeriod.
	EraPeriod uint64
	// Immortal builds transactions that never expire.
	Immortal bool
	// Tip is paid to the block author on top of the fee. Nil means none.
	Tip *uint256.Int

	Properties params.ChainProperties
	Schema     *registry.Schema // nil selects registry.DefaultSchema()
	// Lenient builds registries even when some call argument types are
	// unknown. Only calls using those types fail then.
	Lenient bool
}

// Fetcher gathers the chain context of one transaction.
type Fetcher struct {
	client *client.Client
	config FetcherConfig
}

// NewFetcher creates a fetcher reading from c.
func NewFetcher(c *client.Client, config FetcherConfig) *Fetcher {
	if config.Schema == nil {
		config.Schema = registry.DefaultSchema()
	}
	if config.EraPeriod == 0 {
		config.EraPeriod = params.DefaultEraPeriod
	}
	if config.Properties == (params.ChainProperties{}) {
		config.Properties = params.PolymeshTestnet
	}
	return &Fetcher{client: c, config: config}
}

// Client returns the node client the fetcher reads from.
func (f *Fetcher) Client() *client.Client { return f.client }

// Fetch issues the context lookups for a transaction signed by address
// concurrently and assembles their results. A failed lookup aborts the
// others and is reported as *ContextFetchError. Errors building the type
// registry are returned as the registry reports them.
func (f *Fetcher) Fetch(ctx context.Context, address string) (*types.ChainContext, error) {
	var (
		block     *client.SignedBlock
		blockHash common.Hash
		genesis   common.Hash
		meta      []byte
		nonce     uint64
		version   *client.RuntimeVersion
	)
	g, gctx := errgroup.WithContext(ctx)
	lookup := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				return &ContextFetchError{Lookup: name, Err: err}
			}
			return nil
		})
	}
	// The head block is read by hash so that its number and the checkpoint
	// hash describe the same block even if a new one is sealed meanwhile.
	g.Go(func() (err error) {
		if blockHash, err = f.client.BlockHash(gctx, nil); err != nil {
			return &ContextFetchError{Lookup: "chain_getBlockHash", Err: err}
		}
		if block, err = f.client.Block(gctx, &blockHash); err != nil {
			return &ContextFetchError{Lookup: "chain_getBlock", Err: err}
		}
		return nil
	})
	lookup("chain_getBlockHash(0)", func() (err error) {
		genesis, err = f.client.GenesisHash(gctx)
		return err
	})
	lookup("state_getMetadata", func() (err error) {
		meta, err = f.client.Metadata(gctx, nil)
		return err
	})
	lookup("system_accountNextIndex", func() (err error) {
		nonce, err = f.client.AccountNextIndex(gctx, address)
		return err
	})
	lookup("state_getRuntimeVersion", func() (err error) {
		version, err = f.client.RuntimeVersion(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Debug("Chain context fetch failed", "signer", address, "err", err)
		return nil, err
	}

	var opts []registry.BuildOption
	if f.config.Lenient {
		opts = append(opts, registry.Lenient())
	}
	reg, err := registry.Build(f.config.Schema, meta, f.config.Properties, version.SpecName, version.SpecVersion, opts...)
	if err != nil {
		return nil, err
	}
	number, err := headerNumber(reg, &block.Block.Header)
	if err != nil {
		return nil, &ContextFetchError{Lookup: "chain_getBlock", Err: err}
	}
	cc := &types.ChainContext{
		BlockHash:          blockHash,
		BlockNumber:        number,
		GenesisHash:        genesis,
		Metadata:           meta,
		Nonce:              nonce,
		SpecName:           version.SpecName,
		SpecVersion:        version.SpecVersion,
		TransactionVersion: version.TransactionVersion,
		EraPeriod:          f.config.EraPeriod,
		Tip:                f.config.Tip,
		Properties:         f.config.Properties,
		Registry:           reg,
	}
	if f.config.Immortal {
		cc.EraPeriod = 0
	}
	// Long periods quantize the phase, so the era starts before the current
	// block and is checked against the hash of its first block.
	if era := cc.Era(); !era.Immortal && era.Birth(number) != number {
		birth := era.Birth(number)
		if cc.BlockHash, err = f.client.BlockHash(ctx, &birth); err != nil {
			return nil, &ContextFetchError{Lookup: "chain_getBlockHash(era)", Err: err}
		}
	}
	log.Debug("Fetched chain context", "signer", address, "number", number, "hash", blockHash,
		"spec", version.SpecName, "version", version.SpecVersion, "nonce", nonce)
	return cc, nil
}

// headerNumber decodes a header's block number with the runtime's
// BlockNumber type, so a number wider than the runtime allows is an error.
func headerNumber(reg *registry.Registry, h *client.Header) (uint64, error) {
	raw, err := reg.Coerce("BlockNumber", h.Number)
	if err != nil {
		return 0, fmt.Errorf("header number: %w", err)
	}
	number, ok := raw.(uint64)
	if !ok {
		return 0, fmt.Errorf("header number %v is not an integer", raw)
	}
	return number, nil
}
