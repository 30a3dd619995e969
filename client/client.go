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

// Package client provides typed wrappers for the node RPC methods the
// transaction pipeline and the on-chain queries use.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/rpc"
)

// Header is a block header as returned by the node. Number is kept in its
// raw 0x-hex form; callers interpret it through the type registry.
type Header struct {
	ParentHash     common.Hash `json:"parentHash"`
	Number         string      `json:"number"`
	StateRoot      common.Hash `json:"stateRoot"`
	ExtrinsicsRoot common.Hash `json:"extrinsicsRoot"`
	Digest         struct {
		Logs []hexutil.Bytes `json:"logs"`
	} `json:"digest"`
}

// Block is a block body with its encoded extrinsics.
type Block struct {
	Header     Header          `json:"header"`
	Extrinsics []hexutil.Bytes `json:"extrinsics"`
}

// SignedBlock is the chain_getBlock result.
type SignedBlock struct {
	Block          Block           `json:"block"`
	Justifications json.RawMessage `json:"justifications"`
}

// RuntimeVersion is the state_getRuntimeVersion result.
type RuntimeVersion struct {
	SpecName           string          `json:"specName"`
	ImplName           string          `json:"implName"`
	AuthoringVersion   uint32          `json:"authoringVersion"`
	SpecVersion        uint32          `json:"specVersion"`
	ImplVersion        uint32          `json:"implVersion"`
	TransactionVersion uint32          `json:"transactionVersion"`
	Apis               json.RawMessage `json:"apis"`
}

// CddStatus is the identity_isIdentityHasValidCdd result, a Result of the
// identity id or a reason.
type CddStatus struct {
	Ok  *common.Hash `json:"Ok,omitempty"`
	Err *string      `json:"Err,omitempty"`
}

// Valid reports whether the identity holds a valid CDD claim.
func (s *CddStatus) Valid() bool { return s.Ok != nil }

// Authorization is one entry of identity_getFilteredAuthorizations.
type Authorization struct {
	AuthorizationData json.RawMessage `json:"authorization_data"`
	AuthorizedBy      common.Hash     `json:"authorized_by"`
	Expiry            *uint64         `json:"expiry"`
	AuthID            uint64          `json:"auth_id"`
}

// Client calls node RPC methods over a Caller, usually an rpc.Handle.
type Client struct {
	c rpc.Caller
}

// New wraps a Caller.
func New(c rpc.Caller) *Client {
	return &Client{c: c}
}

// Caller returns the underlying transport.
func (c *Client) Caller() rpc.Caller {
	return c.c
}

// Block returns the block with the given hash, or the latest block if hash
// is nil.
func (c *Client) Block(ctx context.Context, hash *common.Hash) (*SignedBlock, error) {
	var (
		block *SignedBlock
		err   error
	)
	if hash == nil {
		err = c.c.CallContext(ctx, &block, "chain_getBlock")
	} else {
		err = c.c.CallContext(ctx, &block, "chain_getBlock", *hash)
	}
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("block %v not found", hash)
	}
	return block, nil
}

// BlockHash returns the hash of the block at the given height, or of the
// best block if number is nil.
func (c *Client) BlockHash(ctx context.Context, number *uint64) (common.Hash, error) {
	var (
		hash *common.Hash
		err  error
	)
	if number == nil {
		err = c.c.CallContext(ctx, &hash, "chain_getBlockHash")
	} else {
		err = c.c.CallContext(ctx, &hash, "chain_getBlockHash", *number)
	}
	if err != nil {
		return common.Hash{}, err
	}
	if hash == nil {
		return common.Hash{}, fmt.Errorf("no block at height %v", derefNumber(number))
	}
	return *hash, nil
}

// GenesisHash returns the hash of block 0.
func (c *Client) GenesisHash(ctx context.Context) (common.Hash, error) {
	zero := uint64(0)
	return c.BlockHash(ctx, &zero)
}

// Metadata returns the raw runtime metadata, at the given block or the best
// block if at is nil.
func (c *Client) Metadata(ctx context.Context, at *common.Hash) ([]byte, error) {
	var blob hexutil.Bytes
	if err := c.c.CallContext(ctx, &blob, "state_getMetadata", atArgs(at)...); err != nil {
		return nil, err
	}
	return blob, nil
}

// AccountNextIndex returns the next nonce of an account, counting
// transactions already in the pool.
func (c *Client) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	err := c.c.CallContext(ctx, &nonce, "system_accountNextIndex", address)
	return nonce, err
}

// RuntimeVersion returns the runtime version at the given block or the best
// block if at is nil.
func (c *Client) RuntimeVersion(ctx context.Context, at *common.Hash) (*RuntimeVersion, error) {
	var rv *RuntimeVersion
	if err := c.c.CallContext(ctx, &rv, "state_getRuntimeVersion", atArgs(at)...); err != nil {
		return nil, err
	}
	if rv == nil {
		return nil, fmt.Errorf("runtime version unavailable")
	}
	return rv, nil
}

// SubmitExtrinsic submits a signed extrinsic and returns the hash the node
// assigned to it.
func (c *Client) SubmitExtrinsic(ctx context.Context, ext []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.c.CallContext(ctx, &hash, "author_submitExtrinsic", hexutil.Encode(ext))
	return hash, err
}

// StorageAt reads a raw storage value. A missing entry yields nil.
func (c *Client) StorageAt(ctx context.Context, key []byte, at *common.Hash) ([]byte, error) {
	var value *hexutil.Bytes
	args := append([]interface{}{hexutil.Encode(key)}, atArgs(at)...)
	if err := c.c.CallContext(ctx, &value, "state_getStorage", args...); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return *value, nil
}

// Chain returns the chain name.
func (c *Client) Chain(ctx context.Context) (string, error) {
	var name string
	err := c.c.CallContext(ctx, &name, "system_chain")
	return name, err
}

// Properties returns the chain properties advertised by the node, using
// fallback for anything the node leaves out.
func (c *Client) Properties(ctx context.Context, fallback params.ChainProperties) (params.ChainProperties, error) {
	var raw struct {
		SS58Format    *uint16         `json:"ss58Format"`
		TokenDecimals json.RawMessage `json:"tokenDecimals"`
		TokenSymbol   json.RawMessage `json:"tokenSymbol"`
	}
	if err := c.c.CallContext(ctx, &raw, "system_properties"); err != nil {
		return fallback, err
	}
	props := fallback
	if raw.SS58Format != nil {
		props.SS58Format = *raw.SS58Format
	}
	var decimals []uint16
	if firstOf(raw.TokenDecimals, &decimals) && len(decimals) > 0 && decimals[0] <= 0xff {
		props.TokenDecimals = uint8(decimals[0])
	}
	var symbols []string
	if firstOf(raw.TokenSymbol, &symbols) && len(symbols) > 0 {
		props.TokenSymbol = symbols[0]
	}
	if name, err := c.Chain(ctx); err == nil && name != "" {
		props.ChainName = name
	}
	return props, nil
}

// IsIdentityHasValidCdd asks whether an identity holds a valid CDD claim,
// optionally still valid after bufferTime milliseconds.
func (c *Client) IsIdentityHasValidCdd(ctx context.Context, did common.Hash, bufferTime *uint64) (*CddStatus, error) {
	args := []interface{}{did}
	if bufferTime != nil {
		args = append(args, *bufferTime)
	}
	var status CddStatus
	if err := c.c.CallContext(ctx, &status, "identity_isIdentityHasValidCdd", args...); err != nil {
		return nil, err
	}
	return &status, nil
}

// FilteredAuthorizations lists the authorizations addressed to a signatory,
// optionally restricted to one authorization type.
func (c *Client) FilteredAuthorizations(ctx context.Context, signatory interface{}, allowExpired bool, authType string) ([]Authorization, error) {
	args := []interface{}{signatory, allowExpired}
	if authType != "" {
		args = append(args, authType)
	}
	var auths []Authorization
	if err := c.c.CallContext(ctx, &auths, "identity_getFilteredAuthorizations", args...); err != nil {
		return nil, err
	}
	return auths, nil
}

func atArgs(at *common.Hash) []interface{} {
	if at == nil {
		return nil
	}
	return []interface{}{*at}
}

func derefNumber(n *uint64) interface{} {
	if n == nil {
		return "latest"
	}
	return *n
}

// firstOf decodes a property that nodes report either as a scalar or as a
// list, into a list.
func firstOf(raw json.RawMessage, into interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if raw[0] != '[' {
		raw = append(append([]byte{'['}, raw...), ']')
	}
	return json.Unmarshal(raw, into) == nil
}
