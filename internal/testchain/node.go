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

package testchain

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/rpc"
	"github.com/probeum/go-polytx/scale"
)

// Transaction validity error codes used by substrate nodes.
const (
	InvalidTransactionCode = 1010
	AlreadyImportedCode    = 1013
)

// InitialHead is the number of the best block when a node starts.
const InitialHead = 1000

type block struct {
	number     uint64
	hash       common.Hash
	parent     common.Hash
	extrinsics [][]byte
}

// Authorization is an authorization served by the identity RPC.
type Authorization struct {
	Data         interface{} `json:"authorization_data"`
	AuthorizedBy common.Hash `json:"authorized_by"`
	Expiry       *uint64     `json:"expiry"`
	AuthID       uint64      `json:"auth_id"`
}

// Node is an in-process fake node. It serves the fixture runtime over
// websocket JSON-RPC, tracks account nonces, includes submitted extrinsics in
// blocks and records every call it receives.
type Node struct {
	URL string

	srv *httptest.Server
	lis *connTracker

	mu          sync.Mutex
	meta        []byte
	specVersion uint32
	blocks      []*block // index 0 is the head at start
	byHash      map[common.Hash]*block
	pending     [][]byte
	seen        map[common.Hash]bool
	nonces      map[string]uint64
	storage     map[string][]byte
	cdd         map[common.Hash]bool
	auths       map[string][]Authorization
	failures    map[string]error
	calls       []string
	autoSeal    bool
	latency     time.Duration
}

// NewNode starts a fake node serving the fixture metadata.
func NewNode() *Node {
	n := &Node{
		meta:        MetadataBlob(),
		specVersion: SpecVersion,
		byHash:      make(map[common.Hash]*block),
		seen:        make(map[common.Hash]bool),
		nonces:      make(map[string]uint64),
		storage:     make(map[string][]byte),
		cdd:         make(map[common.Hash]bool),
		auths:       make(map[string][]Authorization),
		failures:    make(map[string]error),
		autoSeal:    true,
	}
	n.addBlock(&block{number: 0, hash: GenesisHash})
	n.addBlock(&block{number: InitialHead, hash: blockHash(InitialHead), parent: blockHash(InitialHead - 1)})
	n.srv = httptest.NewUnstartedServer(rpc.WebsocketHandler(n.handle))
	n.lis = &connTracker{Listener: n.srv.Listener}
	n.srv.Listener = n.lis
	n.srv.Start()
	n.URL = "ws" + strings.TrimPrefix(n.srv.URL, "http")
	return n
}

// Close stops the node and cuts all connections.
func (n *Node) Close() {
	n.lis.dropAll()
	n.srv.Close()
}

// DropConnections cuts all open connections without stopping the node.
func (n *Node) DropConnections() {
	n.lis.dropAll()
}

// connTracker remembers accepted connections. httptest forgets connections
// once they are hijacked for websocket, so it cannot close them itself.
type connTracker struct {
	net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func (l *connTracker) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err == nil {
		l.mu.Lock()
		l.conns = append(l.conns, c)
		l.mu.Unlock()
	}
	return c, err
}

func (l *connTracker) dropAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.conns {
		c.Close()
	}
	l.conns = nil
}

func blockHash(number uint64) common.Hash {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], number)
	return crypto.Blake2b256Hash([]byte("testchain"), b[:])
}

func (n *Node) addBlock(b *block) {
	n.blocks = append(n.blocks, b)
	n.byHash[b.hash] = b
}

func (n *Node) head() *block {
	return n.blocks[len(n.blocks)-1]
}

// SetMetadata replaces the served runtime metadata, as after an upgrade.
func (n *Node) SetMetadata(m *metadata.Metadata, specVersion uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.meta = MustEncode(m)
	n.specVersion = specVersion
}

// SetNonce sets the next nonce of an account id.
func (n *Node) SetNonce(accountID []byte, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[hex.EncodeToString(accountID)] = nonce
}

// Nonce returns the next nonce of an account id.
func (n *Node) Nonce(accountID []byte) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[hex.EncodeToString(accountID)]
}

// SetStorage stores a raw value under a storage key.
func (n *Node) SetStorage(key, value []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.storage[hex.EncodeToString(key)] = value
}

// SetValidCdd marks an identity as holding a valid CDD claim.
func (n *Node) SetValidCdd(did common.Hash, valid bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cdd[did] = valid
}

// AddAuthorization registers an authorization addressed to an account.
func (n *Node) AddAuthorization(address string, auth Authorization) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.auths[address] = append(n.auths[address], auth)
}

// Fail makes every call of method fail with err until cleared with a nil err.
func (n *Node) Fail(method string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failures, method)
	} else {
		n.failures[method] = err
	}
}

// SetAutoSeal controls whether every accepted extrinsic is included in a new
// block right away. When off, Seal includes the pending ones.
func (n *Node) SetAutoSeal(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoSeal = on
}

// SetLatency delays every response.
func (n *Node) SetLatency(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latency = d
}

// Seal produces a new block holding the pending extrinsics.
func (n *Node) Seal() common.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seal()
}

func (n *Node) seal() common.Hash {
	parent := n.head()
	b := &block{number: parent.number + 1, parent: parent.hash, extrinsics: n.pending}
	b.hash = blockHash(b.number)
	n.pending = nil
	n.addBlock(b)
	return b.hash
}

// Head returns the number of the best block.
func (n *Node) Head() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head().number
}

// Calls returns the methods called so far, in arrival order.
func (n *Node) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// CallCount returns how often a method was called.
func (n *Node) CallCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int
	for _, c := range n.calls {
		if c == method {
			count++
		}
	}
	return count
}

// ResetCalls forgets the recorded calls.
func (n *Node) ResetCalls() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}

// Submitted returns the extrinsics accepted so far, in order.
func (n *Node) Submitted() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out [][]byte
	for _, b := range n.blocks {
		out = append(out, b.extrinsics...)
	}
	return append(out, n.pending...)
}

func (n *Node) handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	n.mu.Lock()
	n.calls = append(n.calls, method)
	failure := n.failures[method]
	latency := n.latency
	n.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	switch method {
	case "chain_getBlock":
		var at *common.Hash
		if err := rpc.ParseParams(params, &at); err != nil {
			return nil, err
		}
		b := n.head()
		if at != nil {
			if b = n.byHash[*at]; b == nil {
				return nil, nil
			}
		}
		return n.blockJSON(b), nil

	case "chain_getBlockHash":
		var number *uint64
		if err := rpc.ParseParams(params, &number); err != nil {
			return nil, err
		}
		if number == nil {
			return n.head().hash, nil
		}
		switch {
		case *number == 0:
			return GenesisHash, nil
		case *number <= n.head().number:
			// Blocks below the initial head are not stored, but their
			// hashes are known.
			return blockHash(*number), nil
		}
		return nil, nil

	case "state_getMetadata":
		return hexutil.Bytes(n.meta), nil

	case "state_getRuntimeVersion":
		return map[string]interface{}{
			"specName":           SpecName,
			"implName":           "polymesh",
			"authoringVersion":   1,
			"specVersion":        n.specVersion,
			"implVersion":        0,
			"transactionVersion": TxVersion,
			"apis":               [][]interface{}{},
		}, nil

	case "system_accountNextIndex":
		var address string
		if err := rpc.ParseParams(params, &address); err != nil {
			return nil, err
		}
		id, _, err := crypto.SS58Decode(address)
		if err != nil {
			return nil, rpc.InvalidParams(err)
		}
		return n.nonces[hex.EncodeToString(id)], nil

	case "system_chain":
		return Properties.ChainName, nil

	case "system_properties":
		return map[string]interface{}{
			"ss58Format":    Properties.SS58Format,
			"tokenDecimals": Properties.TokenDecimals,
			"tokenSymbol":   Properties.TokenSymbol,
		}, nil

	case "author_submitExtrinsic":
		var ext hexutil.Bytes
		if err := rpc.ParseParams(params, &ext); err != nil {
			return nil, err
		}
		return n.submit(ext)

	case "state_getStorage":
		var key hexutil.Bytes
		if err := rpc.ParseParams(params, &key); err != nil {
			return nil, err
		}
		if v, ok := n.storage[hex.EncodeToString(key)]; ok {
			return hexutil.Bytes(v), nil
		}
		return nil, nil

	case "identity_isIdentityHasValidCdd":
		var did common.Hash
		if err := rpc.ParseParams(params, &did); err != nil {
			return nil, err
		}
		if n.cdd[did] {
			return map[string]interface{}{"Ok": did}, nil
		}
		return map[string]interface{}{"Err": "Invalid CDD"}, nil

	case "identity_getFilteredAuthorizations":
		var (
			signatory    map[string]string
			allowExpired bool
			authType     string
		)
		if err := rpc.ParseParams(params, &signatory, &allowExpired, &authType); err != nil {
			return nil, err
		}
		out := []Authorization{}
		for _, a := range n.auths[signatory["Account"]] {
			if authType != "" {
				if m, ok := a.Data.(map[string]interface{}); ok {
					if _, ok := m[authType]; !ok {
						continue
					}
				}
			}
			if !allowExpired && a.Expiry != nil && *a.Expiry < uint64(time.Now().UnixNano()/1e6) {
				continue
			}
			out = append(out, a)
		}
		return out, nil
	}
	return nil, rpc.MethodNotFound(method)
}

func (n *Node) blockJSON(b *block) interface{} {
	exts := make([]hexutil.Bytes, len(b.extrinsics))
	for i, e := range b.extrinsics {
		exts[i] = e
	}
	return map[string]interface{}{
		"block": map[string]interface{}{
			"header": map[string]interface{}{
				"parentHash":     b.parent,
				"number":         hexutil.EncodeUint64(b.number),
				"stateRoot":      common.Hash{},
				"extrinsicsRoot": common.Hash{},
				"digest":         map[string]interface{}{"logs": []string{}},
			},
			"extrinsics": exts,
		},
		"justifications": nil,
	}
}

// submit checks the envelope of a signed extrinsic far enough to extract the
// signer and nonce, then queues it.
func (n *Node) submit(ext []byte) (interface{}, error) {
	hash := crypto.Blake2b256Hash(ext)
	if n.seen[hash] {
		return nil, rpc.NewError(AlreadyImportedCode, "Transaction Already Imported", nil)
	}
	signer, nonce, err := parseSigned(ext)
	if err != nil {
		return nil, rpc.NewError(InvalidTransactionCode, "Invalid Transaction", err.Error())
	}
	key := hex.EncodeToString(signer)
	switch expected := n.nonces[key]; {
	case nonce < expected:
		return nil, rpc.NewError(InvalidTransactionCode, "Invalid Transaction", "Transaction is outdated")
	case nonce > expected:
		return nil, rpc.NewError(InvalidTransactionCode, "Invalid Transaction", "Transaction is in the future")
	}
	n.nonces[key] = nonce + 1
	n.seen[hash] = true
	n.pending = append(n.pending, append([]byte(nil), ext...))
	if n.autoSeal {
		n.seal()
	}
	return hash, nil
}

var errUnsigned = errors.New("extrinsic is not signed")

func parseSigned(ext []byte) ([]byte, uint64, error) {
	d := scale.NewDecoder(ext)
	length, err := d.ReadCompactUint64()
	if err != nil {
		return nil, 0, err
	}
	if length != uint64(d.Remaining()) {
		return nil, 0, fmt.Errorf("length prefix %d, have %d bytes", length, d.Remaining())
	}
	version, err := d.ReadUint8()
	if err != nil {
		return nil, 0, err
	}
	if version != 0x84 {
		return nil, 0, errUnsigned
	}
	// 0xff is an IndicesLookupSource account, 0x00 the MultiAddress Id.
	if prefix, err := d.ReadUint8(); err != nil || (prefix != 0xff && prefix != 0x00) {
		return nil, 0, fmt.Errorf("unsupported address form")
	}
	signer, err := d.ReadBytes(32)
	if err != nil {
		return nil, 0, err
	}
	scheme, err := d.ReadUint8()
	if err != nil {
		return nil, 0, err
	}
	sigLen := 64
	if scheme == 2 {
		sigLen = 65
	}
	if _, err := d.ReadBytes(sigLen); err != nil {
		return nil, 0, err
	}
	era, err := d.ReadUint8()
	if err != nil {
		return nil, 0, err
	}
	if era != 0 {
		if _, err := d.ReadUint8(); err != nil {
			return nil, 0, err
		}
	}
	nonce, err := d.ReadCompactUint64()
	if err != nil {
		return nil, 0, err
	}
	return append([]byte(nil), signer...), nonce, nil
}
