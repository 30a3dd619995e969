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

package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/probeum/go-polytx/log"
)

// DefaultDialTimeout bounds the websocket handshake of a Handle.
const DefaultDialTimeout = 10 * time.Second

// Handle is a lazily dialed, shared connection to one node. The first call
// dials; later calls reuse the connection until it drops, after which the
// next call dials again. Failed dials are not remembered.
type Handle struct {
	url         string
	dialTimeout time.Duration
	dial        func(ctx context.Context, url string) (*Client, error)

	mu     sync.Mutex
	client *Client
}

// NewHandle creates a handle for the given websocket endpoint. A zero
// timeout selects DefaultDialTimeout.
func NewHandle(url string, dialTimeout time.Duration) *Handle {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &Handle{url: url, dialTimeout: dialTimeout, dial: DialWebsocket}
}

// URL returns the endpoint of the handle.
func (h *Handle) URL() string {
	return h.url
}

// Client returns the live client, dialing if there is none.
func (h *Handle) Client(ctx context.Context) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil && !h.client.isClosed() {
		return h.client, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, h.dialTimeout)
	defer cancel()

	c, err := h.dial(dialCtx, h.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	if h.client != nil {
		log.Info("Reconnected to node", "url", h.url)
	}
	h.client = c
	return c, nil
}

// CallContext implements Caller on the shared client.
func (h *Handle) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	c, err := h.Client(ctx)
	if err != nil {
		return err
	}
	return c.CallContext(ctx, result, method, args...)
}

// Close closes the current connection, if any. The handle stays usable.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
}
