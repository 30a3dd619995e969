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

// Package rpc implements a JSON-RPC 2.0 client over a single websocket
// connection, and the matching server side used by local tooling and tests.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/probeum/go-polytx/log"
)

const (
	wsReadBuffer       = 1024
	wsWriteBuffer      = 1024
	wsPingInterval     = 30 * time.Second
	wsPingWriteTimeout = 5 * time.Second
	wsMessageSizeLimit = 32 * 1024 * 1024

	defaultWriteTimeout = 10 * time.Second
)

// Caller issues JSON-RPC calls. Both Client and Handle implement it.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Client is a JSON-RPC client bound to one websocket connection. Concurrent
// calls share the connection and are matched to their responses by id.
type Client struct {
	conn      *websocket.Conn
	endpoint  string
	idCounter uint32

	writeMu sync.Mutex // serializes writes to conn

	mu       sync.Mutex
	respWait map[string]chan *jsonrpcMessage
	err      error // reason the connection went down

	closing   chan struct{}
	closeOnce sync.Once
}

// DialWebsocket creates a new client that communicates with a JSON-RPC server
// listening on the given ws:// or wss:// endpoint.
func DialWebsocket(ctx context.Context, endpoint string) (*Client, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:  wsReadBuffer,
		WriteBufferSize: wsWriteBuffer,
		Proxy:           http.ProxyFromEnvironment,
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %v (HTTP status %s)", endpoint, err, resp.Status)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}
	return newClient(conn, endpoint), nil
}

func newClient(conn *websocket.Conn, endpoint string) *Client {
	conn.SetReadLimit(wsMessageSizeLimit)
	c := &Client{
		conn:     conn,
		endpoint: endpoint,
		respWait: make(map[string]chan *jsonrpcMessage),
		closing:  make(chan struct{}),
	}
	go c.read()
	go c.pingLoop()
	log.Debug("Connected to node", "url", endpoint)
	return c
}

// Call performs a JSON-RPC call with the given arguments and unmarshals into
// result if no error occurred.
func (c *Client) Call(result interface{}, method string, args ...interface{}) error {
	return c.CallContext(context.Background(), result, method, args...)
}

// CallContext performs a JSON-RPC call with the given arguments. If the
// context is canceled before the call has returned, CallContext returns
// immediately.
//
// The result must be a pointer so that package json can unmarshal into it. You
// can also pass nil, in which case the result is ignored.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	msg, err := newRequest(atomic.AddUint32(&c.idCounter, 1), method, args...)
	if err != nil {
		return err
	}
	id := string(msg.ID)
	ch := make(chan *jsonrpcMessage, 1)

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return c.closedErr()
	}
	c.respWait[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	start := time.Now()
	if err := c.write(ctx, msg); err != nil {
		return err
	}
	select {
	case resp := <-ch:
		log.Trace("RPC call returned", "method", method, "id", id, "elapsed", time.Since(start))
		switch {
		case resp.Error != nil:
			return resp.Error
		case len(resp.Result) == 0:
			return ErrNoResult
		case result == nil:
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	case <-c.closing:
		return c.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the connection. Pending calls fail with ErrTransportClosed.
func (c *Client) Close() {
	c.shutdown(nil)
}

// Closed returns a channel that is closed once the connection is down.
func (c *Client) Closed() <-chan struct{} {
	return c.closing
}

// Endpoint returns the URL the client is connected to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, c.err)
	}
	return ErrTransportClosed
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.respWait, id)
	c.mu.Unlock()
}

func (c *Client) write(ctx context.Context, msg *jsonrpcMessage) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		c.shutdown(err)
		return c.closedErr()
	}
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.closing)
		c.conn.Close()
		if err != nil {
			log.Debug("Node connection lost", "url", c.endpoint, "err", err)
		}
	})
}

// read dispatches responses to their waiting callers until the connection
// fails.
func (c *Client) read() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.shutdown(err)
			return
		}
		var msg jsonrpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("Dropping malformed RPC message", "err", err)
			continue
		}
		if !msg.isResponse() {
			log.Trace("Ignoring RPC notification", "method", msg.Method)
			continue
		}
		c.mu.Lock()
		ch := c.respWait[string(msg.ID)]
		c.mu.Unlock()
		if ch == nil {
			log.Trace("Unsolicited RPC response", "id", string(msg.ID))
			continue
		}
		select {
		case ch <- &msg:
		default:
		}
	}
}

func (c *Client) pingLoop() {
	timer := time.NewTicker(wsPingInterval)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.conn.SetWriteDeadline(time.Time{})
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(err)
				return
			}
		case <-c.closing:
			return
		}
	}
}
