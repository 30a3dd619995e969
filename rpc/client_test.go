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
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// trackingListener remembers accepted connections so tests can cut them,
// which httptest cannot do once a connection was hijacked for websocket.
type trackingListener struct {
	net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func (l *trackingListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err == nil {
		l.mu.Lock()
		l.conns = append(l.conns, c)
		l.mu.Unlock()
	}
	return c, err
}

func (l *trackingListener) dropAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.conns {
		c.Close()
	}
	l.conns = nil
}

func newTestServer(t *testing.T, h HandlerFunc) (*trackingListener, string) {
	t.Helper()
	srv := httptest.NewUnstartedServer(WebsocketHandler(h))
	l := &trackingListener{Listener: srv.Listener}
	srv.Listener = l
	srv.Start()
	t.Cleanup(func() {
		l.dropAll()
		srv.Close()
	})
	return l, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echoHandler(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "test_echo":
		var s string
		if err := ParseParams(params, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "test_sleep":
		var ms int
		if err := ParseParams(params, &ms); err != nil {
			return nil, err
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return ms, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case "test_null":
		return nil, nil
	case "test_fail":
		return nil, NewError(1010, "Invalid Transaction", "Transaction is outdated")
	case "test_plainError":
		return nil, errors.New("boom")
	}
	return nil, MethodNotFound(method)
}

func TestClientCall(t *testing.T) {
	_, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var s string
	if err := c.Call(&s, "test_echo", "hello"); err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("wrong result %q", s)
	}
	var p *string
	if err := c.Call(&p, "test_null"); err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatalf("expected nil result, got %q", *p)
	}
	if err := c.Call(nil, "test_echo", "ignored"); err != nil {
		t.Fatal(err)
	}
}

func TestClientErrors(t *testing.T) {
	_, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	tests := []struct {
		method string
		code   int
		msg    string
		data   interface{}
	}{
		{"test_fail", 1010, "Invalid Transaction", "Transaction is outdated"},
		{"test_plainError", errcodeDefault, "boom", nil},
		{"test_missing", errcodeMethodNotFound, "the method test_missing does not exist/is not available", nil},
	}
	for _, tt := range tests {
		err := c.Call(nil, tt.method)
		var rpcErr Error
		if !errors.As(err, &rpcErr) {
			t.Fatalf("%s: expected rpc.Error, got %v", tt.method, err)
		}
		if rpcErr.ErrorCode() != tt.code || rpcErr.Error() != tt.msg {
			t.Errorf("%s: got (%d, %q), want (%d, %q)", tt.method, rpcErr.ErrorCode(), rpcErr.Error(), tt.code, tt.msg)
		}
		var dataErr DataError
		if errors.As(err, &dataErr) && dataErr.ErrorData() != tt.data {
			t.Errorf("%s: error data %v, want %v", tt.method, dataErr.ErrorData(), tt.data)
		}
	}

	var n int
	err = c.Call(&n, "test_echo", 5)
	var rpcErr Error
	if !errors.As(err, &rpcErr) || rpcErr.ErrorCode() != errcodeInvalidParams {
		t.Fatalf("expected invalid params error, got %v", err)
	}
}

// Responses for concurrent calls arrive out of order and must reach the
// right caller.
func TestClientConcurrentCalls(t *testing.T) {
	_, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var wg sync.WaitGroup
	for i := 10; i > 0; i-- {
		wg.Add(1)
		go func(ms int) {
			defer wg.Done()
			var got int
			if err := c.Call(&got, "test_sleep", ms*5); err != nil {
				t.Error(err)
				return
			}
			if got != ms*5 {
				t.Errorf("call for %d got response %d", ms*5, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientContextCancel(t *testing.T) {
	_, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.CallContext(ctx, nil, "test_sleep", 2000); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	// The connection stays usable.
	var s string
	if err := c.Call(&s, "test_echo", "still here"); err != nil {
		t.Fatal(err)
	}
}

func TestClientClose(t *testing.T) {
	_, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- c.Call(nil, "test_sleep", 5000) }()
	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTransportClosed) {
			t.Fatalf("pending call: expected ErrTransportClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not released by Close")
	}
	if err := c.Call(nil, "test_echo", "x"); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed after close, got %v", err)
	}
}

func TestClientRemoteDrop(t *testing.T) {
	srv, url := newTestServer(t, echoHandler)
	c, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	srv.dropAll()

	select {
	case <-c.Closed():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice dropped connection")
	}
	if err := c.Call(nil, "test_echo", "x"); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
}

func TestHandleMemoizes(t *testing.T) {
	srv, url := newTestServer(t, echoHandler)

	var dials int32
	h := NewHandle(url, time.Second)
	h.dial = func(ctx context.Context, url string) (*Client, error) {
		atomic.AddInt32(&dials, 1)
		return DialWebsocket(ctx, url)
	}
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var s string
			if err := h.CallContext(context.Background(), &s, "test_echo", "x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Fatalf("dialed %d times, want 1", n)
	}

	// A dropped connection is replaced on the next call.
	c, err := h.Client(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	srv.dropAll()
	<-c.Closed()
	if err := h.CallContext(context.Background(), nil, "test_echo", "x"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&dials); n != 2 {
		t.Fatalf("dialed %d times, want 2", n)
	}
}

func TestHandleFailedDialNotMemoized(t *testing.T) {
	_, url := newTestServer(t, echoHandler)

	var dials int32
	h := NewHandle(url, time.Second)
	h.dial = func(ctx context.Context, u string) (*Client, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return nil, errors.New("connection refused")
		}
		return DialWebsocket(ctx, u)
	}
	defer h.Close()

	err := h.CallContext(context.Background(), nil, "test_echo", "x")
	if !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
	if err := h.CallContext(context.Background(), nil, "test_echo", "x"); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if n := atomic.LoadInt32(&dials); n != 2 {
		t.Fatalf("dialed %d times, want 2", n)
	}
}

func TestParseParams(t *testing.T) {
	var (
		a string
		b int
		c bool
	)
	if err := ParseParams(json.RawMessage(`["x", 3]`), &a, &b, &c); err != nil {
		t.Fatal(err)
	}
	if a != "x" || b != 3 || c {
		t.Fatalf("wrong values %q %d %v", a, b, c)
	}
	if err := ParseParams(json.RawMessage(`["x", 3, true, 4]`), &a, &b, &c); err == nil {
		t.Fatal("expected error for extra argument")
	}
	if err := ParseParams(json.RawMessage(`{"a": 1}`), &a); err == nil {
		t.Fatal("expected error for object params")
	}
}
