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
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/probeum/go-polytx/log"
)

// HandlerFunc answers one JSON-RPC request. Returning an error created with
// NewError controls the error code seen by the caller.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)

// WebsocketHandler returns an http.Handler that upgrades connections to
// websocket and serves JSON-RPC requests with h. Requests on one connection
// are served concurrently, so responses may arrive out of order.
func WebsocketHandler(h HandlerFunc) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBuffer,
		WriteBufferSize: wsWriteBuffer,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug("WebSocket upgrade failed", "err", err)
			return
		}
		serveConn(r.Context(), conn, h)
	})
}

func serveConn(ctx context.Context, conn *websocket.Conn, h HandlerFunc) {
	ctx, cancel := context.WithCancel(ctx)
	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
	}()
	conn.SetReadLimit(wsMessageSizeLimit)

	send := func(msg *jsonrpcMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("Failed to write RPC response", "err", err)
		}
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg := new(jsonrpcMessage)
		if err := json.Unmarshal(data, msg); err != nil {
			send(&jsonrpcMessage{Version: vsn, ID: json.RawMessage("null"), Error: &jsonError{Code: errcodeParse, Message: err.Error()}})
			continue
		}
		if !msg.isCall() {
			send(msg.errorResponse(&jsonError{Code: errcodeInvalidRequest, Message: "invalid request"}))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h(ctx, msg.Method, msg.Params)
			if err != nil {
				send(msg.errorResponse(err))
				return
			}
			send(msg.response(result))
		}()
	}
}

// ParseParams unmarshals positional parameters into the given pointers.
// Missing trailing parameters leave their targets untouched.
func ParseParams(params json.RawMessage, into ...interface{}) error {
	if len(params) == 0 {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return InvalidParams(errors.New("non-array params"))
	}
	if len(raw) > len(into) {
		return InvalidParams(errors.New("too many arguments"))
	}
	for i, r := range raw {
		if err := json.Unmarshal(r, into[i]); err != nil {
			return InvalidParams(err)
		}
	}
	return nil
}
