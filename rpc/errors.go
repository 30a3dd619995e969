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
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTransportClosed is returned for calls on a connection that was closed
	// locally or dropped by the remote end.
	ErrTransportClosed = errors.New("rpc: transport closed")

	// ErrNoResult is returned when a response carries neither result nor error.
	ErrNoResult = errors.New("rpc: no result in JSON-RPC response")
)

// Error wraps RPC errors, which contain an error code in addition to the
// message.
type Error interface {
	Error() string  // returns the message
	ErrorCode() int // returns the code
}

// DataError contains extra data to explain the error.
type DataError interface {
	Error() string          // returns the message
	ErrorData() interface{} // returns the error data
}

// Standard JSON-RPC 2.0 error codes.
const (
	errcodeDefault        = -32000
	errcodeParse          = -32700
	errcodeInvalidRequest = -32600
	errcodeMethodNotFound = -32601
	errcodeInvalidParams  = -32602
)

type jsonError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *jsonError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("json-rpc error %d", err.Code)
	}
	return err.Message
}

func (err *jsonError) ErrorCode() int {
	return err.Code
}

func (err *jsonError) ErrorData() interface{} {
	return err.Data
}

// NewError creates an error carrying a JSON-RPC error code. Handlers return it
// to control the code sent to the caller.
func NewError(code int, message string, data interface{}) error {
	return &jsonError{Code: code, Message: message, Data: data}
}

// MethodNotFound is the error a handler returns for unknown methods.
func MethodNotFound(method string) error {
	return &jsonError{Code: errcodeMethodNotFound, Message: fmt.Sprintf("the method %s does not exist/is not available", method)}
}

// InvalidParams is the error a handler returns for malformed parameters.
func InvalidParams(err error) error {
	return &jsonError{Code: errcodeInvalidParams, Message: err.Error()}
}

// errorMessage converts a handler error into its wire form.
func errorMessage(err error) *jsonError {
	var je *jsonError
	if errors.As(err, &je) {
		return je
	}
	msg := &jsonError{Code: errcodeDefault, Message: err.Error()}
	var ec Error
	if errors.As(err, &ec) {
		msg.Code = ec.ErrorCode()
	}
	var de DataError
	if errors.As(err, &de) {
		msg.Data = de.ErrorData()
	}
	return msg
}

const vsn = "2.0"

// A value of this type can be a JSON-RPC request, notification or response.
type jsonrpcMessage struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *jsonError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func (msg *jsonrpcMessage) isCall() bool {
	return msg.hasValidID() && msg.Method != ""
}

func (msg *jsonrpcMessage) isResponse() bool {
	return msg.hasValidID() && msg.Method == "" && msg.Params == nil && (msg.Result != nil || msg.Error != nil)
}

func (msg *jsonrpcMessage) hasValidID() bool {
	return len(msg.ID) > 0 && msg.ID[0] != '{' && msg.ID[0] != '['
}

func (msg *jsonrpcMessage) String() string {
	b, _ := json.Marshal(msg)
	return string(b)
}

func (msg *jsonrpcMessage) response(result interface{}) *jsonrpcMessage {
	enc, err := json.Marshal(result)
	if err != nil {
		return msg.errorResponse(err)
	}
	return &jsonrpcMessage{Version: vsn, ID: msg.ID, Result: enc}
}

func (msg *jsonrpcMessage) errorResponse(err error) *jsonrpcMessage {
	return &jsonrpcMessage{Version: vsn, ID: msg.ID, Error: errorMessage(err)}
}

func newRequest(id uint32, method string, params ...interface{}) (*jsonrpcMessage, error) {
	msg := &jsonrpcMessage{Version: vsn, ID: encodeID(id), Method: method}
	if params == nil {
		params = []interface{}{}
	}
	var err error
	if msg.Params, err = json.Marshal(params); err != nil {
		return nil, err
	}
	return msg, nil
}

func encodeID(id uint32) json.RawMessage {
	return json.RawMessage(strconv.FormatUint(uint64(id), 10))
}
