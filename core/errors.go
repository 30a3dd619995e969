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
	"errors"
	"fmt"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/rpc"
)

var (
	// ErrNotSigned is returned when a signed extrinsic was expected.
	ErrNotSigned = errors.New("extrinsic is not signed")

	// ErrUnsupportedVersion is returned for extrinsic versions other than 4.
	ErrUnsupportedVersion = errors.New("unsupported extrinsic version")

	// ErrBadSignature is returned when a signature does not verify against
	// the signer's key.
	ErrBadSignature = errors.New("invalid signature")

	// ErrInclusionTimeout is returned when an extrinsic did not appear in a
	// block before the polling deadline.
	ErrInclusionTimeout = errors.New("extrinsic not included before timeout")

	// ErrNoRegistry is returned when polling for an extrinsic that was not
	// sealed locally, since block numbers cannot be decoded without its
	// registry.
	ErrNoRegistry = errors.New("extrinsic has no type registry")

	// ErrNilSigner is returned by Sign when no signer is given.
	ErrNilSigner = errors.New("no signer")
)

// DecodeError is the registry's decode failure, returned for malformed
// extrinsic bytes.
type DecodeError = registry.DecodeError

// ContextFetchError is returned when one of the chain context lookups fails.
type ContextFetchError struct {
	Lookup string
	Err    error
}

func (e *ContextFetchError) Error() string {
	return fmt.Sprintf("chain context lookup %s failed: %v", e.Lookup, e.Err)
}

func (e *ContextFetchError) Unwrap() error { return e.Err }

// UnsupportedCallError is returned when the runtime does not know the
// requested call. This happens across runtime upgrades and is not a defect.
type UnsupportedCallError struct {
	Pallet      string
	Method      string
	SpecVersion uint32
}

func (e *UnsupportedCallError) Error() string {
	return fmt.Sprintf("call %s.%s not supported by runtime spec version %d", e.Pallet, e.Method, e.SpecVersion)
}

// SubmissionError is returned when the node rejects an extrinsic.
type SubmissionError struct {
	Hash    common.Hash // local transaction hash
	Code    int
	Message string
	Data    interface{}
	Err     error
}

func newSubmissionError(hash common.Hash, err error) *SubmissionError {
	se := &SubmissionError{Hash: hash, Message: err.Error(), Err: err}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		se.Code = rpcErr.ErrorCode()
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		se.Data = dataErr.ErrorData()
	}
	return se
}

func (e *SubmissionError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("extrinsic %s rejected: %s (%v)", e.Hash.TerminalString(), e.Message, e.Data)
	}
	return fmt.Sprintf("extrinsic %s rejected: %s", e.Hash.TerminalString(), e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConsistencyError marks a just-sealed extrinsic that does not decode back
// to what was built. It indicates an encoder/decoder mismatch, not bad
// input.
type ConsistencyError struct {
	Field string
	Err   error
}

func (e *ConsistencyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("sealed extrinsic does not decode: %v", e.Err)
	}
	return fmt.Sprintf("sealed extrinsic inconsistent in %s: %v", e.Field, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
