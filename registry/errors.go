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

package registry

import (
	"errors"
	"fmt"
)

// ErrNoValue is returned when a required value is missing from the input.
var ErrNoValue = errors.New("missing value")

// MetadataParseError is returned by Build when the metadata blob is malformed
// or one of its call arguments names a type the registry cannot resolve.
type MetadataParseError struct {
	Err error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("metadata parse error: %v", e.Err)
}

func (e *MetadataParseError) Unwrap() error { return e.Err }

// UnknownTypeError is returned when a type name has no rule.
type UnknownTypeError struct {
	Type string
	// Via names the definition that referenced Type, if any.
	Via string
}

func (e *UnknownTypeError) Error() string {
	if e.Via != "" && e.Via != e.Type {
		return fmt.Sprintf("unknown type %q (referenced by %q)", e.Type, e.Via)
	}
	return fmt.Sprintf("unknown type %q", e.Type)
}

// DecodeError is returned for truncated or malformed input and for input
// with trailing bytes.
type DecodeError struct {
	Type   string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when a value cannot be represented as the type.
type EncodeError struct {
	Type string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// pathError prefixes an error with the field or variant it occurred in, so
// nested failures read like "claim.CustomerDueDiligence: ...".
type pathError struct {
	path string
	err  error
}

func (e *pathError) Error() string { return e.path + ": " + e.err.Error() }

func (e *pathError) Unwrap() error { return e.err }

func atPath(path string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*pathError); ok {
		return &pathError{path: path + "." + pe.path, err: pe.err}
	}
	return &pathError{path: path, err: err}
}
