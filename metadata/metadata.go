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

// Package metadata decodes the legacy (V11 to V13) runtime metadata blob
// served by state_getMetadata: the list of pallets with their calls, storage
// items, events, constants and errors, plus the extrinsic format.
package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// Magic is the "meta" prefix of every metadata blob.
var Magic = [4]byte{'m', 'e', 't', 'a'}

var (
	ErrBadMagic           = errors.New("metadata: bad magic number")
	ErrUnsupportedVersion = errors.New("metadata: unsupported version")
	ErrCallNotFound       = errors.New("metadata: call not found")
	ErrStorageNotFound    = errors.New("metadata: storage item not found")
)

// Supported metadata versions.
const (
	V11 = 11
	V12 = 12
	V13 = 13
)

// Metadata is the decoded runtime metadata.
type Metadata struct {
	Version   uint8
	Modules   []Module
	Extrinsic Extrinsic
}

// Extrinsic describes the transaction format of the runtime.
type Extrinsic struct {
	Version          uint8
	SignedExtensions []string
}

// Module describes one pallet. Index is the pallet's call index: encoded
// explicitly from V12 on, derived from the position among pallets with
// calls for V11.
type Module struct {
	Name      string
	Storage   *Storage
	Calls     []Call
	HasCalls  bool
	Events    []Event
	HasEvents bool
	Constants []Constant
	Errors    []Error
	Index     uint8
}

// Storage is the storage section of a module.
type Storage struct {
	Prefix string
	Items  []StorageItem
}

// Modifier tells whether a storage item yields None or its fallback when
// the key is absent.
type Modifier uint8

const (
	Optional Modifier = iota
	Default
)

// StorageItem is one storage entry.
type StorageItem struct {
	Name     string
	Modifier Modifier
	Type     StorageType
	Fallback []byte
	Docs     []string
}

// StorageKind is the shape of a storage entry.
type StorageKind uint8

const (
	PlainKind StorageKind = iota
	MapKind
	DoubleMapKind
	NMapKind
)

// StorageType holds the key and value types of a storage entry. Keys and
// Hashers have one element for maps, two for double maps and any number for
// n-maps.
type StorageType struct {
	Kind    StorageKind
	Keys    []string
	Hashers []Hasher
	Value   string
	// Linked is the unused trailing flag of V11/V12 map entries.
	Linked bool
}

// Call is a dispatchable function of a module.
type Call struct {
	Name string
	Args []Arg
	Docs []string
}

// Arg is a named call argument with its raw type name.
type Arg struct {
	Name string
	Type string
}

// Event is a module event.
type Event struct {
	Name string
	Args []string
	Docs []string
}

// Constant is a module constant with its encoded value.
type Constant struct {
	Name  string
	Type  string
	Value []byte
	Docs  []string
}

// Error is a module error variant.
type Error struct {
	Name string
	Docs []string
}

// CallIndex identifies a call as (module index, call position).
type CallIndex struct {
	Section uint8
	Method  uint8
}

func (ci CallIndex) String() string {
	return fmt.Sprintf("0x%02x%02x", ci.Section, ci.Method)
}

// NormalizeName folds a pallet, call or argument name so that the metadata
// spelling (Balances, transfer_with_memo) and the JavaScript spelling
// (balances, transferWithMemo) compare equal.
func NormalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// Module returns the module with the given (normalized) name.
func (m *Metadata) Module(name string) (*Module, bool) {
	norm := NormalizeName(name)
	for i := range m.Modules {
		if NormalizeName(m.Modules[i].Name) == norm {
			return &m.Modules[i], true
		}
	}
	return nil, false
}

// FindCall resolves a call by pallet and method name.
func (m *Metadata) FindCall(pallet, method string) (CallIndex, *Module, *Call, error) {
	mod, ok := m.Module(pallet)
	if !ok || !mod.HasCalls {
		return CallIndex{}, nil, nil, fmt.Errorf("%w: %s.%s", ErrCallNotFound, pallet, method)
	}
	norm := NormalizeName(method)
	for i := range mod.Calls {
		if NormalizeName(mod.Calls[i].Name) == norm {
			return CallIndex{Section: mod.Index, Method: uint8(i)}, mod, &mod.Calls[i], nil
		}
	}
	return CallIndex{}, nil, nil, fmt.Errorf("%w: %s.%s", ErrCallNotFound, pallet, method)
}

// CallByIndex resolves the call at the given index.
func (m *Metadata) CallByIndex(ci CallIndex) (*Module, *Call, error) {
	for i := range m.Modules {
		mod := &m.Modules[i]
		if !mod.HasCalls || mod.Index != ci.Section {
			continue
		}
		if int(ci.Method) >= len(mod.Calls) {
			break
		}
		return mod, &mod.Calls[ci.Method], nil
	}
	return nil, nil, fmt.Errorf("%w: index %v", ErrCallNotFound, ci)
}

// FindStorage resolves a storage item by pallet and item name.
func (m *Metadata) FindStorage(pallet, item string) (*Module, *StorageItem, error) {
	mod, ok := m.Module(pallet)
	if !ok || mod.Storage == nil {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrStorageNotFound, pallet, item)
	}
	norm := NormalizeName(item)
	for i := range mod.Storage.Items {
		if NormalizeName(mod.Storage.Items[i].Name) == norm {
			return mod, &mod.Storage.Items[i], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s.%s", ErrStorageNotFound, pallet, item)
}

// FindConstant resolves a module constant.
func (m *Metadata) FindConstant(pallet, name string) (*Constant, bool) {
	mod, ok := m.Module(pallet)
	if !ok {
		return nil, false
	}
	for i := range mod.Constants {
		if mod.Constants[i].Name == name {
			return &mod.Constants[i], true
		}
	}
	return nil, false
}

// HasSignedExtension reports whether the runtime lists the named extension.
func (m *Metadata) HasSignedExtension(name string) bool {
	for _, ext := range m.Extrinsic.SignedExtensions {
		if ext == name {
			return true
		}
	}
	return false
}
