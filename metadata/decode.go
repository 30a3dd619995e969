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

package metadata

import (
	"bytes"
	"fmt"

	"github.com/probeum/go-polytx/scale"
)

// Decode parses a metadata blob.
func Decode(blob []byte) (*Metadata, error) {
	d := scale.NewDecoder(blob)
	magic, err := d.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, Magic[:]) {
		return nil, ErrBadMagic
	}
	version, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version < V11 || version > V13 {
		return nil, fmt.Errorf("%w: v%d", ErrUnsupportedVersion, version)
	}
	m := &Metadata{Version: version}
	if err := m.decode(d); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("metadata: %d trailing bytes", d.Remaining())
	}
	return m, nil
}

func (m *Metadata) decode(d *scale.Decoder) error {
	n, err := d.ReadLength(1)
	if err != nil {
		return fmt.Errorf("metadata: module count: %w", err)
	}
	m.Modules = make([]Module, n)
	var callIndex uint8
	for i := range m.Modules {
		mod := &m.Modules[i]
		if err := mod.decode(d, m.Version); err != nil {
			return fmt.Errorf("metadata: module %d (%s): %w", i, mod.Name, err)
		}
		if m.Version == V11 && mod.HasCalls {
			mod.Index = callIndex
			callIndex++
		}
	}
	if m.Extrinsic.Version, err = d.ReadUint8(); err != nil {
		return fmt.Errorf("metadata: extrinsic version: %w", err)
	}
	if m.Extrinsic.SignedExtensions, err = readStrings(d); err != nil {
		return fmt.Errorf("metadata: signed extensions: %w", err)
	}
	return nil
}

func (mod *Module) decode(d *scale.Decoder, version uint8) error {
	var err error
	if mod.Name, err = d.ReadString(); err != nil {
		return err
	}
	// storage
	some, err := readOption(d)
	if err != nil {
		return err
	}
	if some {
		mod.Storage = new(Storage)
		if err := mod.Storage.decode(d, version); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	// calls
	if mod.HasCalls, err = readOption(d); err != nil {
		return err
	}
	if mod.HasCalls {
		n, err := d.ReadLength(1)
		if err != nil {
			return err
		}
		mod.Calls = make([]Call, n)
		for i := range mod.Calls {
			if err := mod.Calls[i].decode(d); err != nil {
				return fmt.Errorf("call %d: %w", i, err)
			}
		}
	}
	// events
	if mod.HasEvents, err = readOption(d); err != nil {
		return err
	}
	if mod.HasEvents {
		n, err := d.ReadLength(1)
		if err != nil {
			return err
		}
		mod.Events = make([]Event, n)
		for i := range mod.Events {
			ev := &mod.Events[i]
			if ev.Name, err = d.ReadString(); err != nil {
				return err
			}
			if ev.Args, err = readStrings(d); err != nil {
				return err
			}
			if ev.Docs, err = readStrings(d); err != nil {
				return err
			}
		}
	}
	// constants
	n, err := d.ReadLength(1)
	if err != nil {
		return err
	}
	mod.Constants = make([]Constant, n)
	for i := range mod.Constants {
		c := &mod.Constants[i]
		if c.Name, err = d.ReadString(); err != nil {
			return err
		}
		if c.Type, err = d.ReadString(); err != nil {
			return err
		}
		if c.Value, err = d.ReadPrefixedBytes(); err != nil {
			return err
		}
		if c.Docs, err = readStrings(d); err != nil {
			return err
		}
	}
	// errors
	if n, err = d.ReadLength(1); err != nil {
		return err
	}
	mod.Errors = make([]Error, n)
	for i := range mod.Errors {
		if mod.Errors[i].Name, err = d.ReadString(); err != nil {
			return err
		}
		if mod.Errors[i].Docs, err = readStrings(d); err != nil {
			return err
		}
	}
	if version >= V12 {
		if mod.Index, err = d.ReadUint8(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) decode(d *scale.Decoder, version uint8) error {
	var err error
	if s.Prefix, err = d.ReadString(); err != nil {
		return err
	}
	n, err := d.ReadLength(1)
	if err != nil {
		return err
	}
	s.Items = make([]StorageItem, n)
	for i := range s.Items {
		it := &s.Items[i]
		if it.Name, err = d.ReadString(); err != nil {
			return err
		}
		mod, err := d.ReadUint8()
		if err != nil {
			return err
		}
		if mod > uint8(Default) {
			return fmt.Errorf("item %s: invalid modifier %d", it.Name, mod)
		}
		it.Modifier = Modifier(mod)
		if err := it.Type.decode(d, version); err != nil {
			return fmt.Errorf("item %s: %w", it.Name, err)
		}
		if it.Fallback, err = d.ReadPrefixedBytes(); err != nil {
			return err
		}
		if it.Docs, err = readStrings(d); err != nil {
			return err
		}
	}
	return nil
}

func (st *StorageType) decode(d *scale.Decoder, version uint8) error {
	kind, err := d.ReadUint8()
	if err != nil {
		return err
	}
	st.Kind = StorageKind(kind)
	switch st.Kind {
	case PlainKind:
		st.Value, err = d.ReadString()
		return err
	case MapKind:
		h, err := readHasher(d)
		if err != nil {
			return err
		}
		key, err := d.ReadString()
		if err != nil {
			return err
		}
		if st.Value, err = d.ReadString(); err != nil {
			return err
		}
		if st.Linked, err = d.ReadBool(); err != nil {
			return err
		}
		st.Keys, st.Hashers = []string{key}, []Hasher{h}
		return nil
	case DoubleMapKind:
		h1, err := readHasher(d)
		if err != nil {
			return err
		}
		k1, err := d.ReadString()
		if err != nil {
			return err
		}
		k2, err := d.ReadString()
		if err != nil {
			return err
		}
		if st.Value, err = d.ReadString(); err != nil {
			return err
		}
		h2, err := readHasher(d)
		if err != nil {
			return err
		}
		st.Keys, st.Hashers = []string{k1, k2}, []Hasher{h1, h2}
		return nil
	case NMapKind:
		if version < V13 {
			break
		}
		if st.Keys, err = readStrings(d); err != nil {
			return err
		}
		n, err := d.ReadLength(1)
		if err != nil {
			return err
		}
		st.Hashers = make([]Hasher, n)
		for i := range st.Hashers {
			if st.Hashers[i], err = readHasher(d); err != nil {
				return err
			}
		}
		st.Value, err = d.ReadString()
		return err
	}
	return fmt.Errorf("invalid storage kind %d", kind)
}

func (c *Call) decode(d *scale.Decoder) error {
	var err error
	if c.Name, err = d.ReadString(); err != nil {
		return err
	}
	n, err := d.ReadLength(2)
	if err != nil {
		return err
	}
	c.Args = make([]Arg, n)
	for i := range c.Args {
		if c.Args[i].Name, err = d.ReadString(); err != nil {
			return err
		}
		if c.Args[i].Type, err = d.ReadString(); err != nil {
			return err
		}
	}
	c.Docs, err = readStrings(d)
	return err
}

func readOption(d *scale.Decoder) (bool, error) {
	b, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid option tag %d", b)
}

func readHasher(d *scale.Decoder) (Hasher, error) {
	b, err := d.ReadUint8()
	if err != nil {
		return 0, err
	}
	if h := Hasher(b); h.valid() {
		return h, nil
	}
	return 0, fmt.Errorf("invalid hasher %d", b)
}

func readStrings(d *scale.Decoder) ([]string, error) {
	n, err := d.ReadLength(1)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
