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
	"fmt"

	"github.com/probeum/go-polytx/scale"
)

// Encode serializes the metadata back into a blob of its version.
func (m *Metadata) Encode() ([]byte, error) {
	if m.Version < V11 || m.Version > V13 {
		return nil, fmt.Errorf("%w: v%d", ErrUnsupportedVersion, m.Version)
	}
	e := scale.NewEncoder()
	e.Write(Magic[:])
	e.PutUint8(m.Version)
	e.PutCompactUint64(uint64(len(m.Modules)))
	for i := range m.Modules {
		if err := m.Modules[i].encode(e, m.Version); err != nil {
			return nil, fmt.Errorf("metadata: module %s: %w", m.Modules[i].Name, err)
		}
	}
	e.PutUint8(m.Extrinsic.Version)
	putStrings(e, m.Extrinsic.SignedExtensions)
	return e.Bytes(), nil
}

func (mod *Module) encode(e *scale.Encoder, version uint8) error {
	e.PutString(mod.Name)
	if mod.Storage == nil {
		e.PutUint8(0)
	} else {
		e.PutUint8(1)
		e.PutString(mod.Storage.Prefix)
		e.PutCompactUint64(uint64(len(mod.Storage.Items)))
		for _, it := range mod.Storage.Items {
			e.PutString(it.Name)
			e.PutUint8(uint8(it.Modifier))
			if err := it.Type.encode(e, version); err != nil {
				return fmt.Errorf("item %s: %w", it.Name, err)
			}
			e.PutBytes(it.Fallback)
			putStrings(e, it.Docs)
		}
	}
	if !mod.HasCalls {
		e.PutUint8(0)
	} else {
		e.PutUint8(1)
		e.PutCompactUint64(uint64(len(mod.Calls)))
		for _, c := range mod.Calls {
			e.PutString(c.Name)
			e.PutCompactUint64(uint64(len(c.Args)))
			for _, a := range c.Args {
				e.PutString(a.Name)
				e.PutString(a.Type)
			}
			putStrings(e, c.Docs)
		}
	}
	if !mod.HasEvents {
		e.PutUint8(0)
	} else {
		e.PutUint8(1)
		e.PutCompactUint64(uint64(len(mod.Events)))
		for _, ev := range mod.Events {
			e.PutString(ev.Name)
			putStrings(e, ev.Args)
			putStrings(e, ev.Docs)
		}
	}
	e.PutCompactUint64(uint64(len(mod.Constants)))
	for _, c := range mod.Constants {
		e.PutString(c.Name)
		e.PutString(c.Type)
		e.PutBytes(c.Value)
		putStrings(e, c.Docs)
	}
	e.PutCompactUint64(uint64(len(mod.Errors)))
	for _, er := range mod.Errors {
		e.PutString(er.Name)
		putStrings(e, er.Docs)
	}
	if version >= V12 {
		e.PutUint8(mod.Index)
	}
	return nil
}

func (st *StorageType) encode(e *scale.Encoder, version uint8) error {
	e.PutUint8(uint8(st.Kind))
	switch st.Kind {
	case PlainKind:
		e.PutString(st.Value)
		return nil
	case MapKind:
		if len(st.Keys) != 1 || len(st.Hashers) != 1 {
			return fmt.Errorf("map needs one key and hasher")
		}
		e.PutUint8(uint8(st.Hashers[0]))
		e.PutString(st.Keys[0])
		e.PutString(st.Value)
		e.PutBool(st.Linked)
		return nil
	case DoubleMapKind:
		if len(st.Keys) != 2 || len(st.Hashers) != 2 {
			return fmt.Errorf("double map needs two keys and hashers")
		}
		e.PutUint8(uint8(st.Hashers[0]))
		e.PutString(st.Keys[0])
		e.PutString(st.Keys[1])
		e.PutString(st.Value)
		e.PutUint8(uint8(st.Hashers[1]))
		return nil
	case NMapKind:
		if version < V13 {
			break
		}
		putStrings(e, st.Keys)
		e.PutCompactUint64(uint64(len(st.Hashers)))
		for _, h := range st.Hashers {
			e.PutUint8(uint8(h))
		}
		e.PutString(st.Value)
		return nil
	}
	return fmt.Errorf("storage kind %d not valid in v%d", st.Kind, version)
}

func putStrings(e *scale.Encoder, ss []string) {
	e.PutCompactUint64(uint64(len(ss)))
	for _, s := range ss {
		e.PutString(s)
	}
}
