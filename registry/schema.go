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
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

//go:embed schema/polymesh.json
var polymeshSchema []byte

// Schema is a static type table in the polkadot.js "types" dialect: string
// aliases, {"_enum": [...]} and {"_enum": {...}} variants and struct objects
// whose key order is the field order.
type Schema struct {
	Types map[string]json.RawMessage `json:"types"`
	// Versioned overrides apply to spec versions within MinMax (inclusive,
	// a null bound is open).
	Versioned []VersionedTypes `json:"versioned"`
	// Chains and Specs hold overrides keyed by chain name and spec name.
	Chains map[string]map[string]json.RawMessage `json:"chains"`
	Specs  map[string]map[string]json.RawMessage `json:"specs"`
}

// VersionedTypes is a set of overrides bound to a spec version range.
type VersionedTypes struct {
	MinMax [2]*uint32                 `json:"minmax"`
	Types  map[string]json.RawMessage `json:"types"`
}

func (v *VersionedTypes) covers(specVersion uint32) bool {
	if v.MinMax[0] != nil && specVersion < *v.MinMax[0] {
		return false
	}
	if v.MinMax[1] != nil && specVersion > *v.MinMax[1] {
		return false
	}
	return true
}

// LoadSchema reads a schema file.
func LoadSchema(r io.Reader) (*Schema, error) {
	s := new(Schema)
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("invalid type schema: %w", err)
	}
	return s, nil
}

// DefaultSchema returns the embedded Polymesh schema.
func DefaultSchema() *Schema {
	s, err := LoadSchema(bytes.NewReader(polymeshSchema))
	if err != nil {
		panic(err)
	}
	return s
}

// TypesFor merges the base types with every override that applies to the
// given chain, spec name and version. Later layers win: versioned, then
// spec, then chain.
func (s *Schema) TypesFor(chainName, specName string, specVersion uint32) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.Types))
	for k, v := range s.Types {
		out[k] = v
	}
	for i := range s.Versioned {
		if s.Versioned[i].covers(specVersion) {
			for k, v := range s.Versioned[i].Types {
				out[k] = v
			}
		}
	}
	for k, v := range s.Specs[specName] {
		out[k] = v
	}
	for k, v := range s.Chains[chainName] {
		out[k] = v
	}
	return out
}

type defKind uint8

const (
	aliasDef defKind = iota
	structDef
	enumDef
)

// typeDef is a parsed schema entry.
type typeDef struct {
	kind    defKind
	alias   string
	fields  []fieldDef
	enum    []variantDef
	indexed bool // simple enum with explicit discriminants
}

type fieldDef struct {
	name string
	typ  string
}

// variantDef is an enum variant. An empty typ is a unit variant.
type variantDef struct {
	name  string
	typ   string
	index int
}

func parseTypeDef(raw json.RawMessage) (*typeDef, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty definition")
	}
	if raw[0] == '"' {
		var alias string
		if err := json.Unmarshal(raw, &alias); err != nil {
			return nil, err
		}
		return &typeDef{kind: aliasDef, alias: alias}, nil
	}
	keys, vals, err := readObject(raw)
	if err != nil {
		return nil, err
	}
	if len(keys) == 1 && keys[0] == "_enum" {
		return parseEnumDef(vals[0])
	}
	def := &typeDef{kind: structDef}
	for i, k := range keys {
		if strings.HasPrefix(k, "_") {
			if k == "_set" || k == "_enum" {
				return nil, fmt.Errorf("unsupported definition key %q", k)
			}
			continue
		}
		var typ string
		if err := json.Unmarshal(vals[i], &typ); err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		def.fields = append(def.fields, fieldDef{name: k, typ: typ})
	}
	return def, nil
}

func parseEnumDef(raw json.RawMessage) (*typeDef, error) {
	def := &typeDef{kind: enumDef}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, err
		}
		for i, n := range names {
			def.enum = append(def.enum, variantDef{name: n, index: i})
		}
		return def, nil
	}
	keys, vals, err := readObject(raw)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		v := bytes.TrimSpace(vals[i])
		if len(v) > 0 && v[0] >= '0' && v[0] <= '9' {
			var idx int
			if err := json.Unmarshal(v, &idx); err != nil {
				return nil, err
			}
			def.indexed = true
			def.enum = append(def.enum, variantDef{name: k, index: idx})
			continue
		}
		var typ string
		if err := json.Unmarshal(v, &typ); err != nil {
			return nil, fmt.Errorf("variant %s: %w", k, err)
		}
		if typ == "Null" || typ == "()" {
			typ = ""
		}
		def.enum = append(def.enum, variantDef{name: k, typ: typ, index: i})
	}
	return def, nil
}

// readObject returns the keys and values of a JSON object in source order.
func readObject(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, nil, fmt.Errorf("expected string or object definition")
	}
	var (
		keys []string
		vals []json.RawMessage
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("key %s: %w", key, err)
		}
		keys = append(keys, key)
		vals = append(vals, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}
