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

// builtinAliases are default definitions for common Substrate names. Schema
// entries of the same name take precedence.
var builtinAliases = map[string]string{
	"AccountIdOf":        "AccountId",
	"Address":            "AccountId",
	"LookupSource":       "AccountId",
	"AccountIndex":       "u32",
	"Balance":            "u128",
	"BalanceOf":          "Balance",
	"BlockNumber":        "u32",
	"Index":              "u32",
	"Nonce":              "u32",
	"Hash":               "H256",
	"H160":               "[u8;20]",
	"H256":               "[u8;32]",
	"H512":               "[u8;64]",
	"Moment":             "u64",
	"Weight":             "u64",
	"Perbill":            "u32",
	"Permill":            "u32",
	"Percent":            "u8",
	"Signature":          "H512",
	"EcdsaSignature":     "[u8;65]",
	"ExtrinsicSignature": "MultiSignature",
	"DispatchInfo":       "(Weight,DispatchClass,Pays)",
}

// builtinEnums are enums every runtime shares.
var builtinEnums = map[string][]variantDef{
	"MultiSignature": {
		{name: "Ed25519", typ: "H512", index: 0},
		{name: "Sr25519", typ: "H512", index: 1},
		{name: "Ecdsa", typ: "EcdsaSignature", index: 2},
	},
	"DispatchClass": {{name: "Normal", index: 0}, {name: "Operational", index: 1}, {name: "Mandatory", index: 2}},
	"Pays":          {{name: "Yes", index: 0}, {name: "No", index: 1}},
}

// primitive returns the rule of a name that schemas cannot redefine.
func (r *resolver) primitive(name string) (Rule, bool) {
	switch name {
	case "bool":
		return boolRule{}, true
	case "u8", "u16", "u32", "u64", "u128", "u256":
		return &uintRule{width: bitWidth(name) / 8}, true
	case "i8", "i16", "i32", "i64", "i128":
		return &intRule{width: bitWidth(name) / 8}, true
	case "Text":
		return textRule{}, true
	case "Bytes":
		return bytesRule{}, true
	case "Null":
		return nullRule{}, true
	case "Call":
		return &callRule{reg: r.reg}, true
	}
	return nil, false
}

func bitWidth(name string) int {
	n := 0
	for _, c := range name[1:] {
		n = n*10 + int(c-'0')
	}
	return n
}

// resolver turns type expressions into rules. Rules are memoized in base
// during Build; afterwards lookups that miss base go to a private overlay so
// the registry itself is never mutated.
type resolver struct {
	reg     *Registry
	base    map[string]Rule
	overlay map[string]Rule
}

func (r *resolver) lookup(key string) (Rule, bool) {
	if rule, ok := r.base[key]; ok {
		return rule, true
	}
	rule, ok := r.overlay[key]
	return rule, ok
}

func (r *resolver) store(key string, rule Rule) {
	if r.overlay != nil {
		r.overlay[key] = rule
	} else {
		r.base[key] = rule
	}
}

func (r *resolver) forget(key string) {
	if r.overlay != nil {
		delete(r.overlay, key)
	} else {
		delete(r.base, key)
	}
}

// resolve parses and resolves a raw type name.
func (r *resolver) resolve(typeName string) (Rule, error) {
	expr, err := parseType(typeName)
	if err != nil {
		return nil, &UnknownTypeError{Type: typeName}
	}
	return r.resolveExpr(expr)
}

func (r *resolver) resolveExpr(t *typeExpr) (Rule, error) {
	key := t.String()
	if rule, ok := r.lookup(key); ok {
		return rule, nil
	}
	var (
		rule Rule
		err  error
	)
	switch {
	case t.kind == tupleExpr:
		rule, err = r.resolveTuple(t)
	case t.kind == arrayExpr:
		rule, err = r.resolveArray(t)
	case len(t.params) > 0:
		rule, err = r.resolveWrapper(t)
	default:
		// named types store themselves, including their placeholder
		return r.resolveName(t.name)
	}
	if err != nil {
		return nil, err
	}
	r.store(key, rule)
	return rule, nil
}

func (r *resolver) resolveTuple(t *typeExpr) (Rule, error) {
	elems := make([]Rule, len(t.params))
	for i, p := range t.params {
		rule, err := r.resolveExpr(p)
		if err != nil {
			return nil, err
		}
		elems[i] = rule
	}
	return &tupleRule{elems: elems}, nil
}

func (r *resolver) resolveArray(t *typeExpr) (Rule, error) {
	elem := t.params[0]
	if elem.kind == namedExpr && elem.name == "u8" {
		return &fixedBytesRule{n: t.length}, nil
	}
	rule, err := r.resolveExpr(elem)
	if err != nil {
		return nil, err
	}
	return &arrayRule{elem: rule, n: t.length}, nil
}

func (r *resolver) resolveWrapper(t *typeExpr) (Rule, error) {
	want := wrappers[t.name]
	if len(t.params) != want {
		return nil, fmt.Errorf("%s needs %d type parameters, got %d", t.name, want, len(t.params))
	}
	inner := t.params[0]
	switch t.name {
	case "Vec", "BTreeSet":
		if inner.kind == namedExpr && inner.name == "u8" {
			return bytesRule{}, nil
		}
		elem, err := r.resolveExpr(inner)
		if err != nil {
			return nil, err
		}
		return &vecRule{elem: elem}, nil
	case "Option":
		if inner.kind == namedExpr && inner.name == "bool" {
			return optionBoolRule{}, nil
		}
		elem, err := r.resolveExpr(inner)
		if err != nil {
			return nil, err
		}
		return &optionRule{inner: elem}, nil
	case "Compact":
		elem, err := r.resolveExpr(inner)
		if err != nil {
			return nil, err
		}
		u, ok := unwrap(elem).(*uintRule)
		if !ok {
			return nil, fmt.Errorf("compact of non-integer type %s", inner)
		}
		return &compactRule{width: u.width}, nil
	case "Result", "BTreeMap", "HashMap":
		a, err := r.resolveExpr(inner)
		if err != nil {
			return nil, err
		}
		b, err := r.resolveExpr(t.params[1])
		if err != nil {
			return nil, err
		}
		if t.name == "Result" {
			return &resultRule{ok: a, err: b}, nil
		}
		return &mapRule{key: a, val: b}, nil
	}
	return nil, &UnknownTypeError{Type: t.String()}
}

func (r *resolver) resolveName(name string) (Rule, error) {
	if rule, ok := r.primitive(name); ok {
		r.store(name, rule)
		return rule, nil
	}
	named := &namedRule{name: name}
	r.store(name, named)

	body, err := r.resolveBody(name)
	if err != nil {
		r.forget(name)
		var unknown *UnknownTypeError
		if errors.As(err, &unknown) && unknown.Via == "" && unknown.Type != name {
			unknown.Via = name
		}
		return nil, err
	}
	named.rule = body
	return named, nil
}

func (r *resolver) resolveBody(name string) (Rule, error) {
	if def, ok := r.reg.defs[name]; ok {
		return r.resolveDef(name, def)
	}
	switch name {
	case "AccountId":
		return r.reg.account, nil
	case "IndicesLookupSource", "GenericLookupSource":
		return &indicesLookupSourceRule{account: r.reg.account}, nil
	case "MultiAddress", "GenericMultiAddress":
		return newMultiAddressRule(r.reg.account), nil
	}
	if alias, ok := builtinAliases[name]; ok {
		return r.resolve(alias)
	}
	if variants, ok := builtinEnums[name]; ok {
		return r.resolveDef(name, &typeDef{kind: enumDef, enum: variants})
	}
	return nil, &UnknownTypeError{Type: name}
}

func (r *resolver) resolveDef(name string, def *typeDef) (Rule, error) {
	switch def.kind {
	case aliasDef:
		if Sanitize(def.alias) == name {
			return nil, fmt.Errorf("type %s is defined as itself", name)
		}
		return r.resolve(def.alias)
	case structDef:
		fields := make([]field, len(def.fields))
		for i, f := range def.fields {
			rule, err := r.resolve(f.typ)
			if err != nil {
				return nil, err
			}
			fields[i] = field{name: f.name, rule: rule}
		}
		return &structRule{fields: fields}, nil
	}
	enum := &enumRule{simple: true}
	for _, v := range def.enum {
		vr := variant{name: v.name, index: v.index}
		if v.typ != "" {
			rule, err := r.resolve(v.typ)
			if err != nil {
				return nil, err
			}
			vr.rule = rule
			enum.simple = false
		}
		enum.variants = append(enum.variants, vr)
	}
	return enum, nil
}
