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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/scale"
)

// arrayRule is [T; n] for any T other than u8.
type arrayRule struct {
	elem Rule
	n    int
}

func (r *arrayRule) Encode(e *scale.Encoder, v interface{}) error {
	items, err := toSlice(v)
	if err != nil {
		return err
	}
	if len(items) != r.n {
		return fmt.Errorf("need %d elements, got %d", r.n, len(items))
	}
	for i, item := range items {
		if err := r.elem.Encode(e, item); err != nil {
			return atPath(strconv.Itoa(i), err)
		}
	}
	return nil
}

func (r *arrayRule) Decode(d *scale.Decoder) (interface{}, error) {
	out := make([]interface{}, r.n)
	for i := range out {
		v, err := r.elem.Decode(d)
		if err != nil {
			return nil, atPath(strconv.Itoa(i), err)
		}
		out[i] = v
	}
	return out, nil
}

// vecRule is Vec<T>.
type vecRule struct {
	elem Rule
}

func (r *vecRule) Encode(e *scale.Encoder, v interface{}) error {
	items, err := toSlice(v)
	if err != nil {
		return err
	}
	e.PutCompactUint64(uint64(len(items)))
	for i, item := range items {
		if err := r.elem.Encode(e, item); err != nil {
			return atPath(strconv.Itoa(i), err)
		}
	}
	return nil
}

func (r *vecRule) Decode(d *scale.Decoder) (interface{}, error) {
	n, err := d.ReadLength(1)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, n)
	for i := range out {
		v, err := r.elem.Decode(d)
		if err != nil {
			return nil, atPath(strconv.Itoa(i), err)
		}
		out[i] = v
	}
	return out, nil
}

// Some is a present option whose payload decodes to nil, such as
// Some(None) or Some(()). Other present options decode to the payload
// itself.
type Some struct {
	Value interface{}
}

// MarshalJSON renders the payload.
func (s Some) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// optionRule is Option<T>: nil encodes None.
type optionRule struct {
	inner Rule
}

func (r *optionRule) Encode(e *scale.Encoder, v interface{}) error {
	switch x := v.(type) {
	case nil:
		e.PutUint8(0)
		return nil
	case Some:
		e.PutUint8(1)
		return r.inner.Encode(e, x.Value)
	case *Some:
		if x == nil {
			e.PutUint8(0)
			return nil
		}
		e.PutUint8(1)
		return r.inner.Encode(e, x.Value)
	}
	e.PutUint8(1)
	return r.inner.Encode(e, v)
}

func (r *optionRule) Decode(d *scale.Decoder) (interface{}, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := r.inner.Decode(d)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return Some{}, nil
		}
		return v, nil
	}
	return nil, errInvalidOption
}

// optionBoolRule is the single byte Option<bool>: 0 None, 1 true, 2 false.
type optionBoolRule struct{}

func (optionBoolRule) Encode(e *scale.Encoder, v interface{}) error {
	switch x := v.(type) {
	case nil:
		e.PutUint8(0)
	case bool:
		if x {
			e.PutUint8(1)
		} else {
			e.PutUint8(2)
		}
	default:
		return fmt.Errorf("cannot use %T as Option<bool>", v)
	}
	return nil
}

func (optionBoolRule) Decode(d *scale.Decoder) (interface{}, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		return true, nil
	case 2:
		return false, nil
	}
	return nil, errInvalidOption
}

// tupleRule is (A, B, ...).
type tupleRule struct {
	elems []Rule
}

func (r *tupleRule) Encode(e *scale.Encoder, v interface{}) error {
	items, err := toSlice(v)
	if err != nil {
		return err
	}
	if len(items) != len(r.elems) {
		return fmt.Errorf("need %d tuple elements, got %d", len(r.elems), len(items))
	}
	for i, rule := range r.elems {
		if err := rule.Encode(e, items[i]); err != nil {
			return atPath(strconv.Itoa(i), err)
		}
	}
	return nil
}

func (r *tupleRule) Decode(d *scale.Decoder) (interface{}, error) {
	out := make([]interface{}, len(r.elems))
	for i, rule := range r.elems {
		v, err := rule.Decode(d)
		if err != nil {
			return nil, atPath(strconv.Itoa(i), err)
		}
		out[i] = v
	}
	return out, nil
}

type field struct {
	name string
	rule Rule
}

// structRule encodes its fields in declaration order. Input is a map (or an
// ordered []Arg, or a positional slice); the decoded value is a map keyed by
// the declared field names.
type structRule struct {
	fields []field
}

func (r *structRule) Encode(e *scale.Encoder, v interface{}) error {
	if items, ok := v.([]interface{}); ok {
		return (&tupleRule{elems: r.ruleList()}).Encode(e, items)
	}
	m, err := toFields(v)
	if err != nil {
		return err
	}
	for _, f := range r.fields {
		val, _ := lookupField(m, f.name)
		if err := f.rule.Encode(e, val); err != nil {
			return atPath(f.name, err)
		}
	}
	return nil
}

func (r *structRule) Decode(d *scale.Decoder) (interface{}, error) {
	out := make(map[string]interface{}, len(r.fields))
	for _, f := range r.fields {
		v, err := f.rule.Decode(d)
		if err != nil {
			return nil, atPath(f.name, err)
		}
		out[f.name] = v
	}
	return out, nil
}

func (r *structRule) ruleList() []Rule {
	out := make([]Rule, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.rule
	}
	return out
}

// variant is one enum variant; a nil rule marks a unit variant.
type variant struct {
	name  string
	index int
	rule  Rule
}

// enumRule is a tagged union. Simple enums (all unit variants) decode to the
// variant name, others to a single-entry map {variant: value}.
type enumRule struct {
	variants []variant
	simple   bool
}

func (r *enumRule) byName(name string) (*variant, bool) {
	for i := range r.variants {
		if r.variants[i].name == name {
			return &r.variants[i], true
		}
	}
	norm := metadata.NormalizeName(name)
	for i := range r.variants {
		if metadata.NormalizeName(r.variants[i].name) == norm {
			return &r.variants[i], true
		}
	}
	return nil, false
}

func (r *enumRule) byIndex(idx int) (*variant, bool) {
	for i := range r.variants {
		if r.variants[i].index == idx {
			return &r.variants[i], true
		}
	}
	return nil, false
}

func (r *enumRule) Encode(e *scale.Encoder, v interface{}) error {
	var (
		name    string
		payload interface{}
	)
	switch x := v.(type) {
	case nil:
		return ErrNoValue
	case string:
		name = x
	case uint8, uint16, uint32, uint64, int, int64:
		idx, err := toUint256(x)
		if err != nil || !idx.IsUint64() {
			return fmt.Errorf("invalid variant index %v", x)
		}
		vr, ok := r.byIndex(int(idx.Uint64()))
		if !ok || vr.rule != nil {
			return fmt.Errorf("no unit variant with index %v", x)
		}
		e.PutUint8(uint8(vr.index))
		return nil
	default:
		var ok bool
		if name, payload, ok = singleEntry(v); !ok {
			return fmt.Errorf("cannot use %T as enum, need variant name or {variant: value}", v)
		}
	}
	vr, ok := r.byName(name)
	if !ok {
		return fmt.Errorf("unknown variant %q", name)
	}
	e.PutUint8(uint8(vr.index))
	if vr.rule == nil {
		if payload != nil {
			return fmt.Errorf("variant %s takes no value", vr.name)
		}
		return nil
	}
	return atPath(vr.name, vr.rule.Encode(e, payload))
}

func (r *enumRule) Decode(d *scale.Decoder) (interface{}, error) {
	idx, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	vr, ok := r.byIndex(int(idx))
	if !ok {
		return nil, fmt.Errorf("invalid variant index %d", idx)
	}
	if r.simple {
		return vr.name, nil
	}
	if vr.rule == nil {
		return map[string]interface{}{vr.name: nil}, nil
	}
	val, err := vr.rule.Decode(d)
	if err != nil {
		return nil, atPath(vr.name, err)
	}
	return map[string]interface{}{vr.name: val}, nil
}

// mapRule is BTreeMap<K, V>, a compact length followed by key/value pairs.
// Input is a list of [key, value] pairs or a map with string keys (encoded in
// sorted key order); output is a list of pairs.
type mapRule struct {
	key, val Rule
}

func (r *mapRule) Encode(e *scale.Encoder, v interface{}) error {
	var pairs [][2]interface{}
	if m, ok := v.(map[string]interface{}); ok {
		for _, k := range sortedKeys(m) {
			pairs = append(pairs, [2]interface{}{k, m[k]})
		}
	} else {
		items, err := toSlice(v)
		if err != nil {
			return err
		}
		for i, item := range items {
			kv, err := toSlice(item)
			if err != nil || len(kv) != 2 {
				return fmt.Errorf("entry %d is not a [key, value] pair", i)
			}
			pairs = append(pairs, [2]interface{}{kv[0], kv[1]})
		}
	}
	e.PutCompactUint64(uint64(len(pairs)))
	for i, kv := range pairs {
		if err := r.key.Encode(e, kv[0]); err != nil {
			return atPath(strconv.Itoa(i), err)
		}
		if err := r.val.Encode(e, kv[1]); err != nil {
			return atPath(strconv.Itoa(i), err)
		}
	}
	return nil
}

func (r *mapRule) Decode(d *scale.Decoder) (interface{}, error) {
	n, err := d.ReadLength(1)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, n)
	for i := range out {
		k, err := r.key.Decode(d)
		if err != nil {
			return nil, atPath(strconv.Itoa(i), err)
		}
		v, err := r.val.Decode(d)
		if err != nil {
			return nil, atPath(strconv.Itoa(i), err)
		}
		out[i] = []interface{}{k, v}
	}
	return out, nil
}

// resultRule is Result<T, E> as {"Ok": v} or {"Err": e}.
type resultRule struct {
	ok, err Rule
}

func (r *resultRule) Encode(e *scale.Encoder, v interface{}) error {
	name, payload, ok := singleEntry(v)
	if !ok {
		return fmt.Errorf("cannot use %T as result, need {Ok: v} or {Err: e}", v)
	}
	switch name {
	case "Ok", "ok":
		e.PutUint8(0)
		return atPath("Ok", r.ok.Encode(e, payload))
	case "Err", "err":
		e.PutUint8(1)
		return atPath("Err", r.err.Encode(e, payload))
	}
	return fmt.Errorf("unknown result variant %q", name)
}

func (r *resultRule) Decode(d *scale.Decoder) (interface{}, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		v, err := r.ok.Decode(d)
		return map[string]interface{}{"Ok": v}, atPath("Ok", err)
	case 1:
		v, err := r.err.Decode(d)
		return map[string]interface{}{"Err": v}, atPath("Err", err)
	}
	return nil, fmt.Errorf("invalid result tag %d", tag)
}

// namedRule is a resolved schema or builtin name. It lets recursive
// definitions refer to themselves before their body is resolved.
type namedRule struct {
	name string
	rule Rule
}

func (r *namedRule) Encode(e *scale.Encoder, v interface{}) error {
	if r.rule == nil {
		return &UnknownTypeError{Type: r.name}
	}
	return r.rule.Encode(e, v)
}

func (r *namedRule) Decode(d *scale.Decoder) (interface{}, error) {
	if r.rule == nil {
		return nil, &UnknownTypeError{Type: r.name}
	}
	return r.rule.Decode(d)
}

// unwrap follows named references to the underlying rule.
func unwrap(r Rule) Rule {
	for {
		n, ok := r.(*namedRule)
		if !ok || n.rule == nil {
			return r
		}
		r = n.rule
	}
}
