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
	"fmt"

	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/scale"
)

// CallValue is a call passed as a value, for arguments of type Call
// (utility batches, sudo, multisig proposals).
type CallValue interface {
	CallName() (pallet, method string)
	CallArgs() []Arg
}

// DecodedCall is a call read back from its encoding. Pallet and Method carry
// the metadata spelling.
type DecodedCall struct {
	Index  metadata.CallIndex
	Pallet string
	Method string
	Args   []Arg
}

// CallName implements CallValue.
func (c *DecodedCall) CallName() (string, string) { return c.Pallet, c.Method }

// CallArgs implements CallValue.
func (c *DecodedCall) CallArgs() []Arg { return c.Args }

// Arg returns the decoded value of the named argument.
func (c *DecodedCall) Arg(name string) (interface{}, bool) {
	norm := metadata.NormalizeName(name)
	for _, a := range c.Args {
		if metadata.NormalizeName(a.Name) == norm {
			return a.Value, true
		}
	}
	return nil, false
}

func (c *DecodedCall) String() string {
	return fmt.Sprintf("%s.%s(%d args)", c.Pallet, c.Method, len(c.Args))
}

// callRule is the Call type: call index followed by the arguments.
type callRule struct {
	reg *Registry
}

func (r *callRule) Encode(e *scale.Encoder, v interface{}) error {
	cv, ok := v.(CallValue)
	if !ok {
		return fmt.Errorf("cannot use %T as call", v)
	}
	pallet, method := cv.CallName()
	return r.reg.encodeCall(e, pallet, method, cv.CallArgs())
}

func (r *callRule) Decode(d *scale.Decoder) (interface{}, error) {
	return r.reg.decodeCall(d)
}

// EncodeCall encodes a call into call index plus arguments. Arguments are
// matched to the metadata by name in either spelling; unnamed arguments are
// taken positionally. Missing Option arguments encode as None. A pallet or
// method the runtime does not know yields an error wrapping
// metadata.ErrCallNotFound.
func (r *Registry) EncodeCall(pallet, method string, args []Arg) ([]byte, error) {
	e := scale.NewEncoder()
	if err := r.encodeCall(e, pallet, method, args); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (r *Registry) encodeCall(e *scale.Encoder, pallet, method string, args []Arg) error {
	ci, mod, call, err := r.meta.FindCall(pallet, method)
	if err != nil {
		return err
	}
	name := mod.Name + "." + call.Name
	rules := r.callArgs[ci]
	used := make([]bool, len(args))

	e.PutUint8(ci.Section)
	e.PutUint8(ci.Method)
	for i, a := range call.Args {
		var val interface{}
		norm := metadata.NormalizeName(a.Name)
		for j := range args {
			if used[j] {
				continue
			}
			if (args[j].Name == "" && j == i) || (args[j].Name != "" && metadata.NormalizeName(args[j].Name) == norm) {
				val, used[j] = args[j].Value, true
				break
			}
		}
		if rules[i] == nil {
			return &UnknownTypeError{Type: Sanitize(a.Type), Via: name}
		}
		if err := rules[i].Encode(e, val); err != nil {
			return &EncodeError{Type: name, Err: atPath(a.Name, err)}
		}
	}
	for j, a := range args {
		if !used[j] {
			return &EncodeError{Type: name, Err: fmt.Errorf("unexpected argument %q", a.Name)}
		}
	}
	return nil
}

// DecodeCall decodes a complete call encoding.
func (r *Registry) DecodeCall(b []byte) (*DecodedCall, error) {
	d := scale.NewDecoder(b)
	call, err := r.decodeCall(d)
	if err != nil {
		return nil, &DecodeError{Type: "Call", Offset: d.Offset(), Err: err}
	}
	if d.Remaining() != 0 {
		return nil, &DecodeError{Type: "Call", Offset: d.Offset(), Err: errTrailingBytes}
	}
	return call, nil
}

// DecodeCallFrom reads one call from a decoder positioned at its start.
func (r *Registry) DecodeCallFrom(d *scale.Decoder) (*DecodedCall, error) {
	return r.decodeCall(d)
}

func (r *Registry) decodeCall(d *scale.Decoder) (*DecodedCall, error) {
	idx, err := d.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	ci := metadata.CallIndex{Section: idx[0], Method: idx[1]}
	mod, call, err := r.meta.CallByIndex(ci)
	if err != nil {
		return nil, err
	}
	rules := r.callArgs[ci]
	out := &DecodedCall{Index: ci, Pallet: mod.Name, Method: call.Name, Args: make([]Arg, len(call.Args))}
	for i, a := range call.Args {
		if rules[i] == nil {
			return nil, &UnknownTypeError{Type: Sanitize(a.Type), Via: mod.Name + "." + call.Name}
		}
		v, err := rules[i].Decode(d)
		if err != nil {
			return nil, atPath(mod.Name+"."+call.Name+"."+a.Name, err)
		}
		out.Args[i] = Arg{Name: a.Name, Value: v}
	}
	return out, nil
}
