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

package types

import (
	"fmt"
	"strings"

	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/registry"
)

// Arg is one named call argument.
type Arg = registry.Arg

// Call names a runtime function and its arguments. Pallet and method may be
// spelled as in the metadata (Balances, transfer_with_memo) or in camel case
// (balances, transferWithMemo).
type Call struct {
	pallet string
	method string
	args   []Arg
}

// NewCall creates a call. Arguments keep their order.
func NewCall(pallet, method string, args ...Arg) *Call {
	return &Call{pallet: pallet, method: method, args: args}
}

// ParseCallName splits "pallet.method".
func ParseCallName(name string) (pallet, method string, err error) {
	i := strings.IndexByte(name, '.')
	if i <= 0 || i == len(name)-1 || strings.Count(name, ".") != 1 {
		return "", "", fmt.Errorf("invalid call name %q, want pallet.method", name)
	}
	return name[:i], name[i+1:], nil
}

func (c *Call) Pallet() string { return c.pallet }
func (c *Call) Method() string { return c.method }
func (c *Call) Args() []Arg    { return c.args }

// CallName implements registry.CallValue.
func (c *Call) CallName() (string, string) { return c.pallet, c.method }

// CallArgs implements registry.CallValue.
func (c *Call) CallArgs() []Arg { return c.args }

// Arg returns the value of the named argument.
func (c *Call) Arg(name string) (interface{}, bool) {
	norm := metadata.NormalizeName(name)
	for _, a := range c.args {
		if metadata.NormalizeName(a.Name) == norm {
			return a.Value, true
		}
	}
	return nil, false
}

// With returns a copy of the call with an argument set or replaced.
func (c *Call) With(name string, value interface{}) *Call {
	cpy := c.Copy()
	norm := metadata.NormalizeName(name)
	for i := range cpy.args {
		if metadata.NormalizeName(cpy.args[i].Name) == norm {
			cpy.args[i].Value = value
			return cpy
		}
	}
	cpy.args = append(cpy.args, Arg{Name: name, Value: value})
	return cpy
}

// Copy returns a shallow copy with its own argument list.
func (c *Call) Copy() *Call {
	return &Call{pallet: c.pallet, method: c.method, args: append([]Arg(nil), c.args...)}
}

// Matches reports whether the call names the given pallet and method, in
// either spelling.
func (c *Call) Matches(pallet, method string) bool {
	return metadata.NormalizeName(c.pallet) == metadata.NormalizeName(pallet) &&
		metadata.NormalizeName(c.method) == metadata.NormalizeName(method)
}

func (c *Call) String() string {
	return c.pallet + "." + c.method
}
