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

// Package calls describes the runtime calls this module knows how to build:
// a catalog of argument shapes keyed by pallet and method, and constructors
// for the Polymesh onboarding and transfer calls.
package calls

import (
	"fmt"
	"sort"
	"sync"

	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/metadata"
)

// MissingArgumentError is returned when a required call argument is absent.
type MissingArgumentError struct {
	Pallet string
	Method string
	Arg    string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("call %s.%s: missing argument %q", e.Pallet, e.Method, e.Arg)
}

// ArgumentError is returned when an argument fails its check.
type ArgumentError struct {
	Pallet string
	Method string
	Arg    string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("call %s.%s: argument %q: %v", e.Pallet, e.Method, e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ArgSpec is one argument of a catalogued call.
type ArgSpec struct {
	Name     string
	Optional bool                    // absent means None
	Default  interface{}             // used when absent, if non-nil
	Check    func(interface{}) error // optional
}

// Spec is the argument shape of one call.
type Spec struct {
	Pallet string
	Method string
	Args   []ArgSpec
	Doc    string
}

// Name returns "pallet.method".
func (s *Spec) Name() string { return s.Pallet + "." + s.Method }

// Prepare orders args as the spec lists them, fills absent arguments with
// their default or, for optional ones, nil and runs the argument checks. Unnamed arguments are
// taken by position.
func (s *Spec) Prepare(args []types.Arg) ([]types.Arg, error) {
	out := make([]types.Arg, len(s.Args))
	used := make([]bool, len(args))
	for i, as := range s.Args {
		norm := metadata.NormalizeName(as.Name)
		found := false
		for j, a := range args {
			if used[j] {
				continue
			}
			if (a.Name == "" && j == i) || (a.Name != "" && metadata.NormalizeName(a.Name) == norm) {
				out[i] = types.Arg{Name: as.Name, Value: a.Value}
				used[j], found = true, true
				break
			}
		}
		if (!found || out[i].Value == nil) && as.Default != nil {
			out[i] = types.Arg{Name: as.Name, Value: as.Default}
			found = true
		}
		if !found || out[i].Value == nil {
			if !as.Optional {
				return nil, &MissingArgumentError{Pallet: s.Pallet, Method: s.Method, Arg: as.Name}
			}
			out[i] = types.Arg{Name: as.Name}
			continue
		}
		if as.Check != nil {
			if err := as.Check(out[i].Value); err != nil {
				return nil, &ArgumentError{Pallet: s.Pallet, Method: s.Method, Arg: as.Name, Err: err}
			}
		}
	}
	for j, a := range args {
		if !used[j] {
			return nil, &ArgumentError{Pallet: s.Pallet, Method: s.Method, Arg: a.Name, Err: errUnexpected}
		}
	}
	return out, nil
}

// Catalog is a set of call specs. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

func catalogKey(pallet, method string) string {
	return metadata.NormalizeName(pallet) + "." + metadata.NormalizeName(method)
}

// NewCatalog creates a catalog holding the given specs.
func NewCatalog(specs ...*Spec) *Catalog {
	c := &Catalog{specs: make(map[string]*Spec)}
	for _, s := range specs {
		c.Register(s)
	}
	return c
}

// Register adds a spec, replacing any spec of the same call.
func (c *Catalog) Register(s *Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[catalogKey(s.Pallet, s.Method)] = s
}

// Lookup returns the spec of a call in either spelling.
func (c *Catalog) Lookup(pallet, method string) (*Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[catalogKey(pallet, method)]
	return s, ok
}

// Specs returns all specs sorted by name.
func (c *Catalog) Specs() []*Spec {
	c.mu.RLock()
	out := make([]*Spec, 0, len(c.specs))
	for _, s := range c.specs {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Prepare checks a call against its spec and returns the call with its
// arguments in catalog order. Calls without a spec are returned unchanged.
func (c *Catalog) Prepare(call *types.Call) (*types.Call, error) {
	s, ok := c.Lookup(call.Pallet(), call.Method())
	if !ok {
		return call, nil
	}
	args, err := s.Prepare(call.Args())
	if err != nil {
		return nil, err
	}
	return types.NewCall(call.Pallet(), call.Method(), args...), nil
}
