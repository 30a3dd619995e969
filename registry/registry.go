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

// Package registry maps type names to SCALE encode/decode rules. A registry
// is built once per chain context from a static schema plus the runtime
// metadata of one spec version, and is read-only afterwards.
package registry

import (
	"fmt"

	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/metadata"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/scale"
)

// envelopeTypes are resolved eagerly since every extrinsic needs them.
var envelopeTypes = []string{"Address", "ExtrinsicSignature", "Balance", "Index", "BlockNumber", "Hash"}

// Registry holds the rules for one runtime version.
type Registry struct {
	meta        *metadata.Metadata
	props       params.ChainProperties
	specName    string
	specVersion uint32

	defs     map[string]*typeDef
	rules    map[string]Rule
	callArgs map[metadata.CallIndex][]Rule
	account  *accountIDRule
}

type buildConfig struct {
	lenient bool
}

// BuildOption customizes Build.
type BuildOption func(*buildConfig)

// Lenient makes Build skip call arguments whose types cannot be resolved
// instead of failing. Encoding or decoding such a call later fails with an
// UnknownTypeError.
func Lenient() BuildOption {
	return func(c *buildConfig) { c.lenient = true }
}

// Build creates the registry for a runtime. meta is the raw metadata blob.
// Every call argument type is resolved up front; an unresolvable one fails
// the build with a MetadataParseError unless Lenient is given.
func Build(schema *Schema, meta []byte, props params.ChainProperties, specName string, specVersion uint32, opts ...BuildOption) (*Registry, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := metadata.Decode(meta)
	if err != nil {
		return nil, &MetadataParseError{Err: err}
	}
	if schema == nil {
		schema = DefaultSchema()
	}
	reg := &Registry{
		meta:        m,
		props:       props,
		specName:    specName,
		specVersion: specVersion,
		defs:        make(map[string]*typeDef),
		rules:       make(map[string]Rule),
		callArgs:    make(map[metadata.CallIndex][]Rule),
		account:     &accountIDRule{format: props.SS58Format},
	}
	for name, raw := range schema.TypesFor(props.ChainName, specName, specVersion) {
		def, err := parseTypeDef(raw)
		if err != nil {
			return nil, &MetadataParseError{Err: fmt.Errorf("schema type %s: %w", name, err)}
		}
		reg.defs[name] = def
	}
	res := &resolver{reg: reg, base: reg.rules}
	for _, name := range envelopeTypes {
		if _, err := res.resolve(name); err != nil {
			return nil, &MetadataParseError{Err: err}
		}
	}
	var skipped int
	for i := range m.Modules {
		mod := &m.Modules[i]
		for j, call := range mod.Calls {
			ci := metadata.CallIndex{Section: mod.Index, Method: uint8(j)}
			rules := make([]Rule, len(call.Args))
			for k, arg := range call.Args {
				rule, err := res.resolve(arg.Type)
				if err != nil {
					if !cfg.lenient {
						return nil, &MetadataParseError{Err: fmt.Errorf("%s.%s argument %s: %w", mod.Name, call.Name, arg.Name, err)}
					}
					log.Debug("Skipping unresolvable argument type", "call", mod.Name+"."+call.Name, "arg", arg.Name, "type", arg.Type, "err", err)
					skipped++
					continue
				}
				rules[k] = rule
			}
			reg.callArgs[ci] = rules
		}
	}
	if skipped > 0 {
		log.Warn("Some call arguments have no type rule", "count", skipped, "spec", specName, "version", specVersion)
	}
	log.Debug("Built type registry", "spec", specName, "version", specVersion, "metadata", m.Version, "modules", len(m.Modules), "rules", len(reg.rules))
	return reg, nil
}

// Metadata returns the parsed runtime metadata.
func (r *Registry) Metadata() *metadata.Metadata { return r.meta }

// Properties returns the chain properties the registry was built with.
func (r *Registry) Properties() params.ChainProperties { return r.props }

// SpecName returns the runtime spec name.
func (r *Registry) SpecName() string { return r.specName }

// SpecVersion returns the runtime spec version.
func (r *Registry) SpecVersion() uint32 { return r.specVersion }

// Resolve returns the rule for a type name, which may be unsanitized.
func (r *Registry) Resolve(typeName string) (Rule, error) {
	if rule, ok := r.rules[Sanitize(typeName)]; ok {
		return rule, nil
	}
	res := &resolver{reg: r, base: r.rules, overlay: make(map[string]Rule)}
	rule, err := res.resolve(typeName)
	if err != nil {
		if _, ok := err.(*UnknownTypeError); ok {
			return nil, err
		}
		return nil, &UnknownTypeError{Type: typeName, Via: err.Error()}
	}
	return rule, nil
}

// Encode encodes a value as the named type.
func (r *Registry) Encode(typeName string, v interface{}) ([]byte, error) {
	e := scale.NewEncoder()
	if err := r.EncodeTo(e, typeName, v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeTo appends the encoding of v to an encoder.
func (r *Registry) EncodeTo(e *scale.Encoder, typeName string, v interface{}) error {
	rule, err := r.Resolve(typeName)
	if err != nil {
		return err
	}
	if err := rule.Encode(e, v); err != nil {
		return &EncodeError{Type: typeName, Err: err}
	}
	return nil
}

// Decode decodes b as the named type. All of b must be consumed.
func (r *Registry) Decode(typeName string, b []byte) (interface{}, error) {
	d := scale.NewDecoder(b)
	v, err := r.DecodeFrom(d, typeName)
	if err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, &DecodeError{Type: typeName, Offset: d.Offset(), Err: errTrailingBytes}
	}
	return v, nil
}

// DecodeFrom reads one value of the named type from a decoder.
func (r *Registry) DecodeFrom(d *scale.Decoder, typeName string) (interface{}, error) {
	rule, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	start := d.Offset()
	v, err := rule.Decode(d)
	if err != nil {
		return nil, &DecodeError{Type: typeName, Offset: start, Err: err}
	}
	return v, nil
}

// Coerce normalizes an externally sourced value (a JSON number, a 0x-hex
// quantity from a block header, an address string) into the registry's
// decoded representation of the type, enforcing its width.
func (r *Registry) Coerce(typeName string, v interface{}) (interface{}, error) {
	b, err := r.Encode(typeName, v)
	if err != nil {
		return nil, err
	}
	return r.Decode(typeName, b)
}

// CallArgs returns the metadata arguments of a call.
func (r *Registry) CallArgs(pallet, method string) ([]metadata.Arg, error) {
	_, _, call, err := r.meta.FindCall(pallet, method)
	if err != nil {
		return nil, err
	}
	return call.Args, nil
}

// IsOptional reports whether a raw type name is an Option.
func IsOptional(typeName string) bool {
	expr, err := parseType(typeName)
	return err == nil && expr.kind == namedExpr && expr.name == "Option"
}
