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
	"regexp"
	"strconv"
	"strings"
)

var (
	lookupSourceRe = regexp.MustCompile(`<T::Lookup\s+as\s+StaticLookup>::Source`)
	traitCastRe    = regexp.MustCompile(`<T\s+as\s+[A-Za-z0-9_:]+(<[A-Za-z0-9_]+>)?>::`)
	selfPathRe     = regexp.MustCompile(`\b(T|I)::`)
	modulePathRe   = regexp.MustCompile(`\b[a-z_][a-z0-9_]*::`)
	lifetimeRe     = regexp.MustCompile(`&'static\s*\[u8\]`)
	staticStrRe    = regexp.MustCompile(`&'static\s*str`)
)

// wrappers keep their generic parameters. Any other generic type is reduced
// to its bare name, since runtime metadata spells out parameters that the
// type definitions already bind (SecondaryKey<T::AccountId> is SecondaryKey).
var wrappers = map[string]int{
	"Vec":        1,
	"VecDeque":   1,
	"BoundedVec": 1,
	"Option":     1,
	"Compact":    1,
	"Result":     2,
	"BTreeMap":   2,
	"BTreeSet":   1,
	"HashMap":    2,
}

// Sanitize rewrites a type name as it appears in runtime metadata into the
// canonical form used as a registry key.
func Sanitize(name string) string {
	expr, err := parseType(name)
	if err != nil {
		return cleanTypeName(name)
	}
	return expr.String()
}

// cleanTypeName applies the textual rewrites that precede parsing.
func cleanTypeName(s string) string {
	s = lookupSourceRe.ReplaceAllString(s, "LookupSource")
	s = traitCastRe.ReplaceAllString(s, "")
	s = lifetimeRe.ReplaceAllString(s, "Bytes")
	s = staticStrRe.ReplaceAllString(s, "Text")
	s = selfPathRe.ReplaceAllString(s, "")
	s = modulePathRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), "")
}

type exprKind uint8

const (
	namedExpr exprKind = iota
	tupleExpr
	arrayExpr
)

// typeExpr is a parsed type name.
type typeExpr struct {
	kind   exprKind
	name   string
	params []*typeExpr
	length int
}

func (t *typeExpr) String() string {
	switch t.kind {
	case tupleExpr:
		parts := make([]string, len(t.params))
		for i, p := range t.params {
			parts[i] = p.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	case arrayExpr:
		return fmt.Sprintf("[%s;%d]", t.params[0], t.length)
	}
	if len(t.params) == 0 {
		return t.name
	}
	parts := make([]string, len(t.params))
	for i, p := range t.params {
		parts[i] = p.String()
	}
	return t.name + "<" + strings.Join(parts, ",") + ">"
}

// parseType parses a (possibly unsanitized) type name.
func parseType(name string) (*typeExpr, error) {
	p := &typeParser{src: cleanTypeName(name)}
	if p.src == "" {
		return nil, fmt.Errorf("empty type name")
	}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q in type %q", p.src[p.pos:], p.src)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d of %q", c, p.pos, p.src)
	}
	p.pos++
	return nil
}

func (p *typeParser) parse() (*typeExpr, error) {
	switch p.peek() {
	case '(':
		p.pos++
		t := &typeExpr{kind: tupleExpr}
		for p.peek() != ')' {
			elem, err := p.parse()
			if err != nil {
				return nil, err
			}
			t.params = append(t.params, elem)
			if p.peek() == ',' {
				p.pos++
			} else if p.peek() != ')' {
				return nil, fmt.Errorf("expected ',' or ')' at offset %d of %q", p.pos, p.src)
			}
		}
		p.pos++
		if len(t.params) == 0 {
			return &typeExpr{name: "Null"}, nil
		}
		return t, nil
	case '[':
		p.pos++
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(';'); err != nil {
			return nil, err
		}
		start := p.pos
		for p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return nil, fmt.Errorf("invalid array length in %q", p.src)
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &typeExpr{kind: arrayExpr, params: []*typeExpr{elem}, length: n}, nil
	}
	start := p.pos
	for c := p.peek(); c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'; c = p.peek() {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("expected type name at offset %d of %q", p.pos, p.src)
	}
	t := &typeExpr{name: p.src[start:p.pos]}
	if p.peek() == '<' {
		p.pos++
		for {
			param, err := p.parse()
			if err != nil {
				return nil, err
			}
			t.params = append(t.params, param)
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
	}
	return normalizeExpr(t), nil
}

// normalizeExpr unwraps Box, drops the parameters of non-wrapper generics and
// maps a few std names onto the registry's own.
func normalizeExpr(t *typeExpr) *typeExpr {
	switch t.name {
	case "Box", "Arc", "Rc":
		if len(t.params) == 1 {
			return t.params[0]
		}
	case "PhantomData":
		return &typeExpr{name: "Null"}
	case "String", "Str":
		return &typeExpr{name: "Text"}
	case "VecDeque", "BoundedVec", "WeakBoundedVec":
		if len(t.params) > 0 {
			return &typeExpr{name: "Vec", params: t.params[:1]}
		}
	}
	if n, ok := wrappers[t.name]; ok {
		if len(t.params) > n {
			t.params = t.params[:n]
		}
		return t
	}
	t.params = nil
	return t
}
