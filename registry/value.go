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
	"math"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/metadata"
)

// Arg is a named value, used for call arguments and ordered struct input.
type Arg struct {
	Name  string
	Value interface{}
}

// toUint256 converts an integer-like input value. Strings are decimal, or a
// big-endian number when 0x-prefixed.
func toUint256(v interface{}) (*uint256.Int, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrNoValue
	case uint8:
		return uint256.NewInt(uint64(x)), nil
	case uint16:
		return uint256.NewInt(uint64(x)), nil
	case uint32:
		return uint256.NewInt(uint64(x)), nil
	case uint64:
		return uint256.NewInt(x), nil
	case uint:
		return uint256.NewInt(uint64(x)), nil
	case hexutil.Uint64:
		return uint256.NewInt(uint64(x)), nil
	case int, int8, int16, int32, int64:
		n := reflect.ValueOf(x).Int()
		if n < 0 {
			return nil, fmt.Errorf("negative value %d for unsigned type", n)
		}
		return uint256.NewInt(uint64(n)), nil
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= 1<<64 {
			return nil, fmt.Errorf("invalid unsigned integer %v", x)
		}
		return uint256.NewInt(uint64(x)), nil
	case *uint256.Int:
		if x == nil {
			return nil, ErrNoValue
		}
		return new(uint256.Int).Set(x), nil
	case uint256.Int:
		return new(uint256.Int).Set(&x), nil
	case *big.Int:
		return bigToUint256(x)
	case json.Number:
		return parseUint256(string(x))
	case string:
		return parseUint256(x)
	}
	return nil, fmt.Errorf("cannot use %T as unsigned integer", v)
}

func parseUint256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		hex := s[2:]
		if len(hex)%2 == 1 {
			hex = "0" + hex
		}
		b, err := hexutil.Decode("0x" + hex)
		if err != nil {
			return nil, fmt.Errorf("invalid hex number %q: %v", s, err)
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("hex number %q exceeds 256 bits", s)
		}
		return new(uint256.Int).SetBytes(b), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return bigToUint256(b)
}

func bigToUint256(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return nil, ErrNoValue
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for unsigned type", b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("value %s exceeds 256 bits", b)
	}
	return v, nil
}

// toBigInt converts a signed integer input value.
func toBigInt(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrNoValue
	case int, int8, int16, int32, int64:
		return big.NewInt(reflect.ValueOf(x).Int()), nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) >= 1<<63 {
			return nil, fmt.Errorf("invalid integer %v", x)
		}
		return big.NewInt(int64(x)), nil
	case *big.Int:
		if x == nil {
			return nil, ErrNoValue
		}
		return new(big.Int).Set(x), nil
	case json.Number:
		return parseBigInt(string(x))
	case string:
		return parseBigInt(x)
	}
	u, err := toUint256(v)
	if err != nil {
		return nil, err
	}
	return u.ToBig(), nil
}

func parseBigInt(s string) (*big.Int, error) {
	b, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return b, nil
}

// toBytes converts a byte-like input value. Strings with a 0x prefix are hex,
// any other string is taken as its UTF-8 bytes.
func toBytes(v interface{}) ([]byte, bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, false, ErrNoValue
	case []byte:
		return x, false, nil
	case hexutil.Bytes:
		return x, false, nil
	case common.Hash:
		return x[:], false, nil
	case [12]byte:
		return x[:], false, nil
	case [16]byte:
		return x[:], false, nil
	case [20]byte:
		return x[:], false, nil
	case [32]byte:
		return x[:], false, nil
	case [64]byte:
		return x[:], false, nil
	case [65]byte:
		return x[:], false, nil
	case string:
		if common.IsHex(x) {
			b, err := hexutil.Decode(x)
			return b, false, err
		}
		return []byte(x), true, nil
	case []interface{}:
		out := make([]byte, len(x))
		for i, e := range x {
			n, err := toUint256(e)
			if err != nil || !n.IsUint64() || n.Uint64() > 0xff {
				return nil, false, fmt.Errorf("element %d is not a byte", i)
			}
			out[i] = byte(n.Uint64())
		}
		return out, false, nil
	}
	return nil, false, fmt.Errorf("cannot use %T as bytes", v)
}

// toSlice converts a sequence input value.
func toSlice(v interface{}) ([]interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrNoValue
	case []interface{}:
		return x, nil
	case []string:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, nil
	case []Arg:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = x[i].Value
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot use %T as sequence", v)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// toFields converts a struct-like input value into a name lookup.
func toFields(v interface{}) (map[string]interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrNoValue
	case map[string]interface{}:
		return x, nil
	case map[string]string:
		out := make(map[string]interface{}, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out, nil
	case []Arg:
		out := make(map[string]interface{}, len(x))
		for _, a := range x {
			out[a.Name] = a.Value
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot use %T as struct", v)
}

// lookupField finds a field by its exact name or by its normalized spelling,
// so both dispatchable_names and dispatchableNames are accepted.
func lookupField(m map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	norm := metadata.NormalizeName(name)
	for k, v := range m {
		if metadata.NormalizeName(k) == norm {
			return v, true
		}
	}
	return nil, false
}

// singleEntry returns the only key and value of an enum-style map.
func singleEntry(v interface{}) (string, interface{}, bool) {
	switch x := v.(type) {
	case map[string]interface{}:
		if len(x) != 1 {
			return "", nil, false
		}
		for k, val := range x {
			return k, val, true
		}
	case map[string]string:
		if len(x) != 1 {
			return "", nil, false
		}
		for k, val := range x {
			return k, val, true
		}
	case Arg:
		return x.Name, x.Value, true
	}
	return "", nil, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
