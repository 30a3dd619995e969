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

	"github.com/probeum/go-polytx/crypto"
)

// Hasher is a storage key hasher.
type Hasher uint8

const (
	Blake2_128 Hasher = iota
	Blake2_256
	Blake2_128Concat
	Twox128
	Twox256
	Twox64Concat
	Identity
)

var hasherNames = [...]string{"Blake2_128", "Blake2_256", "Blake2_128Concat", "Twox128", "Twox256", "Twox64Concat", "Identity"}

func (h Hasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return fmt.Sprintf("Hasher(%d)", uint8(h))
}

func (h Hasher) valid() bool { return h <= Identity }

// Hash applies the hasher to an encoded key.
func (h Hasher) Hash(key []byte) []byte {
	switch h {
	case Blake2_128:
		return crypto.Blake2b128(key)
	case Blake2_256:
		return crypto.Blake2b256(key)
	case Blake2_128Concat:
		return crypto.Blake2b128Concat(key)
	case Twox128:
		return crypto.Twox128(key)
	case Twox256:
		return crypto.Twox256(key)
	case Twox64Concat:
		return crypto.Twox64Concat(key)
	}
	return append([]byte(nil), key...)
}

// StorageKey builds the raw storage key of an item from its encoded keys.
func (s *Storage) StorageKey(item *StorageItem, keys ...[]byte) ([]byte, error) {
	if len(keys) != len(item.Type.Hashers) {
		return nil, fmt.Errorf("metadata: storage %s.%s takes %d keys, got %d", s.Prefix, item.Name, len(item.Type.Hashers), len(keys))
	}
	out := append(crypto.Twox128([]byte(s.Prefix)), crypto.Twox128([]byte(item.Name))...)
	for i, k := range keys {
		out = append(out, item.Type.Hashers[i].Hash(k)...)
	}
	return out, nil
}
