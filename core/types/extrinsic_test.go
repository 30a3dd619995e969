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
	"bytes"
	"sync"
	"testing"

	"github.com/probeum/go-polytx/crypto"
	"github.com/stretchr/testify/assert"
)

func TestSigningPayloadHashing(t *testing.T) {
	short := &SigningPayload{Raw: bytes.Repeat([]byte{1}, 256)}
	if short.Hashed() || !bytes.Equal(short.Bytes(), short.Raw) {
		t.Fatal("payload of 256 bytes must be signed as is")
	}
	long := &SigningPayload{Raw: bytes.Repeat([]byte{1}, 257)}
	if !long.Hashed() {
		t.Fatal("payload of 257 bytes must be hashed")
	}
	if !bytes.Equal(long.Bytes(), crypto.Blake2b256(long.Raw)) {
		t.Fatal("wrong payload digest")
	}
	// Bytes must not alias Raw.
	b := short.Bytes()
	b[0] = 9
	if short.Raw[0] != 1 {
		t.Fatal("Bytes aliases Raw")
	}
}

func TestSignedExtrinsicHash(t *testing.T) {
	raw := []byte{0x08, 0x84, 0x01}
	tx := NewSignedExtrinsic(raw, nil)
	raw[0] = 0

	assert.Equal(t, "0x088401", tx.Hex())
	assert.Equal(t, 3, tx.Size())

	want := crypto.Blake2b256Hash([]byte{0x08, 0x84, 0x01})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h := tx.Hash(); h != want {
				t.Errorf("hash %x, want %x", h, want)
			}
		}()
	}
	wg.Wait()
}

func TestCall(t *testing.T) {
	c := NewCall("balances", "transferWithMemo", Arg{Name: "dest", Value: "x"}, Arg{Name: "value", Value: 1})

	assert.True(t, c.Matches("Balances", "transfer_with_memo"))
	assert.False(t, c.Matches("balances", "transfer"))
	assert.Equal(t, "balances.transferWithMemo", c.String())

	v, ok := c.Arg("Value")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c2 := c.With("memo", "hi").With("value", 2)
	assert.Len(t, c.Args(), 2)
	assert.Len(t, c2.Args(), 3)
	v, _ = c.Arg("value")
	assert.Equal(t, 1, v)
	v, _ = c2.Arg("value")
	assert.Equal(t, 2, v)

	pallet, method, err := ParseCallName("identity.addClaim")
	assert.NoError(t, err)
	assert.Equal(t, "identity", pallet)
	assert.Equal(t, "addClaim", method)
	for _, bad := range []string{"identity", ".x", "x.", "a.b.c"} {
		if _, _, err := ParseCallName(bad); err == nil {
			t.Errorf("ParseCallName(%q) succeeded", bad)
		}
	}
}
