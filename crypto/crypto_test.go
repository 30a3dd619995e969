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

package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-polytx/common/hexutil"
)

const devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

func TestBlake2b256(t *testing.T) {
	h := Blake2b256Hash(nil)
	exp := "0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if h.Hex() != exp {
		t.Fatalf("blake2b-256(nil) = %s, want %s", h.Hex(), exp)
	}
	if !bytes.Equal(Blake2b256([]byte("ab"), []byte("c")), Blake2b256([]byte("abc"))) {
		t.Fatal("multi-part hash differs from single part")
	}
}

func TestTwox(t *testing.T) {
	tests := []struct{ in, want string }{
		{"System", "0x26aa394eea5630e07c48ae0c9558cef7"},
		{"Account", "0xb99d880ec681799c0cf30e8886371da9"},
	}
	for _, tt := range tests {
		if got := hexutil.Encode(Twox128([]byte(tt.in))); got != tt.want {
			t.Errorf("twox128(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
	key := []byte{1, 2, 3}
	assert.Equal(t, append(Twox64(key), key...), Twox64Concat(key))
	assert.Len(t, Blake2b128Concat(key), 16+3)
	assert.Len(t, Twox256(key), 32)
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(devPhrase, "")
	require.NoError(t, err)
	assert.Equal(t, "0xfac7959dbfe72f052e5a0c3c8d6530f202b02fd8f9f5ca3580ec8deb7797479e", hexutil.Encode(seed))

	kp, err := NewKeyPair(Sr25519, seed)
	require.NoError(t, err)
	assert.Equal(t, "0x46ebddef8cd9bb167dc30878d7113b7e168e6f0646beffd77d69d39bad76b47a", hexutil.Encode(kp.Public()))
	assert.Equal(t, "5DfhGyQdFobKM8NsWvEeAKk5EQQgYe9AydgJ7rMB6E1EqRzV", SS58Encode(kp.AccountID(), 42))

	if _, err := SeedFromMnemonic("bottom drive obey", ""); err == nil {
		t.Fatal("expected error for short phrase")
	}
	assert.True(t, IsMnemonic(devPhrase))
	assert.False(t, IsMnemonic("0xfac7959dbfe72f052e5a0c3c8d6530f202b02fd8f9f5ca3580ec8deb7797479e"))
}

func TestNewMnemonic(t *testing.T) {
	m, err := NewMnemonic()
	require.NoError(t, err)
	_, err = SeedFromMnemonic(m, "")
	require.NoError(t, err)
}

func TestEd25519Vector(t *testing.T) {
	// RFC 8032 test 1
	seed := hexutil.MustDecode("0x9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	kp, err := NewKeyPair(Ed25519, seed)
	require.NoError(t, err)
	assert.Equal(t, "0xd75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", hexutil.Encode(kp.Public()))
	sig, err := kp.Sign(nil)
	require.NoError(t, err)
	assert.Equal(t, "0xe5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b", hexutil.Encode(sig))
}

func TestSignVerify(t *testing.T) {
	msg := []byte("polymesh extrinsic payload")
	for _, scheme := range []Scheme{Sr25519, Ed25519, Ecdsa} {
		kp, _, err := GenerateKey(scheme)
		require.NoError(t, err, scheme)
		assert.Len(t, kp.AccountID(), 32, scheme)

		sig, err := kp.Sign(msg)
		require.NoError(t, err, scheme)
		assert.Len(t, sig, scheme.SignatureLength(), scheme)
		if !VerifyAccount(scheme, kp.AccountID(), msg, sig) {
			t.Fatalf("%v: signature does not verify", scheme)
		}
		tampered := append([]byte(nil), msg...)
		tampered[0] ^= 0xff
		if VerifyAccount(scheme, kp.AccountID(), tampered, sig) {
			t.Fatalf("%v: signature verifies for a different message", scheme)
		}
		if VerifyAccount(scheme, kp.AccountID(), msg, sig[:len(sig)-1]) {
			t.Fatalf("%v: short signature accepted", scheme)
		}
	}
}

func TestEcdsaRecover(t *testing.T) {
	seed := hexutil.MustDecode("0xcb6df9de1efca7a3998a8ead4e02159d5fa99c3e0d4fd6432667390bb4726854")
	kp, err := NewKeyPair(Ecdsa, seed)
	require.NoError(t, err)
	assert.Len(t, kp.Public(), 33)

	msg := []byte("foo")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	if v := sig[RecoveryIDOffset]; v > 1 {
		t.Fatalf("unexpected recovery id %d", v)
	}
	pub, err := EcdsaRecover(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, kp.Public(), pub)

	// deterministic RFC 6979 nonces
	again, _ := kp.Sign(msg)
	assert.Equal(t, sig, again)
}

func TestSS58(t *testing.T) {
	alice := hexutil.MustDecode("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	addr := SS58Encode(alice, 42)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", addr)

	for _, format := range []uint16{0, 12, 42, 63, 64, 255, 4242, MaxSS58Format} {
		enc := SS58Encode(alice, format)
		key, got, err := SS58Decode(enc)
		require.NoError(t, err, "format %d", format)
		assert.Equal(t, format, got)
		assert.Equal(t, alice, key)
	}

	// flip one character in the checksum region
	bad := []byte(addr)
	if bad[len(bad)-1] == 'Y' {
		bad[len(bad)-1] = 'Z'
	} else {
		bad[len(bad)-1] = 'Y'
	}
	if _, _, err := SS58Decode(string(bad)); err == nil {
		t.Fatal("expected checksum error")
	}
	if _, _, err := SS58Decode("0OIl"); err == nil {
		t.Fatal("expected base58 error")
	}
}

func TestSeedFile(t *testing.T) {
	dir := t.TempDir()
	seed := hexutil.MustDecode("0x786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a")

	file := filepath.Join(dir, "seed")
	require.NoError(t, SaveSeed(file, seed))
	loaded, err := LoadSeed(file)
	require.NoError(t, err)
	assert.Equal(t, seed, loaded)

	tests := []struct {
		content string
		ok      bool
	}{
		{"0x786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a\n", true},
		{"786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a\r\n", true},
		{"786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b", false},
		{"786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a\nX", false},
		{"zz6ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a", false},
	}
	for i, tt := range tests {
		f := filepath.Join(dir, "case")
		require.NoError(t, os.WriteFile(f, []byte(tt.content), 0600))
		_, err := LoadSeed(f)
		if tt.ok && err != nil {
			t.Errorf("test %d: unexpected error %v", i, err)
		} else if !tt.ok && err == nil {
			t.Errorf("test %d: expected error", i)
		}
	}
}

func TestParseScheme(t *testing.T) {
	for _, name := range []string{"sr25519", "ed25519", "ecdsa"} {
		s, err := ParseScheme(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.String())
	}
	_, err := ParseScheme("rsa")
	assert.ErrorIs(t, err, ErrUnknownScheme)
	_, err = SchemeByIndex(3)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
