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

package calls

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/params"
)

var (
	errUnexpected = errors.New("unexpected argument")

	// ErrMemoTooLong is returned for memos longer than params.MemoLength bytes.
	ErrMemoTooLong = fmt.Errorf("memo longer than %d bytes", params.MemoLength)
)

// PadMemo pads a memo with NUL bytes to the fixed memo width. A 0x-hex
// memo is measured and padded by its decoded bytes and stays hex.
func PadMemo(memo string) (string, error) {
	if common.IsHex(memo) {
		b := common.FromHex(memo)
		if len(b) > params.MemoLength {
			return "", ErrMemoTooLong
		}
		padded := make([]byte, params.MemoLength)
		copy(padded, b)
		return hexutil.Encode(padded), nil
	}
	if len(memo) > params.MemoLength {
		return "", ErrMemoTooLong
	}
	return memo + strings.Repeat("\x00", params.MemoLength-len(memo)), nil
}

func checkAddress(v interface{}) error {
	switch x := v.(type) {
	case string:
		if common.IsHex(x) {
			if b := common.FromHex(x); len(b) != 32 {
				return fmt.Errorf("account id must be 32 bytes, have %d", len(b))
			}
			return nil
		}
		_, _, err := crypto.SS58Decode(x)
		return err
	case []byte:
		if len(x) != 32 {
			return fmt.Errorf("account id must be 32 bytes, have %d", len(x))
		}
		return nil
	}
	return fmt.Errorf("cannot use %T as address", v)
}

// checkSignatory accepts {"Account": address} or {"Identity": did}.
func checkSignatory(v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return errors.New("signatory must be {Account: address} or {Identity: did}")
	}
	if acc, ok := m["Account"]; ok {
		return checkAddress(acc)
	}
	if did, ok := m["Identity"]; ok {
		return checkIdentityID(did)
	}
	return errors.New("signatory must be {Account: address} or {Identity: did}")
}

func checkIdentityID(v interface{}) error {
	switch x := v.(type) {
	case common.Hash:
		return nil
	case string:
		if !common.IsHex(x) || len(common.FromHex(x)) != common.HashLength {
			return fmt.Errorf("identity id must be 32 bytes of 0x-hex")
		}
		return nil
	case []byte:
		if len(x) != common.HashLength {
			return fmt.Errorf("identity id must be %d bytes, have %d", common.HashLength, len(x))
		}
		return nil
	}
	return fmt.Errorf("cannot use %T as identity id", v)
}

func checkMemo(v interface{}) error {
	switch x := v.(type) {
	case string:
		n := len(x)
		if common.IsHex(x) {
			n = len(common.FromHex(x))
		}
		if n > params.MemoLength {
			return ErrMemoTooLong
		}
		return nil
	case []byte:
		if len(x) > params.MemoLength {
			return ErrMemoTooLong
		}
		return nil
	}
	return fmt.Errorf("cannot use %T as memo", v)
}

func checkAmount(v interface{}) error {
	switch x := v.(type) {
	case *uint256.Int:
		if x == nil {
			return errors.New("nil amount")
		}
		return nil
	case uint64, uint32, uint16, uint8, uint:
		return nil
	case int:
		return checkNonNegative(int64(x))
	case int64:
		return checkNonNegative(x)
	case int32:
		return checkNonNegative(int64(x))
	case string:
		_, err := uint256.FromDecimal(x)
		return err
	case json.Number:
		_, err := uint256.FromDecimal(string(x))
		return err
	}
	return fmt.Errorf("cannot use %T as amount", v)
}

func checkNonNegative(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative amount %d", n)
	}
	return nil
}
