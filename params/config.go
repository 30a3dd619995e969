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

package params

import (
	"fmt"
	"time"
)

// Defaults applied to every transaction built by the pipeline.
const (
	// DefaultEraPeriod is the requested mortality window in blocks.
	DefaultEraPeriod = 64

	// DefaultConfirmationWindow is how long the submission monitor waits after
	// the node acknowledged an extrinsic before reporting it as settled.
	DefaultConfirmationWindow = 6 * time.Second

	// MaxUnhashedPayload is the largest signing payload signed as-is. Longer
	// payloads are replaced by their blake2b-256 digest.
	MaxUnhashedPayload = 256

	// ExtrinsicVersion is the transaction format version produced and accepted.
	ExtrinsicVersion = 4

	// MemoLength is the fixed byte length of a balances transfer memo.
	MemoLength = 32
)

// Well known node endpoints.
const (
	PolymeshTestnetURL = "wss://testnet-rpc.polymesh.live"
	LocalNodeURL       = "ws://127.0.0.1:9944"
)

// ChainProperties are the static facts about a target network that affect
// address and display encoding but not the signing algorithm.
type ChainProperties struct {
	SS58Format    uint16
	TokenDecimals uint8
	TokenSymbol   string
	ChainName     string
}

// PolymeshTestnet holds the properties of the public Polymesh testnet.
var PolymeshTestnet = ChainProperties{
	SS58Format:    42,
	TokenDecimals: TokenDecimals,
	TokenSymbol:   TokenSymbol,
	ChainName:     "Polymesh Testnet",
}

// String implements fmt.Stringer.
func (p ChainProperties) String() string {
	return fmt.Sprintf("%s(ss58=%d, %s/%d)", p.ChainName, p.SS58Format, p.TokenSymbol, p.TokenDecimals)
}
