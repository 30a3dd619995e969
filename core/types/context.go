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
	"github.com/holiman/uint256"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/registry"
)

// ChainContext is everything a transaction depends on besides its call: the
// chain tip and genesis it is anchored to, the runtime it is encoded for and
// the signer's nonce. A context is fetched for one build and never reused.
type ChainContext struct {
	BlockHash          common.Hash
	BlockNumber        uint64
	GenesisHash        common.Hash
	Metadata           []byte
	Nonce              uint64
	SpecName           string
	SpecVersion        uint32
	TransactionVersion uint32
	EraPeriod          uint64
	Tip                *uint256.Int
	Properties         params.ChainProperties
	Registry           *registry.Registry
}

// Era returns the mortal era the context implies.
func (cc *ChainContext) Era() Era {
	if cc.EraPeriod == 0 {
		return ImmortalEra
	}
	return NewMortalEra(cc.BlockNumber, cc.EraPeriod)
}

// TipOrZero returns the tip, treating nil as zero.
func (cc *ChainContext) TipOrZero() *uint256.Int {
	if cc.Tip == nil {
		return new(uint256.Int)
	}
	return cc.Tip
}
