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

// Polyx is the number of base units in one POLYX.
// Example: To get the base-unit value of an amount in whole POLYX, use
//
//	new(big.Int).Mul(value, big.NewInt(params.Polyx))
const Polyx = 1_000_000

// POLYX token metadata.
const (
	TokenSymbol   = "POLYX"
	TokenDecimals = 6
)
