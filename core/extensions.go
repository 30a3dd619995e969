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

package core

import (
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/scale"
)

// extension describes what a signed extension contributes to an extrinsic.
// extra fields travel inside the extrinsic, additional fields are only part
// of the signing payload. Extensions without either are checks the runtime
// performs on its own.
type extension struct {
	extra      func(e *scale.Encoder, tx *types.UnsignedExtrinsic)
	additional func(e *scale.Encoder, tx *types.UnsignedExtrinsic)
	decode     func(d *scale.Decoder, out *types.DecodedExtrinsic) error
}

var mortality = extension{
	extra: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
		e.Write(tx.Era.Encode())
	},
	additional: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
		if tx.Era.Immortal {
			e.Write(tx.GenesisHash[:])
			return
		}
		e.Write(tx.BlockHash[:])
	},
	decode: func(d *scale.Decoder, out *types.DecodedExtrinsic) (err error) {
		out.Era, err = types.DecodeEra(d)
		return err
	},
}

var specVersion = extension{
	additional: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
		e.PutUint32(tx.SpecVersion)
	},
}

// signedExtensions maps the extension names found in runtime metadata to
// their payload.
var signedExtensions = map[string]extension{
	"CheckSpecVersion": specVersion,
	"CheckVersion":     specVersion,
	"CheckTxVersion": {
		additional: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
			e.PutUint32(tx.TransactionVersion)
		},
	},
	"CheckGenesis": {
		additional: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
			e.Write(tx.GenesisHash[:])
		},
	},
	"CheckMortality": mortality,
	"CheckEra":       mortality,
	"CheckNonce": {
		extra: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
			e.PutCompactUint64(tx.Nonce)
		},
		decode: func(d *scale.Decoder, out *types.DecodedExtrinsic) (err error) {
			out.Nonce, err = d.ReadCompactUint64()
			return err
		},
	},
	"ChargeTransactionPayment": {
		extra: func(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
			if tx.Tip == nil {
				e.PutCompactUint64(0)
				return
			}
			e.PutCompact(tx.Tip)
		},
		decode: func(d *scale.Decoder, out *types.DecodedExtrinsic) (err error) {
			out.Tip, err = d.ReadCompact()
			return err
		},
	},
	"CheckWeight":            {},
	"CheckBlockGasLimit":     {},
	"CheckNonZeroSender":     {},
	"StoreCallMetadata":      {},
	"LimitParathreadCommits": {},
	"PrevalidateAttests":     {},
}

// defaultExtensions is used when the metadata does not list any.
var defaultExtensions = []string{
	"CheckSpecVersion",
	"CheckTxVersion",
	"CheckGenesis",
	"CheckMortality",
	"CheckNonce",
	"CheckWeight",
	"ChargeTransactionPayment",
}

func lookupExtension(name string) (extension, bool) {
	ext, ok := signedExtensions[name]
	if !ok {
		log.Warn("Unknown signed extension, assuming empty payload", "name", name)
	}
	return ext, ok
}

// encodeExtra writes the extra fields of all extensions in order.
func encodeExtra(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
	for _, name := range tx.Extensions {
		if ext, _ := lookupExtension(name); ext.extra != nil {
			ext.extra(e, tx)
		}
	}
}

// encodeAdditional writes the additional signed fields of all extensions in
// order.
func encodeAdditional(e *scale.Encoder, tx *types.UnsignedExtrinsic) {
	for _, name := range tx.Extensions {
		if ext, _ := lookupExtension(name); ext.additional != nil {
			ext.additional(e, tx)
		}
	}
}

// decodeExtra reads the extra fields of the named extensions into out.
func decodeExtra(d *scale.Decoder, names []string, out *types.DecodedExtrinsic) error {
	for _, name := range names {
		ext, _ := lookupExtension(name)
		if ext.decode == nil {
			continue
		}
		if err := ext.decode(d, out); err != nil {
			return err
		}
	}
	return nil
}

// extensionNames returns the extension list to build with, falling back to
// the standard set when the metadata names none.
func extensionNames(names []string) []string {
	if len(names) == 0 {
		return append([]string(nil), defaultExtensions...)
	}
	return append([]string(nil), names...)
}
