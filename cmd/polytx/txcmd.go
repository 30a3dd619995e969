// Copyright 2021 The go-polytx Authors
// This file is part of go-polytx.
//
// go-polytx is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-polytx is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-polytx. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/common/hexutil"
	"github.com/probeum/go-polytx/core"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/registry"
)

var (
	buildCommand = cli.Command{
		Action:    buildTx,
		Name:      "build",
		Usage:     "Build, sign and seal a call without submitting it",
		ArgsUsage: "<pallet.method> [name=value ...]",
		Category:  "TRANSACTION COMMANDS",
		Description: `
Builds the call against the node's current runtime and prints the signed
extrinsic, its hash and its decoded fields. Argument values are JSON when
they parse as JSON and plain strings otherwise, e.g.

    polytx build balances.transferWithMemo dest=5Grw... value=1000000 memo="INITIAL TRANSFER"`,
	}
	submitCommand = cli.Command{
		Action:    submitTx,
		Name:      "submit",
		Usage:     "Build a call and submit it",
		ArgsUsage: "<pallet.method> [name=value ...]",
		Category:  "TRANSACTION COMMANDS",
		Description: `
Builds the call like build does, submits it and waits according to the
confirmation policy.`,
	}
	decodeCommand = cli.Command{
		Action:    decodeTx,
		Name:      "decode",
		Usage:     "Decode a signed extrinsic",
		ArgsUsage: "<hex>",
		Category:  "TRANSACTION COMMANDS",
		Description: `
Decodes a hex encoded extrinsic with the node's current runtime metadata.`,
	}
)

// parseCall parses "pallet.method" and its arguments. Arguments are
// name=value pairs or bare positional values.
func parseCall(args []string) (*types.Call, error) {
	if len(args) == 0 {
		return nil, errors.New("missing call, want <pallet.method>")
	}
	dot := strings.IndexByte(args[0], '.')
	if dot <= 0 || dot == len(args[0])-1 {
		return nil, fmt.Errorf("invalid call %q, want <pallet.method>", args[0])
	}
	var cargs []types.Arg
	for _, a := range args[1:] {
		var name, value string
		if i := strings.IndexByte(a, '='); i > 0 {
			name, value = a[:i], a[i+1:]
		} else {
			value = a
		}
		cargs = append(cargs, types.Arg{Name: name, Value: parseValue(value)})
	}
	return types.NewCall(args[0][:dot], args[0][dot+1:], cargs...), nil
}

// parseValue decodes JSON, keeping numbers exact. Anything else is a string.
func parseValue(s string) interface{} {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	if v == nil {
		return nil
	}
	return v
}

func construct(ctx *cli.Context, e *env) (*core.Pipeline, *core.Construction, error) {
	call, err := parseCall(ctx.Args())
	if err != nil {
		return nil, nil, err
	}
	pc, err := e.cfg.pipelineConfig()
	if err != nil {
		return nil, nil, err
	}
	pc.Catalog = calls.Polymesh()
	signer, err := e.signer(ctx)
	if err != nil {
		return nil, nil, err
	}
	p := core.New(e.handle, pc)
	c, err := p.Construct(context.Background(), signer, call)
	if err != nil {
		return nil, nil, err
	}
	e.log.Info("Built extrinsic", "call", call, "signer", signer.Address(), "hash", c.Signed.Hash())
	return p, c, nil
}

func buildTx(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	_, c, err := construct(ctx, e)
	if err != nil {
		return err
	}
	printConstruction(os.Stdout, c)
	return nil
}

func submitTx(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	p, c, err := construct(ctx, e)
	if err != nil {
		return err
	}
	printConstruction(os.Stdout, c)
	r, err := p.Submit(context.Background(), c)
	printReceipt(os.Stdout, r, err)
	return err
}

func decodeTx(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("want exactly one hex encoded extrinsic")
	}
	raw, err := hexutil.Decode(strings.TrimSpace(ctx.Args().First()))
	if err != nil {
		return err
	}
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	reg, err := currentRegistry(context.Background(), e)
	if err != nil {
		return err
	}
	dec, err := core.Decode(raw, reg)
	if err != nil {
		return err
	}
	printDecoded(os.Stdout, dec)
	return nil
}

// currentRegistry builds the registry of the node's best block.
func currentRegistry(ctx context.Context, e *env) (*registry.Registry, error) {
	meta, err := e.client.Metadata(ctx, nil)
	if err != nil {
		return nil, err
	}
	version, err := e.client.RuntimeVersion(ctx, nil)
	if err != nil {
		return nil, err
	}
	var opts []registry.BuildOption
	if e.cfg.Tx.Lenient {
		opts = append(opts, registry.Lenient())
	}
	return registry.Build(registry.DefaultSchema(), meta, e.cfg.Chain, version.SpecName, version.SpecVersion, opts...)
}

func printConstruction(w io.Writer, c *core.Construction) {
	fmt.Fprintf(w, "Signed:  %s\n", c.Signed.Hex())
	fmt.Fprintf(w, "Payload: %s\n", c.Payload.Hex())
	fmt.Fprintf(w, "TxHash:  %s\n\n", c.Signed.Hash().Hex())
	printDecoded(w, c.Decoded)
}

func printDecoded(w io.Writer, dec *types.DecodedExtrinsic) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"hash", dec.Hash.Hex()})
	table.Append([]string{"version", fmt.Sprint(dec.Version)})
	if dec.Signed {
		table.Append([]string{"signer", dec.Address})
		table.Append([]string{"signature", dec.Signature.String()})
		table.Append([]string{"era", dec.Era.String()})
		table.Append([]string{"nonce", fmt.Sprint(dec.Nonce)})
		table.Append([]string{"tip", dec.Tip.Dec()})
	}
	table.Append([]string{"call", dec.Call.Pallet + "." + dec.Call.Method})
	for _, a := range dec.Call.Args {
		table.Append([]string{"  " + a.Name, formatValue(a.Value)})
	}
	table.Render()
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case []byte:
		if i := bytes.IndexByte(x, 0); i > 0 && isPrintable(x[:i]) && len(bytes.Trim(x[i:], "\x00")) == 0 {
			return fmt.Sprintf("%q (%s)", x[:i], hexutil.Encode(x))
		}
		return hexutil.Encode(x)
	case common.Hash:
		return x.Hex()
	case *uint256.Int:
		return x.Dec()
	case registry.Some:
		return "Some(" + formatValue(x.Value) + ")"
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func printReceipt(w io.Writer, r *core.Receipt, err error) {
	var serr *core.SubmissionError
	switch {
	case errors.As(err, &serr):
		color.New(color.FgRed, color.Bold).Fprintf(w, "Rejected: %s\n", serr.Message)
		if serr.Data != nil {
			fmt.Fprintf(w, "Reason:   %v\n", serr.Data)
		}
	case err != nil && r != nil:
		color.New(color.FgYellow).Fprintf(w, "Submitted %s, confirmation failed: %v\n", r.Hash.Hex(), err)
	case err != nil:
		color.New(color.FgRed).Fprintf(w, "Submission failed: %v\n", err)
	case r.Included:
		color.New(color.FgGreen, color.Bold).Fprintf(w, "Included in block #%d (%s)\n", r.BlockNumber, r.BlockHash.Hex())
	default:
		color.New(color.FgGreen).Fprintf(w, "Submitted %s (%s)\n", r.Hash.Hex(), r.State())
	}
}
