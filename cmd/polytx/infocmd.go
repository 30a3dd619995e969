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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-polytx/accounts/keyring"
	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/core"
	"github.com/probeum/go-polytx/core/types"
	"github.com/probeum/go-polytx/onchain"
	"github.com/probeum/go-polytx/params"
)

var (
	infoCommand = cli.Command{
		Action:    info,
		Name:      "info",
		Usage:     "Show chain facts and the identity status of accounts",
		ArgsUsage: "[address ...]",
		Category:  "IDENTITY COMMANDS",
		Description: `
Prints the node's chain properties and runtime version, then for every given
address the identity it belongs to, whether that identity holds a valid CDD
claim and the JoinIdentity authorizations waiting for the account.`,
	}
	demoCommand = cli.Command{
		Action:    demo,
		Name:      "demo",
		Usage:     "Onboard an account and send it funds",
		ArgsUsage: "<address> [amount] [memo]",
		Category:  "IDENTITY COMMANDS",
		Description: `
Signed by a CDD provider, registers an identity for the account if it has
none, adds a CDD claim to it, lists its pending authorizations and transfers
amount (default 10000000) with memo (default "INITIAL TRANSFER") to it.`,
	}
)

func info(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	bg := context.Background()

	props, err := e.client.Properties(bg, e.cfg.Chain)
	if err != nil {
		e.log.Warn("Node did not report chain properties", "err", err)
	}
	version, err := e.client.RuntimeVersion(bg, nil)
	if err != nil {
		return err
	}
	head, err := e.client.BlockHash(bg, nil)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chain", "Runtime", "Tx version", "SS58", "Token", "Best block"})
	table.Append([]string{
		props.ChainName,
		fmt.Sprintf("%s/%d", version.SpecName, version.SpecVersion),
		fmt.Sprint(version.TransactionVersion),
		fmt.Sprint(props.SS58Format),
		fmt.Sprintf("%s (%d decimals)", props.TokenSymbol, props.TokenDecimals),
		head.TerminalString(),
	})
	table.Render()

	if ctx.NArg() == 0 {
		return nil
	}
	return printIdentities(bg, os.Stdout, onchain.New(e.client), ctx.Args())
}

func printIdentities(ctx context.Context, w io.Writer, q *onchain.Querier, addresses []string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Address", "Identity", "CDD", "Pending authorizations"})
	table.SetAutoWrapText(false)
	for _, addr := range addresses {
		status, err := q.GetIdentityStatus(ctx, addr)
		if err != nil {
			return fmt.Errorf("%s: %w", addr, err)
		}
		auths, err := q.GetPendingAuthorizations(ctx, addr)
		if err != nil {
			return fmt.Errorf("%s: %w", addr, err)
		}
		did, cdd := "-", "-"
		if status.DID != nil {
			did, cdd = status.DID.Hex(), fmt.Sprint(status.HasCddClaim)
		}
		table.Append([]string{addr, did, cdd, fmt.Sprint(auths)})
	}
	table.Render()
	return nil
}

var errNoIdentity = errors.New("identity was not registered")

func demo(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 3 {
		return errors.New("want <address> [amount] [memo]")
	}
	target := ctx.Args().Get(0)
	amount, memo := "10000000", "INITIAL TRANSFER"
	if ctx.NArg() > 1 {
		amount = ctx.Args().Get(1)
	}
	if ctx.NArg() > 2 {
		memo = ctx.Args().Get(2)
	}
	value, err := uint256.FromDecimal(amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %v", amount, err)
	}
	transfer, err := calls.NewTransferWithMemo(target, value, memo)
	if err != nil {
		return err
	}

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	pc, err := e.cfg.pipelineConfig()
	if err != nil {
		return err
	}
	pc.Catalog = calls.Polymesh()
	signer, err := e.signer(ctx)
	if err != nil {
		return err
	}
	e.log.Info("Demo transfer", "target", target, "amount", formatPolyx(value), "memo", memo)
	return runDemo(context.Background(), e, core.New(e.handle, pc), signer, target, transfer)
}

func runDemo(ctx context.Context, e *env, p *core.Pipeline, signer *keyring.KeyPair, target string, transfer *types.Call) error {
	q := onchain.New(e.client)
	run := func(call *types.Call) error {
		c, r, err := p.Run(ctx, signer, call)
		if c != nil {
			printConstruction(os.Stdout, c)
		}
		if c != nil || r != nil {
			printReceipt(os.Stdout, r, err)
		}
		return err
	}
	e.log.Info("Starting onboarding", "provider", signer.Address(), "target", target)

	status, err := q.GetIdentityStatus(ctx, target)
	if err != nil {
		return err
	}
	if status.DID == nil {
		if err := run(calls.RegisterIdentity(target)); err != nil {
			return err
		}
		if status, err = q.GetIdentityStatus(ctx, target); err != nil {
			return err
		}
		if status.DID == nil {
			return errNoIdentity
		}
	}
	if err := run(calls.AddCddClaim(*status.DID)); err != nil {
		return err
	}
	if status, err = q.GetIdentityStatus(ctx, target); err != nil {
		return err
	}
	e.log.Info("Identity status", "target", target, "status", status)

	if _, err := q.GetPendingAuthorizations(ctx, target); err != nil {
		return err
	}
	return run(transfer)
}

// formatPolyx renders a base-unit amount in whole POLYX.
func formatPolyx(v *uint256.Int) string {
	unit := uint256.NewInt(params.Polyx)
	whole, frac := new(uint256.Int), new(uint256.Int)
	whole.DivMod(v, unit, frac)
	if frac.IsZero() {
		return fmt.Sprintf("%s %s", whole.Dec(), params.TokenSymbol)
	}
	f := strings.TrimRight(fmt.Sprintf("%0*d", params.TokenDecimals, frac.Uint64()), "0")
	return fmt.Sprintf("%s.%s %s", whole.Dec(), f, params.TokenSymbol)
}
