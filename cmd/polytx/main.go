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

// polytx builds, signs and submits Polymesh extrinsics.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-polytx/accounts/keyring"
	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/rpc"
)

const clientIdentifier = "polytx"

var (
	urlFlag = cli.StringFlag{
		Name:  "url",
		Usage: "Websocket endpoint of the node",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	seedFlag = cli.StringFlag{
		Name:   "seed",
		Usage:  "Signer secret: 0x-prefixed 32 byte seed or BIP-39 mnemonic",
		EnvVar: "POLYTX_SEED",
	}
	seedFileFlag = cli.StringFlag{
		Name:  "seedfile",
		Usage: "File holding the hex encoded signer seed",
	}
	schemeFlag = cli.StringFlag{
		Name:  "scheme",
		Usage: "Signature scheme of the signer (sr25519, ed25519, ecdsa)",
	}
	ss58Flag = cli.UintFlag{
		Name:  "ss58",
		Usage: "SS58 address format",
	}
	eraFlag = cli.Uint64Flag{
		Name:  "era",
		Usage: "Mortality period in blocks",
	}
	immortalFlag = cli.BoolFlag{
		Name:  "immortal",
		Usage: "Build transactions that never expire",
	}
	tipFlag = cli.StringFlag{
		Name:  "tip",
		Usage: "Tip for the block author, in the smallest unit",
	}
	confirmFlag = cli.StringFlag{
		Name:  "confirm",
		Usage: "Confirmation policy: fixed or poll",
	}
	strictFlag = cli.BoolFlag{
		Name:  "strict",
		Usage: "Refuse runtimes with call argument types the registry cannot resolve",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = clientIdentifier
	app.Usage = "offline construction and submission of Polymesh extrinsics"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		configFileFlag,
		urlFlag,
		verbosityFlag,
		seedFlag,
		seedFileFlag,
		schemeFlag,
		ss58Flag,
		eraFlag,
		immortalFlag,
		tipFlag,
		confirmFlag,
		strictFlag,
	}
	app.Commands = []cli.Command{
		buildCommand,
		submitCommand,
		decodeCommand,
		infoCommand,
		demoCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		log.Root().SetHandler(log.TerminalHandler(log.Lvl(ctx.GlobalInt(verbosityFlag.Name))))
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every node-facing command needs.
type env struct {
	cfg    polytxConfig
	handle *rpc.Handle
	client *client.Client
	log    log.Logger
}

func newEnv(ctx *cli.Context) (*env, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	h := rpc.NewHandle(cfg.Node.URL, cfg.Node.DialTimeout)
	return &env{
		cfg:    cfg,
		handle: h,
		client: client.New(h),
		log:    log.New("run", uuid.NewString()[:8]),
	}, nil
}

func (e *env) Close() { e.handle.Close() }

// signer loads the signing key from --seedfile, --seed or a prompt.
func (e *env) signer(ctx *cli.Context) (*keyring.KeyPair, error) {
	scheme, format := e.cfg.Signer.Scheme, e.cfg.Chain.SS58Format
	if file := ctx.GlobalString(seedFileFlag.Name); file != "" {
		seed, err := crypto.LoadSeed(file)
		if err != nil {
			return nil, err
		}
		return keyring.FromSeed(scheme, seed, format)
	}
	secret := ctx.GlobalString(seedFlag.Name)
	if secret == "" {
		var err error
		if secret, err = promptSecret("Signer seed or mnemonic: "); err != nil {
			return nil, err
		}
	}
	return keyring.FromSecret(scheme, strings.TrimSpace(secret), format)
}

func promptSecret(prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	return line.PasswordPrompt(prompt)
}
