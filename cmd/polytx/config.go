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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/holiman/uint256"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-polytx/core"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/params"
	"github.com/probeum/go-polytx/rpc"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type nodeConfig struct {
	URL         string
	DialTimeout time.Duration
}

type txConfig struct {
	EraPeriod uint64
	Immortal  bool
	Tip       string `toml:",omitempty"` // decimal, in the smallest unit

	// Confirmation is "fixed" (wait ConfirmWindow) or "poll" (poll blocks
	// every ConfirmInterval until ConfirmTimeout).
	Confirmation    string
	ConfirmWindow   time.Duration
	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration

	// Lenient builds the type registry even when some call argument types
	// of the runtime are unknown.
	Lenient bool
}

type signerConfig struct {
	Scheme crypto.Scheme
}

type polytxConfig struct {
	Node   nodeConfig
	Chain  params.ChainProperties
	Tx     txConfig
	Signer signerConfig
}

func defaultConfig() polytxConfig {
	return polytxConfig{
		Node: nodeConfig{
			URL:         params.PolymeshTestnetURL,
			DialTimeout: rpc.DefaultDialTimeout,
		},
		Chain: params.PolymeshTestnet,
		Tx: txConfig{
			EraPeriod:       params.DefaultEraPeriod,
			Confirmation:    "fixed",
			ConfirmWindow:   params.DefaultConfirmationWindow,
			ConfirmInterval: core.DefaultPollInterval,
			ConfirmTimeout:  core.DefaultPollTimeout,
			Lenient:         true,
		},
		Signer: signerConfig{Scheme: crypto.Sr25519},
	}
}

func loadConfig(file string, cfg *polytxConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the defaults, then the config file, then applies flags.
func makeConfig(ctx *cli.Context) (polytxConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.GlobalIsSet(urlFlag.Name) {
		cfg.Node.URL = ctx.GlobalString(urlFlag.Name)
	}
	if ctx.GlobalIsSet(ss58Flag.Name) {
		cfg.Chain.SS58Format = uint16(ctx.GlobalUint(ss58Flag.Name))
	}
	if ctx.GlobalIsSet(eraFlag.Name) {
		cfg.Tx.EraPeriod = ctx.GlobalUint64(eraFlag.Name)
	}
	if ctx.GlobalIsSet(immortalFlag.Name) {
		cfg.Tx.Immortal = ctx.GlobalBool(immortalFlag.Name)
	}
	if ctx.GlobalIsSet(tipFlag.Name) {
		cfg.Tx.Tip = ctx.GlobalString(tipFlag.Name)
	}
	if ctx.GlobalIsSet(confirmFlag.Name) {
		cfg.Tx.Confirmation = ctx.GlobalString(confirmFlag.Name)
	}
	if ctx.GlobalBool(strictFlag.Name) {
		cfg.Tx.Lenient = false
	}
	if ctx.GlobalIsSet(schemeFlag.Name) {
		scheme, err := crypto.ParseScheme(ctx.GlobalString(schemeFlag.Name))
		if err != nil {
			return cfg, err
		}
		cfg.Signer.Scheme = scheme
	}
	return cfg, nil
}

// pipelineConfig converts the transaction settings.
func (c *polytxConfig) pipelineConfig() (core.Config, error) {
	fc := core.FetcherConfig{
		EraPeriod:  c.Tx.EraPeriod,
		Immortal:   c.Tx.Immortal,
		Properties: c.Chain,
		Lenient:    c.Tx.Lenient,
	}
	if c.Tx.Tip != "" {
		tip, err := uint256.FromDecimal(c.Tx.Tip)
		if err != nil {
			return core.Config{}, fmt.Errorf("invalid tip %q: %v", c.Tx.Tip, err)
		}
		fc.Tip = tip
	}
	policy, err := c.Tx.policy()
	if err != nil {
		return core.Config{}, err
	}
	return core.Config{Fetcher: fc, Policy: policy}, nil
}

func (c *txConfig) policy() (core.ConfirmationPolicy, error) {
	switch c.Confirmation {
	case "", "fixed":
		return core.FixedDelay{Window: c.ConfirmWindow}, nil
	case "poll":
		return core.InclusionPoll{Interval: c.ConfirmInterval, Timeout: c.ConfirmTimeout}, nil
	}
	return nil, fmt.Errorf("unknown confirmation policy %q (want fixed or poll)", c.Confirmation)
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	log.Debug("Dumped configuration", "url", cfg.Node.URL)
	return nil
}
