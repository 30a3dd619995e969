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
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-polytx/accounts/keyring"
	"github.com/probeum/go-polytx/calls"
	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/core"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/internal/testchain"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/registry"
	"github.com/probeum/go-polytx/rpc"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func TestParseCall(t *testing.T) {
	call, err := parseCall([]string{"balances.transferWithMemo", "dest=5Grw", "value=1000000", `memo=INITIAL TRANSFER`})
	require.NoError(t, err)
	assert.True(t, call.Matches("balances", "transfer_with_memo"))
	args := call.Args()
	require.Len(t, args, 3)
	assert.Equal(t, "5Grw", args[0].Value)
	assert.Equal(t, json.Number("1000000"), args[1].Value)
	assert.Equal(t, "INITIAL TRANSFER", args[2].Value)

	call, err = parseCall([]string{"identity.addAuthorization", `{"Account":"5Grw"}`, `target={"JoinIdentity":null}`})
	require.NoError(t, err)
	assert.Equal(t, "", call.Args()[0].Name)
	assert.Equal(t, map[string]interface{}{"Account": "5Grw"}, call.Args()[0].Value)

	for _, bad := range [][]string{nil, {"transfer"}, {".transfer"}, {"balances."}} {
		_, err := parseCall(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "hello world", parseValue("hello world"))
	assert.Equal(t, "1 2", parseValue("1 2"))
	assert.Nil(t, parseValue("null"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []interface{}{json.Number("1"), "a"}, parseValue(`[1,"a"]`))
}

func TestMakeConfig(t *testing.T) {
	cfg, err := makeConfig(newContext(t))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	file := filepath.Join(t.TempDir(), "polytx.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[Node]
URL = "ws://127.0.0.1:9944"

[Tx]
EraPeriod = 128
Tip = "5"
Confirmation = "poll"

[Signer]
Scheme = "ed25519"
`), 0600))

	cfg, err = makeConfig(newContext(t, "--config", file, "--era", "32", "--strict"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9944", cfg.Node.URL)
	assert.Equal(t, uint64(32), cfg.Tx.EraPeriod, "flags override the file")
	assert.Equal(t, crypto.Ed25519, cfg.Signer.Scheme)
	assert.False(t, cfg.Tx.Lenient)

	pc, err := cfg.pipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(5), pc.Fetcher.Tip)
	assert.Equal(t, core.InclusionPoll{Interval: core.DefaultPollInterval, Timeout: core.DefaultPollTimeout}, pc.Policy)

	require.NoError(t, os.WriteFile(file, []byte("[Tx]\nEraPeriodd = 1\n"), 0600))
	_, err = makeConfig(newContext(t, "--config", file))
	assert.Error(t, err)

	_, err = makeConfig(newContext(t, "--scheme", "rsa"))
	assert.Error(t, err)
}

func TestPolicy(t *testing.T) {
	p, err := (&txConfig{ConfirmWindow: time.Second}).policy()
	require.NoError(t, err)
	assert.Equal(t, core.FixedDelay{Window: time.Second}, p)

	_, err = (&txConfig{Confirmation: "finality"}).policy()
	assert.Error(t, err)
	_, err = (&polytxConfig{Tx: txConfig{Tip: "-1"}}).pipelineConfig()
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	memo, _ := calls.PadMemo("hi")
	assert.Equal(t, "None", formatValue(nil))
	assert.Contains(t, formatValue([]byte(memo)), `"hi"`)
	assert.Equal(t, "0x0102", formatValue([]byte{1, 2}))
	assert.Equal(t, "1000", formatValue(uint256.NewInt(1000)))
	assert.Equal(t, "Some(None)", formatValue(registry.Some{}))
	assert.Equal(t, `{"Account":"5Grw"}`, formatValue(map[string]interface{}{"Account": "5Grw"}))
}

func TestFormatPolyx(t *testing.T) {
	assert.Equal(t, "10 POLYX", formatPolyx(uint256.NewInt(10000000)))
	assert.Equal(t, "0.25 POLYX", formatPolyx(uint256.NewInt(250000)))
	assert.Equal(t, "1.000001 POLYX", formatPolyx(uint256.NewInt(1000001)))
}

func TestDemo(t *testing.T) {
	node := testchain.NewNode()
	defer node.Close()
	h := rpc.NewHandle(node.URL, time.Second)
	defer h.Close()
	e := &env{cfg: defaultConfig(), handle: h, client: client.New(h), log: log.New()}

	provider, err := keyring.FromHexSeed(crypto.Sr25519, "0x786ad0e2df456fe43dd1f91ebca22e235bc162e0bb8d53c633e8c85b2af68b7a", 42)
	require.NoError(t, err)
	target, _, err := keyring.Generate(crypto.Sr25519, 42)
	require.NoError(t, err)

	// The fake node does not execute calls, so the identity is linked up front.
	did := common.HexToHash("0x0600000000000000000000000000000000000000000000000000000000000000")
	mod, item, err := testchain.Metadata().FindStorage("Identity", "KeyToIdentityIds")
	require.NoError(t, err)
	key, err := mod.Storage.StorageKey(item, target.AccountID())
	require.NoError(t, err)
	node.SetStorage(key, did.Bytes())

	pc := core.Config{Catalog: calls.Polymesh(), Policy: core.FixedDelay{Window: time.Millisecond}}
	transfer, err := calls.NewTransferWithMemo(target.Address(), uint256.NewInt(10000000), "INITIAL TRANSFER")
	require.NoError(t, err)
	require.NoError(t, runDemo(context.Background(), e, core.New(h, pc), provider, target.Address(), transfer))

	assert.Len(t, node.Submitted(), 2, "cdd claim and transfer")
	assert.Equal(t, uint64(2), node.Nonce(provider.AccountID()))
	assert.Equal(t, 1, node.CallCount("identity_getFilteredAuthorizations"))
}

func TestPrintReceipt(t *testing.T) {
	var buf bytes.Buffer
	printReceipt(&buf, &core.Receipt{Included: true, BlockNumber: 7}, nil)
	assert.Contains(t, buf.String(), "#7")

	buf.Reset()
	printReceipt(&buf, nil, &core.SubmissionError{Message: "Invalid Transaction", Data: "Transaction is outdated"})
	assert.Contains(t, buf.String(), "Transaction is outdated")
}
