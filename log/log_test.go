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

package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/probeum/go-polytx/common"
)

func testLogger(lvl Lvl) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New("run", "abc")
	l.SetHandler(LvlFilterHandler(lvl, StreamHandler(&buf, LogfmtFormat())))
	return l, &buf
}

func TestLogfmt(t *testing.T) {
	l, buf := testLogger(LvlInfo)
	l.Info("Submitted extrinsic", "hash", common.Hash{1}, "size", 143, "note", "has space", "err", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		"lvl=info",
		`msg="Submitted extrinsic"`,
		"run=abc",
		"hash=0x0100000000000000000000000000000000000000000000000000000000000000",
		"size=143",
		`note="has space"`,
		"err=boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("record not newline terminated: %q", out)
	}
}

func TestLevelFilter(t *testing.T) {
	l, buf := testLogger(LvlWarn)
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("filtered records written: %q", buf.String())
	}
	l.Warn("shown")
	l.Error("shown too")
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("have %d records, want 2", n)
	}
}

func TestOddContext(t *testing.T) {
	l, buf := testLogger(LvlTrace)
	l.Trace("odd", "key")
	if !strings.Contains(buf.String(), errorKey) {
		t.Fatalf("odd context not flagged: %q", buf.String())
	}
}

func TestTerminalFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetHandler(StreamHandler(&buf, TerminalFormat(false)))
	l.Warn("Node reported a different extrinsic hash", "local", common.Hash{2})

	out := buf.String()
	if !strings.HasPrefix(out, "WARN [") {
		t.Errorf("unexpected prefix: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colors without a terminal: %q", out)
	}
	// hashes print shortened on terminals
	if !strings.Contains(out, "local="+escapeString(common.Hash{2}.TerminalString())) {
		t.Errorf("hash not shortened: %q", out)
	}
}

func TestLvlFromString(t *testing.T) {
	for s, want := range map[string]Lvl{"trace": LvlTrace, "dbug": LvlDebug, "info": LvlInfo, "warn": LvlWarn, "eror": LvlError, "crit": LvlCrit} {
		lvl, err := LvlFromString(s)
		if err != nil || lvl != want {
			t.Errorf("LvlFromString(%q) = %v, %v", s, lvl, err)
		}
	}
	if _, err := LvlFromString("loud"); err == nil {
		t.Error("unknown level accepted")
	}
}
