// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON(t *testing.T) {
	p := compileTest(t, "li $GPR1, 5")
	data, err := MarshalJSON(p)
	require.NoError(t, err)
	want := `{
	"name": "test",
	"elements": [
		{
			"template": {
				"mnemonic": "li",
				"rules": [
					{
						"slot": 0,
						"kind": "gpr",
						"mode": "var",
						"id": 1
					},
					{
						"slot": 1,
						"kind": "imm",
						"mode": "def",
						"value": 5
					}
				],
				"line": 1
			}
		}
	]
}
`
	assert.Equal(t, want, string(data))
}

func TestJSONRoundTrip(t *testing.T) {
	for _, name := range []string{"syntax", "udiv", "magic_div"} {
		p := CompileFile(filepath.Join("testdata", name+Ext), func(err *Error) {
			t.Fatalf("%v", err)
		})
		data, err := MarshalJSON(p)
		require.NoError(t, err)
		p1, err := UnmarshalJSON(data)
		require.NoError(t, err)
		if diff := cmp.Diff(p, p1); diff != "" {
			t.Fatalf("%v: %v", name, diff)
		}
	}
}

func TestLoadFile(t *testing.T) {
	src := filepath.Join("testdata", "udiv"+Ext)
	p, err := LoadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "udiv", p.Name)

	data, err := MarshalJSON(p)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "udiv"+JSONExt)
	require.NoError(t, os.WriteFile(file, data, 0644))
	p1, err := LoadFile(file)
	require.NoError(t, err)
	if diff := cmp.Diff(p, p1); diff != "" {
		t.Fatal(diff)
	}

	_, err = LoadFile(filepath.Join("testdata", "errors", "unknown_mnemonic"+Ext))
	assert.ErrorContains(t, err, "UnknownMnemonic")
	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"+Ext))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		json string
		err  string
	}{
		{
			`{"name": "x", "elements": []}`,
			"no instructions",
		},
		{
			`{"name": "x", "elements": [{}]}`,
			"no template",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "frob"}}]}`,
			"unknown mnemonic",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "li",
				"rules": [{"slot": 2, "kind": "gpr", "mode": "any"}]}}]}`,
			"bad operand slot 2",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "li",
				"rules": [{"slot": 1, "kind": "gpr", "mode": "any"},
					{"slot": 0, "kind": "gpr", "mode": "any"}]}}]}`,
			"bad operand slot 0",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "li",
				"rules": [{"slot": 1, "kind": "gpr", "mode": "any"}]}}]}`,
			"gpr rule for operand SI",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "fmr",
				"rules": [{"slot": 0, "kind": "gpr", "mode": "any"}]}}]}`,
			"gpr rule for operand FRT",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "li",
				"rules": [{"slot": 1, "kind": "imm", "mode": "any", "reloc": 6}]}}]}`,
			"relocation kind on imm rule",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "li",
				"rules": [{"slot": 1, "kind": "imm", "mode": "some"}]}}]}`,
			"unknown value",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "blr"},
				"gap": {"constraints": [{"kind": "label", "mode": "def", "value": 1, "access": "read"}]}}]}`,
			"gap constraint on label operand",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "blr"},
				"gap": {"constraints": [{"kind": "gpr", "mode": "any", "value": 1, "access": "read"}]}}]}`,
			"gap constraint with any mode",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "blr"},
				"gap": {"constraints": [{"kind": "gpr", "mode": "def", "value": 1}]}}]}`,
			"gap constraint with access 0",
		},
		{
			`{"name": "x", "elements": [{"template": {"mnemonic": "blr", "lines": 1}}]}`,
			"unknown field",
		},
	}
	for i, test := range tests {
		_, err := UnmarshalJSON([]byte(test.json))
		assert.ErrorContains(t, err, test.err, "test #%v", i)
	}
}
