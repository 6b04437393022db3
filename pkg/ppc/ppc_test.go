// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ppc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		word uint32
		fam  Family
		text string
	}{
		{0x3c608889, FamilyPPC, "lis r3,-30583"},
		{0x811c0014, FamilyPPC, "lwz r8,20(r28)"},
		{0x38038889, FamilyPPC, "addi r0,r3,-30583"},
		{0x38800000, FamilyPPC, "li r4,0"},
		{0x7c003896, FamilyPPC, "mulhw r0,r0,r7"},
		{0x7c003a14, FamilyPPC, "add r0,r0,r7"},
		{0x7c002e70, FamilyPPC, "srawi r0,r0,5"},
		{0x54050ffe, FamilyPPC, "srwi r5,r0,31"},
		{0x7cc02a14, FamilyPPC, "add r6,r0,r5"},
		{0x4e800020, FamilyPPC, "blr"},
		{0x7c0802a6, FamilyPPC, "mflr r0"},
		{0x7c7f1b78, FamilyPPC, "mr r31,r3"},
		{0x7c7f2378, FamilyPPC, "or r31,r3,r4"},
		{0x4182000c, FamilyPPC, "beq cr0,.+12"},
		{0x2c030000, FamilyPPC, "cmpwi cr0,r3,0"},
		{0xfc20f890, FamilyPPC, "fmr f1,f31"},
		{0x60000000, FamilyPPC, "nop"},
		{0x1000002a, FamilyPPC, ".long 0x1000002a"},
		{0x1000002a, FamilyAll, "ps_add f0,f0,f0"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%08x", test.word), func(t *testing.T) {
			insn := Decode(test.word, test.fam)
			assert.Equal(t, test.text, insn.String())
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		mnemonic string
		args     []int64
		word     uint32
	}{
		{"lis", []int64{3, 0x8889}, 0x3c608889},
		{"lis", []int64{3, -30583}, 0x3c608889},
		{"addi", []int64{0, 3, -30583}, 0x38038889},
		{"lwz", []int64{8, 20, 28}, 0x811c0014},
		{"srwi", []int64{5, 0, 31}, 0x54050ffe},
		{"mr", []int64{31, 3}, 0x7c7f1b78},
		{"beq", []int64{0, 12}, 0x4182000c},
		{"mflr", []int64{0}, 0x7c0802a6},
		{"mtspr", []int64{8, 0}, 0x7c0803a6},
	}
	for _, test := range tests {
		word, err := Encode(test.mnemonic, test.args...)
		require.NoError(t, err)
		assert.Equal(t, test.word, word, "%v %v", test.mnemonic, test.args)
		insn := Decode(word, FamilyAll)
		require.NotNil(t, insn.Op)
		again, err := Encode(insn.Op.Name, insn.Args...)
		require.NoError(t, err)
		assert.Equal(t, word, again, "%v", insn)
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode("frobnicate")
	assert.Error(t, err)
	_, err = Encode("li", 3)
	assert.Error(t, err)
	_, err = Encode("li", 3, 0x10000)
	assert.Error(t, err)
	_, err = Encode("b", 2)
	assert.Error(t, err)
}

// The fixed bits of every table entry must decode to some entry that
// assembles back to the same word.
func TestOpcodeTable(t *testing.T) {
	seen := make(map[string]bool)
	for _, op := range Opcodes() {
		require.False(t, seen[op.Name], "duplicate %v", op.Name)
		seen[op.Name] = true
		require.Zero(t, op.Opcode&^op.Mask, "%v", op.Name)
		if op.check != nil {
			continue
		}
		insn := Decode(op.Opcode, FamilyAll)
		require.NotNil(t, insn.Op, "%v does not decode", op.Name)
		word, err := Encode(insn.Op.Name, insn.Args...)
		require.NoError(t, err, "%v", insn)
		assert.Equal(t, op.Opcode, word, "%v decodes as %v", op.Name, insn)
	}
}

func TestRegisterAccess(t *testing.T) {
	decode := func(mnemonic string, args ...int64) *Insn {
		word, err := Encode(mnemonic, args...)
		require.NoError(t, err)
		insn := Decode(word, FamilyAll)
		require.Equal(t, mnemonic, insn.Mnemonic())
		return insn
	}
	lwz := decode("lwz", 8, 20, 28)
	assert.True(t, lwz.Writes(KindGPR, 8))
	assert.True(t, lwz.Reads(KindGPR, 28))
	assert.False(t, lwz.Reads(KindGPR, 8))
	assert.False(t, lwz.Writes(KindGPR, 28))

	// rA=0 is the literal zero, not r0.
	lwz0 := decode("lwz", 3, 0, 0)
	assert.False(t, lwz0.Reads(KindGPR, 0))

	lwzu := decode("lwzu", 3, 4, 1)
	assert.True(t, lwzu.Writes(KindGPR, 1))
	assert.True(t, lwzu.Reads(KindGPR, 1))

	stmw := decode("stmw", 29, 8, 1)
	assert.True(t, stmw.Reads(KindGPR, 30))
	assert.True(t, stmw.Reads(KindGPR, 31))
	assert.False(t, stmw.Reads(KindGPR, 28))
	assert.False(t, stmw.Writes(KindGPR, 29))

	fmr := decode("fmr", 1, 31)
	assert.True(t, fmr.Writes(KindFPR, 1))
	assert.True(t, fmr.Reads(KindFPR, 31))
	assert.False(t, fmr.Reads(KindGPR, 31))

	srawi := decode("srawi", 0, 3, 5)
	assert.True(t, srawi.Writes(KindGPR, 0))
	assert.True(t, srawi.Reads(KindGPR, 3))
	assert.False(t, srawi.Reads(KindGPR, 5))

	unknown := Decode(0x1000002a, FamilyPPC)
	assert.Nil(t, unknown.Op)
	assert.Equal(t, "", unknown.Mnemonic())
	for reg := uint32(0); reg < 32; reg++ {
		assert.False(t, unknown.Reads(KindGPR, reg))
		assert.False(t, unknown.Writes(KindGPR, reg))
	}
}

func TestParseFamily(t *testing.T) {
	fam, err := ParseFamily("ppc, gekko")
	require.NoError(t, err)
	assert.Equal(t, FamilyAll, fam)
	_, err = ParseFamily("x86")
	assert.Error(t, err)
}
