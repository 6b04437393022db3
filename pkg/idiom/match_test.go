// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"debug/elf"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/reloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Signed division of r7 by a constant as emitted by the compiler.
var udivWords = []uint32{
	0x3c608889, // lis r3,-30583
	0x811c0014, // lwz r8,20(r28)
	0x38038889, // addi r0,r3,-30583
	0x38800000, // li r4,0
	0x7c003896, // mulhw r0,r0,r7
	0x38600001, // li r3,1
	0x7c003a14, // add r0,r0,r7
	0x7c002e70, // srawi r0,r0,5
	0x54050ffe, // srwi r5,r0,31
	0x7cc02a14, // add r6,r0,r5
}

func decode(words ...uint32) []*ppc.Insn {
	return ppc.DecodeAll(words, ppc.FamilyPPC)
}

func encode(t *testing.T, mnemonic string, args ...int64) uint32 {
	t.Helper()
	word, err := ppc.Encode(mnemonic, args...)
	require.NoError(t, err)
	return word
}

func matchAt(t *testing.T, p *Pattern, words []uint32, tgt *Target) *Context {
	t.Helper()
	ctx, err := p.MatchAt(decode(words...), 0, tgt)
	require.NoError(t, err)
	return ctx
}

func TestMatchUdiv(t *testing.T) {
	p := CompileFile(filepath.Join("testdata", "udiv.idiom"), func(err *Error) {
		t.Fatalf("%v", err)
	})
	ctx := matchAt(t, p, udivWords, nil)
	want := &Context{
		GPRs:   map[int]uint32{1: 7, 2: 0, 3: 0, 4: 0, 8: 0, 9: 3},
		FPRs:   map[int]uint32{},
		Imms:   map[int]int64{1: -30583, 2: -30583, 3: 5},
		Labels: map[int]reloc.Reloc{},
		Insns:  []int{0, 2, 4, 7},
	}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, 0, ctx.Start())
	assert.Equal(t, 8, ctx.Span())
	assert.Equal(t, "insns [0 2 4 7] $GPR1=r7 $GPR2=r0 $GPR3=r0 $GPR4=r0 $GPR8=r0 $GPR9=r3"+
		" $IMM1=-30583 $IMM2=-30583 $IMM3=5", ctx.String())

	found, err := p.Find(decode(udivWords...), nil)
	require.NoError(t, err)
	assert.Equal(t, ctx, found)

	// li r4,24 in the gap leaves the magic number alone.
	words := append([]uint32{}, udivWords...)
	words[1] = 0x38800018
	assert.NotNil(t, matchAt(t, p, words, nil))

	// li r3,24 overwrites it.
	words[1] = 0x38600018
	assert.Nil(t, matchAt(t, p, words, nil))
}

func TestMatchMagicDiv(t *testing.T) {
	p := CompileFile(filepath.Join("testdata", "magic_div.idiom"), func(err *Error) {
		t.Fatalf("%v", err)
	})
	ctx := matchAt(t, p, udivWords, nil)
	require.NotNil(t, ctx)
	assert.Equal(t, []int{0, 2, 4, 7}, ctx.Insns)
	// The first template binds the destination of lis.
	assert.Equal(t, uint32(3), ctx.GPRs[1])
	assert.Equal(t, int64(-30583), ctx.Imms[1])
	assert.Equal(t, int64(5), ctx.Imms[3])
}

func TestMatchDeterministic(t *testing.T) {
	p := compileTest(t, "lis $GPR1,$IMM1\n...\nadd $GPR2,$GPR?,$GPR3\n")
	insns := decode(udivWords...)
	first, err := p.MatchAt(insns, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []int{0, 6}, first.Insns)
	for i := 0; i < 10; i++ {
		ctx, err := p.MatchAt(insns, 0, nil)
		require.NoError(t, err)
		if diff := cmp.Diff(first, ctx); diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestMatchVariables(t *testing.T) {
	p := compileTest(t, "add $GPR1, $GPR2, $GPR2")
	assert.NotNil(t, matchAt(t, p, []uint32{encode(t, "add", 3, 4, 4)}, nil))
	assert.Nil(t, matchAt(t, p, []uint32{encode(t, "add", 3, 4, 5)}, nil))

	p = compileTest(t, "li $GPR1, $IMM1\nli $GPR1, $IMM1")
	assert.NotNil(t, matchAt(t, p, []uint32{encode(t, "li", 3, 5), encode(t, "li", 3, 5)}, nil))
	assert.Nil(t, matchAt(t, p, []uint32{encode(t, "li", 3, 5), encode(t, "li", 3, 6)}, nil))
	assert.Nil(t, matchAt(t, p, []uint32{encode(t, "li", 3, 5), encode(t, "li", 4, 5)}, nil))

	// Variables of different kinds with the same id are independent.
	p = compileTest(t, "fmr $FPR1, $FPR2\nmr $GPR1, $GPR2")
	ctx := matchAt(t, p, []uint32{encode(t, "fmr", 1, 2), encode(t, "mr", 3, 4)}, nil)
	require.NotNil(t, ctx)
	assert.Equal(t, map[int]uint32{1: 1, 2: 2}, ctx.FPRs)
	assert.Equal(t, map[int]uint32{1: 3, 2: 4}, ctx.GPRs)
}

func TestMatchProbeDoesNotBind(t *testing.T) {
	p := compileTest(t, "...\nadd $GPR2, $GPR3, $GPR3")
	// The first add binds $GPR2 before $GPR3 fails; the binding must not survive.
	ctx := matchAt(t, p, []uint32{encode(t, "add", 5, 1, 2), encode(t, "add", 6, 4, 4)}, nil)
	require.NotNil(t, ctx)
	assert.Equal(t, map[int]uint32{2: 6, 3: 4}, ctx.GPRs)
	assert.Equal(t, []int{1}, ctx.Insns)
}

func TestMatchOptionalOperand(t *testing.T) {
	words := []uint32{encode(t, "cmpwi", 7, 3, 0)}
	assert.NotNil(t, matchAt(t, compileTest(t, "cmpwi $GPR1, 0"), words, nil))
	assert.NotNil(t, matchAt(t, compileTest(t, "cmpwi cr7, $GPR1, 0"), words, nil))
	assert.Nil(t, matchAt(t, compileTest(t, "cmpwi cr0, $GPR1, 0"), words, nil))
	assert.Nil(t, matchAt(t, compileTest(t, "cmpwi $GPR1, 1"), words, nil))
}

func TestMatchGapConstraints(t *testing.T) {
	li3 := encode(t, "li", 3, 1)
	blr := encode(t, "blr")
	tests := []struct {
		idiom string
		words []uint32
		match bool
	}{
		{"li $GPR1, $IMM?\n... ^[$GPR1]\nblr", []uint32{li3, encode(t, "li", 4, 2), blr}, true},
		{"li $GPR1, $IMM?\n... ^[$GPR1]\nblr", []uint32{li3, encode(t, "li", 3, 2), blr}, false},
		{"li $GPR1, $IMM?\n... ^[$GPR1]\nblr", []uint32{li3, encode(t, "add", 4, 3, 3), blr}, true},
		{"li $GPR1, $IMM?\n... ^{$GPR1}\nblr", []uint32{li3, encode(t, "add", 4, 3, 3), blr}, false},
		{"li $GPR1, $IMM?\n... {$GPR1}\nblr", []uint32{li3, encode(t, "add", 4, 3, 3), blr}, true},
		{"li $GPR1, $IMM?\n... {$GPR1}\nblr", []uint32{li3, encode(t, "li", 4, 2), blr}, false},
		{"li $GPR1, $IMM?\n... {$GPR1}\nblr", []uint32{li3, blr}, true},
		{"li $GPR1, $IMM?\n... [r5]\nblr", []uint32{li3, encode(t, "li", 5, 0), encode(t, "add", 5, 5, 5), blr}, true},
		{"li $GPR1, $IMM?\n... [r5]\nblr", []uint32{li3, encode(t, "li", 5, 0), encode(t, "nop"), blr}, false},
		{"... ^[f1]\nblr", []uint32{encode(t, "fmr", 1, 2), blr}, false},
		{"... ^[f1]\nblr", []uint32{encode(t, "fmr", 2, 1), blr}, true},
		{"... ^[r1]\nblr", []uint32{encode(t, "fmr", 1, 2), blr}, true},
		// Loads with base r0 do not read r0.
		{"... ^{r0}\nblr", []uint32{encode(t, "lwz", 3, 8, 0), blr}, true},
		{"... ^{r1}\nblr", []uint32{encode(t, "lwz", 3, 8, 1), blr}, false},
		// Unknown words access nothing.
		{"... ^[r3] ^{r3}\nblr", []uint32{0x00000000, blr}, true},
	}
	for i, test := range tests {
		p := compileTest(t, test.idiom)
		ctx := matchAt(t, p, test.words, nil)
		assert.Equal(t, test.match, ctx != nil, "test #%v: %q", i, test.idiom)
	}
}

func TestMatchEndOfCode(t *testing.T) {
	li := encode(t, "li", 3, 1)
	// Unterminated gap.
	assert.Nil(t, matchAt(t, compileTest(t, "li $GPR1, $IMM?\n...\nblr"), []uint32{li, encode(t, "nop")}, nil))
	// Instruction stream ends before the pattern.
	assert.Nil(t, matchAt(t, compileTest(t, "li $GPR1, $IMM?\nblr"), []uint32{li}, nil))
	assert.Nil(t, matchAt(t, compileTest(t, "blr"), nil, nil))
}

func TestMatchStartRange(t *testing.T) {
	p := compileTest(t, "blr")
	insns := decode(encode(t, "nop"), encode(t, "blr"))
	_, err := p.MatchAt(insns, -1, nil)
	assert.Error(t, err)
	_, err = p.MatchAt(insns, 3, nil)
	assert.Error(t, err)
	ctx, err := p.MatchAt(insns, 2, nil)
	assert.NoError(t, err)
	assert.Nil(t, ctx)
	ctx, err = p.MatchAt(insns, 1, nil)
	assert.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, []int{1}, ctx.Insns)
}

func TestMatchUnsignedImmediate(t *testing.T) {
	words := []uint32{0x3c608889}
	assert.NotNil(t, matchAt(t, compileTest(t, "lis r3, 0x8889"), words, nil))
	assert.NotNil(t, matchAt(t, compileTest(t, "lis r3, -30583"), words, nil))
	assert.Nil(t, matchAt(t, compileTest(t, "lis r3, 0x8888"), words, nil))
	// Unsigned fields have a single spelling.
	words = []uint32{encode(t, "ori", 3, 3, 0x8889)}
	assert.NotNil(t, matchAt(t, compileTest(t, "ori r3, r3, 0x8889"), words, nil))
	assert.Nil(t, matchAt(t, compileTest(t, "ori r3, r3, -30583"), words, nil))
}

func TestMatchRelocations(t *testing.T) {
	const base = 0x80003000
	words := []uint32{
		encode(t, "lis", 3, 0),
		encode(t, "addi", 3, 3, 0),
		encode(t, "lwz", 4, 0, 3),
	}
	table := reloc.Table{
		base:     {Kind: elf.R_PPC_ADDR16_HA, Symbol: "gTable"},
		base + 4: {Kind: elf.R_PPC_ADDR16_LO, Symbol: "gTable"},
		base + 8: {Kind: elf.R_PPC_ADDR16_LO, Symbol: "gTable", Addend: 0x10},
	}
	tgt := &Target{Base: base, Resolver: table}

	p := compileTest(t, "lis $GPR1, $LAB1@ha\naddi $GPR1, $GPR1, $LAB1@l")
	ctx := matchAt(t, p, words, tgt)
	require.NotNil(t, ctx)
	assert.Equal(t, map[int]reloc.Reloc{1: {Kind: elf.R_PPC_ADDR16_HA, Symbol: "gTable"}}, ctx.Labels)
	assert.Equal(t, "insns [0 1] $GPR1=r3 $LAB1=gTable", ctx.String())

	// Relocation kinds must agree with the suffixes.
	assert.Nil(t, matchAt(t, compileTest(t, "lis $GPR1, $LAB1@l"), words, tgt))
	// Without relocations there is nothing to bind suffixed labels to.
	assert.Nil(t, matchAt(t, p, words, nil))

	// The same label must be referenced by both instructions.
	other := reloc.Table{
		base:     table[base],
		base + 4: {Kind: elf.R_PPC_ADDR16_LO, Symbol: "gOther"},
	}
	assert.Nil(t, matchAt(t, p, words, &Target{Base: base, Resolver: other}))

	p = compileTest(t, "lis $GPR1, gTable@ha\naddi $GPR1, $GPR1, $LAB?\nlwz $GPR?, gTable+0x10@l($GPR1)")
	assert.NotNil(t, matchAt(t, p, words, tgt))
	p = compileTest(t, "lis $GPR1, gTable@ha\naddi $GPR1, $GPR1, $LAB?\nlwz $GPR?, gTable@l($GPR1)")
	assert.Nil(t, matchAt(t, p, words, tgt))
}

func TestMatchBranchLabels(t *testing.T) {
	const base = 0x80000000
	words := []uint32{
		encode(t, "nop"),
		encode(t, "bl", 4),
		encode(t, "bl", -8),
	}
	tgt := &Target{Base: base}
	p := compileTest(t, "nop\nbl $LAB1")
	ctx := matchAt(t, p, words, tgt)
	require.NotNil(t, ctx)
	assert.Equal(t, reloc.Reloc{Symbol: "lbl_80000008"}, ctx.Labels[1])

	assert.NotNil(t, matchAt(t, compileTest(t, "nop\nbl lbl_80000008\nbl lbl_80000000"), words, tgt))
	assert.Nil(t, matchAt(t, compileTest(t, "nop\nbl lbl_80000004"), words, tgt))
	assert.Nil(t, matchAt(t, compileTest(t, "nop\nbl $LAB1\nbl $LAB1"), words, tgt))

	// Relocations take precedence over branch targets.
	tgt.Resolver = reloc.Table{
		base + 4: {Kind: elf.R_PPC_REL24, Symbol: "_ZN3foo3barEv"},
		base + 8: {Kind: elf.R_PPC_REL24, Symbol: "_ZN3foo3barEv"},
	}
	ctx = matchAt(t, compileTest(t, "nop\nbl $LAB1\nbl $LAB1"), words, tgt)
	require.NotNil(t, ctx)
	assert.Equal(t, "insns [0 1 2] $LAB1=_ZN3foo3barEv", ctx.String())
	assert.Equal(t, "insns [0 1 2] $LAB1=foo::bar()", ctx.Demangled())
}

func TestMatchWildcardLabel(t *testing.T) {
	li := []uint32{encode(t, "li", 3, 5)}
	addi := []uint32{encode(t, "addi", 3, 3, 16)}
	ctx := matchAt(t, compileTest(t, "li $GPR1, $LAB?"), li, &Target{Base: 0x80000000})
	require.NotNil(t, ctx)
	assert.Empty(t, ctx.Labels)
	assert.NotNil(t, matchAt(t, compileTest(t, "addi $GPR1, $GPR1, $LAB?"), addi, nil))
	assert.NotNil(t, matchAt(t, compileTest(t, "li $GPR1, $LAB?"), li, &Target{Resolver: reloc.Table{}}))
	// An expected relocation kind still requires a relocation.
	assert.Nil(t, matchAt(t, compileTest(t, "addi $GPR1, $GPR1, $LAB?@l"), addi, nil))
}

func TestMatchUnboundConstraint(t *testing.T) {
	// Compile rejects such patterns, but hand-made ones can still contain them.
	p := &Pattern{
		Name: "handmade",
		Elements: []*Element{{
			Gap: &Gap{Constraints: []Constraint{
				{Kind: KindGPR, Mode: Variable, Value: 5, Access: Write, Forbid: true},
			}},
			Template: &Template{Mnemonic: "blr", Line: 2},
		}},
	}
	insns := decode(encode(t, "nop"), encode(t, "blr"))
	ctx, err := p.MatchAt(insns, 0, nil)
	assert.Nil(t, ctx)
	var idiomErr *Error
	require.True(t, errors.As(err, &idiomErr))
	assert.Equal(t, UnboundConstraintVariable, idiomErr.Kind)
	assert.Equal(t, Pos{File: "handmade", Line: 2}, idiomErr.Pos)

	_, err = p.FindAll(insns, nil, 2)
	assert.Error(t, err)
}

func TestFindAll(t *testing.T) {
	p := compileTest(t, "li $GPR1, $IMM1")
	insns := decode(udivWords...)
	for _, procs := range []int{0, 1, 3, 100} {
		res, err := p.FindAll(insns, nil, procs)
		require.NoError(t, err)
		var starts []int
		for _, ctx := range res {
			starts = append(starts, ctx.Start())
		}
		assert.Equal(t, []int{3, 5}, starts, "procs=%v", procs)
	}
	ctx, err := p.Find(insns, nil)
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, map[int]int64{1: 0}, ctx.Imms)

	res, err := compileTest(t, "fmr $FPR1, $FPR2").FindAll(insns, nil, 2)
	assert.NoError(t, err)
	assert.Empty(t, res)
	res, err = p.FindAll(nil, nil, 4)
	assert.NoError(t, err)
	assert.Empty(t, res)
}
