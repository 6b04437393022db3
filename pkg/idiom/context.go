// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/ppcidiom/pkg/reloc"
)

// Context holds the result of a successful match: variable bindings and
// indices of the instructions that matched the templates, in pattern order.
type Context struct {
	GPRs   map[int]uint32
	FPRs   map[int]uint32
	Imms   map[int]int64
	Labels map[int]reloc.Reloc
	Insns  []int
}

func newContext() *Context {
	return &Context{
		GPRs:   make(map[int]uint32),
		FPRs:   make(map[int]uint32),
		Imms:   make(map[int]int64),
		Labels: make(map[int]reloc.Reloc),
	}
}

// Target describes where the matched code lives.
// Instruction i is at address Base+4*i; Resolver is consulted for label operands.
type Target struct {
	Base     uint32
	Resolver reloc.Resolver
}

// Start is the index of the first matched instruction.
func (ctx *Context) Start() int {
	return ctx.Insns[0]
}

// Span is the number of instructions from the first to the last matched one.
func (ctx *Context) Span() int {
	return ctx.Insns[len(ctx.Insns)-1] - ctx.Insns[0] + 1
}

func (ctx *Context) String() string {
	return ctx.format(reloc.Reloc.Text)
}

// Demangled is like String, but prints label symbols demangled.
func (ctx *Context) Demangled() string {
	return ctx.format(reloc.Reloc.Demangled)
}

func (ctx *Context) format(label func(reloc.Reloc) string) string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "insns %v", ctx.Insns)
	for _, id := range sortedKeys(ctx.GPRs) {
		fmt.Fprintf(buf, " %v%v=r%v", prefixGPR, id, ctx.GPRs[id])
	}
	for _, id := range sortedKeys(ctx.FPRs) {
		fmt.Fprintf(buf, " %v%v=f%v", prefixFPR, id, ctx.FPRs[id])
	}
	for _, id := range sortedKeys(ctx.Imms) {
		fmt.Fprintf(buf, " %v%v=%v", prefixIMM, id, ctx.Imms[id])
	}
	for _, id := range sortedKeys(ctx.Labels) {
		fmt.Fprintf(buf, " %v%v=%v", prefixLAB, id, label(ctx.Labels[id]))
	}
	return buf.String()
}

func sortedKeys[V any](m map[int]V) []int {
	var keys []int
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
