// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"fmt"
	"runtime"

	"github.com/google/ppcidiom/pkg/log"
	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/reloc"
	"golang.org/x/sync/errgroup"
)

// MatchAt matches the pattern against insns starting exactly at index start.
// It returns nil context and nil error if the pattern does not match.
// The only error is an unbound variable in a gap constraint of a pattern
// that was not produced by Compile.
func (p *Pattern) MatchAt(insns []*ppc.Insn, start int, tgt *Target) (*Context, error) {
	if start < 0 || start > len(insns) {
		return nil, fmt.Errorf("start index %v is out of range [0, %v]", start, len(insns))
	}
	if tgt == nil {
		tgt = new(Target)
	}
	m := &matcher{
		p:     p,
		insns: insns,
		tgt:   tgt,
		start: start,
		ctx:   newContext(),
	}
	ok, err := m.match()
	if err != nil || !ok {
		return nil, err
	}
	return m.ctx, nil
}

// Find tries all start indices in order and returns the first match.
func (p *Pattern) Find(insns []*ppc.Insn, tgt *Target) (*Context, error) {
	for start := range insns {
		ctx, err := p.MatchAt(insns, start, tgt)
		if err != nil || ctx != nil {
			return ctx, err
		}
	}
	return nil, nil
}

// FindAll returns matches at all start indices ordered by start index.
// Start indices are split between procs goroutines (GOMAXPROCS if procs <= 0);
// matches may overlap.
func (p *Pattern) FindAll(insns []*ppc.Insn, tgt *Target, procs int) ([]*Context, error) {
	if procs <= 0 {
		procs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Context, len(insns))
	chunk := max((len(insns)+procs-1)/procs, 1)
	var g errgroup.Group
	for from := 0; from < len(insns); from += chunk {
		to := min(from+chunk, len(insns))
		g.Go(func() error {
			for start := from; start < to; start++ {
				ctx, err := p.MatchAt(insns, start, tgt)
				if err != nil {
					return err
				}
				results[start] = ctx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var res []*Context
	for _, ctx := range results {
		if ctx != nil {
			res = append(res, ctx)
		}
	}
	return res, nil
}

type matcher struct {
	p     *Pattern
	insns []*ppc.Insn
	tgt   *Target
	start int
	ctx   *Context
}

// binding is a variable binding made by a template probe, committed only if
// the whole template is satisfied.
type binding struct {
	kind  OperandKind
	id    int
	reg   uint32
	imm   int64
	label reloc.Reloc
}

// regCheck is a gap constraint with its register resolved.
type regCheck struct {
	kind   ppc.OperandKind
	reg    uint32
	access Access
	forbid bool
}

func (m *matcher) match() (bool, error) {
	pos := m.start
	for _, elem := range m.p.Elements {
		tmpl := elem.Template
		if elem.Gap == nil {
			if pos == len(m.insns) {
				m.mismatch("line %v: end of code", tmpl.Line)
				return false, nil
			}
			if !m.try(pos, tmpl) {
				m.mismatch("line %v: %v does not match %v", tmpl.Line, pos, m.insns[pos])
				return false, nil
			}
			pos++
			continue
		}
		checks, err := m.resolveGap(elem.Gap, tmpl)
		if err != nil {
			return false, err
		}
		for ; ; pos++ {
			if pos == len(m.insns) {
				m.mismatch("line %v: unterminated gap", tmpl.Line)
				return false, nil
			}
			if m.try(pos, tmpl) {
				pos++
				break
			}
			if !m.checkGap(checks, pos) {
				return false, nil
			}
		}
	}
	return true, nil
}

// try probes the instruction at index idx and commits the bindings if it satisfies the template.
func (m *matcher) try(idx int, tmpl *Template) bool {
	bindings, ok := m.probe(idx, tmpl)
	if !ok {
		return false
	}
	for _, b := range bindings {
		switch b.kind {
		case KindGPR:
			m.ctx.GPRs[b.id] = b.reg
		case KindFPR:
			m.ctx.FPRs[b.id] = b.reg
		case KindImm:
			m.ctx.Imms[b.id] = b.imm
		case KindLabel:
			m.ctx.Labels[b.id] = b.label
		}
	}
	m.ctx.Insns = append(m.ctx.Insns, idx)
	return true
}

// probe checks the instruction against the template without modifying the context.
func (m *matcher) probe(idx int, tmpl *Template) ([]binding, bool) {
	insn := m.insns[idx]
	if insn.Op == nil || insn.Op.Name != tmpl.Mnemonic {
		return nil, false
	}
	var pending []binding
	lookup := func(kind OperandKind, id int) (binding, bool) {
		for _, b := range pending {
			if b.kind == kind && b.id == id {
				return b, true
			}
		}
		b := binding{kind: kind, id: id}
		var ok bool
		switch kind {
		case KindGPR:
			b.reg, ok = m.ctx.GPRs[id]
		case KindFPR:
			b.reg, ok = m.ctx.FPRs[id]
		case KindImm:
			b.imm, ok = m.ctx.Imms[id]
		case KindLabel:
			b.label, ok = m.ctx.Labels[id]
		}
		return b, ok
	}
	for _, rule := range tmpl.Rules {
		if rule.Slot >= len(insn.Args) {
			return nil, false
		}
		opnd, arg := insn.Op.Operands[rule.Slot], insn.Args[rule.Slot]
		switch rule.Kind {
		case KindGPR, KindFPR:
			reg := uint32(arg)
			switch rule.Mode {
			case Defined:
				if int64(reg) != rule.Value {
					return nil, false
				}
			case Variable:
				if b, ok := lookup(rule.Kind, rule.ID); ok {
					if b.reg != reg {
						return nil, false
					}
				} else {
					pending = append(pending, binding{kind: rule.Kind, id: rule.ID, reg: reg})
				}
			}
		case KindImm:
			switch rule.Mode {
			case Defined:
				if !immEqual(opnd, rule.Value, arg) {
					return nil, false
				}
			case Variable:
				if b, ok := lookup(KindImm, rule.ID); ok {
					if b.imm != arg {
						return nil, false
					}
				} else {
					pending = append(pending, binding{kind: KindImm, id: rule.ID, imm: arg})
				}
			}
		case KindLabel:
			if rule.Mode == Wildcard && rule.Reloc == 0 {
				continue
			}
			label, ok := m.label(idx, insn, rule)
			if !ok {
				return nil, false
			}
			switch rule.Mode {
			case Defined:
				if label.Text() != rule.Label {
					return nil, false
				}
			case Variable:
				if b, ok := lookup(KindLabel, rule.ID); ok {
					if b.label.Text() != label.Text() {
						return nil, false
					}
				} else {
					pending = append(pending, binding{kind: KindLabel, id: rule.ID, label: label})
				}
			}
		default:
			return nil, false
		}
	}
	return pending, true
}

// immEqual compares a literal with a decoded immediate. Signed fields also
// match the unsigned spelling of the same bits (lis r3,0x8889 is lis r3,-30583).
func immEqual(opnd *ppc.Operand, want, got int64) bool {
	if want == got {
		return true
	}
	if opnd.Flags&ppc.FlagSigned == 0 || opnd.Shift != 0 || want < 0 {
		return false
	}
	return want == got&(int64(1)<<opnd.Bits.Length-1)
}

// label resolves the label operand of the instruction at index idx.
// Operands without a relocation get a synthetic lbl_XXXXXXXX name of the
// branch target, but only if the rule does not require a relocation kind.
func (m *matcher) label(idx int, insn *ppc.Insn, rule Rule) (reloc.Reloc, bool) {
	addr := m.tgt.Base + 4*uint32(idx)
	if m.tgt.Resolver != nil {
		if r, ok := m.tgt.Resolver.Resolve(addr); ok {
			if rule.Reloc != 0 && r.Kind != rule.Reloc {
				return reloc.Reloc{}, false
			}
			return r, true
		}
	}
	if rule.Reloc != 0 {
		return reloc.Reloc{}, false
	}
	opnd, arg := insn.Op.Operands[rule.Slot], insn.Args[rule.Slot]
	var target uint32
	switch {
	case opnd.Flags&ppc.FlagRelative != 0:
		target = addr + uint32(arg)
	case opnd.Flags&ppc.FlagAbsolute != 0:
		target = uint32(arg)
	default:
		return reloc.Reloc{}, false
	}
	return reloc.Reloc{Symbol: fmt.Sprintf("lbl_%08X", target)}, true
}

func (m *matcher) resolveGap(gap *Gap, tmpl *Template) ([]regCheck, error) {
	var checks []regCheck
	for _, c := range gap.Constraints {
		check := regCheck{
			kind:   ppc.KindGPR,
			reg:    uint32(c.Value),
			access: c.Access,
			forbid: c.Forbid,
		}
		bindings := m.ctx.GPRs
		prefix := prefixGPR
		if c.Kind == KindFPR {
			check.kind, bindings, prefix = ppc.KindFPR, m.ctx.FPRs, prefixFPR
		}
		if c.Mode == Variable {
			reg, ok := bindings[c.Value]
			if !ok {
				return nil, newError(UnboundConstraintVariable, Pos{File: m.p.Name, Line: tmpl.Line},
					fmt.Sprintf("%v%v", prefix, c.Value),
					"gap constraint refers to a variable that is not bound by a preceding instruction")
			}
			check.reg = reg
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// checkGap checks that the skipped instruction at index idx satisfies all gap constraints.
func (m *matcher) checkGap(checks []regCheck, idx int) bool {
	insn := m.insns[idx]
	for _, c := range checks {
		var accessed bool
		if c.access == Read {
			accessed = insn.Reads(c.kind, c.reg)
		} else {
			accessed = insn.Writes(c.kind, c.reg)
		}
		if accessed == c.forbid {
			m.mismatch("skipped %v: %v: %v of register %v violates gap constraint", idx, insn, c.access, c.reg)
			return false
		}
	}
	return true
}

func (m *matcher) mismatch(msg string, args ...interface{}) {
	if log.V(3) {
		log.Logf(3, "%v at %v: %v", m.p.Name, m.start, fmt.Sprintf(msg, args...))
	}
}
