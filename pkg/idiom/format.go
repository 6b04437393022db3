// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/reloc"
)

// Format renders the pattern as canonical idiom source.
// Compiling the result yields the same pattern except for line numbers.
func Format(p *Pattern) []byte {
	buf := new(bytes.Buffer)
	for _, elem := range p.Elements {
		if elem.Gap != nil {
			formatGap(buf, elem.Gap)
		}
		formatTemplate(buf, elem.Template)
	}
	return buf.Bytes()
}

// formatGap writes one gap line per run of constraints that fits on a line
// (one read list and one write list), preserving the constraint order.
func formatGap(buf *bytes.Buffer, gap *Gap) {
	if len(gap.Constraints) == 0 {
		fmt.Fprintf(buf, "%v\n", gapMarker)
		return
	}
	type list struct {
		access Access
		forbid bool
		regs   []string
	}
	var lines [][]*list
	var cur []*list
	for _, c := range gap.Constraints {
		last := len(cur) - 1
		if last >= 0 && cur[last].access == c.Access && cur[last].forbid == c.Forbid {
			cur[last].regs = append(cur[last].regs, formatConstraint(c))
			continue
		}
		if last >= 0 && (last == 1 || cur[last].access == c.Access) {
			lines = append(lines, cur)
			cur = nil
		}
		cur = append(cur, &list{access: c.Access, forbid: c.Forbid, regs: []string{formatConstraint(c)}})
	}
	lines = append(lines, cur)
	for _, ln := range lines {
		buf.WriteString(gapMarker)
		for _, l := range ln {
			buf.WriteByte(' ')
			if l.forbid {
				buf.WriteByte('^')
			}
			opening, closing := "{", "}"
			if l.access == Write {
				opening, closing = "[", "]"
			}
			fmt.Fprintf(buf, "%v%v%v", opening, strings.Join(l.regs, ", "), closing)
		}
		buf.WriteByte('\n')
	}
}

func formatConstraint(c Constraint) string {
	return formatRegister(Rule{Kind: c.Kind, Mode: c.Mode, ID: c.Value, Value: int64(c.Value)})
}

func formatTemplate(buf *bytes.Buffer, tmpl *Template) {
	buf.WriteString(tmpl.Mnemonic)
	op := ppc.Lookup(tmpl.Mnemonic)
	rules := make(map[int]Rule)
	for _, rule := range tmpl.Rules {
		rules[rule.Slot] = rule
	}
	sep := " "
	for slot := 0; op != nil && slot < len(op.Operands); slot++ {
		opnd := op.Operands[slot]
		rule, ok := rules[slot]
		if !ok {
			continue
		}
		buf.WriteString(sep)
		sep = ", "
		buf.WriteString(formatRule(opnd, rule))
		if opnd.Flags&ppc.FlagParens != 0 && slot+1 < len(op.Operands) {
			if inner, ok := rules[slot+1]; ok {
				fmt.Fprintf(buf, "(%v)", formatRule(op.Operands[slot+1], inner))
				slot++
			}
		}
	}
	buf.WriteByte('\n')
}

func formatRule(opnd *ppc.Operand, rule Rule) string {
	switch rule.Kind {
	case KindGPR, KindFPR:
		return formatRegister(rule)
	case KindImm:
		switch rule.Mode {
		case Wildcard:
			return prefixIMM + wildcard
		case Variable:
			return fmt.Sprintf("%v%v", prefixIMM, rule.ID)
		}
		if opnd.Kind == ppc.KindCR {
			return fmt.Sprintf("cr%v", rule.Value)
		}
		return formatImm(rule.Value)
	case KindLabel:
		var res string
		switch rule.Mode {
		case Wildcard:
			res = prefixLAB + wildcard
		case Variable:
			res = fmt.Sprintf("%v%v", prefixLAB, rule.ID)
		default:
			res = rule.Label
		}
		if suffix := reloc.Suffix(rule.Reloc); suffix != "" {
			res += "@" + suffix
		}
		return res
	}
	return fmt.Sprintf("<bad rule %+v>", rule)
}

func formatRegister(rule Rule) string {
	prefix, short := prefixGPR, "r"
	if rule.Kind == KindFPR {
		prefix, short = prefixFPR, "f"
	}
	switch rule.Mode {
	case Wildcard:
		return prefix + wildcard
	case Variable:
		return fmt.Sprintf("%v%v", prefix, rule.ID)
	}
	return fmt.Sprintf("%v%v", short, rule.Value)
}

func formatImm(v int64) string {
	switch {
	case v >= 0x100:
		return fmt.Sprintf("0x%x", v)
	case v <= -0x100:
		return fmt.Sprintf("-0x%x", -v)
	}
	return fmt.Sprint(v)
}
