// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/reloc"
)

const (
	prefixGPR = "$GPR"
	prefixFPR = "$FPR"
	prefixIMM = "$IMM"
	prefixLAB = "$LAB"
	wildcard  = "?"
)

var (
	gprRe     = regexp.MustCompile(`^r(\d\d?)$`)
	fprRe     = regexp.MustCompile(`^f(\d\d?)$`)
	crRe      = regexp.MustCompile(`^cr([0-7])$`)
	literalRe = regexp.MustCompile(`^-?(?:0[xX][0-9a-fA-F]+|\d+)$`)
	labelRe   = regexp.MustCompile(`^([_a-zA-Z.][_a-zA-Z0-9.$]*)(?:([+-])0[xX]([0-9a-fA-F]+))?$`)
)

// operandError is a failure to compile a single operand token.
type operandError struct {
	kind ErrorKind
	msg  string
}

func operandErr(kind ErrorKind, msg string) *operandError {
	return &operandError{kind, msg}
}

// compileOperand compiles the operand token written for the decoder operand slot.
// The token grammar is selected by the slot kind; the first matching form wins.
func compileOperand(opnd *ppc.Operand, slot int, token string) (Rule, *operandError) {
	switch opnd.Kind {
	case ppc.KindGPR, ppc.KindGPR0:
		return compileRegister(KindGPR, prefixGPR, gprRe, slot, token)
	case ppc.KindFPR:
		return compileRegister(KindFPR, prefixFPR, fprRe, slot, token)
	case ppc.KindCR:
		if m := crRe.FindStringSubmatch(token); m != nil {
			n, _ := strconv.Atoi(m[1])
			return Rule{Slot: slot, Kind: KindImm, Mode: Defined, Value: int64(n)}, nil
		}
	}
	return compileExpression(slot, token)
}

func compileRegister(kind OperandKind, prefix string, re *regexp.Regexp, slot int,
	token string) (Rule, *operandError) {
	rule := Rule{Slot: slot, Kind: kind}
	if rest, ok := strings.CutPrefix(token, prefix); ok {
		mode, id, err := compileVariable(rest)
		if err != nil {
			return rule, err
		}
		rule.Mode, rule.ID = mode, id
		return rule, nil
	}
	if m := re.FindStringSubmatch(token); m != nil {
		n, _ := strconv.Atoi(m[1])
		rule.Mode, rule.Value = Defined, int64(n)
		return rule, nil
	}
	return rule, operandErr(ExpectedRegisterOperand, "expected "+prefix+"n, "+prefix+"? or a "+kind.String()+" register")
}

// compileVariable parses what follows a variable prefix: "?" or a decimal id.
func compileVariable(rest string) (Mode, int, *operandError) {
	if rest == wildcard {
		return Wildcard, 0, nil
	}
	id, err := strconv.ParseUint(rest, 10, 31)
	if err != nil {
		return 0, 0, operandErr(InvalidVariableOrLiteral, "bad variable id")
	}
	return Variable, int(id), nil
}

func compileExpression(slot int, token string) (Rule, *operandError) {
	base, suffix, hasSuffix := strings.Cut(token, "@")
	rule := Rule{Slot: slot}
	switch {
	case strings.HasPrefix(base, prefixLAB):
		mode, id, err := compileVariable(base[len(prefixLAB):])
		if err != nil {
			return rule, err
		}
		rule.Kind, rule.Mode, rule.ID = KindLabel, mode, id
	case labelRe.MatchString(base):
		m := labelRe.FindStringSubmatch(base)
		r := reloc.Reloc{Symbol: m[1]}
		if m[3] != "" {
			addend, err := strconv.ParseInt(m[3], 16, 64)
			if err != nil {
				return rule, operandErr(InvalidVariableOrLiteral, "bad label addend")
			}
			if m[2] == "-" {
				addend = -addend
			}
			r.Addend = addend
		}
		rule.Kind, rule.Mode, rule.Label = KindLabel, Defined, r.Text()
	case strings.HasPrefix(base, prefixIMM):
		mode, id, err := compileVariable(base[len(prefixIMM):])
		if err != nil {
			return rule, err
		}
		rule.Kind, rule.Mode, rule.ID = KindImm, mode, id
	case literalRe.MatchString(base):
		v, err := parseLiteral(base)
		if err != nil {
			return rule, operandErr(InvalidVariableOrLiteral, "immediate is out of range")
		}
		rule.Kind, rule.Mode, rule.Value = KindImm, Defined, v
	case base != "" && (base[0] == '-' || base[0] >= '0' && base[0] <= '9'):
		return rule, operandErr(InvalidVariableOrLiteral, "bad immediate literal")
	default:
		return rule, operandErr(ExpectedOperandExpression,
			"expected $LABn, $LAB?, a label, $IMMn, $IMM? or an immediate")
	}
	if !hasSuffix {
		return rule, nil
	}
	if rule.Kind != KindLabel {
		return rule, operandErr(ExpectedOperandExpression, "relocation specifier on a non-label operand")
	}
	kind, ok := reloc.ParseSuffix(suffix)
	if !ok {
		return rule, operandErr(UnknownRelocationSpecifier, "unknown relocation specifier @"+suffix)
	}
	rule.Reloc = kind
	return rule, nil
}

func parseLiteral(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseInt(s, base, 64)
	if neg {
		v = -v
	}
	return v, err
}

// splitOperands splits the operand part of an instruction line into tokens.
// Parentheses separate tokens like commas do: 0x14(r28) is two tokens.
func splitOperands(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '(' || r == ')' || r == ' ' || r == '\t'
	})
}
