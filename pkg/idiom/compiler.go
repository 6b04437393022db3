// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/ppcidiom/pkg/log"
	"github.com/google/ppcidiom/pkg/osutil"
	"github.com/google/ppcidiom/pkg/ppc"
)

// Ext is the file extension of idiom sources.
const Ext = ".idiom"

// Compile compiles idiom source text. Errors are reported to eh
// (LoggingHandler if nil); Compile returns nil if there were any errors.
// Compilation stops at the first error.
func Compile(data []byte, filename string, eh ErrorHandler) *Pattern {
	if eh == nil {
		eh = LoggingHandler
	}
	comp := &compiler{
		eh:    eh,
		bound: make(map[OperandKind]map[int]bool),
	}
	p := comp.compile(newScanner(data, filename), filename)
	if p == nil || comp.errors != 0 {
		return nil
	}
	log.Logf(2, "compiled %v: %v instructions", filename, len(p.Elements))
	return p
}

// CompileFile reads and compiles an idiom file.
func CompileFile(file string, eh ErrorHandler) *Pattern {
	if eh == nil {
		eh = LoggingHandler
	}
	data, err := osutil.ReadFile(file)
	if err != nil {
		eh(newError(MalformedLine, Pos{File: file}, "", "%v", err))
		return nil
	}
	return Compile(data, file, eh)
}

// PatternName derives the pattern name from the idiom file name.
func PatternName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), Ext)
}

type compiler struct {
	eh     ErrorHandler
	errors int
	// Variables bound by already compiled templates.
	bound map[OperandKind]map[int]bool
}

func newError(kind ErrorKind, pos Pos, token, msg string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		Pos:   pos,
		Token: token,
		Msg:   fmt.Sprintf(msg, args...),
	}
}

func (comp *compiler) error(kind ErrorKind, pos Pos, token, msg string, args ...interface{}) {
	comp.errors++
	comp.eh(newError(kind, pos, token, msg, args...))
}

func (comp *compiler) compile(s *scanner, filename string) *Pattern {
	p := &Pattern{Name: PatternName(filename)}
	var gap *Gap
	var gapPos Pos
	for ln := s.Scan(); ln != nil; ln = s.Scan() {
		switch ln.kind {
		case lineGap:
			if gap == nil {
				gap, gapPos = new(Gap), ln.pos
			}
			for _, list := range ln.lists {
				for _, tok := range list.tokens {
					c, ok := comp.constraint(ln.pos, list, tok)
					if !ok {
						return nil
					}
					gap.Constraints = append(gap.Constraints, c)
				}
			}
		case lineInsn:
			tmpl := comp.template(ln)
			if tmpl == nil {
				return nil
			}
			p.Elements = append(p.Elements, &Element{Gap: gap, Template: tmpl})
			gap = nil
			comp.bind(tmpl)
		}
	}
	if err := s.Err(); err != nil {
		comp.errors++
		comp.eh(err)
		return nil
	}
	if gap != nil {
		comp.error(MalformedLine, gapPos, gapMarker, "%v is not followed by an instruction", gapMarker)
		return nil
	}
	if len(p.Elements) == 0 {
		comp.error(MalformedLine, Pos{File: filename}, "", "idiom has no instructions")
		return nil
	}
	return p
}

func (comp *compiler) template(ln *line) *Template {
	op := ppc.Lookup(ln.mnemonic)
	if op == nil {
		comp.error(UnknownMnemonic, ln.pos, ln.mnemonic, "unknown mnemonic")
		return nil
	}
	tmpl := &Template{
		Mnemonic: ln.mnemonic,
		Line:     ln.pos.Line,
	}
	tokens := splitOperands(ln.operands)
	if len(tokens) < len(op.Operands) {
		for _, opnd := range op.Operands {
			if opnd.Optional() {
				tmpl.SkipOptional = true
			}
		}
	}
	next := 0
	for slot, opnd := range op.Operands {
		if tmpl.SkipOptional && opnd.Optional() {
			continue
		}
		if next == len(tokens) {
			comp.error(MissingOperand, ln.pos, ln.text, "missing operand %v of %v", opnd.Name, op.Name)
			return nil
		}
		token := tokens[next]
		next++
		rule, err := compileOperand(opnd, slot, token)
		if err != nil {
			comp.error(err.kind, ln.pos, token, "operand %v of %v: %v", opnd.Name, op.Name, err.msg)
			return nil
		}
		tmpl.Rules = append(tmpl.Rules, rule)
	}
	if next != len(tokens) {
		log.Logf(2, "%v: ignoring trailing operands %q", ln.pos, tokens[next:])
	}
	return tmpl
}

func (comp *compiler) bind(tmpl *Template) {
	for _, rule := range tmpl.Rules {
		if rule.Mode != Variable {
			continue
		}
		if comp.bound[rule.Kind] == nil {
			comp.bound[rule.Kind] = make(map[int]bool)
		}
		comp.bound[rule.Kind][rule.ID] = true
	}
}

func (comp *compiler) constraint(pos Pos, list gapList, token string) (Constraint, bool) {
	c := Constraint{
		Access: list.access,
		Forbid: list.negate,
	}
	var rule Rule
	var err *operandError
	switch {
	case strings.HasPrefix(token, prefixFPR) || fprRe.MatchString(token):
		rule, err = compileRegister(KindFPR, prefixFPR, fprRe, 0, token)
	default:
		rule, err = compileRegister(KindGPR, prefixGPR, gprRe, 0, token)
	}
	if err != nil {
		comp.error(err.kind, pos, token, "gap constraint: %v", err.msg)
		return c, false
	}
	c.Kind, c.Mode = rule.Kind, rule.Mode
	switch rule.Mode {
	case Wildcard:
		comp.error(ExpectedRegisterOperand, pos, token, "gap constraint: wildcard register")
		return c, false
	case Variable:
		if !comp.bound[rule.Kind][rule.ID] {
			comp.error(UnboundConstraintVariable, pos, token,
				"gap constraint refers to a variable that is not bound by a preceding instruction")
			return c, false
		}
		c.Value = rule.ID
	case Defined:
		c.Value = int(rule.Value)
	}
	return c, true
}
