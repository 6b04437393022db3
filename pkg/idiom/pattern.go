// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package idiom compiles instruction idioms and matches them against PowerPC code.
//
// An idiom is a sequence of assembly lines with placeholders:
//
//	lis    $GPR1, $IMM1
//	...    ^[$GPR1]           // any instructions that do not write $GPR1
//	addi   $GPR2, $GPR1, $IMM2
//	lwz    $GPR?, lbl@l($GPR2)
//
// $GPRn, $FPRn, $IMMn and $LABn bind the operand on first use and require the same
// value on every further use; $GPR? and friends match anything; r3, f1, 0x10 and
// identifiers require exactly that value. A "..." line skips any number of
// instructions, optionally requiring ({reads} [writes]) or forbidding (^{...} ^[...])
// register accesses in the skipped instructions.
package idiom

import (
	"debug/elf"
	"fmt"
	"sort"
	"strings"
)

type OperandKind int

const (
	KindGPR OperandKind = iota + 1
	KindFPR
	KindImm
	KindLabel
)

type Mode int

const (
	Wildcard Mode = iota + 1
	Variable
	Defined
)

type Access int

const (
	Read Access = iota + 1
	Write
)

// Rule says how a single operand of an instruction is matched.
type Rule struct {
	Slot  int         `json:"slot"` // index of the operand in the decoded instruction
	Kind  OperandKind `json:"kind"`
	Mode  Mode        `json:"mode"`
	ID    int         `json:"id,omitempty"`    // variable id for Variable
	Value int64       `json:"value,omitempty"` // register number or immediate for Defined
	Label string      `json:"label,omitempty"` // label text for Defined labels
	Reloc elf.R_PPC   `json:"reloc,omitempty"` // expected relocation kind of labels, 0 for any
}

// Template matches a single instruction.
type Template struct {
	Mnemonic string `json:"mnemonic"`
	Rules    []Rule `json:"rules,omitempty"`
	// Optional operands were omitted on the idiom line and are not matched.
	SkipOptional bool `json:"skip_optional,omitempty"`
	Line         int  `json:"line,omitempty"`
}

// Constraint restricts register accesses of instructions skipped by a gap.
type Constraint struct {
	Kind   OperandKind `json:"kind"` // KindGPR or KindFPR
	Mode   Mode        `json:"mode"` // Variable or Defined
	Value  int         `json:"value"`
	Access Access      `json:"access"`
	Forbid bool        `json:"forbid,omitempty"`
}

type Gap struct {
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Element is a template optionally preceded by a gap.
type Element struct {
	Gap      *Gap      `json:"gap,omitempty"`
	Template *Template `json:"template"`
}

// Pattern is a compiled idiom. It is immutable and can be matched concurrently.
type Pattern struct {
	Name     string     `json:"name"`
	Elements []*Element `json:"elements"`
}

// Vars returns sorted ids of variables of the given kind used by the pattern.
func (p *Pattern) Vars(kind OperandKind) []int {
	ids := make(map[int]bool)
	for _, elem := range p.Elements {
		for _, rule := range elem.Template.Rules {
			if rule.Kind == kind && rule.Mode == Variable {
				ids[rule.ID] = true
			}
		}
	}
	var res []int
	for id := range ids {
		res = append(res, id)
	}
	sort.Ints(res)
	return res
}

// HasLabels reports whether matching needs a Target to resolve label operands.
func (p *Pattern) HasLabels() bool {
	for _, elem := range p.Elements {
		for _, rule := range elem.Template.Rules {
			if rule.Kind == KindLabel {
				return true
			}
		}
	}
	return false
}

var (
	kindStrings   = [...]string{KindGPR: "gpr", KindFPR: "fpr", KindImm: "imm", KindLabel: "label"}
	modeStrings   = [...]string{Wildcard: "any", Variable: "var", Defined: "def"}
	accessStrings = [...]string{Read: "read", Write: "write"}
)

func (kind OperandKind) String() string {
	return enumString(kindStrings[:], int(kind))
}

func (mode Mode) String() string {
	return enumString(modeStrings[:], int(mode))
}

func (access Access) String() string {
	return enumString(accessStrings[:], int(access))
}

func (kind OperandKind) MarshalText() ([]byte, error) {
	return marshalEnum(kindStrings[:], int(kind))
}

func (kind *OperandKind) UnmarshalText(text []byte) error {
	return unmarshalEnum(kindStrings[:], text, (*int)(kind))
}

func (mode Mode) MarshalText() ([]byte, error) {
	return marshalEnum(modeStrings[:], int(mode))
}

func (mode *Mode) UnmarshalText(text []byte) error {
	return unmarshalEnum(modeStrings[:], text, (*int)(mode))
}

func (access Access) MarshalText() ([]byte, error) {
	return marshalEnum(accessStrings[:], int(access))
}

func (access *Access) UnmarshalText(text []byte) error {
	return unmarshalEnum(accessStrings[:], text, (*int)(access))
}

func enumString(names []string, v int) string {
	if v <= 0 || v >= len(names) {
		return fmt.Sprintf("%d", v)
	}
	return names[v]
}

func marshalEnum(names []string, v int) ([]byte, error) {
	if v <= 0 || v >= len(names) {
		return nil, fmt.Errorf("bad enum value %d", v)
	}
	return []byte(names[v]), nil
}

func unmarshalEnum(names []string, text []byte, v *int) error {
	for i, name := range names {
		if name != "" && name == string(text) {
			*v = i
			return nil
		}
	}
	return fmt.Errorf("unknown value %q", text)
}

// GoString methods let generated code refer to the enum constants by name.

func (kind OperandKind) GoString() string {
	return goEnum(kindStrings[:], int(kind), "Kind", "OperandKind")
}

func (mode Mode) GoString() string {
	switch mode {
	case Wildcard:
		return "Wildcard"
	case Variable:
		return "Variable"
	case Defined:
		return "Defined"
	}
	return fmt.Sprintf("Mode(%d)", int(mode))
}

func (access Access) GoString() string {
	return goEnum(accessStrings[:], int(access), "", "Access")
}

func goEnum(names []string, v int, prefix, typ string) string {
	if v <= 0 || v >= len(names) {
		return fmt.Sprintf("%v(%d)", typ, v)
	}
	name := names[v]
	switch name {
	case "gpr", "fpr":
		name = strings.ToUpper(name)
	default:
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return prefix + name
}
