// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ppc decodes and encodes 32-bit PowerPC machine code.
//
// The opcode table follows the assembler's view of the instruction set: every entry has
// an ordered list of operands in the order they are written in assembly, and extended
// mnemonics (li, lis, mr, srwi, beq, ...) precede the base instructions they are
// derived from, so that decoding picks the most specific spelling.
package ppc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

type InsnBits struct {
	Start  uint // Big endian bit order.
	Length uint
}

// Family is a set of instruction families, used to filter the opcode table.
type Family uint32

const (
	FamilyPPC Family = 1 << iota
	FamilyGekko

	FamilyAll = FamilyPPC | FamilyGekko
)

var familyNames = map[string]Family{
	"ppc":   FamilyPPC,
	"gekko": FamilyGekko,
	"all":   FamilyAll,
}

// ParseFamily parses comma-separated family names (ppc, gekko, all).
func ParseFamily(s string) (Family, error) {
	var fam Family
	for _, name := range strings.Split(s, ",") {
		f, ok := familyNames[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("unknown instruction family %q", name)
		}
		fam |= f
	}
	return fam, nil
}

type OperandKind int

const (
	KindImm  OperandKind = iota
	KindGPR              // general purpose register
	KindGPR0             // general purpose register, r0 reads as literal zero
	KindFPR              // floating point register
	KindCR               // condition register field
)

type OperandFlags uint32

const (
	FlagOptional OperandFlags = 1 << iota
	FlagSigned
	FlagRelative // branch displacement relative to the instruction address
	FlagAbsolute // branch target address
	FlagParens   // the next operand is written in parentheses after this one
	FlagMultiple // register and all registers above it (lmw/stmw)
)

// Access says how an instruction uses a register operand.
type Access int

const (
	Read Access = 1 << iota
	Write

	ReadWrite = Read | Write
)

type Operand struct {
	Name   string
	Kind   OperandKind
	Bits   InsnBits
	Shift  uint // value is stored in the field shifted right by Shift
	Flags  OperandFlags
	Access Access

	// Derived operands of extended mnemonics (e.g. the shift count of srwi)
	// are not stored in a single field.
	extract func(word uint32) int64
	insert  func(word uint32, v int64) uint32
}

func (opnd *Operand) Optional() bool {
	return opnd.Flags&FlagOptional != 0
}

// Register reports whether the operand names a general purpose or floating point register.
func (opnd *Operand) Register() bool {
	return opnd.Kind == KindGPR || opnd.Kind == KindGPR0 || opnd.Kind == KindFPR
}

// Address reports whether the operand is an address-class operand
// (branch target or parenthesized displacement).
func (opnd *Operand) Address() bool {
	return opnd.Flags&(FlagRelative|FlagAbsolute|FlagParens) != 0
}

func (opnd *Operand) Extract(word uint32) int64 {
	if opnd.extract != nil {
		return opnd.extract(word)
	}
	v := extractBits(word, opnd.Bits)
	var res int64
	if opnd.Flags&FlagSigned != 0 {
		sh := 32 - opnd.Bits.Length
		res = int64(int32(v<<sh) >> sh)
	} else {
		res = int64(v)
	}
	return res << opnd.Shift
}

func (opnd *Operand) Insert(word uint32, v int64) (uint32, error) {
	if opnd.insert != nil {
		return opnd.insert(word, v), nil
	}
	if v&(1<<opnd.Shift-1) != 0 {
		return 0, fmt.Errorf("operand %v: value %v is not aligned", opnd.Name, v)
	}
	raw := v >> opnd.Shift
	lo, hi := int64(0), int64(1)<<opnd.Bits.Length
	if opnd.Flags&FlagSigned != 0 {
		// Both the signed and the unsigned view of the field are accepted
		// (lis r3,0x8889 and lis r3,-30583 are the same instruction).
		lo = -(int64(1) << (opnd.Bits.Length - 1))
	}
	if raw < lo || raw >= hi {
		return 0, fmt.Errorf("operand %v: value %v does not fit into %v bits",
			opnd.Name, v, opnd.Bits.Length)
	}
	return word | encodeBits(uint32(raw), opnd.Bits), nil
}

type Opcode struct {
	Name     string
	Opcode   uint32
	Mask     uint32
	Family   Family
	Operands []*Operand

	// check further restricts matching words for extended mnemonics
	// that require two fields to be related (mr is or with RS == RB).
	check func(word uint32) bool
}

func (op *Opcode) matches(word uint32, fam Family) bool {
	return op.Family&fam != 0 && word&op.Mask == op.Opcode && (op.check == nil || op.check(word))
}

var (
	opcodes   []*Opcode
	byName    = make(map[string]*Opcode)
	byPrimary [64][]*Opcode
)

func register(ops ...*Opcode) {
	for _, op := range ops {
		if byName[op.Name] != nil {
			panic(fmt.Sprintf("duplicate opcode %v", op.Name))
		}
		if op.Opcode&^op.Mask != 0 {
			panic(fmt.Sprintf("opcode %v has bits outside of its mask", op.Name))
		}
		if op.Family == 0 {
			op.Family = FamilyPPC
		}
		opcodes = append(opcodes, op)
		byName[op.Name] = op
		primary := op.Opcode >> 26
		byPrimary[primary] = append(byPrimary[primary], op)
	}
}

// Lookup returns the opcode table entry for the mnemonic, or nil.
func Lookup(mnemonic string) *Opcode {
	return byName[mnemonic]
}

// Opcodes returns all table entries in decoding order.
func Opcodes() []*Opcode {
	return opcodes
}

// Insn is a decoded instruction.
// Op is nil if the word does not decode to any instruction of the requested families.
type Insn struct {
	Op   *Opcode
	Word uint32
	Args []int64 // one value per Op.Operands entry
}

// Decode decodes a single instruction word.
func Decode(word uint32, fam Family) *Insn {
	for _, op := range byPrimary[word>>26] {
		if !op.matches(word, fam) {
			continue
		}
		insn := &Insn{
			Op:   op,
			Word: word,
			Args: make([]int64, len(op.Operands)),
		}
		for i, opnd := range op.Operands {
			insn.Args[i] = opnd.Extract(word)
		}
		return insn
	}
	return &Insn{Word: word}
}

func DecodeAll(text []uint32, fam Family) []*Insn {
	insns := make([]*Insn, len(text))
	for i, word := range text {
		insns[i] = Decode(word, fam)
	}
	return insns
}

// Encode assembles an instruction from its mnemonic and operand values
// given in assembly order (for "lwz r3,8(r1)" that is 3, 8, 1).
func Encode(mnemonic string, args ...int64) (uint32, error) {
	op := Lookup(mnemonic)
	if op == nil {
		return 0, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	if len(args) != len(op.Operands) {
		return 0, fmt.Errorf("%v: want %v operands, got %v", mnemonic, len(op.Operands), len(args))
	}
	word := op.Opcode
	for i, opnd := range op.Operands {
		var err error
		if word, err = opnd.Insert(word, args[i]); err != nil {
			return 0, fmt.Errorf("%v: %w", mnemonic, err)
		}
	}
	return word, nil
}

func (insn *Insn) Mnemonic() string {
	if insn.Op == nil {
		return ""
	}
	return insn.Op.Name
}

// Reads reports whether the instruction reads register reg of the given kind
// (KindGPR or KindFPR).
func (insn *Insn) Reads(kind OperandKind, reg uint32) bool {
	return insn.accesses(kind, reg, Read)
}

// Writes reports whether the instruction writes register reg of the given kind.
func (insn *Insn) Writes(kind OperandKind, reg uint32) bool {
	return insn.accesses(kind, reg, Write)
}

func (insn *Insn) accesses(kind OperandKind, reg uint32, access Access) bool {
	if insn.Op == nil {
		return false
	}
	for i, opnd := range insn.Op.Operands {
		if opnd.Access&access == 0 || regKind(opnd.Kind) != regKind(kind) {
			continue
		}
		val := uint32(insn.Args[i])
		switch {
		case opnd.Kind == KindGPR0 && val == 0:
		case opnd.Flags&FlagMultiple != 0:
			if reg >= val {
				return true
			}
		case val == reg:
			return true
		}
	}
	return false
}

func regKind(kind OperandKind) OperandKind {
	if kind == KindGPR0 {
		return KindGPR
	}
	return kind
}

func (insn *Insn) String() string {
	if insn.Op == nil {
		return fmt.Sprintf(".long 0x%08x", insn.Word)
	}
	buf := new(strings.Builder)
	buf.WriteString(insn.Op.Name)
	sep := " "
	for i := 0; i < len(insn.Op.Operands); i++ {
		opnd := insn.Op.Operands[i]
		buf.WriteString(sep)
		sep = ","
		buf.WriteString(formatOperand(opnd, insn.Args[i]))
		if opnd.Flags&FlagParens != 0 && i+1 < len(insn.Op.Operands) {
			i++
			fmt.Fprintf(buf, "(%v)", formatOperand(insn.Op.Operands[i], insn.Args[i]))
		}
	}
	return buf.String()
}

func formatOperand(opnd *Operand, v int64) string {
	switch opnd.Kind {
	case KindGPR, KindGPR0:
		return fmt.Sprintf("r%v", v)
	case KindFPR:
		return fmt.Sprintf("f%v", v)
	case KindCR:
		return fmt.Sprintf("cr%v", v)
	}
	if opnd.Flags&FlagRelative != 0 {
		return fmt.Sprintf(".%+d", v)
	}
	if opnd.Flags&FlagAbsolute != 0 || v > 0xffff {
		return fmt.Sprintf("0x%x", v)
	}
	return fmt.Sprint(v)
}

func extractBits(word uint32, f InsnBits) uint32 {
	return (word >> (31 - (f.Start + f.Length - 1))) & (1<<f.Length - 1)
}

func encodeBits(n uint32, f InsnBits) uint32 {
	mask := uint32(1<<f.Length) - 1
	return (n & mask) << (31 - (f.Start + f.Length - 1))
}

// Words splits big-endian machine code into instruction words.
func Words(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("code size %v is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	return words, nil
}
