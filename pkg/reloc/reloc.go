// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package reloc resolves instruction addresses to the relocations applied to them.
// Label operands of idioms are matched against relocation symbols, optionally
// restricted to a relocation kind written as an operand suffix (sym@ha).
package reloc

import (
	"debug/elf"
	"fmt"

	"github.com/ianlancetaylor/demangle"
)

type Reloc struct {
	Kind   elf.R_PPC
	Symbol string
	Addend int64
}

// Text is the label text idioms compare against: sym, sym+0x10 or sym-0x4.
func (r Reloc) Text() string {
	return r.Symbol + addend(r.Addend)
}

// Demangled is Text with C++ symbol names demangled, for display only.
func (r Reloc) Demangled() string {
	return demangle.Filter(r.Symbol) + addend(r.Addend)
}

func (r Reloc) String() string {
	if suffix := Suffix(r.Kind); suffix != "" {
		return r.Text() + "@" + suffix
	}
	return fmt.Sprintf("%v (%v)", r.Text(), r.Kind)
}

func addend(v int64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+0x%x", v)
	case v < 0:
		return fmt.Sprintf("-0x%x", -v)
	}
	return ""
}

// Resolver returns the relocation applied to the instruction at addr.
type Resolver interface {
	Resolve(addr uint32) (Reloc, bool)
}

var suffixes = map[string]elf.R_PPC{
	"ha":    elf.R_PPC_ADDR16_HA,
	"h":     elf.R_PPC_ADDR16_HI,
	"l":     elf.R_PPC_ADDR16_LO,
	"sda21": elf.R_PPC_EMB_SDA21,
}

// ParseSuffix maps an operand suffix (the part after @) to the relocation kind.
func ParseSuffix(s string) (elf.R_PPC, bool) {
	kind, ok := suffixes[s]
	return kind, ok
}

// Suffix is the inverse of ParseSuffix; it returns "" for kinds without a suffix.
func Suffix(kind elf.R_PPC) string {
	for s, k := range suffixes {
		if k == kind {
			return s
		}
	}
	return ""
}

var kindNames = func() map[string]elf.R_PPC {
	names := make(map[string]elf.R_PPC)
	for k := elf.R_PPC(0); k < 256; k++ {
		names[k.String()] = k
	}
	return names
}()

// ParseKind accepts either a suffix (ha) or a full ELF name (R_PPC_ADDR16_HA).
func ParseKind(s string) (elf.R_PPC, error) {
	if kind, ok := ParseSuffix(s); ok {
		return kind, nil
	}
	if kind, ok := kindNames[s]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("unknown relocation kind %q", s)
}
