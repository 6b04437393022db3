// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package reloc

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/ppcidiom/pkg/ppc"
)

// Object is the code of a relocatable PowerPC object file.
type Object struct {
	Base   uint32 // address of the first text word
	Text   []uint32
	Relocs Table
}

// LoadELF reads .text and its .rela.text relocations from a 32-bit big-endian PowerPC ELF file.
func LoadELF(file string) (*Object, error) {
	f, err := elf.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	obj, err := loadELF(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", file, err)
	}
	return obj, nil
}

func loadELF(f *elf.File) (*Object, error) {
	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_PPC || f.ByteOrder != binary.BigEndian {
		return nil, fmt.Errorf("not a 32-bit big-endian PowerPC file (%v %v)", f.Class, f.Machine)
	}
	text := f.Section(".text")
	if text == nil {
		return nil, fmt.Errorf("no .text section")
	}
	data, err := text.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read .text: %w", err)
	}
	words, err := ppc.Words(data)
	if err != nil {
		return nil, fmt.Errorf(".text: %w", err)
	}
	obj := &Object{
		Base:   uint32(text.Addr),
		Text:   words,
		Relocs: make(Table),
	}
	rela := f.Section(".rela.text")
	if rela == nil {
		return obj, nil
	}
	relaData, err := rela.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read .rela.text: %w", err)
	}
	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, err
	}
	symbol := func(idx uint32) (string, error) {
		// Symbols omits the null symbol at index 0.
		if idx == 0 || int(idx) > len(syms) {
			return "", fmt.Errorf("bad symbol index %v", idx)
		}
		sym := syms[idx-1]
		if sym.Name == "" && elf.ST_TYPE(sym.Info) == elf.STT_SECTION && sym.Section < elf.SHN_LORESERVE &&
			int(sym.Section) < len(f.Sections) {
			return f.Sections[sym.Section].Name, nil
		}
		return sym.Name, nil
	}
	if obj.Relocs, err = parseRela(relaData, obj.Base, symbol); err != nil {
		return nil, fmt.Errorf(".rela.text: %w", err)
	}
	return obj, nil
}

const rela32Size = 12

// parseRela decodes big-endian Elf32_Rela entries. Relocations of 16-bit immediates
// point into the middle of the instruction, so offsets are rounded down to the word.
func parseRela(data []byte, base uint32, symbol func(idx uint32) (string, error)) (Table, error) {
	if len(data)%rela32Size != 0 {
		return nil, fmt.Errorf("size %v is not a multiple of %v", len(data), rela32Size)
	}
	t := make(Table)
	for pos := 0; pos < len(data); pos += rela32Size {
		rel := elf.Rela32{
			Off:    binary.BigEndian.Uint32(data[pos:]),
			Info:   binary.BigEndian.Uint32(data[pos+4:]),
			Addend: int32(binary.BigEndian.Uint32(data[pos+8:])),
		}
		kind := elf.R_PPC(elf.R_TYPE32(rel.Info))
		if kind == elf.R_PPC_NONE {
			continue
		}
		name, err := symbol(elf.R_SYM32(rel.Info))
		if err != nil {
			return nil, fmt.Errorf("relocation at 0x%x: %w", rel.Off, err)
		}
		t[base+rel.Off&^3] = Reloc{
			Kind:   kind,
			Symbol: name,
			Addend: int64(rel.Addend),
		}
	}
	return t, nil
}
