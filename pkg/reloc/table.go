// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package reloc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/ppcidiom/pkg/osutil"
	"gopkg.in/yaml.v3"
)

// Table maps instruction addresses to relocations.
type Table map[uint32]Reloc

func (t Table) Resolve(addr uint32) (Reloc, bool) {
	r, ok := t[addr]
	return r, ok
}

type tableEntry struct {
	Addr   uint32 `yaml:"addr"`
	Kind   string `yaml:"kind"`
	Symbol string `yaml:"symbol"`
	Addend int64  `yaml:"addend,omitempty"`
}

// LoadTable reads a YAML relocation table:
//
//	- {addr: 0x80003000, kind: ha, symbol: foo}
//	- {addr: 0x80003008, kind: R_PPC_ADDR16_LO, symbol: foo, addend: 8}
func LoadTable(file string) (Table, error) {
	data, err := osutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", file, err)
	}
	return t, nil
}

func ParseTable(data []byte) (Table, error) {
	var entries []tableEntry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse relocation table: %w", err)
	}
	t := make(Table)
	for _, e := range entries {
		if e.Addr&3 != 0 {
			return nil, fmt.Errorf("relocation address 0x%x is not instruction aligned", e.Addr)
		}
		if e.Symbol == "" {
			return nil, fmt.Errorf("relocation at 0x%x has no symbol", e.Addr)
		}
		kind, err := ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("relocation at 0x%x: %w", e.Addr, err)
		}
		if _, dup := t[e.Addr]; dup {
			return nil, fmt.Errorf("duplicate relocation at 0x%x", e.Addr)
		}
		t[e.Addr] = Reloc{Kind: kind, Symbol: e.Symbol, Addend: e.Addend}
	}
	return t, nil
}

// Marshal renders the table in the LoadTable format, sorted by address.
func (t Table) Marshal() ([]byte, error) {
	var addrs []uint32
	for addr := range t {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	var entries []tableEntry
	for _, addr := range addrs {
		r := t[addr]
		kind := Suffix(r.Kind)
		if kind == "" {
			kind = r.Kind.String()
		}
		entries = append(entries, tableEntry{Addr: addr, Kind: kind, Symbol: r.Symbol, Addend: r.Addend})
	}
	return yaml.Marshal(entries)
}
