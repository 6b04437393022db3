// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/ppcidiom/pkg/osutil"
	"github.com/google/ppcidiom/pkg/ppc"
)

// JSONExt is the file extension of serialized patterns.
const JSONExt = ".json"

// MarshalJSON serializes the pattern to the JSON form read by UnmarshalJSON.
func MarshalJSON(p *Pattern) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalJSON deserializes and validates a pattern.
func UnmarshalJSON(data []byte) (*Pattern, error) {
	p := new(Pattern)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile loads a pattern from idiom source or, for .json files, from its serialized form.
func LoadFile(file string) (*Pattern, error) {
	if filepath.Ext(file) != JSONExt {
		var errs ErrorList
		p := CompileFile(file, errs.Handler())
		if p == nil {
			return nil, errs.Err()
		}
		return p, nil
	}
	data, err := osutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p, err := UnmarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", file, err)
	}
	return p, nil
}

// Validate checks that the pattern is consistent with the opcode table.
// Compile always produces valid patterns.
func (p *Pattern) Validate() error {
	if len(p.Elements) == 0 {
		return fmt.Errorf("pattern %v has no instructions", p.Name)
	}
	for i, elem := range p.Elements {
		if err := elem.validate(); err != nil {
			return fmt.Errorf("pattern %v: element %v: %w", p.Name, i, err)
		}
	}
	return nil
}

func (elem *Element) validate() error {
	tmpl := elem.Template
	if tmpl == nil {
		return fmt.Errorf("no template")
	}
	op := ppc.Lookup(tmpl.Mnemonic)
	if op == nil {
		return fmt.Errorf("unknown mnemonic %q", tmpl.Mnemonic)
	}
	prev := -1
	for _, rule := range tmpl.Rules {
		if rule.Slot <= prev || rule.Slot >= len(op.Operands) {
			return fmt.Errorf("%v: bad operand slot %v", op.Name, rule.Slot)
		}
		prev = rule.Slot
	}
	for _, rule := range tmpl.Rules {
		if err := rule.validate(op.Operands[rule.Slot]); err != nil {
			return fmt.Errorf("%v: operand %v: %w", op.Name, rule.Slot, err)
		}
	}
	if elem.Gap == nil {
		return nil
	}
	for _, c := range elem.Gap.Constraints {
		if c.Kind != KindGPR && c.Kind != KindFPR {
			return fmt.Errorf("gap constraint on %v operand", c.Kind)
		}
		if c.Mode != Variable && c.Mode != Defined {
			return fmt.Errorf("gap constraint with %v mode", c.Mode)
		}
		if c.Access != Read && c.Access != Write {
			return fmt.Errorf("gap constraint with access %v", c.Access)
		}
	}
	return nil
}

func (rule *Rule) validate(opnd *ppc.Operand) error {
	if rule.Mode < Wildcard || rule.Mode > Defined {
		return fmt.Errorf("bad mode %v", rule.Mode)
	}
	var ok bool
	switch rule.Kind {
	case KindGPR:
		ok = opnd.Kind == ppc.KindGPR || opnd.Kind == ppc.KindGPR0
	case KindFPR:
		ok = opnd.Kind == ppc.KindFPR
	case KindImm, KindLabel:
		ok = !opnd.Register()
	}
	if !ok {
		return fmt.Errorf("%v rule for operand %v", rule.Kind, opnd.Name)
	}
	if rule.Reloc != 0 && rule.Kind != KindLabel {
		return fmt.Errorf("relocation kind on %v rule", rule.Kind)
	}
	return nil
}
