// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package idiomgen generates Go code for compiled idioms.
package idiomgen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/ppcidiom/pkg/idiom"
	"github.com/google/ppcidiom/pkg/serializer"
)

// Generate writes a Go source file of package pkg with the pattern compiled from file
// and functions that match it:
//
//	var <Name>Pattern = &Pattern{...}
//	func Match<Name>(text []uint32, fam ppc.Family, tgt *Target) (*Context, error)
//	func Match<Name>At(text []uint32, fam ppc.Family, tgt *Target, start int) (*Context, error)
func Generate(w io.Writer, pkg, file string, p *idiom.Pattern) error {
	name := Name(file)
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "// Code generated by idiomgen from %v. DO NOT EDIT.\n\n", filepath.Base(file))
	fmt.Fprintf(buf, "package %v\n\n", pkg)
	buf.WriteString("import (\n")
	if usesRelocs(p) {
		buf.WriteString("\t\"debug/elf\"\n\n")
	}
	buf.WriteString("\t. \"github.com/google/ppcidiom/pkg/idiom\"\n")
	buf.WriteString("\t\"github.com/google/ppcidiom/pkg/ppc\"\n")
	buf.WriteString(")\n\n")

	fmt.Fprintf(buf, "// %vPattern is compiled from %v.\n", name, filepath.Base(file))
	fmt.Fprintf(buf, "var %vPattern = ", name)
	serializer.WriteKeyed(buf, p)
	buf.WriteString("\n\n")

	fmt.Fprintf(buf, "// Match%v returns the first match of %v in text.\n", name, p.Name)
	fmt.Fprintf(buf, "func Match%v(text []uint32, fam ppc.Family, tgt *Target) (*Context, error) {\n", name)
	fmt.Fprintf(buf, "\treturn %vPattern.Find(ppc.DecodeAll(text, fam), tgt)\n}\n\n", name)

	fmt.Fprintf(buf, "// Match%vAt matches %v in text exactly at instruction index start.\n", name, p.Name)
	fmt.Fprintf(buf, "func Match%vAt(text []uint32, fam ppc.Family, tgt *Target, start int) (*Context, error) {\n",
		name)
	fmt.Fprintf(buf, "\treturn %vPattern.MatchAt(ppc.DecodeAll(text, fam), start, tgt)\n}\n", name)

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to format generated code for %v: %w", file, err)
	}
	_, err = w.Write(src)
	return err
}

func usesRelocs(p *idiom.Pattern) bool {
	for _, elem := range p.Elements {
		for _, rule := range elem.Template.Rules {
			if rule.Reloc != 0 {
				return true
			}
		}
	}
	return false
}

// Name derives an exported Go identifier from the idiom file name:
// magic_div.idiom becomes MagicDiv.
func Name(file string) string {
	parts := strings.FieldsFunc(idiom.PatternName(file), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var res strings.Builder
	for _, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		res.WriteRune(unicode.ToUpper(r))
		res.WriteString(part[size:])
	}
	// Only an upper case letter makes the identifier exported.
	if first, _ := utf8.DecodeRuneInString(res.String()); !unicode.IsUpper(first) {
		return "Idiom" + res.String()
	}
	return res.String()
}

// FileName is the name of the generated Go file for the idiom file.
// Stems like foo_test and foo_linux get a suffix so they do not become build constraints.
func FileName(file string) string {
	return strings.ToLower(Name(file)) + "_idiom.go"
}
