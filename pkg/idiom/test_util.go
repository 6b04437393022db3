// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"
)

// ErrorMatcher checks compilation errors against "### ErrorKind" markers
// at the end of the lines of an idiom file.
type ErrorMatcher struct {
	Data   []byte
	expect []*errorDesc
	got    []*errorDesc
}

type errorDesc struct {
	file    string
	line    int
	kind    string
	msg     string
	matched bool
}

func NewErrorMatcher(t *testing.T, file string) *ErrorMatcher {
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("failed to open input file: %v", err)
	}
	var stripped []byte
	var errors []*errorDesc
	s := bufio.NewScanner(bytes.NewReader(data))
	for i := 1; s.Scan(); i++ {
		ln := s.Bytes()
		if pos := bytes.LastIndex(ln, []byte("###")); pos != -1 {
			errors = append(errors, &errorDesc{
				file: file,
				line: i,
				kind: strings.TrimSpace(string(ln[pos+3:])),
			})
			ln = ln[:pos]
		}
		stripped = append(stripped, ln...)
		stripped = append(stripped, '\n')
	}
	if err := s.Err(); err != nil {
		t.Fatalf("failed to scan input file: %v", err)
	}
	return &ErrorMatcher{
		Data:   stripped,
		expect: errors,
	}
}

func (em *ErrorMatcher) ErrorHandler(err *Error) {
	em.got = append(em.got, &errorDesc{
		file: err.Pos.File,
		line: err.Pos.Line,
		kind: err.Kind.String(),
		msg:  err.Error(),
	})
}

func (em *ErrorMatcher) Count() int {
	return len(em.got)
}

func (em *ErrorMatcher) Check(t *testing.T) {
nextErr:
	for _, e := range em.got {
		for _, want := range em.expect {
			if want.matched || want.line != e.line || want.kind != e.kind {
				continue
			}
			want.matched = true
			continue nextErr
		}
		t.Errorf("unexpected error: %v", e.msg)
	}
	for _, want := range em.expect {
		if want.matched {
			continue
		}
		t.Errorf("unmatched error: %v:%v: %v", want.file, want.line, want.kind)
	}
}
