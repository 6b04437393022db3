// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListFlag(t *testing.T) {
	tests := []struct {
		args []string
		vals ListFlag
		fail bool
	}{
		{
			args: []string{"arg0", "arg1"},
			vals: nil,
		},
		{
			args: []string{"-list", "a", "arg0", "arg1"},
			vals: ListFlag{"a"},
		},
		{
			args: []string{"-list", "a, b,c", "-list=d", "arg0", "arg1"},
			vals: ListFlag{"a", "b", "c", "d"},
		},
		{
			args: []string{"-list", "a,,b", "arg0", "arg1"},
			fail: true,
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			var vals ListFlag
			flags := flag.NewFlagSet("", flag.ContinueOnError)
			flags.SetOutput(io.Discard)
			flags.Var(&vals, "list", "")
			err := flags.Parse(test.args)
			if test.fail {
				if err == nil {
					t.Fatalf("parsing did not fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing failed: %v", err)
			}
			if diff := cmp.Diff(test.vals, vals); diff != "" {
				t.Fatal(diff)
			}
			if flags.NArg() != 2 || flags.Arg(0) != "arg0" || flags.Arg(1) != "arg1" {
				t.Fatalf("bad args: %q", flags.Args())
			}
		})
	}
}

func TestListFlagString(t *testing.T) {
	list := &ListFlag{"a", "b", "c"}
	if got, want := list.String(), "[a b c]"; got != want {
		t.Errorf("list.String got: %s, want: %s", got, want)
	}
}
