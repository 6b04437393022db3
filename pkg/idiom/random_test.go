// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"math/rand"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/ppcidiom/pkg/log"
	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func randCode(t *testing.T, r *rand.Rand) []*ppc.Insn {
	reg := func() int64 { return int64(r.Intn(6)) }
	words := make([]uint32, r.Intn(40))
	for i := range words {
		switch r.Intn(5) {
		case 0:
			words[i] = encode(t, "li", reg(), int64(r.Intn(5)))
		case 1:
			words[i] = encode(t, "add", reg(), reg(), reg())
		case 2:
			words[i] = encode(t, "mr", reg(), reg())
		case 3:
			words[i] = encode(t, "blr")
		default:
			words[i] = r.Uint32()
		}
	}
	return decode(words...)
}

func TestRandomFindAll(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	p := compileTest(t, "li $GPR1, $IMM?\n... ^[$GPR1]\nadd $GPR2, $GPR1, $GPR?\n...\nblr")
	for i := 0; i < testutil.IterCount(); i++ {
		insns := randCode(t, r)
		var want []*Context
		for start := range insns {
			ctx, err := p.MatchAt(insns, start, nil)
			require.NoError(t, err)
			if ctx != nil {
				want = append(want, ctx)
			}
		}
		got, err := p.FindAll(insns, nil, 1+r.Intn(4))
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatal(diff)
		}
		first, err := p.Find(insns, nil)
		require.NoError(t, err)
		if len(want) == 0 {
			require.Nil(t, first)
		} else if diff := cmp.Diff(want[0], first); diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestMismatchLogging(t *testing.T) {
	log.SetOutput(&testutil.Writer{TB: t})
	log.SetVerbosity(3)
	defer func() {
		log.SetVerbosity(0)
		log.SetOutput(os.Stderr)
	}()
	p := compileTest(t, "li $GPR1, $IMM?\n... ^[$GPR1]\nblr")
	ctx, err := p.MatchAt(decode(encode(t, "li", 3, 0), encode(t, "li", 3, 1), encode(t, "blr")), 0, nil)
	require.NoError(t, err)
	require.Nil(t, ctx)
}
