// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// idiommatch searches PowerPC code for an idiom and prints the matches with their bindings.
//
// Usage:
//
//	idiommatch -idiom magic_div.idiom -bin text.bin.xz -base 0x80003100 -relocs relocs.yaml
//	idiommatch -idiom magic_div.json -elf div.o -all -procs 8
//
// -bin files contain big-endian instruction words and may be xz-compressed;
// -elf objects provide both the code and its relocations.
// Without -start the whole code is scanned. The exit status is 1 if nothing matched.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/google/ppcidiom/pkg/idiom"
	"github.com/google/ppcidiom/pkg/log"
	"github.com/google/ppcidiom/pkg/osutil"
	"github.com/google/ppcidiom/pkg/ppc"
	"github.com/google/ppcidiom/pkg/reloc"
	"github.com/google/ppcidiom/pkg/stat"
	"github.com/google/ppcidiom/pkg/tool"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	statInsns   = stat.New("instructions", "Instructions searched", stat.Console, stat.Prometheus("idiom_instructions"))
	statMatches = stat.New("matches", "Idiom matches", stat.Console, stat.Prometheus("idiom_matches"))
	statSpan    = stat.New("span", "Number of instructions covered by a match",
		stat.Console, stat.Distribution{}, stat.Prometheus("idiom_match_span"))
)

func main() {
	var (
		flagIdiom  = flag.String("idiom", "", "idiom source (.idiom) or serialized pattern (.json)")
		flagBin    = flag.String("bin", "", "raw big-endian code (optionally .xz)")
		flagELF    = flag.String("elf", "", "relocatable PowerPC object file")
		flagBase   = flag.String("base", "", "address of the first instruction (default 0, or from -elf)")
		flagRelocs = flag.String("relocs", "", "relocation table in YAML (optional)")
		flagFamily = flag.String("family", "ppc", "comma-separated instruction families: ppc, gekko, all")
		flagStart  = flag.Int("start", -1, "match only at this instruction index")
		flagAll    = flag.Bool("all", false, "print all matches instead of the first one")
		flagProcs  = flag.Int("procs", 0, "parallelism of -all (0 means GOMAXPROCS)")
		flagHTTP   = flag.String("http", "", "serve Prometheus metrics on this address and keep running")
	)
	defer tool.Init()()

	if *flagIdiom == "" || (*flagBin == "") == (*flagELF == "") {
		tool.Failf("usage: idiommatch -idiom file (-bin file | -elf file) [flags]")
	}
	serveErr := make(chan error, 1)
	if *flagHTTP != "" {
		go func() { serveErr <- serveHTTP(*flagHTTP) }()
	}
	p, err := idiom.LoadFile(*flagIdiom)
	if err != nil {
		tool.Fail(err)
	}
	fam, err := ppc.ParseFamily(*flagFamily)
	if err != nil {
		tool.Fail(err)
	}
	code, err := loadCode(*flagBin, *flagELF, *flagBase, *flagRelocs)
	if err != nil {
		tool.Fail(err)
	}
	insns := ppc.DecodeAll(code.text, fam)
	statInsns.Add(len(insns))
	matches, err := search(p, insns, code.target, *flagStart, *flagAll, *flagProcs)
	if err != nil {
		tool.Fail(err)
	}
	for _, ctx := range matches {
		statMatches.Add(1)
		statSpan.Add(ctx.Span())
		fmt.Printf("%v: 0x%08x: %v\n", p.Name, code.target.Base+4*uint32(ctx.Start()), ctx.Demangled())
		if log.V(1) {
			for _, idx := range ctx.Insns {
				log.Logf(1, "\t0x%08x: %v", code.target.Base+4*uint32(idx), insns[idx])
			}
		}
	}
	for _, ui := range stat.Collect(stat.Console) {
		log.Logf(1, "%-14v %v", ui.Name+":", ui.Value)
	}
	if *flagHTTP != "" {
		log.Logf(0, "serving metrics on %v", *flagHTTP)
		tool.Fail(<-serveErr)
	}
	if len(matches) == 0 {
		fmt.Printf("%v: no match\n", p.Name)
		os.Exit(1)
	}
}

type code struct {
	text   []uint32
	target *idiom.Target
}

// loadCode loads the instruction words from exactly one of bin and elfFile.
// An explicit base overrides the ELF base; relocs are merged over the ELF relocations.
func loadCode(bin, elfFile, base, relocs string) (*code, error) {
	res := &code{target: new(idiom.Target)}
	table := make(reloc.Table)
	switch {
	case bin != "":
		data, err := osutil.ReadFile(bin)
		if err != nil {
			return nil, err
		}
		if res.text, err = ppc.Words(data); err != nil {
			return nil, fmt.Errorf("%v: %w", bin, err)
		}
	case elfFile != "":
		obj, err := reloc.LoadELF(elfFile)
		if err != nil {
			return nil, err
		}
		res.text, res.target.Base = obj.Text, obj.Base
		for addr, r := range obj.Relocs {
			table[addr] = r
		}
	default:
		return nil, errors.New("no code specified")
	}
	if base != "" {
		v, err := strconv.ParseUint(base, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad base address %q: %w", base, err)
		}
		if v%4 != 0 {
			return nil, fmt.Errorf("base address 0x%x is not aligned", v)
		}
		res.target.Base = uint32(v)
	}
	if relocs != "" {
		extra, err := reloc.LoadTable(relocs)
		if err != nil {
			return nil, err
		}
		for addr, r := range extra {
			table[addr] = r
		}
	}
	if len(table) != 0 {
		res.target.Resolver = table
	}
	return res, nil
}

// search returns the match at start, or the first match, or all matches.
func search(p *idiom.Pattern, insns []*ppc.Insn, tgt *idiom.Target, start int, all bool,
	procs int) ([]*idiom.Context, error) {
	if all {
		if start >= 0 {
			return nil, errors.New("-start and -all are mutually exclusive")
		}
		return p.FindAll(insns, tgt, procs)
	}
	var ctx *idiom.Context
	var err error
	if start >= 0 {
		ctx, err = p.MatchAt(insns, start, tgt)
	} else {
		ctx, err = p.Find(insns, tgt)
	}
	if err != nil || ctx == nil {
		return nil, err
	}
	return []*idiom.Context{ctx}, nil
}

func serveHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	handler := handlers.CombinedLoggingHandler(log.VerboseWriter(1), handlers.CompressHandler(mux))
	return http.ListenAndServe(addr, handler)
}
