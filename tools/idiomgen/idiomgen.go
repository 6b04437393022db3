// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// idiomgen compiles idiom files into Go code or into serialized JSON patterns.
//
// Usage:
//
//	idiomgen -out pkg/idioms -pkg idioms idioms/*.idiom
//	idiomgen -config idiomgen.cfg -check
//
// The config file is JSON with # comments:
//
//	{
//		"idioms": ["idioms/*.idiom"],
//		"output": "pkg/idioms",
//		"package": "idioms",
//		"format": "go",
//		"procs": 4
//	}
//
// Command line flags override config values. Every idiom is compiled independently;
// all errors are printed at the end and the exit status is 1 if any idiom failed.
// With -check nothing is written, stale outputs are printed as diffs instead.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/ppcidiom/pkg/config"
	"github.com/google/ppcidiom/pkg/idiom"
	"github.com/google/ppcidiom/pkg/idiomgen"
	"github.com/google/ppcidiom/pkg/log"
	"github.com/google/ppcidiom/pkg/osutil"
	"github.com/google/ppcidiom/pkg/stat"
	"github.com/google/ppcidiom/pkg/tool"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Idioms  []string `json:"idioms"`
	Output  string   `json:"output"`
	Package string   `json:"package"`
	Format  string   `json:"format"` // go or json
	Procs   int      `json:"procs"`
}

const (
	formatGo   = "go"
	formatJSON = "json"
)

var (
	statCompiled = stat.New("compiled", "Idioms compiled successfully", stat.Console)
	statFailed   = stat.New("failed", "Idioms that failed to compile", stat.Console)
	statWritten  = stat.New("written", "Output files written", stat.Console)
	statStale    = stat.New("stale", "Output files that differ from the idiom (-check)", stat.Console)
)

func main() {
	var (
		flagConfig = flag.String("config", "", "config file (optional)")
		flagOut    = flag.String("out", "", "output directory")
		flagPkg    = flag.String("pkg", "", "package name of generated Go files")
		flagFormat = flag.String("format", "", "output format: go or json")
		flagProcs  = flag.Int("procs", 0, "number of idioms compiled in parallel (0 means GOMAXPROCS)")
		flagCheck  = flag.Bool("check", false, "do not write anything, print diffs of stale outputs")
		flagIdioms tool.ListFlag
	)
	flag.Var(&flagIdioms, "idioms", "comma-separated idiom files or globs (in addition to positional args)")
	defer tool.Init()()

	cfg := &Config{
		Output:  ".",
		Package: "idioms",
		Format:  formatGo,
	}
	if *flagConfig != "" {
		if err := config.LoadFile(*flagConfig, cfg); err != nil {
			tool.Fail(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output = *flagOut
		case "pkg":
			cfg.Package = *flagPkg
		case "format":
			cfg.Format = *flagFormat
		case "procs":
			cfg.Procs = *flagProcs
		}
	})
	cfg.Idioms = append(cfg.Idioms, flagIdioms...)
	cfg.Idioms = append(cfg.Idioms, flag.Args()...)
	if cfg.Format != formatGo && cfg.Format != formatJSON {
		tool.Failf("unknown output format %q", cfg.Format)
	}
	files, err := expandGlobs(cfg.Idioms)
	if err != nil {
		tool.Fail(err)
	}
	if len(files) == 0 {
		tool.Failf("no idiom files specified")
	}
	results := run(cfg, files, *flagCheck)
	for _, ui := range stat.Collect(stat.Console) {
		log.Logf(1, "%-10v %v", ui.Name+":", ui.Value)
	}
	failed := 0
	for _, res := range results {
		if res.diff != "" {
			fmt.Printf("%v is stale:\n%v", res.out, res.diff)
		}
		if res.err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", res.err)
			failed++
		}
	}
	if failed != 0 {
		tool.Failf("%v out of %v idioms failed", failed, len(files))
	}
	if *flagCheck && statStale.Val() != 0 {
		os.Exit(1)
	}
}

// expandGlobs expands glob patterns; patterns without meta characters are kept
// as is so that missing files are reported when they are compiled.
func expandGlobs(globs []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, glob := range globs {
		matches := []string{glob}
		if strings.ContainsAny(glob, "*?[") {
			var err error
			if matches, err = filepath.Glob(glob); err != nil {
				return nil, fmt.Errorf("bad glob %q: %w", glob, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("glob %q does not match any files", glob)
			}
		}
		for _, file := range matches {
			if !seen[file] {
				seen[file] = true
				files = append(files, file)
			}
		}
	}
	return files, nil
}

type result struct {
	file string
	out  string
	diff string
	err  error
}

// run processes all files and returns the results in the order of files.
// A failure of one idiom does not affect the others.
func run(cfg *Config, files []string, check bool) []*result {
	results := make([]*result, len(files))
	var g errgroup.Group
	if cfg.Procs > 0 {
		g.SetLimit(cfg.Procs)
	}
	for i, file := range files {
		g.Go(func() error {
			results[i] = process(cfg, file, check)
			return nil
		})
	}
	g.Wait()
	return results
}

func process(cfg *Config, file string, check bool) *result {
	res := &result{file: file}
	var errs idiom.ErrorList
	p := idiom.CompileFile(file, errs.Handler())
	if p == nil {
		statFailed.Add(1)
		res.err = errs.Err()
		return res
	}
	statCompiled.Add(1)
	data, out, err := render(cfg, file, p)
	if err != nil {
		res.err = err
		return res
	}
	res.out = filepath.Join(cfg.Output, out)
	old, err := osutil.ReadFile(res.out)
	if err == nil && bytes.Equal(old, data) {
		return res
	}
	if check {
		statStale.Add(1)
		res.diff = lineDiff(string(old), string(data))
		return res
	}
	if err := osutil.WriteFile(res.out, data); err != nil {
		res.err = err
		return res
	}
	statWritten.Add(1)
	log.Logf(0, "generated %v", res.out)
	return res
}

// render returns the output file contents and the output file name.
func render(cfg *Config, file string, p *idiom.Pattern) ([]byte, string, error) {
	if cfg.Format == formatJSON {
		data, err := idiom.MarshalJSON(p)
		return data, p.Name + idiom.JSONExt, err
	}
	buf := new(bytes.Buffer)
	if err := idiomgen.Generate(buf, cfg.Package, file, p); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), idiomgen.FileName(file), nil
}

// lineDiff returns a line-oriented diff of the two texts with -/+ markers.
func lineDiff(from, to string) string {
	matcher := dmp.New()
	a, b, lines := matcher.DiffLinesToChars(from, to)
	diffs := matcher.DiffCharsToLines(matcher.DiffMain(a, b, false), lines)
	buf := new(strings.Builder)
	for _, diff := range diffs {
		prefix := "  "
		switch diff.Type {
		case dmp.DiffDelete:
			prefix = "- "
		case dmp.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String()
}
