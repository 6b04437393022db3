// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels
//   - global verbosity setting that can be used by multiple packages
//   - cheap verbosity checks for hot loops
package log

import (
	"flag"
	"io"
	golog "log"
	"sync/atomic"
)

var (
	flagV     = flag.Int("vv", 0, "verbosity")
	verbosity atomic.Int64
	override  atomic.Bool
)

// SetVerbosity overrides the -vv flag value.
func SetVerbosity(v int) {
	verbosity.Store(int64(v))
	override.Store(true)
}

func level() int {
	if override.Load() {
		return int(verbosity.Load())
	}
	return *flagV
}

// V reports whether messages of verbosity v are printed.
// Callers use it to avoid formatting arguments of disabled messages.
func V(v int) bool {
	return v <= level()
}

func Logf(v int, msg string, args ...interface{}) {
	if V(v) {
		golog.Printf(msg, args...)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	golog.SetOutput(w)
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
