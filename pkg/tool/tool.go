// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains various helper utilitites useful for implementation of command line tools.
package tool

import (
	"flag"
	"fmt"
	"os"
)

var (
	flagCPUProfile = flag.String("cpuprofile", "", "write CPU profile to this file")
	flagMemProfile = flag.String("memprofile", "", "write memory profile to this file")
)

// Init parses command line flags and sets up profiling.
// The returned function must be deferred by main.
func Init() func() {
	flag.Parse()
	return installProfiling(*flagCPUProfile, *flagMemProfile)
}

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}
