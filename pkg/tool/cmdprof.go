// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"os"
	"runtime"
	"runtime/pprof"
)

// installProfiling starts CPU profiling and returns a function that stops it
// and writes the heap profile. Empty file names disable the corresponding profile.
func installProfiling(cpuprof, memprof string) func() {
	var stops []func()
	if cpuprof != "" {
		f, err := os.Create(cpuprof)
		if err != nil {
			Failf("failed to create cpuprofile file: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			Failf("failed to start cpu profile: %v", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}
	if memprof != "" {
		stops = append(stops, func() { writeHeapProfile(memprof) })
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func writeHeapProfile(file string) {
	f, err := os.Create(file)
	if err != nil {
		Failf("failed to create memprofile file: %v", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		Failf("failed to write mem profile: %v", err)
	}
}
