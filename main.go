// SPDX-License-Identifier: MIT
package main

import (
	"runtime"

	"spectrum/cmd"
	applog "spectrum/internal/log"
	"spectrum/pkg/build"
)

// main is the entry point for the spectrum analyzer.
//
// Startup (cold path) initializes build information and runtime settings and
// parses the command line. The run command then enters the hot path, where
// the PortAudio callback feeds the analyzer while the publishers push frames
// to clients, until a termination signal starts shutdown.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatal(err)
	}

	// One thread for the audio callback, one for publishing and I/O.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
