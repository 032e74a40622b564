// Package main provides the entry point for lc3bsim.
// lc3bsim is a 4-stage in-order LC-3b pipeline timing simulator with
// stepped, analytical and event-timeline schedulers.
//
// For the full CLI, use: go run ./cmd/lc3bsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("lc3bsim - LC-3b Pipeline Timing Simulator")
	fmt.Println("Fetch, read, execute and write-back with no forwarding")
	fmt.Println("")
	fmt.Println("Usage: lc3bsim [options] <program.hex|program.obj>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -scheduler  stepped, analytical or timeline")
	fmt.Println("  -config     Path to timing configuration JSON or YAML file")
	fmt.Println("  -diagram    Print the per-cycle pipeline diagram")
	fmt.Println("  -verify     Run every scheduler and check they agree")
	fmt.Println("  -emulate    Run functional emulation only")
	fmt.Println("  -tui        Step the pipeline interactively")
	fmt.Println("  -v          Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/lc3bsim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the timing benchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/lc3bsim' instead.")
	}
}
