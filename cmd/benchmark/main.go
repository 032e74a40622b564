// Command benchmark runs the lc3bsim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results as JSON
//	-no-dcache  Disable data cache profiling
//	-scheduler  Run only this scheduler (default: all three)
//	-core       Run only the core benchmarks
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// Every benchmark runs under each scheduler; the harness exits non-zero if a
// benchmark computes the wrong result or the schedulers disagree.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/lc3bsim/benchmarks"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache profiling")
	scheduler := flag.String("scheduler", "", "Run only this scheduler: stepped, analytical or timeline")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.Output = os.Stdout

	if *scheduler != "" {
		kind, err := pipeline.ParseKind(*scheduler)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		config.Schedulers = []pipeline.Kind{kind}
	}

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	human := !*csvOutput && !*jsonOutput

	// Print configuration
	if human {
		fmt.Println("LC-3b Timing Benchmark Harness")
		fmt.Println("==============================")
		fmt.Printf("Schedulers: %v\n", config.Schedulers)
		fmt.Printf("D-Cache:    %v\n", config.EnableDCache)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()

	// Output results
	switch {
	case *csvOutput:
		harness.PrintCSV(results)
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		harness.PrintResults(results)
	}

	failed := false
	for _, r := range results {
		if !r.Correct {
			fmt.Fprintf(os.Stderr, "FAIL: %s [%s] R0=%d %s\n", r.Name, r.Scheduler, r.Result, r.Err)
			failed = true
		}
	}
	for _, d := range benchmarks.Disagreements(results) {
		fmt.Fprintf(os.Stderr, "FAIL: schedulers disagree on %s\n", d)
		failed = true
	}

	if human {
		// Print summary
		fmt.Println("=== Summary ===")
		fmt.Println("")
		fmt.Println("Expected characteristics:")
		fmt.Println("- arithmetic_sequential: CPI approaches 1 as the pipeline stays full")
		fmt.Println("- dependency_chain: one data stall per dependent ADD")
		fmt.Println("- memory_sequential: one cold miss, every other access hits")
		fmt.Println("- function_calls: fetch waits for every JSR and RET to write back")
		fmt.Println("- branch_taken: control stalls on every branch")
		fmt.Println("- loop_simulation, memory_copy: mixed data and control stalls")
	}

	if failed {
		os.Exit(1)
	}
}
