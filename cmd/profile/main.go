// Package main provides a profiling wrapper for lc3bsim to identify
// performance bottlenecks in the schedulers.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/loader"
	"github.com/sarchlab/lc3bsim/timing/config"
	"github.com/sarchlab/lc3bsim/timing/core"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

var (
	scheduler   = flag.String("scheduler", "stepped", "Scheduler to profile: stepped, analytical, timeline or emulate")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions per run (0 = unlimited)")
	repeat      = flag.Int("repeat", 1, "number of times to run the program")
	dcache      = flag.Bool("dcache", false, "Profile data accesses with the L1 data cache model")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.hex|program.obj>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Origin: 0x%04X\n", prog.Origin)

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var instrCount, cycleCount uint64
	for i := 0; i < *repeat; i++ {
		var insts, cycles uint64
		if *scheduler == "emulate" {
			insts, err = runEmulationProfile(prog)
		} else {
			insts, cycles, err = runTimingProfile(prog)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		instrCount += insts
		cycleCount += cycles
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Scheduler: %s\n", *scheduler)
	fmt.Printf("Runs: %d\n", *repeat)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	if cycleCount > 0 {
		fmt.Printf("Simulated cycles: %d\n", cycleCount)
	}
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if cycleCount > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycleCount)/elapsed.Seconds())
	}
}

// runEmulationProfile runs the program in functional emulation mode.
func runEmulationProfile(prog *loader.Program) (uint64, error) {
	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	emulator := emu.NewEmulator(
		emu.WithStdout(io.Discard),
		emu.WithMaxInstructions(*instruction),
	)
	emulator.LoadState(regFile, memory)

	err := emulator.Run()

	return emulator.InstructionCount(), err
}

// runTimingProfile runs the program under the selected scheduler.
func runTimingProfile(prog *loader.Program) (uint64, uint64, error) {
	kind, err := pipeline.ParseKind(*scheduler)
	if err != nil {
		return 0, 0, err
	}

	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	cfg := config.DefaultConfig()
	cfg.MaxInstructions = *instruction
	cfg.DCache.Enabled = *dcache

	r, err := core.Run(regFile, memory, kind,
		core.WithConfig(cfg),
		core.WithStdout(io.Discard),
	)

	return r.Stats.Instructions, r.Cycles, err
}
