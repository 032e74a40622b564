// Package benchmarks provides timing benchmark infrastructure for the LC-3b
// pipeline schedulers.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/timing/config"
	"github.com/sarchlab/lc3bsim/timing/core"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

// ProgramOrigin is the address every benchmark program is loaded at.
const ProgramOrigin = 0x3000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Scheduler names the scheduling algorithm that produced the timing
	Scheduler string `json:"scheduler"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// ControlStalls is the number of cycles fetch waited on control flow
	ControlStalls uint64 `json:"control_stalls"`

	// DataStalls is the number of cycles reads waited on operands
	DataStalls uint64 `json:"data_stalls"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Result is the final value of R0
	Result uint16 `json:"result"`

	// Correct reports whether Result matched the expected value
	Correct bool `json:"correct"`

	// Err is set when the run stopped on an error
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the machine state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the LC-3b machine code, loaded at ProgramOrigin
	Program []uint16

	// ExpectedR0 is the value R0 must hold after HALT (for validation)
	ExpectedR0 uint16
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Schedulers lists the scheduling algorithms every benchmark runs under
	Schedulers []pipeline.Kind

	// EnableDCache enables data cache profiling
	EnableDCache bool

	// TimelineCapacity sizes the timeline scheduler's window
	TimelineCapacity int

	// MaxInstructions bounds each run (0 means no limit)
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives scheduler traces (default: discard)
	Logger logr.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Schedulers:       pipeline.Kinds(),
		EnableDCache:     true,
		TimelineCapacity: pipeline.DefaultTimelineCapacity,
		MaxInstructions:  1_000_000,
		Output:           os.Stdout,
		Logger:           logr.Discard(),
		Verbose:          false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every benchmark under every configured scheduler and
// returns the results grouped by benchmark.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks)*len(h.config.Schedulers))

	for _, bench := range h.benchmarks {
		for _, kind := range h.config.Schedulers {
			result := h.runBenchmark(bench, kind)
			if h.config.Verbose {
				_, _ = fmt.Fprintf(h.config.Output, "ran %s under %s: %d cycles\n",
					result.Name, result.Scheduler, result.SimulatedCycles)
			}
			results = append(results, result)
		}
	}

	return results
}

func (h *Harness) runConfig(kind pipeline.Kind) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scheduler = kind.String()
	cfg.TimelineCapacity = h.config.TimelineCapacity
	cfg.MaxInstructions = h.config.MaxInstructions
	cfg.DCache.Enabled = h.config.EnableDCache
	return cfg
}

// runBenchmark executes a single benchmark under one scheduler.
func (h *Harness) runBenchmark(bench Benchmark, kind pipeline.Kind) BenchmarkResult {
	// Create fresh state
	regFile := emu.NewRegFile(ProgramOrigin)
	memory := emu.NewMemory()

	// Run setup if provided
	if bench.Setup != nil {
		bench.Setup(regFile, memory)
	}

	memory.LoadProgram(ProgramOrigin, bench.Program)

	// Run simulation and measure time
	start := time.Now()
	r, err := core.Run(regFile, memory, kind,
		core.WithConfig(h.runConfig(kind)),
		core.WithLogger(h.config.Logger.WithValues("benchmark", bench.Name)),
		core.WithStdout(io.Discard),
	)
	wallTime := time.Since(start)

	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Scheduler:           kind.String(),
		SimulatedCycles:     r.Cycles,
		InstructionsRetired: r.Stats.Instructions,
		CPI:                 r.Stats.CPI(),
		ControlStalls:       r.Stats.ControlStalls,
		DataStalls:          r.Stats.DataStalls,
		Result:              regFile.ReadReg(0),
		WallTime:            wallTime,
	}
	result.Correct = err == nil && result.Result == bench.ExpectedR0
	if err != nil {
		result.Err = err.Error()
	}

	// Collect cache stats if enabled
	if r.CacheEnabled {
		result.DCacheHits = r.Cache.Hits
		result.DCacheMisses = r.Cache.Misses
	}

	return result
}

// Disagreements lists every benchmark whose schedulers reported different
// cycle counts or statistics.
func Disagreements(results []BenchmarkResult) []string {
	first := map[string]BenchmarkResult{}
	var names []string

	for _, r := range results {
		base, ok := first[r.Name]
		if !ok {
			first[r.Name] = r
			continue
		}

		if base.SimulatedCycles != r.SimulatedCycles ||
			base.InstructionsRetired != r.InstructionsRetired ||
			base.ControlStalls != r.ControlStalls ||
			base.DataStalls != r.DataStalls ||
			base.Result != r.Result {
			names = append(names, fmt.Sprintf("%s (%s vs %s)", r.Name, base.Scheduler, r.Scheduler))
		}
	}

	return names
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== LC-3b Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s [%s]\n", r.Name, r.Scheduler)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  R0: 0x%04X (correct: %v)\n", r.Result, r.Correct)
		if r.Err != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Control Stalls:       %d\n", r.ControlStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Stalls:          %d\n", r.DataStalls)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,scheduler,cycles,instructions,cpi,control_stalls,data_stalls,dcache_hits,dcache_misses,result,correct")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%v\n",
			r.Name,
			r.Scheduler,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.ControlStalls,
			r.DataStalls,
			r.DCacheHits,
			r.DCacheMisses,
			r.Result,
			r.Correct,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
