// Package main provides the entry point for lc3bsim.
// lc3bsim is a 4-stage in-order LC-3b pipeline timing simulator.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/loader"
	"github.com/sarchlab/lc3bsim/report"
	"github.com/sarchlab/lc3bsim/timing/config"
	"github.com/sarchlab/lc3bsim/timing/core"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
	"github.com/sarchlab/lc3bsim/tui"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type cliOptions struct {
	scheduler  string
	configPath string
	verbosity  int
	maxInsts   uint64
	dcache     bool
	emulate    bool
	verify     bool
	stepper    bool
	diagram    bool
	raw        bool
	input      string
	program    string
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}

	fs := flag.NewFlagSet("lc3bsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.scheduler, "scheduler", "", "Scheduler: stepped, analytical or timeline (overrides -config)")
	fs.StringVar(&o.configPath, "config", "", "Path to timing configuration JSON or YAML file")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity on stderr (1: stalls, 2: every cycle)")
	fs.Uint64Var(&o.maxInsts, "max", 0, "Stop after this many instructions (0: run to HALT)")
	fs.BoolVar(&o.dcache, "dcache", false, "Profile data accesses with the L1 data cache model")
	fs.BoolVar(&o.emulate, "emulate", false, "Run functional emulation only")
	fs.BoolVar(&o.verify, "verify", false, "Run every scheduler and check they agree")
	fs.BoolVar(&o.stepper, "tui", false, "Step the pipeline interactively")
	fs.BoolVar(&o.diagram, "diagram", false, "Print the per-cycle pipeline diagram")
	fs.BoolVar(&o.raw, "raw", false, "Read console input unbuffered from the terminal")
	fs.StringVar(&o.input, "input", "", "Console input for GETC and IN instead of stdin")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: lc3bsim [options] <program.hex|program.obj>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one program file")
	}
	o.program = fs.Arg(0)

	return o, nil
}

// buildConfig loads the configuration file, if any, and applies the flag
// overrides on top of it.
func buildConfig(o *cliOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if o.scheduler != "" {
		cfg.Scheduler = o.scheduler
	}
	if o.maxInsts > 0 {
		cfg.MaxInstructions = o.maxInsts
	}
	if o.dcache {
		cfg.DCache.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	if verbosity <= 0 {
		return logr.Discard()
	}

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := buildConfig(o)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitError
	}

	prog, err := loader.Load(o.program)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return exitError
	}

	logger := newLogger(stderr, o.verbosity)
	logger.V(1).Info("loaded", "program", o.program,
		"origin", fmt.Sprintf("0x%04X", prog.Origin), "words", len(prog.Words))

	switch {
	case o.input != "":
		stdin = strings.NewReader(o.input)
	case o.verify:
		// Every scheduler replays the same input, so it must come from -input.
		stdin = nil
	case o.raw:
		console, err := openRawConsole(stdin)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error opening console: %v\n", err)
			return exitError
		}
		defer console.Restore()
		stdin = console
		stdout = crlfWriter{w: stdout}
	}

	switch {
	case o.emulate:
		err = runEmulation(prog, cfg, stdin, stdout)
	case o.verify:
		err = runVerify(prog, cfg, logger, stdin, stdout)
	case o.stepper:
		err = runStepper(prog, cfg, stdin)
	default:
		err = runTiming(prog, cfg, logger, o.diagram, stdin, stdout)
	}

	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	return exitOK
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(prog *loader.Program, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	emulator := emu.NewEmulator(
		emu.WithStdin(stdin),
		emu.WithStdout(stdout),
		emu.WithMaxInstructions(cfg.MaxInstructions),
	)
	emulator.LoadState(regFile, memory)

	err := emulator.Run()

	_, _ = fmt.Fprintf(stdout, "\nInstructions executed: %d\n", emulator.InstructionCount())
	_, _ = fmt.Fprintln(stdout, report.Registers(*emulator.RegFile()))

	return err
}

// runTiming runs the program under the configured scheduler.
func runTiming(
	prog *loader.Program,
	cfg *config.Config,
	logger logr.Logger,
	diagram bool,
	stdin io.Reader,
	stdout io.Writer,
) error {
	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	kind, err := cfg.Kind()
	if err != nil {
		return err
	}

	r, err := core.Run(regFile, memory, kind,
		core.WithConfig(cfg),
		core.WithLogger(logger),
		core.WithStdin(stdin),
		core.WithStdout(stdout),
	)

	_, _ = fmt.Fprintln(stdout)
	if diagram {
		_, _ = fmt.Fprintln(stdout, report.Diagram(r.Schedule, r.Cycles))
		_, _ = fmt.Fprintln(stdout)
	}
	_, _ = fmt.Fprintln(stdout, report.Summary(r))
	_, _ = fmt.Fprintln(stdout, report.Registers(r.RegFile))

	return err
}

// runVerify runs every scheduler on the program and reports whether they
// agree.
func runVerify(
	prog *loader.Program,
	cfg *config.Config,
	logger logr.Logger,
	stdin io.Reader,
	stdout io.Writer,
) error {
	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	results, err := core.Verify(regFile, memory,
		core.WithConfig(cfg),
		core.WithLogger(logger),
		core.WithStdin(stdin),
		core.WithStdout(stdout),
	)

	_, _ = fmt.Fprintln(stdout)
	for _, r := range results {
		_, _ = fmt.Fprintln(stdout, report.Summary(r))
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "All %d schedulers agree\n", len(results))
	if len(results) > 0 {
		_, _ = fmt.Fprintln(stdout, report.Registers(results[0].RegFile))
	}

	return nil
}

// runStepper opens the interactive stepper on a stepped pipeline. Console
// output is shown inside the stepper.
func runStepper(prog *loader.Program, cfg *config.Config, stdin io.Reader) error {
	regFile := emu.NewRegFile(prog.Origin)
	memory := emu.NewMemory()
	prog.LoadInto(regFile, memory)

	console := &bytes.Buffer{}
	c, err := core.NewCore(regFile, memory,
		core.WithConfig(cfg),
		core.WithKind(pipeline.KindStepped),
		core.WithStdin(stdin),
		core.WithStdout(console),
	)
	if err != nil {
		return err
	}

	p, ok := c.Scheduler.(*pipeline.Pipeline)
	if !ok {
		return fmt.Errorf("stepper needs a stepped pipeline, got %v", c.Kind())
	}

	return tui.Run(p, regFile, tui.WithConsole(console))
}
