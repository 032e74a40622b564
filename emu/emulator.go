// Package emu provides functional LC-3b emulation.
package emu

import (
	"io"
	"os"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the program executed HALT or reached the
	// instruction limit.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes LC-3b instructions functionally, one whole instruction
// per step.
type Emulator struct {
	regFile     *RegFile
	memory      *Memory
	semantics   *Semantics
	trapHandler TrapHandler
	probe       AccessProbe

	// I/O
	stdin  io.Reader
	stdout io.Writer

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	halted           bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStdin sets the reader GETC and IN consume.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithEmulatorTrapHandler sets a custom trap handler.
func WithEmulatorTrapHandler(handler TrapHandler) EmulatorOption {
	return func(e *Emulator) {
		e.trapHandler = handler
	}
}

// WithEmulatorProbe attaches a data access observer.
func WithEmulatorProbe(probe AccessProbe) EmulatorOption {
	return func(e *Emulator) {
		e.probe = probe
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new LC-3b emulator with zeroed memory.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: NewRegFile(0),
		memory:  NewMemory(),
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.rebuild()

	return e
}

func (e *Emulator) rebuild() {
	handler := e.trapHandler
	if handler == nil {
		h := NewDefaultTrapHandler(e.regFile, e.memory, e.stdout)
		h.SetStdin(e.stdin)
		handler = h
	}

	opts := []SemanticsOption{WithTrapHandler(handler)}
	if e.probe != nil {
		opts = append(opts, WithAccessProbe(e.probe))
	}

	e.semantics = NewSemantics(e.regFile, e.memory, opts...)
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted reports whether the emulator has stopped.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LoadProgram stores words at origin and points PC at origin.
func (e *Emulator) LoadProgram(origin uint16, words []uint16) {
	e.memory.LoadProgram(origin, words)
	e.regFile.PC = origin
}

// LoadState replaces the register file and memory.
func (e *Emulator) LoadState(regFile *RegFile, memory *Memory) {
	e.regFile = regFile
	e.memory = memory
	e.instructionCount = 0
	e.halted = false
	e.rebuild()
}

// Reset resets the emulator to its initial state.
func (e *Emulator) Reset() {
	e.LoadState(NewRegFile(0), NewMemory())
}

// Step executes a single instruction through every stage handler in order.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}

	var rec Record
	rec.Reset(e.instructionCount)

	halted, err := e.semantics.Complete(&rec)
	if err != nil {
		return StepResult{Err: err}
	}

	e.instructionCount++
	if halted || (e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions) {
		e.halted = true
	}

	return StepResult{Halted: e.halted}
}

// Run executes instructions until the program halts or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}
