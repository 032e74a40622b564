package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/timing/cache"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

// ErrDivergence is returned by Verify when two schedulers disagree.
var ErrDivergence = errors.New("schedulers diverge")

// Result is the outcome of a timing run.
type Result struct {
	Kind pipeline.Kind

	// RegFile is the final architectural register state.
	RegFile emu.RegFile

	// Cycles is the elapsed cycle count.
	Cycles uint64

	// Schedule holds the stage cycles of every retired instruction.
	Schedule []pipeline.Timing

	Stats pipeline.Statistics

	// Halted is false when the run stopped on an error.
	Halted bool

	// CacheEnabled reports whether Cache holds profiler statistics.
	CacheEnabled bool
	Cache        cache.Statistics

	// Clock is the frequency SimulatedTime is computed at.
	Clock sim.Freq
}

// SimulatedTime converts the elapsed cycles to time at the configured clock.
func (r Result) SimulatedTime() time.Duration {
	if r.Clock <= 0 {
		return 0
	}
	return time.Duration(float64(r.Cycles) * float64(time.Second) / float64(r.Clock))
}

// Run simulates the program held in regFile and memory with the given
// scheduler and returns the final state and timing. regFile and memory are
// updated in place.
func Run(regFile *emu.RegFile, memory *emu.Memory, kind pipeline.Kind, opts ...Option) (Result, error) {
	c, err := NewCore(regFile, memory, append(opts, WithKind(kind))...)
	if err != nil {
		return Result{}, err
	}

	err = c.Run()

	return c.Result(), err
}

// Verify runs every scheduler on its own copy of the initial state and
// checks that they agree on the final state, the cycle count and every
// instruction's stage cycles. It returns one result per scheduler kind in
// pipeline.Kinds order.
//
// Console input is read once and replayed to every run. Console output is
// only written by the first run.
func Verify(regFile *emu.RegFile, memory *emu.Memory, opts ...Option) ([]Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var input []byte
	if o.stdin != nil {
		var err error
		input, err = io.ReadAll(o.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read console input: %w", err)
		}
	}

	kinds := pipeline.Kinds()
	results := make([]Result, 0, len(kinds))
	memories := make([]*emu.Memory, 0, len(kinds))

	for i, kind := range kinds {
		rf := *regFile
		mem := memory.Clone()

		runOpts := append(slices.Clone(opts), WithStdin(bytes.NewReader(input)))
		if i > 0 {
			runOpts = append(runOpts, WithStdout(io.Discard))
		}

		r, err := Run(&rf, mem, kind, runOpts...)
		if err != nil {
			return results, fmt.Errorf("failed to run %v scheduler: %w", kind, err)
		}

		results = append(results, r)
		memories = append(memories, mem)
	}

	base := results[0]
	for i := 1; i < len(results); i++ {
		if err := compare(base, results[i], memories[0], memories[i]); err != nil {
			return results, err
		}
	}

	return results, nil
}

func compare(a, b Result, memA, memB *emu.Memory) error {
	if a.Cycles != b.Cycles {
		return fmt.Errorf("%w: %v takes %d cycles, %v takes %d",
			ErrDivergence, a.Kind, a.Cycles, b.Kind, b.Cycles)
	}

	if len(a.Schedule) != len(b.Schedule) {
		return fmt.Errorf("%w: %v retires %d instructions, %v retires %d",
			ErrDivergence, a.Kind, len(a.Schedule), b.Kind, len(b.Schedule))
	}

	for k := range a.Schedule {
		ta, tb := a.Schedule[k], b.Schedule[k]
		if ta.Seq != tb.Seq || ta.PC != tb.PC || ta.Op != tb.Op || !ta.SameCycles(tb) {
			return fmt.Errorf("%w: %v has %v, %v has %v",
				ErrDivergence, a.Kind, ta, b.Kind, tb)
		}
	}

	if a.RegFile != b.RegFile {
		return fmt.Errorf("%w: final registers differ between %v and %v",
			ErrDivergence, a.Kind, b.Kind)
	}

	if !memA.Equal(memB) {
		return fmt.Errorf("%w: final memory differs between %v and %v",
			ErrDivergence, a.Kind, b.Kind)
	}

	return nil
}
