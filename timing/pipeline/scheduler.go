// Package pipeline provides timing models for an in-order 4-stage LC-3b
// pipeline (fetch, read, execute, write-back) without operand forwarding.
//
// Three interchangeable schedulers compute the same per-instruction stage
// cycles:
//   - Pipeline steps the machine cycle by cycle.
//   - Analytical applies closed-form recurrences over the two preceding
//     instructions.
//   - Timeline places stage events into a bounded sliding window.
package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
)

const (
	// Depth is the number of pipeline stages and the maximum number of
	// instructions in flight.
	Depth = 4

	// Lookback is the number of preceding instructions a hazard can involve.
	Lookback = 2

	// DefaultTimelineCapacity is the default number of cycle offsets held by
	// the timeline scheduler.
	DefaultTimelineCapacity = 32
)

// Stage names a pipeline stage.
type Stage int

// Pipeline stages in program flow order.
const (
	StageFetch Stage = iota
	StageRead
	StageExec
	StageWrite
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageRead:
		return "read"
	case StageExec:
		return "exec"
	case StageWrite:
		return "write"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Stages lists every stage in flow order.
func Stages() []Stage {
	return []Stage{StageFetch, StageRead, StageExec, StageWrite}
}

// Kind selects a scheduler implementation.
type Kind int

// Scheduler kinds.
const (
	KindStepped Kind = iota
	KindAnalytical
	KindTimeline
)

func (k Kind) String() string {
	switch k {
	case KindStepped:
		return "stepped"
	case KindAnalytical:
		return "analytical"
	case KindTimeline:
		return "timeline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Kinds lists every scheduler kind.
func Kinds() []Kind {
	return []Kind{KindStepped, KindAnalytical, KindTimeline}
}

// ParseKind converts a scheduler name into a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown scheduler %q (want stepped, analytical or timeline)", name)
}

// Timing records the cycle in which one instruction completed each stage.
type Timing struct {
	Seq uint64
	PC  uint16
	Op  insts.Op

	Fetch uint64
	Read  uint64
	Exec  uint64
	Write uint64
}

// At returns the cycle recorded for stage.
func (t Timing) At(stage Stage) uint64 {
	switch stage {
	case StageFetch:
		return t.Fetch
	case StageRead:
		return t.Read
	case StageExec:
		return t.Exec
	default:
		return t.Write
	}
}

// SameCycles reports whether two timings agree on every stage cycle.
func (t Timing) SameCycles(o Timing) bool {
	return t.Fetch == o.Fetch && t.Read == o.Read &&
		t.Exec == o.Exec && t.Write == o.Write
}

func (t Timing) String() string {
	return fmt.Sprintf("#%d %v @0x%04X (F%d R%d E%d W%d)",
		t.Seq, t.Op, t.PC, t.Fetch, t.Read, t.Exec, t.Write)
}

// Statistics holds timing statistics derived from a schedule.
type Statistics struct {
	// Cycles is the elapsed cycle count, the write cycle of the last
	// instruction.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// ControlStalls counts cycles fetch waited past its predecessor's read
	// because a control-flow instruction was in flight.
	ControlStalls uint64
	// DataStalls counts cycles instructions waited in read for operands.
	DataStalls uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

func summarize(schedule []Timing, cycles uint64) Statistics {
	stats := Statistics{
		Cycles:       cycles,
		Instructions: uint64(len(schedule)),
	}

	for k, t := range schedule {
		stats.DataStalls += t.Read - t.Fetch - 1
		if k > 0 {
			stats.ControlStalls += t.Fetch - schedule[k-1].Read
		}
	}

	return stats
}

// InstructionSemantics applies the architectural effects of each stage.
// *emu.Semantics is the production implementation.
type InstructionSemantics interface {
	Fetch(rec *emu.Record) error
	ResolveAddress(rec *emu.Record) error
	Read(rec *emu.Record) error
	Execute(rec *emu.Record) error
	WriteBack(rec *emu.Record) (bool, error)
}

// Scheduler computes the timing of an instruction stream.
type Scheduler interface {
	// Advance moves the model forward by its natural unit: one cycle for
	// the stepped pipeline, one instruction for the others.
	Advance() error
	// Run advances until the stream halts or a fatal error occurs.
	Run() error
	// Done reports whether the stream halted or failed.
	Done() bool
	// Err returns the fatal error that stopped the scheduler, if any.
	Err() error
	// Cycles returns the elapsed cycle count.
	Cycles() uint64
	// Schedule returns the timings of retired instructions in program order.
	Schedule() []Timing
	// Stats returns statistics derived from the schedule.
	Stats() Statistics
	// Reset discards all scheduling state. Architectural state is not
	// restored.
	Reset()
}

type options struct {
	logger           logr.Logger
	maxInstructions  uint64
	timelineCapacity int
}

func defaultOptions() options {
	return options{
		logger:           logr.Discard(),
		timelineCapacity: DefaultTimelineCapacity,
	}
}

// Option configures a scheduler.
type Option func(*options)

// WithLogger sets the logger. V(1) reports stalls, V(2) traces every cycle.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxInstructions stops the stream after max instructions retire.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) Option {
	return func(o *options) {
		o.maxInstructions = max
	}
}

// WithTimelineCapacity sets the number of cycle offsets the timeline
// scheduler can hold. Other schedulers ignore it.
func WithTimelineCapacity(capacity int) Option {
	return func(o *options) {
		o.timelineCapacity = capacity
	}
}

// New creates a scheduler of the given kind.
func New(kind Kind, semantics InstructionSemantics, opts ...Option) (Scheduler, error) {
	switch kind {
	case KindStepped:
		return NewPipeline(semantics, opts...), nil
	case KindAnalytical:
		return NewAnalytical(semantics, opts...), nil
	case KindTimeline:
		t, err := NewTimeline(semantics, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown scheduler kind %v", kind)
	}
}
