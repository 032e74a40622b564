package pipeline

import (
	"errors"
	"fmt"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
)

// Invariant violations. They indicate a broken instruction stream or a
// scheduler bug and abort the run.
var (
	ErrRegisterUnderflow  = errors.New("register pending-write count would go negative")
	ErrMemoryEntryMissing = errors.New("no in-flight memory write at released address")
	ErrMemoryTableFull    = errors.New("in-flight memory write table is full")
	ErrTimelineCapacity   = errors.New("timeline capacity exceeded")
)

// InvariantError identifies the instruction that triggered a fatal error.
type InvariantError struct {
	Seq uint64
	PC  uint16
	Op  insts.Op
	Err error
}

func newInvariantError(rec *emu.Record, err error) *InvariantError {
	return &InvariantError{
		Seq: rec.Seq,
		PC:  rec.PC,
		Op:  rec.Inst.Op,
		Err: err,
	}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("instruction #%d (%v at 0x%04X): %v", e.Seq, e.Op, e.PC, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
