package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/lc3bsim/emu"
)

// stream runs whole instructions through the semantics in program order.
// The analytical and timeline schedulers place each instruction after it
// has completed architecturally.
type stream struct {
	semantics       InstructionSemantics
	log             logr.Logger
	maxInstructions uint64 // 0 means no limit

	count    uint64
	schedule []Timing
	halted   bool
	err      error
}

func newStream(semantics InstructionSemantics, o options, name string) stream {
	return stream{
		semantics:       semantics,
		log:             o.logger.WithName(name),
		maxInstructions: o.maxInstructions,
	}
}

func (s *stream) reset() {
	s.count = 0
	s.schedule = nil
	s.halted = false
	s.err = nil
}

// next executes the next instruction. It returns false once the stream
// is done.
func (s *stream) next(rec *emu.Record) (bool, error) {
	if s.halted || s.err != nil {
		return false, s.err
	}

	rec.Reset(s.count)

	if err := s.semantics.Fetch(rec); err != nil {
		return false, s.fail(rec, err)
	}

	if err := s.semantics.Read(rec); err != nil {
		return false, s.fail(rec, err)
	}

	if err := s.semantics.Execute(rec); err != nil {
		return false, s.fail(rec, err)
	}

	halted, err := s.semantics.WriteBack(rec)
	if err != nil {
		return false, s.fail(rec, err)
	}

	s.count++
	if halted || (s.maxInstructions > 0 && s.count >= s.maxInstructions) {
		s.halted = true
	}

	return true, nil
}

func (s *stream) fail(rec *emu.Record, err error) error {
	s.err = newInvariantError(rec, err)
	s.log.Error(s.err, "scheduler stopped")
	return s.err
}

// Done reports whether the stream halted or failed.
func (s *stream) Done() bool {
	return s.halted || s.err != nil
}

// Halted reports whether the stream halted normally.
func (s *stream) Halted() bool {
	return s.halted
}

// Err returns the fatal error that stopped the stream.
func (s *stream) Err() error {
	return s.err
}

// Schedule returns the timings of retired instructions.
func (s *stream) Schedule() []Timing {
	return s.schedule
}
