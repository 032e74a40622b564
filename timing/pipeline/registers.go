package pipeline

import (
	"fmt"

	"github.com/sarchlab/lc3bsim/emu"
)

// SlotStatus tracks whether a slot's stage side effect has run.
type SlotStatus int

// Slot statuses.
const (
	// SlotIdle means the slot holds no instruction.
	SlotIdle SlotStatus = iota
	// SlotPending means the instruction arrived and its stage has not run.
	SlotPending
	// SlotApplied means the stage ran but the instruction could not move on.
	SlotApplied
)

func (s SlotStatus) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotPending:
		return "pending"
	case SlotApplied:
		return "applied"
	default:
		return fmt.Sprintf("SlotStatus(%d)", int(s))
	}
}

// Slot holds the instruction occupying one pipeline stage.
type Slot struct {
	// Status is the slot's progress through its stage.
	Status SlotStatus

	// Rec is the in-flight instruction, nil when idle.
	Rec *emu.Record

	// Timing accumulates the stage cycles recorded so far.
	Timing Timing
}

// Occupied reports whether the slot holds an instruction.
func (s Slot) Occupied() bool {
	return s.Status != SlotIdle
}

// Clear resets the slot to idle.
func (s *Slot) Clear() {
	s.Status = SlotIdle
	s.Rec = nil
	s.Timing = Timing{}
}

func (s Slot) String() string {
	if !s.Occupied() {
		return "-"
	}

	return fmt.Sprintf("#%d %v (%v)", s.Rec.Seq, s.Rec.Inst.Op, s.Status)
}

// handoff moves from's instruction into to when to is idle. On success the
// instruction arrives pending in to. Otherwise from keeps it.
func handoff(from, to *Slot) bool {
	if to.Occupied() {
		return false
	}

	*to = *from
	to.Status = SlotPending
	from.Clear()

	return true
}
