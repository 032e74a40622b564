package pipeline

import (
	"fmt"

	"github.com/sarchlab/lc3bsim/emu"
)

// event marks a stage slot as used by instruction seq.
type event struct {
	seq   uint64
	valid bool
}

// Timeline places each instruction's four stage events into a bounded
// window of cycle offsets. Offsets are relative to a moving origin; the
// window is compacted after every insertion and the shift is added to the
// elapsed cycle count.
//
// Constraints for a new instruction against the events in the window:
//   - fetch is no earlier than any write of a PC writer, after every fetch
//     and no earlier than any read;
//   - read follows fetch, is no earlier than the write of any instruction
//     it depends on, and follows every read;
//   - exec follows read and every exec;
//   - write follows exec and every write.
type Timeline struct {
	stream

	capacity int
	slots    [Depth][]event

	// recent holds the records of the instructions still in the window,
	// indexed by seq modulo Depth.
	recent [Depth]emu.Record

	base uint64
}

// NewTimeline creates a timeline scheduler. The capacity must leave room
// for a full pipeline.
func NewTimeline(semantics InstructionSemantics, opts ...Option) (*Timeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.timelineCapacity < Depth {
		return nil, fmt.Errorf("%w: capacity %d is below pipeline depth %d",
			ErrTimelineCapacity, o.timelineCapacity, Depth)
	}

	t := &Timeline{
		stream:   newStream(semantics, o, "timeline"),
		capacity: o.timelineCapacity,
	}
	for i := range t.slots {
		t.slots[i] = make([]event, t.capacity)
	}

	return t, nil
}

// Capacity returns the number of cycle offsets in the window.
func (t *Timeline) Capacity() int {
	return t.capacity
}

// Reset empties the window and the schedule.
func (t *Timeline) Reset() {
	t.stream.reset()
	for i := range t.slots {
		clear(t.slots[i])
	}
	t.recent = [Depth]emu.Record{}
	t.base = 0
}

// Advance executes and places one instruction.
func (t *Timeline) Advance() error {
	var rec emu.Record

	ok, err := t.next(&rec)
	if !ok {
		return err
	}

	timing, err := t.insert(&rec)
	if err != nil {
		t.halted = false
		t.err = newInvariantError(&rec, err)
		t.log.Error(t.err, "scheduler stopped")
		return t.err
	}

	t.schedule = append(t.schedule, timing)
	t.log.V(2).Info("placed", "timing", timing.String(), "base", t.base)

	t.evict(rec.Seq)
	t.compact()

	if t.halted {
		t.flush()
	}

	return nil
}

// Run executes instructions until the stream halts.
func (t *Timeline) Run() error {
	for !t.Done() {
		if err := t.Advance(); err != nil {
			return err
		}
	}
	return t.err
}

// Cycles returns the elapsed cycle count including events still in the
// window.
func (t *Timeline) Cycles() uint64 {
	highest, ok := t.highest()
	if !ok {
		return t.base
	}
	return t.base + uint64(highest)
}

// Stats returns statistics derived from the schedule.
func (t *Timeline) Stats() Statistics {
	return summarize(t.schedule, t.Cycles())
}

func (t *Timeline) insert(rec *emu.Record) (Timing, error) {
	fetch := 0
	t.scan(StageWrite, func(off int, prior *emu.Record) {
		if FetchDepends(rec, prior) {
			fetch = max(fetch, off)
		}
	})
	t.scan(StageFetch, func(off int, _ *emu.Record) { fetch = max(fetch, off+1) })
	t.scan(StageRead, func(off int, _ *emu.Record) { fetch = max(fetch, off) })

	read := fetch + 1
	t.scan(StageWrite, func(off int, prior *emu.Record) {
		if ReadDepends(rec, prior) {
			read = max(read, off)
		}
	})
	t.scan(StageRead, func(off int, _ *emu.Record) { read = max(read, off+1) })

	exec := read + 1
	t.scan(StageExec, func(off int, _ *emu.Record) { exec = max(exec, off+1) })

	write := exec + 1
	t.scan(StageWrite, func(off int, _ *emu.Record) { write = max(write, off+1) })

	offsets := [Depth]int{fetch, read, exec, write}
	for stage, off := range offsets {
		if off >= t.capacity {
			return Timing{}, fmt.Errorf("%w: %v offset %d does not fit capacity %d",
				ErrTimelineCapacity, Stage(stage), off, t.capacity)
		}
	}

	for stage, off := range offsets {
		t.slots[stage][off] = event{seq: rec.Seq, valid: true}
	}
	t.recent[rec.Seq%Depth] = *rec

	return Timing{
		Seq:   rec.Seq,
		PC:    rec.PC,
		Op:    rec.Inst.Op,
		Fetch: t.base + uint64(fetch),
		Read:  t.base + uint64(read),
		Exec:  t.base + uint64(exec),
		Write: t.base + uint64(write),
	}, nil
}

// scan calls fn for every populated offset of stage with the record of the
// instruction occupying it.
func (t *Timeline) scan(stage Stage, fn func(off int, prior *emu.Record)) {
	for off, ev := range t.slots[stage] {
		if ev.valid {
			fn(off, &t.recent[ev.seq%Depth])
		}
	}
}

// evict drops the events of instructions that can no longer constrain a
// successor. After placing seq, only seq-2 .. seq are kept.
func (t *Timeline) evict(seq uint64) {
	if seq+1 < Depth {
		return
	}
	oldest := seq + 1 - Depth

	for s := range t.slots {
		for off, ev := range t.slots[s] {
			if ev.valid && ev.seq <= oldest {
				t.slots[s][off] = event{}
			}
		}
	}
}

// compact shifts every stage down by the lowest occupied offset.
func (t *Timeline) compact() {
	lowest, ok := t.lowest()
	if !ok || lowest == 0 {
		return
	}

	for s := range t.slots {
		copy(t.slots[s], t.slots[s][lowest:])
		clear(t.slots[s][t.capacity-lowest:])
	}
	t.base += uint64(lowest)
}

// flush folds the remaining window into the elapsed cycle count.
func (t *Timeline) flush() {
	highest, ok := t.highest()
	if !ok {
		return
	}

	t.base += uint64(highest)
	for s := range t.slots {
		clear(t.slots[s])
	}
}

func (t *Timeline) lowest() (int, bool) {
	found := false
	lowest := 0
	for s := range t.slots {
		for off, ev := range t.slots[s] {
			if ev.valid {
				if !found || off < lowest {
					lowest = off
				}
				found = true
				break
			}
		}
	}
	return lowest, found
}

func (t *Timeline) highest() (int, bool) {
	found := false
	highest := 0
	for s := range t.slots {
		for off := len(t.slots[s]) - 1; off >= 0; off-- {
			if t.slots[s][off].valid {
				if off > highest {
					highest = off
				}
				found = true
				break
			}
		}
	}
	return highest, found
}
