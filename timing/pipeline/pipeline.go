package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/lc3bsim/emu"
)

// Pipeline steps a 4-stage in-order pipeline one cycle at a time.
// Stages: Fetch -> Read -> Execute -> Write-back
type Pipeline struct {
	semantics InstructionSemantics
	tracker   *HazardTracker
	log       logr.Logger

	// Stage slots
	fetch Slot
	read  Slot
	exec  Slot
	write Slot

	// Backing store for in-flight records. At most Depth instructions are
	// in flight, so a ring of Depth records is never overwritten early.
	store     [Depth]emu.Record
	storeNext int
	nextSeq   uint64

	maxInstructions uint64 // 0 means no limit

	// Execution state
	cycle    uint64
	retired  uint64
	schedule []Timing
	halted   bool
	err      error
}

// NewPipeline creates a stepped pipeline primed with the first
// instruction.
func NewPipeline(semantics InstructionSemantics, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		semantics:       semantics,
		tracker:         NewHazardTracker(),
		log:             o.logger.WithName("stepped"),
		maxInstructions: o.maxInstructions,
	}
	p.Reset()

	return p
}

// Reset empties every slot and the hazard tracker, then places the next
// instruction in the fetch slot.
func (p *Pipeline) Reset() {
	p.fetch.Clear()
	p.read.Clear()
	p.exec.Clear()
	p.write.Clear()
	p.tracker.Reset()
	p.store = [Depth]emu.Record{}
	p.storeNext = 0
	p.nextSeq = 0
	p.cycle = 0
	p.retired = 0
	p.schedule = nil
	p.halted = false
	p.err = nil

	p.refill()
}

// Tracker returns the hazard tracker.
func (p *Pipeline) Tracker() *HazardTracker {
	return p.tracker
}

// Slot returns a copy of the slot for stage.
func (p *Pipeline) Slot(stage Stage) Slot {
	switch stage {
	case StageFetch:
		return p.fetch
	case StageRead:
		return p.read
	case StageExec:
		return p.exec
	default:
		return p.write
	}
}

// Cycle returns the index of the next cycle to run.
func (p *Pipeline) Cycle() uint64 {
	return p.cycle
}

// Cycles returns the elapsed cycle count. Once halted it equals the cycle
// in which the last instruction wrote back.
func (p *Pipeline) Cycles() uint64 {
	return p.cycle
}

// Schedule returns the timings of retired instructions.
func (p *Pipeline) Schedule() []Timing {
	return p.schedule
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return summarize(p.schedule, p.Cycles())
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the fatal error that stopped the pipeline.
func (p *Pipeline) Err() error {
	return p.err
}

// Done reports whether the pipeline halted or failed.
func (p *Pipeline) Done() bool {
	return p.halted || p.err != nil
}

// Advance executes one cycle.
func (p *Pipeline) Advance() error {
	return p.Tick()
}

// Run executes the pipeline until it halts.
func (p *Pipeline) Run() error {
	for !p.Done() {
		if err := p.Tick(); err != nil {
			return err
		}
	}
	return p.err
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.Done(); i++ {
		p.Tick()
	}
	return !p.Done()
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (write, execute, read, fetch) so
// that a slot vacated downstream can be refilled in the same cycle. A
// register released by write-back is therefore readable by the read stage
// in the same cycle, and a PC written back can be fetched from at once.
// There is no forwarding.
//
// The cycle in which write-back reports a halt is not counted, so the
// elapsed cycle count equals the last instruction's write cycle.
func (p *Pipeline) Tick() error {
	if p.Done() {
		return p.err
	}

	if p.log.V(2).Enabled() {
		p.log.V(2).Info("tick",
			"cycle", p.cycle,
			"fetch", p.fetch.String(),
			"read", p.read.String(),
			"exec", p.exec.String(),
			"write", p.write.String())
	}

	if err := p.tick(); err != nil {
		p.err = err
		p.log.Error(err, "pipeline stopped", "cycle", p.cycle)
		return err
	}

	if !p.halted {
		p.cycle++
	}

	return nil
}

func (p *Pipeline) tick() error {
	if err := p.doWrite(); err != nil || p.halted {
		return err
	}

	if err := p.doExec(); err != nil {
		return err
	}

	if err := p.doRead(); err != nil {
		return err
	}

	if err := p.doFetch(); err != nil {
		return err
	}

	p.refill()

	return nil
}

// doWrite commits the instruction in the write slot and releases its
// hazard claims.
func (p *Pipeline) doWrite() error {
	slot := &p.write
	if !slot.Occupied() {
		return nil
	}

	rec := slot.Rec
	halted, err := p.semantics.WriteBack(rec)
	if err != nil {
		return newInvariantError(rec, err)
	}

	if err := p.tracker.ReleaseOnWrite(rec.Inst.Mask, rec.Inst.DR, rec.Addr); err != nil {
		return newInvariantError(rec, err)
	}

	slot.Timing.Write = p.cycle
	p.schedule = append(p.schedule, slot.Timing)
	p.retired++
	slot.Clear()

	if halted || (p.maxInstructions > 0 && p.retired >= p.maxInstructions) {
		p.halted = true
		p.log.V(1).Info("halt", "cycle", p.cycle, "retired", p.retired)
	}

	return nil
}

func (p *Pipeline) doExec() error {
	slot := &p.exec
	if !slot.Occupied() {
		return nil
	}

	if slot.Status == SlotPending {
		if err := p.semantics.Execute(slot.Rec); err != nil {
			return newInvariantError(slot.Rec, err)
		}
		slot.Status = SlotApplied
	}

	if handoff(slot, &p.write) {
		p.write.Timing.Exec = p.cycle
	}

	return nil
}

// doRead reads operands once no in-flight instruction will write them,
// then claims the instruction's own destinations.
func (p *Pipeline) doRead() error {
	slot := &p.read
	if !slot.Occupied() {
		return nil
	}

	rec := slot.Rec
	if slot.Status == SlotPending {
		stall, err := p.readHazard(rec)
		if err != nil {
			return newInvariantError(rec, err)
		}

		if stall {
			p.log.V(1).Info("read stall", "cycle", p.cycle, "seq", rec.Seq, "op", rec.Inst.Op)
			return nil
		}

		if err := p.semantics.Read(rec); err != nil {
			return newInvariantError(rec, err)
		}

		p.tracker.MarkEnteringRead(rec.Inst.Mask, rec.Inst.DR)
		if err := p.tracker.MarkEnteringReadMem(rec.Inst.Mask, rec.Addr); err != nil {
			return newInvariantError(rec, err)
		}

		slot.Status = SlotApplied
	}

	if handoff(slot, &p.exec) {
		p.exec.Timing.Read = p.cycle
	}

	return nil
}

// readHazard reports whether rec must wait. A load or store address is
// resolved only once its base register is clear.
func (p *Pipeline) readHazard(rec *emu.Record) (bool, error) {
	inst := &rec.Inst

	for _, reg := range []uint8{inst.SR1, inst.SR2} {
		if inst.ReadsReg(reg) && p.tracker.HasRegisterHazard(reg) {
			return true, nil
		}
	}

	if !rec.AddrKnown && (inst.ReadsMemory() || inst.WritesMemory()) {
		if p.tracker.HasRegisterHazard(inst.BaseR) {
			return true, nil
		}

		if err := p.semantics.ResolveAddress(rec); err != nil {
			return false, err
		}
	}

	if inst.ReadsMemory() && p.tracker.HasMemoryHazard(rec.Addr) {
		return true, nil
	}

	return false, nil
}

// doFetch fetches once the PC is known: no PC writer may be between read
// and write-back, nor waiting in the read slot.
func (p *Pipeline) doFetch() error {
	slot := &p.fetch
	if !slot.Occupied() {
		return nil
	}

	if p.tracker.HasControlHazard() || (p.read.Occupied() && FetchDepends(slot.Rec, p.read.Rec)) {
		p.log.V(1).Info("fetch stall", "cycle", p.cycle, "seq", slot.Rec.Seq)
		return nil
	}

	if slot.Status == SlotPending {
		rec := slot.Rec
		if err := p.semantics.Fetch(rec); err != nil {
			return newInvariantError(rec, err)
		}
		slot.Timing.PC = rec.PC
		slot.Timing.Op = rec.Inst.Op
		slot.Status = SlotApplied
	}

	if handoff(slot, &p.read) {
		p.read.Timing.Fetch = p.cycle
	}

	return nil
}

// refill allocates the next instruction into an empty fetch slot.
func (p *Pipeline) refill() {
	if p.fetch.Occupied() {
		return
	}

	if p.maxInstructions > 0 && p.nextSeq >= p.maxInstructions {
		return
	}

	rec := &p.store[p.storeNext]
	p.storeNext = (p.storeNext + 1) % Depth
	rec.Reset(p.nextSeq)

	p.fetch = Slot{
		Status: SlotPending,
		Rec:    rec,
		Timing: Timing{Seq: p.nextSeq},
	}
	p.nextSeq++
}
