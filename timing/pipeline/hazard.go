package pipeline

import "github.com/sarchlab/lc3bsim/insts"

// memWrite is one in-flight store address. Address 0 is valid, so
// occupancy is tracked separately.
type memWrite struct {
	addr  uint16
	valid bool
}

// HazardTracker records the resources claimed by instructions between the
// read and write-back stages. Hazards are looked up, never resolved by
// forwarding.
type HazardTracker struct {
	pendingWrites  [insts.NumRegs]uint32
	memWrites      [Depth]memWrite
	controlPending bool
}

// NewHazardTracker creates an empty hazard tracker.
func NewHazardTracker() *HazardTracker {
	return &HazardTracker{}
}

// Reset clears every claim.
func (h *HazardTracker) Reset() {
	*h = HazardTracker{}
}

// wordAlign clears the low address bit so byte and word accesses to the
// same word alias.
func wordAlign(addr uint16) uint16 {
	return addr &^ 1
}

// MarkEnteringRead claims the destination register and the PC for an
// instruction that has finished its read stage.
func (h *HazardTracker) MarkEnteringRead(mask insts.DepMask, dr uint8) {
	if mask.Has(insts.DepDR) {
		h.pendingWrites[dr]++
	}

	if mask.Has(insts.DepPC) {
		h.controlPending = true
	}
}

// MarkEnteringReadMem claims the store address of an instruction that has
// finished its read stage.
func (h *HazardTracker) MarkEnteringReadMem(mask insts.DepMask, addr uint16) error {
	if !mask.Has(insts.DepWM) {
		return nil
	}

	for i := range h.memWrites {
		if !h.memWrites[i].valid {
			h.memWrites[i] = memWrite{addr: wordAlign(addr), valid: true}
			return nil
		}
	}

	return ErrMemoryTableFull
}

// ReleaseOnWrite drops the claims of an instruction leaving write-back.
func (h *HazardTracker) ReleaseOnWrite(mask insts.DepMask, dr uint8, addr uint16) error {
	if mask.Has(insts.DepPC) {
		h.controlPending = false
	}

	if mask.Has(insts.DepDR) {
		if h.pendingWrites[dr] == 0 {
			return ErrRegisterUnderflow
		}
		h.pendingWrites[dr]--
	}

	if mask.Has(insts.DepWM) {
		aligned := wordAlign(addr)
		for i := range h.memWrites {
			if h.memWrites[i].valid && h.memWrites[i].addr == aligned {
				h.memWrites[i] = memWrite{}
				return nil
			}
		}

		return ErrMemoryEntryMissing
	}

	return nil
}

// HasRegisterHazard reports whether an in-flight instruction will write reg.
func (h *HazardTracker) HasRegisterHazard(reg uint8) bool {
	return h.pendingWrites[reg] > 0
}

// HasMemoryHazard reports whether an in-flight store targets the word
// containing addr.
func (h *HazardTracker) HasMemoryHazard(addr uint16) bool {
	aligned := wordAlign(addr)
	for _, w := range h.memWrites {
		if w.valid && w.addr == aligned {
			return true
		}
	}

	return false
}

// HasControlHazard reports whether a PC writer is in flight.
func (h *HazardTracker) HasControlHazard() bool {
	return h.controlPending
}

// PendingWrites returns the number of in-flight writers of reg.
func (h *HazardTracker) PendingWrites(reg uint8) uint32 {
	return h.pendingWrites[reg]
}

// PendingStores returns the number of in-flight store addresses.
func (h *HazardTracker) PendingStores() int {
	n := 0
	for _, w := range h.memWrites {
		if w.valid {
			n++
		}
	}

	return n
}

// Drained reports whether no claims remain.
func (h *HazardTracker) Drained() bool {
	for _, n := range h.pendingWrites {
		if n != 0 {
			return false
		}
	}

	return !h.controlPending && h.PendingStores() == 0
}
