package emu

import (
	"fmt"

	"github.com/sarchlab/lc3bsim/insts"
)

// AccessProbe observes data memory accesses. It never changes their
// outcome.
type AccessProbe interface {
	Load(addr uint16, size int)
	Store(addr uint16, size int)
}

// LoadStoreUnit implements LC-3b load and store operations.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
	probe   AccessProbe
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// EffectiveAddress computes BaseR + offset for a load or store. Word
// accesses must be aligned.
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction) (uint16, error) {
	addr := lsu.regFile.ReadReg(inst.BaseR) + uint16(inst.Offset)
	if inst.IsWordAccess() && addr&1 != 0 {
		return 0, fmt.Errorf("%w: %v at 0x%04X", ErrUnalignedAccess, inst.Op, addr)
	}

	return addr, nil
}

// Load performs LDB (sign-extended byte) or LDW.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction, addr uint16) uint16 {
	if inst.IsWordAccess() {
		lsu.observeLoad(addr, 2)
		return lsu.memory.Read16(addr)
	}

	lsu.observeLoad(addr, 1)
	return uint16(int16(int8(lsu.memory.Read8(addr))))
}

// Store performs STB (low byte) or STW.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction, addr, value uint16) {
	if inst.IsWordAccess() {
		lsu.observeStore(addr, 2)
		lsu.memory.Write16(addr, value)
		return
	}

	lsu.observeStore(addr, 1)
	lsu.memory.Write8(addr, uint8(value))
}

func (lsu *LoadStoreUnit) observeLoad(addr uint16, size int) {
	if lsu.probe != nil {
		lsu.probe.Load(addr, size)
	}
}

func (lsu *LoadStoreUnit) observeStore(addr uint16, size int) {
	if lsu.probe != nil {
		lsu.probe.Store(addr, size)
	}
}
