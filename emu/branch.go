package emu

import "github.com/sarchlab/lc3bsim/insts"

// BranchUnit evaluates LC-3b control transfers.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Taken reports whether a BR with the given n/z/p bits is taken under the
// current condition codes.
func (b *BranchUnit) Taken(cond insts.Cond) bool {
	return cond&b.regFile.CC != 0
}

// Target computes a PC-relative target from the incremented PC.
func (b *BranchUnit) Target(nextPC uint16, offset int16) uint16 {
	return nextPC + uint16(offset)
}

// Redirect sets the PC.
func (b *BranchUnit) Redirect(target uint16) {
	b.regFile.PC = target
}
