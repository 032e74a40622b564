// Package emu provides functional LC-3b emulation.
package emu

import "github.com/sarchlab/lc3bsim/insts"

// RegFile represents the LC-3b register file.
// It contains eight general-purpose registers (R0-R7), the program counter
// and the N/Z/P condition codes.
type RegFile struct {
	// R holds general-purpose registers R0-R7.
	R [insts.NumRegs]uint16

	// PC is the program counter.
	PC uint16

	// CC holds exactly one of the N, Z or P bits once initialized.
	CC insts.Cond
}

// NewRegFile returns a register file starting at pc with the Z bit set,
// which is the LC-3b reset state.
func NewRegFile(pc uint16) *RegFile {
	return &RegFile{PC: pc, CC: insts.CondZ}
}

// ReadReg reads a register value.
func (r *RegFile) ReadReg(reg uint8) uint16 {
	return r.R[reg&7]
}

// WriteReg writes a value to a register.
func (r *RegFile) WriteReg(reg uint8, value uint16) {
	r.R[reg&7] = value
}

// SetCC sets the condition codes from a result value.
func (r *RegFile) SetCC(value uint16) {
	switch {
	case value == 0:
		r.CC = insts.CondZ
	case value&0x8000 != 0:
		r.CC = insts.CondN
	default:
		r.CC = insts.CondP
	}
}
