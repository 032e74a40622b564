package emu

import "github.com/sarchlab/lc3bsim/insts"

// Record is the dynamic state of one instruction moving through the
// pipeline. The stage handlers fill it in stage by stage.
type Record struct {
	Seq    uint64 // Program-order index
	PC     uint16 // Fetch address
	NextPC uint16 // PC + 2, also the JSR link value
	Inst   insts.Instruction

	Addr      uint16 // Effective address of a load or store
	AddrKnown bool

	Op1    uint16 // First operand, store value or jump base
	Op2    uint16 // Second operand
	Result uint16 // Value bound for DR, or the loaded value
	Target uint16 // Control-flow target
	Taken  bool   // BR outcome
}

// Reset clears the record for reuse by the instruction with index seq.
func (r *Record) Reset(seq uint64) {
	*r = Record{Seq: seq}
}
