package emu

import (
	"fmt"

	"github.com/sarchlab/lc3bsim/insts"
)

// ALU implements the LC-3b operate and shift instructions. It works on
// operand values captured in the read stage, so it never touches the
// register file.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Operate computes ADD, AND or XOR.
func (a *ALU) Operate(op insts.Op, op1, op2 uint16) (uint16, error) {
	switch op {
	case insts.OpADD:
		return op1 + op2, nil
	case insts.OpAND:
		return op1 & op2, nil
	case insts.OpXOR:
		return op1 ^ op2, nil
	default:
		return 0, fmt.Errorf("%w: %v is not an operate instruction", ErrUnknownOpcode, op)
	}
}

// Shift computes LSHF, RSHFL or RSHFA by amount bits.
func (a *ALU) Shift(kind insts.ShiftKind, value uint16, amount int16) uint16 {
	switch kind {
	case insts.ShiftLeft:
		return value << uint(amount)
	case insts.ShiftRightLogical:
		return value >> uint(amount)
	default:
		return uint16(int16(value) >> uint(amount))
	}
}
