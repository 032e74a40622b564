// Package insts provides LC-3b instruction definitions and decoding.
package insts

import (
	"fmt"
	"strings"
)

// Op represents an LC-3b operation.
type Op uint8

// LC-3b operations. JSR and JSRR share opcode 0x4 but are kept apart so the
// dependency mask can be fixed at decode.
const (
	OpUnknown Op = iota
	OpBR
	OpADD
	OpLDB
	OpSTB
	OpJSR
	OpJSRR
	OpAND
	OpLDW
	OpSTW
	OpRTI
	OpXOR
	OpJMP
	OpSHF
	OpLEA
	OpTRAP
)

var opNames = [...]string{
	OpUnknown: "???",
	OpBR:      "BR",
	OpADD:     "ADD",
	OpLDB:     "LDB",
	OpSTB:     "STB",
	OpJSR:     "JSR",
	OpJSRR:    "JSRR",
	OpAND:     "AND",
	OpLDW:     "LDW",
	OpSTW:     "STW",
	OpRTI:     "RTI",
	OpXOR:     "XOR",
	OpJMP:     "JMP",
	OpSHF:     "SHF",
	OpLEA:     "LEA",
	OpTRAP:    "TRAP",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}

	return fmt.Sprintf("Op(%d)", uint8(o))
}

// DepMask describes the architectural resources an instruction touches.
type DepMask uint8

// Dependency mask flags.
const (
	DepSR1 DepMask = 1 << iota // reads SR1
	DepSR2                     // reads SR2
	DepDR                      // writes DR
	DepWCC                     // writes condition codes
	DepRCC                     // reads condition codes
	DepPC                      // writes PC
	DepRM                      // reads memory
	DepWM                      // writes memory
)

// Has reports whether all bits of flag are set.
func (m DepMask) Has(flag DepMask) bool {
	return m&flag == flag
}

func (m DepMask) String() string {
	names := []string{"SR1", "SR2", "DR", "WCC", "RCC", "PC", "RM", "WM"}

	var parts []string
	for i, name := range names {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}

	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, "|")
}

// Cond holds the n/z/p bits of a BR instruction or the condition codes.
type Cond uint8

// Condition bits.
const (
	CondP Cond = 1 << iota
	CondZ
	CondN
)

func (c Cond) String() string {
	var sb strings.Builder
	if c&CondN != 0 {
		sb.WriteByte('n')
	}
	if c&CondZ != 0 {
		sb.WriteByte('z')
	}
	if c&CondP != 0 {
		sb.WriteByte('p')
	}

	return sb.String()
}

// ShiftKind selects the SHF variant.
type ShiftKind uint8

// Shift kinds.
const (
	ShiftLeft ShiftKind = iota
	ShiftRightLogical
	ShiftRightArith
)

// Trap vectors serviced by the simulator.
const (
	TrapGETC uint8 = 0x20
	TrapOUT  uint8 = 0x21
	TrapPUTS uint8 = 0x22
	TrapIN   uint8 = 0x23
	TrapHALT uint8 = 0x25
)

// IsSupportedTrap reports whether vector is a trap the simulator services.
func IsSupportedTrap(vector uint8) bool {
	switch vector {
	case TrapGETC, TrapOUT, TrapPUTS, TrapIN, TrapHALT:
		return true
	default:
		return false
	}
}

// Instruction represents a decoded LC-3b instruction.
type Instruction struct {
	Word uint16 // Raw machine word
	Op   Op     // Operation

	DR    uint8 // Destination register (R7 for JSR/JSRR)
	SR1   uint8 // First source register
	SR2   uint8 // Second source register
	BaseR uint8 // Base register for memory accesses and jumps

	HasImm bool  // ALU second operand is Imm rather than SR2
	Imm    int16 // imm5 (sign-extended) or SHF amount
	Offset int16 // Address offset in bytes, already scaled and sign-extended

	Cond       Cond      // n/z/p for BR
	Shift      ShiftKind // Variant for SHF
	TrapVector uint8     // Vector for TRAP

	Mask DepMask // Resources read and written
}

// ReadsReg reports whether the instruction reads reg as an operand.
func (i *Instruction) ReadsReg(reg uint8) bool {
	return (i.Mask.Has(DepSR1) && i.SR1 == reg) ||
		(i.Mask.Has(DepSR2) && i.SR2 == reg)
}

// WritesReg reports whether the instruction writes reg.
func (i *Instruction) WritesReg(reg uint8) bool {
	return i.Mask.Has(DepDR) && i.DR == reg
}

// WritesPC reports whether the instruction may redirect control flow.
func (i *Instruction) WritesPC() bool {
	return i.Mask.Has(DepPC)
}

// ReadsMemory reports whether the instruction loads from memory.
func (i *Instruction) ReadsMemory() bool {
	return i.Mask.Has(DepRM)
}

// WritesMemory reports whether the instruction stores to memory.
func (i *Instruction) WritesMemory() bool {
	return i.Mask.Has(DepWM)
}

// IsWordAccess reports whether a memory access is 16 bits wide.
func (i *Instruction) IsWordAccess() bool {
	return i.Op == OpLDW || i.Op == OpSTW
}

// Decoder decodes LC-3b machine words into instructions.
type Decoder struct{}

// NewDecoder creates a new LC-3b instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 16-bit LC-3b instruction word. Reserved opcodes decode
// to OpUnknown with an empty mask.
func (d *Decoder) Decode(word uint16) *Instruction {
	inst := &Instruction{Word: word, Op: OpUnknown}

	switch word >> 12 {
	case 0x0:
		d.decodeBranch(word, inst)
	case 0x1:
		d.decodeOperate(word, inst, OpADD)
	case 0x2:
		d.decodeLoad(word, inst, OpLDB)
	case 0x3:
		d.decodeStore(word, inst, OpSTB)
	case 0x4:
		d.decodeJSR(word, inst)
	case 0x5:
		d.decodeOperate(word, inst, OpAND)
	case 0x6:
		d.decodeLoad(word, inst, OpLDW)
	case 0x7:
		d.decodeStore(word, inst, OpSTW)
	case 0x8:
		inst.Op = OpRTI
		inst.Mask = DepPC
	case 0x9:
		d.decodeOperate(word, inst, OpXOR)
	case 0xC:
		inst.Op = OpJMP
		inst.BaseR = field(word, 8, 6)
		inst.SR1 = inst.BaseR
		inst.Mask = DepSR1 | DepPC
	case 0xD:
		d.decodeShift(word, inst)
	case 0xE:
		inst.Op = OpLEA
		inst.DR = field(word, 11, 9)
		inst.Offset = sext(word&0x1FF, 9) << 1
		inst.Mask = DepDR
	case 0xF:
		d.decodeTrap(word, inst)
	}

	return inst
}

func (d *Decoder) decodeBranch(word uint16, inst *Instruction) {
	inst.Op = OpBR
	inst.Cond = Cond(field(word, 11, 9))
	inst.Offset = sext(word&0x1FF, 9) << 1
	inst.Mask = DepPC | DepRCC
}

// decodeOperate handles ADD, AND and XOR.
// Format: op | DR | SR1 | A | (00 SR2 | imm5)
func (d *Decoder) decodeOperate(word uint16, inst *Instruction, op Op) {
	inst.Op = op
	inst.DR = field(word, 11, 9)
	inst.SR1 = field(word, 8, 6)
	inst.Mask = DepDR | DepSR1 | DepWCC

	if word&(1<<5) != 0 {
		inst.HasImm = true
		inst.Imm = sext(word&0x1F, 5)
		return
	}

	inst.SR2 = field(word, 2, 0)
	inst.Mask |= DepSR2
}

func (d *Decoder) decodeLoad(word uint16, inst *Instruction, op Op) {
	inst.Op = op
	inst.DR = field(word, 11, 9)
	inst.BaseR = field(word, 8, 6)
	inst.SR1 = inst.BaseR
	inst.Offset = sext(word&0x3F, 6)
	if op == OpLDW {
		inst.Offset <<= 1
	}
	inst.Mask = DepDR | DepSR1 | DepRM | DepWCC
}

// decodeStore handles STB and STW. SR1 is the value register and SR2 the
// base so that both participate in register hazard checks.
func (d *Decoder) decodeStore(word uint16, inst *Instruction, op Op) {
	inst.Op = op
	inst.SR1 = field(word, 11, 9)
	inst.BaseR = field(word, 8, 6)
	inst.SR2 = inst.BaseR
	inst.Offset = sext(word&0x3F, 6)
	if op == OpSTW {
		inst.Offset <<= 1
	}
	inst.Mask = DepSR1 | DepSR2 | DepWM
}

func (d *Decoder) decodeJSR(word uint16, inst *Instruction) {
	inst.DR = LinkReg
	inst.Mask = DepPC | DepDR

	if word&(1<<11) != 0 {
		inst.Op = OpJSR
		inst.Offset = sext(word&0x7FF, 11) << 1
		return
	}

	inst.Op = OpJSRR
	inst.BaseR = field(word, 8, 6)
	inst.SR1 = inst.BaseR
	inst.Mask |= DepSR1
}

// decodeShift handles LSHF, RSHFL and RSHFA.
// Format: 1101 | DR | SR | A | D | amount4
func (d *Decoder) decodeShift(word uint16, inst *Instruction) {
	inst.Op = OpSHF
	inst.DR = field(word, 11, 9)
	inst.SR1 = field(word, 8, 6)
	inst.HasImm = true
	inst.Imm = int16(word & 0xF)
	inst.Mask = DepDR | DepSR1 | DepWCC

	switch {
	case word&(1<<4) == 0:
		inst.Shift = ShiftLeft
	case word&(1<<5) == 0:
		inst.Shift = ShiftRightLogical
	default:
		inst.Shift = ShiftRightArith
	}
}

// decodeTrap handles TRAP. The console traps use R0 as input or output.
func (d *Decoder) decodeTrap(word uint16, inst *Instruction) {
	inst.Op = OpTRAP
	inst.TrapVector = uint8(word & 0xFF)
	inst.Mask = DepPC

	switch inst.TrapVector {
	case TrapGETC, TrapIN:
		inst.DR = 0
		inst.Mask |= DepDR
	case TrapOUT, TrapPUTS:
		inst.SR1 = 0
		inst.Mask |= DepSR1
	}
}

// field extracts bits [hi:lo] of word.
func field(word uint16, hi, lo uint) uint8 {
	return uint8((word >> lo) & (1<<(hi-lo+1) - 1))
}

// sext sign-extends the low bits of v.
func sext(v uint16, bits uint) int16 {
	shift := 16 - bits
	return int16(v<<shift) >> shift
}

// Disassemble renders inst in assembler-like syntax.
func (i *Instruction) Disassemble() string {
	switch i.Op {
	case OpADD, OpAND, OpXOR:
		if i.HasImm {
			return fmt.Sprintf("%v R%d, R%d, #%d", i.Op, i.DR, i.SR1, i.Imm)
		}
		return fmt.Sprintf("%v R%d, R%d, R%d", i.Op, i.DR, i.SR1, i.SR2)
	case OpLDB, OpLDW:
		return fmt.Sprintf("%v R%d, R%d, #%d", i.Op, i.DR, i.BaseR, i.Offset)
	case OpSTB, OpSTW:
		return fmt.Sprintf("%v R%d, R%d, #%d", i.Op, i.SR1, i.BaseR, i.Offset)
	case OpBR:
		return fmt.Sprintf("BR%v #%d", i.Cond, i.Offset)
	case OpJMP, OpJSRR:
		return fmt.Sprintf("%v R%d", i.Op, i.BaseR)
	case OpJSR:
		return fmt.Sprintf("JSR #%d", i.Offset)
	case OpLEA:
		return fmt.Sprintf("LEA R%d, #%d", i.DR, i.Offset)
	case OpSHF:
		names := [...]string{"LSHF", "RSHFL", "RSHFA"}
		return fmt.Sprintf("%s R%d, R%d, #%d", names[i.Shift], i.DR, i.SR1, i.Imm)
	case OpTRAP:
		return fmt.Sprintf("TRAP x%02X", i.TrapVector)
	case OpRTI:
		return "RTI"
	default:
		return fmt.Sprintf(".FILL x%04X", i.Word)
	}
}
