package emu

import (
	"fmt"
	"os"

	"github.com/sarchlab/lc3bsim/insts"
)

// Semantics applies the per-stage effects of LC-3b instructions to a
// register file and memory. Each stage handler switches over every
// operation; an operation with nothing to do in a stage falls through
// explicitly.
//
// Side effects are split across stages as follows:
//   - Fetch reads and decodes the word at PC and advances PC.
//   - Read captures register operands and performs loads.
//   - Execute computes ALU results, LEA addresses and branch outcomes.
//   - WriteBack updates registers, condition codes, memory and PC, and
//     services traps.
type Semantics struct {
	regFile     *RegFile
	memory      *Memory
	decoder     *insts.Decoder
	alu         *ALU
	lsu         *LoadStoreUnit
	branchUnit  *BranchUnit
	trapHandler TrapHandler
}

// SemanticsOption is a functional option for configuring Semantics.
type SemanticsOption func(*Semantics)

// WithTrapHandler sets a custom trap handler.
func WithTrapHandler(handler TrapHandler) SemanticsOption {
	return func(s *Semantics) {
		s.trapHandler = handler
	}
}

// WithAccessProbe attaches an observer to data memory accesses.
func WithAccessProbe(probe AccessProbe) SemanticsOption {
	return func(s *Semantics) {
		s.lsu.probe = probe
	}
}

// NewSemantics creates the stage handlers for the given state.
func NewSemantics(regFile *RegFile, memory *Memory, opts ...SemanticsOption) *Semantics {
	s := &Semantics{
		regFile:    regFile,
		memory:     memory,
		decoder:    insts.NewDecoder(),
		alu:        NewALU(),
		lsu:        NewLoadStoreUnit(regFile, memory),
		branchUnit: NewBranchUnit(regFile),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.trapHandler == nil {
		s.trapHandler = NewDefaultTrapHandler(regFile, memory, os.Stdout)
	}

	return s
}

// RegFile returns the register file the handlers operate on.
func (s *Semantics) RegFile() *RegFile {
	return s.regFile
}

// Memory returns the memory the handlers operate on.
func (s *Semantics) Memory() *Memory {
	return s.memory
}

// Fetch reads the instruction at PC into rec and advances PC by 2.
func (s *Semantics) Fetch(rec *Record) error {
	pc := s.regFile.PC
	if pc&1 != 0 {
		return fmt.Errorf("%w: fetch at 0x%04X", ErrUnalignedAccess, pc)
	}

	word := s.memory.Read16(pc)
	rec.PC = pc
	rec.NextPC = pc + 2
	rec.Inst = *s.decoder.Decode(word)
	s.regFile.PC = rec.NextPC

	switch rec.Inst.Op {
	case insts.OpTRAP:
		if !insts.IsSupportedTrap(rec.Inst.TrapVector) {
			return fmt.Errorf("%w: x%02X", ErrUnknownTrap, rec.Inst.TrapVector)
		}
	case insts.OpBR, insts.OpADD, insts.OpLDB, insts.OpSTB, insts.OpJSR,
		insts.OpJSRR, insts.OpAND, insts.OpLDW, insts.OpSTW, insts.OpRTI,
		insts.OpXOR, insts.OpJMP, insts.OpSHF, insts.OpLEA:
	default:
		return fmt.Errorf("%w: word 0x%04X", ErrUnknownOpcode, word)
	}

	return nil
}

// ResolveAddress computes the effective address of a load or store from
// the current base register value. Other operations are left untouched.
func (s *Semantics) ResolveAddress(rec *Record) error {
	switch rec.Inst.Op {
	case insts.OpLDB, insts.OpLDW, insts.OpSTB, insts.OpSTW:
		addr, err := s.lsu.EffectiveAddress(&rec.Inst)
		if err != nil {
			return err
		}
		rec.Addr = addr
		rec.AddrKnown = true
	case insts.OpBR, insts.OpADD, insts.OpJSR, insts.OpJSRR, insts.OpAND,
		insts.OpRTI, insts.OpXOR, insts.OpJMP, insts.OpSHF, insts.OpLEA,
		insts.OpTRAP:
	default:
		return unknownOp(rec)
	}

	return nil
}

// Read captures operands and performs loads.
func (s *Semantics) Read(rec *Record) error {
	inst := &rec.Inst

	switch inst.Op {
	case insts.OpADD, insts.OpAND, insts.OpXOR:
		rec.Op1 = s.regFile.ReadReg(inst.SR1)
		if inst.HasImm {
			rec.Op2 = uint16(inst.Imm)
		} else {
			rec.Op2 = s.regFile.ReadReg(inst.SR2)
		}
	case insts.OpSHF:
		rec.Op1 = s.regFile.ReadReg(inst.SR1)
	case insts.OpLDB, insts.OpLDW:
		if err := s.ensureAddress(rec); err != nil {
			return err
		}
		rec.Result = s.lsu.Load(inst, rec.Addr)
	case insts.OpSTB, insts.OpSTW:
		if err := s.ensureAddress(rec); err != nil {
			return err
		}
		rec.Op1 = s.regFile.ReadReg(inst.SR1)
	case insts.OpJMP, insts.OpJSRR:
		rec.Op1 = s.regFile.ReadReg(inst.BaseR)
	case insts.OpTRAP:
		if inst.Mask.Has(insts.DepSR1) {
			rec.Op1 = s.regFile.ReadReg(inst.SR1)
		}
	case insts.OpBR, insts.OpJSR, insts.OpLEA, insts.OpRTI:
	default:
		return unknownOp(rec)
	}

	return nil
}

// Execute computes results and control-flow targets. BR samples the
// condition codes here.
func (s *Semantics) Execute(rec *Record) error {
	inst := &rec.Inst

	switch inst.Op {
	case insts.OpADD, insts.OpAND, insts.OpXOR:
		result, err := s.alu.Operate(inst.Op, rec.Op1, rec.Op2)
		if err != nil {
			return err
		}
		rec.Result = result
	case insts.OpSHF:
		rec.Result = s.alu.Shift(inst.Shift, rec.Op1, inst.Imm)
	case insts.OpLEA:
		rec.Result = s.branchUnit.Target(rec.NextPC, inst.Offset)
	case insts.OpBR:
		rec.Taken = s.branchUnit.Taken(inst.Cond)
		rec.Target = s.branchUnit.Target(rec.NextPC, inst.Offset)
	case insts.OpJMP:
		rec.Target = rec.Op1
	case insts.OpJSR:
		rec.Target = s.branchUnit.Target(rec.NextPC, inst.Offset)
		rec.Result = rec.NextPC
	case insts.OpJSRR:
		rec.Target = rec.Op1
		rec.Result = rec.NextPC
	case insts.OpLDB, insts.OpLDW, insts.OpSTB, insts.OpSTW, insts.OpRTI,
		insts.OpTRAP:
	default:
		return unknownOp(rec)
	}

	return nil
}

// WriteBack commits the instruction's architectural effects. It reports
// whether the machine halted.
func (s *Semantics) WriteBack(rec *Record) (bool, error) {
	inst := &rec.Inst

	switch inst.Op {
	case insts.OpADD, insts.OpAND, insts.OpXOR, insts.OpSHF,
		insts.OpLDB, insts.OpLDW:
		s.regFile.WriteReg(inst.DR, rec.Result)
		s.regFile.SetCC(rec.Result)
	case insts.OpLEA:
		s.regFile.WriteReg(inst.DR, rec.Result)
	case insts.OpSTB, insts.OpSTW:
		s.lsu.Store(inst, rec.Addr, rec.Op1)
	case insts.OpBR:
		if rec.Taken {
			s.branchUnit.Redirect(rec.Target)
		}
	case insts.OpJMP:
		s.branchUnit.Redirect(rec.Target)
	case insts.OpJSR, insts.OpJSRR:
		s.regFile.WriteReg(insts.LinkReg, rec.Result)
		s.branchUnit.Redirect(rec.Target)
	case insts.OpTRAP:
		result, err := s.trapHandler.Handle(inst.TrapVector)
		if err != nil {
			return false, err
		}
		return result.Halted, nil
	case insts.OpRTI:
		return false, fmt.Errorf("%w at 0x%04X", ErrPrivilegeViolation, rec.PC)
	default:
		return false, unknownOp(rec)
	}

	return false, nil
}

func (s *Semantics) ensureAddress(rec *Record) error {
	if rec.AddrKnown {
		return nil
	}

	return s.ResolveAddress(rec)
}

func unknownOp(rec *Record) error {
	return fmt.Errorf("%w: word 0x%04X at 0x%04X", ErrUnknownOpcode, rec.Inst.Word, rec.PC)
}

// Complete runs every stage of one instruction back to back.
func (s *Semantics) Complete(rec *Record) (bool, error) {
	if err := s.Fetch(rec); err != nil {
		return false, err
	}
	if err := s.Read(rec); err != nil {
		return false, err
	}
	if err := s.Execute(rec); err != nil {
		return false, err
	}

	return s.WriteBack(rec)
}
