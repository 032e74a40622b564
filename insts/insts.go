// Package insts provides LC-3b instruction definitions and decoding.
//
// This package decodes 16-bit LC-3b machine words into structured
// instruction representations. Every decoded instruction carries a
// dependency mask describing which architectural resources it reads and
// writes, which the timing models use for hazard detection.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x1283) // ADD R1, R2, R3
//	fmt.Printf("Op: %v, DR: %d, SR1: %d, SR2: %d\n", inst.Op, inst.DR, inst.SR1, inst.SR2)
package insts

// NumRegs is the number of general purpose registers.
const NumRegs = 8

// LinkReg is the register JSR and JSRR write the return address into.
const LinkReg = 7
