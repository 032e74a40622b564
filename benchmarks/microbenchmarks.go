package benchmarks

import (
	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
)

// Data addresses used by the memory benchmarks.
const (
	dataBase = 0x4000
	copyDst  = 0x4100
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one pipeline characteristic and leaves a checkable
// value in R0.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		loopSimulation(),
		memoryCopy(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a memory copy and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		memoryCopy(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - Tests throughput with independent operations
func arithmeticSequential() Benchmark {
	var program []uint16
	for i := 0; i < 20; i++ {
		r := uint8(i % 5)
		program = append(program, insts.EncodeADDImm(r, r, 1))
	}
	program = append(program, insts.EncodeHALT())

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 ADDs rotating over 5 registers - one instruction per cycle",
		Program:     program,
		ExpectedR0:  4, // R0 = 0 + 4*1
	}
}

// 2. Dependency Chain - Tests read stalls with RAW hazards
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDs (R0 = R0 + 1) - one data stall each",
		Program:     buildDependencyChain(20),
		ExpectedR0:  20,
	}
}

func buildDependencyChain(n int) []uint16 {
	program := make([]uint16, 0, n+1)
	for i := 0; i < n; i++ {
		program = append(program, insts.EncodeADDImm(0, 0, 1))
	}
	return append(program, insts.EncodeHALT())
}

// 3. Memory Sequential - Tests store/load ordering through memory
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 stores then 4 loads of adjacent words - memory hazards and cache hits",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(1, dataBase)
		},
		Program: []uint16{
			insts.EncodeANDImm(0, 0, 0),
			insts.EncodeADDImm(2, 0, 7),
			insts.EncodeSTW(2, 1, 0),
			insts.EncodeSTW(2, 1, 1),
			insts.EncodeSTW(2, 1, 2),
			insts.EncodeSTW(2, 1, 3),
			insts.EncodeLDW(3, 1, 0),
			insts.EncodeLDW(4, 1, 1),
			insts.EncodeLDW(5, 1, 2),
			insts.EncodeLDW(6, 1, 3),
			insts.EncodeADD(0, 3, 4),
			insts.EncodeADD(0, 0, 5),
			insts.EncodeADD(0, 0, 6),
			insts.EncodeHALT(),
		},
		ExpectedR0: 28, // 4 * 7
	}
}

// 4. Function Calls - Tests JSR/RET control stalls
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls to a one-instruction subroutine - control stalls on JSR and RET",
		Program: []uint16{
			insts.EncodeANDImm(0, 0, 0), // 0x3000
			insts.EncodeJSR(3),          // 0x3002 -> 0x300A
			insts.EncodeJSR(2),          // 0x3004 -> 0x300A
			insts.EncodeJSR(1),          // 0x3006 -> 0x300A
			insts.EncodeHALT(),          // 0x3008
			insts.EncodeADDImm(0, 0, 1), // 0x300A
			insts.EncodeRET(),           // 0x300C
		},
		ExpectedR0: 3,
	}
}

// 5. Branch Taken - Tests branch control stalls
func branchTaken() Benchmark {
	program := []uint16{insts.EncodeANDImm(0, 0, 0)}
	for i := 0; i < 5; i++ {
		program = append(program,
			insts.EncodeBR(insts.CondN|insts.CondZ|insts.CondP, 0),
			insts.EncodeADDImm(0, 0, 1),
		)
	}
	program = append(program, insts.EncodeHALT())

	return Benchmark{
		Name:        "branch_taken",
		Description: "5 always-taken branches to the next instruction - fetch waits for each",
		Program:     program,
		ExpectedR0:  5,
	}
}

// 6. Mixed Operations - Tests a realistic instruction mix
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "Mix of ALU, shift, LEA and memory operations",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(1, dataBase)
		},
		Program: []uint16{
			insts.EncodeANDImm(0, 0, 0),
			insts.EncodeADDImm(2, 0, 12), // R2 = 12
			insts.EncodeLSHF(3, 2, 2),    // R3 = 48
			insts.EncodeXOR(4, 3, 2),     // R4 = 60
			insts.EncodeSTW(4, 1, 0),
			insts.EncodeLEA(5, 0),
			insts.EncodeLDB(6, 1, 0),   // R6 = 60
			insts.EncodeRSHFL(6, 6, 1), // R6 = 30
			insts.EncodeADD(0, 6, 2),   // R0 = 42
			insts.EncodeHALT(),
		},
		ExpectedR0: 42,
	}
}

// 7. Loop Simulation - Tests a counted loop with a backward branch
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "Sum 1..10 in a countdown loop",
		Program: []uint16{
			insts.EncodeANDImm(0, 0, 0),     // 0x3000
			insts.EncodeANDImm(1, 1, 0),     // 0x3002
			insts.EncodeADDImm(1, 1, 10),    // 0x3004
			insts.EncodeADD(0, 0, 1),        // 0x3006 loop
			insts.EncodeADDImm(1, 1, -1),    // 0x3008
			insts.EncodeBR(insts.CondP, -3), // 0x300A -> 0x3006
			insts.EncodeHALT(),              // 0x300C
		},
		ExpectedR0: 55,
	}
}

// 8. Memory Copy - Tests a load/store loop
func memoryCopy() Benchmark {
	return Benchmark{
		Name:        "memory_copy",
		Description: "Copy and sum 8 words - loads, stores and a loop branch",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			for i := uint16(0); i < 8; i++ {
				memory.Write16(dataBase+2*i, i+1)
			}
			regFile.WriteReg(1, dataBase)
			regFile.WriteReg(2, copyDst)
			regFile.WriteReg(3, 8)
		},
		Program: []uint16{
			insts.EncodeANDImm(0, 0, 0),     // 0x3000
			insts.EncodeLDW(4, 1, 0),        // 0x3002 loop
			insts.EncodeSTW(4, 2, 0),        // 0x3004
			insts.EncodeADD(0, 0, 4),        // 0x3006
			insts.EncodeADDImm(1, 1, 2),     // 0x3008
			insts.EncodeADDImm(2, 2, 2),     // 0x300A
			insts.EncodeADDImm(3, 3, -1),    // 0x300C
			insts.EncodeBR(insts.CondP, -7), // 0x300E -> 0x3002
			insts.EncodeHALT(),              // 0x3010
		},
		ExpectedR0: 36,
	}
}
