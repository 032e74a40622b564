package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
)

type recordingProbe struct {
	loads, stores []uint16
}

func (p *recordingProbe) Load(addr uint16, size int)  { p.loads = append(p.loads, addr) }
func (p *recordingProbe) Store(addr uint16, size int) { p.stores = append(p.stores, addr) }

var _ = Describe("Semantics", func() {
	var (
		regFile   *emu.RegFile
		memory    *emu.Memory
		stdout    *bytes.Buffer
		probe     *recordingProbe
		semantics *emu.Semantics
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile(0x3000)
		memory = emu.NewMemory()
		stdout = &bytes.Buffer{}
		probe = &recordingProbe{}
		semantics = emu.NewSemantics(regFile, memory,
			emu.WithTrapHandler(emu.NewDefaultTrapHandler(regFile, memory, stdout)),
			emu.WithAccessProbe(probe))
	})

	run := func(words ...uint16) *emu.Record {
		memory.LoadProgram(regFile.PC, words)
		var rec emu.Record
		for range words {
			rec.Reset(0)
			_, err := semantics.Complete(&rec)
			Expect(err).ToNot(HaveOccurred())
		}
		return &rec
	}

	Describe("Fetch", func() {
		It("should decode the word at PC and advance PC", func() {
			memory.Write16(0x3000, insts.EncodeADDImm(1, 1, 5))

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(Succeed())

			Expect(rec.PC).To(Equal(uint16(0x3000)))
			Expect(rec.NextPC).To(Equal(uint16(0x3002)))
			Expect(rec.Inst.Op).To(Equal(insts.OpADD))
			Expect(regFile.PC).To(Equal(uint16(0x3002)))
		})

		It("should reject reserved opcodes", func() {
			memory.Write16(0x3000, 0xA000)

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(MatchError(emu.ErrUnknownOpcode))
		})

		It("should reject unsupported trap vectors", func() {
			memory.Write16(0x3000, insts.EncodeTRAP(0x30))

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(MatchError(emu.ErrUnknownTrap))
		})

		It("should reject an odd PC", func() {
			regFile.PC = 0x3001

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(MatchError(emu.ErrUnalignedAccess))
		})
	})

	Describe("Operate instructions", func() {
		It("should add registers and set N", func() {
			regFile.WriteReg(2, 3)
			regFile.WriteReg(3, 0xFFFA) // -6
			run(insts.EncodeADD(1, 2, 3))

			Expect(regFile.ReadReg(1)).To(Equal(uint16(0xFFFD)))
			Expect(regFile.CC).To(Equal(insts.CondN))
		})

		It("should AND with an immediate and set Z", func() {
			regFile.WriteReg(1, 0x00F0)
			run(insts.EncodeANDImm(1, 1, 0x0F))

			Expect(regFile.ReadReg(1)).To(BeZero())
			Expect(regFile.CC).To(Equal(insts.CondZ))
		})

		It("should compute NOT", func() {
			regFile.WriteReg(6, 0x00FF)
			run(insts.EncodeNOT(2, 6))

			Expect(regFile.ReadReg(2)).To(Equal(uint16(0xFF00)))
		})

		It("should shift in all three modes", func() {
			regFile.WriteReg(1, 0x8010)
			run(insts.EncodeLSHF(2, 1, 1), insts.EncodeRSHFL(3, 1, 4), insts.EncodeRSHFA(4, 1, 4))

			Expect(regFile.ReadReg(2)).To(Equal(uint16(0x0020)))
			Expect(regFile.ReadReg(3)).To(Equal(uint16(0x0801)))
			Expect(regFile.ReadReg(4)).To(Equal(uint16(0xF801)))
			Expect(regFile.CC).To(Equal(insts.CondN))
		})
	})

	Describe("Memory instructions", func() {
		It("should sign-extend LDB", func() {
			regFile.WriteReg(2, 0x4000)
			memory.Write8(0x4003, 0x80)
			run(insts.EncodeLDB(1, 2, 3))

			Expect(regFile.ReadReg(1)).To(Equal(uint16(0xFF80)))
			Expect(regFile.CC).To(Equal(insts.CondN))
			Expect(probe.loads).To(Equal([]uint16{0x4003}))
		})

		It("should load little-endian words with LDW", func() {
			regFile.WriteReg(2, 0x4000)
			memory.Write8(0x4004, 0x34)
			memory.Write8(0x4005, 0x12)
			run(insts.EncodeLDW(1, 2, 2))

			Expect(regFile.ReadReg(1)).To(Equal(uint16(0x1234)))
			Expect(regFile.CC).To(Equal(insts.CondP))
		})

		It("should store the low byte with STB and a word with STW", func() {
			regFile.WriteReg(1, 0xABCD)
			regFile.WriteReg(2, 0x4000)
			run(insts.EncodeSTB(1, 2, 1), insts.EncodeSTW(1, 2, 2))

			Expect(memory.Read8(0x4001)).To(Equal(uint8(0xCD)))
			Expect(memory.Read16(0x4004)).To(Equal(uint16(0xABCD)))
			Expect(probe.stores).To(Equal([]uint16{0x4001, 0x4004}))
		})

		It("should fail on an unaligned word access", func() {
			regFile.WriteReg(2, 0x4001)
			memory.Write16(0x3000, insts.EncodeLDW(1, 2, 0))

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(Succeed())
			Expect(semantics.Read(&rec)).To(MatchError(emu.ErrUnalignedAccess))
		})

		It("should resolve addresses ahead of the read", func() {
			regFile.WriteReg(2, 0x4000)
			memory.Write16(0x3000, insts.EncodeSTW(1, 2, -1))

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(Succeed())
			Expect(semantics.ResolveAddress(&rec)).To(Succeed())
			Expect(rec.AddrKnown).To(BeTrue())
			Expect(rec.Addr).To(Equal(uint16(0x3FFE)))
		})

		It("should compute LEA without touching the condition codes", func() {
			regFile.CC = insts.CondN
			run(insts.EncodeLEA(3, 4))

			Expect(regFile.ReadReg(3)).To(Equal(uint16(0x300A)))
			Expect(regFile.CC).To(Equal(insts.CondN))
		})
	})

	Describe("Control instructions", func() {
		It("should take a branch whose condition matches", func() {
			regFile.CC = insts.CondZ
			run(insts.EncodeBR(insts.CondZ, 5))

			Expect(regFile.PC).To(Equal(uint16(0x300C)))
		})

		It("should fall through a branch whose condition does not match", func() {
			regFile.CC = insts.CondP
			run(insts.EncodeBR(insts.CondN|insts.CondZ, 5))

			Expect(regFile.PC).To(Equal(uint16(0x3002)))
		})

		It("should sample condition codes in Execute", func() {
			memory.Write16(0x3000, insts.EncodeBR(insts.CondP, 3))
			regFile.CC = insts.CondN

			var rec emu.Record
			Expect(semantics.Fetch(&rec)).To(Succeed())
			Expect(semantics.Read(&rec)).To(Succeed())
			regFile.CC = insts.CondP
			Expect(semantics.Execute(&rec)).To(Succeed())

			Expect(rec.Taken).To(BeTrue())
		})

		It("should jump through a register", func() {
			regFile.WriteReg(5, 0x5000)
			run(insts.EncodeJMP(5))

			Expect(regFile.PC).To(Equal(uint16(0x5000)))
		})

		It("should link R7 on JSR", func() {
			run(insts.EncodeJSR(-2))

			Expect(regFile.ReadReg(7)).To(Equal(uint16(0x3002)))
			Expect(regFile.PC).To(Equal(uint16(0x2FFE)))
		})

		It("should read the old R7 on JSRR R7", func() {
			regFile.WriteReg(7, 0x6000)
			run(insts.EncodeJSRR(7))

			Expect(regFile.PC).To(Equal(uint16(0x6000)))
			Expect(regFile.ReadReg(7)).To(Equal(uint16(0x3002)))
		})

		It("should fail on RTI", func() {
			memory.Write16(0x3000, insts.EncodeRTI())

			var rec emu.Record
			_, err := semantics.Complete(&rec)
			Expect(err).To(MatchError(emu.ErrPrivilegeViolation))
		})
	})

	Describe("Traps", func() {
		It("should report HALT", func() {
			memory.Write16(0x3000, insts.EncodeHALT())

			var rec emu.Record
			halted, err := semantics.Complete(&rec)
			Expect(err).ToNot(HaveOccurred())
			Expect(halted).To(BeTrue())
		})

		It("should print through OUT", func() {
			regFile.WriteReg(0, 'A')
			run(insts.EncodeTRAP(insts.TrapOUT))

			Expect(stdout.String()).To(Equal("A"))
		})
	})
})
