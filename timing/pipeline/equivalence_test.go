package pipeline_test

import (
	"io"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

type program struct {
	words []uint16
	setup func(m *machine)
}

func countdownLoop() program {
	return program{words: []uint16{
		insts.EncodeANDImm(1, 1, 0),
		insts.EncodeADDImm(1, 1, 5),
		insts.EncodeANDImm(2, 2, 0),
		insts.EncodeADDImm(2, 2, 3),
		insts.EncodeADDImm(1, 1, -1),
		insts.EncodeBR(insts.CondP, -3),
		insts.EncodeHALT(),
	}}
}

func memoryCopy() program {
	return program{words: []uint16{
		insts.EncodeLEA(1, 10), // 0x3000 R1 = src (0x3016)
		insts.EncodeLEA(2, 13), // 0x3002 R2 = dst (0x301E)
		insts.EncodeANDImm(3, 3, 0),
		insts.EncodeADDImm(3, 3, 4),
		insts.EncodeLDW(4, 1, 0), // 0x3008 loop
		insts.EncodeSTW(4, 2, 0),
		insts.EncodeADDImm(1, 1, 2),
		insts.EncodeADDImm(2, 2, 2),
		insts.EncodeADDImm(3, 3, -1),
		insts.EncodeBR(insts.CondP, -6), // 0x3012
		insts.EncodeHALT(),
		1, 2, 3, 4, // 0x3016 src
		0, 0, 0, 0, // 0x301E dst
	}}
}

func byteShuffle() program {
	return program{words: []uint16{
		insts.EncodeLEA(1, 8), // 0x3000 R1 = data (0x3012)
		insts.EncodeLDW(2, 1, 0),
		insts.EncodeRSHFA(3, 2, 4),
		insts.EncodeLSHF(4, 2, 3),
		insts.EncodeXOR(5, 3, 4),
		insts.EncodeSTB(5, 1, 1),
		insts.EncodeLDW(6, 1, 0),
		insts.EncodeNOT(7, 6),
		insts.EncodeHALT(), // 0x3010
		0x8421,             // 0x3012 data
	}}
}

func subroutines() program {
	return program{words: []uint16{
		insts.EncodeANDImm(0, 0, 0), // 0x3000
		insts.EncodeJSR(4),          // 0x3002 -> 0x300C
		insts.EncodeLEA(5, 5),       // 0x3004 R5 = 0x3010
		insts.EncodeJSRR(5),         // 0x3006
		insts.EncodeHALT(),          // 0x3008
		0,                           // 0x300A
		insts.EncodeADDImm(0, 0, 3), // 0x300C
		insts.EncodeRET(),           // 0x300E
		insts.EncodeADDImm(0, 0, 4), // 0x3010
		insts.EncodeRET(),           // 0x3012
	}}
}

func dependentChain() program {
	words := []uint16{insts.EncodeANDImm(1, 1, 0)}
	for i := 0; i < 12; i++ {
		words = append(words, insts.EncodeADDImm(1, 1, 1))
	}
	words = append(words, insts.EncodeADD(2, 1, 1), insts.EncodeSTW(2, 0, 0), insts.EncodeHALT())

	return program{
		words: words,
		setup: func(m *machine) { m.regFile.WriteReg(0, 0x4000) },
	}
}

// randomStream builds a straight-line program of ALU work, byte and word
// accesses through two even base registers that overlap in memory, base
// register updates and short forward branches.
func randomStream(seed int64, length int) program {
	rng := rand.New(rand.NewSource(seed))
	data := func() uint8 { return uint8(rng.Intn(6)) }
	base := func() uint8 { return uint8(6 + rng.Intn(2)) }

	var words []uint16
	for len(words) < length {
		switch rng.Intn(10) {
		case 0:
			words = append(words, insts.EncodeADD(data(), data(), data()))
		case 1:
			words = append(words, insts.EncodeANDImm(data(), data(), int16(rng.Intn(32)-16)))
		case 2:
			words = append(words, insts.EncodeXOR(data(), data(), data()))
		case 3:
			words = append(words, insts.EncodeLSHF(data(), data(), uint8(rng.Intn(16))))
		case 4:
			words = append(words, insts.EncodeLDW(data(), base(), int16(rng.Intn(4))))
		case 5:
			words = append(words, insts.EncodeSTW(data(), base(), int16(rng.Intn(4))))
		case 6:
			words = append(words, insts.EncodeLDB(data(), base(), int16(rng.Intn(8))))
		case 7:
			words = append(words, insts.EncodeSTB(data(), base(), int16(rng.Intn(8))))
		case 8:
			step := int16(2 * (rng.Intn(4) - 2))
			words = append(words, insts.EncodeADDImm(base(), base(), step))
		default:
			cond := insts.Cond(1 + rng.Intn(7))
			words = append(words, insts.EncodeBR(cond, int16(1+rng.Intn(2))))
		}
	}

	// Forward branches never jump past the halt.
	words = append(words,
		insts.EncodeADDImm(0, 0, 1),
		insts.EncodeADDImm(1, 1, 1),
		insts.EncodeHALT(),
	)

	var initial [6]uint16
	for r := range initial {
		initial[r] = uint16(rng.Intn(0x10000))
	}

	return program{
		words: words,
		setup: func(m *machine) {
			for r, v := range initial {
				m.regFile.WriteReg(uint8(r), v)
			}
			m.regFile.WriteReg(6, 0x4000)
			m.regFile.WriteReg(7, 0x4006)
		},
	}
}

func (p program) load() *machine {
	m := newMachine(p.words...)
	if p.setup != nil {
		p.setup(m)
	}
	return m
}

var _ = Describe("Scheduler equivalence", func() {
	DescribeTable("all schedulers agree with each other and with the emulator",
		func(p program) {
			reference := p.load()
			e := emu.NewEmulator(emu.WithStdout(io.Discard))
			e.LoadState(reference.regFile, reference.memory)
			Expect(e.Run()).To(Succeed())

			var baseline []pipeline.Timing
			for _, kind := range pipeline.Kinds() {
				m := p.load()
				s := runKind(kind, m)

				Expect(m.regFile.R).To(Equal(reference.regFile.R), "registers under %v", kind)
				Expect(m.regFile.PC).To(Equal(reference.regFile.PC), "PC under %v", kind)
				Expect(m.regFile.CC).To(Equal(reference.regFile.CC), "CC under %v", kind)
				Expect(*m.memory).To(Equal(*reference.memory), "memory under %v", kind)
				Expect(uint64(len(s.Schedule()))).To(Equal(e.InstructionCount()))

				last := s.Schedule()[len(s.Schedule())-1]
				Expect(s.Cycles()).To(Equal(last.Write))

				if baseline == nil {
					baseline = s.Schedule()
					continue
				}
				Expect(s.Schedule()).To(Equal(baseline), "schedule under %v", kind)
			}
		},
		Entry("countdown loop", countdownLoop()),
		Entry("memory copy", memoryCopy()),
		Entry("byte shuffle", byteShuffle()),
		Entry("subroutines", subroutines()),
		Entry("dependent chain", dependentChain()),
		Entry("random stream 1", randomStream(1, 40)),
		Entry("random stream 2", randomStream(2, 40)),
		Entry("random stream 3", randomStream(3, 60)),
		Entry("random stream 4", randomStream(4, 60)),
		Entry("random stream 5", randomStream(5, 80)),
		Entry("random stream 6", randomStream(6, 80)),
	)

	It("should drain every hazard claim on random streams", func() {
		for seed := int64(1); seed <= 6; seed++ {
			m := randomStream(seed, 60).load()
			p := pipeline.NewPipeline(m.semantics)

			Expect(p.Run()).To(Succeed(), "seed %d", seed)
			Expect(p.Tracker().Drained()).To(BeTrue(), "seed %d", seed)
		}
	})

	It("should compute the expected results", func() {
		m := memoryCopy().load()
		runKind(pipeline.KindStepped, m)

		for i := uint16(0); i < 4; i++ {
			Expect(m.memory.Read16(0x301E + 2*i)).To(Equal(i + 1))
		}

		m = subroutines().load()
		runKind(pipeline.KindTimeline, m)
		Expect(m.regFile.ReadReg(0)).To(Equal(uint16(7)))
	})
})
