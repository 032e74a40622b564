package pipeline_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

func cycles(t pipeline.Timing) [4]uint64 {
	return [4]uint64{t.Fetch, t.Read, t.Exec, t.Write}
}

func runKind(kind pipeline.Kind, m *machine, opts ...pipeline.Option) pipeline.Scheduler {
	s, err := pipeline.New(kind, m.semantics, opts...)
	Expect(err).ToNot(HaveOccurred())
	Expect(s.Run()).To(Succeed())
	return s
}

var _ = Describe("Schedulers", func() {
	for _, kind := range pipeline.Kinds() {
		kind := kind

		Describe(kind.String(), func() {
			It("should retire independent instructions one per cycle", func() {
				var words []uint16
				for k := 0; k < 10; k++ {
					words = append(words, insts.EncodeADDImm(uint8(1+k%7), 0, 1))
				}
				m := newMachine(words...)

				s := runKind(kind, m, pipeline.WithMaxInstructions(10))

				Expect(s.Schedule()).To(HaveLen(10))
				for k, t := range s.Schedule() {
					Expect(cycles(t)).To(Equal([4]uint64{uint64(k), uint64(k + 1), uint64(k + 2), uint64(k + 3)}))
				}
				Expect(s.Cycles()).To(Equal(uint64(12)))
				Expect(s.Stats().DataStalls).To(BeZero())
				Expect(s.Stats().ControlStalls).To(BeZero())
			})

			It("should delay a read behind a register write", func() {
				m := newMachine(
					insts.EncodeADD(1, 2, 3),
					insts.EncodeADD(4, 1, 5),
					insts.EncodeADD(6, 7, 0),
					insts.EncodeHALT(),
				)

				s := runKind(kind, m, pipeline.WithMaxInstructions(3))

				schedule := s.Schedule()
				Expect(schedule).To(HaveLen(3))
				Expect(cycles(schedule[0])).To(Equal([4]uint64{0, 1, 2, 3}))
				Expect(cycles(schedule[1])).To(Equal([4]uint64{1, 3, 4, 5}))
				Expect(cycles(schedule[2])).To(Equal([4]uint64{3, 4, 5, 6}))
				Expect(s.Cycles()).To(Equal(uint64(6)))
				Expect(s.Stats().DataStalls).To(Equal(uint64(1)))
			})

			It("should hold fetch until a branch writes back", func() {
				m := newMachine(
					insts.EncodeBR(0, 0),
					insts.EncodeADDImm(1, 2, 1),
					insts.EncodeHALT(),
				)

				s := runKind(kind, m)

				schedule := s.Schedule()
				Expect(schedule).To(HaveLen(3))
				Expect(cycles(schedule[0])).To(Equal([4]uint64{0, 1, 2, 3}))
				Expect(cycles(schedule[1])).To(Equal([4]uint64{3, 4, 5, 6}))
				Expect(cycles(schedule[2])).To(Equal([4]uint64{4, 5, 6, 7}))
				Expect(s.Cycles()).To(Equal(uint64(7)))
				Expect(s.Stats().ControlStalls).To(Equal(uint64(2)))
			})

			It("should fetch from the branch target", func() {
				m := newMachine(
					insts.EncodeBR(insts.CondN|insts.CondZ|insts.CondP, 1),
					insts.EncodeADDImm(1, 1, 7),
					insts.EncodeADDImm(2, 2, 5),
					insts.EncodeHALT(),
				)

				s := runKind(kind, m)

				schedule := s.Schedule()
				Expect(schedule).To(HaveLen(3))
				Expect(schedule[1].PC).To(Equal(uint16(origin + 4)))
				Expect(cycles(schedule[1])).To(Equal([4]uint64{3, 4, 5, 6}))
				Expect(m.regFile.ReadReg(1)).To(BeZero())
				Expect(m.regFile.ReadReg(2)).To(Equal(uint16(5)))
			})

			It("should order a load behind a store to the same word", func() {
				m := newMachine(
					insts.EncodeSTW(1, 2, 0),
					insts.EncodeLDB(3, 2, 1),
					insts.EncodeHALT(),
				)
				m.regFile.WriteReg(1, 0x7F00)
				m.regFile.WriteReg(2, 0x1000)

				s := runKind(kind, m)

				Expect(cycles(s.Schedule()[1])).To(Equal([4]uint64{1, 3, 4, 5}))
				Expect(m.regFile.ReadReg(3)).To(Equal(uint16(0x007F)))
			})

			It("should not order a load behind a store to another word", func() {
				m := newMachine(
					insts.EncodeSTW(1, 2, 0),
					insts.EncodeLDB(3, 2, 2),
					insts.EncodeHALT(),
				)
				m.regFile.WriteReg(2, 0x1000)

				s := runKind(kind, m)

				Expect(cycles(s.Schedule()[1])).To(Equal([4]uint64{1, 2, 3, 4}))
			})

			It("should let a branch see the condition codes of the instruction before it", func() {
				// R1 = 1; R1 -= 1 sets Z; BRz skips the R2 write.
				m := newMachine(
					insts.EncodeADDImm(1, 1, 1),
					insts.EncodeADDImm(1, 1, -1),
					insts.EncodeBR(insts.CondZ, 1),
					insts.EncodeADDImm(2, 2, 1),
					insts.EncodeHALT(),
				)

				runKind(kind, m)

				Expect(m.regFile.ReadReg(2)).To(BeZero())
			})

			It("should report a fatal error with the instruction index", func() {
				m := newMachine(insts.EncodeADD(1, 2, 3), 0xA000)

				s, err := pipeline.New(kind, m.semantics)
				Expect(err).ToNot(HaveOccurred())

				err = s.Run()

				var invErr *pipeline.InvariantError
				Expect(errors.As(err, &invErr)).To(BeTrue())
				Expect(invErr.Seq).To(Equal(uint64(1)))
				Expect(err).To(MatchError(emu.ErrUnknownOpcode))
				Expect(s.Done()).To(BeTrue())
				Expect(s.Err()).To(Equal(err))
			})

			It("should stop on RTI", func() {
				m := newMachine(insts.EncodeRTI())

				s, err := pipeline.New(kind, m.semantics)
				Expect(err).ToNot(HaveOccurred())

				Expect(s.Run()).To(MatchError(emu.ErrPrivilegeViolation))
			})

			It("should not advance after halting", func() {
				m := newMachine(insts.EncodeHALT())

				s := runKind(kind, m)
				before := s.Cycles()

				Expect(s.Advance()).To(Succeed())
				Expect(s.Cycles()).To(Equal(before))
				Expect(s.Schedule()).To(HaveLen(1))
				Expect(cycles(s.Schedule()[0])).To(Equal([4]uint64{0, 1, 2, 3}))
			})
		})
	}
})

var _ = Describe("Kind", func() {
	It("should round-trip names", func() {
		for _, kind := range pipeline.Kinds() {
			parsed, err := pipeline.ParseKind(kind.String())
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed).To(Equal(kind))
		}
	})

	It("should reject unknown names", func() {
		_, err := pipeline.ParseKind("superscalar")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Statistics", func() {
	It("should compute CPI", func() {
		stats := pipeline.Statistics{Cycles: 12, Instructions: 10}
		Expect(stats.CPI()).To(BeNumerically("~", 1.2, 0.0001))
	})

	It("should return 0 CPI with no instructions", func() {
		Expect(pipeline.Statistics{}.CPI()).To(BeZero())
	})
})
