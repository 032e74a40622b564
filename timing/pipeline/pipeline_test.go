package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/insts"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

var _ = Describe("Pipeline", func() {
	var (
		m *machine
		p *pipeline.Pipeline
	)

	BeforeEach(func() {
		m = newMachine(
			insts.EncodeADD(1, 2, 3),
			insts.EncodeADD(4, 1, 5),
			insts.EncodeHALT(),
		)
		p = pipeline.NewPipeline(m.semantics)
	})

	It("should prime the fetch slot", func() {
		fetch := p.Slot(pipeline.StageFetch)
		Expect(fetch.Status).To(Equal(pipeline.SlotPending))
		Expect(fetch.Rec.Seq).To(BeZero())

		Expect(p.Slot(pipeline.StageRead).Occupied()).To(BeFalse())
		Expect(p.Slot(pipeline.StageExec).Occupied()).To(BeFalse())
		Expect(p.Slot(pipeline.StageWrite).Occupied()).To(BeFalse())
		Expect(p.Cycle()).To(BeZero())
	})

	It("should move the first instruction to read after one tick", func() {
		Expect(p.Tick()).To(Succeed())

		read := p.Slot(pipeline.StageRead)
		Expect(read.Status).To(Equal(pipeline.SlotPending))
		Expect(read.Rec.Seq).To(BeZero())
		Expect(read.Timing.Fetch).To(BeZero())
		Expect(read.Timing.PC).To(Equal(uint16(origin)))

		fetch := p.Slot(pipeline.StageFetch)
		Expect(fetch.Rec.Seq).To(Equal(uint64(1)))
		Expect(p.Cycle()).To(Equal(uint64(1)))
	})

	It("should hold a dependent read while the producer is in flight", func() {
		Expect(p.RunCycles(3)).To(BeTrue())

		read := p.Slot(pipeline.StageRead)
		Expect(read.Rec.Seq).To(Equal(uint64(1)))
		Expect(read.Status).To(Equal(pipeline.SlotPending))
		Expect(p.Tracker().HasRegisterHazard(1)).To(BeTrue())

		fetch := p.Slot(pipeline.StageFetch)
		Expect(fetch.Rec.Seq).To(Equal(uint64(2)))
		Expect(fetch.Status).To(Equal(pipeline.SlotApplied))

		write := p.Slot(pipeline.StageWrite)
		Expect(write.Rec.Seq).To(BeZero())
	})

	It("should drain every claim by the time it halts", func() {
		Expect(p.RunCycles(100)).To(BeFalse())

		Expect(p.Halted()).To(BeTrue())
		Expect(p.Err()).ToNot(HaveOccurred())
		Expect(p.Tracker().Drained()).To(BeTrue())
		Expect(p.Cycles()).To(Equal(uint64(6)))
	})

	It("should stop counting cycles after the halt", func() {
		Expect(p.Run()).To(Succeed())
		cycles := p.Cycles()

		Expect(p.Tick()).To(Succeed())
		Expect(p.Cycles()).To(Equal(cycles))
	})

	It("should refill from the first instruction after Reset", func() {
		Expect(p.Run()).To(Succeed())

		p.Reset()
		m.regFile.PC = origin

		Expect(p.Done()).To(BeFalse())
		Expect(p.Schedule()).To(BeEmpty())
		Expect(p.Slot(pipeline.StageFetch).Rec.Seq).To(BeZero())
		Expect(p.Run()).To(Succeed())
		Expect(p.Schedule()).To(HaveLen(3))
	})

	It("should not allocate past the instruction limit", func() {
		p = pipeline.NewPipeline(m.semantics, pipeline.WithMaxInstructions(1))

		Expect(p.Tick()).To(Succeed())
		Expect(p.Slot(pipeline.StageFetch).Occupied()).To(BeFalse())

		Expect(p.Run()).To(Succeed())
		Expect(p.Schedule()).To(HaveLen(1))
		Expect(p.Cycles()).To(Equal(uint64(3)))
	})
})

var _ = Describe("Slot", func() {
	It("should describe an idle slot", func() {
		var s pipeline.Slot
		Expect(s.String()).To(Equal("-"))
		Expect(s.Occupied()).To(BeFalse())
	})

	It("should describe a slot returned by value from the pipeline", func() {
		m := newMachine(insts.EncodeADD(1, 2, 3), insts.EncodeHALT())
		p := pipeline.NewPipeline(m.semantics)
		Expect(p.Tick()).To(Succeed())

		Expect(p.Slot(pipeline.StageRead).Occupied()).To(BeTrue())
		Expect(p.Slot(pipeline.StageRead).String()).To(Equal("#0 ADD (pending)"))
		Expect(p.Slot(pipeline.StageWrite).String()).To(Equal("-"))
	})
})
