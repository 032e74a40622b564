package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

var _ = Describe("Dependency predicates", func() {
	decoder := insts.NewDecoder()

	record := func(word uint16) *emu.Record {
		return &emu.Record{Inst: *decoder.Decode(word)}
	}

	withAddr := func(rec *emu.Record, addr uint16) *emu.Record {
		rec.Addr = addr
		rec.AddrKnown = true
		return rec
	}

	Describe("FetchDepends", func() {
		It("should hold behind PC writers", func() {
			next := record(insts.EncodeADD(1, 2, 3))

			Expect(pipeline.FetchDepends(next, record(insts.EncodeBR(0, 0)))).To(BeTrue())
			Expect(pipeline.FetchDepends(next, record(insts.EncodeJMP(2)))).To(BeTrue())
			Expect(pipeline.FetchDepends(next, record(insts.EncodeHALT()))).To(BeTrue())
			Expect(pipeline.FetchDepends(next, record(insts.EncodeADD(1, 2, 3)))).To(BeFalse())
		})
	})

	Describe("ReadDepends", func() {
		It("should detect RAW on either source register", func() {
			prior := record(insts.EncodeADD(1, 2, 3))

			Expect(pipeline.ReadDepends(record(insts.EncodeADD(4, 1, 5)), prior)).To(BeTrue())
			Expect(pipeline.ReadDepends(record(insts.EncodeADD(4, 5, 1)), prior)).To(BeTrue())
			Expect(pipeline.ReadDepends(record(insts.EncodeADD(6, 7, 0)), prior)).To(BeFalse())
		})

		It("should ignore immediate fields that look like registers", func() {
			prior := record(insts.EncodeADD(1, 2, 3))

			Expect(pipeline.ReadDepends(record(insts.EncodeADDImm(4, 5, 1)), prior)).To(BeFalse())
		})

		It("should treat a store's value register as a source", func() {
			prior := record(insts.EncodeLDW(5, 0, 0))

			Expect(pipeline.ReadDepends(record(insts.EncodeSTW(5, 6, 0)), prior)).To(BeTrue())
		})

		It("should detect memory RAW with aliasing", func() {
			store := withAddr(record(insts.EncodeSTW(1, 2, 0)), 0x1000)

			Expect(pipeline.ReadDepends(withAddr(record(insts.EncodeLDB(3, 4, 1)), 0x1001), store)).To(BeTrue())
			Expect(pipeline.ReadDepends(withAddr(record(insts.EncodeLDB(3, 4, 2)), 0x1002), store)).To(BeFalse())
		})

		It("should assume a conflict while the load address is unknown", func() {
			store := withAddr(record(insts.EncodeSTB(1, 2, 0)), 0x1000)

			Expect(pipeline.ReadDepends(record(insts.EncodeLDW(3, 4, 0)), store)).To(BeTrue())
		})

		It("should ignore stores against stores", func() {
			store := withAddr(record(insts.EncodeSTW(1, 2, 0)), 0x1000)

			Expect(pipeline.ReadDepends(withAddr(record(insts.EncodeSTW(3, 4, 0)), 0x1000), store)).To(BeFalse())
		})
	})
})
