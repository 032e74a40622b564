package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/loader"
)

var _ = Describe("Object Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "lc3b-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Parse", func() {
		It("should read the origin and words", func() {
			prog, err := loader.Parse(strings.NewReader("0x3000\n0x1283\nx5020 ; clear R0\nF025\n"))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Origin).To(Equal(uint16(0x3000)))
			Expect(prog.Words).To(Equal([]uint16{0x1283, 0x5020, 0xF025}))
			Expect(prog.End()).To(Equal(uint16(0x3006)))
		})

		It("should reject malformed tokens", func() {
			_, err := loader.Parse(strings.NewReader("0x3000\n0xZZZZ\n"))

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("line 2"))
		})

		It("should reject an empty file", func() {
			_, err := loader.Parse(strings.NewReader("; nothing\n"))

			Expect(err).To(MatchError(loader.ErrEmptyProgram))
		})
	})

	Describe("ParseObj", func() {
		It("should read big-endian words", func() {
			prog, err := loader.ParseObj(strings.NewReader("\x30\x00\x12\x83\xF0\x25"))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Origin).To(Equal(uint16(0x3000)))
			Expect(prog.Words).To(Equal([]uint16{0x1283, 0xF025}))
		})

		It("should reject odd lengths", func() {
			_, err := loader.ParseObj(strings.NewReader("\x30\x00\x12"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should choose the format from the extension", func() {
			hexPath := filepath.Join(tempDir, "prog.hex")
			Expect(os.WriteFile(hexPath, []byte("3000 F025\n"), 0o644)).To(Succeed())
			objPath := filepath.Join(tempDir, "prog.obj")
			Expect(os.WriteFile(objPath, []byte{0x30, 0x00, 0xF0, 0x25}, 0o644)).To(Succeed())

			fromHex, err := loader.Load(hexPath)
			Expect(err).NotTo(HaveOccurred())
			fromObj, err := loader.Load(objPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(fromHex).To(Equal(fromObj))
		})

		It("should fail on a missing file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.hex"))
			Expect(err).To(HaveOccurred())
		})

		It("should copy the image into memory little-endian", func() {
			prog := &loader.Program{Origin: 0x3000, Words: []uint16{0x1283}}
			regFile := emu.NewRegFile(0)
			memory := emu.NewMemory()

			prog.LoadInto(regFile, memory)

			Expect(regFile.PC).To(Equal(uint16(0x3000)))
			Expect(memory.Read8(0x3000)).To(Equal(uint8(0x83)))
			Expect(memory.Read8(0x3001)).To(Equal(uint8(0x12)))
		})
	})
})
