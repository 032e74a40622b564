package tui_test

import (
	"bytes"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
	"github.com/sarchlab/lc3bsim/tui"
)

func press(m tea.Model, keys string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return m
}

var _ = Describe("Model", func() {
	var (
		regFile *emu.RegFile
		console *bytes.Buffer
		m       tea.Model
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile(0x3000)
		memory := emu.NewMemory()
		memory.LoadProgram(0x3000, []uint16{
			insts.EncodeADDImm(0, 0, 0x0F),
			insts.EncodeADDImm(0, 0, 0x0F),
			insts.EncodeADDImm(0, 0, 0x0F),
			insts.EncodeADDImm(0, 0, 0x0F),
			insts.EncodeADDImm(0, 0, 0x05),
			insts.EncodeTRAP(insts.TrapOUT),
			insts.EncodeHALT(),
		})
		console = &bytes.Buffer{}
		handler := emu.NewDefaultTrapHandler(regFile, memory, console)
		p := pipeline.NewPipeline(emu.NewSemantics(regFile, memory, emu.WithTrapHandler(handler)))

		m = tui.New(p, regFile, tui.WithConsole(console))
	})

	It("should start without a command", func() {
		Expect(m.Init()).To(BeNil())
		Expect(m.View()).To(ContainSubstring("Ready"))
	})

	It("should advance one cycle per step key", func() {
		m = press(m, "s")
		m = press(m, "s")

		history := m.(tui.Model).History()
		Expect(history).To(HaveLen(2))
		Expect(history[0]).To(Equal("    0 |   ?| |----| |----| |----|"))
		Expect(history[1]).To(Equal("    1 |   ?| | ADD| |----| |----|"))
		Expect(m.View()).To(ContainSubstring("Cycle 2"))
	})

	It("should advance ten cycles on the jump key", func() {
		m = press(m, "n")
		Expect(m.(tui.Model).History()).To(HaveLen(10))
	})

	It("should run to the halt", func() {
		m = press(m, "r")

		view := m.View()
		Expect(view).To(ContainSubstring("Halted after"))
		Expect(view).To(ContainSubstring("R0=0x0041=65"))
		Expect(view).To(ContainSubstring("Console"))
		Expect(console.String()).To(Equal("A"))
		Expect(m.(tui.Model).History()).To(HaveLen(12))
	})

	It("should toggle the full help", func() {
		Expect(m.View()).NotTo(ContainSubstring("step 10 cycles"))
		m = press(m, "?")
		Expect(m.View()).To(ContainSubstring("step 10 cycles"))
	})

	It("should quit", func() {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))
	})

	It("should show the error that stopped the pipeline", func() {
		regFile = emu.NewRegFile(0x3000)
		memory := emu.NewMemory()
		memory.Write16(0x3000, 0xA000)
		p := pipeline.NewPipeline(emu.NewSemantics(regFile, memory))
		m = tui.New(p, regFile)

		m = press(m, "r")

		Expect(m.(tui.Model).Err()).To(MatchError(emu.ErrUnknownOpcode))
		Expect(m.View()).To(ContainSubstring("Error:"))
	})
})
