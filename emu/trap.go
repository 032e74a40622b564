package emu

import (
	"fmt"
	"io"

	"github.com/sarchlab/lc3bsim/insts"
)

// InputPrompt is printed by the IN trap before reading a character.
const InputPrompt = "Input a character> "

// maxStringLen bounds PUTS so an unterminated string cannot loop forever.
const maxStringLen = MemorySize

// TrapResult represents the result of servicing a trap.
type TrapResult struct {
	// Halted is true if the trap stopped the machine.
	Halted bool
}

// TrapHandler is the interface for servicing LC-3b traps.
type TrapHandler interface {
	// Handle services the trap with the given vector. Console traps use R0
	// as their argument or result.
	Handle(vector uint8) (TrapResult, error)
}

// DefaultTrapHandler services the console traps natively instead of
// running an operating system service routine.
type DefaultTrapHandler struct {
	regFile *RegFile
	memory  *Memory
	stdin   io.Reader
	stdout  io.Writer
}

// NewDefaultTrapHandler creates a default trap handler.
func NewDefaultTrapHandler(regFile *RegFile, memory *Memory, stdout io.Writer) *DefaultTrapHandler {
	return &DefaultTrapHandler{
		regFile: regFile,
		memory:  memory,
		stdin:   nil,
		stdout:  stdout,
	}
}

// SetStdin sets the stdin reader for the trap handler.
func (h *DefaultTrapHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// Handle services the trap with the given vector.
func (h *DefaultTrapHandler) Handle(vector uint8) (TrapResult, error) {
	switch vector {
	case insts.TrapGETC:
		h.regFile.WriteReg(0, uint16(h.readByte()))
	case insts.TrapOUT:
		return TrapResult{}, h.write([]byte{uint8(h.regFile.ReadReg(0))})
	case insts.TrapPUTS:
		return TrapResult{}, h.write(h.readString(h.regFile.ReadReg(0)))
	case insts.TrapIN:
		return TrapResult{}, h.handleIn()
	case insts.TrapHALT:
		return TrapResult{Halted: true}, nil
	default:
		return TrapResult{}, fmt.Errorf("%w: x%02X", ErrUnknownTrap, vector)
	}

	return TrapResult{}, nil
}

func (h *DefaultTrapHandler) handleIn() error {
	if err := h.write([]byte(InputPrompt)); err != nil {
		return err
	}

	c := h.readByte()
	h.regFile.WriteReg(0, uint16(c))

	return h.write([]byte{c})
}

// readByte reads one byte from stdin. No stdin or EOF yields 0.
func (h *DefaultTrapHandler) readByte() byte {
	if h.stdin == nil {
		return 0
	}

	var buf [1]byte
	if n, _ := h.stdin.Read(buf[:]); n > 0 {
		return buf[0]
	}

	return 0
}

func (h *DefaultTrapHandler) readString(addr uint16) []byte {
	var buf []byte
	for i := 0; i < maxStringLen; i++ {
		c := h.memory.Read8(addr)
		if c == 0 {
			break
		}
		buf = append(buf, c)
		addr++
	}

	return buf
}

func (h *DefaultTrapHandler) write(buf []byte) error {
	if h.stdout == nil {
		return nil
	}

	if _, err := h.stdout.Write(buf); err != nil {
		return fmt.Errorf("console write failed: %w", err)
	}

	return nil
}
