// Package loader provides object file loading for LC-3b programs.
//
// Two formats are supported:
//   - Hex text (.hex, .txt): whitespace separated hexadecimal words. The
//     first word is the origin byte address; every following word is
//     stored little-endian at consecutive word addresses. Tokens may carry
//     a 0x or x prefix and ';' starts a comment that runs to end of line.
//   - LC-3 binary (.obj): big-endian 16-bit origin followed by big-endian
//     16-bit words.
package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarchlab/lc3bsim/emu"
)

// ErrEmptyProgram is returned when an object file has no origin word.
var ErrEmptyProgram = errors.New("object file contains no origin")

// Program represents a loaded LC-3b program ready for execution.
type Program struct {
	// Origin is the byte address of the first word and the entry point.
	Origin uint16
	// Words contains the program image.
	Words []uint16
}

// End returns the first byte address after the program image.
func (p *Program) End() uint16 {
	return p.Origin + uint16(2*len(p.Words))
}

// LoadInto copies the program into memory and points PC at the origin.
func (p *Program) LoadInto(regFile *emu.RegFile, memory *emu.Memory) {
	memory.LoadProgram(p.Origin, p.Words)
	regFile.PC = p.Origin
}

// Load reads an object file, choosing the format from its extension.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var prog *Program
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		prog, err = ParseObj(f)
	} else {
		prog, err = Parse(f)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return prog, nil
}

// Parse reads the hex text format.
func Parse(r io.Reader) (*Program, error) {
	scanner := bufio.NewScanner(r)
	prog := &Program{}
	haveOrigin := false
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = text[:i]
		}

		for _, tok := range strings.Fields(text) {
			word, err := parseWord(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}

			if !haveOrigin {
				prog.Origin = word
				haveOrigin = true
				continue
			}

			prog.Words = append(prog.Words, word)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}

	if !haveOrigin {
		return nil, ErrEmptyProgram
	}

	return prog, nil
}

// ParseObj reads the LC-3 binary object format.
func ParseObj(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}

	if len(data) < 2 {
		return nil, ErrEmptyProgram
	}

	if len(data)%2 != 0 {
		return nil, fmt.Errorf("object file has odd length %d", len(data))
	}

	prog := &Program{Origin: binary.BigEndian.Uint16(data)}
	for i := 2; i < len(data); i += 2 {
		prog.Words = append(prog.Words, binary.BigEndian.Uint16(data[i:]))
	}

	return prog, nil
}

func parseWord(tok string) (uint16, error) {
	s := strings.ToLower(tok)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "x")

	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid word %q: %w", tok, err)
	}

	return uint16(v), nil
}
