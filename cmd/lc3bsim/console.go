package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// rawConsole reads console input one key at a time with echo disabled, so
// GETC sees each key as it is pressed.
type rawConsole struct {
	r        io.Reader
	fd       int
	oldState *term.State
}

// openRawConsole puts the terminal behind in into raw mode. The caller must
// call Restore when the run ends.
func openRawConsole(in io.Reader) (*rawConsole, error) {
	f, ok := in.(*os.File)
	if !ok {
		return nil, errors.New("console input is not a file")
	}

	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("console input is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}

	return &rawConsole{r: f, fd: fd, oldState: oldState}, nil
}

// Read reads keys, translating the carriage return sent for Enter into a
// newline.
func (c *rawConsole) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	translateKeys(p[:n])
	return n, err
}

// Restore returns the terminal to the state it had before raw mode.
func (c *rawConsole) Restore() {
	if c.oldState != nil {
		_ = term.Restore(c.fd, c.oldState)
		c.oldState = nil
	}
}

// translateKeys maps raw-mode Enter and Backspace to the bytes a line
// terminal would deliver.
func translateKeys(buf []byte) {
	for i, b := range buf {
		switch b {
		case '\r':
			buf[i] = '\n'
		case 0x7F:
			buf[i] = 0x08
		}
	}
}

// crlfWriter expands newlines to CR LF. Raw mode turns off the terminal's
// own output translation.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if b == '\n' {
			out = append(out, '\r')
		}
		out = append(out, b)
	}

	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
