// Package terminal writes probe output to the user's terminal, highlighting
// verdict lines when standard output is a color-capable terminal.
package terminal

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

var lineStyles = []struct {
	prefix []byte
	escape string
}{
	{[]byte("SUCCESS:"), ansiGreen},
	{[]byte("FAIL:"), ansiRed},
	{[]byte("WARNING:"), ansiYellow},
}

// Writer passes text through to an underlying writer, coloring verdict
// lines when enabled. Text is forwarded a line at a time; Flush writes a
// trailing partial line.
type Writer struct {
	w     io.Writer
	color bool
	buf   []byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer, color bool) *Writer {
	return &Writer{w: w, color: color}
}

// Stdout returns a Writer on standard output. mode is "always", "never" or
// "auto"; auto enables color only when standard output is a terminal.
func Stdout(mode string) *Writer {
	color := false
	switch mode {
	case "always":
		color = true
	case "never":
	default:
		color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
	return NewWriter(colorable.NewColorableStdout(), color)
}

// Color reports whether w emits escape sequences.
func (w *Writer) Color() bool { return w.color }

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if err := w.writeLine(w.buf[:i+1]); err != nil {
			return 0, err
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush writes any buffered partial line.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	err := w.writeLine(w.buf)
	w.buf = w.buf[:0]
	return err
}

func (w *Writer) writeLine(line []byte) error {
	if w.color {
		for _, st := range lineStyles {
			if bytes.HasPrefix(line, st.prefix) {
				body := bytes.TrimSuffix(line, []byte("\n"))
				_, err := io.WriteString(w.w, st.escape+string(body)+ansiReset+string(line[len(body):]))
				return err
			}
		}
	}
	_, err := w.w.Write(line)
	return err
}
