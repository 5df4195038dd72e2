// Package console prints the user-facing status lines of the command line
// tools. Styling is dropped automatically when the writer is not a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

type Console struct {
	w   io.Writer
	out *termenv.Output
}

// New returns a Console writing to w.
func New(w io.Writer) *Console {
	return &Console{w: w, out: termenv.NewOutput(w)}
}

// Discard returns a Console that prints nothing.
func Discard() *Console {
	return New(io.Discard)
}

// Writer exposes the underlying writer, e.g. to echo subprocess output.
func (c *Console) Writer() io.Writer {
	return c.w
}

func (c *Console) line(symbol, color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if symbol != "" {
		prefix := symbol
		if c.out.Profile != termenv.Ascii {
			prefix = c.out.String(symbol).Foreground(c.out.Color(color)).Bold().String()
		}
		msg = prefix + " " + msg
	}
	fmt.Fprintln(c.w, msg)
}

// Printf prints an unstyled line.
func (c *Console) Printf(format string, args ...any) {
	c.line("", "", format, args...)
}

func (c *Console) Infof(format string, args ...any) {
	c.line("•", "6", format, args...)
}

func (c *Console) Successf(format string, args ...any) {
	c.line("✓", "2", format, args...)
}

func (c *Console) Warnf(format string, args ...any) {
	c.line("⚠", "3", format, args...)
}

func (c *Console) Failf(format string, args ...any) {
	c.line("✗", "1", format, args...)
}

// Rule prints a horizontal separator of the given width.
func (c *Console) Rule(width int) {
	fmt.Fprintln(c.w, strings.Repeat("-", width))
}
