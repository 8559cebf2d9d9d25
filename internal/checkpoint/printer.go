package checkpoint

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	heading  = color.New(color.Bold).SprintFunc()
)

// Printer writes the human-readable progress lines of a run.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = io.Discard
	}
	return &Printer{w: w}
}

// Header announces checkpoint n.
func (p *Printer) Header(n int, name string) {
	fmt.Fprintf(p.w, "\n%s\n", heading(fmt.Sprintf("=== Checkpoint %d: %s ===", n, name)))
}

// Pass prints a ✓ line.
func (p *Printer) Pass(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", passMark("✓"), fmt.Sprintf(format, args...))
}

// Fail prints a ✗ line.
func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", failMark("✗"), fmt.Sprintf(format, args...))
}

// Warn prints a ⚠ line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", warnMark("⚠"), fmt.Sprintf(format, args...))
}

// Item prints an indented enumeration line.
func (p *Printer) Item(format string, args ...any) {
	fmt.Fprintf(p.w, "  - %s\n", fmt.Sprintf(format, args...))
}

// Line prints an unadorned line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
