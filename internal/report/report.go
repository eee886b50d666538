// Package report prints diagnostic lists and a one-line run summary to
// a terminal, colorized the way go-mix/repl/repl.go colors REPL output
// (errors in red, warnings in yellow), gated on whether the writer is
// actually a TTY so piped/redirected output stays plain text.
package report

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/Zeph16/ziget/internal/diagnostics"
)

// Printer writes diagnostics and summaries to an underlying writer,
// colorizing only when that writer is attached to a terminal.
type Printer struct {
	out io.Writer

	errorColor   *color.Color
	warningColor *color.Color
	dimColor     *color.Color
}

// NewPrinter wraps out for diagnostic output. When out is a terminal,
// ANSI colors are enabled and routed through go-colorable so they
// render correctly on Windows consoles too; otherwise color is
// disabled and output stays plain text.
func NewPrinter(out *os.File) *Printer {
	colorized := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())

	var w io.Writer = out
	if colorized {
		w = colorable.NewColorable(out)
	}

	p := &Printer{
		out:          w,
		errorColor:   color.New(color.FgRed),
		warningColor: color.New(color.FgYellow),
		dimColor:     color.New(color.FgCyan),
	}
	if !colorized {
		p.errorColor.DisableColor()
		p.warningColor.DisableColor()
		p.dimColor.DisableColor()
	}
	return p
}

// Diagnostics prints every diagnostic in bag, one per line, errors in
// red and warnings in yellow.
func (p *Printer) Diagnostics(bag *diagnostics.Bag) {
	for _, d := range bag.All() {
		c := p.warningColor
		if d.Severity == diagnostics.Error {
			c = p.errorColor
		}
		c.Fprintf(p.out, "%s\n", d.Error())
	}
}

// Summary prints the end-of-run line: counts of errors/warnings and,
// on success, the size of the written IR file in human-readable form.
func (p *Printer) Summary(bag *diagnostics.Bag, outputPath string, outputSize int64) {
	errCount, warnCount := countBySeverity(bag)

	if errCount > 0 {
		p.errorColor.Fprintf(p.out, "%d error(s), %d warning(s) — no IR emitted\n", errCount, warnCount)
		return
	}

	if warnCount > 0 {
		p.warningColor.Fprintf(p.out, "%d warning(s)\n", warnCount)
	}
	p.dimColor.Fprintf(p.out, "wrote %s (%s)\n", outputPath, humanize.Bytes(uint64(outputSize)))
}

func countBySeverity(bag *diagnostics.Bag) (errorCount, warningCount int) {
	for _, d := range bag.All() {
		if d.Severity == diagnostics.Error {
			errorCount++
		} else {
			warningCount++
		}
	}
	return errorCount, warningCount
}
