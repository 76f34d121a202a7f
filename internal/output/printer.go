// Package output provides styled terminal output for packforge.
//
// The [Printer] centralizes all user-facing formatting so commands and the
// workflow driver never write to stdout directly. Tests substitute a buffer
// via [NewPrinterWithWriter] to assert on emitted output.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.DoubleBorder()).
			Padding(0, 2)

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer writes styled output to a writer.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a [Printer] writing to stdout.
func NewPrinter() *Printer {
	return &Printer{w: os.Stdout}
}

// NewPrinterWithWriter creates a [Printer] writing to the given writer.
// Intended for tests.
func NewPrinterWithWriter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Banner prints a bordered title block with optional detail lines.
func (p *Printer) Banner(title string, lines ...string) {
	content := title
	if len(lines) > 0 {
		content += "\n" + dimStyle.Render(strings.Join(lines, "\n"))
	}
	fmt.Fprintln(p.w, bannerStyle.Render(content))
}

// RoundHeader marks the start of a workflow round.
func (p *Printer) RoundHeader(round, maxRounds int) {
	fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf("── Round %02d/%02d ──", round, maxRounds)))
}

// Stage reports a pipeline stage inside a round, tagged with the agent name.
func (p *Printer) Stage(agent, msg string) {
	fmt.Fprintf(p.w, "%s %s\n", headerStyle.Render("["+agent+"]"), msg)
}

// Successf prints a green success line.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.w, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Errorf prints a red failure line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.w, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow warning line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.w, warnStyle.Render("! "+fmt.Sprintf(format, args...)))
}

// Infof prints an unstyled informational line.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Trend prints the score progression across rounds, e.g. "6.0 → 7.5 → 9.0".
func (p *Printer) Trend(scores []float64) {
	if len(scores) == 0 {
		return
	}
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.1f", s)
	}
	fmt.Fprintf(p.w, "Score trend: %s\n", strings.Join(parts, " → "))
}
