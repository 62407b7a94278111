package ui

import (
	"io"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/cli/go-gh/v2/pkg/term"
)

// Terminal describes where output is going
type Terminal struct {
	IsTTY bool
	Width int
}

// TerminalFromEnv inspects stdout. Width is 0 when stdout is not a terminal
func TerminalFromEnv() Terminal {
	t := term.FromEnv()
	if !t.IsTerminalOutput() {
		return Terminal{}
	}
	width, _, err := t.Size()
	if err != nil {
		width = 80
	}
	return Terminal{IsTTY: true, Width: width}
}

// Table accumulates rows and renders them aligned on a terminal, or tab-separated otherwise
type Table struct {
	printer tableprinter.TablePrinter
}

// NewTable writes to w. Headers are only printed on a terminal, so piped output is one tab-separated line per row
func NewTable(w io.Writer, terminal Terminal, headers ...string) *Table {
	printer := tableprinter.New(w, terminal.IsTTY, terminal.Width)
	if len(headers) > 0 {
		printer.AddHeader(headers)
	}
	return &Table{printer: printer}
}

// Row adds one row
func (t *Table) Row(fields ...string) {
	for _, f := range fields {
		t.printer.AddField(f)
	}
	t.printer.EndRow()
}

func (t *Table) Render() error {
	return t.printer.Render()
}
