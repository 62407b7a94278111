// Package ui writes human-readable status lines and tables, and asks for confirmation before destructive operations.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	successGlyph = "✓"
	warningGlyph = "⚠"
	failureGlyph = "✗"
)

// Reporter prints status lines for a person watching the command run
type Reporter struct {
	out io.Writer
	// maxWidth bounds the width of free-text values such as titles; 0 means unbounded
	maxWidth int
}

func NewReporter(out io.Writer, maxWidth int) *Reporter {
	return &Reporter{out: out, maxWidth: maxWidth}
}

// Discard returns a reporter that prints nothing
func Discard() *Reporter {
	return &Reporter{out: io.Discard}
}

// Success prints a line prefixed with a checkmark
func (r *Reporter) Success(format string, args ...any) {
	r.line(successGlyph+" ", format, args...)
}

// Warn prints a line prefixed with a warning sign
func (r *Reporter) Warn(format string, args ...any) {
	r.line(warningGlyph+" ", format, args...)
}

// Failure prints a line prefixed with a cross
func (r *Reporter) Failure(format string, args ...any) {
	r.line(failureGlyph+" ", format, args...)
}

// Detail prints an indented line belonging to the previous status line
func (r *Reporter) Detail(format string, args ...any) {
	r.line("  ", format, args...)
}

// Info prints an unadorned line
func (r *Reporter) Info(format string, args ...any) {
	r.line("", format, args...)
}

func (r *Reporter) line(prefix string, format string, args ...any) {
	if r == nil || r.out == nil {
		return
	}
	fmt.Fprintf(r.out, "%s%s\n", prefix, fmt.Sprintf(format, args...))
}

// Fit shortens s to the reporter's width
func (r *Reporter) Fit(s string) string {
	if r == nil {
		return s
	}
	return Truncate(s, r.maxWidth)
}

// Truncate shortens s to at most width display cells, marking the cut with an ellipsis. A width of 0 or less
// leaves s unchanged
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// Join formats a list of names for a status line
func Join(items []string) string {
	return strings.Join(items, ", ")
}
