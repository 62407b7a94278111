package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestReporter_Lines(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, 0)

	r.Success("Created issue #%d: %s", 7, "Bug X")
	r.Detail("URL: %s", "https://github.com/o/r/issues/7")
	r.Warn("Could not delete branch %s", "feat")
	r.Failure("Failed to merge PR #%d", 3)
	r.Info("Found %d issues", 2)

	require.Equal(t, "✓ Created issue #7: Bug X\n"+
		"  URL: https://github.com/o/r/issues/7\n"+
		"⚠ Could not delete branch feat\n"+
		"✗ Failed to merge PR #3\n"+
		"Found 2 issues\n", buf.String())
}

func TestReporter_NilIsSilent(t *testing.T) {
	var r *Reporter
	r.Success("nothing")
	require.Equal(t, "abc", r.Fit("abc"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "short", input: "hello", width: 10, expected: "hello"},
		{name: "exact", input: "hello", width: 5, expected: "hello"},
		{name: "cut", input: "hello world", width: 6, expected: "hello…"},
		{name: "unbounded", input: "hello world", width: 0, expected: "hello world"},
		{name: "wide runes", input: "こんにちは", width: 5, expected: "こん…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Truncate(tt.input, tt.width))
		})
	}
}

func TestChoiceFlag(t *testing.T) {
	var method string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddChoiceFlag(fs, &method, "method", "squash", []string{"merge", "squash", "rebase"}, "merge method")
	require.Equal(t, "squash", method)

	require.NoError(t, fs.Parse([]string{"--method", "REBASE"}))
	require.Equal(t, "rebase", method)

	err := fs.Parse([]string{"--method", "octopus"})
	require.Error(t, err)
	require.Equal(t, "rebase", method)
}

func TestTable_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, Terminal{}, "NAME", "SHA")
	table.Row("main", "abc123")
	table.Row("feat", "def456")
	require.NoError(t, table.Render())

	require.Equal(t, "main\tabc123\nfeat\tdef456\n", buf.String())
	require.NotContains(t, buf.String(), "NAME")
}

func TestTable_TTYPrintsHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, Terminal{IsTTY: true, Width: 80}, "NAME", "SHA")
	table.Row("main", "abc123")
	require.NoError(t, table.Render())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "NAME")
	require.Contains(t, lines[0], "SHA")
	require.Contains(t, lines[1], "main")
	require.Contains(t, lines[1], "abc123")
}

func TestMockConfirmer(t *testing.T) {
	m := &MockConfirmer{Confirmed: true}
	ok, err := m.Confirm("Delete?")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"Delete?"}, m.Labels)

	ok, err = AutoConfirmer{}.Confirm("anything")
	require.NoError(t, err)
	require.True(t, ok)
}
