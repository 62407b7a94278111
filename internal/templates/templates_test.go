package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_Default(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "issue_template.md", "## Summary\n")

	body, err := NewStore(dir).Load(Issue, DefaultName)
	require.NoError(t, err)
	require.Equal(t, "## Summary\n", body)
}

func TestLoad_NamedVariant(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "issue_template.md", "default")
	writeFile(t, dir, "issue_template_bug.md", "bug")

	store := NewStore(dir)
	body, err := store.Load(Issue, "bug")
	require.NoError(t, err)
	require.Equal(t, "bug", body)

	body, err = store.Load(Issue, "feature")
	require.NoError(t, err)
	require.Equal(t, "default", body)
}

func TestLoad_MissingYieldsEmpty(t *testing.T) {
	body, err := NewStore(t.TempDir()).Load(PullRequest, "default")
	require.NoError(t, err)
	require.Empty(t, body)

	body, err = NewStore(filepath.Join(t.TempDir(), "nope")).Load(Issue, "bug")
	require.NoError(t, err)
	require.Empty(t, body)
}

func TestLoad_KindsAreSeparate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pr_template.md", "pr body")

	store := NewStore(dir)
	body, err := store.Load(PullRequest, "")
	require.NoError(t, err)
	require.Equal(t, "pr body", body)

	body, err = store.Load(Issue, "")
	require.NoError(t, err)
	require.Empty(t, body)
}
